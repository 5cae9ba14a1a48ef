package repositories

import (
	"errors"

	"gorm.io/gorm"
	domainerrors "qrbook.backend/internal/domain/errors"
)

// translateError maps gorm errors onto domain sentinels. Unique violations
// only surface as gorm.ErrDuplicatedKey when the DB was opened with
// TranslateError enabled.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainerrors.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domainerrors.ErrAlreadyExists
	}
	return err
}

// Package blobstore keeps uploaded profile images on the local disk or in an
// Aliyun OSS bucket. Both backends address blobs by a bare file name.
package blobstore

import (
	"fmt"
	"strings"

	"qrbook.backend/internal/domain/entities"
	domainerrors "qrbook.backend/internal/domain/errors"
)

// ValidateName rejects names that could escape the store's namespace.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: invalid file name %q", domainerrors.ErrValidation, name)
	}
	return nil
}

// PublicPath is the reference stored on a card for a blob name.
func PublicPath(name string) string {
	return entities.UploadsPrefix + name
}

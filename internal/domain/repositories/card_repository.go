package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"qrbook.backend/internal/domain/entities"
)

// CardRepository defines card data operations
type CardRepository interface {
	// NextSequence atomically advances the owner's card counter and returns
	// the new value. The first call for an owner seeds from their card count.
	NextSequence(ctx context.Context, userID string) (int64, error)
	Create(ctx context.Context, card *entities.Card) error
	GetByKey(ctx context.Context, key uuid.UUID) (*entities.Card, error)
	GetByCardID(ctx context.Context, cardID string) (*entities.Card, error)
	GetByEncodedPath(ctx context.Context, encodedPath string) (*entities.Card, error)
	GetByEmail(ctx context.Context, email string) (*entities.Card, error)
	ListByUserID(ctx context.Context, userID string) ([]*entities.Card, error)
	// List returns cards newest first together with the total count.
	List(ctx context.Context, limit, offset int) ([]*entities.Card, int64, error)
	Update(ctx context.Context, card *entities.Card) error
	DeleteByKey(ctx context.Context, key uuid.UUID) error
	// DeleteExpiredUnpaid removes the card only while it is still unpaid and
	// created before cutoff; otherwise it returns ErrNotFound.
	DeleteExpiredUnpaid(ctx context.Context, key uuid.UUID, cutoff time.Time) error
	// ListExpiredUnpaid returns unpaid cards created before cutoff, oldest first.
	ListExpiredUnpaid(ctx context.Context, cutoff time.Time, offset, limit int) ([]*entities.Card, error)
}

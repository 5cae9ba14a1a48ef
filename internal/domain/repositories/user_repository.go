package repositories

import (
	"context"

	"qrbook.backend/internal/domain/entities"
)

// UserRepository defines user data operations
type UserRepository interface {
	// NextSequence atomically advances the registration counter. The first
	// call seeds from the number of existing users.
	NextSequence(ctx context.Context) (int64, error)
	Create(ctx context.Context, user *entities.User) error
	GetByUserID(ctx context.Context, userID string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	List(ctx context.Context) ([]*entities.User, error)
	// ListByType returns accounts of one type newest first. limit <= 0 returns all.
	ListByType(ctx context.Context, userType entities.UserType, limit, offset int) ([]*entities.User, int64, error)
	Update(ctx context.Context, user *entities.User) error
	Delete(ctx context.Context, userID string) error
}

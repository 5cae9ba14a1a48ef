package repositories

import (
	"context"

	"gorm.io/gorm"
	"qrbook.backend/internal/domain/entities"
	domainerrors "qrbook.backend/internal/domain/errors"
	"qrbook.backend/internal/infrastructure/models"
)

// UserSequenceName is the counter row backing registered user ids.
const UserSequenceName = "users"

const userSequenceSQL = `INSERT INTO sequences (name, value)
SELECT ?, COUNT(*) + 1 FROM users WHERE 1 = 1
ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
RETURNING value`

// UserRepository implements user data operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// NextSequence advances the registration counter, seeding it from the
// existing user count on first use.
func (r *UserRepository) NextSequence(ctx context.Context) (int64, error) {
	var value int64
	if err := GetDB(ctx, r.db).Raw(userSequenceSQL, UserSequenceName).Scan(&value).Error; err != nil {
		return 0, err
	}
	return value, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	m := r.toModel(user)
	if err := GetDB(ctx, r.db).Create(m).Error; err != nil {
		return translateError(err)
	}
	user.CreatedAt = m.CreatedAt
	user.UpdatedAt = m.UpdatedAt
	return nil
}

// GetByUserID gets a user by public id
func (r *UserRepository) GetByUserID(ctx context.Context, userID string) (*entities.User, error) {
	var m models.User
	if err := GetDB(ctx, r.db).Where("user_id = ?", userID).First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return r.toEntity(&m), nil
}

// GetByEmail gets a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	var m models.User
	if err := GetDB(ctx, r.db).Where("email = ?", email).First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return r.toEntity(&m), nil
}

// List returns every account
func (r *UserRepository) List(ctx context.Context) ([]*entities.User, error) {
	var ms []models.User
	if err := GetDB(ctx, r.db).Order("created_at ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toEntities(ms), nil
}

// ListByType returns accounts of one type, newest first
func (r *UserRepository) ListByType(ctx context.Context, userType entities.UserType, limit, offset int) ([]*entities.User, int64, error) {
	var total int64
	if err := GetDB(ctx, r.db).Model(&models.User{}).Where("type = ?", string(userType)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.User
	query := GetDB(ctx, r.db).Where("type = ?", string(userType)).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	return r.toEntities(ms), total, nil
}

// Update writes the mutable account columns including password and reset code
func (r *UserRepository) Update(ctx context.Context, user *entities.User) error {
	updates := map[string]interface{}{
		"full_name":                 user.FullName,
		"email":                     user.Email,
		"mobile_no":                 user.MobileNo,
		"password_hash":             user.PasswordHash,
		"reset_password_otp":        user.ResetPasswordOTP,
		"reset_password_otp_expiry": user.ResetPasswordOTPExpiry,
		"updated_at":                user.UpdatedAt,
	}

	result := GetDB(ctx, r.db).Model(&models.User{}).Where("user_id = ?", user.UserID).Updates(updates)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// Delete removes an account. Cards owned by the account are kept.
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	result := GetDB(ctx, r.db).Delete(&models.User{}, "user_id = ?", userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *UserRepository) toModel(u *entities.User) *models.User {
	return &models.User{
		UserID:                 u.UserID,
		FullName:               u.FullName,
		Email:                  u.Email,
		MobileNo:               u.MobileNo,
		PasswordHash:           u.PasswordHash,
		Type:                   string(u.Type),
		ResetPasswordOTP:       u.ResetPasswordOTP,
		ResetPasswordOTPExpiry: u.ResetPasswordOTPExpiry,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
}

func (r *UserRepository) toEntity(m *models.User) *entities.User {
	return &entities.User{
		UserID:                 m.UserID,
		FullName:               m.FullName,
		Email:                  m.Email,
		MobileNo:               m.MobileNo,
		PasswordHash:           m.PasswordHash,
		Type:                   entities.UserType(m.Type),
		ResetPasswordOTP:       m.ResetPasswordOTP,
		ResetPasswordOTPExpiry: m.ResetPasswordOTPExpiry,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
}

func (r *UserRepository) toEntities(ms []models.User) []*entities.User {
	items := make([]*entities.User, 0, len(ms))
	for i := range ms {
		items = append(items, r.toEntity(&ms[i]))
	}
	return items
}

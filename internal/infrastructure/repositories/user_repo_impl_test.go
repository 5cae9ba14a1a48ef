package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"qrbook.backend/internal/domain/entities"
	domainerrors "qrbook.backend/internal/domain/errors"
)

func sampleUser(userID, email string, userType entities.UserType, createdAt time.Time) *entities.User {
	return &entities.User{
		UserID:       userID,
		FullName:     "Grace Hopper",
		Email:        email,
		MobileNo:     "+14165550101",
		PasswordHash: "hash",
		Type:         userType,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestUserRepository_CRUD(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := sampleUser("User101", "grace@example.com", entities.UserTypeUser, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, u))

	byID, err := repo.GetByUserID(ctx, "User101")
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)
	assert.False(t, byID.ResetPasswordOTP.Valid)

	byEmail, err := repo.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, "User101", byEmail.UserID)

	expiry := time.Now().UTC().Add(entities.ResetOTPLifetime).Truncate(time.Second)
	u.FullName = "Grace B. Hopper"
	u.PasswordHash = "hash2"
	u.ResetPasswordOTP = null.StringFrom("otp-hash")
	u.ResetPasswordOTPExpiry = null.TimeFrom(expiry)
	u.UpdatedAt = expiry.Add(-time.Minute)
	require.NoError(t, repo.Update(ctx, u))

	updated, err := repo.GetByUserID(ctx, "User101")
	require.NoError(t, err)
	assert.Equal(t, "Grace B. Hopper", updated.FullName)
	assert.Equal(t, "hash2", updated.PasswordHash)
	assert.Equal(t, "otp-hash", updated.ResetPasswordOTP.String)
	assert.True(t, updated.ResetPasswordOTPExpiry.Time.Equal(expiry))
	assert.True(t, updated.UpdatedAt.Equal(u.UpdatedAt), "updated_at %v", updated.UpdatedAt)

	updated.ClearResetOTP()
	require.NoError(t, repo.Update(ctx, updated))
	cleared, err := repo.GetByUserID(ctx, "User101")
	require.NoError(t, err)
	assert.False(t, cleared.ResetPasswordOTP.Valid)
	assert.False(t, cleared.ResetPasswordOTPExpiry.Valid)

	items, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, repo.Delete(ctx, "User101"))
	_, err = repo.GetByUserID(ctx, "User101")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestUserRepository_NotFoundBranches(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	_, err := repo.GetByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, sampleUser("User999", "x@example.com", entities.UserTypeUser, time.Now())), domainerrors.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "User999"), domainerrors.ErrNotFound)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleUser("User101", "dup@example.com", entities.UserTypeUser, time.Now())))
	err := repo.Create(ctx, sampleUser("User102", "dup@example.com", entities.UserTypeUser, time.Now()))
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestUserRepository_NextSequence(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	createSequenceTable(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seq, err := repo.NextSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	require.NoError(t, repo.Create(ctx, sampleUser("User101", "a@example.com", entities.UserTypeUser, time.Now())))
	seq, err = repo.NextSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestUserRepository_NextSequenceSeedsFromExistingUsers(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	createSequenceTable(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	for i, email := range []string{"a@example.com", "b@example.com"} {
		id := []string{"User101", "User102"}[i]
		require.NoError(t, repo.Create(ctx, sampleUser(id, email, entities.UserTypeUser, time.Now())))
	}
	seq, err := repo.NextSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), seq)
}

func TestUserRepository_ListByType(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, sampleUser("User101", "u@example.com", entities.UserTypeUser, base)))
	require.NoError(t, repo.Create(ctx, sampleUser("admin-1", "a1@example.com", entities.UserTypeAdmin, base.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, sampleUser("admin-2", "a2@example.com", entities.UserTypeAdmin, base.Add(2*time.Hour))))

	admins, total, err := repo.ListByType(ctx, entities.UserTypeAdmin, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, admins, 1)
	assert.Equal(t, "admin-2", admins[0].UserID)

	all, total, err := repo.ListByType(ctx, entities.UserTypeAdmin, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)
}

package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"
	"qrbook.backend/internal/domain/entities"
	domainerrors "qrbook.backend/internal/domain/errors"
	"qrbook.backend/internal/usecases"
	"qrbook.backend/pkg/crypto"
	"qrbook.backend/pkg/jwt"
)

func TestMain(m *testing.M) {
	restore := crypto.SetCostForTesting(bcrypt.MinCost)
	code := m.Run()
	restore()
	os.Exit(code)
}

type userFixture struct {
	users   *MockUserRepository
	uow     *MockUnitOfWork
	mailer  *MockMailer
	limiter *MockRateLimiter
	jwt     *jwt.JWTService
	uc      *usecases.UserUsecase
	now     time.Time
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	f := &userFixture{
		users:   new(MockUserRepository),
		uow:     new(MockUnitOfWork),
		mailer:  new(MockMailer),
		limiter: new(MockRateLimiter),
		jwt:     jwt.NewJWTService("test-secret", time.Hour),
		now:     time.Now().UTC().Truncate(time.Second),
	}
	f.uc = usecases.NewUserUsecase(f.users, f.uow, f.jwt, f.mailer, f.limiter)
	f.uc.SetNow(func() time.Time { return f.now })
	f.uow.On("Do", mock.Anything, mock.Anything).Return(nil).Maybe()
	return f
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := crypto.HashPassword(password)
	require.NoError(t, err)
	return hash
}

func registerInput() *entities.RegisterInput {
	return &entities.RegisterInput{
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
		MobileNo: "+11234567890",
		Password: "Password123",
	}
}

func TestUserUsecase_Register(t *testing.T) {
	f := newUserFixture(t)
	f.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(nil, domainerrors.ErrNotFound)
	f.users.On("NextSequence", mock.Anything).Return(int64(1), nil)
	f.users.On("Create", mock.Anything, mock.AnythingOfType("*entities.User")).Return(nil)

	user, err := f.uc.Register(context.Background(), registerInput())
	require.NoError(t, err)
	assert.Equal(t, "User101", user.UserID)
	assert.Equal(t, entities.UserTypeUser, user.Type)
	assert.True(t, crypto.CheckPassword("Password123", user.PasswordHash))
	assert.Equal(t, f.now, user.CreatedAt)
	f.uow.AssertNumberOfCalls(t, "Do", 1)
}

func TestUserUsecase_Register_SequenceOffset(t *testing.T) {
	f := newUserFixture(t)
	f.users.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, domainerrors.ErrNotFound)
	f.users.On("NextSequence", mock.Anything).Return(int64(42), nil)
	f.users.On("Create", mock.Anything, mock.Anything).Return(nil)

	user, err := f.uc.Register(context.Background(), registerInput())
	require.NoError(t, err)
	assert.Equal(t, "User142", user.UserID)
}

func TestUserUsecase_Register_DuplicateEmail(t *testing.T) {
	f := newUserFixture(t)
	f.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(&entities.User{UserID: "User101"}, nil)

	_, err := f.uc.Register(context.Background(), registerInput())
	assert.Equal(t, http.StatusConflict, domainerrors.FromError(err).Status)
	f.users.AssertNotCalled(t, "NextSequence", mock.Anything)
}

func TestUserUsecase_Register_InsertRace(t *testing.T) {
	f := newUserFixture(t)
	f.users.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, domainerrors.ErrNotFound)
	f.users.On("NextSequence", mock.Anything).Return(int64(2), nil)
	f.users.On("Create", mock.Anything, mock.Anything).Return(domainerrors.ErrAlreadyExists)

	_, err := f.uc.Register(context.Background(), registerInput())
	assert.Equal(t, http.StatusConflict, domainerrors.FromError(err).Status)
}

func TestUserUsecase_Register_Validation(t *testing.T) {
	f := newUserFixture(t)
	input := registerInput()
	input.Password = "short"

	_, err := f.uc.Register(context.Background(), input)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	f.users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestUserUsecase_CreateAdmin(t *testing.T) {
	f := newUserFixture(t)
	f.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(nil, domainerrors.ErrNotFound)
	f.users.On("Create", mock.Anything, mock.Anything).Return(nil)

	admin, err := f.uc.CreateAdmin(context.Background(), registerInput())
	require.NoError(t, err)
	assert.Equal(t, entities.UserTypeAdmin, admin.Type)
	_, err = uuid.Parse(admin.UserID)
	assert.NoError(t, err)
	f.users.AssertNotCalled(t, "NextSequence", mock.Anything)
}

func TestUserUsecase_Login(t *testing.T) {
	f := newUserFixture(t)
	stored := &entities.User{UserID: "User101", Email: "ada@example.com", Type: entities.UserTypeUser, PasswordHash: mustHash(t, "Password123")}
	f.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(stored, nil)
	f.users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domainerrors.ErrNotFound)

	resp, err := f.uc.Login(context.Background(), &entities.LoginInput{Email: "ada@example.com", Password: "Password123"})
	require.NoError(t, err)
	assert.Same(t, stored, resp.User)

	claims, err := f.jwt.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "User101", claims.UserID)
	assert.Equal(t, "user", claims.Type)

	_, err = f.uc.Login(context.Background(), &entities.LoginInput{Email: "ada@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = f.uc.Login(context.Background(), &entities.LoginInput{Email: "ghost@example.com", Password: "Password123"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	assert.Equal(t, http.StatusUnauthorized, domainerrors.FromError(err).Status)
}

func TestUserUsecase_GetAndListUsers(t *testing.T) {
	f := newUserFixture(t)
	f.users.On("GetByUserID", mock.Anything, "User404").Return(nil, domainerrors.ErrNotFound)
	f.users.On("List", mock.Anything).Return(nil, nil)

	_, err := f.uc.GetUser(context.Background(), "User404")
	assert.Equal(t, http.StatusNotFound, domainerrors.FromError(err).Status)
	assert.Equal(t, "User not found", err.Error())

	users, err := f.uc.ListUsers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestUserUsecase_UpdateUser(t *testing.T) {
	f := newUserFixture(t)
	stored := &entities.User{UserID: "User101", FullName: "Ada", Email: "ada@example.com", MobileNo: "+1"}
	f.users.On("GetByUserID", mock.Anything, "User101").Return(stored, nil)
	f.users.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, domainerrors.ErrNotFound)
	f.users.On("Update", mock.Anything, stored).Return(nil)

	email := "new@example.com"
	name := "Ada King"
	got, err := f.uc.UpdateUser(context.Background(), "User101", &entities.UpdateUserInput{FullName: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "Ada King", got.FullName)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, "+1", got.MobileNo)
}

func TestUserUsecase_UpdateUser_EmailTaken(t *testing.T) {
	f := newUserFixture(t)
	f.users.On("GetByUserID", mock.Anything, "User101").Return(&entities.User{UserID: "User101", Email: "ada@example.com"}, nil)
	f.users.On("GetByEmail", mock.Anything, "bob@example.com").Return(&entities.User{UserID: "User102"}, nil)

	email := "bob@example.com"
	_, err := f.uc.UpdateUser(context.Background(), "User101", &entities.UpdateUserInput{Email: &email})
	assert.Equal(t, http.StatusConflict, domainerrors.FromError(err).Status)
	f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUserUsecase_DeleteUser(t *testing.T) {
	f := newUserFixture(t)
	f.users.On("Delete", mock.Anything, "User101").Return(nil)
	f.users.On("Delete", mock.Anything, "User404").Return(domainerrors.ErrNotFound)

	assert.NoError(t, f.uc.DeleteUser(context.Background(), "User101"))
	err := f.uc.DeleteUser(context.Background(), "User404")
	assert.Equal(t, http.StatusNotFound, domainerrors.FromError(err).Status)
}

func TestUserUsecase_ListAdmins(t *testing.T) {
	f := newUserFixture(t)
	admins := []*entities.User{{UserID: "a", Type: entities.UserTypeAdmin}}
	f.users.On("ListByType", mock.Anything, entities.UserTypeAdmin, 5, 5).Return(admins, int64(11), nil)
	f.users.On("ListByType", mock.Anything, entities.UserTypeAdmin, 0, 0).Return(admins, int64(1), nil)

	page, err := f.uc.ListAdmins(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, admins, page.Admins)

	all, err := f.uc.ListAllAdmins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, admins, all)
}

func TestUserUsecase_UpdateAndDeleteAdmin(t *testing.T) {
	f := newUserFixture(t)
	admin := &entities.User{UserID: "adm-1", FullName: "Root", Email: "root@example.com", Type: entities.UserTypeAdmin}
	f.users.On("GetByUserID", mock.Anything, "adm-1").Return(admin, nil)
	f.users.On("GetByUserID", mock.Anything, "User101").Return(&entities.User{UserID: "User101", Type: entities.UserTypeUser}, nil)
	f.users.On("Update", mock.Anything, admin).Return(nil)
	f.users.On("Delete", mock.Anything, "adm-1").Return(nil)

	name := "Super Root"
	got, err := f.uc.UpdateAdmin(context.Background(), "adm-1", &entities.UpdateAdminInput{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Super Root", got.FullName)

	_, err = f.uc.UpdateAdmin(context.Background(), "User101", &entities.UpdateAdminInput{FullName: &name})
	assert.Equal(t, http.StatusNotFound, domainerrors.FromError(err).Status)
	assert.Equal(t, "Admin not found", err.Error())

	assert.NoError(t, f.uc.DeleteAdmin(context.Background(), "adm-1"))
	err = f.uc.DeleteAdmin(context.Background(), "User101")
	assert.Equal(t, http.StatusNotFound, domainerrors.FromError(err).Status)
	f.users.AssertNotCalled(t, "Delete", mock.Anything, "User101")
}

func TestUserUsecase_ChangePassword(t *testing.T) {
	f := newUserFixture(t)
	stored := &entities.User{UserID: "User101", PasswordHash: mustHash(t, "Password123")}
	f.users.On("GetByUserID", mock.Anything, "User101").Return(stored, nil)
	f.users.On("Update", mock.Anything, stored).Return(nil)

	err := f.uc.ChangePassword(context.Background(), "User101", &entities.ChangePasswordInput{CurrentPassword: "nope-nope", NewPassword: "NewPassword1"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	require.NoError(t, f.uc.ChangePassword(context.Background(), "User101", &entities.ChangePasswordInput{CurrentPassword: "Password123", NewPassword: "NewPassword1"}))
	assert.True(t, crypto.CheckPassword("NewPassword1", stored.PasswordHash))
}

var otpPattern = regexp.MustCompile(`\b(\d{6})\b`)

func TestUserUsecase_ForgotAndResetPassword(t *testing.T) {
	f := newUserFixture(t)
	stored := &entities.User{UserID: "User101", Email: "ada@example.com", PasswordHash: mustHash(t, "Password123")}
	f.limiter.On("Allow", mock.Anything, "ada@example.com").Return(true, nil)
	f.users.On("GetByEmail", mock.Anything, "Ada@Example.com").Return(stored, nil)
	f.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(stored, nil)
	f.users.On("Update", mock.Anything, stored).Return(nil)

	var body string
	f.mailer.On("Send", mock.Anything, "ada@example.com", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { body = args.String(3) }).
		Return(nil)

	require.NoError(t, f.uc.ForgotPassword(context.Background(), &entities.ForgotPasswordInput{Email: "Ada@Example.com"}))
	require.True(t, stored.ResetPasswordOTP.Valid)
	assert.Equal(t, f.now.Add(10*time.Minute), stored.ResetPasswordOTPExpiry.Time)

	match := otpPattern.FindStringSubmatch(body)
	require.Len(t, match, 2, body)
	otp := match[1]
	assert.NotEqual(t, otp, stored.ResetPasswordOTP.String)
	assert.True(t, crypto.CheckPassword(otp, stored.ResetPasswordOTP.String))

	wrong := "000000"
	if otp == wrong {
		wrong = "111111"
	}
	err := f.uc.ResetPassword(context.Background(), &entities.ResetPasswordInput{Email: "ada@example.com", OTP: wrong, NewPassword: "NewPassword1"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	require.NoError(t, f.uc.ResetPassword(context.Background(), &entities.ResetPasswordInput{Email: "ada@example.com", OTP: otp, NewPassword: "NewPassword1"}))
	assert.True(t, crypto.CheckPassword("NewPassword1", stored.PasswordHash))
	assert.False(t, stored.ResetPasswordOTP.Valid)
	assert.False(t, stored.ResetPasswordOTPExpiry.Valid)

	err = f.uc.ResetPassword(context.Background(), &entities.ResetPasswordInput{Email: "ada@example.com", OTP: otp, NewPassword: "NewPassword2"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestUserUsecase_ResetPassword_Expired(t *testing.T) {
	f := newUserFixture(t)
	stored := &entities.User{
		UserID:                 "User101",
		Email:                  "ada@example.com",
		ResetPasswordOTP:       null.StringFrom(mustHash(t, "123456")),
		ResetPasswordOTPExpiry: null.TimeFrom(f.now.Add(-time.Second)),
	}
	f.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(stored, nil)

	err := f.uc.ResetPassword(context.Background(), &entities.ResetPasswordInput{Email: "ada@example.com", OTP: "123456", NewPassword: "NewPassword1"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Equal(t, "Invalid or expired OTP", err.Error())
	f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUserUsecase_ResetPassword_RevokesCodeAfterTooManyWrongAttempts(t *testing.T) {
	f := newUserFixture(t)
	guard := new(MockRateLimiter)
	f.uc.SetResetAttemptLimiter(guard)

	expiry := f.now.Add(5 * time.Minute)
	stored := &entities.User{
		UserID:                 "User101",
		Email:                  "Ada@example.com",
		PasswordHash:           mustHash(t, "Password123"),
		ResetPasswordOTP:       null.StringFrom(mustHash(t, "123456")),
		ResetPasswordOTPExpiry: null.TimeFrom(expiry),
	}
	key := fmt.Sprintf("ada@example.com:%d", expiry.Unix())
	f.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(stored, nil)
	guard.On("Allow", mock.Anything, key).Return(true, nil).Once()
	guard.On("Allow", mock.Anything, key).Return(false, nil).Once()
	f.users.On("Update", mock.Anything, stored).Return(nil).Once()

	input := &entities.ResetPasswordInput{Email: "ada@example.com", OTP: "654321", NewPassword: "NewPassword1"}
	err := f.uc.ResetPassword(context.Background(), input)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.True(t, stored.ResetPasswordOTP.Valid)

	err = f.uc.ResetPassword(context.Background(), input)
	assert.ErrorIs(t, err, domainerrors.ErrRateLimited)
	assert.False(t, stored.ResetPasswordOTP.Valid)
	assert.False(t, stored.ResetPasswordOTPExpiry.Valid)
	assert.Equal(t, f.now, stored.UpdatedAt)

	// The right code no longer works once revoked.
	input.OTP = "123456"
	err = f.uc.ResetPassword(context.Background(), input)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.True(t, crypto.CheckPassword("Password123", stored.PasswordHash))
	guard.AssertExpectations(t)
	f.users.AssertExpectations(t)
}

func TestUserUsecase_ResetPassword_AttemptThrottleUnavailable(t *testing.T) {
	f := newUserFixture(t)
	guard := new(MockRateLimiter)
	f.uc.SetResetAttemptLimiter(guard)

	stored := &entities.User{
		UserID:                 "User101",
		Email:                  "ada@example.com",
		ResetPasswordOTP:       null.StringFrom(mustHash(t, "123456")),
		ResetPasswordOTPExpiry: null.TimeFrom(f.now.Add(time.Minute)),
	}
	f.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(stored, nil)
	guard.On("Allow", mock.Anything, mock.Anything).Return(false, errors.New("redis down"))

	err := f.uc.ResetPassword(context.Background(), &entities.ResetPasswordInput{Email: "ada@example.com", OTP: "000000", NewPassword: "NewPassword1"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.True(t, stored.ResetPasswordOTP.Valid)
	f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUserUsecase_ForgotPassword_RateLimited(t *testing.T) {
	f := newUserFixture(t)
	f.limiter.On("Allow", mock.Anything, "ada@example.com").Return(false, nil)

	err := f.uc.ForgotPassword(context.Background(), &entities.ForgotPasswordInput{Email: "ada@example.com"})
	assert.ErrorIs(t, err, domainerrors.ErrRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, domainerrors.FromError(err).Status)
	f.users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestUserUsecase_ForgotPassword_LimiterDownStillSends(t *testing.T) {
	f := newUserFixture(t)
	stored := &entities.User{UserID: "User101", Email: "ada@example.com"}
	f.limiter.On("Allow", mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
	f.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(stored, nil)
	f.users.On("Update", mock.Anything, stored).Return(nil)
	f.mailer.On("Send", mock.Anything, "ada@example.com", mock.Anything, mock.Anything).Return(nil)

	assert.NoError(t, f.uc.ForgotPassword(context.Background(), &entities.ForgotPasswordInput{Email: "ada@example.com"}))
	f.mailer.AssertExpectations(t)
}

func TestUserUsecase_ForgotPassword_Failures(t *testing.T) {
	t.Run("unknown email", func(t *testing.T) {
		f := newUserFixture(t)
		f.limiter.On("Allow", mock.Anything, mock.Anything).Return(true, nil)
		f.users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domainerrors.ErrNotFound)

		err := f.uc.ForgotPassword(context.Background(), &entities.ForgotPasswordInput{Email: "ghost@example.com"})
		assert.Equal(t, http.StatusNotFound, domainerrors.FromError(err).Status)
	})

	t.Run("mail failure", func(t *testing.T) {
		f := newUserFixture(t)
		stored := &entities.User{UserID: "User101", Email: "ada@example.com"}
		f.limiter.On("Allow", mock.Anything, mock.Anything).Return(true, nil)
		f.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(stored, nil)
		f.users.On("Update", mock.Anything, stored).Return(nil)
		f.mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

		err := f.uc.ForgotPassword(context.Background(), &entities.ForgotPasswordInput{Email: "ada@example.com"})
		assert.Equal(t, http.StatusInternalServerError, domainerrors.FromError(err).Status)
	})
}

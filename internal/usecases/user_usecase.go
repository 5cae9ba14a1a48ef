package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"qrbook.backend/internal/domain/entities"
	domainerrors "qrbook.backend/internal/domain/errors"
	"qrbook.backend/internal/domain/repositories"
	"qrbook.backend/pkg/crypto"
	"qrbook.backend/pkg/jwt"
	"qrbook.backend/pkg/logger"
	"qrbook.backend/pkg/utils"
	"qrbook.backend/pkg/validation"
)

// DefaultAdminPageSize is used when the admin listing has no limit.
const DefaultAdminPageSize = 5

// Mailer delivers account emails
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// RateLimiter throttles repeated requests for the same key
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// UserUsecase handles accounts, authentication and password recovery
type UserUsecase struct {
	userRepo   repositories.UserRepository
	uow        repositories.UnitOfWork
	jwtService *jwt.JWTService
	mailer     Mailer
	limiter    RateLimiter
	otpGuard   RateLimiter
	now        func() time.Time
}

// NewUserUsecase creates a new user usecase. limiter may be nil.
func NewUserUsecase(
	userRepo repositories.UserRepository,
	uow repositories.UnitOfWork,
	jwtService *jwt.JWTService,
	mailer Mailer,
	limiter RateLimiter,
) *UserUsecase {
	return &UserUsecase{
		userRepo:   userRepo,
		uow:        uow,
		jwtService: jwtService,
		mailer:     mailer,
		limiter:    limiter,
		now:        time.Now,
	}
}

// SetNow replaces the clock.
func (u *UserUsecase) SetNow(now func() time.Time) {
	u.now = now
}

// SetResetAttemptLimiter caps wrong reset codes per issued code. Once the
// limit is exceeded the code is revoked and a new one must be requested.
func (u *UserUsecase) SetResetAttemptLimiter(l RateLimiter) {
	u.otpGuard = l
}

// Register creates a regular account with the next "User<n>" identifier.
func (u *UserUsecase) Register(ctx context.Context, input *entities.RegisterInput) (*entities.User, error) {
	if err := validation.Struct(input); err != nil {
		return nil, domainerrors.Validation(validation.Message(err))
	}
	if err := u.ensureEmailFree(ctx, input.Email, ""); err != nil {
		return nil, err
	}

	passwordHash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := u.now()
	user := &entities.User{
		FullName:     input.FullName,
		Email:        input.Email,
		MobileNo:     input.MobileNo,
		PasswordHash: passwordHash,
		Type:         entities.UserTypeUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		seq, err := u.userRepo.NextSequence(txCtx)
		if err != nil {
			return fmt.Errorf("next user sequence: %w", err)
		}
		user.UserID = fmt.Sprintf("User%d", entities.UserIDBase+seq)
		return u.userRepo.Create(txCtx, user)
	})
	if err != nil {
		return nil, userWriteError(err)
	}

	logger.Info(ctx, "User registered", zap.String("userId", user.UserID))
	return user, nil
}

// CreateAdmin creates an administrator with a random identifier.
func (u *UserUsecase) CreateAdmin(ctx context.Context, input *entities.RegisterInput) (*entities.User, error) {
	if err := validation.Struct(input); err != nil {
		return nil, domainerrors.Validation(validation.Message(err))
	}
	if err := u.ensureEmailFree(ctx, input.Email, ""); err != nil {
		return nil, err
	}

	passwordHash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := u.now()
	admin := &entities.User{
		UserID:       utils.GenerateUUIDv7().String(),
		FullName:     input.FullName,
		Email:        input.Email,
		MobileNo:     input.MobileNo,
		PasswordHash: passwordHash,
		Type:         entities.UserTypeAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.userRepo.Create(ctx, admin); err != nil {
		return nil, userWriteError(err)
	}

	logger.Info(ctx, "Admin created", zap.String("userId", admin.UserID))
	return admin, nil
}

// Login authenticates a user and returns a signed token
func (u *UserUsecase) Login(ctx context.Context, input *entities.LoginInput) (*entities.AuthResponse, error) {
	if err := validation.Struct(input); err != nil {
		return nil, domainerrors.Validation(validation.Message(err))
	}

	user, err := u.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.CheckPassword(input.Password, user.PasswordHash) {
		return nil, domainerrors.ErrInvalidCredentials
	}

	token, err := u.jwtService.GenerateToken(user.UserID, string(user.Type))
	if err != nil {
		return nil, err
	}

	return &entities.AuthResponse{
		Token: token,
		User:  user,
	}, nil
}

// GetUser returns an account by identifier.
func (u *UserUsecase) GetUser(ctx context.Context, userID string) (*entities.User, error) {
	user, err := u.userRepo.GetByUserID(ctx, userID)
	return user, userLookupError(err, "User not found")
}

// ListUsers returns every account.
func (u *UserUsecase) ListUsers(ctx context.Context) ([]*entities.User, error) {
	users, err := u.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*entities.User{}
	}
	return users, nil
}

// UpdateUser changes the provided account details.
func (u *UserUsecase) UpdateUser(ctx context.Context, userID string, input *entities.UpdateUserInput) (*entities.User, error) {
	if err := validation.Struct(input); err != nil {
		return nil, domainerrors.Validation(validation.Message(err))
	}
	user, err := u.userRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, userLookupError(err, "User not found")
	}

	if input.Email != nil && *input.Email != user.Email {
		if err := u.ensureEmailFree(ctx, *input.Email, user.UserID); err != nil {
			return nil, err
		}
		user.Email = *input.Email
	}
	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.MobileNo != nil {
		user.MobileNo = *input.MobileNo
	}
	user.UpdatedAt = u.now()

	if err := u.userRepo.Update(ctx, user); err != nil {
		return nil, userWriteError(err)
	}
	return user, nil
}

// DeleteUser removes an account. Cards owned by it are kept.
func (u *UserUsecase) DeleteUser(ctx context.Context, userID string) error {
	if err := u.userRepo.Delete(ctx, userID); err != nil {
		return userLookupError(err, "User not found")
	}
	logger.Info(ctx, "User deleted", zap.String("userId", userID))
	return nil
}

// ListAdmins returns one page of administrators, newest first.
func (u *UserUsecase) ListAdmins(ctx context.Context, page, limit int) (*entities.AdminPage, error) {
	pagination := utils.GetPaginationParams(page, limit, DefaultAdminPageSize)
	admins, total, err := u.userRepo.ListByType(ctx, entities.UserTypeAdmin, pagination.Limit, pagination.CalculateOffset())
	if err != nil {
		return nil, err
	}
	if admins == nil {
		admins = []*entities.User{}
	}
	return &entities.AdminPage{
		Admins:      admins,
		Total:       total,
		TotalPages:  utils.TotalPages(total, pagination.Limit),
		CurrentPage: pagination.Page,
	}, nil
}

// ListAllAdmins returns every administrator, newest first.
func (u *UserUsecase) ListAllAdmins(ctx context.Context) ([]*entities.User, error) {
	admins, _, err := u.userRepo.ListByType(ctx, entities.UserTypeAdmin, 0, 0)
	if err != nil {
		return nil, err
	}
	if admins == nil {
		admins = []*entities.User{}
	}
	return admins, nil
}

// UpdateAdmin changes an administrator's name or email.
func (u *UserUsecase) UpdateAdmin(ctx context.Context, userID string, input *entities.UpdateAdminInput) (*entities.User, error) {
	if err := validation.Struct(input); err != nil {
		return nil, domainerrors.Validation(validation.Message(err))
	}
	admin, err := u.getAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Email != nil && *input.Email != admin.Email {
		if err := u.ensureEmailFree(ctx, *input.Email, admin.UserID); err != nil {
			return nil, err
		}
		admin.Email = *input.Email
	}
	if input.FullName != nil {
		admin.FullName = *input.FullName
	}
	admin.UpdatedAt = u.now()

	if err := u.userRepo.Update(ctx, admin); err != nil {
		return nil, userWriteError(err)
	}
	return admin, nil
}

// DeleteAdmin removes an administrator account.
func (u *UserUsecase) DeleteAdmin(ctx context.Context, userID string) error {
	if _, err := u.getAdmin(ctx, userID); err != nil {
		return err
	}
	if err := u.userRepo.Delete(ctx, userID); err != nil {
		return userLookupError(err, "Admin not found")
	}
	logger.Info(ctx, "Admin deleted", zap.String("userId", userID))
	return nil
}

// ChangePassword replaces the password after verifying the current one.
func (u *UserUsecase) ChangePassword(ctx context.Context, userID string, input *entities.ChangePasswordInput) error {
	if err := validation.Struct(input); err != nil {
		return domainerrors.Validation(validation.Message(err))
	}
	user, err := u.userRepo.GetByUserID(ctx, userID)
	if err != nil {
		return userLookupError(err, "User not found")
	}
	if !crypto.CheckPassword(input.CurrentPassword, user.PasswordHash) {
		return domainerrors.Validation("Current password is incorrect")
	}

	passwordHash, err := crypto.HashPassword(input.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = u.now()
	return u.userRepo.Update(ctx, user)
}

// ForgotPassword emails a one time reset code to the account owner.
func (u *UserUsecase) ForgotPassword(ctx context.Context, input *entities.ForgotPasswordInput) error {
	if err := validation.Struct(input); err != nil {
		return domainerrors.Validation(validation.Message(err))
	}

	if u.limiter != nil {
		allowed, err := u.limiter.Allow(ctx, strings.ToLower(input.Email))
		if err != nil {
			logger.Warn(ctx, "Reset throttle unavailable", zap.Error(err))
		} else if !allowed {
			return domainerrors.RateLimited("Too many password reset requests, try again later")
		}
	}

	user, err := u.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return userLookupError(err, "User not found")
	}

	otp, err := crypto.GenerateOTP()
	if err != nil {
		return err
	}
	otpHash, err := crypto.HashPassword(otp)
	if err != nil {
		return err
	}

	now := u.now()
	user.ResetPasswordOTP = null.StringFrom(otpHash)
	user.ResetPasswordOTPExpiry = null.TimeFrom(now.Add(entities.ResetOTPLifetime))
	user.UpdatedAt = now
	if err := u.userRepo.Update(ctx, user); err != nil {
		return err
	}

	body := fmt.Sprintf("Your QRbook password reset code is %s. It expires in %d minutes.",
		otp, int(entities.ResetOTPLifetime/time.Minute))
	if err := u.mailer.Send(ctx, user.Email, "QRbook password reset", body); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// ResetPassword redeems a reset code and sets a new password.
func (u *UserUsecase) ResetPassword(ctx context.Context, input *entities.ResetPasswordInput) error {
	if err := validation.Struct(input); err != nil {
		return domainerrors.Validation(validation.Message(err))
	}
	user, err := u.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return userLookupError(err, "User not found")
	}

	if !user.ResetPasswordOTP.Valid || !user.ResetPasswordOTPExpiry.Valid ||
		!u.now().Before(user.ResetPasswordOTPExpiry.Time) {
		return domainerrors.Validation("Invalid or expired OTP")
	}
	if !crypto.CheckPassword(input.OTP, user.ResetPasswordOTP.String) {
		return u.rejectResetCode(ctx, user)
	}

	passwordHash, err := crypto.HashPassword(input.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash
	user.ClearResetOTP()
	user.UpdatedAt = u.now()
	return u.userRepo.Update(ctx, user)
}

// rejectResetCode counts a wrong code against the code currently issued.
func (u *UserUsecase) rejectResetCode(ctx context.Context, user *entities.User) error {
	invalid := domainerrors.Validation("Invalid or expired OTP")
	if u.otpGuard == nil {
		return invalid
	}
	// Each issued code has its own expiry, so a fresh code starts a fresh count.
	key := fmt.Sprintf("%s:%d", strings.ToLower(user.Email), user.ResetPasswordOTPExpiry.Time.Unix())
	allowed, err := u.otpGuard.Allow(ctx, key)
	if err != nil {
		logger.Warn(ctx, "Reset attempt throttle unavailable", zap.Error(err))
		return invalid
	}
	if allowed {
		return invalid
	}

	user.ClearResetOTP()
	user.UpdatedAt = u.now()
	if err := u.userRepo.Update(ctx, user); err != nil {
		return err
	}
	return domainerrors.RateLimited("Too many invalid reset codes, request a new one")
}

func (u *UserUsecase) getAdmin(ctx context.Context, userID string) (*entities.User, error) {
	user, err := u.userRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, userLookupError(err, "Admin not found")
	}
	if !user.IsAdmin() {
		return nil, domainerrors.NotFound("Admin not found")
	}
	return user, nil
}

func (u *UserUsecase) ensureEmailFree(ctx context.Context, email, self string) error {
	existing, err := u.userRepo.GetByEmail(ctx, email)
	if err == nil {
		if existing.UserID != self {
			return domainerrors.Conflict("Email already registered")
		}
		return nil
	}
	if errors.Is(err, domainerrors.ErrNotFound) {
		return nil
	}
	return err
}

func userLookupError(err error, message string) error {
	if err != nil && errors.Is(err, domainerrors.ErrNotFound) {
		return domainerrors.NotFound(message)
	}
	return err
}

func userWriteError(err error) error {
	if errors.Is(err, domainerrors.ErrAlreadyExists) {
		return domainerrors.Conflict("Email already registered")
	}
	return err
}

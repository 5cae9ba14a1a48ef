package entities

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// UserType distinguishes regular accounts from administrators
type UserType string

const (
	UserTypeAdmin UserType = "admin"
	UserTypeUser  UserType = "user"
)

// UserIDBase is added to the registration sequence, so the first user is User101.
const UserIDBase = 100

// ResetOTPLifetime bounds how long a password reset code stays valid.
const ResetOTPLifetime = 10 * time.Minute

// User represents an account that owns cards
type User struct {
	UserID                 string      `json:"userId"`
	FullName               string      `json:"fullName"`
	Email                  string      `json:"email"`
	MobileNo               string      `json:"mobileNo"`
	PasswordHash           string      `json:"-"`
	Type                   UserType    `json:"type"`
	ResetPasswordOTP       null.String `json:"-"`
	ResetPasswordOTPExpiry null.Time   `json:"-"`
	CreatedAt              time.Time   `json:"createdAt"`
	UpdatedAt              time.Time   `json:"updatedAt"`
}

// IsAdmin reports whether the account has administrator rights.
func (u *User) IsAdmin() bool {
	return u.Type == UserTypeAdmin
}

// ClearResetOTP drops any pending password reset code.
func (u *User) ClearResetOTP() {
	u.ResetPasswordOTP = null.String{}
	u.ResetPasswordOTPExpiry = null.Time{}
}

// RegisterInput represents input for creating an account
type RegisterInput struct {
	FullName string `json:"fullName" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	MobileNo string `json:"mobileNo" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginInput represents input for user login
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// UpdateUserInput changes account details; nil fields are left alone.
type UpdateUserInput struct {
	FullName *string `json:"fullName" binding:"omitempty,min=2,max=100"`
	Email    *string `json:"email" binding:"omitempty,email"`
	MobileNo *string `json:"mobileNo" binding:"omitempty,min=1"`
}

// UpdateAdminInput changes administrator details
type UpdateAdminInput struct {
	FullName *string `json:"fullName" binding:"omitempty,min=2,max=100"`
	Email    *string `json:"email" binding:"omitempty,email"`
}

// ChangePasswordInput represents input for changing user password.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

// ForgotPasswordInput requests a reset code by email
type ForgotPasswordInput struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordInput redeems a reset code
type ResetPasswordInput struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// AdminPage is one page of the administrator listing.
type AdminPage struct {
	Admins      []*User `json:"admins"`
	Total       int64   `json:"total"`
	TotalPages  int     `json:"totalPages"`
	CurrentPage int     `json:"currentPage"`
}

package models

import (
	"time"

	"github.com/volatiletech/null/v8"
)

type User struct {
	UserID                 string      `gorm:"type:varchar(64);primaryKey"`
	FullName               string      `gorm:"type:varchar(100);not null"`
	Email                  string      `gorm:"type:varchar(255);uniqueIndex;not null"`
	MobileNo               string      `gorm:"type:varchar(32);not null"`
	PasswordHash           string      `gorm:"type:varchar(255);not null"`
	Type                   string      `gorm:"type:varchar(16);not null;default:'user';index"`
	ResetPasswordOTP       null.String `gorm:"column:reset_password_otp;type:varchar(255)"`
	ResetPasswordOTPExpiry null.Time   `gorm:"column:reset_password_otp_expiry"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (User) TableName() string {
	return "users"
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// SocialLink is persisted as part of the card's social_media JSON column
type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

type Card struct {
	Key                 uuid.UUID    `gorm:"column:card_key;type:uuid;primaryKey"`
	CardID              string       `gorm:"column:card_id;type:varchar(160);uniqueIndex;not null"`
	EncodedPath         string       `gorm:"type:varchar(255);uniqueIndex;not null"`
	UserID              string       `gorm:"type:varchar(64);index;not null"`
	Name                string       `gorm:"type:varchar(255);not null"`
	Pronouns            string       `gorm:"type:varchar(50);not null"`
	JobPosition         string       `gorm:"type:varchar(255);not null"`
	MobileNumber        string       `gorm:"type:varchar(32);not null"`
	Email               string       `gorm:"type:varchar(255);uniqueIndex;not null"`
	ProfileImage        string       `gorm:"type:text"`
	Description         string       `gorm:"type:text"`
	SocialMedia         []SocialLink `gorm:"type:text;serializer:json"`
	BusinessCardLink    string       `gorm:"type:text;not null"`
	TemporaryCardLink   string       `gorm:"type:text;not null"`
	TemporaryCardExpiry time.Time
	PaymentExpiry       time.Time
	PaymentConfirmed    bool      `gorm:"not null;default:false;index:idx_cards_unpaid,priority:1"`
	CreatedAt           time.Time `gorm:"index:idx_cards_unpaid,priority:2"`
	UpdatedAt           time.Time
}

func (Card) TableName() string {
	return "cards"
}

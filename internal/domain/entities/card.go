package entities

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// UploadsPrefix is the public path prefix of stored profile images.
	UploadsPrefix = "/uploads/"

	TemporaryCardLifetime = 48 * time.Hour
	PaymentLifetime       = 96 * time.Hour
)

// ErrSocialMediaFormat is returned when serialized social links cannot be parsed.
var ErrSocialMediaFormat = errors.New("invalid socialMedia format")

// SocialLink is one social profile shown on a card
type SocialLink struct {
	Platform string `json:"platform" bson:"platform" binding:"omitempty,max=50"`
	URL      string `json:"url" bson:"url" binding:"required,socialurl"`
}

// Card represents a digital business card
type Card struct {
	Key                 uuid.UUID    `json:"key"`
	CardID              string       `json:"id"`
	EncodedPath         string       `json:"encodedPath"`
	UserID              string       `json:"userId"`
	Name                string       `json:"name"`
	Pronouns            string       `json:"pronouns"`
	JobPosition         string       `json:"jobPosition"`
	MobileNumber        string       `json:"mobileNumber"`
	Email               string       `json:"email"`
	ProfileImage        string       `json:"profileImage"`
	Description         string       `json:"description"`
	SocialMedia         []SocialLink `json:"socialMedia"`
	BusinessCardLink    string       `json:"businessCardLink"`
	TemporaryCardLink   string       `json:"temporaryCardLink"`
	TemporaryCardExpiry time.Time    `json:"temporaryCardExpiry"`
	PaymentExpiry       time.Time    `json:"paymentExpiry"`
	PaymentConfirmed    bool         `json:"paymentConfirmed"`
	CreatedAt           time.Time    `json:"createdAt"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

// ImageName returns the blob name behind ProfileImage, or "" when the card
// has no stored image.
func (c *Card) ImageName() string {
	return ImageNameFromPath(c.ProfileImage)
}

// ImageNameFromPath strips the uploads prefix from a profile image path.
func ImageNameFromPath(p string) string {
	if !strings.HasPrefix(p, UploadsPrefix) {
		return ""
	}
	return strings.TrimPrefix(p, UploadsPrefix)
}

// IsExpiredUnpaid reports whether the sweep should remove the card at now.
func (c *Card) IsExpiredUnpaid(now time.Time) bool {
	return !c.PaymentConfirmed && c.CreatedAt.Before(now.Add(-TemporaryCardLifetime))
}

// SocialMediaField accepts social links either as a JSON array or as that
// array serialized into a string, the shape multipart forms deliver.
type SocialMediaField struct {
	Links []SocialLink
	Text  string
	Set   bool
}

// SocialMediaText builds a field from serialized form input.
func SocialMediaText(text string) SocialMediaField {
	return SocialMediaField{Text: text, Set: true}
}

func (f *SocialMediaField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = SocialMediaField{}
		return nil
	}
	f.Set = true
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &f.Text)
	}
	return json.Unmarshal(b, &f.Links)
}

// Resolve returns the links, parsing Text when links were sent serialized.
func (f SocialMediaField) Resolve() ([]SocialLink, error) {
	if !f.Set {
		return nil, nil
	}
	if f.Links != nil || strings.TrimSpace(f.Text) == "" {
		return f.Links, nil
	}
	var links []SocialLink
	if err := json.Unmarshal([]byte(f.Text), &links); err != nil {
		return nil, ErrSocialMediaFormat
	}
	return links, nil
}

// CreateCardInput represents input for creating a card
type CreateCardInput struct {
	UserID       string           `json:"userId" binding:"required"`
	Name         string           `json:"name" binding:"required,min=2"`
	Pronouns     string           `json:"pronouns" binding:"required"`
	JobPosition  string           `json:"jobPosition" binding:"required"`
	MobileNumber string           `json:"mobileNumber" binding:"required,intlphone"`
	Email        string           `json:"email" binding:"required,cardemail"`
	Description  string           `json:"description"`
	SocialMedia  SocialMediaField `json:"socialMedia"`
}

// UpdateCardInput carries only the fields the caller wants changed
type UpdateCardInput struct {
	Name             *string          `json:"name" binding:"omitempty,min=2"`
	Pronouns         *string          `json:"pronouns" binding:"omitempty,min=1"`
	JobPosition      *string          `json:"jobPosition" binding:"omitempty,min=1"`
	MobileNumber     *string          `json:"mobileNumber" binding:"omitempty,intlphone"`
	Email            *string          `json:"email" binding:"omitempty,cardemail"`
	Description      *string          `json:"description"`
	SocialMedia      SocialMediaField `json:"socialMedia"`
	PaymentConfirmed *bool            `json:"paymentConfirmed"`
}

// ImageUpload is a profile image received with a create or update request.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CardPage is one page of the admin card listing.
type CardPage struct {
	Cards       []*Card `json:"cards"`
	Total       int64   `json:"total"`
	TotalPages  int     `json:"totalPages"`
	CurrentPage int     `json:"currentPage"`
}

package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"qrbook.backend/internal/domain/entities"
	domainerrors "qrbook.backend/internal/domain/errors"
	"qrbook.backend/internal/infrastructure/models"
)

const cardSequenceSQL = `INSERT INTO sequences (name, value)
SELECT ?, COUNT(*) + 1 FROM cards WHERE user_id = ?
ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
RETURNING value`

// CardSequenceName is the counter row backing an owner's card ids.
func CardSequenceName(userID string) string {
	return "card:" + userID
}

// CardRepository implements card data operations
type CardRepository struct {
	db *gorm.DB
}

// NewCardRepository creates a new card repository
func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

// NextSequence advances the owner's counter in a single statement. The row
// is seeded from the owner's current card count the first time it is used.
func (r *CardRepository) NextSequence(ctx context.Context, userID string) (int64, error) {
	var value int64
	err := GetDB(ctx, r.db).Raw(cardSequenceSQL, CardSequenceName(userID), userID).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (r *CardRepository) Create(ctx context.Context, card *entities.Card) error {
	m := r.toModel(card)
	if err := GetDB(ctx, r.db).Create(m).Error; err != nil {
		return translateError(err)
	}
	card.CreatedAt = m.CreatedAt
	card.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *CardRepository) GetByKey(ctx context.Context, key uuid.UUID) (*entities.Card, error) {
	return r.first(ctx, "card_key = ?", key)
}

func (r *CardRepository) GetByCardID(ctx context.Context, cardID string) (*entities.Card, error) {
	return r.first(ctx, "card_id = ?", cardID)
}

func (r *CardRepository) GetByEncodedPath(ctx context.Context, encodedPath string) (*entities.Card, error) {
	return r.first(ctx, "encoded_path = ?", encodedPath)
}

func (r *CardRepository) GetByEmail(ctx context.Context, email string) (*entities.Card, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *CardRepository) ListByUserID(ctx context.Context, userID string) ([]*entities.Card, error) {
	var ms []models.Card
	if err := GetDB(ctx, r.db).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toEntities(ms), nil
}

func (r *CardRepository) List(ctx context.Context, limit, offset int) ([]*entities.Card, int64, error) {
	var total int64
	if err := GetDB(ctx, r.db).Model(&models.Card{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.Card
	query := GetDB(ctx, r.db).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	return r.toEntities(ms), total, nil
}

// Update writes every mutable column of card.
func (r *CardRepository) Update(ctx context.Context, card *entities.Card) error {
	updates := map[string]interface{}{
		"name":              card.Name,
		"pronouns":          card.Pronouns,
		"job_position":      card.JobPosition,
		"mobile_number":     card.MobileNumber,
		"email":             card.Email,
		"profile_image":     card.ProfileImage,
		"description":       card.Description,
		"social_media":      encodeSocialMedia(card.SocialMedia),
		"payment_confirmed": card.PaymentConfirmed,
		"updated_at":        card.UpdatedAt,
	}

	result := GetDB(ctx, r.db).Model(&models.Card{}).Where("card_key = ?", card.Key).Updates(updates)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *CardRepository) DeleteByKey(ctx context.Context, key uuid.UUID) error {
	result := GetDB(ctx, r.db).Delete(&models.Card{}, "card_key = ?", key)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *CardRepository) DeleteExpiredUnpaid(ctx context.Context, key uuid.UUID, cutoff time.Time) error {
	result := GetDB(ctx, r.db).
		Where("card_key = ? AND payment_confirmed = ? AND created_at < ?", key, false, cutoff).
		Delete(&models.Card{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *CardRepository) ListExpiredUnpaid(ctx context.Context, cutoff time.Time, offset, limit int) ([]*entities.Card, error) {
	var ms []models.Card
	if err := GetDB(ctx, r.db).
		Where("payment_confirmed = ? AND created_at < ?", false, cutoff).
		Order("created_at ASC, card_key ASC").
		Offset(offset).
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toEntities(ms), nil
}

// encodeSocialMedia renders links the way the json serializer stores them;
// map based updates bypass field serializers.
func encodeSocialMedia(links []entities.SocialLink) string {
	ms := make([]models.SocialLink, 0, len(links))
	for _, l := range links {
		ms = append(ms, models.SocialLink{Platform: l.Platform, URL: l.URL})
	}
	b, _ := json.Marshal(ms)
	return string(b)
}

func (r *CardRepository) first(ctx context.Context, query string, args ...interface{}) (*entities.Card, error) {
	var m models.Card
	if err := GetDB(ctx, r.db).Where(query, args...).First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return r.toEntity(&m), nil
}

func (r *CardRepository) toModel(c *entities.Card) *models.Card {
	links := make([]models.SocialLink, 0, len(c.SocialMedia))
	for _, l := range c.SocialMedia {
		links = append(links, models.SocialLink{Platform: l.Platform, URL: l.URL})
	}
	return &models.Card{
		Key:                 c.Key,
		CardID:              c.CardID,
		EncodedPath:         c.EncodedPath,
		UserID:              c.UserID,
		Name:                c.Name,
		Pronouns:            c.Pronouns,
		JobPosition:         c.JobPosition,
		MobileNumber:        c.MobileNumber,
		Email:               c.Email,
		ProfileImage:        c.ProfileImage,
		Description:         c.Description,
		SocialMedia:         links,
		BusinessCardLink:    c.BusinessCardLink,
		TemporaryCardLink:   c.TemporaryCardLink,
		TemporaryCardExpiry: c.TemporaryCardExpiry,
		PaymentExpiry:       c.PaymentExpiry,
		PaymentConfirmed:    c.PaymentConfirmed,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

func (r *CardRepository) toEntity(m *models.Card) *entities.Card {
	links := make([]entities.SocialLink, 0, len(m.SocialMedia))
	for _, l := range m.SocialMedia {
		links = append(links, entities.SocialLink{Platform: l.Platform, URL: l.URL})
	}
	return &entities.Card{
		Key:                 m.Key,
		CardID:              m.CardID,
		EncodedPath:         m.EncodedPath,
		UserID:              m.UserID,
		Name:                m.Name,
		Pronouns:            m.Pronouns,
		JobPosition:         m.JobPosition,
		MobileNumber:        m.MobileNumber,
		Email:               m.Email,
		ProfileImage:        m.ProfileImage,
		Description:         m.Description,
		SocialMedia:         links,
		BusinessCardLink:    m.BusinessCardLink,
		TemporaryCardLink:   m.TemporaryCardLink,
		TemporaryCardExpiry: m.TemporaryCardExpiry,
		PaymentExpiry:       m.PaymentExpiry,
		PaymentConfirmed:    m.PaymentConfirmed,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func (r *CardRepository) toEntities(ms []models.Card) []*entities.Card {
	items := make([]*entities.Card, 0, len(ms))
	for i := range ms {
		items = append(items, r.toEntity(&ms[i]))
	}
	return items
}

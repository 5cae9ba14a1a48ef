package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"qrbook.backend/internal/domain/entities"
	domainerrors "qrbook.backend/internal/domain/errors"
	"qrbook.backend/internal/domain/repositories"
	"qrbook.backend/pkg/idcodec"
	"qrbook.backend/pkg/imageutil"
	"qrbook.backend/pkg/logger"
	"qrbook.backend/pkg/utils"
	"qrbook.backend/pkg/validation"
)

const (
	// DefaultCardPageSize is used when the card listing has no limit.
	DefaultCardPageSize = 10
	// DefaultSweepBatchSize bounds how many cards one sweep query loads.
	DefaultSweepBatchSize = 100
	// DefaultPublicHost is the host used in shareable card links.
	DefaultPublicHost = "QRbook.ca"
)

// ImageNormalizer re-encodes uploaded profile images
type ImageNormalizer interface {
	Normalize(data []byte) ([]byte, error)
}

// CardUsecaseConfig tunes card link generation and housekeeping
type CardUsecaseConfig struct {
	PublicHost     string
	SweepBatchSize int
	MaxImageBytes  int64
}

// SweepResult reports one expiry sweep.
type SweepResult struct {
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
	// Skipped counts listed cards that were paid or removed before deletion.
	Skipped int `json:"skipped"`
}

// CardUsecase handles card lifecycle business logic
type CardUsecase struct {
	cardRepo repositories.CardRepository
	userRepo repositories.UserRepository
	blobs    repositories.BlobStore
	uow      repositories.UnitOfWork
	images   ImageNormalizer
	cfg      CardUsecaseConfig
	now      func() time.Time
}

// NewCardUsecase creates a new card usecase
func NewCardUsecase(
	cardRepo repositories.CardRepository,
	userRepo repositories.UserRepository,
	blobs repositories.BlobStore,
	uow repositories.UnitOfWork,
	images ImageNormalizer,
	cfg CardUsecaseConfig,
) *CardUsecase {
	if cfg.PublicHost == "" {
		cfg.PublicHost = DefaultPublicHost
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = DefaultSweepBatchSize
	}
	return &CardUsecase{
		cardRepo: cardRepo,
		userRepo: userRepo,
		blobs:    blobs,
		uow:      uow,
		images:   images,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SetNow replaces the clock.
func (u *CardUsecase) SetNow(now func() time.Time) {
	u.now = now
}

// Create validates the input, stores the optional image and inserts a card
// with the owner's next sequential identifier.
func (u *CardUsecase) Create(ctx context.Context, input *entities.CreateCardInput, image *entities.ImageUpload) (*entities.Card, error) {
	if err := validation.Struct(input); err != nil {
		return nil, cardValidationError(err)
	}
	links, err := resolveSocialLinks(input.SocialMedia)
	if err != nil {
		return nil, err
	}
	if err := u.ensureEmailAvailable(ctx, input.Email, input.UserID, uuid.Nil); err != nil {
		return nil, err
	}

	now := u.now()
	profileImage := ""
	if image != nil {
		profileImage, err = u.storeImage(ctx, image, now)
		if err != nil {
			return nil, err
		}
	}

	card := &entities.Card{
		Key:                 utils.GenerateUUIDv7(),
		UserID:              input.UserID,
		Name:                input.Name,
		Pronouns:            input.Pronouns,
		JobPosition:         input.JobPosition,
		MobileNumber:        input.MobileNumber,
		Email:               input.Email,
		ProfileImage:        profileImage,
		Description:         input.Description,
		SocialMedia:         links,
		TemporaryCardExpiry: now.Add(entities.TemporaryCardLifetime),
		PaymentExpiry:       now.Add(entities.PaymentLifetime),
		PaymentConfirmed:    false,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		seq, err := u.cardRepo.NextSequence(txCtx, input.UserID)
		if err != nil {
			return fmt.Errorf("next card sequence: %w", err)
		}
		card.CardID = idcodec.NextSequentialID(input.UserID, int(seq-1))
		card.EncodedPath = idcodec.Encode(card.CardID)
		card.BusinessCardLink = fmt.Sprintf("https://%s/%s", u.cfg.PublicHost, card.EncodedPath)
		card.TemporaryCardLink = fmt.Sprintf("https://%s/temporary/%s", u.cfg.PublicHost, card.EncodedPath)
		return u.cardRepo.Create(txCtx, card)
	})
	if err != nil {
		u.discardImage(ctx, entities.ImageNameFromPath(profileImage))
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("A card with this email already exists")
		}
		return nil, err
	}

	logger.Info(ctx, "Card created", zap.String("cardId", card.CardID), zap.String("userId", card.UserID))
	return card, nil
}

// GetByID looks a card up by its sequential identifier.
func (u *CardUsecase) GetByID(ctx context.Context, id string) (*entities.Card, error) {
	card, err := u.cardRepo.GetByCardID(ctx, id)
	return card, cardLookupError(err)
}

// GetByKey looks a card up by its internal key.
func (u *CardUsecase) GetByKey(ctx context.Context, key uuid.UUID) (*entities.Card, error) {
	card, err := u.cardRepo.GetByKey(ctx, key)
	return card, cardLookupError(err)
}

// GetByEncodedPath matches the stored encoded path exactly.
func (u *CardUsecase) GetByEncodedPath(ctx context.Context, encodedPath string) (*entities.Card, error) {
	card, err := u.cardRepo.GetByEncodedPath(ctx, encodedPath)
	return card, cardLookupError(err)
}

// Resolve finds the card a public token refers to. The token is tried as
// an encoded identifier, then as a raw identifier, then as a stored path.
func (u *CardUsecase) Resolve(ctx context.Context, token string) (*entities.Card, error) {
	if id, err := idcodec.Decode(token); err == nil {
		card, err := u.cardRepo.GetByCardID(ctx, strings.TrimPrefix(id, "/"))
		if err == nil {
			return card, nil
		}
		if !errors.Is(err, domainerrors.ErrNotFound) {
			return nil, err
		}
	}

	card, err := u.cardRepo.GetByCardID(ctx, token)
	if err == nil {
		return card, nil
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}

	card, err = u.cardRepo.GetByEncodedPath(ctx, token)
	return card, cardLookupError(err)
}

// FindByRef accepts either the internal key or the sequential identifier.
func (u *CardUsecase) FindByRef(ctx context.Context, ref string) (*entities.Card, error) {
	if key, ok := utils.ParseKey(ref); ok {
		card, err := u.cardRepo.GetByKey(ctx, key)
		if err == nil {
			return card, nil
		}
		if !errors.Is(err, domainerrors.ErrNotFound) {
			return nil, err
		}
	}
	card, err := u.cardRepo.GetByCardID(ctx, ref)
	return card, cardLookupError(err)
}

// List returns one page of cards, newest first.
func (u *CardUsecase) List(ctx context.Context, page, limit int) (*entities.CardPage, error) {
	pagination := utils.GetPaginationParams(page, limit, DefaultCardPageSize)
	cards, total, err := u.cardRepo.List(ctx, pagination.Limit, pagination.CalculateOffset())
	if err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []*entities.Card{}
	}
	return &entities.CardPage{
		Cards:       cards,
		Total:       total,
		TotalPages:  utils.TotalPages(total, pagination.Limit),
		CurrentPage: pagination.Page,
	}, nil
}

// ListByUser returns every card owned by userID.
func (u *CardUsecase) ListByUser(ctx context.Context, userID string) ([]*entities.Card, error) {
	cards, err := u.cardRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, domainerrors.NotFound("No cards found for this user")
	}
	return cards, nil
}

// Update applies the provided fields to the card ref points at.
func (u *CardUsecase) Update(ctx context.Context, ref string, input *entities.UpdateCardInput, image *entities.ImageUpload) (*entities.Card, error) {
	var links []entities.SocialLink
	if input.SocialMedia.Set {
		parsed, err := resolveSocialLinks(input.SocialMedia)
		if err != nil {
			return nil, err
		}
		links = parsed
	}
	if err := validation.Struct(input); err != nil {
		return nil, cardValidationError(err)
	}

	card, err := u.FindByRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	if input.Email != nil && *input.Email != card.Email {
		if err := u.ensureEmailAvailable(ctx, *input.Email, card.UserID, card.Key); err != nil {
			return nil, err
		}
	}

	applyCardUpdate(card, input)
	if input.SocialMedia.Set {
		card.SocialMedia = links
	}

	now := u.now()
	oldImage := card.ImageName()
	newImage := ""
	if image != nil {
		stored, err := u.storeImage(ctx, image, now)
		if err != nil {
			return nil, err
		}
		card.ProfileImage = stored
		newImage = entities.ImageNameFromPath(stored)
	}
	card.UpdatedAt = now

	if err := u.cardRepo.Update(ctx, card); err != nil {
		u.discardImage(ctx, newImage)
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("A card with this email already exists")
		}
		return nil, cardLookupError(err)
	}

	if newImage != "" && oldImage != "" && oldImage != newImage {
		u.discardImage(ctx, oldImage)
	}
	return card, nil
}

// ConfirmPayment marks the card as paid so the sweep keeps it.
func (u *CardUsecase) ConfirmPayment(ctx context.Context, ref string) (*entities.Card, error) {
	confirmed := true
	return u.Update(ctx, ref, &entities.UpdateCardInput{PaymentConfirmed: &confirmed}, nil)
}

// Delete removes the card with the given internal key and its image.
func (u *CardUsecase) Delete(ctx context.Context, ref string) (*entities.Card, error) {
	key, ok := utils.ParseKey(ref)
	if !ok {
		return nil, domainerrors.NotFound("Card not found")
	}
	card, err := u.cardRepo.GetByKey(ctx, key)
	if err != nil {
		return nil, cardLookupError(err)
	}
	if err := u.cardRepo.DeleteByKey(ctx, key); err != nil {
		return nil, cardLookupError(err)
	}
	u.discardImage(ctx, card.ImageName())

	logger.Info(ctx, "Card deleted", zap.String("cardId", card.CardID))
	return card, nil
}

// SweepExpiredUnpaid deletes unpaid cards older than the temporary card
// lifetime. Cards that fail to delete are logged and skipped.
func (u *CardUsecase) SweepExpiredUnpaid(ctx context.Context) (*SweepResult, error) {
	now := u.now()
	cutoff := now.Add(-entities.TemporaryCardLifetime)
	result := &SweepResult{}
	// Cards that stay in the store after a pass are skipped by offset.
	offset := 0

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		batch, err := u.cardRepo.ListExpiredUnpaid(ctx, cutoff, offset, u.cfg.SweepBatchSize)
		if err != nil {
			return result, fmt.Errorf("list expired cards: %w", err)
		}

		for _, card := range batch {
			if !card.IsExpiredUnpaid(now) {
				result.Skipped++
				offset++
				continue
			}
			// The delete re-checks the predicate so a payment confirmed after
			// listing keeps the card and its image.
			err := u.cardRepo.DeleteExpiredUnpaid(ctx, card.Key, cutoff)
			switch {
			case err == nil:
				result.Deleted++
				u.discardImage(ctx, card.ImageName())
			case errors.Is(err, domainerrors.ErrNotFound):
				result.Skipped++
			default:
				result.Failed++
				offset++
				logger.Error(ctx, "Failed to delete expired card",
					zap.String("cardId", card.CardID),
					zap.Error(err),
				)
			}
		}

		if len(batch) < u.cfg.SweepBatchSize {
			break
		}
	}

	logger.Info(ctx, "Expired unpaid cards swept",
		zap.Int("deleted", result.Deleted),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// ServeImage returns the bytes of a stored profile image.
func (u *CardUsecase) ServeImage(ctx context.Context, filename string) ([]byte, error) {
	if filename == "" || filename == "." || filename == ".." || strings.ContainsAny(filename, `/\`) {
		return nil, domainerrors.Validation("Invalid image name")
	}
	data, err := u.blobs.Serve(ctx, filename)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("Image not found")
		}
		return nil, err
	}
	return data, nil
}

func (u *CardUsecase) ensureEmailAvailable(ctx context.Context, email, ownerID string, self uuid.UUID) error {
	existing, err := u.cardRepo.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.Key != self:
		return domainerrors.Conflict("A card with this email already exists")
	case err != nil && !errors.Is(err, domainerrors.ErrNotFound):
		return err
	}

	user, err := u.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil && user.UserID != ownerID:
		return domainerrors.Conflict("Email is already used by another account")
	case err != nil && !errors.Is(err, domainerrors.ErrNotFound):
		return err
	}
	return nil
}

func (u *CardUsecase) storeImage(ctx context.Context, image *entities.ImageUpload, now time.Time) (string, error) {
	if len(image.Data) == 0 {
		return "", domainerrors.Validation("Profile image is empty")
	}
	if u.cfg.MaxImageBytes > 0 && int64(len(image.Data)) > u.cfg.MaxImageBytes {
		return "", domainerrors.Validation(fmt.Sprintf("Profile image exceeds %d bytes", u.cfg.MaxImageBytes))
	}

	data := image.Data
	if u.images != nil {
		normalized, err := u.images.Normalize(image.Data)
		if err != nil {
			if errors.Is(err, domainerrors.ErrValidation) {
				return "", domainerrors.Validation("Only images are allowed")
			}
			return "", err
		}
		data = normalized
	}

	name := fmt.Sprintf("%d-%s", now.UnixMilli(), imageutil.SanitizeFilename(image.Filename))
	ref, err := u.blobs.Store(ctx, name, data)
	if err != nil {
		return "", fmt.Errorf("store profile image: %w", err)
	}
	return ref, nil
}

func (u *CardUsecase) discardImage(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := u.blobs.Delete(ctx, name); err != nil {
		logger.Warn(ctx, "Failed to delete profile image", zap.String("image", name), zap.Error(err))
	}
}

func applyCardUpdate(card *entities.Card, input *entities.UpdateCardInput) {
	if input.Name != nil {
		card.Name = *input.Name
	}
	if input.Pronouns != nil {
		card.Pronouns = *input.Pronouns
	}
	if input.JobPosition != nil {
		card.JobPosition = *input.JobPosition
	}
	if input.MobileNumber != nil {
		card.MobileNumber = *input.MobileNumber
	}
	if input.Email != nil {
		card.Email = *input.Email
	}
	if input.Description != nil {
		card.Description = *input.Description
	}
	if input.PaymentConfirmed != nil {
		card.PaymentConfirmed = *input.PaymentConfirmed
	}
}

func resolveSocialLinks(field entities.SocialMediaField) ([]entities.SocialLink, error) {
	links, err := field.Resolve()
	if err != nil {
		return nil, domainerrors.Validation("Invalid socialMedia format")
	}
	for i := range links {
		if err := validation.Struct(links[i]); err != nil {
			return nil, domainerrors.Validation(fmt.Sprintf("socialMedia[%d]: %s", i, validation.Message(err)))
		}
	}
	if links == nil {
		links = []entities.SocialLink{}
	}
	return links, nil
}

func cardValidationError(err error) error {
	msg := validation.Message(err)
	if strings.Contains(msg, "mobileNumber") {
		return domainerrors.Validation("Invalid mobile number format; " + msg)
	}
	return domainerrors.Validation(msg)
}

func cardLookupError(err error) error {
	if err != nil && errors.Is(err, domainerrors.ErrNotFound) {
		return domainerrors.NotFound("Card not found")
	}
	return err
}

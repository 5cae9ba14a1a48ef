package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"qrbook.backend/internal/domain/entities"
	domainerrors "qrbook.backend/internal/domain/errors"
)

type cardDocument struct {
	Key                 string                `bson:"_id"`
	CardID              string                `bson:"id"`
	EncodedPath         string                `bson:"encodedPath"`
	UserID              string                `bson:"userId"`
	Name                string                `bson:"name"`
	Pronouns            string                `bson:"pronouns"`
	JobPosition         string                `bson:"jobPosition"`
	MobileNumber        string                `bson:"mobileNumber"`
	Email               string                `bson:"email"`
	ProfileImage        string                `bson:"profileImage"`
	Description         string                `bson:"description"`
	SocialMedia         []entities.SocialLink `bson:"socialMedia"`
	BusinessCardLink    string                `bson:"businessCardLink"`
	TemporaryCardLink   string                `bson:"temporaryCardLink"`
	TemporaryCardExpiry time.Time             `bson:"temporaryCardExpiry"`
	PaymentExpiry       time.Time             `bson:"paymentExpiry"`
	PaymentConfirmed    bool                  `bson:"paymentConfirmed"`
	CreatedAt           time.Time             `bson:"createdAt"`
	UpdatedAt           time.Time             `bson:"updatedAt"`
}

// CardRepository implements card data operations on MongoDB
type CardRepository struct {
	cards    *mongo.Collection
	counters *mongo.Collection
}

func NewCardRepository(db *mongo.Database) *CardRepository {
	return &CardRepository{
		cards:    db.Collection(cardsCollection),
		counters: db.Collection(countersCollection),
	}
}

func (r *CardRepository) NextSequence(ctx context.Context, userID string) (int64, error) {
	return nextSequence(ctx, r.counters, "card:"+userID, func(ctx context.Context) (int64, error) {
		return r.cards.CountDocuments(ctx, bson.M{"userId": userID})
	})
}

func (r *CardRepository) Create(ctx context.Context, card *entities.Card) error {
	if card.UpdatedAt.IsZero() {
		card.UpdatedAt = card.CreatedAt
	}
	_, err := r.cards.InsertOne(ctx, toCardDocument(card))
	return translateError(err)
}

func (r *CardRepository) GetByKey(ctx context.Context, key uuid.UUID) (*entities.Card, error) {
	return r.findOne(ctx, bson.M{"_id": key.String()})
}

func (r *CardRepository) GetByCardID(ctx context.Context, cardID string) (*entities.Card, error) {
	return r.findOne(ctx, bson.M{"id": cardID})
}

func (r *CardRepository) GetByEncodedPath(ctx context.Context, encodedPath string) (*entities.Card, error) {
	return r.findOne(ctx, bson.M{"encodedPath": encodedPath})
}

func (r *CardRepository) GetByEmail(ctx context.Context, email string) (*entities.Card, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *CardRepository) ListByUserID(ctx context.Context, userID string) ([]*entities.Card, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return r.find(ctx, bson.M{"userId": userID}, opts)
}

func (r *CardRepository) List(ctx context.Context, limit, offset int) ([]*entities.Card, int64, error) {
	total, err := r.cards.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit)).SetSkip(int64(offset))
	}
	items, err := r.find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *CardRepository) Update(ctx context.Context, card *entities.Card) error {
	set := bson.M{
		"name":             card.Name,
		"pronouns":         card.Pronouns,
		"jobPosition":      card.JobPosition,
		"mobileNumber":     card.MobileNumber,
		"email":            card.Email,
		"profileImage":     card.ProfileImage,
		"description":      card.Description,
		"socialMedia":      socialMediaOrEmpty(card.SocialMedia),
		"paymentConfirmed": card.PaymentConfirmed,
		"updatedAt":        card.UpdatedAt,
	}
	res, err := r.cards.UpdateOne(ctx, bson.M{"_id": card.Key.String()}, bson.M{"$set": set})
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *CardRepository) DeleteByKey(ctx context.Context, key uuid.UUID) error {
	res, err := r.cards.DeleteOne(ctx, bson.M{"_id": key.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *CardRepository) DeleteExpiredUnpaid(ctx context.Context, key uuid.UUID, cutoff time.Time) error {
	res, err := r.cards.DeleteOne(ctx, bson.M{
		"_id":              key.String(),
		"paymentConfirmed": false,
		"createdAt":        bson.M{"$lt": cutoff},
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *CardRepository) ListExpiredUnpaid(ctx context.Context, cutoff time.Time, offset, limit int) ([]*entities.Card, error) {
	filter := bson.M{
		"paymentConfirmed": false,
		"createdAt":        bson.M{"$lt": cutoff},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *CardRepository) findOne(ctx context.Context, filter bson.M) (*entities.Card, error) {
	var doc cardDocument
	if err := r.cards.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	return doc.toEntity(), nil
}

func (r *CardRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*entities.Card, error) {
	cur, err := r.cards.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []cardDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]*entities.Card, 0, len(docs))
	for i := range docs {
		items = append(items, docs[i].toEntity())
	}
	return items, nil
}

func socialMediaOrEmpty(links []entities.SocialLink) []entities.SocialLink {
	if links == nil {
		return []entities.SocialLink{}
	}
	return links
}

func toCardDocument(c *entities.Card) cardDocument {
	return cardDocument{
		Key:                 c.Key.String(),
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
		SocialMedia:         socialMediaOrEmpty(c.SocialMedia),
		BusinessCardLink:    c.BusinessCardLink,
		TemporaryCardLink:   c.TemporaryCardLink,
		TemporaryCardExpiry: c.TemporaryCardExpiry,
		PaymentExpiry:       c.PaymentExpiry,
		PaymentConfirmed:    c.PaymentConfirmed,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

func (d *cardDocument) toEntity() *entities.Card {
	key, _ := uuid.Parse(d.Key)
	return &entities.Card{
		Key:                 key,
		CardID:              d.CardID,
		EncodedPath:         d.EncodedPath,
		UserID:              d.UserID,
		Name:                d.Name,
		Pronouns:            d.Pronouns,
		JobPosition:         d.JobPosition,
		MobileNumber:        d.MobileNumber,
		Email:               d.Email,
		ProfileImage:        d.ProfileImage,
		Description:         d.Description,
		SocialMedia:         socialMediaOrEmpty(d.SocialMedia),
		BusinessCardLink:    d.BusinessCardLink,
		TemporaryCardLink:   d.TemporaryCardLink,
		TemporaryCardExpiry: d.TemporaryCardExpiry,
		PaymentExpiry:       d.PaymentExpiry,
		PaymentConfirmed:    d.PaymentConfirmed,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"qrbook.backend/internal/domain/entities"
	domainerrors "qrbook.backend/internal/domain/errors"
)

const userSequenceName = "users"

type userDocument struct {
	UserID                 string     `bson:"_id"`
	FullName               string     `bson:"fullName"`
	Email                  string     `bson:"email"`
	MobileNo               string     `bson:"mobileNo"`
	PasswordHash           string     `bson:"password"`
	Type                   string     `bson:"type"`
	ResetPasswordOTP       *string    `bson:"resetPasswordOTP,omitempty"`
	ResetPasswordOTPExpiry *time.Time `bson:"resetPasswordOTPExpiry,omitempty"`
	CreatedAt              time.Time  `bson:"createdAt"`
	UpdatedAt              time.Time  `bson:"updatedAt"`
}

// UserRepository implements user data operations on MongoDB
type UserRepository struct {
	users    *mongo.Collection
	counters *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		users:    db.Collection(usersCollection),
		counters: db.Collection(countersCollection),
	}
}

func (r *UserRepository) NextSequence(ctx context.Context) (int64, error) {
	return nextSequence(ctx, r.counters, userSequenceName, func(ctx context.Context) (int64, error) {
		return r.users.CountDocuments(ctx, bson.M{})
	})
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	_, err := r.users.InsertOne(ctx, toUserDocument(user))
	return translateError(err)
}

func (r *UserRepository) GetByUserID(ctx context.Context, userID string) (*entities.User, error) {
	return r.findOne(ctx, bson.M{"_id": userID})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) List(ctx context.Context) ([]*entities.User, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *UserRepository) ListByType(ctx context.Context, userType entities.UserType, limit, offset int) ([]*entities.User, int64, error) {
	filter := bson.M{"type": string(userType)}
	total, err := r.users.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit)).SetSkip(int64(offset))
	}
	items, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *UserRepository) Update(ctx context.Context, user *entities.User) error {
	update := bson.M{
		"$set": bson.M{
			"fullName":  user.FullName,
			"email":     user.Email,
			"mobileNo":  user.MobileNo,
			"password":  user.PasswordHash,
			"updatedAt": user.UpdatedAt,
		},
	}
	if user.ResetPasswordOTP.Valid {
		set := update["$set"].(bson.M)
		set["resetPasswordOTP"] = user.ResetPasswordOTP.String
		set["resetPasswordOTPExpiry"] = user.ResetPasswordOTPExpiry.Time
	} else {
		update["$unset"] = bson.M{"resetPasswordOTP": "", "resetPasswordOTPExpiry": ""}
	}

	res, err := r.users.UpdateOne(ctx, bson.M{"_id": user.UserID}, update)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	res, err := r.users.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*entities.User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	return doc.toEntity(), nil
}

func (r *UserRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*entities.User, error) {
	cur, err := r.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]*entities.User, 0, len(docs))
	for i := range docs {
		items = append(items, docs[i].toEntity())
	}
	return items, nil
}

func toUserDocument(u *entities.User) userDocument {
	return userDocument{
		UserID:                 u.UserID,
		FullName:               u.FullName,
		Email:                  u.Email,
		MobileNo:               u.MobileNo,
		PasswordHash:           u.PasswordHash,
		Type:                   string(u.Type),
		ResetPasswordOTP:       u.ResetPasswordOTP.Ptr(),
		ResetPasswordOTPExpiry: u.ResetPasswordOTPExpiry.Ptr(),
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
}

func (d *userDocument) toEntity() *entities.User {
	return &entities.User{
		UserID:                 d.UserID,
		FullName:               d.FullName,
		Email:                  d.Email,
		MobileNo:               d.MobileNo,
		PasswordHash:           d.PasswordHash,
		Type:                   entities.UserType(d.Type),
		ResetPasswordOTP:       null.StringFromPtr(d.ResetPasswordOTP),
		ResetPasswordOTPExpiry: null.TimeFromPtr(d.ResetPasswordOTPExpiry),
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
}

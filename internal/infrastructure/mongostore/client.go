// Package mongostore keeps cards and users in MongoDB. It is selected with
// DB_DRIVER=mongo and mirrors the gorm repositories method for method.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	domainerrors "qrbook.backend/internal/domain/errors"
)

const (
	cardsCollection    = "cards"
	usersCollection    = "users"
	countersCollection = "counters"
)

var connectTimeout = 10 * time.Second

// Connect dials uri and verifies the deployment answers a ping.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(database), nil
}

// EnsureIndexes creates the unique and lookup indexes both stores rely on.
// Expiry is enforced by the sweep, so no TTL index is created.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	cardIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "encodedPath", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "paymentConfirmed", Value: 1}, {Key: "createdAt", Value: 1}}},
	}
	if _, err := db.Collection(cardsCollection).Indexes().CreateMany(ctx, cardIndexes); err != nil {
		return fmt.Errorf("create card indexes: %w", err)
	}

	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return domainerrors.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return domainerrors.ErrAlreadyExists
	}
	return err
}

// UnitOfWork runs fn directly. Standalone deployments have no multi
// document transactions; the counter and the insert each stay atomic.
type UnitOfWork struct{}

func NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{}
}

func (UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

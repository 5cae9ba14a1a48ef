package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type counterDocument struct {
	Name  string `bson:"_id"`
	Value int64  `bson:"value"`
}

// nextSequence increments the named counter. A missing counter is seeded
// with seed() first so ids continue after documents created before the
// counter existed. Concurrent seeders race on the _id and the loser retries
// the increment.
func nextSequence(ctx context.Context, counters *mongo.Collection, name string, seed func(ctx context.Context) (int64, error)) (int64, error) {
	value, err := incrementCounter(ctx, counters, name)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, err
	}

	start, err := seed(ctx)
	if err != nil {
		return 0, err
	}
	_, err = counters.InsertOne(ctx, counterDocument{Name: name, Value: start})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return 0, err
	}
	return incrementCounter(ctx, counters, name)
}

func incrementCounter(ctx context.Context, counters *mongo.Collection, name string) (int64, error) {
	var doc counterDocument
	err := counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Value, nil
}

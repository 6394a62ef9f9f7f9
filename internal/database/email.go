package database

import (
	"context"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"promobar/internal/model"
	"time"
)

// EmailSubmissionInsert inserts one captured email. A duplicate
// (shop, bar_id, email) triggers the unique index; callers branch on
// mongo.IsDuplicateKeyError for the conflict outcome.
func (db Database) EmailSubmissionInsert(ctx context.Context, sub model.EmailSubmission) (id string, err error) {
	sub.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	r, err := db.Collection(CollectionEmailSubmissions).InsertOne(ctx, sub)
	if err != nil {
		return "", errors.Wrapf(err, "error inserting EmailSubmission for shop: %s, BarID: %s", sub.Shop, sub.BarID.Hex())
	}
	return r.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (db Database) EmailSubmissionsFind(ctx context.Context, shop, barID string) ([]model.EmailSubmission, error) {
	filter := bson.M{"shop": shop}
	if barID != "" {
		objID, err := primitive.ObjectIDFromHex(barID)
		if err != nil {
			return nil, errors.Wrapf(err, "error creating ObjectID from hex: %s", barID)
		}
		filter["bar_id"] = objID
	}
	var subs []model.EmailSubmission
	cur, err := db.Collection(CollectionEmailSubmissions).Find(
		ctx,
		filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "error getting cursor to find EmailSubmissions for shop: %s", shop)
	}
	if err = cur.All(ctx, &subs); err != nil {
		return nil, errors.Wrapf(err, "error getting EmailSubmissions from cursor for shop: %s", shop)
	}
	return subs, nil
}

package database

import (
	"context"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"promobar/internal/model"
	"time"
)

func (db Database) ViewUsageFind(ctx context.Context, shop, month string) (model.ViewUsage, bool, error) {
	var u model.ViewUsage
	err := db.Collection(CollectionViewUsages).FindOne(ctx, bson.M{"shop": shop, "month": month}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return u, false, nil
		}
		return u, false, errors.Wrapf(err, "error finding ViewUsage for shop: %s, month: %s", shop, month)
	}
	return u, true, nil
}

// ViewUsageIncrementBelowLimit is the quota gate: one conditional upsert that
// increments the month's counter only while it is below limit. When the row
// already sits at the limit the filter matches nothing and the upsert runs
// into the unique (shop, month) index instead; that duplicate-key collision
// is the "limit reached" outcome, so the check and the increment are a single
// atomic operation. A negative limit means unlimited and drops the condition.
func (db Database) ViewUsageIncrementBelowLimit(ctx context.Context, shop, month string, limit int64) (int64, bool, error) {
	filter := bson.M{"shop": shop, "month": month}
	if limit >= 0 {
		filter["view_count"] = bson.M{"$lt": limit}
	}
	now := primitive.NewDateTimeFromTime(time.Now())

	var u model.ViewUsage
	err := db.Collection(CollectionViewUsages).FindOneAndUpdate(
		ctx,
		filter,
		bson.M{
			"$inc":         bson.M{"view_count": 1},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"shop": shop, "month": month, "created_at": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			existing, _, ferr := db.ViewUsageFind(ctx, shop, month)
			if ferr != nil {
				return 0, false, ferr
			}
			return existing.ViewCount, false, nil
		}
		return 0, false, errors.Wrapf(err, "error incrementing ViewUsage for shop: %s, month: %s", shop, month)
	}
	return u.ViewCount, true, nil
}

// ViewUsageEnsure creates a zero-count row for the month if none exists.
// Existing rows, including past months, are left untouched.
func (db Database) ViewUsageEnsure(ctx context.Context, shop, month string) error {
	now := primitive.NewDateTimeFromTime(time.Now())
	_, err := db.Collection(CollectionViewUsages).UpdateOne(
		ctx,
		bson.M{"shop": shop, "month": month},
		bson.M{"$setOnInsert": bson.M{
			"shop":       shop,
			"month":      month,
			"view_count": int64(0),
			"created_at": now,
			"updated_at": now,
		}},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		// Lost a race against the quota gate upserting the same row.
		return nil
	}
	return errors.Wrapf(err, "error ensuring ViewUsage for shop: %s, month: %s", shop, month)
}

func (db Database) ViewUsageDeleteMonthsBefore(ctx context.Context, month string) (int64, error) {
	res, err := db.Collection(CollectionViewUsages).DeleteMany(ctx, bson.M{"month": bson.M{"$lt": month}})
	if err != nil {
		return 0, errors.Wrapf(err, "error deleting ViewUsage rows before month: %s", month)
	}
	return res.DeletedCount, nil
}

func (db Database) ViewUsageHistory(ctx context.Context, shop string) ([]model.ViewUsage, error) {
	var us []model.ViewUsage
	cur, err := db.Collection(CollectionViewUsages).Find(
		ctx,
		bson.M{"shop": shop},
		options.Find().SetSort(bson.D{{Key: "month", Value: -1}}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "error getting cursor to find ViewUsage history for shop: %s", shop)
	}
	if err = cur.All(ctx, &us); err != nil {
		return nil, errors.Wrapf(err, "error getting ViewUsage history from cursor for shop: %s", shop)
	}
	return us, nil
}

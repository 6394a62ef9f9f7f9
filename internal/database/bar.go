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

func (db Database) BarInsert(ctx context.Context, b model.Bar) (id string, err error) {
	b.ViewCount = 0
	b.ClickCount = 0
	b.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	b.UpdatedAt = primitive.NewDateTimeFromTime(time.Now())

	r, err := db.Collection(CollectionBars).InsertOne(ctx, b)
	if err != nil {
		return "", errors.Wrapf(err, "error inserting Bar for shop: %s", b.Shop)
	}
	return r.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (db Database) BarFindOne(ctx context.Context, shop, barID string) (model.Bar, error) {
	var b model.Bar
	objID, err := primitive.ObjectIDFromHex(barID)
	if err != nil {
		return b, errors.Wrapf(err, "error creating ObjectID from hex: %s", barID)
	}
	err = db.Collection(CollectionBars).FindOne(ctx, bson.M{"_id": objID, "shop": shop}).Decode(&b)
	return b, errors.Wrapf(err, "error finding Bar with ID: %s for shop: %s", barID, shop)
}

func (db Database) BarsFindAll(ctx context.Context, shop string) ([]model.Bar, error) {
	var bs []model.Bar
	cur, err := db.Collection(CollectionBars).Find(
		ctx,
		bson.M{"shop": shop},
		options.Find().SetSort(bson.D{{Key: "priority", Value: 1}, {Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "error getting cursor to find Bars for shop: %s", shop)
	}
	if err = cur.All(ctx, &bs); err != nil {
		return nil, errors.Wrapf(err, "error getting Bars from cursor for shop: %s", shop)
	}
	return bs, nil
}

func (db Database) BarsFindActive(ctx context.Context, shop string) ([]model.Bar, error) {
	var bs []model.Bar
	cur, err := db.Collection(CollectionBars).Find(ctx, bson.M{"shop": shop, "is_active": true})
	if err != nil {
		return nil, errors.Wrapf(err, "error getting cursor to find active Bars for shop: %s", shop)
	}
	if err = cur.All(ctx, &bs); err != nil {
		return nil, errors.Wrapf(err, "error getting active Bars from cursor for shop: %s", shop)
	}
	return bs, nil
}

func (db Database) BarUpdate(ctx context.Context, b model.Bar) error {
	b.UpdatedAt = primitive.NewDateTimeFromTime(time.Now())
	res, err := db.Collection(CollectionBars).ReplaceOne(
		ctx,
		bson.M{"_id": b.ID, "shop": b.Shop},
		b,
	)
	if err != nil {
		return errors.Wrapf(err, "error updating Bar with ID: %s for shop: %s", b.ID.Hex(), b.Shop)
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(mongo.ErrNoDocuments, "no Bar with ID: %s for shop: %s", b.ID.Hex(), b.Shop)
	}
	return nil
}

func (db Database) BarDelete(ctx context.Context, shop, barID string) error {
	objID, err := primitive.ObjectIDFromHex(barID)
	if err != nil {
		return errors.Wrapf(err, "error creating ObjectID from hex: %s", barID)
	}
	res, err := db.Collection(CollectionBars).DeleteOne(ctx, bson.M{"_id": objID, "shop": shop})
	if err != nil {
		return errors.Wrapf(err, "error deleting Bar with ID: %s for shop: %s", barID, shop)
	}
	if res.DeletedCount == 0 {
		return errors.Wrapf(mongo.ErrNoDocuments, "no Bar with ID: %s for shop: %s", barID, shop)
	}
	return nil
}

// BarActivateExclusive flips the target bar active and every sibling inactive
// in one transaction, so two concurrent activations cannot leave a shop with
// two active bars. This is the admin-side single-active-bar convention;
// delivery-time selection remains priority-ordered.
func (db Database) BarActivateExclusive(ctx context.Context, shop, barID string) error {
	objID, err := primitive.ObjectIDFromHex(barID)
	if err != nil {
		return errors.Wrapf(err, "error creating ObjectID from hex: %s", barID)
	}
	now := primitive.NewDateTimeFromTime(time.Now())

	return db.Client().UseSession(ctx, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return errors.Wrap(err, "error starting Bar activation transaction")
		}
		if _, err := db.Collection(CollectionBars).UpdateMany(
			sc,
			bson.M{"shop": shop, "_id": bson.M{"$ne": objID}, "is_active": true},
			bson.M{"$set": bson.M{"is_active": false, "updated_at": now}},
		); err != nil {
			_ = sc.AbortTransaction(sc)
			return errors.Wrapf(err, "error deactivating sibling Bars for shop: %s", shop)
		}
		res, err := db.Collection(CollectionBars).UpdateOne(
			sc,
			bson.M{"shop": shop, "_id": objID},
			bson.M{"$set": bson.M{"is_active": true, "updated_at": now}},
		)
		if err != nil {
			_ = sc.AbortTransaction(sc)
			return errors.Wrapf(err, "error activating Bar with ID: %s for shop: %s", barID, shop)
		}
		if res.MatchedCount == 0 {
			_ = sc.AbortTransaction(sc)
			return errors.Wrapf(mongo.ErrNoDocuments, "no Bar with ID: %s for shop: %s", barID, shop)
		}
		return errors.Wrap(sc.CommitTransaction(sc), "error committing Bar activation transaction")
	})
}

func (db Database) BarSetActiveState(ctx context.Context, barID primitive.ObjectID, active bool) error {
	_, err := db.Collection(CollectionBars).UpdateOne(
		ctx,
		bson.M{"_id": barID},
		bson.M{"$set": bson.M{
			"is_active":  active,
			"updated_at": primitive.NewDateTimeFromTime(time.Now()),
		}},
	)
	return errors.Wrapf(err, "error setting active state to %t on Bar with ID: %s", active, barID.Hex())
}

func (db Database) BarViewIncrement(ctx context.Context, shop, barID string) error {
	return db.barCounterIncrement(ctx, shop, barID, "view_count")
}

func (db Database) BarClickIncrement(ctx context.Context, shop, barID string) error {
	return db.barCounterIncrement(ctx, shop, barID, "click_count")
}

func (db Database) barCounterIncrement(ctx context.Context, shop, barID, field string) error {
	objID, err := primitive.ObjectIDFromHex(barID)
	if err != nil {
		return errors.Wrapf(err, "error creating ObjectID from hex: %s", barID)
	}
	res, err := db.Collection(CollectionBars).UpdateOne(
		ctx,
		bson.M{"_id": objID, "shop": shop},
		bson.M{"$inc": bson.M{field: 1}},
	)
	if err != nil {
		return errors.Wrapf(err, "error incrementing %s on Bar with ID: %s for shop: %s", field, barID, shop)
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(mongo.ErrNoDocuments, "no Bar with ID: %s for shop: %s", barID, shop)
	}
	return nil
}

package database

import (
	"context"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"promobar/internal/model"
	"promobar/internal/plan"
	"time"
)

// MerchantFindOrCreate returns the shop's merchant record, creating it with
// free plan defaults on first contact. The upsert keeps concurrent first
// requests from racing into two records (the unique shop index backs it up).
func (db Database) MerchantFindOrCreate(ctx context.Context, shop string) (model.Merchant, error) {
	var m model.Merchant
	now := primitive.NewDateTimeFromTime(time.Now())
	err := db.Collection(CollectionMerchants).FindOneAndUpdate(
		ctx,
		bson.M{"shop": shop},
		bson.M{
			"$setOnInsert": bson.M{
				"shop":              shop,
				"plan_name":         plan.FreePlanName,
				"plan_price":        0.0,
				"billing_activated": false,
				"created_at":        now,
				"updated_at":        now,
			},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&m)
	return m, errors.Wrapf(err, "error finding or creating Merchant for shop: %s", shop)
}

func (db Database) MerchantShops(ctx context.Context) ([]string, error) {
	vals, err := db.Collection(CollectionMerchants).Distinct(ctx, "shop", bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "error getting distinct Merchant shops")
	}
	shops := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			shops = append(shops, s)
		}
	}
	return shops, nil
}

// MerchantSetCharge records a freshly created, still unconfirmed recurring
// charge against the shop.
func (db Database) MerchantSetCharge(ctx context.Context, shop, planName string, price float64, chargeID, status string) error {
	res, err := db.Collection(CollectionMerchants).UpdateOne(
		ctx,
		bson.M{"shop": shop},
		bson.M{"$set": bson.M{
			"plan_name":     planName,
			"plan_price":    price,
			"charge_id":     chargeID,
			"charge_status": status,
			"updated_at":    primitive.NewDateTimeFromTime(time.Now()),
		}},
	)
	if err != nil {
		return errors.Wrapf(err, "error setting charge on Merchant for shop: %s", shop)
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(ErrNoDocumentsModified, "no Merchant for shop: %s", shop)
	}
	return nil
}

// MerchantActivatePlan marks the pending charge as confirmed by the billing
// service.
func (db Database) MerchantActivatePlan(ctx context.Context, shop, chargeID string, periodEnd *time.Time) error {
	set := bson.M{
		"charge_id":         chargeID,
		"charge_status":     "active",
		"billing_activated": true,
		"updated_at":        primitive.NewDateTimeFromTime(time.Now()),
	}
	if periodEnd != nil {
		set["current_period_end"] = *periodEnd
	}
	res, err := db.Collection(CollectionMerchants).UpdateOne(ctx, bson.M{"shop": shop}, bson.M{"$set": set})
	if err != nil {
		return errors.Wrapf(err, "error activating plan on Merchant for shop: %s", shop)
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(ErrNoDocumentsModified, "no Merchant for shop: %s", shop)
	}
	return nil
}

// MerchantDowngradeFree drops the shop back to the free plan, used on
// cancellation and on declined charges.
func (db Database) MerchantDowngradeFree(ctx context.Context, shop, chargeStatus string) error {
	res, err := db.Collection(CollectionMerchants).UpdateOne(
		ctx,
		bson.M{"shop": shop},
		bson.M{
			"$set": bson.M{
				"plan_name":         plan.FreePlanName,
				"plan_price":        0.0,
				"billing_activated": false,
				"charge_status":     chargeStatus,
				"updated_at":        primitive.NewDateTimeFromTime(time.Now()),
			},
			"$unset": bson.M{"current_period_end": ""},
		},
	)
	if err != nil {
		return errors.Wrapf(err, "error downgrading Merchant to free plan for shop: %s", shop)
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(ErrNoDocumentsModified, "no Merchant for shop: %s", shop)
	}
	return nil
}

func (db Database) BillingRecordInsert(ctx context.Context, rec model.BillingRecord) error {
	rec.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	_, err := db.Collection(CollectionBillingRecords).InsertOne(ctx, rec)
	return errors.Wrapf(err, "error inserting BillingRecord for shop: %s, event: %s", rec.Shop, rec.Event)
}

func (db Database) BillingRecordsFind(ctx context.Context, shop string) ([]model.BillingRecord, error) {
	var recs []model.BillingRecord
	cur, err := db.Collection(CollectionBillingRecords).Find(
		ctx,
		bson.M{"shop": shop},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "error getting cursor to find BillingRecords for shop: %s", shop)
	}
	if err = cur.All(ctx, &recs); err != nil {
		return nil, errors.Wrapf(err, "error getting BillingRecords from cursor for shop: %s", shop)
	}
	return recs, nil
}

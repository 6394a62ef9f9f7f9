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

func (db Database) SettingsFindOrCreate(ctx context.Context, shop string) (model.ShopSettings, error) {
	var s model.ShopSettings
	err := db.Collection(CollectionSettings).FindOneAndUpdate(
		ctx,
		bson.M{"shop": shop},
		bson.M{
			"$setOnInsert": bson.M{
				"shop":             shop,
				"default_position": "top",
				"auto_publish":     false,
				"updated_at":       primitive.NewDateTimeFromTime(time.Now()),
			},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&s)
	return s, errors.Wrapf(err, "error finding or creating ShopSettings for shop: %s", shop)
}

func (db Database) SettingsUpdate(ctx context.Context, s model.ShopSettings) error {
	_, err := db.Collection(CollectionSettings).UpdateOne(
		ctx,
		bson.M{"shop": s.Shop},
		bson.M{"$set": bson.M{
			"notification_email": s.NotificationEmail,
			"default_position":   s.DefaultPosition,
			"auto_publish":       s.AutoPublish,
			"updated_at":         primitive.NewDateTimeFromTime(time.Now()),
		}},
		options.Update().SetUpsert(true),
	)
	return errors.Wrapf(err, "error updating ShopSettings for shop: %s", s.Shop)
}

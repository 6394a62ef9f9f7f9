package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// EmailSubmission is one captured visitor email. Uniqueness over
// (shop, bar_id, email) is enforced by an index at the database layer.
type EmailSubmission struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Shop         string             `bson:"shop" json:"shop"`
	BarID        primitive.ObjectID `bson:"bar_id" json:"bar_id"`
	Email        string             `bson:"email" json:"email"`
	Name         string             `bson:"name,omitempty" json:"name,omitempty"`
	DiscountCode string             `bson:"discount_code,omitempty" json:"discount_code,omitempty"`
	CreatedAt    primitive.DateTime `bson:"created_at" json:"created_at"`
}

// ShopSettings holds per-shop admin preferences, created lazily with defaults.
type ShopSettings struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Shop              string             `bson:"shop" json:"shop"`
	NotificationEmail string             `bson:"notification_email,omitempty" json:"notification_email,omitempty"`
	DefaultPosition   string             `bson:"default_position" json:"default_position"`
	AutoPublish       bool               `bson:"auto_publish" json:"auto_publish"`
	UpdatedAt         primitive.DateTime `bson:"updated_at" json:"updated_at"`
}

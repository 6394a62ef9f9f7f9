package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Merchant is the per-shop billing record, created lazily with free plan
// defaults the first time a shop tracks a view or asks for billing status.
type Merchant struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Shop             string             `bson:"shop" json:"shop"`
	PlanName         string             `bson:"plan_name" json:"plan_name"`
	PlanPrice        float64            `bson:"plan_price" json:"plan_price"`
	BillingActivated bool               `bson:"billing_activated" json:"billing_activated"`
	ChargeID         string             `bson:"charge_id,omitempty" json:"charge_id,omitempty"`
	ChargeStatus     string             `bson:"charge_status,omitempty" json:"charge_status,omitempty"`
	CurrentPeriodEnd *time.Time         `bson:"current_period_end,omitempty" json:"current_period_end,omitempty"`
	CreatedAt        primitive.DateTime `bson:"created_at" json:"created_at"`
	UpdatedAt        primitive.DateTime `bson:"updated_at" json:"updated_at"`
}

// ViewUsage holds one calendar month of tracked views for a shop. Month keys
// are "YYYY-MM" in UTC. Past months are never mutated, they stay around as
// billing history until the cleanup job removes rows older than six months.
type ViewUsage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Shop      string             `bson:"shop" json:"shop"`
	Month     string             `bson:"month" json:"month"`
	ViewCount int64              `bson:"view_count" json:"view_count"`
	CreatedAt primitive.DateTime `bson:"created_at" json:"created_at"`
	UpdatedAt primitive.DateTime `bson:"updated_at" json:"updated_at"`
}

type BillingEvent string

const (
	BillingEventSubscribed BillingEvent = "subscribed"
	BillingEventActivated  BillingEvent = "activated"
	BillingEventDeclined   BillingEvent = "declined"
	BillingEventCancelled  BillingEvent = "cancelled"
)

type BillingRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Shop      string             `bson:"shop" json:"shop"`
	PlanName  string             `bson:"plan_name" json:"plan_name"`
	Price     float64            `bson:"price" json:"price"`
	ChargeID  string             `bson:"charge_id,omitempty" json:"charge_id,omitempty"`
	Event     BillingEvent       `bson:"event" json:"event"`
	CreatedAt primitive.DateTime `bson:"created_at" json:"created_at"`
}

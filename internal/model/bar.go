package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BarType string

const (
	BarTypeAnnouncement BarType = "announcement"
	BarTypeCountdown    BarType = "countdown"
	BarTypeShipping     BarType = "shipping"
	BarTypeEmail        BarType = "email"
)

func (t BarType) Valid() bool {
	switch t {
	case BarTypeAnnouncement, BarTypeCountdown, BarTypeShipping, BarTypeEmail:
		return true
	}
	return false
}

const (
	PriorityMin     = 1
	PriorityMax     = 10
	PriorityDefault = 5
)

// Bar is one configured promotional bar owned by a shop. Nested config blocks
// are decoded structures; BSON encoding happens only at the database layer.
type Bar struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Shop     string             `bson:"shop" json:"shop"`
	Type     BarType            `bson:"type" json:"type"`
	Name     string             `bson:"name" json:"name"`
	Message  string             `bson:"message" json:"message"`
	Messages []string           `bson:"messages,omitempty" json:"messages,omitempty"`
	IsActive bool               `bson:"is_active" json:"is_active"`
	Priority int                `bson:"priority" json:"priority"`

	ScheduleStartImmediate bool       `bson:"schedule_start_immediate" json:"schedule_start_immediate"`
	StartDate              *time.Time `bson:"start_date,omitempty" json:"start_date,omitempty"`
	ScheduleEndNever       bool       `bson:"schedule_end_never" json:"schedule_end_never"`
	EndDate                *time.Time `bson:"end_date,omitempty" json:"end_date,omitempty"`
	// Timezone is carried for admin display only, schedule math uses absolute
	// instants.
	Timezone string `bson:"timezone" json:"timezone"`

	Countdown *CountdownConfig `bson:"countdown,omitempty" json:"countdown,omitempty"`
	Shipping  *ShippingConfig  `bson:"shipping,omitempty" json:"shipping,omitempty"`
	Email     *EmailConfig     `bson:"email,omitempty" json:"email,omitempty"`

	Targeting Targeting `bson:"targeting" json:"targeting"`
	Style     Style     `bson:"style" json:"style"`

	ViewCount  int64 `bson:"view_count" json:"view_count"`
	ClickCount int64 `bson:"click_count" json:"click_count"`

	CreatedAt primitive.DateTime `bson:"created_at" json:"created_at"`
	UpdatedAt primitive.DateTime `bson:"updated_at" json:"updated_at"`
}

type TimerType string

const (
	TimerTypeFixed     TimerType = "fixed"
	TimerTypeDaily     TimerType = "daily"
	TimerTypeEvergreen TimerType = "evergreen"
)

type CountdownConfig struct {
	TimerType       TimerType  `bson:"timer_type" json:"timer_type"`
	EndDate         *time.Time `bson:"end_date,omitempty" json:"end_date,omitempty"`
	DailyTime       string     `bson:"daily_time,omitempty" json:"daily_time,omitempty"`
	DurationMinutes int        `bson:"duration_minutes,omitempty" json:"duration_minutes,omitempty"`
	ShowDays        bool       `bson:"show_days" json:"show_days"`
	ShowHours       bool       `bson:"show_hours" json:"show_hours"`
	ShowMinutes     bool       `bson:"show_minutes" json:"show_minutes"`
	ShowSeconds     bool       `bson:"show_seconds" json:"show_seconds"`
}

// ShippingConfig drives the free-shipping progress bar. GoalText must contain
// the literal "{amount}" token which the storefront replaces with the
// remaining amount.
type ShippingConfig struct {
	Threshold    float64 `bson:"threshold" json:"threshold"`
	GoalText     string  `bson:"goal_text" json:"goal_text"`
	ReachedText  string  `bson:"reached_text" json:"reached_text"`
	CurrencyCode string  `bson:"currency_code,omitempty" json:"currency_code,omitempty"`
}

type EmailConfig struct {
	SubmitButtonText string `bson:"submit_button_text" json:"submit_button_text"`
	SuccessMessage   string `bson:"success_message" json:"success_message"`
	Placeholder      string `bson:"placeholder,omitempty" json:"placeholder,omitempty"`
	DiscountCode     string `bson:"discount_code,omitempty" json:"discount_code,omitempty"`
	GenerateDiscount bool   `bson:"generate_discount" json:"generate_discount"`
	DiscountPrefix   string `bson:"discount_prefix,omitempty" json:"discount_prefix,omitempty"`
}

const (
	DevicesBoth    = "both"
	DevicesDesktop = "desktop"
	DevicesMobile  = "mobile"
)

const (
	PagesAll        = "all"
	PagesHomepage   = "homepage"
	PagesProduct    = "product"
	PagesCollection = "collection"
	PagesCart       = "cart"
	PagesSpecific   = "specific"
	PagesPattern    = "pattern"
)

const (
	FrequencyAlways         = "always"
	FrequencyOncePerSession = "once_per_session"
	FrequencyOncePerVisitor = "once_per_visitor"
)

const (
	GeoModeAll     = "all"
	GeoModeInclude = "include"
	GeoModeExclude = "exclude"
)

const (
	PatternContains   = "contains"
	PatternStartsWith = "starts_with"
	PatternEndsWith   = "ends_with"
)

type URLPattern struct {
	Type  string `bson:"type" json:"type"`
	Value string `bson:"value" json:"value"`
}

type Targeting struct {
	Devices          string      `bson:"devices" json:"devices"`
	Pages            string      `bson:"pages" json:"pages"`
	SpecificURLs     []string    `bson:"specific_urls,omitempty" json:"specific_urls,omitempty"`
	URLPattern       *URLPattern `bson:"url_pattern,omitempty" json:"url_pattern,omitempty"`
	DisplayFrequency string      `bson:"display_frequency" json:"display_frequency"`
	GeoEnabled       bool        `bson:"geo_enabled" json:"geo_enabled"`
	GeoMode          string      `bson:"geo_mode" json:"geo_mode"`
	GeoCountries     []string    `bson:"geo_countries,omitempty" json:"geo_countries,omitempty"`
}

// Style is presentation-only, carried through to the storefront untouched.
type Style struct {
	BackgroundColor  string `bson:"background_color" json:"background_color"`
	TextColor        string `bson:"text_color" json:"text_color"`
	FontSize         int    `bson:"font_size" json:"font_size"`
	FontFamily       string `bson:"font_family,omitempty" json:"font_family,omitempty"`
	Padding          int    `bson:"padding" json:"padding"`
	Position         string `bson:"position" json:"position"`
	ShowCloseButton  bool   `bson:"show_close_button" json:"show_close_button"`
	CloseButtonColor string `bson:"close_button_color,omitempty" json:"close_button_color,omitempty"`
	LinkURL          string `bson:"link_url,omitempty" json:"link_url,omitempty"`
}

package engine

import (
	"strings"

	"promobar/internal/model"
)

// ShippingAmountToken must appear literally in a shipping bar's goal text,
// the storefront substitutes the remaining amount into it.
const ShippingAmountToken = "{amount}"

// ConfigComplete checks whether a bar's type-specific configuration is
// complete enough to render, independent of schedule and targeting. An
// incomplete bar is silently excluded from delivery, the reason is only for
// operator logs.
func ConfigComplete(b model.Bar) (bool, string) {
	switch b.Type {
	case model.BarTypeAnnouncement:
		if b.Message == "" && len(b.Messages) == 0 {
			return false, "announcement bar has no message"
		}
	case model.BarTypeCountdown:
		c := b.Countdown
		if c == nil {
			return false, "countdown bar has no countdown config"
		}
		switch c.TimerType {
		case model.TimerTypeFixed:
			if c.EndDate == nil {
				return false, "fixed timer has no end date"
			}
		case model.TimerTypeDaily:
			if c.DailyTime == "" {
				return false, "daily timer has no daily time"
			}
		case model.TimerTypeEvergreen:
			if c.DurationMinutes <= 0 {
				return false, "evergreen timer has no duration"
			}
		default:
			return false, "unknown timer type: " + string(c.TimerType)
		}
	case model.BarTypeShipping:
		c := b.Shipping
		if c == nil {
			return false, "shipping bar has no shipping config"
		}
		if c.Threshold <= 0 {
			return false, "shipping threshold is not positive"
		}
		if c.GoalText == "" || !strings.Contains(c.GoalText, ShippingAmountToken) {
			return false, "shipping goal text is missing the " + ShippingAmountToken + " token"
		}
		if c.ReachedText == "" {
			return false, "shipping reached text is empty"
		}
	case model.BarTypeEmail:
		c := b.Email
		if c == nil {
			return false, "email bar has no email config"
		}
		if c.SubmitButtonText == "" {
			return false, "email bar has no submit button text"
		}
		if c.SuccessMessage == "" {
			return false, "email bar has no success message"
		}
	default:
		return false, "unknown bar type: " + string(b.Type)
	}
	return true, ""
}

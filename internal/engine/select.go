package engine

import (
	"context"
	"sort"
	"time"

	"promobar/internal/model"
)

// BarStore is the slice of persistence the selection engine needs.
type BarStore interface {
	BarsFindActive(ctx context.Context, shop string) ([]model.Bar, error)
}

// QuotaGate answers whether a shop's monthly view quota is already exhausted.
// Selection only reads the gate, it never spends quota.
type QuotaGate interface {
	LimitReached(ctx context.Context, shop string) (bool, error)
}

type logger interface {
	Debugf(format string, v ...any)
	Errorf(format string, v ...any)
}

// VisitorContext carries what the server knows about the requesting visitor.
// Country comes from a request header and may be empty (unknown). Path and
// IsMobile are optional, supplied only when the storefront script forwards
// them; nil means the matching is left to the client.
type VisitorContext struct {
	Country  string
	Path     *string
	IsMobile *bool
}

type SelectOptions struct {
	Limit   int
	Visitor VisitorContext
}

// Engine orchestrates bar selection for storefront delivery.
type Engine struct {
	Bars   BarStore
	Quota  QuotaGate
	Logger logger
	Now    func() time.Time
}

// SelectActiveBars returns the bars eligible for delivery to a visitor of the
// given shop, ordered by priority (1 wins) with creation time breaking ties,
// truncated to opts.Limit (default 1). An empty result is a normal outcome,
// not an error; errors are only infrastructure faults.
func (e Engine) SelectActiveBars(ctx context.Context, shop string, opts SelectOptions) ([]model.Bar, error) {
	limitReached, err := e.Quota.LimitReached(ctx, shop)
	if err != nil {
		return nil, err
	}
	if limitReached {
		e.Logger.Debugf("SelectActiveBars: View limit reached for shop: %s, suppressing delivery", shop)
		return []model.Bar{}, nil
	}

	// Single snapshot; every filter below runs against this one fetch.
	bars, err := e.Bars.BarsFindActive(ctx, shop)
	if err != nil {
		return nil, err
	}

	now := e.now()
	eligible := make([]model.Bar, 0, len(bars))
	for _, b := range bars {
		if !ScheduleRunningAt(b, now) {
			continue
		}
		if ok, reason := ConfigComplete(b); !ok {
			e.Logger.Debugf("SelectActiveBars: Excluding structurally incomplete Bar, ID: %s, shop: %s, reason: %s",
				b.ID.Hex(), shop, reason)
			continue
		}
		if !e.matchesVisitor(b, opts.Visitor) {
			continue
		}
		eligible = append(eligible, b)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority < eligible[j].Priority
		}
		return eligible[i].CreatedAt < eligible[j].CreatedAt
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 1
	}
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

func (e Engine) matchesVisitor(b model.Bar, v VisitorContext) bool {
	t := b.Targeting
	if !MatchesGeo(t.GeoEnabled, t.GeoMode, t.GeoCountries, v.Country) {
		return false
	}
	if v.Path != nil && !MatchesPage(t.Pages, *v.Path, t.SpecificURLs, t.URLPattern) {
		return false
	}
	if v.IsMobile != nil && !MatchesDevice(t.Devices, *v.IsMobile) {
		return false
	}
	return true
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

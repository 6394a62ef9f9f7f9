// Package usage is the metered view ledger: it gates and records storefront
// view events against each shop's monthly plan quota.
package usage

import (
	"context"
	"time"

	"promobar/internal/model"
	"promobar/internal/plan"
)

// Store is the slice of persistence the ledger needs. IncrementBelowLimit
// must be a single atomic conditional update: increment the month's counter
// only while it is below limit, otherwise change nothing and report
// allowed=false. Two concurrent calls at the boundary must admit at most one.
type Store interface {
	MerchantFindOrCreate(ctx context.Context, shop string) (model.Merchant, error)
	MerchantShops(ctx context.Context) ([]string, error)
	ViewUsageFind(ctx context.Context, shop, month string) (model.ViewUsage, bool, error)
	ViewUsageIncrementBelowLimit(ctx context.Context, shop, month string, limit int64) (count int64, allowed bool, err error)
	ViewUsageEnsure(ctx context.Context, shop, month string) error
	ViewUsageDeleteMonthsBefore(ctx context.Context, month string) (int64, error)
}

type logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}

// Ledger tracks per-shop, per-calendar-month view counts. Month keys are
// computed in UTC, fixed process-wide.
type Ledger struct {
	Store  Store
	Logger logger
	Now    func() time.Time
}

// MonthKey formats t's calendar month as "YYYY-MM" in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func (l Ledger) CurrentMonthKey() string {
	return MonthKey(l.now())
}

type Result struct {
	Allowed   bool
	ViewCount int64
	Limit     int64
	PlanName  string
}

// CheckAndIncrement admits or refuses one view event for the shop. Refusal is
// a hard stop: nothing is incremented and nothing is recorded. The merchant
// and the current month's usage row are created lazily.
func (l Ledger) CheckAndIncrement(ctx context.Context, shop string) (Result, error) {
	m, err := l.Store.MerchantFindOrCreate(ctx, shop)
	if err != nil {
		return Result{}, err
	}
	p := plan.PlanFor(m.PlanName)
	month := l.CurrentMonthKey()

	count, allowed, err := l.Store.ViewUsageIncrementBelowLimit(ctx, shop, month, p.ViewLimit)
	if err != nil {
		return Result{}, err
	}
	if !allowed {
		l.Logger.Debugf("CheckAndIncrement: View limit reached for shop: %s, plan: %s, month: %s", shop, p.Name, month)
	}
	return Result{
		Allowed:   allowed,
		ViewCount: count,
		Limit:     p.ViewLimit,
		PlanName:  p.Name,
	}, nil
}

// LimitReached reports whether the shop's quota is already exhausted, without
// spending any of it. The selection engine calls this to suppress delivery.
func (l Ledger) LimitReached(ctx context.Context, shop string) (bool, error) {
	m, err := l.Store.MerchantFindOrCreate(ctx, shop)
	if err != nil {
		return false, err
	}
	p := plan.PlanFor(m.PlanName)
	if p.ViewLimit == plan.Unlimited {
		return false, nil
	}
	u, found, err := l.Store.ViewUsageFind(ctx, shop, l.CurrentMonthKey())
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return plan.HasReachedLimit(u.ViewCount, m.PlanName), nil
}

// CurrentUsage returns the shop's usage row for the running month, zero
// counts if no view has been tracked yet.
func (l Ledger) CurrentUsage(ctx context.Context, shop string) (model.ViewUsage, plan.Plan, error) {
	m, err := l.Store.MerchantFindOrCreate(ctx, shop)
	if err != nil {
		return model.ViewUsage{}, plan.Plan{}, err
	}
	p := plan.PlanFor(m.PlanName)
	month := l.CurrentMonthKey()
	u, found, err := l.Store.ViewUsageFind(ctx, shop, month)
	if err != nil {
		return model.ViewUsage{}, plan.Plan{}, err
	}
	if !found {
		u = model.ViewUsage{Shop: shop, Month: month}
	}
	return u, p, nil
}

// EnsureCurrentMonth creates a zero-count usage row for the running month for
// every known merchant. Prior months are never touched, they remain as the
// historical record.
func (l Ledger) EnsureCurrentMonth(ctx context.Context) error {
	shops, err := l.Store.MerchantShops(ctx)
	if err != nil {
		return err
	}
	month := l.CurrentMonthKey()
	for _, shop := range shops {
		if err := l.Store.ViewUsageEnsure(ctx, shop, month); err != nil {
			l.Logger.Errorf("EnsureCurrentMonth: Error ensuring ViewUsage for shop: %s, month: %s, err: %v", shop, month, err)
		}
	}
	return nil
}

// CleanupOldMonths deletes usage rows older than six months. Month keys sort
// lexicographically, so a plain string comparison bounds the delete.
func (l Ledger) CleanupOldMonths(ctx context.Context) error {
	cutoff := MonthKey(l.now().AddDate(0, -6, 0))
	n, err := l.Store.ViewUsageDeleteMonthsBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		l.Logger.Infof("CleanupOldMonths: Deleted %d ViewUsage row(s) before month: %s", n, cutoff)
	}
	return nil
}

func (l Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now().UTC()
}

package server

import (
	"context"
	"time"

	"promobar/internal/engine"
)

// SweepInInterval runs the administrative schedule sweep and the monthly
// usage maintenance on every tick. The sweep keeps the admin-facing is_active
// flag tracking derived schedule state; request-time selection never relies
// on it and always re-derives.
func (s Server) SweepInInterval(ctx context.Context, ticker *time.Ticker) {
	var lastMonth string
	for range ticker.C {
		s.sweepSchedules(ctx)
		if month := s.Ledger.CurrentMonthKey(); month != lastMonth {
			s.Logger.Infof("SweepInInterval: Month rolled over to %s, running usage maintenance", month)
			if err := s.Ledger.EnsureCurrentMonth(ctx); err != nil {
				s.Logger.Errorf("SweepInInterval: Error ensuring current month usage rows, err: %v", err)
				continue
			}
			if err := s.Ledger.CleanupOldMonths(ctx); err != nil {
				s.Logger.Errorf("SweepInInterval: Error cleaning up old usage rows, err: %v", err)
				continue
			}
			lastMonth = month
		}
	}
}

func (s Server) sweepSchedules(ctx context.Context) {
	shops, err := s.DB.MerchantShops(ctx)
	if err != nil {
		s.Logger.Errorf("sweepSchedules: Error getting Merchant shops, err: %v", err)
		return
	}

	now := time.Now().UTC()
	var promoted, retired int
	for _, shop := range shops {
		bars, err := s.DB.BarsFindAll(ctx, shop)
		if err != nil {
			s.Logger.Errorf("sweepSchedules: Error getting Bars for shop: %s, err: %v", shop, err)
			continue
		}
		for _, b := range bars {
			state := engine.ScheduleStateAt(b, now)
			switch {
			case b.IsActive && state == engine.ScheduleEnded:
				if err := s.DB.BarSetActiveState(ctx, b.ID, false); err != nil {
					s.Logger.Errorf("sweepSchedules: Error retiring Bar with ID: %s, err: %v", b.ID.Hex(), err)
					continue
				}
				retired++
			case !b.IsActive && state == engine.ScheduleRunning && !b.ScheduleStartImmediate && b.StartDate != nil:
				// A scheduled start has arrived; immediate-start bars are
				// published by hand, not by the sweep.
				if err := s.DB.BarSetActiveState(ctx, b.ID, true); err != nil {
					s.Logger.Errorf("sweepSchedules: Error promoting Bar with ID: %s, err: %v", b.ID.Hex(), err)
					continue
				}
				promoted++
			}
		}
	}
	if promoted > 0 || retired > 0 {
		s.Logger.Infof("sweepSchedules: Promoted %d and retired %d Bar(s) across %d shop(s)", promoted, retired, len(shops))
	}
}

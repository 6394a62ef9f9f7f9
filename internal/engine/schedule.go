// Package engine decides which of a shop's configured bars are eligible for
// storefront delivery at a given moment: schedule window, structural
// completeness, targeting, priority order and the monthly view quota gate.
package engine

import (
	"time"

	"promobar/internal/model"
)

type ScheduleState string

const (
	ScheduleNotYetStarted ScheduleState = "not_yet_started"
	ScheduleRunning       ScheduleState = "running"
	ScheduleEnded         ScheduleState = "ended"
)

// ScheduleStateAt derives the schedule state of a bar at the given instant.
// It is evaluated fresh on every selection request, the administrative
// is_active flag is never trusted as a substitute.
func ScheduleStateAt(b model.Bar, now time.Time) ScheduleState {
	if b.ScheduleStartImmediate {
		if scheduleEnded(b, now) {
			return ScheduleEnded
		}
		return ScheduleRunning
	}
	if b.StartDate == nil {
		// No immediate start and no start date: never starts.
		return ScheduleNotYetStarted
	}
	if now.Before(*b.StartDate) {
		return ScheduleNotYetStarted
	}
	if scheduleEnded(b, now) {
		return ScheduleEnded
	}
	return ScheduleRunning
}

func scheduleEnded(b model.Bar, now time.Time) bool {
	if b.ScheduleEndNever || b.EndDate == nil {
		return false
	}
	return now.After(*b.EndDate)
}

// ScheduleRunningAt reports whether the bar's time window is open. Only
// running bars are eligible for delivery.
func ScheduleRunningAt(b model.Bar, now time.Time) bool {
	return ScheduleStateAt(b, now) == ScheduleRunning
}

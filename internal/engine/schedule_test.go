package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"promobar/internal/model"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestScheduleStateAt(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name string
		bar  model.Bar
		want ScheduleState
	}{
		{
			name: "immediate start with no end runs",
			bar:  model.Bar{ScheduleStartImmediate: true, ScheduleEndNever: true},
			want: ScheduleRunning,
		},
		{
			name: "immediate start with future end runs",
			bar:  model.Bar{ScheduleStartImmediate: true, EndDate: timePtr(future)},
			want: ScheduleRunning,
		},
		{
			name: "immediate start with past end has ended",
			bar:  model.Bar{ScheduleStartImmediate: true, EndDate: timePtr(past)},
			want: ScheduleEnded,
		},
		{
			name: "immediate start with past end but end-never runs",
			bar:  model.Bar{ScheduleStartImmediate: true, ScheduleEndNever: true, EndDate: timePtr(past)},
			want: ScheduleRunning,
		},
		{
			name: "no immediate start and no start date never starts",
			bar:  model.Bar{ScheduleEndNever: true},
			want: ScheduleNotYetStarted,
		},
		{
			name: "future start date not yet started",
			bar:  model.Bar{StartDate: timePtr(future), ScheduleEndNever: true},
			want: ScheduleNotYetStarted,
		},
		{
			name: "past start date with no end runs",
			bar:  model.Bar{StartDate: timePtr(past), ScheduleEndNever: true},
			want: ScheduleRunning,
		},
		{
			name: "past start date with nil end date runs",
			bar:  model.Bar{StartDate: timePtr(past)},
			want: ScheduleRunning,
		},
		{
			name: "past start and past end has ended",
			bar:  model.Bar{StartDate: timePtr(past), EndDate: timePtr(now.Add(-time.Hour))},
			want: ScheduleEnded,
		},
		{
			name: "start date exactly now runs",
			bar:  model.Bar{StartDate: timePtr(now), ScheduleEndNever: true},
			want: ScheduleRunning,
		},
		{
			name: "end date exactly now still runs",
			bar:  model.Bar{ScheduleStartImmediate: true, EndDate: timePtr(now)},
			want: ScheduleRunning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScheduleStateAt(tt.bar, now))
		})
	}
}

func TestScheduleStateAt_EndNeverIgnoresAnyEndDate(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	for _, end := range []time.Time{
		now.Add(-1000 * time.Hour),
		now.Add(-time.Minute),
		now,
		now.Add(time.Minute),
	} {
		b := model.Bar{ScheduleStartImmediate: true, ScheduleEndNever: true, EndDate: timePtr(end)}
		assert.Equal(t, ScheduleRunning, ScheduleStateAt(b, now), "end date %v should be ignored", end)
	}
}

func TestScheduleRunningAt(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	assert.True(t, ScheduleRunningAt(model.Bar{ScheduleStartImmediate: true, ScheduleEndNever: true}, now))
	assert.False(t, ScheduleRunningAt(model.Bar{}, now))
}

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"promobar/internal/model"
)

type fakeBarStore struct {
	bars []model.Bar
	err  error
}

func (f fakeBarStore) BarsFindActive(_ context.Context, _ string) ([]model.Bar, error) {
	return f.bars, f.err
}

type fakeQuotaGate struct {
	reached bool
	err     error
}

func (f fakeQuotaGate) LimitReached(_ context.Context, _ string) (bool, error) {
	return f.reached, f.err
}

type testLogger struct{ t *testing.T }

func (l testLogger) Debugf(format string, v ...any) { l.t.Logf("DBG: "+format, v...) }
func (l testLogger) Errorf(format string, v ...any) { l.t.Logf("ERR: "+format, v...) }

func newTestEngine(t *testing.T, bars []model.Bar, now time.Time) Engine {
	return Engine{
		Bars:   fakeBarStore{bars: bars},
		Quota:  fakeQuotaGate{},
		Logger: testLogger{t},
		Now:    func() time.Time { return now },
	}
}

func runningBar(name string, priority int, createdAt time.Time) model.Bar {
	return model.Bar{
		ID:                     primitive.NewObjectID(),
		Type:                   model.BarTypeAnnouncement,
		Name:                   name,
		Message:                "Hello",
		IsActive:               true,
		Priority:               priority,
		ScheduleStartImmediate: true,
		ScheduleEndNever:       true,
		CreatedAt:              primitive.NewDateTimeFromTime(createdAt),
	}
}

func TestSelectActiveBars_PriorityOrder(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	bars := []model.Bar{
		runningBar("low", 5, now.Add(-3*time.Hour)),
		runningBar("high", 2, now.Add(-time.Hour)),
		runningBar("mid", 3, now.Add(-2*time.Hour)),
	}
	e := newTestEngine(t, bars, now)

	got, err := e.SelectActiveBars(context.Background(), "shop.example.com", SelectOptions{Limit: 3})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "high", got[0].Name)
	assert.Equal(t, "mid", got[1].Name)
	assert.Equal(t, "low", got[2].Name)
}

func TestSelectActiveBars_TieBrokenByCreationTime(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	bars := []model.Bar{
		runningBar("newer", 5, now.Add(-time.Hour)),
		runningBar("older", 5, now.Add(-48*time.Hour)),
	}
	e := newTestEngine(t, bars, now)

	got, err := e.SelectActiveBars(context.Background(), "shop.example.com", SelectOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "older", got[0].Name)
	assert.Equal(t, "newer", got[1].Name)
}

func TestSelectActiveBars_DefaultLimitIsOne(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	bars := []model.Bar{
		runningBar("winner", 1, now.Add(-time.Hour)),
		runningBar("loser", 2, now.Add(-time.Hour)),
	}
	e := newTestEngine(t, bars, now)

	got, err := e.SelectActiveBars(context.Background(), "shop.example.com", SelectOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "winner", got[0].Name)
}

func TestSelectActiveBars_FiltersNonRunningSchedules(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	notStarted := runningBar("not-started", 1, past)
	notStarted.ScheduleStartImmediate = false
	notStarted.StartDate = &future

	ended := runningBar("ended", 1, past)
	ended.ScheduleEndNever = false
	ended.EndDate = &past

	bars := []model.Bar{notStarted, ended, runningBar("running", 5, past)}
	e := newTestEngine(t, bars, now)

	got, err := e.SelectActiveBars(context.Background(), "shop.example.com", SelectOptions{Limit: 5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "running", got[0].Name)
}

func TestSelectActiveBars_ExcludesIncompleteConfig(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	broken := runningBar("broken", 1, now.Add(-time.Hour))
	broken.Type = model.BarTypeCountdown // no countdown config

	bars := []model.Bar{broken, runningBar("ok", 5, now.Add(-time.Hour))}
	e := newTestEngine(t, bars, now)

	got, err := e.SelectActiveBars(context.Background(), "shop.example.com", SelectOptions{Limit: 5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Name)
}

func TestSelectActiveBars_QuotaSuppressesDelivery(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	e := newTestEngine(t, []model.Bar{runningBar("a", 1, now)}, now)
	e.Quota = fakeQuotaGate{reached: true}

	got, err := e.SelectActiveBars(context.Background(), "shop.example.com", SelectOptions{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelectActiveBars_GeoFiltering(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	usOnly := runningBar("us-only", 1, now.Add(-time.Hour))
	usOnly.Targeting = model.Targeting{
		GeoEnabled: true, GeoMode: model.GeoModeInclude, GeoCountries: []string{"US"},
	}
	everywhere := runningBar("everywhere", 5, now.Add(-time.Hour))

	e := newTestEngine(t, []model.Bar{usOnly, everywhere}, now)

	got, err := e.SelectActiveBars(context.Background(), "shop.example.com", SelectOptions{
		Limit:   5,
		Visitor: VisitorContext{Country: "US"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "us-only", got[0].Name)

	got, err = e.SelectActiveBars(context.Background(), "shop.example.com", SelectOptions{
		Limit:   5,
		Visitor: VisitorContext{Country: "DE"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "everywhere", got[0].Name)

	// Unknown country must not see include-mode bars.
	got, err = e.SelectActiveBars(context.Background(), "shop.example.com", SelectOptions{
		Limit:   5,
		Visitor: VisitorContext{Country: ""},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "everywhere", got[0].Name)
}

func TestSelectActiveBars_PathAndDeviceAppliedOnlyWhenSupplied(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	cartOnly := runningBar("cart-only", 1, now.Add(-time.Hour))
	cartOnly.Targeting = model.Targeting{Pages: model.PagesCart, Devices: model.DevicesDesktop}

	e := newTestEngine(t, []model.Bar{cartOnly}, now)

	// No context supplied: the client does the matching, the server delivers.
	got, err := e.SelectActiveBars(context.Background(), "shop.example.com", SelectOptions{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	path := "/products/blue-shirt"
	got, err = e.SelectActiveBars(context.Background(), "shop.example.com", SelectOptions{
		Limit:   5,
		Visitor: VisitorContext{Path: &path},
	})
	require.NoError(t, err)
	assert.Empty(t, got)

	mobile := true
	got, err = e.SelectActiveBars(context.Background(), "shop.example.com", SelectOptions{
		Limit:   5,
		Visitor: VisitorContext{IsMobile: &mobile},
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelectActiveBars_ErrorsPropagate(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	e := newTestEngine(t, nil, now)
	e.Quota = fakeQuotaGate{err: errors.New("usage store down")}
	_, err := e.SelectActiveBars(context.Background(), "shop.example.com", SelectOptions{})
	assert.Error(t, err)

	e = newTestEngine(t, nil, now)
	e.Bars = fakeBarStore{err: errors.New("db down")}
	_, err = e.SelectActiveBars(context.Background(), "shop.example.com", SelectOptions{})
	assert.Error(t, err)
}

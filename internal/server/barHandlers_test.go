package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"promobar/internal/model"
)

func announcementRequest() barRequest {
	return barRequest{
		Type:                   model.BarTypeAnnouncement,
		Name:                   "Summer sale",
		Message:                "20% off everything",
		Priority:               5,
		ScheduleStartImmediate: true,
		ScheduleEndNever:       true,
	}
}

func TestBarRequestToBar_Defaults(t *testing.T) {
	req := barRequest{
		Type:                   model.BarTypeAnnouncement,
		Message:                "Hi",
		ScheduleStartImmediate: true,
		ScheduleEndNever:       true,
	}
	b := req.toBar("shop.example.com")

	assert.Equal(t, "shop.example.com", b.Shop)
	assert.Equal(t, model.PriorityDefault, b.Priority)
	assert.Equal(t, model.DevicesBoth, b.Targeting.Devices)
	assert.Equal(t, model.PagesAll, b.Targeting.Pages)
	assert.Equal(t, model.FrequencyAlways, b.Targeting.DisplayFrequency)
	assert.Equal(t, model.GeoModeAll, b.Targeting.GeoMode)
	assert.Equal(t, "top", b.Style.Position)
}

func TestValidateBar(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*barRequest)
		wantField string
	}{
		{
			name:   "valid announcement passes",
			mutate: func(r *barRequest) {},
		},
		{
			name:      "invalid type",
			mutate:    func(r *barRequest) { r.Type = "popup" },
			wantField: "type",
		},
		{
			name:      "priority above range",
			mutate:    func(r *barRequest) { r.Priority = 11 },
			wantField: "priority",
		},
		{
			name: "start date required without immediate start",
			mutate: func(r *barRequest) {
				r.ScheduleStartImmediate = false
				r.StartDate = nil
			},
			wantField: "start_date",
		},
		{
			name: "end date before start date",
			mutate: func(r *barRequest) {
				start := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
				end := start.Add(-time.Hour)
				r.ScheduleStartImmediate = false
				r.ScheduleEndNever = false
				r.StartDate = &start
				r.EndDate = &end
			},
			wantField: "end_date",
		},
		{
			name:      "unknown device targeting",
			mutate:    func(r *barRequest) { r.Targeting.Devices = "tablet" },
			wantField: "targeting.devices",
		},
		{
			name: "specific pages without urls",
			mutate: func(r *barRequest) {
				r.Targeting.Pages = model.PagesSpecific
			},
			wantField: "targeting.specific_urls",
		},
		{
			name: "pattern pages without pattern",
			mutate: func(r *barRequest) {
				r.Targeting.Pages = model.PagesPattern
			},
			wantField: "targeting.url_pattern",
		},
		{
			name: "pattern with unknown pattern type",
			mutate: func(r *barRequest) {
				r.Targeting.Pages = model.PagesPattern
				r.Targeting.URLPattern = &model.URLPattern{Type: "regex", Value: "/sale"}
			},
			wantField: "targeting.url_pattern.type",
		},
		{
			name:      "unknown display frequency",
			mutate:    func(r *barRequest) { r.Targeting.DisplayFrequency = "hourly" },
			wantField: "targeting.display_frequency",
		},
		{
			name: "geo include without countries",
			mutate: func(r *barRequest) {
				r.Targeting.GeoEnabled = true
				r.Targeting.GeoMode = model.GeoModeInclude
			},
			wantField: "targeting.geo_countries",
		},
		{
			name: "geo enabled with unknown mode",
			mutate: func(r *barRequest) {
				r.Targeting.GeoEnabled = true
				r.Targeting.GeoMode = "near"
			},
			wantField: "targeting.geo_mode",
		},
		{
			name: "announcement without message",
			mutate: func(r *barRequest) {
				r.Message = ""
				r.Messages = nil
			},
			wantField: "announcement",
		},
		{
			name: "countdown without config",
			mutate: func(r *barRequest) {
				r.Type = model.BarTypeCountdown
			},
			wantField: "countdown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := announcementRequest()
			tt.mutate(&req)
			fields := validateBar(req.toBar("shop.example.com"))
			if tt.wantField == "" {
				assert.Empty(t, fields)
			} else {
				assert.Contains(t, fields, tt.wantField)
			}
		})
	}
}

func adminBarRequest(method, target, barID string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	r = r.WithContext(setShopContext(r.Context(), shopContext{shop: "shop.example.com"}))
	return mux.SetURLVars(r, map[string]string{"barID": barID})
}

func TestBarGet_MalformedBarIDIsNotFound(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.barGet()(w, adminBarRequest(http.MethodGet, "/api/bars/not-a-hex-id", "not-a-hex-id"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBarDelete_MalformedBarIDIsNotFound(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.barDelete()(w, adminBarRequest(http.MethodDelete, "/api/bars/not-a-hex-id", "not-a-hex-id"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, validEmail("someone@example.com"))
	assert.True(t, validEmail("first.last+tag@sub.example.co"))
	assert.False(t, validEmail(""))
	assert.False(t, validEmail("not-an-email"))
	assert.False(t, validEmail("missing@domain@example.com"))
}

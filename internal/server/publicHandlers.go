package server

import (
	"context"
	"encoding/json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"promobar/internal/engine"
	"promobar/internal/misc"
	"promobar/internal/model"
)

// visitorCountry reads the visitor's two-letter country code from the request
// headers the CDN sets. Absence means unknown, never a specific country.
func visitorCountry(r *http.Request) string {
	c := r.Header.Get("CF-IPCountry")
	if c == "" {
		c = r.Header.Get("X-Visitor-Country")
	}
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "XX" || c == "T1" || len(c) != 2 {
		return ""
	}
	return c
}

func (s Server) activeBars() http.HandlerFunc {
	type response struct {
		Bars    []model.Bar `json:"bars"`
		Message string      `json:"message,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		if shop == "" {
			s.Logger.Debugf("activeBars: \"shop\" query parameter is not supplied")
			http.Error(w, "shop query parameter is required", http.StatusBadRequest)
			return
		}

		limit := 1
		if l := r.URL.Query().Get("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil {
				limit = misc.Clamp(n, 1, 5)
			}
		}
		country := visitorCountry(r)

		visitor := engine.VisitorContext{Country: country}
		cacheable := true
		if p := r.URL.Query().Get("path"); p != "" {
			visitor.Path = &p
			cacheable = false
		}
		if m := r.URL.Query().Get("mobile"); m != "" {
			isMobile := m == "1" || m == "true"
			visitor.IsMobile = &isMobile
			cacheable = false
		}

		cacheKey := activeBarsCacheKey(shop, limit, country)
		if cacheable {
			if bars, ok := s.activeBarsCacheGet(r.Context(), cacheKey); ok {
				s.writeJsonResponse(w, response{Bars: bars}, http.StatusOK)
				return
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), storefrontTimeout)
		defer cancel()
		bars, err := s.Engine.SelectActiveBars(ctx, shop, engine.SelectOptions{
			Limit:   limit,
			Visitor: visitor,
		})
		if err != nil {
			// Fail closed: a shopper's page is never broken by an outage here.
			s.Logger.Errorf("activeBars: Error selecting active Bars for shop: %s, err: %v", shop, err)
			s.writeJsonResponse(w, response{Bars: []model.Bar{}, Message: "bars temporarily unavailable"}, http.StatusOK)
			return
		}

		if cacheable {
			s.activeBarsCacheSet(r.Context(), cacheKey, bars)
		}
		s.writeJsonResponse(w, response{Bars: bars}, http.StatusOK)
	}
}

func (s Server) trackView() http.HandlerFunc {
	type request struct {
		Shop  string `json:"shop"`
		BarID string `json:"bar_id"`
	}
	type response struct {
		Allowed      bool  `json:"allowed"`
		LimitReached bool  `json:"limit_reached,omitempty"`
		ViewCount    int64 `json:"view_count,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("trackView: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.Shop == "" || req.BarID == "" {
			http.Error(w, "shop and bar_id are required", http.StatusBadRequest)
			return
		}

		if _, err := s.DB.BarFindOne(r.Context(), req.Shop, req.BarID); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
				s.Logger.Debugf("trackView: No Bar with ID: %s for shop: %s", req.BarID, req.Shop)
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			s.Logger.Errorf("trackView: Error finding Bar with ID: %s, err: %v", req.BarID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		res, err := s.Ledger.CheckAndIncrement(r.Context(), req.Shop)
		if err != nil {
			s.Logger.Errorf("trackView: Error checking view quota for shop: %s, err: %v", req.Shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if !res.Allowed {
			// Distinguishable limit-reached signal, not a generic failure.
			s.writeJsonResponse(w, response{Allowed: false, LimitReached: true}, http.StatusTooManyRequests)
			return
		}

		if err := s.DB.BarViewIncrement(r.Context(), req.Shop, req.BarID); err != nil {
			s.Logger.Errorf("trackView: Error incrementing view count on Bar with ID: %s, err: %v", req.BarID, err)
		}
		s.writeJsonResponse(w, response{Allowed: true, ViewCount: res.ViewCount}, http.StatusOK)
	}
}

func (s Server) trackClick() http.HandlerFunc {
	type request struct {
		Shop  string `json:"shop"`
		BarID string `json:"bar_id"`
	}
	type response struct {
		Success bool `json:"success"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("trackClick: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.Shop == "" || req.BarID == "" {
			http.Error(w, "shop and bar_id are required", http.StatusBadRequest)
			return
		}

		// Clicks are recorded unconditionally, no quota gate.
		if err := s.DB.BarClickIncrement(r.Context(), req.Shop, req.BarID); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
				s.Logger.Debugf("trackClick: No Bar with ID: %s for shop: %s", req.BarID, req.Shop)
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			s.Logger.Errorf("trackClick: Error incrementing click count on Bar with ID: %s, err: %v", req.BarID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Success: true}, http.StatusOK)
	}
}

// emailCaptureStore is the slice of persistence email capture needs. The
// duplicate outcome is derived from the store's unique constraint, surfaced
// as a duplicate-key error from EmailSubmissionInsert.
type emailCaptureStore interface {
	BarFindOne(ctx context.Context, shop, barID string) (model.Bar, error)
	EmailSubmissionInsert(ctx context.Context, sub model.EmailSubmission) (string, error)
}

func (s Server) submitEmail() http.HandlerFunc {
	return s.captureEmail(s.DB)
}

func (s Server) captureEmail(store emailCaptureStore) http.HandlerFunc {
	type request struct {
		Shop  string `json:"shop"`
		BarID string `json:"bar_id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	type response struct {
		Success      bool   `json:"success"`
		Duplicate    bool   `json:"duplicate,omitempty"`
		DiscountCode string `json:"discount_code,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("submitEmail: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if _, err := mail.ParseAddress(req.Email); err != nil {
			s.Logger.Debugf("submitEmail: Invalid email: %s, err: %v", misc.StringLimit(req.Email, 100), err)
			http.Error(w, "Invalid email", http.StatusBadRequest)
			return
		}

		b, err := store.BarFindOne(r.Context(), req.Shop, req.BarID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
				s.Logger.Debugf("submitEmail: No Bar with ID: %s for shop: %s", req.BarID, req.Shop)
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			s.Logger.Errorf("submitEmail: Error finding Bar with ID: %s, err: %v", req.BarID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if b.Type != model.BarTypeEmail || !b.IsActive {
			s.Logger.Debugf("submitEmail: Bar with ID: %s for shop: %s is not an active email bar", req.BarID, req.Shop)
			http.Error(w, "bar does not accept email submissions", http.StatusUnprocessableEntity)
			return
		}

		discountCode := ""
		if b.Email != nil {
			if b.Email.GenerateDiscount {
				prefix := b.Email.DiscountPrefix
				if prefix == "" {
					prefix = "PROMO"
				}
				discountCode = prefix + "-" + strings.ToUpper(uuid.NewString()[:8])
			} else {
				discountCode = b.Email.DiscountCode
			}
		}

		sub := model.EmailSubmission{
			Shop:         req.Shop,
			BarID:        b.ID,
			Email:        strings.ToLower(req.Email),
			Name:         req.Name,
			DiscountCode: discountCode,
		}
		if _, err = store.EmailSubmissionInsert(r.Context(), sub); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				s.Logger.Debugf("submitEmail: Duplicate submission for shop: %s, BarID: %s", req.Shop, req.BarID)
				s.writeJsonResponse(w, response{Success: false, Duplicate: true}, http.StatusConflict)
				return
			}
			s.Logger.Errorf("submitEmail: Error inserting EmailSubmission, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Success: true, DiscountCode: discountCode}, http.StatusCreated)
	}
}

func (s Server) scheduleStatus() http.HandlerFunc {
	type scheduleInfo struct {
		StartImmediate bool       `json:"schedule_start_immediate"`
		StartDate      *time.Time `json:"start_date,omitempty"`
		EndNever       bool       `json:"schedule_end_never"`
		EndDate        *time.Time `json:"end_date,omitempty"`
		Timezone       string     `json:"timezone"`
	}
	type response struct {
		ShouldBeActive bool                 `json:"should_be_active"`
		State          engine.ScheduleState `json:"state"`
		IsActive       bool                 `json:"is_active"`
		Schedule       scheduleInfo         `json:"schedule"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		barID := r.URL.Query().Get("bar_id")
		if shop == "" || barID == "" {
			http.Error(w, "shop and bar_id query parameters are required", http.StatusBadRequest)
			return
		}

		b, err := s.DB.BarFindOne(r.Context(), shop, barID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			s.Logger.Errorf("scheduleStatus: Error finding Bar with ID: %s, err: %v", barID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		state := engine.ScheduleStateAt(b, time.Now().UTC())
		s.writeJsonResponse(w, response{
			ShouldBeActive: state == engine.ScheduleRunning,
			State:          state,
			IsActive:       b.IsActive,
			Schedule: scheduleInfo{
				StartImmediate: b.ScheduleStartImmediate,
				StartDate:      b.StartDate,
				EndNever:       b.ScheduleEndNever,
				EndDate:        b.EndDate,
				Timezone:       b.Timezone,
			},
		}, http.StatusOK)
	}
}

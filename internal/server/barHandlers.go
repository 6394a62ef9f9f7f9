package server

import (
	"encoding/json"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"net/http"
	"net/mail"
	"time"

	"promobar/internal/engine"
	"promobar/internal/model"
	"promobar/internal/plan"
)

// barRequest is the admin wizard payload for create and update.
type barRequest struct {
	Type     model.BarType `json:"type"`
	Name     string        `json:"name"`
	Message  string        `json:"message"`
	Messages []string      `json:"messages"`
	IsActive bool          `json:"is_active"`
	Priority int           `json:"priority"`

	ScheduleStartImmediate bool       `json:"schedule_start_immediate"`
	StartDate              *time.Time `json:"start_date"`
	ScheduleEndNever       bool       `json:"schedule_end_never"`
	EndDate                *time.Time `json:"end_date"`
	Timezone               string     `json:"timezone"`

	Countdown *model.CountdownConfig `json:"countdown"`
	Shipping  *model.ShippingConfig  `json:"shipping"`
	Email     *model.EmailConfig     `json:"email"`

	Targeting model.Targeting `json:"targeting"`
	Style     model.Style     `json:"style"`
}

func (req barRequest) toBar(shop string) model.Bar {
	b := model.Bar{
		Shop:                   shop,
		Type:                   req.Type,
		Name:                   req.Name,
		Message:                req.Message,
		Messages:               req.Messages,
		IsActive:               req.IsActive,
		Priority:               req.Priority,
		ScheduleStartImmediate: req.ScheduleStartImmediate,
		StartDate:              req.StartDate,
		ScheduleEndNever:       req.ScheduleEndNever,
		EndDate:                req.EndDate,
		Timezone:               req.Timezone,
		Countdown:              req.Countdown,
		Shipping:               req.Shipping,
		Email:                  req.Email,
		Targeting:              req.Targeting,
		Style:                  req.Style,
	}
	if b.Priority == 0 {
		b.Priority = model.PriorityDefault
	}
	if b.Targeting.Devices == "" {
		b.Targeting.Devices = model.DevicesBoth
	}
	if b.Targeting.Pages == "" {
		b.Targeting.Pages = model.PagesAll
	}
	if b.Targeting.DisplayFrequency == "" {
		b.Targeting.DisplayFrequency = model.FrequencyAlways
	}
	if b.Targeting.GeoMode == "" {
		b.Targeting.GeoMode = model.GeoModeAll
	}
	if b.Style.Position == "" {
		b.Style.Position = "top"
	}
	return b
}

// validateBar collects field-level errors for the admin paths. The storefront
// engine silently excludes incomplete bars, the admin gets told what is
// wrong.
func validateBar(b model.Bar) map[string]string {
	fields := map[string]string{}
	if !b.Type.Valid() {
		fields["type"] = "must be one of announcement, countdown, shipping, email"
	}
	if b.Priority < model.PriorityMin || b.Priority > model.PriorityMax {
		fields["priority"] = "must be between 1 and 10"
	}
	if !b.ScheduleStartImmediate && b.StartDate == nil {
		fields["start_date"] = "required unless schedule_start_immediate is set"
	}
	if !b.ScheduleEndNever && b.EndDate != nil && b.StartDate != nil && b.EndDate.Before(*b.StartDate) {
		fields["end_date"] = "must not be before start_date"
	}
	switch b.Targeting.Devices {
	case model.DevicesBoth, model.DevicesDesktop, model.DevicesMobile:
	default:
		fields["targeting.devices"] = "must be one of both, desktop, mobile"
	}
	switch b.Targeting.Pages {
	case model.PagesAll, model.PagesHomepage, model.PagesProduct, model.PagesCollection, model.PagesCart:
	case model.PagesSpecific:
		if len(b.Targeting.SpecificURLs) == 0 {
			fields["targeting.specific_urls"] = "required when pages is specific"
		}
	case model.PagesPattern:
		if b.Targeting.URLPattern == nil || b.Targeting.URLPattern.Value == "" {
			fields["targeting.url_pattern"] = "required when pages is pattern"
		} else {
			switch b.Targeting.URLPattern.Type {
			case model.PatternContains, model.PatternStartsWith, model.PatternEndsWith:
			default:
				fields["targeting.url_pattern.type"] = "must be one of contains, starts_with, ends_with"
			}
		}
	default:
		fields["targeting.pages"] = "must be one of all, homepage, product, collection, cart, specific, pattern"
	}
	switch b.Targeting.DisplayFrequency {
	case model.FrequencyAlways, model.FrequencyOncePerSession, model.FrequencyOncePerVisitor:
	default:
		fields["targeting.display_frequency"] = "must be one of always, once_per_session, once_per_visitor"
	}
	if b.Targeting.GeoEnabled {
		switch b.Targeting.GeoMode {
		case model.GeoModeInclude, model.GeoModeExclude:
			if len(b.Targeting.GeoCountries) == 0 {
				fields["targeting.geo_countries"] = "required when geo targeting is enabled"
			}
		case model.GeoModeAll:
		default:
			fields["targeting.geo_mode"] = "must be one of all, include, exclude"
		}
	}
	if b.Type.Valid() {
		if ok, reason := engine.ConfigComplete(b); !ok {
			fields[string(b.Type)] = reason
		}
	}
	return fields
}

// barView decorates a bar with its derived schedule state so the admin UI can
// show the actual state without trusting the is_active flag.
type barView struct {
	model.Bar
	ScheduleState engine.ScheduleState `json:"schedule_state"`
}

func newBarView(b model.Bar, now time.Time) barView {
	return barView{Bar: b, ScheduleState: engine.ScheduleStateAt(b, now)}
}

func (s Server) barCreate() http.HandlerFunc {
	type response struct {
		BarID string `json:"bar_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := getShopContext(r.Context())
		if !ok {
			s.Logger.Errorf("barCreate: Error getting shopContext")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		req := barRequest{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("barCreate: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		b := req.toBar(sc.shop)
		if fields := validateBar(b); len(fields) > 0 {
			s.Logger.Debugf("barCreate: Validation failed for shop: %s, fields: %v", sc.shop, fields)
			s.writeValidationErrors(w, fields)
			return
		}

		id, err := s.DB.BarInsert(r.Context(), b)
		if err != nil {
			s.Logger.Errorf("barCreate: Error inserting Bar for shop: %s, err: %v", sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{BarID: id}, http.StatusCreated)
	}
}

func (s Server) barList() http.HandlerFunc {
	type response []barView
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := getShopContext(r.Context())
		if !ok {
			s.Logger.Errorf("barList: Error getting shopContext")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		bs, err := s.DB.BarsFindAll(r.Context(), sc.shop)
		if err != nil {
			s.Logger.Errorf("barList: Error finding Bars for shop: %s, err: %v", sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		now := time.Now().UTC()
		resp := response{}
		for _, b := range bs {
			resp = append(resp, newBarView(b, now))
		}
		s.writeJsonResponse(w, resp, http.StatusOK)
	}
}

func (s Server) barGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := getShopContext(r.Context())
		if !ok {
			s.Logger.Errorf("barGet: Error getting shopContext")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		barID := mux.Vars(r)["barID"]
		b, err := s.DB.BarFindOne(r.Context(), sc.shop, barID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			s.Logger.Errorf("barGet: Error finding Bar with ID: %s for shop: %s, err: %v", barID, sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, newBarView(b, time.Now().UTC()), http.StatusOK)
	}
}

func (s Server) barUpdate() http.HandlerFunc {
	type response struct {
		Success bool `json:"success"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := getShopContext(r.Context())
		if !ok {
			s.Logger.Errorf("barUpdate: Error getting shopContext")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		barID := mux.Vars(r)["barID"]
		existing, err := s.DB.BarFindOne(r.Context(), sc.shop, barID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			s.Logger.Errorf("barUpdate: Error finding Bar with ID: %s for shop: %s, err: %v", barID, sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		req := barRequest{}
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("barUpdate: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		b := req.toBar(sc.shop)
		b.ID = existing.ID
		b.ViewCount = existing.ViewCount
		b.ClickCount = existing.ClickCount
		b.CreatedAt = existing.CreatedAt
		if fields := validateBar(b); len(fields) > 0 {
			s.Logger.Debugf("barUpdate: Validation failed for shop: %s, fields: %v", sc.shop, fields)
			s.writeValidationErrors(w, fields)
			return
		}

		if err = s.DB.BarUpdate(r.Context(), b); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			s.Logger.Errorf("barUpdate: Error updating Bar with ID: %s for shop: %s, err: %v", barID, sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Success: true}, http.StatusOK)
	}
}

func (s Server) barDelete() http.HandlerFunc {
	type response struct {
		Success bool `json:"success"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := getShopContext(r.Context())
		if !ok {
			s.Logger.Errorf("barDelete: Error getting shopContext")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		barID := mux.Vars(r)["barID"]
		if err := s.DB.BarDelete(r.Context(), sc.shop, barID); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			s.Logger.Errorf("barDelete: Error deleting Bar with ID: %s for shop: %s, err: %v", barID, sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Success: true}, http.StatusOK)
	}
}

func (s Server) barActivate() http.HandlerFunc {
	type response struct {
		Success bool `json:"success"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := getShopContext(r.Context())
		if !ok {
			s.Logger.Errorf("barActivate: Error getting shopContext")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		barID := mux.Vars(r)["barID"]
		if err := s.DB.BarActivateExclusive(r.Context(), sc.shop, barID); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			s.Logger.Errorf("barActivate: Error activating Bar with ID: %s for shop: %s, err: %v", barID, sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.Logger.Infof("barActivate: Activated Bar with ID: %s for shop: %s, siblings deactivated", barID, sc.shop)
		s.writeJsonResponse(w, response{Success: true}, http.StatusOK)
	}
}

func (s Server) emailList() http.HandlerFunc {
	type response []model.EmailSubmission
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := getShopContext(r.Context())
		if !ok {
			s.Logger.Errorf("emailList: Error getting shopContext")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		subs, err := s.DB.EmailSubmissionsFind(r.Context(), sc.shop, r.URL.Query().Get("bar_id"))
		if err != nil {
			if errors.Is(err, primitive.ErrInvalidHex) {
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			s.Logger.Errorf("emailList: Error finding EmailSubmissions for shop: %s, err: %v", sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if subs == nil {
			subs = []model.EmailSubmission{}
		}
		s.writeJsonResponse(w, response(subs), http.StatusOK)
	}
}

func (s Server) usageStatus() http.HandlerFunc {
	type response struct {
		Month     string            `json:"month"`
		ViewCount int64             `json:"view_count"`
		ViewLimit int64             `json:"view_limit"`
		PlanName  string            `json:"plan_name"`
		Unlimited bool              `json:"unlimited"`
		History   []model.ViewUsage `json:"history"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := getShopContext(r.Context())
		if !ok {
			s.Logger.Errorf("usageStatus: Error getting shopContext")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		u, p, err := s.Ledger.CurrentUsage(r.Context(), sc.shop)
		if err != nil {
			s.Logger.Errorf("usageStatus: Error getting current usage for shop: %s, err: %v", sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		history, err := s.DB.ViewUsageHistory(r.Context(), sc.shop)
		if err != nil {
			s.Logger.Errorf("usageStatus: Error getting usage history for shop: %s, err: %v", sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if history == nil {
			history = []model.ViewUsage{}
		}
		s.writeJsonResponse(w, response{
			Month:     u.Month,
			ViewCount: u.ViewCount,
			ViewLimit: p.ViewLimit,
			PlanName:  p.Name,
			Unlimited: p.ViewLimit < 0,
			History:   history,
		}, http.StatusOK)
	}
}

func (s Server) planList() http.HandlerFunc {
	type response []plan.Plan
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJsonResponse(w, response(plan.All()), http.StatusOK)
	}
}

func (s Server) settingsGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := getShopContext(r.Context())
		if !ok {
			s.Logger.Errorf("settingsGet: Error getting shopContext")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		settings, err := s.DB.SettingsFindOrCreate(r.Context(), sc.shop)
		if err != nil {
			s.Logger.Errorf("settingsGet: Error getting ShopSettings for shop: %s, err: %v", sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, settings, http.StatusOK)
	}
}

func (s Server) settingsUpdate() http.HandlerFunc {
	type request struct {
		NotificationEmail string `json:"notification_email"`
		DefaultPosition   string `json:"default_position"`
		AutoPublish       bool   `json:"auto_publish"`
	}
	type response struct {
		Success bool `json:"success"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := getShopContext(r.Context())
		if !ok {
			s.Logger.Errorf("settingsUpdate: Error getting shopContext")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("settingsUpdate: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		fields := map[string]string{}
		if req.NotificationEmail != "" && !validEmail(req.NotificationEmail) {
			fields["notification_email"] = "must be a valid email address"
		}
		if req.DefaultPosition != "top" && req.DefaultPosition != "bottom" {
			fields["default_position"] = "must be top or bottom"
		}
		if len(fields) > 0 {
			s.writeValidationErrors(w, fields)
			return
		}

		err := s.DB.SettingsUpdate(r.Context(), model.ShopSettings{
			Shop:              sc.shop,
			NotificationEmail: req.NotificationEmail,
			DefaultPosition:   req.DefaultPosition,
			AutoPublish:       req.AutoPublish,
		})
		if err != nil {
			s.Logger.Errorf("settingsUpdate: Error updating ShopSettings for shop: %s, err: %v", sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Success: true}, http.StatusOK)
	}
}

func validEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

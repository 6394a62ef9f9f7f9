package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"promobar/internal/client"
	"promobar/internal/model"
	"promobar/internal/plan"

	"github.com/pkg/errors"
)

func (s Server) billingSubscribe() http.HandlerFunc {
	type request struct {
		Plan string `json:"plan"`
	}
	type response struct {
		ChargeID        string `json:"charge_id"`
		ConfirmationURL string `json:"confirmation_url"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := getShopContext(r.Context())
		if !ok {
			s.Logger.Errorf("billingSubscribe: Error getting shopContext")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("billingSubscribe: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		p := plan.PlanFor(req.Plan)
		if p.Name != req.Plan || p.Name == plan.FreePlanName {
			s.writeValidationErrors(w, map[string]string{"plan": "must be a paid plan name"})
			return
		}

		if _, err := s.DB.MerchantFindOrCreate(r.Context(), sc.shop); err != nil {
			s.Logger.Errorf("billingSubscribe: Error finding or creating Merchant for shop: %s, err: %v", sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		charge, err := s.Client.BillingCreateCharge(r.Context(), sc.shop, p.Name, p.Price, s.BillingReturnURL)
		if err != nil {
			// Admin path: surface the failure so the merchant can retry.
			s.Logger.Errorf("billingSubscribe: Error creating charge for shop: %s, plan: %s, err: %v", sc.shop, p.Name, err)
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
			return
		}

		if err = s.DB.MerchantSetCharge(r.Context(), sc.shop, p.Name, p.Price, charge.ChargeID, charge.Status); err != nil {
			s.Logger.Errorf("billingSubscribe: Error recording charge on Merchant for shop: %s, err: %v", sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if err = s.DB.BillingRecordInsert(r.Context(), model.BillingRecord{
			Shop:     sc.shop,
			PlanName: p.Name,
			Price:    p.Price,
			ChargeID: charge.ChargeID,
			Event:    model.BillingEventSubscribed,
		}); err != nil {
			s.Logger.Errorf("billingSubscribe: Error inserting BillingRecord for shop: %s, err: %v", sc.shop, err)
		}

		s.writeJsonResponse(w, response{
			ChargeID:        charge.ChargeID,
			ConfirmationURL: charge.ConfirmationURL,
		}, http.StatusOK)
	}
}

func (s Server) billingStatus() http.HandlerFunc {
	type response struct {
		PlanName         string     `json:"plan_name"`
		PlanPrice        float64    `json:"plan_price"`
		ViewLimit        int64      `json:"view_limit"`
		BillingActivated bool       `json:"billing_activated"`
		ChargeID         string     `json:"charge_id,omitempty"`
		ChargeStatus     string     `json:"charge_status,omitempty"`
		CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := getShopContext(r.Context())
		if !ok {
			s.Logger.Errorf("billingStatus: Error getting shopContext")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		m, err := s.DB.MerchantFindOrCreate(r.Context(), sc.shop)
		if err != nil {
			s.Logger.Errorf("billingStatus: Error finding or creating Merchant for shop: %s, err: %v", sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		// Refresh a still-pending charge from the billing service; the webhook
		// is the primary channel but polling here covers missed deliveries.
		if m.ChargeID != "" && !m.BillingActivated {
			charge, err := s.Client.BillingGetCharge(r.Context(), sc.shop, m.ChargeID)
			switch {
			case err == nil && charge.Status == "active":
				if err = s.DB.MerchantActivatePlan(r.Context(), sc.shop, m.ChargeID, charge.PeriodEnd); err != nil {
					s.Logger.Errorf("billingStatus: Error activating plan for shop: %s, err: %v", sc.shop, err)
				} else {
					m.BillingActivated = true
					m.ChargeStatus = "active"
					m.CurrentPeriodEnd = charge.PeriodEnd
				}
			case errors.Is(err, client.ErrBillingChargeNotFound):
				s.Logger.Warnf("billingStatus: Charge: %s not found for shop: %s, downgrading to free", m.ChargeID, sc.shop)
				if err = s.DB.MerchantDowngradeFree(r.Context(), sc.shop, "expired"); err != nil {
					s.Logger.Errorf("billingStatus: Error downgrading Merchant for shop: %s, err: %v", sc.shop, err)
				} else {
					m.PlanName = plan.FreePlanName
					m.PlanPrice = 0
					m.ChargeStatus = "expired"
				}
			case err != nil:
				s.Logger.Errorf("billingStatus: Error refreshing charge: %s for shop: %s, err: %v", m.ChargeID, sc.shop, err)
			}
		}

		s.writeJsonResponse(w, response{
			PlanName:         m.PlanName,
			PlanPrice:        m.PlanPrice,
			ViewLimit:        plan.PlanFor(m.PlanName).ViewLimit,
			BillingActivated: m.BillingActivated,
			ChargeID:         m.ChargeID,
			ChargeStatus:     m.ChargeStatus,
			CurrentPeriodEnd: m.CurrentPeriodEnd,
		}, http.StatusOK)
	}
}

func (s Server) billingCancel() http.HandlerFunc {
	type response struct {
		Success bool `json:"success"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := getShopContext(r.Context())
		if !ok {
			s.Logger.Errorf("billingCancel: Error getting shopContext")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		m, err := s.DB.MerchantFindOrCreate(r.Context(), sc.shop)
		if err != nil {
			s.Logger.Errorf("billingCancel: Error finding or creating Merchant for shop: %s, err: %v", sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if m.ChargeID == "" {
			http.Error(w, "no active subscription", http.StatusUnprocessableEntity)
			return
		}

		if err = s.Client.BillingCancelCharge(r.Context(), sc.shop, m.ChargeID); err != nil && !errors.Is(err, client.ErrBillingChargeNotFound) {
			s.Logger.Errorf("billingCancel: Error cancelling charge: %s for shop: %s, err: %v", m.ChargeID, sc.shop, err)
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
			return
		}

		if err = s.DB.MerchantDowngradeFree(r.Context(), sc.shop, "cancelled"); err != nil {
			s.Logger.Errorf("billingCancel: Error downgrading Merchant for shop: %s, err: %v", sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if err = s.DB.BillingRecordInsert(r.Context(), model.BillingRecord{
			Shop:     sc.shop,
			PlanName: m.PlanName,
			Price:    m.PlanPrice,
			ChargeID: m.ChargeID,
			Event:    model.BillingEventCancelled,
		}); err != nil {
			s.Logger.Errorf("billingCancel: Error inserting BillingRecord for shop: %s, err: %v", sc.shop, err)
		}
		s.writeJsonResponse(w, response{Success: true}, http.StatusOK)
	}
}

func (s Server) billingHistory() http.HandlerFunc {
	type response []model.BillingRecord
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := getShopContext(r.Context())
		if !ok {
			s.Logger.Errorf("billingHistory: Error getting shopContext")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		recs, err := s.DB.BillingRecordsFind(r.Context(), sc.shop)
		if err != nil {
			s.Logger.Errorf("billingHistory: Error finding BillingRecords for shop: %s, err: %v", sc.shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if recs == nil {
			recs = []model.BillingRecord{}
		}
		s.writeJsonResponse(w, response(recs), http.StatusOK)
	}
}

// billingWebhook receives asynchronous charge status changes from the billing
// service, authenticated by the shared secret header.
func (s Server) billingWebhook() http.HandlerFunc {
	type request struct {
		Shop      string     `json:"shop"`
		ChargeID  string     `json:"charge_id"`
		Status    string     `json:"status"`
		PeriodEnd *time.Time `json:"period_end"`
	}
	type response struct {
		Received bool `json:"received"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get("X-Billing-Secret")
		if subtle.ConstantTimeCompare([]byte(secret), []byte(s.BillingSecret)) != 1 {
			s.Logger.Warnf("billingWebhook: Rejected webhook with bad secret from %s", r.RemoteAddr)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("billingWebhook: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.Shop == "" || req.ChargeID == "" {
			http.Error(w, "shop and charge_id are required", http.StatusBadRequest)
			return
		}

		m, err := s.DB.MerchantFindOrCreate(r.Context(), req.Shop)
		if err != nil {
			s.Logger.Errorf("billingWebhook: Error finding or creating Merchant for shop: %s, err: %v", req.Shop, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		switch req.Status {
		case "active":
			if err = s.DB.MerchantActivatePlan(r.Context(), req.Shop, req.ChargeID, req.PeriodEnd); err != nil {
				s.Logger.Errorf("billingWebhook: Error activating plan for shop: %s, err: %v", req.Shop, err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			s.recordBillingEvent(r, m, req.ChargeID, model.BillingEventActivated)
			s.Logger.Infof("billingWebhook: Plan activated for shop: %s, charge: %s", req.Shop, req.ChargeID)
		case "declined", "cancelled", "expired":
			if err = s.DB.MerchantDowngradeFree(r.Context(), req.Shop, req.Status); err != nil {
				s.Logger.Errorf("billingWebhook: Error downgrading Merchant for shop: %s, err: %v", req.Shop, err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			event := model.BillingEventCancelled
			if req.Status == "declined" {
				event = model.BillingEventDeclined
			}
			s.recordBillingEvent(r, m, req.ChargeID, event)
			s.Logger.Infof("billingWebhook: Charge: %s for shop: %s is %s, downgraded to free", req.ChargeID, req.Shop, req.Status)
		default:
			s.Logger.Debugf("billingWebhook: Ignoring charge status: %s for shop: %s", req.Status, req.Shop)
		}
		s.writeJsonResponse(w, response{Received: true}, http.StatusOK)
	}
}

func (s Server) recordBillingEvent(r *http.Request, m model.Merchant, chargeID string, event model.BillingEvent) {
	if err := s.DB.BillingRecordInsert(r.Context(), model.BillingRecord{
		Shop:     m.Shop,
		PlanName: m.PlanName,
		Price:    m.PlanPrice,
		ChargeID: chargeID,
		Event:    event,
	}); err != nil {
		s.Logger.Errorf("recordBillingEvent: Error inserting BillingRecord for shop: %s, event: %s, err: %v", m.Shop, event, err)
	}
}

package server

import (
	"github.com/gorilla/mux"
	"net/http"
)

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.loggingMw, s.maxBytesMw)

	api := r.PathPrefix("/api").Subrouter()

	publicAPI := api.PathPrefix("/public").Subrouter()
	publicAPI.HandleFunc("/bars", s.activeBars()).Methods(http.MethodGet)
	publicAPI.HandleFunc("/view", s.trackView()).Methods(http.MethodPost)
	publicAPI.HandleFunc("/click", s.trackClick()).Methods(http.MethodPost)
	publicAPI.HandleFunc("/email", s.submitEmail()).Methods(http.MethodPost)
	publicAPI.HandleFunc("/schedule-status", s.scheduleStatus()).Methods(http.MethodGet)
	publicAPI.PathPrefix("").Handler(s.notFoundHandler())

	adminAPI := api.PathPrefix("").Subrouter()
	adminAPI.Use(s.authMw)
	adminAPI.HandleFunc("/bars", s.barCreate()).Methods(http.MethodPost)
	adminAPI.HandleFunc("/bars", s.barList()).Methods(http.MethodGet)
	adminAPI.HandleFunc("/bars/{barID}", s.barGet()).Methods(http.MethodGet)
	adminAPI.HandleFunc("/bars/{barID}", s.barUpdate()).Methods(http.MethodPut)
	adminAPI.HandleFunc("/bars/{barID}", s.barDelete()).Methods(http.MethodDelete)
	adminAPI.HandleFunc("/bars/{barID}/activate", s.barActivate()).Methods(http.MethodPost)
	adminAPI.HandleFunc("/usage", s.usageStatus()).Methods(http.MethodGet)
	adminAPI.HandleFunc("/emails", s.emailList()).Methods(http.MethodGet)
	adminAPI.HandleFunc("/plans", s.planList()).Methods(http.MethodGet)
	adminAPI.HandleFunc("/settings", s.settingsGet()).Methods(http.MethodGet)
	adminAPI.HandleFunc("/settings", s.settingsUpdate()).Methods(http.MethodPut)
	adminAPI.HandleFunc("/billing/subscribe", s.billingSubscribe()).Methods(http.MethodPost)
	adminAPI.HandleFunc("/billing/status", s.billingStatus()).Methods(http.MethodGet)
	adminAPI.HandleFunc("/billing/cancel", s.billingCancel()).Methods(http.MethodPost)
	adminAPI.HandleFunc("/billing/history", s.billingHistory()).Methods(http.MethodGet)
	adminAPI.PathPrefix("").Handler(s.notFoundHandler())

	r.HandleFunc("/webhooks/billing", s.billingWebhook()).Methods(http.MethodPost)

	return r
}

package crowdapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Register mounts the public endpoints on r.  reportMW wraps POST /report
// only (per-IP throttling in production).
func (h *Handler) Register(r chi.Router, reportMW ...func(http.Handler) http.Handler) {
	r.Get("/", h.Root)
	r.Get("/strategies", h.GetStrategies)
	r.With(reportMW...).Post("/report", h.PostReport)
	r.Get("/services", h.GetServices)
	r.Get("/health", h.Health)
	r.Post("/maintenance/cleanup", h.Cleanup)
}

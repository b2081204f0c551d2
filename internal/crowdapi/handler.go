// Package crowdapi implements the public HTTP endpoints of the crowdsource
// server on top of the consensus engine.
package crowdapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/OCAVIT/podsos-crowdsource-server/internal/crowd"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/strategy"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/sweeper"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/validation"
)

// MaintenanceTokenHeader carries the shared secret for the cleanup trigger.
const MaintenanceTokenHeader = "X-Maintenance-Token"

// maxReportBytes bounds a POST /report body.  64 arguments of 512 bytes
// plus the other fields fit well below it.
const maxReportBytes = 64 << 10

// Engine is the subset of crowd.Engine the handlers call.
type Engine interface {
	RecordReport(ctx context.Context, in strategy.ReportInput) (strategy.Outcome, error)
	TopStrategies(ctx context.Context, providerID, serviceID string) ([]strategy.Strategy, error)
	ServiceCatalogCounts(ctx context.Context, providerID string) ([]strategy.CatalogEntry, error)
	HealthStats(ctx context.Context) (strategy.StatusCounts, error)
	RunMaintenanceSweep(ctx context.Context) (sweeper.Result, error)
}

// Handler exposes the crowdsource HTTP endpoints.
type Handler struct {
	engine           Engine
	maintenanceToken string
	retryAfter       time.Duration
}

// NewHandler creates a Handler.  An empty maintenanceToken disables the
// cleanup trigger.  retryAfter is advertised to rate-limited clients.
func NewHandler(engine Engine, maintenanceToken string, retryAfter time.Duration) *Handler {
	return &Handler{engine: engine, maintenanceToken: maintenanceToken, retryAfter: retryAfter}
}

// ---------------------------------------------------------------------------
// Request / Response types
// ---------------------------------------------------------------------------

// ReportRequest is the body of POST /report.
type ReportRequest struct {
	ProviderID    string   `json:"provider_id" validate:"required,min=1,max=50" example:"rostelecom"`
	ServiceID     string   `json:"service_id" validate:"required,min=1,max=100" example:"youtube"`
	ZapretArgs    []string `json:"zapret_args" validate:"required,min=1,max=64,dive,max=512,zapretarg"`
	Success       *bool    `json:"success,omitempty"`
	LatencyMS     float64  `json:"latency_ms" validate:"gte=0,lte=600000" example:"84.5"`
	Fingerprint   string   `json:"fingerprint" validate:"required,min=16,max=128" example:"3f0c9b1e2d7a4c55"`
	ClientVersion string   `json:"client_version" validate:"max=32" example:"0.4.1"`
}

// ReportResponse is returned by POST /report.
type ReportResponse struct {
	Status         string `json:"status" example:"accepted"`
	StrategyID     int64  `json:"strategy_id,omitempty" example:"42"`
	StrategyStatus string `json:"strategy_status,omitempty" example:"verified"`
}

// StrategyItem is one recommended strategy.
type StrategyItem struct {
	ID            int64      `json:"id" example:"42"`
	ProviderID    string     `json:"provider_id" example:"rostelecom"`
	ZapretArgs    []string   `json:"zapret_args"`
	SuccessCount  int64      `json:"success_count" example:"17"`
	FailCount     int64      `json:"fail_count" example:"3"`
	SuccessRate   float64    `json:"success_rate" example:"0.85"`
	AvgLatencyMS  float64    `json:"avg_latency_ms" example:"91.2"`
	Status        string     `json:"status" example:"verified"`
	LastConfirmed *time.Time `json:"last_confirmed"`
}

// StrategiesResponse is returned by GET /strategies.
type StrategiesResponse struct {
	Strategies []StrategyItem `json:"strategies"`
	Count      int            `json:"count" example:"1"`
}

// ServiceItem is one catalog service.
type ServiceItem struct {
	ID            string `json:"id" example:"youtube"`
	DisplayName   string `json:"display_name" example:"YouTube"`
	Category      string `json:"category" example:"video"`
	MainDomain    string `json:"main_domain" example:"youtube.com"`
	IconEmoji     string `json:"icon_emoji"`
	StrategyCount int64  `json:"strategy_count" example:"3"`
}

// ServicesResponse is returned by GET /services.
type ServicesResponse struct {
	Services []ServiceItem `json:"services"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status           string `json:"status" example:"ok"`
	StrategiesCount  int64  `json:"strategies_count"`
	VerifiedCount    int64  `json:"verified_count"`
	UnconfirmedCount int64  `json:"unconfirmed_count"`
	DegradedCount    int64  `json:"degraded_count"`
	StaleCount       int64  `json:"stale_count"`
	DBConnected      bool   `json:"db_connected"`
}

// CleanupResponse is returned by POST /maintenance/cleanup.
type CleanupResponse struct {
	StaleMarked    int64 `json:"stale_marked"`
	DegradedMarked int64 `json:"degraded_marked"`
	Skipped        bool  `json:"skipped,omitempty"`
}

// RootResponse describes the service at GET /.
type RootResponse struct {
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

type errorResponse struct {
	Error   string                  `json:"error" example:"provider is required"`
	Details []validation.FieldError `json:"details,omitempty"`
}

// ---------------------------------------------------------------------------
// GET /strategies
// ---------------------------------------------------------------------------

// GetStrategies godoc
//
//	@Summary		Top strategies
//	@Description	Returns the best strategies for a provider × service pair, borrowing proven strategies from other providers when local data is sparse.
//	@Tags			strategies
//	@Produce		json
//	@Param			provider	query		string	true	"Provider ID"	example(rostelecom)
//	@Param			service		query		string	true	"Service ID"	example(youtube)
//	@Success		200			{object}	StrategiesResponse
//	@Failure		400			{object}	errorResponse
//	@Failure		500			{object}	errorResponse
//	@Router			/strategies [get]
func (h *Handler) GetStrategies(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	service := r.URL.Query().Get("service")
	if provider == "" {
		writeErr(w, http.StatusBadRequest, "provider is required")
		return
	}
	if service == "" {
		writeErr(w, http.StatusBadRequest, "service is required")
		return
	}

	list, err := h.engine.TopStrategies(r.Context(), provider, service)
	if err != nil {
		slog.Error("top strategies", "provider_id", provider, "service_id", service, "error", err)
		writeErr(w, http.StatusInternalServerError, "failed to fetch strategies")
		return
	}

	items := make([]StrategyItem, len(list))
	for i, s := range list {
		items[i] = StrategyItem{
			ID:            s.ID,
			ProviderID:    s.ProviderID,
			ZapretArgs:    s.Configuration,
			SuccessCount:  s.SuccessCount,
			FailCount:     s.FailCount,
			SuccessRate:   round(s.SuccessRate(), 4),
			AvgLatencyMS:  round(s.AvgLatencyMS, 1),
			Status:        string(s.Status),
			LastConfirmed: s.LastConfirmed,
		}
	}

	writeJSON(w, http.StatusOK, StrategiesResponse{Strategies: items, Count: len(items)})
}

// ---------------------------------------------------------------------------
// POST /report
// ---------------------------------------------------------------------------

// PostReport godoc
//
//	@Summary		Submit a report
//	@Description	Records an anonymous pass/fail report for a strategy. Limited per fingerprint over a sliding hour.
//	@Tags			reports
//	@Accept			json
//	@Produce		json
//	@Param			report	body		ReportRequest	true	"Report"
//	@Success		200		{object}	ReportResponse
//	@Failure		400		{object}	errorResponse
//	@Failure		413		{object}	errorResponse
//	@Failure		429		{object}	ReportResponse
//	@Failure		500		{object}	errorResponse
//	@Router			/report [post]
func (h *Handler) PostReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ReportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReportBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErr(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeErr(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := validation.Struct(&req); err != nil {
		resp := errorResponse{Error: err.Error()}
		var verr *validation.Error
		if errors.As(err, &verr) {
			resp.Details = verr.Fields
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	success := true
	if req.Success != nil {
		success = *req.Success
	}

	out, err := h.engine.RecordReport(r.Context(), strategy.ReportInput{
		ProviderID:    req.ProviderID,
		ServiceID:     req.ServiceID,
		Configuration: req.ZapretArgs,
		Success:       success,
		LatencyMS:     req.LatencyMS,
		Fingerprint:   req.Fingerprint,
		ClientVersion: req.ClientVersion,
	})
	switch {
	case errors.Is(err, crowd.ErrRateLimited):
		w.Header().Set("Retry-After", strconv.Itoa(int(h.retryAfter.Seconds())))
		writeJSON(w, http.StatusTooManyRequests, ReportResponse{Status: "rate_limited"})
		return
	case errors.Is(err, crowd.ErrMalformedConfiguration):
		writeErr(w, http.StatusBadRequest, "zapret_args must contain at least one non-blank argument")
		return
	case err != nil:
		slog.Error("record report",
			"provider_id", req.ProviderID,
			"service_id", req.ServiceID,
			"error", err,
		)
		writeErr(w, http.StatusInternalServerError, "failed to record report")
		return
	}

	slog.Info("report accepted",
		"provider_id", req.ProviderID,
		"service_id", req.ServiceID,
		"strategy_id", out.StrategyID,
		"strategy_status", out.Status,
		"success", success,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	writeJSON(w, http.StatusOK, ReportResponse{
		Status:         "accepted",
		StrategyID:     out.StrategyID,
		StrategyStatus: string(out.Status),
	})
}

// ---------------------------------------------------------------------------
// GET /services
// ---------------------------------------------------------------------------

// GetServices godoc
//
//	@Summary		Service catalog
//	@Description	Lists catalog services with the provider's count of recommendable strategies.
//	@Tags			services
//	@Produce		json
//	@Param			provider	query		string	true	"Provider ID"	example(rostelecom)
//	@Success		200			{object}	ServicesResponse
//	@Failure		400			{object}	errorResponse
//	@Failure		500			{object}	errorResponse
//	@Router			/services [get]
func (h *Handler) GetServices(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		writeErr(w, http.StatusBadRequest, "provider is required")
		return
	}

	entries, err := h.engine.ServiceCatalogCounts(r.Context(), provider)
	if err != nil {
		slog.Error("service catalog", "provider_id", provider, "error", err)
		writeErr(w, http.StatusInternalServerError, "failed to list services")
		return
	}

	items := make([]ServiceItem, len(entries))
	for i, e := range entries {
		items[i] = ServiceItem{
			ID:            e.ID,
			DisplayName:   e.DisplayName,
			Category:      e.Category,
			MainDomain:    e.MainDomain,
			IconEmoji:     e.IconEmoji,
			StrategyCount: e.StrategyCount,
		}
	}
	writeJSON(w, http.StatusOK, ServicesResponse{Services: items})
}

// ---------------------------------------------------------------------------
// GET /health
// ---------------------------------------------------------------------------

// Health godoc
//
//	@Summary		Strategy statistics
//	@Description	Aggregate strategy counts per status. Reports db_connected=false instead of failing when the store is unreachable.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	c, err := h.engine.HealthStats(r.Context())
	if err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusOK, HealthResponse{Status: "error"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:           "ok",
		StrategiesCount:  c.Total,
		VerifiedCount:    c.Verified,
		UnconfirmedCount: c.Unconfirmed,
		DegradedCount:    c.Degraded,
		StaleCount:       c.Stale,
		DBConnected:      true,
	})
}

// ---------------------------------------------------------------------------
// POST /maintenance/cleanup
// ---------------------------------------------------------------------------

// Cleanup godoc
//
//	@Summary		Run the maintenance sweep
//	@Description	Marks stale and degraded strategies. Requires the maintenance token.
//	@Tags			maintenance
//	@Produce		json
//	@Param			X-Maintenance-Token	header		string	true	"Maintenance token"
//	@Success		200					{object}	CleanupResponse
//	@Failure		403					{object}	errorResponse
//	@Failure		500					{object}	errorResponse
//	@Router			/maintenance/cleanup [post]
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r.Header.Get(MaintenanceTokenHeader)) {
		writeErr(w, http.StatusForbidden, "invalid maintenance token")
		return
	}

	res, err := h.engine.RunMaintenanceSweep(r.Context())
	if err != nil {
		slog.Error("maintenance sweep", "error", err)
		writeErr(w, http.StatusInternalServerError, "maintenance sweep failed")
		return
	}

	writeJSON(w, http.StatusOK, CleanupResponse{
		StaleMarked:    res.Stale,
		DegradedMarked: res.Degraded,
		Skipped:        res.Skipped,
	})
}

func (h *Handler) authorized(token string) bool {
	if h.maintenanceToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.maintenanceToken)) == 1
}

// ---------------------------------------------------------------------------
// GET /
// ---------------------------------------------------------------------------

// Root describes the service and its endpoints.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Service: "PODSOS Crowdsource Server",
		Version: Version,
		Endpoints: []string{
			"GET /strategies?provider=X&service=Y",
			"POST /report",
			"GET /services?provider=X",
			"GET /health",
		},
	})
}

// Version is reported by GET /.
var Version = "0.1.0"

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

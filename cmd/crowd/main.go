// Service crowd is the crowdsource server: it collects anonymous strategy
// reports, maintains the per-provider consensus and serves the best
// strategies back to clients.
//
//	@title			PODSOS Crowdsource API
//	@version		0.1.0
//	@description	Crowdsourced DPI-circumvention strategy consensus.
//	@host			localhost:8080
//	@BasePath		/
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/OCAVIT/podsos-crowdsource-server/internal/collector"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/config"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/crowd"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/crowdapi"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/db"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/metrics"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/models"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/ratelimit"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/strategy"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/sweeper"

	_ "github.com/OCAVIT/podsos-crowdsource-server/docs/swagger" // generated swagger docs
)

const serviceName = "crowd"

func main() {
	cfg := config.LoadCrowd()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.MaintenanceToken == "" {
		slog.Warn("MAINTENANCE_TOKEN is empty, /maintenance/cleanup is disabled")
	}

	connCtx, connCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer connCancel()

	pool, err := db.Connect(connCtx, cfg.DatabaseURL, db.DefaultPool())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	schemaVersion, err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsDir)
	if err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	th := cfg.Thresholds()
	store := strategy.NewStore(pool, th)
	limiter := ratelimit.New(store, cfg.MaxReportsPerHour)
	sw := sweeper.New(store, th)
	engine := crowd.New(store, limiter, sw, cfg.Ranking())
	handler := crowdapi.NewHandler(engine, cfg.MaintenanceToken, limiter.Window())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go sw.Run(ctx, cfg.SweepInterval)
	go collector.Run(ctx, cfg.CollectInterval, engine)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", crowdapi.MaintenanceTokenHeader},
		MaxAge:         300,
	}))

	// Health probes.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, models.ProbeResponse{Status: "ok", Service: serviceName})
	})
	r.Get("/readyz", readyz(pool, schemaVersion))
	r.Handle("/metrics", metrics.Handler())

	// API routes.
	var reportMW []func(http.Handler) http.Handler
	if cfg.IPRateLimit > 0 {
		reportMW = append(reportMW, httprate.LimitByIP(cfg.IPRateLimit, time.Minute))
	}
	handler.Register(r, reportMW...)

	// Swagger UI.
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	serve(ctx, cfg.Base, r)
}

func readyz(pool *sql.DB, schemaVersion uint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Healthy(r.Context(), pool); err != nil {
			writeJSON(w, http.StatusServiceUnavailable,
				models.ProbeResponse{Status: "unavailable", Service: serviceName})
			return
		}
		writeJSON(w, http.StatusOK,
			models.ProbeResponse{Status: "ready", Service: serviceName, SchemaVersion: schemaVersion})
	}
}

func serve(ctx context.Context, cfg config.Base, handler http.Handler) {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("crowd listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		slog.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

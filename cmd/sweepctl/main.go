// Command sweepctl triggers one maintenance sweep on a running crowd server.
// It is meant to be run from cron or a scheduled job.  Exit status is 0 on
// success, 1 on failure and 2 when the token is rejected.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/OCAVIT/podsos-crowdsource-server/internal/config"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/httpx"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/maintenance"
)

func main() {
	cfg := config.LoadSweepCtl()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLevel(cfg.LogLevel),
	})))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := maintenance.NewClient(
		httpx.NewClient(cfg.UpstreamTimeout, cfg.MaxRetries),
		cfg.BaseURL,
		cfg.MaintenanceToken,
	)

	res, err := client.Cleanup(ctx)
	if errors.Is(err, maintenance.ErrForbidden) {
		slog.Error("maintenance token rejected", "base_url", cfg.BaseURL)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("maintenance sweep failed", "base_url", cfg.BaseURL, "error", err)
		os.Exit(1)
	}

	slog.Info("maintenance sweep done",
		"base_url", cfg.BaseURL,
		"stale", res.StaleMarked,
		"degraded", res.DegradedMarked,
		"skipped", res.Skipped,
	)
}

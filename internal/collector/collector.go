// Package collector periodically snapshots the strategy status counts into
// Prometheus gauges so dashboards do not have to poll GET /health.
package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/OCAVIT/podsos-crowdsource-server/internal/consensus"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/metrics"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/strategy"
)

// DefaultInterval is how often Run refreshes the gauges.
const DefaultInterval = time.Minute

// StatusSource reads the aggregate strategy counts.
type StatusSource interface {
	HealthStats(ctx context.Context) (strategy.StatusCounts, error)
}

// Run is the owner goroutine for the collect loop.  It collects once
// immediately, then every interval, and blocks until ctx is cancelled.
func Run(ctx context.Context, interval time.Duration, src StatusSource) {
	slog.Info("status collector started", "interval", interval)

	_ = CollectOnce(ctx, src)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("status collector stopped")
			return
		case <-ticker.C:
			_ = CollectOnce(ctx, src)
		}
	}
}

// CollectOnce refreshes the gauges.  On error the previous values are kept.
func CollectOnce(ctx context.Context, src StatusSource) error {
	c, err := src.HealthStats(ctx)
	if err != nil {
		slog.Error("collect status counts", "error", err)
		return err
	}

	for status, n := range map[consensus.Status]int64{
		consensus.StatusVerified:    c.Verified,
		consensus.StatusUnconfirmed: c.Unconfirmed,
		consensus.StatusDegraded:    c.Degraded,
		consensus.StatusStale:       c.Stale,
	} {
		metrics.StrategiesByStatus.WithLabelValues(string(status)).Set(float64(n))
	}

	slog.Debug("status counts collected", "total", c.Total)
	return nil
}

// Package sweeper runs the maintenance sweep that demotes strategies to
// stale (no recent confirmation) or degraded (poor success rate).
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/OCAVIT/podsos-crowdsource-server/internal/consensus"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/metrics"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/strategy"
)

// DefaultInterval is how often Run sweeps.
const DefaultInterval = 24 * time.Hour

// Demoter applies both demotion rules atomically.  It returns
// strategy.ErrSweepLocked when another sweep is in progress.
type Demoter interface {
	Sweep(ctx context.Context, staleCutoff time.Time, th consensus.Thresholds) (strategy.SweepCounts, error)
}

// Result is the number of strategies each rule demoted.
type Result struct {
	Stale    int64 `json:"stale_marked"`
	Degraded int64 `json:"degraded_marked"`
	// Skipped is true when another sweep held the lock.
	Skipped bool `json:"skipped,omitempty"`
}

// Sweeper owns the demotion rules.  The ticker loop and the on-demand
// trigger both go through Sweep.
type Sweeper struct {
	store      Demoter
	thresholds consensus.Thresholds
	now        func() time.Time
}

// New creates a Sweeper.
func New(store Demoter, th consensus.Thresholds) *Sweeper {
	return &Sweeper{store: store, thresholds: th, now: time.Now}
}

// WithClock returns a copy of s using now as its time source.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	c := *s
	c.now = now
	return &c
}

// Sweep runs both rules once.  A sweep already running elsewhere is not an
// error: the result is marked Skipped.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	runID := uuid.New()
	start := s.now()
	cutoff := start.Add(-s.thresholds.StaleAge)

	counts, err := s.store.Sweep(ctx, cutoff, s.thresholds)
	if errors.Is(err, strategy.ErrSweepLocked) {
		metrics.SweepRuns.WithLabelValues("locked").Inc()
		slog.Info("sweep skipped, another sweep holds the lock", "run_id", runID)
		return Result{Skipped: true}, nil
	}
	if err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		return Result{}, err
	}

	metrics.SweepRuns.WithLabelValues("ok").Inc()
	metrics.SweepTransitions.WithLabelValues(string(consensus.StatusStale)).Add(float64(counts.Stale))
	metrics.SweepTransitions.WithLabelValues(string(consensus.StatusDegraded)).Add(float64(counts.Degraded))
	metrics.SweepLastSuccess.Set(float64(s.now().Unix()))

	slog.Info("sweep done",
		"run_id", runID,
		"stale", counts.Stale,
		"degraded", counts.Degraded,
		"stale_cutoff", cutoff,
	)
	return Result{Stale: counts.Stale, Degraded: counts.Degraded}, nil
}

// Run sweeps every interval until ctx is cancelled.  Failures are logged
// and the next tick tries again; a missed sweep only delays demotion.
//
// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	slog.Info("sweeper started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweeper loop stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				slog.Error("sweep failed", "error", err)
			}
		}
	}
}

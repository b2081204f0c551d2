// Package crowd is the consensus engine: it ingests anonymous strategy
// reports, ranks strategies for a provider × service pair and exposes the
// aggregate views and maintenance sweep to the HTTP layer.
package crowd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/OCAVIT/podsos-crowdsource-server/internal/confighash"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/metrics"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/strategy"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/sweeper"
)

// Store is the consensus store as seen by the engine.
type Store interface {
	RecordReport(ctx context.Context, in strategy.ReportInput) (strategy.Outcome, error)
	LocalStrategies(ctx context.Context, providerID, serviceID string, limit int) ([]strategy.Strategy, error)
	FallbackStrategies(ctx context.Context, serviceID, excludeProvider string, minRate float64, limit int) ([]strategy.Strategy, error)
	ServiceCatalog(ctx context.Context, providerID string) ([]strategy.CatalogEntry, error)
	StatusCounts(ctx context.Context) (strategy.StatusCounts, error)
}

// Limiter decides whether a fingerprint may submit another report.  Bound
// exposes the same ceiling and window so the store can enforce it again
// inside the report transaction.
type Limiter interface {
	Allowed(ctx context.Context, fingerprint string) (bool, error)
	Bound() (ceiling int, since time.Time)
}

// Sweeper runs the maintenance demotion rules once.
type Sweeper interface {
	Sweep(ctx context.Context) (sweeper.Result, error)
}

// Engine wires the consensus components together.  It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	store   Store
	limiter Limiter
	sweeper Sweeper
	ranking Ranking
	now     func() time.Time
}

// New creates an Engine.
func New(store Store, limiter Limiter, sw Sweeper, ranking Ranking) *Engine {
	return &Engine{
		store:   store,
		limiter: limiter,
		sweeper: sw,
		ranking: ranking,
		now:     time.Now,
	}
}

// WithClock returns a copy of e using now to timestamp reports.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	c := *e
	c.now = now
	return &c
}

// ---------------------------------------------------------------------------
// RecordReport
// ---------------------------------------------------------------------------

// RecordReport rate-limits the fingerprint, guards against an empty
// configuration and records the report atomically.  It returns
// ErrRateLimited, ErrMalformedConfiguration or a *PersistenceError.
// ReportedAt is always set from the engine clock.
//
// Allowed is a cheap early reject.  Concurrent reports of one fingerprint
// can all pass it, so the store re-checks the quota under a per-fingerprint
// lock in the same transaction as the insert.
func (e *Engine) RecordReport(ctx context.Context, in strategy.ReportInput) (strategy.Outcome, error) {
	allowed, err := e.limiter.Allowed(ctx, in.Fingerprint)
	if err != nil {
		metrics.ReportsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return strategy.Outcome{}, persistence("rate limit", err)
	}
	if !allowed {
		metrics.ReportsTotal.WithLabelValues(metrics.OutcomeRateLimited).Inc()
		return strategy.Outcome{}, ErrRateLimited
	}

	if len(confighash.Normalize(in.Configuration)) == 0 {
		metrics.ReportsTotal.WithLabelValues(metrics.OutcomeMalformed).Inc()
		return strategy.Outcome{}, ErrMalformedConfiguration
	}

	in.ReportedAt = e.now().UTC()
	in.MaxReports, in.WindowStart = e.limiter.Bound()

	start := time.Now()
	out, err := e.store.RecordReport(ctx, in)
	metrics.RecordDuration.Observe(time.Since(start).Seconds())
	if errors.Is(err, strategy.ErrQuotaExceeded) {
		metrics.ReportsTotal.WithLabelValues(metrics.OutcomeRateLimited).Inc()
		return strategy.Outcome{}, ErrRateLimited
	}
	if err != nil {
		metrics.ReportsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return strategy.Outcome{}, persistence("record report", err)
	}

	metrics.ReportsTotal.WithLabelValues(metrics.OutcomeAccepted).Inc()
	if out.Created {
		metrics.StrategiesCreated.Inc()
	}

	slog.Debug("report recorded",
		"provider_id", in.ProviderID,
		"service_id", in.ServiceID,
		"strategy_id", out.StrategyID,
		"success", in.Success,
		"status", out.Status,
		"created", out.Created,
	)
	return out, nil
}

// ---------------------------------------------------------------------------
// TopStrategies
// ---------------------------------------------------------------------------

// TopStrategies returns the best recommendable strategies for the pair.
// When fewer than MinLocal local strategies exist it borrows verified,
// high-rate strategies for the same service from other providers, up to
// Limit in total.
func (e *Engine) TopStrategies(ctx context.Context, providerID, serviceID string) ([]strategy.Strategy, error) {
	local, err := e.store.LocalStrategies(ctx, providerID, serviceID, e.ranking.Limit)
	if err != nil {
		return nil, persistence("top strategies", err)
	}

	merged, _ := e.ranking.merge(providerID, local, nil)
	if !e.ranking.needsFallback(len(merged)) {
		metrics.Recommendations.WithLabelValues("local").Add(float64(len(merged)))
		return merged, nil
	}

	fallback, err := e.store.FallbackStrategies(ctx, serviceID, providerID,
		e.ranking.FallbackRate, e.ranking.Limit-len(merged))
	if err != nil {
		return nil, persistence("fallback strategies", err)
	}

	merged, borrowed := e.ranking.merge(providerID, local, fallback)
	metrics.Recommendations.WithLabelValues("local").Add(float64(len(merged) - borrowed))
	metrics.Recommendations.WithLabelValues("fallback").Add(float64(borrowed))

	slog.Debug("fallback strategies used",
		"provider_id", providerID,
		"service_id", serviceID,
		"local", len(merged)-borrowed,
		"borrowed", borrowed,
	)
	return merged, nil
}

// ---------------------------------------------------------------------------
// Aggregates and maintenance
// ---------------------------------------------------------------------------

// ServiceCatalogCounts returns the service catalog with the provider's
// recommendable strategy count per service.
func (e *Engine) ServiceCatalogCounts(ctx context.Context, providerID string) ([]strategy.CatalogEntry, error) {
	entries, err := e.store.ServiceCatalog(ctx, providerID)
	if err != nil {
		return nil, persistence("service catalog", err)
	}
	return entries, nil
}

// HealthStats returns the number of strategies per status.
func (e *Engine) HealthStats(ctx context.Context) (strategy.StatusCounts, error) {
	c, err := e.store.StatusCounts(ctx)
	if err != nil {
		return strategy.StatusCounts{}, persistence("health stats", err)
	}
	return c, nil
}

// RunMaintenanceSweep runs the demotion rules once, on demand.
func (e *Engine) RunMaintenanceSweep(ctx context.Context) (sweeper.Result, error) {
	res, err := e.sweeper.Sweep(ctx)
	if err != nil {
		return sweeper.Result{}, persistence("maintenance sweep", err)
	}
	return res, nil
}

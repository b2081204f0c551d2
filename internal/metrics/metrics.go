// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Report outcomes used as the "outcome" label of ReportsTotal.
const (
	OutcomeAccepted    = "accepted"
	OutcomeRateLimited = "rate_limited"
	OutcomeMalformed   = "malformed"
	OutcomeError       = "error"
)

var (
	// ReportsTotal counts report submissions by outcome.
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowd_reports_total",
			Help: "Report submissions by outcome",
		},
		[]string{"outcome"},
	)

	// StrategiesCreated counts strategies created by a first report.
	StrategiesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crowd_strategies_created_total",
			Help: "Strategies created by their first report",
		},
	)

	// RecordDuration observes the atomic upsert transaction.
	RecordDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crowd_record_report_duration_seconds",
			Help:    "Duration of the report upsert transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Recommendations counts strategies served, by source.
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowd_recommendations_total",
			Help: "Strategies returned to clients by source (local, fallback)",
		},
		[]string{"source"},
	)

	// SweepTransitions counts rows demoted by the maintenance sweep.
	SweepTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowd_sweep_transitions_total",
			Help: "Strategies demoted by the maintenance sweep",
		},
		[]string{"status"},
	)

	// SweepRuns counts sweep attempts by result (ok, locked, error).
	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowd_sweep_runs_total",
			Help: "Maintenance sweep runs by result",
		},
		[]string{"result"},
	)

	// StrategiesByStatus is the latest strategy count per status.
	StrategiesByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crowd_strategies",
			Help: "Strategies per consensus status",
		},
		[]string{"status"},
	)

	// SweepLastSuccess is the unix time of the last successful sweep.
	SweepLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crowd_sweep_last_success_timestamp",
			Help: "Unix timestamp of the last successful maintenance sweep",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package consensus maps accumulated votes for a strategy to its trust
// status.
package consensus

import (
	"fmt"
	"time"
)

// Status is the derived trust level of a strategy.
type Status string

const (
	StatusUnconfirmed Status = "unconfirmed"
	StatusVerified    Status = "verified"
	StatusDegraded    Status = "degraded"
	StatusStale       Status = "stale"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusVerified, StatusUnconfirmed, StatusDegraded, StatusStale}

// Recommendable reports whether strategies in this status may be served to
// clients.
func (s Status) Recommendable() bool {
	return s == StatusVerified || s == StatusUnconfirmed
}

// ParseStatus converts a stored status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusUnconfirmed, StatusVerified, StatusDegraded, StatusStale:
		return st, nil
	}
	return "", fmt.Errorf("unknown strategy status %q", s)
}

// Thresholds drive status evaluation and the maintenance sweep.
type Thresholds struct {
	// MinVotes is the total vote count needed to leave unconfirmed.
	MinVotes int
	// VerifiedRate is the inclusive success rate for verified.
	VerifiedRate float64
	// StaleRate is the exclusive success rate below which a strategy is
	// stale on report, or degraded on sweep.
	StaleRate float64
	// StaleAge is how long a strategy may go without a confirmation
	// before the sweep marks it stale.
	StaleAge time.Duration
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinVotes:     5,
		VerifiedRate: 0.60,
		StaleRate:    0.40,
		StaleAge:     7 * 24 * time.Hour,
	}
}

// Evaluate returns the status for the given post-report vote counts.
// It is pure: age-based demotion belongs to the sweeper.
func (t Thresholds) Evaluate(successCount, failCount int64) Status {
	total := successCount + failCount
	if total < int64(t.MinVotes) || total == 0 {
		return StatusUnconfirmed
	}
	rate := float64(successCount) / float64(total)
	switch {
	case rate >= t.VerifiedRate:
		return StatusVerified
	case rate < t.StaleRate:
		return StatusStale
	default:
		return StatusUnconfirmed
	}
}

// SuccessRate returns success/(success+fail), or 0 with no votes.
func SuccessRate(successCount, failCount int64) float64 {
	total := successCount + failCount
	if total <= 0 {
		return 0
	}
	return float64(successCount) / float64(total)
}

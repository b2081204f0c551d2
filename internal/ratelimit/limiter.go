// Package ratelimit bounds how many reports one anonymous fingerprint may
// submit within a trailing window.  The window is recomputed from the report
// log on every call; the limiter keeps no counters of its own.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// DefaultWindow is the trailing window reports are counted over.
const DefaultWindow = time.Hour

// ReportCounter counts stored reports for a fingerprint strictly after since.
type ReportCounter interface {
	CountReportsSince(ctx context.Context, fingerprint string, since time.Time) (int, error)
}

// Limiter enforces a per-fingerprint ceiling over a sliding window.
type Limiter struct {
	counter ReportCounter
	ceiling int
	window  time.Duration
	now     func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithWindow overrides the one-hour window.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) { l.window = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter allowing ceiling reports per window.
func New(counter ReportCounter, ceiling int, opts ...Option) *Limiter {
	l := &Limiter{
		counter: counter,
		ceiling: ceiling,
		window:  DefaultWindow,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allowed reports whether fingerprint may submit another report now, that
// is, whether fewer than the ceiling reports fall inside the trailing window.
func (l *Limiter) Allowed(ctx context.Context, fingerprint string) (bool, error) {
	_, since := l.Bound()
	n, err := l.counter.CountReportsSince(ctx, fingerprint, since)
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", truncate(fingerprint), err)
	}
	return n < l.ceiling, nil
}

// Bound returns the ceiling and the exclusive start of the current window,
// for callers that re-check the quota atomically with the write.
func (l *Limiter) Bound() (ceiling int, since time.Time) {
	return l.ceiling, l.now().Add(-l.window)
}

// Window returns the configured window, used for Retry-After hints.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// truncate keeps fingerprints short in error messages and logs.
func truncate(fp string) string {
	if len(fp) > 8 {
		return fp[:8] + "..."
	}
	return fp
}

package strategy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/OCAVIT/podsos-crowdsource-server/internal/confighash"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/consensus"
)

// ErrSweepLocked is returned by Sweep when another sweep holds the lock.
var ErrSweepLocked = errors.New("maintenance sweep already running")

// ErrQuotaExceeded is returned by RecordReport when the fingerprint already
// has MaxReports reports inside the window.
var ErrQuotaExceeded = errors.New("report quota exceeded")

// Strategy is a typed strategies row.
type Strategy struct {
	ID                int64
	ProviderID        string
	ServiceID         string
	Configuration     []string
	ConfigurationHash string
	SuccessCount      int64
	FailCount         int64
	AvgLatencyMS      float64
	Status            consensus.Status
	FirstReported     time.Time
	// LastConfirmed is nil until the first successful report.
	LastConfirmed *time.Time
}

// SuccessRate returns the share of successful votes.
func (s Strategy) SuccessRate() float64 {
	return consensus.SuccessRate(s.SuccessCount, s.FailCount)
}

// ReportInput is a single validated report submission.
type ReportInput struct {
	ProviderID    string
	ServiceID     string
	Configuration []string
	Success       bool
	LatencyMS     float64
	Fingerprint   string
	ClientVersion string
	ReportedAt    time.Time

	// MaxReports, when positive, caps the fingerprint's reports after
	// WindowStart.  The check runs inside the report transaction.
	MaxReports  int
	WindowStart time.Time
}

// Outcome is the result of recording one report.
type Outcome struct {
	StrategyID   int64
	ReportID     uuid.UUID
	Status       consensus.Status
	SuccessCount int64
	FailCount    int64
	// Created is true when this report created the strategy row.
	Created bool
}

// CatalogEntry is a catalog service with its recommendable strategy count
// for one provider.
type CatalogEntry struct {
	ID            string
	DisplayName   string
	Category      string
	MainDomain    string
	IconEmoji     string
	StrategyCount int64
}

// StatusCounts aggregates strategies per status.
type StatusCounts struct {
	Total       int64
	Verified    int64
	Unconfirmed int64
	Degraded    int64
	Stale       int64
}

// SweepCounts is the number of rows each sweep rule demoted.
type SweepCounts struct {
	Stale    int64
	Degraded int64
}

// Store persists strategies and reports to PostgreSQL.
// It is safe for concurrent use; all serialization happens in PostgreSQL.
type Store struct {
	db         *sql.DB
	thresholds consensus.Thresholds
	newID      func() uuid.UUID
}

// NewStore creates a Store that evaluates statuses with th.
func NewStore(db *sql.DB, th consensus.Thresholds) *Store {
	return &Store{db: db, thresholds: th, newID: uuid.New}
}

// ---------------------------------------------------------------------------
// RecordReport
// ---------------------------------------------------------------------------

// RecordReport upserts the strategy for the report's triple, recomputes its
// status from the post-increment counts and appends the report row, all in
// one transaction.  Any failure rolls the whole unit back.
func (s *Store) RecordReport(ctx context.Context, in ReportInput) (Outcome, error) {
	cfgJSON, err := json.Marshal(in.Configuration)
	if err != nil {
		return Outcome{}, fmt.Errorf("marshal configuration: %w", err)
	}
	hash := confighash.Sum(in.Configuration)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if in.MaxReports > 0 {
		if _, err := tx.ExecContext(ctx, queryLockFingerprint, in.Fingerprint); err != nil {
			return Outcome{}, fmt.Errorf("lock fingerprint: %w", err)
		}
		var n int
		if err := tx.QueryRowContext(ctx, queryCountReportsSince, in.Fingerprint, in.WindowStart).Scan(&n); err != nil {
			return Outcome{}, fmt.Errorf("count reports: %w", err)
		}
		if n >= in.MaxReports {
			return Outcome{}, ErrQuotaExceeded
		}
	}

	var row *sql.Row
	if in.Success {
		row = tx.QueryRowContext(ctx, queryUpsertSuccess,
			in.ProviderID, in.ServiceID, string(cfgJSON), hash, in.LatencyMS, in.ReportedAt)
	} else {
		row = tx.QueryRowContext(ctx, queryUpsertFailure,
			in.ProviderID, in.ServiceID, string(cfgJSON), hash, in.ReportedAt)
	}

	var out Outcome
	if err := row.Scan(&out.StrategyID, &out.SuccessCount, &out.FailCount, &out.Created); err != nil {
		return Outcome{}, fmt.Errorf("upsert strategy: %w", err)
	}

	out.Status = s.thresholds.Evaluate(out.SuccessCount, out.FailCount)
	if _, err := tx.ExecContext(ctx, queryUpdateStatus, out.StrategyID, string(out.Status)); err != nil {
		return Outcome{}, fmt.Errorf("update status %d: %w", out.StrategyID, err)
	}

	out.ReportID = s.newID()
	if _, err := tx.ExecContext(ctx, queryInsertReport,
		out.ReportID,
		out.StrategyID,
		in.Fingerprint,
		in.Success,
		in.LatencyMS,
		in.ClientVersion,
		in.ReportedAt,
	); err != nil {
		return Outcome{}, fmt.Errorf("insert report: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Outcome{}, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// LocalStrategies returns up to limit recommendable strategies for the exact
// provider × service pair, best first.
func (s *Store) LocalStrategies(ctx context.Context, providerID, serviceID string, limit int) ([]Strategy, error) {
	rows, err := s.db.QueryContext(ctx, queryLocalStrategies, providerID, serviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("local strategies: %w", err)
	}
	return scanStrategies(rows)
}

// FallbackStrategies returns up to limit verified strategies for the service
// from providers other than excludeProvider with a success rate of at least
// minRate, best first.
func (s *Store) FallbackStrategies(ctx context.Context, serviceID, excludeProvider string, minRate float64, limit int) ([]Strategy, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, queryFallbackStrategies, serviceID, excludeProvider, minRate, limit)
	if err != nil {
		return nil, fmt.Errorf("fallback strategies: %w", err)
	}
	return scanStrategies(rows)
}

// ServiceCatalog returns every catalog service with the provider's count of
// recommendable strategies, most covered first.
func (s *Store) ServiceCatalog(ctx context.Context, providerID string) ([]CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryServiceCatalog, providerID)
	if err != nil {
		return nil, fmt.Errorf("service catalog: %w", err)
	}
	defer rows.Close()

	var entries []CatalogEntry
	for rows.Next() {
		var e CatalogEntry
		if err := rows.Scan(&e.ID, &e.DisplayName, &e.Category, &e.MainDomain, &e.IconEmoji, &e.StrategyCount); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// StatusCounts returns the number of strategies per status.
func (s *Store) StatusCounts(ctx context.Context) (StatusCounts, error) {
	var c StatusCounts
	err := s.db.QueryRowContext(ctx, queryStatusCounts).Scan(
		&c.Total, &c.Verified, &c.Unconfirmed, &c.Degraded, &c.Stale,
	)
	if err != nil {
		return StatusCounts{}, fmt.Errorf("status counts: %w", err)
	}
	return c, nil
}

// CountReportsSince counts reports by fingerprint strictly after since.
func (s *Store) CountReportsSince(ctx context.Context, fingerprint string, since time.Time) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, queryCountReportsSince, fingerprint, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Sweep
// ---------------------------------------------------------------------------

// Sweep applies both demotion rules in one transaction: strategies not
// confirmed since staleCutoff become stale, then well-voted strategies below
// th.StaleRate become degraded.  Returns ErrSweepLocked when another
// transaction is already sweeping.
func (s *Store) Sweep(ctx context.Context, staleCutoff time.Time, th consensus.Thresholds) (SweepCounts, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SweepCounts{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var locked bool
	if err := tx.QueryRowContext(ctx, queryTrySweepLock, sweepLockKey).Scan(&locked); err != nil {
		return SweepCounts{}, fmt.Errorf("sweep lock: %w", err)
	}
	if !locked {
		return SweepCounts{}, ErrSweepLocked
	}

	var counts SweepCounts

	res, err := tx.ExecContext(ctx, queryMarkStale, staleCutoff)
	if err != nil {
		return SweepCounts{}, fmt.Errorf("mark stale: %w", err)
	}
	if counts.Stale, err = res.RowsAffected(); err != nil {
		return SweepCounts{}, fmt.Errorf("mark stale rows: %w", err)
	}

	res, err = tx.ExecContext(ctx, queryMarkDegraded, th.MinVotes, th.StaleRate)
	if err != nil {
		return SweepCounts{}, fmt.Errorf("mark degraded: %w", err)
	}
	if counts.Degraded, err = res.RowsAffected(); err != nil {
		return SweepCounts{}, fmt.Errorf("mark degraded rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return SweepCounts{}, fmt.Errorf("commit: %w", err)
	}
	return counts, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// scanStrategies converts result rows to typed records and closes rows.
func scanStrategies(rows *sql.Rows) ([]Strategy, error) {
	defer rows.Close()

	var list []Strategy
	for rows.Next() {
		var (
			st        Strategy
			cfgRaw    []byte
			status    string
			confirmed sql.NullTime
		)
		if err := rows.Scan(
			&st.ID,
			&st.ProviderID,
			&st.ServiceID,
			&cfgRaw,
			&st.ConfigurationHash,
			&st.SuccessCount,
			&st.FailCount,
			&st.AvgLatencyMS,
			&status,
			&st.FirstReported,
			&confirmed,
		); err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		if err := json.Unmarshal(cfgRaw, &st.Configuration); err != nil {
			return nil, fmt.Errorf("strategy %d configuration: %w", st.ID, err)
		}
		parsed, err := consensus.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("strategy %d: %w", st.ID, err)
		}
		st.Status = parsed
		if confirmed.Valid {
			t := confirmed.Time
			st.LastConfirmed = &t
		}
		list = append(list, st)
	}
	return list, rows.Err()
}

// Package db opens the PostgreSQL pool backing the consensus store and
// applies the schema migrations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

// Pool sizes the connection pool.  Report ingestion holds a connection for
// the whole upsert transaction, so MaxOpen bounds concurrent writes.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

// DefaultPool returns the production pool settings.
func DefaultPool() Pool {
	return Pool{MaxOpen: 25, MaxIdle: 5, MaxLifetime: 5 * time.Minute}
}

// Connect opens a connection pool to PostgreSQL and verifies connectivity.
func Connect(ctx context.Context, dsn string, p Pool) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	db.SetMaxOpenConns(p.MaxOpen)
	db.SetMaxIdleConns(p.MaxIdle)
	db.SetConnMaxLifetime(p.MaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	slog.Info("database connected", "dsn", RedactDSN(dsn), "max_open", p.MaxOpen)
	return db, nil
}

// Healthy returns nil when the database is reachable.
func Healthy(ctx context.Context, db *sql.DB) error {
	return db.PingContext(ctx)
}

// RedactDSN hides the password of a URL-style DSN.  Keyword/value DSNs are
// reduced to a placeholder since they cannot be redacted reliably.
func RedactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "<redacted>"
	}
	return u.Redacted()
}

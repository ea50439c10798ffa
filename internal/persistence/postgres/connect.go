package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

// Connect opens a pooled connection and verifies it within timeout.
func Connect(ctx context.Context, dsn string, timeout time.Duration) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// EnsureSchema creates the append-only tables when they do not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS outcomes (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			symbol TEXT NOT NULL,
			net_pnl DOUBLE PRECISION NOT NULL,
			slippage_bps DOUBLE PRECISION NOT NULL,
			regime TEXT NOT NULL,
			signals JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_symbol_ts ON outcomes (symbol, ts DESC)`,
		`CREATE TABLE IF NOT EXISTS scored_decisions (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			symbol TEXT NOT NULL,
			regime TEXT NOT NULL,
			signals JSONB,
			weights JSONB,
			realized_ev DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_ts ON scored_decisions (ts DESC)`,
		`CREATE TABLE IF NOT EXISTS audit_trail (
			id UUID PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			kind TEXT NOT NULL,
			symbol TEXT,
			reason TEXT,
			details JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_trail (ts)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/quantgate/internal/persistence"
)

// outcomeRepo implements persistence.OutcomeRepo for PostgreSQL.
type outcomeRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewOutcomeRepo creates a PostgreSQL outcome repository.
func NewOutcomeRepo(db *sqlx.DB, timeout time.Duration) persistence.OutcomeRepo {
	return &outcomeRepo{db: db, timeout: timeout}
}

// Insert appends one outcome record. Outcomes are insert-only.
func (r *outcomeRepo) Insert(ctx context.Context, rec persistence.OutcomeRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	signalsJSON, err := json.Marshal(rec.Signals)
	if err != nil {
		return fmt.Errorf("failed to marshal signals: %w", err)
	}

	query := `
		INSERT INTO outcomes (ts, symbol, net_pnl, slippage_bps, regime, signals)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err = r.db.QueryRowxContext(ctx, query,
		rec.Timestamp, rec.Symbol, rec.NetPnL, rec.SlippageBps, rec.Regime, signalsJSON).
		Scan(&rec.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate outcome: %w", err)
		}
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	return nil
}

// RecentBySymbol returns up to limit outcomes for symbol, newest first.
func (r *outcomeRepo) RecentBySymbol(ctx context.Context, symbol string, limit int) ([]persistence.OutcomeRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, ts, symbol, net_pnl, slippage_bps, regime, signals
		FROM outcomes
		WHERE symbol = $1
		ORDER BY ts DESC
		LIMIT $2`

	rows, err := r.db.QueryxContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var out []persistence.OutcomeRecord
	for rows.Next() {
		var rec persistence.OutcomeRecord
		var signalsJSON []byte
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.Symbol,
			&rec.NetPnL, &rec.SlippageBps, &rec.Regime, &signalsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		if len(signalsJSON) > 0 {
			if err := json.Unmarshal(signalsJSON, &rec.Signals); err != nil {
				return nil, fmt.Errorf("failed to unmarshal signals: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/quantgate/internal/persistence"
)

// decisionRepo implements persistence.DecisionRepo for PostgreSQL.
type decisionRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewDecisionRepo creates a PostgreSQL scored-decision repository.
func NewDecisionRepo(db *sqlx.DB, timeout time.Duration) persistence.DecisionRepo {
	return &decisionRepo{db: db, timeout: timeout}
}

// Insert appends one scored decision.
func (r *decisionRepo) Insert(ctx context.Context, dec persistence.ScoredDecision) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	signalsJSON, err := json.Marshal(dec.Signals)
	if err != nil {
		return fmt.Errorf("failed to marshal signals: %w", err)
	}
	weightsJSON, err := json.Marshal(dec.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}

	query := `
		INSERT INTO scored_decisions (ts, symbol, regime, signals, weights, realized_ev)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err = r.db.QueryRowxContext(ctx, query,
		dec.Timestamp, dec.Symbol, dec.Regime, signalsJSON, weightsJSON, dec.RealizedEV).
		Scan(&dec.ID)
	if err != nil {
		return fmt.Errorf("failed to insert scored decision: %w", err)
	}
	return nil
}

// Recent returns up to limit scored decisions, newest first.
func (r *decisionRepo) Recent(ctx context.Context, limit int) ([]persistence.ScoredDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, ts, symbol, regime, signals, weights, realized_ev
		FROM scored_decisions
		ORDER BY ts DESC
		LIMIT $1`

	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scored decisions: %w", err)
	}
	defer rows.Close()

	var out []persistence.ScoredDecision
	for rows.Next() {
		var dec persistence.ScoredDecision
		var signalsJSON, weightsJSON []byte
		if err := rows.Scan(&dec.ID, &dec.Timestamp, &dec.Symbol, &dec.Regime,
			&signalsJSON, &weightsJSON, &dec.RealizedEV); err != nil {
			return nil, fmt.Errorf("failed to scan scored decision: %w", err)
		}
		if len(signalsJSON) > 0 {
			if err := json.Unmarshal(signalsJSON, &dec.Signals); err != nil {
				return nil, fmt.Errorf("failed to unmarshal signals: %w", err)
			}
		}
		if len(weightsJSON) > 0 {
			if err := json.Unmarshal(weightsJSON, &dec.Weights); err != nil {
				return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
			}
		}
		out = append(out, dec)
	}
	return out, rows.Err()
}

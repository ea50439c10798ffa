package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/quantgate/internal/persistence"
)

// auditRepo implements persistence.AuditRepo for PostgreSQL. Append-only by
// construction: no update or delete statements exist.
type auditRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewAuditRepo creates a PostgreSQL audit repository.
func NewAuditRepo(db *sqlx.DB, timeout time.Duration) persistence.AuditRepo {
	return &auditRepo{db: db, timeout: timeout}
}

// Append inserts one audit record.
func (r *auditRepo) Append(ctx context.Context, rec persistence.AuditRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	detailsJSON, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit_trail (id, ts, kind, symbol, reason, details)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Timestamp, rec.Kind, rec.Symbol, rec.Reason, detailsJSON); err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

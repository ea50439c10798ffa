package persistence

import (
	"context"
	"time"
)

// OutcomeRecord is one closed or blocked decision outcome. Records are
// append-only: written once, never mutated.
type OutcomeRecord struct {
	ID          int64              `json:"id" db:"id"`
	Timestamp   time.Time          `json:"ts" db:"ts"`
	Symbol      string             `json:"symbol" db:"symbol"`
	NetPnL      float64            `json:"net_pnl" db:"net_pnl"`
	SlippageBps float64            `json:"slippage_bps" db:"slippage_bps"`
	Regime      string             `json:"regime" db:"regime"`
	Signals     map[string]float64 `json:"signals" db:"signals"` // normalized per-signal inputs
}

// ScoredDecision is one historical decision with the weights that scored it
// and its realized expected value, consumed by the weight learner.
type ScoredDecision struct {
	ID         int64              `json:"id" db:"id"`
	Timestamp  time.Time          `json:"ts" db:"ts"`
	Symbol     string             `json:"symbol" db:"symbol"`
	Regime     string             `json:"regime" db:"regime"`
	Signals    map[string]float64 `json:"signals" db:"signals"` // normalized values at decision time
	Weights    map[string]float64 `json:"weights" db:"weights"` // weights in force at decision time
	RealizedEV float64            `json:"realized_ev" db:"realized_ev"`
}

// AuditRecord is one entry of the append-only audit trail. Timestamps are
// strictly monotonically increasing within a process (see Auditor).
type AuditRecord struct {
	ID        string                 `json:"id" db:"id"`
	Timestamp time.Time              `json:"ts" db:"ts"`
	Kind      string                 `json:"kind" db:"kind"` // gate_reject, sizing_change, lifecycle, weight_update
	Symbol    string                 `json:"symbol,omitempty" db:"symbol"`
	Reason    string                 `json:"reason,omitempty" db:"reason"`
	Details   map[string]interface{} `json:"details,omitempty" db:"details"`
}

// Audit record kinds.
const (
	AuditGateReject   = "gate_reject"
	AuditSizingChange = "sizing_change"
	AuditLifecycle    = "lifecycle"
	AuditWeightUpdate = "weight_update"
)

// OutcomeRepo stores and reads back decision outcomes.
type OutcomeRepo interface {
	Insert(ctx context.Context, rec OutcomeRecord) error
	RecentBySymbol(ctx context.Context, symbol string, limit int) ([]OutcomeRecord, error)
}

// DecisionRepo stores scored decisions and serves the learner's window.
type DecisionRepo interface {
	Insert(ctx context.Context, dec ScoredDecision) error
	Recent(ctx context.Context, limit int) ([]ScoredDecision, error)
}

// AuditRepo appends audit records. Implementations never update or delete.
type AuditRepo interface {
	Append(ctx context.Context, rec AuditRecord) error
}

package persistence

import (
	"context"
	"sync"
)

// Memory implementations back tests and degraded mode (no database DSN
// configured). They honor the same append-only contract as postgres.

// MemoryOutcomeRepo is an in-memory OutcomeRepo.
type MemoryOutcomeRepo struct {
	mu   sync.Mutex
	recs []OutcomeRecord
}

// NewMemoryOutcomeRepo creates an empty repo.
func NewMemoryOutcomeRepo() *MemoryOutcomeRepo { return &MemoryOutcomeRepo{} }

// Insert implements OutcomeRepo.
func (m *MemoryOutcomeRepo) Insert(_ context.Context, rec OutcomeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = int64(len(m.recs) + 1)
	m.recs = append(m.recs, rec)
	return nil
}

// RecentBySymbol implements OutcomeRepo, newest first.
func (m *MemoryOutcomeRepo) RecentBySymbol(_ context.Context, symbol string, limit int) ([]OutcomeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OutcomeRecord, 0, limit)
	for i := len(m.recs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.recs[i].Symbol == symbol {
			out = append(out, m.recs[i])
		}
	}
	return out, nil
}

// MemoryDecisionRepo is an in-memory DecisionRepo.
type MemoryDecisionRepo struct {
	mu   sync.Mutex
	recs []ScoredDecision
}

// NewMemoryDecisionRepo creates an empty repo.
func NewMemoryDecisionRepo() *MemoryDecisionRepo { return &MemoryDecisionRepo{} }

// Insert implements DecisionRepo.
func (m *MemoryDecisionRepo) Insert(_ context.Context, dec ScoredDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dec.ID = int64(len(m.recs) + 1)
	m.recs = append(m.recs, dec)
	return nil
}

// Recent implements DecisionRepo, newest first.
func (m *MemoryDecisionRepo) Recent(_ context.Context, limit int) ([]ScoredDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ScoredDecision, 0, limit)
	for i := len(m.recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.recs[i])
	}
	return out, nil
}

// MemoryAuditRepo is an in-memory AuditRepo.
type MemoryAuditRepo struct {
	mu   sync.Mutex
	recs []AuditRecord
}

// NewMemoryAuditRepo creates an empty repo.
func NewMemoryAuditRepo() *MemoryAuditRepo { return &MemoryAuditRepo{} }

// Append implements AuditRepo.
func (m *MemoryAuditRepo) Append(_ context.Context, rec AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

// Records returns a copy of the appended records.
func (m *MemoryAuditRepo) Records() []AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AuditRecord, len(m.recs))
	copy(out, m.recs)
	return out
}

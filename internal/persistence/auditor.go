package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Auditor writes audit records with strictly increasing timestamps. Clock
// reads that do not advance past the previous record are bumped by one
// microsecond so the trail stays totally ordered within the process.
type Auditor struct {
	mu   sync.Mutex
	repo AuditRepo
	last time.Time
	now  func() time.Time
}

// NewAuditor wraps the given repo. repo may be a memory or postgres
// implementation; write failures are logged and swallowed so a degraded
// audit sink never blocks a control loop.
func NewAuditor(repo AuditRepo) *Auditor {
	return &Auditor{repo: repo, now: time.Now}
}

// Record appends one audit entry.
func (a *Auditor) Record(ctx context.Context, kind, symbol, reason string, details map[string]interface{}) {
	a.mu.Lock()
	ts := a.now()
	if !ts.After(a.last) {
		ts = a.last.Add(time.Microsecond)
	}
	a.last = ts
	a.mu.Unlock()

	rec := AuditRecord{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Kind:      kind,
		Symbol:    symbol,
		Reason:    reason,
		Details:   details,
	}
	if err := a.repo.Append(ctx, rec); err != nil {
		log.Warn().Err(err).Str("kind", kind).Str("symbol", symbol).Msg("audit append failed")
	}
}

// Package store holds the process's shared mutable control state (size
// multipliers, published weight snapshots) behind one abstraction with
// explicit read-modify-write semantics. There is a single authoritative
// in-memory copy per process; durable backends only absorb periodic
// flushes and seed the copy at startup.
package store

import "context"

// Store is the shared-state abstraction.
type Store interface {
	// GetFloat reads ns/key. ok is false when the key has never been set.
	GetFloat(ctx context.Context, ns, key string) (val float64, ok bool, err error)

	// SetFloat writes ns/key unconditionally.
	SetFloat(ctx context.Context, ns, key string, val float64) error

	// Update applies fn to the current value (or def when unset) under the
	// store lock and returns the new value. This is the read-modify-write
	// primitive; callers never implement their own check-then-set.
	Update(ctx context.Context, ns, key string, def float64, fn func(float64) float64) (float64, error)

	// Flush persists dirty entries to the durable backend, if any.
	Flush(ctx context.Context) error

	// Close flushes and releases backend resources.
	Close(ctx context.Context) error
}

// Namespaces used by the decision core.
const (
	NamespaceSizing = "sizing:multiplier"
)

package store

import (
	"context"
	"sync"
)

// MemoryStore is the authoritative in-memory state map. It is used directly
// in tests and degraded mode, and embedded by the redis-backed store.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]map[string]float64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]float64)}
}

// GetFloat implements Store.
func (m *MemoryStore) GetFloat(_ context.Context, ns, key string) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vals, ok := m.data[ns]
	if !ok {
		return 0, false, nil
	}
	v, ok := vals[key]
	return v, ok, nil
}

// SetFloat implements Store.
func (m *MemoryStore) SetFloat(_ context.Context, ns, key string, val float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(ns, key, val)
	return nil
}

// Update implements Store.
func (m *MemoryStore) Update(_ context.Context, ns, key string, def float64, fn func(float64) float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := def
	if vals, ok := m.data[ns]; ok {
		if v, ok := vals[key]; ok {
			cur = v
		}
	}
	next := fn(cur)
	m.setLocked(ns, key, next)
	return next, nil
}

// Flush implements Store; memory has no durable backend.
func (m *MemoryStore) Flush(context.Context) error { return nil }

// Close implements Store.
func (m *MemoryStore) Close(context.Context) error { return nil }

func (m *MemoryStore) setLocked(ns, key string, val float64) {
	vals, ok := m.data[ns]
	if !ok {
		vals = make(map[string]float64)
		m.data[ns] = vals
	}
	vals[key] = val
}

// snapshot copies the full state for flushing.
func (m *MemoryStore) snapshot() map[string]map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]map[string]float64, len(m.data))
	for ns, vals := range m.data {
		cp := make(map[string]float64, len(vals))
		for k, v := range vals {
			cp[k] = v
		}
		out[ns] = cp
	}
	return out
}

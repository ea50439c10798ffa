package gates

import (
	"sync"
	"time"
)

// hourlyCounter tracks approved trades over a sliding window. It is shared
// mutable state across every evaluation and is guarded by a single mutex.
type hourlyCounter struct {
	mu     sync.Mutex
	window time.Duration
	stamps []time.Time
}

func newHourlyCounter(window time.Duration) *hourlyCounter {
	return &hourlyCounter{window: window}
}

// count returns the number of registered trades inside the window ending at
// now, pruning expired entries.
func (hc *hourlyCounter) count(now time.Time) int {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.pruneLocked(now)
	return len(hc.stamps)
}

// register records one approved trade at now. Callers must invoke this
// exactly once per approval; the evaluator itself never consumes a slot,
// which keeps retries from double-counting.
func (hc *hourlyCounter) register(now time.Time) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.pruneLocked(now)
	hc.stamps = append(hc.stamps, now)
}

func (hc *hourlyCounter) pruneLocked(now time.Time) {
	cutoff := now.Add(-hc.window)
	keep := hc.stamps[:0]
	for _, ts := range hc.stamps {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}
	hc.stamps = keep
}

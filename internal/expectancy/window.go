package expectancy

import (
	"math"
	"sort"
)

// Window is a fixed-capacity FIFO of float64 samples. Once full, the oldest
// sample is dropped silently on every push.
type Window struct {
	values []float64
	cap    int
	head   int
	full   bool
}

// NewWindow creates a window holding at most capacity samples.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		values: make([]float64, 0, capacity),
		cap:    capacity,
	}
}

// Push appends a sample, evicting the oldest when at capacity.
func (w *Window) Push(v float64) {
	if len(w.values) < w.cap {
		w.values = append(w.values, v)
		return
	}
	w.values[w.head] = v
	w.head = (w.head + 1) % w.cap
	w.full = true
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return len(w.values)
}

// Mean returns the arithmetic mean, or 0 with no samples.
func (w *Window) Mean() float64 {
	if len(w.values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range w.values {
		sum += v
	}
	return sum / float64(len(w.values))
}

// Percentile returns the nearest-rank percentile (p in [0,1]) of the
// absolute sample values, or 0 with no samples.
func (w *Window) Percentile(p float64) float64 {
	n := len(w.values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	for i, v := range w.values {
		sorted[i] = math.Abs(v)
	}
	sort.Float64s(sorted)

	rank := int(math.Ceil(p*float64(n))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= n {
		rank = n - 1
	}
	return sorted[rank]
}

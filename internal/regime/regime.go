package regime

import (
	"fmt"
	"math"
	"sort"
)

// Regime labels form a closed set; the learner processes every one of them
// each cycle regardless of how much data the window holds.
const (
	Trend      = "trend"
	Chop       = "chop"
	Breakout   = "breakout"
	MeanRevert = "mean_revert"
	Uncertain  = "uncertain"
)

// All returns the closed regime set in stable order.
func All() []string {
	return []string{Trend, Chop, Breakout, MeanRevert, Uncertain}
}

// Signal family names scored by the upstream fusion scorer.
const (
	SignalMomentum  = "momentum"
	SignalTechnical = "technical"
	SignalVolume    = "volume"
	SignalQuality   = "quality"
)

// Signals returns the fixed signal set in stable order.
func Signals() []string {
	return []string{SignalMomentum, SignalTechnical, SignalVolume, SignalQuality}
}

// WeightVector maps signal name to its weight for one regime.
type WeightVector map[string]float64

// Clone returns an independent copy of the vector.
func (wv WeightVector) Clone() WeightVector {
	out := make(WeightVector, len(wv))
	for k, v := range wv {
		out[k] = v
	}
	return out
}

// SortedSignals returns the vector's signal names in stable order.
func (wv WeightVector) SortedSignals() []string {
	names := make([]string, 0, len(wv))
	for name := range wv {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultVectors returns the documented starting weights for every regime.
// Each vector sums to 1.0 and every component is inside the learner bounds.
func DefaultVectors() map[string]WeightVector {
	vectors := map[string]WeightVector{
		Trend: {
			SignalMomentum:  0.45,
			SignalTechnical: 0.20,
			SignalVolume:    0.20,
			SignalQuality:   0.15,
		},
		Breakout: {
			SignalMomentum:  0.40,
			SignalTechnical: 0.15,
			SignalVolume:    0.30,
			SignalQuality:   0.15,
		},
		Chop: {
			SignalMomentum:  0.20,
			SignalTechnical: 0.35,
			SignalVolume:    0.20,
			SignalQuality:   0.25,
		},
		MeanRevert: {
			SignalMomentum:  0.15,
			SignalTechnical: 0.40,
			SignalVolume:    0.20,
			SignalQuality:   0.25,
		},
		Uncertain: {
			SignalMomentum:  0.25,
			SignalTechnical: 0.25,
			SignalVolume:    0.25,
			SignalQuality:   0.25,
		},
	}
	return vectors
}

// Uniform returns the uniform fallback vector over the fixed signal set.
func Uniform() WeightVector {
	signals := Signals()
	wv := make(WeightVector, len(signals))
	for _, name := range signals {
		wv[name] = 1.0 / float64(len(signals))
	}
	return wv
}

// Validate checks that every weight is inside [minW, maxW] and the vector
// sums to 1.0 within tolerance.
func Validate(wv WeightVector, minW, maxW float64) error {
	if len(wv) == 0 {
		return fmt.Errorf("empty weight vector")
	}
	total := 0.0
	for _, name := range wv.SortedSignals() {
		w := wv[name]
		if w < minW-1e-9 || w > maxW+1e-9 {
			return fmt.Errorf("weight %s=%.6f outside bounds [%.3f, %.3f]", name, w, minW, maxW)
		}
		total += w
	}
	if math.Abs(total-1.0) > 1e-6 {
		return fmt.Errorf("weights sum to %.8f, must equal 1.0 (±1e-6)", total)
	}
	return nil
}

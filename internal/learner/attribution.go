package learner

import (
	"math"

	"github.com/sawpanic/quantgate/internal/persistence"
	"github.com/sawpanic/quantgate/internal/regime"
)

// Attribution holds the rolling per-signal EV attribution for one regime:
// accumulated EV × contribution-share divided by the number of decisions
// observed in that regime.
type Attribution struct {
	PerSignal map[string]float64
	Decisions int
}

// attribute computes per-regime signal attribution over the decision
// window. Each decision contributes its realized EV split by every
// signal's share of total weighted contribution, |w_i × v_i| / Σ|w_j × v_j|
// (all shares zero when the sum is zero).
func attribute(window []persistence.ScoredDecision) map[string]Attribution {
	acc := make(map[string]map[string]float64)
	counts := make(map[string]int)

	for _, dec := range window {
		if dec.Regime == "" {
			continue
		}
		counts[dec.Regime]++

		total := 0.0
		for _, name := range regime.Signals() {
			total += math.Abs(dec.Weights[name] * dec.Signals[name])
		}
		if total == 0 {
			continue
		}

		sums, ok := acc[dec.Regime]
		if !ok {
			sums = make(map[string]float64)
			acc[dec.Regime] = sums
		}
		for _, name := range regime.Signals() {
			share := math.Abs(dec.Weights[name]*dec.Signals[name]) / total
			sums[name] += dec.RealizedEV * share
		}
	}

	out := make(map[string]Attribution, len(counts))
	for reg, n := range counts {
		attr := Attribution{
			PerSignal: make(map[string]float64, len(regime.Signals())),
			Decisions: n,
		}
		for _, name := range regime.Signals() {
			attr.PerSignal[name] = acc[reg][name] / float64(n)
		}
		out[reg] = attr
	}
	return out
}

// targetShare derives the normalized target vector from attribution values:
// shift so the minimum sits at ~0 (subtract min, add epsilon) and normalize
// to sum to 1. A zero shifted total falls back to the uniform share.
func targetShare(attr map[string]float64, epsilon float64) regime.WeightVector {
	signals := regime.Signals()

	minVal := math.Inf(1)
	for _, name := range signals {
		if v := attr[name]; v < minVal {
			minVal = v
		}
	}
	if math.IsInf(minVal, 1) {
		minVal = 0
	}

	shifted := make(regime.WeightVector, len(signals))
	total := 0.0
	for _, name := range signals {
		v := attr[name] - minVal + epsilon
		shifted[name] = v
		total += v
	}
	if total == 0 {
		return regime.Uniform()
	}

	for _, name := range signals {
		shifted[name] /= total
	}
	return shifted
}

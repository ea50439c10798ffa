package gates

// Policy is one independently-read admission policy. Policies are immutable
// per cycle: the evaluator re-reads the active set on every evaluation and
// never caches it across cycles.
type Policy struct {
	Name             string  `yaml:"name"`
	ROIThreshold     float64 `yaml:"roi_threshold"`
	MaxTradesPerHour int     `yaml:"max_trades_per_hour"`
	PreferLimit      bool    `yaml:"prefer_limit"`
}

// PolicySource yields the active policy set for the current cycle. A source
// that cannot produce policies returns an empty slice; the evaluator then
// applies its conservative defaults.
type PolicySource interface {
	Policies() []Policy
}

// StaticPolicies is a fixed in-memory policy source.
type StaticPolicies []Policy

// Policies implements PolicySource.
func (sp StaticPolicies) Policies() []Policy { return sp }

// EffectiveROIGate composes the policy set's ROI thresholds: the most
// conservative (maximum) threshold wins. Policies without a threshold
// contribute nothing; an empty set falls back to def.
func EffectiveROIGate(policies []Policy, def float64) float64 {
	gate := def
	seen := false
	for _, p := range policies {
		if p.ROIThreshold <= 0 {
			continue
		}
		if !seen || p.ROIThreshold > gate {
			gate = p.ROIThreshold
			seen = true
		}
	}
	return gate
}

// EffectiveHourlyCap composes the policy set's hourly caps: the strictest
// (minimum) cap wins. Policies without a cap contribute nothing; an empty
// set falls back to def.
func EffectiveHourlyCap(policies []Policy, def int) int {
	cap := def
	seen := false
	for _, p := range policies {
		if p.MaxTradesPerHour <= 0 {
			continue
		}
		if !seen || p.MaxTradesPerHour < cap {
			cap = p.MaxTradesPerHour
			seen = true
		}
	}
	return cap
}

// anyPreferLimit reports whether any policy requests limit orders.
func anyPreferLimit(policies []Policy) bool {
	for _, p := range policies {
		if p.PreferLimit {
			return true
		}
	}
	return false
}

package gates

import "fmt"

// Reason is a machine-readable rejection reason drawn from a closed set.
// The only parameterized member is the ROI gate reason, which embeds the
// effective gate value so operators can see which composed threshold fired.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonMTFNotConfirmed Reason = "mtf_not_confirmed"
	ReasonHourlyCap      Reason = "hourly_cap_reached"
	ReasonAnomalyDefense Reason = "anomaly_defense_block"
	ReasonLowEnsemble    Reason = "low_ensemble"
	ReasonLowEV          Reason = "low_ev"
)

// ReasonROIBelowGate builds the ROI rejection reason for the given
// effective gate, e.g. "roi_below_gate_0.0060".
func ReasonROIBelowGate(gate float64) Reason {
	return Reason(fmt.Sprintf("roi_below_gate_%.4f", gate))
}

// OrderType is the execution style chosen for an approved trade.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

package gates

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/quantgate/internal/config"
)

// EVSource supplies the cost-adjusted expected value per symbol.
type EVSource interface {
	ExpectedValue(symbol string) float64
}

// Input carries the per-signal evaluation context.
type Input struct {
	Symbol       string
	PredictedROI float64
	MTFConfirmed bool    // multi-timeframe confirmation flag
	AnomalyCount int     // trailing anomaly count
	QualityScore float64 // fused ensemble quality
	Regime       string  // current market regime label, may be empty
}

// Decision is the ephemeral outcome of one gate pass.
type Decision struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Approved  bool      `json:"approved"`
	Reason    Reason    `json:"reason,omitempty"`
	OrderType OrderType `json:"order_type,omitempty"`
	ROIGate   float64   `json:"roi_gate"`
	HourlyCap int       `json:"hourly_cap"`
	Timestamp time.Time `json:"timestamp"`
}

// Evaluator composes the admission policies plus the expectancy check into
// one pass/fail decision. Evaluation never fails: missing policy artifacts
// fall back to the configured conservative defaults.
type Evaluator struct {
	cfg      config.GateConfig
	policies PolicySource
	ev       EVSource
	counter  *hourlyCounter
	now      func() time.Time
}

// NewEvaluator creates a gate evaluator. policies may yield an empty set,
// in which case cfg's defaults apply. ev may be nil to disable the
// expectancy check (bootstrap mode).
func NewEvaluator(cfg config.GateConfig, policies PolicySource, ev EVSource) *Evaluator {
	return &Evaluator{
		cfg:      cfg,
		policies: policies,
		ev:       ev,
		counter:  newHourlyCounter(time.Hour),
		now:      time.Now,
	}
}

// Evaluate runs the sequential admission checks; the first failure wins.
// The policy set is re-read on every call and never cached.
func (e *Evaluator) Evaluate(in Input) Decision {
	now := e.now()
	policies := e.policies.Policies()

	d := Decision{
		ID:        uuid.NewString(),
		Symbol:    in.Symbol,
		ROIGate:   EffectiveROIGate(policies, e.cfg.DefaultROIGate) * e.regimeScale(in.Regime),
		HourlyCap: EffectiveHourlyCap(policies, e.cfg.DefaultHourlyCap),
		Timestamp: now,
	}

	switch {
	case !in.MTFConfirmed:
		d.Reason = ReasonMTFNotConfirmed
	case in.PredictedROI < d.ROIGate:
		d.Reason = ReasonROIBelowGate(d.ROIGate)
	case e.counter.count(now) >= d.HourlyCap:
		d.Reason = ReasonHourlyCap
	case in.AnomalyCount > e.cfg.MaxAnomalies:
		d.Reason = ReasonAnomalyDefense
	case in.QualityScore < e.cfg.MinQualityScore:
		d.Reason = ReasonLowEnsemble
	case e.ev != nil && e.ev.ExpectedValue(in.Symbol) < e.cfg.MinExpectedValue:
		d.Reason = ReasonLowEV
	default:
		d.Approved = true
		d.OrderType = OrderTypeMarket
		if anyPreferLimit(policies) {
			d.OrderType = OrderTypeLimit
		}
	}

	if !d.Approved {
		log.Debug().
			Str("symbol", in.Symbol).
			Str("reason", string(d.Reason)).
			Float64("predicted_roi", in.PredictedROI).
			Float64("roi_gate", d.ROIGate).
			Msg("entry blocked")
	}

	return d
}

// regimeScale returns the ROI gate multiplier for the given regime. An
// unknown or empty regime gets the most conservative (largest) configured
// scale; no configured scales means no scaling at all.
func (e *Evaluator) regimeScale(reg string) float64 {
	if len(e.cfg.RegimeROIScale) == 0 {
		return 1.0
	}
	if s, ok := e.cfg.RegimeROIScale[reg]; ok && s > 0 {
		return s
	}
	worst := 1.0
	for _, s := range e.cfg.RegimeROIScale {
		if s > worst {
			worst = s
		}
	}
	return worst
}

// RegisterTrade consumes one slot of the shared hourly counter. The caller
// must register each approved trade exactly once, after the order is
// actually placed, so retried evaluations never double-count.
func (e *Evaluator) RegisterTrade() {
	e.counter.register(e.now())
}

// TradesThisHour reports the current sliding-window count.
func (e *Evaluator) TradesThisHour() int {
	return e.counter.count(e.now())
}

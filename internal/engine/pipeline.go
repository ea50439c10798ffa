// Package engine wires the synchronous entry path: expectancy, admission
// gate, sizing, and routing, evaluated once per incoming signal. The whole
// path is non-suspending request/response work; only the routing step may
// touch an external snapshot, and that lookup is guarded upstream.
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/quantgate/internal/expectancy"
	"github.com/sawpanic/quantgate/internal/gates"
	"github.com/sawpanic/quantgate/internal/metrics"
	"github.com/sawpanic/quantgate/internal/persistence"
	"github.com/sawpanic/quantgate/internal/routing"
	"github.com/sawpanic/quantgate/internal/sizing"
)

// Signal is one scored candidate produced by the upstream fusion scorer.
type Signal struct {
	Symbol       string             `json:"symbol"`
	PredictedROI float64            `json:"predicted_roi"`
	MTFConfirmed bool               `json:"mtf_confirmed"`
	AnomalyCount int                `json:"anomaly_count"`
	QualityScore float64            `json:"quality_score"`
	Regime       string             `json:"regime"`
	Signals      map[string]float64 `json:"signals"` // normalized per-signal inputs
	Weights      map[string]float64 `json:"weights"` // weights in force when scored
}

// Plan is the full entry decision for one signal.
type Plan struct {
	Decision   gates.Decision    `json:"decision"`
	Multiplier float64           `json:"multiplier,omitempty"`
	Route      routing.Route     `json:"route,omitempty"`
	Estimates  routing.Estimates `json:"estimates"`
}

// Pipeline composes the entry-path components.
type Pipeline struct {
	estimator *expectancy.Estimator
	gate      *gates.Evaluator
	sizer     *sizing.Controller
	router    *routing.Selector
	registry  *metrics.Registry
	auditor   *persistence.Auditor
	outcomes  persistence.OutcomeRepo
	decisions persistence.DecisionRepo
}

// NewPipeline wires the entry path. registry and auditor may be nil.
func NewPipeline(
	estimator *expectancy.Estimator,
	gate *gates.Evaluator,
	sizer *sizing.Controller,
	router *routing.Selector,
	registry *metrics.Registry,
	auditor *persistence.Auditor,
	outcomes persistence.OutcomeRepo,
	decisions persistence.DecisionRepo,
) *Pipeline {
	return &Pipeline{
		estimator: estimator,
		gate:      gate,
		sizer:     sizer,
		router:    router,
		registry:  registry,
		auditor:   auditor,
		outcomes:  outcomes,
		decisions: decisions,
	}
}

// Evaluate runs the entry path for one signal. A rejected signal returns a
// plan carrying only the decision; the sizing and routing steps run only
// after admission.
func (p *Pipeline) Evaluate(ctx context.Context, sig Signal) (Plan, error) {
	decision := p.gate.Evaluate(gates.Input{
		Symbol:       sig.Symbol,
		PredictedROI: sig.PredictedROI,
		MTFConfirmed: sig.MTFConfirmed,
		AnomalyCount: sig.AnomalyCount,
		QualityScore: sig.QualityScore,
		Regime:       sig.Regime,
	})

	if !decision.Approved {
		if p.registry != nil {
			p.registry.GateRejections.WithLabelValues(string(decision.Reason)).Inc()
		}
		if p.auditor != nil {
			p.auditor.Record(ctx, persistence.AuditGateReject, sig.Symbol, string(decision.Reason), map[string]interface{}{
				"predicted_roi": sig.PredictedROI,
				"roi_gate":      decision.ROIGate,
			})
		}
		return Plan{Decision: decision}, nil
	}

	if p.registry != nil {
		p.registry.GateApprovals.Inc()
	}

	ev := p.estimator.ExpectedValue(sig.Symbol)
	slipP75 := p.estimator.SlippageP75(sig.Symbol)
	mult, err := p.sizer.Adjust(ctx, sig.Symbol, ev, slipP75)
	if err != nil {
		return Plan{Decision: decision}, fmt.Errorf("sizing for %s: %w", sig.Symbol, err)
	}
	if p.registry != nil {
		direction := "down"
		if ev >= 0 {
			direction = "up"
		}
		p.registry.SizingAdjustments.WithLabelValues(direction).Inc()
	}

	route, est := p.router.Select(ctx, sig.Symbol)
	if p.registry != nil {
		p.registry.RoutingDecisions.WithLabelValues(string(route)).Inc()
		if est.Stale {
			p.registry.OracleFallbacks.WithLabelValues("book").Inc()
		}
	}

	return Plan{
		Decision:   decision,
		Multiplier: mult,
		Route:      route,
		Estimates:  est,
	}, nil
}

// EvaluateBatch evaluates a portfolio of signals. A fault on one symbol is
// logged and never blocks evaluation of the rest in the same cycle.
func (p *Pipeline) EvaluateBatch(ctx context.Context, sigs []Signal) []Plan {
	plans := make([]Plan, 0, len(sigs))
	for _, sig := range sigs {
		plan, err := p.Evaluate(ctx, sig)
		if err != nil {
			log.Error().Err(err).Str("symbol", sig.Symbol).Msg("signal evaluation failed")
		}
		plans = append(plans, plan)
	}
	return plans
}

// RegisterFill consumes one hourly-cap slot. Call exactly once per placed
// order, never on retries.
func (p *Pipeline) RegisterFill() {
	p.gate.RegisterTrade()
}

// RecordOutcome feeds one realized outcome back into the expectancy windows
// and the append-only history consumed by the weight learner.
func (p *Pipeline) RecordOutcome(ctx context.Context, rec persistence.OutcomeRecord, weights map[string]float64) error {
	p.estimator.Record(rec.Symbol, rec.NetPnL, rec.SlippageBps)

	if p.outcomes != nil {
		if err := p.outcomes.Insert(ctx, rec); err != nil {
			return fmt.Errorf("failed to append outcome: %w", err)
		}
	}
	if p.decisions != nil {
		dec := persistence.ScoredDecision{
			Timestamp:  rec.Timestamp,
			Symbol:     rec.Symbol,
			Regime:     rec.Regime,
			Signals:    rec.Signals,
			Weights:    weights,
			RealizedEV: rec.NetPnL,
		}
		if err := p.decisions.Insert(ctx, dec); err != nil {
			return fmt.Errorf("failed to append scored decision: %w", err)
		}
	}
	return nil
}

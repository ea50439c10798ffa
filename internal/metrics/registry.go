// Package metrics exposes the decision core's operational counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all Prometheus metrics for the decision core.
type Registry struct {
	GateRejections       *prometheus.CounterVec
	GateApprovals        prometheus.Counter
	SizingAdjustments    *prometheus.CounterVec
	LifecycleTransitions *prometheus.CounterVec
	RoutingDecisions     *prometheus.CounterVec
	WeightUpdates        prometheus.Counter
	OracleFallbacks      *prometheus.CounterVec
	OpenPositions        prometheus.Gauge
}

// NewRegistry creates the metric set.
func NewRegistry() *Registry {
	return &Registry{
		GateRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantgate_gate_rejections_total",
				Help: "Gate rejections by machine-readable reason",
			},
			[]string{"reason"},
		),
		GateApprovals: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "quantgate_gate_approvals_total",
				Help: "Approved entry decisions",
			},
		),
		SizingAdjustments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantgate_sizing_adjustments_total",
				Help: "Size multiplier adjustments by direction",
			},
			[]string{"direction"},
		),
		LifecycleTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantgate_lifecycle_transitions_total",
				Help: "Position lifecycle transitions by kind",
			},
			[]string{"transition"},
		),
		RoutingDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantgate_routing_decisions_total",
				Help: "Maker/taker routing decisions",
			},
			[]string{"route"},
		),
		WeightUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "quantgate_weight_updates_total",
				Help: "Published regime weight updates",
			},
		),
		OracleFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantgate_oracle_fallbacks_total",
				Help: "External lookups that degraded to a fallback value",
			},
			[]string{"oracle"},
		),
		OpenPositions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "quantgate_open_positions",
				Help: "Positions currently owned by the lifecycle manager",
			},
		),
	}
}

// Register registers every metric with the given registerer.
func (r *Registry) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		r.GateRejections,
		r.GateApprovals,
		r.SizingAdjustments,
		r.LifecycleTransitions,
		r.RoutingDecisions,
		r.WeightUpdates,
		r.OracleFallbacks,
		r.OpenPositions,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

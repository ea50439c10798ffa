package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegistersAllCollectors(t *testing.T) {
	r := NewRegistry()
	promReg := prometheus.NewRegistry()
	require.NoError(t, r.Register(promReg))

	r.GateRejections.WithLabelValues("low_ev").Inc()
	r.GateApprovals.Inc()
	r.SizingAdjustments.WithLabelValues("up").Inc()
	r.LifecycleTransitions.WithLabelValues("stop_tightened").Inc()
	r.RoutingDecisions.WithLabelValues("maker").Inc()
	r.WeightUpdates.Inc()
	r.OracleFallbacks.WithLabelValues("price").Inc()
	r.OpenPositions.Set(3)

	families, err := promReg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	for _, want := range []string{
		"quantgate_gate_rejections_total",
		"quantgate_gate_approvals_total",
		"quantgate_sizing_adjustments_total",
		"quantgate_lifecycle_transitions_total",
		"quantgate_routing_decisions_total",
		"quantgate_weight_updates_total",
		"quantgate_oracle_fallbacks_total",
		"quantgate_open_positions",
	} {
		assert.True(t, names[want], "missing metric family %s", want)
	}
}

func TestRegistry_DoubleRegistrationFails(t *testing.T) {
	r := NewRegistry()
	promReg := prometheus.NewRegistry()
	require.NoError(t, r.Register(promReg))
	assert.Error(t, r.Register(promReg))
}

func TestRegistry_CounterValues(t *testing.T) {
	r := NewRegistry()
	promReg := prometheus.NewRegistry()
	require.NoError(t, r.Register(promReg))

	r.GateRejections.WithLabelValues("hourly_cap_reached").Add(2)

	families, err := promReg.Gather()
	require.NoError(t, err)

	for _, fam := range families {
		if fam.GetName() != "quantgate_gate_rejections_total" {
			continue
		}
		require.Len(t, fam.GetMetric(), 1)
		m := fam.GetMetric()[0]
		assert.Equal(t, 2.0, m.GetCounter().GetValue())
		require.Len(t, m.GetLabel(), 1)
		assert.Equal(t, "reason", m.GetLabel()[0].GetName())
		assert.Equal(t, "hourly_cap_reached", m.GetLabel()[0].GetValue())
	}
}

// Package sizing adjusts the persisted per-symbol size multiplier from
// expectancy and slippage signals. The controller is deterministic: under
// sustained good (bad) conditions the multiplier walks monotonically to the
// upper (lower) bound and never leaves [min_mult, max_mult].
package sizing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/quantgate/internal/config"
	"github.com/sawpanic/quantgate/internal/persistence"
	"github.com/sawpanic/quantgate/internal/store"
)

// Controller owns the size multiplier state in the shared store.
type Controller struct {
	cfg     config.SizingConfig
	state   store.Store
	auditor *persistence.Auditor
}

// NewController creates a sizing controller. auditor may be nil.
func NewController(cfg config.SizingConfig, state store.Store, auditor *persistence.Auditor) *Controller {
	return &Controller{cfg: cfg, state: state, auditor: auditor}
}

// Multiplier returns the current multiplier for symbol (default 1.0).
func (c *Controller) Multiplier(ctx context.Context, symbol string) (float64, error) {
	v, ok, err := c.state.GetFloat(ctx, store.NamespaceSizing, symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to read size multiplier: %w", err)
	}
	if !ok {
		return 1.0, nil
	}
	return v, nil
}

// Adjust applies one control cycle: ramp up when EV clears the floor and
// slippage stays under the cap, ramp down otherwise, clamped to bounds.
// The read-modify-write runs under the store lock.
func (c *Controller) Adjust(ctx context.Context, symbol string, ev, slippageP75 float64) (float64, error) {
	good := ev >= c.cfg.MinEV && slippageP75 <= c.cfg.SlippageCapBps

	next, err := c.state.Update(ctx, store.NamespaceSizing, symbol, 1.0, func(cur float64) float64 {
		if good {
			cur *= 1 + c.cfg.RampUp
		} else {
			cur *= 1 - c.cfg.RampDown
		}
		return clamp(cur, c.cfg.MinMult, c.cfg.MaxMult)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to adjust size multiplier: %w", err)
	}

	log.Debug().
		Str("symbol", symbol).
		Float64("ev", ev).
		Float64("slippage_p75", slippageP75).
		Float64("multiplier", next).
		Bool("ramp_up", good).
		Msg("size multiplier adjusted")

	if c.auditor != nil {
		c.auditor.Record(ctx, persistence.AuditSizingChange, symbol, "", map[string]interface{}{
			"ev":           ev,
			"slippage_p75": slippageP75,
			"multiplier":   next,
			"ramp_up":      good,
		})
	}

	return next, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package lifecycle

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Side is the position direction.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ErrInvalidState marks a position whose entry or stop price makes the
// R-multiple undefined; the cycle's update is skipped without mutation.
var ErrInvalidState = errors.New("invalid position state")

// ErrContention marks a position whose update lost the per-position lock;
// the update is dropped and retried next cycle.
var ErrContention = errors.New("concurrent position update in flight")

// Position is owned exclusively by the Manager from open to close and
// mutated only through its transition functions.
//
// Invariants: the stop price only tightens (moves toward current price)
// across updates; the trailing step width only grows, up to the configured
// maximum; the pyramid add count never exceeds the configured cap.
type Position struct {
	Symbol         string    `json:"symbol"`
	Side           Side      `json:"side"`
	EntryPrice     float64   `json:"entry_price"`
	InitialStop    float64   `json:"initial_stop"` // entry-to-stop distance defines one R
	StopPrice      float64   `json:"stop_price"`
	TakeProfit     float64   `json:"take_profit"`
	Size           float64   `json:"size"`
	InitialSize    float64   `json:"initial_size"`
	PyramidAdds    int       `json:"pyramid_adds"`
	TrailingStep   float64   `json:"trailing_step"` // fractional width of the trailing stop
	TrailingActive bool      `json:"trailing_active"`
	TPUnlocked     bool      `json:"tp_unlocked"`
	OpenedAt       time.Time `json:"opened_at"`
}

// validate checks the fields required before the manager accepts ownership.
func (p *Position) validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("position missing symbol")
	}
	if p.Side != SideLong && p.Side != SideShort {
		return fmt.Errorf("position %s has invalid side %q", p.Symbol, p.Side)
	}
	if p.EntryPrice <= 0 || p.InitialStop <= 0 {
		return fmt.Errorf("position %s: %w: entry %.4f, initial stop %.4f",
			p.Symbol, ErrInvalidState, p.EntryPrice, p.InitialStop)
	}
	if p.Size <= 0 {
		return fmt.Errorf("position %s has non-positive size %.4f", p.Symbol, p.Size)
	}
	return nil
}

// rMultiple returns the signed R-multiple at price: per-unit PnL divided by
// the initial risk per unit, with the sign flipped for shorts. ok is false
// when entry or initial stop is zero and the update must be skipped.
func (p *Position) rMultiple(price float64) (float64, bool) {
	if p.EntryPrice == 0 || p.InitialStop == 0 {
		return 0, false
	}
	risk := math.Abs(p.EntryPrice - p.InitialStop)
	if risk == 0 {
		return 0, false
	}
	pnlPerUnit := price - p.EntryPrice
	if p.Side == SideShort {
		pnlPerUnit = p.EntryPrice - price
	}
	return pnlPerUnit / risk, true
}

// tightenStop moves the stop toward price, never away from it.
func (p *Position) tightenStop(candidate float64) bool {
	if candidate <= 0 {
		return false
	}
	if p.Side == SideLong {
		if candidate > p.StopPrice {
			p.StopPrice = candidate
			return true
		}
		return false
	}
	if p.StopPrice == 0 || candidate < p.StopPrice {
		p.StopPrice = candidate
		return true
	}
	return false
}

// stopHit reports whether price has crossed the active stop.
func (p *Position) stopHit(price float64) bool {
	if p.StopPrice <= 0 {
		return false
	}
	if p.Side == SideLong {
		return price <= p.StopPrice
	}
	return price >= p.StopPrice
}

// takeProfitHit reports whether price has reached the take-profit level.
func (p *Position) takeProfitHit(price float64) bool {
	if p.TakeProfit <= 0 {
		return false
	}
	if p.Side == SideLong {
		return price >= p.TakeProfit
	}
	return price <= p.TakeProfit
}

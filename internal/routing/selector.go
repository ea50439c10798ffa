// Package routing chooses maker vs taker execution from order-book
// liquidity estimates. The rule is a deterministic threshold with no
// hysteresis: noisy borderline inputs can flip the route between cycles.
// A debounce band is a documented extension (config.RoutingConfig
// carries the reserved field) and is deliberately not part of the core
// contract.
package routing

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/quantgate/internal/config"
	"github.com/sawpanic/quantgate/internal/oracle"
)

// Route is the chosen execution style.
type Route string

const (
	RouteMaker Route = "maker"
	RouteTaker Route = "taker"
)

// Estimates are the liquidity inputs behind one routing decision.
type Estimates struct {
	Queue     float64 `json:"queue"`     // queue-position estimate in [0,1]
	Imbalance float64 `json:"imbalance"` // bid-volume share of top-of-book depth in [0,1]
	Stale     bool    `json:"stale"`     // true when the snapshot failed and last-good values were used
}

// Selector derives the route from top-of-book snapshots, holding the last
// successfully computed estimates per symbol as the snapshot fallback.
type Selector struct {
	mu       sync.Mutex
	cfg      config.RoutingConfig
	book     oracle.BookProvider
	lastGood map[string]Estimates
}

// NewSelector creates a routing selector.
func NewSelector(cfg config.RoutingConfig, book oracle.BookProvider) *Selector {
	return &Selector{
		cfg:      cfg,
		book:     book,
		lastGood: make(map[string]Estimates),
	}
}

// Select returns maker when both liquidity estimates clear their minimums,
// taker otherwise. A failed snapshot falls back to the symbol's last good
// estimates; with no history at all the selector stays on taker.
func (s *Selector) Select(ctx context.Context, symbol string) (Route, Estimates) {
	est, err := s.estimate(ctx, symbol)
	if err != nil {
		s.mu.Lock()
		prev, ok := s.lastGood[symbol]
		s.mu.Unlock()
		if !ok {
			log.Warn().Err(err).Str("symbol", symbol).Msg("book snapshot failed with no prior estimate, routing taker")
			return RouteTaker, Estimates{Stale: true}
		}
		log.Warn().Err(err).Str("symbol", symbol).Msg("book snapshot failed, using last good estimates")
		est = prev
		est.Stale = true
	} else {
		s.mu.Lock()
		s.lastGood[symbol] = est
		s.mu.Unlock()
	}

	if est.Queue >= s.cfg.QueueMin && est.Imbalance >= s.cfg.ImbalanceMin {
		return RouteMaker, est
	}
	return RouteTaker, est
}

func (s *Selector) estimate(ctx context.Context, symbol string) (Estimates, error) {
	snap, err := s.book.Snapshot(ctx, symbol)
	if err != nil {
		return Estimates{}, err
	}

	var queue float64
	if snap.AvgDepth > 0 {
		queue = clamp01(math.Min(snap.BidDepth, snap.AskDepth) / snap.AvgDepth)
	}

	var imbalance float64
	if total := snap.BidDepth + snap.AskDepth; total > 0 {
		imbalance = clamp01(snap.BidDepth / total)
	}

	return Estimates{Queue: queue, Imbalance: imbalance}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

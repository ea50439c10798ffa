// Package oracle defines the external data lookups the decision core
// consumes. The core never blocks on network I/O directly: every provider
// is wrapped with a bounded timeout, a token-bucket rate limit, and a
// circuit breaker, and every failure path degrades to a documented
// fallback instead of stalling a control loop.
package oracle

import (
	"context"
	"errors"
)

// ErrDataUnavailable marks a failed external lookup. Callers substitute the
// documented fallback and continue.
var ErrDataUnavailable = errors.New("data unavailable")

// PriceOracle serves current price and volatility per symbol.
type PriceOracle interface {
	Price(ctx context.Context, symbol string) (float64, error)
	ATRBps(ctx context.Context, symbol string) (float64, error)
}

// BookSnapshot is a top-of-book liquidity snapshot.
type BookSnapshot struct {
	BidDepth float64 // top-of-book bid depth, quote units
	AskDepth float64 // top-of-book ask depth, quote units
	AvgDepth float64 // trailing average depth for queue estimation
}

// BookProvider serves order-book snapshots per symbol.
type BookProvider interface {
	Snapshot(ctx context.Context, symbol string) (BookSnapshot, error)
}

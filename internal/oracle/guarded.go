package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/quantgate/internal/config"
)

// guard bundles the protection applied to every external lookup.
type guard struct {
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
}

func newGuard(name string, cfg config.OracleConfig) *guard {
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: cfg.BreakerOpenInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("oracle breaker state change")
		},
	}
	return &guard{
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst),
		timeout: cfg.Timeout,
	}
}

// execute runs fn under the rate limit, timeout and breaker. Any failure is
// reported as ErrDataUnavailable so callers fall back uniformly.
func (g *guard) execute(ctx context.Context, fn func(ctx context.Context) (float64, error)) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: rate limit wait: %v", ErrDataUnavailable, err)
	}

	res, err := g.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return res.(float64), nil
}

// GuardedPriceOracle wraps a PriceOracle with breaker, limiter and timeout.
type GuardedPriceOracle struct {
	inner      PriceOracle
	priceGuard *guard
	atrGuard   *guard
}

// NewGuardedPriceOracle wraps inner with the configured protections.
func NewGuardedPriceOracle(inner PriceOracle, cfg config.OracleConfig) *GuardedPriceOracle {
	return &GuardedPriceOracle{
		inner:      inner,
		priceGuard: newGuard("price", cfg),
		atrGuard:   newGuard("atr", cfg),
	}
}

// Price implements PriceOracle.
func (g *GuardedPriceOracle) Price(ctx context.Context, symbol string) (float64, error) {
	return g.priceGuard.execute(ctx, func(ctx context.Context) (float64, error) {
		return g.inner.Price(ctx, symbol)
	})
}

// ATRBps implements PriceOracle.
func (g *GuardedPriceOracle) ATRBps(ctx context.Context, symbol string) (float64, error) {
	return g.atrGuard.execute(ctx, func(ctx context.Context) (float64, error) {
		return g.inner.ATRBps(ctx, symbol)
	})
}

// GuardedBookProvider wraps a BookProvider with breaker, limiter and timeout.
type GuardedBookProvider struct {
	inner   BookProvider
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
}

// NewGuardedBookProvider wraps inner with the configured protections.
func NewGuardedBookProvider(inner BookProvider, cfg config.OracleConfig) *GuardedBookProvider {
	g := newGuard("book", cfg)
	return &GuardedBookProvider{
		inner:   inner,
		breaker: g.breaker,
		limiter: g.limiter,
		timeout: g.timeout,
	}
}

// Snapshot implements BookProvider.
func (g *GuardedBookProvider) Snapshot(ctx context.Context, symbol string) (BookSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		return BookSnapshot{}, fmt.Errorf("%w: rate limit wait: %v", ErrDataUnavailable, err)
	}

	res, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.Snapshot(ctx, symbol)
	})
	if err != nil {
		return BookSnapshot{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return res.(BookSnapshot), nil
}

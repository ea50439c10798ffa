package expectancy

import (
	"sync"

	"github.com/sawpanic/quantgate/internal/config"
)

// EquityFunc reports current total account equity in quote units.
type EquityFunc func() float64

// Estimator maintains per-symbol rolling windows of realized net P&L and
// execution slippage and derives a cost-adjusted expected value per trade.
type Estimator struct {
	mu      sync.RWMutex
	cfg     config.ExpectancyConfig
	equity  EquityFunc
	symbols map[string]*symbolStats
}

type symbolStats struct {
	pnl      *Window
	slippage *Window
}

// NewEstimator creates an estimator with the given window configuration.
func NewEstimator(cfg config.ExpectancyConfig, equity EquityFunc) *Estimator {
	return &Estimator{
		cfg:     cfg,
		equity:  equity,
		symbols: make(map[string]*symbolStats),
	}
}

// Record appends one realized outcome for the symbol.
func (e *Estimator) Record(symbol string, netPnL, slippageBps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats, ok := e.symbols[symbol]
	if !ok {
		stats = &symbolStats{
			pnl:      NewWindow(e.cfg.WindowSize),
			slippage: NewWindow(e.cfg.WindowSize),
		}
		e.symbols[symbol] = stats
	}
	stats.pnl.Push(netPnL)
	stats.slippage.Push(slippageBps)
}

// ExpectedValue returns mean(net P&L) minus the estimated execution cost of
// one trade at the configured notional. With no history it returns 0.
func (e *Estimator) ExpectedValue(symbol string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats, ok := e.symbols[symbol]
	if !ok || stats.pnl.Len() == 0 {
		return 0
	}

	notional := e.equity() * e.cfg.NotionalFraction
	cost := notional * stats.slippage.Percentile(0.75) / 10_000.0
	return stats.pnl.Mean() - cost
}

// SlippageP75 returns the 75th-percentile absolute slippage in bps for the
// symbol, or 0 with no history.
func (e *Estimator) SlippageP75(symbol string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats, ok := e.symbols[symbol]
	if !ok {
		return 0
	}
	return stats.slippage.Percentile(0.75)
}

// SampleCount returns the number of recorded outcomes for the symbol.
func (e *Estimator) SampleCount(symbol string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats, ok := e.symbols[symbol]
	if !ok {
		return 0
	}
	return stats.pnl.Len()
}

// Package lifecycle owns the state machine of each open position: trailing
// stops, volatility stops, profit unlocks, pyramiding, and time decay. The
// entry path hands a filled position to the Manager, which runs on its own
// periodic timer until the position closes.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/quantgate/internal/config"
	"github.com/sawpanic/quantgate/internal/metrics"
	"github.com/sawpanic/quantgate/internal/oracle"
	"github.com/sawpanic/quantgate/internal/persistence"
)

// Exit reasons recorded on close.
const (
	ExitStopHit    = "stop_hit"
	ExitTakeProfit = "take_profit"
	ExitTimeDecay  = "time_decay"
)

// Executor places the orders the lifecycle emits: pyramid adds and closes.
type Executor interface {
	PlaceAdd(ctx context.Context, symbol string, side Side, size float64) error
	ClosePosition(ctx context.Context, symbol string, reason string) error
}

// Manager serializes updates per position: at most one in-flight update per
// symbol, because stop tightening and trailing-step growth are monotone and
// must not race against themselves.
type Manager struct {
	mu        sync.Mutex
	cfg       config.LifecycleConfig
	prices    oracle.PriceOracle
	executor  Executor
	auditor   *persistence.Auditor
	positions map[string]*slot
	now       func() time.Time

	// Metrics is optional; when set, transitions and oracle fallbacks are
	// counted.
	Metrics *metrics.Registry
}

type slot struct {
	mu  sync.Mutex
	pos Position
}

// NewManager creates a lifecycle manager. auditor may be nil.
func NewManager(cfg config.LifecycleConfig, prices oracle.PriceOracle, executor Executor, auditor *persistence.Auditor) *Manager {
	return &Manager{
		cfg:       cfg,
		prices:    prices,
		executor:  executor,
		auditor:   auditor,
		positions: make(map[string]*slot),
		now:       time.Now,
	}
}

// Open accepts ownership of a freshly filled position.
func (m *Manager) Open(pos Position) error {
	if err := pos.validate(); err != nil {
		return err
	}
	if pos.StopPrice == 0 {
		pos.StopPrice = pos.InitialStop
	}
	if pos.InitialSize == 0 {
		pos.InitialSize = pos.Size
	}
	if pos.TrailingStep == 0 {
		pos.TrailingStep = m.cfg.TrailingStepPct
	}
	if pos.OpenedAt.IsZero() {
		pos.OpenedAt = m.now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.positions[pos.Symbol]; exists {
		return fmt.Errorf("position for %s already open", pos.Symbol)
	}
	m.positions[pos.Symbol] = &slot{pos: pos}

	log.Info().
		Str("symbol", pos.Symbol).
		Str("side", string(pos.Side)).
		Float64("entry", pos.EntryPrice).
		Float64("stop", pos.StopPrice).
		Float64("size", pos.Size).
		Msg("position opened")
	return nil
}

// Get returns a copy of the open position for symbol.
func (m *Manager) Get(symbol string) (Position, bool) {
	m.mu.Lock()
	sl, ok := m.positions[symbol]
	m.mu.Unlock()
	if !ok {
		return Position{}, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.pos, true
}

// OpenCount returns the number of positions currently owned.
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.positions)
}

// Run drives UpdateAll on the configured interval until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.UpdateAll(ctx)
		}
	}
}

// UpdateAll runs one management cycle over every open position. A fault on
// one symbol never blocks the rest of the portfolio.
func (m *Manager) UpdateAll(ctx context.Context) {
	m.mu.Lock()
	symbols := make([]string, 0, len(m.positions))
	for sym := range m.positions {
		symbols = append(symbols, sym)
	}
	m.mu.Unlock()

	for _, sym := range symbols {
		if err := m.UpdateOne(ctx, sym); err != nil {
			switch {
			case errors.Is(err, ErrContention):
				log.Debug().Str("symbol", sym).Msg("position update dropped, retrying next cycle")
			case errors.Is(err, ErrInvalidState):
				log.Warn().Str("symbol", sym).Msg("position state invalid, update skipped")
			case errors.Is(err, oracle.ErrDataUnavailable):
				log.Warn().Err(err).Str("symbol", sym).Msg("price unavailable, update skipped")
			default:
				log.Error().Err(err).Str("symbol", sym).Msg("position update failed")
			}
		}
	}
}

// UpdateOne applies one management cycle to a single position. The update is
// logically atomic: mutations are staged on a copy and committed only after
// every step succeeds, so a partial failure leaves the prior valid state.
func (m *Manager) UpdateOne(ctx context.Context, symbol string) error {
	m.mu.Lock()
	sl, ok := m.positions[symbol]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	if !sl.mu.TryLock() {
		return fmt.Errorf("%w: %s", ErrContention, symbol)
	}
	defer sl.mu.Unlock()

	price, err := m.prices.Price(ctx, symbol)
	if err != nil {
		return fmt.Errorf("price lookup for %s: %w", symbol, err)
	}
	if price <= 0 {
		return fmt.Errorf("%w: non-positive price %.4f for %s", ErrInvalidState, price, symbol)
	}

	next := sl.pos
	r, ok := next.rMultiple(price)
	if !ok {
		return fmt.Errorf("%w: r-multiple undefined for %s", ErrInvalidState, symbol)
	}

	// Exit checks run before management, in precedence order.
	if reason := m.exitReason(&next, price, r); reason != "" {
		if err := m.executor.ClosePosition(ctx, symbol, reason); err != nil {
			return fmt.Errorf("close %s (%s): %w", symbol, reason, err)
		}
		m.mu.Lock()
		delete(m.positions, symbol)
		m.mu.Unlock()
		m.audit(ctx, symbol, reason, map[string]interface{}{
			"price": price,
			"r":     r,
		})
		log.Info().Str("symbol", symbol).Str("reason", reason).Float64("r", r).Msg("position closed")
		return nil
	}

	transitions := m.manage(ctx, &next, price, r)

	// Pyramid adds place an order before the commit; a placement failure
	// aborts the whole update so the add count stays consistent with the
	// orders actually emitted.
	if r >= m.cfg.PyramidTriggerR && next.PyramidAdds < m.cfg.PyramidMaxAdds {
		addSize := next.InitialSize * m.cfg.PyramidSizeFrac
		if err := m.executor.PlaceAdd(ctx, symbol, next.Side, addSize); err != nil {
			return fmt.Errorf("pyramid add for %s: %w", symbol, err)
		}
		next.PyramidAdds++
		next.Size += addSize
		next.TrailingStep = minFloat(next.TrailingStep+m.cfg.PyramidStepTighten, m.cfg.TrailingStepMaxPct)
		transitions = append(transitions, "pyramid_add")
	}

	sl.pos = next

	for _, tr := range transitions {
		m.audit(ctx, symbol, tr, map[string]interface{}{
			"price": price,
			"r":     r,
			"stop":  next.StopPrice,
			"adds":  next.PyramidAdds,
		})
	}
	return nil
}

// exitReason evaluates the exit conditions in precedence order.
func (m *Manager) exitReason(p *Position, price, r float64) string {
	if p.stopHit(price) {
		return ExitStopHit
	}
	if p.takeProfitHit(price) {
		return ExitTakeProfit
	}
	heldMinutes := m.now().Sub(p.OpenedAt).Minutes()
	if heldMinutes >= m.cfg.TimeDecayMinutes && r < m.cfg.ProgressThresholdR {
		return ExitTimeDecay
	}
	return ""
}

// manage applies the in-place transitions: trailing activation, profit
// unlock, and the per-cycle volatility stop. The stop never loosens.
func (m *Manager) manage(ctx context.Context, p *Position, price, r float64) []string {
	var transitions []string

	if !p.TrailingActive && r >= m.cfg.TrailingStartR {
		p.TrailingActive = true
		transitions = append(transitions, "trailing_activated")
	}

	if !p.TPUnlocked && r >= m.cfg.TPUnlockR && p.TakeProfit > 0 {
		if p.Side == SideLong {
			p.TakeProfit *= m.cfg.TPWidenFactor
		} else {
			p.TakeProfit /= m.cfg.TPWidenFactor
		}
		p.TPUnlocked = true
		transitions = append(transitions, "tp_unlocked")
	}

	// Volatility stop from current ATR, constant fallback when the lookup
	// fails. Tightening only.
	atrBps, err := m.prices.ATRBps(ctx, p.Symbol)
	if err != nil || atrBps <= 0 {
		if err != nil {
			log.Warn().Err(err).Str("symbol", p.Symbol).Msg("atr unavailable, using fallback")
		}
		if m.Metrics != nil {
			m.Metrics.OracleFallbacks.WithLabelValues("atr").Inc()
		}
		atrBps = m.cfg.ATRFallbackBps
	}
	width := atrBps / 10_000.0 * m.cfg.ATRRiskMult
	volStop := price * (1 - width)
	if p.Side == SideShort {
		volStop = price * (1 + width)
	}
	tightened := p.tightenStop(volStop)

	if p.TrailingActive {
		trailStop := price * (1 - p.TrailingStep)
		if p.Side == SideShort {
			trailStop = price * (1 + p.TrailingStep)
		}
		if p.tightenStop(trailStop) {
			tightened = true
		}
	}
	if tightened {
		transitions = append(transitions, "stop_tightened")
	}

	return transitions
}

func (m *Manager) audit(ctx context.Context, symbol, transition string, details map[string]interface{}) {
	if m.Metrics != nil {
		m.Metrics.LifecycleTransitions.WithLabelValues(transition).Inc()
	}
	if m.auditor == nil {
		return
	}
	m.auditor.Record(ctx, persistence.AuditLifecycle, symbol, transition, details)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

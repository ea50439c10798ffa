// Package learner attributes realized expected value to signal families per
// market regime and republishes bounded weight vectors for the upstream
// fusion scorer. The procedure is fully deterministic: identical input
// windows and starting weights always produce identical published weights.
package learner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/quantgate/internal/artifacts"
	"github.com/sawpanic/quantgate/internal/config"
	"github.com/sawpanic/quantgate/internal/metrics"
	"github.com/sawpanic/quantgate/internal/persistence"
	"github.com/sawpanic/quantgate/internal/regime"
)

// Learner runs on its own slow cadence. Overlapping runs are serialized
// with a coarse mutex; fine-grained locking is unnecessary because a run is
// a small bounded in-memory computation.
type Learner struct {
	mu        sync.Mutex
	cfg       config.LearnerConfig
	decisions persistence.DecisionRepo
	auditor   *persistence.Auditor
	now       func() time.Time

	// Metrics is optional; when set, published updates are counted.
	Metrics *metrics.Registry
}

// New creates a weight learner. auditor may be nil.
func New(cfg config.LearnerConfig, decisions persistence.DecisionRepo, auditor *persistence.Auditor) *Learner {
	return &Learner{
		cfg:       cfg,
		decisions: decisions,
		auditor:   auditor,
		now:       time.Now,
	}
}

// Run drives RunCycle on the configured interval until ctx is done.
func (l *Learner) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.RunCycle(ctx); err != nil {
				log.Error().Err(err).Msg("weight learner cycle failed")
			}
		}
	}
}

// RunCycle executes one learning pass: read the decision window, attribute
// EV per signal per regime, derive target shares, step the weights toward
// them, and publish the full mapping as one atomic artifact. Every regime
// in the default configuration is processed every cycle; regimes with no
// recent data drift toward the uniform fallback, scaled by learning_rate.
func (l *Learner) RunCycle(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	window, err := l.decisions.Recent(ctx, l.cfg.WindowSize)
	if err != nil {
		return fmt.Errorf("failed to read decision window: %w", err)
	}

	current := l.currentWeights()
	attr := attribute(window)

	updated := make(map[string]regime.WeightVector, len(current))
	for _, reg := range regime.All() {
		old := current[reg]
		if old == nil {
			old = regime.Uniform()
		}
		target := targetShare(attr[reg].PerSignal, l.cfg.Epsilon)
		updated[reg] = l.step(old, target)
	}

	art := artifacts.WeightsArtifact{
		UpdatedAt: l.now().UTC(),
		Regimes:   updated,
	}
	if err := artifacts.PublishWeights(l.cfg.ArtifactPath, art); err != nil {
		return fmt.Errorf("failed to publish weights: %w", err)
	}

	for _, reg := range regime.All() {
		l.auditCycle(ctx, reg, current[reg], updated[reg], attr[reg])
	}
	if l.Metrics != nil {
		l.Metrics.WeightUpdates.Inc()
	}

	log.Info().
		Int("window", len(window)).
		Int("regimes", len(updated)).
		Msg("regime weights republished")
	return nil
}

// currentWeights loads the last published artifact, falling back to the
// documented defaults when no artifact exists yet.
func (l *Learner) currentWeights() map[string]regime.WeightVector {
	art, err := artifacts.LoadWeights(l.cfg.ArtifactPath, l.cfg.MinWeight, l.cfg.MaxWeight)
	if err != nil {
		if !errors.Is(err, artifacts.ErrConfigMissing) {
			log.Warn().Err(err).Msg("weights artifact unreadable, using defaults")
		}
		return regime.DefaultVectors()
	}

	// Fill any regime the artifact predates.
	for _, reg := range regime.All() {
		if _, ok := art.Regimes[reg]; !ok {
			art.Regimes[reg] = regime.DefaultVectors()[reg]
		}
	}
	return art.Regimes
}

// step moves old toward target elementwise, clips to bounds, and
// renormalizes to sum to 1 (uniform fallback when the clipped total is 0).
func (l *Learner) step(old, target regime.WeightVector) regime.WeightVector {
	signals := regime.Signals()
	next := make(regime.WeightVector, len(signals))

	total := 0.0
	for _, name := range signals {
		w := old[name] + l.cfg.LearningRate*(target[name]-old[name])
		w = clamp(w, l.cfg.MinWeight, l.cfg.MaxWeight)
		next[name] = w
		total += w
	}
	if total == 0 {
		return regime.Uniform()
	}
	for _, name := range signals {
		next[name] /= total
	}

	// Renormalization can push a weight past its bound when the clipped
	// total sits far from 1; one corrective clip-and-rescale pass keeps
	// every component inside [min_w, max_w] while preserving the sum.
	next = renormalizeBounded(next, l.cfg.MinWeight, l.cfg.MaxWeight)
	return next
}

// renormalizeBounded redistributes mass so the vector sums to 1 with every
// component inside [minW, maxW]. Deterministic; iterates signals in stable
// order.
func renormalizeBounded(wv regime.WeightVector, minW, maxW float64) regime.WeightVector {
	signals := regime.Signals()
	out := wv.Clone()

	for iter := 0; iter < 4; iter++ {
		free := 0.0
		for _, name := range signals {
			w := clamp(out[name], minW, maxW)
			out[name] = w
			if w > minW && w < maxW {
				free += w
			}
		}
		sum := 0.0
		for _, name := range signals {
			sum += out[name]
		}
		diff := 1.0 - sum
		if abs(diff) <= 1e-9 {
			break
		}
		if free == 0 {
			// Everything pinned at a bound; spread evenly.
			for _, name := range signals {
				out[name] += diff / float64(len(signals))
			}
			continue
		}
		for _, name := range signals {
			if out[name] > minW && out[name] < maxW {
				out[name] += diff * out[name] / free
			}
		}
	}
	return out
}

func (l *Learner) auditCycle(ctx context.Context, reg string, old, updated regime.WeightVector, attr Attribution) {
	if l.auditor == nil {
		return
	}
	details := map[string]interface{}{
		"regime":      reg,
		"old":         toPlainMap(old),
		"new":         toPlainMap(updated),
		"attribution": attr.PerSignal,
		"decisions":   attr.Decisions,
	}
	l.auditor.Record(ctx, persistence.AuditWeightUpdate, "", reg, details)
}

func toPlainMap(wv regime.WeightVector) map[string]float64 {
	if wv == nil {
		return nil
	}
	out := make(map[string]float64, len(wv))
	for k, v := range wv {
		out[k] = v
	}
	return out
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

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

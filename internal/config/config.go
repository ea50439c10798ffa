package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates the per-component threshold blocks. Every field is
// bounded and validated on load; a missing file yields the built-in
// conservative defaults rather than an error.
type Config struct {
	Gates      GateConfig      `yaml:"gates"`
	Expectancy ExpectancyConfig `yaml:"expectancy"`
	Sizing     SizingConfig    `yaml:"sizing"`
	Lifecycle  LifecycleConfig `yaml:"lifecycle"`
	Routing    RoutingConfig   `yaml:"routing"`
	Learner    LearnerConfig   `yaml:"learner"`
	Store      StoreConfig     `yaml:"store"`
	Oracle     OracleConfig    `yaml:"oracle"`
}

// GateConfig contains admission-gate thresholds and fallbacks applied when
// no policy artifact is present.
type GateConfig struct {
	DefaultROIGate     float64 `yaml:"default_roi_gate"`     // 0.005 = 50 bps predicted ROI
	DefaultHourlyCap   int     `yaml:"default_hourly_cap"`   // trades per sliding hour
	MaxAnomalies       int     `yaml:"max_anomalies"`        // trailing anomaly count ceiling
	MinQualityScore    float64 `yaml:"min_quality_score"`    // fused ensemble floor
	MinExpectedValue   float64 `yaml:"min_expected_value"`   // EV floor in quote units
	PolicyArtifactPath string  `yaml:"policy_artifact_path"` // re-read every cycle
	// RegimeROIScale multiplies the composed ROI gate per regime label.
	// Empty means no scaling; unknown regimes get the largest scale.
	RegimeROIScale map[string]float64 `yaml:"regime_roi_scale"`
}

// ExpectancyConfig bounds the rolling expectancy estimator.
type ExpectancyConfig struct {
	WindowSize       int     `yaml:"window_size"`       // per-symbol outcome window (50)
	NotionalFraction float64 `yaml:"notional_fraction"` // share of equity per trade (0.15)
}

// SizingConfig bounds the adaptive size multiplier.
type SizingConfig struct {
	MinMult        float64 `yaml:"min_mult"`         // lower clamp (0.5)
	MaxMult        float64 `yaml:"max_mult"`         // upper clamp (2.0)
	RampUp         float64 `yaml:"ramp_up"`          // multiplicative step on good cycles (0.10)
	RampDown       float64 `yaml:"ramp_down"`        // multiplicative step on bad cycles (0.20)
	MinEV          float64 `yaml:"min_ev"`           // EV floor for ramping up
	SlippageCapBps float64 `yaml:"slippage_cap_bps"` // p75 slippage ceiling for ramping up
}

// LifecycleConfig drives the position state machine.
type LifecycleConfig struct {
	TrailingStartR     float64       `yaml:"trailing_start_r"`     // R at which trailing activates (1.0)
	TrailingStepPct    float64       `yaml:"trailing_step_pct"`    // initial trailing width as price fraction (0.01)
	TrailingStepMaxPct float64       `yaml:"trailing_step_max_pct"` // width ceiling (0.03)
	TPUnlockR          float64       `yaml:"tp_unlock_r"`          // R at which take-profit widens (2.0)
	TPWidenFactor      float64       `yaml:"tp_widen_factor"`      // multiplicative widening (1.25)
	ATRRiskMult        float64       `yaml:"atr_risk_mult"`        // volatility stop multiplier (1.5)
	ATRFallbackBps     float64       `yaml:"atr_fallback_bps"`     // constant when ATR lookup fails (25)
	PyramidTriggerR    float64       `yaml:"pyramid_trigger_r"`    // R at which an add fires (1.5)
	PyramidMaxAdds     int           `yaml:"pyramid_max_adds"`     // absolute add ceiling (2)
	PyramidSizeFrac    float64       `yaml:"pyramid_size_frac"`    // add size vs initial size (0.5)
	PyramidStepTighten float64       `yaml:"pyramid_step_tighten"` // trailing width increment per add (0.005)
	TimeDecayMinutes   float64       `yaml:"time_decay_minutes"`   // stale-position horizon (240)
	ProgressThresholdR float64       `yaml:"progress_threshold_r"` // R below which decay exits (0.5)
	UpdateInterval     time.Duration `yaml:"update_interval"`      // lifecycle tick (5s)
}

// RoutingConfig holds the maker/taker decision thresholds.
type RoutingConfig struct {
	QueueMin     float64 `yaml:"queue_min"`     // minimum queue-position estimate (0.35)
	ImbalanceMin float64 `yaml:"imbalance_min"` // minimum bid-share imbalance (0.55)
	// HysteresisBand is reserved for a debounce extension; the selector
	// currently ignores it and applies the raw threshold rule.
	HysteresisBand float64 `yaml:"hysteresis_band"`
}

// LearnerConfig bounds the regime weight learner.
type LearnerConfig struct {
	WindowSize   int           `yaml:"window_size"`   // scored decisions per cycle (200)
	LearningRate float64       `yaml:"learning_rate"` // step toward target share (0.2)
	MinWeight    float64       `yaml:"min_weight"`    // per-signal floor (0.05)
	MaxWeight    float64       `yaml:"max_weight"`    // per-signal ceiling (0.60)
	Epsilon      float64       `yaml:"epsilon"`       // shift applied when deriving target shares
	Interval     time.Duration `yaml:"interval"`      // learner cadence (4h)
	ArtifactPath string        `yaml:"artifact_path"` // published weight vectors
}

// StoreConfig configures the shared state store.
type StoreConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`     // empty = in-memory only
	FlushInterval time.Duration `yaml:"flush_interval"` // durable flush cadence (30s)
}

// OracleConfig bounds every external lookup.
type OracleConfig struct {
	Timeout             time.Duration `yaml:"timeout"`               // per-call ceiling (2s)
	RateLimitPerSec     float64       `yaml:"rate_limit_per_sec"`    // token bucket refill (10)
	RateLimitBurst      int           `yaml:"rate_limit_burst"`      // token bucket burst (5)
	BreakerMaxFailures  uint32        `yaml:"breaker_max_failures"`  // consecutive failures to trip (5)
	BreakerOpenInterval time.Duration `yaml:"breaker_open_interval"` // open state duration (30s)
}

// Default returns the documented conservative defaults.
func Default() *Config {
	return &Config{
		Gates: GateConfig{
			DefaultROIGate:     0.005,
			DefaultHourlyCap:   6,
			MaxAnomalies:       3,
			MinQualityScore:    0.4,
			MinExpectedValue:   0.5,
			PolicyArtifactPath: "config/policies.yaml",
		},
		Expectancy: ExpectancyConfig{
			WindowSize:       50,
			NotionalFraction: 0.15,
		},
		Sizing: SizingConfig{
			MinMult:        0.5,
			MaxMult:        2.0,
			RampUp:         0.10,
			RampDown:       0.20,
			MinEV:          0.5,
			SlippageCapBps: 15.0,
		},
		Lifecycle: LifecycleConfig{
			TrailingStartR:     1.0,
			TrailingStepPct:    0.010,
			TrailingStepMaxPct: 0.030,
			TPUnlockR:          2.0,
			TPWidenFactor:      1.25,
			ATRRiskMult:        1.5,
			ATRFallbackBps:     25.0,
			PyramidTriggerR:    1.5,
			PyramidMaxAdds:     2,
			PyramidSizeFrac:    0.5,
			PyramidStepTighten: 0.005,
			TimeDecayMinutes:   240,
			ProgressThresholdR: 0.5,
			UpdateInterval:     5 * time.Second,
		},
		Routing: RoutingConfig{
			QueueMin:     0.35,
			ImbalanceMin: 0.55,
		},
		Learner: LearnerConfig{
			WindowSize:   200,
			LearningRate: 0.2,
			MinWeight:    0.05,
			MaxWeight:    0.60,
			Epsilon:      1e-6,
			Interval:     4 * time.Hour,
			ArtifactPath: "artifacts/regime_weights.yaml",
		},
		Store: StoreConfig{
			FlushInterval: 30 * time.Second,
		},
		Oracle: OracleConfig{
			Timeout:             2 * time.Second,
			RateLimitPerSec:     10,
			RateLimitBurst:      5,
			BreakerMaxFailures:  5,
			BreakerOpenInterval: 30 * time.Second,
		},
	}
}

// Load reads the config file at path, layering it over the defaults.
// A missing file is not an error: the defaults apply unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks every bounded field.
func (c *Config) Validate() error {
	if c.Gates.DefaultROIGate < 0 || c.Gates.DefaultROIGate > 0.5 {
		return fmt.Errorf("gates.default_roi_gate %.4f out of range [0, 0.5]", c.Gates.DefaultROIGate)
	}
	if c.Gates.DefaultHourlyCap < 1 || c.Gates.DefaultHourlyCap > 1000 {
		return fmt.Errorf("gates.default_hourly_cap %d out of range [1, 1000]", c.Gates.DefaultHourlyCap)
	}
	for reg, scale := range c.Gates.RegimeROIScale {
		if scale <= 0 {
			return fmt.Errorf("gates.regime_roi_scale[%s] %.3f must be positive", reg, scale)
		}
	}
	if c.Expectancy.WindowSize < 1 || c.Expectancy.WindowSize > 10000 {
		return fmt.Errorf("expectancy.window_size %d out of range [1, 10000]", c.Expectancy.WindowSize)
	}
	if c.Expectancy.NotionalFraction <= 0 || c.Expectancy.NotionalFraction > 1 {
		return fmt.Errorf("expectancy.notional_fraction %.3f out of range (0, 1]", c.Expectancy.NotionalFraction)
	}
	if c.Sizing.MinMult <= 0 || c.Sizing.MaxMult <= c.Sizing.MinMult {
		return fmt.Errorf("sizing bounds invalid: min %.3f, max %.3f", c.Sizing.MinMult, c.Sizing.MaxMult)
	}
	if c.Sizing.RampUp <= 0 || c.Sizing.RampUp > 1 || c.Sizing.RampDown <= 0 || c.Sizing.RampDown > 1 {
		return fmt.Errorf("sizing ramps invalid: up %.3f, down %.3f", c.Sizing.RampUp, c.Sizing.RampDown)
	}
	if c.Lifecycle.PyramidMaxAdds < 0 || c.Lifecycle.PyramidMaxAdds > 10 {
		return fmt.Errorf("lifecycle.pyramid_max_adds %d out of range [0, 10]", c.Lifecycle.PyramidMaxAdds)
	}
	if c.Lifecycle.TrailingStepPct <= 0 || c.Lifecycle.TrailingStepMaxPct < c.Lifecycle.TrailingStepPct {
		return fmt.Errorf("lifecycle trailing step invalid: %.4f max %.4f",
			c.Lifecycle.TrailingStepPct, c.Lifecycle.TrailingStepMaxPct)
	}
	if c.Lifecycle.TPWidenFactor < 1.0 {
		return fmt.Errorf("lifecycle.tp_widen_factor %.3f must be >= 1.0", c.Lifecycle.TPWidenFactor)
	}
	if c.Routing.QueueMin < 0 || c.Routing.QueueMin > 1 || c.Routing.ImbalanceMin < 0 || c.Routing.ImbalanceMin > 1 {
		return fmt.Errorf("routing thresholds must lie in [0, 1]: queue %.3f, imbalance %.3f",
			c.Routing.QueueMin, c.Routing.ImbalanceMin)
	}
	if c.Learner.LearningRate <= 0 || c.Learner.LearningRate > 1 {
		return fmt.Errorf("learner.learning_rate %.3f out of range (0, 1]", c.Learner.LearningRate)
	}
	if c.Learner.MinWeight < 0 || c.Learner.MaxWeight <= c.Learner.MinWeight || c.Learner.MaxWeight > 1 {
		return fmt.Errorf("learner weight bounds invalid: [%.3f, %.3f]", c.Learner.MinWeight, c.Learner.MaxWeight)
	}
	if c.Learner.WindowSize < 1 {
		return fmt.Errorf("learner.window_size %d must be positive", c.Learner.WindowSize)
	}
	return nil
}

// Package artifacts reads and writes the file artifacts shared with the
// rest of the trading stack: the per-regime weight vectors published by the
// learner and the policy sets consumed by the gate evaluator.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/quantgate/internal/regime"
)

// ErrConfigMissing marks an absent artifact; callers apply their documented
// defaults and never fail the cycle.
var ErrConfigMissing = errors.New("artifact missing")

// WeightsArtifact is the full per-regime weight mapping, published as one
// atomic unit.
type WeightsArtifact struct {
	UpdatedAt time.Time                      `yaml:"updated_at"`
	Regimes   map[string]regime.WeightVector `yaml:"regimes"`
}

// PublishWeights writes the artifact atomically: marshal to a temp file in
// the target directory, fsync, then rename over the destination. Readers
// never observe a partial artifact.
func PublishWeights(path string, art WeightsArtifact) error {
	data, err := yaml.Marshal(art)
	if err != nil {
		return fmt.Errorf("failed to marshal weights artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".weights-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp artifact: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to publish weights artifact: %w", err)
	}
	return nil
}

// LoadWeights reads and validates a published artifact. A missing file
// returns ErrConfigMissing.
func LoadWeights(path string, minW, maxW float64) (WeightsArtifact, error) {
	var art WeightsArtifact

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return art, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return art, fmt.Errorf("failed to read weights artifact: %w", err)
	}

	if err := yaml.Unmarshal(data, &art); err != nil {
		return art, fmt.Errorf("failed to parse weights artifact: %w", err)
	}

	for name, wv := range art.Regimes {
		if err := regime.Validate(wv, minW, maxW); err != nil {
			return art, fmt.Errorf("invalid weights for regime %s: %w", name, err)
		}
	}
	return art, nil
}

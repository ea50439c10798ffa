package artifacts

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/quantgate/internal/gates"
)

// PolicyFile is a gates.PolicySource that re-reads its artifact on every
// call, so policy changes take effect next cycle and are never trusted
// beyond the cycle that read them. Read failures degrade to an empty set
// (the evaluator's conservative defaults) rather than failing evaluation.
type PolicyFile struct {
	Path string
}

// Policies implements gates.PolicySource.
func (pf PolicyFile) Policies() []gates.Policy {
	policies, err := LoadPolicies(pf.Path)
	if err != nil {
		log.Warn().Err(err).Str("path", pf.Path).Msg("policy artifact unavailable, using defaults")
		return nil
	}
	return policies
}

// LoadPolicies reads a policy artifact. A missing file returns
// ErrConfigMissing.
func LoadPolicies(path string) ([]gates.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("failed to read policy artifact: %w", err)
	}

	var doc struct {
		Policies []gates.Policy `yaml:"policies"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse policy artifact: %w", err)
	}
	return doc.Policies, nil
}

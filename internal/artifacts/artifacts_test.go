package artifacts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/quantgate/internal/regime"
)

func TestPublishWeights_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts", "regime_weights.yaml")
	art := WeightsArtifact{
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Regimes:   regime.DefaultVectors(),
	}

	require.NoError(t, PublishWeights(path, art))

	got, err := LoadWeights(path, 0.05, 0.60)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(art.UpdatedAt))
	require.Len(t, got.Regimes, len(regime.All()))
	for _, reg := range regime.All() {
		for _, name := range regime.Signals() {
			assert.InDelta(t, art.Regimes[reg][name], got.Regimes[reg][name], 1e-9)
		}
	}
}

func TestPublishWeights_OverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regime_weights.yaml")

	first := WeightsArtifact{UpdatedAt: time.Now().UTC(), Regimes: regime.DefaultVectors()}
	require.NoError(t, PublishWeights(path, first))

	second := first
	second.Regimes = map[string]regime.WeightVector{regime.Trend: regime.Uniform()}
	require.NoError(t, PublishWeights(path, second))

	got, err := LoadWeights(path, 0.05, 0.60)
	require.NoError(t, err)
	assert.Len(t, got.Regimes, 1)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadWeights_MissingFile(t *testing.T) {
	_, err := LoadWeights(filepath.Join(t.TempDir(), "absent.yaml"), 0.05, 0.60)
	assert.ErrorIs(t, err, ErrConfigMissing)
}

func TestLoadWeights_RejectsOutOfBoundsVectors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regime_weights.yaml")
	art := WeightsArtifact{
		UpdatedAt: time.Now().UTC(),
		Regimes: map[string]regime.WeightVector{
			regime.Trend: {
				regime.SignalMomentum:  0.80, // above max
				regime.SignalTechnical: 0.10,
				regime.SignalVolume:    0.05,
				regime.SignalQuality:   0.05,
			},
		},
	}
	require.NoError(t, PublishWeights(path, art))

	_, err := LoadWeights(path, 0.05, 0.60)
	assert.Error(t, err)
}

func TestLoadPolicies_MissingFile(t *testing.T) {
	_, err := LoadPolicies(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrConfigMissing)
}

func TestLoadPolicies_ParsesPolicySet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	doc := `policies:
  - name: base
    roi_threshold: 0.005
    max_trades_per_hour: 6
  - name: strict
    roi_threshold: 0.006
    prefer_limit: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	policies, err := LoadPolicies(path)
	require.NoError(t, err)
	require.Len(t, policies, 2)
	assert.Equal(t, "base", policies[0].Name)
	assert.Equal(t, 0.005, policies[0].ROIThreshold)
	assert.Equal(t, 6, policies[0].MaxTradesPerHour)
	assert.True(t, policies[1].PreferLimit)
}

func TestPolicyFile_DegradesToEmptySet(t *testing.T) {
	pf := PolicyFile{Path: filepath.Join(t.TempDir(), "absent.yaml")}
	assert.Empty(t, pf.Policies())
}

func TestPolicyFile_ReReadsEveryCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	pf := PolicyFile{Path: path}

	require.NoError(t, os.WriteFile(path, []byte("policies:\n  - name: a\n"), 0o644))
	assert.Len(t, pf.Policies(), 1)

	require.NoError(t, os.WriteFile(path, []byte("policies:\n  - name: a\n  - name: b\n"), 0o644))
	assert.Len(t, pf.Policies(), 2)
}

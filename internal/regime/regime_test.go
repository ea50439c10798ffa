package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultVectors_CoverAllRegimesAndValidate(t *testing.T) {
	vectors := DefaultVectors()
	require.Len(t, vectors, len(All()))
	for _, reg := range All() {
		require.Contains(t, vectors, reg)
		assert.NoError(t, Validate(vectors[reg], 0.05, 0.60), "regime %s", reg)
	}
}

func TestUniform_SumsToOne(t *testing.T) {
	wv := Uniform()
	require.Len(t, wv, len(Signals()))
	for _, name := range Signals() {
		assert.Equal(t, 0.25, wv[name])
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		wv   WeightVector
	}{
		{"empty", WeightVector{}},
		{"below min", WeightVector{SignalMomentum: 0.01, SignalTechnical: 0.39, SignalVolume: 0.30, SignalQuality: 0.30}},
		{"above max", WeightVector{SignalMomentum: 0.70, SignalTechnical: 0.10, SignalVolume: 0.10, SignalQuality: 0.10}},
		{"sum off", WeightVector{SignalMomentum: 0.30, SignalTechnical: 0.30, SignalVolume: 0.30, SignalQuality: 0.30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Validate(tt.wv, 0.05, 0.60))
		})
	}
}

func TestClone_IsIndependent(t *testing.T) {
	orig := Uniform()
	cp := orig.Clone()
	cp[SignalMomentum] = 0.9
	assert.Equal(t, 0.25, orig[SignalMomentum])
}

package windio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ApplyDesignVariable(t *testing.T) {
	tests := []struct {
		name   string
		value  float64
		verify func(t *testing.T, tb *Turbine, m *ModelingOptions)
	}{
		{
			name:  VarPitchOmega,
			value: 0.85,
			verify: func(t *testing.T, tb *Turbine, m *ModelingOptions) {
				assert.Equal(t, 0.85, m.Controller.Pitch.Omega)
			},
		},
		{
			name:  VarTorqueZeta,
			value: 1.1,
			verify: func(t *testing.T, tb *Turbine, m *ModelingOptions) {
				assert.Equal(t, 1.1, m.Controller.Torque.Zeta)
			},
		},
		{
			name:  VarTwistScale,
			value: 1.2,
			verify: func(t *testing.T, tb *Turbine, m *ModelingOptions) {
				assert.InDelta(t, 13.3*1.2, tb.Components.Blade.Stations[0].TwistDeg, 1e-12)
				assert.InDelta(t, 0.1*1.2, tb.Components.Blade.Stations[2].TwistDeg, 1e-12)
			},
		},
		{
			name:  VarChordScale,
			value: 0.9,
			verify: func(t *testing.T, tb *Turbine, m *ModelingOptions) {
				assert.InDelta(t, 3.5*0.9, tb.Components.Blade.Stations[0].Chord, 1e-12)
			},
		},
		{
			name:  VarTowerScale,
			value: 1.05,
			verify: func(t *testing.T, tb *Turbine, m *ModelingOptions) {
				assert.InDelta(t, 87.6*1.05, tb.Components.Tower.Height, 1e-12)
				assert.InDelta(t, 90*1.05, tb.Assembly.HubHeight, 1e-12)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := testTurbine()
			m := &ModelingOptions{}
			m.applyDefaults()
			require.NoError(t, ApplyDesignVariable(tb, m, tt.name, tt.value))
			tt.verify(t, tb, m)
		})
	}
}

func Test_ApplyDesignVariable_unknown(t *testing.T) {
	err := ApplyDesignVariable(testTurbine(), &ModelingOptions{}, "nacelle.paint_color", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown design variable")
}

func Test_KnownDesignVariables_sortedAndValid(t *testing.T) {
	names := KnownDesignVariables()
	require.NotEmpty(t, names)
	for i, n := range names {
		assert.NoError(t, ValidateDesignVariable(n))
		if i > 0 {
			assert.Less(t, names[i-1], n)
		}
	}
}

package postpro

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The worked example of ASTM E1049 section 5.4.4.
func Test_CountCycles_astmExample(t *testing.T) {
	series := []float64{-2, 1, -3, 5, -1, 3, -4, 4, -2}
	cycles := CountCycles(series)

	want := []Cycle{
		{Range: 3, Mean: -0.5, Count: 0.5},
		{Range: 4, Mean: -1, Count: 0.5},
		{Range: 4, Mean: 1, Count: 1},
		{Range: 8, Mean: 1, Count: 0.5},
		{Range: 9, Mean: 0.5, Count: 0.5},
		{Range: 8, Mean: 0, Count: 0.5},
		{Range: 6, Mean: 1, Count: 0.5},
	}
	assert.Equal(t, want, cycles)
}

func Test_CountCycles_conservesTurningPoints(t *testing.T) {
	series := make([]float64, 500)
	for i := range series {
		x := float64(i)
		series[i] = math.Sin(0.7*x) + 0.5*math.Sin(2.3*x)
	}
	cycles := CountCycles(series)
	require.NotEmpty(t, cycles)

	var total float64
	for _, c := range cycles {
		total += 2 * c.Count
	}
	// every range between adjacent turning points is counted once
	assert.InDelta(t, float64(len(turningPoints(series))-1), total, 1e-9)
}

func Test_CountCycles_degenerate(t *testing.T) {
	assert.Nil(t, CountCycles(nil))
	assert.Nil(t, CountCycles([]float64{4}))
	assert.Nil(t, CountCycles([]float64{4, 4, 4}))

	cycles := CountCycles([]float64{0, 2})
	require.Len(t, cycles, 1)
	assert.Equal(t, Cycle{Range: 2, Mean: 1, Count: 0.5}, cycles[0])
}

func Test_turningPoints(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		want   []float64
	}{
		{
			name:   "monotone collapses to endpoints",
			series: []float64{0, 1, 2, 3},
			want:   []float64{0, 3},
		},
		{
			name:   "repeats collapse",
			series: []float64{0, 1, 1, 1, 0},
			want:   []float64{0, 1, 0},
		},
		{
			name:   "extrema survive",
			series: []float64{0, 2, 1, 3, -1},
			want:   []float64{0, 2, 1, 3, -1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, turningPoints(tt.series))
		})
	}
}

// A pure sinusoid cycled at the equivalent frequency must come out with
// a damage-equivalent load of its own peak-to-peak range.
func Test_DamageEqLoad_sinusoid(t *testing.T) {
	const (
		amp     = 3.0
		freq    = 1.0 // Hz
		elapsed = 50.0
		dt      = 0.05
	)
	var series []float64
	for i := 0; i <= int(elapsed/dt); i++ {
		series = append(series, amp*math.Sin(2*math.Pi*freq*dt*float64(i)))
	}
	del := DamageEqLoad(CountCycles(series), 10, elapsed, freq)
	assert.InEpsilon(t, 2*amp, del, 0.01)
}

func Test_DamageEqLoad_degenerate(t *testing.T) {
	assert.Zero(t, DamageEqLoad(nil, 4, 600, 1))
	assert.Zero(t, DamageEqLoad([]Cycle{{Range: 1, Count: 1}}, 4, 0, 1))
	assert.Zero(t, DamageEqLoad([]Cycle{{Range: 1, Count: 1}}, 4, 600, 0))
}

func Test_GoodmanCorrect(t *testing.T) {
	cycles := []Cycle{
		{Range: 10, Mean: 5, Count: 1},
		{Range: 10, Mean: -5, Count: 0.5},
		{Range: 4, Mean: 0, Count: 1},
	}
	out, err := GoodmanCorrect(cycles, 20)
	require.NoError(t, err)
	require.Len(t, out, 3)

	// R' = R / (1 - |mean|/ultimate), sign of the mean is irrelevant
	assert.InDelta(t, 10/0.75, out[0].Range, 1e-12)
	assert.InDelta(t, 10/0.75, out[1].Range, 1e-12)
	assert.InDelta(t, 4.0, out[2].Range, 1e-12)
	assert.Equal(t, 0.5, out[1].Count)

	_, err = GoodmanCorrect(cycles, 0)
	assert.ErrorContains(t, err, "positive ultimate load")

	_, err = GoodmanCorrect([]Cycle{{Range: 1, Mean: 25, Count: 1}}, 20)
	assert.ErrorContains(t, err, "reaches the ultimate load")
}

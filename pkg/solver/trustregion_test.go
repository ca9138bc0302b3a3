package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windco-project/windco/pkg/windio"
)

func Test_TrustRegion_convergesWithOffsetSurrogate(t *testing.T) {
	analysis := testAnalysis(windio.DriverTrustRegion)
	analysis.Driver.Optimization.MaxIterations = 30
	analysis.Driver.Optimization.MaxHighFidelity = 20

	// the reduced-order model is the bowl plus a constant bias; the
	// additive correction removes it exactly
	p := NewProblem(analysis, bowlEvaluator(0.7))
	driver, err := New(Spec{Options: analysis.Driver.Optimization, Problem: p, Fidelity: windio.FidelityAeroelastic})
	require.NoError(t, err)

	rep, err := driver.Solve(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.Converged)
	assert.Contains(t, rep.Reason, "trust radius")
	assert.Less(t, rep.Best.Objective, 1e-2)
	assert.InDelta(t, 0.3, rep.Best.Design[windio.VarPitchOmega], 0.05)
	assert.InDelta(t, 0.7, rep.Best.Design[windio.VarPitchZeta], 0.05)

	assert.LessOrEqual(t, rep.Evaluations[windio.FidelityAeroelastic], 20)
	assert.Positive(t, rep.Evaluations[windio.FidelityReduced])

	maxRadius := analysis.Driver.Optimization.TrustRegion.MaxRadius
	incumbent := rep.Initial.Objective
	for _, it := range rep.History {
		assert.LessOrEqual(t, it.Radius, maxRadius+1e-12)
		if it.Accepted {
			assert.Less(t, it.Objective, incumbent)
			incumbent = it.Objective
		}
	}
	assert.InDelta(t, rep.Best.Objective, incumbent, 1e-12)
}

func Test_TrustRegion_stopsOnHighFidelityBudget(t *testing.T) {
	analysis := testAnalysis(windio.DriverTrustRegion, windio.DesignVariable{
		Name: windio.VarPitchOmega, Lower: 0, Upper: 1, Init: fp(0.9),
	})
	analysis.Driver.Optimization.MaxIterations = 50
	analysis.Driver.Optimization.MaxHighFidelity = 3
	analysis.Driver.Optimization.Tolerance = 1e-9

	// a linear slope keeps every step improving, so only the budget
	// can stop the loop
	ev := &countingEvaluator{fn: func(design map[string]float64, _ int) (Measurement, error) {
		return Measurement{Merit: design[windio.VarPitchOmega]}, nil
	}}
	p := NewProblem(analysis, ev)
	driver, err := New(Spec{Options: analysis.Driver.Optimization, Problem: p, Fidelity: windio.FidelityAeroelastic})
	require.NoError(t, err)

	rep, err := driver.Solve(context.Background())
	require.NoError(t, err)

	assert.False(t, rep.Converged)
	assert.Equal(t, "high-fidelity budget exhausted", rep.Reason)
	assert.Equal(t, 3, rep.Evaluations[windio.FidelityAeroelastic])
	assert.Less(t, rep.Best.Design[windio.VarPitchOmega], 0.9)
	for _, it := range rep.History {
		assert.True(t, it.Accepted)
	}
}

func Test_TrustRegion_rejectedStepsKeepIncumbent(t *testing.T) {
	analysis := testAnalysis(windio.DriverTrustRegion, windio.DesignVariable{
		Name: windio.VarPitchOmega, Lower: 0, Upper: 1, Init: fp(0.2),
	})
	analysis.Driver.Optimization.MaxIterations = 30

	// the surrogate promises improvement with growing pitch_omega while
	// the high-fidelity optimum already sits at the start
	ev := &countingEvaluator{fn: func(design map[string]float64, fidelity int) (Measurement, error) {
		a := design[windio.VarPitchOmega]
		if fidelity == windio.FidelityReduced {
			return Measurement{Merit: -a}, nil
		}
		return Measurement{Merit: (a - 0.2) * (a - 0.2)}, nil
	}}
	p := NewProblem(analysis, ev)
	driver, err := New(Spec{Options: analysis.Driver.Optimization, Problem: p, Fidelity: windio.FidelityAeroelastic})
	require.NoError(t, err)

	rep, err := driver.Solve(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.Converged)
	assert.Contains(t, rep.Reason, "trust radius")
	assert.InDelta(t, 0.2, rep.Best.Design[windio.VarPitchOmega], 1e-9)
	assert.Zero(t, rep.Best.Objective)

	require.NotEmpty(t, rep.History)
	prevRadius := analysis.Driver.Optimization.TrustRegion.InitialRadius
	for _, it := range rep.History {
		assert.False(t, it.Accepted)
		assert.Less(t, it.Radius, prevRadius)
		prevRadius = it.Radius
	}
}

func Test_TrustRegion_contextCanceled(t *testing.T) {
	analysis := testAnalysis(windio.DriverTrustRegion)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	ev := &countingEvaluator{fn: func(design map[string]float64, _ int) (Measurement, error) {
		calls++
		if calls == 5 {
			cancel()
		}
		return Measurement{Merit: bowl(design)}, nil
	}}
	p := NewProblem(analysis, ev)
	driver, err := New(Spec{Options: analysis.Driver.Optimization, Problem: p, Fidelity: windio.FidelityAeroelastic})
	require.NoError(t, err)

	_, err = driver.Solve(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

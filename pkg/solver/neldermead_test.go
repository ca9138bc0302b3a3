package solver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windco-project/windco/pkg/windio"
)

func Test_NelderMead_convergesOnTheBowl(t *testing.T) {
	analysis := testAnalysis(windio.DriverNelderMead)
	p := NewProblem(analysis, bowlEvaluator(0))
	driver, err := New(Spec{Options: analysis.Driver.Optimization, Problem: p, Fidelity: windio.FidelityAeroelastic})
	require.NoError(t, err)

	rep, err := driver.Solve(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.Converged)
	assert.Less(t, rep.Best.Objective, 1e-3)
	assert.InDelta(t, 0.3, rep.Best.Design[windio.VarPitchOmega], 0.05)
	assert.InDelta(t, 0.7, rep.Best.Design[windio.VarPitchZeta], 0.05)

	// the search starts from the interval midpoints
	assert.InDelta(t, 0.08, rep.Initial.Objective, 1e-12)
	assert.NotEmpty(t, rep.History)
	assert.Equal(t, len(rep.History), rep.Evaluations[windio.FidelityAeroelastic])
}

func Test_NelderMead_propagatesEvaluatorErrors(t *testing.T) {
	analysis := testAnalysis(windio.DriverNelderMead)
	boom := errors.New("campaign lost its solver")
	calls := 0
	ev := &countingEvaluator{fn: func(design map[string]float64, _ int) (Measurement, error) {
		calls++
		if calls > 3 {
			return Measurement{}, boom
		}
		return Measurement{Merit: bowl(design)}, nil
	}}
	p := NewProblem(analysis, ev)
	driver, err := New(Spec{Options: analysis.Driver.Optimization, Problem: p, Fidelity: windio.FidelityAeroelastic})
	require.NoError(t, err)

	_, err = driver.Solve(context.Background())
	require.ErrorIs(t, err, boom)
}

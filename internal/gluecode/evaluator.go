package gluecode

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/windco-project/windco/internal/logging"
	"github.com/windco-project/windco/internal/postpro"
	"github.com/windco-project/windco/pkg/solver"
	"github.com/windco-project/windco/pkg/windio"
)

// campaignEvaluator measures one design point by rebuilding the
// turbine with the design applied and running a campaign at the
// requested fidelity. Every evaluation gets its own directory under
// evals/ in the run directory, so a dead optimization leaves its trail
// on disk.
type campaignEvaluator struct {
	p        *Pipeline
	runDir   string
	turbine  *windio.Turbine
	modeling *windio.ModelingOptions
	analysis *windio.AnalysisOptions

	n int
}

var _ solver.Evaluator = (*campaignEvaluator)(nil)

func (e *campaignEvaluator) Evaluate(ctx context.Context, design map[string]float64, fidelity int) (solver.Measurement, error) {
	e.n++
	dir := filepath.Join(e.runDir, "evals", fmt.Sprintf("%03d_f%d", e.n, fidelity))

	tb := e.turbine.DeepCopy()
	mo := e.modeling.DeepCopy()
	mo.General.Fidelity = fidelity
	for _, name := range sortedKeys(design) {
		if err := windio.ApplyDesignVariable(tb, mo, name, design[name]); err != nil {
			return solver.Measurement{}, err
		}
	}
	model, err := BuildModel(tb, mo)
	if err != nil {
		return solver.Measurement{}, fmt.Errorf("rebuild model: %w", err)
	}

	logging.FromContext(ctx).V(logging.DEBUG).Info("evaluating design",
		"eval", e.n, "fidelity", fidelity, "design", design)

	_, summary, err := e.p.runCampaign(ctx, dir, tb, mo, model)
	if err != nil {
		return solver.Measurement{}, err
	}

	merit, err := postpro.Extract(summary, e.analysis.MeritFigure.Name)
	if err != nil {
		return solver.Measurement{}, fmt.Errorf("merit %s: %w", e.analysis.MeritFigure.Name, err)
	}
	meas := solver.Measurement{Merit: merit}
	if len(e.analysis.Constraints) > 0 {
		meas.Constraints = make(map[string]float64, len(e.analysis.Constraints))
		for _, c := range e.analysis.Constraints {
			v, err := postpro.Extract(summary, c.Name)
			if err != nil {
				return solver.Measurement{}, fmt.Errorf("constraint %s: %w", c.Name, err)
			}
			meas.Constraints[c.Name] = v
		}
	}
	return meas, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

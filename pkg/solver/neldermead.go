package solver

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/windco-project/windco/pkg/windio"
)

// nelderMeadDriver runs a derivative-free simplex search on the
// penalized objective. Bounds hold because every evaluation clamps
// into the unit cube before measuring.
type nelderMeadDriver struct {
	spec Spec
}

func (d *nelderMeadDriver) Name() string { return windio.DriverNelderMead }

func (d *nelderMeadDriver) Solve(ctx context.Context) (*Report, error) {
	p := d.spec.Problem
	rep := &Report{Driver: d.Name()}

	var best *Evaluation
	var evalErr error
	objective := func(x []float64) float64 {
		if evalErr != nil || ctx.Err() != nil {
			return math.Inf(1)
		}
		ev, err := p.Eval(ctx, x, d.spec.Fidelity)
		if err != nil {
			evalErr = err
			return math.Inf(1)
		}
		if best == nil {
			rep.Initial = ev
		}
		accepted := best == nil || ev.Objective < best.Objective
		if accepted {
			e := ev
			best = &e
		}
		rep.History = append(rep.History, Iteration{
			Index:     len(rep.History),
			Fidelity:  d.spec.Fidelity,
			Design:    ev.Design,
			Merit:     ev.Merit,
			Objective: ev.Objective,
			Violation: ev.Violation,
			Accepted:  accepted,
		})
		return ev.Objective
	}

	settings := &optimize.Settings{FuncEvaluations: d.spec.Options.MaxIterations}
	res, err := optimize.Minimize(optimize.Problem{Func: objective}, p.InitialX(), settings, &optimize.NelderMead{})
	switch {
	case evalErr != nil:
		return rep, evalErr
	case ctx.Err() != nil:
		return rep, ctx.Err()
	case err != nil:
		return rep, fmt.Errorf("nelder-mead: %w", err)
	case best == nil:
		return rep, fmt.Errorf("nelder-mead: no evaluation completed")
	}

	rep.Best = *best
	rep.Evaluations = p.Counts()
	switch res.Status {
	case optimize.FunctionEvaluationLimit:
		rep.Reason = "evaluation budget exhausted"
	default:
		rep.Converged = true
		rep.Reason = "simplex converged"
	}
	return rep, nil
}

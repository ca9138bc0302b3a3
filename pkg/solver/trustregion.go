package solver

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/windco-project/windco/pkg/windio"
)

// trustRegionDriver is the multifidelity model-management loop. It
// minimizes an additively corrected reduced-order surrogate inside a
// trust region, measures the candidate at high fidelity, and moves the
// incumbent only when the measured improvement backs up the predicted
// one. The correction interpolates the high-fidelity objective at the
// incumbent, so the surrogate is exact where the region is centered.
type trustRegionDriver struct {
	spec Spec
}

// surrogateBudget caps reduced-order evaluations per subproblem.
const surrogateBudget = 100

// minPredicted guards the improvement ratio against a flat surrogate.
const minPredicted = 1e-12

func (d *trustRegionDriver) Name() string { return windio.DriverTrustRegion }

func (d *trustRegionDriver) Solve(ctx context.Context) (*Report, error) {
	p := d.spec.Problem
	opts := d.spec.Options
	tr := opts.TrustRegion
	high := d.spec.Fidelity
	low := windio.FidelityReduced

	rep := &Report{Driver: d.Name()}

	x := p.InitialX()
	incumbent, err := p.Eval(ctx, x, high)
	if err != nil {
		return rep, err
	}
	rep.Initial = incumbent
	lowAtX, err := p.Eval(ctx, x, low)
	if err != nil {
		return rep, err
	}
	correction := incumbent.Objective - lowAtX.Objective

	radius := tr.InitialRadius
	for iter := 0; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if radius < opts.Tolerance {
			rep.Converged = true
			rep.Reason = "trust radius below tolerance"
			break
		}
		if p.Count(high) >= opts.MaxHighFidelity {
			rep.Reason = "high-fidelity budget exhausted"
			break
		}

		candidateX, modelVal, err := d.minimizeSurrogate(ctx, x, radius, correction)
		if err != nil {
			return rep, err
		}
		predicted := incumbent.Objective - modelVal
		if predicted <= minPredicted {
			// the surrogate sees nothing better inside the region
			radius *= tr.Shrink
			rep.History = append(rep.History, Iteration{
				Index:     len(rep.History),
				Fidelity:  low,
				Design:    p.Design(candidateX),
				Objective: modelVal,
				Accepted:  false,
				Radius:    radius,
			})
			continue
		}

		candidate, err := p.Eval(ctx, candidateX, high)
		if err != nil {
			return rep, err
		}
		rho := (incumbent.Objective - candidate.Objective) / predicted

		accepted := rho >= tr.EtaAccept && candidate.Objective < incumbent.Objective
		if accepted {
			x = candidate.X
			incumbent = candidate
			lowAtX, err = p.Eval(ctx, x, low)
			if err != nil {
				return rep, err
			}
			correction = incumbent.Objective - lowAtX.Objective
			if rho >= tr.EtaExpand {
				radius = math.Min(radius*tr.Grow, tr.MaxRadius)
			}
		} else {
			radius *= tr.Shrink
		}
		rep.History = append(rep.History, Iteration{
			Index:     len(rep.History),
			Fidelity:  high,
			Design:    candidate.Design,
			Merit:     candidate.Merit,
			Objective: candidate.Objective,
			Violation: candidate.Violation,
			Accepted:  accepted,
			Radius:    radius,
		})
	}
	if rep.Reason == "" {
		rep.Reason = "iteration budget exhausted"
	}

	rep.Best = incumbent
	rep.Evaluations = p.Counts()
	return rep, nil
}

// minimizeSurrogate searches the corrected reduced-order model inside
// the trust box around the incumbent. The returned point is projected
// into the box, and the model value belongs to that projected point.
func (d *trustRegionDriver) minimizeSurrogate(ctx context.Context, center []float64, radius, correction float64) ([]float64, float64, error) {
	p := d.spec.Problem
	low := windio.FidelityReduced

	var evalErr error
	model := func(y []float64) float64 {
		if evalErr != nil || ctx.Err() != nil {
			return math.Inf(1)
		}
		ev, err := p.Eval(ctx, projectBox(y, center, radius), low)
		if err != nil {
			evalErr = err
			return math.Inf(1)
		}
		return ev.Objective + correction
	}

	settings := &optimize.Settings{FuncEvaluations: surrogateBudget}
	method := &optimize.NelderMead{SimplexSize: radius / 2}
	res, err := optimize.Minimize(optimize.Problem{Func: model}, center, settings, method)
	switch {
	case evalErr != nil:
		return nil, 0, evalErr
	case ctx.Err() != nil:
		return nil, 0, ctx.Err()
	case err != nil:
		return nil, 0, fmt.Errorf("surrogate subproblem: %w", err)
	}
	return projectBox(res.X, center, radius), res.F, nil
}

// projectBox clamps a point into the trust box intersected with the
// unit cube.
func projectBox(y, center []float64, radius float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		lo := math.Max(0, center[i]-radius)
		hi := math.Min(1, center[i]+radius)
		switch {
		case v < lo:
			out[i] = lo
		case v > hi:
			out[i] = hi
		default:
			out[i] = v
		}
	}
	return out
}

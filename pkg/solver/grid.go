package solver

import (
	"context"

	"github.com/windco-project/windco/pkg/windio"
)

// gridDriver scans a full-factorial lattice over the design space. The
// lattice size is levels^dim, so it only suits a handful of variables.
type gridDriver struct {
	spec Spec
}

func (d *gridDriver) Name() string { return windio.DriverGrid }

func (d *gridDriver) Solve(ctx context.Context) (*Report, error) {
	p := d.spec.Problem
	levels := d.spec.Options.Grid.Levels
	if levels < 2 {
		levels = 2
	}

	rep := &Report{Driver: d.Name()}
	idx := make([]int, p.Dim())
	x := make([]float64, p.Dim())
	var best *Evaluation
	for {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		for i, k := range idx {
			x[i] = float64(k) / float64(levels-1)
		}
		ev, err := p.Eval(ctx, x, d.spec.Fidelity)
		if err != nil {
			return rep, err
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
		if !advance(idx, levels) {
			break
		}
	}

	rep.Best = *best
	rep.Evaluations = p.Counts()
	rep.Converged = true
	rep.Reason = "lattice exhausted"
	return rep, nil
}

// advance steps a mixed-radix counter, reporting false on wraparound.
func advance(idx []int, levels int) bool {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < levels {
			return true
		}
		idx[i] = 0
	}
	return false
}

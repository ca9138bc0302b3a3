package solver

import (
	"context"
	"fmt"

	"github.com/windco-project/windco/pkg/windio"
)

// Measurement is what one campaign evaluation reports back: the raw
// merit figure and the summary value of every constrained quantity.
type Measurement struct {
	Merit       float64
	Constraints map[string]float64
}

// Evaluator measures one design at a fidelity level. The glue code
// implements it by rebuilding the turbine with the design applied and
// running a campaign.
type Evaluator interface {
	Evaluate(ctx context.Context, design map[string]float64, fidelity int) (Measurement, error)
}

// Evaluation is one measured design point in normalized coordinates.
type Evaluation struct {
	X      []float64          `json:"x"`
	Design map[string]float64 `json:"design"`
	// Merit is the raw merit figure in the deck's direction.
	Merit float64 `json:"merit"`
	// Objective is the minimization-sense merit plus the quadratic
	// constraint penalty. Drivers compare objectives only.
	Objective float64 `json:"objective"`
	// Violation is the summed constraint violation, zero when feasible.
	Violation   float64            `json:"violation"`
	Constraints map[string]float64 `json:"constraints,omitempty"`
}

// Problem normalizes the design variables onto the unit cube and folds
// constraints into an exterior quadratic penalty.
type Problem struct {
	Variables   []windio.DesignVariable
	Merit       windio.MeritFigure
	Constraints []windio.Constraint
	Penalty     float64

	evaluator Evaluator
	counts    map[int]int
}

// NewProblem builds the normalized problem from the analysis deck.
func NewProblem(analysis *windio.AnalysisOptions, ev Evaluator) *Problem {
	return &Problem{
		Variables:   analysis.DesignVariables,
		Merit:       analysis.MeritFigure,
		Constraints: analysis.Constraints,
		Penalty:     analysis.Driver.Optimization.PenaltyWeight,
		evaluator:   ev,
		counts:      make(map[int]int),
	}
}

// Dim is the number of design variables.
func (p *Problem) Dim() int { return len(p.Variables) }

// InitialX is the deck's starting point in normalized coordinates.
func (p *Problem) InitialX() []float64 {
	x := make([]float64, p.Dim())
	for i, dv := range p.Variables {
		x[i] = (dv.InitialValue() - dv.Lower) / (dv.Upper - dv.Lower)
	}
	return x
}

// Design maps a normalized point back onto the physical variables.
func (p *Problem) Design(x []float64) map[string]float64 {
	design := make(map[string]float64, p.Dim())
	for i, dv := range p.Variables {
		design[dv.Name] = dv.Lower + clamp01(x[i])*(dv.Upper-dv.Lower)
	}
	return design
}

// ClampUnit projects a point into the unit cube.
func (p *Problem) ClampUnit(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = clamp01(v)
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Eval measures one normalized point. The point is clamped into bounds
// before evaluation so iterates never leave the design space.
func (p *Problem) Eval(ctx context.Context, x []float64, fidelity int) (Evaluation, error) {
	x = p.ClampUnit(x)
	design := p.Design(x)
	meas, err := p.evaluator.Evaluate(ctx, design, fidelity)
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluate at fidelity %d: %w", fidelity, err)
	}
	p.counts[fidelity]++

	ev := Evaluation{
		X:           x,
		Design:      design,
		Merit:       meas.Merit,
		Constraints: meas.Constraints,
	}
	obj := meas.Merit
	if p.Merit.Maximize() {
		obj = -obj
	}
	var sum, sq float64
	for _, c := range p.Constraints {
		v, ok := meas.Constraints[c.Name]
		if !ok {
			return Evaluation{}, fmt.Errorf("constraint %s missing from the evaluation", c.Name)
		}
		d := constraintViolation(c, v)
		sum += d
		sq += d * d
	}
	ev.Violation = sum
	ev.Objective = obj + p.Penalty*sq
	return ev, nil
}

// Count reports how many evaluations ran at a fidelity.
func (p *Problem) Count(fidelity int) int { return p.counts[fidelity] }

// Counts snapshots the evaluation tally per fidelity.
func (p *Problem) Counts() map[int]int {
	out := make(map[int]int, len(p.counts))
	for k, v := range p.counts {
		out[k] = v
	}
	return out
}

func constraintViolation(c windio.Constraint, v float64) float64 {
	var d float64
	if c.Min != nil && v < *c.Min {
		d += *c.Min - v
	}
	if c.Max != nil && v > *c.Max {
		d += v - *c.Max
	}
	return d
}

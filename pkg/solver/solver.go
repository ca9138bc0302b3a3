package solver

import (
	"context"
	"fmt"

	"github.com/windco-project/windco/pkg/windio"
)

// Driver is one optimization strategy over a Problem.
type Driver interface {
	Name() string
	Solve(ctx context.Context) (*Report, error)
}

// Spec binds a problem to a driver configuration.
type Spec struct {
	Options windio.OptimizationOptions
	Problem *Problem
	// Fidelity is the level campaign evaluations run at. The trust
	// region driver treats it as the high side and corrects a
	// reduced-order surrogate against it.
	Fidelity int
}

// Iteration is one recorded driver step.
type Iteration struct {
	Index     int                `json:"index"`
	Fidelity  int                `json:"fidelity"`
	Design    map[string]float64 `json:"design"`
	Merit     float64            `json:"merit"`
	Objective float64            `json:"objective"`
	Violation float64            `json:"violation"`
	Accepted  bool               `json:"accepted"`
	// Radius is the trust radius after the step, zero for drivers
	// without one.
	Radius float64 `json:"radius,omitempty"`
}

// Report is the outcome of a solve. The struct tags fix the wire names
// in the persisted run record.
type Report struct {
	Driver      string      `json:"driver"`
	Initial     Evaluation  `json:"initial"`
	Best        Evaluation  `json:"best"`
	History     []Iteration `json:"history"`
	Evaluations map[int]int `json:"evaluations"`
	Converged   bool        `json:"converged"`
	Reason      string      `json:"reason"`
}

// New is a factory that builds the driver the analysis deck names.
func New(spec Spec) (Driver, error) {
	if spec.Problem == nil || spec.Problem.Dim() == 0 {
		return nil, fmt.Errorf("optimization needs at least one design variable")
	}
	switch spec.Options.Driver {
	case windio.DriverGrid:
		return &gridDriver{spec: spec}, nil
	case windio.DriverNelderMead:
		return &nelderMeadDriver{spec: spec}, nil
	case windio.DriverTrustRegion:
		return &trustRegionDriver{spec: spec}, nil
	default:
		return nil, fmt.Errorf("unsupported optimization driver: %q", spec.Options.Driver)
	}
}

/*
Copyright 2025 The windco Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package windio

import (
	"fmt"
)

// Fidelity levels map onto the simulation backends.
const (
	// FidelityReduced runs the built-in reduced-order drivetrain model.
	FidelityReduced = 1
	// FidelityAeroelastic runs the external aeroelastic toolchain.
	FidelityAeroelastic = 3
)

// ModelingOptions is the typed form of the modeling options deck.
type ModelingOptions struct {
	General    GeneralOptions    `yaml:"general"`
	Simulation SimulationOptions `yaml:"simulation"`
	Controller ControllerOptions `yaml:"controller"`
	DLCs       DLCOptions        `yaml:"dlcs"`
	Execution  ExecutionOptions  `yaml:"execution"`
	OpenFAST   OpenFASTOptions   `yaml:"openfast"`
	TurbSim    TurbSimOptions    `yaml:"turbsim"`
}

type GeneralOptions struct {
	Fidelity  int    `yaml:"fidelity"`            // 1 reduced-order, 3 aeroelastic
	Verbosity string `yaml:"verbosity,omitempty"` // info, debug or trace
}

type SimulationOptions struct {
	Duration      float64 `yaml:"duration"`        // s, total simulated time per case
	TransientTime float64 `yaml:"transient_time"`  // s, discarded before statistics
	TimeStep      float64 `yaml:"time_step"`       // s
	WindSpeedStep float64 `yaml:"wind_speed_step"` // m/s, spacing of generated sweeps
}

// ControllerOptions carries the tuning targets handed to the controller
// synthesis. Zeta/omega pairs select the closed-loop response of each
// regulation loop.
type ControllerOptions struct {
	Pitch         LoopTuning       `yaml:"pitch"`
	Torque        LoopTuning       `yaml:"torque"`
	WindEstimator EstimatorOptions `yaml:"wind_estimator"`
}

type LoopTuning struct {
	Zeta  float64 `yaml:"zeta"`  // damping ratio
	Omega float64 `yaml:"omega"` // natural frequency, rad/s
}

type EstimatorOptions struct {
	Enabled          *bool   `yaml:"enabled,omitempty"` // defaults to true
	ProcessNoise     float64 `yaml:"process_noise,omitempty"`
	MeasurementNoise float64 `yaml:"measurement_noise,omitempty"`
}

// On reports whether the wind speed estimator should run.
func (e EstimatorOptions) On() bool {
	return e.Enabled == nil || *e.Enabled
}

type DLCOptions struct {
	MasterSeed int64      `yaml:"master_seed"` // root of the per-case seed derivation
	Cases      []DLCEntry `yaml:"cases"`
}

// DLCEntry requests one design load case family. An empty wind speed list
// means a sweep from cut-in to cut-out at the configured step.
type DLCEntry struct {
	DLC           string    `yaml:"dlc"`
	WindSpeeds    []float64 `yaml:"wind_speeds,omitempty"`
	NSeeds        int       `yaml:"n_seeds,omitempty"`
	Duration      *float64  `yaml:"duration,omitempty"`       // s, overrides simulation.duration
	TransientTime *float64  `yaml:"transient_time,omitempty"` // s, overrides simulation.transient_time
}

type ExecutionOptions struct {
	Workers   int    `yaml:"workers,omitempty"`    // 0 selects one per CPU
	Retries   *int   `yaml:"retries,omitempty"`    // attempts after the first, defaults to 2
	OnFailure string `yaml:"on_failure,omitempty"` // continue or fail_fast
}

// RetryCount resolves the retry default.
func (e ExecutionOptions) RetryCount() int {
	if e.Retries == nil {
		return 2
	}
	return *e.Retries
}

type OpenFASTOptions struct {
	Executable     string `yaml:"executable,omitempty"`      // path or name on PATH
	ModelDirectory string `yaml:"model_directory,omitempty"` // template model inputs
}

type TurbSimOptions struct {
	Executable string  `yaml:"executable,omitempty"`
	GridPoints int     `yaml:"grid_points,omitempty"` // per side of the turbulence grid
	GridWidth  float64 `yaml:"grid_width,omitempty"`  // m, defaults to 1.1x rotor diameter
}

func (m *ModelingOptions) applyDefaults() {
	if m.Simulation.Duration == 0 {
		m.Simulation.Duration = 600
	}
	if m.Simulation.TransientTime == 0 {
		m.Simulation.TransientTime = 60
	}
	if m.Simulation.TimeStep == 0 {
		m.Simulation.TimeStep = 0.01
	}
	if m.Simulation.WindSpeedStep == 0 {
		m.Simulation.WindSpeedStep = 2
	}
	if m.Controller.Pitch.Zeta == 0 {
		m.Controller.Pitch.Zeta = 0.7
	}
	if m.Controller.Pitch.Omega == 0 {
		m.Controller.Pitch.Omega = 0.6
	}
	if m.Controller.Torque.Zeta == 0 {
		m.Controller.Torque.Zeta = 0.7
	}
	if m.Controller.Torque.Omega == 0 {
		m.Controller.Torque.Omega = 0.3
	}
	if m.Controller.WindEstimator.ProcessNoise == 0 {
		m.Controller.WindEstimator.ProcessNoise = 0.5
	}
	if m.Controller.WindEstimator.MeasurementNoise == 0 {
		m.Controller.WindEstimator.MeasurementNoise = 0.01
	}
	if m.General.Verbosity == "" {
		m.General.Verbosity = "info"
	}
	if m.Execution.OnFailure == "" {
		m.Execution.OnFailure = OnFailureContinue
	}
	if m.OpenFAST.Executable == "" {
		m.OpenFAST.Executable = "openfast"
	}
	if m.TurbSim.Executable == "" {
		m.TurbSim.Executable = "turbsim"
	}
	if m.TurbSim.GridPoints == 0 {
		m.TurbSim.GridPoints = 15
	}
	for i := range m.DLCs.Cases {
		if m.DLCs.Cases[i].NSeeds == 0 {
			m.DLCs.Cases[i].NSeeds = 6
		}
	}
}

// Failure policies for the case executor.
const (
	OnFailureContinue = "continue"
	OnFailureFailFast = "fail_fast"
)

// Validate checks the cross-field constraints of the modeling deck.
func (m *ModelingOptions) Validate() error {
	if m.General.Fidelity != FidelityReduced && m.General.Fidelity != FidelityAeroelastic {
		return fmt.Errorf("general.fidelity must be %d or %d, got %d", FidelityReduced, FidelityAeroelastic, m.General.Fidelity)
	}
	if m.Simulation.TransientTime >= m.Simulation.Duration {
		return fmt.Errorf("simulation: transient_time (%.1f) must be below duration (%.1f)", m.Simulation.TransientTime, m.Simulation.Duration)
	}
	if m.Execution.OnFailure != OnFailureContinue && m.Execution.OnFailure != OnFailureFailFast {
		return fmt.Errorf("execution.on_failure must be %q or %q, got %q", OnFailureContinue, OnFailureFailFast, m.Execution.OnFailure)
	}
	if m.Execution.Workers < 0 {
		return fmt.Errorf("execution.workers must not be negative, got %d", m.Execution.Workers)
	}
	for i, c := range m.DLCs.Cases {
		if c.Duration != nil && c.TransientTime != nil && *c.TransientTime >= *c.Duration {
			return fmt.Errorf("dlcs.cases[%d]: transient_time (%.1f) must be below duration (%.1f)", i, *c.TransientTime, *c.Duration)
		}
	}
	return nil
}

// AnalysisOptions is the typed form of the analysis options deck.
type AnalysisOptions struct {
	General         AnalysisGeneral  `yaml:"general"`
	DesignVariables []DesignVariable `yaml:"design_variables,omitempty"`
	MeritFigure     MeritFigure      `yaml:"merit_figure"`
	Constraints     []Constraint     `yaml:"constraints,omitempty"`
	Driver          DriverOptions    `yaml:"driver"`
	Archive         ArchiveOptions   `yaml:"archive"`
}

type AnalysisGeneral struct {
	FolderOutput string `yaml:"folder_output"`
	RunName      string `yaml:"run_name,omitempty"` // defaults to the turbine name
}

// DesignVariable is one free parameter of the optimization, identified by
// a dot path understood by ApplyDesignVariable.
type DesignVariable struct {
	Name  string   `yaml:"name"`
	Lower float64  `yaml:"lower"`
	Upper float64  `yaml:"upper"`
	Init  *float64 `yaml:"init,omitempty"` // nil starts at the interval midpoint
}

// InitialValue resolves the starting point of the variable.
func (d DesignVariable) InitialValue() float64 {
	if d.Init != nil {
		return *d.Init
	}
	return (d.Lower + d.Upper) / 2
}

// MeritFigure names the scalar objective extracted from a campaign
// summary: "aep", or "<stat>.<channel>" with stat one of max, min, mean,
// std or del.
type MeritFigure struct {
	Name string `yaml:"name"`
	Goal string `yaml:"goal,omitempty"` // maximize or minimize
}

// Maximize reports the optimization direction, defaulting aep to
// maximize and everything else to minimize.
func (m MeritFigure) Maximize() bool {
	switch m.Goal {
	case GoalMaximize:
		return true
	case GoalMinimize:
		return false
	}
	return m.Name == "aep"
}

const (
	GoalMaximize = "maximize"
	GoalMinimize = "minimize"
)

// Constraint bounds a summary quantity, named like a merit figure.
type Constraint struct {
	Name string   `yaml:"name"`
	Min  *float64 `yaml:"min,omitempty"`
	Max  *float64 `yaml:"max,omitempty"`
}

type DriverOptions struct {
	Optimization OptimizationOptions `yaml:"optimization"`
}

type OptimizationOptions struct {
	Flag            bool               `yaml:"flag"`
	Driver          string             `yaml:"driver,omitempty"` // trust_region, nelder_mead or grid
	MaxIterations   int                `yaml:"max_iterations,omitempty"`
	MaxHighFidelity int                `yaml:"max_high_fidelity,omitempty"`
	Tolerance       float64            `yaml:"tolerance,omitempty"`
	PenaltyWeight   float64            `yaml:"penalty_weight,omitempty"`
	TrustRegion     TrustRegionOptions `yaml:"trust_region"`
	Grid            GridOptions        `yaml:"grid"`
}

// TrustRegionOptions tune the multifidelity model management loop. All
// radii are in the normalized [0,1] design space.
type TrustRegionOptions struct {
	InitialRadius float64 `yaml:"initial_radius,omitempty"`
	MaxRadius     float64 `yaml:"max_radius,omitempty"`
	EtaAccept     float64 `yaml:"eta_accept,omitempty"`
	EtaExpand     float64 `yaml:"eta_expand,omitempty"`
	Shrink        float64 `yaml:"shrink,omitempty"`
	Grow          float64 `yaml:"grow,omitempty"`
}

type GridOptions struct {
	Levels int `yaml:"levels,omitempty"` // points per design variable
}

type ArchiveOptions struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket,omitempty"`
	Prefix  string `yaml:"prefix,omitempty"`
}

const (
	DriverTrustRegion = "trust_region"
	DriverNelderMead  = "nelder_mead"
	DriverGrid        = "grid"
)

func (a *AnalysisOptions) applyDefaults() {
	opt := &a.Driver.Optimization
	if opt.Driver == "" {
		opt.Driver = DriverTrustRegion
	}
	if opt.MaxIterations == 0 {
		opt.MaxIterations = 20
	}
	if opt.MaxHighFidelity == 0 {
		opt.MaxHighFidelity = 10
	}
	if opt.Tolerance == 0 {
		opt.Tolerance = 1e-3
	}
	if opt.PenaltyWeight == 0 {
		opt.PenaltyWeight = 100
	}
	if opt.TrustRegion.InitialRadius == 0 {
		opt.TrustRegion.InitialRadius = 0.2
	}
	if opt.TrustRegion.MaxRadius == 0 {
		opt.TrustRegion.MaxRadius = 0.5
	}
	if opt.TrustRegion.EtaAccept == 0 {
		opt.TrustRegion.EtaAccept = 0.25
	}
	if opt.TrustRegion.EtaExpand == 0 {
		opt.TrustRegion.EtaExpand = 0.75
	}
	if opt.TrustRegion.Shrink == 0 {
		opt.TrustRegion.Shrink = 0.5
	}
	if opt.TrustRegion.Grow == 0 {
		opt.TrustRegion.Grow = 2.0
	}
	if opt.Grid.Levels == 0 {
		opt.Grid.Levels = 5
	}
	if a.MeritFigure.Name == "" {
		a.MeritFigure.Name = "aep"
	}
}

// Validate checks the cross-field constraints of the analysis deck.
func (a *AnalysisOptions) Validate() error {
	seen := make(map[string]bool, len(a.DesignVariables))
	for i, dv := range a.DesignVariables {
		if err := ValidateDesignVariable(dv.Name); err != nil {
			return fmt.Errorf("design_variables[%d]: %w", i, err)
		}
		if seen[dv.Name] {
			return fmt.Errorf("design_variables[%d]: duplicate variable %q", i, dv.Name)
		}
		seen[dv.Name] = true
		if dv.Upper <= dv.Lower {
			return fmt.Errorf("design_variables[%d] (%s): upper (%g) must exceed lower (%g)", i, dv.Name, dv.Upper, dv.Lower)
		}
		if dv.Init != nil && (*dv.Init < dv.Lower || *dv.Init > dv.Upper) {
			return fmt.Errorf("design_variables[%d] (%s): init (%g) outside [%g, %g]", i, dv.Name, *dv.Init, dv.Lower, dv.Upper)
		}
	}
	if err := validateSummaryName(a.MeritFigure.Name); err != nil {
		return fmt.Errorf("merit_figure: %w", err)
	}
	if g := a.MeritFigure.Goal; g != "" && g != GoalMaximize && g != GoalMinimize {
		return fmt.Errorf("merit_figure.goal must be %q or %q, got %q", GoalMaximize, GoalMinimize, g)
	}
	for i, c := range a.Constraints {
		if err := validateSummaryName(c.Name); err != nil {
			return fmt.Errorf("constraints[%d]: %w", i, err)
		}
		if c.Min == nil && c.Max == nil {
			return fmt.Errorf("constraints[%d] (%s): at least one of min or max is required", i, c.Name)
		}
		if c.Min != nil && c.Max != nil && *c.Max <= *c.Min {
			return fmt.Errorf("constraints[%d] (%s): max (%g) must exceed min (%g)", i, c.Name, *c.Max, *c.Min)
		}
	}
	opt := a.Driver.Optimization
	if opt.Flag {
		switch opt.Driver {
		case DriverTrustRegion, DriverNelderMead, DriverGrid:
		default:
			return fmt.Errorf("driver.optimization.driver: unknown driver %q", opt.Driver)
		}
		if len(a.DesignVariables) == 0 {
			return fmt.Errorf("driver.optimization: enabled but no design variables declared")
		}
		tr := opt.TrustRegion
		if tr.EtaAccept >= tr.EtaExpand {
			return fmt.Errorf("driver.optimization.trust_region: eta_accept (%g) must be below eta_expand (%g)", tr.EtaAccept, tr.EtaExpand)
		}
		if tr.InitialRadius > tr.MaxRadius {
			return fmt.Errorf("driver.optimization.trust_region: initial_radius (%g) must not exceed max_radius (%g)", tr.InitialRadius, tr.MaxRadius)
		}
	}
	if a.Archive.Enabled && a.Archive.Bucket == "" {
		return fmt.Errorf("archive: bucket is required when archiving is enabled")
	}
	return nil
}

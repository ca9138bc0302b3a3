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

// Package openfast adapts the external aeroelastic solver: it renders a
// case deck into the workdir, runs the binary under the case context
// and picks up the channel file it produces. Failures are classified so
// the executor retries only what can succeed on a second attempt.
package openfast

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/windco-project/windco/internal/dlc"
	"github.com/windco-project/windco/internal/logging"
	"github.com/windco-project/windco/internal/output"
	"github.com/windco-project/windco/internal/simulation"
	"github.com/windco-project/windco/pkg/turbine"
	"github.com/windco-project/windco/pkg/windio"
)

// WindSource provides the inflow file for a case ahead of the solver
// run. An empty path means the deck handles the inflow itself.
type WindSource interface {
	Generate(ctx context.Context, c dlc.Case, workdir string) (string, error)
}

// Deck inflow selectors.
const (
	windModeSteady    = 1
	windModeUniform   = 2
	windModeTurbulent = 3
)

// Simulator is the aeroelastic backend.
type Simulator struct {
	fs       afero.Fs
	runner   simulation.CommandRunner
	turbine  *windio.Turbine
	schedule *turbine.Schedule
	modeling *windio.ModelingOptions
	wind     WindSource
}

// New builds the adapter. wind may be nil, in which case turbulent
// cases fall back to steady inflow at the case mean.
func New(fs afero.Fs, runner simulation.CommandRunner, tb *windio.Turbine, sched *turbine.Schedule, modeling *windio.ModelingOptions, wind WindSource) *Simulator {
	return &Simulator{fs: fs, runner: runner, turbine: tb, schedule: sched, modeling: modeling, wind: wind}
}

func (s *Simulator) Name() string { return "openfast" }

// Run writes the deck, invokes the solver and parses its output.
func (s *Simulator) Run(ctx context.Context, c dlc.Case, workdir string) (*simulation.Result, error) {
	windFile := ""
	if s.wind != nil {
		var err error
		windFile, err = s.wind.Generate(ctx, c, workdir)
		if err != nil {
			return nil, err
		}
	}

	mode := windModeSteady
	switch {
	case windFile != "":
		mode = windModeTurbulent
	case c.WindType == dlc.WindECD:
		mode = windModeUniform
		windFile = filepath.Join(workdir, c.ID+"_wind.dat")
		if err := s.writeUniformWind(c, windFile); err != nil {
			return nil, simulation.Fatal(err)
		}
	}

	deck := filepath.Join(workdir, c.ID+".fst")
	if err := s.writeDeck(c, deck, windFile, mode); err != nil {
		return nil, simulation.Fatal(err)
	}

	bin := s.modeling.OpenFAST.Executable
	if bin == "" {
		bin = "openfast"
	}
	out, err := s.runner.Run(ctx, workdir, bin, filepath.Base(deck))
	if cerr := simulation.ClassifyRunError(err, out, bin); cerr != nil {
		return nil, cerr
	}
	logging.FromContext(ctx).V(1).Info("solver finished", "case", c.ID, "binary", bin)

	return s.readResult(c, workdir)
}

// writeDeck renders the wrapper-owned case deck: run span, inflow
// selection and the initial rotor state from the operating schedule.
func (s *Simulator) writeDeck(c dlc.Case, path, windFile string, mode int) error {
	rpm, pitch := s.initialState(c)
	genDOF := 1
	if c.Parked {
		genDOF = 0
	}
	wf := "unused"
	if windFile != "" {
		wf = filepath.Base(windFile)
	}

	var b strings.Builder
	b.WriteString("---- windco aeroelastic case deck ------------------------------\n")
	fmt.Fprintf(&b, "%-28s CaseID   - case identifier\n", c.ID)
	fmt.Fprintf(&b, "%-28.3f TMax     - total run time (s)\n", c.Duration)
	fmt.Fprintf(&b, "%-28.4f DT       - integration step (s)\n", s.modeling.Simulation.TimeStep)
	fmt.Fprintf(&b, "%-28s ModelDir - template model inputs\n", strconv.Quote(s.modeling.OpenFAST.ModelDirectory))
	fmt.Fprintf(&b, "%-28d WindMode - 1 steady, 2 uniform series, 3 turbulent grid\n", mode)
	fmt.Fprintf(&b, "%-28s WindFile - inflow file, unused for steady wind\n", strconv.Quote(wf))
	fmt.Fprintf(&b, "%-28.3f HWindSpd - mean hub-height wind speed (m/s)\n", c.WindSpeed)
	fmt.Fprintf(&b, "%-28.3f RotSpeed - initial rotor speed (rpm)\n", rpm)
	fmt.Fprintf(&b, "%-28.3f BlPitch  - initial blade pitch (deg)\n", pitch)
	fmt.Fprintf(&b, "%-28d GenDOF   - generator degree of freedom, 0 parked\n", genDOF)
	fmt.Fprintf(&b, "%-28s OutRoot  - output file root\n", strconv.Quote(c.ID))
	return afero.WriteFile(s.fs, path, []byte(b.String()), 0o644)
}

// initialState picks the steady operating point the solver starts from.
func (s *Simulator) initialState(c dlc.Case) (rpm, pitchDeg float64) {
	if c.Parked {
		return 0, s.turbine.Control.Pitch.MaxDeg
	}
	pt := s.schedule.At(c.WindSpeed)
	return pt.RotorSpeed * 60 / (2 * math.Pi), pt.PitchDeg
}

// uniformWindStep samples the gust table finely enough for the solver
// to interpolate linearly without visible facets.
const uniformWindStep = 0.5 // s

// writeUniformWind renders the coherent gust with its direction change
// as a hub-height time series table.
func (s *Simulator) writeUniformWind(c dlc.Case, path string) error {
	onset := c.TransientTime + simulation.GustLead
	var b strings.Builder
	b.WriteString("! Uniform hub-height inflow: time (s), speed (m/s), direction (deg)\n")
	for tm := 0.0; tm <= c.Duration+uniformWindStep/2; tm += uniformWindStep {
		speed := c.WindSpeed + simulation.GustAt(c.GustAmplitude, onset, c.GustRiseTime, tm)
		dir := simulation.GustAt(c.DirectionChangeDeg, onset, c.GustRiseTime, tm)
		fmt.Fprintf(&b, "%8.2f  %8.3f  %8.3f\n", tm, speed, dir)
	}
	return afero.WriteFile(s.fs, path, []byte(b.String()), 0o644)
}

// readResult picks up the channel file, preferring the binary form.
func (s *Simulator) readResult(c dlc.Case, workdir string) (*simulation.Result, error) {
	for _, ext := range []string{".outb", ".out"} {
		path := filepath.Join(workdir, c.ID+ext)
		ok, err := afero.Exists(s.fs, path)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		ts, err := output.ReadFile(s.fs, path)
		if err != nil {
			return nil, simulation.Fatal(fmt.Errorf("solver output %s: %w", path, err))
		}
		if ts.Len() == 0 {
			return nil, simulation.Fatalf("solver output %s has no samples", path)
		}
		ts.Name = c.ID
		return &simulation.Result{CaseID: c.ID, Backend: s.Name(), OutputPath: path, Series: ts}, nil
	}
	return nil, simulation.Fatalf("no solver output for case %s (want %s.outb or %s.out in %s)", c.ID, c.ID, c.ID, workdir)
}

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

// Package rom is the in-process reduced-order backend: a single degree
// of freedom drivetrain under quasi-steady rotor aerodynamics, closed
// around the tuned controller and driven by synthetic wind. It emits
// the standard channel set so the postprocessor cannot tell it apart
// from the aeroelastic toolchain.
package rom

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/windco-project/windco/internal/dlc"
	"github.com/windco-project/windco/internal/logging"
	"github.com/windco-project/windco/internal/output"
	"github.com/windco-project/windco/internal/simulation"
	"github.com/windco-project/windco/pkg/control"
	"github.com/windco-project/windco/pkg/turbine"
	"github.com/windco-project/windco/pkg/windio"
)

// Simulator integrates J dw/dt = tau_aero(v, w, beta) - N tau_gen with
// fixed-step RK4, the wind, pitch and torque held constant over each
// step. Thrust and the tower base moment are quasi-static.
type Simulator struct {
	fs       afero.Fs
	turbine  *windio.Turbine
	surface  *turbine.Surface
	tuning   *control.Tuning
	modeling *windio.ModelingOptions
}

// New builds the reduced-order backend from a loaded deck and its tuned
// controller.
func New(fs afero.Fs, tb *windio.Turbine, surf *turbine.Surface, tuning *control.Tuning, modeling *windio.ModelingOptions) *Simulator {
	return &Simulator{fs: fs, turbine: tb, surface: surf, tuning: tuning, modeling: modeling}
}

func (s *Simulator) Name() string { return "rom" }

// Run simulates one case and writes its channel file into workdir.
func (s *Simulator) Run(ctx context.Context, c dlc.Case, workdir string) (*simulation.Result, error) {
	dt := s.modeling.Simulation.TimeStep
	if dt <= 0 {
		return nil, simulation.Fatalf("case %s: time step must be positive, got %g", c.ID, dt)
	}
	steps := int(math.Round(c.Duration / dt))
	if steps < 1 {
		return nil, simulation.Fatalf("case %s: duration %g s leaves nothing to simulate at dt %g s", c.ID, c.Duration, dt)
	}

	channels := []string{
		output.ChanTime, output.ChanWind, output.ChanRotSpeed, output.ChanPitch,
		output.ChanGenTq, output.ChanGenPwr, output.ChanThrust, output.ChanTwrBsMyt,
	}
	units := make([]string, len(channels))
	for i, ch := range channels {
		units[i] = output.StandardUnits[ch]
	}
	ts, err := output.NewTimeSeries(c.ID, channels, units)
	if err != nil {
		return nil, err
	}

	wind := newWindField(c, dt)
	if c.Parked {
		err = s.runParked(ctx, c, wind, dt, steps, ts)
	} else {
		err = s.runOperating(ctx, c, wind, dt, steps, ts)
	}
	if err != nil {
		return nil, err
	}

	path := filepath.Join(workdir, c.ID+".outb")
	if err := output.WriteOutb(s.fs, path, ts); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	logging.FromContext(ctx).V(1).Info("reduced-order case complete",
		"case", c.ID, "steps", steps, "output", path)
	return &simulation.Result{CaseID: c.ID, Backend: s.Name(), OutputPath: path, Series: ts}, nil
}

// runOperating closes the loop: the controller sees the integrated
// rotor speed, the plant sees the commanded pitch and torque. Initial
// conditions come from the steady operating schedule at the case mean
// wind.
func (s *Simulator) runOperating(ctx context.Context, c dlc.Case, wind *windField, dt float64, steps int, ts *output.TimeSeries) error {
	drv := s.turbine.Components.Drivetrain
	radius := s.turbine.RotorRadius()
	area := s.turbine.RotorArea()
	rho := s.turbine.Environment.AirDensity
	hub := s.turbine.Assembly.HubHeight
	eff := drv.GearboxEfficiency * drv.GeneratorEfficiency
	inertia := drv.RotorInertia

	pt := s.tuning.Schedule.At(c.WindSpeed)
	omega := pt.RotorSpeed
	pitchDeg := pt.PitchDeg
	genTorque := pt.GenTorque

	var est *control.WindEstimator
	if s.modeling.Controller.WindEstimator.On() {
		est = control.NewWindEstimator(s.turbine, s.surface, s.modeling.Controller.WindEstimator, omega, c.WindSpeed)
	}
	ctl := control.NewController(s.turbine, s.tuning, est, c.WindSpeed)

	aeroTorque := func(om, v, pitch float64) float64 {
		return 0.5 * rho * area * v * v * radius * s.surface.Cq(om*radius/v, pitch)
	}

	for i := 0; i <= steps; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		tm := float64(i) * dt
		v := wind.sample(tm)

		thrust := 0.5 * rho * area * v * v * s.surface.Ct(omega*radius/v, pitchDeg)
		power := genTorque * omega * drv.GearRatio * eff
		if err := ts.AppendRow([]float64{
			tm,
			v,
			omega * 60 / (2 * math.Pi),
			pitchDeg,
			genTorque / 1e3,
			power / 1e3,
			thrust / 1e3,
			thrust * hub / 1e3,
		}); err != nil {
			return err
		}

		cmd := ctl.Step(dt, omega)
		pitchDeg = cmd.PitchDeg
		genTorque = cmd.GenTorque

		// RK4 on the rotor speed, wind and commands held over the step
		brake := drv.GearRatio * genTorque
		f := func(om float64) float64 {
			return (aeroTorque(om, v, pitchDeg) - brake) / inertia
		}
		k1 := f(omega)
		k2 := f(omega + 0.5*dt*k1)
		k3 := f(omega + 0.5*dt*k2)
		k4 := f(omega + dt*k3)
		omega += dt / 6 * (k1 + 2*k2 + 2*k3 + k4)
		if omega < 0 {
			omega = 0
		}
	}
	return nil
}

// minParkedCt floors the feathered drag coefficient so storm cases
// always load the tower.
const minParkedCt = 0.02

// runParked models the idling storm configuration: rotor stopped,
// blades feathered, only the residual rotor drag loading the tower.
func (s *Simulator) runParked(ctx context.Context, c dlc.Case, wind *windField, dt float64, steps int, ts *output.TimeSeries) error {
	rho := s.turbine.Environment.AirDensity
	area := s.turbine.RotorArea()
	hub := s.turbine.Assembly.HubHeight
	pitchDeg := s.turbine.Control.Pitch.MaxDeg

	// drag of the feathered rotor, taken at the slow edge of the
	// coefficient grid
	tsrLo, _ := s.surface.TSRRange()
	_, pitchHi := s.surface.PitchRange()
	ct := math.Max(s.surface.Ct(tsrLo, pitchHi), minParkedCt)

	for i := 0; i <= steps; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		tm := float64(i) * dt
		v := wind.sample(tm)
		thrust := 0.5 * rho * area * v * v * ct
		if err := ts.AppendRow([]float64{tm, v, 0, pitchDeg, 0, 0, thrust / 1e3, thrust * hub / 1e3}); err != nil {
			return err
		}
	}
	return nil
}

// windField synthesizes hub-height wind for one case: the mean, a
// coherent gust for deterministic cases, filtered turbulence otherwise.
type windField struct {
	base  float64
	floor float64
	turb  *turbulence
	gust  *gustProfile
}

func newWindField(c dlc.Case, dt float64) *windField {
	w := &windField{base: c.WindSpeed, floor: 0.5}
	if c.TurbulenceIntensity > 0 {
		w.turb = newTurbulence(c.TurbulenceIntensity*c.WindSpeed, dt, c.Seed)
	}
	if c.WindType == dlc.WindECD {
		w.gust = &gustProfile{
			amplitude: c.GustAmplitude,
			start:     c.TransientTime + simulation.GustLead,
			rise:      c.GustRiseTime,
		}
	}
	return w
}

// sample advances the field by one step and returns the wind at tm.
// Callers step through time in order, once per dt.
func (w *windField) sample(tm float64) float64 {
	v := w.base
	if w.gust != nil {
		v += w.gust.at(tm)
	}
	if w.turb != nil {
		v += w.turb.next()
	}
	if v < w.floor {
		v = w.floor
	}
	return v
}

// gustProfile is the extreme coherent gust rise, shaped by
// simulation.GustAt.
type gustProfile struct {
	amplitude float64
	start     float64
	rise      float64
}

func (g *gustProfile) at(tm float64) float64 {
	return simulation.GustAt(g.amplitude, g.start, g.rise, tm)
}

// turbulence is first-order filtered Gaussian noise matching the target
// longitudinal sigma, with a fixed integral time scale. The recursion
// x' = a x + b n keeps the stationary variance at sigma^2 because
// b = sigma sqrt(1 - a^2).
type turbulence struct {
	a, b  float64
	state float64
	rng   *rand.Rand
}

const turbulenceTimeScale = 10.0 // s

func newTurbulence(sigma, dt float64, seed int64) *turbulence {
	a := math.Exp(-dt / turbulenceTimeScale)
	return &turbulence{
		a:   a,
		b:   sigma * math.Sqrt(1-a*a),
		rng: rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15)),
	}
}

func (t *turbulence) next() float64 {
	t.state = t.a*t.state + t.b*t.rng.NormFloat64()
	return t.state
}

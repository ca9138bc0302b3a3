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
	"math"
)

// Turbine is the typed form of the turbine deck.
type Turbine struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Assembly    Assembly           `yaml:"assembly"`
	Components  Components         `yaml:"components"`
	Airfoils    []Airfoil          `yaml:"airfoils"`
	Control     Control            `yaml:"control"`
	Environment Environment        `yaml:"environment"`
	Performance *PerformanceTables `yaml:"performance,omitempty"`
}

// Assembly holds the top-level machine parameters.
type Assembly struct {
	TurbineClass       string  `yaml:"turbine_class"`       // IEC 61400-1 class: I, II or III
	TurbulenceCategory string  `yaml:"turbulence_category"` // IEC turbulence category: A, B or C
	NumberOfBlades     int     `yaml:"number_of_blades"`
	RotorDiameter      float64 `yaml:"rotor_diameter"` // m
	HubHeight          float64 `yaml:"hub_height"`     // m
	RatedPower         float64 `yaml:"rated_power"`    // W, electrical
}

type Components struct {
	Blade      Blade      `yaml:"blade"`
	Hub        Hub        `yaml:"hub"`
	Drivetrain Drivetrain `yaml:"drivetrain"`
	Tower      Tower      `yaml:"tower"`
}

type Blade struct {
	Stations []BladeStation `yaml:"stations"`
	Mass     float64        `yaml:"mass,omitempty"` // kg, single blade
}

// BladeStation is one spanwise aerodynamic section.
type BladeStation struct {
	Position float64 `yaml:"position"`  // nondimensional span, 0 at the root, 1 at the tip
	Chord    float64 `yaml:"chord"`     // m
	TwistDeg float64 `yaml:"twist_deg"` // deg, positive toward feather
	Airfoil  string  `yaml:"airfoil"`   // name of an entry in the airfoils list
}

type Hub struct {
	Diameter float64 `yaml:"diameter,omitempty"` // m
	Mass     float64 `yaml:"mass,omitempty"`     // kg
}

type Drivetrain struct {
	GearRatio           float64 `yaml:"gear_ratio"`
	RotorInertia        float64 `yaml:"rotor_inertia"`                  // kg m^2, total about the low-speed shaft
	GearboxEfficiency   float64 `yaml:"gearbox_efficiency,omitempty"`   // fraction, defaults to 1.0
	GeneratorEfficiency float64 `yaml:"generator_efficiency,omitempty"` // fraction, defaults to 0.944
}

type Tower struct {
	Height           float64 `yaml:"height,omitempty"`             // m
	Mass             float64 `yaml:"mass,omitempty"`               // kg
	ForeAftFrequency float64 `yaml:"fore_aft_frequency,omitempty"` // Hz, first fore-aft bending mode
}

// Airfoil is a named polar table shared by blade stations.
type Airfoil struct {
	Name   string       `yaml:"name"`
	Polars []PolarPoint `yaml:"polars"`
}

type PolarPoint struct {
	AlphaDeg float64 `yaml:"alpha_deg"` // deg
	Cl       float64 `yaml:"cl"`
	Cd       float64 `yaml:"cd"`
}

// Control carries the physical actuator and supervisory limits. Loop
// tuning targets live in the modeling options deck.
type Control struct {
	Supervisory Supervisory  `yaml:"supervisory"`
	Pitch       PitchLimits  `yaml:"pitch"`
	Torque      TorqueLimits `yaml:"torque"`
}

type Supervisory struct {
	CutIn            float64 `yaml:"cut_in"`  // m/s
	CutOut           float64 `yaml:"cut_out"` // m/s
	MaxRotorSpeedRPM float64 `yaml:"max_rotor_speed_rpm,omitempty"`
}

type PitchLimits struct {
	MinDeg      float64 `yaml:"min_deg"`
	MaxDeg      float64 `yaml:"max_deg"`
	MaxRateDegS float64 `yaml:"max_rate_deg_s,omitempty"`
}

type TorqueLimits struct {
	Max     float64 `yaml:"max,omitempty"`      // N m, generator side
	MaxRate float64 `yaml:"max_rate,omitempty"` // N m/s
}

type Environment struct {
	AirDensity    float64 `yaml:"air_density,omitempty"`    // kg/m^3, defaults to 1.225
	ShearExponent float64 `yaml:"shear_exponent,omitempty"` // power-law exponent
	WeibullShape  float64 `yaml:"weibull_shape,omitempty"`  // site Weibull k, defaults to 2.0
	Availability  float64 `yaml:"availability,omitempty"`   // fraction of hours producing, defaults to 1.0
}

// PerformanceTables are precomputed rotor coefficient surfaces on a
// (TSR, pitch) grid. Rows follow tsr_grid, columns pitch_grid_deg. When
// absent the surfaces are synthesized from the blade geometry.
type PerformanceTables struct {
	PitchGridDeg []float64   `yaml:"pitch_grid_deg"`
	TSRGrid      []float64   `yaml:"tsr_grid"`
	Cp           [][]float64 `yaml:"cp"`
	Ct           [][]float64 `yaml:"ct"`
	Cq           [][]float64 `yaml:"cq"`
}

// RotorRadius returns the rotor radius in meters.
func (t *Turbine) RotorRadius() float64 {
	return t.Assembly.RotorDiameter / 2
}

// RotorArea returns the swept area in m^2.
func (t *Turbine) RotorArea() float64 {
	r := t.RotorRadius()
	return math.Pi * r * r
}

// AirfoilByName looks up a polar table from the airfoil library.
func (t *Turbine) AirfoilByName(name string) (*Airfoil, bool) {
	for i := range t.Airfoils {
		if t.Airfoils[i].Name == name {
			return &t.Airfoils[i], true
		}
	}
	return nil, false
}

func (t *Turbine) applyDefaults() {
	if t.Components.Drivetrain.GearboxEfficiency == 0 {
		t.Components.Drivetrain.GearboxEfficiency = 1.0
	}
	if t.Components.Drivetrain.GeneratorEfficiency == 0 {
		t.Components.Drivetrain.GeneratorEfficiency = 0.944
	}
	if t.Control.Pitch.MaxDeg == 0 {
		t.Control.Pitch.MaxDeg = 90
	}
	if t.Control.Pitch.MaxRateDegS == 0 {
		t.Control.Pitch.MaxRateDegS = 8
	}
	if t.Environment.AirDensity == 0 {
		t.Environment.AirDensity = 1.225
	}
	if t.Environment.WeibullShape == 0 {
		t.Environment.WeibullShape = 2.0
	}
	if t.Environment.Availability == 0 {
		t.Environment.Availability = 1.0
	}
}

// Validate checks the cross-field constraints the schema cannot express.
func (t *Turbine) Validate() error {
	s := t.Control.Supervisory
	if s.CutOut <= s.CutIn {
		return fmt.Errorf("control.supervisory: cut_out (%.2f) must exceed cut_in (%.2f)", s.CutOut, s.CutIn)
	}
	if t.Control.Pitch.MaxDeg <= t.Control.Pitch.MinDeg {
		return fmt.Errorf("control.pitch: max_deg (%.2f) must exceed min_deg (%.2f)", t.Control.Pitch.MaxDeg, t.Control.Pitch.MinDeg)
	}
	stations := t.Components.Blade.Stations
	for i := 1; i < len(stations); i++ {
		if stations[i].Position <= stations[i-1].Position {
			return fmt.Errorf("components.blade.stations[%d]: positions must be strictly increasing", i)
		}
	}
	for i, st := range stations {
		if _, ok := t.AirfoilByName(st.Airfoil); !ok {
			return fmt.Errorf("components.blade.stations[%d]: airfoil %q not in airfoil library", i, st.Airfoil)
		}
	}
	for _, af := range t.Airfoils {
		for i := 1; i < len(af.Polars); i++ {
			if af.Polars[i].AlphaDeg <= af.Polars[i-1].AlphaDeg {
				return fmt.Errorf("airfoil %q: polar angles must be strictly increasing", af.Name)
			}
		}
	}
	if t.Performance != nil {
		if err := t.Performance.validate(); err != nil {
			return fmt.Errorf("performance: %w", err)
		}
	}
	if t.Components.Hub.Diameter >= t.Assembly.RotorDiameter {
		return fmt.Errorf("components.hub: diameter (%.2f) must be below rotor_diameter (%.2f)", t.Components.Hub.Diameter, t.Assembly.RotorDiameter)
	}
	return nil
}

func (p *PerformanceTables) validate() error {
	for i := 1; i < len(p.TSRGrid); i++ {
		if p.TSRGrid[i] <= p.TSRGrid[i-1] {
			return fmt.Errorf("tsr_grid must be strictly increasing")
		}
	}
	for i := 1; i < len(p.PitchGridDeg); i++ {
		if p.PitchGridDeg[i] <= p.PitchGridDeg[i-1] {
			return fmt.Errorf("pitch_grid_deg must be strictly increasing")
		}
	}
	for name, tab := range map[string][][]float64{"cp": p.Cp, "ct": p.Ct, "cq": p.Cq} {
		if len(tab) != len(p.TSRGrid) {
			return fmt.Errorf("%s: got %d rows, want one per tsr_grid entry (%d)", name, len(tab), len(p.TSRGrid))
		}
		for i, row := range tab {
			if len(row) != len(p.PitchGridDeg) {
				return fmt.Errorf("%s[%d]: got %d columns, want one per pitch_grid_deg entry (%d)", name, i, len(row), len(p.PitchGridDeg))
			}
		}
	}
	return nil
}

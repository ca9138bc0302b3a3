package control

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/windco-project/windco/pkg/turbine"
	"github.com/windco-project/windco/pkg/windio"
)

// refTurbine is a 5 MW class machine with an analytic coefficient
// surface in the deck, so tuning results are deterministic.
func refTurbine() *windio.Turbine {
	tb := &windio.Turbine{
		Name: "ctl-ref",
		Assembly: windio.Assembly{
			TurbineClass:       "I",
			TurbulenceCategory: "B",
			NumberOfBlades:     3,
			RotorDiameter:      126,
			HubHeight:          90,
			RatedPower:         5e6,
		},
		Components: windio.Components{
			Blade: windio.Blade{Stations: []windio.BladeStation{
				{Position: 0.05, Chord: 3.5, TwistDeg: 13, Airfoil: "foil"},
				{Position: 1.0, Chord: 1.4, TwistDeg: 0.1, Airfoil: "foil"},
			}},
			Drivetrain: windio.Drivetrain{
				GearRatio:           97,
				RotorInertia:        3.8e7,
				GearboxEfficiency:   1,
				GeneratorEfficiency: 0.944,
			},
			Tower: windio.Tower{Height: 87.6, ForeAftFrequency: 0.32},
		},
		Airfoils: []windio.Airfoil{{Name: "foil", Polars: []windio.PolarPoint{
			{AlphaDeg: -180, Cl: 0, Cd: 0.5}, {AlphaDeg: 180, Cl: 0, Cd: 0.5},
		}}},
		Control: windio.Control{
			Supervisory: windio.Supervisory{CutIn: 3, CutOut: 25},
			Pitch:       windio.PitchLimits{MinDeg: 0, MaxDeg: 90, MaxRateDegS: 8},
			Torque:      windio.TorqueLimits{Max: 60000, MaxRate: 15000},
		},
		Environment: windio.Environment{AirDensity: 1.225, WeibullShape: 2},
		Performance: refTables(),
	}
	return tb
}

// refTables samples the usual parametric Cp model on the grid.
func refTables() *windio.PerformanceTables {
	var tsrGrid, pitchGrid []float64
	for v := 2.0; v <= 14.0+1e-9; v += 0.5 {
		tsrGrid = append(tsrGrid, v)
	}
	for p := 0.0; p <= 25.0+1e-9; p += 1.0 {
		pitchGrid = append(pitchGrid, p)
	}
	pt := &windio.PerformanceTables{TSRGrid: tsrGrid, PitchGridDeg: pitchGrid}
	for _, tsr := range tsrGrid {
		var cp, ct, cq []float64
		for _, p := range pitchGrid {
			li := 1/(tsr+0.08*p) - 0.035/(math.Pow(p, 3)+1)
			c := 0.5176*(116*li-0.4*p-5)*math.Exp(-21*li) + 0.0068*tsr
			cp = append(cp, c)
			ct = append(ct, clampF(0.08*tsr*(1-p/30)+0.05, 0, 1.2))
			cq = append(cq, c/tsr)
		}
		pt.Cp = append(pt.Cp, cp)
		pt.Ct = append(pt.Ct, ct)
		pt.Cq = append(pt.Cq, cq)
	}
	return pt
}

func defaultLoopOptions() windio.ControllerOptions {
	return windio.ControllerOptions{
		Pitch:  windio.LoopTuning{Zeta: 0.7, Omega: 0.6},
		Torque: windio.LoopTuning{Zeta: 0.7, Omega: 0.3},
		WindEstimator: windio.EstimatorOptions{
			ProcessNoise:     0.5,
			MeasurementNoise: 0.01,
		},
	}
}

// tunedFixture assembles surface, schedule and tuning for refTurbine.
func tunedFixture(t *testing.T, tb *windio.Turbine) (*turbine.Surface, *turbine.Schedule, *Tuning) {
	t.Helper()
	surf, err := turbine.FromTurbine(tb)
	require.NoError(t, err)
	sched, err := turbine.ComputeSchedule(tb, surf, 0.5)
	require.NoError(t, err)
	tuning, err := Tune(tb, surf, sched, defaultLoopOptions())
	require.NoError(t, err)
	return surf, sched, tuning
}

// stepPlant integrates the rigid drivetrain one step forward.
func stepPlant(tb *windio.Turbine, surf *turbine.Surface, omega, wind, pitchDeg, genTorque, dt float64) float64 {
	tsr := omega * tb.RotorRadius() / wind
	cp := surf.Cp(tsr, pitchDeg)
	tau := 0.5 * tb.Environment.AirDensity * tb.RotorArea() * cp * wind * wind * wind / omega
	domega := (tau - tb.Components.Drivetrain.GearRatio*genTorque) / tb.Components.Drivetrain.RotorInertia
	return omega + domega*dt
}

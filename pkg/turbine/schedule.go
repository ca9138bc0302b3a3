package turbine

import (
	"fmt"
	"math"

	"github.com/windco-project/windco/pkg/windio"
)

// OperatingPoint is the steady state at one wind speed.
type OperatingPoint struct {
	WindSpeed  float64 // m/s
	RotorSpeed float64 // rad/s
	TSR        float64
	PitchDeg   float64
	Cp         float64
	AeroTorque float64 // N m, rotor side
	GenTorque  float64 // N m, generator side
	Power      float64 // W, electrical
}

// Schedule is the steady-state trajectory from cut-in to cut-out,
// partitioned at the rated wind speed: optimal TSR tracking below,
// constant speed and power with feathering pitch above.
type Schedule struct {
	Points []OperatingPoint

	CpMax       float64
	TSROpt      float64
	FinePitch   float64 // deg, pitch of the Cp optimum
	RatedWind   float64 // m/s
	RatedSpeed  float64 // rad/s, rotor side
	RatedTorque float64 // N m, rotor side
}

// ComputeSchedule derives the operating schedule for a turbine on its
// coefficient surface. step sets the wind speed spacing; the rated wind
// speed is always included as a grid point.
func ComputeSchedule(t *windio.Turbine, s *Surface, step float64) (*Schedule, error) {
	if step <= 0 {
		return nil, fmt.Errorf("wind speed step must be positive, got %g", step)
	}
	cpMax, tsrOpt, finePitch := s.CpMax()
	if cpMax <= 0 {
		return nil, fmt.Errorf("coefficient surface has no positive Cp (max %.3f)", cpMax)
	}

	rho := t.Environment.AirDensity
	area := t.RotorArea()
	radius := t.RotorRadius()
	drv := t.Components.Drivetrain
	eff := drv.GearboxEfficiency * drv.GeneratorEfficiency
	ratedMech := t.Assembly.RatedPower / eff

	ratedWind := math.Cbrt(ratedMech / (0.5 * rho * area * cpMax))
	ratedSpeed := tsrOpt * ratedWind / radius
	if rpm := t.Control.Supervisory.MaxRotorSpeedRPM; rpm > 0 {
		if capped := rpm * math.Pi / 30; capped < ratedSpeed {
			ratedSpeed = capped
		}
	}

	sched := &Schedule{
		CpMax:       cpMax,
		TSROpt:      tsrOpt,
		FinePitch:   finePitch,
		RatedWind:   ratedWind,
		RatedSpeed:  ratedSpeed,
		RatedTorque: ratedMech / ratedSpeed,
	}

	// feathering never leaves the tabulated pitch range
	_, pitchHi := s.PitchRange()
	maxPitch := math.Min(t.Control.Pitch.MaxDeg, pitchHi)

	sup := t.Control.Supervisory
	for _, v := range windGrid(sup.CutIn, sup.CutOut, ratedWind, step) {
		var pt OperatingPoint
		pt.WindSpeed = v
		if v < ratedWind {
			pt.RotorSpeed = math.Min(tsrOpt*v/radius, ratedSpeed)
			pt.TSR = pt.RotorSpeed * radius / v
			pt.PitchDeg = finePitch
			pt.Cp = s.Cp(pt.TSR, pt.PitchDeg)
			mech := 0.5 * rho * area * pt.Cp * v * v * v
			pt.AeroTorque = mech / pt.RotorSpeed
			pt.Power = mech * eff
		} else {
			pt.RotorSpeed = ratedSpeed
			pt.TSR = ratedSpeed * radius / v
			targetCp := ratedMech / (0.5 * rho * area * v * v * v)
			pt.PitchDeg = s.PitchForCp(targetCp, pt.TSR, finePitch, maxPitch)
			pt.Cp = s.Cp(pt.TSR, pt.PitchDeg)
			pt.AeroTorque = sched.RatedTorque
			pt.Power = t.Assembly.RatedPower
		}
		pt.GenTorque = pt.AeroTorque / drv.GearRatio
		sched.Points = append(sched.Points, pt)
	}
	if len(sched.Points) == 0 {
		return nil, fmt.Errorf("empty wind speed range [%g, %g]", sup.CutIn, sup.CutOut)
	}
	return sched, nil
}

// At interpolates the schedule at an arbitrary wind speed, clamping to
// the cut-in and cut-out points.
func (s *Schedule) At(windSpeed float64) OperatingPoint {
	pts := s.Points
	if windSpeed <= pts[0].WindSpeed {
		return pts[0]
	}
	if windSpeed >= pts[len(pts)-1].WindSpeed {
		return pts[len(pts)-1]
	}
	lo, hi := 0, len(pts)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if pts[mid].WindSpeed <= windSpeed {
			lo = mid
		} else {
			hi = mid
		}
	}
	f := (windSpeed - pts[lo].WindSpeed) / (pts[hi].WindSpeed - pts[lo].WindSpeed)
	lerp := func(a, b float64) float64 { return a + f*(b-a) }
	return OperatingPoint{
		WindSpeed:  windSpeed,
		RotorSpeed: lerp(pts[lo].RotorSpeed, pts[hi].RotorSpeed),
		TSR:        lerp(pts[lo].TSR, pts[hi].TSR),
		PitchDeg:   lerp(pts[lo].PitchDeg, pts[hi].PitchDeg),
		Cp:         lerp(pts[lo].Cp, pts[hi].Cp),
		AeroTorque: lerp(pts[lo].AeroTorque, pts[hi].AeroTorque),
		GenTorque:  lerp(pts[lo].GenTorque, pts[hi].GenTorque),
		Power:      lerp(pts[lo].Power, pts[hi].Power),
	}
}

// BelowRated reports whether a wind speed is in the partial load region.
func (s *Schedule) BelowRated(windSpeed float64) bool {
	return windSpeed < s.RatedWind
}

// windGrid builds the sweep from cut-in to cut-out, splicing in the
// rated speed so both regions contain their boundary point.
func windGrid(cutIn, cutOut, rated, step float64) []float64 {
	var grid []float64
	addRated := rated > cutIn && rated < cutOut
	for v := cutIn; v <= cutOut+1e-9; v += step {
		if addRated && v > rated {
			if rated-grid[len(grid)-1] > 1e-9 {
				grid = append(grid, rated)
			}
			addRated = false
		}
		grid = append(grid, v)
	}
	if addRated {
		grid = append(grid, rated)
	}
	if n := len(grid); n > 0 && cutOut-grid[n-1] > 1e-9 {
		grid = append(grid, cutOut)
	}
	return grid
}

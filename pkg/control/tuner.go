package control

import (
	"fmt"
	"math"

	"github.com/windco-project/windco/pkg/turbine"
	"github.com/windco-project/windco/pkg/windio"
)

// GainSchedule tabulates PI gains against wind speed. Gains act on rotor
// speed error in rad/s and command pitch in radians, so Kp carries
// rad/(rad/s) and Ki rad/rad.
type GainSchedule struct {
	WindSpeed []float64
	Kp        []float64
	Ki        []float64
}

// At interpolates the schedule, clamping outside the tabulated range.
func (g *GainSchedule) At(windSpeed float64) (kp, ki float64) {
	n := len(g.WindSpeed)
	if n == 0 {
		return 0, 0
	}
	if windSpeed <= g.WindSpeed[0] {
		return g.Kp[0], g.Ki[0]
	}
	if windSpeed >= g.WindSpeed[n-1] {
		return g.Kp[n-1], g.Ki[n-1]
	}
	i := 0
	for g.WindSpeed[i+1] < windSpeed {
		i++
	}
	f := (windSpeed - g.WindSpeed[i]) / (g.WindSpeed[i+1] - g.WindSpeed[i])
	return g.Kp[i] + f*(g.Kp[i+1]-g.Kp[i]), g.Ki[i] + f*(g.Ki[i+1]-g.Ki[i])
}

// TorqueLaw is the below-rated generator torque strategy plus the PI
// gains that hold rated speed near the region transition.
type TorqueLaw struct {
	// OptimalK maps squared generator speed to torque in region 2:
	// tau = OptimalK * omega_gen^2, generator side.
	OptimalK float64
	// RatedTorque is the generator-side torque ceiling, N m.
	RatedTorque float64
	Kp          float64 // N m/(rad/s), on rotor speed error
	Ki          float64 // N m/rad
}

// Tuning is the complete controller synthesis output for one turbine.
type Tuning struct {
	Pitch    GainSchedule
	Torque   TorqueLaw
	Schedule *turbine.Schedule

	// linearization record, exported into run records
	RatedWindSpeed  float64
	RatedRotorSpeed float64 // rad/s
	FinePitchDeg    float64
}

// Tune derives the gain schedules from the coefficient surface and
// steady-state schedule. The pitch loop is tuned at every above-rated
// operating point, the torque loop once at rated.
func Tune(tb *windio.Turbine, surf *turbine.Surface, sched *turbine.Schedule, opts windio.ControllerOptions) (*Tuning, error) {
	if err := checkLoop("pitch", opts.Pitch); err != nil {
		return nil, err
	}
	if err := checkLoop("torque", opts.Torque); err != nil {
		return nil, err
	}

	rho := tb.Environment.AirDensity
	area := tb.RotorArea()
	radius := tb.RotorRadius()
	inertia := tb.Components.Drivetrain.RotorInertia
	ng := tb.Components.Drivetrain.GearRatio

	tuning := &Tuning{
		Schedule:        sched,
		RatedWindSpeed:  sched.RatedWind,
		RatedRotorSpeed: sched.RatedSpeed,
		FinePitchDeg:    sched.FinePitch,
	}

	// region 2: tau_gen = K omega_gen^2 tracks the optimal TSR
	tuning.Torque.OptimalK = 0.5 * rho * area * math.Pow(radius, 3) * sched.CpMax /
		(math.Pow(sched.TSROpt, 3) * math.Pow(ng, 3))
	tuning.Torque.RatedTorque = sched.RatedTorque / ng

	for _, pt := range sched.Points {
		if pt.WindSpeed < sched.RatedWind {
			continue
		}
		a := dtaudOmega(rho, area, radius, surf, pt) / inertia
		bBeta := dtaudPitch(rho, area, radius, surf, pt) / inertia
		if bBeta >= 0 {
			// pitch authority must reduce torque on this branch;
			// a non-negative sensitivity means the surface is too
			// coarse at this point, skip it
			continue
		}
		zw := 2 * opts.Pitch.Zeta * opts.Pitch.Omega
		tuning.Pitch.WindSpeed = append(tuning.Pitch.WindSpeed, pt.WindSpeed)
		tuning.Pitch.Kp = append(tuning.Pitch.Kp, -(zw+a)/bBeta)
		tuning.Pitch.Ki = append(tuning.Pitch.Ki, -opts.Pitch.Omega*opts.Pitch.Omega/bBeta)
	}
	if len(tuning.Pitch.WindSpeed) == 0 {
		return nil, fmt.Errorf("no above-rated operating point yields pitch authority (rated wind %.2f m/s)", sched.RatedWind)
	}

	// torque PI at the rated point, with the generator torque as input:
	// J domega = dtau/domega * domega - ng * dtau_gen
	ratedPt := sched.At(sched.RatedWind)
	aRated := dtaudOmega(rho, area, radius, surf, ratedPt) / inertia
	bTau := -ng / inertia
	zwT := 2 * opts.Torque.Zeta * opts.Torque.Omega
	tuning.Torque.Kp = -(zwT + aRated) / bTau
	tuning.Torque.Ki = -opts.Torque.Omega * opts.Torque.Omega / bTau

	return tuning, nil
}

func checkLoop(name string, lt windio.LoopTuning) error {
	if lt.Zeta <= 0 || lt.Omega <= 0 {
		return fmt.Errorf("%s loop tuning needs positive zeta and omega, got zeta=%g omega=%g", name, lt.Zeta, lt.Omega)
	}
	return nil
}

// dtaudOmega is the partial of aerodynamic torque with respect to rotor
// speed at an operating point, N m/(rad/s).
func dtaudOmega(rho, area, radius float64, surf *turbine.Surface, pt turbine.OperatingPoint) float64 {
	dcpdl := surf.DCpDTSR(pt.TSR, pt.PitchDeg)
	return 0.5 * rho * area * radius * radius * pt.WindSpeed *
		(dcpdl*pt.TSR - pt.Cp) / (pt.TSR * pt.TSR)
}

// dtaudPitch is the partial of aerodynamic torque with respect to blade
// pitch at an operating point, N m/rad.
func dtaudPitch(rho, area, radius float64, surf *turbine.Surface, pt turbine.OperatingPoint) float64 {
	dcpdb := surf.DCpDPitch(pt.TSR, pt.PitchDeg)
	return 0.5 * rho * area * radius * pt.WindSpeed * pt.WindSpeed * dcpdb / pt.TSR
}

package control

import (
	"math"

	"github.com/windco-project/windco/pkg/windio"
)

// Command is one controller output sample.
type Command struct {
	PitchDeg     float64 // deg
	GenTorque    float64 // N m, generator side
	WindEstimate float64 // m/s
}

// Controller is the runtime regulation loop. Internally pitch is carried
// in radians; commands cross the API in degrees. Gains are positive with
// pitch increasing and torque increasing on overspeed.
type Controller struct {
	tuning *Tuning
	est    *WindEstimator

	radius     float64
	gearRatio  float64
	ratedSpeed float64 // rad/s, rotor side
	tsrOpt     float64
	ratedWind  float64
	fineRad    float64
	pitchMax   float64 // rad
	pitchRate  float64 // rad/s
	torqueCap  float64 // N m, generator side
	torqueRate float64 // N m/s

	pitchInt   float64 // rad
	torqueInt  float64 // N m
	lastPitch  float64 // rad
	lastTorque float64
	windEst    float64
}

// NewController builds the runtime loop, initialized at the steady state
// for the given wind speed. est may be nil, in which case the wind used
// for gain scheduling is inferred from the operating region.
func NewController(tb *windio.Turbine, tuning *Tuning, est *WindEstimator, initialWind float64) *Controller {
	pt := tuning.Schedule.At(initialWind)
	c := &Controller{
		tuning:     tuning,
		est:        est,
		radius:     tb.RotorRadius(),
		gearRatio:  tb.Components.Drivetrain.GearRatio,
		ratedSpeed: tuning.RatedRotorSpeed,
		tsrOpt:     tuning.Schedule.TSROpt,
		ratedWind:  tuning.RatedWindSpeed,
		fineRad:    tuning.FinePitchDeg * math.Pi / 180,
		pitchMax:   tb.Control.Pitch.MaxDeg * math.Pi / 180,
		pitchRate:  tb.Control.Pitch.MaxRateDegS * math.Pi / 180,
		torqueCap:  tb.Control.Torque.Max,
		torqueRate: tb.Control.Torque.MaxRate,
		lastPitch:  pt.PitchDeg * math.Pi / 180,
		lastTorque: pt.GenTorque,
		windEst:    initialWind,
	}
	c.pitchInt = c.lastPitch - c.fineRad
	if c.torqueCap == 0 {
		c.torqueCap = 1.2 * tuning.Torque.RatedTorque
	}
	if c.torqueRate == 0 {
		c.torqueRate = c.torqueCap // effectively unlimited
	}
	return c
}

// Step advances the loop by dt given the measured rotor speed and
// returns the actuator commands.
func (c *Controller) Step(dt, omega float64) Command {
	if c.est != nil {
		c.windEst = c.est.Step(dt, omega, c.lastPitch, c.lastTorque)
	} else {
		c.windEst = c.inferredWind(omega)
	}

	torque := c.stepTorque(dt, omega)
	pitch := c.stepPitch(dt, omega)

	c.lastTorque = torque
	c.lastPitch = pitch
	return Command{
		PitchDeg:     pitch * 180 / math.Pi,
		GenTorque:    torque,
		WindEstimate: c.windEst,
	}
}

// stepTorque runs the generator torque law: quadratic optimal-TSR
// tracking in region 2, a PI hold at rated speed in region 2.5, constant
// rated torque above rated wind.
func (c *Controller) stepTorque(dt, omega float64) float64 {
	law := c.tuning.Torque
	genSpeed := omega * c.gearRatio
	optimal := law.OptimalK * genSpeed * genSpeed

	var cmd float64
	switch {
	case c.windEst >= c.ratedWind:
		cmd = law.RatedTorque
	case c.tsrOpt*c.windEst/c.radius >= c.ratedSpeed:
		// region 2.5: optimal tracking would overspeed, hold rated
		// speed with the tuned PI
		err := omega - c.ratedSpeed
		c.torqueInt += law.Ki * err * dt
		base := math.Min(optimal, law.RatedTorque)
		lo, hi := -base, law.RatedTorque-base
		c.torqueInt = clampF(c.torqueInt, lo-law.Kp*err, hi-law.Kp*err)
		cmd = base + law.Kp*err + c.torqueInt
	default:
		cmd = math.Min(optimal, law.RatedTorque)
		c.torqueInt = 0
	}

	cmd = clampF(cmd, 0, math.Min(c.torqueCap, law.RatedTorque))
	return rateLimit(c.lastTorque, cmd, c.torqueRate, dt)
}

// stepPitch runs the collective pitch PI against rated rotor speed with
// gain scheduling on the wind estimate.
func (c *Controller) stepPitch(dt, omega float64) float64 {
	kp, ki := c.tuning.Pitch.At(c.windEst)
	err := omega - c.ratedSpeed

	c.pitchInt += ki * err * dt
	// conditional clamp keeps the integrator from winding past the
	// actuator range
	c.pitchInt = clampF(c.pitchInt, -kp*err, c.pitchMax-c.fineRad-kp*err)

	cmd := clampF(c.fineRad+kp*err+c.pitchInt, c.fineRad, c.pitchMax)
	return rateLimit(c.lastPitch, cmd, c.pitchRate, dt)
}

// inferredWind recovers a gain-scheduling wind speed without an
// estimator: optimal TSR inversion while the pitch sits at fine, pitch
// schedule inversion once feathering.
func (c *Controller) inferredWind(omega float64) float64 {
	if c.lastPitch <= c.fineRad+0.5*math.Pi/180 {
		return omega * c.radius / c.tsrOpt
	}
	pitchDeg := c.lastPitch * 180 / math.Pi
	pts := c.tuning.Schedule.Points
	for i := 1; i < len(pts); i++ {
		if pts[i].WindSpeed < c.ratedWind {
			continue
		}
		if pitchDeg <= pts[i].PitchDeg {
			lo, hi := pts[i-1], pts[i]
			if hi.PitchDeg-lo.PitchDeg < 1e-9 {
				return hi.WindSpeed
			}
			f := (pitchDeg - lo.PitchDeg) / (hi.PitchDeg - lo.PitchDeg)
			return lo.WindSpeed + f*(hi.WindSpeed-lo.WindSpeed)
		}
	}
	return pts[len(pts)-1].WindSpeed
}

// PitchDeg returns the last commanded pitch in degrees.
func (c *Controller) PitchDeg() float64 { return c.lastPitch * 180 / math.Pi }

// GenTorque returns the last commanded generator torque in N m.
func (c *Controller) GenTorque() float64 { return c.lastTorque }

func clampF(x, lo, hi float64) float64 {
	if lo > hi {
		return lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func rateLimit(prev, next, rate, dt float64) float64 {
	maxStep := rate * dt
	if d := next - prev; d > maxStep {
		return prev + maxStep
	} else if d < -maxStep {
		return prev - maxStep
	}
	return next
}

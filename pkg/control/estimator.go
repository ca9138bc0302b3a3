package control

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/windco-project/windco/pkg/turbine"
	"github.com/windco-project/windco/pkg/windio"
)

// WindEstimator is an extended Kalman filter on the one-degree-of-freedom
// drivetrain with state [rotor speed, rotor-average wind speed]. The wind
// speed is modeled as a random walk; the rotor speed measurement drives
// the correction.
type WindEstimator struct {
	surf    *turbine.Surface
	rho     float64
	area    float64
	radius  float64
	inertia float64
	ng      float64

	qOmega float64 // process noise on rotor speed
	qWind  float64 // process noise on wind speed
	rMeas  float64 // measurement noise on rotor speed

	x *mat.VecDense // [omega; v]
	p *mat.Dense    // 2x2 covariance
}

// NewWindEstimator builds the filter initialized at the given state.
func NewWindEstimator(tb *windio.Turbine, surf *turbine.Surface, opts windio.EstimatorOptions, omega0, wind0 float64) *WindEstimator {
	return &WindEstimator{
		surf:    surf,
		rho:     tb.Environment.AirDensity,
		area:    tb.RotorArea(),
		radius:  tb.RotorRadius(),
		inertia: tb.Components.Drivetrain.RotorInertia,
		ng:      tb.Components.Drivetrain.GearRatio,
		qOmega:  1e-6,
		qWind:   opts.ProcessNoise,
		rMeas:   opts.MeasurementNoise,
		x:       mat.NewVecDense(2, []float64{omega0, wind0}),
		p:       mat.NewDense(2, 2, []float64{1e-3, 0, 0, 1.0}),
	}
}

// Step advances the filter by dt with the measured rotor speed and the
// actuator state applied over the interval, and returns the wind
// estimate.
func (e *WindEstimator) Step(dt, omegaMeas, pitchRad, genTorque float64) float64 {
	omega := math.Max(e.x.AtVec(0), 1e-2)
	wind := clampF(e.x.AtVec(1), 0.5, 40)

	// predict through the drivetrain dynamics
	tsr := omega * e.radius / wind
	pitchDeg := pitchRad * 180 / math.Pi
	cp := e.surf.Cp(tsr, pitchDeg)
	tau := 0.5 * e.rho * e.area * cp * wind * wind * wind / omega
	domega := (tau - e.ng*genTorque) / e.inertia

	a11 := 0.5 * e.rho * e.area * e.radius * e.radius * wind *
		(e.surf.DCpDTSR(tsr, pitchDeg)*tsr - cp) / (tsr * tsr) / e.inertia
	a12 := 0.5 * e.rho * e.area * wind * wind *
		(3*cp - tsr*e.surf.DCpDTSR(tsr, pitchDeg)) / omega / e.inertia

	f := mat.NewDense(2, 2, []float64{1 + a11*dt, a12 * dt, 0, 1})

	omegaPred := omega + domega*dt
	windPred := wind

	var fp, fpf mat.Dense
	fp.Mul(f, e.p)
	fpf.Mul(&fp, f.T())
	fpf.Set(0, 0, fpf.At(0, 0)+e.qOmega*dt)
	fpf.Set(1, 1, fpf.At(1, 1)+e.qWind*dt)

	// correct with the speed measurement, H = [1 0]
	s := fpf.At(0, 0) + e.rMeas
	k0 := fpf.At(0, 0) / s
	k1 := fpf.At(1, 0) / s
	innov := omegaMeas - omegaPred

	e.x.SetVec(0, omegaPred+k0*innov)
	e.x.SetVec(1, clampF(windPred+k1*innov, 0.5, 40))

	p00 := (1 - k0) * fpf.At(0, 0)
	p01 := (1 - k0) * fpf.At(0, 1)
	p10 := fpf.At(1, 0) - k1*fpf.At(0, 0)
	p11 := fpf.At(1, 1) - k1*fpf.At(0, 1)
	e.p = mat.NewDense(2, 2, []float64{p00, p01, p10, p11})

	return e.x.AtVec(1)
}

// Estimate returns the current wind speed estimate without advancing the
// filter.
func (e *WindEstimator) Estimate() float64 { return e.x.AtVec(1) }

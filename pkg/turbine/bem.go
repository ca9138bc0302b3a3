package turbine

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/windco-project/windco/pkg/windio"
)

const (
	bemElements = 20
	bemMaxIter  = 100
	bemTol      = 1e-6
	bemRelax    = 0.35
	// axial induction threshold for the Spera high-load correction
	bemSperaAC = 0.2
)

// polarTable interpolates lift and drag over angle of attack in degrees.
type polarTable struct {
	cl interp.PiecewiseLinear
	cd interp.PiecewiseLinear
}

func (p *polarTable) coeffs(alphaDeg float64) (cl, cd float64) {
	a := wrapDeg(alphaDeg)
	return p.cl.Predict(a), p.cd.Predict(a)
}

func wrapDeg(a float64) float64 {
	for a > 180 {
		a -= 360
	}
	for a < -180 {
		a += 360
	}
	return a
}

// element is one annulus of the discretized rotor. Lengths are
// nondimensionalized by the rotor radius, angles in radians.
type element struct {
	r     float64
	dr    float64
	chord float64
	twist float64
	polar *polarTable
}

// Synthesize computes the coefficient surface from the blade geometry
// with a blade-element momentum sweep over the (TSR, pitch) grid. The
// model carries Prandtl tip loss and the Spera correction for highly
// loaded annuli; swirl is included, no hub loss.
func Synthesize(t *windio.Turbine, tsrGrid, pitchGridDeg []float64) (*Surface, error) {
	elems, err := discretize(t)
	if err != nil {
		return nil, fmt.Errorf("discretize blade: %w", err)
	}
	nb := float64(t.Assembly.NumberOfBlades)
	s := &Surface{
		tsr:      append([]float64(nil), tsrGrid...),
		pitchDeg: append([]float64(nil), pitchGridDeg...),
		cp:       make([][]float64, len(tsrGrid)),
		ct:       make([][]float64, len(tsrGrid)),
		cq:       make([][]float64, len(tsrGrid)),
	}
	for i, tsr := range tsrGrid {
		s.cp[i] = make([]float64, len(pitchGridDeg))
		s.ct[i] = make([]float64, len(pitchGridDeg))
		s.cq[i] = make([]float64, len(pitchGridDeg))
		for j, pitch := range pitchGridDeg {
			cp, ct := bemPoint(elems, nb, tsr, pitch*math.Pi/180)
			if !isFinite(cp) || !isFinite(ct) {
				cp, ct = 0, 0
			}
			s.cp[i][j] = cp
			s.ct[i][j] = ct
			s.cq[i][j] = cp / tsr
		}
	}
	return s, nil
}

// discretize resamples the deck stations onto fixed annuli. Chord and
// twist interpolate linearly along span; each annulus takes the polar of
// its nearest station.
func discretize(t *windio.Turbine) ([]element, error) {
	stations := t.Components.Blade.Stations
	if len(stations) < 2 {
		return nil, fmt.Errorf("need at least 2 blade stations, got %d", len(stations))
	}
	radius := t.RotorRadius()
	pos := make([]float64, len(stations))
	chord := make([]float64, len(stations))
	twist := make([]float64, len(stations))
	for i, st := range stations {
		pos[i] = st.Position
		chord[i] = st.Chord / radius
		twist[i] = st.TwistDeg * math.Pi / 180
	}
	var chordFit, twistFit interp.PiecewiseLinear
	if err := chordFit.Fit(pos, chord); err != nil {
		return nil, fmt.Errorf("fit chord: %w", err)
	}
	if err := twistFit.Fit(pos, twist); err != nil {
		return nil, fmt.Errorf("fit twist: %w", err)
	}

	polars := make(map[string]*polarTable, len(t.Airfoils))
	for _, af := range t.Airfoils {
		alpha := make([]float64, len(af.Polars))
		cl := make([]float64, len(af.Polars))
		cd := make([]float64, len(af.Polars))
		for i, p := range af.Polars {
			alpha[i] = p.AlphaDeg
			cl[i] = p.Cl
			cd[i] = p.Cd
		}
		pt := &polarTable{}
		if err := pt.cl.Fit(alpha, cl); err != nil {
			return nil, fmt.Errorf("fit airfoil %q lift: %w", af.Name, err)
		}
		if err := pt.cd.Fit(alpha, cd); err != nil {
			return nil, fmt.Errorf("fit airfoil %q drag: %w", af.Name, err)
		}
		polars[af.Name] = pt
	}

	rootFrac := math.Max(t.Components.Hub.Diameter/2/radius, 0.02)
	if first := stations[0].Position; first > rootFrac {
		rootFrac = first
	}
	const tipFrac = 0.995
	if rootFrac >= tipFrac {
		return nil, fmt.Errorf("hub occupies the whole span (root fraction %.3f)", rootFrac)
	}
	dr := (tipFrac - rootFrac) / bemElements
	elems := make([]element, bemElements)
	for k := range elems {
		r := rootFrac + (float64(k)+0.5)*dr
		elems[k] = element{
			r:     r,
			dr:    dr,
			chord: chordFit.Predict(r),
			twist: twistFit.Predict(r),
			polar: polars[nearestStation(stations, r).Airfoil],
		}
	}
	return elems, nil
}

func nearestStation(stations []windio.BladeStation, r float64) *windio.BladeStation {
	best := &stations[0]
	bestDist := math.Abs(stations[0].Position - r)
	for i := 1; i < len(stations); i++ {
		if d := math.Abs(stations[i].Position - r); d < bestDist {
			best, bestDist = &stations[i], d
		}
	}
	return best
}

// bemPoint solves the induction balance on every annulus and integrates
// thrust and torque into rotor coefficients, for unit wind speed and
// radius.
func bemPoint(elems []element, nb, tsr, pitchRad float64) (cp, ct float64) {
	var torque, thrust float64
	for _, e := range elems {
		lr := tsr * e.r
		sigma := nb * e.chord / (2 * math.Pi * e.r)
		a, ap := 0.0, 0.0
		for it := 0; it < bemMaxIter; it++ {
			aNew, apNew := inductionStep(e, nb, lr, pitchRad, sigma, a, ap)
			if math.Abs(aNew-a) < bemTol && math.Abs(apNew-ap) < bemTol {
				a, ap = aNew, apNew
				break
			}
			a += bemRelax * (aNew - a)
			ap += bemRelax * (apNew - ap)
		}
		phi := math.Atan2(1-a, lr*(1+ap))
		sinPhi, cosPhi := safeSin(phi), math.Cos(phi)
		cl, cd := e.polar.coeffs((phi - e.twist - pitchRad) * 180 / math.Pi)
		cn := cl*cosPhi + cd*sinPhi
		ctan := cl*sinPhi - cd*cosPhi
		vrel2 := (1-a)*(1-a) + lr*lr*(1+ap)*(1+ap)
		common := 0.5 * nb * e.chord * vrel2 * e.dr
		thrust += common * cn
		torque += common * ctan * e.r
	}
	halfArea := 0.5 * math.Pi
	return tsr * torque / halfArea, thrust / halfArea
}

// inductionStep evaluates one fixed-point update of the axial and
// tangential induction factors.
func inductionStep(e element, nb, lr, pitchRad, sigma, a, ap float64) (float64, float64) {
	phi := math.Atan2(1-a, lr*(1+ap))
	sinPhi, cosPhi := safeSin(phi), math.Cos(phi)
	cl, cd := e.polar.coeffs((phi - e.twist - pitchRad) * 180 / math.Pi)
	cn := cl*cosPhi + cd*sinPhi
	ctan := cl*sinPhi - cd*cosPhi

	f := nb / 2 * (1 - e.r) / (e.r * math.Abs(sinPhi))
	tipLoss := 2 / math.Pi * math.Acos(math.Exp(-f))
	if tipLoss < 1e-3 {
		tipLoss = 1e-3
	}

	var aNew float64
	if cn > 0 {
		k := 4 * tipLoss * sinPhi * sinPhi / (sigma * cn)
		aNew = 1 / (k + 1)
		if aNew > bemSperaAC {
			ac := bemSperaAC
			disc := (k*(1-2*ac)+2)*(k*(1-2*ac)+2) + 4*(k*ac*ac-1)
			if disc < 0 {
				disc = 0
			}
			aNew = 0.5 * (2 + k*(1-2*ac) - math.Sqrt(disc))
		}
	}
	var apNew float64
	if ctan != 0 {
		denom := 4*tipLoss*sinPhi*cosPhi/(sigma*ctan) - 1
		if math.Abs(denom) > 1e-6 {
			apNew = 1 / denom
		}
	}
	return clamp(aNew, 0, 0.95), clamp(apNew, -0.5, 0.5)
}

func safeSin(phi float64) float64 {
	s := math.Sin(phi)
	if math.Abs(s) < 1e-3 {
		if s < 0 {
			return -1e-3
		}
		return 1e-3
	}
	return s
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

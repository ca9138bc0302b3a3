// Package turbine turns the static turbine deck into the quantities the
// controller synthesis and the reduced-order model consume: rotor
// coefficient surfaces on a (TSR, pitch) grid and the steady-state
// operating schedule across the wind speed range.
package turbine

import (
	"fmt"
	"math"

	"github.com/windco-project/windco/pkg/windio"
)

// Surface holds the rotor coefficient tables Cp, Ct and Cq sampled on a
// rectangular (TSR, pitch) grid. Lookups between nodes are bilinear and
// clamp to the grid edges.
type Surface struct {
	tsr      []float64 // strictly increasing
	pitchDeg []float64 // strictly increasing
	cp       [][]float64
	ct       [][]float64
	cq       [][]float64
}

// NewSurface wraps deck-provided performance tables. The tables are
// validated during deck loading; this only copies them into the lookup
// structure.
func NewSurface(pt *windio.PerformanceTables) (*Surface, error) {
	if pt == nil {
		return nil, fmt.Errorf("nil performance tables")
	}
	if err := checkGrid(pt.TSRGrid, pt.PitchGridDeg, pt.Cp); err != nil {
		return nil, fmt.Errorf("performance tables: %w", err)
	}
	s := &Surface{
		tsr:      append([]float64(nil), pt.TSRGrid...),
		pitchDeg: append([]float64(nil), pt.PitchGridDeg...),
		cp:       copyRows(pt.Cp),
		ct:       copyRows(pt.Ct),
		cq:       copyRows(pt.Cq),
	}
	return s, nil
}

// FromTurbine returns the coefficient surface for a deck, preferring
// deck-provided tables and synthesizing them from the blade geometry
// otherwise.
func FromTurbine(t *windio.Turbine) (*Surface, error) {
	if t.Performance != nil {
		return NewSurface(t.Performance)
	}
	tsr, pitch := DefaultGrids()
	return Synthesize(t, tsr, pitch)
}

// DefaultGrids returns the synthesis grid: TSR 2 to 14 in steps of 0.5
// and pitch -2 to 30 degrees in steps of 1.
func DefaultGrids() (tsr, pitchDeg []float64) {
	for v := 2.0; v <= 14.0+1e-9; v += 0.5 {
		tsr = append(tsr, v)
	}
	for p := -2.0; p <= 30.0+1e-9; p += 1.0 {
		pitchDeg = append(pitchDeg, p)
	}
	return tsr, pitchDeg
}

// Tables exports the surface in deck form, for embedding into run records.
func (s *Surface) Tables() *windio.PerformanceTables {
	return &windio.PerformanceTables{
		TSRGrid:      append([]float64(nil), s.tsr...),
		PitchGridDeg: append([]float64(nil), s.pitchDeg...),
		Cp:           copyRows(s.cp),
		Ct:           copyRows(s.ct),
		Cq:           copyRows(s.cq),
	}
}

// PitchRange returns the pitch extent of the grid in degrees.
func (s *Surface) PitchRange() (lo, hi float64) {
	return s.pitchDeg[0], s.pitchDeg[len(s.pitchDeg)-1]
}

// TSRRange returns the tip speed ratio extent of the grid.
func (s *Surface) TSRRange() (lo, hi float64) {
	return s.tsr[0], s.tsr[len(s.tsr)-1]
}

// Cp interpolates the power coefficient at the given tip speed ratio and
// pitch angle.
func (s *Surface) Cp(tsr, pitchDeg float64) float64 { return s.lookup(s.cp, tsr, pitchDeg) }

// Ct interpolates the thrust coefficient.
func (s *Surface) Ct(tsr, pitchDeg float64) float64 { return s.lookup(s.ct, tsr, pitchDeg) }

// Cq interpolates the torque coefficient.
func (s *Surface) Cq(tsr, pitchDeg float64) float64 { return s.lookup(s.cq, tsr, pitchDeg) }

// CpMax returns the grid optimum of the power coefficient together with
// its tip speed ratio and pitch angle.
func (s *Surface) CpMax() (cp, tsr, pitchDeg float64) {
	bi, bj := 0, 0
	best := math.Inf(-1)
	for i := range s.tsr {
		for j := range s.pitchDeg {
			if s.cp[i][j] > best {
				best = s.cp[i][j]
				bi, bj = i, j
			}
		}
	}
	return best, s.tsr[bi], s.pitchDeg[bj]
}

// PitchForCp solves Cp(tsr, pitch) = target for pitch on the feathering
// branch between loDeg and hiDeg, where Cp decreases with pitch. When the
// target is unreachable the closer bound is returned.
func (s *Surface) PitchForCp(target, tsr, loDeg, hiDeg float64) float64 {
	lo, hi := loDeg, hiDeg
	if s.Cp(tsr, lo) <= target {
		return lo
	}
	if s.Cp(tsr, hi) >= target {
		return hi
	}
	for i := 0; i < 80; i++ {
		mid := (lo + hi) / 2
		if s.Cp(tsr, mid) > target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// DCpDPitch is the central-difference partial of Cp with respect to
// pitch, in 1/rad.
func (s *Surface) DCpDPitch(tsr, pitchDeg float64) float64 {
	const hDeg = 0.5
	d := (s.Cp(tsr, pitchDeg+hDeg) - s.Cp(tsr, pitchDeg-hDeg)) / (2 * hDeg)
	return d * 180 / math.Pi
}

// DCpDTSR is the central-difference partial of Cp with respect to the
// tip speed ratio.
func (s *Surface) DCpDTSR(tsr, pitchDeg float64) float64 {
	const h = 0.25
	return (s.Cp(tsr+h, pitchDeg) - s.Cp(tsr-h, pitchDeg)) / (2 * h)
}

func (s *Surface) lookup(tab [][]float64, tsr, pitchDeg float64) float64 {
	i, ft := bracket(s.tsr, tsr)
	j, fp := bracket(s.pitchDeg, pitchDeg)
	v00 := tab[i][j]
	v10 := tab[i+1][j]
	v01 := tab[i][j+1]
	v11 := tab[i+1][j+1]
	return v00*(1-ft)*(1-fp) + v10*ft*(1-fp) + v01*(1-ft)*fp + v11*ft*fp
}

// bracket finds the cell index and fractional position of x in a strictly
// increasing grid, clamping outside values to the edge cells.
func bracket(grid []float64, x float64) (int, float64) {
	n := len(grid)
	if x <= grid[0] {
		return 0, 0
	}
	if x >= grid[n-1] {
		return n - 2, 1
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if grid[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, (x - grid[lo]) / (grid[lo+1] - grid[lo])
}

func checkGrid(tsr, pitch []float64, cp [][]float64) error {
	if len(tsr) < 2 || len(pitch) < 2 {
		return fmt.Errorf("grids need at least 2 points per axis, got %dx%d", len(tsr), len(pitch))
	}
	if len(cp) != len(tsr) {
		return fmt.Errorf("cp has %d rows, want %d", len(cp), len(tsr))
	}
	for i, row := range cp {
		if len(row) != len(pitch) {
			return fmt.Errorf("cp row %d has %d columns, want %d", i, len(row), len(pitch))
		}
	}
	return nil
}

func copyRows(in [][]float64) [][]float64 {
	out := make([][]float64, len(in))
	for i := range in {
		out[i] = append([]float64(nil), in[i]...)
	}
	return out
}

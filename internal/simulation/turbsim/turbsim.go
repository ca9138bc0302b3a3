// Package turbsim adapts the external turbulence generator: it renders
// the grid input for a case, runs the binary and returns the wind field
// path the solver deck references. Deterministic cases skip generation.
package turbsim

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/windco-project/windco/internal/dlc"
	"github.com/windco-project/windco/internal/simulation"
	"github.com/windco-project/windco/pkg/windio"
)

// Generator drives the turbulence binary.
type Generator struct {
	fs            afero.Fs
	runner        simulation.CommandRunner
	opts          windio.TurbSimOptions
	hubHeight     float64
	rotorDiameter float64
}

// New builds the generator for a turbine's geometry.
func New(fs afero.Fs, runner simulation.CommandRunner, opts windio.TurbSimOptions, tb *windio.Turbine) *Generator {
	return &Generator{
		fs:            fs,
		runner:        runner,
		opts:          opts,
		hubHeight:     tb.Assembly.HubHeight,
		rotorDiameter: tb.Assembly.RotorDiameter,
	}
}

// Generate produces the turbulence grid for a case and returns its
// path. Cases without turbulence need no grid and return "".
func (g *Generator) Generate(ctx context.Context, c dlc.Case, workdir string) (string, error) {
	if c.TurbulenceIntensity == 0 {
		return "", nil
	}

	deck := filepath.Join(workdir, c.ID+".inp")
	if err := afero.WriteFile(g.fs, deck, g.deck(c), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", deck, err)
	}

	bin := g.opts.Executable
	if bin == "" {
		bin = "turbsim"
	}
	out, err := g.runner.Run(ctx, workdir, bin, filepath.Base(deck))
	if cerr := simulation.ClassifyRunError(err, out, bin); cerr != nil {
		return "", cerr
	}

	wind := filepath.Join(workdir, c.ID+".bts")
	ok, err := afero.Exists(g.fs, wind)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", simulation.Fatalf("%s produced no wind field %s", bin, wind)
	}
	return wind, nil
}

// grid output time step, finer than the solver ever integrates
const gridTimeStep = 0.05 // s

// deck renders the generator input: grid geometry sized to the rotor,
// spectral model, seed and target intensity.
func (g *Generator) deck(c dlc.Case) []byte {
	var b strings.Builder
	b.WriteString("---- windco turbulence deck ------------------------------------\n")
	fmt.Fprintf(&b, "%-20s CaseID       - case identifier\n", c.ID)
	fmt.Fprintf(&b, "%-20d RandSeed     - random seed\n", c.Seed)
	fmt.Fprintf(&b, "%-20d NumGridZ     - vertical grid points\n", g.gridPoints())
	fmt.Fprintf(&b, "%-20d NumGridY     - lateral grid points\n", g.gridPoints())
	fmt.Fprintf(&b, "%-20.2f GridHeight   - grid height (m)\n", g.gridWidth())
	fmt.Fprintf(&b, "%-20.2f GridWidth    - grid width (m)\n", g.gridWidth())
	fmt.Fprintf(&b, "%-20.2f HubHt        - hub height (m)\n", g.hubHeight)
	fmt.Fprintf(&b, "%-20.4f TimeStep     - grid time step (s)\n", gridTimeStep)
	fmt.Fprintf(&b, "%-20.2f AnalysisTime - generated span (s)\n", c.Duration)
	fmt.Fprintf(&b, "%-20s SpecModel    - Kaimal spectrum\n", "IECKAI")
	fmt.Fprintf(&b, "%-20.3f URef         - mean hub wind speed (m/s)\n", c.WindSpeed)
	fmt.Fprintf(&b, "%-20.2f TI           - turbulence intensity (percent)\n", 100*c.TurbulenceIntensity)
	fmt.Fprintf(&b, "%-20s WindProfile  - power-law shear\n", "PL")
	fmt.Fprintf(&b, "%-20.2f PLExp        - shear exponent\n", g.shearExponent(c))
	return []byte(b.String())
}

func (g *Generator) gridPoints() int {
	if g.opts.GridPoints > 0 {
		return g.opts.GridPoints
	}
	return 15
}

// gridWidth covers the rotor with margin for yaw and tower shadow.
func (g *Generator) gridWidth() float64 {
	if g.opts.GridWidth > 0 {
		return g.opts.GridWidth
	}
	return 1.1 * g.rotorDiameter
}

// shearExponent picks the IEC power-law exponent: 0.2 for normal
// conditions, 0.11 for the extreme wind model.
func (g *Generator) shearExponent(c dlc.Case) float64 {
	if c.WindType == dlc.WindEWM50 {
		return 0.11
	}
	return 0.2
}

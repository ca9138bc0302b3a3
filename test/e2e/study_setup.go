package e2e

import (
	"bytes"
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2" // nolint:all
	. "github.com/onsi/gomega"    // nolint:all
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/windco-project/windco/internal/cli"
	"github.com/windco-project/windco/pkg/windio"
)

// referenceTurbine is a 5 MW class machine with an analytic coefficient
// surface, rich enough to carry a full campaign without an external
// solver.
func referenceTurbine() *windio.Turbine {
	return &windio.Turbine{
		Name: "e2e-ref",
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
		Environment: windio.Environment{AirDensity: 1.225, WeibullShape: 2, Availability: 1},
		Performance: referenceTables(),
	}
}

func referenceTables() *windio.PerformanceTables {
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
			ct = append(ct, math.Min(math.Max(0.08*tsr*(1-p/30)+0.05, 0), 1.2))
			cq = append(cq, c/tsr)
		}
		pt.Cp = append(pt.Cp, cp)
		pt.Ct = append(pt.Ct, ct)
		pt.Cq = append(pt.Cq, cq)
	}
	return pt
}

// baselineModeling mixes the case families: seeded normal and extreme
// turbulence, plus one parked storm case.
func baselineModeling() *windio.ModelingOptions {
	return &windio.ModelingOptions{
		General: windio.GeneralOptions{Fidelity: windio.FidelityReduced},
		Simulation: windio.SimulationOptions{
			Duration:      60,
			TransientTime: 10,
			TimeStep:      0.05,
			WindSpeedStep: 2,
		},
		Controller: windio.ControllerOptions{
			Pitch:  windio.LoopTuning{Zeta: 0.7, Omega: 0.6},
			Torque: windio.LoopTuning{Zeta: 0.7, Omega: 0.3},
		},
		DLCs: windio.DLCOptions{
			MasterSeed: 2405,
			Cases: []windio.DLCEntry{
				{DLC: "1.1", WindSpeeds: []float64{8, 12}, NSeeds: 1},
				{DLC: "1.3", WindSpeeds: []float64{14}, NSeeds: 2},
				{DLC: "6.1", NSeeds: 1},
			},
		},
		Execution: windio.ExecutionOptions{Workers: 2},
	}
}

func baselineAnalysis() *windio.AnalysisOptions {
	return &windio.AnalysisOptions{
		General:     windio.AnalysisGeneral{FolderOutput: "outputs"},
		MeritFigure: windio.MeritFigure{Name: "aep"},
	}
}

// stageDecks writes the three decks of one study and returns their
// paths in run-command order.
func stageDecks(fs afero.Fs, tb *windio.Turbine, mo *windio.ModelingOptions, an *windio.AnalysisOptions) []string {
	paths := []string{"decks/turbine.yaml", "decks/modeling.yaml", "decks/analysis.yaml"}
	for i, deck := range []any{tb, mo, an} {
		data, err := yaml.Marshal(deck)
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		ExpectWithOffset(1, afero.WriteFile(fs, paths[i], data, 0o644)).To(Succeed())
	}
	return paths
}

// windco runs one invocation of the real command tree against fs and
// returns what the command printed.
func windco(fs afero.Fs, args ...string) (string, error) {
	var buf bytes.Buffer
	root := cli.NewRootCmd(fs, &buf)
	root.SetOut(GinkgoWriter)
	root.SetErr(GinkgoWriter)
	root.SetArgs(append([]string{"--log-level=error"}, args...))
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

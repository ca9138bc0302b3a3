package e2e

import (
	"encoding/json"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"

	"github.com/windco-project/windco/internal/output"
	"github.com/windco-project/windco/internal/results"
	"github.com/windco-project/windco/pkg/windio"
)

var _ = Describe("Reduced-order study", Ordered, func() {
	var (
		fs    afero.Fs
		decks []string
		rec   results.RunRecord
	)

	BeforeAll(func() {
		fs = afero.NewMemMapFs()
		decks = stageDecks(fs, referenceTurbine(), baselineModeling(), baselineAnalysis())
	})

	It("runs the mixed campaign through the command tree", func() {
		By("executing windco run")
		out, err := windco(fs, "run",
			"-t", decks[0], "-m", decks[1], "-a", decks[2],
			"--metrics-textfile", "metrics/windco.prom",
			"--format", "json")
		Expect(err).NotTo(HaveOccurred())

		By("decoding the printed record")
		Expect(json.Unmarshal([]byte(out), &rec)).To(Succeed())
		Expect(rec.RunID).NotTo(BeEmpty())
		Expect(rec.RunName).To(Equal("e2e-ref"))
		Expect(rec.Backend).To(Equal("rom"))

		By("checking every expanded case succeeded")
		Expect(rec.Cases).To(HaveLen(5))
		ids := make([]string, 0, len(rec.Cases))
		for _, cs := range rec.Cases {
			Expect(cs.Status).To(Equal("succeeded"), cs.Case.ID)
			ids = append(ids, cs.Case.ID)
		}
		Expect(ids).To(ConsistOf(
			"dlc1.1_ws08.0_s00", "dlc1.1_ws12.0_s00",
			"dlc1.3_ws14.0_s00", "dlc1.3_ws14.0_s01",
			"dlc6.1_ws70.0_s00",
		))

		By("checking the campaign reduction")
		Expect(rec.Summary).NotTo(BeNil())
		Expect(rec.Summary.ProductionCases).To(Equal(2))
		Expect(rec.Summary.AEP).To(BeNumerically(">", 0))
		Expect(rec.Summary.Extremes).To(HaveKey(output.ChanTwrBsMyt))
		Expect(rec.Summary.Extremes[output.ChanTwrBsMyt]).To(BeNumerically(">", 0))
		Expect(rec.Merit).NotTo(BeNil())
		Expect(rec.Merit.Value).To(Equal(rec.Summary.AEP))
	})

	It("left the full run layout on disk", func() {
		store := results.NewStore(fs, "outputs")
		latest, err := store.Latest()
		Expect(err).NotTo(HaveOccurred())
		Expect(latest).To(Equal(rec.RunID))

		runDir := store.Dir(rec.RunID)
		for _, name := range []string{
			"record.json", "summary.yaml", "tables/cases.parquet",
			"inputs/turbine.yaml", "inputs/modeling.yaml", "inputs/analysis.yaml",
		} {
			Expect(afero.Exists(fs, runDir+"/"+name)).To(BeTrue(), name)
		}
		for _, cs := range rec.Cases {
			path := fmt.Sprintf("%s/cases/%s/%s.outb", runDir, cs.Case.ID, cs.Case.ID)
			Expect(afero.Exists(fs, path)).To(BeTrue(), path)
		}
	})

	It("exported the end-of-run metrics dump", func() {
		data, err := afero.ReadFile(fs, "metrics/windco.prom")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("windco_cases_completed_total"))
		Expect(string(data)).To(ContainSubstring(`backend="rom"`))
	})

	It("answers results list and query for the stored run", func() {
		out, err := windco(fs, "results", "list", "--format", "json")
		Expect(err).NotTo(HaveOccurred())
		var entries []map[string]any
		Expect(json.Unmarshal([]byte(out), &entries)).To(Succeed())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0]["run_id"]).To(Equal(rec.RunID))

		out, err = windco(fs, "results", "query", "$.summary.aep")
		Expect(err).NotTo(HaveOccurred())
		var aep float64
		Expect(json.Unmarshal([]byte(strings.TrimSpace(out)), &aep)).To(Succeed())
		Expect(aep).To(Equal(rec.Summary.AEP))
	})

	It("rebuilds the summary from the stored case outputs", func() {
		store := results.NewStore(fs, "outputs")
		Expect(fs.Remove(store.Dir(rec.RunID) + "/summary.yaml")).To(Succeed())

		out, err := windco(fs, "postprocess", "--run", rec.RunID, "--format", "json")
		Expect(err).NotTo(HaveOccurred())

		var rebuilt results.RunRecord
		Expect(json.Unmarshal([]byte(out), &rebuilt)).To(Succeed())
		Expect(rebuilt.Summary).NotTo(BeNil())
		// the packed channel files quantize to 16 bit, so the rebuilt
		// aggregate lands close to but not exactly on the original
		Expect(rebuilt.Summary.AEP).To(BeNumerically("~", rec.Summary.AEP, rec.Summary.AEP*1e-3))
		Expect(afero.Exists(fs, store.Dir(rec.RunID)+"/summary.yaml")).To(BeTrue())
	})
})

var _ = Describe("Grid optimization study", Ordered, func() {
	var (
		fs  afero.Fs
		rec results.RunRecord
	)

	BeforeAll(func() {
		fs = afero.NewMemMapFs()
		mo := baselineModeling()
		mo.Simulation.Duration = 20
		mo.Simulation.TransientTime = 5
		mo.DLCs.Cases = []windio.DLCEntry{{DLC: "1.1", WindSpeeds: []float64{10}, NSeeds: 1}}
		an := baselineAnalysis()
		an.DesignVariables = []windio.DesignVariable{
			{Name: windio.VarPitchOmega, Lower: 0.3, Upper: 0.9},
		}
		an.Driver.Optimization = windio.OptimizationOptions{
			Flag:   true,
			Driver: windio.DriverGrid,
			Grid:   windio.GridOptions{Levels: 3},
		}
		decks := stageDecks(fs, referenceTurbine(), mo, an)

		out, err := windco(fs, "run",
			"-t", decks[0], "-m", decks[1], "-a", decks[2], "--format", "json")
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal([]byte(out), &rec)).To(Succeed())
	})

	It("walked the whole lattice at the reduced fidelity", func() {
		rep := rec.Optimization
		Expect(rep).NotTo(BeNil())
		Expect(rep.Driver).To(Equal(windio.DriverGrid))
		Expect(rep.History).To(HaveLen(3))
		Expect(rep.Evaluations[windio.FidelityReduced]).To(Equal(3))
		Expect(rep.Converged).To(BeTrue())

		best := rep.Best.Design[windio.VarPitchOmega]
		Expect(best).To(BeNumerically(">=", 0.3))
		Expect(best).To(BeNumerically("<=", 0.9))
	})

	It("kept every evaluation campaign on disk", func() {
		runDir := results.NewStore(fs, "outputs").Dir(rec.RunID)
		for i := 1; i <= 3; i++ {
			dir := fmt.Sprintf("%s/evals/%03d_f1/cases", runDir, i)
			Expect(afero.DirExists(fs, dir)).To(BeTrue(), dir)
		}
	})

	It("re-ran the winning design as the delivered campaign", func() {
		Expect(rec.Cases).To(HaveLen(1))
		Expect(rec.Cases[0].Status).To(Equal("succeeded"))
		Expect(rec.Summary).NotTo(BeNil())
		Expect(rec.Merit).NotTo(BeNil())
		Expect(rec.Merit.Value).To(Equal(rec.Summary.AEP))
	})
})

var _ = Describe("Aeroelastic gate", func() {
	It("refuses to start a campaign without the toolchain", func() {
		fs := afero.NewMemMapFs()
		mo := baselineModeling()
		mo.General.Fidelity = windio.FidelityAeroelastic
		mo.OpenFAST.Executable = "/nonexistent/openfast"
		mo.TurbSim.Executable = "/nonexistent/turbsim"
		decks := stageDecks(fs, referenceTurbine(), mo, baselineAnalysis())

		_, err := windco(fs, "run", "-t", decks[0], "-m", decks[1], "-a", decks[2])
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("fidelity 3 needs"))
	})
})

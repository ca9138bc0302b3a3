/*
Copyright 2025 The windco Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package gluecode

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/windco-project/windco/internal/config"
	"github.com/windco-project/windco/internal/dlc"
	"github.com/windco-project/windco/internal/executor"
	"github.com/windco-project/windco/internal/logging"
	"github.com/windco-project/windco/internal/metrics"
	"github.com/windco-project/windco/internal/postpro"
	"github.com/windco-project/windco/internal/results"
	"github.com/windco-project/windco/internal/simulation"
	"github.com/windco-project/windco/internal/simulation/openfast"
	"github.com/windco-project/windco/internal/simulation/rom"
	"github.com/windco-project/windco/internal/simulation/turbsim"
	"github.com/windco-project/windco/internal/toolchain"
	"github.com/windco-project/windco/pkg/solver"
	"github.com/windco-project/windco/pkg/windio"
)

// Inputs names the three decks of one study.
type Inputs struct {
	Turbine  string
	Modeling string
	Analysis string
}

// Options inject the pipeline collaborators. Zero values select the
// real thing: default host config, exec-backed commands, $PATH tool
// lookup, no metrics.
type Options struct {
	Runtime *config.Config
	Metrics *metrics.Recorder
	Runner  simulation.CommandRunner
	Locator toolchain.Locator
	// Archiver overrides the S3 archiver the pipeline would build from
	// the runtime config when the analysis deck enables archiving.
	Archiver results.RunArchiver
}

// Pipeline is the fixed co-design flow from decks to run record.
type Pipeline struct {
	fs       afero.Fs
	cfg      *config.Config
	rec      *metrics.Recorder
	runner   simulation.CommandRunner
	locator  toolchain.Locator
	archiver results.RunArchiver
}

// New wires a pipeline against a filesystem.
func New(fs afero.Fs, opts Options) *Pipeline {
	cfg := opts.Runtime
	if cfg == nil {
		cfg = config.Default()
	}
	runner := opts.Runner
	if runner == nil {
		runner = simulation.ExecRunner{}
	}
	locator := opts.Locator
	if locator == nil {
		locator = toolchain.ExecLocator{}
	}
	return &Pipeline{
		fs:       fs,
		cfg:      cfg,
		rec:      opts.Metrics,
		runner:   runner,
		locator:  locator,
		archiver: opts.Archiver,
	}
}

// Run executes one study end to end and returns its persisted record.
// A campaign that loses cases still persists the record before the
// error comes back; the returned record then carries every outcome the
// board saw.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*results.RunRecord, error) {
	start := time.Now()

	tb, err := windio.LoadTurbine(p.fs, in.Turbine)
	if err != nil {
		return nil, err
	}
	modeling, err := windio.LoadModelingOptions(p.fs, in.Modeling)
	if err != nil {
		return nil, err
	}
	analysis, err := windio.LoadAnalysisOptions(p.fs, in.Analysis)
	if err != nil {
		return nil, err
	}
	// The host config wins over the deck for worker count: the deck
	// travels between machines, the core count does not.
	if p.cfg.Workers > 0 {
		modeling.Execution.Workers = p.cfg.Workers
	}
	runName := analysis.General.RunName
	if runName == "" {
		runName = tb.Name
	}

	runID := results.NewRunID()
	log := logging.FromContext(ctx).WithValues("run", runID)
	ctx = logging.NewContext(ctx, log)
	log.Info("run starting", "name", runName, "turbine", tb.Name,
		"fidelity", modeling.General.Fidelity, "backend", backendFor(modeling.General.Fidelity))

	store := results.NewStore(p.fs, filepath.Join(p.cfg.OutputRoot, analysis.General.FolderOutput))
	runDir, err := store.Prepare(runID)
	if err != nil {
		return nil, err
	}

	rec := &results.RunRecord{
		RunID:     runID,
		RunName:   runName,
		CreatedAt: start,
		Fidelity:  modeling.General.Fidelity,
		Backend:   backendFor(modeling.General.Fidelity),
	}
	for _, stage := range []struct {
		name string
		src  string
		ref  *results.DeckRef
	}{
		{"turbine.yaml", in.Turbine, &rec.Decks.Turbine},
		{"modeling.yaml", in.Modeling, &rec.Decks.Modeling},
		{"analysis.yaml", in.Analysis, &rec.Decks.Analysis},
	} {
		ref, err := store.StageInput(runID, stage.name, stage.src)
		if err != nil {
			return nil, err
		}
		*stage.ref = ref
	}

	inv := toolchain.Discover(ctx, p.locator, modeling)
	rec.Toolchain = inv.Tools
	if err := toolchain.Check(inv, modeling.General.Fidelity); err != nil {
		return nil, err
	}

	model, err := BuildModel(tb, modeling)
	if err != nil {
		return nil, err
	}
	log.V(logging.DEBUG).Info("model built",
		"rated_wind", model.Schedule.RatedWind, "cp_max", model.Schedule.CpMax)

	if analysis.Driver.Optimization.Flag {
		tb, modeling, model, err = p.optimize(ctx, runDir, rec, tb, modeling, analysis)
		if err != nil {
			if perr := p.persist(ctx, store, rec, nil); perr != nil {
				log.Error(perr, "writing run record")
			}
			return rec, err
		}
	}

	board, summary, runErr := p.runCampaign(ctx, runDir, tb, modeling, model)
	if board != nil {
		rec.Cases = caseStatuses(runDir, board)
	}
	if summary != nil {
		rec.Summary = summary
		if v, merr := postpro.Extract(summary, analysis.MeritFigure.Name); merr == nil {
			rec.Merit = &results.MeritValue{
				Name:  analysis.MeritFigure.Name,
				Value: v,
				Goal:  analysis.MeritFigure.Goal,
			}
			if p.rec != nil {
				p.rec.SetMerit(analysis.MeritFigure.Name, v)
			}
		} else {
			log.V(logging.DEBUG).Info("merit not computable for this campaign",
				"merit", analysis.MeritFigure.Name, "reason", merr.Error())
		}
	}
	if perr := p.persist(ctx, store, rec, summary); perr != nil && runErr == nil {
		runErr = perr
	}
	if runErr != nil {
		return rec, runErr
	}

	if analysis.Archive.Enabled {
		if err := p.archive(ctx, runDir, runID, analysis); err != nil {
			return rec, err
		}
	}
	if p.rec != nil && p.cfg.Metrics.Textfile != "" {
		if err := p.rec.WriteTextfile(p.fs, p.cfg.Metrics.Textfile); err != nil {
			return rec, err
		}
	}

	log.Info("run complete", "dir", runDir, "cases", len(rec.Cases),
		"elapsed", time.Since(start).Round(time.Millisecond).String())
	return rec, nil
}

// optimize runs the configured driver and hands back the study rebuilt
// around the best design. The incumbent decks stay untouched; the best
// design lands on deep copies.
func (p *Pipeline) optimize(ctx context.Context, runDir string, rec *results.RunRecord, tb *windio.Turbine, modeling *windio.ModelingOptions, analysis *windio.AnalysisOptions) (*windio.Turbine, *windio.ModelingOptions, *Model, error) {
	log := logging.FromContext(ctx)
	opt := analysis.Driver.Optimization

	ev := &campaignEvaluator{p: p, runDir: runDir, turbine: tb, modeling: modeling, analysis: analysis}
	drv, err := solver.New(solver.Spec{
		Options:  opt,
		Problem:  solver.NewProblem(analysis, ev),
		Fidelity: modeling.General.Fidelity,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	log.Info("optimization starting", "driver", drv.Name(),
		"variables", len(analysis.DesignVariables), "max_iterations", opt.MaxIterations)

	report, err := drv.Solve(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("driver %s: %w", drv.Name(), err)
	}
	rec.Optimization = report
	if p.rec != nil {
		for range report.History {
			p.rec.OptimizerIteration(report.Driver)
		}
	}
	log.Info("optimization finished", "driver", report.Driver,
		"iterations", len(report.History), "converged", report.Converged,
		"reason", report.Reason, "best_merit", report.Best.Merit)

	tuned := tb.DeepCopy()
	mo := modeling.DeepCopy()
	for _, name := range sortedKeys(report.Best.Design) {
		if err := windio.ApplyDesignVariable(tuned, mo, name, report.Best.Design[name]); err != nil {
			return nil, nil, nil, err
		}
	}
	model, err := BuildModel(tuned, mo)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("rebuild at the optimum: %w", err)
	}
	return tuned, mo, model, nil
}

// runCampaign expands the load case list, runs it against the fidelity
// backend and reduces the surviving cases. On a campaign error the
// board still comes back so the caller can record every outcome.
func (p *Pipeline) runCampaign(ctx context.Context, dir string, tb *windio.Turbine, mo *windio.ModelingOptions, model *Model) (*executor.Board, *postpro.CampaignSummary, error) {
	cases, err := dlc.Expand(mo, tb, model.Schedule.RatedWind)
	if err != nil {
		return nil, nil, err
	}

	sim := p.backend(tb, mo, model)
	camp := executor.New(p.fs, sim, mo.Execution)
	if p.rec != nil {
		camp.OnStart = func(c dlc.Case) { p.rec.CaseStarted(c.DLC) }
		camp.Observer = func(o executor.Outcome) {
			p.rec.CaseCompleted(o.Case.DLC, string(o.Status), sim.Name(), o.Attempts, o.Duration)
		}
	}
	board, err := camp.Run(ctx, dir, cases)
	if err != nil {
		return board, nil, err
	}

	records := make([]postpro.CaseRecord, 0, len(cases))
	for _, o := range board.Outcomes() {
		if o.Status == executor.StatusSucceeded {
			records = append(records, postpro.CaseRecord{Case: o.Case, Series: o.Result.Series})
		}
	}
	summary, err := postpro.SummarizeCampaign(records, tb, postpro.Options{})
	if err != nil {
		return board, nil, err
	}
	return board, summary, nil
}

// backend picks the simulator for the modeling fidelity: the
// in-process reduced-order model at level 1, OpenFAST behind TurbSim
// winds at level 3.
func (p *Pipeline) backend(tb *windio.Turbine, mo *windio.ModelingOptions, model *Model) simulation.Simulator {
	if mo.General.Fidelity == windio.FidelityAeroelastic {
		wind := turbsim.New(p.fs, p.runner, mo.TurbSim, tb)
		return openfast.New(p.fs, p.runner, tb, model.Schedule, mo, wind)
	}
	return rom.New(p.fs, tb, model.Surface, model.Tuning, mo)
}

func backendFor(fidelity int) string {
	if fidelity == windio.FidelityAeroelastic {
		return "openfast"
	}
	return "rom"
}

// persist writes the record and its derived artifacts. Only the record
// write itself is fatal; a broken summary or case table export leaves
// the record usable and logs instead.
func (p *Pipeline) persist(ctx context.Context, store *results.Store, rec *results.RunRecord, summary *postpro.CampaignSummary) error {
	rec.FinishedAt = time.Now()
	if err := store.WriteRecord(rec); err != nil {
		return err
	}
	log := logging.FromContext(ctx)
	if err := store.WriteSummary(rec); err != nil {
		log.Error(err, "writing run summary")
	}
	if summary != nil && len(summary.Cases) > 0 {
		if err := store.WriteCaseTable(rec.RunID, summary.Cases); err != nil {
			log.Error(err, "writing case table")
		}
	}
	return nil
}

// archive pushes the finished run directory to the object store. The
// bucket and prefix come from the analysis deck, the transport and
// credentials from the runtime config.
func (p *Pipeline) archive(ctx context.Context, runDir, runID string, analysis *windio.AnalysisOptions) error {
	arch := p.archiver
	if arch == nil {
		var err error
		arch, err = results.NewArchiver(p.fs, results.ArchiveOptions{
			Endpoint:        p.cfg.Archive.Endpoint,
			AccessKeyID:     p.cfg.Archive.AccessKeyID,
			SecretAccessKey: p.cfg.Archive.SecretAccessKey,
			Region:          p.cfg.Archive.Region,
			UseSSL:          p.cfg.Archive.UseSSL,
			Bucket:          analysis.Archive.Bucket,
			Prefix:          analysis.Archive.Prefix,
		})
		if err != nil {
			return err
		}
	}
	n, err := arch.ArchiveRun(ctx, runDir, runID)
	if err != nil {
		return fmt.Errorf("archiving run %s: %w", runID, err)
	}
	logging.FromContext(ctx).Info("run archived", "objects", n, "bucket", analysis.Archive.Bucket)
	return nil
}

// caseStatuses flattens a board into the run record form. Output paths
// are stored relative to the run directory so archived records stay
// portable.
func caseStatuses(runDir string, board *executor.Board) []results.CaseStatus {
	outcomes := board.Outcomes()
	statuses := make([]results.CaseStatus, 0, len(outcomes))
	for _, o := range outcomes {
		cs := results.CaseStatus{
			Case:            o.Case,
			Status:          string(o.Status),
			Attempts:        o.Attempts,
			DurationSeconds: o.Duration.Seconds(),
		}
		if o.Result != nil {
			if rel, err := filepath.Rel(runDir, o.Result.OutputPath); err == nil {
				cs.OutputPath = filepath.ToSlash(rel)
			} else {
				cs.OutputPath = o.Result.OutputPath
			}
		}
		if o.Err != nil {
			cs.Error = o.Err.Error()
		}
		statuses = append(statuses, cs)
	}
	return statuses
}

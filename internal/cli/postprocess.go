package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/windco-project/windco/internal/executor"
	"github.com/windco-project/windco/internal/output"
	"github.com/windco-project/windco/internal/postpro"
	"github.com/windco-project/windco/internal/results"
	"github.com/windco-project/windco/pkg/windio"
)

func (a *app) postprocessCmd() *cobra.Command {
	var dir, runID, format string

	c := &cobra.Command{
		Use:   "postprocess",
		Short: "Recompute the summary of a stored run from its case outputs",
		Long: `postprocess re-reads the staged decks and the per-case channel files
of an existing run, reduces them again and rewrites the record, summary
and case table. Useful after the reduction code changes, or when a run
was interrupted between its campaign and its summary.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := a.store(dir)
			id, err := resolveRun(store, runID)
			if err != nil {
				return err
			}
			rec, err := store.Record(id)
			if err != nil {
				return err
			}
			runDir := store.Dir(id)

			tb, err := windio.LoadTurbine(a.fs, filepath.Join(runDir, "inputs", "turbine.yaml"))
			if err != nil {
				return err
			}
			analysis, err := windio.LoadAnalysisOptions(a.fs, filepath.Join(runDir, "inputs", "analysis.yaml"))
			if err != nil {
				return err
			}

			records := make([]postpro.CaseRecord, 0, len(rec.Cases))
			for _, cs := range rec.Cases {
				if cs.Status != string(executor.StatusSucceeded) || cs.OutputPath == "" {
					continue
				}
				ts, err := output.ReadFile(a.fs, filepath.Join(runDir, filepath.FromSlash(cs.OutputPath)))
				if err != nil {
					return fmt.Errorf("case %s: %w", cs.Case.ID, err)
				}
				records = append(records, postpro.CaseRecord{Case: cs.Case, Series: ts})
			}
			if len(records) == 0 {
				return fmt.Errorf("run %s has no readable case outputs", id)
			}

			summary, err := postpro.SummarizeCampaign(records, tb, postpro.Options{})
			if err != nil {
				return err
			}
			rec.Summary = summary
			rec.Merit = nil
			if v, err := postpro.Extract(summary, analysis.MeritFigure.Name); err == nil {
				rec.Merit = &results.MeritValue{
					Name:  analysis.MeritFigure.Name,
					Value: v,
					Goal:  analysis.MeritFigure.Goal,
				}
			}

			if err := store.WriteRecord(rec); err != nil {
				return err
			}
			if err := store.WriteSummary(rec); err != nil {
				return err
			}
			if err := store.WriteCaseTable(id, summary.Cases); err != nil {
				return err
			}
			return printRecord(a.out, rec, format)
		},
	}

	c.Flags().StringVar(&dir, "dir", "outputs", "study results directory under the output root")
	c.Flags().StringVar(&runID, "run", "latest", "run id, or \"latest\"")
	c.Flags().StringVar(&format, "format", "pretty", "output format: pretty|json")
	return c
}

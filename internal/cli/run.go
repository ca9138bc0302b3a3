package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/windco-project/windco/internal/gluecode"
	"github.com/windco-project/windco/internal/logging"
	"github.com/windco-project/windco/internal/metrics"
	"github.com/windco-project/windco/internal/results"
)

func (a *app) runCmd() *cobra.Command {
	var turbinePath, modelingPath, analysisPath, format string

	c := &cobra.Command{
		Use:   "run",
		Short: "Execute a co-design study from its three decks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			rec := metrics.NewRecorder()
			if a.cfg.Metrics.Listen != "" {
				mctx, cancel := context.WithCancel(ctx)
				defer cancel()
				go func() {
					if err := rec.Serve(mctx, a.cfg.Metrics.Listen); err != nil {
						logging.FromContext(ctx).Error(err, "metrics listener")
					}
				}()
			}

			p := gluecode.New(a.fs, gluecode.Options{
				Runtime:  a.cfg,
				Metrics:  rec,
				Runner:   a.runner,
				Locator:  a.locator,
				Archiver: a.archiver,
			})
			record, err := p.Run(ctx, gluecode.Inputs{
				Turbine:  turbinePath,
				Modeling: modelingPath,
				Analysis: analysisPath,
			})
			// A failed campaign still yields a partial record; print
			// it so the failure is inspectable before the error lands.
			if record != nil {
				if perr := printRecord(a.out, record, format); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		},
	}

	c.Flags().StringVarP(&turbinePath, "turbine", "t", "", "turbine deck (required)")
	c.Flags().StringVarP(&modelingPath, "modeling", "m", "", "modeling options deck (required)")
	c.Flags().StringVarP(&analysisPath, "analysis", "a", "", "analysis options deck (required)")
	c.Flags().StringVar(&format, "format", "pretty", "output format: pretty|json")

	_ = c.MarkFlagRequired("turbine")
	_ = c.MarkFlagRequired("modeling")
	_ = c.MarkFlagRequired("analysis")
	return c
}

func printRecord(w io.Writer, rec *results.RunRecord, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	case "pretty", "":
		printPrettyRecord(w, rec)
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json)", format)
	}
}

func printPrettyRecord(w io.Writer, rec *results.RunRecord) {
	fmt.Fprintf(w, "Run:      %s (%s)\n", rec.RunID, rec.RunName)
	fmt.Fprintf(w, "Backend:  %s (fidelity %d)\n", rec.Backend, rec.Fidelity)
	fmt.Fprintf(w, "Started:  %s\n", rec.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Finished: %s\n", rec.FinishedAt.Format(time.RFC3339))
	ok, failed, skipped := rec.Counts()
	fmt.Fprintf(w, "Cases:    %d succeeded / %d failed / %d skipped\n", ok, failed, skipped)
	if rec.Summary != nil && rec.Summary.ProductionCases > 0 {
		fmt.Fprintf(w, "AEP:      %.0f kWh\n", rec.Summary.AEP)
	}
	if rec.Merit != nil {
		fmt.Fprintf(w, "Merit:    %s = %.6g\n", rec.Merit.Name, rec.Merit.Value)
	}
	if rep := rec.Optimization; rep != nil {
		fmt.Fprintf(w, "Driver:   %s, %d iterations, converged=%t (%s)\n",
			rep.Driver, len(rep.History), rep.Converged, rep.Reason)
	}
	if rec.Summary != nil && len(rec.Summary.Extremes) > 0 {
		fmt.Fprintln(w, "Extreme loads:")
		for _, ch := range sortedNames(rec.Summary.Extremes) {
			fmt.Fprintf(w, "  %-12s %.4g\n", ch, rec.Summary.Extremes[ch])
		}
	}
	for _, cs := range rec.Cases {
		if cs.Status != "succeeded" {
			fmt.Fprintf(w, "  %s: %s (%s)\n", cs.Case.ID, cs.Status, cs.Error)
		}
	}
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

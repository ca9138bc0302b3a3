package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) resultsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "results",
		Short: "Inspect stored runs",
	}
	c.AddCommand(a.resultsListCmd(), a.resultsQueryCmd())
	return c
}

// listEntry is one row of the run listing, json form.
type listEntry struct {
	RunID     string    `json:"run_id"`
	RunName   string    `json:"run_name"`
	CreatedAt time.Time `json:"created_at"`
	Backend   string    `json:"backend"`
	Fidelity  int       `json:"fidelity"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	AEP       *float64  `json:"aep,omitempty"`
}

func (a *app) resultsListCmd() *cobra.Command {
	var dir, format string

	c := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := a.store(dir)
			ids, err := store.List()
			if err != nil {
				return err
			}
			entries := make([]listEntry, 0, len(ids))
			for _, id := range ids {
				rec, err := store.Record(id)
				if err != nil {
					return err
				}
				ok, failed, skipped := rec.Counts()
				e := listEntry{
					RunID:     rec.RunID,
					RunName:   rec.RunName,
					CreatedAt: rec.CreatedAt,
					Backend:   rec.Backend,
					Fidelity:  rec.Fidelity,
					Succeeded: ok,
					Failed:    failed,
					Skipped:   skipped,
				}
				if rec.Summary != nil && rec.Summary.ProductionCases > 0 {
					aep := rec.Summary.AEP
					e.AEP = &aep
				}
				entries = append(entries, e)
			}
			return printList(a.out, entries, format)
		},
	}

	c.Flags().StringVar(&dir, "dir", "outputs", "study results directory under the output root")
	c.Flags().StringVar(&format, "format", "pretty", "output format: pretty|json")
	return c
}

func printList(w io.Writer, entries []listEntry, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "pretty", "":
		if len(entries) == 0 {
			fmt.Fprintln(w, "no runs")
			return nil
		}
		fmt.Fprintf(w, "%-22s %-18s %-20s %-10s %4s %4s %4s\n",
			"RUN", "NAME", "CREATED", "BACKEND", "OK", "FAIL", "SKIP")
		for _, e := range entries {
			fmt.Fprintf(w, "%-22s %-18s %-20s %-10s %4d %4d %4d\n",
				e.RunID, e.RunName, e.CreatedAt.Format(time.RFC3339), e.Backend,
				e.Succeeded, e.Failed, e.Skipped)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json)", format)
	}
}

func (a *app) resultsQueryCmd() *cobra.Command {
	var dir, runID string

	c := &cobra.Command{
		Use:   "query <jsonpath>",
		Short: "Evaluate a JSONPath expression against a stored run record",
		Example: `  windco results query '$.summary.aep'
  windco results query --run d1vl8qk3s1b2c3d4e5f0 '$.cases[0].status'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := a.store(dir)
			id, err := resolveRun(store, runID)
			if err != nil {
				return err
			}
			v, err := store.Query(id, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		},
	}

	c.Flags().StringVar(&dir, "dir", "outputs", "study results directory under the output root")
	c.Flags().StringVar(&runID, "run", "latest", "run id, or \"latest\"")
	return c
}

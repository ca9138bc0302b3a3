package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/windco-project/windco/pkg/windio"
)

func (a *app) validateCmd() *cobra.Command {
	var turbinePath, modelingPath, analysisPath string

	c := &cobra.Command{
		Use:   "validate",
		Short: "Validate decks against their schemas without running anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			decks := []struct {
				path string
				load func(string) error
			}{
				{turbinePath, func(p string) error {
					_, err := windio.LoadTurbine(a.fs, p)
					return err
				}},
				{modelingPath, func(p string) error {
					_, err := windio.LoadModelingOptions(a.fs, p)
					return err
				}},
				{analysisPath, func(p string) error {
					_, err := windio.LoadAnalysisOptions(a.fs, p)
					return err
				}},
			}
			n := 0
			for _, d := range decks {
				if d.path == "" {
					continue
				}
				n++
				if err := d.load(d.path); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s: OK\n", d.path)
			}
			if n == 0 {
				return fmt.Errorf("nothing to validate: pass at least one of --turbine, --modeling, --analysis")
			}
			return nil
		},
	}

	c.Flags().StringVarP(&turbinePath, "turbine", "t", "", "turbine deck")
	c.Flags().StringVarP(&modelingPath, "modeling", "m", "", "modeling options deck")
	c.Flags().StringVarP(&analysisPath, "analysis", "a", "", "analysis options deck")
	return c
}

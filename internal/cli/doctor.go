package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/windco-project/windco/internal/toolchain"
	"github.com/windco-project/windco/pkg/windio"
)

func (a *app) doctorCmd() *cobra.Command {
	var modelingPath, format string
	var fidelity int

	c := &cobra.Command{
		Use:   "doctor",
		Short: "Report the external toolchain this host can serve",
		Long: `doctor probes the aeroelastic solver and turbulence generator the
modeling options name (or the conventional names when no deck is
given) and reports what it finds. Nothing is installed or modified.
With --fidelity the inventory is additionally checked against what
that fidelity level needs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var mo *windio.ModelingOptions
			if modelingPath != "" {
				var err error
				mo, err = windio.LoadModelingOptions(a.fs, modelingPath)
				if err != nil {
					return err
				}
			} else {
				mo = &windio.ModelingOptions{}
				mo.OpenFAST.Executable = "openfast"
				mo.TurbSim.Executable = "turbsim"
			}

			inv := toolchain.Discover(cmd.Context(), a.locator, mo)
			if err := printInventory(a.out, inv, format); err != nil {
				return err
			}
			if fidelity > 0 {
				return toolchain.Check(inv, fidelity)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&modelingPath, "modeling", "m", "", "modeling options deck naming the executables")
	c.Flags().IntVar(&fidelity, "fidelity", 0, "also gate the inventory for this fidelity level")
	c.Flags().StringVar(&format, "format", "pretty", "output format: pretty|json")
	return c
}

func printInventory(w io.Writer, inv toolchain.Inventory, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(inv.Tools)
	case "pretty", "":
		for _, tool := range inv.Tools {
			status := "MISSING"
			detail := tool.Detail
			if tool.Present {
				status = "ok"
				detail = tool.Path
				if tool.Version != "" {
					detail = fmt.Sprintf("%s (%s)", tool.Path, tool.Version)
				}
			}
			fmt.Fprintf(w, "%-11s %-8s %s\n", tool.Want, status, detail)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json)", format)
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/windco-project/windco/internal/buildinfo"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintln(a.out, buildinfo.String())
		},
	}
}

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

// Package cli assembles the windco command tree. Every command works
// against an injected filesystem and writer so the whole surface is
// testable without a host.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/windco-project/windco/internal/config"
	"github.com/windco-project/windco/internal/logging"
	"github.com/windco-project/windco/internal/results"
	"github.com/windco-project/windco/internal/simulation"
	"github.com/windco-project/windco/internal/toolchain"
)

// app carries the collaborators shared across commands. Commands read
// cfg only inside RunE, after the persistent pre-run has loaded it.
type app struct {
	fs  afero.Fs
	out io.Writer

	cfgFile string
	cfg     *config.Config

	runner   simulation.CommandRunner
	locator  toolchain.Locator
	archiver results.RunArchiver
}

// Execute runs the root command against the host and returns the
// process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd(afero.NewOsFs(), os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

// NewRootCmd builds the command tree over a filesystem and an output
// writer.
func NewRootCmd(fs afero.Fs, out io.Writer) *cobra.Command {
	a := &app{
		fs:      fs,
		out:     out,
		runner:  simulation.ExecRunner{},
		locator: toolchain.ExecLocator{},
	}
	return a.newRootCmd()
}

func (a *app) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "windco",
		Short: "Wind turbine co-design: simulate, assess and optimize from three YAML decks",
		Long: `windco runs aero-servo design studies from three YAML decks: the
turbine geometry, the modeling options and the analysis options. A run
expands the requested design load cases, simulates them at the chosen
fidelity, reduces the outputs to loads and energy yield, and persists
everything under one run directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.fs, cmd.Root().PersistentFlags(), a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			log := logging.Setup(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
			cmd.SetContext(logging.NewContext(cmd.Context(), log))
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default searches ./windco.yaml, then $HOME/.config/windco/)")
	pf.String("output-root", "", "directory run outputs are resolved under")
	pf.Int("workers", 0, "campaign worker count (0 selects one per CPU)")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("log-format", "", "log format: console or json")
	pf.String("metrics-listen", "", "serve /metrics on this address while a run executes")
	pf.String("metrics-textfile", "", "write metrics to this file when a run finishes")

	cmd.AddCommand(
		a.runCmd(),
		a.validateCmd(),
		a.tuneCmd(),
		a.postprocessCmd(),
		a.resultsCmd(),
		a.doctorCmd(),
		a.versionCmd(),
	)
	return cmd
}

// store opens the results store for one study directory, resolved
// under the configured output root.
func (a *app) store(dir string) *results.Store {
	return results.NewStore(a.fs, filepath.Join(a.cfg.OutputRoot, dir))
}

// resolveRun maps the conventional "latest" (or an empty id) onto the
// newest stored run.
func resolveRun(store *results.Store, runID string) (string, error) {
	if runID == "" || runID == "latest" {
		return store.Latest()
	}
	return runID, nil
}

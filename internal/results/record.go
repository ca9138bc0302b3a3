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

// Package results persists finished runs. Every run owns one directory
// under the output root, named by a sortable run ID, holding the staged
// input decks, the machine-readable record, a human summary and the
// per-case tables. The package also queries stored records by JSONPath
// and archives whole run directories to an S3-compatible object store.
package results

import (
	"time"

	"github.com/rs/xid"

	"github.com/windco-project/windco/internal/dlc"
	"github.com/windco-project/windco/internal/postpro"
	"github.com/windco-project/windco/internal/toolchain"
	"github.com/windco-project/windco/pkg/solver"
)

// NewRunID returns a fresh run identifier. IDs sort by creation time,
// so a lexicographic listing of the output root is chronological.
func NewRunID() string {
	return xid.New().String()
}

// RunRecord is the machine-readable account of one run, persisted as
// record.json in the run directory.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	RunName    string    `json:"run_name"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at"`
	// Fidelity is the model level the final campaign ran at.
	Fidelity int    `json:"fidelity"`
	Backend  string `json:"backend"`

	// Decks point at the staged copies of the three input files, with
	// digests of the originals.
	Decks DeckSet `json:"decks"`

	// Toolchain is the external binary inventory at run start.
	Toolchain []toolchain.Tool `json:"toolchain,omitempty"`

	// Cases hold the terminal state of every expanded case of the final
	// campaign.
	Cases []CaseStatus `json:"cases"`

	// Summary reduces the succeeded cases; nil when none succeeded.
	Summary *postpro.CampaignSummary `json:"summary,omitempty"`

	// Merit is the measured merit figure of the final campaign, set when
	// the analysis deck names one.
	Merit *MeritValue `json:"merit,omitempty"`

	// Optimization is the driver report, set for optimization runs.
	Optimization *solver.Report `json:"optimization,omitempty"`
}

// DeckSet names the three inputs of a run.
type DeckSet struct {
	Turbine  DeckRef `json:"turbine"`
	Modeling DeckRef `json:"modeling"`
	Analysis DeckRef `json:"analysis"`
}

// DeckRef is one staged input deck.
type DeckRef struct {
	// Path locates the staged copy, relative to the run directory.
	Path string `json:"path"`
	// Digest is the SHA-256 of the deck content, hex encoded.
	Digest string `json:"digest"`
}

// CaseStatus is the terminal state of one campaign case.
type CaseStatus struct {
	Case     dlc.Case `json:"case"`
	Status   string   `json:"status"`
	Attempts int      `json:"attempts"`
	// DurationSeconds spans every attempt of the case.
	DurationSeconds float64 `json:"duration_seconds"`
	// OutputPath locates the simulated series, relative to the run
	// directory; empty unless the case succeeded.
	OutputPath string `json:"output_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// MeritValue is the merit figure of the final campaign.
type MeritValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Goal  string  `json:"goal"`
}

// Counts reports how many cases ended in each terminal state.
func (r *RunRecord) Counts() (succeeded, failed, skipped int) {
	for _, c := range r.Cases {
		switch c.Status {
		case "succeeded":
			succeeded++
		case "failed":
			failed++
		case "skipped":
			skipped++
		}
	}
	return succeeded, failed, skipped
}

package results

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/windco-project/windco/internal/postpro"
)

// Run directory layout.
const (
	recordFile  = "record.json"
	summaryFile = "summary.yaml"
	inputsDir   = "inputs"
	casesDir    = "cases"
	tablesDir   = "tables"
	caseTable   = "cases.parquet"
)

// Reader retrieves stored runs.
type Reader interface {
	// Record loads the machine-readable record of a run.
	Record(runID string) (*RunRecord, error)
	// List returns the stored run IDs in chronological order.
	List() ([]string, error)
	// Latest returns the most recent stored run ID.
	Latest() (string, error)
	// Query evaluates a JSONPath expression against a stored record.
	Query(runID, expr string) (any, error)
	// Dir returns the directory a run lives in.
	Dir(runID string) string
}

// Writer persists runs.
type Writer interface {
	// Prepare creates the run directory skeleton and returns its path.
	Prepare(runID string) (string, error)
	// StageInput copies an input deck into the run directory under the
	// given name and returns its reference.
	StageInput(runID, name, src string) (DeckRef, error)
	// WriteRecord persists the machine-readable record.
	WriteRecord(rec *RunRecord) error
	// WriteSummary renders the human summary from a record.
	WriteSummary(rec *RunRecord) error
	// WriteCaseTable persists the per-case summary table.
	WriteCaseTable(runID string, cases []postpro.CaseSummary) error
}

// ReadWriter combines run retrieval and persistence.
type ReadWriter interface {
	Reader
	Writer
}

// Store keeps runs as directories under one output root.
type Store struct {
	fs   afero.Fs
	root string
}

var _ ReadWriter = (*Store)(nil)

// NewStore returns a store rooted at root. The root is created on the
// first Prepare, not here.
func NewStore(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// Dir returns the directory a run lives in.
func (s *Store) Dir(runID string) string {
	return filepath.Join(s.root, runID)
}

// Prepare creates the run directory skeleton and returns its path.
func (s *Store) Prepare(runID string) (string, error) {
	dir := s.Dir(runID)
	for _, sub := range []string{inputsDir, casesDir, tablesDir} {
		if err := s.fs.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return "", fmt.Errorf("prepare run %s: %w", runID, err)
		}
	}
	return dir, nil
}

// StageInput copies the deck at src to inputs/<name> inside the run
// directory and returns the reference with the content digest.
func (s *Store) StageInput(runID, name, src string) (DeckRef, error) {
	data, err := afero.ReadFile(s.fs, src)
	if err != nil {
		return DeckRef{}, fmt.Errorf("stage input %s: %w", name, err)
	}
	rel := path.Join(inputsDir, name)
	dst := filepath.Join(s.Dir(runID), inputsDir, name)
	if err := afero.WriteFile(s.fs, dst, data, 0o644); err != nil {
		return DeckRef{}, fmt.Errorf("stage input %s: %w", name, err)
	}
	sum := sha256.Sum256(data)
	return DeckRef{Path: rel, Digest: hex.EncodeToString(sum[:])}, nil
}

// WriteRecord persists the record as record.json in the run directory.
func (s *Store) WriteRecord(rec *RunRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.RunID, err)
	}
	data = append(data, '\n')
	dst := filepath.Join(s.Dir(rec.RunID), recordFile)
	if err := afero.WriteFile(s.fs, dst, data, 0o644); err != nil {
		return fmt.Errorf("write record %s: %w", rec.RunID, err)
	}
	return nil
}

// Record loads the record of a stored run.
func (s *Store) Record(runID string) (*RunRecord, error) {
	data, err := afero.ReadFile(s.fs, filepath.Join(s.Dir(runID), recordFile))
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", runID, err)
	}
	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", runID, err)
	}
	return &rec, nil
}

// List returns the stored run IDs in chronological order. A directory
// without a record does not count as a run.
func (s *Store) List() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ok, err := afero.Exists(s.fs, filepath.Join(s.root, e.Name(), recordFile))
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		if ok {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Latest returns the most recent stored run ID.
func (s *Store) Latest() (string, error) {
	ids, err := s.List()
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("no runs under %s", s.root)
	}
	return ids[len(ids)-1], nil
}

// runSummary is the summary.yaml document, a hand-sized digest of the
// record for humans and shell pipelines.
type runSummary struct {
	RunID      string    `yaml:"run_id"`
	RunName    string    `yaml:"run_name"`
	CreatedAt  time.Time `yaml:"created_at"`
	FinishedAt time.Time `yaml:"finished_at"`
	Backend    string    `yaml:"backend"`
	Fidelity   int       `yaml:"fidelity"`
	Cases      struct {
		Total     int `yaml:"total"`
		Succeeded int `yaml:"succeeded"`
		Failed    int `yaml:"failed"`
		Skipped   int `yaml:"skipped"`
	} `yaml:"cases"`
	AEPkWh       *float64           `yaml:"aep_kwh,omitempty"`
	ExtremeLoads map[string]float64 `yaml:"extreme_loads,omitempty"`
	LifetimeDEL  map[string]float64 `yaml:"lifetime_del,omitempty"`
	Merit        *meritSummary      `yaml:"merit,omitempty"`
	Optimization *optSummary        `yaml:"optimization,omitempty"`
}

type meritSummary struct {
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
	Goal  string  `yaml:"goal"`
}

type optSummary struct {
	Driver     string  `yaml:"driver"`
	Iterations int     `yaml:"iterations"`
	Converged  bool    `yaml:"converged"`
	Reason     string  `yaml:"reason"`
	BestMerit  float64 `yaml:"best_merit"`
}

// WriteSummary renders summary.yaml from the record.
func (s *Store) WriteSummary(rec *RunRecord) error {
	sum := runSummary{
		RunID:      rec.RunID,
		RunName:    rec.RunName,
		CreatedAt:  rec.CreatedAt,
		FinishedAt: rec.FinishedAt,
		Backend:    rec.Backend,
		Fidelity:   rec.Fidelity,
	}
	succeeded, failed, skipped := rec.Counts()
	sum.Cases.Total = len(rec.Cases)
	sum.Cases.Succeeded = succeeded
	sum.Cases.Failed = failed
	sum.Cases.Skipped = skipped
	if rec.Summary != nil {
		aep := rec.Summary.AEP
		sum.AEPkWh = &aep
		sum.ExtremeLoads = rec.Summary.Extremes
		sum.LifetimeDEL = rec.Summary.LifetimeDEL
	}
	if rec.Merit != nil {
		sum.Merit = &meritSummary{Name: rec.Merit.Name, Value: rec.Merit.Value, Goal: rec.Merit.Goal}
	}
	if rec.Optimization != nil {
		sum.Optimization = &optSummary{
			Driver:     rec.Optimization.Driver,
			Iterations: len(rec.Optimization.History),
			Converged:  rec.Optimization.Converged,
			Reason:     rec.Optimization.Reason,
			BestMerit:  rec.Optimization.Best.Merit,
		}
	}

	data, err := yaml.Marshal(&sum)
	if err != nil {
		return fmt.Errorf("encode summary %s: %w", rec.RunID, err)
	}
	dst := filepath.Join(s.Dir(rec.RunID), summaryFile)
	if err := afero.WriteFile(s.fs, dst, data, 0o644); err != nil {
		return fmt.Errorf("write summary %s: %w", rec.RunID, err)
	}
	return nil
}

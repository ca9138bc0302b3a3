package results

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/windco-project/windco/internal/dlc"
	"github.com/windco-project/windco/internal/postpro"
	"github.com/windco-project/windco/pkg/solver"
)

func sampleRecord(runID string) *RunRecord {
	created := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	return &RunRecord{
		RunID:      runID,
		RunName:    "iea22_baseline",
		CreatedAt:  created,
		FinishedAt: created.Add(90 * time.Second),
		Fidelity:   1,
		Backend:    "rom",
		Decks: DeckSet{
			Turbine:  DeckRef{Path: "inputs/turbine.yaml", Digest: "aa11"},
			Modeling: DeckRef{Path: "inputs/modeling.yaml", Digest: "bb22"},
			Analysis: DeckRef{Path: "inputs/analysis.yaml", Digest: "cc33"},
		},
		Cases: []CaseStatus{
			{
				Case: dlc.Case{
					ID: "1p1_ntm_08p0_s01", DLC: "1.1", WindType: dlc.WindNTM,
					WindSpeed: 8, Duration: 60,
				},
				Status:          "succeeded",
				Attempts:        1,
				DurationSeconds: 1.25,
				OutputPath:      "cases/1p1_ntm_08p0_s01/1p1_ntm_08p0_s01.outb",
			},
			{
				Case: dlc.Case{
					ID: "1p1_ntm_12p0_s01", DLC: "1.1", WindType: dlc.WindNTM,
					WindSpeed: 12, Duration: 60,
				},
				Status:   "failed",
				Attempts: 3,
				Error:    "solver exited with code 2",
			},
		},
		Summary: &postpro.CampaignSummary{
			Cases: []postpro.CaseSummary{{
				ID: "1p1_ntm_08p0_s01", DLC: "1.1", WindType: dlc.WindNTM, WindSpeed: 8,
				Stats: map[string]postpro.ChannelStats{
					"GenPwr": {Min: 1000, Max: 5000, Mean: 3200, Std: 310, AbsMax: 5000},
				},
				DEL: map[string]float64{"TwrBsMyt": 12.5e3},
			}},
			ProductionCases: 1,
			AEP:             19.4e6,
			Extremes:        map[string]float64{"TwrBsMyt": 96e3},
			LifetimeDEL:     map[string]float64{"TwrBsMyt": 14.1e3},
		},
		Merit: &MeritValue{Name: "aep", Value: 19.4e6, Goal: "maximize"},
	}
}

func Test_Store_recordRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	st := NewStore(fs, "outputs/iea22")

	runID := NewRunID()
	dir, err := st.Prepare(runID)
	require.NoError(t, err)
	assert.Equal(t, st.Dir(runID), dir)

	rec := sampleRecord(runID)
	require.NoError(t, st.WriteRecord(rec))

	got, err := st.Record(runID)
	require.NoError(t, err)
	assert.Equal(t, rec.RunName, got.RunName)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, rec.Backend, got.Backend)
	require.Len(t, got.Cases, 2)
	assert.Equal(t, rec.Cases[0].Case.ID, got.Cases[0].Case.ID)
	assert.Equal(t, "failed", got.Cases[1].Status)
	require.NotNil(t, got.Summary)
	assert.InDelta(t, rec.Summary.AEP, got.Summary.AEP, 1)
	require.NotNil(t, got.Merit)
	assert.Equal(t, "aep", got.Merit.Name)
	assert.Nil(t, got.Optimization)
}

func Test_Store_stageInput(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "decks/turbine.yaml", []byte("name: iea22\n"), 0o644))
	st := NewStore(fs, "outputs")

	runID := NewRunID()
	_, err := st.Prepare(runID)
	require.NoError(t, err)

	ref, err := st.StageInput(runID, "turbine.yaml", "decks/turbine.yaml")
	require.NoError(t, err)
	assert.Equal(t, "inputs/turbine.yaml", ref.Path)
	sum := sha256.Sum256([]byte("name: iea22\n"))
	assert.Equal(t, hex.EncodeToString(sum[:]), ref.Digest)

	copied, err := afero.ReadFile(fs, filepath.Join(st.Dir(runID), "inputs", "turbine.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "name: iea22\n", string(copied))

	_, err = st.StageInput(runID, "missing.yaml", "decks/missing.yaml")
	assert.ErrorContains(t, err, "stage input missing.yaml")
}

func Test_Store_listAndLatest(t *testing.T) {
	fs := afero.NewMemMapFs()
	st := NewStore(fs, "outputs")

	var ids []string
	for i := 0; i < 3; i++ {
		id := NewRunID()
		_, err := st.Prepare(id)
		require.NoError(t, err)
		require.NoError(t, st.WriteRecord(sampleRecord(id)))
		ids = append(ids, id)
	}
	// a stray directory without a record is not a run
	require.NoError(t, fs.MkdirAll("outputs/scratch", 0o755))

	got, err := st.List()
	require.NoError(t, err)
	assert.Equal(t, ids, got)

	latest, err := st.Latest()
	require.NoError(t, err)
	assert.Equal(t, ids[2], latest)
}

func Test_Store_latestWithoutRuns(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("outputs", 0o755))
	st := NewStore(fs, "outputs")

	_, err := st.Latest()
	assert.ErrorContains(t, err, "no runs")
}

func Test_Store_writeSummary(t *testing.T) {
	fs := afero.NewMemMapFs()
	st := NewStore(fs, "outputs")

	runID := NewRunID()
	_, err := st.Prepare(runID)
	require.NoError(t, err)

	rec := sampleRecord(runID)
	rec.Optimization = &solver.Report{
		Driver:    "trust_region",
		Best:      solver.Evaluation{Merit: 19.6e6},
		History:   make([]solver.Iteration, 4),
		Converged: true,
		Reason:    "radius below tolerance",
	}
	require.NoError(t, st.WriteSummary(rec))

	data, err := afero.ReadFile(fs, filepath.Join(st.Dir(runID), "summary.yaml"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, runID, doc["run_id"])
	assert.Equal(t, "iea22_baseline", doc["run_name"])
	assert.Equal(t, "rom", doc["backend"])

	counts, ok := doc["cases"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, counts["total"])
	assert.Equal(t, 1, counts["succeeded"])
	assert.Equal(t, 1, counts["failed"])

	assert.InDelta(t, 19.4e6, doc["aep_kwh"], 1)

	opt, ok := doc["optimization"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "trust_region", opt["driver"])
	assert.Equal(t, 4, opt["iterations"])
	assert.Equal(t, true, opt["converged"])
}

func Test_Store_summaryWithoutCampaign(t *testing.T) {
	fs := afero.NewMemMapFs()
	st := NewStore(fs, "outputs")

	runID := NewRunID()
	_, err := st.Prepare(runID)
	require.NoError(t, err)

	rec := sampleRecord(runID)
	rec.Summary = nil
	rec.Merit = nil
	require.NoError(t, st.WriteSummary(rec))

	data, err := afero.ReadFile(fs, filepath.Join(st.Dir(runID), "summary.yaml"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.NotContains(t, doc, "aep_kwh")
	assert.NotContains(t, doc, "merit")
}

func Test_Store_query(t *testing.T) {
	fs := afero.NewMemMapFs()
	st := NewStore(fs, "outputs")

	runID := NewRunID()
	_, err := st.Prepare(runID)
	require.NoError(t, err)
	require.NoError(t, st.WriteRecord(sampleRecord(runID)))

	name, err := st.Query(runID, "$.run_name")
	require.NoError(t, err)
	assert.Equal(t, "iea22_baseline", name)

	aep, err := st.Query(runID, "$.summary.aep")
	require.NoError(t, err)
	assert.InDelta(t, 19.4e6, aep, 1)

	id0, err := st.Query(runID, "$.cases[0].case.id")
	require.NoError(t, err)
	assert.Equal(t, "1p1_ntm_08p0_s01", id0)

	_, err = st.Query(runID, "")
	assert.ErrorContains(t, err, "empty jsonpath")

	_, err = st.Query("absent", "$.run_name")
	assert.Error(t, err)
}

func Test_RunRecord_counts(t *testing.T) {
	rec := sampleRecord("x")
	succeeded, failed, skipped := rec.Counts()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
	assert.Zero(t, skipped)
}

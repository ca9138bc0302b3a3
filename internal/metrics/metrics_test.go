package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Recorder_caseLifecycle(t *testing.T) {
	rec := NewRecorder()

	rec.CaseStarted("1.1")
	rec.CaseStarted("1.1")
	rec.CaseStarted("6.1")
	rec.CaseCompleted("1.1", "succeeded", "rom", 1, 80*time.Millisecond)
	rec.CaseCompleted("1.1", "failed", "rom", 3, 2*time.Second)
	rec.CaseCompleted("6.1", "succeeded", "openfast", 1, 40*time.Second)

	assert.InDelta(t, 2, testutil.ToFloat64(rec.casesStarted.WithLabelValues("1.1")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.casesStarted.WithLabelValues("6.1")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.casesCompleted.WithLabelValues("1.1", "succeeded")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.casesCompleted.WithLabelValues("1.1", "failed")), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(rec.caseRetries.WithLabelValues("1.1")), 1e-9)
	assert.InDelta(t, 0, testutil.ToFloat64(rec.caseRetries.WithLabelValues("6.1")), 1e-9)

	fams, err := rec.Registry().Gather()
	require.NoError(t, err)
	var hist *dto.MetricFamily
	for _, mf := range fams {
		if mf.GetName() == "windco_case_duration_seconds" {
			hist = mf
		}
	}
	require.NotNil(t, hist)
	var samples uint64
	for _, m := range hist.GetMetric() {
		samples += m.GetHistogram().GetSampleCount()
	}
	assert.EqualValues(t, 3, samples)
}

func Test_Recorder_optimizer(t *testing.T) {
	rec := NewRecorder()
	for i := 0; i < 5; i++ {
		rec.OptimizerIteration("trust_region")
	}
	rec.SetMerit("aep", 19.4e6)
	rec.SetMerit("aep", 19.6e6)

	assert.InDelta(t, 5, testutil.ToFloat64(rec.optimizerIterations.WithLabelValues("trust_region")), 1e-9)
	assert.InDelta(t, 19.6e6, testutil.ToFloat64(rec.merit.WithLabelValues("aep")), 1)
}

func Test_Recorder_exposition(t *testing.T) {
	rec := NewRecorder()
	rec.CaseStarted("1.3")

	expected := `
# HELP windco_cases_started_total Simulation cases whose first attempt began.
# TYPE windco_cases_started_total counter
windco_cases_started_total{dlc="1.3"} 1
`
	require.NoError(t, testutil.CollectAndCompare(rec.casesStarted, strings.NewReader(expected)))
}

func Test_WriteTextfile(t *testing.T) {
	fs := afero.NewMemMapFs()
	rec := NewRecorder()
	rec.CaseStarted("1.1")
	rec.CaseCompleted("1.1", "succeeded", "rom", 1, time.Second)
	rec.SetMerit("aep", 19.4e6)

	require.NoError(t, rec.WriteTextfile(fs, "outputs/run1/metrics.prom"))

	data, err := afero.ReadFile(fs, "outputs/run1/metrics.prom")
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# HELP windco_cases_started_total")
	assert.Contains(t, text, `windco_cases_started_total{dlc="1.1"} 1`)
	assert.Contains(t, text, `windco_merit_figure{name="aep"}`)
	assert.Contains(t, text, "windco_case_duration_seconds_bucket")

	exists, err := afero.Exists(fs, "outputs/run1/metrics.prom.tmp")
	require.NoError(t, err)
	assert.False(t, exists, "temp file must be renamed away")
}

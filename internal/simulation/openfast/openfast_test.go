package openfast

import (
	"context"
	"errors"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windco-project/windco/internal/dlc"
	"github.com/windco-project/windco/internal/output"
	"github.com/windco-project/windco/internal/simulation"
	"github.com/windco-project/windco/pkg/turbine"
	"github.com/windco-project/windco/pkg/windio"
)

// fakeRunner records invocations and delegates to a hook standing in
// for the real binary.
type fakeRunner struct {
	calls []runnerCall
	hook  func(dir, name string, args []string) ([]byte, error)
}

type runnerCall struct {
	dir  string
	name string
	args []string
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, runnerCall{dir: dir, name: name, args: args})
	if f.hook == nil {
		return nil, nil
	}
	return f.hook(dir, name, args)
}

// stubWind is a canned WindSource.
type stubWind struct {
	path string
	err  error
	seen []string
}

func (s *stubWind) Generate(_ context.Context, c dlc.Case, workdir string) (string, error) {
	s.seen = append(s.seen, c.ID)
	if s.err != nil {
		return "", s.err
	}
	if s.path == "" {
		return "", nil
	}
	return filepath.Join(workdir, s.path), nil
}

func testTurbine() *windio.Turbine {
	return &windio.Turbine{
		Name:     "of-ref",
		Assembly: windio.Assembly{RotorDiameter: 126, HubHeight: 90, RatedPower: 5e6},
		Control:  windio.Control{Pitch: windio.PitchLimits{MaxDeg: 90}},
	}
}

func testSchedule() *turbine.Schedule {
	return &turbine.Schedule{
		Points: []turbine.OperatingPoint{
			{WindSpeed: 3, RotorSpeed: 0.5, PitchDeg: 0},
			{WindSpeed: 11, RotorSpeed: 1.2, PitchDeg: 0},
			{WindSpeed: 25, RotorSpeed: 1.2, PitchDeg: 22},
		},
		TSROpt:     7.5,
		RatedWind:  11,
		RatedSpeed: 1.2,
	}
}

func testModeling() *windio.ModelingOptions {
	return &windio.ModelingOptions{
		Simulation: windio.SimulationOptions{Duration: 40, TransientTime: 10, TimeStep: 0.0125},
		OpenFAST:   windio.OpenFASTOptions{Executable: "openfast", ModelDirectory: "models/ref"},
	}
}

func newTestSimulator(wind WindSource) (*Simulator, *fakeRunner, afero.Fs) {
	fs := afero.NewMemMapFs()
	runner := &fakeRunner{}
	sim := New(fs, runner, testTurbine(), testSchedule(), testModeling(), wind)
	return sim, runner, fs
}

// writeSolverOutput plants a small valid channel file where the solver
// would leave one.
func writeSolverOutput(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	ts, err := output.NewTimeSeries("solver",
		[]string{output.ChanTime, output.ChanWind, output.ChanGenPwr},
		[]string{"(s)", "(m/s)", "(kW)"})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, ts.AppendRow([]float64{float64(i) * 0.5, 8 + float64(i), 1500}))
	}
	require.NoError(t, output.WriteOutb(fs, path, ts))
}

// deckValue extracts the value field of the deck line carrying a key.
func deckValue(t *testing.T, deck, key string) string {
	t.Helper()
	for _, line := range strings.Split(deck, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == key {
			return fields[0]
		}
	}
	t.Fatalf("deck has no %s line:\n%s", key, deck)
	return ""
}

func ntmCase() dlc.Case {
	return dlc.Case{
		ID: "1p1_ntm_8p0_s00", DLC: "1.1", WindType: dlc.WindNTM,
		WindSpeed: 8, TurbulenceIntensity: 0.18, Seed: 7,
		Duration: 40, TransientTime: 10,
	}
}

func Test_Run_success(t *testing.T) {
	wind := &stubWind{path: "ntm.bts"}
	sim, runner, fs := newTestSimulator(wind)
	c := ntmCase()
	runner.hook = func(dir, _ string, _ []string) ([]byte, error) {
		writeSolverOutput(t, fs, filepath.Join(dir, c.ID+".outb"))
		return []byte("Total real time: 12 s"), nil
	}

	res, err := sim.Run(context.Background(), c, "/run/cases/c1")
	require.NoError(t, err)
	assert.Equal(t, "openfast", res.Backend)
	assert.Equal(t, c.ID, res.CaseID)
	assert.Equal(t, 5, res.Series.Len())
	assert.Equal(t, c.ID, res.Series.Name)
	assert.True(t, strings.HasSuffix(res.OutputPath, ".outb"))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "/run/cases/c1", runner.calls[0].dir)
	assert.Equal(t, "openfast", runner.calls[0].name)
	assert.Equal(t, []string{c.ID + ".fst"}, runner.calls[0].args)
	assert.Equal(t, []string{c.ID}, wind.seen)

	deck, err := afero.ReadFile(fs, "/run/cases/c1/"+c.ID+".fst")
	require.NoError(t, err)
	text := string(deck)
	assert.Equal(t, c.ID, deckValue(t, text, "CaseID"))
	assert.Equal(t, "40.000", deckValue(t, text, "TMax"))
	assert.Equal(t, "0.0125", deckValue(t, text, "DT"))
	assert.Equal(t, strconv.Itoa(windModeTurbulent), deckValue(t, text, "WindMode"))
	assert.Equal(t, `"ntm.bts"`, deckValue(t, text, "WindFile"))
	assert.Equal(t, "1", deckValue(t, text, "GenDOF"))

	rpm, err := strconv.ParseFloat(deckValue(t, text, "RotSpeed"), 64)
	require.NoError(t, err)
	want := 0.9375 * 60 / (2 * math.Pi) // schedule interpolated at 8 m/s
	assert.InDelta(t, want, rpm, 5e-4)
}

func Test_Run_steadyFallback(t *testing.T) {
	sim, runner, fs := newTestSimulator(nil)
	c := ntmCase()
	runner.hook = func(dir, _ string, _ []string) ([]byte, error) {
		writeSolverOutput(t, fs, filepath.Join(dir, c.ID+".outb"))
		return nil, nil
	}

	_, err := sim.Run(context.Background(), c, "/w")
	require.NoError(t, err)

	deck, err := afero.ReadFile(fs, "/w/"+c.ID+".fst")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(windModeSteady), deckValue(t, string(deck), "WindMode"))
	assert.Equal(t, `"unused"`, deckValue(t, string(deck), "WindFile"))
}

func Test_Run_coherentGustDeck(t *testing.T) {
	// the wind source skips deterministic cases, so the adapter renders
	// the uniform inflow table itself
	sim, runner, fs := newTestSimulator(&stubWind{})
	c := dlc.Case{
		ID: "1p4_ecd_10p0", DLC: "1.4", WindType: dlc.WindECD,
		WindSpeed: 10, Duration: 40, TransientTime: 10,
		GustAmplitude: 15, GustRiseTime: 10, DirectionChangeDeg: 35,
	}
	runner.hook = func(dir, _ string, _ []string) ([]byte, error) {
		writeSolverOutput(t, fs, filepath.Join(dir, c.ID+".outb"))
		return nil, nil
	}

	_, err := sim.Run(context.Background(), c, "/w")
	require.NoError(t, err)

	deck, err := afero.ReadFile(fs, "/w/"+c.ID+".fst")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(windModeUniform), deckValue(t, string(deck), "WindMode"))
	assert.Equal(t, `"`+c.ID+`_wind.dat"`, deckValue(t, string(deck), "WindFile"))

	table, err := afero.ReadFile(fs, "/w/"+c.ID+"_wind.dat")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(table)), "\n")
	require.Greater(t, len(lines), 10)
	assert.True(t, strings.HasPrefix(lines[0], "!"))

	first := strings.Fields(lines[1])
	require.Len(t, first, 3)
	assert.Equal(t, "10.000", first[1], "base speed before the onset")
	assert.Equal(t, "0.000", first[2])

	last := strings.Fields(lines[len(lines)-1])
	require.Len(t, last, 3)
	assert.Equal(t, "40.00", last[0])
	assert.Equal(t, "25.000", last[1], "full gust amplitude after the rise")
	assert.Equal(t, "35.000", last[2], "full direction change after the rise")
}

func Test_Run_parkedDeck(t *testing.T) {
	sim, runner, fs := newTestSimulator(&stubWind{path: "storm.bts"})
	c := dlc.Case{
		ID: "6p1_ewm50_s00", DLC: "6.1", WindType: dlc.WindEWM50,
		WindSpeed: 70, TurbulenceIntensity: 0.11, Seed: 1,
		Duration: 40, TransientTime: 10, Parked: true,
	}
	runner.hook = func(dir, _ string, _ []string) ([]byte, error) {
		writeSolverOutput(t, fs, filepath.Join(dir, c.ID+".outb"))
		return nil, nil
	}

	_, err := sim.Run(context.Background(), c, "/w")
	require.NoError(t, err)

	deck, err := afero.ReadFile(fs, "/w/"+c.ID+".fst")
	require.NoError(t, err)
	text := string(deck)
	assert.Equal(t, "0.000", deckValue(t, text, "RotSpeed"))
	assert.Equal(t, "90.000", deckValue(t, text, "BlPitch"))
	assert.Equal(t, "0", deckValue(t, text, "GenDOF"))
}

func Test_Run_prefersBinaryOutput(t *testing.T) {
	sim, runner, fs := newTestSimulator(nil)
	c := ntmCase()
	runner.hook = func(dir, _ string, _ []string) ([]byte, error) {
		writeSolverOutput(t, fs, filepath.Join(dir, c.ID+".outb"))
		require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, c.ID+".out"), []byte("stale text"), 0o644))
		return nil, nil
	}

	res, err := sim.Run(context.Background(), c, "/w")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.OutputPath, ".outb"))
}

func Test_Run_rejectedDeck(t *testing.T) {
	sim, runner, _ := newTestSimulator(nil)
	runner.hook = func(string, string, []string) ([]byte, error) {
		return []byte("FAST_InitializeAll: ERROR reading ElastoDyn input"), errors.New("exit status 1")
	}

	_, err := sim.Run(context.Background(), ntmCase(), "/w")
	require.Error(t, err)
	assert.True(t, simulation.IsFatal(err))
	assert.Contains(t, err.Error(), "rejected its input")
}

func Test_Run_missingBinary(t *testing.T) {
	sim, runner, _ := newTestSimulator(nil)
	runner.hook = func(string, string, []string) ([]byte, error) {
		return nil, exec.ErrNotFound
	}

	_, err := sim.Run(context.Background(), ntmCase(), "/w")
	require.Error(t, err)
	assert.True(t, simulation.IsFatal(err))
	assert.Contains(t, err.Error(), "configure the executable")
}

func Test_Run_noOutput(t *testing.T) {
	sim, runner, _ := newTestSimulator(nil)
	runner.hook = func(string, string, []string) ([]byte, error) {
		return []byte("done"), nil
	}

	_, err := sim.Run(context.Background(), ntmCase(), "/w")
	require.Error(t, err)
	assert.True(t, simulation.IsFatal(err))
	assert.Contains(t, err.Error(), "no solver output")
}

func Test_Run_truncatedOutput(t *testing.T) {
	sim, runner, fs := newTestSimulator(nil)
	c := ntmCase()
	runner.hook = func(dir, _ string, _ []string) ([]byte, error) {
		return nil, afero.WriteFile(fs, filepath.Join(dir, c.ID+".outb"), []byte{0x02, 0x00}, 0o644)
	}

	_, err := sim.Run(context.Background(), c, "/w")
	require.Error(t, err)
	assert.True(t, simulation.IsFatal(err))
	assert.Contains(t, err.Error(), c.ID+".outb")
}

func Test_Run_windSourceFailure(t *testing.T) {
	werr := simulation.Fatalf("turbsim produced no wind field")
	sim, runner, _ := newTestSimulator(&stubWind{err: werr})

	_, err := sim.Run(context.Background(), ntmCase(), "/w")
	require.Error(t, err)
	assert.True(t, simulation.IsFatal(err))
	assert.Empty(t, runner.calls, "the solver must not start without its inflow")
}

func Test_Run_contextCanceled(t *testing.T) {
	sim, runner, _ := newTestSimulator(nil)
	runner.hook = func(string, string, []string) ([]byte, error) {
		return nil, context.Canceled
	}

	_, err := sim.Run(context.Background(), ntmCase(), "/w")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, simulation.IsFatal(err))
}

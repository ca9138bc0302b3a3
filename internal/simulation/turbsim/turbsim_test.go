package turbsim

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windco-project/windco/internal/dlc"
	"github.com/windco-project/windco/internal/simulation"
	"github.com/windco-project/windco/pkg/windio"
)

type fakeRunner struct {
	calls int
	dir   string
	name  string
	args  []string
	hook  func(dir string) ([]byte, error)
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	f.calls++
	f.dir, f.name, f.args = dir, name, args
	if f.hook == nil {
		return nil, nil
	}
	return f.hook(dir)
}

func testTurbine() *windio.Turbine {
	return &windio.Turbine{
		Assembly: windio.Assembly{RotorDiameter: 126, HubHeight: 90},
	}
}

func stormCase() dlc.Case {
	return dlc.Case{
		ID: "6p1_ewm50_70p0_s02", DLC: "6.1", WindType: dlc.WindEWM50,
		WindSpeed: 70, TurbulenceIntensity: 0.11, Seed: 991,
		Duration: 660, TransientTime: 60, Parked: true,
	}
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

func Test_Generate(t *testing.T) {
	fs := afero.NewMemMapFs()
	runner := &fakeRunner{hook: func(dir string) ([]byte, error) {
		path := filepath.Join(dir, "6p1_ewm50_70p0_s02.bts")
		return []byte("processed"), afero.WriteFile(fs, path, []byte{1, 2, 3}, 0o644)
	}}
	gen := New(fs, runner, windio.TurbSimOptions{Executable: "turbsim"}, testTurbine())

	path, err := gen.Generate(context.Background(), stormCase(), "/w")
	require.NoError(t, err)
	assert.Equal(t, "/w/6p1_ewm50_70p0_s02.bts", path)

	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, "/w", runner.dir)
	assert.Equal(t, "turbsim", runner.name)
	assert.Equal(t, []string{"6p1_ewm50_70p0_s02.inp"}, runner.args)

	deck, err := afero.ReadFile(fs, "/w/6p1_ewm50_70p0_s02.inp")
	require.NoError(t, err)
	text := string(deck)
	assert.Equal(t, "991", deckValue(t, text, "RandSeed"))
	assert.Equal(t, "15", deckValue(t, text, "NumGridZ"))
	assert.Equal(t, "138.60", deckValue(t, text, "GridWidth"), "1.1x rotor diameter")
	assert.Equal(t, "90.00", deckValue(t, text, "HubHt"))
	assert.Equal(t, "660.00", deckValue(t, text, "AnalysisTime"))
	assert.Equal(t, "70.000", deckValue(t, text, "URef"))
	assert.Equal(t, "11.00", deckValue(t, text, "TI"))
	assert.Equal(t, "0.11", deckValue(t, text, "PLExp"), "extreme wind shear")
}

func Test_Generate_normalShear(t *testing.T) {
	fs := afero.NewMemMapFs()
	runner := &fakeRunner{hook: func(dir string) ([]byte, error) {
		return nil, afero.WriteFile(fs, filepath.Join(dir, "c.bts"), []byte{1}, 0o644)
	}}
	gen := New(fs, runner, windio.TurbSimOptions{GridPoints: 21, GridWidth: 160}, testTurbine())

	c := dlc.Case{ID: "c", WindType: dlc.WindNTM, WindSpeed: 8, TurbulenceIntensity: 0.2, Seed: 5, Duration: 60}
	_, err := gen.Generate(context.Background(), c, "/w")
	require.NoError(t, err)

	deck, err := afero.ReadFile(fs, "/w/c.inp")
	require.NoError(t, err)
	text := string(deck)
	assert.Equal(t, "21", deckValue(t, text, "NumGridY"))
	assert.Equal(t, "160.00", deckValue(t, text, "GridWidth"))
	assert.Equal(t, "0.20", deckValue(t, text, "PLExp"))
	assert.Equal(t, "turbsim", runner.name, "empty executable falls back to the name on PATH")
}

func Test_Generate_deterministicCaseSkips(t *testing.T) {
	runner := &fakeRunner{}
	gen := New(afero.NewMemMapFs(), runner, windio.TurbSimOptions{}, testTurbine())

	c := dlc.Case{ID: "1p4_ecd_10p0", WindType: dlc.WindECD, WindSpeed: 10, Duration: 60}
	path, err := gen.Generate(context.Background(), c, "/w")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Zero(t, runner.calls, "deterministic inflow needs no grid")
}

func Test_Generate_noWindFile(t *testing.T) {
	runner := &fakeRunner{hook: func(string) ([]byte, error) {
		return []byte("wrote nothing"), nil
	}}
	gen := New(afero.NewMemMapFs(), runner, windio.TurbSimOptions{}, testTurbine())

	_, err := gen.Generate(context.Background(), stormCase(), "/w")
	require.Error(t, err)
	assert.True(t, simulation.IsFatal(err))
	assert.Contains(t, err.Error(), "produced no wind field")
}

func Test_Generate_rejectedInput(t *testing.T) {
	runner := &fakeRunner{hook: func(string) ([]byte, error) {
		return []byte("TurbSim: invalid input in line 12"), errors.New("exit status 2")
	}}
	gen := New(afero.NewMemMapFs(), runner, windio.TurbSimOptions{}, testTurbine())

	_, err := gen.Generate(context.Background(), stormCase(), "/w")
	require.Error(t, err)
	assert.True(t, simulation.IsFatal(err))
	assert.Contains(t, err.Error(), "rejected its input")
}

package toolchain

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/windco-project/windco/internal/logging"
	"github.com/windco-project/windco/pkg/windio"
)

// Locator abstracts binary lookup and banner probing so discovery is
// testable without the real toolchain installed.
type Locator interface {
	// LookPath resolves a name or explicit path to a runnable binary.
	LookPath(name string) (string, error)
	// Probe runs the binary's version banner.
	Probe(ctx context.Context, path string) (string, error)
}

// ExecLocator resolves on the host. exec.LookPath accepts both bare
// names and explicit paths, so deck-configured absolute paths take the
// same route.
type ExecLocator struct{}

func (ExecLocator) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// probeTimeout bounds the banner run; a healthy binary answers fast.
const probeTimeout = 10 * time.Second

func (ExecLocator) Probe(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil && len(out) == 0 {
		return "", err
	}
	// some of the toolchain prints its banner and exits nonzero
	return string(out), nil
}

// Resolve locates one configured tool and probes its banner.
func Resolve(ctx context.Context, loc Locator, name string, want Kind) Tool {
	t := Tool{Name: name, Want: want, Kind: KindUnknown}
	if name == "" {
		t.Detail = "not configured"
		return t
	}

	path, err := loc.LookPath(name)
	if err != nil {
		t.Detail = fmt.Sprintf("not found: %v", err)
		return t
	}
	t.Path = path
	t.Present = true

	banner, err := loc.Probe(ctx, path)
	if err != nil {
		t.Detail = fmt.Sprintf("found but the version probe failed: %v", err)
		return t
	}
	t.Kind, t.Version = ClassifyBanner(banner)
	switch {
	case t.Kind == KindUnknown:
		t.Detail = "banner not recognized"
	case t.Kind != want:
		t.Detail = fmt.Sprintf("banner reports a %s tool, expected %s", t.Kind, want)
	case t.Version != "":
		t.Detail = "ok"
	default:
		t.Detail = "ok (no version in banner)"
	}
	return t
}

// Discover resolves the toolchain the modeling deck names.
func Discover(ctx context.Context, loc Locator, m *windio.ModelingOptions) Inventory {
	log := logging.FromContext(ctx)
	inv := Inventory{Tools: []Tool{
		Resolve(ctx, loc, m.OpenFAST.Executable, KindSolver),
		Resolve(ctx, loc, m.TurbSim.Executable, KindTurbulence),
	}}
	for _, t := range inv.Tools {
		log.V(logging.DEBUG).Info("toolchain entry",
			"name", t.Name, "present", t.Present, "kind", t.Kind,
			"version", t.Version, "detail", t.Detail)
	}
	return inv
}

// Check gates a fidelity level on the tools it needs: the aeroelastic
// level needs the solver and the turbulence generator, the reduced
// level needs nothing.
func Check(inv Inventory, fidelity int) error {
	if fidelity != windio.FidelityAeroelastic {
		return nil
	}
	var missing []string
	for _, kind := range []Kind{KindSolver, KindTurbulence} {
		t, ok := inv.Find(kind)
		if !ok || !t.Present {
			missing = append(missing, string(kind))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("fidelity %d needs the %s binaries; configure openfast.executable and turbsim.executable in the modeling options",
			fidelity, strings.Join(missing, " and "))
	}
	return nil
}

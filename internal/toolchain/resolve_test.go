package toolchain

import (
	"context"
	"fmt"
	"os/exec"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/windco-project/windco/pkg/windio"
)

// fakeLocator serves canned lookups and banners.
type fakeLocator struct {
	paths    map[string]string // name -> resolved path
	banners  map[string]string // path -> banner
	probeErr error
}

func (f fakeLocator) LookPath(name string) (string, error) {
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("exec: %q: %w", name, exec.ErrNotFound)
}

func (f fakeLocator) Probe(_ context.Context, path string) (string, error) {
	if f.probeErr != nil {
		return "", f.probeErr
	}
	return f.banners[path], nil
}

var _ = Describe("Resolve", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("resolves and classifies a healthy solver", func() {
		loc := fakeLocator{
			paths:   map[string]string{"openfast": "/opt/bin/openfast"},
			banners: map[string]string{"/opt/bin/openfast": "OpenFAST-v3.5.3"},
		}
		tool := Resolve(ctx, loc, "openfast", KindSolver)
		Expect(tool.Present).To(BeTrue())
		Expect(tool.Path).To(Equal("/opt/bin/openfast"))
		Expect(tool.Kind).To(Equal(KindSolver))
		Expect(tool.Version).To(Equal("v3.5.3"))
		Expect(tool.Detail).To(Equal("ok"))
	})

	It("reports an unconfigured slot without looking anything up", func() {
		tool := Resolve(ctx, fakeLocator{}, "", KindTurbulence)
		Expect(tool.Present).To(BeFalse())
		Expect(tool.Detail).To(Equal("not configured"))
	})

	It("reports a missing binary", func() {
		tool := Resolve(ctx, fakeLocator{}, "openfast", KindSolver)
		Expect(tool.Present).To(BeFalse())
		Expect(tool.Path).To(BeEmpty())
		Expect(tool.Detail).To(ContainSubstring("not found"))
	})

	It("keeps a binary present when the probe fails", func() {
		loc := fakeLocator{
			paths:    map[string]string{"turbsim": "/opt/bin/turbsim"},
			probeErr: fmt.Errorf("signal: segmentation fault"),
		}
		tool := Resolve(ctx, loc, "turbsim", KindTurbulence)
		Expect(tool.Present).To(BeTrue())
		Expect(tool.Kind).To(Equal(KindUnknown))
		Expect(tool.Detail).To(ContainSubstring("version probe failed"))
	})

	It("flags a slot answered by the wrong tool", func() {
		loc := fakeLocator{
			paths:   map[string]string{"openfast": "/opt/bin/openfast"},
			banners: map[string]string{"/opt/bin/openfast": "TurbSim (v2.00.07a)"},
		}
		tool := Resolve(ctx, loc, "openfast", KindSolver)
		Expect(tool.Present).To(BeTrue())
		Expect(tool.Kind).To(Equal(KindTurbulence))
		Expect(tool.Detail).To(ContainSubstring("expected solver"))
	})

	It("flags an unrecognized banner", func() {
		loc := fakeLocator{
			paths:   map[string]string{"solver": "/opt/bin/solver"},
			banners: map[string]string{"/opt/bin/solver": "something else entirely"},
		}
		tool := Resolve(ctx, loc, "solver", KindSolver)
		Expect(tool.Kind).To(Equal(KindUnknown))
		Expect(tool.Detail).To(Equal("banner not recognized"))
	})
})

var _ = Describe("Discover and Check", func() {
	var modeling *windio.ModelingOptions

	BeforeEach(func() {
		modeling = &windio.ModelingOptions{
			OpenFAST: windio.OpenFASTOptions{Executable: "openfast"},
			TurbSim:  windio.TurbSimOptions{Executable: "turbsim"},
		}
	})

	It("builds a two-slot inventory", func() {
		loc := fakeLocator{
			paths: map[string]string{"openfast": "/o", "turbsim": "/t"},
			banners: map[string]string{
				"/o": "OpenFAST-v3.5.3",
				"/t": "TurbSim (v2.00.07a)",
			},
		}
		inv := Discover(context.Background(), loc, modeling)
		Expect(inv.Tools).To(HaveLen(2))

		solver, ok := inv.Find(KindSolver)
		Expect(ok).To(BeTrue())
		Expect(solver.Version).To(Equal("v3.5.3"))

		turb, ok := inv.Find(KindTurbulence)
		Expect(ok).To(BeTrue())
		Expect(turb.Present).To(BeTrue())
	})

	It("never gates the reduced-order level", func() {
		inv := Discover(context.Background(), fakeLocator{}, modeling)
		Expect(Check(inv, windio.FidelityReduced)).To(Succeed())
	})

	It("passes the aeroelastic level with a full toolchain", func() {
		loc := fakeLocator{
			paths: map[string]string{"openfast": "/o", "turbsim": "/t"},
			banners: map[string]string{
				"/o": "OpenFAST-v3.5.3",
				"/t": "TurbSim (v2.00.07a)",
			},
		}
		inv := Discover(context.Background(), loc, modeling)
		Expect(Check(inv, windio.FidelityAeroelastic)).To(Succeed())
	})

	It("fails the aeroelastic level on a missing generator", func() {
		loc := fakeLocator{
			paths:   map[string]string{"openfast": "/o"},
			banners: map[string]string{"/o": "OpenFAST-v3.5.3"},
		}
		inv := Discover(context.Background(), loc, modeling)
		err := Check(inv, windio.FidelityAeroelastic)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("turbulence"))
		Expect(err.Error()).To(ContainSubstring("turbsim.executable"))
	})
})

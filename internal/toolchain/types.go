// Package toolchain discovers the external simulation binaries: the
// aeroelastic solver and the turbulence generator. Resolution prefers
// explicit paths from the modeling deck over $PATH lookup; probing runs
// the version banner to classify what actually answered. A missing tool
// is an inventory fact, not an error, so reduced-order runs never fail
// on an absent toolchain.
package toolchain

// Kind classifies an external tool by what its banner reports.
type Kind string

const (
	// KindSolver is the aeroelastic solver.
	KindSolver Kind = "solver"
	// KindTurbulence is the turbulence grid generator.
	KindTurbulence Kind = "turbulence"
	// KindUnknown marks a binary whose banner matched nothing known.
	KindUnknown Kind = "unknown"
)

// Tool is one resolved external binary. The struct tags fix the wire
// names in the persisted run record.
type Tool struct {
	// Name is the configured executable name or path.
	Name string `json:"name"`
	// Want is the kind the configuration slot expects.
	Want Kind `json:"want"`
	// Kind is what the banner probe detected.
	Kind Kind `json:"kind"`
	// Path is the resolved location, empty when missing.
	Path string `json:"path,omitempty"`
	// Version is the banner-reported version, empty when unknown.
	Version string `json:"version,omitempty"`
	// Present reports whether the binary was found at all.
	Present bool `json:"present"`
	// Detail is a human hint: how the tool was found or why it wasn't.
	Detail string `json:"detail,omitempty"`
}

// Inventory is the full toolchain report, consumed by doctor output and
// the fidelity gate.
type Inventory struct {
	Tools []Tool
}

// Find returns the inventory entry for the slot expected to serve a
// kind.
func (inv Inventory) Find(kind Kind) (Tool, bool) {
	for _, t := range inv.Tools {
		if t.Want == kind {
			return t, true
		}
	}
	return Tool{}, false
}

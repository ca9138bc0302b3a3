package windio

import (
	"fmt"
	"sort"
	"strings"
)

// Design variable paths accepted by ApplyDesignVariable. Scale variables
// are dimensionless multipliers with neutral value 1; the control
// variables replace the tuning targets directly.
const (
	VarPitchOmega  = "control.pitch_omega"
	VarPitchZeta   = "control.pitch_zeta"
	VarTorqueOmega = "control.torque_omega"
	VarTorqueZeta  = "control.torque_zeta"
	VarTwistScale  = "blade.twist_scale"
	VarChordScale  = "blade.chord_scale"
	VarTowerScale  = "tower.height_scale"
)

// ApplyDesignVariable writes one design variable value into the decks.
// Callers pass DeepCopy'd decks; the bindings mutate in place.
func ApplyDesignVariable(t *Turbine, m *ModelingOptions, name string, value float64) error {
	switch name {
	case VarPitchOmega:
		m.Controller.Pitch.Omega = value
	case VarPitchZeta:
		m.Controller.Pitch.Zeta = value
	case VarTorqueOmega:
		m.Controller.Torque.Omega = value
	case VarTorqueZeta:
		m.Controller.Torque.Zeta = value
	case VarTwistScale:
		for i := range t.Components.Blade.Stations {
			t.Components.Blade.Stations[i].TwistDeg *= value
		}
	case VarChordScale:
		for i := range t.Components.Blade.Stations {
			t.Components.Blade.Stations[i].Chord *= value
		}
	case VarTowerScale:
		t.Components.Tower.Height *= value
		t.Assembly.HubHeight *= value
	default:
		return fmt.Errorf("unknown design variable %q", name)
	}
	return nil
}

// ValidateDesignVariable reports whether name is a supported binding.
func ValidateDesignVariable(name string) error {
	switch name {
	case VarPitchOmega, VarPitchZeta, VarTorqueOmega, VarTorqueZeta,
		VarTwistScale, VarChordScale, VarTowerScale:
		return nil
	}
	return fmt.Errorf("unknown design variable %q (known: %s)", name, strings.Join(KnownDesignVariables(), ", "))
}

// KnownDesignVariables lists the supported bindings in sorted order.
func KnownDesignVariables() []string {
	names := []string{
		VarPitchOmega, VarPitchZeta, VarTorqueOmega, VarTorqueZeta,
		VarTwistScale, VarChordScale, VarTowerScale,
	}
	sort.Strings(names)
	return names
}

// Summary statistics addressable by merit figures and constraints.
var summaryStats = map[string]bool{
	"max":  true,
	"min":  true,
	"mean": true,
	"std":  true,
	"del":  true,
}

// validateSummaryName checks a merit figure or constraint name: either
// the scalar "aep" or "<stat>.<channel>".
func validateSummaryName(name string) error {
	if name == "aep" {
		return nil
	}
	stat, channel, ok := strings.Cut(name, ".")
	if !ok || channel == "" {
		return fmt.Errorf("name %q must be \"aep\" or \"<stat>.<channel>\"", name)
	}
	if !summaryStats[stat] {
		return fmt.Errorf("name %q: unknown statistic %q (known: max, min, mean, std, del)", name, stat)
	}
	return nil
}

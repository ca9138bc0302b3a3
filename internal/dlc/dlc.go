// Package dlc expands the modeling deck's design load case requests into
// the concrete simulation case matrix. Expansion is deterministic: the
// same decks and master seed always produce the same case IDs and
// turbulence seeds, so campaigns are reproducible across machines.
package dlc

import (
	"fmt"
	"hash/fnv"

	"github.com/windco-project/windco/pkg/windio"
)

// WindType selects the inflow generation for a case.
type WindType string

const (
	// WindNTM is the normal turbulence model of IEC 61400-1.
	WindNTM WindType = "NTM"
	// WindETM is the extreme turbulence model.
	WindETM WindType = "ETM"
	// WindECD is the extreme coherent gust with direction change.
	WindECD WindType = "ECD"
	// WindEWM50 is the 50-year extreme wind speed model.
	WindEWM50 WindType = "EWM50"
)

// Case is one fully specified simulation: inflow, duration and seed.
// The struct tags fix the wire names in the persisted run record.
type Case struct {
	ID        string   `json:"id"`
	DLC       string   `json:"dlc"`
	WindType  WindType `json:"wind_type"`
	WindSpeed float64  `json:"wind_speed"` // m/s, hub height mean
	// TurbulenceIntensity is the longitudinal sigma over the mean wind
	// speed; zero for deterministic inflow.
	TurbulenceIntensity float64 `json:"turbulence_intensity,omitempty"`
	Seed                int64   `json:"seed,omitempty"`
	SeedIndex           int     `json:"seed_index,omitempty"`
	Duration            float64 `json:"duration"`       // s
	TransientTime       float64 `json:"transient_time"` // s
	Parked              bool    `json:"parked,omitempty"`

	// coherent gust parameters, set for ECD cases
	GustAmplitude      float64 `json:"gust_amplitude,omitempty"` // m/s
	GustRiseTime       float64 `json:"gust_rise_time,omitempty"` // s
	DirectionChangeDeg float64 `json:"direction_change_deg,omitempty"`
}

// reference turbulence intensity by IEC category
var irefByCategory = map[string]float64{"A": 0.16, "B": 0.14, "C": 0.12}

// reference wind speed by IEC class, m/s
var vrefByClass = map[string]float64{"I": 50, "II": 42.5, "III": 37.5}

// AnnualAverageWind returns the IEC hub-height annual average wind speed
// for a turbine class, 0.2 Vref.
func AnnualAverageWind(class string) (float64, error) {
	vref, ok := vrefByClass[class]
	if !ok {
		return 0, fmt.Errorf("unknown turbine class %q", class)
	}
	return 0.2 * vref, nil
}

// Expand builds the case matrix for a campaign. ratedWind partitions the
// default sweeps and anchors the ECD wind speeds at rated +/- 2 m/s.
func Expand(m *windio.ModelingOptions, tb *windio.Turbine, ratedWind float64) ([]Case, error) {
	iref, ok := irefByCategory[tb.Assembly.TurbulenceCategory]
	if !ok {
		return nil, fmt.Errorf("unknown turbulence category %q", tb.Assembly.TurbulenceCategory)
	}
	vref, ok := vrefByClass[tb.Assembly.TurbineClass]
	if !ok {
		return nil, fmt.Errorf("unknown turbine class %q", tb.Assembly.TurbineClass)
	}

	var cases []Case
	for i, entry := range m.DLCs.Cases {
		duration := m.Simulation.Duration
		if entry.Duration != nil {
			duration = *entry.Duration
		}
		transient := m.Simulation.TransientTime
		if entry.TransientTime != nil {
			transient = *entry.TransientTime
		}
		if transient >= duration {
			return nil, fmt.Errorf("dlcs.cases[%d]: transient time %.1f swallows duration %.1f", i, transient, duration)
		}

		speeds := entry.WindSpeeds
		if len(speeds) == 0 {
			speeds = defaultSpeeds(entry.DLC, tb, m.Simulation.WindSpeedStep, ratedWind, vref)
		}

		for _, ws := range speeds {
			switch entry.DLC {
			case "1.1", "1.3":
				wt := WindNTM
				ti := ntmIntensity(iref, ws)
				if entry.DLC == "1.3" {
					wt = WindETM
					ti = etmIntensity(iref, vref, ws)
				}
				for s := 0; s < entry.NSeeds; s++ {
					cases = append(cases, Case{
						ID:                  caseID(entry.DLC, ws, s),
						DLC:                 entry.DLC,
						WindType:            wt,
						WindSpeed:           ws,
						TurbulenceIntensity: ti,
						Seed:                deriveSeed(m.DLCs.MasterSeed, entry.DLC, ws, s),
						SeedIndex:           s,
						Duration:            duration,
						TransientTime:       transient,
					})
				}
			case "1.4":
				cases = append(cases, Case{
					ID:                 caseID(entry.DLC, ws, 0),
					DLC:                entry.DLC,
					WindType:           WindECD,
					WindSpeed:          ws,
					Seed:               deriveSeed(m.DLCs.MasterSeed, entry.DLC, ws, 0),
					Duration:           duration,
					TransientTime:      transient,
					GustAmplitude:      15,
					GustRiseTime:       10,
					DirectionChangeDeg: ecdDirectionChange(ws),
				})
			case "6.1":
				ve50 := 1.4 * vref
				for s := 0; s < entry.NSeeds; s++ {
					cases = append(cases, Case{
						ID:                  caseID(entry.DLC, ve50, s),
						DLC:                 entry.DLC,
						WindType:            WindEWM50,
						WindSpeed:           ve50,
						TurbulenceIntensity: 0.11,
						Seed:                deriveSeed(m.DLCs.MasterSeed, entry.DLC, ve50, s),
						SeedIndex:           s,
						Duration:            duration,
						TransientTime:       transient,
						Parked:              true,
					})
				}
			default:
				return nil, fmt.Errorf("dlcs.cases[%d]: unsupported design load case %q", i, entry.DLC)
			}
		}
	}

	seen := make(map[string]bool, len(cases))
	for _, c := range cases {
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate case %s (same DLC requested twice with overlapping wind speeds)", c.ID)
		}
		seen[c.ID] = true
	}
	return cases, nil
}

// defaultSpeeds is the sweep used when a case entry lists no wind speeds.
func defaultSpeeds(dlcName string, tb *windio.Turbine, step, ratedWind, vref float64) []float64 {
	switch dlcName {
	case "1.4":
		// coherent gusts straddle rated
		return []float64{ratedWind - 2, ratedWind, ratedWind + 2}
	case "6.1":
		return []float64{1.4 * vref}
	}
	sup := tb.Control.Supervisory
	var speeds []float64
	for v := sup.CutIn; v <= sup.CutOut+1e-9; v += step {
		speeds = append(speeds, v)
	}
	return speeds
}

// ntmIntensity is the normal turbulence model: sigma = Iref(0.75 V + 5.6).
func ntmIntensity(iref, v float64) float64 {
	return iref * (0.75*v + 5.6) / v
}

// etmIntensity is the extreme turbulence model with c = 2 m/s.
func etmIntensity(iref, vref, v float64) float64 {
	const c = 2.0
	vave := 0.2 * vref
	sigma := c * iref * (0.072*(vave/c+3)*(v/c-4) + 10)
	return sigma / v
}

// ecdDirectionChange is the coherent direction change in degrees.
func ecdDirectionChange(v float64) float64 {
	if v <= 4 {
		return 180
	}
	return 720 / v
}

func caseID(dlcName string, ws float64, seedIdx int) string {
	return fmt.Sprintf("dlc%s_ws%04.1f_s%02d", dlcName, ws, seedIdx)
}

// deriveSeed folds the master seed with the case coordinates so each
// case gets a stable, distinct turbulence seed.
func deriveSeed(master int64, dlcName string, ws float64, seedIdx int) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s|%.1f|%d", master, dlcName, ws, seedIdx)
	v := int64(h.Sum64() & 0x7fffffffffffffff)
	if v == 0 {
		v = 1
	}
	return v
}

package postpro

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/windco-project/windco/internal/dlc"
	"github.com/windco-project/windco/internal/output"
	"github.com/windco-project/windco/pkg/windio"
)

// DefaultWohler maps the standard load channels to Woehler exponents.
// Welded steel fatigues with m = 4; composite laminates use 10.
var DefaultWohler = map[string]float64{
	output.ChanTwrBsMyt: 4,
	output.ChanThrust:   4,
}

// Partial safety factors for ultimate loads, IEC 61400-1 table 3.
// DLC 1.1 carries the reduced factor of the extrapolated normal case.
var psfByDLC = map[string]float64{
	"1.1": 1.25,
	"1.3": 1.35,
	"1.4": 1.35,
	"6.1": 1.35,
}

const psfDefault = 1.35

// SafetyFactor returns the ultimate-load partial safety factor of a
// design load case.
func SafetyFactor(dlcName string) float64 {
	if f, ok := psfByDLC[dlcName]; ok {
		return f
	}
	return psfDefault
}

// CaseRecord pairs an expanded case with its simulated output.
type CaseRecord struct {
	Case   dlc.Case
	Series *output.TimeSeries
}

// CaseSummary is the scalar reduction of one simulated case, computed
// after the transient window is dropped. The struct tags fix the wire
// names in the persisted run record.
type CaseSummary struct {
	ID        string                  `json:"id"`
	DLC       string                  `json:"dlc"`
	WindType  dlc.WindType            `json:"wind_type"`
	WindSpeed float64                 `json:"wind_speed"`
	SeedIndex int                     `json:"seed_index"`
	Parked    bool                    `json:"parked"`
	Stats     map[string]ChannelStats `json:"stats"`
	DEL       map[string]float64      `json:"del,omitempty"`
}

// CampaignSummary aggregates the case reductions of one campaign.
type CampaignSummary struct {
	Cases []CaseSummary `json:"cases"`
	// ProductionCases counts the normal-turbulence operating cases that
	// fed the AEP and lifetime fatigue aggregation.
	ProductionCases int `json:"production_cases"`
	// AEP is the annual energy production in power-channel units times
	// hours, kWh for the standard channels.
	AEP float64 `json:"aep"`
	// Extremes are the factored design loads per channel: the campaign
	// maximum of |value| with the per-DLC partial safety factor applied.
	Extremes map[string]float64 `json:"extremes,omitempty"`
	// LifetimeDEL weights the per-case damage-equivalent loads of the
	// production cases over the site wind distribution.
	LifetimeDEL map[string]float64 `json:"lifetime_del,omitempty"`
}

// Options tune the campaign reduction.
type Options struct {
	// Wohler overrides DefaultWohler.
	Wohler map[string]float64
	// EqFreq is the damage-equivalent cycle frequency in Hz, default 1.
	EqFreq float64
	// GoodmanUltimate enables the Goodman mean correction for the named
	// channels, keyed to the ultimate load in channel units.
	GoodmanUltimate map[string]float64
}

func (o Options) wohler() map[string]float64 {
	if o.Wohler != nil {
		return o.Wohler
	}
	return DefaultWohler
}

func (o Options) eqFreq() float64 {
	if o.EqFreq == 0 {
		return 1
	}
	return o.EqFreq
}

// SummarizeCase reduces one simulated case: the transient window is
// dropped, every channel gets its statistics and the fatigue channels
// their damage-equivalent loads.
func SummarizeCase(rec CaseRecord, opts Options) (*CaseSummary, error) {
	ts := rec.Series.TrimTransient(rec.Case.TransientTime)
	if ts.Len() < 2 {
		return nil, fmt.Errorf("case %s: only %d samples left after the %.0f s transient", rec.Case.ID, ts.Len(), rec.Case.TransientTime)
	}
	stats, err := SummarizeSeries(ts)
	if err != nil {
		return nil, fmt.Errorf("case %s: %w", rec.Case.ID, err)
	}

	tm := ts.Time()
	elapsed := tm[len(tm)-1] - tm[0]
	dels := make(map[string]float64)
	for ch, m := range opts.wohler() {
		col, err := ts.Column(ch)
		if err != nil {
			// fatigue channel not recorded by this backend
			continue
		}
		cycles := CountCycles(col)
		if ult, ok := opts.GoodmanUltimate[ch]; ok {
			if cycles, err = GoodmanCorrect(cycles, ult); err != nil {
				return nil, fmt.Errorf("case %s, channel %s: %w", rec.Case.ID, ch, err)
			}
		}
		dels[ch] = DamageEqLoad(cycles, m, elapsed, opts.eqFreq())
	}

	return &CaseSummary{
		ID:        rec.Case.ID,
		DLC:       rec.Case.DLC,
		WindType:  rec.Case.WindType,
		WindSpeed: rec.Case.WindSpeed,
		SeedIndex: rec.Case.SeedIndex,
		Parked:    rec.Case.Parked,
		Stats:     stats,
		DEL:       dels,
	}, nil
}

// SummarizeCampaign reduces every case record and aggregates the
// campaign quantities over the site wind distribution of the turbine
// deck. Only normal-turbulence operating cases feed the AEP and the
// lifetime fatigue weighting; every case feeds the factored extremes.
func SummarizeCampaign(records []CaseRecord, tb *windio.Turbine, opts Options) (*CampaignSummary, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no case records to summarize")
	}
	out := &CampaignSummary{
		Extremes:    map[string]float64{},
		LifetimeDEL: map[string]float64{},
	}
	for _, rec := range records {
		cs, err := SummarizeCase(rec, opts)
		if err != nil {
			return nil, err
		}
		out.Cases = append(out.Cases, *cs)
		psf := SafetyFactor(cs.DLC)
		for ch, st := range cs.Stats {
			if v := psf * st.AbsMax; v > out.Extremes[ch] {
				out.Extremes[ch] = v
			}
		}
	}

	bySpeed := map[float64][]CaseSummary{}
	for _, cs := range out.Cases {
		if cs.WindType == dlc.WindNTM && !cs.Parked {
			bySpeed[cs.WindSpeed] = append(bySpeed[cs.WindSpeed], cs)
			out.ProductionCases++
		}
	}
	if out.ProductionCases == 0 {
		return out, nil
	}
	speeds := make([]float64, 0, len(bySpeed))
	for v := range bySpeed {
		speeds = append(speeds, v)
	}
	sort.Float64s(speeds)

	sup := tb.Control.Supervisory
	vave, err := dlc.AnnualAverageWind(tb.Assembly.TurbineClass)
	if err != nil {
		return nil, err
	}
	probs, err := binProbabilities(speeds, sup.CutIn, sup.CutOut, tb.Environment.WeibullShape, vave)
	if err != nil {
		return nil, fmt.Errorf("wind distribution: %w", err)
	}

	power := make([]float64, len(speeds))
	for i, v := range speeds {
		var mean float64
		n := 0
		for _, cs := range bySpeed[v] {
			if st, ok := cs.Stats[output.ChanGenPwr]; ok {
				mean += st.Mean
				n++
			}
		}
		if n == 0 {
			return nil, fmt.Errorf("no %s channel in the production cases at %g m/s", output.ChanGenPwr, v)
		}
		power[i] = mean / float64(n)
	}
	out.AEP, err = ComputeAEP(speeds, power, sup.CutIn, sup.CutOut, tb.Environment.WeibullShape, vave, tb.Environment.Availability)
	if err != nil {
		return nil, err
	}

	for ch, m := range opts.wohler() {
		var num, den float64
		for i, v := range speeds {
			group := bySpeed[v]
			w := probs[i] / float64(len(group))
			for _, cs := range group {
				del, ok := cs.DEL[ch]
				if !ok {
					continue
				}
				num += w * math.Pow(del, m)
				den += w
			}
		}
		if den > 0 {
			out.LifetimeDEL[ch] = math.Pow(num/den, 1/m)
		}
	}
	return out, nil
}

// Extract resolves a merit figure or constraint name against a campaign
// summary: "aep", or "<stat>.<channel>" with stat one of max, min, mean,
// std or del. The statistics aggregate the unfactored per-case values
// across the whole campaign; the factored extremes stay in Extremes for
// reporting.
func Extract(s *CampaignSummary, name string) (float64, error) {
	if name == "aep" {
		if s.ProductionCases == 0 {
			return 0, fmt.Errorf("aep needs normal-turbulence production cases in the campaign")
		}
		return s.AEP, nil
	}
	stat, channel, ok := strings.Cut(name, ".")
	if !ok || channel == "" {
		return 0, fmt.Errorf("bad summary name %q", name)
	}
	switch stat {
	case "del":
		v, ok := s.LifetimeDEL[channel]
		if !ok {
			return 0, fmt.Errorf("no lifetime damage-equivalent load for channel %q", channel)
		}
		return v, nil
	case "max", "min", "mean", "std":
	default:
		return 0, fmt.Errorf("unknown statistic %q in %q", stat, name)
	}

	var agg float64
	n := 0
	for _, cs := range s.Cases {
		st, ok := cs.Stats[channel]
		if !ok {
			continue
		}
		switch stat {
		case "max":
			if n == 0 || st.Max > agg {
				agg = st.Max
			}
		case "min":
			if n == 0 || st.Min < agg {
				agg = st.Min
			}
		case "mean":
			agg += st.Mean
		case "std":
			if n == 0 || st.Std > agg {
				agg = st.Std
			}
		}
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("channel %q not present in any case summary", channel)
	}
	if stat == "mean" {
		agg /= float64(n)
	}
	return agg, nil
}

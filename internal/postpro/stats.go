package postpro

import (
	"fmt"

	"github.com/windco-project/windco/internal/output"
)

// ChannelStats are the scalar reductions of one output channel.
type ChannelStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	AbsMax float64 `json:"abs_max"`
}

// SummarizeSeries reduces every data channel of a series. The time
// channel is skipped.
func SummarizeSeries(ts *output.TimeSeries) (map[string]ChannelStats, error) {
	if ts.Len() == 0 {
		return nil, fmt.Errorf("series %q has no samples", ts.Name)
	}
	stats := make(map[string]ChannelStats, len(ts.Channels)-1)
	for _, ch := range ts.Channels[1:] {
		col, err := ts.Column(ch)
		if err != nil {
			return nil, err
		}
		var cs ChannelStats
		for _, a := range []struct {
			agg output.Aggregation
			dst *float64
		}{
			{output.AggMin, &cs.Min},
			{output.AggMax, &cs.Max},
			{output.AggMean, &cs.Mean},
			{output.AggStd, &cs.Std},
			{output.AggAbsMax, &cs.AbsMax},
		} {
			v, err := output.Aggregate(col, a.agg)
			if err != nil {
				return nil, fmt.Errorf("channel %s: %w", ch, err)
			}
			*a.dst = v
		}
		stats[ch] = cs
	}
	return stats, nil
}

/*
Copyright 2025 The windco Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package output

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Standard channel names shared by every simulator backend.
const (
	ChanTime     = "Time"
	ChanWind     = "Wind1VelX"
	ChanRotSpeed = "RotSpeed"
	ChanPitch    = "BldPitch1"
	ChanGenTq    = "GenTq"
	ChanGenPwr   = "GenPwr"
	ChanThrust   = "RotThrust"
	ChanTwrBsMyt = "TwrBsMyt"
)

// StandardUnits maps the standard channels to their units.
var StandardUnits = map[string]string{
	ChanTime:     "(s)",
	ChanWind:     "(m/s)",
	ChanRotSpeed: "(rpm)",
	ChanPitch:    "(deg)",
	ChanGenTq:    "(kN-m)",
	ChanGenPwr:   "(kW)",
	ChanThrust:   "(kN)",
	ChanTwrBsMyt: "(kN-m)",
}

// TimeSeries is a channel table of simulator output. The first channel
// is time by convention; Rows holds one sample per entry, aligned with
// Channels.
type TimeSeries struct {
	Name     string
	Channels []string
	Units    []string
	Rows     [][]float64
}

// NewTimeSeries allocates an empty table for the given channels.
func NewTimeSeries(name string, channels, units []string) (*TimeSeries, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("time series needs at least one channel")
	}
	if len(units) != len(channels) {
		return nil, fmt.Errorf("got %d units for %d channels", len(units), len(channels))
	}
	if channels[0] != ChanTime {
		return nil, fmt.Errorf("first channel must be %s, got %s", ChanTime, channels[0])
	}
	return &TimeSeries{Name: name, Channels: channels, Units: units}, nil
}

// AppendRow adds one sample.
func (ts *TimeSeries) AppendRow(row []float64) error {
	if len(row) != len(ts.Channels) {
		return fmt.Errorf("row has %d values, want %d", len(row), len(ts.Channels))
	}
	ts.Rows = append(ts.Rows, append([]float64(nil), row...))
	return nil
}

// Len returns the number of samples.
func (ts *TimeSeries) Len() int { return len(ts.Rows) }

// ChannelIndex locates a channel by name.
func (ts *TimeSeries) ChannelIndex(name string) (int, bool) {
	for i, c := range ts.Channels {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Column extracts one channel as a slice.
func (ts *TimeSeries) Column(name string) ([]float64, error) {
	i, ok := ts.ChannelIndex(name)
	if !ok {
		return nil, fmt.Errorf("no channel %q (have %v)", name, ts.Channels)
	}
	col := make([]float64, len(ts.Rows))
	for r, row := range ts.Rows {
		col[r] = row[i]
	}
	return col, nil
}

// Time returns the time column.
func (ts *TimeSeries) Time() []float64 {
	col := make([]float64, len(ts.Rows))
	for r, row := range ts.Rows {
		col[r] = row[0]
	}
	return col
}

// TrimTransient returns a view without the samples before t0. The
// underlying rows are shared.
func (ts *TimeSeries) TrimTransient(t0 float64) *TimeSeries {
	cut := 0
	for cut < len(ts.Rows) && ts.Rows[cut][0] < t0 {
		cut++
	}
	return &TimeSeries{Name: ts.Name, Channels: ts.Channels, Units: ts.Units, Rows: ts.Rows[cut:]}
}

// Aggregation selects how a channel collapses to a scalar.
type Aggregation string

const (
	AggMin    Aggregation = "min"
	AggMax    Aggregation = "max"
	AggMean   Aggregation = "mean"
	AggStd    Aggregation = "std"
	AggAbsMax Aggregation = "absmax"
	AggP95    Aggregation = "p95"
)

// Aggregate collapses values with the chosen aggregation.
func Aggregate(values []float64, agg Aggregation) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("no values to aggregate")
	}
	switch agg {
	case AggMin:
		out := values[0]
		for _, v := range values[1:] {
			out = math.Min(out, v)
		}
		return out, nil
	case AggMax:
		out := values[0]
		for _, v := range values[1:] {
			out = math.Max(out, v)
		}
		return out, nil
	case AggMean:
		return stat.Mean(values, nil), nil
	case AggStd:
		if len(values) < 2 {
			return 0, nil
		}
		return stat.StdDev(values, nil), nil
	case AggAbsMax:
		out := math.Abs(values[0])
		for _, v := range values[1:] {
			out = math.Max(out, math.Abs(v))
		}
		return out, nil
	case AggP95:
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		return stat.Quantile(0.95, stat.Empirical, sorted, nil), nil
	default:
		return 0, fmt.Errorf("unknown aggregation %q", agg)
	}
}

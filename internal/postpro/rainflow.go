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

package postpro

import (
	"fmt"
	"math"
)

// Cycle is one rainflow cycle: a load range, its mean, and a count of
// 1.0 for closed cycles or 0.5 for residue half cycles.
type Cycle struct {
	Range float64
	Mean  float64
	Count float64
}

// CountCycles runs three-point rainflow counting (ASTM E1049) over a
// load history. Ranges still open when the history ends are counted as
// half cycles, so the total count conserves the turning points of the
// input.
func CountCycles(series []float64) []Cycle {
	tp := turningPoints(series)
	if len(tp) < 2 {
		return nil
	}
	var cycles []Cycle
	stack := make([]float64, 0, len(tp))
	for _, p := range tp {
		stack = append(stack, p)
		for len(stack) >= 3 {
			n := len(stack)
			x := math.Abs(stack[n-1] - stack[n-2])
			y := math.Abs(stack[n-2] - stack[n-3])
			if x < y {
				break
			}
			if n == 3 {
				// the pending range touches the history start
				cycles = append(cycles, Cycle{
					Range: y,
					Mean:  (stack[0] + stack[1]) / 2,
					Count: 0.5,
				})
				stack = stack[1:]
				continue
			}
			cycles = append(cycles, Cycle{
				Range: y,
				Mean:  (stack[n-2] + stack[n-3]) / 2,
				Count: 1,
			})
			stack = append(stack[:n-3], stack[n-1])
		}
	}
	for i := 0; i+1 < len(stack); i++ {
		cycles = append(cycles, Cycle{
			Range: math.Abs(stack[i+1] - stack[i]),
			Mean:  (stack[i+1] + stack[i]) / 2,
			Count: 0.5,
		})
	}
	return cycles
}

// turningPoints reduces a series to its local extrema, keeping both
// endpoints and collapsing repeated values.
func turningPoints(series []float64) []float64 {
	tp := make([]float64, 0, len(series))
	for _, v := range series {
		n := len(tp)
		if n > 0 && v == tp[n-1] {
			continue
		}
		if n >= 2 {
			rising := tp[n-1] > tp[n-2]
			if rising == (v > tp[n-1]) {
				// same direction, the excursion continues
				tp[n-1] = v
				continue
			}
		}
		tp = append(tp, v)
	}
	return tp
}

// DamageEqLoad collapses counted cycles into the constant-amplitude
// range that, cycled at eqFreq over the elapsed time, accumulates the
// same Miner damage under an S^-m curve with Woehler exponent m.
func DamageEqLoad(cycles []Cycle, wohler, elapsed, eqFreq float64) float64 {
	if len(cycles) == 0 || elapsed <= 0 || eqFreq <= 0 {
		return 0
	}
	var sum float64
	for _, c := range cycles {
		sum += c.Count * math.Pow(c.Range, wohler)
	}
	return math.Pow(sum/(eqFreq*elapsed), 1/wohler)
}

// GoodmanCorrect maps each cycle to its zero-mean equivalent on the
// Goodman line, R' = R / (1 - |mean| / ultimate).
func GoodmanCorrect(cycles []Cycle, ultimate float64) ([]Cycle, error) {
	if ultimate <= 0 {
		return nil, fmt.Errorf("goodman correction needs a positive ultimate load, got %g", ultimate)
	}
	out := make([]Cycle, len(cycles))
	for i, c := range cycles {
		denom := 1 - math.Abs(c.Mean)/ultimate
		if denom <= 0 {
			return nil, fmt.Errorf("cycle mean %.4g reaches the ultimate load %.4g", c.Mean, ultimate)
		}
		out[i] = Cycle{Range: c.Range / denom, Count: c.Count}
	}
	return out, nil
}

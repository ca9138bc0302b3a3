package postpro

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

const hoursPerYear = 8760

// ComputeAEP integrates a binned power curve over a Weibull wind speed
// distribution. Bin edges sit at the midpoints between the swept speeds,
// with the outermost edges at cut-in and cut-out; the result carries the
// units of the power samples times hours.
func ComputeAEP(speeds, power []float64, cutIn, cutOut, shape, annualMean, availability float64) (float64, error) {
	probs, err := binProbabilities(speeds, cutIn, cutOut, shape, annualMean)
	if err != nil {
		return 0, err
	}
	if len(power) != len(speeds) {
		return 0, fmt.Errorf("got %d power samples for %d wind speeds", len(power), len(speeds))
	}
	if availability <= 0 || availability > 1 {
		return 0, fmt.Errorf("availability must be in (0, 1], got %g", availability)
	}
	var aep float64
	for i, p := range power {
		aep += p * probs[i]
	}
	return hoursPerYear * availability * aep, nil
}

// binProbabilities returns the Weibull probability mass of each wind
// speed bin.
func binProbabilities(speeds []float64, cutIn, cutOut, shape, annualMean float64) ([]float64, error) {
	if len(speeds) == 0 {
		return nil, fmt.Errorf("no wind speeds to bin")
	}
	if !sort.Float64sAreSorted(speeds) {
		return nil, fmt.Errorf("wind speeds must be sorted, got %v", speeds)
	}
	if cutIn < 0 || cutOut <= cutIn {
		return nil, fmt.Errorf("bad operating range [%g, %g]", cutIn, cutOut)
	}
	if speeds[0] < cutIn || speeds[len(speeds)-1] > cutOut {
		return nil, fmt.Errorf("wind speeds %v leave the operating range [%g, %g]", speeds, cutIn, cutOut)
	}
	if shape <= 0 || annualMean <= 0 {
		return nil, fmt.Errorf("bad Weibull parameters: shape %g, annual mean %g", shape, annualMean)
	}

	dist := distuv.Weibull{
		K:      shape,
		Lambda: annualMean / math.Gamma(1+1/shape),
	}
	edges := make([]float64, len(speeds)+1)
	edges[0] = cutIn
	for i := 1; i < len(speeds); i++ {
		edges[i] = (speeds[i-1] + speeds[i]) / 2
	}
	edges[len(speeds)] = cutOut

	probs := make([]float64, len(speeds))
	for i := range probs {
		probs[i] = dist.CDF(edges[i+1]) - dist.CDF(edges[i])
	}
	return probs, nil
}

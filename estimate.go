package gofourpl

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// InitialParams guesses a starting point for the optimizer: the observed
// response extremes as asymptotes, a unit Hill coefficient and the median
// input as IC50. Empty input yields the zero vector.
func InitialParams(x, y []float64) Params {
	if len(x) == 0 || len(y) == 0 {
		return Params{}
	}
	return Params{floats.Min(y), floats.Max(y), 1, median(x)}
}

// median of an even-length sample is the mean of the two middle values.
func median(a []float64) float64 {
	sorted := make([]float64, len(a))
	copy(sorted, a)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

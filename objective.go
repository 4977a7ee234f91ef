package gofourpl

import (
	"math"
)

// RSS is the residual sum of squares of p against the observations. Invalid
// model output (NaN, Inf) propagates into the sum unchanged.
func RSS(x, y []float64, p Params) float64 {
	if len(x) != len(y) {
		panic("gofourpl: slice length mismatch")
	}
	sum := 0.0
	for i, xi := range x {
		d := y[i] - Formula(xi, p)
		sum += d * d
	}
	return sum
}

// Residuals writes y[i] - Formula(x[i], p) into dst.
func Residuals(dst, x, y []float64, p Params) {
	if len(dst) != len(x) || len(x) != len(y) {
		panic("gofourpl: slice length mismatch")
	}
	for i, xi := range x {
		dst[i] = y[i] - Formula(xi, p)
	}
}

// NewObjective returns the function minimized during fitting. Trial points
// where the model is undefined score +Inf so the search rejects them rather
// than aborting.
func NewObjective(x, y []float64) func([]float64) float64 {
	return func(v []float64) float64 {
		rss := RSS(x, y, paramsFrom(v))
		if math.IsNaN(rss) {
			return math.Inf(1)
		}
		return rss
	}
}

// newResiduals is the residual-vector counterpart of NewObjective. Undefined
// residuals are replaced by a large finite penalty because Jacobian based
// methods cannot difference infinities.
func newResiduals(x, y []float64) func(dst, v []float64) {
	return func(dst, v []float64) {
		Residuals(dst, x, y, paramsFrom(v))
		for i, r := range dst {
			if !isFinite(r) {
				dst[i] = residualPenalty
			}
		}
	}
}

const residualPenalty = 1e100

package gofourpl

import (
	"math"
)

// Params is the 4PL parameter vector in the order (min, max, Hill coefficient, IC50).
type Params [4]float64

const (
	MinIndex = iota
	MaxIndex
	HillIndex
	IC50Index
)

func NewParams(minY, maxY, hill, ic50 float64) Params {
	return Params{minY, maxY, hill, ic50}
}

// Min is the asymptote approached as X goes to 0 (for a positive Hill coefficient).
func (p Params) Min() float64 { return p[MinIndex] }

// Max is the asymptote approached as X grows without bound.
func (p Params) Max() float64 { return p[MaxIndex] }

func (p Params) Hill() float64 { return p[HillIndex] }

func (p Params) IC50() float64 { return p[IC50Index] }

func (p Params) Slice() []float64 {
	return []float64{p[0], p[1], p[2], p[3]}
}

func paramsFrom(x []float64) Params {
	var p Params
	copy(p[:], x)
	return p
}

// Formula evaluates the four-parameter logistic curve
//
//	Y = max + (min - max) / (1 + (X/ic50)^hill)
//
// A negative X/ic50 with a non-integral Hill coefficient has no real power
// and evaluates to NaN; callers must check.
func Formula(x float64, p Params) float64 {
	return p.Max() + (p.Min()-p.Max())/(1+math.Pow(x/p.IC50(), p.Hill()))
}

// FormulaAll applies Formula to every element of xs.
func FormulaAll(xs []float64, p Params) []float64 {
	res := make([]float64, len(xs))
	for i, x := range xs {
		res[i] = Formula(x, p)
	}
	return res
}

// InverseFormula solves Formula for X:
//
//	X = ic50 * ((min - max)/(Y - max) - 1)^(1/hill)
//
// Y equal to max divides by zero and Y outside the open interval between the
// asymptotes raises a negative base to a fractional power. Both produce a
// non-finite result instead of an error.
func InverseFormula(y float64, p Params) float64 {
	return p.IC50() * math.Pow((p.Min()-p.Max())/(y-p.Max())-1, 1/p.Hill())
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

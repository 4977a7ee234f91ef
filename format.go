package gofourpl

import (
	"math"
	"strconv"
	"strings"
)

// formatRounded rounds v half-to-even at the given number of decimal places
// and prints the shortest representation, always with a fractional part
// ("5.0", not "5"). Like numpy's round it scales, rounds and scales back, so
// the result follows the binary product v*10^places rather than the exact
// decimal value of v.
func formatRounded(v float64, places int) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	scale := math.Pow(10, float64(places))
	r := math.RoundToEven(v*scale) / scale
	s := strconv.FormatFloat(r, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

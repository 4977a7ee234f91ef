// Package synth generates reproducible 4PL example data: every point gets its
// own jittered asymptotes and Hill coefficient around a fixed IC50.
package synth

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/kacperjurak/gofourpl"
)

// Config describes the curve the data scatters around. Each point draws
// min, max and Hill from [base, base+Jitter).
type Config struct {
	Min    float64 `yaml:"min" json:"min"`
	Max    float64 `yaml:"max" json:"max"`
	Hill   float64 `yaml:"hill" json:"hill"`
	IC50   float64 `yaml:"ic50" json:"ic50"`
	Jitter float64 `yaml:"jitter" json:"jitter"`
	Seed   uint64  `yaml:"seed" json:"seed"`
}

// DefaultConfig is a steep calibration curve from roughly 1.5 to 10.5 with
// its midpoint at 5.
func DefaultConfig() Config {
	return Config{Min: 1, Max: 10, Hill: 5.5, IC50: 5, Jitter: 1, Seed: 12}
}

// DefaultX are the standard concentrations of the example data set.
func DefaultX() []float64 {
	return []float64{1, 1.5, 2, 3, 4, 6, 7, 8}
}

// DefaultResponses are the responses the example data set is read back at:
// 16 evenly spaced values from 1 to 7.
func DefaultResponses() []float64 {
	return Linspace(1, 7, 16)
}

// Generate returns one response per input. The same Config always yields the
// same responses.
func Generate(x []float64, cfg Config) []float64 {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	jitter := func() float64 {
		return cfg.Jitter * rng.Float64()
	}

	y := make([]float64, len(x))
	for i, xi := range x {
		p := gofourpl.NewParams(cfg.Min+jitter(), cfg.Max+jitter(), cfg.Hill+jitter(), cfg.IC50)
		y[i] = gofourpl.Formula(xi, p)
	}
	return y
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

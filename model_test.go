package gofourpl_test

import (
	"bytes"
	"errors"
	"log"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kacperjurak/gofourpl"
	"github.com/kacperjurak/gofourpl/internal/synth"
)

var standardX = []float64{1, 1.5, 2, 3, 4, 6, 7, 8}

// fixedMinimizer always "finds" the same point.
type fixedMinimizer struct {
	p gofourpl.Params
}

func (f fixedMinimizer) Minimize(obj func([]float64) float64, _ []float64) (gofourpl.Result, error) {
	x := f.p.Slice()
	return gofourpl.Result{Method: "fixed", Params: x, Min: obj(x), Converged: true, Status: gofourpl.OK}, nil
}

// canonical rewrites p so that Hill is positive; (min, max, h) and (max, min, -h)
// describe the same curve.
func canonical(p gofourpl.Params) gofourpl.Params {
	if p.Hill() < 0 {
		return gofourpl.NewParams(p.Max(), p.Min(), -p.Hill(), p.IC50())
	}
	return p
}

func TestFitPerfectData(t *testing.T) {
	want := gofourpl.NewParams(1.5, 10.5, 6, 5)
	y := gofourpl.FormulaAll(standardX, want)

	m, err := gofourpl.Fit(standardX, y)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, m.RSquared(), 1e-6)
	assert.True(t, m.Result().Converged)
	assert.Equal(t, gofourpl.MethodPowell, m.Result().Method)

	got := canonical(m.Params())
	assert.InEpsilon(t, want.IC50(), got.IC50(), 0.02)
	assert.InEpsilon(t, want.Hill(), got.Hill(), 0.02)
	assert.InDelta(t, want.Min(), got.Min(), 0.05)
	assert.InDelta(t, want.Max(), got.Max(), 0.05)
}

func TestFitInitialGuess(t *testing.T) {
	y := gofourpl.FormulaAll(standardX, gofourpl.NewParams(1.5, 10.5, 6, 5))

	m, err := gofourpl.Fit(standardX, y)
	require.NoError(t, err)

	init := m.InitialParams()
	assert.Equal(t, y[0], init.Min())
	assert.Equal(t, y[len(y)-1], init.Max())
	assert.Equal(t, 1.0, init.Hill())
	assert.Equal(t, 3.5, init.IC50())
}

func TestFitDecreasingData(t *testing.T) {
	want := gofourpl.NewParams(10.5, 1.5, 6, 5)
	y := gofourpl.FormulaAll(standardX, want)
	require.Greater(t, y[0], y[len(y)-1])

	m, err := gofourpl.Fit(standardX, y)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, m.RSquared(), 0.99)
	assert.InEpsilon(t, 5, m.Params().IC50(), 0.05)
	for i, x := range standardX {
		assert.InDelta(t, y[i], m.Predict(x), 0.3, "x=%v", x)
	}
}

func TestFitIncreasingDataIsMonotonic(t *testing.T) {
	y := gofourpl.FormulaAll(standardX, gofourpl.NewParams(1.5, 10.5, 6, 5))

	m, err := gofourpl.Fit(standardX, y)
	require.NoError(t, err)

	p := canonical(m.Params())
	require.Less(t, p.Min(), p.Max())
	require.Greater(t, p.Hill(), 0.0)

	xs, ys := m.Curve(200)
	require.Len(t, xs, 200)
	assert.Equal(t, 1.0, xs[0])
	assert.Equal(t, 8.0, xs[len(xs)-1])
	for i := 1; i < len(ys); i++ {
		assert.GreaterOrEqual(t, ys[i], ys[i-1], "x=%v", xs[i])
	}
	assert.InDelta(t, p.Min(), gofourpl.Formula(1e-9, p), 1e-6)
	assert.InDelta(t, p.Max(), gofourpl.Formula(1e9, p), 1e-6)
}

func TestFitSyntheticScenario(t *testing.T) {
	y := synth.Generate(standardX, synth.DefaultConfig())

	m, err := gofourpl.Fit(standardX, y)
	require.NoError(t, err)

	assert.InEpsilon(t, 5, m.Params().IC50(), 0.10)
	assert.GreaterOrEqual(t, m.RSquared(), 0.95)
	assert.Len(t, m.Parameters(), 4)
}

func TestRoundTrip(t *testing.T) {
	y := synth.Generate(standardX, synth.DefaultConfig())
	m, err := gofourpl.Fit(standardX, y)
	require.NoError(t, err)

	for _, x := range []float64{2.5, 4, 5, 6.5} {
		assert.InEpsilon(t, x, m.InversePredict(m.Predict(x)), 1e-6, "x=%v", x)
	}

	p := canonical(m.Params())
	lo, hi := p.Min(), p.Max()
	for _, frac := range []float64{0.1, 0.25, 0.5, 0.75, 0.9} {
		yq := lo + frac*(hi-lo)
		assert.InDelta(t, yq, m.Predict(m.InversePredict(yq)), 1e-6, "y=%v", yq)
	}
}

func TestPredictAllAndInversePredictAll(t *testing.T) {
	y := gofourpl.FormulaAll(standardX, gofourpl.NewParams(1.5, 10.5, 6, 5))
	m, err := gofourpl.Fit(standardX, y)
	require.NoError(t, err)

	xs := []float64{2, 5, 7}
	ys := m.PredictAll(xs)
	require.Len(t, ys, 3)
	for i, x := range xs {
		assert.Equal(t, m.Predict(x), ys[i])
	}

	back := m.InversePredictAll(ys)
	require.Len(t, back, 3)
	for i, x := range xs {
		assert.InEpsilon(t, x, back[i], 1e-6)
	}
}

func TestInversePredictAtUpperAsymptote(t *testing.T) {
	y := synth.Generate(standardX, synth.DefaultConfig())
	m, err := gofourpl.Fit(standardX, y)
	require.NoError(t, err)

	var x float64
	assert.NotPanics(t, func() {
		x = m.InversePredict(m.Params().Max())
	})
	assert.True(t, math.IsNaN(x) || math.IsInf(x, 0), "got %v", x)
}

func TestInversePredictChecked(t *testing.T) {
	p := gofourpl.NewParams(1, 10, 2, 5)
	y := gofourpl.FormulaAll(standardX, p)
	m, err := gofourpl.Fit(standardX, y, gofourpl.WithMinimizer(fixedMinimizer{p}))
	require.NoError(t, err)

	x, err := m.InversePredictChecked(5.5)
	require.NoError(t, err)
	assert.InDelta(t, 5, x, 1e-9)

	tests := []struct {
		name string
		y    float64
	}{
		{"upper asymptote", 10},
		{"above range", 12},
		{"below range", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.InversePredictChecked(tt.y)
			require.ErrorIs(t, err, gofourpl.ErrDomain)

			var de *gofourpl.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.y, de.Y)
			assert.Equal(t, "InversePredict", de.Op)
		})
	}
}

func TestInversePredictCheckedZeroHill(t *testing.T) {
	p := gofourpl.NewParams(1, 10, 0, 5)
	m, err := gofourpl.Fit(standardX, standardX, gofourpl.WithMinimizer(fixedMinimizer{p}))
	require.NoError(t, err)

	_, err = m.InversePredictChecked(5)
	assert.ErrorIs(t, err, gofourpl.ErrDomain)
	assert.Contains(t, err.Error(), "Hill coefficient is zero")
}

func TestParametersFormat(t *testing.T) {
	p := gofourpl.NewParams(1.23456, 9.87654, 5.5, 5.0)
	y := gofourpl.FormulaAll(standardX, p)

	m, err := gofourpl.Fit(standardX, y, gofourpl.WithMinimizer(fixedMinimizer{p}))
	require.NoError(t, err)

	assert.Equal(t, []string{"min: 1.23", "max: 9.88", "Hill coeff: 5.5", "IC50: 5.0"}, m.Parameters())
}

func TestRSquaredString(t *testing.T) {
	p := gofourpl.NewParams(1.5, 10.5, 6, 5)
	y := gofourpl.FormulaAll(standardX, p)

	m, err := gofourpl.Fit(standardX, y, gofourpl.WithMinimizer(fixedMinimizer{p}))
	require.NoError(t, err)

	assert.Equal(t, 1.0, m.RSquared())
	assert.Equal(t, "1.0", m.RSquaredString(false))
	assert.Equal(t, "The R-squared value of the regression is 1.0.", m.RSquaredString(true))
}

func TestRSquaredImperfectFit(t *testing.T) {
	truth := gofourpl.NewParams(1.5, 10.5, 6, 5)
	y := gofourpl.FormulaAll(standardX, truth)
	off := gofourpl.NewParams(1.5, 10.5, 6, 5.5)

	m, err := gofourpl.Fit(standardX, y, gofourpl.WithMinimizer(fixedMinimizer{off}))
	require.NoError(t, err)

	r2 := m.RSquared()
	assert.Less(t, r2, 1.0)
	assert.Greater(t, r2, 0.5)
	assert.Regexp(t, `^0\.\d{1,5}$`, m.RSquaredString(false))
}

func TestFitInputValidation(t *testing.T) {
	_, err := gofourpl.Fit([]float64{1, 2, 3, 4}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, gofourpl.ErrLengthMismatch)

	_, err = gofourpl.Fit([]float64{1, 2, 3}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, gofourpl.ErrTooFewObservations)

	_, err = gofourpl.Fit(nil, nil)
	assert.ErrorIs(t, err, gofourpl.ErrTooFewObservations)

	_, err = gofourpl.Fit(standardX, standardX, gofourpl.WithMethod("simplex"))
	assert.ErrorIs(t, err, gofourpl.ErrUnknownMethod)
}

func TestFitIterationBudgetIsBestEffort(t *testing.T) {
	y := synth.Generate(standardX, synth.DefaultConfig())

	m, err := gofourpl.Fit(standardX, y, gofourpl.WithMaxIterations(1))
	require.NoError(t, err)

	res := m.Result()
	assert.False(t, res.Converged)
	assert.Equal(t, 1, res.Iters)
	assert.Less(t, res.Min, gofourpl.RSS(standardX, y, m.InitialParams()))
	assert.Equal(t, m.Params().Slice(), res.Params)
}

func TestFitCopiesObservations(t *testing.T) {
	x := append([]float64(nil), standardX...)
	y := gofourpl.FormulaAll(x, gofourpl.NewParams(1.5, 10.5, 6, 5))
	yCopy := append([]float64(nil), y...)

	m, err := gofourpl.Fit(x, y)
	require.NoError(t, err)
	before := m.Params()

	x[0], y[0] = 100, -100
	assert.Equal(t, standardX, m.X())
	assert.Equal(t, yCopy, m.Y())
	assert.Equal(t, before, m.Params())

	got := m.X()
	got[1] = 42
	assert.Equal(t, standardX, m.X())
}

func TestFitWithInitialParams(t *testing.T) {
	want := gofourpl.NewParams(1.5, 10.5, 6, 5)
	y := gofourpl.FormulaAll(standardX, want)
	start := gofourpl.NewParams(1, 11, 4, 4.5)

	m, err := gofourpl.Fit(standardX, y, gofourpl.WithInitialParams(start))
	require.NoError(t, err)

	assert.Equal(t, start, m.InitialParams())
	assert.InDelta(t, 1.0, m.RSquared(), 1e-6)
}

func TestFitLogsWhenAsked(t *testing.T) {
	var buf bytes.Buffer
	y := synth.Generate(standardX, synth.DefaultConfig())

	_, err := gofourpl.Fit(standardX, y, gofourpl.WithLogger(log.New(&buf, "", 0)))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Using initial values")
	assert.Contains(t, buf.String(), "powell")
}

func TestFitAllMethods(t *testing.T) {
	y := synth.Generate(standardX, synth.DefaultConfig())

	powell, err := gofourpl.Fit(standardX, y)
	require.NoError(t, err)

	all, err := gofourpl.Fit(standardX, y, gofourpl.WithMethod(gofourpl.MethodAll))
	require.NoError(t, err)

	assert.NotEmpty(t, all.Result().Method)
	assert.LessOrEqual(t, all.Result().Min, powell.Result().Min+1e-9)
	assert.GreaterOrEqual(t, all.RSquared(), 0.95)
}

func TestFitNelderMeadImprovesOnStart(t *testing.T) {
	y := synth.Generate(standardX, synth.DefaultConfig())
	start := gofourpl.RSS(standardX, y, gofourpl.InitialParams(standardX, y))

	m, err := gofourpl.Fit(standardX, y, gofourpl.WithMethod(gofourpl.MethodNelderMead))
	require.NoError(t, err)
	assert.Equal(t, gofourpl.MethodNelderMead, m.Result().Method)
	assert.LessOrEqual(t, m.Result().Min, start)
}

func TestConcurrentFits(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]float64, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cfg := synth.DefaultConfig()
			cfg.Seed = uint64(i + 1)
			y := synth.Generate(standardX, cfg)
			m, err := gofourpl.Fit(standardX, y)
			if err != nil {
				results[i] = math.NaN()
				return
			}
			results[i] = m.RSquared()
		}(i)
	}
	wg.Wait()

	for i, r2 := range results {
		assert.False(t, math.IsNaN(r2), "fit %d", i)
	}
}

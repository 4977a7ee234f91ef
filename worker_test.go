package gofourpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMethodsKeepsOrder(t *testing.T) {
	x := []float64{1, 1.5, 2, 3, 4, 6, 7, 8}
	y := FormulaAll(x, NewParams(1, 10, 3, 5))
	s := NewSolver(x, y)

	methods := []Method{MethodPowell, Method("simplex"), MethodNelderMead}
	for _, workers := range []int{0, 1, 2, 10} {
		results := s.runMethods(methods, workers)
		require.Len(t, results, len(methods))

		for i, r := range results {
			assert.Equal(t, methods[i], r.method)
		}
		assert.NoError(t, results[0].err)
		assert.Equal(t, MethodPowell, results[0].result.Method)
		assert.ErrorIs(t, results[1].err, ErrUnknownMethod)
		assert.NoError(t, results[2].err)
		assert.Equal(t, MethodNelderMead, results[2].result.Method)
	}
}

func TestSolveAllIndependentOfWorkers(t *testing.T) {
	x := []float64{1, 1.5, 2, 3, 4, 6, 7, 8}
	y := FormulaAll(x, NewParams(1, 10, 3, 5))
	y[3] += 0.2

	sequential := NewSolver(x, y)
	sequential.Method = MethodAll
	sequential.Workers = 1
	want, err := sequential.Solve()
	require.NoError(t, err)

	parallel := NewSolver(x, y)
	parallel.Method = MethodAll
	got, err := parallel.Solve()
	require.NoError(t, err)

	assert.Equal(t, want.Method, got.Method)
	assert.Equal(t, want.Min, got.Min)
	assert.Equal(t, want.Params, got.Params)
}

package gofourpl

import (
	"golang.org/x/sync/errgroup"
)

type methodResult struct {
	method Method
	result Result
	err    error
}

// runMethods solves once per method with at most workers running at a time.
// Results are returned in the order of methods regardless of completion order.
func (s *Solver) runMethods(methods []Method, workers int) []methodResult {
	if workers <= 0 || workers > len(methods) {
		workers = len(methods)
	}

	results := make([]methodResult, len(methods))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, method := range methods {
		g.Go(func() error {
			r := methodResult{method: method}
			m, err := NewMinimizer(method, s.Settings)
			if err != nil {
				r.err = err
			} else {
				r.result, r.err = s.run(m)
			}
			// Each goroutine owns one slot.
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()
	return results
}

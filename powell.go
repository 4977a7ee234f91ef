package gofourpl

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

const (
	goldenRatio   = 1.618034
	goldenSection = 0.3819660
	bracketLimit  = 100
	brentTol      = 1.5e-8
	brentZeps     = 1e-12
	brentIter     = 200
	powellTiny    = 1e-25
)

// Powell minimizes along a set of directions, one line search per direction
// per sweep. After each sweep the direction of largest decrease is replaced by
// the sweep's net displacement, so the set drifts towards mutually conjugate
// directions without ever needing a gradient.
type Powell struct {
	Settings Settings
}

func (pw *Powell) Minimize(f func([]float64) float64, x0 []float64) (Result, error) {
	n := len(x0)
	if n == 0 {
		return Result{Status: ERROR, Min: math.Inf(1)}, ErrNoSolution
	}
	tol := pw.Settings.tolerance()
	maxIter := pw.Settings.maxIterations(n)

	start := time.Now()
	evals := 0
	fn := func(x []float64) float64 {
		evals++
		v := f(x)
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		return v
	}

	// Initial directions follow the coordinate axes, scaled to the magnitude
	// of the starting point so that IC50 values of 1e-9 and 1e3 both get a
	// sensible first step.
	dirs := make([][]float64, n)
	for i := range dirs {
		dirs[i] = make([]float64, n)
		dirs[i][i] = 1
		if s := math.Abs(x0[i]); s > 0 {
			dirs[i][i] = s
		}
	}

	x := make([]float64, n)
	copy(x, x0)
	fx := fn(x)
	pt := make([]float64, n)
	copy(pt, x)
	ptt := make([]float64, n)
	xit := make([]float64, n)

	res := Result{Method: MethodPowell, MinUnit: "RSS", Status: IterationLimit}
	iter := 0
	for iter < maxIter {
		iter++
		fp := fx
		big := 0
		decrease := 0.0
		for i, d := range dirs {
			before := fx
			fx = lineMinimize(fn, x, d, fx)
			if before-fx > decrease {
				decrease = before - fx
				big = i
			}
		}

		if math.IsInf(fx, 1) {
			res.Status = ERROR
			break
		}
		if !math.IsInf(fp, 1) && 2*(fp-fx) <= tol*(math.Abs(fp)+math.Abs(fx))+powellTiny {
			res.Status = OK
			res.Converged = true
			break
		}

		for j := range x {
			ptt[j] = 2*x[j] - pt[j]
			xit[j] = x[j] - pt[j]
			pt[j] = x[j]
		}
		fptt := fn(ptt)
		if fptt >= fp {
			continue
		}
		t := 2*(fp-2*fx+fptt)*sq(fp-fx-decrease) - decrease*sq(fp-fptt)
		if t < 0 {
			fx = lineMinimize(fn, x, xit, fx)
			dirs[big] = dirs[n-1]
			dirs[n-1] = append([]float64(nil), xit...)
		}
	}

	res.Params = x
	res.Min = fx
	res.Iters = iter
	res.FuncEval = evals
	res.Runtime = time.Since(start).Seconds()
	return res, nil
}

func sq(v float64) float64 { return v * v }

// lineMinimize moves x to the minimum of f along d and returns the new
// objective value. fx is f(x) on entry. x is left untouched unless the line
// search found a strictly better point.
func lineMinimize(f func([]float64) float64, x, d []float64, fx float64) float64 {
	trial := make([]float64, len(x))
	phi := func(a float64) float64 {
		floats.AddScaledTo(trial, x, a, d)
		return f(trial)
	}

	a, b, c, fb := bracketMinimum(phi, fx)
	alpha, fmin := brentMinimum(phi, a, b, c, fb)
	if fmin < fx {
		floats.AddScaled(x, alpha, d)
		return fmin
	}
	return fx
}

// bracketMinimum walks downhill from phi(0) = f0 in golden-ratio steps until
// the function turns up again, returning a < b < c (or c < b < a) with phi(b)
// below both ends whenever the walk succeeds.
func bracketMinimum(phi func(float64) float64, f0 float64) (a, b, c, fb float64) {
	a, b = 0, 1
	fa := f0
	fb = phi(b)
	if fb > fa {
		a, b = b, a
		fb = fa
	}
	c = b + goldenRatio*(b-a)
	fc := phi(c)
	for i := 0; fb > fc && i < bracketLimit; i++ {
		a, b, fb = b, c, fc
		c = b + goldenRatio*(b-a)
		fc = phi(c)
	}
	return a, b, c, fb
}

// brentMinimum refines a bracket with Brent's parabolic interpolation,
// falling back to golden-section steps whenever the parabola is unusable
// (including when infinite objective values turn it into NaN).
func brentMinimum(phi func(float64) float64, a, b, c, fb float64) (float64, float64) {
	lo, hi := math.Min(a, c), math.Max(a, c)
	x, w, v := b, b, b
	fx, fw, fv := fb, fb, fb
	var d, e float64

	for i := 0; i < brentIter; i++ {
		xm := 0.5 * (lo + hi)
		tol1 := brentTol*math.Abs(x) + brentZeps
		tol2 := 2 * tol1
		if math.Abs(x-xm) <= tol2-0.5*(hi-lo) {
			break
		}

		parabolic := false
		if math.Abs(e) > tol1 {
			r := (x - w) * (fx - fv)
			q := (x - v) * (fx - fw)
			p := (x-v)*q - (x-w)*r
			q = 2 * (q - r)
			if q > 0 {
				p = -p
			}
			q = math.Abs(q)
			prev := e
			e = d
			if math.Abs(p) < math.Abs(0.5*q*prev) && p > q*(lo-x) && p < q*(hi-x) {
				parabolic = true
				d = p / q
				if u := x + d; u-lo < tol2 || hi-u < tol2 {
					d = math.Copysign(tol1, xm-x)
				}
			}
		}
		if !parabolic {
			if x >= xm {
				e = lo - x
			} else {
				e = hi - x
			}
			d = goldenSection * e
		}

		u := x + d
		if math.Abs(d) < tol1 {
			u = x + math.Copysign(tol1, d)
		}
		fu := phi(u)

		if fu <= fx {
			if u >= x {
				lo = x
			} else {
				hi = x
			}
			v, w, x = w, x, u
			fv, fw, fx = fw, fx, fu
			continue
		}
		if u < x {
			lo = u
		} else {
			hi = u
		}
		if fu <= fw || w == x {
			v, w = w, u
			fv, fw = fw, fu
		} else if fu <= fv || v == x || v == w {
			v, fv = u, fu
		}
	}
	return x, fx
}

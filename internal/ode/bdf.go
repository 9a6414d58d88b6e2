package ode

import "math"

// BDF2 is an adaptive-step implicit integrator of order 2 using backward
// differentiation formulas with a damped Newton corrector and a
// finite-difference Jacobian. It trades accuracy per step for L-stability,
// which the oscillator equations need when the effective frequency term makes
// the explicit method grind its step size down.
type BDF2 struct{}

const (
	newtonMaxIter = 8
	newtonTolFrac = 0.1 // Newton tolerance as a fraction of the step tolerance
)

// Integrate advances y from t to tEnd in place.
func (BDF2) Integrate(sys System, t, tEnd float64, y []float64, cfg Config) (Stats, error) {
	var st Stats
	span := tEnd - t
	if span == 0 {
		return st, nil
	}
	cfg.fill(span)
	dir := 1.0
	if span < 0 {
		dir = -1.0
	}

	n := len(y)
	dy := make([]float64, n)
	yPrev := make([]float64, n)  // y_{n-1}
	yCurr := make([]float64, n)  // y_n
	yNext := make([]float64, n)  // Newton iterate for y_{n+1}
	yPred := make([]float64, n)  // extrapolation predictor
	resid := make([]float64, n)
	delta := make([]float64, n)
	jac := make([]float64, n*n)
	mat := make([]float64, n*n)

	sys(t, y, dy)
	st.Evals++

	h := cfg.InitStep
	if h <= 0 {
		h = initialStep(t, y, dy, span, cfg.AbsTol, cfg.RelTol)
	}
	if h > cfg.MaxStep {
		h = cfg.MaxStep
	}
	h *= dir

	copy(yCurr, y)
	hPrev := 0.0 // 0 means no history yet: take a backward Euler step

	for st.Steps < cfg.MaxSteps {
		if dir*(tEnd-t) <= 0 {
			copy(y, yCurr)
			return st, nil
		}
		if dir*(t+h) > dir*tEnd {
			h = tEnd - t
		}

		firstStep := hPrev == 0

		// Predictor: linear extrapolation once history exists.
		if firstStep {
			copy(yPred, yCurr)
		} else {
			r := h / hPrev
			for i := 0; i < n; i++ {
				yPred[i] = yCurr[i] + r*(yCurr[i]-yPrev[i])
			}
		}
		copy(yNext, yPred)

		// Nonuniform BDF2:
		//   y_{n+1} = ((1+r)^2 y_n - r^2 y_{n-1} + (1+r) h f(t_{n+1}, y_{n+1})) / (1+2r)
		// Backward Euler on the first step (r terms vanish).
		var c0, c1, cf float64
		if firstStep {
			c0, c1, cf = 1, 0, 1
		} else {
			r := h / hPrev
			den := 1 + 2*r
			c0 = (1 + r) * (1 + r) / den
			c1 = -r * r / den
			cf = (1 + r) / den
		}

		tNext := t + h
		ok, err := bdfNewton(sys, tNext, h*cf, c0, c1, yCurr, yPrev, yNext, resid, delta, jac, mat, &st, cfg)
		if err != nil {
			return st, stepError("bdf2", t, h, err)
		}
		if !ok || hasNonFinite(yNext) {
			// Newton failed to converge; halve the step and retry.
			st.Rejected++
			h *= 0.5
			if math.Abs(h) < cfg.MinStep {
				return st, stepError("bdf2", t, h, ErrStepTooSmall)
			}
			continue
		}

		// Local error estimate from the corrector-predictor difference.
		for i := 0; i < n; i++ {
			resid[i] = yNext[i] - yPred[i]
		}
		errv := errNorm(resid, yCurr, yNext, cfg.AbsTol, cfg.RelTol)
		if firstStep {
			// Backward Euler start: accept and build history.
			errv = math.Min(errv, 1)
		}

		if errv <= 1 {
			copy(yPrev, yCurr)
			copy(yCurr, yNext)
			hPrev = h
			t = tNext
			st.Steps++
			st.LastStep = h

			fac := 0.9 * math.Pow(errv+1e-16, -1.0/3.0)
			fac = math.Min(4, math.Max(0.2, fac))
			h *= fac
			if math.Abs(h) > cfg.MaxStep {
				h = dir * cfg.MaxStep
			}
		} else {
			st.Rejected++
			h *= math.Max(0.1, 0.9*math.Pow(errv, -1.0/3.0))
		}

		if math.Abs(h) < cfg.MinStep {
			return st, stepError("bdf2", t, h, ErrStepTooSmall)
		}
	}
	return st, stepError("bdf2", t, h, ErrMaxSteps)
}

// bdfNewton solves y = c0*yCurr + c1*yPrev + hf*f(t, y) for y in place,
// starting from the predictor already loaded into yNext. Returns ok=false
// when the iteration fails to converge.
func bdfNewton(sys System, t, hf, c0, c1 float64, yCurr, yPrev, yNext, resid, delta, jac, mat []float64, st *Stats, cfg Config) (bool, error) {
	n := len(yNext)
	f := make([]float64, n)

	// Finite-difference Jacobian of f at the predictor. Reused across the
	// whole Newton iteration; chord Newton is enough at these step sizes.
	sys(t, yNext, f)
	st.Evals++
	fPert := make([]float64, n)
	yPert := make([]float64, n)
	copy(yPert, yNext)
	for j := 0; j < n; j++ {
		dj := math.Sqrt(2.2e-16) * math.Max(1e-8, math.Abs(yNext[j]))
		yPert[j] += dj
		sys(t, yPert, fPert)
		st.Evals++
		for i := 0; i < n; i++ {
			jac[i*n+j] = (fPert[i] - f[i]) / dj
		}
		yPert[j] = yNext[j]
	}

	// Newton matrix: I - hf*J.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := -hf * jac[i*n+j]
			if i == j {
				v += 1
			}
			mat[i*n+j] = v
		}
	}
	lu := make([]float64, n*n)
	piv := make([]int, n)
	copy(lu, mat)
	if !luFactor(lu, piv, n) {
		return false, ErrSingular
	}

	tol := newtonTolFrac * cfg.AbsTol
	for iter := 0; iter < newtonMaxIter; iter++ {
		sys(t, yNext, f)
		st.Evals++
		maxRel := 0.0
		for i := 0; i < n; i++ {
			resid[i] = yNext[i] - c0*yCurr[i] - c1*yPrev[i] - hf*f[i]
		}
		luSolve(lu, piv, resid, delta, n)
		for i := 0; i < n; i++ {
			yNext[i] -= delta[i]
			sc := cfg.AbsTol + cfg.RelTol*math.Abs(yNext[i])
			rel := math.Abs(delta[i]) / sc
			if rel > maxRel {
				maxRel = rel
			}
		}
		if maxRel < newtonTolFrac || normInf(resid) < tol {
			return true, nil
		}
	}
	return false, nil
}

func normInf(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

// luFactor computes an in-place LU factorization with partial pivoting.
// Returns false on a singular matrix.
func luFactor(a []float64, piv []int, n int) bool {
	for i := range piv {
		piv[i] = i
	}
	for col := 0; col < n; col++ {
		// Pivot.
		p := col
		max := math.Abs(a[col*n+col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(a[r*n+col]); v > max {
				max, p = v, r
			}
		}
		if max == 0 {
			return false
		}
		if p != col {
			for j := 0; j < n; j++ {
				a[col*n+j], a[p*n+j] = a[p*n+j], a[col*n+j]
			}
			piv[col], piv[p] = piv[p], piv[col]
		}
		// Eliminate.
		inv := 1 / a[col*n+col]
		for r := col + 1; r < n; r++ {
			m := a[r*n+col] * inv
			a[r*n+col] = m
			for j := col + 1; j < n; j++ {
				a[r*n+j] -= m * a[col*n+j]
			}
		}
	}
	return true
}

// luSolve solves LU x = b[piv] into x.
func luSolve(lu []float64, piv []int, b, x []float64, n int) {
	for i := 0; i < n; i++ {
		x[i] = b[piv[i]]
	}
	// Forward substitution.
	for i := 1; i < n; i++ {
		for j := 0; j < i; j++ {
			x[i] -= lu[i*n+j] * x[j]
		}
	}
	// Back substitution.
	for i := n - 1; i >= 0; i-- {
		for j := i + 1; j < n; j++ {
			x[i] -= lu[i*n+j] * x[j]
		}
		x[i] /= lu[i*n+i]
	}
}

package ode

import "math"

// Dormand-Prince 5(4) coefficients.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// 5th order solution weights (same as the last a row, FSAL).
	dpB = [7]float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0}
	// Embedded 4th order weights.
	dpBs = [7]float64{5179.0 / 57600, 0, 7571.0 / 16695, 393.0 / 640, -92097.0 / 339200, 187.0 / 2100, 1.0 / 40}
)

// DormandPrince54 is an adaptive explicit Runge-Kutta 5(4) integrator with a
// PI step-size controller and first-same-as-last reuse.
type DormandPrince54 struct{}

// Integrate advances y from t to tEnd in place.
func (DormandPrince54) Integrate(sys System, t, tEnd float64, y []float64, cfg Config) (Stats, error) {
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
	k := make([][]float64, 7)
	for i := range k {
		k[i] = make([]float64, n)
	}
	ytmp := make([]float64, n)
	ynew := make([]float64, n)
	eloc := make([]float64, n)

	sys(t, y, k[0])
	st.Evals++

	h := cfg.InitStep
	if h <= 0 {
		h = initialStep(t, y, k[0], span, cfg.AbsTol, cfg.RelTol)
	}
	if h > cfg.MaxStep {
		h = cfg.MaxStep
	}
	h *= dir

	prevErr := 1.0
	for st.Steps < cfg.MaxSteps {
		if dir*(tEnd-t) <= 0 {
			return st, nil
		}
		if dir*(t+h) > dir*tEnd {
			h = tEnd - t
		}

		// Stage evaluations.
		for s := 1; s < 7; s++ {
			for i := 0; i < n; i++ {
				acc := 0.0
				for j := 0; j < s; j++ {
					acc += dpA[s][j] * k[j][i]
				}
				ytmp[i] = y[i] + h*acc
			}
			sys(t+dpC[s]*h, ytmp, k[s])
			st.Evals++
		}

		// 5th order solution and embedded error.
		for i := 0; i < n; i++ {
			acc5, acc4 := 0.0, 0.0
			for s := 0; s < 7; s++ {
				acc5 += dpB[s] * k[s][i]
				acc4 += dpBs[s] * k[s][i]
			}
			ynew[i] = y[i] + h*acc5
			eloc[i] = h * (acc5 - acc4)
		}

		if hasNonFinite(ynew) {
			return st, stepError("dopri54", t, h, ErrDiverged)
		}

		errv := errNorm(eloc, y, ynew, cfg.AbsTol, cfg.RelTol)
		if errv <= 1 {
			// Accept. k[6] is f(t+h, ynew): FSAL.
			t += h
			copy(y, ynew)
			copy(k[0], k[6])
			st.Steps++
			st.LastStep = h

			// PI controller (beta = 0.04 stabilizer).
			fac := 0.9 * math.Pow(errv+1e-16, -0.7/5.0) * math.Pow(prevErr+1e-16, 0.4/5.0)
			fac = math.Min(5, math.Max(0.2, fac))
			prevErr = errv
			h *= fac
			if math.Abs(h) > cfg.MaxStep {
				h = dir * cfg.MaxStep
			}
		} else {
			st.Rejected++
			fac := math.Max(0.1, 0.9*math.Pow(errv, -1.0/5.0))
			h *= fac
		}

		if math.Abs(h) < cfg.MinStep {
			return st, stepError("dopri54", t, h, ErrStepTooSmall)
		}
	}
	return st, stepError("dopri54", t, h, ErrMaxSteps)
}

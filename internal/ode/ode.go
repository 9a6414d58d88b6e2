// Package ode provides initial-value problem integrators for the background
// and perturbation equations: an adaptive explicit Dormand-Prince 5(4) method
// for smooth oscillatory phases and an implicit BDF2 method for stiff phases.
package ode

import (
	"errors"
	"fmt"
	"math"

	"github.com/astrika/gocosmo/internal/constants"
)

// System evaluates the right-hand side of y' = f(t, y) into dy.
// dy has the same length as y and must be fully written.
type System func(t float64, y, dy []float64)

// Config controls an integration run. Zero values select defaults.
type Config struct {
	// InitStep is the first step size attempted. If 0, a heuristic based on
	// the initial derivative magnitude is used.
	InitStep float64

	// MinStep aborts integration with ErrStepTooSmall when the controller
	// would shrink below it. If 0, a machine-epsilon based floor is used.
	MinStep float64

	// MaxStep caps the step size. If 0, the full remaining interval is allowed.
	MaxStep float64

	// AbsTol and RelTol form the per-component error weight
	// atol + rtol*|y|. Defaults: 1e-12 and 1e-8.
	AbsTol float64
	RelTol float64

	// MaxSteps caps the number of accepted steps. If 0,
	// constants.MaxODESteps.
	MaxSteps int
}

// Stats reports what an integration run did.
type Stats struct {
	Steps    int     // accepted steps
	Rejected int     // rejected step attempts
	Evals    int     // right-hand side evaluations
	LastStep float64 // size of the last accepted step
}

// Integrator advances a state vector from t to tEnd in place.
type Integrator interface {
	Integrate(sys System, t, tEnd float64, y []float64, cfg Config) (Stats, error)
}

// Sentinel errors for integration failure modes.
var (
	// ErrStepTooSmall indicates the adaptive controller shrank the step
	// below Config.MinStep without meeting the tolerance.
	ErrStepTooSmall = errors.New("ode: step size below minimum")

	// ErrMaxSteps indicates Config.MaxSteps was exhausted before reaching tEnd.
	ErrMaxSteps = errors.New("ode: maximum step count exceeded")

	// ErrDiverged indicates NaN or Inf appeared in the state.
	ErrDiverged = errors.New("ode: state diverged (NaN or Inf)")

	// ErrSingular indicates the Newton linear solve hit a singular matrix.
	ErrSingular = errors.New("ode: singular Newton matrix")
)

func (c *Config) fill(span float64) {
	if c.AbsTol <= 0 {
		c.AbsTol = 1e-12
	}
	if c.RelTol <= 0 {
		c.RelTol = 1e-8
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = constants.MaxODESteps
	}
	if c.MaxStep <= 0 {
		c.MaxStep = math.Abs(span)
	}
	if c.MinStep <= 0 {
		c.MinStep = 16 * math.SmallestNonzeroFloat64
	}
}

// errNorm computes the weighted RMS norm of the error estimate e against the
// states y0 (before) and y1 (after the step).
func errNorm(e, y0, y1 []float64, atol, rtol float64) float64 {
	sum := 0.0
	for i := range e {
		sc := atol + rtol*math.Max(math.Abs(y0[i]), math.Abs(y1[i]))
		r := e[i] / sc
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(e)))
}

func hasNonFinite(y []float64) bool {
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// initialStep estimates a starting step from the scale of y and y'.
func initialStep(t float64, y, dy []float64, span, atol, rtol float64) float64 {
	d0, d1 := 0.0, 0.0
	for i := range y {
		sc := atol + rtol*math.Abs(y[i])
		d0 += (y[i] / sc) * (y[i] / sc)
		d1 += (dy[i] / sc) * (dy[i] / sc)
	}
	d0 = math.Sqrt(d0 / float64(len(y)))
	d1 = math.Sqrt(d1 / float64(len(y)))
	h := 1e-6 * math.Abs(span)
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h = 0.01 * d0 / d1
	}
	if h > math.Abs(span) {
		h = math.Abs(span)
	}
	return h
}

func stepError(kind string, t, h float64, err error) error {
	return fmt.Errorf("%s at t = %g (h = %g): %w", kind, t, h, err)
}

// Package quad provides adaptive numerical quadrature for the distance
// integrals and the WKB phase integral.
package quad

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoConvergence is returned when the recursion depth cap is reached before
// the tolerance is met.
var ErrNoConvergence = errors.New("quad: did not converge within depth limit")

// Config controls an adaptive quadrature run. Zero values select defaults.
type Config struct {
	// AbsTol and RelTol bound the accepted error per subinterval.
	// Defaults: 1e-12 and 1e-10.
	AbsTol float64
	RelTol float64

	// MaxDepth caps the bisection recursion. Default 48.
	MaxDepth int
}

func (c *Config) fill() {
	if c.AbsTol <= 0 {
		c.AbsTol = 1e-12
	}
	if c.RelTol <= 0 {
		c.RelTol = 1e-10
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 48
	}
}

// Simpson integrates f over [a, b] with adaptive Simpson bisection.
// It handles a > b by sign flip.
func Simpson(f func(float64) float64, a, b float64, cfg Config) (float64, error) {
	cfg.fill()
	if a == b {
		return 0, nil
	}
	sign := 1.0
	if a > b {
		a, b = b, a
		sign = -1
	}
	fa, fm, fb := f(a), f((a+b)/2), f(b)
	whole := simpsonRule(a, b, fa, fm, fb)
	v, err := adaptStep(f, a, b, fa, fm, fb, whole, cfg, cfg.MaxDepth)
	if err != nil {
		return sign * v, fmt.Errorf("integrating over [%g, %g]: %w", a, b, err)
	}
	return sign * v, nil
}

func simpsonRule(a, b, fa, fm, fb float64) float64 {
	return (b - a) / 6 * (fa + 4*fm + fb)
}

func adaptStep(f func(float64) float64, a, b, fa, fm, fb, whole float64, cfg Config, depth int) (float64, error) {
	m := (a + b) / 2
	lm, rm := (a+m)/2, (m+b)/2
	flm, frm := f(lm), f(rm)
	left := simpsonRule(a, m, fa, flm, fm)
	right := simpsonRule(m, b, fm, frm, fb)
	delta := left + right - whole

	tol := math.Max(cfg.AbsTol, cfg.RelTol*math.Abs(left+right))
	if math.Abs(delta) <= 15*tol {
		// Richardson extrapolation to 5th order.
		return left + right + delta/15, nil
	}
	if depth <= 0 {
		return left + right + delta/15, ErrNoConvergence
	}
	lv, lerr := adaptStep(f, a, m, fa, flm, fm, left, cfg, depth-1)
	rv, rerr := adaptStep(f, m, b, fm, frm, fb, right, cfg, depth-1)
	if lerr != nil {
		return lv + rv, lerr
	}
	return lv + rv, rerr
}

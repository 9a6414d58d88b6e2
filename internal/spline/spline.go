// Package spline provides natural cubic spline interpolation, used to cache
// expensive integrals (comoving distance tables, WKB phase) as fast lookups.
package spline

import (
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors for spline construction and evaluation.
var (
	// ErrTooFewPoints is returned when fewer than three knots are supplied.
	ErrTooFewPoints = errors.New("spline: need at least three points")

	// ErrNotIncreasing is returned when the abscissae are not strictly
	// increasing.
	ErrNotIncreasing = errors.New("spline: abscissae must be strictly increasing")

	// ErrOutOfRange is returned by Eval for points outside the knot range.
	ErrOutOfRange = errors.New("spline: point outside interpolation range")
)

// Spline is a natural cubic spline over strictly increasing knots.
type Spline struct {
	xs, ys []float64
	y2     []float64 // second derivatives at the knots
}

// Fit constructs a natural cubic spline through (xs[i], ys[i]). At least
// three knots are required; two points describe a line, not a spline.
// The slices are copied.
func Fit(xs, ys []float64) (*Spline, error) {
	n := len(xs)
	if n < 3 || len(ys) != n {
		return nil, fmt.Errorf("%w: got %d x, %d y", ErrTooFewPoints, len(xs), len(ys))
	}
	for i := 1; i < n; i++ {
		if xs[i] <= xs[i-1] {
			return nil, fmt.Errorf("%w: x[%d] = %g, x[%d] = %g", ErrNotIncreasing, i-1, xs[i-1], i, xs[i])
		}
	}

	s := &Spline{
		xs: append([]float64(nil), xs...),
		ys: append([]float64(nil), ys...),
		y2: make([]float64, n),
	}

	// Tridiagonal solve for second derivatives, natural boundary conditions
	// (y2 = 0 at both ends).
	u := make([]float64, n)
	for i := 1; i < n-1; i++ {
		sig := (xs[i] - xs[i-1]) / (xs[i+1] - xs[i-1])
		p := sig*s.y2[i-1] + 2
		s.y2[i] = (sig - 1) / p
		u[i] = (ys[i+1]-ys[i])/(xs[i+1]-xs[i]) - (ys[i]-ys[i-1])/(xs[i]-xs[i-1])
		u[i] = (6*u[i]/(xs[i+1]-xs[i-1]) - sig*u[i-1]) / p
	}
	for i := n - 2; i >= 0; i-- {
		s.y2[i] = s.y2[i]*s.y2[i+1] + u[i]
	}
	return s, nil
}

// Min and Max return the knot range.
func (s *Spline) Min() float64 { return s.xs[0] }
func (s *Spline) Max() float64 { return s.xs[len(s.xs)-1] }

func (s *Spline) segment(x float64) (int, error) {
	if x < s.xs[0] || x > s.xs[len(s.xs)-1] {
		return 0, fmt.Errorf("%w: %g not in [%g, %g]", ErrOutOfRange, x, s.xs[0], s.xs[len(s.xs)-1])
	}
	// Index of the first knot >= x, clamped to a valid segment.
	i := sort.SearchFloat64s(s.xs, x)
	if i > 0 {
		i--
	}
	if i > len(s.xs)-2 {
		i = len(s.xs) - 2
	}
	return i, nil
}

// Eval evaluates the spline at x.
func (s *Spline) Eval(x float64) (float64, error) {
	i, err := s.segment(x)
	if err != nil {
		return 0, err
	}
	h := s.xs[i+1] - s.xs[i]
	a := (s.xs[i+1] - x) / h
	b := (x - s.xs[i]) / h
	return a*s.ys[i] + b*s.ys[i+1] +
		((a*a*a-a)*s.y2[i]+(b*b*b-b)*s.y2[i+1])*(h*h)/6, nil
}

// Deriv evaluates the first derivative of the spline at x.
func (s *Spline) Deriv(x float64) (float64, error) {
	i, err := s.segment(x)
	if err != nil {
		return 0, err
	}
	h := s.xs[i+1] - s.xs[i]
	a := (s.xs[i+1] - x) / h
	b := (x - s.xs[i]) / h
	return (s.ys[i+1]-s.ys[i])/h +
		((3*b*b-1)*s.y2[i+1]-(3*a*a-1)*s.y2[i])*h/6, nil
}

package spline

import (
	"errors"
	"math"
	"testing"
)

func gridded(f func(float64) float64, a, b float64, n int) ([]float64, []float64) {
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = a + (b-a)*float64(i)/float64(n-1)
		ys[i] = f(xs[i])
	}
	return xs, ys
}

func TestFit_Errors(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		ys   []float64
		want error
	}{
		{"too few points", []float64{0, 1}, []float64{0, 1}, ErrTooFewPoints},
		{"length mismatch", []float64{0, 1, 2}, []float64{0, 1}, ErrTooFewPoints},
		{"not increasing", []float64{0, 2, 1}, []float64{0, 1, 2}, ErrNotIncreasing},
		{"duplicate knot", []float64{0, 1, 1, 2}, []float64{0, 1, 1, 2}, ErrNotIncreasing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Fit(tt.xs, tt.ys); !errors.Is(err, tt.want) {
				t.Errorf("Fit error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEval_HitsKnots(t *testing.T) {
	xs := []float64{0, 0.3, 1.1, 2, 5}
	ys := []float64{1, -2, 4, 0, 3}
	s, err := Fit(xs, ys)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	for i, x := range xs {
		got, err := s.Eval(x)
		if err != nil {
			t.Fatalf("Eval(%g): %v", x, err)
		}
		if math.Abs(got-ys[i]) > 1e-12 {
			t.Errorf("Eval(%g) = %g, want knot value %g", x, got, ys[i])
		}
	}
}

func TestEval_Linear(t *testing.T) {
	// A natural cubic spline reproduces straight lines exactly.
	xs, ys := gridded(func(x float64) float64 { return 3*x - 7 }, -2, 4, 7)
	s, err := Fit(xs, ys)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	for x := -2.0; x <= 4.0; x += 0.17 {
		got, err := s.Eval(x)
		if err != nil {
			t.Fatalf("Eval(%g): %v", x, err)
		}
		if want := 3*x - 7; math.Abs(got-want) > 1e-11 {
			t.Errorf("Eval(%g) = %.12f, want %.12f", x, got, want)
		}
	}
}

func TestEval_SmoothFunction(t *testing.T) {
	xs, ys := gridded(math.Sin, 0, math.Pi, 64)
	s, err := Fit(xs, ys)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	for x := 0.0; x <= math.Pi; x += 0.01 {
		got, err := s.Eval(x)
		if err != nil {
			t.Fatalf("Eval(%g): %v", x, err)
		}
		if math.Abs(got-math.Sin(x)) > 1e-6 {
			t.Errorf("Eval(%g) off by %.3e", x, got-math.Sin(x))
		}
	}
}

func TestDeriv(t *testing.T) {
	xs, ys := gridded(math.Sin, 0, math.Pi, 256)
	s, err := Fit(xs, ys)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	// Natural boundary conditions degrade accuracy near the ends; check
	// the interior only.
	for x := 0.3; x <= math.Pi-0.3; x += 0.05 {
		got, err := s.Deriv(x)
		if err != nil {
			t.Fatalf("Deriv(%g): %v", x, err)
		}
		if math.Abs(got-math.Cos(x)) > 1e-5 {
			t.Errorf("Deriv(%g) = %.8f, want %.8f", x, got, math.Cos(x))
		}
	}
}

func TestEval_OutOfRange(t *testing.T) {
	s, err := Fit([]float64{0, 1, 2}, []float64{0, 1, 4})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if _, err := s.Eval(-0.1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Eval below range: err = %v, want ErrOutOfRange", err)
	}
	if _, err := s.Eval(2.1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Eval above range: err = %v, want ErrOutOfRange", err)
	}
	if got := s.Min(); got != 0 {
		t.Errorf("Min = %g, want 0", got)
	}
	if got := s.Max(); got != 2 {
		t.Errorf("Max = %g, want 2", got)
	}
}

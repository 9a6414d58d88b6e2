package distance

import (
	"math"
	"testing"

	"github.com/astrika/gocosmo/internal/cosmo"
)

// edsModel builds an XCDM model as close to Einstein-de Sitter as the
// parameter bounds allow: Omega_m = 1, no dark energy, radiation suppressed
// to the 1e-7 level by a cold photon temperature and zero neutrino species.
func edsModel(t *testing.T) *cosmo.XCDM {
	t.Helper()
	m := cosmo.NewXCDM(0)
	for name, v := range map[string]float64{
		"H0":      70,
		"Omegac":  0.99,
		"Omegab":  0.01,
		"Omegax":  0,
		"Tgamma0": 0.5,
		"ENnu":    0,
	} {
		if err := m.Params().SetByName(name, v); err != nil {
			t.Fatalf("SetByName(%s, %g): %v", name, v, err)
		}
	}
	return m
}

// edsComoving is the closed form for Omega_m = 1:
// D_C(z) = 2 (1 - 1/sqrt(1+z)).
func edsComoving(z float64) float64 {
	return 2 * (1 - 1/math.Sqrt(1+z))
}

func TestComoving_EinsteinDeSitter(t *testing.T) {
	m := edsModel(t)
	d := New(2.0)
	for _, z := range []float64{0, 0.01, 0.3, 0.5, 1, 1.5, 2} {
		got, err := d.Comoving(m, z)
		if err != nil {
			t.Fatalf("Comoving(%g): %v", z, err)
		}
		want := edsComoving(z)
		if math.Abs(got-want) > 1e-5 {
			t.Errorf("D_C(%g) = %.10f, want %.10f", z, got, want)
		}
	}
}

func TestComoving_ZeroAndNegative(t *testing.T) {
	m := edsModel(t)
	d := New(2.0)
	got, err := d.Comoving(m, 0)
	if err != nil {
		t.Fatalf("Comoving(0): %v", err)
	}
	if got != 0 {
		t.Errorf("D_C(0) = %g, want 0", got)
	}
	if _, err := d.Comoving(m, -0.1); err == nil {
		t.Error("expected error for negative redshift")
	}
}

func TestComoving_Monotone(t *testing.T) {
	m := cosmo.NewXCDM(0)
	d := New(2.0)
	prev := -1.0
	for z := 0.0; z <= 2.0; z += 0.05 {
		dc, err := d.Comoving(m, z)
		if err != nil {
			t.Fatalf("Comoving(%g): %v", z, err)
		}
		if dc <= prev {
			t.Fatalf("D_C not strictly increasing at z = %g: %g <= %g", z, dc, prev)
		}
		prev = dc
	}
}

func TestComoving_BeyondTable(t *testing.T) {
	// Queries past zMax take the quadrature tail; the result must agree
	// with a table that covers the redshift directly.
	m := edsModel(t)
	short := New(1.0)
	long := New(3.0)
	for _, z := range []float64{1.5, 2.5, 3.0} {
		a, err := short.Comoving(m, z)
		if err != nil {
			t.Fatalf("short table Comoving(%g): %v", z, err)
		}
		b, err := long.Comoving(m, z)
		if err != nil {
			t.Fatalf("long table Comoving(%g): %v", z, err)
		}
		if math.Abs(a-b) > 1e-6 {
			t.Errorf("tail vs table at z = %g: %.10f vs %.10f", z, a, b)
		}
	}
}

func TestPrepare_TracksParameterChanges(t *testing.T) {
	m := edsModel(t)
	d := New(2.0)
	before, err := d.Comoving(m, 1)
	if err != nil {
		t.Fatalf("Comoving: %v", err)
	}
	// Lowering H0 leaves the dimensionless D_C unchanged; changing the
	// matter density must rebuild the table and change the result.
	if err := m.Params().SetByName("Omegac", 0.5); err != nil {
		t.Fatalf("SetByName: %v", err)
	}
	after, err := d.Comoving(m, 1)
	if err != nil {
		t.Fatalf("Comoving after change: %v", err)
	}
	if after == before {
		t.Error("distance table not rebuilt after a parameter change")
	}
	if after <= before {
		t.Errorf("less matter should increase D_C: before %g, after %g", before, after)
	}
}

func TestTransverse_Flat(t *testing.T) {
	// Flat case: D_M = D_C exactly.
	m := edsModel(t)
	d := New(2.0)
	dc, err := d.Comoving(m, 1.3)
	if err != nil {
		t.Fatalf("Comoving: %v", err)
	}
	dm, err := d.Transverse(m, 1.3)
	if err != nil {
		t.Fatalf("Transverse: %v", err)
	}
	// OmegaT0 is 1 + Omega_r here, a hair closed; sin(x)/x differs from 1
	// at the 1e-8 level at most.
	if math.Abs(dm-dc) > 1e-7 {
		t.Errorf("D_M = %.12f, D_C = %.12f, want equal in the flat limit", dm, dc)
	}
}

func TestTransverse_Curved(t *testing.T) {
	m := cosmo.NewXCDM(0)
	d := New(2.0)

	// Open universe: Omega_x = 0 with Omega_m ~ 0.3 leaves Omega_k ~ 0.7,
	// and sinh expansion makes D_M > D_C.
	if err := m.Params().SetByName("Omegax", 0); err != nil {
		t.Fatalf("SetByName: %v", err)
	}
	dc, err := d.Comoving(m, 1)
	if err != nil {
		t.Fatalf("Comoving: %v", err)
	}
	dm, err := d.Transverse(m, 1)
	if err != nil {
		t.Fatalf("Transverse: %v", err)
	}
	if dm <= dc {
		t.Errorf("open universe: D_M = %g should exceed D_C = %g", dm, dc)
	}
	omegaK := 1 - m.OmegaT0()
	want := math.Sinh(math.Sqrt(omegaK)*dc) / math.Sqrt(omegaK)
	if math.Abs(dm-want) > 1e-12 {
		t.Errorf("D_M = %.15f, want %.15f", dm, want)
	}

	// Closed universe: plenty of dark energy, D_M < D_C.
	if err := m.Params().SetByName("Omegax", 1.5); err != nil {
		t.Fatalf("SetByName: %v", err)
	}
	dc, err = d.Comoving(m, 1)
	if err != nil {
		t.Fatalf("Comoving: %v", err)
	}
	dm, err = d.Transverse(m, 1)
	if err != nil {
		t.Fatalf("Transverse: %v", err)
	}
	if dm >= dc {
		t.Errorf("closed universe: D_M = %g should fall below D_C = %g", dm, dc)
	}
}

func TestDerivedDistances(t *testing.T) {
	m := edsModel(t)
	d := New(2.0)
	z := 1.0

	dm, err := d.Transverse(m, z)
	if err != nil {
		t.Fatalf("Transverse: %v", err)
	}
	dl, err := d.Luminosity(m, z)
	if err != nil {
		t.Fatalf("Luminosity: %v", err)
	}
	da, err := d.AngularDiameter(m, z)
	if err != nil {
		t.Fatalf("AngularDiameter: %v", err)
	}
	if math.Abs(dl-(1+z)*dm) > 1e-15 {
		t.Errorf("D_L = %g, want (1+z) D_M = %g", dl, (1+z)*dm)
	}
	if math.Abs(da-dm/(1+z)) > 1e-15 {
		t.Errorf("D_A = %g, want D_M/(1+z) = %g", da, dm/(1+z))
	}

	mu, err := d.Modulus(m, z)
	if err != nil {
		t.Fatalf("Modulus: %v", err)
	}
	want := 5*math.Log10(dl*m.RHMpc()) + 25
	if math.Abs(mu-want) > 1e-12 {
		t.Errorf("mu = %.12f, want %.12f", mu, want)
	}

	if _, err := d.Modulus(m, 0); err == nil {
		t.Error("expected error for the zero luminosity distance at z = 0")
	}
}

func TestNew_DefaultZMax(t *testing.T) {
	d := New(0)
	if d.ZMax() != 2.0 {
		t.Errorf("default ZMax = %g, want 2", d.ZMax())
	}
}

// Package distance computes cosmological distance measures as functions of
// redshift. A Distance is bound to a maximum redshift at construction and
// prepares a spline table of the comoving distance integral up to it; queries
// beyond the table fall back to direct quadrature.
package distance

import (
	"fmt"
	"math"

	"github.com/astrika/gocosmo/internal/constants"
	"github.com/astrika/gocosmo/internal/cosmo"
	"github.com/astrika/gocosmo/internal/quad"
	"github.com/astrika/gocosmo/internal/spline"
)

// Distance computes distance measures for a background model. It is cheap to
// construct; the spline table is built lazily on first query and rebuilt
// automatically when the model parameters change.
type Distance struct {
	zMax float64

	table    *spline.Spline
	forState uint64
	forName  string
}

// New creates a Distance optimized for queries up to redshift zMax.
func New(zMax float64) *Distance {
	if zMax <= 0 {
		zMax = constants.DefaultZMax
	}
	return &Distance{zMax: zMax}
}

// ZMax returns the maximum redshift the prepared table covers.
func (d *Distance) ZMax() float64 { return d.zMax }

// integrand is dD_C/dz in Hubble-radius units: 1/E(z).
func integrand(bg cosmo.Background) func(float64) float64 {
	return func(z float64) float64 {
		return 1 / math.Sqrt(bg.E2(z))
	}
}

// Prepare builds the comoving-distance table for bg. It is idempotent per
// parameter state; callers normally rely on the lazy call inside Comoving.
func (d *Distance) Prepare(bg cosmo.Background) error {
	state := bg.Params().State()
	if d.table != nil && d.forState == state && d.forName == bg.Name() {
		return nil
	}

	n := constants.DistanceTableNodes
	zs := make([]float64, n)
	ds := make([]float64, n)
	f := integrand(bg)

	acc := 0.0
	for i := 0; i < n; i++ {
		z := d.zMax * float64(i) / float64(n-1)
		zs[i] = z
		if i > 0 {
			seg, err := quad.Simpson(f, zs[i-1], z, quad.Config{})
			if err != nil {
				return fmt.Errorf("distance table at z = %g: %w", z, err)
			}
			acc += seg
		}
		ds[i] = acc
	}

	table, err := spline.Fit(zs, ds)
	if err != nil {
		return fmt.Errorf("fitting distance table: %w", err)
	}
	d.table = table
	d.forState = state
	d.forName = bg.Name()
	return nil
}

// Comoving returns the dimensionless comoving distance
// D_C(z) = integral_0^z dz'/E(z'). Multiply by bg.RHMpc() for Mpc.
func (d *Distance) Comoving(bg cosmo.Background, z float64) (float64, error) {
	if z < 0 {
		return 0, fmt.Errorf("distance: negative redshift %g", z)
	}
	if err := d.Prepare(bg); err != nil {
		return 0, err
	}
	if z <= d.zMax {
		return d.table.Eval(z)
	}
	// Beyond the table: prepared part plus a direct tail integral.
	head, err := d.table.Eval(d.zMax)
	if err != nil {
		return 0, err
	}
	tail, err := quad.Simpson(integrand(bg), d.zMax, z, quad.Config{})
	if err != nil {
		return 0, fmt.Errorf("distance tail to z = %g: %w", z, err)
	}
	return head + tail, nil
}

// Transverse returns the dimensionless transverse comoving distance D_M(z),
// accounting for spatial curvature from OmegaT0 != 1.
func (d *Distance) Transverse(bg cosmo.Background, z float64) (float64, error) {
	dc, err := d.Comoving(bg, z)
	if err != nil {
		return 0, err
	}
	omegaK := 1 - bg.OmegaT0()
	switch {
	case math.Abs(omegaK) < 1e-13:
		return dc, nil
	case omegaK > 0:
		sq := math.Sqrt(omegaK)
		return math.Sinh(sq*dc) / sq, nil
	default:
		sq := math.Sqrt(-omegaK)
		return math.Sin(sq*dc) / sq, nil
	}
}

// Luminosity returns the dimensionless luminosity distance D_L = (1+z) D_M.
func (d *Distance) Luminosity(bg cosmo.Background, z float64) (float64, error) {
	dm, err := d.Transverse(bg, z)
	if err != nil {
		return 0, err
	}
	return (1 + z) * dm, nil
}

// AngularDiameter returns the dimensionless angular diameter distance
// D_A = D_M / (1+z).
func (d *Distance) AngularDiameter(bg cosmo.Background, z float64) (float64, error) {
	dm, err := d.Transverse(bg, z)
	if err != nil {
		return 0, err
	}
	return dm / (1 + z), nil
}

// Modulus returns the distance modulus mu = 5 log10(D_L[Mpc]) + 25.
func (d *Distance) Modulus(bg cosmo.Background, z float64) (float64, error) {
	dl, err := d.Luminosity(bg, z)
	if err != nil {
		return 0, err
	}
	dlMpc := dl * bg.RHMpc()
	if dlMpc <= 0 {
		return 0, fmt.Errorf("distance: non-positive luminosity distance at z = %g", z)
	}
	return 5*math.Log10(dlMpc) + 25, nil
}

// Package perturb evolves adiabatic curvature perturbations on a bounce
// background in the alpha time variable, and provides the WKB semi-analytic
// solution used both for initial conditions and as a cross-check of the exact
// integration.
package perturb

import (
	"errors"
	"fmt"
	"math"

	"github.com/astrika/gocosmo/internal/constants"
	"github.com/astrika/gocosmo/internal/ode"
	"github.com/astrika/gocosmo/internal/quad"
	"github.com/astrika/gocosmo/internal/spline"
)

// AdiabBackground supplies the coefficients of the adiabatic mode equation
//
//	(m zeta')' + m nu^2 zeta = 0,   ' = d/dalpha
//
// for a comoving wavenumber k. Both must be positive and smooth over the
// integration range.
type AdiabBackground interface {
	// Mass returns the effective mass m(alpha).
	Mass(alpha float64) float64

	// Nu2 returns the squared frequency nu^2(k, alpha).
	Nu2(k, alpha float64) float64
}

// Sentinel errors for solver misuse and search failures.
var (
	// ErrNotPrepared is returned when Evolve or the WKB queries run before
	// Prepare.
	ErrNotPrepared = errors.New("perturb: solver not prepared")

	// ErrNoInitCond is returned when Evolve runs before SetInitCond.
	ErrNoInitCond = errors.New("perturb: initial conditions not set")

	// ErrNoWKBWindow is returned when no point in the search interval
	// satisfies the requested WKB precision.
	ErrNoWKBWindow = errors.New("perturb: WKB approximation nowhere valid to requested precision")
)

// phaseNodes is the number of spline nodes used for the WKB phase and
// amplitude tables over the prepared range.
const phaseNodes = 1024

// Adiab integrates one adiabatic mode. Construct with NewAdiab, configure,
// Prepare over the full alpha range, seed with SetInitCond, then advance with
// repeated Evolve calls.
//
// The exact integration runs in envelope variables factored against the WKB
// solution: zeta = A (1+u) e^{-i Theta} with A = 1/sqrt(2 m nu), where the
// Wronskian normalization fixes Theta' = nu/(1+u)^2 and u carries the slow
// amplitude deviation. All state components vary on the background timescale,
// so step sizes follow the background even when nu reaches ~1e8.
type Adiab struct {
	k      float64
	relTol float64
	absTol float64
	stiff  bool

	prepared bool
	alpha0   float64
	alpha1   float64
	phase    *spline.Spline // theta(alpha) = integral of nu
	lnMNu    *spline.Spline // ln(m*nu)(alpha), for amplitude and its derivative

	haveInit bool
	alpha    float64
	env      [3]float64 // Theta, u, u': phase and amplitude-deviation envelope
	y        [4]float64 // Re zeta, Im zeta, Re Pzeta, Im Pzeta at alpha

	stats ode.Stats
}

// NewAdiab returns a solver with default tolerances and k = 1.
func NewAdiab() *Adiab {
	return &Adiab{
		k:      1,
		relTol: constants.DefaultRelTol,
		absTol: constants.DefaultAbsTol,
	}
}

// SetModeK sets the comoving wavenumber. Invalidates preparation.
func (a *Adiab) SetModeK(k float64) {
	a.k = k
	a.prepared = false
	a.haveInit = false
}

// ModeK returns the comoving wavenumber.
func (a *Adiab) ModeK() float64 { return a.k }

// SetRelTol sets the relative tolerance for the exact integration.
func (a *Adiab) SetRelTol(tol float64) { a.relTol = tol }

// RelTol returns the relative tolerance.
func (a *Adiab) RelTol() float64 { return a.relTol }

// SetStiff selects the implicit BDF2 integrator instead of the explicit
// Dormand-Prince method. The envelope system carries fast transients at
// frequency 2 nu around its slow solution, so stiff integration is required
// whenever nu*h would exceed the explicit stability limit.
func (a *Adiab) SetStiff(on bool) { a.stiff = on }

// Stats returns cumulative integrator statistics across Evolve calls.
func (a *Adiab) Stats() ode.Stats { return a.stats }

// coeffs evaluates the slow background quantities at alpha: the frequency nu,
// the logarithmic frequency derivative dln(nu)/dalpha, and the WKB frequency
// correction delta, defined so that zeta = e^{-i theta}/sqrt(2 m nu) solves
// the mode equation exactly with nu^2 replaced by nu^2 + delta:
//
//	delta = g'^2/4 - g''/2 - mu g'/2,  g = ln(m nu), mu = (ln m)'
//
// Derivatives are central differences; the coefficients are smooth on unit
// alpha scales, so a fixed relative step balances truncation against
// round-off in the logs.
func (a *Adiab) coeffs(bg AdiabBackground, alpha float64) (nu, dLnNu, delta float64) {
	h := 1e-3 * math.Max(1, math.Abs(alpha))

	lm0 := math.Log(bg.Mass(alpha))
	lmP := math.Log(bg.Mass(alpha + h))
	lmM := math.Log(bg.Mass(alpha - h))
	g0 := lm0 + 0.5*math.Log(a.nu2(bg, alpha))
	gp := lmP + 0.5*math.Log(a.nu2(bg, alpha+h))
	gm := lmM + 0.5*math.Log(a.nu2(bg, alpha-h))

	gP := (gp - gm) / (2 * h)
	gPP := (gp - 2*g0 + gm) / (h * h)
	mu := (lmP - lmM) / (2 * h)

	nu = math.Sqrt(a.nu2(bg, alpha))
	dLnNu = gP - mu
	delta = gP*gP/4 - gPP/2 - mu*gP/2
	return nu, dLnNu, delta
}

// wkbErr is the dimensionless WKB validity measure at alpha: the frequency
// correction relative to the frequency itself, |delta| / nu^2. Small values
// mean the approximation is accurate; order unity means it has broken down.
func (a *Adiab) wkbErr(bg AdiabBackground, alpha float64) float64 {
	nu, _, delta := a.coeffs(bg, alpha)
	return math.Abs(delta) / (nu * nu)
}

func (a *Adiab) nu2(bg AdiabBackground, alpha float64) float64 {
	return bg.Nu2(a.k, alpha)
}

// WKBMaxtime returns the latest alpha in [alpha0, alpha1] where the WKB
// validity measure is still below unity, located by bisection. The measure is
// assumed to grow toward alpha1, which holds for bounce backgrounds where the
// mode leaves the oscillatory regime approaching the bounce.
func (a *Adiab) WKBMaxtime(bg AdiabBackground, alpha0, alpha1 float64) (float64, error) {
	return a.WKBMaxtimePrec(bg, 1, alpha0, alpha1)
}

// WKBMaxtimePrec returns the latest alpha in [alpha0, alpha1] where the WKB
// validity measure |delta|/nu^2 does not exceed prec.
func (a *Adiab) WKBMaxtimePrec(bg AdiabBackground, prec, alpha0, alpha1 float64) (float64, error) {
	if alpha1 < alpha0 {
		alpha0, alpha1 = alpha1, alpha0
	}
	if a.wkbErr(bg, alpha0) > prec {
		return 0, fmt.Errorf("%w: measure %.3e > %.3e at alpha = %g",
			ErrNoWKBWindow, a.wkbErr(bg, alpha0), prec, alpha0)
	}
	if a.wkbErr(bg, alpha1) <= prec {
		return alpha1, nil
	}
	lo, hi := alpha0, alpha1
	for i := 0; i < 200 && hi-lo > 1e-12*math.Max(1, math.Abs(hi)); i++ {
		mid := 0.5 * (lo + hi)
		if a.wkbErr(bg, mid) <= prec {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// Prepare builds the WKB phase and amplitude tables over [alpha0, alpha1]
// and records the range for subsequent evolution. wkbPrec is validated to be
// reachable somewhere in the range so SetInitCond has a usable window.
func (a *Adiab) Prepare(bg AdiabBackground, wkbPrec, alpha0, alpha1 float64) error {
	if alpha1 <= alpha0 {
		return fmt.Errorf("perturb: empty range [%g, %g]", alpha0, alpha1)
	}
	if wkbPrec > 0 {
		if _, err := a.WKBMaxtimePrec(bg, wkbPrec, alpha0, alpha1); err != nil {
			return fmt.Errorf("preparing mode k = %g: %w", a.k, err)
		}
	}

	xs := make([]float64, phaseNodes)
	theta := make([]float64, phaseNodes)
	lnMNu := make([]float64, phaseNodes)
	step := (alpha1 - alpha0) / float64(phaseNodes-1)

	nu := func(al float64) float64 { return math.Sqrt(a.nu2(bg, al)) }

	acc := 0.0
	for i := 0; i < phaseNodes; i++ {
		al := alpha0 + float64(i)*step
		xs[i] = al
		if i > 0 {
			seg, err := quad.Simpson(nu, xs[i-1], al, quad.Config{
				RelTol: 1e-10,
				AbsTol: 1e-14,
			})
			if err != nil {
				return fmt.Errorf("accumulating WKB phase near alpha = %g: %w", al, err)
			}
			acc += seg
		}
		theta[i] = acc
		lnMNu[i] = math.Log(bg.Mass(al) * nu(al))
	}

	var err error
	if a.phase, err = spline.Fit(xs, theta); err != nil {
		return fmt.Errorf("fitting phase table: %w", err)
	}
	if a.lnMNu, err = spline.Fit(xs, lnMNu); err != nil {
		return fmt.Errorf("fitting amplitude table: %w", err)
	}

	a.alpha0, a.alpha1 = alpha0, alpha1
	a.prepared = true
	a.haveInit = false
	a.stats = ode.Stats{}
	return nil
}

// WKBZetaPzeta returns the WKB solution (Re zeta, Im zeta, Re Pzeta,
// Im Pzeta) at alpha, normalized so the conserved Wronskian
// Im(conj(zeta) * Pzeta) equals -1/2.
func (a *Adiab) WKBZetaPzeta(bg AdiabBackground, alpha float64) (reZ, imZ, reP, imP float64, err error) {
	if !a.prepared {
		return 0, 0, 0, 0, ErrNotPrepared
	}
	theta, err := a.phase.Eval(alpha)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("WKB phase at alpha = %g: %w", alpha, err)
	}
	dLnMNu, err := a.lnMNu.Deriv(alpha)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("WKB amplitude at alpha = %g: %w", alpha, err)
	}

	m := bg.Mass(alpha)
	nu := math.Sqrt(a.nu2(bg, alpha))
	amp := 1 / math.Sqrt(2*m*nu)
	cosT, sinT := math.Cos(theta), math.Sin(theta)

	// zeta = amp * e^{-i theta}
	reZ = amp * cosT
	imZ = -amp * sinT

	// Pzeta = m zeta' = amp e^{-i theta} (c1 + i c2),
	// c1 = -m/2 dln(m nu)/dalpha (amplitude drift), c2 = -m nu (oscillation).
	c1 := -0.5 * m * dLnMNu
	c2 := -m * nu
	reP = amp * (c1*cosT + c2*sinT)
	imP = amp * (c2*cosT - c1*sinT)
	return reZ, imZ, reP, imP, nil
}

// reconstruct maps the envelope state back to (zeta, Pzeta) at a.alpha.
// With rho = 1+u and q = nu/rho^2 the reconstruction enforces the Wronskian
// Im(conj(zeta) Pzeta) = -m q (A rho)^2 = -1/2 identically.
func (a *Adiab) reconstruct(bg AdiabBackground) error {
	dLnMNu, err := a.lnMNu.Deriv(a.alpha)
	if err != nil {
		return fmt.Errorf("amplitude derivative at alpha = %g: %w", a.alpha, err)
	}
	m := bg.Mass(a.alpha)
	nu := math.Sqrt(a.nu2(bg, a.alpha))
	amp := 1 / math.Sqrt(2*m*nu)

	rho := 1 + a.env[1]
	r := amp * rho
	rP := amp * (a.env[2] - 0.5*dLnMNu*rho)
	q := nu / (rho * rho)
	cosT, sinT := math.Cos(a.env[0]), math.Sin(a.env[0])

	a.y[0] = r * cosT
	a.y[1] = -r * sinT
	a.y[2] = m * (rP*cosT - q*r*sinT)
	a.y[3] = -m * (rP*sinT + q*r*cosT)
	return nil
}

// SetInitCond seeds the exact state with the WKB solution at alphaI:
// Theta from the phase table, u = u' = 0.
func (a *Adiab) SetInitCond(bg AdiabBackground, alphaI float64) error {
	if !a.prepared {
		return ErrNotPrepared
	}
	theta, err := a.phase.Eval(alphaI)
	if err != nil {
		return fmt.Errorf("setting initial conditions: %w", err)
	}
	a.alpha = alphaI
	a.env = [3]float64{theta, 0, 0}
	if err := a.reconstruct(bg); err != nil {
		return fmt.Errorf("setting initial conditions: %w", err)
	}
	a.haveInit = true
	return nil
}

// Evolve advances the exact solution to alphaTarget. Repeated calls with
// increasing targets continue from the previous state.
//
// The integrated system is the envelope form of the mode equation:
//
//	Theta' = nu / rho^2
//	u''    = (ln nu)' u' + nu^2 (rho^{-3} - rho) - delta rho,  rho = 1+u
//
// which has the WKB solution as its u ~ -delta/(4 nu^2) quasi-equilibrium
// and reduces to the frozen super-horizon mode when nu^2 -> 0.
func (a *Adiab) Evolve(bg AdiabBackground, alphaTarget float64) error {
	if !a.prepared {
		return ErrNotPrepared
	}
	if !a.haveInit {
		return ErrNoInitCond
	}
	if alphaTarget == a.alpha {
		return nil
	}

	sys := func(al float64, y, dy []float64) {
		nu, dLnNu, delta := a.coeffs(bg, al)
		rho := 1 + y[1]
		dy[0] = nu / (rho * rho)
		dy[1] = y[2]
		// rho^{-3} - rho expanded in u: 1 - rho^4 = -u (2+u) (1+rho^2),
		// keeping the tiny residual of the near-WKB regime.
		dy[2] = dLnNu*y[2] - nu*nu*y[1]*(2+y[1])*(1+rho*rho)/(rho*rho*rho) - delta*rho
	}

	var integ ode.Integrator = ode.DormandPrince54{}
	if a.stiff {
		integ = ode.BDF2{}
	}

	// The envelope components are already measured against the WKB amplitude,
	// so the absolute floor tracks the relative tolerance.
	env := a.env[:]
	st, err := integ.Integrate(sys, a.alpha, alphaTarget, env, ode.Config{
		RelTol: a.relTol,
		AbsTol: math.Max(a.absTol, a.relTol),
	})
	a.stats.Steps += st.Steps
	a.stats.Rejected += st.Rejected
	a.stats.Evals += st.Evals
	a.stats.LastStep = st.LastStep
	if err != nil {
		return fmt.Errorf("evolving mode k = %g to alpha = %g: %w", a.k, alphaTarget, err)
	}
	a.alpha = alphaTarget
	return a.reconstruct(bg)
}

// Values returns the current time and exact state
// (alpha, Re zeta, Im zeta, Re Pzeta, Im Pzeta).
func (a *Adiab) Values() (alpha, reZ, imZ, reP, imP float64) {
	return a.alpha, a.y[0], a.y[1], a.y[2], a.y[3]
}

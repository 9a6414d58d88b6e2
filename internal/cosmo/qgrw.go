package cosmo

import (
	"fmt"
	"math"

	"github.com/astrika/gocosmo/internal/model"
)

// QGRW parameter indices, in declaration order.
const (
	QGRWParamH0 = iota
	QGRWParamOmegaR
	QGRWParamOmegaW
	QGRWParamW
	QGRWParamXB
)

// QGRW is a radiation + w-fluid background with a quantum bounce. The bounce
// replaces the big-bang singularity: the Friedmann equation carries a
// (1 - rho/rho_b) correction that drives H to zero when the total density
// reaches its bounce value.
//
// Time is parameterized by alpha, with x = a0/a following
//
//	x(alpha) = x_b * exp(-alpha^2 / 2)
//
// so alpha < 0 is the contracting branch, alpha = 0 the bounce, and
// alpha > 0 the expanding branch. x_b is the bounce value of x.
type QGRW struct {
	params *model.Params
}

// NewQGRW constructs a QGRW model with default parameters.
func NewQGRW() *QGRW {
	return &QGRW{params: model.NewParams([]model.ParamDesc{
		{Name: "H0", Symbol: "H_0", Default: 70, Lower: 10, Upper: 500},
		{Name: "Omegar", Symbol: "Omega_r", Default: 1e-5, Lower: 1e-12, Upper: 1},
		{Name: "Omegaw", Symbol: "Omega_w", Default: 1 - 1e-5, Lower: 1e-12, Upper: 2},
		{Name: "w", Symbol: "w", Default: 1e-12, Lower: 1e-14, Upper: 1},
		{Name: "xb", Symbol: "x_b", Default: 1e30, Lower: 1e10, Upper: 1e60},
	})}
}

func (m *QGRW) Name() string          { return "qgrw" }
func (m *QGRW) Params() *model.Params { return m.params }
func (m *QGRW) H0() float64           { return m.params.Get(QGRWParamH0) }
func (m *QGRW) RHMpc() float64        { return rhMpc(m.H0()) }

// OmegaT0 returns the total density parameter today.
func (m *QGRW) OmegaT0() float64 {
	return m.params.Get(QGRWParamOmegaR) + m.params.Get(QGRWParamOmegaW)
}

// density returns the total density factor rho(x)/rho_crit0 as a function of
// x = a0/a, in terms of logarithms to survive the enormous x range.
func (m *QGRW) density(x float64) float64 {
	w := m.params.Get(QGRWParamW)
	or := m.params.Get(QGRWParamOmegaR)
	ow := m.params.Get(QGRWParamOmegaW)
	lnx := math.Log(x)
	return or*math.Exp(4*lnx) + ow*math.Exp(3*(1+w)*lnx)
}

// E2 returns H^2/H0^2 with the bounce correction (1 - rho/rho_b).
func (m *QGRW) E2(z float64) float64 {
	x := 1 + z
	rho := m.density(x)
	rhoB := m.density(m.params.Get(QGRWParamXB))
	return rho * (1 - rho/rhoB)
}

// XAlpha returns x = a0/a at time alpha.
func (m *QGRW) XAlpha(alpha float64) float64 {
	xb := m.params.Get(QGRWParamXB)
	return xb * math.Exp(-alpha*alpha/2)
}

// AbsAlpha returns |alpha| such that XAlpha(alpha) = x. It fails for x above
// the bounce value x_b, which no trajectory reaches.
func (m *QGRW) AbsAlpha(x float64) (float64, error) {
	xb := m.params.Get(QGRWParamXB)
	if x <= 0 || x > xb {
		return 0, fmt.Errorf("qgrw: x = %g outside (0, x_b = %g]", x, xb)
	}
	return math.Sqrt(2 * math.Log(xb/x)), nil
}

// wTot returns the total equation of state p/rho at x.
func (m *QGRW) wTot(x float64) float64 {
	w := m.params.Get(QGRWParamW)
	or := m.params.Get(QGRWParamOmegaR)
	ow := m.params.Get(QGRWParamOmegaW)
	lnx := math.Log(x)
	rhoR := or * math.Exp(4*lnx)
	rhoW := ow * math.Exp(3*(1+w)*lnx)
	return (rhoR/3 + w*rhoW) / (rhoR + rhoW)
}

// cs2 returns the adiabatic two-fluid sound speed squared at x:
// the enthalpy-weighted mean of the component sound speeds.
func (m *QGRW) cs2(x float64) float64 {
	w := m.params.Get(QGRWParamW)
	or := m.params.Get(QGRWParamOmegaR)
	ow := m.params.Get(QGRWParamOmegaW)
	lnx := math.Log(x)
	hR := (4.0 / 3.0) * or * math.Exp(4*lnx)
	hW := (1 + w) * ow * math.Exp(3*(1+w)*lnx)
	return (hR/3 + w*hW) / (hR + hW)
}

// lnDensity returns ln(rho/rho_crit0) at ln x, summed in log space so the
// huge x range never overflows the component densities.
func (m *QGRW) lnDensity(lnx float64) float64 {
	w := m.params.Get(QGRWParamW)
	or := m.params.Get(QGRWParamOmegaR)
	ow := m.params.Get(QGRWParamOmegaW)
	a1 := math.Log(or) + 4*lnx
	a2 := math.Log(ow) + 3*(1+w)*lnx
	hi, lo := a1, a2
	if a2 > a1 {
		hi, lo = a2, a1
	}
	return hi + math.Log1p(math.Exp(lo-hi))
}

// bounceFactor returns 1 - rho(alpha)/rho_b via expm1 of the exact
// ln(x/x_b) = -alpha^2/2, so the alpha^2 suppression near the bounce
// survives round-off down to arbitrarily small alpha.
func (m *QGRW) bounceFactor(alpha float64) float64 {
	w := m.params.Get(QGRWParamW)
	or := m.params.Get(QGRWParamOmegaR)
	ow := m.params.Get(QGRWParamOmegaW)
	lnxb := math.Log(m.params.Get(QGRWParamXB))

	lam := -alpha * alpha / 2 // ln(x/x_b)
	lnRhoB := m.lnDensity(lnxb)
	frB := math.Exp(math.Log(or) + 4*lnxb - lnRhoB)
	fwB := math.Exp(math.Log(ow) + 3*(1+w)*lnxb - lnRhoB)
	return -(frB*math.Expm1(4*lam) + fwB*math.Expm1(3*(1+w)*lam))
}

// FAlpha returns E(alpha)/alpha, the smooth Hubble-like factor in alpha time.
// It is finite and positive through the bounce: near alpha = 0 the bounce
// factor vanishes like alpha^2, cancelling the 1/alpha^2.
func (m *QGRW) FAlpha(alpha float64) float64 {
	if alpha == 0 {
		// Limit: E^2 -> (dln rho/dln x)|_b / 2 * alpha^2 at the bounce.
		w := m.params.Get(QGRWParamW)
		or := m.params.Get(QGRWParamOmegaR)
		ow := m.params.Get(QGRWParamOmegaW)
		xb := m.params.Get(QGRWParamXB)
		lnxb := math.Log(xb)
		dRho := 4*or*math.Exp(4*lnxb) + 3*(1+w)*ow*math.Exp(3*(1+w)*lnxb)
		return math.Sqrt(dRho / 2)
	}
	lnx := math.Log(m.params.Get(QGRWParamXB)) - alpha*alpha/2
	lnRho := m.lnDensity(lnx)
	return math.Exp(lnRho/2) * math.Sqrt(m.bounceFactor(alpha)) / math.Abs(alpha)
}

// Mass returns the effective mass m(alpha) of the adiabatic mode:
// 3(1 + w_tot) / (2 c_s^2 F). Positive and smooth through the bounce.
func (m *QGRW) Mass(alpha float64) float64 {
	x := m.XAlpha(alpha)
	return 3 * (1 + m.wTot(x)) / (2 * m.cs2(x) * m.FAlpha(alpha))
}

// Nu2 returns the squared frequency of the adiabatic mode for comoving
// wavenumber k: c_s^2 k^2 x^2 / F^2.
func (m *QGRW) Nu2(k, alpha float64) float64 {
	x := m.XAlpha(alpha)
	f := m.FAlpha(alpha)
	return m.cs2(x) * k * k * x * x / (f * f)
}

func init() {
	model.Register("qgrw", func(model.Options) (model.Model, error) {
		return NewQGRW(), nil
	})
}

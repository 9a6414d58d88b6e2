package cosmo

import (
	"math"

	"github.com/astrika/gocosmo/internal/constants"
	"github.com/astrika/gocosmo/internal/model"
)

// Dark energy model parameter indices, in declaration order.
const (
	DEParamH0 = iota
	DEParamOmegaC
	DEParamOmegaX
	DEParamTGamma0
	DEParamOmegaB
	DEParamENnu
	DEParamW
)

// MassNu is the name of the neutrino mass vector parameter (eV per species).
const MassNu = "massnu"

func deParamDescs() []model.ParamDesc {
	return []model.ParamDesc{
		{Name: "H0", Symbol: "H_0", Default: 67.36, Lower: 10, Upper: 500},
		{Name: "Omegac", Symbol: "Omega_c", Default: 0.2568, Lower: 0, Upper: 1.2},
		{Name: "Omegax", Symbol: "Omega_x", Default: 0.7, Lower: 0, Upper: 2},
		{Name: "Tgamma0", Symbol: "T_gamma0", Default: constants.TCMB, Lower: 0.5, Upper: 10},
		{Name: "Omegab", Symbol: "Omega_b", Default: 0.0493, Lower: 0.01, Upper: 0.9},
		{Name: "ENnu", Symbol: "N_nu", Default: constants.NeffStandard, Lower: 0, Upper: 12},
		{Name: "w", Symbol: "w", Default: -1, Lower: -3, Upper: -1.0 / 3},
	}
}

// XCDM is a dark energy model with constant equation of state w. Massive
// neutrinos, when enabled via the massnu vector parameter, are treated as
// additional matter; this is the late-time limit and is accurate for the
// distance redshifts this model targets.
type XCDM struct {
	params *model.Params
}

// NewXCDM constructs an XCDM model with nMassNu massive neutrino species.
func NewXCDM(nMassNu int) *XCDM {
	p := model.NewParams(deParamDescs())
	if nMassNu > 0 {
		p.AddVector(model.ParamDesc{Name: MassNu, Symbol: "m_nu", Default: 0, Lower: 0, Upper: 10}, nMassNu)
	}
	return &XCDM{params: p}
}

func (m *XCDM) Name() string          { return "xcdm" }
func (m *XCDM) Params() *model.Params { return m.params }
func (m *XCDM) H0() float64           { return m.params.Get(DEParamH0) }
func (m *XCDM) RHMpc() float64        { return rhMpc(m.H0()) }

// OmegaNuMass returns the massive neutrino density parameter today.
func (m *XCDM) OmegaNuMass() float64 {
	n := m.params.VectorLen(MassNu)
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		v, _ := m.params.GetVectorComp(MassNu, i)
		sum += v
	}
	h := m.H0() / 100
	return sum / constants.NeutrinoMassConversion / (h * h)
}

// OmegaR returns the radiation density parameter today: photons plus the
// massless share of the neutrino background.
func (m *XCDM) OmegaR() float64 {
	og := omegaGamma(m.params.Get(DEParamTGamma0), m.H0())
	nMassless := m.params.Get(DEParamENnu) - float64(m.params.VectorLen(MassNu))
	if nMassless < 0 {
		nMassless = 0
	}
	return og * (1 + constants.NeutrinoPhotonRatio*nMassless)
}

// OmegaM returns the total matter density parameter today.
func (m *XCDM) OmegaM() float64 {
	return m.params.Get(DEParamOmegaC) + m.params.Get(DEParamOmegaB) + m.OmegaNuMass()
}

// OmegaT0 returns the total density parameter today.
func (m *XCDM) OmegaT0() float64 {
	return m.OmegaM() + m.OmegaR() + m.params.Get(DEParamOmegaX)
}

// E2 returns H(z)^2/H0^2 including curvature from OmegaT0 != 1.
func (m *XCDM) E2(z float64) float64 {
	x := 1 + z
	w := m.params.Get(DEParamW)
	omegaK := 1 - m.OmegaT0()
	return m.OmegaR()*x*x*x*x +
		m.OmegaM()*x*x*x +
		omegaK*x*x +
		m.params.Get(DEParamOmegaX)*math.Pow(x, 3*(1+w))
}

// LCDM is XCDM with the equation of state pinned at w = -1. It shares the
// parameter layout so callers can treat the two interchangeably.
type LCDM struct {
	XCDM
}

// NewLCDM constructs an LCDM model with nMassNu massive neutrino species.
func NewLCDM(nMassNu int) *LCDM {
	return &LCDM{XCDM: *NewXCDM(nMassNu)}
}

func (m *LCDM) Name() string { return "lcdm" }

// E2 for LCDM ignores the stored w and uses -1.
func (m *LCDM) E2(z float64) float64 {
	x := 1 + z
	omegaK := 1 - m.OmegaT0()
	return m.OmegaR()*x*x*x*x +
		m.OmegaM()*x*x*x +
		omegaK*x*x +
		m.params.Get(DEParamOmegaX)
}

func init() {
	model.Register("xcdm", func(opts model.Options) (model.Model, error) {
		return NewXCDM(opts.VectorLens[MassNu]), nil
	})
	model.Register("lcdm", func(opts model.Options) (model.Model, error) {
		return NewLCDM(opts.VectorLens[MassNu]), nil
	})
}

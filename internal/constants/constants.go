// Package constants provides physical and numerical constants used throughout
// the gocosmo codebase. This centralizes magic numbers for better
// maintainability and documentation.
package constants

// Physical constants (SI unless noted).
const (
	// SpeedOfLightKmS is the speed of light in km/s.
	SpeedOfLightKmS = 299792.458

	// MpcMeters is one megaparsec in meters.
	MpcMeters = 3.085677581491367e22

	// TCMB is the FIRAS CMB temperature in Kelvin, used as the reference
	// temperature for photon density ratios.
	TCMB = 2.7255
)

// Density parameter coefficients. Radiation densities scale with the photon
// temperature today; the reference values below are quoted at TCMB and h = 1.
const (
	// OmegaGammaH2 is the photon density parameter times h^2 at T = TCMB.
	OmegaGammaH2 = 2.469e-5

	// NeffStandard is the standard-model effective number of neutrino species.
	NeffStandard = 3.046

	// NeutrinoPhotonRatio is the energy density ratio of one massless
	// neutrino species to photons: (7/8)(4/11)^(4/3).
	NeutrinoPhotonRatio = 0.2271073

	// NeutrinoMassConversion converts a neutrino mass sum in eV to
	// Omega_nu h^2: Omega_nu h^2 = sum(m_nu) / NeutrinoMassConversion.
	NeutrinoMassConversion = 93.14
)

// Default numerical tolerances for the solvers. Individual solvers accept
// per-call overrides; these are the values used when nothing is configured.
const (
	// DefaultRelTol is the default relative tolerance for ODE integration
	// and quadrature.
	DefaultRelTol = 1e-8

	// DefaultAbsTol is the default absolute tolerance floor. Perturbation
	// amplitudes span many orders of magnitude, so this is kept small.
	DefaultAbsTol = 1e-30

	// DefaultWKBPrec is the default precision target when searching for the
	// latest time where the WKB approximation is still valid.
	DefaultWKBPrec = 1e-7

	// MaxODESteps is the default cap on integration steps before the solver
	// gives up and reports divergence.
	MaxODESteps = 10_000_000
)

// Distance table construction.
const (
	// DistanceTableNodes is the number of spline nodes used when preparing a
	// comoving distance table up to ZMax.
	DistanceTableNodes = 512

	// DefaultZMax is the default maximum redshift for a prepared distance
	// table when the caller does not specify one.
	DefaultZMax = 2.0
)

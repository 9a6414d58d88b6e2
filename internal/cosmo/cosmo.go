// Package cosmo implements homogeneous and isotropic cosmological background
// models: LCDM, XCDM constant-w dark energy, and the QGRW radiation + w-fluid
// bounce model used by the perturbation solver.
package cosmo

import (
	"github.com/astrika/gocosmo/internal/constants"
	"github.com/astrika/gocosmo/internal/model"
)

// Background is the surface shared by every expanding background model.
// Distances and growth integrals only ever need the normalized Hubble
// function E(z) = H(z)/H0 and the Hubble scale.
type Background interface {
	model.Model

	// H0 returns the Hubble constant in km/s/Mpc.
	H0() float64

	// E2 returns the squared normalized Hubble function H(z)^2 / H0^2.
	E2(z float64) float64

	// RHMpc returns the Hubble radius c/H0 in Mpc.
	RHMpc() float64

	// OmegaT0 returns the total density parameter today.
	OmegaT0() float64
}

// rhMpc computes the Hubble radius in Mpc for a Hubble constant in km/s/Mpc.
func rhMpc(h0 float64) float64 {
	return constants.SpeedOfLightKmS / h0
}

// omegaGamma returns the photon density parameter for a photon temperature
// tgamma0 (K) and Hubble constant h0 (km/s/Mpc).
func omegaGamma(tgamma0, h0 float64) float64 {
	h := h0 / 100
	t := tgamma0 / constants.TCMB
	return constants.OmegaGammaH2 / (h * h) * t * t * t * t
}

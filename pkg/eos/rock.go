package eos

import (
	"math"

	"github.com/soletide/hydrostat/pkg/body"
)

// Silicate mantle fit constants, representative of a hydrated chondritic
// mantle.
const (
	rockVersion = "rock-v1"

	rockRho0    = 3300.0   // kg/m^3
	rockBulkMod = 1.31e5   // MPa
	rockAlpha   = 2.4e-5   // 1/K
	rockCp      = 920.0    // J/(kg K)
	rockKTherm  = 4.0      // W/(m K)
	rockTRef    = 300.0    // K
	rockVP0     = 8000.0   // m/s
	rockVS0     = 4500.0   // m/s
	rockQ       = 600.0    // dry-mantle quality factor
	rockPMax    = 4.0e4    // MPa
	rockTMax    = 2500.0   // K
	rockSigma0  = 3.0e1    // S/m, Arrhenius prefactor
	rockSigmaEa = 0.8      // eV, activation energy
	boltzmannEV = 8.617e-5 // eV/K
)

// SilicateProvider is the parametric EOS for the rocky mantle.
type SilicateProvider struct{}

// NewSilicateProvider creates the mantle provider.
func NewSilicateProvider() *SilicateProvider { return &SilicateProvider{} }

// Version implements Provider.
func (s *SilicateProvider) Version() string { return rockVersion }

// Lookup implements Provider.
func (s *SilicateProvider) Lookup(p, t float64, phase body.Phase) (Properties, error) {
	if phase != body.PhaseSilicate || p < 0 || p > rockPMax || t <= 0 || t > rockTMax {
		return Properties{}, OutOfRange(p, t, phase)
	}
	rho := rockRho0 * (1 + p/rockBulkMod - rockAlpha*(t-rockTRef))
	// Velocities stiffen mildly with compression.
	vp := rockVP0 * (1 + 0.04*p/rockBulkMod*100)
	vs := rockVS0 * (1 + 0.03*p/rockBulkMod*100)
	// Semiconduction: Arrhenius in temperature, insulating when cold.
	sigma := rockSigma0 * math.Exp(-rockSigmaEa/(boltzmannEV*t))
	return Properties{
		Density:             rho,
		Expansivity:         rockAlpha,
		HeatCapacity:        rockCp,
		ThermalConductivity: rockKTherm,
		VP:                  vp,
		VS:                  vs,
		AttenuationQ:        rockQ,
		Conductivity:        sigma,
	}, nil
}

var _ Provider = (*SilicateProvider)(nil)

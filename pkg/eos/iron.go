package eos

import (
	"fmt"

	"github.com/soletide/hydrostat/pkg/body"
)

// Iron core fit constants.
const (
	ironVersion = "iron-v1"

	rhoFe  = 8000.0 // kg/m^3, pure iron at core conditions
	rhoFeS = 5150.0 // kg/m^3, iron sulfide end member

	ironBulkMod = 1.7e5  // MPa
	ironAlpha   = 1.2e-5 // 1/K
	ironCp      = 800.0  // J/(kg K)
	ironKTherm  = 30.0   // W/(m K)
	ironTRef    = 300.0  // K
	ironVP0     = 5500.0 // m/s
	ironVS0     = 3000.0 // m/s
	ironQ       = 400.0
	ironSigma   = 1.0e6 // S/m, metallic
	ironPMax    = 1.0e5 // MPa
	ironTMax    = 4000.0

	// DefaultSulfurFraction is the assumed FeS mole fraction of the core
	// when configuration does not specify one.
	DefaultSulfurFraction = 0.2
)

// IronProvider is the parametric EOS for an Fe/FeS core with a fixed
// sulfide fraction.
type IronProvider struct {
	xFeS float64 // FeS mole fraction in [0,1]
}

// NewIronProvider creates a core provider with the given FeS fraction.
func NewIronProvider(xFeS float64) *IronProvider {
	return &IronProvider{xFeS: xFeS}
}

// Version implements Provider.
func (c *IronProvider) Version() string {
	return fmt.Sprintf("%s/x%.3f", ironVersion, c.xFeS)
}

// BulkDensity returns the zero-pressure two-component mixture density for
// the provider's sulfide fraction (Vance et al. 2014, eq. 10).
func (c *IronProvider) BulkDensity() float64 {
	return rhoFeS * rhoFe / (c.xFeS*(rhoFe-rhoFeS) + rhoFeS)
}

// Lookup implements Provider.
func (c *IronProvider) Lookup(p, t float64, phase body.Phase) (Properties, error) {
	if phase != body.PhaseIron || p < 0 || p > ironPMax || t <= 0 || t > ironTMax {
		return Properties{}, OutOfRange(p, t, phase)
	}
	rho := c.BulkDensity() * (1 + p/ironBulkMod - ironAlpha*(t-ironTRef))
	return Properties{
		Density:             rho,
		Expansivity:         ironAlpha,
		HeatCapacity:        ironCp,
		ThermalConductivity: ironKTherm,
		VP:                  ironVP0,
		VS:                  ironVS0,
		AttenuationQ:        ironQ,
		Conductivity:        ironSigma,
	}, nil
}

var _ Provider = (*IronProvider)(nil)

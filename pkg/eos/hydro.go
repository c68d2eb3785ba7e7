package eos

import (
	"fmt"
	"math"

	"github.com/soletide/hydrostat/pkg/body"
)

// hydroVersion identifies the hydrosphere fit revision. Bump whenever any
// coefficient below changes, so cached profiles are invalidated.
const hydroVersion = "hydro-v1"

// Valid domain of the hydrosphere fits.
const (
	hydroPMin = 0.0    // MPa
	hydroPMax = 2500.0 // MPa, roughly the ice VI ceiling of the fits
	hydroTMin = 50.0   // K, cold enough for airless-moon surfaces
	hydroTMax = 450.0  // K
)

// Liquid-water fit coefficients.
const (
	liquidRho0     = 999.8  // kg/m^3 at reference state
	liquidBulkMod  = 2200.0 // MPa
	liquidAlpha0   = 2.1e-4 // 1/K at reference temperature
	liquidAlphaDT  = 9.0e-6 // d(alpha)/dT, 1/K^2
	liquidTRef     = 277.0  // K, density maximum of pure water
	liquidCp0      = 4182.0 // J/(kg K)
	liquidKTherm   = 0.56   // W/(m K)
	liquidQ        = 1.0e4  // effectively lossless for body waves
	brineRhoPerPPT = 0.76   // kg/m^3 density increase per g/kg salt
	brineCpPerPPT  = 5.4    // J/(kg K) heat-capacity drop per g/kg salt
)

// Brine electrical conductivity fit: near-linear in salinity with a mild
// temperature coefficient, anchored to standard seawater at 0 C.
const (
	sigmaPureWater = 5.5e-6 // S/m
	sigmaPerPPT    = 0.0842 // S/m per g/kg at 273 K
	sigmaTCoeff    = 0.02   // fractional increase per K above 273 K
)

// icePhaseParams are per-polymorph fit constants.
type icePhaseParams struct {
	rho0    float64 // kg/m^3 at zero pressure, reference temperature
	bulkMod float64 // MPa
	alpha   float64 // 1/K
	cp      float64 // J/(kg K)
	kTherm  float64 // W/(m K), reference value
	vp      float64 // m/s
	vs      float64 // m/s
	tRef    float64 // K, nominal melting temperature for the Q scaling
}

// Constants follow laboratory compilations for the H2O polymorphs.
var iceParams = map[body.Phase]icePhaseParams{
	body.PhaseIceIh:  {rho0: 917.0, bulkMod: 9500, alpha: 1.6e-4, cp: 2100, kTherm: 2.3, vp: 3890, vs: 1970, tRef: 273.2},
	body.PhaseIceII:  {rho0: 1170.0, bulkMod: 14200, alpha: 1.3e-4, cp: 2040, kTherm: 1.9, vp: 4460, vs: 2350, tRef: 248.0},
	body.PhaseIceIII: {rho0: 1140.0, bulkMod: 9600, alpha: 1.8e-4, cp: 2090, kTherm: 1.2, vp: 4170, vs: 2070, tRef: 256.2},
	body.PhaseIceV:   {rho0: 1230.0, bulkMod: 13300, alpha: 1.5e-4, cp: 2060, kTherm: 1.3, vp: 4560, vs: 2490, tRef: 273.3},
	body.PhaseIceVI:  {rho0: 1310.0, bulkMod: 17000, alpha: 1.4e-4, cp: 2030, kTherm: 1.6, vp: 4890, vs: 2600, tRef: 355.0},
}

// Seismic attenuation scaling for ices: Q grows as the state cools below
// the melting point.
const (
	iceQRef   = 120.0
	iceQGamma = 6.0
)

// HydroProvider is the parametric EOS for liquid/brine ocean water and the
// H2O ice polymorphs at a fixed salinity.
//
// The fits are first-order in pressure (linear compressibility) and
// temperature, which is adequate for hydrosphere pressures below the ice VI
// ceiling. Out-of-domain states return EOS_OUT_OF_RANGE rather than
// extrapolating.
type HydroProvider struct {
	salinity float64 // g/kg
}

// NewHydroProvider creates a hydrosphere provider for the given salinity in
// g/kg. Salinity zero gives pure water.
func NewHydroProvider(salinity float64) *HydroProvider {
	return &HydroProvider{salinity: salinity}
}

// Salinity returns the dissolved-salt content in g/kg.
func (h *HydroProvider) Salinity() float64 { return h.salinity }

// Version implements Provider.
func (h *HydroProvider) Version() string {
	return fmt.Sprintf("%s/w%.3f", hydroVersion, h.salinity)
}

// Lookup implements Provider.
func (h *HydroProvider) Lookup(p, t float64, phase body.Phase) (Properties, error) {
	if p < hydroPMin || p > hydroPMax || t < hydroTMin || t > hydroTMax {
		return Properties{}, OutOfRange(p, t, phase)
	}
	switch {
	case phase == body.PhaseLiquid:
		return h.liquid(p, t), nil
	case phase.IsIce():
		return h.ice(p, t, phase)
	default:
		return Properties{}, OutOfRange(p, t, phase)
	}
}

func (h *HydroProvider) liquid(p, t float64) Properties {
	alpha := liquidAlpha0 + liquidAlphaDT*(t-liquidTRef)
	rho := liquidRho0*(1+p/liquidBulkMod-alpha*(t-liquidTRef)) + brineRhoPerPPT*h.salinity
	cp := liquidCp0 - brineCpPerPPT*h.salinity
	sigma := sigmaPureWater + sigmaPerPPT*h.salinity*(1+sigmaTCoeff*(t-273.15))
	return Properties{
		Density:             rho,
		Expansivity:         alpha,
		HeatCapacity:        cp,
		ThermalConductivity: liquidKTherm,
		VP:                  math.Sqrt(liquidBulkMod * body.PaPerMPa / rho),
		VS:                  0,
		AttenuationQ:        liquidQ,
		Conductivity:        sigma,
	}
}

func (h *HydroProvider) ice(p, t float64, phase body.Phase) (Properties, error) {
	par, ok := iceParams[phase]
	if !ok {
		return Properties{}, OutOfRange(p, t, phase)
	}
	rho := par.rho0 * (1 + p/par.bulkMod - par.alpha*(t-par.tRef))
	// Homologous-temperature scaling: attenuation rises steeply as the ice
	// approaches its melting temperature.
	q := iceQRef * math.Exp(iceQGamma*(par.tRef/t-1))
	// Solid H2O is a poor conductor; salt has no solubility in the lattice.
	const iceSigma = 1.0e-9
	return Properties{
		Density:             rho,
		Expansivity:         par.alpha,
		HeatCapacity:        par.cp,
		ThermalConductivity: par.kTherm * 273.0 / t, // Andersson-style 1/T dependence
		VP:                  par.vp,
		VS:                  par.vs,
		AttenuationQ:        q,
		Conductivity:        iceSigma,
	}, nil
}

var _ Provider = (*HydroProvider)(nil)

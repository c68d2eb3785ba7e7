// Package body defines the data model for one-dimensional planetary
// interior structure runs.
//
// A run is described by a set of [BoundaryConstraints] (the observed globals
// the model must reproduce), an ordered stack of [LayerSpec] values (the
// materials composing the body from the surface inward), and produces a
// [Profile]: a radius-ordered sequence of thermodynamic states with derived
// seismic and electrical properties.
//
// Conventions used throughout:
//   - pressure in MPa
//   - temperature in K
//   - length in m, mass in kg, density in kg/m^3
//   - gravity in m/s^2
//   - electrical conductivity in S/m
//
// All types in this package are plain data. Construction happens once per
// run from external configuration; nothing here performs I/O.
package body

// Physical constants.
const (
	// GravConst is the Newtonian constant of gravitation in m^3/(kg s^2).
	GravConst = 6.674e-11

	// PaPerMPa converts MPa to Pa.
	PaPerMPa = 1.0e6
)

// Phase identifies the material phase governing a layer region.
//
// Numbering follows the common hydrosphere convention: 0 is liquid, small
// positive integers are the ice polymorphs by their roman numeral, and
// large values mark non-hydrosphere materials.
type Phase int

// Phase values.
const (
	PhaseLiquid   Phase = 0
	PhaseIceIh    Phase = 1
	PhaseIceII    Phase = 2
	PhaseIceIII   Phase = 3
	PhaseIceV     Phase = 5
	PhaseIceVI    Phase = 6
	PhaseSilicate Phase = 50
	PhaseIron     Phase = 100
)

// String returns a short human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseLiquid:
		return "liquid"
	case PhaseIceIh:
		return "ice-Ih"
	case PhaseIceII:
		return "ice-II"
	case PhaseIceIII:
		return "ice-III"
	case PhaseIceV:
		return "ice-V"
	case PhaseIceVI:
		return "ice-VI"
	case PhaseSilicate:
		return "silicate"
	case PhaseIron:
		return "iron"
	default:
		return "unknown"
	}
}

// IsIce reports whether the phase is a solid H2O polymorph.
func (p Phase) IsIce() bool {
	switch p {
	case PhaseIceIh, PhaseIceII, PhaseIceIII, PhaseIceV, PhaseIceVI:
		return true
	}
	return false
}

// Composition labels the material family a layer is made of.
// It selects which EOS provider answers lookups for the layer.
type Composition string

// Supported compositions.
const (
	CompWater    Composition = "water"    // pure H2O hydrosphere
	CompSeawater Composition = "seawater" // saline hydrosphere
	CompSilicate Composition = "silicate" // hydrated rock mantle
	CompIron     Composition = "iron"     // Fe/FeS core
)

// ThermalModel selects how temperature evolves with depth inside a layer.
type ThermalModel string

// Thermal model choices.
const (
	// ThermalAdiabatic follows the adiabatic gradient
	// dT = alpha*T/(rho*Cp) dP, appropriate for convecting fluids.
	ThermalAdiabatic ThermalModel = "adiabatic"

	// ThermalConductive follows a conductive profile parameterized by the
	// heat flux leaving the top of the layer and internal heating.
	ThermalConductive ThermalModel = "conductive"
)

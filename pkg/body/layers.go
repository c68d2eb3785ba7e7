package body

import "fmt"

// LayerSpec describes one radially contiguous layer of the stack, ordered
// surface-first. Some fields are fixed inputs; fields flagged free are the
// unknowns the constraint solver searches over.
type LayerSpec struct {
	// Name identifies the layer in logs, errors and parameter vectors.
	Name string `json:"name" toml:"name"`

	// Composition selects the EOS provider and phase fields for the layer.
	Composition Composition `json:"composition" toml:"composition"`

	// Thermal selects the in-layer temperature profile. Empty defaults to
	// adiabatic for liquids and conductive for solid shells.
	Thermal ThermalModel `json:"thermal,omitempty" toml:"thermal"`

	// Salinity is the dissolved salt mass fraction in g/kg for hydrosphere
	// layers. Ignored for silicate and iron compositions.
	Salinity float64 `json:"salinity_gkg,omitempty" toml:"salinity_gkg"`

	// BottomTemperature is the assumed temperature at the bottom of a
	// melting-bounded shell in K (the ice/ocean interface temperature).
	// For an outer ice shell this single value fixes the shell thickness
	// through the melting curve; marking the layer Free lets the solver
	// adjust it instead.
	BottomTemperature float64 `json:"bottom_temperature_k,omitempty" toml:"bottom_temperature_k"`

	// Thickness fixes the layer extent in m. Zero means the extent is
	// determined by a phase boundary (hydrosphere) or by the solver
	// (interior layers).
	Thickness float64 `json:"thickness_m,omitempty" toml:"thickness_m"`

	// Density gives a constant density in kg/m^3 for interior layers
	// modeled without a tabulated EOS. Zero means query the EOS.
	Density float64 `json:"density_kgm3,omitempty" toml:"density_kgm3"`

	// HeatFlux is the heat flux leaving the top of a conductive layer in
	// W/m^2.
	HeatFlux float64 `json:"heat_flux_wm2,omitempty" toml:"heat_flux_wm2"`

	// InternalHeating is the combined radiogenic and tidal heating rate in
	// W/kg for conductive layers.
	InternalHeating float64 `json:"internal_heating_wkg,omitempty" toml:"internal_heating_wkg"`

	// Free marks the layer's governing parameter as a solver unknown.
	Free bool `json:"free,omitempty" toml:"free"`
}

// Validate reports whether the spec is usable.
func (ls LayerSpec) Validate() error {
	if ls.Name == "" {
		return fmt.Errorf("layer name is required")
	}
	switch ls.Composition {
	case CompWater, CompSeawater, CompSilicate, CompIron:
	default:
		return fmt.Errorf("layer %q: unknown composition %q", ls.Name, ls.Composition)
	}
	switch ls.Thermal {
	case "", ThermalAdiabatic, ThermalConductive:
	default:
		return fmt.Errorf("layer %q: unknown thermal model %q", ls.Name, ls.Thermal)
	}
	if ls.Salinity < 0 {
		return fmt.Errorf("layer %q: negative salinity", ls.Name)
	}
	if ls.Thickness < 0 {
		return fmt.Errorf("layer %q: negative thickness", ls.Name)
	}
	if ls.Density < 0 {
		return fmt.Errorf("layer %q: negative density", ls.Name)
	}
	return nil
}

// ThermalOrDefault returns the explicit thermal model, or the conventional
// default for the composition: adiabatic in fluids, conductive elsewhere.
func (ls LayerSpec) ThermalOrDefault() ThermalModel {
	if ls.Thermal != "" {
		return ls.Thermal
	}
	switch ls.Composition {
	case CompWater, CompSeawater:
		return ThermalAdiabatic
	default:
		return ThermalConductive
	}
}

// ValidateStack checks an ordered surface-first stack as a whole.
func ValidateStack(specs []LayerSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("layer stack is empty")
	}
	seen := make(map[string]bool, len(specs))
	for _, ls := range specs {
		if err := ls.Validate(); err != nil {
			return err
		}
		if seen[ls.Name] {
			return fmt.Errorf("duplicate layer name %q", ls.Name)
		}
		seen[ls.Name] = true
	}
	return nil
}

// ParameterVector holds the current guess for all free layer unknowns,
// keyed by parameter name (layer name plus the field it controls, e.g.
// "shell.bottom_temperature_k"). It is owned and mutated by the solver.
type ParameterVector map[string]float64

// Clone returns an independent copy.
func (pv ParameterVector) Clone() ParameterVector {
	out := make(ParameterVector, len(pv))
	for k, v := range pv {
		out[k] = v
	}
	return out
}

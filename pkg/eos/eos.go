// Package eos defines the equation-of-state provider interface the structure
// solver consumes, plus parametric in-repo implementations for hydrosphere,
// silicate, and iron-core materials.
//
// The core packages depend only on the [Provider] and [Source] interfaces,
// so tabulated backends, parametric fits, and external-process lookups are
// interchangeable. Providers must be safe for concurrent use: solver trials
// evaluate in parallel and share a Source.
//
// A lookup outside a provider's valid (P,T) domain returns an error carrying
// errors.ErrCodeEOSOutOfRange. The solver treats that as "this trial is
// infeasible", not as a fatal failure.
package eos

import (
	"fmt"
	"sync"

	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/errors"
)

// Properties bundles everything an EOS lookup returns for one (P,T,phase)
// state. Units follow the conventions of package body.
type Properties struct {
	// Density in kg/m^3.
	Density float64 `json:"density_kgm3"`

	// Expansivity is the volumetric thermal expansivity alpha in 1/K.
	Expansivity float64 `json:"expansivity_pk"`

	// HeatCapacity is the isobaric specific heat Cp in J/(kg K).
	HeatCapacity float64 `json:"heat_capacity_jkgk"`

	// ThermalConductivity in W/(m K).
	ThermalConductivity float64 `json:"thermal_conductivity_wmk"`

	// VP and VS are the seismic wave speeds in m/s. VS is zero in fluids.
	VP float64 `json:"vp_ms"`
	VS float64 `json:"vs_ms"`

	// AttenuationQ is the dimensionless seismic quality factor.
	AttenuationQ float64 `json:"attenuation_q"`

	// Conductivity is the electrical conductivity in S/m.
	Conductivity float64 `json:"conductivity_sm"`
}

// Provider answers property lookups for one material (one composition at a
// fixed dissolved-salt content). Implementations must be pure with respect
// to their inputs and safe for concurrent use.
type Provider interface {
	// Lookup evaluates material properties at pressure p (MPa) and
	// temperature t (K) for the given phase. A state outside the valid
	// domain returns an error with code EOS_OUT_OF_RANGE.
	Lookup(p, t float64, phase body.Phase) (Properties, error)

	// Version identifies the provider formulation and its parameters.
	// It feeds the profile-cache fingerprint: two providers with equal
	// versions must answer every lookup identically.
	Version() string
}

// Source supplies a Provider for each layer of a stack. A Source owns
// provider construction (which may be expensive for tabulated backends) and
// may cache constructed providers across trials.
type Source interface {
	// Provider returns the provider for the given layer.
	Provider(spec body.LayerSpec) (Provider, error)

	// Version identifies all table/fit revisions the source can hand out.
	Version() string
}

// OutOfRange constructs the standard out-of-domain lookup error.
func OutOfRange(p, t float64, phase body.Phase) error {
	return errors.New(errors.ErrCodeEOSOutOfRange,
		"state (%.3f MPa, %.2f K, %s) outside EOS domain", p, t, phase)
}

// IsOutOfRange reports whether err is an out-of-domain lookup error.
func IsOutOfRange(err error) bool {
	return errors.Is(err, errors.ErrCodeEOSOutOfRange)
}

// ParametricSource hands out the built-in parametric providers. Hydrosphere
// providers are constructed per salinity and reused across trials.
type ParametricSource struct {
	mu    sync.Mutex
	hydro map[float64]*HydroProvider

	rock *SilicateProvider
	iron *IronProvider
}

// NewParametricSource creates a source backed by the built-in fits.
func NewParametricSource() *ParametricSource {
	return &ParametricSource{
		hydro: make(map[float64]*HydroProvider),
		rock:  NewSilicateProvider(),
		iron:  NewIronProvider(DefaultSulfurFraction),
	}
}

// Provider returns the parametric provider for the layer's composition.
func (s *ParametricSource) Provider(spec body.LayerSpec) (Provider, error) {
	switch spec.Composition {
	case body.CompWater, body.CompSeawater:
		s.mu.Lock()
		defer s.mu.Unlock()
		hp, ok := s.hydro[spec.Salinity]
		if !ok {
			hp = NewHydroProvider(spec.Salinity)
			s.hydro[spec.Salinity] = hp
		}
		return hp, nil
	case body.CompSilicate:
		return s.rock, nil
	case body.CompIron:
		return s.iron, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidLayer,
			"no EOS provider for composition %q", spec.Composition)
	}
}

// Version identifies the parametric formulation set.
func (s *ParametricSource) Version() string {
	return fmt.Sprintf("parametric/%s+%s+%s", hydroVersion, s.rock.Version(), s.iron.Version())
}

var _ Source = (*ParametricSource)(nil)

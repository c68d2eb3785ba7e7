package body

import (
	"fmt"
	"math"
)

// BoundaryConstraints are the observed global quantities a converged model
// must reproduce, plus the surface conditions integration starts from.
// Immutable once a run begins.
type BoundaryConstraints struct {
	// TotalMass is the target body mass in kg.
	TotalMass float64 `json:"total_mass_kg" toml:"total_mass_kg"`

	// Radius is the target mean radius in m. Surface-inward integration
	// starts exactly here, so the radius constraint is met by construction
	// and the solver drives the mass (and optionally MoI) mismatch.
	Radius float64 `json:"radius_m" toml:"radius_m"`

	// MoI is the measured moment of inertia factor C/MR^2.
	// Zero means unconstrained.
	MoI float64 `json:"moi,omitempty" toml:"moi"`

	// MoIUncertainty is the half-width of the admissible C/MR^2 window.
	// Ignored when MoI is zero.
	MoIUncertainty float64 `json:"moi_uncertainty,omitempty" toml:"moi_uncertainty"`

	// SurfacePressure in MPa (typically ~0 for airless moons).
	SurfacePressure float64 `json:"surface_pressure_mpa" toml:"surface_pressure_mpa"`

	// SurfaceTemperature in K.
	SurfaceTemperature float64 `json:"surface_temperature_k" toml:"surface_temperature_k"`

	// MassTol is the accepted fractional mass mismatch |dM|/M.
	// Zero selects DefaultMassTol.
	MassTol float64 `json:"mass_tol,omitempty" toml:"mass_tol"`
}

// DefaultMassTol is the fractional mass mismatch accepted when
// BoundaryConstraints.MassTol is unset.
const DefaultMassTol = 1e-4

// maxMoI is the moment of inertia factor of a uniform sphere; no physically
// sensible density profile exceeds it.
const maxMoI = 0.4

// Validate reports whether the constraints are internally consistent.
// It checks only what can be known without integrating; reachability of the
// target mass is checked by the solver against the layer stack.
func (bc BoundaryConstraints) Validate() error {
	if bc.TotalMass <= 0 {
		return fmt.Errorf("total mass must be positive, got %g kg", bc.TotalMass)
	}
	if bc.Radius <= 0 {
		return fmt.Errorf("radius must be positive, got %g m", bc.Radius)
	}
	if bc.SurfaceTemperature <= 0 {
		return fmt.Errorf("surface temperature must be positive, got %g K", bc.SurfaceTemperature)
	}
	if bc.SurfacePressure < 0 {
		return fmt.Errorf("surface pressure must be non-negative, got %g MPa", bc.SurfacePressure)
	}
	if bc.MoI < 0 || bc.MoI > maxMoI {
		return fmt.Errorf("moment of inertia factor %g outside (0, %g]", bc.MoI, maxMoI)
	}
	if bc.MoI > 0 && bc.MoIUncertainty <= 0 {
		return fmt.Errorf("moi constraint requires a positive uncertainty")
	}
	return nil
}

// MassTolerance returns the effective fractional mass tolerance.
func (bc BoundaryConstraints) MassTolerance() float64 {
	if bc.MassTol > 0 {
		return bc.MassTol
	}
	return DefaultMassTol
}

// MeanDensity returns the bulk density implied by the mass and radius
// targets, in kg/m^3.
func (bc BoundaryConstraints) MeanDensity() float64 {
	v := 4.0 / 3.0 * math.Pi * bc.Radius * bc.Radius * bc.Radius
	return bc.TotalMass / v
}

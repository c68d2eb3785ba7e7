package body

import (
	"encoding/json"
	"fmt"
	"io"
)

// ProfilePoint is one radius-indexed record of the final assembled model,
// including the derived transport properties.
type ProfilePoint struct {
	Radius       float64 `json:"radius_m"`
	Depth        float64 `json:"depth_m"`
	Pressure     float64 `json:"pressure_mpa"`
	Temperature  float64 `json:"temperature_k"`
	Gravity      float64 `json:"gravity_ms2"`
	Density      float64 `json:"density_kgm3"`
	EnclosedMass float64 `json:"enclosed_mass_kg"`
	Phase        Phase   `json:"phase"`

	// Derived fields, filled by the assembler's final EOS pass.
	VP           float64 `json:"vp_ms,omitempty"`           // P-wave speed, m/s
	VS           float64 `json:"vs_ms,omitempty"`           // S-wave speed, m/s
	AttenuationQ float64 `json:"attenuation_q,omitempty"`   // seismic quality factor
	Conductivity float64 `json:"conductivity_sm,omitempty"` // electrical, S/m
}

// Interior summarizes the silicate/core split chosen to satisfy the mass
// and moment of inertia constraints, including the admissible trade range
// when a MoI window was matched.
type Interior struct {
	SilicateRadius  float64 `json:"silicate_radius_m"`
	SilicateDensity float64 `json:"silicate_density_kgm3"`
	CoreRadius      float64 `json:"core_radius_m"`
	CoreDensity     float64 `json:"core_density_kgm3"`

	// MoI is the achieved moment of inertia factor C/MR^2.
	MoI float64 `json:"moi"`

	// SilicateRadiusRange and CoreRadiusRange span the candidate interface
	// radii that also fell inside the MoI uncertainty window.
	SilicateRadiusRange [2]float64 `json:"silicate_radius_range_m,omitempty"`
	CoreRadiusRange     [2]float64 `json:"core_radius_range_m,omitempty"`
}

// Convergence is the metadata attached to a finished run.
type Convergence struct {
	// RunID uniquely identifies the producing run.
	RunID string `json:"run_id"`

	// Fingerprint is the input hash the profile is cached under.
	Fingerprint string `json:"fingerprint"`

	// Iterations is the number of outer solver iterations used.
	Iterations int `json:"iterations"`

	// Trials is the number of full-stack integrations evaluated.
	Trials int `json:"trials"`

	// MassMismatch is the final fractional mass mismatch |dM|/M.
	MassMismatch float64 `json:"mass_mismatch"`

	// Params is the converged free-parameter vector.
	Params ParameterVector `json:"params,omitempty"`

	// CacheHit is true when the profile was served from the cache without
	// re-running the solver.
	CacheHit bool `json:"cache_hit"`
}

// Profile is the final, immutable model: points ordered by strictly
// increasing radius (center to surface) plus run metadata.
type Profile struct {
	Points      []ProfilePoint `json:"points"`
	Interior    Interior       `json:"interior"`
	Convergence Convergence    `json:"convergence"`
}

// Surface returns the outermost point.
func (p *Profile) Surface() ProfilePoint { return p.Points[len(p.Points)-1] }

// Center returns the innermost point.
func (p *Profile) Center() ProfilePoint { return p.Points[0] }

// Validate checks the ordering invariants of an assembled profile:
// radius strictly increasing, pressure and enclosed mass monotone
// non-increasing from center to surface.
func (p *Profile) Validate() error {
	if len(p.Points) < 2 {
		return fmt.Errorf("profile has %d points, need at least 2", len(p.Points))
	}
	for i := 1; i < len(p.Points); i++ {
		prev, cur := p.Points[i-1], p.Points[i]
		if cur.Radius <= prev.Radius {
			return fmt.Errorf("radius not strictly increasing at index %d (%g -> %g m)", i, prev.Radius, cur.Radius)
		}
		if cur.Pressure > prev.Pressure {
			return fmt.Errorf("pressure increasing toward surface at index %d (%g -> %g MPa)", i, prev.Pressure, cur.Pressure)
		}
		if cur.EnclosedMass < prev.EnclosedMass {
			return fmt.Errorf("enclosed mass decreasing with radius at index %d", i)
		}
	}
	return nil
}

// Marshal serializes the profile as indented JSON.
func (p *Profile) Marshal() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Write serializes the profile to w.
func (p *Profile) Write(w io.Writer) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// UnmarshalProfile deserializes a profile produced by Marshal.
func UnmarshalProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

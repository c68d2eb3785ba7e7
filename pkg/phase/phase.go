// Package phase decides which material phase governs a (P,T) state, and
// locates the phase boundaries integration must not step across blindly.
//
// The locator is a pure function of its inputs for the lifetime of a run:
// repeated queries at the same state always agree. The integrator relies on
// this when it bisects a step down onto a boundary; a locator with hidden
// state could make that bisection oscillate forever.
//
// Tie-break convention: a state lying exactly on a boundary belongs to the
// phase with the lower stability pressure at that temperature. The model
// thereby reports the phase already entered rather than the one about to be
// entered.
package phase

import (
	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/errors"
)

// Locator classifies a (P,T) state. Implementations must be deterministic
// and safe for concurrent use.
type Locator interface {
	// Phase returns the material phase governing pressure p (MPa) and
	// temperature t (K).
	Phase(p, t float64) body.Phase
}

// Fixed is a locator that always returns one phase, used for single-phase
// interior layers (silicate mantle, iron core).
type Fixed body.Phase

// Phase implements Locator.
func (f Fixed) Phase(p, t float64) body.Phase { return body.Phase(f) }

// ForLayer returns the locator appropriate for a layer spec: the H2O phase
// diagram at the layer's salinity for hydrosphere compositions, a fixed
// phase otherwise.
func ForLayer(spec body.LayerSpec) (Locator, error) {
	switch spec.Composition {
	case body.CompWater, body.CompSeawater:
		return NewDiagram(spec.Salinity), nil
	case body.CompSilicate:
		return Fixed(body.PhaseSilicate), nil
	case body.CompIron:
		return Fixed(body.PhaseIron), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidLayer,
			"no phase diagram for composition %q", spec.Composition)
	}
}

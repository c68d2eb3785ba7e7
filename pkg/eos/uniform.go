package eos

import (
	"fmt"
	"sync/atomic"

	"github.com/soletide/hydrostat/pkg/body"
)

// Uniform is a constant-property provider. It exists for tests and for
// modeling idealized constant-density layers: a uniform sphere or shell has
// a closed-form mass, which anchors the integrator's accuracy checks.
//
// MaxPressure, when positive, bounds the valid domain: lookups above it
// return EOS_OUT_OF_RANGE. The call counter makes cache-idempotence
// properties observable (a cache hit must perform zero lookups).
type Uniform struct {
	Props Properties

	// MaxPressure in MPa; zero means unbounded.
	MaxPressure float64

	calls atomic.Int64
}

// NewUniform creates a provider that always returns props.
func NewUniform(props Properties) *Uniform {
	return &Uniform{Props: props}
}

// Lookup implements Provider.
func (u *Uniform) Lookup(p, t float64, phase body.Phase) (Properties, error) {
	u.calls.Add(1)
	if u.MaxPressure > 0 && p > u.MaxPressure {
		return Properties{}, OutOfRange(p, t, phase)
	}
	return u.Props, nil
}

// Version implements Provider.
func (u *Uniform) Version() string {
	return fmt.Sprintf("uniform/rho%.1f", u.Props.Density)
}

// Calls returns the number of Lookup invocations so far.
func (u *Uniform) Calls() int64 { return u.calls.Load() }

// ResetCalls zeroes the call counter.
func (u *Uniform) ResetCalls() { u.calls.Store(0) }

var _ Provider = (*Uniform)(nil)

// UniformSource hands the same Uniform provider to every layer.
type UniformSource struct {
	U *Uniform
}

// Provider implements Source.
func (s UniformSource) Provider(spec body.LayerSpec) (Provider, error) { return s.U, nil }

// Version implements Source.
func (s UniformSource) Version() string { return s.U.Version() }

var _ Source = UniformSource{}

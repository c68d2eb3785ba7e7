// Package integrate implements pressure-stepped hydrostatic integration of
// single layers, from the surface inward.
//
// Each step advances pressure by a fixed increment and converts it to a
// radial increment through the hydrostatic relation dz = dP/(rho g), with
// gravity recomputed from the mass remaining below the current radius.
// Temperature follows a per-layer thermal rule (adiabatic, conductive, or
// melt-anchored). When a step would cross a phase boundary the engine
// bisects the step down until the boundary pressure is located within
// Options.BoundaryTolMPa, ends the segment there, and reports the phase on
// the far side.
//
// Layer walks never decide layer sizing themselves: extents come in as fixed
// thicknesses, melting-curve anchors, or phase boundaries, and the
// constraint solver owns everything above that.
package integrate

import (
	"math"

	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/eos"
	"github.com/soletide/hydrostat/pkg/errors"
	"github.com/soletide/hydrostat/pkg/phase"
)

// Defaults for Options.
const (
	DefaultStepMPa        = 1.0
	DefaultBoundaryTolMPa = 0.01
	DefaultMaxPressureMPa = 2000.0
	DefaultCenterRadiusM  = 1000.0
	DefaultMaxStepsLayer  = 500000
)

// Options configures the integrator.
type Options struct {
	// StepMPa is the base pressure step.
	StepMPa float64 `json:"step_mpa" toml:"step_mpa"`

	// BoundaryTolMPa is the pressure width within which a phase boundary
	// must be located before a segment may end on it.
	BoundaryTolMPa float64 `json:"boundary_tol_mpa" toml:"boundary_tol_mpa"`

	// MaxPressureMPa caps hydrosphere integration. Walks that reach it stop
	// with StopPressureCeiling.
	MaxPressureMPa float64 `json:"max_pressure_mpa" toml:"max_pressure_mpa"`

	// CenterRadiusM is the radius treated as the body center. The leftover
	// sphere below it is small enough to ignore against any mass tolerance.
	CenterRadiusM float64 `json:"center_radius_m" toml:"center_radius_m"`

	// MaxStepsPerLayer bounds a single layer walk.
	MaxStepsPerLayer int `json:"max_steps_per_layer" toml:"max_steps_per_layer"`
}

// ValidateAndSetDefaults checks the options and fills in defaults for
// zero values.
func (o *Options) ValidateAndSetDefaults() error {
	if o.StepMPa == 0 {
		o.StepMPa = DefaultStepMPa
	}
	if o.BoundaryTolMPa == 0 {
		o.BoundaryTolMPa = DefaultBoundaryTolMPa
	}
	if o.MaxPressureMPa == 0 {
		o.MaxPressureMPa = DefaultMaxPressureMPa
	}
	if o.CenterRadiusM == 0 {
		o.CenterRadiusM = DefaultCenterRadiusM
	}
	if o.MaxStepsPerLayer == 0 {
		o.MaxStepsPerLayer = DefaultMaxStepsLayer
	}
	if o.StepMPa < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "step must be positive, got %g MPa", o.StepMPa)
	}
	if o.BoundaryTolMPa < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "boundary tolerance must be positive, got %g MPa", o.BoundaryTolMPa)
	}
	if o.BoundaryTolMPa > o.StepMPa {
		return errors.New(errors.ErrCodeInvalidConfig,
			"boundary tolerance %g MPa exceeds the step %g MPa", o.BoundaryTolMPa, o.StepMPa)
	}
	if o.MaxPressureMPa < 0 || o.CenterRadiusM < 0 || o.MaxStepsPerLayer < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "limits must be non-negative")
	}
	return nil
}

// ErrMassExhausted marks a trial whose layers are collectively heavier than
// the body: the integrated mass reached the target total before the center.
// Callers can detect it with stdlib errors.Is to learn the sign of the mass
// mismatch even though the walk could not finish.
var ErrMassExhausted = errors.New(errors.ErrCodeInfeasible, "integrated mass exceeds the body total")

// Integrator walks single layers under a fixed EOS source and options.
// Safe for concurrent use: all per-walk state lives on the stack.
type Integrator struct {
	source eos.Source
	opts   Options
}

// New creates an integrator. Zero option fields take defaults.
func New(source eos.Source, opts Options) (*Integrator, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Integrator{source: source, opts: opts}, nil
}

// Opts returns the effective options after defaulting.
func (it *Integrator) Opts() Options { return it.opts }

// SurfaceState builds the state integration starts from: the body surface
// under the given constraints. Density and the thermodynamic fields are
// filled in by the first layer walk.
func SurfaceState(bc body.BoundaryConstraints) body.IntegrationState {
	return body.IntegrationState{
		Radius:       bc.Radius,
		Pressure:     bc.SurfacePressure,
		Temperature:  bc.SurfaceTemperature,
		Gravity:      body.GravConst * bc.TotalMass / (bc.Radius * bc.Radius),
		EnclosedMass: bc.TotalMass,
	}
}

// Shell integrates a conductive outer ice shell whose base is anchored to
// the melting curve at the spec's bottom temperature. The shell extent
// follows from the anchor pressure; the segment ends there with a phase
// boundary into liquid.
//
// A bottom temperature off the Ih melting range, or an anchor pressure not
// below the surface pressure, makes the trial infeasible rather than the
// run failed.
func (it *Integrator) Shell(start body.IntegrationState, spec body.LayerSpec) (*body.Segment, error) {
	dia := phase.NewDiagram(spec.Salinity)
	if dia.Phase(start.Pressure, start.Temperature) != body.PhaseIceIh {
		return nil, errors.New(errors.ErrCodeInfeasible,
			"layer %q: surface state %.3g MPa / %.2f K is not in the ice Ih field",
			spec.Name, start.Pressure, start.Temperature)
	}
	pBot, err := dia.MeltingPressure(spec.BottomTemperature)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInfeasible, err,
			"layer %q: bottom temperature %.2f K cannot anchor an ice shell",
			spec.Name, spec.BottomTemperature)
	}
	if pBot <= start.Pressure {
		return nil, errors.New(errors.ErrCodeInfeasible,
			"layer %q: melting anchor %.3f MPa not below the surface pressure %.3f MPa",
			spec.Name, pBot, start.Pressure)
	}
	rule := meltAnchored{
		tTop: start.Temperature, pTop: start.Pressure,
		tBot: spec.BottomTemperature, pBot: pBot,
	}
	return it.run(runParams{
		spec:  spec,
		phase: body.PhaseIceIh,
		rule:  rule,
		stopPressure:  pBot,
		stopReason:    body.StopPhaseBoundary,
		stopNextPhase: body.PhaseLiquid,
	}, start)
}

// maxOceanSegments bounds the number of phase flips a single hydrosphere
// walk may produce. The diagram has four polymorph fields; anything past
// that is a locator defect.
const maxOceanSegments = 8

// Ocean integrates the liquid ocean and any high-pressure ice beneath it,
// starting in startPhase, splitting a new segment at every phase boundary,
// until the pressure ceiling or the center is reached. The liquid follows
// the adiabat; solid layers under the ocean follow the melting curve.
func (it *Integrator) Ocean(start body.IntegrationState, startPhase body.Phase, spec body.LayerSpec) ([]*body.Segment, error) {
	dia := phase.NewDiagram(spec.Salinity)
	segs := make([]*body.Segment, 0, 2)
	cur, ph := start, startPhase
	for n := 0; n < maxOceanSegments; n++ {
		var rule thermalRule
		if ph == body.PhaseLiquid {
			rule = adiabat{}
		} else {
			rule = meltFollowing{dia: dia}
			cur.Temperature = dia.MeltTemperature(cur.Pressure) - meltTrackOffsetK
		}
		seg, err := it.run(runParams{
			spec:         spec,
			phase:        ph,
			rule:         rule,
			loc:          dia,
			stopPressure: it.opts.MaxPressureMPa,
			stopReason:   body.StopPressureCeiling,
		}, cur)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
		if seg.Stop != body.StopPhaseBoundary {
			return segs, nil
		}
		cur, ph = seg.Bottom(), seg.NextPhase
	}
	return nil, errors.New(errors.ErrCodeInternal,
		"layer %q: more than %d phase flips in one hydrosphere walk", spec.Name, maxOceanSegments)
}

// Layer integrates one single-phase layer of fixed thickness, or down to the
// center when the thickness is zero. Used for the silicate mantle and iron
// core, and for any fixed-thickness shell.
func (it *Integrator) Layer(start body.IntegrationState, ph body.Phase, spec body.LayerSpec) (*body.Segment, error) {
	params := runParams{
		spec:      spec,
		phase:     ph,
		thickness: spec.Thickness,
	}
	switch spec.ThermalOrDefault() {
	case body.ThermalAdiabatic:
		params.rule = adiabat{}
	default:
		rho := spec.Density
		k := 0.0
		if prov, err := it.source.Provider(spec); err == nil {
			if props, perr := prov.Lookup(start.Pressure, start.Temperature, ph); perr == nil {
				k = props.ThermalConductivity
				if rho == 0 {
					rho = props.Density
				}
			}
		}
		params.rule = newConductiveFlux(start.Temperature, start.Radius, k,
			spec.HeatFlux, rho, spec.InternalHeating)
	}
	return it.run(params, start)
}

// runParams bundles one layer walk.
type runParams struct {
	spec  body.LayerSpec
	phase body.Phase
	rule  thermalRule

	// loc enables phase-boundary watching when non-nil.
	loc phase.Locator

	// stopPressure ends the walk at an absolute pressure with stopReason
	// (and stopNextPhase when the reason is a phase boundary). Zero
	// disables it.
	stopPressure  float64
	stopReason    body.StopReason
	stopNextPhase body.Phase

	// thickness ends the walk after this much depth gain. Zero disables it.
	thickness float64
}

func (it *Integrator) run(p runParams, start body.IntegrationState) (*body.Segment, error) {
	lookup, err := it.lookupFor(p.spec)
	if err != nil {
		return nil, err
	}

	cur := start
	cur.Phase = p.phase
	props, err := lookup(cur.Pressure, cur.Temperature, p.phase)
	if err != nil {
		return nil, wrapLayer(err, p.spec.Name)
	}
	applyProps(&cur, props, p.spec)

	seg := &body.Segment{Layer: p.spec, States: []body.IntegrationState{cur}}
	zTop := cur.Depth

	for steps := 0; ; steps++ {
		if steps >= it.opts.MaxStepsPerLayer {
			return nil, errors.New(errors.ErrCodeInternal,
				"layer %q: step budget %d exhausted at %.1f MPa",
				p.spec.Name, it.opts.MaxStepsPerLayer, cur.Pressure)
		}

		dP := it.opts.StepMPa
		var final body.StopReason
		nextPhase := body.Phase(0)

		if p.stopPressure > 0 && cur.Pressure+dP >= p.stopPressure {
			dP = p.stopPressure - cur.Pressure
			final = p.stopReason
			nextPhase = p.stopNextPhase
		}

		// Clamp against the thickness and center limits using the same
		// Euler coefficients the step itself uses, so the walk lands
		// exactly on the limit.
		dzPerMPa := body.PaPerMPa / (cur.Gravity * cur.Density)
		if p.thickness > 0 {
			remain := p.thickness - (cur.Depth - zTop)
			if dP*dzPerMPa >= remain {
				dP = remain / dzPerMPa
				final = body.StopThickness
				nextPhase = 0
			}
		}
		if avail := cur.Radius - it.opts.CenterRadiusM; dP*dzPerMPa >= avail {
			dP = avail / dzPerMPa
			final = body.StopCenter
			nextPhase = 0
		}
		if dP <= 0 {
			// Already at a limit; close the segment where it stands.
			if final == "" {
				final = body.StopCenter
			}
			seg.Stop = final
			seg.NextPhase = nextPhase
			return seg, nil
		}

		next, err := it.step(cur, dP, p, lookup)
		if err != nil {
			return nil, err
		}

		if p.loc != nil && final == "" {
			if crossed := p.loc.Phase(next.Pressure, next.Temperature); crossed != p.phase {
				return it.finishAtBoundary(seg, cur, crossed, p, lookup)
			}
		}

		seg.States = append(seg.States, next)
		cur = next
		if final != "" {
			seg.Stop = final
			seg.NextPhase = nextPhase
			return seg, nil
		}
	}
}

// finishAtBoundary bisects the step from cur down onto the phase boundary,
// appends the last in-phase state within BoundaryTolMPa of it, and closes
// the segment.
func (it *Integrator) finishAtBoundary(seg *body.Segment, cur body.IntegrationState, firstCross body.Phase, p runParams, lookup lookupFunc) (*body.Segment, error) {
	lo := cur.Pressure
	hi := cur.Pressure + it.opts.StepMPa
	nextPhase := firstCross
	for hi-lo > it.opts.BoundaryTolMPa {
		mid := 0.5 * (lo + hi)
		if mid <= lo || mid >= hi {
			return nil, errors.New(errors.ErrCodeStepTooSmall,
				"layer %q: boundary bisection stalled at %.6f MPa", p.spec.Name, lo)
		}
		st, err := it.step(cur, mid-cur.Pressure, p, lookup)
		if err != nil {
			return nil, err
		}
		if ph := p.loc.Phase(st.Pressure, st.Temperature); ph == p.phase {
			lo = mid
		} else {
			hi = mid
			nextPhase = ph
		}
	}
	if lo > cur.Pressure {
		st, err := it.step(cur, lo-cur.Pressure, p, lookup)
		if err != nil {
			return nil, err
		}
		seg.States = append(seg.States, st)
	}
	seg.Stop = body.StopPhaseBoundary
	seg.NextPhase = nextPhase
	return seg, nil
}

// step advances one Euler step of dP MPa from cur.
func (it *Integrator) step(cur body.IntegrationState, dP float64, p runParams, lookup lookupFunc) (body.IntegrationState, error) {
	dz := dP * body.PaPerMPa / (cur.Gravity * cur.Density)
	r := cur.Radius - dz
	if r <= 0 {
		return body.IntegrationState{}, errors.New(errors.ErrCodeInfeasible,
			"layer %q: step of %.3f MPa at r=%.0f m passes through the center", p.spec.Name, dP, cur.Radius)
	}

	pN := cur.Pressure + dP
	tN := p.rule.next(cur, pN, r)

	r3, c3 := cur.Radius*cur.Radius*cur.Radius, r*r*r
	r5, c5 := r3*cur.Radius*cur.Radius, c3*r*r
	shellMass := 4.0 / 3.0 * math.Pi * cur.Density * (r3 - c3)
	encl := cur.EnclosedMass - shellMass
	if encl <= 0 {
		return body.IntegrationState{}, errors.Wrap(errors.ErrCodeInfeasible, ErrMassExhausted,
			"layer %q at r=%.0f m", p.spec.Name, r)
	}

	next := body.IntegrationState{
		Radius:       r,
		Depth:        cur.Depth + dz,
		Pressure:     pN,
		Temperature:  tN,
		Gravity:      body.GravConst * encl / (r * r),
		EnclosedMass: encl,
		MoIAbove:     cur.MoIAbove + 8.0*math.Pi/15.0*cur.Density*(r5-c5),
		Phase:        p.phase,
	}
	props, err := lookup(pN, tN, p.phase)
	if err != nil {
		return body.IntegrationState{}, wrapLayer(err, p.spec.Name)
	}
	applyProps(&next, props, p.spec)
	return next, nil
}

type lookupFunc func(p, t float64, ph body.Phase) (eos.Properties, error)

// lookupFor returns the property lookup for a layer: the EOS provider, or a
// constant-density shortcut that performs no EOS calls at all when the spec
// fixes the density.
func (it *Integrator) lookupFor(spec body.LayerSpec) (lookupFunc, error) {
	if spec.Density > 0 {
		props := eos.Properties{Density: spec.Density}
		return func(_, _ float64, _ body.Phase) (eos.Properties, error) {
			return props, nil
		}, nil
	}
	prov, err := it.source.Provider(spec)
	if err != nil {
		return nil, wrapLayer(err, spec.Name)
	}
	return prov.Lookup, nil
}

func applyProps(st *body.IntegrationState, props eos.Properties, spec body.LayerSpec) {
	st.Density = props.Density
	st.HeatCapacity = props.HeatCapacity
	st.Expansivity = props.Expansivity
	if spec.Density > 0 {
		st.Density = spec.Density
	}
}

// wrapLayer annotates an error with the layer it arose in, preserving the
// error code so trial-failure classification survives.
func wrapLayer(err error, name string) error {
	if code := errors.GetCode(err); code != "" {
		return errors.Wrap(code, err, "layer %q", name)
	}
	return errors.Wrap(errors.ErrCodeInternal, err, "layer %q", name)
}

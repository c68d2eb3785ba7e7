// Package solve searches layer-stack parameters until the integrated body
// reproduces its boundary constraints.
//
// The solver owns everything the per-layer integrator does not: which free
// parameters exist, how trials are proposed and evaluated (in parallel,
// trials are independent), where the silicate/core interface goes, and when
// to declare convergence or give up. A single trial is one full surface-to-
// center integration of the stack under one parameter vector; trials that
// fail with a trial-level error (EOS domain, infeasible anchor, starved
// step) are skipped, while any other error aborts the search and surfaces
// to the caller.
//
// Two strategies cover the supported stack shapes:
//
//   - Interface scan: stacks with an ocean integrate the hydrosphere down to
//     the pressure ceiling, then scan candidate seafloor radii for the
//     constant-density silicate/core split that matches the mass exactly
//     and, when constrained, lands inside the moment of inertia window.
//
//   - Mass bisection: stacks without an ocean have every extent fixed or
//     free; free parameters are refined by bracketed bisection on the
//     fractional mass mismatch.
package solve

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/eos"
	"github.com/soletide/hydrostat/pkg/errors"
	"github.com/soletide/hydrostat/pkg/integrate"
	"github.com/soletide/hydrostat/pkg/observability"
	"github.com/soletide/hydrostat/pkg/phase"
)

// Defaults for Options.
const (
	DefaultMaxIterations = 40
	DefaultScanPoints    = 9
	DefaultWorkers       = 8
)

// bisectIters bounds one bracketed bisection.
const bisectIters = 64

// Options configures a Solver.
type Options struct {
	// Integrate configures the per-layer integrator.
	Integrate integrate.Options `json:"integrate" toml:"integrate"`

	// MaxIterations bounds the outer refinement passes over the free
	// parameters.
	MaxIterations int `json:"max_iterations" toml:"max_iterations"`

	// ScanPoints is the grid width used to bracket each free parameter
	// (and the melting-anchor grid in scan mode).
	ScanPoints int `json:"scan_points" toml:"scan_points"`

	// Workers is the number of goroutines evaluating independent trials.
	Workers int `json:"workers" toml:"workers"`
}

// ValidateAndSetDefaults checks the options and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if err := o.Integrate.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.ScanPoints == 0 {
		o.ScanPoints = DefaultScanPoints
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.MaxIterations < 0 || o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "iteration and worker counts must be non-negative")
	}
	if o.ScanPoints < 3 {
		return errors.New(errors.ErrCodeInvalidConfig, "scan grid needs at least 3 points, got %d", o.ScanPoints)
	}
	return nil
}

// Result is a finished (or abandoned) solver run.
type Result struct {
	// Segments are the integrated layer segments, surface-first.
	Segments []*body.Segment

	// Interior summarizes the chosen silicate/core split.
	Interior body.Interior

	// Params is the final free-parameter vector.
	Params body.ParameterVector

	// MassMismatch is the signed fractional mass mismatch dM/M of the
	// final trial.
	MassMismatch float64

	// Iterations and Trials count outer passes and full-stack
	// integrations.
	Iterations int
	Trials     int

	// Converged is false when the run ended in non-convergence; the other
	// fields then describe the best trial reached.
	Converged bool
}

// Solver drives constraint matching over an EOS source.
// Safe for concurrent use.
type Solver struct {
	source eos.Source
	it     *integrate.Integrator
	opts   Options

	trialSeq atomic.Int64
}

// New creates a Solver. Zero option fields take defaults.
func New(source eos.Source, opts Options) (*Solver, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	it, err := integrate.New(source, opts.Integrate)
	if err != nil {
		return nil, err
	}
	return &Solver{source: source, it: it, opts: opts}, nil
}

// Solve runs the search for the given constraints and stack. On
// non-convergence it returns both a Result describing the best trial and a
// NON_CONVERGENCE error.
func (s *Solver) Solve(ctx context.Context, bc body.BoundaryConstraints, specs []body.LayerSpec) (*Result, error) {
	start := time.Now()
	plan, err := s.preflight(bc, specs)
	if err != nil {
		observability.Solver().OnFailed(ctx, 0, 0, err)
		return nil, err
	}

	var res *Result
	if plan.ocean >= 0 {
		res, err = s.solveScan(ctx, bc, plan)
	} else {
		res, err = s.solveBisect(ctx, bc, plan)
	}
	if err != nil {
		observability.Solver().OnFailed(ctx, resIterations(res), resTrials(res), err)
		return res, err
	}
	observability.Solver().OnConverged(ctx, res.Iterations, res.Trials, res.MassMismatch, time.Since(start))
	return res, nil
}

func resIterations(r *Result) int {
	if r == nil {
		return 0
	}
	return r.Iterations
}

func resTrials(r *Result) int {
	if r == nil {
		return 0
	}
	return r.Trials
}

// paramKind identifies which LayerSpec field a free parameter controls.
type paramKind int

const (
	paramBottomTemperature paramKind = iota
	paramThickness
	paramDensity
)

// freeParam is one solver unknown with its search bounds.
type freeParam struct {
	name  string
	layer int
	kind  paramKind
	lo    float64
	hi    float64
	init  float64
}

// stackPlan is the classified stack: which layers play which role, and the
// free parameters extracted from them.
type stackPlan struct {
	specs []body.LayerSpec

	// Indexes into specs, -1 when absent.
	shell    int
	ocean    int
	silicate int
	iron     int

	free []freeParam
}

// initVector returns the starting parameter vector.
func (p *stackPlan) initVector() body.ParameterVector {
	pv := make(body.ParameterVector, len(p.free))
	for _, fp := range p.free {
		pv[fp.name] = fp.init
	}
	return pv
}

// apply returns a copy of the specs with the parameter vector substituted
// into the free fields.
func (p *stackPlan) apply(pv body.ParameterVector) []body.LayerSpec {
	specs := make([]body.LayerSpec, len(p.specs))
	copy(specs, p.specs)
	for _, fp := range p.free {
		v, ok := pv[fp.name]
		if !ok {
			continue
		}
		switch fp.kind {
		case paramBottomTemperature:
			specs[fp.layer].BottomTemperature = v
		case paramThickness:
			specs[fp.layer].Thickness = v
		case paramDensity:
			specs[fp.layer].Density = v
		}
	}
	return specs
}

// Nominal density ranges per composition, kg/m^3, used only for the
// coarse reachability screen before any integration runs.
var densityRange = map[body.Composition][2]float64{
	body.CompWater:    {800, 1800},
	body.CompSeawater: {800, 1900},
	body.CompSilicate: {2400, 5500},
	body.CompIron:     {4500, 13000},
}

// preflight validates constraints and stack shape and builds the plan.
// Everything it rejects is rejected before a single EOS lookup.
func (s *Solver) preflight(bc body.BoundaryConstraints, specs []body.LayerSpec) (*stackPlan, error) {
	if err := bc.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConstraints, err, "boundary constraints")
	}
	if err := body.ValidateStack(specs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLayer, err, "layer stack")
	}

	plan := &stackPlan{specs: specs, shell: -1, ocean: -1, silicate: -1, iron: -1}
	for i, spec := range specs {
		switch spec.Composition {
		case body.CompWater, body.CompSeawater:
			if plan.silicate >= 0 || plan.iron >= 0 {
				return nil, errors.New(errors.ErrCodeInvalidLayer,
					"hydrosphere layer %q below an interior layer", spec.Name)
			}
			switch {
			case spec.BottomTemperature > 0:
				if plan.shell >= 0 || plan.ocean >= 0 {
					return nil, errors.New(errors.ErrCodeInvalidLayer,
						"melting-anchored shell %q must be the outermost hydrosphere layer", spec.Name)
				}
				plan.shell = i
			case spec.Thickness == 0:
				if plan.ocean >= 0 {
					return nil, errors.New(errors.ErrCodeInvalidLayer,
						"more than one ocean layer (%q)", spec.Name)
				}
				plan.ocean = i
			}
		case body.CompSilicate:
			if plan.silicate >= 0 || plan.iron >= 0 {
				return nil, errors.New(errors.ErrCodeInvalidLayer,
					"silicate layer %q out of order", spec.Name)
			}
			plan.silicate = i
		case body.CompIron:
			if plan.iron >= 0 {
				return nil, errors.New(errors.ErrCodeInvalidLayer,
					"more than one core layer (%q)", spec.Name)
			}
			if i != len(specs)-1 {
				return nil, errors.New(errors.ErrCodeInvalidLayer,
					"core layer %q must be innermost", spec.Name)
			}
			plan.iron = i
		}
	}
	if plan.shell >= 0 && plan.ocean != plan.shell+1 {
		return nil, errors.New(errors.ErrCodeInvalidLayer,
			"melting-anchored shell %q needs an ocean layer directly beneath it",
			specs[plan.shell].Name)
	}

	if err := s.screenReachability(bc, specs); err != nil {
		return nil, err
	}

	if plan.ocean >= 0 {
		// Scan mode sizes the interior from constant densities.
		if plan.silicate < 0 {
			return nil, errors.New(errors.ErrCodeInvalidConstraints,
				"an ocean stack needs a silicate layer to place the seafloor on")
		}
		if specs[plan.silicate].Density == 0 {
			return nil, errors.New(errors.ErrCodeInvalidConstraints,
				"silicate layer %q needs a density for interface scanning", specs[plan.silicate].Name)
		}
	} else {
		// Bisection mode needs determinate extents everywhere but the
		// innermost layer.
		for i, spec := range specs[:len(specs)-1] {
			if spec.Thickness == 0 {
				return nil, errors.New(errors.ErrCodeInvalidConstraints,
					"layer %q (position %d) has no thickness and is not innermost", spec.Name, i)
			}
		}
	}

	free, err := extractFree(bc, specs, s.opts.Integrate.CenterRadiusM)
	if err != nil {
		return nil, err
	}
	plan.free = free
	return plan, nil
}

// screenReachability rejects targets no arrangement of the stack materials
// can reach: the implied bulk density must lie between the lightest and the
// densest material available.
func (s *Solver) screenReachability(bc body.BoundaryConstraints, specs []body.LayerSpec) error {
	var lo, hi float64
	for _, spec := range specs {
		r, ok := densityRange[spec.Composition]
		if !ok {
			continue
		}
		if spec.Density > 0 {
			r = [2]float64{spec.Density, spec.Density}
		}
		if lo == 0 || r[0] < lo {
			lo = r[0]
		}
		if r[1] > hi {
			hi = r[1]
		}
	}
	mean := bc.MeanDensity()
	if mean > hi {
		return errors.New(errors.ErrCodeInvalidConstraints,
			"target mass needs a bulk density of %.0f kg/m^3 but the densest stack material reaches %.0f",
			mean, hi)
	}
	if mean < lo {
		return errors.New(errors.ErrCodeInvalidConstraints,
			"target mass needs a bulk density of %.0f kg/m^3 but the lightest stack material is %.0f",
			mean, lo)
	}
	return nil
}

// tbMarginK keeps melting-anchor brackets off the exact curve endpoints.
const tbMarginK = 0.05

func extractFree(bc body.BoundaryConstraints, specs []body.LayerSpec, centerR float64) ([]freeParam, error) {
	var free []freeParam
	for i, spec := range specs {
		if !spec.Free {
			continue
		}
		switch {
		case spec.BottomTemperature > 0:
			tMin, tMax := phase.NewDiagram(spec.Salinity).IhMeltRange()
			free = append(free, freeParam{
				name:  spec.Name + ".bottom_temperature_k",
				layer: i,
				kind:  paramBottomTemperature,
				lo:    tMin + tbMarginK,
				hi:    tMax - tbMarginK,
				init:  spec.BottomTemperature,
			})
		case spec.Thickness > 0:
			free = append(free, freeParam{
				name:  spec.Name + ".thickness_m",
				layer: i,
				kind:  paramThickness,
				lo:    centerR,
				hi:    bc.Radius * 0.99,
				init:  spec.Thickness,
			})
		case spec.Density > 0:
			free = append(free, freeParam{
				name:  spec.Name + ".density_kgm3",
				layer: i,
				kind:  paramDensity,
				lo:    spec.Density * 0.25,
				hi:    spec.Density * 4,
				init:  spec.Density,
			})
		default:
			return nil, errors.New(errors.ErrCodeInvalidLayer,
				"free layer %q has no governing parameter (bottom temperature, thickness or density)", spec.Name)
		}
	}
	return free, nil
}

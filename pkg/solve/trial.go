package solve

import (
	"context"
	stderrors "errors"
	"math"
	"time"

	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/errors"
	"github.com/soletide/hydrostat/pkg/integrate"
	"github.com/soletide/hydrostat/pkg/observability"
	"github.com/soletide/hydrostat/pkg/phase"
)

// overMassMismatch is the sentinel mismatch recorded when a trial runs out
// of mass budget before reaching the center. The magnitude is unknown but
// the sign is, which is all bracketing needs.
const overMassMismatch = -1.0

// trialOutcome is one full-stack integration under one parameter vector.
type trialOutcome struct {
	segs     []*body.Segment
	interior body.Interior
	params   body.ParameterVector

	// mismatch is the signed fractional mass mismatch dM/M: positive when
	// mass is left over at the center, overMassMismatch when the stack is
	// too heavy.
	mismatch float64

	// overMass marks a mass-exhausted trial: unusable as a solution but
	// usable as a bracket endpoint.
	overMass bool

	// fatal marks an error outside the trial-failure class (EOS domain,
	// infeasible anchor, starved step). The search must stop and surface
	// it instead of moving to the next candidate.
	fatal bool

	err error
}

// usable reports whether the outcome carries a meaningful mismatch sign.
func (o trialOutcome) usable() bool { return o.err == nil || o.overMass }

// evaluate runs one trial with hook bookkeeping.
func (s *Solver) evaluate(ctx context.Context, bc body.BoundaryConstraints, plan *stackPlan, pv body.ParameterVector) trialOutcome {
	id := int(s.trialSeq.Add(1))
	observability.Solver().OnTrialStart(ctx, id, pv)
	start := time.Now()

	var out trialOutcome
	if plan.ocean >= 0 {
		out = s.runScanTrial(ctx, bc, plan, pv)
	} else {
		out = s.runStackTrial(ctx, bc, plan, pv)
	}
	out.params = pv.Clone()

	observability.Solver().OnTrialComplete(ctx, id, out.mismatch, time.Since(start), out.err)
	return out
}

// runStackTrial integrates every layer in order: fixed thicknesses down to
// the innermost layer, which runs to the center. Used when no ocean is
// present.
func (s *Solver) runStackTrial(ctx context.Context, bc body.BoundaryConstraints, plan *stackPlan, pv body.ParameterVector) trialOutcome {
	if err := ctx.Err(); err != nil {
		return trialOutcome{mismatch: math.NaN(), err: err, fatal: true}
	}
	specs := plan.apply(pv)
	st := integrate.SurfaceState(bc)
	segs := make([]*body.Segment, 0, len(specs))

	for _, spec := range specs {
		ph := startPhase(spec, st)
		seg, err := s.it.Layer(st, ph, spec)
		if err != nil {
			return classifyTrialErr(err)
		}
		segs = append(segs, seg)
		st = seg.Bottom()
	}

	out := trialOutcome{
		segs:     segs,
		mismatch: st.EnclosedMass / bc.TotalMass,
	}
	out.interior = interiorFromSegments(bc, segs)
	return out
}

// runScanTrial integrates the hydrosphere, scans the seafloor candidates for
// the interior split, and completes the stack from the chosen interface.
func (s *Solver) runScanTrial(ctx context.Context, bc body.BoundaryConstraints, plan *stackPlan, pv body.ParameterVector) trialOutcome {
	if err := ctx.Err(); err != nil {
		return trialOutcome{mismatch: math.NaN(), err: err, fatal: true}
	}
	specs := plan.apply(pv)
	st := integrate.SurfaceState(bc)

	var segs []*body.Segment
	oceanStart := body.PhaseLiquid
	if plan.shell >= 0 {
		seg, err := s.it.Shell(st, specs[plan.shell])
		if err != nil {
			return classifyTrialErr(err)
		}
		segs = append(segs, seg)
		st = seg.Bottom()
		oceanStart = seg.NextPhase
	} else {
		oceanStart = phase.NewDiagram(specs[plan.ocean].Salinity).Phase(st.Pressure, st.Temperature)
	}

	hydro, err := s.it.Ocean(st, oceanStart, specs[plan.ocean])
	if err != nil {
		return classifyTrialErr(err)
	}

	pick, admissible, err := s.scanInterior(bc, plan, specs, hydro)
	if err != nil {
		return classifyTrialErr(err)
	}

	kept := truncateAt(hydro, pick)
	segs = append(segs, kept...)
	st = kept[len(kept)-1].Bottom()

	silSpec := specs[plan.silicate]
	silSpec.Density = pick.rhoSil
	silSpec.Thickness = 0
	if plan.iron >= 0 {
		silSpec.Thickness = pick.rSeafloor - pick.rCore
	}
	silSeg, err := s.it.Layer(st, body.PhaseSilicate, silSpec)
	if err != nil {
		return classifyTrialErr(err)
	}
	segs = append(segs, silSeg)
	st = silSeg.Bottom()

	if plan.iron >= 0 {
		ironSpec := specs[plan.iron]
		ironSpec.Density = pick.rhoCore
		ironSpec.Thickness = 0
		ironSeg, err := s.it.Layer(st, body.PhaseIron, ironSpec)
		if err != nil {
			return classifyTrialErr(err)
		}
		segs = append(segs, ironSeg)
		st = ironSeg.Bottom()
	}

	out := trialOutcome{
		segs:     segs,
		mismatch: st.EnclosedMass / bc.TotalMass,
	}
	out.interior = interiorFromSegments(bc, segs)
	out.interior.MoI = pick.cmr2
	fillRanges(&out.interior, admissible)
	return out
}

// classifyTrialErr sorts an integration error into the outcome fields.
// Mass exhaustion keeps its bracketing sign, trial-class failures are
// skippable, and everything else is fatal to the whole search.
func classifyTrialErr(err error) trialOutcome {
	if stderrors.Is(err, integrate.ErrMassExhausted) {
		return trialOutcome{mismatch: overMassMismatch, overMass: true, err: err}
	}
	return trialOutcome{mismatch: math.NaN(), err: err, fatal: !errors.IsTrialFailure(err)}
}

// startPhase picks the phase a layer walk begins in.
func startPhase(spec body.LayerSpec, st body.IntegrationState) body.Phase {
	switch spec.Composition {
	case body.CompWater, body.CompSeawater:
		return phase.NewDiagram(spec.Salinity).Phase(st.Pressure, st.Temperature)
	case body.CompIron:
		return body.PhaseIron
	default:
		return body.PhaseSilicate
	}
}

// interiorFromSegments summarizes the interior split present in a finished
// segment list, including the achieved moment of inertia factor.
func interiorFromSegments(bc body.BoundaryConstraints, segs []*body.Segment) body.Interior {
	var in body.Interior
	for _, seg := range segs {
		switch seg.Layer.Composition {
		case body.CompSilicate:
			if in.SilicateRadius == 0 {
				in.SilicateRadius = seg.Top().Radius
				in.SilicateDensity = meanDensity(seg)
			}
		case body.CompIron:
			if in.CoreRadius == 0 {
				in.CoreRadius = seg.Top().Radius
				in.CoreDensity = meanDensity(seg)
			}
		}
	}
	if len(segs) > 0 {
		bot := segs[len(segs)-1].Bottom()
		c := bot.MoIAbove + 8.0/15.0*math.Pi*bot.Density*math.Pow(bot.Radius, 5)
		in.MoI = c / (bc.TotalMass * bc.Radius * bc.Radius)
	}
	return in
}

func meanDensity(seg *body.Segment) float64 {
	if len(seg.States) == 0 {
		return 0
	}
	var sum float64
	for _, st := range seg.States {
		sum += st.Density
	}
	return sum / float64(len(seg.States))
}

// fillRanges records the admissible interface trade range.
func fillRanges(in *body.Interior, admissible []interiorPick) {
	if len(admissible) < 2 {
		return
	}
	sil := [2]float64{math.Inf(1), math.Inf(-1)}
	core := [2]float64{math.Inf(1), math.Inf(-1)}
	for _, p := range admissible {
		sil[0] = math.Min(sil[0], p.rSeafloor)
		sil[1] = math.Max(sil[1], p.rSeafloor)
		core[0] = math.Min(core[0], p.rCore)
		core[1] = math.Max(core[1], p.rCore)
	}
	in.SilicateRadiusRange = sil
	in.CoreRadiusRange = core
}

// truncateAt cuts the hydrosphere segment list at the chosen seafloor
// state, marking the cut segment as interface-terminated.
func truncateAt(segs []*body.Segment, pick *interiorPick) []*body.Segment {
	kept := make([]*body.Segment, 0, pick.segIdx+1)
	for i := 0; i < pick.segIdx; i++ {
		kept = append(kept, segs[i])
	}
	src := segs[pick.segIdx]
	cut := &body.Segment{
		Layer:  src.Layer,
		States: src.States[:pick.stateIdx+1],
		Stop:   body.StopInterface,
	}
	kept = append(kept, cut)
	return kept
}

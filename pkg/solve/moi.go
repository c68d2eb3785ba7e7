package solve

import (
	"context"
	"math"

	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/eos"
	"github.com/soletide/hydrostat/pkg/errors"
)

// interiorPick is one candidate silicate/core split: the seafloor placed on
// a hydrosphere state, the core radius that balances the mass there, and the
// moment of inertia factor the whole arrangement produces.
type interiorPick struct {
	segIdx   int
	stateIdx int

	rSeafloor float64
	rCore     float64
	rhoSil    float64
	rhoCore   float64
	cmr2      float64
}

// scanInterior walks every hydrosphere state as a candidate seafloor and
// solves the constant-density interior beneath it.
//
// With a core, the silicate density is fixed and the core volume is the one
// value that balances the remaining mass; candidates whose balancing volume
// is negative or larger than the available sphere are discarded. Without a
// core the silicate density itself absorbs the remaining mass.
//
// Selection: under a MoI constraint the candidate closest to the target
// factor wins and every candidate inside the uncertainty window is reported
// as the trade range. Without one, the shallowest mass-balancing candidate
// wins (core stacks), or the one whose implied density sits closest to the
// configured silicate density (coreless stacks).
func (s *Solver) scanInterior(bc body.BoundaryConstraints, plan *stackPlan, specs []body.LayerSpec, hydro []*body.Segment) (*interiorPick, []interiorPick, error) {
	rhoSil := specs[plan.silicate].Density
	withCore := plan.iron >= 0
	var rhoCore float64
	if withCore {
		rhoCore = specs[plan.iron].Density
		if rhoCore == 0 {
			rhoCore = eos.NewIronProvider(eos.DefaultSulfurFraction).BulkDensity()
		}
		if rhoCore <= rhoSil {
			return nil, nil, errors.New(errors.ErrCodeInvalidConstraints,
				"core density %.0f kg/m^3 must exceed the silicate density %.0f", rhoCore, rhoSil)
		}
	}

	minR := 4 * s.opts.Integrate.CenterRadiusM
	m, r0 := bc.TotalMass, bc.Radius

	var best *interiorPick
	var bestScore float64
	var admissible []interiorPick

	for si, seg := range hydro {
		for vi, st := range seg.States {
			if st.Depth == 0 || st.Radius < minR {
				continue
			}
			r := st.Radius
			vSphere := 4.0 / 3.0 * math.Pi * r * r * r
			mRem := st.EnclosedMass

			cand := interiorPick{
				segIdx: si, stateIdx: vi,
				rSeafloor: r, rhoSil: rhoSil, rhoCore: rhoCore,
			}
			var c float64
			if withCore {
				vc := (mRem - rhoSil*vSphere) / (rhoCore - rhoSil)
				if vc < 0 || vc > vSphere {
					continue
				}
				cand.rCore = math.Cbrt(3 * vc / (4 * math.Pi))
				rc5 := math.Pow(cand.rCore, 5)
				c = st.MoIAbove + 8.0/15.0*math.Pi*(rhoSil*(math.Pow(r, 5)-rc5)+rhoCore*rc5)
			} else {
				cand.rhoSil = mRem / vSphere
				c = st.MoIAbove + 8.0/15.0*math.Pi*cand.rhoSil*math.Pow(r, 5)
			}
			cand.cmr2 = c / (m * r0 * r0)

			switch {
			case bc.MoI > 0:
				dist := math.Abs(cand.cmr2 - bc.MoI)
				if dist > bc.MoIUncertainty {
					continue
				}
				admissible = append(admissible, cand)
				if best == nil || dist < bestScore {
					p := cand
					best, bestScore = &p, dist
				}
			case withCore:
				// First balancing candidate: the shallowest seafloor the
				// given densities admit.
				p := cand
				return &p, nil, nil
			default:
				dist := math.Abs(cand.rhoSil - rhoSil)
				if best == nil || dist < bestScore {
					p := cand
					best, bestScore = &p, dist
				}
			}
		}
	}

	if best == nil {
		if bc.MoI > 0 {
			// Infeasible for this trial only; another anchor temperature may
			// still admit a seafloor inside the window.
			return nil, nil, errors.New(errors.ErrCodeInfeasible,
				"no seafloor radius puts C/MR^2 inside %.4f +/- %.4f with silicate %.0f kg/m^3",
				bc.MoI, bc.MoIUncertainty, rhoSil)
		}
		return nil, nil, errors.New(errors.ErrCodeInfeasible,
			"no seafloor radius balances the mass with the given interior densities")
	}
	return best, admissible, nil
}

// moiDist ranks a trial by how close its interior lands to the MoI target.
// Zero when no target is set.
func moiDist(bc body.BoundaryConstraints, o *trialOutcome) float64 {
	if bc.MoI == 0 {
		return 0
	}
	return math.Abs(o.interior.MoI - bc.MoI)
}

// tbParam returns the free melting-anchor parameter, if any.
func (p *stackPlan) tbParam() *freeParam {
	for i := range p.free {
		if p.free[i].kind == paramBottomTemperature {
			return &p.free[i]
		}
	}
	return nil
}

// solveScan handles ocean stacks: the interior interface comes from the
// candidate scan inside each trial, so no outer mass iteration is needed.
// A free melting anchor under a MoI target is searched on a grid of
// independent, parallel trials.
func (s *Solver) solveScan(ctx context.Context, bc body.BoundaryConstraints, plan *stackPlan) (*Result, error) {
	pvs := []body.ParameterVector{plan.initVector()}
	if tb := plan.tbParam(); tb != nil && bc.MoI > 0 {
		pvs = pvs[:0]
		for i := 0; i < s.opts.ScanPoints; i++ {
			pv := plan.initVector()
			pv[tb.name] = tb.lo + (tb.hi-tb.lo)*float64(i)/float64(s.opts.ScanPoints-1)
			pvs = append(pvs, pv)
		}
	}

	outs := s.evaluateBatch(ctx, bc, plan, pvs)

	var best *trialOutcome
	var lastErr error
	for i := range outs {
		o := &outs[i]
		if o.fatal {
			return nil, o.err
		}
		if o.err != nil {
			lastErr = o.err
			continue
		}
		if best == nil || moiDist(bc, o) < moiDist(bc, best) {
			best = o
		}
	}
	if best == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrCodeNonConvergence, lastErr,
			"all %d trials were infeasible", len(outs))
	}

	res := &Result{
		Segments:     best.segs,
		Interior:     best.interior,
		Params:       best.params,
		MassMismatch: best.mismatch,
		Iterations:   1,
		Trials:       len(outs),
		Converged:    true,
	}
	if math.Abs(res.MassMismatch) > bc.MassTolerance() {
		res.Converged = false
		return res, errors.New(errors.ErrCodeNonConvergence,
			"mass mismatch %.3e exceeds tolerance %.1e at the best interface (params %v)",
			res.MassMismatch, bc.MassTolerance(), res.Params)
	}
	return res, nil
}

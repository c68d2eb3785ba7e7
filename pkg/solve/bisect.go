package solve

import (
	"context"
	"math"

	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/errors"
	"github.com/soletide/hydrostat/pkg/observability"
)

// score ranks a trial outcome for the search: the absolute mismatch, with
// unusable outcomes ranked last. A mass-exhausted outcome scores 1.
func score(o *trialOutcome) float64 {
	if o == nil || !o.usable() {
		return math.Inf(1)
	}
	return math.Abs(o.mismatch)
}

func resultFrom(o *trialOutcome, pv body.ParameterVector, iterations, trials int, converged bool) *Result {
	return &Result{
		Segments:     o.segs,
		Interior:     o.interior,
		Params:       pv.Clone(),
		MassMismatch: o.mismatch,
		Iterations:   iterations,
		Trials:       trials,
		Converged:    converged,
	}
}

// solveBisect handles oceanless stacks: every extent is fixed or free, and
// free parameters are refined one at a time by bracketed bisection on the
// signed mass mismatch until it falls inside the tolerance.
func (s *Solver) solveBisect(ctx context.Context, bc body.BoundaryConstraints, plan *stackPlan) (*Result, error) {
	tol := bc.MassTolerance()
	pv := plan.initVector()
	trials := 1
	iterations := 0
	cur := s.evaluate(ctx, bc, plan, pv)
	if cur.fatal {
		return nil, cur.err
	}

	if converged(&cur, tol) {
		return s.finish(bc, &cur, pv, iterations, trials)
	}
	if len(plan.free) == 0 {
		if !cur.usable() {
			return nil, errors.Wrap(errors.ErrCodeNonConvergence, cur.err,
				"the stack has no free parameters and its only trial was infeasible")
		}
		return resultFrom(&cur, pv, iterations, trials, false),
			errors.New(errors.ErrCodeNonConvergence,
				"mass mismatch %.3e exceeds tolerance %.1e and the stack has no free parameters",
				cur.mismatch, tol)
	}

	for iterations = 1; iterations <= s.opts.MaxIterations; iterations++ {
		improved := false
		for i := range plan.free {
			fp := &plan.free[i]
			out, v, n, err := s.refineParam(ctx, bc, plan, pv, fp, tol)
			trials += n
			if err != nil {
				return nil, err
			}
			if out == nil {
				continue
			}
			if score(out) < score(&cur) {
				pv[fp.name] = v
				cur = *out
				improved = true
			}
			if converged(&cur, tol) {
				observability.Solver().OnIteration(ctx, iterations, pv, cur.mismatch)
				return s.finish(bc, &cur, pv, iterations, trials)
			}
		}
		observability.Solver().OnIteration(ctx, iterations, pv, cur.mismatch)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !improved {
			break
		}
	}

	return resultFrom(&cur, pv, iterations, trials, false),
		errors.New(errors.ErrCodeNonConvergence,
			"mass mismatch %.3e exceeds tolerance %.1e after %d iterations and %d trials (params %v)",
			cur.mismatch, tol, iterations, trials, pv)
}

func converged(o *trialOutcome, tol float64) bool {
	return o.usable() && !o.overMass && math.Abs(o.mismatch) <= tol
}

// finish validates the moment of inertia window, when one is set, on a
// mass-converged outcome.
func (s *Solver) finish(bc body.BoundaryConstraints, o *trialOutcome, pv body.ParameterVector, iterations, trials int) (*Result, error) {
	if bc.MoI > 0 && math.Abs(o.interior.MoI-bc.MoI) > bc.MoIUncertainty {
		return resultFrom(o, pv, iterations, trials, false),
			errors.New(errors.ErrCodeNonConvergence,
				"mass converged but C/MR^2 %.4f falls outside %.4f +/- %.4f",
				o.interior.MoI, bc.MoI, bc.MoIUncertainty)
	}
	return resultFrom(o, pv, iterations, trials, true), nil
}

// refineParam improves one free parameter while the others stay fixed: a
// parallel grid scan brackets a sign change of the mismatch, then bisection
// closes in on the root. Returns the best outcome found, its parameter
// value, and the number of trials spent. Trial-class failures in the grid
// are skipped; a fatal outcome aborts the refinement with its error.
func (s *Solver) refineParam(ctx context.Context, bc body.BoundaryConstraints, plan *stackPlan, pv body.ParameterVector, fp *freeParam, tol float64) (*trialOutcome, float64, int, error) {
	nPts := s.opts.ScanPoints
	vals := make([]float64, nPts)
	pvs := make([]body.ParameterVector, nPts)
	for i := 0; i < nPts; i++ {
		vals[i] = fp.lo + (fp.hi-fp.lo)*float64(i)/float64(nPts-1)
		p := pv.Clone()
		p[fp.name] = vals[i]
		pvs[i] = p
	}
	outs := s.evaluateBatch(ctx, bc, plan, pvs)
	n := len(outs)

	var best *trialOutcome
	bestV := 0.0
	for i := range outs {
		if outs[i].fatal {
			return nil, 0, n, outs[i].err
		}
		if score(&outs[i]) < score(best) {
			best, bestV = &outs[i], vals[i]
		}
	}
	if best != nil && converged(best, tol) {
		return best, bestV, n, nil
	}

	// Bracket: adjacent usable samples with opposite mismatch signs.
	lo, hi := 0.0, 0.0
	loPos := false
	found := false
	prev := -1
	for i := range outs {
		if !outs[i].usable() {
			continue
		}
		if prev >= 0 && math.Signbit(outs[prev].mismatch) != math.Signbit(outs[i].mismatch) {
			lo, hi = vals[prev], vals[i]
			loPos = !math.Signbit(outs[prev].mismatch)
			found = true
			break
		}
		prev = i
	}
	if !found {
		return best, bestV, n, nil
	}

	for it := 0; it < bisectIters; it++ {
		if ctx.Err() != nil {
			break
		}
		mid := 0.5 * (lo + hi)
		p := pv.Clone()
		p[fp.name] = mid
		out := s.evaluate(ctx, bc, plan, p)
		n++
		if out.fatal {
			return nil, 0, n, out.err
		}
		if !out.usable() {
			break
		}
		if score(&out) < score(best) {
			o := out
			best, bestV = &o, mid
		}
		if converged(&out, tol) {
			return best, bestV, n, nil
		}
		if (out.mismatch > 0) == loPos {
			lo = mid
		} else {
			hi = mid
		}
		if math.Abs(hi-lo) <= 1e-12*(math.Abs(fp.hi)+1) {
			break
		}
	}
	return best, bestV, n, nil
}

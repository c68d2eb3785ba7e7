package solve

import (
	"context"
	"sync"

	"github.com/soletide/hydrostat/pkg/body"
)

// evaluateBatch runs independent trials concurrently. Trials share nothing
// but the read-only plan and EOS source, so a plain worker pool over an
// index channel is enough; each slot of the result slice is written by
// exactly one worker.
func (s *Solver) evaluateBatch(ctx context.Context, bc body.BoundaryConstraints, plan *stackPlan, pvs []body.ParameterVector) []trialOutcome {
	out := make([]trialOutcome, len(pvs))
	if len(pvs) == 0 {
		return out
	}
	if len(pvs) == 1 || s.opts.Workers <= 1 {
		for i := range pvs {
			out[i] = s.evaluate(ctx, bc, plan, pvs[i])
		}
		return out
	}

	workers := s.opts.Workers
	if workers > len(pvs) {
		workers = len(pvs)
	}
	jobs := make(chan int, len(pvs))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					out[idx] = trialOutcome{err: err}
					continue
				}
				out[idx] = s.evaluate(ctx, bc, plan, pvs[idx])
			}
		}()
	}
	for i := range pvs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}

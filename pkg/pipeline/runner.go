package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/cache"
	"github.com/soletide/hydrostat/pkg/eos"
	"github.com/soletide/hydrostat/pkg/errors"
	"github.com/soletide/hydrostat/pkg/observability"
	"github.com/soletide/hydrostat/pkg/profile"
	"github.com/soletide/hydrostat/pkg/solve"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache, EOS source and logger - it
// doesn't store run results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Source eos.Source
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and EOS source.
// If c is nil, a NullCache is used (caching disabled).
// If source is nil, the built-in parametric source is used, memoized.
func NewRunner(c cache.Cache, source eos.Source, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if source == nil {
		source = eos.NewMemoizedSource(eos.NewParametricSource())
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Source: source, Logger: logger}
}

// Execute runs the complete fingerprint → solve → assemble pipeline with
// caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}

	fp, err := cache.Fingerprint(cache.FingerprintInput{
		Constraints: opts.Constraints,
		Layers:      opts.Layers,
		EOSVersion:  r.Source.Version(),
		Solver:      opts.Solver,
		Assembly:    opts.Assembly,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "fingerprint inputs")
	}
	key := cache.ProfileKey(fp)

	// Stage 1: cache lookup (unless refresh requested)
	if !opts.Refresh {
		if p, ok := r.lookup(ctx, key); ok {
			observability.Cache().OnCacheHit(ctx, "profile")
			r.Logger.Info("profile served from cache",
				"fingerprint", fp[:12], "points", len(p.Points))
			p.Convergence.CacheHit = true
			return &Result{
				Profile:     p,
				RunID:       p.Convergence.RunID,
				Fingerprint: fp,
				Stats: Stats{
					Iterations:   p.Convergence.Iterations,
					Trials:       p.Convergence.Trials,
					MassMismatch: p.Convergence.MassMismatch,
				},
				CacheInfo: CacheInfo{ProfileHit: true},
			}, nil
		}
		observability.Cache().OnCacheMiss(ctx, "profile")
	}

	// Stage 2: solve
	solver, err := solve.New(r.Source, opts.Solver)
	if err != nil {
		return nil, err
	}
	solveStart := time.Now()
	res, err := solver.Solve(ctx, opts.Constraints, opts.Layers)
	solveTime := time.Since(solveStart)
	if err != nil {
		return nil, err
	}
	r.Logger.Info("solver converged",
		"iterations", res.Iterations,
		"trials", res.Trials,
		"mismatch", res.MassMismatch,
		"duration", solveTime)

	// Stage 3: assemble
	runID := uuid.NewString()
	conv := body.Convergence{
		RunID:        runID,
		Fingerprint:  fp,
		Iterations:   res.Iterations,
		Trials:       res.Trials,
		MassMismatch: res.MassMismatch,
		Params:       res.Params,
	}
	asmOpts := opts.Assembly
	if asmOpts.Logger == nil {
		asmOpts.Logger = opts.Logger
	}
	assembleStart := time.Now()
	prof, err := profile.New(r.Source, asmOpts).Assemble(res.Segments, res.Interior, conv)
	assembleTime := time.Since(assembleStart)
	if err != nil {
		return nil, err
	}
	r.Logger.Info("assembled profile",
		"points", len(prof.Points),
		"duration", assembleTime)

	// Write back; a failing cache never fails the run.
	if data, err := prof.Marshal(); err == nil {
		ttl := opts.CacheTTL
		if ttl < 0 {
			ttl = 0
		}
		if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
			r.Logger.Warn("cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "profile", len(data))
		}
	}

	return &Result{
		Profile:     prof,
		RunID:       runID,
		Fingerprint: fp,
		Stats: Stats{
			SolveTime:    solveTime,
			AssembleTime: assembleTime,
			Iterations:   res.Iterations,
			Trials:       res.Trials,
			MassMismatch: res.MassMismatch,
		},
		CacheInfo: CacheInfo{},
	}, nil
}

// lookup fetches and decodes a cached profile; undecodable entries are
// dropped and treated as misses.
func (r *Runner) lookup(ctx context.Context, key string) (*body.Profile, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		if err != nil {
			r.Logger.Warn("cache read failed", "err", err)
		}
		return nil, false
	}
	p, err := body.UnmarshalProfile(data)
	if err != nil {
		r.Logger.Warn("dropping undecodable cache entry", "err", err)
		_ = r.Cache.Delete(ctx, key)
		return nil, false
	}
	return p, true
}

// Package pipeline provides the core solve pipeline for hydrostat.
//
// This package implements the complete fingerprint → solve → assemble flow
// that can be used by CLI and API components. By centralizing this logic,
// we ensure consistent behavior across all entry points and avoid code
// duplication.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Fingerprint: Hash the constraints, layer stack, EOS version and
//     solver options into the cache key
//  2. Solve: Run the constraint solver over the layer stack
//  3. Assemble: Build the final radial profile with derived properties
//
// A fingerprint hit skips stages 2 and 3 entirely: the cached profile is
// returned without a single integration step or EOS lookup.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Constraints: constraints,
//	    Layers:      layers,
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	profile := result.Profile
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/errors"
	"github.com/soletide/hydrostat/pkg/profile"
	"github.com/soletide/hydrostat/pkg/solve"
)

// DefaultCacheTTL is applied when Options.CacheTTL is zero. Profiles are
// deterministic in their fingerprint, so entries never go stale; the TTL
// only bounds storage growth.
const DefaultCacheTTL = 30 * 24 * time.Hour

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Constraints are the observed globals the model must reproduce.
	Constraints body.BoundaryConstraints `json:"constraints" toml:"constraints"`

	// Layers is the surface-first layer stack.
	Layers []body.LayerSpec `json:"layers" toml:"layers"`

	// Solver configures the constraint solver and integrator.
	Solver solve.Options `json:"solver,omitempty" toml:"solver"`

	// Assembly configures the final profile pass.
	Assembly profile.Options `json:"assembly,omitempty" toml:"assembly"`

	// Refresh bypasses the cache read (the result is still written back).
	Refresh bool `json:"refresh,omitempty" toml:"refresh"`

	// CacheTTL overrides the entry lifetime. Zero selects DefaultCacheTTL;
	// negative disables expiration.
	CacheTTL time.Duration `json:"cache_ttl,omitempty" toml:"cache_ttl"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-" toml:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect
// as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Layers) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "at least one layer is required")
	}
	if err := o.Solver.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Profile is the assembled (or cached) model.
	Profile *body.Profile

	// RunID identifies the run that produced the profile. For cache hits
	// this is the original producing run.
	RunID string

	// Fingerprint is the cache key hash of the inputs.
	Fingerprint string

	// Stats contains timing and convergence information.
	Stats Stats

	// CacheInfo tracks whether the profile came from the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	SolveTime    time.Duration
	AssembleTime time.Duration
	Iterations   int
	Trials       int
	MassMismatch float64
}

// CacheInfo tracks cache hits.
type CacheInfo struct {
	ProfileHit bool // Whether the profile came from cache
}

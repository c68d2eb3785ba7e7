// Package pkg provides the core libraries for hydrostat interior modeling.
//
// # Overview
//
// Hydrostat builds self-consistent radial structure models of icy moons and
// small rocky bodies: given the observed mass, radius and moment of inertia,
// it integrates hydrostatic layer stacks surface to center and searches the
// free parameters until the model reproduces the observations. The pkg
// directory is organized into these areas:
//
//  1. [body] - Core domain types (constraints, layer specs, profiles)
//  2. [phase] - The H2O phase diagram and melting curves
//  3. [eos] - Equation of state providers for water, ice, rock and iron
//  4. [integrate] - Hydrostatic layer integration with thermal rules
//  5. [solve] - The constraint solver (interface scan and bisection)
//  6. [profile] - Segment assembly into the final radial profile
//  7. [cache] - Profile caching (file, memory, Redis, MongoDB)
//  8. [pipeline] - Orchestration (fingerprint, solve, assemble)
//  9. [io] - Profile import and export (JSON, CSV)
//
// # Architecture
//
// The typical data flow through hydrostat:
//
//	TOML config / API request
//	         ↓
//	    [pipeline] package (fingerprint + cache lookup)
//	         ↓
//	    [solve] package (trial integration + parameter search)
//	         ↓
//	    [integrate] package (pressure-stepped layer walks)
//	         ↓
//	    [profile] package (join checks + derived properties)
//	         ↓
//	    JSON/CSV output
//
// # Quick Start
//
// Solve a model programmatically through the pipeline:
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Constraints: constraints,
//	    Layers:      layers,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(len(result.Profile.Points))
//
// Supporting packages: [errors] for coded errors, [observability] for solver
// and cache hooks, [buildinfo] for version stamping.
package pkg

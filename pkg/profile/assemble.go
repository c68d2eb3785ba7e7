// Package profile assembles solver segments into the final radial profile.
//
// Assembly concatenates the integrated segments surface-to-center, verifies
// that adjacent segments actually join (radius, pressure and temperature
// continuous within tight tolerances; density is allowed to jump at phase
// boundaries), reverses the result into center-to-surface order, and runs a
// final EOS pass to fill the derived transport properties.
package profile

import (
	"io"
	"math"

	"github.com/charmbracelet/log"

	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/eos"
	"github.com/soletide/hydrostat/pkg/errors"
)

// Join tolerances between adjacent segments.
const (
	joinRadiusRel   = 1e-9 // fraction of the body radius
	joinPressureTol = 1e-6 // MPa
	joinTempTol     = 0.1  // K; melt-curve resets stay far below this
)

// Options configures assembly.
type Options struct {
	// CalcSeismic fills P- and S-wave speeds and the attenuation factor.
	CalcSeismic bool `json:"calc_seismic" toml:"calc_seismic"`

	// CalcConduct fills electrical conductivity.
	CalcConduct bool `json:"calc_conduct" toml:"calc_conduct"`

	// Logger receives assembly warnings. Nil discards them.
	Logger *log.Logger `json:"-" toml:"-"`
}

// Assembler turns segments into profiles.
type Assembler struct {
	source eos.Source
	opts   Options
}

// New creates an Assembler.
func New(source eos.Source, opts Options) *Assembler {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Assembler{source: source, opts: opts}
}

// Assemble builds the final profile from surface-first segments and attaches
// the interior summary and run metadata. Returns a DISCONTINUITY error when
// adjacent segments do not join.
func (a *Assembler) Assemble(segs []*body.Segment, interior body.Interior, conv body.Convergence) (*body.Profile, error) {
	if len(segs) == 0 {
		return nil, errors.New(errors.ErrCodeInternal, "no segments to assemble")
	}
	surfaceR := segs[0].Top().Radius
	if err := checkJoins(segs, surfaceR); err != nil {
		return nil, err
	}

	// Concatenate top-down, dropping the duplicated join state at the top
	// of each inner segment (the walk reuses the previous bottom state).
	var states []body.IntegrationState
	specs := make([]body.LayerSpec, 0, len(segs))
	specIdx := make([]int, 0, 256)
	for i, seg := range segs {
		specs = append(specs, seg.Layer)
		for j, st := range seg.States {
			if i > 0 && j == 0 && len(states) > 0 &&
				math.Abs(st.Radius-states[len(states)-1].Radius) <= joinRadiusRel*surfaceR {
				continue
			}
			states = append(states, st)
			specIdx = append(specIdx, i)
		}
	}

	// Reverse into center-to-surface order.
	points := make([]body.ProfilePoint, len(states))
	layerOf := make([]int, len(states))
	for i, st := range states {
		k := len(states) - 1 - i
		points[k] = body.ProfilePoint{
			Radius:       st.Radius,
			Depth:        st.Depth,
			Pressure:     st.Pressure,
			Temperature:  st.Temperature,
			Gravity:      st.Gravity,
			Density:      st.Density,
			EnclosedMass: st.EnclosedMass,
			Phase:        st.Phase,
		}
		layerOf[k] = specIdx[i]
	}

	if a.opts.CalcSeismic || a.opts.CalcConduct {
		a.fillDerived(points, layerOf, specs)
	}
	a.warnInvertedGradient(points)

	p := &body.Profile{Points: points, Interior: interior, Convergence: conv}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDiscontinuity, err, "assembled profile is inconsistent")
	}
	return p, nil
}

// checkJoins verifies that each segment starts where the previous one ended.
func checkJoins(segs []*body.Segment, surfaceR float64) error {
	for i := 1; i < len(segs); i++ {
		prev, cur := segs[i-1].Bottom(), segs[i].Top()
		if math.Abs(cur.Radius-prev.Radius) > joinRadiusRel*surfaceR {
			return errors.New(errors.ErrCodeDiscontinuity,
				"segment %q does not join %q: radius %.3f m vs %.3f m",
				segs[i].Layer.Name, segs[i-1].Layer.Name, cur.Radius, prev.Radius)
		}
		if math.Abs(cur.Pressure-prev.Pressure) > joinPressureTol {
			return errors.New(errors.ErrCodeDiscontinuity,
				"segment %q does not join %q: pressure %.6f MPa vs %.6f MPa",
				segs[i].Layer.Name, segs[i-1].Layer.Name, cur.Pressure, prev.Pressure)
		}
		if math.Abs(cur.Temperature-prev.Temperature) > joinTempTol {
			return errors.New(errors.ErrCodeDiscontinuity,
				"segment %q does not join %q: temperature %.3f K vs %.3f K",
				segs[i].Layer.Name, segs[i-1].Layer.Name, cur.Temperature, prev.Temperature)
		}
	}
	return nil
}

// fillDerived runs the final EOS pass. Lookup failures leave the derived
// fields zero rather than failing an otherwise converged profile.
func (a *Assembler) fillDerived(points []body.ProfilePoint, layerOf []int, specs []body.LayerSpec) {
	providers := make([]eos.Provider, len(specs))
	for i, spec := range specs {
		prov, err := a.source.Provider(spec)
		if err != nil {
			a.opts.Logger.Warn("no EOS provider for derived properties",
				"layer", spec.Name, "err", err)
			continue
		}
		providers[i] = prov
	}
	var failed int
	for i := range points {
		prov := providers[layerOf[i]]
		if prov == nil {
			continue
		}
		props, err := prov.Lookup(points[i].Pressure, points[i].Temperature, points[i].Phase)
		if err != nil {
			failed++
			continue
		}
		if a.opts.CalcSeismic {
			points[i].VP = props.VP
			points[i].VS = props.VS
			points[i].AttenuationQ = props.AttenuationQ
		}
		if a.opts.CalcConduct {
			points[i].Conductivity = props.Conductivity
		}
	}
	if failed > 0 {
		a.opts.Logger.Warn("derived properties unavailable for some points", "points", failed)
	}
}

// warnInvertedGradient flags temperature rising toward the surface, which
// usually means an adiabat was applied where expansivity goes negative
// (cold water anomaly) or a conductive anchor is inconsistent.
func (a *Assembler) warnInvertedGradient(points []body.ProfilePoint) {
	var inverted int
	for i := 1; i < len(points); i++ {
		if points[i].Temperature > points[i-1].Temperature+1e-9 {
			inverted++
		}
	}
	if inverted > 0 {
		a.opts.Logger.Warn("temperature increases toward the surface",
			"points", inverted)
	}
}

package phase

import (
	"math"

	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/errors"
)

// H2O phase diagram node points: triple-point pressures between adjacent
// polymorphs along the melting curve, in MPa, and the melting temperatures
// at those pressures, in K. Values follow the standard pure-water diagram.
const (
	pIhIII = 209.9  // Ih / III transition pressure
	pIIIV  = 350.1  // III / V transition pressure
	pVVI   = 632.4  // V / VI transition pressure
	pVIMax = 2216.0 // upper edge of the modeled diagram

	tMeltSurf = 273.16  // Ih melting temperature at zero pressure
	tIhIII    = 251.165 // melting temperature at the Ih/III point
	tIIIV     = 256.16  // melting temperature at the III/V point
	tVVI      = 273.31  // melting temperature at the V/VI point
	tVIMax    = 355.0   // melting temperature at the diagram's upper edge
)

// Ih melting curve quadratic fit coefficients: Tm = tMeltSurf - a*P - b*P^2
// reproduces the Ih/III point at 209.9 MPa.
const (
	ihMeltLin  = 0.0739
	ihMeltQuad = 1.472e-4
)

// meltDepressionPerPPT is the linearized freezing-point depression in K per
// g/kg dissolved salt, anchored to standard seawater.
const meltDepressionPerPPT = 0.0542

// Diagram is the H2O(+salt) phase diagram at a fixed ocean salinity.
//
// Liquid/solid boundaries follow fitted melting curves; solid/solid
// boundaries between the polymorphs are taken at constant pressure, which
// is adequate below the melting curve where their temperature dependence is
// weak.
type Diagram struct {
	salinity float64 // g/kg
}

// NewDiagram creates the diagram for the given salinity in g/kg.
func NewDiagram(salinity float64) *Diagram {
	return &Diagram{salinity: salinity}
}

// depressed returns the melting temperature at p lowered by the salinity
// depression.
func (d *Diagram) depressed(p float64) float64 {
	return d.pureMelt(p) - meltDepressionPerPPT*d.salinity
}

// pureMelt returns the pure-water melting temperature at pressure p (MPa).
// Outside the modeled pressure range the curve is clamped to its edge
// values; Phase reports ice VI beyond pVIMax regardless.
func (d *Diagram) pureMelt(p float64) float64 {
	switch {
	case p <= 0:
		return tMeltSurf
	case p <= pIhIII:
		return tMeltSurf - ihMeltLin*p - ihMeltQuad*p*p
	case p <= pIIIV:
		return lerp(p, pIhIII, pIIIV, tIhIII, tIIIV)
	case p <= pVVI:
		return lerp(p, pIIIV, pVVI, tIIIV, tVVI)
	case p <= pVIMax:
		return lerp(p, pVVI, pVIMax, tVVI, tVIMax)
	default:
		return tVIMax
	}
}

// solid returns the polymorph stable at pressure p below the melting curve.
// Boundary pressures belong to the lower-pressure polymorph.
func solid(p float64) body.Phase {
	switch {
	case p <= pIhIII:
		return body.PhaseIceIh
	case p <= pIIIV:
		return body.PhaseIceIII
	case p <= pVVI:
		return body.PhaseIceV
	default:
		return body.PhaseIceVI
	}
}

// Phase implements Locator.
//
// Exactly on the melting curve, the phase with the lower stability pressure
// at that temperature wins: ice in the Ih region (the Ih melting curve has
// negative slope, so ice is the lower-pressure phase there), liquid in the
// high-pressure polymorph regions.
func (d *Diagram) Phase(p, t float64) body.Phase {
	tm := d.depressed(p)
	switch {
	case t > tm:
		return body.PhaseLiquid
	case t < tm:
		return solid(p)
	case p <= pIhIII:
		return body.PhaseIceIh
	default:
		return body.PhaseLiquid
	}
}

// MeltTemperature returns the salinity-depressed melting temperature at
// pressure p (MPa).
func (d *Diagram) MeltTemperature(p float64) float64 { return d.depressed(p) }

// IhMeltRange returns the temperature range [min, max] spanned by the ice Ih
// melting curve at this salinity. Shell bottom temperatures outside it cannot
// anchor an Ih shell over a liquid ocean; the solver brackets inside it.
func (d *Diagram) IhMeltRange() (tMin, tMax float64) {
	return d.depressed(pIhIII), d.depressed(0)
}

// MeltingPressure finds the pressure at the bottom of an ice Ih shell whose
// base sits at melting temperature tb (K): the pressure on the Ih melting
// curve where Tm(P) == tb. The curve is monotone decreasing over the Ih
// field, so a bracketed bisection always terminates.
//
// Returns INVALID_LAYER when tb lies outside the Ih melting range (the shell
// bottom temperature is inconsistent with an ice Ih shell over a liquid
// ocean).
func (d *Diagram) MeltingPressure(tb float64) (float64, error) {
	return d.meltingPressureIn(tb, 0, pIhIII)
}

// MeltingPressureHP is the high-pressure analog of MeltingPressure for
// underplate layers: it searches the melting curve within the stability
// field of the given polymorph.
func (d *Diagram) MeltingPressureHP(ph body.Phase, tb float64) (float64, error) {
	var lo, hi float64
	switch ph {
	case body.PhaseIceIII:
		lo, hi = pIhIII, pIIIV
	case body.PhaseIceV:
		lo, hi = pIIIV, pVVI
	case body.PhaseIceVI:
		lo, hi = pVVI, pVIMax
	default:
		return 0, errors.New(errors.ErrCodeInvalidLayer,
			"%s has no high-pressure melting field", ph)
	}
	return d.meltingPressureIn(tb, lo, hi)
}

// meltPTolMPa is the bisection termination width for melting-pressure
// searches.
const meltPTolMPa = 1e-6

func (d *Diagram) meltingPressureIn(tb, lo, hi float64) (float64, error) {
	fLo := d.depressed(lo) - tb
	fHi := d.depressed(hi) - tb
	if fLo == 0 {
		return lo, nil
	}
	if fHi == 0 {
		return hi, nil
	}
	if fLo*fHi > 0 {
		return 0, errors.New(errors.ErrCodeInvalidLayer,
			"melting temperature %.2f K outside the curve range [%.2f, %.2f] K over [%.1f, %.1f] MPa",
			tb, d.depressed(lo), d.depressed(hi), lo, hi)
	}
	for hi-lo > meltPTolMPa {
		mid := 0.5 * (lo + hi)
		fMid := d.depressed(mid) - tb
		if fMid == 0 {
			return mid, nil
		}
		if math.Signbit(fMid) == math.Signbit(fLo) {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi), nil
}

func lerp(x, x0, x1, y0, y1 float64) float64 {
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

var _ Locator = (*Diagram)(nil)

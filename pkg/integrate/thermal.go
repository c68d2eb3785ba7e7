package integrate

import (
	"math"

	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/phase"
)

// thermalRule advances temperature across one integration step. The engine
// hands it the fully resolved current state plus the pressure and radius of
// the state being built.
type thermalRule interface {
	next(cur body.IntegrationState, pNext, rNext float64) float64
}

// adiabat follows dT = alpha*T/(rho*Cp) dP, the temperature profile of a
// well-mixed convecting fluid.
type adiabat struct{}

func (adiabat) next(cur body.IntegrationState, pNext, _ float64) float64 {
	if cur.Density <= 0 || cur.HeatCapacity <= 0 {
		return cur.Temperature
	}
	dP := (pNext - cur.Pressure) * body.PaPerMPa
	return cur.Temperature + cur.Expansivity*cur.Temperature/(cur.Density*cur.HeatCapacity)*dP
}

// meltAnchored is the conductive profile of an outer ice shell pinned to the
// melting curve at its base: temperature interpolates geometrically between
// the surface value and the anchor, T(P) = Ttop^(1-f) * Tbot^f with f the
// fractional pressure depth. The geometric form reproduces the steady
// conductive solution for ice whose conductivity scales as 1/T.
type meltAnchored struct {
	tTop, pTop float64
	tBot, pBot float64
}

func (m meltAnchored) next(_ body.IntegrationState, pNext, _ float64) float64 {
	f := (pNext - m.pTop) / (m.pBot - m.pTop)
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	return m.tTop * math.Pow(m.tBot/m.tTop, f)
}

// meltTrackOffsetK keeps a melt-following profile marginally inside the solid
// field so the locator keeps agreeing with the phase being integrated.
const meltTrackOffsetK = 1e-6

// meltFollowing pins temperature to the melting curve, the profile of a
// high-pressure ice layer in two-phase equilibrium with the ocean above it.
type meltFollowing struct {
	dia *phase.Diagram
}

func (m meltFollowing) next(_ body.IntegrationState, pNext, _ float64) float64 {
	return m.dia.MeltTemperature(pNext) - meltTrackOffsetK
}

// conductiveFlux is steady spherical conduction with uniform volumetric
// heating, anchored at the layer top: q(r) = (A + H r^3/3)/r^2 with
// A = qTop*rTop^2 - H*rTop^3/3, integrated to
//
//	T(r) = Ttop + (A*(1/r - 1/rTop) + H*(rTop^2 - r^2)/6) / k
//
// With qTop = 0 and H = 0 the layer is isothermal.
type conductiveFlux struct {
	tTop, rTop float64
	k          float64 // thermal conductivity at the layer top, W/(m K)
	a          float64 // qTop*rTop^2 - H*rTop^3/3
	h          float64 // volumetric heating rho*Q, W/m^3
}

func newConductiveFlux(tTop, rTop, k, qTop, rho, heating float64) conductiveFlux {
	h := rho * heating
	return conductiveFlux{
		tTop: tTop,
		rTop: rTop,
		k:    k,
		a:    qTop*rTop*rTop - h*rTop*rTop*rTop/3,
		h:    h,
	}
}

func (c conductiveFlux) next(_ body.IntegrationState, _, rNext float64) float64 {
	if c.k <= 0 || rNext <= 0 {
		return c.tTop
	}
	return c.tTop + (c.a*(1/rNext-1/c.rTop)+c.h*(c.rTop*c.rTop-rNext*rNext)/6)/c.k
}

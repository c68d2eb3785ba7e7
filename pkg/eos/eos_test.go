package eos

import (
	"math"
	"testing"

	"github.com/soletide/hydrostat/pkg/body"
)

func TestHydroProvider_Liquid(t *testing.T) {
	pure := NewHydroProvider(0)

	props, err := pure.Lookup(0.1, 277, body.PhaseLiquid)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if math.Abs(props.Density-liquidRho0) > 1.0 {
		t.Errorf("pure water density at reference state = %g, want ~%g", props.Density, liquidRho0)
	}
	if props.VS != 0 {
		t.Errorf("liquid VS = %g, want 0", props.VS)
	}

	salty := NewHydroProvider(35)
	sProps, err := salty.Lookup(0.1, 277, body.PhaseLiquid)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if sProps.Density <= props.Density {
		t.Error("brine should be denser than pure water")
	}
	if sProps.Conductivity <= props.Conductivity {
		t.Error("brine should conduct better than pure water")
	}

	deep, err := pure.Lookup(100, 277, body.PhaseLiquid)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if deep.Density <= props.Density {
		t.Error("density should increase with pressure")
	}
}

func TestHydroProvider_Ice(t *testing.T) {
	h := NewHydroProvider(0)

	props, err := h.Lookup(0.1, 250, body.PhaseIceIh)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if props.Density >= 1000 {
		t.Errorf("ice Ih density = %g, should float on water", props.Density)
	}
	if props.VS == 0 {
		t.Error("solid ice should carry shear waves")
	}

	vi, err := h.Lookup(1200, 280, body.PhaseIceVI)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if vi.Density <= 1000 {
		t.Errorf("ice VI density = %g, should sink in water", vi.Density)
	}

	// Attenuation rises toward the melting point.
	warm, _ := h.Lookup(0.1, 270, body.PhaseIceIh)
	cold, _ := h.Lookup(0.1, 180, body.PhaseIceIh)
	if warm.AttenuationQ >= cold.AttenuationQ {
		t.Error("Q should drop as ice approaches melting")
	}
}

func TestHydroProvider_OutOfRange(t *testing.T) {
	h := NewHydroProvider(0)

	tests := []struct {
		name  string
		p, t  float64
		phase body.Phase
	}{
		{"pressure too high", 3000, 280, body.PhaseLiquid},
		{"temperature too low", 10, 30, body.PhaseIceIh},
		{"temperature too high", 10, 500, body.PhaseLiquid},
		{"wrong material", 10, 280, body.PhaseSilicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Lookup(tt.p, tt.t, tt.phase)
			if !IsOutOfRange(err) {
				t.Errorf("Lookup(%g, %g, %v) error = %v, want out-of-range", tt.p, tt.t, tt.phase, err)
			}
		})
	}
}

func TestIronProvider_BulkDensity(t *testing.T) {
	pure := NewIronProvider(0)
	if got := pure.BulkDensity(); math.Abs(got-rhoFe) > 1e-9 {
		t.Errorf("xFeS=0 bulk density = %g, want %g", got, rhoFe)
	}
	sulfide := NewIronProvider(1)
	if got := sulfide.BulkDensity(); math.Abs(got-rhoFeS) > 1e-9 {
		t.Errorf("xFeS=1 bulk density = %g, want %g", got, rhoFeS)
	}
	mixed := NewIronProvider(DefaultSulfurFraction).BulkDensity()
	if mixed <= rhoFeS || mixed >= rhoFe {
		t.Errorf("mixed bulk density %g outside the end members", mixed)
	}
}

func TestSilicateProvider_Lookup(t *testing.T) {
	s := NewSilicateProvider()

	props, err := s.Lookup(0, rockTRef, body.PhaseSilicate)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if math.Abs(props.Density-rockRho0) > 1e-9 {
		t.Errorf("reference density = %g, want %g", props.Density, rockRho0)
	}
	if _, err := s.Lookup(100, 500, body.PhaseLiquid); !IsOutOfRange(err) {
		t.Error("silicate provider should reject non-silicate phases")
	}
}

func TestParametricSource_ProviderReuse(t *testing.T) {
	src := NewParametricSource()

	ocean := body.LayerSpec{Name: "ocean", Composition: body.CompSeawater, Salinity: 35}
	a, err := src.Provider(ocean)
	if err != nil {
		t.Fatalf("Provider failed: %v", err)
	}
	b, err := src.Provider(ocean)
	if err != nil {
		t.Fatalf("Provider failed: %v", err)
	}
	if a != b {
		t.Error("same salinity should reuse the same hydro provider")
	}

	fresh, err := src.Provider(body.LayerSpec{Name: "lake", Composition: body.CompWater})
	if err != nil {
		t.Fatalf("Provider failed: %v", err)
	}
	if fresh == a {
		t.Error("different salinities should get different providers")
	}

	if _, err := src.Provider(body.LayerSpec{Name: "x", Composition: "plasma"}); err == nil {
		t.Error("unknown composition should fail")
	}
}

func TestMemoized_CachesLookups(t *testing.T) {
	u := NewUniform(Properties{Density: 1000})
	m := NewMemoized(u)

	for i := 0; i < 5; i++ {
		if _, err := m.Lookup(10, 270, body.PhaseLiquid); err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
	}
	if got := u.Calls(); got != 1 {
		t.Errorf("inner provider called %d times, want 1", got)
	}
	if m.Size() != 1 {
		t.Errorf("memo size = %d, want 1", m.Size())
	}

	// Distinct states miss the cache.
	if _, err := m.Lookup(20, 270, body.PhaseLiquid); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got := u.Calls(); got != 2 {
		t.Errorf("inner provider called %d times, want 2", got)
	}
}

func TestMemoized_CachesErrors(t *testing.T) {
	u := NewUniform(Properties{Density: 1000})
	u.MaxPressure = 100
	m := NewMemoized(u)

	for i := 0; i < 3; i++ {
		if _, err := m.Lookup(200, 270, body.PhaseLiquid); !IsOutOfRange(err) {
			t.Fatalf("expected out-of-range, got %v", err)
		}
	}
	if got := u.Calls(); got != 1 {
		t.Errorf("inner provider called %d times for a repeated failure, want 1", got)
	}
}

func TestMemoizedSource_SharesWrappers(t *testing.T) {
	src := NewMemoizedSource(NewParametricSource())

	ocean := body.LayerSpec{Name: "ocean", Composition: body.CompSeawater, Salinity: 35}
	a, err := src.Provider(ocean)
	if err != nil {
		t.Fatalf("Provider failed: %v", err)
	}
	b, err := src.Provider(body.LayerSpec{Name: "deep", Composition: body.CompSeawater, Salinity: 35})
	if err != nil {
		t.Fatalf("Provider failed: %v", err)
	}
	if a != b {
		t.Error("layers sharing a provider should share its memo wrapper")
	}
}

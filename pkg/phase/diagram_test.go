package phase

import (
	"math"
	"testing"

	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/errors"
)

func TestDiagram_PhaseRegions(t *testing.T) {
	d := NewDiagram(0)

	tests := []struct {
		name string
		p, t float64
		want body.Phase
	}{
		{"surface liquid", 0.1, 300, body.PhaseLiquid},
		{"surface ice", 0.1, 250, body.PhaseIceIh},
		{"cold shallow ice", 50, 150, body.PhaseIceIh},
		{"ice III field", 300, 240, body.PhaseIceIII},
		{"ice V field", 500, 250, body.PhaseIceV},
		{"ice VI field", 1000, 250, body.PhaseIceVI},
		{"deep warm liquid", 500, 300, body.PhaseLiquid},
		{"beyond diagram edge", 2500, 300, body.PhaseIceVI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Phase(tt.p, tt.t); got != tt.want {
				t.Errorf("Phase(%g, %g) = %v, want %v", tt.p, tt.t, got, tt.want)
			}
		})
	}
}

// A state exactly on the melting curve belongs to the phase with the lower
// stability pressure: ice in the Ih field, liquid in the high-pressure fields.
func TestDiagram_TieBreak(t *testing.T) {
	d := NewDiagram(0)

	pIh := 100.0
	if got := d.Phase(pIh, d.MeltTemperature(pIh)); got != body.PhaseIceIh {
		t.Errorf("on-curve phase in Ih field = %v, want %v", got, body.PhaseIceIh)
	}

	pHP := 700.0
	if got := d.Phase(pHP, d.MeltTemperature(pHP)); got != body.PhaseLiquid {
		t.Errorf("on-curve phase in HP field = %v, want %v", got, body.PhaseLiquid)
	}
}

func TestDiagram_TieBreakDeterministic(t *testing.T) {
	d := NewDiagram(35)
	p := 150.0
	tm := d.MeltTemperature(p)
	first := d.Phase(p, tm)
	for i := 0; i < 100; i++ {
		if got := d.Phase(p, tm); got != first {
			t.Fatalf("Phase(%g, %g) changed from %v to %v", p, tm, first, got)
		}
	}
}

func TestDiagram_SalinityDepression(t *testing.T) {
	pure := NewDiagram(0)
	salty := NewDiagram(35)

	want := pure.MeltTemperature(0) - meltDepressionPerPPT*35
	if got := salty.MeltTemperature(0); math.Abs(got-want) > 1e-9 {
		t.Errorf("MeltTemperature(0) = %g, want %g", got, want)
	}
	if salty.MeltTemperature(100) >= pure.MeltTemperature(100) {
		t.Error("salinity should depress the melting temperature")
	}
}

func TestDiagram_MeltingPressureRoundTrip(t *testing.T) {
	d := NewDiagram(0)

	for _, tb := range []float64{272.0, 268.0, 260.0, 252.0} {
		p, err := d.MeltingPressure(tb)
		if err != nil {
			t.Fatalf("MeltingPressure(%g) failed: %v", tb, err)
		}
		if p <= 0 || p > pIhIII {
			t.Errorf("MeltingPressure(%g) = %g MPa, outside the Ih field", tb, p)
		}
		if got := d.MeltTemperature(p); math.Abs(got-tb) > 1e-3 {
			t.Errorf("MeltTemperature(%g) = %g, want %g", p, got, tb)
		}
	}
}

func TestDiagram_MeltingPressureOutOfRange(t *testing.T) {
	d := NewDiagram(0)

	for _, tb := range []float64{300.0, 200.0} {
		_, err := d.MeltingPressure(tb)
		if err == nil {
			t.Fatalf("MeltingPressure(%g) should fail", tb)
		}
		if !errors.Is(err, errors.ErrCodeInvalidLayer) {
			t.Errorf("MeltingPressure(%g) error code = %v, want INVALID_LAYER", tb, errors.GetCode(err))
		}
	}
}

func TestDiagram_MeltingPressureHP(t *testing.T) {
	d := NewDiagram(0)

	p, err := d.MeltingPressureHP(body.PhaseIceVI, 300.0)
	if err != nil {
		t.Fatalf("MeltingPressureHP failed: %v", err)
	}
	if p <= pVVI || p >= pVIMax {
		t.Errorf("melting pressure %g MPa outside the VI field (%g, %g)", p, pVVI, pVIMax)
	}
	if got := d.MeltTemperature(p); math.Abs(got-300.0) > 1e-3 {
		t.Errorf("MeltTemperature(%g) = %g, want 300", p, got)
	}

	if _, err := d.MeltingPressureHP(body.PhaseSilicate, 300.0); err == nil {
		t.Error("MeltingPressureHP should reject non-ice phases")
	}
}

func TestDiagram_IhMeltRange(t *testing.T) {
	d := NewDiagram(0)
	tMin, tMax := d.IhMeltRange()
	if tMin >= tMax {
		t.Fatalf("IhMeltRange = (%g, %g), want min < max", tMin, tMax)
	}
	mid := 0.5 * (tMin + tMax)
	if _, err := d.MeltingPressure(mid); err != nil {
		t.Errorf("MeltingPressure inside the range failed: %v", err)
	}
}

func TestForLayer(t *testing.T) {
	tests := []struct {
		name string
		spec body.LayerSpec
		want body.Phase
	}{
		{"silicate", body.LayerSpec{Name: "mantle", Composition: body.CompSilicate}, body.PhaseSilicate},
		{"iron", body.LayerSpec{Name: "core", Composition: body.CompIron}, body.PhaseIron},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ForLayer(tt.spec)
			if err != nil {
				t.Fatalf("ForLayer failed: %v", err)
			}
			if got := loc.Phase(1000, 5000); got != tt.want {
				t.Errorf("fixed locator returned %v, want %v", got, tt.want)
			}
		})
	}

	loc, err := ForLayer(body.LayerSpec{Name: "ocean", Composition: body.CompSeawater, Salinity: 35})
	if err != nil {
		t.Fatalf("ForLayer(seawater) failed: %v", err)
	}
	if _, ok := loc.(*Diagram); !ok {
		t.Errorf("hydrosphere locator is %T, want *Diagram", loc)
	}

	if _, err := ForLayer(body.LayerSpec{Name: "x", Composition: "plasma"}); err == nil {
		t.Error("ForLayer should reject unknown compositions")
	}
}

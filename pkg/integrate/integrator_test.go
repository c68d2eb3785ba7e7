package integrate

import (
	stderrors "errors"
	"math"
	"testing"

	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/eos"
	"github.com/soletide/hydrostat/pkg/errors"
)

// uniformBody returns constraints for a sphere of the given radius whose mass
// matches a uniform density exactly, so walks have a closed-form check.
func uniformBody(radius, rho float64) body.BoundaryConstraints {
	return body.BoundaryConstraints{
		TotalMass:          4.0 / 3.0 * math.Pi * radius * radius * radius * rho,
		Radius:             radius,
		SurfacePressure:    0,
		SurfaceTemperature: 110,
	}
}

func sphereMass(r, rho float64) float64 {
	return 4.0 / 3.0 * math.Pi * r * r * r * rho
}

func TestOptions_Validate(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("zero options should default cleanly: %v", err)
	}
	if opts.StepMPa != DefaultStepMPa || opts.MaxPressureMPa != DefaultMaxPressureMPa {
		t.Error("defaults not applied")
	}

	bad := Options{StepMPa: 0.5, BoundaryTolMPa: 1.0}
	err := bad.ValidateAndSetDefaults()
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("boundary tolerance above the step should be INVALID_CONFIG, got %v", err)
	}
}

// A constant-density layer walked to the center must reproduce the uniform
// sphere analytically: the enclosed mass at every radius is the mass of the
// sphere below it.
func TestLayer_UniformSphere(t *testing.T) {
	const (
		radius = 1.0e6
		rho    = 3000.0
	)
	bc := uniformBody(radius, rho)
	u := eos.NewUniform(eos.Properties{Density: rho})
	it, err := New(eos.UniformSource{U: u}, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	spec := body.LayerSpec{
		Name:        "rock",
		Composition: body.CompSilicate,
		Density:     rho,
		Thermal:     body.ThermalAdiabatic,
	}
	seg, err := it.Layer(SurfaceState(bc), body.PhaseSilicate, spec)
	if err != nil {
		t.Fatalf("Layer failed: %v", err)
	}

	if seg.Stop != body.StopCenter {
		t.Errorf("Stop = %v, want %v", seg.Stop, body.StopCenter)
	}
	bot := seg.Bottom()
	if math.Abs(bot.Radius-it.Opts().CenterRadiusM) > 1e-6 {
		t.Errorf("bottom radius = %g, want the center radius %g", bot.Radius, it.Opts().CenterRadiusM)
	}

	// Constant density makes the shell masses telescope, so every state's
	// enclosed mass matches the uniform sphere below it to rounding error.
	for _, st := range seg.States {
		want := sphereMass(st.Radius, rho)
		if math.Abs(st.EnclosedMass-want) > 1e-9*bc.TotalMass {
			t.Fatalf("enclosed mass at r=%.0f is %g, want %g", st.Radius, st.EnclosedMass, want)
		}
	}

	// Fixed-density layers must never touch the EOS.
	if got := u.Calls(); got != 0 {
		t.Errorf("constant-density walk performed %d EOS lookups, want 0", got)
	}

	// Monotonicity along the walk.
	for i := 1; i < len(seg.States); i++ {
		prev, cur := seg.States[i-1], seg.States[i]
		if cur.Radius >= prev.Radius {
			t.Fatalf("radius not decreasing at step %d", i)
		}
		if cur.Pressure <= prev.Pressure {
			t.Fatalf("pressure not increasing at step %d", i)
		}
		if cur.EnclosedMass >= prev.EnclosedMass {
			t.Fatalf("enclosed mass not decreasing at step %d", i)
		}
	}
}

// A fixed thickness must be landed on exactly, not overshot by a step.
func TestLayer_ThicknessStop(t *testing.T) {
	const (
		radius    = 1.0e6
		rho       = 3000.0
		thickness = 2.0e5
	)
	bc := uniformBody(radius, rho)
	it, err := New(eos.UniformSource{U: eos.NewUniform(eos.Properties{Density: rho})}, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	spec := body.LayerSpec{Name: "crust", Composition: body.CompSilicate, Density: rho, Thickness: thickness}
	seg, err := it.Layer(SurfaceState(bc), body.PhaseSilicate, spec)
	if err != nil {
		t.Fatalf("Layer failed: %v", err)
	}
	if seg.Stop != body.StopThickness {
		t.Errorf("Stop = %v, want %v", seg.Stop, body.StopThickness)
	}
	bot := seg.Bottom()
	if math.Abs(bot.Radius-(radius-thickness)) > 1e-6 {
		t.Errorf("bottom radius = %.6f, want %.6f", bot.Radius, radius-thickness)
	}
	if math.Abs(bot.Depth-thickness) > 1e-6 {
		t.Errorf("bottom depth = %.6f, want %.6f", bot.Depth, thickness)
	}
}

// A stack heavier than the body must fail with the mass-exhausted sentinel,
// detectable through the wrap chain.
func TestLayer_MassExhausted(t *testing.T) {
	bc := uniformBody(1.0e6, 1000.0)
	it, err := New(eos.UniformSource{U: eos.NewUniform(eos.Properties{Density: 8000})}, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	spec := body.LayerSpec{Name: "lead", Composition: body.CompIron, Density: 8000}
	_, err = it.Layer(SurfaceState(bc), body.PhaseIron, spec)
	if err == nil {
		t.Fatal("over-dense walk should fail")
	}
	if !stderrors.Is(err, ErrMassExhausted) {
		t.Errorf("error does not carry ErrMassExhausted: %v", err)
	}
	if !errors.Is(err, errors.ErrCodeInfeasible) {
		t.Errorf("error code = %v, want TRIAL_INFEASIBLE", errors.GetCode(err))
	}
}

// A melting-anchored shell must end exactly on its anchor pressure with the
// anchor temperature, handing off to liquid.
func TestShell_MeltingAnchor(t *testing.T) {
	bc := body.BoundaryConstraints{
		TotalMass:          4.8e22,
		Radius:             1.5608e6,
		SurfacePressure:    1e-7,
		SurfaceTemperature: 102,
	}
	src := eos.NewParametricSource()
	it, err := New(src, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	spec := body.LayerSpec{
		Name:              "shell",
		Composition:       body.CompWater,
		Thermal:           body.ThermalConductive,
		BottomTemperature: 268,
	}
	seg, err := it.Shell(SurfaceState(bc), spec)
	if err != nil {
		t.Fatalf("Shell failed: %v", err)
	}
	if seg.Stop != body.StopPhaseBoundary {
		t.Errorf("Stop = %v, want %v", seg.Stop, body.StopPhaseBoundary)
	}
	if seg.NextPhase != body.PhaseLiquid {
		t.Errorf("NextPhase = %v, want liquid", seg.NextPhase)
	}
	bot := seg.Bottom()
	if math.Abs(bot.Temperature-268) > 1e-6 {
		t.Errorf("bottom temperature = %.6f K, want 268", bot.Temperature)
	}
	if bot.Phase != body.PhaseIceIh {
		t.Errorf("shell bottom phase = %v, want ice Ih", bot.Phase)
	}
	// The anchor is where the melting curve passes 268 K.
	if bot.Pressure <= 0 || bot.Pressure > 210 {
		t.Errorf("anchor pressure %.3f MPa outside the ice Ih field", bot.Pressure)
	}
	// Conductive profile is monotone between the surface and the anchor.
	for i := 1; i < len(seg.States); i++ {
		if seg.States[i].Temperature < seg.States[i-1].Temperature {
			t.Fatalf("shell temperature not increasing with depth at step %d", i)
		}
	}
}

func TestShell_InfeasibleAnchor(t *testing.T) {
	bc := body.BoundaryConstraints{
		TotalMass:          4.8e22,
		Radius:             1.5608e6,
		SurfaceTemperature: 102,
	}
	it, err := New(eos.NewParametricSource(), Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	spec := body.LayerSpec{Name: "shell", Composition: body.CompWater, BottomTemperature: 300}
	_, err = it.Shell(SurfaceState(bc), spec)
	if !errors.Is(err, errors.ErrCodeInfeasible) {
		t.Errorf("off-curve anchor should be TRIAL_INFEASIBLE, got %v", err)
	}
}

// An ocean started warm stays liquid up to a moderate pressure ceiling.
func TestOcean_LiquidToCeiling(t *testing.T) {
	bc := body.BoundaryConstraints{
		TotalMass:          4.8e22,
		Radius:             1.5608e6,
		SurfacePressure:    1e-7,
		SurfaceTemperature: 102,
	}
	src := eos.NewParametricSource()
	it, err := New(src, Options{MaxPressureMPa: 180})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	shell, err := it.Shell(SurfaceState(bc), body.LayerSpec{
		Name: "shell", Composition: body.CompWater, BottomTemperature: 268,
	})
	if err != nil {
		t.Fatalf("Shell failed: %v", err)
	}

	ocean := body.LayerSpec{Name: "ocean", Composition: body.CompWater}
	segs, err := it.Ocean(shell.Bottom(), shell.NextPhase, ocean)
	if err != nil {
		t.Fatalf("Ocean failed: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1 liquid segment", len(segs))
	}
	if segs[0].Stop != body.StopPressureCeiling {
		t.Errorf("Stop = %v, want %v", segs[0].Stop, body.StopPressureCeiling)
	}
	bot := segs[0].Bottom()
	if math.Abs(bot.Pressure-180) > 1e-9 {
		t.Errorf("ceiling pressure = %.6f MPa, want 180", bot.Pressure)
	}
	if bot.Phase != body.PhaseLiquid {
		t.Errorf("ocean bottom phase = %v, want liquid", bot.Phase)
	}
}

// A cold shell hands the ocean off near the bottom of the ice Ih melting
// curve; deeper down the walk crosses into high-pressure ice and follows the
// melting curve from there.
func TestOcean_HighPressureIce(t *testing.T) {
	bc := body.BoundaryConstraints{
		TotalMass:          4.8e22,
		Radius:             1.5608e6,
		SurfacePressure:    1e-7,
		SurfaceTemperature: 102,
	}
	src := eos.NewParametricSource()
	it, err := New(src, Options{MaxPressureMPa: 900})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	shell, err := it.Shell(SurfaceState(bc), body.LayerSpec{
		Name: "shell", Composition: body.CompWater, BottomTemperature: 253,
	})
	if err != nil {
		t.Fatalf("Shell failed: %v", err)
	}

	segs, err := it.Ocean(shell.Bottom(), shell.NextPhase, body.LayerSpec{
		Name: "ocean", Composition: body.CompWater,
	})
	if err != nil {
		t.Fatalf("Ocean failed: %v", err)
	}
	if len(segs) < 2 {
		t.Fatalf("got %d segments, want a liquid segment plus high-pressure ice", len(segs))
	}
	if segs[0].Top().Phase != body.PhaseLiquid {
		t.Errorf("first segment phase = %v, want liquid", segs[0].Top().Phase)
	}
	if segs[0].Stop != body.StopPhaseBoundary {
		t.Errorf("first segment Stop = %v, want %v", segs[0].Stop, body.StopPhaseBoundary)
	}
	if !segs[1].Top().Phase.IsIce() {
		t.Errorf("second segment phase = %v, want a high-pressure ice", segs[1].Top().Phase)
	}

	// The boundary state must sit within the boundary tolerance of the
	// following segment's start.
	liqBot, iceTop := segs[0].Bottom(), segs[1].Top()
	if math.Abs(liqBot.Pressure-iceTop.Pressure) > it.Opts().StepMPa {
		t.Errorf("segments separated by %.3f MPa at the phase boundary",
			math.Abs(liqBot.Pressure-iceTop.Pressure))
	}
}

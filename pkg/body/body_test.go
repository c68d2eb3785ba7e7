package body

import (
	"math"
	"testing"
)

func TestLayerSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    LayerSpec
		wantErr bool
	}{
		{"valid ocean", LayerSpec{Name: "ocean", Composition: CompSeawater, Salinity: 35}, false},
		{"valid mantle", LayerSpec{Name: "mantle", Composition: CompSilicate, Density: 3300}, false},
		{"missing name", LayerSpec{Composition: CompWater}, true},
		{"unknown composition", LayerSpec{Name: "x", Composition: "plasma"}, true},
		{"unknown thermal", LayerSpec{Name: "x", Composition: CompWater, Thermal: "isothermal"}, true},
		{"negative salinity", LayerSpec{Name: "x", Composition: CompSeawater, Salinity: -1}, true},
		{"negative thickness", LayerSpec{Name: "x", Composition: CompSilicate, Thickness: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateStack_DuplicateNames(t *testing.T) {
	specs := []LayerSpec{
		{Name: "shell", Composition: CompWater},
		{Name: "shell", Composition: CompSeawater},
	}
	if err := ValidateStack(specs); err == nil {
		t.Error("duplicate layer names should be rejected")
	}
	if err := ValidateStack(nil); err == nil {
		t.Error("empty stack should be rejected")
	}
}

func TestThermalOrDefault(t *testing.T) {
	tests := []struct {
		name string
		spec LayerSpec
		want ThermalModel
	}{
		{"explicit wins", LayerSpec{Composition: CompWater, Thermal: ThermalConductive}, ThermalConductive},
		{"water defaults adiabatic", LayerSpec{Composition: CompWater}, ThermalAdiabatic},
		{"seawater defaults adiabatic", LayerSpec{Composition: CompSeawater}, ThermalAdiabatic},
		{"silicate defaults conductive", LayerSpec{Composition: CompSilicate}, ThermalConductive},
		{"iron defaults conductive", LayerSpec{Composition: CompIron}, ThermalConductive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.spec.ThermalOrDefault(); got != tt.want {
				t.Errorf("ThermalOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoundaryConstraints_Validate(t *testing.T) {
	valid := BoundaryConstraints{
		TotalMass:          4.8e22,
		Radius:             1.56e6,
		MoI:                0.346,
		MoIUncertainty:     0.005,
		SurfaceTemperature: 102,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid constraints rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*BoundaryConstraints)
	}{
		{"zero mass", func(bc *BoundaryConstraints) { bc.TotalMass = 0 }},
		{"zero radius", func(bc *BoundaryConstraints) { bc.Radius = 0 }},
		{"zero surface temperature", func(bc *BoundaryConstraints) { bc.SurfaceTemperature = 0 }},
		{"negative surface pressure", func(bc *BoundaryConstraints) { bc.SurfacePressure = -1 }},
		{"moi above uniform sphere", func(bc *BoundaryConstraints) { bc.MoI = 0.45 }},
		{"moi without uncertainty", func(bc *BoundaryConstraints) { bc.MoIUncertainty = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bc := valid
			tt.mutate(&bc)
			if err := bc.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestBoundaryConstraints_MeanDensity(t *testing.T) {
	bc := BoundaryConstraints{TotalMass: 4.0 / 3.0 * math.Pi * 1e18, Radius: 1e6}
	if got := bc.MeanDensity(); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("MeanDensity() = %g, want 1", got)
	}
}

func TestProfile_Validate(t *testing.T) {
	good := &Profile{Points: []ProfilePoint{
		{Radius: 1e5, Pressure: 100, EnclosedMass: 1e20},
		{Radius: 5e5, Pressure: 50, EnclosedMass: 5e20},
		{Radius: 1e6, Pressure: 0, EnclosedMass: 1e21},
	}}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid profile rejected: %v", err)
	}

	tests := []struct {
		name   string
		points []ProfilePoint
	}{
		{"too few points", []ProfilePoint{{Radius: 1}}},
		{"radius not increasing", []ProfilePoint{
			{Radius: 5e5}, {Radius: 5e5},
		}},
		{"pressure increasing outward", []ProfilePoint{
			{Radius: 1e5, Pressure: 10}, {Radius: 2e5, Pressure: 20},
		}},
		{"mass decreasing outward", []ProfilePoint{
			{Radius: 1e5, Pressure: 20, EnclosedMass: 2e20},
			{Radius: 2e5, Pressure: 10, EnclosedMass: 1e20},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Profile{Points: tt.points}
			if err := p.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestProfile_MarshalRoundTrip(t *testing.T) {
	p := &Profile{
		Points: []ProfilePoint{
			{Radius: 1e5, Pressure: 100, EnclosedMass: 1e20, Phase: PhaseIron},
			{Radius: 1e6, Pressure: 0, EnclosedMass: 1e21, Phase: PhaseIceIh},
		},
		Interior:    Interior{SilicateRadius: 1.4e6, MoI: 0.346},
		Convergence: Convergence{RunID: "run-1", Fingerprint: "abc", Trials: 12},
	}
	data, err := p.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	got, err := UnmarshalProfile(data)
	if err != nil {
		t.Fatalf("UnmarshalProfile failed: %v", err)
	}
	if got.Convergence.RunID != "run-1" || got.Interior.MoI != 0.346 {
		t.Error("metadata lost in round trip")
	}
	if len(got.Points) != 2 || got.Points[0].Phase != PhaseIron {
		t.Error("points lost in round trip")
	}
}

func TestParameterVector_Clone(t *testing.T) {
	pv := ParameterVector{"shell.bottom_temperature_k": 268.0}
	cl := pv.Clone()
	cl["shell.bottom_temperature_k"] = 270.0
	if pv["shell.bottom_temperature_k"] != 268.0 {
		t.Error("Clone() should be independent of the original")
	}
}

package body

// IntegrationState is one radial step of a hydrostatic integration pass.
// States are produced monotonically along the integration direction
// (surface-inward: depth increasing, radius decreasing) and are never
// mutated after being appended to a segment.
type IntegrationState struct {
	// Radius from the body center in m.
	Radius float64 `json:"radius_m"`

	// Depth below the surface in m.
	Depth float64 `json:"depth_m"`

	// Pressure in MPa.
	Pressure float64 `json:"pressure_mpa"`

	// Temperature in K.
	Temperature float64 `json:"temperature_k"`

	// Gravity is the local gravitational acceleration in m/s^2.
	Gravity float64 `json:"gravity_ms2"`

	// EnclosedMass is the mass interior to Radius in kg.
	EnclosedMass float64 `json:"enclosed_mass_kg"`

	// MoIAbove is the cumulative axial moment of inertia contribution of
	// all shells above this radius, in kg m^2.
	MoIAbove float64 `json:"moi_above_kgm2"`

	// Phase is the material phase at this state.
	Phase Phase `json:"phase"`

	// Density in kg/m^3, as returned by the EOS at (Pressure, Temperature).
	Density float64 `json:"density_kgm3"`

	// HeatCapacity is the specific heat Cp in J/(kg K).
	HeatCapacity float64 `json:"heat_capacity_jkgk"`

	// Expansivity is the thermal expansivity alpha in 1/K.
	Expansivity float64 `json:"expansivity_pk"`
}

// Segment is the ordered result of integrating a single homogeneous layer:
// the states walked from the layer top to its bottom, plus why integration
// stopped there.
type Segment struct {
	// Layer is the spec this segment was integrated under.
	Layer LayerSpec `json:"layer"`

	// States are ordered top-down (decreasing radius).
	States []IntegrationState `json:"states"`

	// Stop records why the layer ended.
	Stop StopReason `json:"stop"`

	// NextPhase is the phase entered at the bottom boundary when
	// Stop == StopPhaseBoundary.
	NextPhase Phase `json:"next_phase,omitempty"`
}

// StopReason records why a layer integration terminated.
type StopReason string

// Stop reasons.
const (
	// StopPhaseBoundary means the integration crossed into a new phase.
	StopPhaseBoundary StopReason = "phase-boundary"

	// StopThickness means the layer's configured thickness was reached.
	StopThickness StopReason = "thickness"

	// StopCenter means integration reached the body center.
	StopCenter StopReason = "center"

	// StopPressureCeiling means the configured maximum hydrosphere
	// pressure was reached before any boundary.
	StopPressureCeiling StopReason = "pressure-ceiling"

	// StopInterface means the solver cut the layer at a chosen interior
	// interface (the seafloor of the selected silicate/core split).
	StopInterface StopReason = "interface"
)

// Top returns the first state of the segment.
func (s *Segment) Top() IntegrationState { return s.States[0] }

// Bottom returns the last state of the segment.
func (s *Segment) Bottom() IntegrationState { return s.States[len(s.States)-1] }

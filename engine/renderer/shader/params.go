// Package shader provides the dynamic effect-parameter subsystem: parsing the
// metadata block embedded in effect source, packing declared parameters into
// the fixed custom uniform region, and generating the WGSL accessor preamble
// that lets effect authors refer to parameters by name.
package shader

import "github.com/chewxy/math32"

// RegionSlots is the number of float32 slots in the custom uniform region.
// The region is exposed to WGSL as array<vec4<f32>, RegionSlots/4>.
const RegionSlots = 16

// ParamKind identifies the declared type of an effect parameter.
// The values match the TYPE tags accepted in the metadata block.
type ParamKind string

const (
	// ParamKindScalar is a single float controlled by a slider.
	ParamKindScalar ParamKind = "float"

	// ParamKindToggle is an on/off switch stored as 0.0 or 1.0.
	ParamKindToggle ParamKind = "bool"

	// ParamKindEnum is a labelled option list stored as a float-encoded index.
	ParamKindEnum ParamKind = "long"

	// ParamKindColor is an RGBA color occupying four slots.
	ParamKindColor ParamKind = "color"

	// ParamKindPoint2D is a 2D position occupying two slots.
	ParamKindPoint2D ParamKind = "point2d"

	// ParamKindTrigger is a momentary one-shot: 1.0 for exactly one rendered
	// frame after firing, 0.0 otherwise.
	ParamKindTrigger ParamKind = "event"
)

// validParamKinds is the set of TYPE tags the parser accepts. Declarations
// with any other tag are skipped.
var validParamKinds = map[ParamKind]bool{
	ParamKindScalar:  true,
	ParamKindToggle:  true,
	ParamKindEnum:    true,
	ParamKindColor:   true,
	ParamKindPoint2D: true,
	ParamKindTrigger: true,
}

// SlotWidth returns the number of float32 slots the kind occupies in the
// custom uniform region.
//
// Returns:
//   - int: 4 for Color, 2 for Point2D, 1 for everything else
func (k ParamKind) SlotWidth() int {
	switch k {
	case ParamKindColor:
		return 4
	case ParamKindPoint2D:
		return 2
	default:
		return 1
	}
}

// Param is one declared effect parameter: its metadata from the source block
// plus its current runtime value and its assigned slot in the custom region.
type Param struct {
	// Name is the identifier the effect source refers to the parameter by.
	// Required; declarations without a name are skipped.
	Name string

	// Label is the optional display name for UI. Falls back to Name when empty.
	Label string

	// Kind is the declared parameter type.
	Kind ParamKind

	// Value holds the current runtime value. Only the first SlotWidth()
	// components are meaningful.
	Value [4]float32

	// Default holds the authored default value, used by reset-to-defaults.
	Default [4]float32

	// Min, Max and Step describe the UI range for Scalar parameters.
	Min  float32
	Max  float32
	Step float32

	// EnumLabels holds the option labels for Enum parameters.
	EnumLabels []string

	// SlotOffset is the first float32 slot assigned by packing, in [0, RegionSlots).
	SlotOffset int
}

// DisplayName returns the label if one was declared, otherwise the name.
//
// Returns:
//   - string: the text to show in UI for this parameter
func (p *Param) DisplayName() string {
	if p.Label != "" {
		return p.Label
	}
	return p.Name
}

// SetValue copies up to SlotWidth() components into the parameter's current
// value. Scalar values are clamped to the declared [Min, Max] range; Enum
// values are clamped to the declared label count.
//
// Parameters:
//   - values: the new component values, in declaration order
func (p *Param) SetValue(values ...float32) {
	width := p.Kind.SlotWidth()
	for i := 0; i < width && i < len(values); i++ {
		p.Value[i] = values[i]
	}
	switch p.Kind {
	case ParamKindScalar:
		p.Value[0] = math32.Min(math32.Max(p.Value[0], p.Min), p.Max)
	case ParamKindEnum:
		if n := len(p.EnumLabels); n > 0 {
			p.Value[0] = math32.Min(math32.Max(p.Value[0], 0), float32(n-1))
		}
	}
}

// ResetToDefault restores the parameter's current value to its authored default.
func (p *Param) ResetToDefault() {
	p.Value = p.Default
}

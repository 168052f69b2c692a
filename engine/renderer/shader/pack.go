package shader

import (
	"fmt"
	"strings"
)

// componentNames maps a slot's position within its vec4 to the WGSL component.
var componentNames = [4]string{"x", "y", "z", "w"}

// PackParams assigns each parameter its slot offset in the custom uniform
// region. Slots are assigned by a running cursor in declaration order:
// Point2D parameters are aligned to an even slot and Color parameters to a
// multiple of four, so neither ever straddles a vec4 boundary.
//
// The first declaration that would not fit inside RegionSlots stops packing;
// it and every later declaration are dropped and a truncation diagnostic is
// returned. Packing is deterministic: the same declaration list always yields
// the same offsets.
//
// Parameters:
//   - params: the parsed parameters in declaration order
//
// Returns:
//   - []Param: the parameters that fit, with SlotOffset assigned
//   - string: a truncation diagnostic, or "" if every parameter fit
func PackParams(params []Param) ([]Param, string) {
	packed := make([]Param, 0, len(params))
	cursor := 0
	for _, p := range params {
		width := p.Kind.SlotWidth()
		switch p.Kind {
		case ParamKindPoint2D:
			if cursor%2 != 0 {
				cursor++
			}
		case ParamKindColor:
			for cursor%4 != 0 {
				cursor++
			}
		}
		if cursor+width > RegionSlots {
			dropped := len(params) - len(packed)
			return packed, fmt.Sprintf(
				"parameter %q does not fit in the %d-slot uniform region (needs %d slot(s) at offset %d); %d parameter(s) dropped",
				p.Name, RegionSlots, width, cursor, dropped)
		}
		p.SlotOffset = cursor
		cursor += width
		packed = append(packed, p)
	}
	return packed, ""
}

// BuildAliasPreamble generates the WGSL accessor functions that let effect
// source refer to packed parameters by name. Each parameter becomes a zero-arg
// function reading its slot(s) out of the custom region:
//
//	Scalar/Trigger -> f32 component
//	Toggle         -> component > 0.5 as bool
//	Enum           -> i32 cast of the component
//	Point2D        -> vec2<f32> of two adjacent components
//	Color          -> the whole vec4
//
// The preamble is prepended to the author's source before compilation. WGSL
// module-scope declarations are order independent, so the accessors may refer
// to the custom region declared later in the source. The stored source is
// never mutated.
//
// Parameters:
//   - params: packed parameters with SlotOffset assigned
//
// Returns:
//   - string: the accessor function preamble, one function per parameter
func BuildAliasPreamble(params []Param) string {
	var sb strings.Builder
	for i := range params {
		p := &params[i]
		vec := p.SlotOffset / 4
		comp := p.SlotOffset % 4
		slot := fmt.Sprintf("fx.custom[%d]", vec)
		switch p.Kind {
		case ParamKindToggle:
			fmt.Fprintf(&sb, "fn %s() -> bool { return %s.%s > 0.5; }\n",
				p.Name, slot, componentNames[comp])
		case ParamKindEnum:
			fmt.Fprintf(&sb, "fn %s() -> i32 { return i32(%s.%s); }\n",
				p.Name, slot, componentNames[comp])
		case ParamKindPoint2D:
			fmt.Fprintf(&sb, "fn %s() -> vec2<f32> { return vec2<f32>(%s.%s, %s.%s); }\n",
				p.Name, slot, componentNames[comp], slot, componentNames[comp+1])
		case ParamKindColor:
			fmt.Fprintf(&sb, "fn %s() -> vec4<f32> { return %s; }\n", p.Name, slot)
		default:
			fmt.Fprintf(&sb, "fn %s() -> f32 { return %s.%s; }\n",
				p.Name, slot, componentNames[comp])
		}
	}
	return sb.String()
}

// PackRegion writes the parameters' current values into a fresh copy of the
// custom uniform region at their assigned slot offsets. Unassigned slots
// stay zero.
//
// Parameters:
//   - params: packed parameters with SlotOffset assigned
//
// Returns:
//   - [RegionSlots]float32: the region ready for upload
func PackRegion(params []Param) [RegionSlots]float32 {
	var region [RegionSlots]float32
	for i := range params {
		p := &params[i]
		width := p.Kind.SlotWidth()
		for c := 0; c < width && p.SlotOffset+c < RegionSlots; c++ {
			region[p.SlotOffset+c] = p.Value[c]
		}
	}
	return region
}

// Package preset holds the effect preset store: loading effect sources,
// compiling them through the render backend, tracking the active preset, and
// bridging presets to and from the persisted config shape.
package preset

import "github.com/Carmen-Shannon/vfx-go/engine/renderer/shader"

// Preset is one loaded effect: its source text, declared parameters, optional
// keyboard shortcut, and compile status. The compiled GPU program is stored
// next to the preset by the Manager, never on the preset itself.
type Preset struct {
	// Name is the display name, derived from the file stem for file-backed presets.
	Name string

	// Filepath is the backing source file. Empty for in-memory presets
	// created from the editor.
	Filepath string

	// Source is the full effect source text, metadata block included.
	Source string

	// ShortcutKey and ShortcutMods describe the optional activation shortcut.
	// A zero ShortcutKey means no shortcut is assigned.
	ShortcutKey  uint32
	ShortcutMods uint32

	// Valid reports whether the last compilation succeeded.
	Valid bool

	// Diagnostic holds the last compile error and/or packing truncation
	// warning. Empty when the last compile was clean.
	Diagnostic string

	// Params are the packed parameters from the last parse, in declaration
	// order with slot offsets assigned.
	Params []shader.Param
}

// Snapshot is the persisted form of a preset. Only identity, shortcut and
// current parameter values are stored; parameter metadata (kind, label,
// ranges) is re-derived by re-parsing the source at load time, so edits to a
// declared range take effect on the next load with no migration step.
type Snapshot struct {
	Name         string               `json:"name"`
	Filepath     string               `json:"filepath"`
	ShortcutKey  uint32               `json:"shortcutKey"`
	ShortcutMods uint32               `json:"shortcutModifiers"`
	ParamValues  map[string][]float32 `json:"paramValues,omitempty"`
}

// Snapshot captures the preset's persistable state, trimming each value to
// the component count its kind occupies.
//
// Returns:
//   - Snapshot: the persisted form of this preset
func (p *Preset) Snapshot() Snapshot {
	s := Snapshot{
		Name:         p.Name,
		Filepath:     p.Filepath,
		ShortcutKey:  p.ShortcutKey,
		ShortcutMods: p.ShortcutMods,
	}
	if len(p.Params) > 0 {
		s.ParamValues = currentValues(p.Params)
	}
	return s
}

// currentValues collects the parameters' current values keyed by name, each
// trimmed to its kind's slot width. This is the shape both persistence and
// recompile value restoration consume.
func currentValues(params []shader.Param) map[string][]float32 {
	values := make(map[string][]float32, len(params))
	for i := range params {
		p := &params[i]
		width := p.Kind.SlotWidth()
		vals := make([]float32, width)
		copy(vals, p.Value[:width])
		values[p.Name] = vals
	}
	return values
}

// restoreValues patches each parameter's current value from previous values
// keyed by name. Parameters without a saved entry keep their authored
// defaults; saved entries for names no longer declared are ignored. Every
// parse-then-patch site (compile, recompile, load with persisted values)
// funnels through this one helper.
func restoreValues(params []shader.Param, saved map[string][]float32) {
	if len(saved) == 0 {
		return
	}
	for i := range params {
		vals, ok := saved[params[i].Name]
		if !ok {
			continue
		}
		width := params[i].Kind.SlotWidth()
		for c := 0; c < width && c < len(vals); c++ {
			params[i].Value[c] = vals[c]
		}
	}
}

// ShaderTemplate is the starting source handed to "new shader" flows in the
// editor. It declares one example parameter, the effect constants struct and
// the fixed bind group contract, and samples the video frame through it.
const ShaderTemplate = `/*{
	"INPUTS": [
		{ "NAME": "intensity", "TYPE": "float", "DEFAULT": 1.0, "MIN": 0.0, "MAX": 2.0 }
	]
}*/

struct EffectConstants {
	time: f32,
	_pad0: f32,
	resolution: vec2<f32>,
	video_resolution: vec2<f32>,
	_pad1: vec2<f32>,
	custom: array<vec4<f32>, 4>,
}

@group(0) @binding(0) var video_texture: texture_2d<f32>;
@group(0) @binding(1) var video_sampler: sampler;
@group(0) @binding(2) var<uniform> fx: EffectConstants;

@fragment
fn main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
	let color = textureSample(video_texture, video_sampler, uv);
	return vec4<f32>(color.rgb * intensity(), color.a);
}
`

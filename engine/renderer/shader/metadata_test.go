package shader_test

import (
	"testing"

	"github.com/Carmen-Shannon/vfx-go/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParamsNoBlock(t *testing.T) {
	src := `
@fragment
fn main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
	return vec4<f32>(uv, 0.0, 1.0);
}
`
	assert.Empty(t, shader.ParseParams(src))
}

func TestParseParamsMalformedBlock(t *testing.T) {
	src := `/*{ "INPUTS": [ { "NAME": "Size", }*/ fn f() {}`
	assert.Empty(t, shader.ParseParams(src))
}

func TestParseParamsSkipsIncompleteAndUnknown(t *testing.T) {
	src := `/*{
	"INPUTS": [
		{"NAME": "NoType"},
		{"TYPE": "float"},
		{"NAME": "Mystery", "TYPE": "matrix4"},
		{"NAME": "Size", "TYPE": "float"}
	]
}*/`
	params := shader.ParseParams(src)
	require.Len(t, params, 1)
	assert.Equal(t, "Size", params[0].Name)
	assert.Equal(t, shader.ParamKindScalar, params[0].Kind)
}

func TestParseParamsDefaultsAndRanges(t *testing.T) {
	src := `/*{
	"INPUTS": [
		{"NAME": "Size", "TYPE": "float", "DEFAULT": 8, "MIN": 1, "MAX": 64, "STEP": 0.5},
		{"NAME": "Invert", "TYPE": "bool", "DEFAULT": true},
		{"NAME": "Mode", "TYPE": "long", "VALUES": ["Off", "Soft", "Hard"], "DEFAULT": 2},
		{"NAME": "Tint", "TYPE": "color", "DEFAULT": [1.0, 0.5, 0.25, 1.0]},
		{"NAME": "Center", "TYPE": "point2d", "DEFAULT": [0.5, 0.5]},
		{"NAME": "Flash", "TYPE": "event"},
		{"NAME": "Plain", "TYPE": "float"}
	]
}*/`
	params := shader.ParseParams(src)
	require.Len(t, params, 7)

	size := params[0]
	assert.Equal(t, float32(8), size.Value[0])
	assert.Equal(t, float32(8), size.Default[0])
	assert.Equal(t, float32(1), size.Min)
	assert.Equal(t, float32(64), size.Max)
	assert.Equal(t, float32(0.5), size.Step)

	assert.Equal(t, float32(1), params[1].Value[0])
	assert.Equal(t, float32(2), params[2].Value[0])
	assert.Equal(t, []string{"Off", "Soft", "Hard"}, params[2].EnumLabels)
	assert.Equal(t, [4]float32{1.0, 0.5, 0.25, 1.0}, params[3].Value)
	assert.Equal(t, float32(0.5), params[4].Value[0])
	assert.Equal(t, float32(0.5), params[4].Value[1])
	assert.Equal(t, float32(0), params[5].Value[0])

	// Unspecified range falls back to 0..1 with a 0.01 step.
	plain := params[6]
	assert.Equal(t, float32(0), plain.Min)
	assert.Equal(t, float32(1), plain.Max)
	assert.Equal(t, float32(0.01), plain.Step)
}

func TestParseParamsLabelFallback(t *testing.T) {
	src := `/*{
	"INPUTS": [
		{"NAME": "blur_radius", "TYPE": "float", "LABEL": "Blur Radius"},
		{"NAME": "gain", "TYPE": "float"}
	]
}*/`
	params := shader.ParseParams(src)
	require.Len(t, params, 2)
	assert.Equal(t, "Blur Radius", params[0].DisplayName())
	assert.Equal(t, "gain", params[1].DisplayName())
}

func TestSetValueClampsScalarAndEnum(t *testing.T) {
	p := shader.Param{Name: "Size", Kind: shader.ParamKindScalar, Min: 1, Max: 10}
	p.SetValue(99)
	assert.Equal(t, float32(10), p.Value[0])
	p.SetValue(-5)
	assert.Equal(t, float32(1), p.Value[0])

	e := shader.Param{Name: "Mode", Kind: shader.ParamKindEnum, EnumLabels: []string{"A", "B"}}
	e.SetValue(7)
	assert.Equal(t, float32(1), e.Value[0])
}

package shader_test

import (
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/vfx-go/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scalar(name string) shader.Param {
	return shader.Param{Name: name, Kind: shader.ParamKindScalar, Max: 1}
}

func TestPackParamsDeterministic(t *testing.T) {
	params := []shader.Param{
		scalar("a"),
		{Name: "pt", Kind: shader.ParamKindPoint2D},
		{Name: "col", Kind: shader.ParamKindColor},
		scalar("b"),
	}
	first, _ := shader.PackParams(params)
	second, _ := shader.PackParams(params)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].SlotOffset, second[i].SlotOffset)
	}
}

func TestPackParamsSingleScalar(t *testing.T) {
	packed, diag := shader.PackParams([]shader.Param{
		{Name: "Size", Kind: shader.ParamKindScalar, Value: [4]float32{8}, Default: [4]float32{8}},
	})
	require.Len(t, packed, 1)
	assert.Empty(t, diag)
	assert.Equal(t, 0, packed[0].SlotOffset)

	// The alias reads vector 0, component x.
	preamble := shader.BuildAliasPreamble(packed)
	assert.Equal(t, "fn Size() -> f32 { return fx.custom[0].x; }\n", preamble)
}

func TestPackParamsColorAlignment(t *testing.T) {
	packed, diag := shader.PackParams([]shader.Param{
		scalar("a"),
		{Name: "col", Kind: shader.ParamKindColor},
	})
	require.Len(t, packed, 2)
	assert.Empty(t, diag)
	assert.Equal(t, 0, packed[0].SlotOffset)
	// The color must start on a vec4 boundary, never at slot 1.
	assert.Equal(t, 4, packed[1].SlotOffset)
}

func TestPackParamsPoint2DAlignment(t *testing.T) {
	packed, _ := shader.PackParams([]shader.Param{
		scalar("a"),
		{Name: "pt", Kind: shader.ParamKindPoint2D},
		scalar("b"),
		{Name: "pt2", Kind: shader.ParamKindPoint2D},
	})
	require.Len(t, packed, 4)
	for _, p := range packed {
		if p.Kind == shader.ParamKindPoint2D {
			assert.Zero(t, p.SlotOffset%2, "point2d %q at odd offset %d", p.Name, p.SlotOffset)
		}
	}
	assert.Equal(t, 2, packed[1].SlotOffset)
	assert.Equal(t, 4, packed[2].SlotOffset)
	assert.Equal(t, 6, packed[3].SlotOffset)
}

func TestPackParamsOverflowTruncates(t *testing.T) {
	var params []shader.Param
	for i := 0; i < 5; i++ {
		params = append(params, shader.Param{
			Name: fmt.Sprintf("col%d", i),
			Kind: shader.ParamKindColor,
		})
	}
	packed, diag := shader.PackParams(params)
	assert.Len(t, packed, 4)
	assert.NotEmpty(t, diag)
	assert.Contains(t, diag, "col4")
}

func TestPackParamsOverflowDropsRemainder(t *testing.T) {
	// 15 scalars, then a color (must align to 16, overflows), then a scalar
	// that would still fit slot 15. Packing stops at the first overflow and
	// drops everything after it, so the list is strictly shorter.
	var params []shader.Param
	for i := 0; i < 15; i++ {
		params = append(params, scalar(fmt.Sprintf("s%d", i)))
	}
	params = append(params, shader.Param{Name: "late_col", Kind: shader.ParamKindColor})
	params = append(params, scalar("after"))

	packed, diag := shader.PackParams(params)
	assert.Len(t, packed, 15)
	assert.NotEmpty(t, diag)
	assert.Contains(t, diag, "late_col")
}

func TestBuildAliasPreamblePerKind(t *testing.T) {
	packed, diag := shader.PackParams([]shader.Param{
		scalar("amount"),
		{Name: "invert", Kind: shader.ParamKindToggle},
		{Name: "mode", Kind: shader.ParamKindEnum, EnumLabels: []string{"a", "b"}},
		{Name: "center", Kind: shader.ParamKindPoint2D},
		{Name: "tint", Kind: shader.ParamKindColor},
		{Name: "flash", Kind: shader.ParamKindTrigger},
	})
	require.Empty(t, diag)
	require.Len(t, packed, 6)

	preamble := shader.BuildAliasPreamble(packed)
	assert.Contains(t, preamble, "fn amount() -> f32 { return fx.custom[0].x; }")
	assert.Contains(t, preamble, "fn invert() -> bool { return fx.custom[0].y > 0.5; }")
	assert.Contains(t, preamble, "fn mode() -> i32 { return i32(fx.custom[0].z); }")
	// point2d aligned to slot 4 after z (slot 3 is skipped: 3 is odd).
	assert.Contains(t, preamble, "fn center() -> vec2<f32> { return vec2<f32>(fx.custom[1].x, fx.custom[1].y); }")
	assert.Contains(t, preamble, "fn tint() -> vec4<f32> { return fx.custom[2]; }")
	assert.Contains(t, preamble, "fn flash() -> f32 { return fx.custom[3].x; }")
}

func TestPackRegionRoundTrip(t *testing.T) {
	params := []shader.Param{
		{Name: "amount", Kind: shader.ParamKindScalar, Value: [4]float32{0.75}},
		{Name: "center", Kind: shader.ParamKindPoint2D, Value: [4]float32{0.25, 0.5}},
		{Name: "tint", Kind: shader.ParamKindColor, Value: [4]float32{0.1, 0.2, 0.3, 0.4}},
	}
	packed, diag := shader.PackParams(params)
	require.Empty(t, diag)

	region := shader.PackRegion(packed)

	// Reading back through each parameter's assigned slots recovers the
	// value the alias expression would observe on the GPU.
	for _, p := range packed {
		for c := 0; c < p.Kind.SlotWidth(); c++ {
			assert.Equal(t, p.Value[c], region[p.SlotOffset+c],
				"%s component %d", p.Name, c)
		}
	}

	// The padding slot introduced by point2d alignment stays zero.
	assert.Zero(t, region[1])
}

package renderer_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/vfx-go/engine/renderer"
	"github.com/Carmen-Shannon/vfx-go/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float32At(t *testing.T, buf []byte, offset int) float32 {
	t.Helper()
	require.LessOrEqual(t, offset+4, len(buf))
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset : offset+4]))
}

func TestGPUEffectConstantsLayout(t *testing.T) {
	g := renderer.GPUEffectConstants{
		Time:            1.5,
		Resolution:      [2]float32{1280, 720},
		VideoResolution: [2]float32{1920, 1080},
	}
	for i := 0; i < shader.RegionSlots; i++ {
		g.Custom[i] = float32(i) * 0.25
	}

	buf := g.Marshal()
	require.Len(t, buf, 96)
	assert.Equal(t, 96, g.Size())

	assert.Equal(t, float32(1.5), float32At(t, buf, 0))
	assert.Equal(t, float32(1280), float32At(t, buf, 8))
	assert.Equal(t, float32(720), float32At(t, buf, 12))
	assert.Equal(t, float32(1920), float32At(t, buf, 16))
	assert.Equal(t, float32(1080), float32At(t, buf, 20))

	// The custom region starts at byte 32 and runs contiguously.
	for i := 0; i < shader.RegionSlots; i++ {
		assert.Equal(t, float32(i)*0.25, float32At(t, buf, 32+i*4))
	}
}

package renderer

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/vfx-go/engine/renderer/shader"
)

// FullscreenVertexSource is the shared vertex stage for every pipeline:
// a generated fullscreen triangle with UVs, no vertex buffer.
//
//go:embed assets/fullscreen_vertex.wgsl
var FullscreenVertexSource string

// PassthroughFragmentSource is the identity fragment program bound when no
// effect preset is active.
//
//go:embed assets/passthrough_fragment.wgsl
var PassthroughFragmentSource string

// GPUEffectConstantsSource is the canonical WGSL definition of the
// EffectConstants struct. Matches GPUEffectConstants layout exactly.
//
//go:embed assets/effect_constants.wgsl
var GPUEffectConstantsSource string

// GPUEffectConstants is the GPU-aligned per-frame uniform for effect
// fragment shaders. Matches the WGSL EffectConstants struct layout exactly
// (see GPUEffectConstantsSource).
// Size: 96 bytes (two vec4-aligned header rows + four vec4 custom rows).
type GPUEffectConstants struct {
	Time            float32                          // offset 0: playback time in seconds
	Pad0            float32                          // offset 4: alignment padding
	Resolution      [2]float32                       // offset 8: output surface size in pixels
	VideoResolution [2]float32                       // offset 16: source video size in pixels
	Pad1            [2]float32                       // offset 24: alignment padding
	Custom          [shader.RegionSlots]float32      // offset 32: packed effect parameter region
}

// Size returns the size of the GPUEffectConstants struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUEffectConstants) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUEffectConstants struct into a byte buffer
// suitable for GPU upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload.
func (g *GPUEffectConstants) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Time))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Pad0))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Resolution[0]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Resolution[1]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.VideoResolution[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.VideoResolution[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.Pad1[0]))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Pad1[1]))
	for i, v := range g.Custom {
		offset := 32 + i*4
		binary.LittleEndian.PutUint32(buf[offset:offset+4], math.Float32bits(v))
	}
	return buf
}

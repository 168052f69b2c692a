package renderer

import (
	"image"
	"sync"

	"github.com/Carmen-Shannon/vfx-go/engine/renderer/shader"
	"github.com/Carmen-Shannon/vfx-go/engine/window"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
}

// Renderer defines the interface for the rendering system.
//
// The Renderer draws one fullscreen pass per frame: the current video frame
// sampled through either the fixed passthrough program or a compiled effect
// program, with the per-frame effect constants (time, resolutions, custom
// parameter region) delivered as one uniform buffer. It also implements a
// backend which allows for multiple backend API implementations to exist.
type Renderer interface {
	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// CompileEffect compiles a WGSL fragment source into an effect program.
	// The returned handle is opaque to callers; pass it to SetActiveEffect.
	//
	// Parameters:
	//   - name: a label used for GPU objects and diagnostics
	//   - source: the complete WGSL fragment source
	//
	// Returns:
	//   - any: the compiled program handle
	//   - error: the compile diagnostic if compilation fails
	CompileEffect(name, source string) (any, error)

	// SetActiveEffect selects the program bound at the next frame begin.
	// Passing nil selects the fixed passthrough program.
	//
	// Parameters:
	//   - program: a handle from CompileEffect, or nil for passthrough
	SetActiveEffect(program any)

	// SetCustomUniforms replaces the custom parameter region of the effect
	// constants and pushes the constant buffer immediately.
	//
	// Parameters:
	//   - region: the packed parameter values
	SetCustomUniforms(region [shader.RegionSlots]float32)

	// SetTime sets the playback time delivered to effects this frame.
	//
	// Parameters:
	//   - t: playback time in seconds
	SetTime(t float32)

	// UploadVideoFrame uploads a decoded RGBA frame to the video texture.
	//
	// Parameters:
	//   - frame: the decoded frame
	//
	// Returns:
	//   - error: an error if texture creation fails
	UploadVideoFrame(frame *image.RGBA) error

	// BeginFrame acquires the swapchain texture, writes the effect constant
	// buffer, and begins the render pass with the active program bound.
	// Must be paired with EndFrame.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// Draw encodes the fullscreen pass draw within the current frame.
	Draw()

	// EndFrame ends the current render pass and submits the command buffer to the GPU.
	// Does not present the surface — call Present() after EndFrame to display the frame.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	// Must be called once per frame after EndFrame.
	Present()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type and window.
// The window provides the platform-specific surface descriptor for WebGPU surface creation.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - window: the window whose surface the renderer draws to
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(window.Width(), window.Height())
	return r
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) CompileEffect(name, source string) (any, error) {
	return r.backend.CompileEffect(name, source)
}

func (r *renderer) SetActiveEffect(program any) {
	r.backend.SetActiveEffect(program)
}

func (r *renderer) SetCustomUniforms(region [shader.RegionSlots]float32) {
	r.backend.SetCustomUniforms(region)
}

func (r *renderer) SetTime(t float32) {
	r.backend.SetTime(t)
}

func (r *renderer) UploadVideoFrame(frame *image.RGBA) error {
	return r.backend.UploadVideoFrame(frame)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) Draw() {
	r.backend.Draw()
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

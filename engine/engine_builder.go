package engine

import (
	"time"

	"github.com/Carmen-Shannon/vfx-go/engine/encoder"
	"github.com/Carmen-Shannon/vfx-go/engine/preset"
	"github.com/Carmen-Shannon/vfx-go/engine/renderer"
	"github.com/Carmen-Shannon/vfx-go/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the playback tick rate in ticks per second.
// The tick loop drives video decoding and shader hot-reload polling.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer the engine draws through each frame.
//
// Parameters:
//   - r: a renderer created against the engine's window surface
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithPresetManager sets the shader preset manager the engine consults each
// frame for the active effect's parameter region and trigger lifecycle.
//
// Parameters:
//   - m: a preset manager backed by the engine's renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPresetManager(m preset.Manager) EngineBuilderOption {
	return func(e *engine) {
		e.presets = m
	}
}

// WithRecordingDefaults sets the output settings used when a recording
// session is started.
//
// Parameters:
//   - settings: the output directory and frame rate for new sessions
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRecordingDefaults(settings encoder.Settings) EngineBuilderOption {
	return func(e *engine) {
		e.recordingDefaults = settings
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}

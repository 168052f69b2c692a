package engine

import (
	"fmt"
	"image"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/vfx-go/common"
	"github.com/Carmen-Shannon/vfx-go/engine/encoder"
	"github.com/Carmen-Shannon/vfx-go/engine/preset"
	"github.com/Carmen-Shannon/vfx-go/engine/profiler"
	"github.com/Carmen-Shannon/vfx-go/engine/renderer"
	"github.com/Carmen-Shannon/vfx-go/engine/video"
	"github.com/Carmen-Shannon/vfx-go/engine/window"
)

// videoExtensions lists the container formats accepted by drag-and-drop and OpenVideo.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
	".webm": true,
}

// engine implements the Engine interface.
// Coordinates the playback tick, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer
	presets  preset.Manager

	recorder          encoder.Encoder
	recordingDefaults encoder.Settings

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	// mu guards the decoder and playback fields, which are touched by the
	// tick goroutine and the window thread (key handlers, OpenVideo).
	mu               *sync.Mutex
	decoder          *video.Decoder
	videoPath        string
	playing          bool
	playbackTime     time.Duration
	frameAccumulator time.Duration

	// pendingFrame hands the latest decoded frame from the tick goroutine to
	// the render goroutine. Swapped to nil on upload so each frame is
	// uploaded at most once.
	pendingFrame atomic.Pointer[image.RGBA]
}

// Engine is the main entry point for the video effects player.
// It orchestrates the playback loop, render loop, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer the engine draws through.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// Presets returns the shader preset manager.
	//
	// Returns:
	//   - preset.Manager: the preset manager instance
	Presets() preset.Manager

	// OpenVideo opens a video file for playback, replacing any currently open
	// video. Playback starts immediately from the beginning.
	//
	// Parameters:
	//   - path: path to the video file
	//
	// Returns:
	//   - error: an error if the file cannot be opened or decoded
	OpenVideo(path string) error

	// CurrentVideo returns the path of the most recently opened video, or an
	// empty string if no video has been opened.
	//
	// Returns:
	//   - string: the video path
	CurrentVideo() string

	// Play resumes playback of the open video.
	Play()

	// Pause suspends playback. The last decoded frame stays on screen.
	Pause()

	// Stop pauses playback and rewinds to the start of the video.
	Stop()

	// TogglePlayback switches between playing and paused.
	TogglePlayback()

	// Playing reports whether playback is currently running.
	//
	// Returns:
	//   - bool: true if a video is open and playing
	Playing() bool

	// PlaybackTime returns the current playback position.
	//
	// Returns:
	//   - time.Duration: elapsed time from the start of the video
	PlaybackTime() time.Duration

	// Seek repositions playback to the given offset from the start.
	//
	// Parameters:
	//   - at: the target position
	//
	// Returns:
	//   - error: an error if no video is open or seeking fails
	Seek(at time.Duration) error

	// StartRecording begins writing rendered frames to disk as an image
	// sequence using the configured recording defaults.
	//
	// Returns:
	//   - error: an error if a recording session is already running or the
	//     output directory is missing
	StartRecording() error

	// StopRecording finishes the recording session, blocking until all queued
	// frames have been written.
	StopRecording()

	// Recording reports whether a recording session is active.
	//
	// Returns:
	//   - bool: true if recording
	Recording() bool

	// SetRecordingDefaults replaces the settings used by StartRecording.
	//
	// Parameters:
	//   - settings: the output directory and frame rate for new sessions
	SetRecordingDefaults(settings encoder.Settings)

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the playback tick rate in ticks per second.
	// The tick loop drives decoding, hot-reload polling, and the tick callback.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each playback tick.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called each render frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the main engine loop (blocks until window closes).
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// Initializes the tick channel, recorder, and profiler with sensible defaults.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (window, renderer, presets, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		running:          false,
		wg:               sync.WaitGroup{},
		mu:               &sync.Mutex{},
		recorder:         encoder.NewEncoder(),
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if e.renderer != nil {
				e.renderer.Resize(width, height)
			}
		})
		e.window.SetKeyDownCallback(e.handleKey)
		e.window.SetDropCallback(e.handleDrop)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Presets() preset.Manager {
	return e.presets
}

func (e *engine) Run() {
	e.running = true
	e.handle()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
	e.shutdown()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// shutdown releases playback and recording resources after the loops exit.
func (e *engine) shutdown() {
	if e.recorder.Recording() {
		e.recorder.Stop()
	}
	e.mu.Lock()
	if e.decoder != nil {
		e.decoder.Close()
		e.decoder = nil
	}
	e.mu.Unlock()
	if e.presets != nil {
		if err := e.presets.Close(); err != nil {
			log.Printf("failed to close preset manager: %v", err)
		}
	}
}

// handle launches the tick, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleTick()
	go e.handleRender()
	go e.handleQuit()
}

// handleTick runs the fixed-rate playback tick loop in its own goroutine.
// Each tick polls the preset watcher for shader file changes, advances video
// playback, and fires the tick callback. Listens for dynamic rate changes via
// tickRateChannel and exits when the quit channel is closed.
func (e *engine) handleTick() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.presets != nil {
				e.presets.CheckForChanges()
			}

			e.advancePlayback(dt)

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// advancePlayback moves the playback clock forward and decodes frames that
// have come due. The newest decoded frame is handed to the render goroutine.
// Loops back to the start of the video at end of stream.
func (e *engine) advancePlayback(dt float32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.decoder == nil || !e.playing {
		return
	}

	delta := time.Duration(float64(dt) * float64(time.Second))
	e.playbackTime += delta
	e.frameAccumulator += delta

	frameDuration := e.decoder.FrameDuration()
	looped := false
	for e.frameAccumulator >= frameDuration {
		e.frameAccumulator -= frameDuration

		frame, gotFrame, err := e.decoder.ReadFrame()
		if err != nil {
			log.Printf("video decode error: %v", err)
			e.playing = false
			return
		}
		if !gotFrame {
			if looped {
				// Seeking back produced no frames; stop instead of spinning.
				e.playing = false
				return
			}
			if err := e.decoder.Seek(0); err != nil {
				log.Printf("failed to loop video: %v", err)
				e.playing = false
				return
			}
			e.playbackTime = 0
			looped = true
			continue
		}
		e.pendingFrame.Store(frame)
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Each frame uploads the latest decoded video frame, pushes the playback time
// and the active preset's parameter region into the effect constants, and
// draws the fullscreen pass through the active effect (or passthrough).
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	// Recover from panics inside the render goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if e.renderer != nil {
				if frame := e.pendingFrame.Swap(nil); frame != nil {
					if err := e.renderer.UploadVideoFrame(frame); err != nil {
						log.Printf("failed to upload video frame: %v", err)
					}
					if e.recorder.Recording() {
						e.recorder.SubmitFrame(frame)
					}
				}

				e.mu.Lock()
				playbackSeconds := float32(e.playbackTime.Seconds())
				e.mu.Unlock()
				e.renderer.SetTime(playbackSeconds)

				if e.presets != nil {
					e.renderer.SetCustomUniforms(e.presets.ActiveRegion())
				}

				if err := e.renderer.BeginFrame(); err == nil {
					e.renderer.Draw()
					e.renderer.EndFrame()
					e.renderer.Present()
				}

				// Triggers fired this frame have now been sampled once; the
				// manager resets them after the frame is presented.
				if e.presets != nil {
					e.presets.FinishFrame()
				}
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// handleKey dispatches key presses: a small set of reserved transport keys,
// then preset shortcut matching for everything else.
func (e *engine) handleKey(keyCode, mods uint32) {
	if keyCode == common.KeyR && mods&common.ModControl != 0 {
		e.toggleRecording()
		return
	}

	switch keyCode {
	case common.KeySpace:
		e.TogglePlayback()
	case common.Key0, common.KeyHome:
		if err := e.Seek(0); err != nil {
			log.Printf("seek failed: %v", err)
		}
	case common.KeyLeft:
		e.seekBy(-5 * time.Second)
	case common.KeyRight:
		e.seekBy(5 * time.Second)
	case common.KeyBackspace:
		if e.presets != nil {
			e.presets.ActivatePassthrough()
		}
	default:
		if e.presets != nil {
			e.presets.HandleShortcut(keyCode, mods)
		}
	}
}

// handleDrop routes dropped files by extension: shader sources are loaded as
// presets, video containers replace the open video.
func (e *engine) handleDrop(paths []string) {
	for _, path := range paths {
		ext := strings.ToLower(filepath.Ext(path))
		switch {
		case ext == ".wgsl":
			if e.presets == nil {
				continue
			}
			index, err := e.presets.LoadFromFile(path, nil)
			if err != nil {
				log.Printf("failed to load shader %s: %v", path, err)
				continue
			}
			if err := e.presets.Activate(index); err != nil {
				log.Printf("failed to activate shader %s: %v", path, err)
			}
		case videoExtensions[ext]:
			if err := e.OpenVideo(path); err != nil {
				log.Printf("failed to open video %s: %v", path, err)
			}
		default:
			log.Printf("ignoring dropped file with unsupported extension: %s", path)
		}
	}
}

func (e *engine) OpenVideo(path string) error {
	decoder, err := video.Open(path)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.decoder != nil {
		e.decoder.Close()
	}
	e.decoder = decoder
	e.videoPath = path
	e.playbackTime = 0
	e.frameAccumulator = 0
	e.playing = true

	// Decode the first frame immediately so something is on screen even if
	// playback is paused right away.
	if frame, gotFrame, err := decoder.ReadFrame(); err == nil && gotFrame {
		e.pendingFrame.Store(frame)
	}
	e.mu.Unlock()

	if e.window != nil {
		e.window.SetTitle(filepath.Base(path))
	}
	log.Printf("opened video %s (%.2f fps)", path, decoder.FPS())
	return nil
}

func (e *engine) CurrentVideo() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.videoPath
}

func (e *engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.decoder != nil {
		e.playing = true
	}
}

func (e *engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
}

func (e *engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
	if e.decoder != nil {
		if err := e.seekLocked(0); err != nil {
			log.Printf("failed to rewind video: %v", err)
		}
	}
}

func (e *engine) TogglePlayback() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.decoder != nil {
		e.playing = !e.playing
	}
}

func (e *engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *engine) PlaybackTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playbackTime
}

func (e *engine) Seek(at time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seekLocked(at)
}

// seekBy shifts playback by a signed offset, clamped to the start of the video.
func (e *engine) seekBy(delta time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	target := e.playbackTime + delta
	if target < 0 {
		target = 0
	}
	if err := e.seekLocked(target); err != nil {
		log.Printf("seek failed: %v", err)
	}
}

// seekLocked repositions the decoder and refreshes the pending frame. Callers
// must hold mu.
func (e *engine) seekLocked(at time.Duration) error {
	if e.decoder == nil {
		return fmt.Errorf("no video open")
	}
	if err := e.decoder.Seek(at); err != nil {
		return err
	}
	e.playbackTime = at
	e.frameAccumulator = 0
	if frame, gotFrame, err := e.decoder.ReadFrame(); err == nil && gotFrame {
		e.pendingFrame.Store(frame)
	}
	return nil
}

func (e *engine) StartRecording() error {
	return e.recorder.Start(e.recordingDefaults)
}

func (e *engine) StopRecording() {
	e.recorder.Stop()
}

func (e *engine) Recording() bool {
	return e.recorder.Recording()
}

func (e *engine) SetRecordingDefaults(settings encoder.Settings) {
	e.recordingDefaults = settings
}

// toggleRecording starts or stops a recording session, logging the outcome.
func (e *engine) toggleRecording() {
	if e.recorder.Recording() {
		e.recorder.Stop()
		log.Printf("recording stopped, %d frames written", e.recorder.FramesWritten())
		return
	}
	if err := e.recorder.Start(e.recordingDefaults); err != nil {
		log.Printf("failed to start recording: %v", err)
		return
	}
	log.Printf("recording started to %s", e.recordingDefaults.OutputDir)
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the playback tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Send to channel for immediate update in running tick loop
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			// Channel has a pending update, drain and send new value
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		// Engine not running, just update the field
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each playback tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

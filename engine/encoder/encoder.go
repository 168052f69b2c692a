// Package encoder provides the recording sink: processed video frames are
// handed off as immutable RGBA copies and written out as a numbered PNG
// sequence on a worker pool, keeping file encoding out of the render path.
package encoder

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// Settings configures one recording session.
type Settings struct {
	// OutputDir is the directory the frame sequence is written into.
	// Created if it does not exist.
	OutputDir string `json:"outputPath"`

	// FPS is the nominal frame rate of the recording, stored alongside the
	// sequence so an assembler can mux it at the right speed.
	FPS int `json:"fps"`

	// Workers is the number of encode workers. Defaults to NumCPU-1 when <= 0.
	Workers int `json:"-"`
}

// Encoder accepts frames during a recording session and encodes them off the
// render path.
type Encoder interface {
	// Start begins a recording session with the given settings. Returns an
	// error if a session is already running or the output directory cannot
	// be created.
	//
	// Parameters:
	//   - settings: the session configuration
	//
	// Returns:
	//   - error: an error if the session could not start
	Start(settings Settings) error

	// SubmitFrame queues one frame for encoding. The frame is copied before
	// queuing, so the caller may reuse its buffer immediately. Dropped
	// silently when no session is running.
	//
	// Parameters:
	//   - frame: the processed RGBA frame
	SubmitFrame(frame *image.RGBA)

	// Stop ends the session, blocking until every queued frame is written.
	Stop()

	// Recording reports whether a session is running.
	//
	// Returns:
	//   - bool: true while recording
	Recording() bool

	// FramesWritten returns the number of frames written so far in the
	// current (or last) session.
	//
	// Returns:
	//   - int: the written frame count
	FramesWritten() int
}

// encoder is the implementation of the Encoder interface.
type encoder struct {
	mu *sync.Mutex

	pool      worker.DynamicWorkerPool
	inFlight  sync.WaitGroup
	settings  Settings
	recording bool

	frameIndex int
	taskID     int
	written    atomic.Int64
}

var _ Encoder = &encoder{}

// encoderQueueSize bounds the number of frames waiting for a worker. At 60fps
// this is over four seconds of backlog before SubmitTask blocks.
const encoderQueueSize = 256

// NewEncoder creates an idle Encoder. Workers are spawned per session by Start.
//
// Returns:
//   - Encoder: the new encoder
func NewEncoder() Encoder {
	return &encoder{
		mu: &sync.Mutex{},
	}
}

func (e *encoder) Start(settings Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.recording {
		return fmt.Errorf("recording already in progress")
	}
	if settings.OutputDir == "" {
		return fmt.Errorf("recording output directory is not set")
	}
	if err := os.MkdirAll(settings.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create recording directory %s: %w", settings.OutputDir, err)
	}

	workers := settings.Workers
	if workers <= 0 {
		workers = max(runtime.NumCPU()-1, 1)
	}
	e.pool = worker.NewDynamicWorkerPool(workers, encoderQueueSize, 1*time.Second)
	e.settings = settings
	e.frameIndex = 0
	e.written.Store(0)
	e.recording = true
	return nil
}

func (e *encoder) SubmitFrame(frame *image.RGBA) {
	e.mu.Lock()
	if !e.recording {
		e.mu.Unlock()
		return
	}

	// Copy the frame so the decode/render side can reuse its buffer.
	cp := image.NewRGBA(frame.Rect)
	copy(cp.Pix, frame.Pix)

	path := filepath.Join(e.settings.OutputDir, fmt.Sprintf("frame_%06d.png", e.frameIndex))
	e.frameIndex++
	e.taskID++
	id := e.taskID
	pool := e.pool
	e.inFlight.Add(1)
	e.mu.Unlock()

	pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			defer e.inFlight.Done()
			if err := writePNG(path, cp); err != nil {
				log.Printf("failed to write recording frame %s: %v", path, err)
				return nil, err
			}
			e.written.Add(1)
			return nil, nil
		},
	})
}

func (e *encoder) Stop() {
	e.mu.Lock()
	if !e.recording {
		e.mu.Unlock()
		return
	}
	e.recording = false
	e.mu.Unlock()

	// Block until the queue drains; workers idle out on their own afterwards.
	e.inFlight.Wait()
}

func (e *encoder) Recording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recording
}

func (e *encoder) FramesWritten() int {
	return int(e.written.Load())
}

func writePNG(path string, img *image.RGBA) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

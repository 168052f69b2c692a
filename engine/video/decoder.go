// Package video decodes video files into RGBA frames through reisen's FFmpeg
// bindings. Decoding is sequential; the engine's tick loop pulls frames at
// the source frame rate and hands each one to the renderer as an immutable
// value.
package video

import (
	"fmt"
	"image"
	"time"

	"github.com/cogentcore/reisen"
)

// Decoder reads a single video stream frame by frame.
type Decoder struct {
	media  *reisen.Media
	stream *reisen.VideoStream

	path string
	fps  float64
}

// Open opens the file's first video stream for decoding.
//
// Parameters:
//   - path: the video file path
//
// Returns:
//   - *Decoder: the opened decoder
//   - error: an error if the file has no decodable video stream
func Open(path string) (*Decoder, error) {
	media, err := reisen.NewMedia(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}

	if err := media.OpenDecode(); err != nil {
		media.Close()
		return nil, fmt.Errorf("failed to open decode context for %s: %w", path, err)
	}

	streams := media.VideoStreams()
	if len(streams) == 0 {
		media.CloseDecode()
		media.Close()
		return nil, fmt.Errorf("no video stream in %s", path)
	}

	stream := streams[0]
	if err := stream.Open(); err != nil {
		media.CloseDecode()
		media.Close()
		return nil, fmt.Errorf("failed to open video stream of %s: %w", path, err)
	}

	fps, _ := stream.FrameRate()
	if fps <= 0 {
		fps = 30
	}

	return &Decoder{
		media:  media,
		stream: stream,
		path:   path,
		fps:    float64(fps),
	}, nil
}

// Path returns the file the decoder was opened on.
//
// Returns:
//   - string: the video file path
func (d *Decoder) Path() string {
	return d.path
}

// FPS returns the source frame rate used for playback pacing.
//
// Returns:
//   - float64: frames per second
func (d *Decoder) FPS() float64 {
	return d.fps
}

// FrameDuration returns the wall-clock duration of one source frame.
//
// Returns:
//   - time.Duration: 1/FPS
func (d *Decoder) FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / d.fps)
}

// Size returns the video dimensions in pixels.
//
// Returns:
//   - int: width
//   - int: height
func (d *Decoder) Size() (int, int) {
	return d.stream.Width(), d.stream.Height()
}

// Duration returns the media duration when the container reports one.
//
// Returns:
//   - time.Duration: the media duration, or 0 if unknown
func (d *Decoder) Duration() time.Duration {
	dur, err := d.media.Duration()
	if err != nil {
		return 0
	}
	return dur
}

// ReadFrame decodes and returns the next video frame. Packets belonging to
// other streams are skipped.
//
// Returns:
//   - *image.RGBA: the decoded frame, or nil at end of stream
//   - bool: false at end of stream
//   - error: a decode error, if any
func (d *Decoder) ReadFrame() (*image.RGBA, bool, error) {
	for {
		packet, gotPacket, err := d.media.ReadPacket()
		if err != nil {
			return nil, false, fmt.Errorf("failed to read packet from %s: %w", d.path, err)
		}
		if !gotPacket {
			return nil, false, nil
		}
		if packet.Type() != reisen.StreamVideo {
			continue
		}

		stream, ok := d.media.Streams()[packet.StreamIndex()].(*reisen.VideoStream)
		if !ok || stream != d.stream {
			continue
		}

		frame, gotFrame, err := stream.ReadVideoFrame()
		if err != nil {
			return nil, false, fmt.Errorf("failed to decode frame from %s: %w", d.path, err)
		}
		if !gotFrame {
			return nil, false, nil
		}
		if frame == nil {
			// Decoder needs more packets before it can emit a frame.
			continue
		}
		return frame.Image(), true, nil
	}
}

// Seek repositions the stream near the given timestamp. The next ReadFrame
// resumes from the closest preceding keyframe.
//
// Parameters:
//   - at: the target position from the start of the media
//
// Returns:
//   - error: an error if seeking fails
func (d *Decoder) Seek(at time.Duration) error {
	if err := d.stream.Rewind(at); err != nil {
		return fmt.Errorf("failed to seek %s to %v: %w", d.path, at, err)
	}
	return nil
}

// Close releases the stream and media contexts.
func (d *Decoder) Close() {
	if d.stream != nil {
		d.stream.Close()
		d.stream = nil
	}
	if d.media != nil {
		d.media.CloseDecode()
		d.media.Close()
		d.media = nil
	}
}

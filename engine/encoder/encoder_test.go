package encoder_test

import (
	"image"
	"image/color"
	"os"
	"testing"

	"github.com/Carmen-Shannon/vfx-go/engine/encoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

func TestEncoderWritesSequence(t *testing.T) {
	dir := t.TempDir()
	e := encoder.NewEncoder()

	require.NoError(t, e.Start(encoder.Settings{OutputDir: dir, FPS: 30, Workers: 2}))
	assert.True(t, e.Recording())

	for i := 0; i < 5; i++ {
		e.SubmitFrame(testFrame(color.RGBA{R: uint8(i * 40), A: 255}))
	}
	e.Stop()
	assert.False(t, e.Recording())
	assert.Equal(t, 5, e.FramesWritten())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, "frame_000000.png", entries[0].Name())
	assert.Equal(t, "frame_000004.png", entries[4].Name())
}

func TestEncoderRejectsDoubleStart(t *testing.T) {
	dir := t.TempDir()
	e := encoder.NewEncoder()
	require.NoError(t, e.Start(encoder.Settings{OutputDir: dir, Workers: 1}))
	assert.Error(t, e.Start(encoder.Settings{OutputDir: dir, Workers: 1}))
	e.Stop()
}

func TestEncoderDropsFramesWhenIdle(t *testing.T) {
	e := encoder.NewEncoder()
	e.SubmitFrame(testFrame(color.RGBA{A: 255}))
	assert.Equal(t, 0, e.FramesWritten())

	// Start requires an output directory.
	assert.Error(t, e.Start(encoder.Settings{}))
}

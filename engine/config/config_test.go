package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/vfx-go/engine/config"
	"github.com/Carmen-Shannon/vfx-go/engine/preset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := config.Default()
	cfg.LastOpenedVideo = "/videos/clip.mp4"
	cfg.ShaderDirectory = "/shaders"
	cfg.AutoCompileOnSave = false
	cfg.ShaderPresets = []preset.Snapshot{
		{
			Name:         "glow",
			Filepath:     "/shaders/glow.wgsl",
			ShortcutKey:  49,
			ShortcutMods: 2,
			ParamValues: map[string][]float32{
				"amount": {0.8},
				"center": {0.1, 0.9},
				"tint":   {1, 0, 0, 1},
			},
		},
	}
	require.NoError(t, cfg.Save(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	// No stray temp files are left next to the config.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSaveOverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	first := config.Default()
	require.NoError(t, first.Save(path))

	second := config.Default()
	second.LastOpenedVideo = "/videos/other.mov"
	require.NoError(t, second.Save(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/videos/other.mov", loaded.LastOpenedVideo)
}

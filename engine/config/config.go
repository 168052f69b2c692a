// Package config persists the application's state between sessions: loaded
// preset snapshots, recording defaults, the shader directory, and UI layout.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/vfx-go/engine/encoder"
	"github.com/Carmen-Shannon/vfx-go/engine/preset"
)

// configFileName is the file written next to the executable.
const configFileName = "config.json"

// Config is the persisted application state. Preset snapshots carry only
// identity, shortcut and current parameter values; parameter metadata is
// re-derived from each source file at load.
type Config struct {
	ShaderPresets []preset.Snapshot `json:"shaderPresets"`

	RecordingDefaults encoder.Settings `json:"recordingDefaults"`

	// AutoCompileOnSave recompiles the edited preset automatically after the
	// configured idle delay.
	AutoCompileOnSave  bool `json:"autoCompileOnSave"`
	AutoCompileDelayMs int  `json:"autoCompileDelayMs"`

	LastOpenedVideo string `json:"lastOpenedVideo"`
	ShaderDirectory string `json:"shaderDirectory"`

	ShowEditor        bool    `json:"showEditor"`
	ShowLibrary       bool    `json:"showLibrary"`
	ShowTransport     bool    `json:"showTransport"`
	EditorPanelWidth  float32 `json:"editorPanelWidth"`
	LibraryPanelWidth float32 `json:"libraryPanelWidth"`
}

// Default returns the configuration used when no file exists yet.
//
// Returns:
//   - *Config: a config with sensible defaults
func Default() *Config {
	return &Config{
		RecordingDefaults: encoder.Settings{
			OutputDir: "recordings",
			FPS:       30,
		},
		AutoCompileOnSave:  true,
		AutoCompileDelayMs: 750,
		ShaderDirectory:    "shaders",
		ShowEditor:         true,
		ShowLibrary:        true,
		ShowTransport:      true,
		EditorPanelWidth:   420,
		LibraryPanelWidth:  260,
	}
}

// DefaultPath returns the config file path next to the running executable,
// falling back to the working directory when the executable path is unknown.
//
// Returns:
//   - string: the default config file path
func DefaultPath() string {
	exe, err := os.Executable()
	if err != nil {
		return configFileName
	}
	return filepath.Join(filepath.Dir(exe), configFileName)
}

// Load reads the config from the given path. A missing file is not an error;
// it yields the defaults so first launch works without setup.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - *Config: the loaded (or default) configuration
//   - error: an error if the file exists but cannot be read or parsed
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config atomically: marshalled to a temp file in the same
// directory, then renamed over the target, so a crash mid-write never leaves
// a truncated config behind.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - error: an error if marshalling or writing fails
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, configFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace config %s: %w", path, err)
	}
	return nil
}

// Package config holds the viewer settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"model-viewer/scene"
	"model-viewer/viewer"
)

// Filename is the optional settings file read from the working directory.
const Filename = "viewer.yaml"

// ModelPath is the model the viewer loads. It is not configurable.
const ModelPath = "cube.obj"

// Config is the viewer configuration. Fields missing from the file keep
// their defaults.
type Config struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`

	// Validation enables the Vulkan validation layers.
	Validation bool `yaml:"validation"`

	// Rig is "basic" or "enhanced".
	Rig       string `yaml:"rig"`
	Shadows   bool   `yaml:"shadows"`
	Headlight bool   `yaml:"headlight"`

	// Progress shows a progress bar on stderr while assets are fetched.
	Progress bool `yaml:"progress"`

	LogLevel string `yaml:"log_level"`
	Colour   bool   `yaml:"colour"`

	// Background is the clear colour as 0xRRGGBB.
	Background uint32 `yaml:"background"`
}

// Default returns the built in configuration.
func Default() Config {
	return Config{
		Width:      1024,
		Height:     768,
		Title:      "Model Viewer",
		Validation: false,
		Rig:        "enhanced",
		Shadows:    true,
		Headlight:  true,
		Progress:   false,
		LogLevel:   "warn",
		Colour:     true,
		Background: 0x000000,
	}
}

// Load returns the defaults overridden by the file at path. A missing
// file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values a file may have set.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Width, c.Height)
	}
	if _, err := c.rig(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Background > 0xffffff {
		return fmt.Errorf("background %#x is not an RGB colour", c.Background)
	}
	return nil
}

// Level returns the configured log level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

func (c Config) rig() (viewer.Rig, error) {
	switch strings.ToLower(c.Rig) {
	case "basic":
		return viewer.RigBasic, nil
	case "enhanced", "":
		return viewer.RigEnhanced, nil
	}
	return viewer.RigBasic, fmt.Errorf("unknown light rig %q", c.Rig)
}

// Options returns the scene bootstrap options. c must be valid.
func (c Config) Options() viewer.Options {
	rig, _ := c.rig()
	return viewer.Options{
		Width:      c.Width,
		Height:     c.Height,
		Rig:        rig,
		Shadows:    c.Shadows,
		Background: scene.HexColor(c.Background),
	}
}

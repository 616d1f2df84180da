package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// ErrInvalid is returned by Validate for out-of-range settings
var ErrInvalid = errors.New("invalid configuration")

// Config represents the main configuration
type Config struct {
	Window      WindowConfig      `yaml:"window"`
	Render      RenderConfig      `yaml:"render"`
	Postprocess PostprocessConfig `yaml:"postprocess"`
	Atlas       AtlasConfig       `yaml:"atlas"`
	Log         LogConfig         `yaml:"log"`
}

// WindowConfig contains window-related configuration
type WindowConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Title      string `yaml:"title"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// RenderConfig contains renderer configuration
type RenderConfig struct {
	LogicalWidth  int    `yaml:"logical_width"`
	LogicalHeight int    `yaml:"logical_height"`
	FrameRate     int    `yaml:"framerate"`
	Backend       string `yaml:"backend"`   // opengl, software
	MaxQuads      int    `yaml:"max_quads"` // per layer batch
	ClearColor    string `yaml:"clear_color"`
}

// PostprocessConfig selects the optional postprocess stages
type PostprocessConfig struct {
	HUDLayer   bool  `yaml:"hud_layer"`
	Lighting   bool  `yaml:"lighting"`
	StaticSeed int64 `yaml:"static_seed"` // 0 means random
	Workers    int   `yaml:"workers"`     // software backend, 0 means GOMAXPROCS
}

// AtlasConfig points at the packed texture atlas
type AtlasConfig struct {
	Image string `yaml:"image"`
	Index string `yaml:"index"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // empty logs to the console only
}

// Backend names
const (
	BackendOpenGL   = "opengl"
	BackendSoftware = "software"
)

// DefaultConfig creates a default configuration
func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Width:      1600,
			Height:     900,
			Title:      "crtpipe",
			Fullscreen: false,
			VSync:      true,
		},
		Render: RenderConfig{
			LogicalWidth:  320,
			LogicalHeight: 180,
			FrameRate:     60,
			Backend:       BackendOpenGL,
			MaxQuads:      4096,
			ClearColor:    "#000000",
		},
		Postprocess: PostprocessConfig{
			HUDLayer:   true,
			Lighting:   true,
			StaticSeed: 0,
			Workers:    0,
		},
		Atlas: AtlasConfig{
			Image: "assets/textures.png",
			Index: "assets/textures_index.txt",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads the configuration from a file. The defaults are returned
// together with the error when the file is missing or malformed.
func LoadConfig(filePath string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return config, fmt.Errorf("config file not found, using defaults: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("error parsing config: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to a file
func SaveConfig(config *Config, filePath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error serializing config: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Validate checks the settings the renderer cannot work without
func (c *Config) Validate() error {
	var problems []string

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		problems = append(problems, fmt.Sprintf("window size %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Render.LogicalWidth <= 0 || c.Render.LogicalHeight <= 0 {
		problems = append(problems, fmt.Sprintf("logical size %dx%d", c.Render.LogicalWidth, c.Render.LogicalHeight))
	}
	if c.Render.FrameRate <= 0 {
		problems = append(problems, fmt.Sprintf("framerate %d", c.Render.FrameRate))
	}
	if c.Render.MaxQuads <= 0 {
		problems = append(problems, fmt.Sprintf("max_quads %d", c.Render.MaxQuads))
	}
	switch strings.ToLower(c.Render.Backend) {
	case BackendOpenGL, BackendSoftware:
	default:
		problems = append(problems, fmt.Sprintf("backend %q", c.Render.Backend))
	}
	if c.Postprocess.Workers < 0 {
		problems = append(problems, fmt.Sprintf("workers %d", c.Postprocess.Workers))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, ", "))
	}
	return nil
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
render:
  logical_width: 128
  logical_height: 128
  backend: software
postprocess:
  hud_layer: false
  static_seed: 7
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Render.LogicalWidth != 128 || cfg.Render.LogicalHeight != 128 {
		t.Errorf("logical size = %dx%d", cfg.Render.LogicalWidth, cfg.Render.LogicalHeight)
	}
	if cfg.Render.Backend != BackendSoftware {
		t.Errorf("backend = %q", cfg.Render.Backend)
	}
	if cfg.Postprocess.HUDLayer {
		t.Errorf("hud_layer not overridden")
	}
	if cfg.Postprocess.StaticSeed != 7 {
		t.Errorf("static_seed = %d", cfg.Postprocess.StaticSeed)
	}
	// untouched keys keep their defaults
	if cfg.Render.FrameRate != 60 || !cfg.Postprocess.Lighting {
		t.Errorf("defaults lost: framerate=%d lighting=%v", cfg.Render.FrameRate, cfg.Postprocess.Lighting)
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if cfg == nil || cfg.Render.LogicalWidth != 320 {
		t.Fatalf("defaults not returned: %+v", cfg)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := DefaultConfig()
	cfg.Window.Title = "round trip"
	cfg.Postprocess.Workers = 3

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Window.Title != "round trip" || loaded.Postprocess.Workers != 3 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero window", func(c *Config) { c.Window.Width = 0 }},
		{"negative logical", func(c *Config) { c.Render.LogicalHeight = -1 }},
		{"zero framerate", func(c *Config) { c.Render.FrameRate = 0 }},
		{"zero max quads", func(c *Config) { c.Render.MaxQuads = 0 }},
		{"unknown backend", func(c *Config) { c.Render.Backend = "vulkan" }},
		{"negative workers", func(c *Config) { c.Postprocess.Workers = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"

	"crtpipe/internal/logger"
	"crtpipe/internal/util"
	"crtpipe/pkg/atlas"
	"crtpipe/pkg/config"
	"crtpipe/pkg/engine"
)

func init() {
	// GLFW requires the program to be running on the main thread
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	backend := flag.String("backend", "", "Override render.backend (opengl, software)")
	frames := flag.Int("frames", 0, "Render this many frames headless and exit")
	snapshot := flag.String("snapshot", "", "Write the last frame as PNG (software backend)")
	writeAtlas := flag.Bool("write-atlas", false, "Write the generated atlas to atlas.image and atlas.index, then exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Printf("%v", err)
	}
	if *backend != "" {
		cfg.Render.Backend = *backend
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()
	logger.Info("Starting crtpipe...")

	if err := run(cfg, logger, *frames, *snapshot, *writeAtlas); err != nil {
		logger.Errorf("%v", err)
		logger.Close()
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) (*logger.Logger, error) {
	if cfg.File == "" {
		return logger.NewLogger(cfg.Level), nil
	}
	return logger.NewMultiLogger(cfg.Level, cfg.File)
}

func run(cfg *config.Config, log *logger.Logger, frames int, snapshot string, writeOnly bool) error {
	base := path.Dir(filepath.ToSlash(cfg.Atlas.Index))

	a, err := loadAtlas(cfg.Atlas, base, cfg.Postprocess.StaticSeed, log)
	if err != nil {
		return err
	}
	if writeOnly {
		if err := writeAtlas(a, cfg.Atlas.Image, cfg.Atlas.Index); err != nil {
			return err
		}
		log.Infof("Atlas written to %s and %s", cfg.Atlas.Image, cfg.Atlas.Index)
		return nil
	}

	scene, err := newDemoScene(a, base, cfg.Render.LogicalWidth, cfg.Render.LogicalHeight, log, cfg.Postprocess.StaticSeed)
	if err != nil {
		return fmt.Errorf("failed to set up scene: %w", err)
	}

	game, err := engine.NewEngine(cfg, log, scene, a)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer game.Close()

	if frames > 0 {
		if err := game.RunHeadless(frames); err != nil {
			return err
		}
	} else {
		log.Info("Engine initialized, starting loop...")
		if err := game.Run(); err != nil {
			return err
		}
	}

	if snapshot != "" {
		f, err := os.Create(snapshot)
		if err != nil {
			return fmt.Errorf("failed to create snapshot: %w", err)
		}
		defer f.Close()
		if err := game.WriteSnapshot(f); err != nil {
			return err
		}
		log.Infof("Snapshot of frame %d written to %s", game.Frames(), snapshot)
	}
	return nil
}

// loadAtlas reads the configured atlas, generating one when the image is
// missing
func loadAtlas(cfg config.AtlasConfig, base string, seed int64, log *logger.Logger) (*atlas.Atlas, error) {
	if util.FileExists(cfg.Image) && util.FileExists(cfg.Index) {
		a, err := atlas.Load(cfg.Image, cfg.Index)
		if err != nil {
			return nil, err
		}
		log.Infof("Loaded atlas %s: %dx%d, %d sprites", cfg.Image, a.Width(), a.Height(), a.Len())
		return a, nil
	}

	if seed == 0 {
		seed = 1
	}
	a, err := generateAtlas(base, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to generate atlas: %w", err)
	}
	log.Warnf("Atlas %s not found, using a generated one (%d sprites)", cfg.Image, a.Len())
	return a, nil
}

package engine

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"crtpipe/internal/logger"
	"crtpipe/internal/util"
	"crtpipe/pkg/atlas"
	"crtpipe/pkg/batch"
	"crtpipe/pkg/config"
)

// FrameSource is the game side of the loop: it advances its state and
// fills a frame with draw commands every tick
type FrameSource interface {
	Update(dt float64)
	Draw(f *Frame)
}

// Engine drives a FrameSource through the batch builder and a renderer
type Engine struct {
	ctx        *GLContext
	input      *InputHandler
	config     *config.Config
	logger     *logger.Logger
	source     FrameSource
	builder    *batch.Builder
	renderer   Renderer
	frame      *Frame
	frameCount uint64
	timer      *util.FrameTimer
	isRunning  bool
	lastUpdate time.Time
	frameRate  int
}

// NewEngine creates the backend selected by the configuration. The OpenGL
// backend opens a window; the software backend runs headless.
func NewEngine(cfg *config.Config, log *logger.Logger, source FrameSource, textures ...*atlas.Atlas) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	builder, err := batch.NewBuilder(cfg.Render.MaxQuads, textures...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize batch builder: %w", err)
	}

	e := &Engine{
		config:    cfg,
		logger:    log,
		source:    source,
		builder:   builder,
		frame:     NewFrame(cfg.Render.LogicalWidth, cfg.Render.LogicalHeight),
		timer:     util.NewFrameTimer(cfg.Render.FrameRate),
		frameRate: cfg.Render.FrameRate,
	}

	switch strings.ToLower(cfg.Render.Backend) {
	case config.BackendSoftware:
		e.renderer, err = NewSoftwareRenderer(cfg, textures, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize software renderer: %w", err)
		}

	default:
		e.ctx, err = NewGLContext(cfg.Window, log)
		if err != nil {
			return nil, err
		}
		e.renderer, err = NewRecoveringRenderer(func() (Renderer, error) {
			return NewOpenGLRenderer(e.ctx, cfg, textures, log)
		}, log)
		if err != nil {
			e.ctx.Close()
			return nil, fmt.Errorf("failed to initialize OpenGL renderer: %w", err)
		}

		e.input = NewInputHandler(e.ctx.Window())
		e.ctx.Window().SetFramebufferSizeCallback(e.resizeCallback)
	}

	return e, nil
}

// Renderer returns the active renderer
func (e *Engine) Renderer() Renderer {
	return e.renderer
}

// Run starts the windowed loop
func (e *Engine) Run() error {
	if e.ctx == nil {
		return fmt.Errorf("backend %q has no window, use RunHeadless", e.config.Render.Backend)
	}

	e.isRunning = true
	e.lastUpdate = time.Now()

	for e.isRunning && !e.ctx.ShouldClose() {
		currentTime := time.Now()
		deltaTime := currentTime.Sub(e.lastUpdate).Seconds()
		e.lastUpdate = currentTime

		e.processInput()

		if err := e.Step(deltaTime); err != nil {
			return err
		}

		// Swap buffers and poll events
		e.ctx.SwapBuffers()
		glfw.PollEvents()

		frameTime := time.Since(currentTime)
		e.timer.Add(frameTime)
		if e.timer.Full() && e.frameCount%uint64(e.frameRate*5) == 0 {
			e.logger.Debugf("average frame time %v", e.timer.Average())
		}

		// Cap the frame rate
		if e.frameRate > 0 {
			targetFrameTime := time.Second / time.Duration(e.frameRate)
			if frameTime < targetFrameTime {
				time.Sleep(targetFrameTime - frameTime)
			}
		}
	}

	return nil
}

// RunHeadless renders a fixed number of frames at the configured rate
func (e *Engine) RunHeadless(frames int) error {
	dt := 1 / float64(e.frameRate)
	for i := 0; i < frames; i++ {
		if err := e.Step(dt); err != nil {
			return err
		}
	}
	return nil
}

// Step advances the source, builds the frame and renders it. Build errors
// such as a missing sprite skip the frame; renderer errors are returned.
func (e *Engine) Step(dt float64) error {
	e.source.Update(dt)

	e.frame.Reset(e.frameCount)
	e.source.Draw(e.frame)
	e.frameCount++

	data, err := e.frame.Build(e.builder, e.frameRate)
	if err != nil {
		e.logger.Errorf("frame %d skipped: %v", e.frame.Number, err)
		return nil
	}
	for _, layer := range []Layer{LayerPlayer, LayerHUD} {
		if dropped := data.Layer(layer).Dropped; dropped > 0 {
			e.logger.Warnf("frame %d: %s layer over %d quads, %d commands dropped",
				data.Number, layer, e.builder.MaxQuads(), dropped)
		}
	}

	return e.renderer.Render(data)
}

// Frames returns the number of frames stepped so far
func (e *Engine) Frames() uint64 {
	return e.frameCount
}

// WriteSnapshot writes the last frame as PNG when the backend supports it
func (e *Engine) WriteSnapshot(w io.Writer) error {
	s, ok := e.renderer.(Snapshotter)
	if !ok {
		return fmt.Errorf("backend %q cannot write snapshots", e.config.Render.Backend)
	}
	return s.WritePNG(w)
}

// SetLogicalSize changes the logical canvas
func (e *Engine) SetLogicalSize(width, height int) error {
	if err := e.renderer.SetLogicalSize(width, height); err != nil {
		return err
	}
	e.config.Render.LogicalWidth = width
	e.config.Render.LogicalHeight = height
	e.frame.Width = width
	e.frame.Height = height
	return nil
}

// processInput handles user input
func (e *Engine) processInput() {
	e.input.Update()

	// Close when ESC is pressed
	if e.input.IsKeyPressed(glfw.KeyEscape) {
		e.isRunning = false
	}

	if r, ok := e.source.(InputReceiver); ok {
		r.HandleInput(e.input)
	}
}

func (e *Engine) resizeCallback(_ *glfw.Window, width int, height int) {
	if width == 0 || height == 0 {
		// minimized
		return
	}
	e.logger.Infof("Window resized to %dx%d", width, height)
	e.config.Window.Width = width
	e.config.Window.Height = height

	if err := e.renderer.Resize(width, height); err != nil {
		e.logger.Errorf("resize failed: %v", err)
	}
}

// Close releases the renderer, then the context
func (e *Engine) Close() {
	e.logger.Info("Shutting down engine...")
	if e.renderer != nil {
		e.renderer.Close()
	}
	if e.ctx != nil {
		e.ctx.Close()
	}
}

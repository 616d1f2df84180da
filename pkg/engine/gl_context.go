package engine

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"crtpipe/internal/logger"
	"crtpipe/pkg/config"
)

// GLContext owns the window and the OpenGL function pointers. Renderers
// built on it must be closed before the context.
type GLContext struct {
	window *glfw.Window
	log    *logger.Logger
	closed bool
}

// NewGLContext creates the window and makes its 4.1 core context current.
// It must be called from the main thread.
func NewGLContext(cfg config.WindowConfig, log *logger.Logger) (*GLContext, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// Set window hints
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	var monitor *glfw.Monitor
	if cfg.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
	}

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	log.Infof("OpenGL %s on %s", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))

	return &GLContext{window: window, log: log}, nil
}

// Window returns the GLFW window
func (c *GLContext) Window() *glfw.Window {
	return c.window
}

// FramebufferSize returns the drawable size in pixels
func (c *GLContext) FramebufferSize() (int, int) {
	return c.window.GetFramebufferSize()
}

// SwapBuffers presents the default framebuffer
func (c *GLContext) SwapBuffers() {
	c.window.SwapBuffers()
}

// ShouldClose reports whether the user asked to close the window
func (c *GLContext) ShouldClose() bool {
	return c.window.ShouldClose()
}

// Close destroys the window and terminates GLFW
func (c *GLContext) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.window.Destroy()
	glfw.Terminate()
}

// checkGLError drains the GL error queue. Out-of-memory and framebuffer
// errors mean the device can no longer be trusted.
func checkGLError(op string) error {
	var first uint32
	lost := false
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		if first == 0 {
			first = code
		}
		if code == gl.OUT_OF_MEMORY || code == gl.INVALID_FRAMEBUFFER_OPERATION {
			lost = true
		}
	}

	switch {
	case first == 0:
		return nil
	case lost:
		return fmt.Errorf("%s: %w (GL error 0x%04x)", op, ErrDeviceLost, first)
	default:
		return fmt.Errorf("%s: GL error 0x%04x", op, first)
	}
}

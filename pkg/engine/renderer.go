package engine

import (
	"errors"
	"io"

	"github.com/go-gl/mathgl/mgl32"

	"crtpipe/internal/logger"
	"crtpipe/pkg/shader"
)

// ErrDeviceLost is returned when GPU resources can no longer be used and
// the backend has to be recreated
var ErrDeviceLost = errors.New("render device lost")

// Renderer defines the interface for all renderers
type Renderer interface {
	// Render runs the scene passes and the postprocess pass for one frame
	Render(frame *FrameData) error

	// Resize changes the output size
	Resize(width, height int) error

	// SetLogicalSize changes the size of the layer targets
	SetLogicalSize(width, height int) error

	// Close releases resources
	Close()
}

// Snapshotter is implemented by renderers that can hand back their output
type Snapshotter interface {
	WritePNG(w io.Writer) error
}

// postprocessUniform builds the fragment block for a frame and reports
// lights that did not fit
func postprocessUniform(log *logger.Logger, frame *FrameData, width, height, logicalW, logicalH int) shader.PostprocessFragmentUniform {
	u, dropped := shader.NewPostprocessUniform(
		mgl32.Vec2{float32(width), float32(height)},
		mgl32.Vec2{float32(logicalW), float32(logicalH)},
		frame.Time,
		frame.Dark,
		frame.Lights,
	)
	if dropped > 0 {
		log.Warnf("frame %d: %d lights over the limit of %d were dropped", frame.Number, dropped, shader.MaxLights)
	}
	return u
}

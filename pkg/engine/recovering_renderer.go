package engine

import (
	"errors"
	"fmt"
	"sync"

	"crtpipe/internal/logger"
)

// BackendFactory creates a fresh renderer backend
type BackendFactory func() (Renderer, error)

// RecoveringRenderer wraps a backend and replaces it after device loss.
// A frame that hits ErrDeviceLost is skipped; the backend is re-acquired
// on the next Render call.
type RecoveringRenderer struct {
	factory BackendFactory
	log     *logger.Logger
	active  Renderer

	width    int
	height   int
	logicalW int
	logicalH int

	skipped   int
	recovered int

	mutex sync.Mutex
}

// NewRecoveringRenderer creates the first backend immediately
func NewRecoveringRenderer(factory BackendFactory, log *logger.Logger) (*RecoveringRenderer, error) {
	active, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	return &RecoveringRenderer{
		factory: factory,
		log:     log.With("recovery"),
		active:  active,
	}, nil
}

// Render renders with the active backend, re-acquiring it first if it was
// lost. Device loss is logged and the frame is skipped without an error.
func (rr *RecoveringRenderer) Render(frame *FrameData) error {
	rr.mutex.Lock()
	defer rr.mutex.Unlock()

	if rr.active == nil {
		if err := rr.reacquire(); err != nil {
			rr.skipped++
			rr.log.Errorf("frame %d skipped, renderer unavailable: %v", frame.Number, err)
			return nil
		}
	}

	err := rr.active.Render(frame)
	if errors.Is(err, ErrDeviceLost) {
		rr.skipped++
		rr.log.Errorf("frame %d skipped: %v", frame.Number, err)
		rr.active.Close()
		rr.active = nil
		return nil
	}
	return err
}

func (rr *RecoveringRenderer) reacquire() error {
	active, err := rr.factory()
	if err != nil {
		return err
	}

	if rr.width > 0 && rr.height > 0 {
		if err := active.Resize(rr.width, rr.height); err != nil {
			active.Close()
			return err
		}
	}
	if rr.logicalW > 0 && rr.logicalH > 0 {
		if err := active.SetLogicalSize(rr.logicalW, rr.logicalH); err != nil {
			active.Close()
			return err
		}
	}

	rr.active = active
	rr.recovered++
	rr.log.Infof("renderer re-acquired (%d recoveries)", rr.recovered)
	return nil
}

// Resize forwards to the backend and remembers the size for re-acquisition
func (rr *RecoveringRenderer) Resize(width, height int) error {
	rr.mutex.Lock()
	defer rr.mutex.Unlock()

	rr.width, rr.height = width, height
	if rr.active == nil {
		return nil
	}
	return rr.dropIfLost(rr.active.Resize(width, height))
}

// SetLogicalSize forwards to the backend and remembers the size for
// re-acquisition
func (rr *RecoveringRenderer) SetLogicalSize(width, height int) error {
	rr.mutex.Lock()
	defer rr.mutex.Unlock()

	rr.logicalW, rr.logicalH = width, height
	if rr.active == nil {
		return nil
	}
	return rr.dropIfLost(rr.active.SetLogicalSize(width, height))
}

func (rr *RecoveringRenderer) dropIfLost(err error) error {
	if errors.Is(err, ErrDeviceLost) {
		rr.log.Errorf("renderer lost: %v", err)
		rr.active.Close()
		rr.active = nil
		return nil
	}
	return err
}

// Skipped returns how many frames were dropped because of device loss
func (rr *RecoveringRenderer) Skipped() int {
	rr.mutex.Lock()
	defer rr.mutex.Unlock()

	return rr.skipped
}

// Backend returns the active backend, nil while it is lost
func (rr *RecoveringRenderer) Backend() Renderer {
	rr.mutex.Lock()
	defer rr.mutex.Unlock()

	return rr.active
}

// Close releases the active backend
func (rr *RecoveringRenderer) Close() {
	rr.mutex.Lock()
	defer rr.mutex.Unlock()

	if rr.active != nil {
		rr.active.Close()
		rr.active = nil
	}
}

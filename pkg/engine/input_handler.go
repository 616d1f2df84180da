package engine

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

// InputHandler tracks keyboard state between ticks
type InputHandler struct {
	window       *glfw.Window
	currentKeys  map[glfw.Key]bool
	previousKeys map[glfw.Key]bool
}

// InputReceiver is implemented by frame sources that react to input
type InputReceiver interface {
	HandleInput(in *InputHandler)
}

// NewInputHandler creates a new input handler
func NewInputHandler(window *glfw.Window) *InputHandler {
	return &InputHandler{
		window:       window,
		currentKeys:  make(map[glfw.Key]bool),
		previousKeys: make(map[glfw.Key]bool),
	}
}

// Update samples the keyboard
func (ih *InputHandler) Update() {
	ih.previousKeys, ih.currentKeys = ih.currentKeys, ih.previousKeys
	for key := glfw.KeySpace; key <= glfw.KeyLast; key++ {
		ih.currentKeys[key] = ih.window.GetKey(key) == glfw.Press
	}
}

// IsKeyDown reports whether key is held
func (ih *InputHandler) IsKeyDown(key glfw.Key) bool {
	return ih.currentKeys[key]
}

// IsKeyPressed reports whether key went down this tick
func (ih *InputHandler) IsKeyPressed(key glfw.Key) bool {
	return ih.currentKeys[key] && !ih.previousKeys[key]
}

// IsKeyReleased reports whether key went up this tick
func (ih *InputHandler) IsKeyReleased(key glfw.Key) bool {
	return !ih.currentKeys[key] && ih.previousKeys[key]
}

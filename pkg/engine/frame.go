package engine

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"crtpipe/pkg/atlas"
	"crtpipe/pkg/batch"
	"crtpipe/pkg/shader"
)

// Layer selects the offscreen target a command draws into
type Layer int

const (
	// LayerPlayer is the world layer, cleared to opaque black
	LayerPlayer Layer = iota
	// LayerHUD is drawn over the player layer, cleared to transparent
	LayerHUD
)

func (l Layer) String() string {
	switch l {
	case LayerPlayer:
		return "player"
	case LayerHUD:
		return "hud"
	}
	return fmt.Sprintf("layer(%d)", int(l))
}

// target maps unknown layers onto the player layer
func (l Layer) target() Layer {
	if l != LayerHUD {
		return LayerPlayer
	}
	return l
}

// Frame collects the draw commands and lighting state of one tick
type Frame struct {
	Number uint64
	Width  int
	Height int

	layers [2][]batch.Command
	lights []shader.Light
	dark   bool
}

// NewFrame creates an empty frame for a logical canvas size
func NewFrame(width, height int) *Frame {
	return &Frame{Width: width, Height: height}
}

// Reset clears the frame for reuse, keeping allocated command storage
func (f *Frame) Reset(number uint64) {
	f.Number = number
	for i := range f.layers {
		f.layers[i] = f.layers[i][:0]
	}
	f.lights = f.lights[:0]
	f.dark = false
}

// Add appends a raw command to a layer
func (f *Frame) Add(layer Layer, cmd batch.Command) {
	layer = layer.target()
	f.layers[layer] = append(f.layers[layer], cmd)
}

// DrawSprite draws an atlas sprite, or a sub-rectangle of it, into dst
func (f *Frame) DrawSprite(layer Layer, sprite batch.Sprite, dst batch.Rect) {
	f.Add(layer, batch.Command{Dest: dst, Source: sprite, Tint: batch.White})
}

// DrawRegion draws an explicit atlas rectangle into dst
func (f *Frame) DrawRegion(layer Layer, region atlas.Rect, dst batch.Rect, reversed bool) {
	f.Add(layer, batch.Command{
		Dest:   dst,
		Source: batch.Region{Rect: region, Reversed: reversed},
		Tint:   batch.White,
	})
}

// DrawString draws s left to right starting at (x, y) with one glyph per
// character. Glyphs lying entirely above or left of the canvas are not
// drawn but still advance the pen. It returns the pen position after the
// last character.
func (f *Frame) DrawString(layer Layer, font *atlas.Font, x, y float32, s string) float32 {
	w := float32(font.CharWidth())
	h := float32(font.CharHeight())

	for _, c := range s {
		dst := batch.Rect{X: x, Y: y, W: w, H: h}
		x += w
		if dst.Y+dst.H <= 0 || dst.X+dst.W <= 0 {
			continue
		}
		f.Add(layer, batch.Command{
			Dest:   dst,
			Source: batch.Region{Rect: font.Glyph(c)},
			Tint:   batch.White,
		})
	}
	return x
}

// FillRect fills dst with a solid color
func (f *Frame) FillRect(layer Layer, dst batch.Rect, c batch.Color) {
	f.Add(layer, batch.Command{Dest: dst, Source: batch.Fill{}, Tint: c})
}

// AddLight adds a spotlight at a logical position
func (f *Frame) AddLight(position mgl32.Vec2, radius float32) {
	f.lights = append(f.lights, shader.Light{Position: position, Radius: radius})
}

// SetDark enables the spotlight mask for this frame
func (f *Frame) SetDark(dark bool) {
	f.dark = dark
}

// Commands returns the commands queued on a layer
func (f *Frame) Commands(layer Layer) []batch.Command {
	return f.layers[layer.target()]
}

// FrameData is a built frame ready for a renderer
type FrameData struct {
	Number uint64
	Time   float32
	Player *batch.Batch
	HUD    *batch.Batch
	Lights []shader.Light
	Dark   bool
}

// Layer returns the batch of a layer
func (d *FrameData) Layer(layer Layer) *batch.Batch {
	if layer == LayerHUD {
		return d.HUD
	}
	return d.Player
}

// Build runs the batch builder over both layers. A missing sprite fails the
// whole frame.
func (f *Frame) Build(b *batch.Builder, frameRate int) (*FrameData, error) {
	player, err := b.Build(f.layers[LayerPlayer])
	if err != nil {
		return nil, fmt.Errorf("%s layer: %w", LayerPlayer, err)
	}
	hud, err := b.Build(f.layers[LayerHUD])
	if err != nil {
		return nil, fmt.Errorf("%s layer: %w", LayerHUD, err)
	}

	lights := make([]shader.Light, len(f.lights))
	copy(lights, f.lights)

	return &FrameData{
		Number: f.Number,
		Time:   shader.FrameTime(f.Number, frameRate),
		Player: player,
		HUD:    hud,
		Lights: lights,
		Dark:   f.dark,
	}, nil
}

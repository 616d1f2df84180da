// Package batch turns per-frame draw commands into vertex and index data
// grouped by texture binding.
package batch

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Color is an 8-bit RGBA color, not premultiplied
type Color struct {
	R, G, B, A uint8
}

// Common colors
var (
	Black       = Color{0, 0, 0, 255}
	White       = Color{255, 255, 255, 255}
	Transparent = Color{}
)

// RGB returns an opaque color
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 255}
}

// ParseColor parses "#RRGGBB" or "#AARRGGBB"
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("invalid color %q: want #RRGGBB or #AARRGGBB", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}

	c := Color{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 255,
	}
	if len(hex) == 8 {
		c.A = uint8(v >> 24)
	}
	return c, nil
}

// String formats the color the way ParseColor reads it
func (c Color) String() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.A, c.R, c.G, c.B)
}

// Vec4 returns the color normalized to [0,1]
func (c Color) Vec4() [4]float32 {
	return [4]float32{
		float32(c.R) / 255,
		float32(c.G) / 255,
		float32(c.B) / 255,
		float32(c.A) / 255,
	}
}

// NRGBA converts to the image/color representation
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

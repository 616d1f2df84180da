package atlas

import "fmt"

// SpriteSheet slices an atlas sprite into a grid of equally sized frames.
// Rows beyond the first are addressed by layer, so one sheet can hold
// several animations stacked vertically.
type SpriteSheet struct {
	Sprite  Rect
	FrameW  int
	FrameH  int
	Columns int
	// ReverseColumns counts frames from the right edge of each row
	ReverseColumns bool
}

// NewSpriteSheet looks up key and divides it into frameW x frameH cells
func NewSpriteSheet(a *Atlas, key string, frameW, frameH int) (*SpriteSheet, error) {
	r, err := a.Lookup(key)
	if err != nil {
		return nil, err
	}
	if frameW <= 0 || frameH <= 0 || frameW > r.W || frameH > r.H {
		return nil, fmt.Errorf("invalid frame size %dx%d for sprite %q (%dx%d)", frameW, frameH, key, r.W, r.H)
	}

	return &SpriteSheet{
		Sprite:  r,
		FrameW:  frameW,
		FrameH:  frameH,
		Columns: r.W / frameW,
	}, nil
}

// Rows is the number of complete frame rows
func (s *SpriteSheet) Rows() int {
	return s.Sprite.H / s.FrameH
}

// Frame returns the absolute atlas rectangle of a frame. Indices past the
// end of a row wrap onto the following rows.
func (s *SpriteSheet) Frame(index, layer int) Rect {
	row := index/s.Columns + layer
	column := index % s.Columns
	if s.ReverseColumns {
		column = s.Columns - 1 - column
	}

	return s.Sprite.Sub(Rect{
		X: column * s.FrameW,
		Y: row * s.FrameH,
		W: s.FrameW,
		H: s.FrameH,
	})
}

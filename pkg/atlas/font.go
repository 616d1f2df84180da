package atlas

// MaxGlyph is the highest character code a font sheet holds. Larger codes
// draw this glyph.
const MaxGlyph = 127

// GlyphSize is the pixel size of a font cell
const GlyphSize = 8

// Font is a fixed-width bitmap font laid out as a sprite sheet of 8x8
// cells, indexed by character code.
type Font struct {
	Sheet *SpriteSheet
}

// NewFont slices the sprite at key into glyph cells
func NewFont(a *Atlas, key string) (*Font, error) {
	sheet, err := NewSpriteSheet(a, key, GlyphSize, GlyphSize)
	if err != nil {
		return nil, err
	}
	return &Font{Sheet: sheet}, nil
}

// CharWidth is the pen advance per character
func (f *Font) CharWidth() int { return f.Sheet.FrameW }

// CharHeight is the line height
func (f *Font) CharHeight() int { return f.Sheet.FrameH }

// Glyph returns the atlas rectangle of a character
func (f *Font) Glyph(c rune) Rect {
	code := min(max(int(c), 0), MaxGlyph)
	return f.Sheet.Frame(code, 0)
}

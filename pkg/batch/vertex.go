package batch

import (
	"unsafe"

	"crtpipe/pkg/atlas"
)

// Vertex is the wire format consumed by the scene shader. A positive
// Color alpha selects the solid color; zero alpha selects the texture.
type Vertex struct {
	Position  [2]float32
	TexCoords [2]float32
	Color     [4]float32
}

// Vertex attribute layout
const (
	VertexStride    = int32(unsafe.Sizeof(Vertex{}))
	PositionOffset  = int(unsafe.Offsetof(Vertex{}.Position))
	TexCoordsOffset = int(unsafe.Offsetof(Vertex{}.TexCoords))
	ColorOffset     = int(unsafe.Offsetof(Vertex{}.Color))
)

// QuadIndices are the two counter-clockwise triangles of a quad whose
// vertices are ordered top-left, bottom-left, top-right, bottom-right
var QuadIndices = [6]uint32{0, 1, 2, 2, 1, 3}

// TextureID selects a texture binding. Zero is the main atlas.
type TextureID int

// Rect is a destination rectangle in logical pixels
type Rect struct {
	X, Y, W, H float32
}

// Paint says how a quad is colored. It is either SolidPaint or
// TexturePaint.
type Paint interface {
	texture() (TextureID, bool)
}

// SolidPaint fills a quad with one color
type SolidPaint struct {
	Color Color
}

func (SolidPaint) texture() (TextureID, bool) { return 0, false }

// TexturePaint samples a quad from a texture. Tint is carried in the
// vertex color but the shader ignores it.
type TexturePaint struct {
	Texture TextureID
	UV      atlas.UVRect
	Tint    Color
}

func (p TexturePaint) texture() (TextureID, bool) { return p.Texture, true }

// Quad is one resolved draw command
type Quad struct {
	Dest  Rect
	Paint Paint
}

// Vertices collapses the paint into the alpha encoding of the wire format
func (q Quad) Vertices() [4]Vertex {
	var uv atlas.UVRect
	var c [4]float32

	switch p := q.Paint.(type) {
	case SolidPaint:
		col := p.Color
		if col.A == 0 {
			col.A = 1
		}
		c = col.Vec4()
	case TexturePaint:
		uv = p.UV
		c = p.Tint.Vec4()
		c[3] = 0
	}

	left, top := q.Dest.X, q.Dest.Y
	right, bottom := q.Dest.X+q.Dest.W, q.Dest.Y+q.Dest.H

	return [4]Vertex{
		{Position: [2]float32{left, top}, TexCoords: [2]float32{uv.Left, uv.Top}, Color: c},
		{Position: [2]float32{left, bottom}, TexCoords: [2]float32{uv.Left, uv.Bottom}, Color: c},
		{Position: [2]float32{right, top}, TexCoords: [2]float32{uv.Right, uv.Top}, Color: c},
		{Position: [2]float32{right, bottom}, TexCoords: [2]float32{uv.Right, uv.Bottom}, Color: c},
	}
}

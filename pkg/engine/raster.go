package engine

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"crtpipe/internal/shadermath"
	"crtpipe/pkg/batch"
	"crtpipe/pkg/shader"
)

// screenVertex is a vertex after the scene vertex stage, in y-down target
// pixels
type screenVertex struct {
	pos   mgl32.Vec2
	uv    mgl32.Vec2
	color mgl32.Vec4
}

// rasterizer draws batches into an 8-bit target the way the scene pipeline
// does: counter-clockwise front faces, back faces culled, top-left fill
// rule, straight alpha blending.
type rasterizer struct {
	target  *image.NRGBA
	logical mgl32.Vec2
}

func newRasterizer(target *image.NRGBA, logicalW, logicalH int) *rasterizer {
	return &rasterizer{
		target:  target,
		logical: mgl32.Vec2{float32(logicalW), float32(logicalH)},
	}
}

// clear fills the target with one color
func (r *rasterizer) clear(c batch.Color) {
	pix := r.target.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i+0] = c.R
		pix[i+1] = c.G
		pix[i+2] = c.B
		pix[i+3] = c.A
	}
}

// drawBatch draws every group in order. textures is indexed by group
// texture binding.
func (r *rasterizer) drawBatch(b *batch.Batch, textures []*image.NRGBA) {
	if b == nil {
		return
	}
	for gi := range b.Groups {
		g := &b.Groups[gi]
		if int(g.Texture) >= len(textures) {
			continue
		}
		tex := textures[g.Texture]
		for i := 0; i+2 < len(g.Indices); i += 3 {
			r.drawTriangle(
				g.Vertices[g.Indices[i]],
				g.Vertices[g.Indices[i+1]],
				g.Vertices[g.Indices[i+2]],
				tex,
			)
		}
	}
}

// project runs the vertex stage and the viewport transform
func (r *rasterizer) project(v batch.Vertex) (screenVertex, mgl32.Vec2) {
	clip := shader.ClipPosition(mgl32.Vec2{v.Position[0], v.Position[1]}, r.logical)
	w := float32(r.target.Rect.Dx())
	h := float32(r.target.Rect.Dy())
	return screenVertex{
		pos:   mgl32.Vec2{(clip[0] + 1) / 2 * w, (1 - clip[1]) / 2 * h},
		uv:    mgl32.Vec2{v.TexCoords[0], v.TexCoords[1]},
		color: mgl32.Vec4(v.Color),
	}, clip
}

func edge(a, b, p mgl32.Vec2) float32 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

// isTopLeft reports whether a->b is a top or left edge of a triangle wound
// clockwise on a y-down screen
func isTopLeft(a, b mgl32.Vec2) bool {
	d := b.Sub(a)
	return (d[1] == 0 && d[0] > 0) || d[1] < 0
}

func covers(w float32, topLeft bool) bool {
	return w > 0 || (w == 0 && topLeft)
}

func (r *rasterizer) drawTriangle(v0, v1, v2 batch.Vertex, tex *image.NRGBA) {
	a, ca := r.project(v0)
	b, cb := r.project(v1)
	c, cc := r.project(v2)

	// back-face culling on clip-space winding
	if (cb[0]-ca[0])*(cc[1]-ca[1])-(cb[1]-ca[1])*(cc[0]-ca[0]) <= 0 {
		return
	}

	area := edge(a.pos, b.pos, c.pos)
	if area < 0 {
		b, c = c, b
		area = -area
	}
	if area == 0 {
		return
	}

	bounds := r.target.Rect
	minX := max(bounds.Min.X, int(shadermath.Floor(min(a.pos[0], b.pos[0], c.pos[0]))))
	minY := max(bounds.Min.Y, int(shadermath.Floor(min(a.pos[1], b.pos[1], c.pos[1]))))
	maxX := min(bounds.Max.X-1, int(shadermath.Floor(max(a.pos[0], b.pos[0], c.pos[0]))))
	maxY := min(bounds.Max.Y-1, int(shadermath.Floor(max(a.pos[1], b.pos[1], c.pos[1]))))

	tlBC := isTopLeft(b.pos, c.pos)
	tlCA := isTopLeft(c.pos, a.pos)
	tlAB := isTopLeft(a.pos, b.pos)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := mgl32.Vec2{float32(x) + 0.5, float32(y) + 0.5}
			w0 := edge(b.pos, c.pos, p)
			w1 := edge(c.pos, a.pos, p)
			w2 := edge(a.pos, b.pos, p)
			if !covers(w0, tlBC) || !covers(w1, tlCA) || !covers(w2, tlAB) {
				continue
			}

			l0, l1, l2 := w0/area, w1/area, w2/area
			uv := a.uv.Mul(l0).Add(b.uv.Mul(l1)).Add(c.uv.Mul(l2))
			col := a.color.Mul(l0).Add(b.color.Mul(l1)).Add(c.color.Mul(l2))

			r.blend(x, y, shader.SceneFragment(col, uv, tex))
		}
	}
}

// blend applies src*a + dst*(1-a) to color and a + dstA*(1-a) to alpha
func (r *rasterizer) blend(x, y int, src mgl32.Vec4) {
	i := r.target.PixOffset(x, y)
	px := r.target.Pix[i : i+4 : i+4]
	a := shadermath.Clamp(src[3], 0, 1)

	for ch := 0; ch < 3; ch++ {
		dst := float32(px[ch]) / 255
		px[ch] = unorm8(src[ch]*a + dst*(1-a))
	}
	dstA := float32(px[3]) / 255
	px[3] = unorm8(a + dstA*(1-a))
}

// unorm8 converts a float to an 8-bit normalized value, rounding to nearest
func unorm8(v float32) uint8 {
	return uint8(shadermath.Clamp(v, 0, 1)*255 + 0.5)
}

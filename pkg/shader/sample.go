package shader

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"crtpipe/internal/shadermath"
)

// Texel returns an image pixel as normalized RGBA. Coordinates are clamped
// to the image.
func Texel(img *image.NRGBA, x, y int) mgl32.Vec4 {
	b := img.Rect
	x = clampInt(x, 0, b.Dx()-1)
	y = clampInt(y, 0, b.Dy()-1)
	i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
	p := img.Pix[i : i+4 : i+4]
	return mgl32.Vec4{
		float32(p[0]) / 255,
		float32(p[1]) / 255,
		float32(p[2]) / 255,
		float32(p[3]) / 255,
	}
}

// SampleNearest samples with nearest filtering and clamp-to-edge
func SampleNearest(img *image.NRGBA, uv mgl32.Vec2) mgl32.Vec4 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	x := int(shadermath.Floor(uv[0] * float32(w)))
	y := int(shadermath.Floor(uv[1] * float32(h)))
	return Texel(img, x, y)
}

// SampleNearestRepeat samples with nearest filtering and repeat wrapping
func SampleNearestRepeat(img *image.NRGBA, uv mgl32.Vec2) mgl32.Vec4 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	x := int(shadermath.Floor(shadermath.Fract(uv[0]) * float32(w)))
	y := int(shadermath.Floor(shadermath.Fract(uv[1]) * float32(h)))
	return Texel(img, x%w, y%h)
}

// SampleLinear samples with bilinear filtering and clamp-to-edge
func SampleLinear(img *image.NRGBA, uv mgl32.Vec2) mgl32.Vec4 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	fx := uv[0]*float32(w) - 0.5
	fy := uv[1]*float32(h) - 0.5
	x0 := shadermath.Floor(fx)
	y0 := shadermath.Floor(fy)
	ax := fx - x0
	ay := fy - y0
	ix, iy := int(x0), int(y0)

	top := mixVec4(Texel(img, ix, iy), Texel(img, ix+1, iy), ax)
	bottom := mixVec4(Texel(img, ix, iy+1), Texel(img, ix+1, iy+1), ax)
	return mixVec4(top, bottom, ay)
}

// FuzzSample snaps to texel centers and moves across each texel boundary
// along a smoothstep, then samples bilinearly
func FuzzSample(img *image.NRGBA, uv mgl32.Vec2) mgl32.Vec4 {
	size := mgl32.Vec2{float32(img.Rect.Dx()), float32(img.Rect.Dy())}
	p := shadermath.Mul2(uv, size).Add(mgl32.Vec2{0.5, 0.5})
	i := shadermath.Floor2(p)
	f := shadermath.Smoothstep2(0, 1, p.Sub(i))
	st := shadermath.Div2(i.Add(f).Sub(mgl32.Vec2{0.5, 0.5}), size)
	return SampleLinear(img, st)
}

func mixVec4(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

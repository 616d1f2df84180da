package shader

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"crtpipe/internal/shadermath"
)

// Postprocess constants
const (
	ChannelOffset  = 0.002
	StaticWeight   = 0.04
	ScanlineWeight = 0.015
	MaxDarkness    = 0.85
)

// Channel offsets of the tube warp: red, center, blue
var (
	RedOffset    = mgl32.Vec2{ChannelOffset, 0}
	CenterOffset = mgl32.Vec2{0, 0}
	BlueOffset   = mgl32.Vec2{-ChannelOffset, 0}
)

// ClipPosition maps y-down logical pixels to y-up clip space
func ClipPosition(pos, logicalSize mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{
		(pos[0]/logicalSize[0])*2 - 1,
		(1-pos[1]/logicalSize[1])*2 - 1,
	}
}

// SceneFragment returns the vertex color when its alpha is positive and
// the nearest atlas sample otherwise
func SceneFragment(color mgl32.Vec4, uv mgl32.Vec2, atlas *image.NRGBA) mgl32.Vec4 {
	if color[3] > 0 {
		return color
	}
	return SampleNearest(atlas, uv)
}

// TubeWarp bends uv like a curved CRT face and shifts it by offset
func TubeWarp(uv, offset mgl32.Vec2) mgl32.Vec2 {
	coord := uv.Mul(2).Sub(mgl32.Vec2{1, 1}).Mul(0.5)
	by := coord[1] / 2.5
	coord[0] *= 1 + by*by
	bx := coord[0] / 2.5
	coord[1] *= 1 + bx*bx
	coord = coord.Add(offset)
	return coord.Add(mgl32.Vec2{0.5, 0.5})
}

// Darkness is the minimum over all lights of the smoothed distance ratio,
// scaled by MaxDarkness. Zero lights give no darkness. Lights with a
// non-positive radius light nothing and are skipped.
func Darkness(p mgl32.Vec2, lights []Light) float32 {
	if len(lights) == 0 {
		return 0
	}
	darkness := float32(MaxDarkness)
	for _, l := range lights {
		if l.Radius <= 0 {
			continue
		}
		d := shadermath.Distance(p, l.Position) / l.Radius
		darkness = min(darkness, shadermath.Smoothstep(0, 1, d)*MaxDarkness)
	}
	return darkness
}

// StaticCoord is where the static texture is read for a warped coordinate
func StaticCoord(center mgl32.Vec2, time float32) mgl32.Vec2 {
	return mgl32.Vec2{center[0], shadermath.Fract(center[1] + time*10)}
}

// Scanline is the traveling scanline value for a y-down uv
func Scanline(uvY, renderHeight, time float32) float32 {
	return shadermath.Sin((uvY*renderHeight + time*5) / 1.5)
}

// NoiseBlend mixes static then the scanline into c
func NoiseBlend(c, random mgl32.Vec3, scan float32) mgl32.Vec3 {
	c = shadermath.Mix3(c, random, StaticWeight)
	return shadermath.Mix3(c, mgl32.Vec3{scan, scan, scan}, ScanlineWeight)
}

// Layers are the textures read by the postprocess pass, all y-down
type Layers struct {
	Player *image.NRGBA
	HUD    *image.NRGBA
	Static *image.NRGBA
}

// split fuzz-samples the three warped coordinates and assembles the
// chromatic channels; alpha comes from the center sample
func split(img *image.NRGBA, red, center, blue mgl32.Vec2) mgl32.Vec4 {
	c := FuzzSample(img, center)
	c[0] = FuzzSample(img, red)[0]
	c[2] = FuzzSample(img, blue)[2]
	return c
}

// Postprocess computes one output pixel. pos is the y-down pixel center in
// the output.
func Postprocess(pos mgl32.Vec2, u *PostprocessFragmentUniform, layers Layers, opts Options) mgl32.Vec4 {
	uv := shadermath.Div2(pos, u.RenderSize)

	center := TubeWarp(uv, CenterOffset)
	if !shadermath.InUnitSquare(center) {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	red := TubeWarp(uv, RedOffset)
	blue := TubeWarp(uv, BlueOffset)

	color := split(layers.Player, red, center, blue).Vec3()

	if opts.HUD && layers.HUD != nil {
		hud := split(layers.HUD, red, center, blue)
		color = shadermath.Mix3(hud.Vec3(), color, 1-hud[3])
	}

	if opts.Lighting && u.IsDark && u.SpotlightCount > 0 {
		d := Darkness(shadermath.Mul2(center, u.TextureSize), u.Lights())
		color = shadermath.Mix3(color, mgl32.Vec3{}, d)
	}

	random := SampleNearestRepeat(layers.Static, StaticCoord(center, u.Time)).Vec3()
	scan := Scanline(uv[1], u.RenderSize[1], u.Time)
	color = NoiseBlend(color, random, scan)

	return color.Vec4(1)
}

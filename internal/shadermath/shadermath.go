// Package shadermath mirrors the GLSL built-ins used by the render shaders so
// the CPU reference path produces the same numbers as the GPU path.
package shadermath

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Clamp restricts x to [lo, hi]
func Clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Mix is GLSL mix: x*(1-a) + y*a
func Mix(x, y, a float32) float32 {
	return x*(1-a) + y*a
}

// Smoothstep is GLSL smoothstep with cubic Hermite interpolation
func Smoothstep(edge0, edge1, x float32) float32 {
	t := Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

// Floor returns the largest integer value not greater than x
func Floor(x float32) float32 {
	return float32(math.Floor(float64(x)))
}

// Fract is GLSL fract: x - floor(x)
func Fract(x float32) float32 {
	return x - Floor(x)
}

// Sin is float32 sine
func Sin(x float32) float32 {
	return float32(math.Sin(float64(x)))
}

// Floor2 applies Floor per component
func Floor2(v mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{Floor(v[0]), Floor(v[1])}
}

// Smoothstep2 applies Smoothstep per component
func Smoothstep2(edge0, edge1 float32, v mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{Smoothstep(edge0, edge1, v[0]), Smoothstep(edge0, edge1, v[1])}
}

// Div2 divides component-wise
func Div2(a, b mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{a[0] / b[0], a[1] / b[1]}
}

// Mul2 multiplies component-wise
func Mul2(a, b mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{a[0] * b[0], a[1] * b[1]}
}

// Mix3 is GLSL mix on vec3 with a scalar factor
func Mix3(x, y mgl32.Vec3, a float32) mgl32.Vec3 {
	return mgl32.Vec3{Mix(x[0], y[0], a), Mix(x[1], y[1], a), Mix(x[2], y[2], a)}
}

// Distance is the Euclidean distance between two points
func Distance(a, b mgl32.Vec2) float32 {
	return a.Sub(b).Len()
}

// InUnitSquare reports whether v lies inside [0,1] on both axes
func InUnitSquare(v mgl32.Vec2) bool {
	return v[0] >= 0 && v[0] <= 1 && v[1] >= 0 && v[1] <= 1
}

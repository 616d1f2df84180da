package shader

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxLights is the size of the fixed spotlight array in the fragment block
const MaxLights = 32

// std140 sizes of the uniform blocks
const (
	RenderVertexUniformSize        = 16
	LightStride                    = 16
	lightsOffset                   = 32
	PostprocessFragmentUniformSize = lightsOffset + MaxLights*LightStride
)

// RenderVertexUniform is the scene pass vertex block
type RenderVertexUniform struct {
	LogicalSize mgl32.Vec2
}

// NewRenderVertexUniform creates the block for a logical canvas size
func NewRenderVertexUniform(width, height int) RenderVertexUniform {
	return RenderVertexUniform{LogicalSize: mgl32.Vec2{float32(width), float32(height)}}
}

// Bytes packs the block with std140 layout
func (u RenderVertexUniform) Bytes() []byte {
	buf := make([]byte, 0, RenderVertexUniformSize)
	buf = appendVec2(buf, u.LogicalSize)
	buf = appendVec2(buf, mgl32.Vec2{})
	return buf
}

// Light is a spotlight in texture pixel space
type Light struct {
	Position mgl32.Vec2
	Radius   float32
}

// PostprocessFragmentUniform is the postprocess pass fragment block.
// RenderSize is the output size; TextureSize is the logical size of the
// layer targets.
type PostprocessFragmentUniform struct {
	RenderSize     mgl32.Vec2
	TextureSize    mgl32.Vec2
	Time           float32
	IsDark         bool
	SpotlightCount int32
	Spotlight      [MaxLights]Light
}

// NewPostprocessUniform fills the fragment block. Lights beyond MaxLights
// are dropped; the number dropped is returned so the caller can report it.
func NewPostprocessUniform(renderSize, textureSize mgl32.Vec2, time float32, isDark bool, lights []Light) (PostprocessFragmentUniform, int) {
	u := PostprocessFragmentUniform{
		RenderSize:  renderSize,
		TextureSize: textureSize,
		Time:        time,
		IsDark:      isDark,
	}

	dropped := 0
	if len(lights) > MaxLights {
		dropped = len(lights) - MaxLights
		lights = lights[:MaxLights]
	}
	u.SpotlightCount = int32(copy(u.Spotlight[:], lights))

	return u, dropped
}

// Lights returns the active spotlights
func (u *PostprocessFragmentUniform) Lights() []Light {
	n := int(u.SpotlightCount)
	if n < 0 {
		n = 0
	}
	if n > MaxLights {
		n = MaxLights
	}
	return u.Spotlight[:n]
}

// Bytes packs the block with std140 layout
func (u *PostprocessFragmentUniform) Bytes() []byte {
	buf := make([]byte, 0, PostprocessFragmentUniformSize)
	buf = appendVec2(buf, u.RenderSize)
	buf = appendVec2(buf, u.TextureSize)
	buf = appendFloat(buf, u.Time)

	isDark := int32(0)
	if u.IsDark {
		isDark = 1
	}
	buf = appendInt(buf, isDark)
	buf = appendInt(buf, u.SpotlightCount)
	buf = appendInt(buf, 0)

	for _, l := range u.Spotlight {
		buf = appendVec2(buf, l.Position)
		buf = appendFloat(buf, l.Radius)
		buf = appendFloat(buf, 0)
	}
	return buf
}

// FrameTime converts a frame counter to seconds
func FrameTime(frame uint64, frameRate int) float32 {
	if frameRate <= 0 {
		return 0
	}
	return float32(frame) / float32(frameRate)
}

func appendFloat(buf []byte, f float32) []byte {
	return binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
}

func appendInt(buf []byte, i int32) []byte {
	return binary.LittleEndian.AppendUint32(buf, uint32(i))
}

func appendVec2(buf []byte, v mgl32.Vec2) []byte {
	return appendFloat(appendFloat(buf, v[0]), v[1])
}

package shader

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-5

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestUniformSizes(t *testing.T) {
	if RenderVertexUniformSize != 16 || PostprocessFragmentUniformSize != 544 {
		t.Fatalf("block sizes = %d, %d; want 16, 544", RenderVertexUniformSize, PostprocessFragmentUniformSize)
	}
	if got := len(NewRenderVertexUniform(320, 180).Bytes()); got != RenderVertexUniformSize {
		t.Errorf("vertex block = %d bytes, want %d", got, RenderVertexUniformSize)
	}
	u, _ := NewPostprocessUniform(mgl32.Vec2{1, 1}, mgl32.Vec2{1, 1}, 0, false, nil)
	if got := len(u.Bytes()); got != PostprocessFragmentUniformSize {
		t.Errorf("fragment block = %d bytes, want %d", got, PostprocessFragmentUniformSize)
	}
}

func TestPostprocessUniformLayout(t *testing.T) {
	u, _ := NewPostprocessUniform(
		mgl32.Vec2{1600, 900},
		mgl32.Vec2{320, 180},
		1.5,
		true,
		[]Light{{Position: mgl32.Vec2{10, 20}, Radius: 30}, {Position: mgl32.Vec2{40, 50}, Radius: 60}},
	)
	b := u.Bytes()

	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b[off:])) }
	i := func(off int) int32 { return int32(binary.LittleEndian.Uint32(b[off:])) }

	tests := []struct {
		name string
		got  float32
		want float32
	}{
		{"render_size.x", f(0), 1600},
		{"render_size.y", f(4), 900},
		{"texture_size.x", f(8), 320},
		{"texture_size.y", f(12), 180},
		{"time", f(16), 1.5},
		{"is_dark", float32(i(20)), 1},
		{"spotlight_count", float32(i(24)), 2},
		{"light0.x", f(32), 10},
		{"light0.radius", f(40), 30},
		{"light1.y", f(52), 50},
		{"light1.radius", f(56), 60},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestNewPostprocessUniformTruncatesLights(t *testing.T) {
	lights := make([]Light, MaxLights+5)
	for i := range lights {
		lights[i].Radius = float32(i + 1)
	}
	u, dropped := NewPostprocessUniform(mgl32.Vec2{1, 1}, mgl32.Vec2{1, 1}, 0, true, lights)
	if dropped != 5 || u.SpotlightCount != MaxLights {
		t.Errorf("dropped=%d count=%d", dropped, u.SpotlightCount)
	}
	if got := u.Lights(); len(got) != MaxLights || got[MaxLights-1].Radius != MaxLights {
		t.Errorf("kept lights are not the first %d", MaxLights)
	}
}

func TestFrameTime(t *testing.T) {
	if got := FrameTime(90, 60); got != 1.5 {
		t.Errorf("FrameTime(90, 60) = %v", got)
	}
	if got := FrameTime(5, 0); got != 0 {
		t.Errorf("FrameTime with zero rate = %v", got)
	}
}

func TestClipPosition(t *testing.T) {
	logical := mgl32.Vec2{320, 180}
	tests := []struct {
		pos, want mgl32.Vec2
	}{
		{mgl32.Vec2{0, 0}, mgl32.Vec2{-1, 1}},
		{mgl32.Vec2{320, 180}, mgl32.Vec2{1, -1}},
		{mgl32.Vec2{160, 90}, mgl32.Vec2{0, 0}},
	}
	for _, tt := range tests {
		if got := ClipPosition(tt.pos, logical); !got.ApproxEqualThreshold(tt.want, eps) {
			t.Errorf("ClipPosition(%v) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}

func TestSceneFragment(t *testing.T) {
	atlas := solidImage(4, 4, color.NRGBA{R: 0, G: 255, B: 0, A: 255})

	solid := mgl32.Vec4{1, 0, 1, 0.5}
	if got := SceneFragment(solid, mgl32.Vec2{0.5, 0.5}, atlas); got != solid {
		t.Errorf("solid fragment = %v, want %v", got, solid)
	}

	textured := SceneFragment(mgl32.Vec4{1, 0, 1, 0}, mgl32.Vec2{0.5, 0.5}, atlas)
	if textured != (mgl32.Vec4{0, 1, 0, 1}) {
		t.Errorf("textured fragment = %v, want atlas green", textured)
	}
}

func TestTubeWarpCenterInvariant(t *testing.T) {
	c := mgl32.Vec2{0.5, 0.5}
	if got := TubeWarp(c, CenterOffset); got != c {
		t.Errorf("TubeWarp(center) = %v", got)
	}
	if got := TubeWarp(c, RedOffset); !got.ApproxEqualThreshold(mgl32.Vec2{0.502, 0.5}, eps) {
		t.Errorf("TubeWarp(center, red) = %v", got)
	}
}

func TestTubeWarpBendsCorners(t *testing.T) {
	got := TubeWarp(mgl32.Vec2{0, 0}, CenterOffset)
	if got[0] >= 0 || got[1] >= 0 {
		t.Errorf("corner warp = %v, want outside the unit square", got)
	}
}

func TestSampleNearestRepeat(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{B: 255, A: 255})

	if got := SampleNearestRepeat(img, mgl32.Vec2{1.25, 0}); got[0] != 1 {
		t.Errorf("wrapped sample = %v, want red", got)
	}
	if got := SampleNearestRepeat(img, mgl32.Vec2{-0.25, 0}); got[2] != 1 {
		t.Errorf("negative wrapped sample = %v, want blue", got)
	}
}

func TestFuzzSample(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	if got := FuzzSample(img, mgl32.Vec2{0.25, 0.5}); math.Abs(float64(got[0])) > eps {
		t.Errorf("texel center = %v, want black", got)
	}
	if got := FuzzSample(img, mgl32.Vec2{0.5, 0.5}); math.Abs(float64(got[0]-0.5)) > eps {
		t.Errorf("texel boundary = %v, want mid grey", got)
	}

	fuzz := FuzzSample(img, mgl32.Vec2{0.3, 0.5})[0]
	linear := SampleLinear(img, mgl32.Vec2{0.3, 0.5})[0]
	if !(fuzz > 0 && fuzz < linear) {
		t.Errorf("fuzz %v should lie between nearest 0 and linear %v", fuzz, linear)
	}
}

func TestDarknessMinimumRule(t *testing.T) {
	a := Light{Position: mgl32.Vec2{10, 10}, Radius: 20}
	b := Light{Position: mgl32.Vec2{30, 10}, Radius: 15}

	points := []mgl32.Vec2{{10, 10}, {20, 10}, {28, 12}, {50, 50}, {0, 0}}
	for _, p := range points {
		both := Darkness(p, []Light{a, b})
		only := min(Darkness(p, []Light{a}), Darkness(p, []Light{b}))
		if both > only+eps {
			t.Errorf("Darkness(%v) = %v, darker than best single light %v", p, both, only)
		}
	}

	if got := Darkness(a.Position, []Light{a}); got != 0 {
		t.Errorf("darkness at the light = %v", got)
	}
	if got := Darkness(mgl32.Vec2{100, 100}, []Light{a}); math.Abs(float64(got-MaxDarkness)) > eps {
		t.Errorf("darkness far away = %v, want %v", got, MaxDarkness)
	}
	if got := Darkness(mgl32.Vec2{}, nil); got != 0 {
		t.Errorf("darkness without lights = %v", got)
	}
}

func TestDarknessSkipsZeroRadius(t *testing.T) {
	at := mgl32.Vec2{8, 8}
	zero := Light{Position: at, Radius: 0}
	lit := Light{Position: mgl32.Vec2{12, 8}, Radius: 16}

	tests := []struct {
		name   string
		lights []Light
		want   float32
	}{
		{"only zero radius", []Light{zero}, MaxDarkness},
		{"negative radius", []Light{{Position: at, Radius: -4}}, MaxDarkness},
		{"zero radius next to a light", []Light{zero, lit}, Darkness(at, []Light{lit})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Darkness(at, tt.lights)
			if math.IsNaN(float64(got)) || math.Abs(float64(got-tt.want)) > eps {
				t.Errorf("Darkness = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPostprocessOutsideTubeIsBlack(t *testing.T) {
	white := solidImage(8, 8, color.NRGBA{255, 255, 255, 255})
	u, _ := NewPostprocessUniform(mgl32.Vec2{100, 100}, mgl32.Vec2{8, 8}, 0, false, nil)
	layers := Layers{Player: white, HUD: white, Static: white}

	for _, pos := range []mgl32.Vec2{{0.5, 0.5}, {99.5, 0.5}, {0.5, 99.5}, {99.5, 99.5}} {
		if got := Postprocess(pos, &u, layers, Options{HUD: true}); got != (mgl32.Vec4{0, 0, 0, 1}) {
			t.Errorf("Postprocess(%v) = %v, want opaque black", pos, got)
		}
	}
}

func TestPostprocessNoiseWeights(t *testing.T) {
	player := solidImage(16, 16, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	static := solidImage(16, 16, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	u, _ := NewPostprocessUniform(mgl32.Vec2{64, 64}, mgl32.Vec2{16, 16}, 0, false, nil)

	pos := mgl32.Vec2{32.5, 20.5}
	got := Postprocess(pos, &u, Layers{Player: player, Static: static}, Options{})

	c := mgl32.Vec3{200.0 / 255, 100.0 / 255, 50.0 / 255}
	random := mgl32.Vec3{10.0 / 255, 20.0 / 255, 30.0 / 255}
	scan := float32(math.Sin(float64(20.5 / 1.5)))
	for i := 0; i < 3; i++ {
		want := (c[i]*(1-0.04)+random[i]*0.04)*(1-0.015) + scan*0.015
		if math.Abs(float64(got[i]-want)) > eps {
			t.Errorf("channel %d = %v, want %v", i, got[i], want)
		}
	}
	if got[3] != 1 {
		t.Errorf("alpha = %v", got[3])
	}
}

func TestPostprocessHUDOverPlayer(t *testing.T) {
	player := solidImage(16, 16, color.NRGBA{A: 255})
	hud := solidImage(16, 16, color.NRGBA{R: 255, A: 255})
	clear := solidImage(16, 16, color.NRGBA{})
	static := solidImage(16, 16, color.NRGBA{A: 255})
	u, _ := NewPostprocessUniform(mgl32.Vec2{16, 16}, mgl32.Vec2{16, 16}, 0, false, nil)
	pos := mgl32.Vec2{8.5, 8.5}

	opaque := Postprocess(pos, &u, Layers{Player: player, HUD: hud, Static: static}, Options{HUD: true})
	transparent := Postprocess(pos, &u, Layers{Player: player, HUD: clear, Static: static}, Options{HUD: true})
	disabled := Postprocess(pos, &u, Layers{Player: player, HUD: hud, Static: static}, Options{})

	if opaque[0] < 0.9 {
		t.Errorf("opaque HUD red = %v", opaque[0])
	}
	if !transparent.ApproxEqualThreshold(disabled, eps) {
		t.Errorf("transparent HUD %v differs from no HUD %v", transparent, disabled)
	}
}

func TestPostprocessLighting(t *testing.T) {
	white := solidImage(32, 32, color.NRGBA{255, 255, 255, 255})
	black := solidImage(32, 32, color.NRGBA{A: 255})
	lights := []Light{{Position: mgl32.Vec2{16, 16}, Radius: 4}}
	layers := Layers{Player: white, Static: black}
	opts := Options{Lighting: true}

	dark, _ := NewPostprocessUniform(mgl32.Vec2{32, 32}, mgl32.Vec2{32, 32}, 0, true, lights)
	lit, _ := NewPostprocessUniform(mgl32.Vec2{32, 32}, mgl32.Vec2{32, 32}, 0, false, lights)

	near := mgl32.Vec2{16.5, 16.5}
	far := mgl32.Vec2{24.5, 16.5}
	if a, b := Postprocess(near, &dark, layers, opts)[1], Postprocess(far, &dark, layers, opts)[1]; a <= b {
		t.Errorf("pixel near the light (%v) is not brighter than far (%v)", a, b)
	}
	if a, b := Postprocess(far, &lit, layers, opts)[1], Postprocess(far, &dark, layers, opts)[1]; a <= b {
		t.Errorf("is_dark=0 (%v) should be brighter than is_dark=1 (%v)", a, b)
	}

	off := Postprocess(far, &dark, layers, Options{})
	if !off.ApproxEqualThreshold(Postprocess(far, &lit, layers, opts), eps) {
		t.Errorf("disabled lighting stage still darkens")
	}
}

func TestProgramDefines(t *testing.T) {
	src := PostprocessProgram(Options{HUD: true, Lighting: true}).FragmentSource
	if !strings.HasPrefix(src, "#version 410 core\n#define ENABLE_HUD\n#define ENABLE_LIGHTING\n") {
		t.Errorf("defines not placed after #version:\n%s", src[:80])
	}
	plain := PostprocessProgram(Options{}).FragmentSource
	if strings.Contains(plain, "#define") {
		t.Errorf("unexpected defines without stages")
	}
}

func TestProgramCheck(t *testing.T) {
	p := PostprocessProgram(Options{HUD: true})
	ok := Linked{
		BlockSizes: map[string]int{"PostprocessFragmentUniform": PostprocessFragmentUniformSize},
		Samplers:   map[string]bool{"player_texture": true, "hud_texture": true, "static_texture": true},
	}
	if err := p.Check(ok); err != nil {
		t.Fatalf("Check: %v", err)
	}

	tests := []struct {
		name   string
		linked Linked
	}{
		{"wrong size", Linked{
			BlockSizes: map[string]int{"PostprocessFragmentUniform": 512},
			Samplers:   ok.Samplers,
		}},
		{"missing block", Linked{Samplers: ok.Samplers}},
		{"missing sampler", Linked{
			BlockSizes: ok.BlockSizes,
			Samplers:   map[string]bool{"player_texture": true},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := p.Check(tt.linked); !errors.Is(err, ErrBindingMismatch) {
				t.Errorf("Check = %v, want ErrBindingMismatch", err)
			}
		})
	}
}

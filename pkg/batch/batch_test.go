package batch

import (
	"errors"
	"image"
	"strings"
	"testing"

	"crtpipe/pkg/atlas"
)

func testAtlas(t *testing.T) *atlas.Atlas {
	t.Helper()
	a, err := atlas.New(image.NewNRGBA(image.Rect(0, 0, 128, 64)), map[string]atlas.Rect{
		"player.png": {X: 0, Y: 0, W: 64, H: 32},
		"heart.png":  {X: 64, Y: 32, W: 32, H: 32},
	})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func newBuilder(t *testing.T, maxQuads int, extra ...*atlas.Atlas) *Builder {
	t.Helper()
	b, err := NewBuilder(maxQuads, append([]*atlas.Atlas{testAtlas(t)}, extra...)...)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{"#ff8000", Color{255, 128, 0, 255}, false},
		{"#80ff8000", Color{255, 128, 0, 128}, false},
		{"000000", Color{0, 0, 0, 255}, false},
		{"#fff", Color{}, true},
		{"#gg0000", Color{}, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if err == nil {
			back, _ := ParseColor(got.String())
			if back != got {
				t.Errorf("String round trip %q -> %v", got.String(), back)
			}
		}
	}
}

// cross is the signed area of a triangle after mapping y-down logical
// coordinates into y-up clip space; positive means counter-clockwise.
func cross(a, b, c Vertex) float32 {
	ax, ay := a.Position[0], -a.Position[1]
	bx, by := b.Position[0], -b.Position[1]
	cx, cy := c.Position[0], -c.Position[1]
	return (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
}

func TestQuadWindingIsCounterClockwise(t *testing.T) {
	q := Quad{Dest: Rect{X: 10, Y: 20, W: 30, H: 40}, Paint: SolidPaint{Color: White}}
	v := q.Vertices()
	for tri := 0; tri < 2; tri++ {
		i := QuadIndices[tri*3 : tri*3+3]
		if area := cross(v[i[0]], v[i[1]], v[i[2]]); area <= 0 {
			t.Errorf("triangle %d area = %v, want counter-clockwise", tri, area)
		}
	}
}

func TestQuadAlphaEncoding(t *testing.T) {
	solid := Quad{Paint: SolidPaint{Color: Color{R: 255}}}.Vertices()
	for _, v := range solid {
		if v.Color[3] <= 0 {
			t.Fatalf("solid quad alpha = %v, want > 0", v.Color[3])
		}
	}

	textured := Quad{Paint: TexturePaint{Tint: White}}.Vertices()
	for _, v := range textured {
		if v.Color[3] != 0 {
			t.Fatalf("textured quad alpha = %v, want 0", v.Color[3])
		}
	}
}

func TestBuildSpriteUVs(t *testing.T) {
	b := newBuilder(t, 0)
	batch, err := b.Build([]Command{
		{Dest: Rect{W: 64, H: 32}, Source: Sprite{Key: "player.png"}, Tint: White},
		{Dest: Rect{W: 16, H: 16}, Source: Sprite{Key: "heart.png", Area: &atlas.Rect{X: 16, Y: 0, W: 16, H: 16}, Reversed: true}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Groups) != 1 || batch.Quads() != 2 {
		t.Fatalf("groups=%d quads=%d", len(batch.Groups), batch.Quads())
	}

	v := batch.Groups[0].Vertices
	if v[0].TexCoords != [2]float32{0, 0} || v[3].TexCoords != [2]float32{0.5, 0.5} {
		t.Errorf("player uv = %v .. %v", v[0].TexCoords, v[3].TexCoords)
	}
	// heart frame spans x 80..96 and y 32..48, reversed swaps left and right
	if v[4].TexCoords != [2]float32{0.75, 0.5} || v[7].TexCoords != [2]float32{0.625, 0.75} {
		t.Errorf("reversed frame uv = %v .. %v", v[4].TexCoords, v[7].TexCoords)
	}
	for _, vert := range v {
		if vert.Color[3] != 0 {
			t.Errorf("textured vertex alpha = %v", vert.Color[3])
		}
	}
}

func TestBuildIndices(t *testing.T) {
	b := newBuilder(t, 0)
	batch, err := b.Build([]Command{
		{Dest: Rect{W: 1, H: 1}, Source: Fill{}, Tint: White},
		{Dest: Rect{W: 1, H: 1}, Source: Fill{}, Tint: White},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []uint32{0, 1, 2, 2, 1, 3, 4, 5, 6, 6, 5, 7}
	got := batch.Groups[0].Indices
	if len(got) != len(want) {
		t.Fatalf("indices = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("indices = %v, want %v", got, want)
		}
	}
}

func TestBuildGroupsByFirstUse(t *testing.T) {
	b := newBuilder(t, 0, testAtlas(t))

	batch, err := b.Build([]Command{
		{Source: Fill{}, Tint: Black},
		{Source: Region{Rect: atlas.Rect{W: 8, H: 8}, Texture: 1}},
		{Source: Fill{}, Tint: White},
		{Source: Sprite{Key: "player.png"}},
		{Source: Region{Rect: atlas.Rect{W: 8, H: 8}, Texture: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(batch.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(batch.Groups))
	}
	tests := []struct {
		texture TextureID
		quads   int
		solid   []bool
	}{
		{0, 2, []bool{true, false}},
		{1, 3, []bool{false, true, false}},
	}
	for i, tt := range tests {
		g := batch.Groups[i]
		if g.Texture != tt.texture || g.Quads() != tt.quads {
			t.Errorf("group %d = texture %d with %d quads, want %d with %d", i, g.Texture, g.Quads(), tt.texture, tt.quads)
			continue
		}
		for q, solid := range tt.solid {
			if got := g.Vertices[q*4].Color[3] > 0; got != solid {
				t.Errorf("group %d quad %d solid = %v, want %v", i, q, got, solid)
			}
		}
	}
}

func TestBuildForcesFillAlpha(t *testing.T) {
	b := newBuilder(t, 0)
	batch, err := b.Build([]Command{{Source: Fill{}, Tint: Color{R: 10}}})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range batch.Groups[0].Vertices {
		if v.Color[3] != 1.0/255 {
			t.Errorf("fill alpha = %v, want 1/255", v.Color[3])
		}
	}
}

func TestBuildMissingKey(t *testing.T) {
	b := newBuilder(t, 0)
	_, err := b.Build([]Command{
		{Source: Sprite{Key: "player.png"}},
		{Source: Sprite{Key: "ghost.png"}},
	})
	if !errors.Is(err, atlas.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "draw command 1") {
		t.Errorf("error does not name the command index: %v", err)
	}
}

func TestBuildUnknownTexture(t *testing.T) {
	b := newBuilder(t, 0)
	_, err := b.Build([]Command{{Source: Region{Texture: 3}}})
	if !errors.Is(err, ErrUnknownTexture) {
		t.Fatalf("err = %v, want ErrUnknownTexture", err)
	}
}

func TestBuildDropsOverflow(t *testing.T) {
	b := newBuilder(t, 2)
	cmds := make([]Command, 5)
	for i := range cmds {
		cmds[i] = Command{Source: Fill{}, Tint: White}
	}
	batch, err := b.Build(cmds)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Quads() != 2 || batch.Dropped != 3 {
		t.Errorf("quads=%d dropped=%d, want 2 and 3", batch.Quads(), batch.Dropped)
	}
}

func TestNewBuilderDefaults(t *testing.T) {
	if _, err := NewBuilder(0); err == nil {
		t.Error("expected error without textures")
	}
	b := newBuilder(t, -1)
	if b.MaxQuads() != DefaultMaxQuads {
		t.Errorf("MaxQuads = %d", b.MaxQuads())
	}
}

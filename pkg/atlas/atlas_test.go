package atlas

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestAtlas(t *testing.T, w, h int, index map[string]Rect) *Atlas {
	t.Helper()
	a, err := New(image.NewNRGBA(image.Rect(0, 0, w, h)), index)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestParseIndex(t *testing.T) {
	input := `0,0,16,16,player.png

16,0,32,8,hud/heart.png
  48,8,4,4,../shared/dot.png
`
	index, err := ParseIndex(strings.NewReader(input), "assets/sprites")
	if err != nil {
		t.Fatalf("ParseIndex: %v", err)
	}

	want := map[string]Rect{
		"assets/sprites/player.png":    {0, 0, 16, 16},
		"assets/sprites/hud/heart.png": {16, 0, 32, 8},
		"assets/shared/dot.png":        {48, 8, 4, 4},
	}
	if len(index) != len(want) {
		t.Fatalf("got %d entries, want %d: %v", len(index), len(want), index)
	}
	for k, r := range want {
		if index[k] != r {
			t.Errorf("index[%q] = %v, want %v", k, index[k], r)
		}
	}
}

func TestParseIndexErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too few fields", "0,0,16,player.png\n"},
		{"not a number", "0,x,16,16,player.png\n"},
		{"empty path", "0,0,16,16,\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseIndex(strings.NewReader(tt.input), "."); err == nil {
				t.Errorf("expected error for %q", tt.input)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	a := newTestAtlas(t, 64, 64, map[string]Rect{
		"assets/player.png": {8, 8, 16, 16},
	})

	r, err := a.Lookup("assets/levels/../player.png")
	if err != nil {
		t.Fatalf("Lookup with unnormalized key: %v", err)
	}
	if r != (Rect{8, 8, 16, 16}) {
		t.Errorf("Lookup = %v", r)
	}

	_, err = a.Lookup("assets/enemy.png")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing key error = %v, want ErrNotFound", err)
	}
}

func TestUV(t *testing.T) {
	a := newTestAtlas(t, 128, 64, nil)
	uv := a.UV(Rect{32, 16, 64, 32})
	want := UVRect{Left: 0.25, Top: 0.25, Right: 0.75, Bottom: 0.75}
	if uv != want {
		t.Errorf("UV = %+v, want %+v", uv, want)
	}
}

func TestNewRejectsOutOfBounds(t *testing.T) {
	_, err := New(image.NewNRGBA(image.Rect(0, 0, 16, 16)), map[string]Rect{
		"big.png": {8, 8, 16, 16},
	})
	if err == nil {
		t.Fatal("expected out-of-bounds error")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	img.SetNRGBA(3, 1, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	imagePath := filepath.Join(dir, "textures.png")
	if err := os.WriteFile(imagePath, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	indexPath := filepath.Join(dir, "textures_index.txt")
	if err := os.WriteFile(indexPath, []byte("2,0,2,2,red.png\n"), 0644); err != nil {
		t.Fatal(err)
	}

	a, err := Load(imagePath, indexPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.Width() != 4 || a.Height() != 2 {
		t.Errorf("size = %dx%d", a.Width(), a.Height())
	}
	r, err := a.Lookup(filepath.ToSlash(filepath.Join(dir, "red.png")))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got := a.Image().NRGBAAt(r.Right()-1, r.Bottom()-1); got != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("pixel = %v", got)
	}
}

func TestWriteIndexRoundTrip(t *testing.T) {
	a := newTestAtlas(t, 32, 32, map[string]Rect{
		"assets/b.png": {16, 0, 8, 8},
		"assets/a.png": {0, 0, 16, 16},
	})

	var buf bytes.Buffer
	if err := WriteIndex(&buf, a, "assets"); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "0,0,16,16,a.png\n16,0,8,8,b.png\n"; got != want {
		t.Errorf("WriteIndex = %q, want %q", got, want)
	}

	index, err := ParseIndex(&buf, "assets")
	if err != nil {
		t.Fatal(err)
	}
	if index["assets/b.png"] != (Rect{16, 0, 8, 8}) {
		t.Errorf("round trip lost entry: %v", index)
	}
}

func TestSpriteSheetFrame(t *testing.T) {
	a := newTestAtlas(t, 64, 64, map[string]Rect{
		"walk.png": {16, 0, 48, 32},
	})
	sheet, err := NewSpriteSheet(a, "walk.png", 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	if sheet.Columns != 3 || sheet.Rows() != 2 {
		t.Fatalf("grid = %dx%d", sheet.Columns, sheet.Rows())
	}

	tests := []struct {
		index, layer int
		reverse      bool
		want         Rect
	}{
		{0, 0, false, Rect{16, 0, 16, 16}},
		{2, 0, false, Rect{48, 0, 16, 16}},
		{3, 0, false, Rect{16, 16, 16, 16}},
		{1, 1, false, Rect{32, 16, 16, 16}},
		{0, 0, true, Rect{48, 0, 16, 16}},
	}
	for _, tt := range tests {
		sheet.ReverseColumns = tt.reverse
		if got := sheet.Frame(tt.index, tt.layer); got != tt.want {
			t.Errorf("Frame(%d,%d,rev=%v) = %v, want %v", tt.index, tt.layer, tt.reverse, got, tt.want)
		}
	}

	if _, err := NewSpriteSheet(a, "walk.png", 64, 16); err == nil {
		t.Error("expected error for oversize frame")
	}
}

func TestFontGlyph(t *testing.T) {
	a := newTestAtlas(t, 128, 72, map[string]Rect{
		"font.png": {0, 8, 128, 64},
	})
	font, err := NewFont(a, "font.png")
	if err != nil {
		t.Fatal(err)
	}
	if font.CharWidth() != 8 || font.CharHeight() != 8 {
		t.Fatalf("cell = %dx%d", font.CharWidth(), font.CharHeight())
	}

	tests := []struct {
		c    rune
		want Rect
	}{
		{0, Rect{0, 8, 8, 8}},
		{'A', Rect{8, 40, 8, 8}},
		{'~', Rect{112, 64, 8, 8}},
		{127, Rect{120, 64, 8, 8}},
		{'é', Rect{120, 64, 8, 8}},
		{-1, Rect{0, 8, 8, 8}},
	}
	for _, tt := range tests {
		if got := font.Glyph(tt.c); got != tt.want {
			t.Errorf("Glyph(%q) = %+v, want %+v", tt.c, got, tt.want)
		}
	}

	if _, err := NewFont(a, "missing.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing font sprite error = %v", err)
	}
}

// Package atlas loads a packed texture atlas and maps sprite keys to the
// pixel rectangles they occupy inside it.
package atlas

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sort"

	// Extra atlas formats besides PNG.
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	_ "image/png"

	"crtpipe/internal/util"
)

// ErrNotFound is returned when a sprite key is absent from the index
var ErrNotFound = errors.New("sprite not found in atlas")

// Rect is an integer pixel rectangle inside the atlas image
type Rect struct {
	X, Y, W, H int
}

// Right returns the exclusive right edge
func (r Rect) Right() int { return r.X + r.W }

// Bottom returns the exclusive bottom edge
func (r Rect) Bottom() int { return r.Y + r.H }

// Sub returns src, given relative to r, as an absolute atlas rectangle
func (r Rect) Sub(src Rect) Rect {
	return Rect{X: r.X + src.X, Y: r.Y + src.Y, W: src.W, H: src.H}
}

// Image returns the rectangle as an image.Rectangle
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.Right(), r.Bottom())
}

// UVRect is a rectangle normalized to [0,1] against the atlas size
type UVRect struct {
	Left, Top, Right, Bottom float32
}

// Atlas is an immutable packed image plus its sprite index
type Atlas struct {
	image *image.NRGBA
	index map[string]Rect
}

// New wraps an already decoded image and index. Every indexed rectangle must
// lie inside the image.
func New(img *image.NRGBA, index map[string]Rect) (*Atlas, error) {
	bounds := img.Bounds()
	for key, r := range index {
		if r.W < 0 || r.H < 0 || !r.Image().In(bounds) {
			return nil, fmt.Errorf("atlas entry %q %v outside image %v", key, r, bounds)
		}
	}

	normalized := make(map[string]Rect, len(index))
	for key, r := range index {
		normalized[util.NormalizePath(key)] = r
	}

	return &Atlas{image: img, index: normalized}, nil
}

// Load reads the atlas image and its index file
func Load(imagePath, indexPath string) (*Atlas, error) {
	img, err := LoadImage(imagePath)
	if err != nil {
		return nil, err
	}

	index, err := LoadIndex(indexPath)
	if err != nil {
		return nil, err
	}

	return New(img, index)
}

// LoadImage decodes an image file into NRGBA
func LoadImage(path string) (*image.NRGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open atlas image: %w", err)
	}
	defer file.Close()

	src, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("unable to decode atlas image %s: %w", path, err)
	}

	return ToNRGBA(src), nil
}

// ToNRGBA converts any image to a zero-origin NRGBA
func ToNRGBA(src image.Image) *image.NRGBA {
	if img, ok := src.(*image.NRGBA); ok && img.Rect.Min == (image.Point{}) {
		return img
	}

	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// Lookup returns the rectangle for a sprite key
func (a *Atlas) Lookup(key string) (Rect, error) {
	r, ok := a.index[util.NormalizePath(key)]
	if !ok {
		return Rect{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return r, nil
}

// UV normalizes a pixel rectangle against the full atlas dimensions
func (a *Atlas) UV(r Rect) UVRect {
	w := float32(a.Width())
	h := float32(a.Height())
	return UVRect{
		Left:   float32(r.X) / w,
		Top:    float32(r.Y) / h,
		Right:  float32(r.Right()) / w,
		Bottom: float32(r.Bottom()) / h,
	}
}

// Image returns the packed atlas image
func (a *Atlas) Image() *image.NRGBA { return a.image }

// Width is the atlas width in pixels
func (a *Atlas) Width() int { return a.image.Bounds().Dx() }

// Height is the atlas height in pixels
func (a *Atlas) Height() int { return a.image.Bounds().Dy() }

// Len is the number of indexed sprites
func (a *Atlas) Len() int { return len(a.index) }

// Keys returns all sprite keys in sorted order
func (a *Atlas) Keys() []string {
	keys := make([]string, 0, len(a.index))
	for k := range a.index {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

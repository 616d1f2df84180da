package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"crtpipe/internal/util"
	"crtpipe/pkg/atlas"
)

// Sprite names inside the generated atlas
const (
	playerSprite = "player.png"
	treeSprite   = "tree.png"
	rockSprite   = "rock.png"
	groundSprite = "ground.png"
	heartSprite  = "heart.png"
	fontSprite   = "font.png"
)

// Frame sizes of the generated sheets
const (
	playerFrame = 16
	treeFrame   = 32
	rockFrame   = 16
	groundTile  = 16
	heartSize   = 8
)

// sheetInfo describes one generated sprite sheet
type sheetInfo struct {
	name    string
	frameW  int
	frameH  int
	columns int
	rows    int
	draw    func(img *image.NRGBA, frame image.Rectangle, index int, rng *rand.Rand)
}

var sheets = []sheetInfo{
	{playerSprite, playerFrame, playerFrame, 4, 2, drawPlayerFrame},
	{treeSprite, treeFrame, treeFrame, 4, 1, drawTreeFrame},
	{rockSprite, rockFrame, rockFrame, 4, 1, drawRockFrame},
	{groundSprite, groundTile, groundTile, 4, 1, drawGroundFrame},
	{heartSprite, heartSize, heartSize, 2, 1, drawHeartFrame},
	{fontSprite, atlas.GlyphSize, atlas.GlyphSize, 16, (atlas.MaxGlyph + 1) / 16, drawGlyphFrame},
}

// generateAtlas packs every sheet into one image, stacked vertically. Keys
// are placed under base the way an index file next to the image would
// name them.
func generateAtlas(base string, seed int64) (*atlas.Atlas, error) {
	width, height := 0, 0
	for _, s := range sheets {
		width = max(width, s.frameW*s.columns)
		height += s.frameH * s.rows
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)

	rng := rand.New(rand.NewSource(seed))
	index := make(map[string]atlas.Rect, len(sheets))
	y := 0
	for _, s := range sheets {
		r := atlas.Rect{X: 0, Y: y, W: s.frameW * s.columns, H: s.frameH * s.rows}
		for i := 0; i < s.columns*s.rows; i++ {
			col, row := i%s.columns, i/s.columns
			frame := image.Rect(col*s.frameW, y+row*s.frameH, (col+1)*s.frameW, y+(row+1)*s.frameH)
			s.draw(img, frame, i, rng)
		}
		index[path.Join(base, s.name)] = r
		y += r.H
	}

	return atlas.New(img, index)
}

// writeAtlas stores the atlas image and its index so atlas.Load can read
// them back
func writeAtlas(a *atlas.Atlas, imagePath, indexPath string) error {
	for _, p := range []string{imagePath, indexPath} {
		if dir := filepath.Dir(p); dir != "." {
			if err := util.CreateDirIfNotExist(dir); err != nil {
				return err
			}
		}
	}

	img, err := os.Create(imagePath)
	if err != nil {
		return fmt.Errorf("failed to create atlas image: %w", err)
	}
	defer img.Close()
	if err := png.Encode(img, a.Image()); err != nil {
		return fmt.Errorf("failed to encode atlas image: %w", err)
	}

	idx, err := os.Create(indexPath)
	if err != nil {
		return fmt.Errorf("failed to create atlas index: %w", err)
	}
	defer idx.Close()
	return atlas.WriteIndex(idx, a, path.Dir(filepath.ToSlash(indexPath)))
}

func fillRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// drawPlayerFrame draws a walking figure; row 0 walks, row 1 idles
func drawPlayerFrame(img *image.NRGBA, f image.Rectangle, index int, _ *rand.Rand) {
	skin := color.NRGBA{230, 190, 150, 255}
	coat := color.NRGBA{60, 70, 140, 255}
	boots := color.NRGBA{40, 30, 20, 255}

	cx := f.Min.X + f.Dx()/2
	fillRect(img, image.Rect(cx-2, f.Min.Y+1, cx+2, f.Min.Y+5), skin)
	fillRect(img, image.Rect(cx-3, f.Min.Y+5, cx+3, f.Min.Y+11), coat)
	// eye marks the facing direction
	img.SetNRGBA(cx+1, f.Min.Y+2, color.NRGBA{A: 255})

	stride := 0
	if index < 4 {
		stride = []int{0, 2, 0, -2}[index%4]
	}
	drawLine(img, cx-1, f.Min.Y+11, cx-1-stride, f.Max.Y-2, boots)
	drawLine(img, cx+1, f.Min.Y+11, cx+1+stride, f.Max.Y-2, boots)
	drawLine(img, cx-3, f.Min.Y+6, cx-4, f.Min.Y+9+index%2, coat)
	drawLine(img, cx+2, f.Min.Y+6, cx+3, f.Min.Y+9-index%2, coat)
}

// drawTreeFrame draws the trunk and a noisy round crown. Later frames shift
// the crown to sway in the wind.
func drawTreeFrame(img *image.NRGBA, f image.Rectangle, index int, rng *rand.Rand) {
	trunkColor := color.NRGBA{139, 69, 19, 255}
	leafColor := color.NRGBA{34, 139, 34, 255}

	w, h := f.Dx(), f.Dy()
	trunkWidth := w / 6
	fillRect(img, image.Rect(f.Min.X+w/2-trunkWidth/2, f.Min.Y+h/2, f.Min.X+w/2+trunkWidth/2, f.Max.Y), trunkColor)

	radius := w/2 - 2
	sway := []int{0, 1, 0, -1}[index%4]
	cx, cy := f.Min.X+w/2+sway, f.Min.Y+h/4+2
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d := dx*dx + dy*dy
			if d > radius*radius {
				continue
			}
			if rng.Float32() > 0.9 && float32(d) > float32(radius*radius)*0.7 {
				continue
			}
			p := image.Pt(cx+dx, cy+dy)
			if p.In(f) {
				img.SetNRGBA(p.X, p.Y, leafColor)
			}
		}
	}
}

// drawRockFrame draws a lumpy gray ellipse
func drawRockFrame(img *image.NRGBA, f image.Rectangle, index int, rng *rand.Rand) {
	base := uint8(100 + index*15)
	rx := f.Dx()/2 - 1 - index%2
	ry := f.Dy()/3 + index%2
	cx, cy := f.Min.X+f.Dx()/2, f.Max.Y-ry-1

	for y := -ry; y <= ry; y++ {
		for x := -rx; x <= rx; x++ {
			if x*x*ry*ry+y*y*rx*rx > rx*rx*ry*ry {
				continue
			}
			shade := base + uint8(rng.Intn(20))
			if y < 0 {
				shade += 20
			}
			img.SetNRGBA(cx+x, cy+y, color.NRGBA{shade, shade, shade - 10, 255})
		}
	}
}

// drawGroundFrame draws a grass topped soil tile
func drawGroundFrame(img *image.NRGBA, f image.Rectangle, index int, rng *rand.Rand) {
	fillRect(img, f, color.NRGBA{90, 60, 30, 255})
	fillRect(img, image.Rect(f.Min.X, f.Min.Y, f.Max.X, f.Min.Y+3+index%2), color.NRGBA{50, 150, 40, 255})
	for i := 0; i < 6; i++ {
		x := f.Min.X + rng.Intn(f.Dx())
		y := f.Min.Y + 5 + rng.Intn(f.Dy()-5)
		img.SetNRGBA(x, y, color.NRGBA{120, 85, 50, 255})
	}
}

// drawHeartFrame draws a full heart in frame 0 and an empty one in frame 1
func drawHeartFrame(img *image.NRGBA, f image.Rectangle, index int, _ *rand.Rand) {
	shape := []string{
		".##..##.",
		"########",
		"########",
		"########",
		".######.",
		"..####..",
		"...##...",
		"........",
	}
	fill := color.NRGBA{220, 20, 60, 255}
	if index == 1 {
		fill = color.NRGBA{70, 70, 70, 255}
	}
	for y, line := range shape {
		for x, ch := range line {
			if ch == '#' {
				img.SetNRGBA(f.Min.X+x, f.Min.Y+y, fill)
			}
		}
	}
}

// drawLine draws a Bresenham line clipped to the image
func drawLine(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx, sy := 1, 1
	if x0 >= x1 {
		sx = -1
	}
	if y0 >= y1 {
		sy = -1
	}
	err := dx - dy

	for {
		if image.Pt(x0, y0).In(img.Rect) {
			img.SetNRGBA(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// drawGlyphFrame renders character code index from the 7x13 basic face and
// squeezes it into its 8x8 cell
func drawGlyphFrame(img *image.NRGBA, f image.Rectangle, index int, _ *rand.Rand) {
	face := basicfont.Face7x13
	if index < ' ' || index > '~' {
		return
	}

	glyph := image.NewNRGBA(image.Rect(0, 0, face.Advance, face.Height))
	d := font.Drawer{
		Dst:  glyph,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(string(rune(index)))

	// skip the blank rows above capitals and below descenders
	src := image.Rect(0, 2, face.Advance, face.Height-1)
	draw.NearestNeighbor.Scale(img, f, glyph, src, draw.Over, nil)
}

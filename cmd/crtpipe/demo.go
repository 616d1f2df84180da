package main

import (
	"path"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"crtpipe/internal/logger"
	"crtpipe/internal/shadermath"
	"crtpipe/pkg/atlas"
	"crtpipe/pkg/batch"
	"crtpipe/pkg/engine"
)

const (
	walkSpeed   = 40.0 // logical pixels per second
	walkFPS     = 8.0
	lightRadius = 48
	maxHealth   = 3
)

type prop struct {
	sheet *atlas.SpriteSheet
	frame int
	x     float32
}

// demoScene walks a figure through a small forest. D toggles darkness,
// H drops a heart, the arrow keys steer and space stands still.
type demoScene struct {
	log    *logger.Logger
	noise  *shadermath.NoiseGenerator
	width  float32
	height float32

	player *atlas.SpriteSheet
	ground *atlas.SpriteSheet
	hearts *atlas.SpriteSheet
	font   *atlas.Font
	props  []prop
	sky    batch.Color

	x       float32
	dir     float32
	idle    bool
	clock   float64
	flicker float32
	health  int
	dark    bool
}

func newDemoScene(a *atlas.Atlas, base string, width, height int, log *logger.Logger, seed int64) (*demoScene, error) {
	sheet := func(name string, fw, fh int) (*atlas.SpriteSheet, error) {
		return atlas.NewSpriteSheet(a, path.Join(base, name), fw, fh)
	}

	d := &demoScene{
		log:    log.With("demo"),
		noise:  shadermath.NewNoiseGenerator(seed),
		width:  float32(width),
		height: float32(height),
		sky:    batch.Color{R: 20, G: 24, B: 48, A: 255},
		x:      float32(width) / 4,
		dir:    1,
		health: maxHealth,
	}

	var err error
	if d.player, err = sheet(playerSprite, playerFrame, playerFrame); err != nil {
		return nil, err
	}
	if d.ground, err = sheet(groundSprite, groundTile, groundTile); err != nil {
		return nil, err
	}
	if d.hearts, err = sheet(heartSprite, heartSize, heartSize); err != nil {
		return nil, err
	}
	if d.font, err = atlas.NewFont(a, path.Join(base, fontSprite)); err != nil {
		return nil, err
	}
	trees, err := sheet(treeSprite, treeFrame, treeFrame)
	if err != nil {
		return nil, err
	}
	rocks, err := sheet(rockSprite, rockFrame, rockFrame)
	if err != nil {
		return nil, err
	}

	for x := float32(8); x < d.width; x += 56 {
		d.props = append(d.props, prop{sheet: trees, x: x})
		d.props = append(d.props, prop{sheet: rocks, frame: int(x) % 4, x: x + 30})
	}
	return d, nil
}

func (d *demoScene) groundY() float32 {
	return d.height - groundTile
}

// HandleInput reacts to the keyboard
func (d *demoScene) HandleInput(in *engine.InputHandler) {
	if in.IsKeyPressed(glfw.KeyD) {
		d.dark = !d.dark
		d.log.Infof("darkness %v", d.dark)
	}
	if in.IsKeyPressed(glfw.KeyH) {
		d.health = (d.health + maxHealth) % (maxHealth + 1)
	}

	if in.IsKeyDown(glfw.KeyLeft) {
		d.dir = -1
	}
	if in.IsKeyDown(glfw.KeyRight) {
		d.dir = 1
	}
	d.idle = in.IsKeyDown(glfw.KeySpace)
}

// Update advances the walk cycle. Without input the figure paces back and
// forth on its own.
func (d *demoScene) Update(dt float64) {
	d.clock += dt
	if !d.idle {
		d.x += d.dir * walkSpeed * float32(dt)
	}

	limit := d.width - playerFrame
	if d.x < 0 {
		d.x, d.dir = 0, 1
	} else if d.x > limit {
		d.x, d.dir = limit, -1
	}

	d.flicker = float32(d.noise.RandomFloat())*6 - 3
}

// Draw fills the frame
func (d *demoScene) Draw(f *engine.Frame) {
	f.SetDark(d.dark)

	f.FillRect(engine.LayerPlayer, batch.Rect{W: d.width, H: d.groundY()}, d.sky)

	for x := float32(0); x < d.width; x += groundTile {
		tile := d.ground.Frame(int(x/groundTile)%d.ground.Columns, 0)
		f.DrawRegion(engine.LayerPlayer, tile, batch.Rect{X: x, Y: d.groundY(), W: groundTile, H: groundTile}, false)
	}

	for i, p := range d.props {
		frame := p.frame
		if p.sheet.FrameW == treeFrame {
			frame = (int(d.clock*2) + i) % p.sheet.Columns
		}
		fw, fh := float32(p.sheet.FrameW), float32(p.sheet.FrameH)
		f.DrawRegion(engine.LayerPlayer, p.sheet.Frame(frame, 0),
			batch.Rect{X: p.x, Y: d.groundY() - fh, W: fw, H: fh}, false)
	}

	// row 0 walks, row 1 idles
	layer := 0
	if d.idle {
		layer = 1
	}
	frame := int(d.clock*walkFPS) % d.player.Columns
	py := d.groundY() - playerFrame
	f.DrawRegion(engine.LayerPlayer, d.player.Frame(frame, layer),
		batch.Rect{X: d.x, Y: py, W: playerFrame, H: playerFrame}, d.dir < 0)

	f.AddLight(mgl32.Vec2{d.x + playerFrame/2, py + playerFrame/2}, lightRadius+d.flicker)

	for i := 0; i < maxHealth; i++ {
		frame := 0
		if i >= d.health {
			frame = 1
		}
		f.DrawRegion(engine.LayerHUD, d.hearts.Frame(frame, 0),
			batch.Rect{X: 4 + float32(i)*(heartSize+2), Y: 4, W: heartSize, H: heartSize}, false)
	}
	f.FillRect(engine.LayerHUD, batch.Rect{X: 4, Y: 4 + heartSize + 2, W: 3 * (heartSize + 2), H: 1},
		batch.Color{R: 255, G: 255, B: 255, A: 96})

	f.DrawString(engine.LayerHUD, d.font, 4+maxHealth*(heartSize+2), 4, "HP")
	if d.dark {
		label := "LIGHTS OUT"
		w := float32(len(label) * d.font.CharWidth())
		f.DrawString(engine.LayerHUD, d.font, d.width-w-4, 4, label)
	}
}

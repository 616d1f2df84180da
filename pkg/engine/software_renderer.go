package engine

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"runtime"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"crtpipe/internal/logger"
	"crtpipe/internal/shadermath"
	"crtpipe/pkg/atlas"
	"crtpipe/pkg/batch"
	"crtpipe/pkg/config"
	"crtpipe/pkg/shader"
)

// SoftwareRenderer runs both passes on the CPU with the same math as the
// GLSL programs. The postprocess pass is split across worker goroutines by
// rows.
type SoftwareRenderer struct {
	log      *logger.Logger
	opts     shader.Options
	clear    batch.Color
	workers  int
	textures []*image.NRGBA
	noise    *shadermath.NoiseGenerator

	width    int
	height   int
	logicalW int
	logicalH int

	player *image.NRGBA
	hud    *image.NRGBA
	static *image.NRGBA
	output *image.NRGBA

	// Thread safety
	mutex sync.Mutex
}

// NewSoftwareRenderer creates a CPU renderer sized from the configuration
func NewSoftwareRenderer(cfg *config.Config, textures []*atlas.Atlas, log *logger.Logger) (*SoftwareRenderer, error) {
	if len(textures) == 0 {
		return nil, fmt.Errorf("software renderer needs at least one texture")
	}

	clear, err := batch.ParseColor(cfg.Render.ClearColor)
	if err != nil {
		return nil, fmt.Errorf("render.clear_color: %w", err)
	}
	clear.A = 255

	workers := cfg.Postprocess.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	images := make([]*image.NRGBA, len(textures))
	for i, t := range textures {
		images[i] = t.Image()
	}

	r := &SoftwareRenderer{
		log:      log.With("software"),
		opts:     shader.Options{HUD: cfg.Postprocess.HUDLayer, Lighting: cfg.Postprocess.Lighting},
		clear:    clear,
		workers:  workers,
		textures: images,
		noise:    shadermath.NewNoiseGenerator(cfg.Postprocess.StaticSeed),
	}

	if err := r.Resize(cfg.Window.Width, cfg.Window.Height); err != nil {
		return nil, err
	}
	if err := r.SetLogicalSize(cfg.Render.LogicalWidth, cfg.Render.LogicalHeight); err != nil {
		return nil, err
	}

	r.log.Infof("software renderer ready: output %dx%d, logical %dx%d, %d workers",
		r.width, r.height, r.logicalW, r.logicalH, r.workers)
	return r, nil
}

// Resize changes the output size
func (r *SoftwareRenderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid output size %dx%d", width, height)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.width = width
	r.height = height
	r.output = image.NewNRGBA(image.Rect(0, 0, width, height))
	return nil
}

// SetLogicalSize recreates the layer targets and the static texture
func (r *SoftwareRenderer) SetLogicalSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid logical size %dx%d", width, height)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.logicalW = width
	r.logicalH = height
	r.player = image.NewNRGBA(image.Rect(0, 0, width, height))
	r.hud = image.NewNRGBA(image.Rect(0, 0, width, height))
	r.static = r.noise.StaticImage(width, height)
	return nil
}

// Render draws both layers and composites them into the output
func (r *SoftwareRenderer) Render(frame *FrameData) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.scenePass(r.player, frame.Player, r.clear)
	r.scenePass(r.hud, frame.HUD, batch.Transparent)

	u := postprocessUniform(r.log, frame, r.width, r.height, r.logicalW, r.logicalH)
	return r.postprocessPass(&u)
}

func (r *SoftwareRenderer) scenePass(target *image.NRGBA, b *batch.Batch, clear batch.Color) {
	rast := newRasterizer(target, r.logicalW, r.logicalH)
	rast.clear(clear)
	rast.drawBatch(b, r.textures)
}

func (r *SoftwareRenderer) postprocessPass(u *shader.PostprocessFragmentUniform) error {
	layers := shader.Layers{Player: r.player, HUD: r.hud, Static: r.static}
	out := r.output

	var g errgroup.Group
	g.SetLimit(r.workers)
	for y := 0; y < r.height; y++ {
		g.Go(func() error {
			row := out.Pix[y*out.Stride : y*out.Stride+r.width*4]
			for x := 0; x < r.width; x++ {
				pos := mgl32.Vec2{float32(x) + 0.5, float32(y) + 0.5}
				c := shader.Postprocess(pos, u, layers, r.opts)
				px := row[x*4 : x*4+4 : x*4+4]
				px[0] = unorm8(c[0])
				px[1] = unorm8(c[1])
				px[2] = unorm8(c[2])
				px[3] = unorm8(c[3])
			}
			return nil
		})
	}
	return g.Wait()
}

// Snapshot returns a copy of the last output frame
func (r *SoftwareRenderer) Snapshot() *image.NRGBA {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return cloneImage(r.output)
}

// LayerImage returns a copy of a layer target after the last scene pass
func (r *SoftwareRenderer) LayerImage(layer Layer) *image.NRGBA {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if layer == LayerHUD {
		return cloneImage(r.hud)
	}
	return cloneImage(r.player)
}

// WritePNG encodes the last output frame
func (r *SoftwareRenderer) WritePNG(w io.Writer) error {
	if err := png.Encode(w, r.Snapshot()); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// Close releases the targets
func (r *SoftwareRenderer) Close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.player, r.hud, r.static, r.output = nil, nil, nil, nil
}

func cloneImage(src *image.NRGBA) *image.NRGBA {
	if src == nil {
		return nil
	}
	dst := image.NewNRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}

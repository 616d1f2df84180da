package engine

import (
	"fmt"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"

	"crtpipe/internal/logger"
	"crtpipe/internal/shadermath"
	"crtpipe/pkg/atlas"
	"crtpipe/pkg/batch"
	"crtpipe/pkg/config"
	"crtpipe/pkg/shader"
)

// screenQuad is two counter-clockwise triangles covering clip space
var screenQuad = []float32{
	-1, 1,
	-1, -1,
	1, 1,
	1, 1,
	-1, -1,
	1, -1,
}

// OpenGLRenderer handles rendering the frame using OpenGL
type OpenGLRenderer struct {
	ctx  *GLContext
	log  *logger.Logger
	opts shader.Options

	clear    batch.Color
	noise    *shadermath.NoiseGenerator
	width    int
	height   int
	logicalW int
	logicalH int

	// Pipelines
	scene *glProgram
	post  *glProgram

	// Buffers
	vertexUniforms   *uniformRing
	fragmentUniforms *uniformRing
	sceneVAO         uint32
	sceneVBO         uint32
	sceneEBO         uint32
	quadVAO          uint32
	quadVBO          uint32

	// Textures and targets
	atlasTextures []uint32
	staticTexture uint32
	player        *renderTarget
	hud           *renderTarget

	// Thread safety
	mutex sync.Mutex
}

// NewOpenGLRenderer creates the pipelines and resources on ctx
func NewOpenGLRenderer(ctx *GLContext, cfg *config.Config, textures []*atlas.Atlas, log *logger.Logger) (*OpenGLRenderer, error) {
	clear, err := batch.ParseColor(cfg.Render.ClearColor)
	if err != nil {
		return nil, fmt.Errorf("render.clear_color: %w", err)
	}
	clear.A = 255

	width, height := ctx.FramebufferSize()
	r := &OpenGLRenderer{
		ctx:    ctx,
		log:    log.With("opengl"),
		opts:   shader.Options{HUD: cfg.Postprocess.HUDLayer, Lighting: cfg.Postprocess.Lighting},
		clear:  clear,
		noise:  shadermath.NewNoiseGenerator(cfg.Postprocess.StaticSeed),
		width:  width,
		height: height,
	}

	if err := r.initPipelines(); err != nil {
		r.Close()
		return nil, err
	}
	r.initBuffers()

	for _, t := range textures {
		r.atlasTextures = append(r.atlasTextures, uploadTexture(t.Image(), gl.NEAREST, gl.CLAMP_TO_EDGE))
	}

	if err := r.SetLogicalSize(cfg.Render.LogicalWidth, cfg.Render.LogicalHeight); err != nil {
		r.Close()
		return nil, err
	}
	if err := checkGLError("renderer setup"); err != nil {
		r.Close()
		return nil, err
	}

	r.log.Infof("OpenGL renderer ready: output %dx%d, logical %dx%d, hud=%v lighting=%v",
		r.width, r.height, r.logicalW, r.logicalH, r.opts.HUD, r.opts.Lighting)
	return r, nil
}

func (r *OpenGLRenderer) initPipelines() error {
	var err error
	if r.scene, err = linkProgram(shader.SceneProgram()); err != nil {
		return err
	}
	if r.post, err = linkProgram(shader.PostprocessProgram(r.opts)); err != nil {
		return err
	}
	return nil
}

func (r *OpenGLRenderer) initBuffers() {
	r.vertexUniforms = newUniformRing(shader.RenderVertexUniformSize)
	r.fragmentUniforms = newUniformRing(shader.PostprocessFragmentUniformSize)

	// Scene geometry, refilled every frame
	gl.GenVertexArrays(1, &r.sceneVAO)
	gl.GenBuffers(1, &r.sceneVBO)
	gl.GenBuffers(1, &r.sceneEBO)
	gl.BindVertexArray(r.sceneVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.sceneVBO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.sceneEBO)

	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, batch.VertexStride, uintptr(batch.PositionOffset))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, batch.VertexStride, uintptr(batch.TexCoordsOffset))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 4, gl.FLOAT, false, batch.VertexStride, uintptr(batch.ColorOffset))
	gl.EnableVertexAttribArray(2)

	// Full-screen quad for the postprocess pass
	gl.GenVertexArrays(1, &r.quadVAO)
	gl.GenBuffers(1, &r.quadVBO)
	gl.BindVertexArray(r.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(screenQuad)*4, gl.Ptr(screenQuad), gl.STATIC_DRAW)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 2*4, 0)
	gl.EnableVertexAttribArray(0)

	gl.BindVertexArray(0)
}

// Resize changes the output size
func (r *OpenGLRenderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid output size %dx%d", width, height)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.width = width
	r.height = height
	return nil
}

// SetLogicalSize recreates the layer targets and the static texture
func (r *OpenGLRenderer) SetLogicalSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid logical size %dx%d", width, height)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.player.delete()
	r.hud.delete()
	r.player, r.hud = nil, nil
	if r.staticTexture != 0 {
		gl.DeleteTextures(1, &r.staticTexture)
		r.staticTexture = 0
	}

	var err error
	if r.player, err = newRenderTarget(width, height); err != nil {
		return err
	}
	if r.hud, err = newRenderTarget(width, height); err != nil {
		return err
	}
	r.staticTexture = uploadTexture(r.noise.StaticImage(width, height), gl.NEAREST, gl.REPEAT)

	r.logicalW = width
	r.logicalH = height
	return checkGLError("resize layer targets")
}

// Render runs both scene passes and the postprocess pass into the default
// framebuffer. The caller swaps buffers.
func (r *OpenGLRenderer) Render(frame *FrameData) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.player == nil || r.hud == nil {
		return fmt.Errorf("layer targets missing: %w", ErrDeviceLost)
	}

	vu := shader.NewRenderVertexUniform(r.logicalW, r.logicalH)
	if err := r.vertexUniforms.upload(vu.Bytes(), shader.VertexBlockBinding); err != nil {
		return err
	}

	r.scenePass(r.player, frame.Player, r.clear)
	r.scenePass(r.hud, frame.HUD, batch.Transparent)

	fu := postprocessUniform(r.log, frame, r.width, r.height, r.logicalW, r.logicalH)
	if err := r.fragmentUniforms.upload(fu.Bytes(), shader.FragmentBlockBinding); err != nil {
		return err
	}
	r.postprocessPass()

	return checkGLError(fmt.Sprintf("frame %d", frame.Number))
}

func (r *OpenGLRenderer) scenePass(target *renderTarget, b *batch.Batch, clear batch.Color) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, target.fbo)
	gl.Viewport(0, 0, int32(target.width), int32(target.height))
	c := clear.Vec4()
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.Clear(gl.COLOR_BUFFER_BIT)

	gl.Enable(gl.BLEND)
	gl.BlendFuncSeparate(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.FrontFace(gl.CCW)

	gl.UseProgram(r.scene.id)
	gl.BindVertexArray(r.sceneVAO)

	if b != nil {
		for i := range b.Groups {
			g := &b.Groups[i]
			if len(g.Indices) == 0 || int(g.Texture) >= len(r.atlasTextures) {
				continue
			}

			gl.ActiveTexture(gl.TEXTURE0 + uint32(shader.AtlasUnit))
			gl.BindTexture(gl.TEXTURE_2D, r.atlasTextures[g.Texture])

			gl.BindBuffer(gl.ARRAY_BUFFER, r.sceneVBO)
			gl.BufferData(gl.ARRAY_BUFFER, len(g.Vertices)*int(batch.VertexStride), gl.Ptr(g.Vertices), gl.STREAM_DRAW)
			gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.sceneEBO)
			gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(g.Indices)*4, gl.Ptr(g.Indices), gl.STREAM_DRAW)

			gl.DrawElementsWithOffset(gl.TRIANGLES, int32(len(g.Indices)), gl.UNSIGNED_INT, 0)
		}
	}

	gl.BindVertexArray(0)
	gl.Disable(gl.CULL_FACE)
	gl.Disable(gl.BLEND)
}

func (r *OpenGLRenderer) postprocessPass() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(r.width), int32(r.height))
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	gl.UseProgram(r.post.id)

	gl.ActiveTexture(gl.TEXTURE0 + uint32(shader.PlayerUnit))
	gl.BindTexture(gl.TEXTURE_2D, r.player.texture)
	gl.ActiveTexture(gl.TEXTURE0 + uint32(shader.HUDUnit))
	gl.BindTexture(gl.TEXTURE_2D, r.hud.texture)
	gl.ActiveTexture(gl.TEXTURE0 + uint32(shader.StaticUnit))
	gl.BindTexture(gl.TEXTURE_2D, r.staticTexture)

	gl.BindVertexArray(r.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(screenQuad)/2))
	gl.BindVertexArray(0)
}

// Close releases pipelines first, then buffers and textures. The context
// itself belongs to the caller.
func (r *OpenGLRenderer) Close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.scene.delete()
	r.post.delete()
	r.scene, r.post = nil, nil

	if r.vertexUniforms != nil {
		r.vertexUniforms.delete()
		r.vertexUniforms = nil
	}
	if r.fragmentUniforms != nil {
		r.fragmentUniforms.delete()
		r.fragmentUniforms = nil
	}
	gl.DeleteBuffers(1, &r.sceneVBO)
	gl.DeleteBuffers(1, &r.sceneEBO)
	gl.DeleteVertexArrays(1, &r.sceneVAO)
	gl.DeleteBuffers(1, &r.quadVBO)
	gl.DeleteVertexArrays(1, &r.quadVAO)

	if len(r.atlasTextures) > 0 {
		gl.DeleteTextures(int32(len(r.atlasTextures)), &r.atlasTextures[0])
		r.atlasTextures = nil
	}
	if r.staticTexture != 0 {
		gl.DeleteTextures(1, &r.staticTexture)
		r.staticTexture = 0
	}
	r.player.delete()
	r.hud.delete()
	r.player, r.hud = nil, nil
}

package engine

import (
	"fmt"
	"image"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"crtpipe/pkg/shader"
)

// glProgram is a linked program whose bindings matched its descriptor
type glProgram struct {
	id   uint32
	desc shader.Program
}

// linkProgram compiles, links and checks a program, then wires its blocks
// and samplers to their binding points and texture units
func linkProgram(desc shader.Program) (*glProgram, error) {
	id, err := createShaderProgram(desc.VertexSource, desc.FragmentSource)
	if err != nil {
		return nil, fmt.Errorf("%s program: %w", desc.Name, err)
	}

	linked := shader.Linked{
		BlockSizes: make(map[string]int),
		Samplers:   make(map[string]bool),
	}
	blockIndex := make(map[string]uint32)
	for _, b := range desc.Blocks {
		index := gl.GetUniformBlockIndex(id, gl.Str(b.Name+"\x00"))
		if index == gl.INVALID_INDEX {
			continue
		}
		var size int32
		gl.GetActiveUniformBlockiv(id, index, gl.UNIFORM_BLOCK_DATA_SIZE, &size)
		linked.BlockSizes[b.Name] = int(size)
		blockIndex[b.Name] = index
	}
	samplerLoc := make(map[string]int32)
	for _, s := range desc.Samplers {
		loc := gl.GetUniformLocation(id, gl.Str(s.Name+"\x00"))
		if loc >= 0 {
			linked.Samplers[s.Name] = true
			samplerLoc[s.Name] = loc
		}
	}

	if err := desc.Check(linked); err != nil {
		gl.DeleteProgram(id)
		return nil, err
	}

	gl.UseProgram(id)
	for _, b := range desc.Blocks {
		if index, ok := blockIndex[b.Name]; ok {
			gl.UniformBlockBinding(id, index, b.Binding)
		}
	}
	for _, s := range desc.Samplers {
		if loc, ok := samplerLoc[s.Name]; ok {
			gl.Uniform1i(loc, s.Unit)
		}
	}
	gl.UseProgram(0)

	return &glProgram{id: id, desc: desc}, nil
}

func (p *glProgram) delete() {
	if p != nil && p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
}

// createShaderProgram compiles and links a shader program from source
func createShaderProgram(vertexSource, fragmentSource string) (uint32, error) {
	// Vertex shader
	vertexShader, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}

	// Fragment shader
	fragmentShader, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))

		gl.DeleteProgram(program)
		gl.DeleteShader(vertexShader)
		gl.DeleteShader(fragmentShader)

		return 0, fmt.Errorf("shader program linking failed: %v", log)
	}

	// Shaders are no longer needed once linked
	gl.DetachShader(program, vertexShader)
	gl.DetachShader(program, fragmentShader)
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	return program, nil
}

// compileShader compiles a shader from source
func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))

		gl.DeleteShader(shader)

		return 0, fmt.Errorf("shader compilation failed: %v", log)
	}

	return shader, nil
}

// uniformRing alternates between buffers so the block read by the previous
// frame's draw is never overwritten while it may still be in flight
type uniformRing struct {
	buffers [2]uint32
	size    int
	next    int
}

func newUniformRing(size int) *uniformRing {
	r := &uniformRing{size: size}
	gl.GenBuffers(int32(len(r.buffers)), &r.buffers[0])
	for _, b := range r.buffers {
		gl.BindBuffer(gl.UNIFORM_BUFFER, b)
		gl.BufferData(gl.UNIFORM_BUFFER, size, nil, gl.DYNAMIC_DRAW)
	}
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	return r
}

// upload writes data into the next buffer and binds it to binding
func (r *uniformRing) upload(data []byte, binding uint32) error {
	if len(data) != r.size {
		return fmt.Errorf("%w: uniform upload of %d bytes into %d byte block", shader.ErrBindingMismatch, len(data), r.size)
	}
	buf := r.buffers[r.next]
	r.next = (r.next + 1) % len(r.buffers)

	gl.BindBuffer(gl.UNIFORM_BUFFER, buf)
	gl.BufferSubData(gl.UNIFORM_BUFFER, 0, len(data), gl.Ptr(data))
	gl.BindBufferBase(gl.UNIFORM_BUFFER, binding, buf)
	return nil
}

func (r *uniformRing) delete() {
	gl.DeleteBuffers(int32(len(r.buffers)), &r.buffers[0])
	r.buffers = [2]uint32{}
}

// renderTarget is an offscreen color target of one layer
type renderTarget struct {
	fbo     uint32
	texture uint32
	width   int
	height  int
}

// newRenderTarget creates an RGBA8 target sampled with linear filtering and
// clamp-to-edge
func newRenderTarget(width, height int) (*renderTarget, error) {
	t := &renderTarget{width: width, height: height}

	gl.GenTextures(1, &t.texture)
	gl.BindTexture(gl.TEXTURE_2D, t.texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	setSampling(gl.LINEAR, gl.CLAMP_TO_EDGE)

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.texture, 0)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		t.delete()
		return nil, fmt.Errorf("framebuffer %dx%d incomplete (0x%04x): %w", width, height, status, ErrDeviceLost)
	}

	return t, nil
}

func (t *renderTarget) delete() {
	if t == nil {
		return
	}
	if t.fbo != 0 {
		gl.DeleteFramebuffers(1, &t.fbo)
	}
	if t.texture != 0 {
		gl.DeleteTextures(1, &t.texture)
	}
	t.fbo, t.texture = 0, 0
}

// uploadTexture uploads an image top row first, so t=0 is the image top
func uploadTexture(img *image.NRGBA, filter, wrap int32) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	setSampling(filter, wrap)

	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(img.Stride/4))
	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA8,
		int32(img.Rect.Dx()),
		int32(img.Rect.Dy()),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		gl.Ptr(img.Pix),
	)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)

	return tex
}

func setSampling(filter, wrap int32) {
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)
}

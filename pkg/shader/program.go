// Package shader holds the GLSL programs of the scene and postprocess
// passes, their uniform block layouts, and a CPU reference of each stage.
package shader

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBindingMismatch is returned when a linked program does not match the
// block sizes or samplers its descriptor expects
var ErrBindingMismatch = errors.New("shader binding mismatch")

// Uniform block binding points
const (
	VertexBlockBinding   uint32 = 0
	FragmentBlockBinding uint32 = 1
)

// Texture units
const (
	AtlasUnit  int32 = 0
	PlayerUnit int32 = 0
	HUDUnit    int32 = 1
	StaticUnit int32 = 2
)

// Options selects the optional postprocess stages
type Options struct {
	HUD      bool
	Lighting bool
}

// Defines returns the preprocessor lines for the enabled stages
func (o Options) Defines() string {
	var sb strings.Builder
	if o.HUD {
		sb.WriteString("#define ENABLE_HUD\n")
	}
	if o.Lighting {
		sb.WriteString("#define ENABLE_LIGHTING\n")
	}
	return sb.String()
}

// Block describes a uniform block a program must expose
type Block struct {
	Name    string
	Binding uint32
	Size    int
}

// Sampler describes a sampler uniform and its texture unit
type Sampler struct {
	Name string
	Unit int32
}

// Program is a shader program plus the bindings it must expose once linked
type Program struct {
	Name           string
	VertexSource   string
	FragmentSource string
	Blocks         []Block
	Samplers       []Sampler
}

// Linked is what a backend observed after linking: block sizes by name and
// the set of active samplers
type Linked struct {
	BlockSizes map[string]int
	Samplers   map[string]bool
}

// Check compares a linked program against the descriptor
func (p Program) Check(l Linked) error {
	var problems []string

	for _, b := range p.Blocks {
		size, ok := l.BlockSizes[b.Name]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("block %s missing", b.Name))
		case size != b.Size:
			problems = append(problems, fmt.Sprintf("block %s is %d bytes, want %d", b.Name, size, b.Size))
		}
	}
	for _, s := range p.Samplers {
		if !l.Samplers[s.Name] {
			problems = append(problems, fmt.Sprintf("sampler %s missing", s.Name))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w in %s program: %s", ErrBindingMismatch, p.Name, strings.Join(problems, "; "))
	}
	return nil
}

// SceneProgram is the sprite batch program
func SceneProgram() Program {
	return Program{
		Name:           "scene",
		VertexSource:   sceneVertexSource,
		FragmentSource: sceneFragmentSource,
		Blocks: []Block{
			{Name: "RenderVertexUniform", Binding: VertexBlockBinding, Size: RenderVertexUniformSize},
		},
		Samplers: []Sampler{
			{Name: "atlas_texture", Unit: AtlasUnit},
		},
	}
}

// PostprocessProgram is the full-screen CRT program with the selected stages
// compiled in. Samplers of disabled stages are optimized out by the driver
// and are therefore not required.
func PostprocessProgram(opts Options) Program {
	samplers := []Sampler{
		{Name: "player_texture", Unit: PlayerUnit},
		{Name: "static_texture", Unit: StaticUnit},
	}
	if opts.HUD {
		samplers = append(samplers, Sampler{Name: "hud_texture", Unit: HUDUnit})
	}

	return Program{
		Name:           "postprocess",
		VertexSource:   postprocessVertexSource,
		FragmentSource: withDefines(postprocessFragmentSource, opts.Defines()),
		Blocks: []Block{
			{Name: "PostprocessFragmentUniform", Binding: FragmentBlockBinding, Size: PostprocessFragmentUniformSize},
		},
		Samplers: samplers,
	}
}

// withDefines inserts defines right after the #version line
func withDefines(src, defines string) string {
	if defines == "" {
		return src
	}
	lines := strings.SplitN(strings.TrimLeft(src, "\n"), "\n", 2)
	if len(lines) < 2 {
		return defines + src
	}
	return lines[0] + "\n" + defines + lines[1]
}

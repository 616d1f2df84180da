package batch

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"crtpipe/pkg/atlas"
)

// DefaultMaxQuads is the per-batch quad capacity
const DefaultMaxQuads = 4096

const uvCacheSize = 1024

// ErrUnknownTexture is returned for a command naming an unregistered texture
var ErrUnknownTexture = errors.New("unknown texture binding")

// Source selects what a command draws. It is Fill, Sprite or Region.
type Source interface {
	isSource()
}

// Fill draws the command tint as a solid color
type Fill struct{}

// Sprite draws an atlas sprite by key. Area, when set, is a sub-rectangle
// relative to the sprite, such as one animation frame.
type Sprite struct {
	Key      string
	Area     *atlas.Rect
	Reversed bool
	Texture  TextureID
}

// Region draws an explicit atlas rectangle
type Region struct {
	Rect     atlas.Rect
	Reversed bool
	Texture  TextureID
}

func (Fill) isSource()   {}
func (Sprite) isSource() {}
func (Region) isSource() {}

// Command is one draw request in logical pixels
type Command struct {
	Dest   Rect
	Source Source
	Tint   Color
}

// Group is the geometry drawn with one texture binding
type Group struct {
	Texture  TextureID
	Vertices []Vertex
	Indices  []uint32
}

// Quads is the number of quads in the group
func (g *Group) Quads() int {
	return len(g.Vertices) / 4
}

// Batch is the geometry of one layer for one frame
type Batch struct {
	Groups []Group
	// Dropped counts commands past the quad capacity
	Dropped int
}

// Quads is the total number of quads in the batch
func (b *Batch) Quads() int {
	n := 0
	for i := range b.Groups {
		n += b.Groups[i].Quads()
	}
	return n
}

type uvKey struct {
	texture TextureID
	rect    atlas.Rect
}

// Builder resolves commands against the registered textures. It is not
// safe for concurrent use.
type Builder struct {
	textures []*atlas.Atlas
	maxQuads int
	uvCache  *lru.Cache[uvKey, atlas.UVRect]
}

// NewBuilder creates a builder. textures[0] is the main atlas; a command's
// TextureID indexes this list. maxQuads <= 0 selects DefaultMaxQuads.
func NewBuilder(maxQuads int, textures ...*atlas.Atlas) (*Builder, error) {
	if len(textures) == 0 {
		return nil, fmt.Errorf("batch builder needs at least one texture")
	}
	if maxQuads <= 0 {
		maxQuads = DefaultMaxQuads
	}

	cache, err := lru.New[uvKey, atlas.UVRect](uvCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create uv cache: %w", err)
	}

	return &Builder{
		textures: textures,
		maxQuads: maxQuads,
		uvCache:  cache,
	}, nil
}

// MaxQuads returns the per-batch capacity
func (b *Builder) MaxQuads() int {
	return b.maxQuads
}

// Textures returns the registered textures in binding order
func (b *Builder) Textures() []*atlas.Atlas {
	return b.textures
}

// Resolve turns a command into a quad
func (b *Builder) Resolve(cmd Command) (Quad, error) {
	switch src := cmd.Source.(type) {
	case Fill, nil:
		return Quad{Dest: cmd.Dest, Paint: SolidPaint{Color: cmd.Tint}}, nil

	case Sprite:
		tex, err := b.texture(src.Texture)
		if err != nil {
			return Quad{}, err
		}
		r, err := tex.Lookup(src.Key)
		if err != nil {
			return Quad{}, err
		}
		if src.Area != nil {
			r = r.Sub(*src.Area)
		}
		return b.textured(cmd, src.Texture, r, src.Reversed), nil

	case Region:
		if _, err := b.texture(src.Texture); err != nil {
			return Quad{}, err
		}
		return b.textured(cmd, src.Texture, src.Rect, src.Reversed), nil
	}

	return Quad{}, fmt.Errorf("unsupported source %T", cmd.Source)
}

func (b *Builder) texture(id TextureID) (*atlas.Atlas, error) {
	if id < 0 || int(id) >= len(b.textures) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTexture, id)
	}
	return b.textures[id], nil
}

func (b *Builder) textured(cmd Command, id TextureID, r atlas.Rect, reversed bool) Quad {
	key := uvKey{texture: id, rect: r}
	uv, ok := b.uvCache.Get(key)
	if !ok {
		uv = b.textures[id].UV(r)
		b.uvCache.Add(key, uv)
	}
	if reversed {
		uv.Left, uv.Right = uv.Right, uv.Left
	}

	return Quad{
		Dest:  cmd.Dest,
		Paint: TexturePaint{Texture: id, UV: uv, Tint: cmd.Tint},
	}
}

// Build resolves every command into per-texture groups. Groups appear in
// order of first use; fills join the group of the command before them.
func (b *Builder) Build(cmds []Command) (*Batch, error) {
	out := &Batch{}
	groupOf := make(map[TextureID]int)
	current := -1
	quads := 0

	for i, cmd := range cmds {
		if quads >= b.maxQuads {
			out.Dropped = len(cmds) - i
			break
		}

		quad, err := b.Resolve(cmd)
		if err != nil {
			return nil, fmt.Errorf("draw command %d: %w", i, err)
		}

		if id, ok := quad.Paint.texture(); ok || current < 0 {
			g, seen := groupOf[id]
			if !seen {
				g = len(out.Groups)
				groupOf[id] = g
				out.Groups = append(out.Groups, Group{Texture: id})
			}
			current = g
		}

		group := &out.Groups[current]
		base := uint32(len(group.Vertices))
		vertices := quad.Vertices()
		group.Vertices = append(group.Vertices, vertices[:]...)
		for _, idx := range QuadIndices {
			group.Indices = append(group.Indices, base+idx)
		}
		quads++
	}

	return out, nil
}

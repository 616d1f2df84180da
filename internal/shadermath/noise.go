package shadermath

import (
	"image"
	"math/rand"
	"time"
)

// NoiseGenerator produces the random RGB texels of the static texture
type NoiseGenerator struct {
	rng *rand.Rand
}

// NewNoiseGenerator creates a new noise generator with the given seed.
// A zero seed picks one from the clock.
func NewNoiseGenerator(seed int64) *NoiseGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &NoiseGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// RandomFloat returns a random float in range [0.0, 1.0)
func (ng *NoiseGenerator) RandomFloat() float64 {
	return ng.rng.Float64()
}

// StaticImage fills a width x height image with random opaque texels
func (ng *NoiseGenerator) StaticImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for x := 0; x < width; x++ {
			v := ng.rng.Uint32()
			row[x*4+0] = uint8(v)
			row[x*4+1] = uint8(v >> 8)
			row[x*4+2] = uint8(v >> 16)
			row[x*4+3] = 255
		}
	}
	return img
}

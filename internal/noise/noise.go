package noise

import (
	"math"

	"github.com/aquilax/go-perlin"
)

const (
	alpha   = 2.0
	beta    = 2.0
	octaves = 3
)

// Source is a seeded 2D smooth-noise function with output in [-1,1].
// It is read-only after construction and safe for concurrent use.
type Source struct {
	p *perlin.Perlin
}

func New(seed int64) *Source {
	return &Source{p: perlin.NewPerlin(alpha, beta, octaves, seed)}
}

func (s *Source) Noise2D(x, y float64) float64 {
	v := s.p.Noise2D(x, y)
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}

const (
	TextureSize      = 256
	textureFrequency = 10000.0
)

// Texture is a single-channel tileable dither map.
type Texture struct {
	W, H int
	Pix  []uint8
}

// NewDither samples src at a very high frequency so neighbouring texels are
// decorrelated, then maps the result into [100,250].
func NewDither(src *Source, w, h int) *Texture {
	t := &Texture{W: w, H: h, Pix: make([]uint8, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			nx := float64(x) / float64(w)
			ny := float64(y) / float64(h)
			n := (src.Noise2D(nx*textureFrequency, ny*textureFrequency) + 1) / 2
			t.Pix[y*w+x] = uint8(math.Floor(n*150) + 100)
		}
	}
	return t
}

// At returns the texel at (x,y) in [0,1], wrapping both axes.
func (t *Texture) At(x, y int) float32 {
	x %= t.W
	if x < 0 {
		x += t.W
	}
	y %= t.H
	if y < 0 {
		y += t.H
	}
	return float32(t.Pix[y*t.W+x]) / 255
}

package params

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrInvalidBundle  = errors.New("invalid bundle")
	ErrInvalidProgram = errors.New("invalid program")
)

const (
	MaxBgBlobs = 4
	MaxFgBlobs = 2
)

type RGB struct{ R, G, B float64 }
type Vec2 struct{ X, Y float64 }

// Pattern selects the tiling drawn on the background plane.
type Pattern int

const (
	PatternNone Pattern = iota
	PatternDots
	PatternCheckers
)

func (p Pattern) String() string {
	switch p {
	case PatternNone:
		return "none"
	case PatternDots:
		return "dots"
	case PatternCheckers:
		return "checkers"
	}
	return fmt.Sprintf("pattern(%d)", int(p))
}

// Blob is a screen-space additive glow term.
type Blob struct {
	Pos      Vec2
	Dims     Vec2
	Color    RGB
	Strength float64
}

type Light struct {
	HalfWidth        float64
	HalfHeight       float64
	MatchAspectRatio bool
	Color            RGB
}

type Material struct {
	RefractionIndex  float64
	Diffuseness      float64
	ReflectIntensity float64
	CausticIntensity float64
	Color            RGB
	LightMix         float64
	Contrast         float64
	Brightness       float64
	BgIntensity      float64
	BgSaturation     float64
}

type Scene struct {
	Color            RGB
	Pattern          Pattern
	PatternScale     float64
	PatternIntensity float64
	BgVisible        bool
	RefractBg        bool
	Caustics         bool
}

type BlobFade struct {
	After float64
	Coeff float64
	Max   float64
}

type Shift struct {
	Enabled     bool
	RedOffset   float64
	GreenOffset float64
	BlueOffset  float64
	Distortion  float64
	Speed       float64
}

type Post struct {
	Contrast   float64
	Brightness float64
	ACES       bool
	FilmGrain  float64
	Vignette   float64
	Shift      Shift
}

type Animation struct {
	Speed     float64 // noise-space units per animation second
	TimeScale float64 // frame delta multiplier
	MaxBreak  float64 // ceiling on scroll deceleration
}

// Bundle is every tunable of the renderer. It is treated as a value: any
// change produces a new Bundle which is compiled from scratch.
type Bundle struct {
	Name      string
	Light     Light
	Material  Material
	Scene     Scene
	BgBlobs   []Blob
	FgBlobs   []Blob
	BlobFade  BlobFade
	Post      Post
	Animation Animation

	MaxDPR      float64
	PixelBudget int

	LowPerf bool
	Debug   bool
}

// Clone returns a deep copy.
func (b Bundle) Clone() Bundle {
	out := b
	out.BgBlobs = append([]Blob(nil), b.BgBlobs...)
	out.FgBlobs = append([]Blob(nil), b.FgBlobs...)
	return out
}

// Degraded returns the low-performance variant of b.
func (b Bundle) Degraded() Bundle {
	out := b.Clone()
	out.LowPerf = true
	if out.MaxDPR <= 0 || out.MaxDPR > 0.5 {
		out.MaxDPR = 0.5
	}
	return out
}

type namedFloat struct {
	name string
	v    float64
}

func rgbFields(prefix string, c RGB) []namedFloat {
	return []namedFloat{{prefix + ".r", c.R}, {prefix + ".g", c.G}, {prefix + ".b", c.B}}
}

func blobFields(prefix string, blobs []Blob) []namedFloat {
	var out []namedFloat
	for i, bl := range blobs {
		p := fmt.Sprintf("%s[%d]", prefix, i)
		out = append(out,
			namedFloat{p + ".pos.x", bl.Pos.X}, namedFloat{p + ".pos.y", bl.Pos.Y},
			namedFloat{p + ".dims.x", bl.Dims.X}, namedFloat{p + ".dims.y", bl.Dims.Y},
			namedFloat{p + ".strength", bl.Strength},
		)
		out = append(out, rgbFields(p+".color", bl.Color)...)
	}
	return out
}

func (b Bundle) floats() []namedFloat {
	m := b.Material
	f := []namedFloat{
		{"light.half_width", b.Light.HalfWidth},
		{"light.half_height", b.Light.HalfHeight},
		{"material.refraction_index", m.RefractionIndex},
		{"material.diffuseness", m.Diffuseness},
		{"material.reflect_intensity", m.ReflectIntensity},
		{"material.caustic_intensity", m.CausticIntensity},
		{"material.light_mix", m.LightMix},
		{"material.contrast", m.Contrast},
		{"material.brightness", m.Brightness},
		{"material.bg_intensity", m.BgIntensity},
		{"material.bg_saturation", m.BgSaturation},
		{"scene.pattern_scale", b.Scene.PatternScale},
		{"scene.pattern_intensity", b.Scene.PatternIntensity},
		{"blob_fade.after", b.BlobFade.After},
		{"blob_fade.coeff", b.BlobFade.Coeff},
		{"blob_fade.max", b.BlobFade.Max},
		{"post.contrast", b.Post.Contrast},
		{"post.brightness", b.Post.Brightness},
		{"post.film_grain", b.Post.FilmGrain},
		{"post.vignette", b.Post.Vignette},
		{"post.shift.red_offset", b.Post.Shift.RedOffset},
		{"post.shift.green_offset", b.Post.Shift.GreenOffset},
		{"post.shift.blue_offset", b.Post.Shift.BlueOffset},
		{"post.shift.distortion", b.Post.Shift.Distortion},
		{"post.shift.speed", b.Post.Shift.Speed},
		{"animation.speed", b.Animation.Speed},
		{"animation.time_scale", b.Animation.TimeScale},
		{"animation.max_break", b.Animation.MaxBreak},
		{"max_dpr", b.MaxDPR},
	}
	f = append(f, rgbFields("light.color", b.Light.Color)...)
	f = append(f, rgbFields("material.color", m.Color)...)
	f = append(f, rgbFields("scene.color", b.Scene.Color)...)
	f = append(f, blobFields("bg_blobs", b.BgBlobs)...)
	f = append(f, blobFields("fg_blobs", b.FgBlobs)...)
	return f
}

// Validate rejects bundles carrying non-finite values. Every offending field
// is named in the returned error.
func (b Bundle) Validate() error {
	var bad []string
	for _, f := range b.floats() {
		switch {
		case math.IsNaN(f.v):
			bad = append(bad, f.name+" is NaN")
		case math.IsInf(f.v, 0):
			bad = append(bad, f.name+" is infinite")
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidBundle, strings.Join(bad, "; "))
	}
	return nil
}

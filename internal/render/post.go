package render

import (
	"github.com/chewxy/math32"

	"github.com/coreman2200/lensfield/internal/noise"
	"github.com/coreman2200/lensfield/internal/params"
	"github.com/coreman2200/lensfield/internal/raymarch"
)

// PostContext carries the per-frame values post stages read.
type PostContext struct {
	W, H    int
	Frame   int
	Scroll  float64
	Opacity float64
	Elapsed float64
	Dither  *noise.Texture
}

type PostStage struct {
	Name  string
	Apply func(buf []Color, c *PostContext)
}

// PostPipeline turns the scene target into the output image: Sample reads
// scene into out, then Stages run in order over out.
type PostPipeline struct {
	Sample func(dst, src []Color, c *PostContext)
	Stages []PostStage
}

// BuildPost assembles the stages a program enables, in their fixed order.
// Every stage leaves each channel in [0,1].
func BuildPost(p *params.Program, src *noise.Source) PostPipeline {
	b := p.Bundle
	pp := PostPipeline{Sample: copySample}
	if p.Features.Shift {
		pp.Sample = shiftSample(b.Post.Shift, src)
	}

	pp.Stages = append(pp.Stages, PostStage{"contrast", contrastStage(b.Post.Contrast, b.Post.Brightness)})
	if p.Features.ACES {
		pp.Stages = append(pp.Stages, PostStage{"aces", acesStage})
	}
	if p.Features.Grain {
		pp.Stages = append(pp.Stages, PostStage{"grain", grainStage(b.Post.FilmGrain)})
	}
	if p.Features.FgBlobs {
		pp.Stages = append(pp.Stages, PostStage{"fg_blobs", fgBlobStage(p.FgBlobs)})
	}
	if p.Features.Vignette {
		pp.Stages = append(pp.Stages, PostStage{"vignette", vignetteStage(b.Post.Vignette)})
	}
	pp.Stages = append(pp.Stages,
		PostStage{"opacity", opacityStage},
		PostStage{"scroll_fade", scrollFadeStage},
	)
	return pp
}

func (pp PostPipeline) Run(dst, src []Color, c *PostContext) {
	if pp.Sample != nil {
		pp.Sample(dst, src, c)
	} else {
		copy(dst, src)
	}
	for _, s := range pp.Stages {
		s.Apply(dst, c)
	}
}

func (pp PostPipeline) Names() []string {
	out := make([]string, 0, len(pp.Stages))
	for _, s := range pp.Stages {
		out = append(out, s.Name)
	}
	return out
}

func copySample(dst, src []Color, _ *PostContext) {
	for i := range dst {
		dst[i] = clampColor(src[i])
	}
}

func contrastStage(contrast, brightness float64) func([]Color, *PostContext) {
	k, o := float32(contrast), float32(brightness)
	f := func(x float32) float32 { return clamp01((x-0.5)*k + 0.5 + o) }
	return func(buf []Color, _ *PostContext) {
		for i := range buf {
			buf[i] = Color{f(buf[i].R), f(buf[i].G), f(buf[i].B)}
		}
	}
}

func acesStage(buf []Color, _ *PostContext) {
	for i := range buf {
		buf[i] = Color{acesApprox(buf[i].R), acesApprox(buf[i].G), acesApprox(buf[i].B)}
	}
}

// Approximate ACES filmic curve (Narkowicz 2015), with a softer shoulder.
func acesApprox(x float32) float32 {
	const (
		a = 2.41
		b = 0.03
		c = 2.43
		d = 0.59
		e = 0.14
	)
	return clamp01((x * (a*x + b)) / (x*(c*x+d) + e))
}

var lumaWeights = Color{0.2126, 0.7152, 0.0722}

// grainStage perturbs luma with the dither texture. The texture offset
// moves with the frame counter so the grain crawls.
func grainStage(intensity float64) func([]Color, *PostContext) {
	k := float32(intensity)
	return func(buf []Color, c *PostContext) {
		if c.Dither == nil {
			return
		}
		shift := 1337 * c.Frame
		for y := 0; y < c.H; y++ {
			gy := c.H - 1 - y
			for x := 0; x < c.W; x++ {
				i := y*c.W + x
				px := buf[i]
				luma := px.R*lumaWeights.R + px.G*lumaWeights.G + px.B*lumaWeights.B
				if luma <= 0 {
					continue
				}
				bn := 2*c.Dither.At((shift+x)&255, (shift+gy)&255) - 1
				n := 1 - math32.Sqrt(1-math32.Abs(bn))
				if bn < 0 {
					n = -n
				}
				factor := math32.Max(k*(luma-luma*luma), 0)
				s := (luma + factor*n) / luma
				buf[i] = clampColor(Color{px.R * s, px.G * s, px.B * s})
			}
		}
	}
}

func fgBlobStage(blobs []params.Blob) func([]Color, *PostContext) {
	return func(buf []Color, c *PostContext) {
		for y := 0; y < c.H; y++ {
			for x := 0; x < c.W; x++ {
				l := raymarch.Layer(raymarch.UV(x, y, c.W, c.H), blobs, 1)
				i := y*c.W + x
				buf[i] = clampColor(Color{
					buf[i].R + float32(l[0]),
					buf[i].G + float32(l[1]),
					buf[i].B + float32(l[2]),
				})
			}
		}
	}
}

func vignetteStage(v float64) func([]Color, *PostContext) {
	k := float32(v)
	return func(buf []Color, c *PostContext) {
		// only depends on the column
		row := make([]float32, c.W)
		for x := range row {
			u := float32(raymarch.UV(x, 0, c.W, c.H)[0])
			row[x] = smoothstep32(0.3, 0.99, math32.Abs(u)+1-k)*0.6 + 0.4
		}
		for i := range buf {
			s := row[i%c.W]
			buf[i] = clampColor(Color{buf[i].R * s, buf[i].G * s, buf[i].B * s})
		}
	}
}

func opacityStage(buf []Color, c *PostContext) {
	scale(buf, float32(c.Opacity))
}

// scrollFadeStage dims the image by up to 1.1x once scrolled past 2.
func scrollFadeStage(buf []Color, c *PostContext) {
	s := float32(c.Scroll)
	d := float32(2)
	if s >= 2 {
		d = math32.Min(s, 2.2)
	}
	scale(buf, 2/d)
}

func scale(buf []Color, s float32) {
	for i := range buf {
		buf[i] = clampColor(Color{buf[i].R * s, buf[i].G * s, buf[i].B * s})
	}
}

func clamp01(x float32) float32 {
	if x < 0 || x != x {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func clampColor(c Color) Color {
	return Color{clamp01(c.R), clamp01(c.G), clamp01(c.B)}
}

func smoothstep32(e0, e1, x float32) float32 {
	t := clamp01((x - e0) / (e1 - e0))
	return t * t * (3 - 2*t)
}

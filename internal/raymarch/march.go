// Package raymarch resolves the colour of a camera ray through the lens
// field: sphere tracing, two-surface refraction, caustics and shading.
package raymarch

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/coreman2200/lensfield/internal/params"
	"github.com/coreman2200/lensfield/internal/sdf"
)

const (
	SurfaceEps      = 1e-3
	IgnoreThreshold = 0.018
	BgDist          = 1.8
	CameraZ         = -5.0

	insideBound   = 0.1
	causticBound  = 10.0
	causticInside = 1.0
	insideNudge   = 1e-4
	causticFloor  = 0.05
	specularFloor = 0.01
)

// Input is the per-frame state the tracer needs beyond the program.
type Input struct {
	Field  sdf.Field
	Light  mgl64.Vec3
	Scroll float64
	// Aspect is height/width of the drawing buffer.
	Aspect float64
}

// Tracer shades rays for one frame. It holds no mutable state, so a single
// Tracer may be shared by workers as long as Field is safe for concurrent
// reads.
type Tracer struct {
	prog  *params.Program
	field sdf.Field

	light      mgl64.Vec3
	lightColor mgl64.Vec3
	lightDims  mgl64.Vec2
	aspect     float64

	sceneColor mgl64.Vec3
	matColor   mgl64.Vec3
	bgFade     float64
}

func New(p *params.Program, in Input) *Tracer {
	b := p.Bundle
	return &Tracer{
		prog:       p,
		field:      in.Field,
		light:      in.Light,
		lightColor: rgb(b.Light.Color),
		lightDims:  mgl64.Vec2{b.Light.HalfWidth, b.Light.HalfHeight},
		aspect:     in.Aspect,
		sceneColor: rgb(b.Scene.Color),
		matColor:   rgb(b.Material.Color),
		bgFade:     FadeDivisor(in.Scroll, b.BlobFade),
	}
}

// Counting returns a copy of tr whose field evaluations are tallied by the
// returned counter. The copy must stay on one goroutine.
func (tr *Tracer) Counting() (*Tracer, *sdf.Counter) {
	c := &sdf.Counter{F: tr.field}
	cp := *tr
	cp.field = c
	return &cp, c
}

// UV maps pixel (x,y) of a w*h buffer, row 0 at the top, to centred screen
// coordinates scaled by the longer side.
func UV(x, y, w, h int) mgl64.Vec2 {
	fx := float64(x) + 0.5
	fy := float64(h-y) - 0.5
	m := math.Max(float64(w), float64(h))
	return mgl64.Vec2{(fx - 0.5*float64(w)) / m, (fy - 0.5*float64(h)) / m}
}

// Shade returns the scene colour seen through uv, each channel in [0,1].
func (tr *Tracer) Shade(uv mgl64.Vec2) mgl64.Vec3 {
	return tr.shade(uv, false)
}

func (tr *Tracer) shade(uv mgl64.Vec2, forceMarch bool) mgl64.Vec3 {
	ro := mgl64.Vec3{0, 0, CameraZ}
	rd := mgl64.Vec3{uv[0], uv[1], 1}.Normalize()
	t0 := -ro[2] / rd[2]

	t := t0
	var p mgl64.Vec3
	// Near misses at the lens plane still march so grazing hits do not seam.
	if forceMarch || tr.field.Dist(ro.Add(rd.Mul(t0))) < IgnoreThreshold {
		t, p = tr.march(ro, rd, t0)
	}

	if t >= t0 {
		tPlane := (BgDist - ro[2]) / rd[2]
		pos := ro.Add(rd.Mul(tPlane))
		return tr.background(mgl64.Vec2{pos[0], pos[1]}, tr.prog.Features.BgVisible)
	}
	return tr.shadeSurface(ro, p, rd)
}

// march sphere traces the primary ray until it passes t0 or a step drops
// under SurfaceEps. Step sizes are bounded below by the true distance, so
// the loop ends without an iteration cap.
func (tr *Tracer) march(ro, rd mgl64.Vec3, t0 float64) (float64, mgl64.Vec3) {
	t := math.Abs(tr.field.Dist(ro))
	p := ro.Add(rd.Mul(t))
	for t > SurfaceEps && t < t0 {
		p = ro.Add(rd.Mul(t))
		dt := tr.field.Dist(p)
		if dt < SurfaceEps {
			break
		}
		t += dt
	}
	return t, p
}

// trace is the secondary tracer used inside lenses and toward the light.
// It returns min(t, bound); a result below bound is a hit.
func (tr *Tracer) trace(ro, rd mgl64.Vec3, bound float64) float64 {
	t := math.Abs(tr.field.Dist(ro))
	for t > SurfaceEps && t < bound {
		dt := math.Abs(tr.field.Dist(ro.Add(rd.Mul(t))))
		if dt < SurfaceEps {
			break
		}
		t += dt
	}
	return math.Min(t, bound)
}

// Refract bends incident direction i through a surface with normal n and
// index ratio eta. ok is false on total internal reflection, in which case
// i is returned unchanged.
func Refract(i, n mgl64.Vec3, eta float64) (mgl64.Vec3, bool) {
	d := n.Dot(i)
	k := 1 - eta*eta*(1-d*d)
	if k < 0 {
		return i, false
	}
	return i.Mul(eta).Sub(n.Mul(eta*d + math.Sqrt(k))), true
}

// intersectPlane finds where the line ro+t*rd crosses z. Negative t is
// allowed; ok is false only for lines parallel to the plane.
func intersectPlane(ro, rd mgl64.Vec3, z float64) (mgl64.Vec3, bool) {
	if math.Abs(rd[2]) < 1e-12 {
		return mgl64.Vec3{}, false
	}
	t := (z - ro[2]) / rd[2]
	return ro.Add(rd.Mul(t)), true
}

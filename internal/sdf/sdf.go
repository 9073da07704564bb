// Package sdf holds the distance functions of the lens scene.
package sdf

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BlendRadius is the smooth-min blend radius. It shapes how neighbouring
// lenses merge and is not tunable.
const BlendRadius = 0.5

const normalEps = 1e-4

// Field is anything that can be sphere traced.
type Field interface {
	Dist(p mgl64.Vec3) float64
}

// Lens is a sphere of radius r squashed to half depth along z.
func Lens(p mgl64.Vec3, r float64) float64 {
	rz := r / 2
	k := mgl64.Vec3{p[0] / r, p[1] / r, p[2] / rz}.Len()
	return (k - 1) * math.Min(r, rz)
}

// SMin is a quartic smooth minimum. The result never exceeds min(a,b) and
// equals it once |a-b| >= BlendRadius.
func SMin(a, b float64) float64 {
	const k = BlendRadius
	h := math.Max(k-math.Abs(a-b), 0) / k
	return math.Min(a, b) - h*h*h*k*(1.0/6.0)
}

// LightBox is the distance from p to a box of half extents b. With matchAR
// the box height follows the viewport aspect ratio (height/width).
func LightBox(p, b mgl64.Vec2, matchAR bool, aspect float64) float64 {
	if matchAR {
		b = mgl64.Vec2{b[0], b[0] * aspect}
	}
	d := mgl64.Vec2{math.Abs(p[0]) - b[0], math.Abs(p[1]) - b[1]}
	outside := mgl64.Vec2{math.Max(d[0], 0), math.Max(d[1], 0)}.Len()
	return outside + math.Min(math.Max(d[0], d[1]), 0)
}

// Normal estimates the surface normal at p from the field gradient.
func Normal(f Field, p mgl64.Vec3) mgl64.Vec3 {
	d := f.Dist(p)
	n := mgl64.Vec3{
		d - f.Dist(mgl64.Vec3{p[0] - normalEps, p[1], p[2]}),
		d - f.Dist(mgl64.Vec3{p[0], p[1] - normalEps, p[2]}),
		d - f.Dist(mgl64.Vec3{p[0], p[1], p[2] - normalEps}),
	}
	l := n.Len()
	if l == 0 {
		return mgl64.Vec3{0, 0, -1}
	}
	return n.Mul(1 / l)
}

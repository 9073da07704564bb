package sdf

import "github.com/go-gl/mathgl/mgl64"

const NumLenses = 5

// Scene is the blended field of all lenses, all centred on z=0.
type Scene struct {
	Centers [NumLenses]mgl64.Vec2
	Radii   [NumLenses]float64
}

// Dist folds SMin left to right in index order.
func (s *Scene) Dist(p mgl64.Vec3) float64 {
	d := Lens(s.local(p, 0), s.Radii[0])
	for i := 1; i < NumLenses; i++ {
		d = SMin(d, Lens(s.local(p, i), s.Radii[i]))
	}
	return d
}

func (s *Scene) local(p mgl64.Vec3, i int) mgl64.Vec3 {
	return mgl64.Vec3{p[0] - s.Centers[i][0], p[1] - s.Centers[i][1], p[2]}
}

// Counter wraps a field and counts evaluations. It is not safe for
// concurrent use; give each worker its own.
type Counter struct {
	F Field
	N int
}

func (c *Counter) Dist(p mgl64.Vec3) float64 {
	c.N++
	return c.F.Dist(p)
}

package sdf

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestLensSurface(t *testing.T) {
	assert.InDelta(t, 0, Lens(mgl64.Vec3{1, 0, 0}, 1), 1e-12)
	assert.InDelta(t, 0, Lens(mgl64.Vec3{0, 1, 0}, 1), 1e-12)
	assert.InDelta(t, 0, Lens(mgl64.Vec3{0, 0, 0.5}, 1), 1e-12)
	assert.Less(t, Lens(mgl64.Vec3{}, 1), 0.0)
	assert.Greater(t, Lens(mgl64.Vec3{0, 0, 0.6}, 1), 0.0)
}

func TestSMinBoundAndLocality(t *testing.T) {
	vals := []float64{-3, -1, -0.4, -0.1, 0, 0.05, 0.2, 0.49, 0.5, 1, 2.5, 10}
	for _, a := range vals {
		for _, b := range vals {
			got := SMin(a, b)
			assert.LessOrEqual(t, got, math.Min(a, b), "smin(%v,%v)", a, b)
			if math.Abs(a-b) >= BlendRadius {
				assert.Equal(t, math.Min(a, b), got, "smin(%v,%v)", a, b)
			}
			assert.InDelta(t, got, SMin(b, a), 1e-15)
		}
	}
	// maximum blend where both agree
	assert.InDelta(t, 1-BlendRadius/6, SMin(1, 1), 1e-12)
}

func TestLightBox(t *testing.T) {
	b := mgl64.Vec2{0.5, 0.3}
	assert.InDelta(t, -0.3, LightBox(mgl64.Vec2{}, b, false, 1), 1e-12)
	assert.InDelta(t, 0.5, LightBox(mgl64.Vec2{1, 0}, b, false, 1), 1e-12)
	assert.InDelta(t, 0.5, LightBox(mgl64.Vec2{0, 0.8}, b, false, 1), 1e-12)
	assert.InDelta(t, math.Hypot(0.5, 0.7), LightBox(mgl64.Vec2{1, 1}, b, false, 1), 1e-12)

	// with aspect matching the height becomes 0.5*2 = 1
	assert.InDelta(t, -0.2, LightBox(mgl64.Vec2{0, 0.8}, b, true, 2), 1e-12)
}

func TestSceneFoldOrderInsensitive(t *testing.T) {
	far := mgl64.Vec2{100, 100}
	s := Scene{
		Centers: [NumLenses]mgl64.Vec2{{-0.4, 0}, far, {0.3, 0.1}, far, far},
		Radii:   [NumLenses]float64{0.5, 0.1, 0.6, 0.1, 0.1},
	}
	r := Scene{}
	for i := 0; i < NumLenses; i++ {
		r.Centers[i] = s.Centers[NumLenses-1-i]
		r.Radii[i] = s.Radii[NumLenses-1-i]
	}
	for x := -1.0; x <= 1.0; x += 0.25 {
		for z := -0.6; z <= 0.6; z += 0.3 {
			p := mgl64.Vec3{x, 0.1, z}
			assert.InDelta(t, s.Dist(p), r.Dist(p), 1e-12)
		}
	}
}

func TestNormalOfIsolatedLens(t *testing.T) {
	s := Scene{Radii: [NumLenses]float64{1, 0.1, 0.1, 0.1, 0.1}}
	for i := 1; i < NumLenses; i++ {
		s.Centers[i] = mgl64.Vec2{100, 100}
	}
	n := Normal(&s, mgl64.Vec3{0, 0, -0.5})
	assert.InDelta(t, 0, n.X(), 1e-3)
	assert.InDelta(t, 0, n.Y(), 1e-3)
	assert.InDelta(t, -1, n.Z(), 1e-3)

	n = Normal(&s, mgl64.Vec3{1, 0, 0})
	assert.InDelta(t, 1, n.X(), 1e-3)
}

func TestCounter(t *testing.T) {
	s := &Scene{Radii: [NumLenses]float64{1, 1, 1, 1, 1}}
	c := &Counter{F: s}
	Normal(c, mgl64.Vec3{0, 0, -1})
	assert.Equal(t, 4, c.N)
}

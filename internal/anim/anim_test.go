package anim

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/lensfield/internal/noise"
	"github.com/coreman2200/lensfield/internal/params"
)

func TestSmoothConvergesWithoutInputChanges(t *testing.T) {
	s := 0.0
	for i := 0; i < 200; i++ {
		s = Smooth(s, 1, SmoothFactor)
	}
	assert.InDelta(t, 1.0, s, 1e-6)
	assert.Equal(t, 0.1, Smooth(0, 1, 0.1))
}

func TestPositionsStayWithinAmplitude(t *testing.T) {
	src := noise.New(1)
	speed := params.Default().Animation.Speed
	for step := 0; step < 5000; step++ {
		tt := float64(step) * 3.7
		ps := Positions(src, tt, speed)
		for i, p := range ps {
			require.LessOrEqual(t, math.Abs(p.X-BaseX[i]), AmplitudeX[i]+1e-12, "primitive %d x at t=%v", i, tt)
			require.LessOrEqual(t, math.Abs(p.Y-BaseY[i]), AmplitudeY[i]+1e-12, "primitive %d y at t=%v", i, tt)
			require.Equal(t, Radii[i], p.Radius)
		}
	}
}

func TestPositionsDeterministic(t *testing.T) {
	a := Positions(noise.New(4), 12.5, 0.004)
	b := Positions(noise.New(4), 12.5, 0.004)
	assert.Equal(t, a, b)
}

func TestScrollDeceleratesTime(t *testing.T) {
	a := params.Animation{Speed: 0.004, TimeScale: 0.01, MaxBreak: 4}

	still := State{}
	still.Step(1, a)
	assert.InDelta(t, 0.01, still.Time, 1e-12)

	scrolled := State{RawScroll: 10, Scroll: 10}
	scrolled.Step(1, a)
	// (10+1)^2 is far over the cap of 4
	assert.InDelta(t, 0.01/4, scrolled.Time, 1e-12)

	assert.Equal(t, 1.0, Deceleration(0, 4))
	assert.Equal(t, 2.25, Deceleration(0.5, 4))
	assert.Equal(t, 4.0, Deceleration(100, 4))
}

func TestFrameCounterAndOpacity(t *testing.T) {
	s := State{}
	a := params.Default().Animation
	s.Step(0.016, a)
	assert.InDelta(t, 0.1, s.Opacity(), 1e-12)
	for i := 0; i < 20; i++ {
		s.Step(0.016, a)
	}
	assert.Equal(t, 1.0, s.Opacity())

	s.Frame = frameWrap
	s.Step(0.016, a)
	assert.Equal(t, frameReset, s.Frame)
}

func TestLightFollowsSmoothedPointer(t *testing.T) {
	s := State{RawPointer: mgl64.Vec2{0.5, -0.5}}
	s.Step(0, params.Default().Animation)
	lp := s.Light()
	assert.InDelta(t, 0.1, lp.X(), 1e-12)
	assert.InDelta(t, -0.1, lp.Y(), 1e-12)
	assert.InDelta(t, CameraZ, lp.Z(), 1e-12)
}

func TestLightStaysInFrontOfLenses(t *testing.T) {
	s := State{Scroll: 50, RawScroll: 50}
	assert.Equal(t, MaxLightZ, s.Light().Z())
}

func TestInputNormalisation(t *testing.T) {
	p := PointerFromPage(200, 50, 400, 100)
	assert.Equal(t, mgl64.Vec2{0, 0}, p)
	assert.Equal(t, mgl64.Vec2{}, PointerFromPage(1, 1, 0, 0))
	assert.Equal(t, 2.0, ScrollFromOffset(200, 100))
	assert.Equal(t, 0.0, ScrollFromOffset(200, 0))
}

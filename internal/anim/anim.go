package anim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/coreman2200/lensfield/internal/noise"
	"github.com/coreman2200/lensfield/internal/params"
)

const (
	NumPrimitives = 5

	// SmoothFactor is the per-frame low-pass weight for scroll and pointer.
	SmoothFactor = 0.1

	// CameraZ is the depth of the pinhole camera and the light's base plane.
	CameraZ = -5.0

	// MaxLightZ keeps the light in front of the lens field at z=0.
	MaxLightZ = -0.25

	frameWrap  = 100000000
	frameReset = 10
	fadeFrames = 10.0
)

// Per-primitive constant tables.
var (
	Radii      = [NumPrimitives]float64{0.5, 0.28, 1, 0.21, 0.37}
	seeds      = [NumPrimitives]float64{112, 20, 117.5, 33, 15}
	BaseX      = [NumPrimitives]float64{-1.2, 0, -0.6, 1.3, 0.4}
	BaseY      = [NumPrimitives]float64{0.01, -0.1, 0.3, -0.3, 0}
	AmplitudeX = [NumPrimitives]float64{2.3, 2.5, 1.9, 1.3, 1.0}
	AmplitudeY = [NumPrimitives]float64{1.0, 2.8, 1.9, 1.3, 1.0}
)

// Primitive is one lens. Z is always 0.
type Primitive struct {
	X, Y, Radius float64
}

// State is everything carried from one frame to the next.
type State struct {
	Time  float64
	Frame int

	RawScroll float64
	Scroll    float64

	RawPointer mgl64.Vec2
	Pointer    mgl64.Vec2
}

// Smooth is one step of a single-pole low-pass filter.
func Smooth(smoothed, raw, factor float64) float64 {
	return smoothed + (raw-smoothed)*factor
}

func SmoothVec(smoothed, raw mgl64.Vec2, factor float64) mgl64.Vec2 {
	return mgl64.Vec2{
		Smooth(smoothed[0], raw[0], factor),
		Smooth(smoothed[1], raw[1], factor),
	}
}

// Deceleration is the divisor applied to the frame delta. It grows with
// scroll and is capped at maxBreak.
func Deceleration(scroll, maxBreak float64) float64 {
	s := scroll + 1
	return math.Min(maxBreak, s*s)
}

// Step advances the state by one frame of dt seconds. The smoothed inputs
// relax toward the raw ones on every call, whether or not they changed.
func (s *State) Step(dt float64, a params.Animation) {
	s.Frame++
	if s.Frame > frameWrap {
		s.Frame = frameReset
	}
	s.Scroll = Smooth(s.Scroll, s.RawScroll, SmoothFactor)
	s.Pointer = SmoothVec(s.Pointer, s.RawPointer, SmoothFactor)
	if dt > 0 {
		s.Time += dt * a.TimeScale / Deceleration(s.Scroll, a.MaxBreak)
	}
}

// Opacity ramps from 0 to 1 over the first frames.
func (s *State) Opacity() float64 {
	return math.Min(float64(s.Frame)/fadeFrames, 1)
}

// Light is the area light position for the current smoothed inputs.
func (s *State) Light() mgl64.Vec3 {
	lp := mgl64.Vec3{2 * s.Pointer[0], 2 * s.Pointer[1], CameraZ + s.Scroll}
	if lp[2] > MaxLightZ {
		lp[2] = MaxLightZ
	}
	return lp
}

// Positions evaluates all primitives at animation time t.
func Positions(src *noise.Source, t, speed float64) [NumPrimitives]Primitive {
	var out [NumPrimitives]Primitive
	tt := t * speed
	for i := 0; i < NumPrimitives; i++ {
		fi := float64(i)
		nx := src.Noise2D(tt+seeds[i], fi*10)
		ny := src.Noise2D(tt+seeds[i]+100, fi*10+100)
		out[i] = Primitive{
			X:      BaseX[i] + nx*AmplitudeX[i],
			Y:      BaseY[i] + ny*AmplitudeY[i],
			Radius: Radii[i],
		}
	}
	return out
}

// PointerFromPage converts page coordinates to the centred viewport range
// [-0.5,0.5].
func PointerFromPage(pageX, pageY, width, height float64) mgl64.Vec2 {
	if width <= 0 || height <= 0 {
		return mgl64.Vec2{}
	}
	return mgl64.Vec2{pageX/width - 0.5, pageY/height - 0.5}
}

// ScrollFromOffset expresses a scroll offset in viewport heights.
func ScrollFromOffset(scrollTop, height float64) float64 {
	if height <= 0 {
		return 0
	}
	return scrollTop / height
}

package render

import (
	"fmt"
	"math"
)

// MinDPR is the lowest pixel ratio a resize retry will fall back to.
const MinDPR = 0.125

// AllocFunc returns a w*h buffer or an error. budget is the largest pixel
// count allowed, 0 for no limit.
type AllocFunc func(w, h, budget int) ([]Color, error)

// DefaultAlloc enforces budget and turns an out-of-memory panic from make
// into ErrAllocFailed.
func DefaultAlloc(w, h, budget int) (buf []Color, err error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrAllocFailed, w, h)
	}
	if budget > 0 && w*h > budget {
		return nil, fmt.Errorf("%w: %dx%d is over %d pixels", ErrTargetTooLarge, w, h, budget)
	}
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("%w: %dx%d: %v", ErrAllocFailed, w, h, r)
		}
	}()
	return make([]Color, w*h), nil
}

// Target is the offscreen scene buffer plus the output buffer it is
// composited into, both at drawing-buffer resolution.
type Target struct {
	W, H  int
	DPR   float64
	Scene []Color
	Out   []Color
	// Steps and Heat are only allocated for debug programs.
	Steps []float32
	Heat  []Color
}

// drawSize is the drawing-buffer size of vp at pixel ratio dpr.
func drawSize(vp Viewport, dpr float64) (int, int) {
	w := int(math.Round(float64(vp.W) * dpr))
	h := int(math.Round(float64(vp.H) * dpr))
	return max(w, 1), max(h, 1)
}

// effectiveDPR caps the host ratio by the bundle and quality limits. A
// non-positive cap means no limit.
func effectiveDPR(host, bundleCap, qualityCap float64) float64 {
	d := host
	if bundleCap > 0 {
		d = math.Min(d, bundleCap)
	}
	if qualityCap > 0 {
		d = math.Min(d, qualityCap)
	}
	return d
}

// allocTarget tries dpr first, halving it after each failure until MinDPR.
// retry is called with the failed ratio and its error before the next try.
func allocTarget(alloc AllocFunc, vp Viewport, dpr float64, budget int, debug bool, retry func(float64, error)) (*Target, error) {
	var last error
	for d := dpr; d >= MinDPR; d /= 2 {
		t, err := tryTarget(alloc, vp, d, budget, debug)
		if err == nil {
			return t, nil
		}
		last = err
		if retry != nil {
			retry(d, err)
		}
	}
	if last == nil {
		last = fmt.Errorf("%w: pixel ratio %g below %g", ErrAllocFailed, dpr, MinDPR)
	}
	return nil, last
}

func tryTarget(alloc AllocFunc, vp Viewport, dpr float64, budget int, debug bool) (*Target, error) {
	w, h := drawSize(vp, dpr)
	scene, err := alloc(w, h, budget)
	if err != nil {
		return nil, err
	}
	out, err := alloc(w, h, budget)
	if err != nil {
		return nil, err
	}
	t := &Target{W: w, H: h, DPR: dpr, Scene: scene, Out: out}
	if debug {
		t.Steps = make([]float32, w*h)
		t.Heat = make([]Color, w*h)
	}
	return t, nil
}

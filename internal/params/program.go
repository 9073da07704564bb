package params

import (
	"fmt"
	"strings"
)

// Features are the optional stages baked into a Program. They are decided
// once per compile and never consulted from the bundle again.
type Features struct {
	Caustics  bool
	Grain     bool
	ACES      bool
	Vignette  bool
	Shift     bool
	RefractBg bool
	BgVisible bool
	BgBlobs   bool
	FgBlobs   bool
	LowPerf   bool
	Debug     bool
}

func (f Features) String() string {
	var on []string
	add := func(name string, v bool) {
		if v {
			on = append(on, name)
		}
	}
	add("caustics", f.Caustics)
	add("grain", f.Grain)
	add("aces", f.ACES)
	add("vignette", f.Vignette)
	add("shift", f.Shift)
	add("refract-bg", f.RefractBg)
	add("bg-visible", f.BgVisible)
	add("bg-blobs", f.BgBlobs)
	add("fg-blobs", f.FgBlobs)
	add("low-perf", f.LowPerf)
	add("debug", f.Debug)
	if len(on) == 0 {
		return "none"
	}
	return strings.Join(on, ",")
}

// Program is the compiled, read-only form of a Bundle. Blob lists only hold
// blobs with a positive strength.
type Program struct {
	Bundle   Bundle
	Features Features
	BgBlobs  []Blob
	FgBlobs  []Blob
}

// Compile validates b and builds a Program from it.
func Compile(b Bundle) (*Program, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	b = b.Clone()

	var problems []string
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(b.BgBlobs) > MaxBgBlobs {
		fail("%d background blobs (max %d)", len(b.BgBlobs), MaxBgBlobs)
	}
	if len(b.FgBlobs) > MaxFgBlobs {
		fail("%d foreground blobs (max %d)", len(b.FgBlobs), MaxFgBlobs)
	}
	switch b.Scene.Pattern {
	case PatternNone:
	case PatternDots, PatternCheckers:
		if b.Scene.PatternScale <= 0 {
			fail("pattern %s needs a positive scale, got %g", b.Scene.Pattern, b.Scene.PatternScale)
		}
	default:
		fail("unknown pattern %d", int(b.Scene.Pattern))
	}
	if b.Light.HalfWidth <= 0 {
		fail("light half width must be positive, got %g", b.Light.HalfWidth)
	}
	if !b.Light.MatchAspectRatio && b.Light.HalfHeight <= 0 {
		fail("light half height must be positive, got %g", b.Light.HalfHeight)
	}
	if b.Material.RefractionIndex <= 0 {
		fail("refraction index must be positive, got %g", b.Material.RefractionIndex)
	}
	if b.Animation.MaxBreak < 1 {
		fail("animation max break must be >= 1, got %g", b.Animation.MaxBreak)
	}
	if b.BlobFade.Max < 0 {
		fail("blob fade max must not be negative, got %g", b.BlobFade.Max)
	}

	active := func(kind string, in []Blob) []Blob {
		var out []Blob
		for i, bl := range in {
			if bl.Strength <= 0 {
				continue
			}
			if bl.Dims.X <= 0 || bl.Dims.Y <= 0 {
				fail("%s blob %d has non-positive dims (%g,%g)", kind, i, bl.Dims.X, bl.Dims.Y)
				continue
			}
			out = append(out, bl)
		}
		return out
	}
	bg := active("background", b.BgBlobs)
	fg := active("foreground", b.FgBlobs)

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w %q: %s", ErrInvalidProgram, b.Name, strings.Join(problems, "; "))
	}

	p := &Program{
		Bundle:  b,
		BgBlobs: bg,
		FgBlobs: fg,
		Features: Features{
			Caustics:  b.Scene.Caustics && !b.LowPerf,
			Grain:     b.Post.FilmGrain > 0 && !b.LowPerf,
			ACES:      b.Post.ACES,
			Vignette:  b.Post.Vignette > 0,
			Shift:     b.Post.Shift.Enabled,
			RefractBg: b.Scene.RefractBg,
			BgVisible: b.Scene.BgVisible,
			BgBlobs:   len(bg) > 0,
			FgBlobs:   len(fg) > 0,
			LowPerf:   b.LowPerf,
			Debug:     b.Debug,
		},
	}
	return p, nil
}

package render

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/lensfield/internal/diagnostics"
	"github.com/coreman2200/lensfield/internal/params"
)

// fakeDriver captures the last frame written.
type fakeDriver struct {
	last   Frame
	writes int
	err    error
}

func (d *fakeDriver) Write(f Frame) error {
	d.writes++
	if d.err != nil {
		return d.err
	}
	d.last = f
	d.last.Pix = append([]Color(nil), f.Pix...)
	return nil
}

type diagLog struct {
	mu sync.Mutex
	ds []diagnostics.Diagnostic
}

func (l *diagLog) sink(d diagnostics.Diagnostic) {
	l.mu.Lock()
	l.ds = append(l.ds, d)
	l.mu.Unlock()
}

func (l *diagLog) count(code string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, d := range l.ds {
		if d.Code == code {
			n++
		}
	}
	return n
}

func newEngine(t *testing.T, b params.Bundle, vp Viewport, opts ...Option) (*Engine, *fakeDriver, *diagLog) {
	t.Helper()
	drv := &fakeDriver{}
	dl := &diagLog{}
	e, err := NewEngine(b, vp, drv, append([]Option{WithDiagnostics(dl.sink), WithWorkers(2)}, opts...)...)
	require.NoError(t, err)
	return e, drv, dl
}

func assertUnit(t *testing.T, pix []Color) {
	t.Helper()
	for i, c := range pix {
		for _, v := range []float32{c.R, c.G, c.B} {
			if v < 0 || v > 1 || v != v {
				t.Fatalf("pixel %d out of range: %#v", i, c)
			}
		}
	}
}

func TestNewEngineRejectsBadInput(t *testing.T) {
	_, err := NewEngine(params.Default(), Viewport{W: 0, H: 9, DPR: 1}, &fakeDriver{})
	assert.Error(t, err)
	_, err = NewEngine(params.Default(), Viewport{W: 16, H: 9, DPR: 1}, nil)
	assert.Error(t, err)
}

func TestEngineTickWritesFrame(t *testing.T) {
	e, drv, _ := newEngine(t, params.Default(), Viewport{W: 16, H: 9, DPR: 1})
	require.NoError(t, e.Tick(1.0/60))

	assert.Equal(t, uint64(1), drv.last.ID)
	assert.Equal(t, 16, drv.last.W)
	assert.Equal(t, 9, drv.last.H)
	require.Len(t, drv.last.Pix, 16*9)
	assertUnit(t, drv.last.Pix)

	// first frame is at 10% opacity
	for _, c := range drv.last.Pix {
		assert.LessOrEqual(t, c.R, float32(0.1)+1e-6)
		assert.LessOrEqual(t, c.G, float32(0.1)+1e-6)
		assert.LessOrEqual(t, c.B, float32(0.1)+1e-6)
	}
}

func TestEngineDeterministicAcrossWorkers(t *testing.T) {
	vp := Viewport{W: 20, H: 12, DPR: 1}
	a, da, _ := newEngine(t, params.Default(), vp, WithWorkers(1))
	b, db, _ := newEngine(t, params.Default(), vp, WithWorkers(5))
	for i := 0; i < 12; i++ {
		a.SetPointer(0.2, -0.1)
		b.SetPointer(0.2, -0.1)
		require.NoError(t, a.Tick(0.5))
		require.NoError(t, b.Tick(0.5))
	}
	assert.Equal(t, da.last.Pix, db.last.Pix)
}

func TestEngineSmoothsInputsAtFrameStart(t *testing.T) {
	e, _, _ := newEngine(t, params.Default(), Viewport{W: 8, H: 4, DPR: 1})
	e.SetScroll(-3)
	e.SetPointer(0.5, 0.5)
	require.NoError(t, e.Tick(0.016))

	s := e.State()
	assert.Equal(t, 0.0, s.RawScroll)
	assert.InDelta(t, 0.05, s.Pointer.X(), 1e-12)
	assert.InDelta(t, 0.05, s.Pointer.Y(), 1e-12)

	e.SetScroll(math.NaN())
	require.NoError(t, e.Tick(0.016))
	assert.Equal(t, 0.0, e.State().RawScroll)
}

func TestDegradeIsOneWay(t *testing.T) {
	e, drv, dl := newEngine(t, params.Default(), Viewport{W: 32, H: 18, DPR: 1})
	require.NoError(t, e.Tick(0.016))
	assert.Contains(t, e.PostStages(), "grain")
	assert.True(t, e.Program().Features.Caustics)

	e.Degrade()
	require.NoError(t, e.Tick(0.016))
	q := e.Quality()
	assert.True(t, q.LowPerf)
	assert.Equal(t, 0.5, q.DPRCap)
	assert.Equal(t, 16, drv.last.W)
	assert.Equal(t, 9, drv.last.H)
	assert.NotContains(t, e.PostStages(), "grain")
	assert.False(t, e.Program().Features.Caustics)
	assert.Equal(t, 1, dl.count(diagnostics.CodeQualityDegrade))

	// a fresh full-quality bundle does not undo it
	require.NoError(t, e.Reconfigure(params.Default()))
	e.Degrade()
	require.NoError(t, e.Tick(0.016))
	assert.True(t, e.Program().Features.LowPerf)
	assert.Equal(t, 16, drv.last.W)
	assert.Equal(t, 1, dl.count(diagnostics.CodeQualityDegrade))
}

func TestReconfigureKeepsLastGood(t *testing.T) {
	e, _, dl := newEngine(t, params.Default(), Viewport{W: 8, H: 4, DPR: 1})
	require.NoError(t, e.Tick(0.016))

	bad := params.Default()
	bad.Name = "broken"
	bad.Material.RefractionIndex = math.NaN()
	err := e.Reconfigure(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, params.ErrInvalidBundle))
	require.NoError(t, e.Tick(0.016))
	assert.Equal(t, params.DefaultPreset, e.Program().Bundle.Name)
	assert.Equal(t, 1, dl.count(diagnostics.CodeCompileFailed))

	next, err := params.Preset("Checkers")
	require.NoError(t, err)
	require.NoError(t, e.Reconfigure(next))
	// not installed until the next frame
	assert.Equal(t, params.DefaultPreset, e.Program().Bundle.Name)
	require.NoError(t, e.Tick(0.016))
	assert.Equal(t, "Checkers", e.Program().Bundle.Name)
}

func TestFallbackUntilValidBundle(t *testing.T) {
	bad := params.Default()
	bad.Light.HalfWidth = math.Inf(1)
	e, drv, dl := newEngine(t, bad, Viewport{W: 4, H: 2, DPR: 1})
	assert.Nil(t, e.Program())
	assert.Equal(t, 1, dl.count(diagnostics.CodeFallback))

	require.NoError(t, e.Tick(0.016))
	for _, c := range drv.last.Pix {
		assert.Equal(t, FallbackColor, c)
	}

	require.NoError(t, e.Reconfigure(params.Default()))
	require.NoError(t, e.Tick(0.016))
	require.NotNil(t, e.Program())
	assertUnit(t, drv.last.Pix)
}

func TestResizeAppliedAtFrameStart(t *testing.T) {
	e, drv, _ := newEngine(t, params.Default(), Viewport{W: 8, H: 4, DPR: 1})
	require.NoError(t, e.Tick(0.016))
	require.NoError(t, e.Resize(6, 6, 1))
	assert.Equal(t, 8, e.Target().W)

	require.NoError(t, e.Tick(0.016))
	assert.Equal(t, 6, e.Target().W)
	assert.Equal(t, 6, drv.last.H)

	assert.Error(t, e.Resize(-1, 6, 1))
	assert.Error(t, e.Resize(6, 6, 0))
}

func TestResizeRetriesAtLowerDPR(t *testing.T) {
	b := params.Default()
	b.MaxDPR = 2
	b.PixelBudget = 100 * 100
	e, drv, dl := newEngine(t, b, Viewport{W: 100, H: 100, DPR: 2}, WithWorkers(8))
	require.NoError(t, e.Tick(0.016))

	assert.Equal(t, 1, dl.count(diagnostics.CodeTargetRetry))
	assert.Equal(t, 1.0, e.Target().DPR)
	assert.Equal(t, 100, drv.last.W)
}

func TestResizeGivesUpBelowMinimum(t *testing.T) {
	fail := func(w, h, budget int) ([]Color, error) { return nil, ErrAllocFailed }
	e, drv, dl := newEngine(t, params.Default(), Viewport{W: 64, H: 64, DPR: 1}, WithAllocator(fail))

	require.NoError(t, e.Tick(0.016))
	assert.Nil(t, e.Target())
	assert.Equal(t, 0, drv.writes)
	assert.Equal(t, 4, dl.count(diagnostics.CodeTargetRetry))
	assert.Equal(t, 1, dl.count(diagnostics.CodeTargetFailed))
}

func TestMonitorDegradesSlowEngine(t *testing.T) {
	e, _, dl := newEngine(t, params.Default(), Viewport{W: 4, H: 4, DPR: 1}, WithTargetFPS(60))
	for i := 0; i < 40; i++ {
		require.NoError(t, e.Tick(0.1))
	}
	assert.True(t, e.Quality().LowPerf)
	assert.Equal(t, 1, dl.count(diagnostics.CodeQualityDegrade))
}

func TestMonitorKeepsPacedEngineAtFullQuality(t *testing.T) {
	for _, fps := range []float64{30, 60} {
		e, _, dl := newEngine(t, params.Default(), Viewport{W: 4, H: 4, DPR: 1}, WithTargetFPS(fps))
		for i := 0; i < 150; i++ {
			require.NoError(t, e.Tick(1/fps))
		}
		assert.False(t, e.Quality().LowPerf, "fps %v", fps)
		assert.True(t, e.Program().Features.Caustics, "fps %v", fps)
		assert.Zero(t, dl.count(diagnostics.CodeQualityDegrade), "fps %v", fps)
	}
}

func TestMonitorOffInDebug(t *testing.T) {
	b := params.Default()
	b.Debug = true
	e, _, dl := newEngine(t, b, Viewport{W: 4, H: 4, DPR: 1}, WithTargetFPS(60))
	for i := 0; i < 40; i++ {
		require.NoError(t, e.Tick(0.1))
	}
	assert.False(t, e.Quality().LowPerf)
	assert.Zero(t, dl.count(diagnostics.CodeQualityDegrade))
}

func TestPlainBackgroundComposite(t *testing.T) {
	b, err := params.Preset("Plain")
	require.NoError(t, err)
	b.Post.FilmGrain = 0
	e, drv, _ := newEngine(t, b, Viewport{W: 64, H: 18, DPR: 1})
	for i := 0; i < 12; i++ {
		require.NoError(t, e.Tick(0.016))
	}
	st := e.State()
	require.Equal(t, 1.0, st.Opacity())
	require.Equal(t, []string{"contrast", "aces", "opacity", "scroll_fade"}, e.PostStages())

	contrast := contrastStage(b.Post.Contrast, b.Post.Brightness)
	composite := func(c Color) Color {
		buf := []Color{c}
		contrast(buf, nil)
		acesStage(buf, nil)
		return buf[0]
	}
	sc := b.Scene.Color
	flat := Color{float32(sc.R), float32(sc.G), float32(sc.B)}
	want := composite(flat)

	background := 0
	for i, c := range e.Target().Scene {
		assert.Equal(t, composite(c), drv.last.Pix[i])
		if c == flat {
			background++
			assert.Equal(t, want, drv.last.Pix[i])
		}
	}
	assert.NotZero(t, background)
}

func TestSurfaceErrorIsReturned(t *testing.T) {
	e, drv, dl := newEngine(t, params.Default(), Viewport{W: 4, H: 4, DPR: 1})
	drv.err = errors.New("unplugged")
	err := e.Tick(0.016)
	require.Error(t, err)
	assert.ErrorIs(t, err, drv.err)
	assert.Equal(t, 1, dl.count(diagnostics.CodeSurfaceWrite))
}

func TestDebugShowsStepHeat(t *testing.T) {
	b := params.Default()
	b.Debug = true
	e, drv, _ := newEngine(t, b, Viewport{W: 8, H: 6, DPR: 1})
	for i := 0; i < 12; i++ {
		require.NoError(t, e.Tick(0.016))
	}
	require.NotNil(t, e.Target().Steps)
	red := false
	for _, c := range drv.last.Pix {
		assert.LessOrEqual(t, c.G, float32(0.0101))
		assert.LessOrEqual(t, c.B, float32(0.0101))
		if c.R > 0 {
			red = true
		}
	}
	assert.True(t, red)
}

func TestMixAlpha(t *testing.T) {
	n := 10
	a := make([]Color, n)
	b := make([]Color, n)
	dst := make([]Color, n)
	for i := 0; i < n; i++ {
		a[i] = Color{1, 0, 0} // red
		b[i] = Color{0, 0, 1} // blue
	}
	Mix(dst, a, b, 0.5)
	if dst[0].R < 0.49 || dst[0].R > 0.51 || dst[0].B < 0.49 || dst[0].B > 0.51 {
		t.Fatalf("expected ~purple at alpha=0.5, got %#v", dst[0])
	}
}

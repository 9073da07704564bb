package render

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"github.com/coreman2200/lensfield/internal/anim"
	"github.com/coreman2200/lensfield/internal/diagnostics"
	"github.com/coreman2200/lensfield/internal/noise"
	"github.com/coreman2200/lensfield/internal/params"
	"github.com/coreman2200/lensfield/internal/raymarch"
	"github.com/coreman2200/lensfield/internal/sdf"
)

// FallbackColor is drawn while no valid program is installed.
var FallbackColor = Color{R: 0x19 / 255.0, G: 0x18 / 255.0, B: 0x19 / 255.0}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

func WithDiagnostics(s diagnostics.Sink) Option { return func(e *Engine) { e.diag = s } }

func WithAllocator(a AllocFunc) Option { return func(e *Engine) { e.alloc = a } }

func WithSeed(seed int64) Option { return func(e *Engine) { e.seed = seed } }

func WithFallback(c Color) Option { return func(e *Engine) { e.fallback = c } }

// WithWorkers sets how many row bands the scene pass is split into.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithTargetFPS enables the frame-rate monitor for a host that paces Tick at
// fps. Hosts on a synthetic clock should leave it off.
func WithTargetFPS(fps float64) Option { return func(e *Engine) { e.targetFPS = fps } }

// Engine owns the per-frame loop: it applies queued input, advances the
// animation, raymarches the scene target, runs post and hands the result to
// its Surface. Tick must be called from a single goroutine; the setters may
// be called from anywhere.
type Engine struct {
	mu      sync.Mutex
	pending struct {
		pointer mgl64.Vec2
		scroll  float64
		vp      Viewport
		resize  bool
		degrade bool
		prog    *params.Program
	}
	quality QualityState
	outbox  []diagnostics.Diagnostic

	drv       Surface
	log       zerolog.Logger
	diag      diagnostics.Sink
	alloc     AllocFunc
	workers   int
	seed      int64
	fallback  Color
	targetFPS float64
	monitor   *Monitor

	noise  *noise.Source
	dither *noise.Texture

	prog    *params.Program
	bundle  params.Bundle
	post    PostPipeline
	state   anim.State
	vp      Viewport
	target  *Target
	elapsed float64
	frameID uint64

	// metrics (last durations in ms)
	Last struct {
		SceneMS float64
		PostMS  float64
		TotalMS float64
	}
}

// NewEngine wires an engine for vp that draws into drv. A bundle that does
// not compile is reported and leaves the engine drawing the fallback colour
// until Reconfigure succeeds.
func NewEngine(b params.Bundle, vp Viewport, drv Surface, opts ...Option) (*Engine, error) {
	if drv == nil {
		return nil, errors.New("render: nil surface")
	}
	if !vp.valid() {
		return nil, fmt.Errorf("render: invalid viewport %dx%d@%g", vp.W, vp.H, vp.DPR)
	}
	e := &Engine{
		drv:      drv,
		log:      zerolog.Nop(),
		alloc:    DefaultAlloc,
		workers:  runtime.NumCPU(),
		seed:     1,
		fallback: FallbackColor,
		vp:       vp,
	}
	for _, o := range opts {
		o(e)
	}
	e.noise = noise.New(e.seed)
	e.dither = noise.NewDither(e.noise, noise.TextureSize, noise.TextureSize)
	if e.targetFPS > 0 {
		e.monitor = NewMonitor(e.targetFPS, func(fps float64) {
			e.log.Warn().Float64("fps", fps).Msg("frame rate below bounds")
			e.Degrade()
		})
	}
	e.pending.vp = vp
	e.pending.resize = true

	prog, err := params.Compile(b)
	if err != nil {
		e.compileFailed(b.Name, err)
		e.fallbackMode(err)
		return e, nil
	}
	e.install(prog)
	return e, nil
}

// SetPointer records the pointer in centred viewport units.
func (e *Engine) SetPointer(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return
	}
	e.mu.Lock()
	e.pending.pointer = mgl64.Vec2{x, y}
	e.mu.Unlock()
}

// SetScroll records scroll in viewport heights; negatives count as 0.
func (e *Engine) SetScroll(s float64) {
	if !(s > 0) || math.IsInf(s, 1) {
		s = 0
	}
	e.mu.Lock()
	e.pending.scroll = s
	e.mu.Unlock()
}

// Resize queues a new viewport; the target follows at the next Tick.
func (e *Engine) Resize(w, h int, dpr float64) error {
	vp := Viewport{W: w, H: h, DPR: dpr}
	if !vp.valid() {
		return fmt.Errorf("render: invalid viewport %dx%d@%g", w, h, dpr)
	}
	e.mu.Lock()
	e.pending.vp = vp
	e.pending.resize = true
	e.mu.Unlock()
	return nil
}

// Degrade switches to low-performance mode at the next Tick. It is one way.
func (e *Engine) Degrade() {
	e.mu.Lock()
	e.pending.degrade = true
	e.mu.Unlock()
}

// Reconfigure compiles b and, if it is valid, installs it at the next Tick.
// On error the running program is kept.
func (e *Engine) Reconfigure(b params.Bundle) error {
	prog, err := params.Compile(b)
	if err != nil {
		e.compileFailed(b.Name, err)
		return err
	}
	e.mu.Lock()
	e.pending.prog = prog
	e.mu.Unlock()
	return nil
}

// Tick renders one frame dt seconds after the previous one.
func (e *Engine) Tick(dt float64) error {
	start := time.Now()
	e.applyPending()
	if dt > 0 && !math.IsInf(dt, 0) {
		e.elapsed += dt
	} else {
		dt = 0
	}
	if e.monitor != nil && !(e.prog != nil && e.prog.Features.Debug) {
		// Observe must stay outside mu: OnDecline calls Degrade.
		e.monitor.Observe(max(dt, e.Last.TotalMS/1000))
	}

	t := e.target
	if t == nil {
		return nil
	}
	e.frameID++

	if e.prog == nil {
		for i := range t.Out {
			t.Out[i] = e.fallback
		}
		e.Last.SceneMS, e.Last.PostMS = 0, 0
		return e.write(start)
	}

	e.state.Step(dt, e.prog.Bundle.Animation)
	e.renderScene()
	sceneDone := time.Now()
	e.Last.SceneMS = ms(sceneDone.Sub(start))

	ctx := PostContext{
		W:       t.W,
		H:       t.H,
		Frame:   e.state.Frame,
		Scroll:  e.state.Scroll,
		Opacity: e.state.Opacity(),
		Elapsed: e.elapsed,
		Dither:  e.dither,
	}
	if e.prog.Features.Debug && t.Steps != nil {
		// step heat replaces post entirely
		Heat(t.Heat, t.Steps)
		Mix(t.Out, t.Scene, t.Heat, 0.99)
	} else {
		e.post.Run(t.Out, t.Scene, &ctx)
	}
	e.Last.PostMS = ms(time.Since(sceneDone))
	return e.write(start)
}

func (e *Engine) write(start time.Time) error {
	t := e.target
	err := e.drv.Write(Frame{ID: e.frameID, W: t.W, H: t.H, Pix: t.Out})
	e.Last.TotalMS = ms(time.Since(start))
	if err != nil {
		e.raise(diagnostics.Diagnostic{
			Severity: diagnostics.Warn,
			Code:     diagnostics.CodeSurfaceWrite,
			Summary:  "surface rejected frame",
			Detail:   err.Error(),
			Evidence: map[string]any{"frame_id": e.frameID},
		})
		return fmt.Errorf("surface write: %w", err)
	}
	return nil
}

func (e *Engine) applyPending() {
	e.mu.Lock()
	e.applyLocked()
	out := e.outbox
	e.outbox = nil
	e.mu.Unlock()
	for _, d := range out {
		e.raise(d)
	}
}

func (e *Engine) applyLocked() {
	p := &e.pending

	e.state.RawPointer = p.pointer
	e.state.RawScroll = p.scroll

	if p.degrade {
		p.degrade = false
		if !e.quality.LowPerf {
			e.quality = e.quality.degraded()
			p.resize = true
			if e.prog != nil {
				e.install(e.prog)
			}
			e.queue(diagnostics.Diagnostic{
				Severity:       diagnostics.Warn,
				Code:           diagnostics.CodeQualityDegrade,
				Summary:        "switched to low performance mode",
				LikelyCauses:   []string{"sustained frame rate below the monitor's lower bound"},
				SuggestedFixes: []string{"lower max_dpr", "disable caustics"},
				Evidence:       map[string]any{"dpr_cap": e.quality.DPRCap},
			})
		}
	}
	if p.prog != nil {
		e.install(p.prog)
		p.prog = nil
		p.resize = true
	}
	if p.resize {
		p.resize = false
		e.vp = p.vp
		e.resizeTarget()
	}
}

// install makes prog current, degrading it first if quality already has
// been. Callers hold mu or own e exclusively.
func (e *Engine) install(prog *params.Program) {
	if e.quality.LowPerf && !prog.Features.LowPerf {
		if dp, err := params.Compile(prog.Bundle.Degraded()); err == nil {
			prog = dp
		}
	}
	debugChanged := e.prog == nil || e.prog.Bundle.Debug != prog.Bundle.Debug
	e.prog = prog
	e.bundle = prog.Bundle
	e.post = BuildPost(prog, e.noise)
	if debugChanged {
		e.pending.resize = true
	}
	e.log.Info().
		Str("preset", prog.Bundle.Name).
		Stringer("features", prog.Features).
		Strs("post", e.post.Names()).
		Msg("program installed")
}

func (e *Engine) resizeTarget() {
	dpr := effectiveDPR(e.vp.DPR, e.bundle.MaxDPR, e.quality.DPRCap)
	w, h := drawSize(e.vp, dpr)
	debug := e.prog != nil && e.prog.Features.Debug
	if t := e.target; t != nil && t.W == w && t.H == h && (t.Steps != nil) == debug {
		t.DPR = dpr
		return
	}
	t, err := allocTarget(e.alloc, e.vp, dpr, e.bundle.PixelBudget, debug, func(d float64, err error) {
		e.queue(diagnostics.Diagnostic{
			Severity: diagnostics.Warn,
			Code:     diagnostics.CodeTargetRetry,
			Summary:  "render target allocation failed, retrying at half resolution",
			Detail:   err.Error(),
			Evidence: map[string]any{"dpr": d, "w": e.vp.W, "h": e.vp.H},
		})
	})
	if err != nil {
		e.target = nil
		e.queue(diagnostics.Diagnostic{
			Severity:       diagnostics.Err,
			Code:           diagnostics.CodeTargetFailed,
			Summary:        "no render target could be allocated; frames are skipped",
			Detail:         err.Error(),
			SuggestedFixes: []string{"raise pixel_budget", "shrink the viewport"},
		})
		return
	}
	e.target = t
	e.log.Debug().Int("w", t.W).Int("h", t.H).Float64("dpr", t.DPR).Msg("render target sized")
}

// renderScene splits the target into row bands shaded in parallel. Pixels
// are independent, so the result does not depend on the band count.
func (e *Engine) renderScene() {
	t := e.target
	var scene sdf.Scene
	for i, p := range anim.Positions(e.noise, e.state.Time, e.prog.Bundle.Animation.Speed) {
		scene.Centers[i] = mgl64.Vec2{p.X, p.Y}
		scene.Radii[i] = p.Radius
	}
	tr := raymarch.New(e.prog, raymarch.Input{
		Field:  &scene,
		Light:  e.state.Light(),
		Scroll: e.state.Scroll,
		Aspect: float64(t.H) / float64(t.W),
	})
	debug := t.Steps != nil

	bands := min(max(e.workers, 1), t.H)
	rows := (t.H + bands - 1) / bands
	var wg sync.WaitGroup
	for y0 := 0; y0 < t.H; y0 += rows {
		y1 := min(y0+rows, t.H)
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			wt := tr
			var c *sdf.Counter
			if debug {
				wt, c = tr.Counting()
			}
			for y := y0; y < y1; y++ {
				for x := 0; x < t.W; x++ {
					i := y*t.W + x
					if c != nil {
						c.N = 0
					}
					col := wt.Shade(raymarch.UV(x, y, t.W, t.H))
					t.Scene[i] = Color{float32(col[0]), float32(col[1]), float32(col[2])}
					if c != nil {
						t.Steps[i] = float32(c.N)
					}
				}
			}
		}(y0, y1)
	}
	wg.Wait()
}

func (e *Engine) compileFailed(name string, err error) {
	e.raise(diagnostics.Diagnostic{
		Severity:       diagnostics.Err,
		Code:           diagnostics.CodeCompileFailed,
		Summary:        "parameter bundle rejected",
		Detail:         err.Error(),
		Evidence:       map[string]any{"preset": name},
		SuggestedFixes: []string{"check the bundle for NaN or out-of-range values"},
	})
}

func (e *Engine) fallbackMode(err error) {
	e.raise(diagnostics.Diagnostic{
		Severity: diagnostics.Warn,
		Code:     diagnostics.CodeFallback,
		Summary:  "drawing fallback colour until a valid bundle arrives",
		Detail:   err.Error(),
	})
}

// queue holds d until mu is released so sinks may call back into e.
func (e *Engine) queue(d diagnostics.Diagnostic) {
	d.Time = time.Now()
	e.outbox = append(e.outbox, d)
}

func (e *Engine) raise(d diagnostics.Diagnostic) {
	if d.Time.IsZero() {
		d.Time = time.Now()
	}
	diagnostics.Log(e.log, d)
	if e.diag != nil {
		e.diag(d)
	}
}

// Program is the installed program, nil in fallback mode.
func (e *Engine) Program() *params.Program {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prog
}

// Bundle is the bundle of the installed program.
func (e *Engine) Bundle() params.Bundle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bundle.Clone()
}

func (e *Engine) Quality() QualityState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quality
}

// State, Target and PostStages belong to the Tick goroutine.

func (e *Engine) State() anim.State { return e.state }

// Target is the current drawing buffer, nil until the first Tick or after
// allocation failed.
func (e *Engine) Target() *Target { return e.target }

func (e *Engine) PostStages() []string { return e.post.Names() }

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000.0 }

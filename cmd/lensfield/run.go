package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/lensfield/internal/config"
	diag "github.com/coreman2200/lensfield/internal/diagnostics"
	"github.com/coreman2200/lensfield/internal/layout"
	"github.com/coreman2200/lensfield/internal/led"
	"github.com/coreman2200/lensfield/internal/render"
	"github.com/coreman2200/lensfield/internal/sequence"
	"github.com/coreman2200/lensfield/internal/surface/pngseq"
	"github.com/coreman2200/lensfield/internal/surface/term"
	"github.com/coreman2200/lensfield/internal/ws"
)

const historyCapacity = 600

type app struct {
	cfg        *config.Config
	configPath string

	eng     *render.Engine
	player  *sequence.SafePlayer
	history []float64
}

func (a *app) run() error {
	switch a.cfg.Output {
	case "png":
		return a.runPNG()
	case "term":
		return a.runTerm()
	case "serve":
		return a.runServe()
	case "led":
		return a.runLED()
	}
	return fmt.Errorf("unknown output %q", a.cfg.Output)
}

func logSink(d diag.Diagnostic) { diag.Log(log.Logger, d) }

// newEngine builds the engine for the configured bundle and loads the
// sequence, if any.
// paced is the option live hosts pass: the quality monitor judges frames
// against the rate the host ticks at.
func (a *app) paced() render.Option {
	return render.WithTargetFPS(float64(a.cfg.FPS))
}

func (a *app) newEngine(w, h int, dpr float64, drv render.Surface, sink diag.Sink, extra ...render.Option) error {
	b, err := a.cfg.Bundle()
	if err != nil {
		return err
	}
	opts := []render.Option{
		render.WithLogger(log.Logger),
		render.WithDiagnostics(sink),
		render.WithSeed(a.cfg.Seed),
	}
	if a.cfg.Workers > 0 {
		opts = append(opts, render.WithWorkers(a.cfg.Workers))
	}
	opts = append(opts, extra...)
	a.eng, err = render.NewEngine(b, render.Viewport{W: w, H: h, DPR: dpr}, drv, opts...)
	if err != nil {
		return err
	}
	log.Info().Str("preset", b.Name).Int("w", w).Int("h", h).Float64("dpr", dpr).Msg("engine ready")
	return a.loadSequence()
}

func (a *app) loadSequence() error {
	if a.cfg.Sequence == "" {
		return nil
	}
	prog, err := sequence.LoadProgram(a.cfg.Sequence)
	if err != nil {
		return err
	}
	a.player = sequence.NewSafePlayer(sequence.Hooks{
		SetPreset:  a.setPreset,
		SetPointer: a.eng.SetPointer,
		SetScroll:  a.eng.SetScroll,
	})
	a.player.With(func(p *sequence.Player) {
		err = p.Load(prog)
		p.Start()
	})
	if err != nil {
		return fmt.Errorf("sequence %s: %w", a.cfg.Sequence, err)
	}
	log.Info().Str("path", a.cfg.Sequence).Int("clips", len(prog.Clips)).Bool("loop", prog.Loop).Msg("sequence loaded")
	return nil
}

func (a *app) setPreset(name string) {
	cfg := *a.cfg
	cfg.Preset = name
	b, err := cfg.Bundle()
	if err != nil {
		log.Warn().Err(err).Str("preset", name).Msg("sequence preset")
		return
	}
	_ = a.eng.Reconfigure(b)
}

// tick advances the sequence and renders one frame.
func (a *app) tick(dt float64) error {
	if a.player != nil {
		a.player.With(func(p *sequence.Player) { p.Tick(dt) })
	}
	err := a.eng.Tick(dt)
	a.record(a.eng.Last.TotalMS)
	return err
}

func (a *app) record(ms float64) {
	if len(a.history) == historyCapacity {
		copy(a.history, a.history[1:])
		a.history = a.history[:historyCapacity-1]
	}
	a.history = append(a.history, ms)
}

func (a *app) summary() {
	if len(a.history) < 2 {
		return
	}
	fmt.Println(asciigraph.Plot(a.history, asciigraph.Height(8), asciigraph.Width(60), asciigraph.Caption("frame ms")))
}

func (a *app) runPNG() error {
	out, err := pngseq.New(a.cfg.OutDir)
	if err != nil {
		return err
	}
	if err := a.newEngine(a.cfg.Size.W, a.cfg.Size.H, a.cfg.Size.DPR, out, logSink); err != nil {
		return err
	}
	dt := 1 / float64(a.cfg.FPS)
	for i := 0; i < a.cfg.Frames; i++ {
		if err := a.tick(dt); err != nil {
			return err
		}
	}
	log.Info().Int("frames", out.Written).Str("dir", out.Dir).Msg("done")
	a.summary()
	return nil
}

func (a *app) runTerm() error {
	scr, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := scr.Init(); err != nil {
		return err
	}
	ts := term.New(scr)
	ts.Label = a.cfg.Preset
	w, h := ts.Grid()
	if err := a.newEngine(w, h, 1, ts, logSink, a.paced()); err != nil {
		ts.Close()
		return err
	}

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := scr.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(a.cfg.FPS))
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case ev := <-events:
			if !ts.Handle(ev, a.eng) {
				ts.Close()
				a.summary()
				return nil
			}
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if err := a.tick(dt); err != nil {
				log.Debug().Err(err).Msg("tick")
			}
			ts.Record(a.eng.Last.TotalMS)
		}
	}
}

func (a *app) runServe() error {
	state := ws.NewState(nil, a.cfg.FPS, a.cfg.Preset)
	state.ConfigPath = a.configPath
	state.Config = a.cfg
	sink := func(d diag.Diagnostic) {
		logSink(d)
		state.PushDiag(d)
	}
	if err := a.newEngine(a.cfg.Size.W, a.cfg.Size.H, a.cfg.Size.DPR, state, sink, a.paced()); err != nil {
		return err
	}
	state.Ctl = a.eng
	state.Player = a.player

	srv := &http.Server{
		Addr:         a.cfg.Addr,
		Handler:      withCORS(state.Mux()),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// the state ticks the player itself
	go state.RunRenderLoop(ctx, func(dt float64) error {
		err := a.eng.Tick(dt)
		a.record(a.eng.Last.TotalMS)
		return err
	})

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", a.cfg.Addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) runLED() error {
	lc := a.cfg.LED
	l := layout.Layout{
		Dim:        layout.Dim{X: lc.Dim.X, Y: lc.Dim.Y, Z: lc.Dim.Z},
		Order:      layout.Serpentine{XFlipEveryRow: lc.XFlipEveryRow, YFlipEveryPanel: lc.YFlipEveryPanel},
		PanelGapMM: lc.PanelGapMM,
		PitchMM:    lc.PitchMM,
	}
	panel, err := led.Open(l, led.Options{
		Port:       lc.Port,
		FreqKHz:    lc.FreqKHz,
		Brightness: lc.Brightness,
		Limiter:    led.Limiter{WhiteCap: lc.WhiteCap, ChanMA: lc.ChanMA, BudgetMA: lc.BudgetMA, Knee: lc.Knee},
	}, log.Logger)
	if err != nil {
		return err
	}
	defer panel.Close()
	if err := a.newEngine(a.cfg.Size.W, a.cfg.Size.H, a.cfg.Size.DPR, panel, logSink, a.paced()); err != nil {
		return err
	}
	log.Info().Int("leds", l.Count()).Bool("hardware", panel.Hardware).Msg("led output")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ticker := time.NewTicker(time.Second / time.Duration(a.cfg.FPS))
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if err := a.tick(dt); err != nil {
				log.Debug().Err(err).Msg("tick")
			}
		}
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}

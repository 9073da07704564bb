package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/lensfield/internal/config"
)

func main() {
	// ---- Flags (a flag given on the command line beats the config file) ----
	var (
		configPath = flag.String("config", config.DefaultPath, "path to lensfield.yaml")
		output     = flag.String("output", "png", "output: png | term | serve | led")
		preset     = flag.String("preset", "", "named parameter preset")
		size       = flag.String("size", "320x180", "viewport WxH in CSS pixels")
		dpr        = flag.Float64("dpr", 1, "device pixel ratio")
		fps        = flag.Int("fps", 30, "target frames per second")
		frames     = flag.Int("frames", 60, "frames to write (png)")
		outDir     = flag.String("out", "frames", "output directory (png)")
		addr       = flag.String("addr", ":8080", "HTTP listen address (serve)")
		seed       = flag.Int64("seed", 1, "noise seed")
		seqPath    = flag.String("sequence", "", "automation timeline yaml")
		workers    = flag.Int("workers", 0, "scene workers, 0 for one per CPU")
		logLevel   = flag.String("log-level", "info", "debug | info | warn | error")
		debug      = flag.Bool("debug", false, "show march step heat instead of the image")
		lowPerf    = flag.Bool("low-perf", false, "start in low-performance mode")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		cfg = config.Default()
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			cfg.Output = *output
		case "preset":
			cfg.Preset = *preset
		case "size":
			w, h, err := parseSize(*size)
			if err != nil {
				flagErr = err
				return
			}
			cfg.Size.W, cfg.Size.H = w, h
		case "dpr":
			cfg.Size.DPR = *dpr
		case "fps":
			cfg.FPS = *fps
		case "frames":
			cfg.Frames = *frames
		case "out":
			cfg.OutDir = *outDir
		case "addr":
			cfg.Addr = *addr
		case "seed":
			cfg.Seed = *seed
		case "sequence":
			cfg.Sequence = *seqPath
		case "workers":
			cfg.Workers = *workers
		case "log-level":
			cfg.LogLevel = *logLevel
		case "debug":
			cfg.Overrides.Debug = debug
		case "low-perf":
			cfg.Overrides.LowPerf = lowPerf
		}
	})
	if flagErr == nil {
		flagErr = cfg.Validate()
	}
	if flagErr != nil {
		fmt.Fprintln(os.Stderr, flagErr)
		os.Exit(2)
	}

	// ---- Logging ----
	var out io.Writer = os.Stdout
	if cfg.Output == "term" {
		// the terminal belongs to the renderer
		f, err := os.OpenFile("lensfield.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			out = io.Discard
		} else {
			defer f.Close()
			out = f
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		zerolog.SetGlobalLevel(lvl)
	}

	a := &app{cfg: cfg, configPath: *configPath}
	if err := a.run(); err != nil {
		log.Error().Err(err).Str("output", cfg.Output).Msg("lensfield stopped")
		os.Exit(1)
	}
}

func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q: want WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	return w, h, nil
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/lensfield/internal/config"
	diag "github.com/coreman2200/lensfield/internal/diagnostics"
	"github.com/coreman2200/lensfield/internal/render"
)

type discard struct{}

func (discard) Write(render.Frame) error { return nil }

func TestParseSize(t *testing.T) {
	w, h, err := parseSize("640X360")
	require.NoError(t, err)
	assert.Equal(t, 640, w)
	assert.Equal(t, 360, h)

	for _, bad := range []string{"640", "ax3", "3xb", ""} {
		_, _, err := parseSize(bad)
		assert.Error(t, err, bad)
	}
}

func TestRunPNGWritesFrames(t *testing.T) {
	cfg := config.Default()
	cfg.Size = config.Size{W: 12, H: 8, DPR: 1}
	cfg.Frames = 3
	cfg.Workers = 2
	cfg.OutDir = filepath.Join(t.TempDir(), "frames")

	a := &app{cfg: cfg}
	require.NoError(t, a.run())

	entries, err := os.ReadDir(cfg.OutDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Len(t, a.history, 3)
	assert.False(t, a.eng.Quality().LowPerf)
}

func TestPacedHostKeepsFullQuality(t *testing.T) {
	cfg := config.Default()
	cfg.Size = config.Size{W: 8, H: 6, DPR: 1}
	a := &app{cfg: cfg}

	var degraded int
	sink := func(d diag.Diagnostic) {
		if d.Code == diag.CodeQualityDegrade {
			degraded++
		}
	}
	require.NoError(t, a.newEngine(cfg.Size.W, cfg.Size.H, cfg.Size.DPR, discard{}, sink, a.paced()))
	for i := 0; i < 4*cfg.FPS; i++ {
		require.NoError(t, a.eng.Tick(1/float64(cfg.FPS)))
	}
	assert.False(t, a.eng.Quality().LowPerf)
	assert.True(t, a.eng.Program().Features.Caustics)
	assert.Zero(t, degraded)
}

func TestRunPNGWithSequence(t *testing.T) {
	dir := t.TempDir()
	seq := filepath.Join(dir, "seq.yaml")
	require.NoError(t, os.WriteFile(seq, []byte(`version: seq.v1
loop: true
clips:
  - name: a
    preset: Checkers
    duration_s: 1
    inputs:
      scroll:
        keys: [{t: 0, v: 0}, {t: 1, v: 1}]
`), 0o644))

	cfg := config.Default()
	cfg.Size = config.Size{W: 8, H: 6, DPR: 1}
	cfg.Frames = 2
	cfg.OutDir = filepath.Join(dir, "frames")
	cfg.Sequence = seq

	a := &app{cfg: cfg}
	require.NoError(t, a.run())
	require.NotNil(t, a.player)
	assert.Equal(t, "Checkers", a.eng.Program().Bundle.Name)
}

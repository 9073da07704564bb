package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexSerpentine(t *testing.T) {
	l := Layout{Dim: Dim{X: 4, Y: 3, Z: 2}, Order: Serpentine{XFlipEveryRow: true, YFlipEveryPanel: true}}
	assert.Equal(t, 0, l.Index(0, 0, 0))
	assert.Equal(t, 7, l.Index(0, 1, 0))
	assert.Equal(t, 4, l.Index(3, 1, 0))
	// odd panel runs bottom-up
	assert.Equal(t, 12+2*4, l.Index(0, 0, 1))
	assert.Equal(t, 24, l.Count())
}

func TestPositionsCoverEveryLED(t *testing.T) {
	l := Layout{Dim: Dim{X: 4, Y: 3, Z: 2}, Order: Serpentine{XFlipEveryRow: true}, PitchMM: 10, PanelGapMM: 20}
	pos := l.Positions()
	require.Len(t, pos, l.Count())
	seen := map[Point]bool{}
	for _, p := range pos {
		assert.Greater(t, p.U, 0.0)
		assert.Less(t, p.U, 1.0)
		assert.Greater(t, p.V, 0.0)
		assert.Less(t, p.V, 1.0)
		seen[p] = true
	}
	assert.Len(t, seen, l.Count())
}

func TestPanelGapShiftsLowerPanels(t *testing.T) {
	l := Layout{Dim: Dim{X: 1, Y: 1, Z: 2}, PitchMM: 10, PanelGapMM: 20}
	w, h := l.Extent()
	assert.Equal(t, 10.0, w)
	assert.Equal(t, 40.0, h)
	pos := l.Positions()
	assert.InDelta(t, 5.0/40, pos[0].V, 1e-12)
	assert.InDelta(t, 35.0/40, pos[1].V, 1e-12)

	du, dv := l.CellSize()
	assert.Equal(t, 1.0, du)
	assert.Equal(t, 0.25, dv)
}

func TestEmptyLayout(t *testing.T) {
	l := Layout{}
	assert.False(t, l.Valid())
	assert.Empty(t, l.Positions())
}

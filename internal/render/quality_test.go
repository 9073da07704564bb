package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundsFor(t *testing.T) {
	assert.Equal(t, Bounds{50, 80}, BoundsFor(120))
	assert.Equal(t, Bounds{50, 60}, BoundsFor(60))
	assert.Equal(t, Bounds{25, 30}, BoundsFor(30))
}

func TestMonitorFiresOnce(t *testing.T) {
	calls := 0
	m := NewMonitor(60, func(float64) { calls++ })
	for i := 0; i < 1000; i++ {
		m.Observe(0.05) // 20 fps
	}
	assert.Equal(t, 1, calls)
	assert.True(t, m.Declined())
}

func TestMonitorQuietWhenFast(t *testing.T) {
	calls := 0
	m := NewMonitor(144, func(float64) { calls++ })
	for i := 0; i < 5000; i++ {
		m.Observe(1.0 / 144)
	}
	assert.Equal(t, 0, calls)
	assert.False(t, m.Declined())
}

func TestMonitorNeedsFullIterations(t *testing.T) {
	calls := 0
	m := NewMonitor(60, func(float64) { calls++ })
	// nine slow windows are not enough
	for i := 0; i < 9*5; i++ {
		m.Observe(0.05)
	}
	assert.Equal(t, 0, calls)
	for i := 0; i < 5; i++ {
		m.Observe(0.05)
	}
	assert.Equal(t, 1, calls)
}

func TestMonitorQuietAtSlowTarget(t *testing.T) {
	calls := 0
	m := NewMonitor(30, func(float64) { calls++ })
	for i := 0; i < 600; i++ {
		m.Observe(1.0 / 30)
	}
	assert.Equal(t, 0, calls)
}

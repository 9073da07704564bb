package render

import "time"

// Bounds is the frame-rate band the monitor tolerates.
type Bounds struct{ Lower, Upper float64 }

// BoundsFor picks the band for a host that paces frames at targetFPS. A
// 60 fps host gets [50,60]; slower hosts scale the same ratio down.
func BoundsFor(targetFPS float64) Bounds {
	if targetFPS > 60 {
		return Bounds{Lower: 50, Upper: 80}
	}
	return Bounds{Lower: targetFPS * 5 / 6, Upper: targetFPS}
}

const (
	DefaultMonitorWindow     = 250 * time.Millisecond
	DefaultMonitorIterations = 10
)

// Monitor averages frame rate over Iterations windows and calls OnDecline
// the first time the average falls below Bounds.Lower. After that it stops
// judging; quality never comes back.
type Monitor struct {
	Bounds     Bounds
	Window     time.Duration
	Iterations int
	OnDecline  func(fps float64)

	acc     float64
	frames  int
	samples []float64
	fired   bool
}

func NewMonitor(targetFPS float64, onDecline func(fps float64)) *Monitor {
	return &Monitor{
		Bounds:     BoundsFor(targetFPS),
		Window:     DefaultMonitorWindow,
		Iterations: DefaultMonitorIterations,
		OnDecline:  onDecline,
	}
}

// Observe records one frame that took dt seconds.
func (m *Monitor) Observe(dt float64) {
	if m.fired || dt <= 0 {
		return
	}
	m.acc += dt
	m.frames++
	if m.acc < m.Window.Seconds() {
		return
	}
	m.samples = append(m.samples, float64(m.frames)/m.acc)
	m.acc, m.frames = 0, 0

	if len(m.samples) < m.Iterations {
		return
	}
	var sum float64
	for _, s := range m.samples {
		sum += s
	}
	avg := sum / float64(len(m.samples))
	m.samples = m.samples[:0]
	if avg < m.Bounds.Lower {
		m.fired = true
		if m.OnDecline != nil {
			m.OnDecline(avg)
		}
	}
}

func (m *Monitor) Declined() bool { return m.fired }

package led

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/lensfield/internal/render"
)

func whites(n int) []render.Color {
	buf := make([]render.Color, n)
	for i := range buf {
		buf[i] = render.Color{R: 1, G: 1, B: 1}
	}
	return buf
}

func TestLimiterBudgetClamp(t *testing.T) {
	// 10 LEDs at 60mA each against a 300mA supply
	buf := whites(10)
	l := Limiter{WhiteCap: 3, ChanMA: 20, BudgetMA: 300, Knee: 0.9}
	assert.InDelta(t, 600, l.Current(buf), 1e-6)
	l.Apply(buf)
	assert.LessOrEqual(t, l.Current(buf), 300.0)
	assert.Greater(t, l.Current(buf), 270.0)
}

func TestLimiterKnee(t *testing.T) {
	l := Limiter{ChanMA: 20, BudgetMA: 1000, Knee: 0.5}

	under := whites(5) // 300mA, below the knee
	l.Apply(under)
	assert.Equal(t, whites(5), under)

	// 750mA sits halfway between knee and budget
	mid := whites(15)
	for i := range mid {
		mid[i] = render.Color{R: 1, G: 1, B: 0.5}
	}
	before := l.Current(mid)
	l.Apply(mid)
	after := l.Current(mid)
	assert.Less(t, after, before)
	assert.Greater(t, after, before*0.75)
}

func TestLimiterWhiteCap(t *testing.T) {
	buf := whites(1)
	Limiter{WhiteCap: 1.5}.Apply(buf)
	assert.InDelta(t, 1.5, buf[0].R+buf[0].G+buf[0].B, 1e-5)

	buf = whites(1)
	DefaultLimiter().Apply(buf)
	assert.Equal(t, whites(1), buf)
}

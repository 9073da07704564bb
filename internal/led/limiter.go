package led

import "github.com/coreman2200/lensfield/internal/render"

// Limiter keeps the strip inside its power supply. Colours are linear 0..1
// drive levels.
type Limiter struct {
	WhiteCap float64 // max R+G+B per LED, 3 disables
	ChanMA   float64 // current per channel at full drive
	BudgetMA float64 // total supply budget, 0 disables
	Knee     float64 // fraction of the budget where scaling begins
}

func DefaultLimiter() Limiter {
	return Limiter{WhiteCap: 3, ChanMA: 20, Knee: 0.9}
}

// Current estimates the strip draw in mA.
func (l Limiter) Current(buf []render.Color) float64 {
	var total float64
	cm := float32(l.chanMA())
	for i := range buf {
		total += float64((buf[i].R + buf[i].G + buf[i].B) * cm)
	}
	return total
}

func (l Limiter) chanMA() float64 {
	if l.ChanMA > 0 {
		return l.ChanMA
	}
	return 20
}

// Apply caps each LED at WhiteCap, then compresses the strip's draw above
// Knee*BudgetMA so that it approaches but never exceeds BudgetMA.
func (l Limiter) Apply(buf []render.Color) {
	if l.WhiteCap > 0 {
		wc := float32(l.WhiteCap)
		for i := range buf {
			s := buf[i].R + buf[i].G + buf[i].B
			if s > wc {
				scale(buf[i:i+1], wc/s)
			}
		}
	}
	if l.BudgetMA <= 0 {
		return
	}
	total := l.Current(buf)
	knee := l.Knee
	if !(knee > 0 && knee < 1) {
		knee = 0.9
	}
	start := knee * l.BudgetMA
	if total <= start {
		return
	}
	excess, room := total-start, l.BudgetMA-start
	out := start + excess*room/(excess+room)
	scale(buf, float32(out/total))
}

func scale(buf []render.Color, s float32) {
	if s >= 1 {
		return
	}
	for i := range buf {
		buf[i].R *= s
		buf[i].G *= s
		buf[i].B *= s
	}
}

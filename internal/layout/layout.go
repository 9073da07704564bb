// Package layout maps LED strip indices to positions on a stack of
// serpentine-wired panels.
package layout

type Dim struct{ X, Y, Z int }

type Serpentine struct {
	XFlipEveryRow   bool
	YFlipEveryPanel bool
}

// Layout is Z panels of X*Y LEDs stacked top to bottom, PanelGapMM apart.
type Layout struct {
	Dim        Dim
	Order      Serpentine
	PanelGapMM float64
	PitchMM    float64
}

// Index maps x,y,z -> linear LED index (0..N-1)
func (l Layout) Index(x, y, z int) int {
	yy := y
	xx := x
	if (y%2 == 1) && l.Order.XFlipEveryRow {
		xx = l.Dim.X - 1 - x
	}
	if l.Order.YFlipEveryPanel && (z%2 == 1) {
		yy = l.Dim.Y - 1 - y
	}
	perPanel := l.Dim.X * l.Dim.Y
	return z*perPanel + yy*l.Dim.X + xx
}

func (l Layout) Count() int {
	return l.Dim.X * l.Dim.Y * l.Dim.Z
}

// Valid reports whether every dimension is positive.
func (l Layout) Valid() bool {
	return l.Dim.X > 0 && l.Dim.Y > 0 && l.Dim.Z > 0
}

func (l Layout) pitch() float64 {
	if l.PitchMM > 0 {
		return l.PitchMM
	}
	return 1
}

func (l Layout) gap() float64 {
	if l.PanelGapMM > 0 {
		return l.PanelGapMM
	}
	return 0
}

// Extent is the physical size in mm of the whole stack.
func (l Layout) Extent() (w, h float64) {
	p := l.pitch()
	w = float64(l.Dim.X) * p
	h = float64(l.Dim.Z*l.Dim.Y)*p + float64(max(l.Dim.Z-1, 0))*l.gap()
	return w, h
}

// Point is a position normalised to the stack extent, (0,0) at the top left.
type Point struct{ U, V float64 }

// Positions returns the centre of each LED, indexed by strip order.
func (l Layout) Positions() []Point {
	out := make([]Point, l.Count())
	if len(out) == 0 {
		return out
	}
	p, g := l.pitch(), l.gap()
	w, h := l.Extent()
	panelH := float64(l.Dim.Y)*p + g
	for z := 0; z < l.Dim.Z; z++ {
		for y := 0; y < l.Dim.Y; y++ {
			for x := 0; x < l.Dim.X; x++ {
				px := (float64(x) + 0.5) * p
				py := float64(z)*panelH + (float64(y)+0.5)*p
				out[l.Index(x, y, z)] = Point{U: px / w, V: py / h}
			}
		}
	}
	return out
}

// CellSize is one LED's footprint in normalised units.
func (l Layout) CellSize() (du, dv float64) {
	w, h := l.Extent()
	if w == 0 || h == 0 {
		return 0, 0
	}
	return l.pitch() / w, l.pitch() / h
}

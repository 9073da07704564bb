// Package term draws frames into a terminal with half-block cells and turns
// mouse, wheel and resize events into engine input.
package term

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/guptarohit/asciigraph"

	"github.com/coreman2200/lensfield/internal/anim"
	"github.com/coreman2200/lensfield/internal/render"
)

// Controller receives the input gathered from the terminal.
type Controller interface {
	SetPointer(x, y float64)
	SetScroll(s float64)
	Resize(w, h int, dpr float64) error
	Degrade()
}

const (
	historyCapacity = 120
	wheelStep       = 0.1 // viewport heights per wheel notch
)

var statusStyle = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorBlack)

// Screen is a render.Surface backed by a tcell screen. The bottom row holds a
// status line; every other cell shows two vertically stacked pixels.
type Screen struct {
	mu      sync.Mutex
	scr     tcell.Screen
	history []float64
	scroll  float64
	graph   bool
	frameID uint64
	Label   string
}

func New(scr tcell.Screen) *Screen {
	scr.EnableMouse()
	scr.HideCursor()
	return &Screen{scr: scr, Label: "lensfield"}
}

// Grid is the frame size in pixels that fills the terminal.
func (s *Screen) Grid() (w, h int) {
	cols, rows := s.scr.Size()
	return max(cols, 1), max(rows-1, 1) * 2
}

// Record adds a frame time in ms to the history graph.
func (s *Screen) Record(ms float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == historyCapacity {
		copy(s.history, s.history[1:])
		s.history = s.history[:historyCapacity-1]
	}
	s.history = append(s.history, ms)
}

// Write implements render.Surface. Frames of a different size than Grid are
// scaled to fit by nearest sampling.
func (s *Screen) Write(f render.Frame) error {
	if f.W <= 0 || f.H <= 0 || len(f.Pix) < f.W*f.H {
		return fmt.Errorf("term: short frame %dx%d", f.W, f.H)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameID = f.ID
	cols, rows := s.scr.Size()
	body := max(rows-1, 1)
	for y := 0; y < body; y++ {
		top := (2 * y) * f.H / (2 * body)
		bot := (2*y + 1) * f.H / (2 * body)
		for x := 0; x < cols; x++ {
			px := x * f.W / cols
			st := tcell.StyleDefault.
				Foreground(rgb(f.Pix[top*f.W+px])).
				Background(rgb(f.Pix[bot*f.W+px]))
			s.scr.SetContent(x, y, '▀', nil, st)
		}
	}
	if s.graph && len(s.history) > 1 {
		s.drawGraph(cols)
	}
	s.drawStatus(cols, rows-1)
	s.scr.Show()
	return nil
}

func (s *Screen) drawGraph(cols int) {
	width := min(40, cols-12)
	if width < 8 {
		return
	}
	plot := asciigraph.Plot(s.history, asciigraph.Height(4), asciigraph.Width(width), asciigraph.Caption("frame ms"))
	for y, line := range strings.Split(plot, "\n") {
		x := 0
		for _, r := range line {
			if x >= cols {
				break
			}
			s.scr.SetContent(x, y, r, nil, statusStyle)
			x++
		}
	}
}

func (s *Screen) drawStatus(cols, row int) {
	last := 0.0
	if n := len(s.history); n > 0 {
		last = s.history[n-1]
	}
	text := fmt.Sprintf(" %s  frame %d  %.1fms  scroll %.1f  [g]raph [d]egrade [q]uit", s.Label, s.frameID, last, s.scroll)
	x := 0
	for _, r := range text {
		if x >= cols {
			break
		}
		s.scr.SetContent(x, row, r, nil, statusStyle)
		x++
	}
	for ; x < cols; x++ {
		s.scr.SetContent(x, row, ' ', nil, statusStyle)
	}
}

// Handle applies one terminal event to ctl. It returns false when the user
// asked to quit.
func (s *Screen) Handle(ev tcell.Event, ctl Controller) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() == tcell.KeyRune {
			switch ev.Rune() {
			case 'q':
				return false
			case 'g':
				s.mu.Lock()
				s.graph = !s.graph
				s.mu.Unlock()
			case 'd':
				ctl.Degrade()
			}
		}
	case *tcell.EventMouse:
		cols, rows := s.scr.Size()
		x, y := ev.Position()
		p := anim.PointerFromPage(float64(x)+0.5, float64(y)+0.5, float64(cols), float64(max(rows-1, 1)))
		ctl.SetPointer(p.X(), p.Y())
		btn := ev.Buttons()
		if btn&(tcell.WheelDown|tcell.WheelUp) != 0 {
			s.mu.Lock()
			if btn&tcell.WheelDown != 0 {
				s.scroll += wheelStep
			} else {
				s.scroll = max(s.scroll-wheelStep, 0)
			}
			sc := s.scroll
			s.mu.Unlock()
			ctl.SetScroll(sc)
		}
	case *tcell.EventResize:
		s.scr.Sync()
		w, h := s.Grid()
		_ = ctl.Resize(w, h, 1)
	}
	return true
}

// Close restores the terminal.
func (s *Screen) Close() {
	s.scr.Fini()
}

func rgb(c render.Color) tcell.Color {
	r, g, b := c.RGB8()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

// Package led pushes rendered frames to a WS281x strip over SPI, or to the
// console when no SPI port is present.
package led

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/coreman2200/lensfield/internal/layout"
	"github.com/coreman2200/lensfield/internal/render"
)

type Options struct {
	Port       string // spireg name, "" for the first registered port
	FreqKHz    int
	Brightness float64
	Limiter    Limiter
}

// Panel samples each frame at the LED positions of a layout and draws the
// result as one strip.
type Panel struct {
	mu         sync.Mutex
	drawer     display.Drawer
	layout     layout.Layout
	pos        []layout.Point
	img        *image.NRGBA
	buf        []render.Color
	brightness float64

	Limiter Limiter

	// Hardware is false when drawing to the console.
	Hardware bool
}

// Open initialises the host and opens the SPI port. Without a port it falls
// back to a console drawer so the rest of the pipeline still runs.
func Open(l layout.Layout, o Options, log zerolog.Logger) (*Panel, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid led layout %+v", l.Dim)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	port, err := spireg.Open(o.Port)
	if err != nil {
		log.Warn().Err(err).Msg("no SPI port, printing at the console")
		p := NewPanel(screen.New(l.Count()), l, o.Brightness)
		p.Limiter = o.Limiter
		return p, nil
	}
	freq := o.FreqKHz
	if freq <= 0 {
		freq = 2500
	}
	d, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: l.Count(),
		Channels:  3,
		Freq:      physic.Frequency(freq) * physic.KiloHertz,
	})
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	log.Info().Str("port", d.String()).Int("leds", l.Count()).Msg("led strip ready")
	p := NewPanel(d, l, o.Brightness)
	p.Limiter = o.Limiter
	p.Hardware = true
	return p, nil
}

func NewPanel(d display.Drawer, l layout.Layout, brightness float64) *Panel {
	return &Panel{
		drawer:     d,
		layout:     l,
		pos:        l.Positions(),
		img:        image.NewNRGBA(image.Rect(0, 0, l.Count(), 1)),
		buf:        make([]render.Color, l.Count()),
		brightness: clamp(brightness),
		Limiter:    DefaultLimiter(),
	}
}

// Write implements render.Surface.
func (p *Panel) Write(f render.Frame) error {
	if f.W <= 0 || f.H <= 0 || len(f.Pix) < f.W*f.H {
		return fmt.Errorf("led: short frame %dx%d", f.W, f.H)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	du, dv := p.layout.CellSize()
	gain := float32(p.brightness)
	for i, pt := range p.pos {
		c := Sample(f, pt, du, dv)
		p.buf[i] = render.Color{R: clamp32(c.R) * gain, G: clamp32(c.G) * gain, B: clamp32(c.B) * gain}
	}
	p.Limiter.Apply(p.buf)
	for i, c := range p.buf {
		r, g, b := c.RGB8()
		p.img.SetNRGBA(i, 0, color.NRGBA{R: r, G: g, B: b, A: 0xff})
	}
	return p.drawer.Draw(p.drawer.Bounds(), p.img, image.Point{})
}

// Close blanks the strip.
func (p *Panel) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drawer.Halt()
}

// Sample averages the frame pixels under one LED's footprint. du and dv are
// the footprint size in normalised units; a footprint smaller than a pixel
// reads the nearest pixel.
func Sample(f render.Frame, pt layout.Point, du, dv float64) render.Color {
	x0, x1 := span(pt.U, du, f.W)
	y0, y1 := span(pt.V, dv, f.H)
	var r, g, b float32
	n := 0
	for y := y0; y < y1; y++ {
		row := f.Pix[y*f.W : (y+1)*f.W]
		for x := x0; x < x1; x++ {
			r += row[x].R
			g += row[x].G
			b += row[x].B
			n++
		}
	}
	inv := 1 / float32(n)
	return render.Color{R: r * inv, G: g * inv, B: b * inv}
}

func span(c, size float64, n int) (int, int) {
	lo := int((c - size/2) * float64(n))
	hi := int((c + size/2) * float64(n))
	lo = min(max(lo, 0), n-1)
	hi = min(max(hi, lo+1), n)
	return lo, hi
}

func clamp32(v float32) float32 {
	return float32(clamp(float64(v)))
}

func clamp(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

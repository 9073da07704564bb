// Package pngseq writes each frame to a numbered PNG file.
package pngseq

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/coreman2200/lensfield/internal/render"
)

// Pattern names the files; it receives the frame ID.
const Pattern = "frame_%05d.png"

type Writer struct {
	Dir     string
	Written int
	enc     png.Encoder
}

// New creates dir if needed.
func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	return &Writer{Dir: dir, enc: png.Encoder{CompressionLevel: png.BestSpeed}}, nil
}

// Path is the file a frame with the given ID is written to.
func (w *Writer) Path(id uint64) string {
	return filepath.Join(w.Dir, fmt.Sprintf(Pattern, id))
}

// Write implements render.Surface.
func (w *Writer) Write(f render.Frame) error {
	img, err := Image(f)
	if err != nil {
		return err
	}
	path := w.Path(f.ID)
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := w.enc.Encode(out, img); err != nil {
		out.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	w.Written++
	return nil
}

// Image converts f to an 8-bit image.
func Image(f render.Frame) (*image.NRGBA, error) {
	if f.W <= 0 || f.H <= 0 || len(f.Pix) < f.W*f.H {
		return nil, fmt.Errorf("pngseq: short frame %dx%d", f.W, f.H)
	}
	img := image.NewNRGBA(image.Rect(0, 0, f.W, f.H))
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			r, g, b := f.Pix[y*f.W+x].RGB8()
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 0xff})
		}
	}
	return img, nil
}

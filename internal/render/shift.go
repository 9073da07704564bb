package render

import (
	"github.com/chewxy/math32"

	"github.com/coreman2200/lensfield/internal/noise"
	"github.com/coreman2200/lensfield/internal/params"
)

// shiftSample reads each channel from its own horizontally offset column,
// plus a per-row wobble driven by smooth noise over wall-clock time.
func shiftSample(s params.Shift, src *noise.Source) func(dst, scene []Color, c *PostContext) {
	offs := [3]float32{float32(s.RedOffset), float32(s.GreenOffset), float32(s.BlueOffset)}
	return func(dst, scene []Color, c *PostContext) {
		w, h := c.W, c.H
		for y := 0; y < h; y++ {
			v := float64(h-1-y) / float64(h)
			wob := float32(s.Distortion * src.Noise2D(v*4, c.Elapsed*s.Speed) * 0.01)
			row := scene[y*w : (y+1)*w]
			for x := 0; x < w; x++ {
				u := (float32(x) + 0.5) / float32(w)
				r := row[column(u+offs[0]+wob, w)].R
				g := row[column(u+offs[1]+wob, w)].G
				b := row[column(u+offs[2]+wob, w)].B
				dst[y*w+x] = clampColor(Color{r, g, b})
			}
		}
	}
}

// column maps u to a pixel column, clamping to the edges.
func column(u float32, w int) int {
	x := int(math32.Floor(u * float32(w)))
	if x < 0 {
		return 0
	}
	if x >= w {
		return w - 1
	}
	return x
}

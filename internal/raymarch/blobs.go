package raymarch

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/coreman2200/lensfield/internal/params"
)

// Falloff is the glow of one blob at uv, already offset to the blob centre.
func Falloff(uv, dims mgl64.Vec2) float64 {
	l := mgl64.Vec2{uv[0] / dims[0], uv[1] / dims[1]}.Len()
	if l == 0 {
		return 1
	}
	return smoothstep(0.01, 0.6, 0.07/l)
}

// FadeDivisor grows once scroll passes f.After and saturates at 1+f.Max.
func FadeDivisor(scroll float64, f params.BlobFade) float64 {
	return 1 + clamp((scroll-f.After)*f.Coeff, 0, f.Max)
}

// Layer sums the glow of blobs at uv and clamps the result to [0,1]. Each
// blob's falloff is divided by divisor; pass 1 for no fade.
func Layer(uv mgl64.Vec2, blobs []params.Blob, divisor float64) mgl64.Vec3 {
	var col mgl64.Vec3
	for _, b := range blobs {
		if b.Strength <= 0 {
			continue
		}
		// centre lands at (x, -y) in uv space
		at := mgl64.Vec2{uv[0] - b.Pos.X, uv[1] + b.Pos.Y}
		f := Falloff(at, mgl64.Vec2{b.Dims.X, b.Dims.Y}) / divisor * b.Strength
		col = col.Add(rgb(b.Color).Mul(f))
	}
	return clampVec(col)
}

func smoothstep(e0, e1, x float64) float64 {
	t := clamp((x-e0)/(e1-e0), 0, 1)
	return t * t * (3 - 2*t)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func clampVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{clamp(v[0], 0, 1), clamp(v[1], 0, 1), clamp(v[2], 0, 1)}
}

func rgb(c params.RGB) mgl64.Vec3 { return mgl64.Vec3{c.R, c.G, c.B} }

func mix(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// normalize returns the unit vector along v, or -z for a zero vector.
func normalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l == 0 {
		return mgl64.Vec3{0, 0, -1}
	}
	return v.Mul(1 / l)
}

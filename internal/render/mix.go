package render

// Mix blends a and b into dst by alpha (0..1).
func Mix(dst, a, b []Color, alpha float64) {
	if alpha <= 0 {
		copy(dst, a)
		return
	}
	if alpha >= 1 {
		copy(dst, b)
		return
	}
	af := float32(1.0 - alpha)
	bf := float32(alpha)
	for i := range dst {
		dst[i].R = a[i].R*af + b[i].R*bf
		dst[i].G = a[i].G*af + b[i].G*bf
		dst[i].B = a[i].B*af + b[i].B*bf
	}
}

// DebugMult scales field evaluations per pixel into the red channel.
const DebugMult = 1.0 / 500

// Heat renders per-pixel step counts as shades of red.
func Heat(dst []Color, steps []float32) {
	for i, s := range steps {
		dst[i] = Color{R: clamp01(s * DebugMult)}
	}
}

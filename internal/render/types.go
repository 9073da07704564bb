package render

import "errors"

var (
	ErrTargetTooLarge = errors.New("render target exceeds pixel budget")
	ErrAllocFailed    = errors.New("render target allocation failed")
)

type Color struct{ R, G, B float32 }

// Frame is one composited image, row 0 at the top. Pix is owned by the
// engine and only valid until the next Tick; surfaces that keep it must copy.
type Frame struct {
	ID   uint64
	W, H int
	Pix  []Color
}

// Surface is wherever finished frames go (PNG files, a terminal, a socket,
// an LED panel).
type Surface interface {
	Write(f Frame) error
}

// Viewport is the logical size reported by the host plus its pixel ratio.
type Viewport struct {
	W, H int
	DPR  float64
}

func (v Viewport) valid() bool { return v.W > 0 && v.H > 0 && v.DPR > 0 }

// QualityState only ever moves from full quality to low performance.
type QualityState struct {
	LowPerf bool
	DPRCap  float64
}

const lowPerfDPR = 0.5

func (q QualityState) degraded() QualityState {
	return QualityState{LowPerf: true, DPRCap: lowPerfDPR}
}

// ToRGB8 packs a frame into interleaved 8-bit RGB.
func ToRGB8(dst []byte, pix []Color) []byte {
	if cap(dst) < len(pix)*3 {
		dst = make([]byte, len(pix)*3)
	}
	dst = dst[:len(pix)*3]
	for i, c := range pix {
		dst[i*3+0] = to8(c.R)
		dst[i*3+1] = to8(c.G)
		dst[i*3+2] = to8(c.B)
	}
	return dst
}

// RGB8 is c clamped and quantised to 8 bits per channel.
func (c Color) RGB8() (r, g, b uint8) {
	return to8(c.R), to8(c.G), to8(c.B)
}

func to8(v float32) byte {
	return byte(clamp01(v)*255 + 0.5)
}

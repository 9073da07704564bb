package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoiseBoundedAndDeterministic(t *testing.T) {
	a := New(7)
	b := New(7)
	for i := 0; i < 2000; i++ {
		x := float64(i)*0.173 - 50
		y := float64(i%37) * 1.91
		v := a.Noise2D(x, y)
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)
		assert.Equal(t, v, b.Noise2D(x, y))
	}
}

func TestNoiseVaries(t *testing.T) {
	s := New(1)
	seen := map[float64]bool{}
	for i := 0; i < 64; i++ {
		seen[s.Noise2D(float64(i)*0.37+0.1, 3.3)] = true
	}
	assert.Greater(t, len(seen), 32)
}

func TestDitherRange(t *testing.T) {
	tex := NewDither(New(1), TextureSize, TextureSize)
	require.Len(t, tex.Pix, TextureSize*TextureSize)
	for _, v := range tex.Pix {
		require.GreaterOrEqual(t, v, uint8(100))
		require.LessOrEqual(t, v, uint8(250))
	}
}

func TestTextureWraps(t *testing.T) {
	tex := NewDither(New(3), 8, 8)
	assert.Equal(t, tex.At(1, 2), tex.At(9, 10))
	assert.Equal(t, tex.At(7, 7), tex.At(-1, -1))
}

package params

import (
	"fmt"
	"sort"
)

const DefaultPreset = "Gel"

// hex "#191819"
var sceneColor = RGB{0x19 / 255.0, 0x18 / 255.0, 0x19 / 255.0}

// Default returns the stock bundle.
func Default() Bundle {
	return Bundle{
		Name: DefaultPreset,
		Light: Light{
			HalfWidth:        0.5,
			HalfHeight:       0.3,
			MatchAspectRatio: true,
			Color:            RGB{1, 0.96, 0.9},
		},
		Material: Material{
			RefractionIndex:  0.92,
			Diffuseness:      0.12,
			ReflectIntensity: 1.6,
			CausticIntensity: 0.015,
			Color:            RGB{0.1, 0.1, 0.12},
			LightMix:         0.15,
			Contrast:         1.1,
			Brightness:       0,
			BgIntensity:      1.2,
			BgSaturation:     0.8,
		},
		Scene: Scene{
			Color:            sceneColor,
			Pattern:          PatternDots,
			PatternScale:     12,
			PatternIntensity: 0.35,
			BgVisible:        true,
			RefractBg:        true,
			Caustics:         true,
		},
		BgBlobs: []Blob{
			{Pos: Vec2{0.3, 0.2}, Dims: Vec2{1.2, 0.8}, Color: RGB{0.45, 0.2, 0.7}, Strength: 0.6},
			{Pos: Vec2{-0.35, -0.15}, Dims: Vec2{0.9, 1.1}, Color: RGB{0.1, 0.35, 0.8}, Strength: 0.5},
			{Pos: Vec2{0, 0.35}, Dims: Vec2{1.4, 0.6}, Color: RGB{0.9, 0.4, 0.2}, Strength: 0.3},
		},
		FgBlobs: []Blob{
			{Pos: Vec2{-0.4, 0.45}, Dims: Vec2{1.5, 0.5}, Color: RGB{0.3, 0.25, 0.5}, Strength: 0.15},
		},
		BlobFade: BlobFade{After: 0.5, Coeff: 1.5, Max: 3},
		Post: Post{
			Contrast:   1.67,
			Brightness: 0.147,
			ACES:       true,
			FilmGrain:  0.99,
			Vignette:   0.35,
			Shift:      Shift{Distortion: 0.5, Speed: 0.5},
		},
		Animation: Animation{
			Speed:     2.0 / 500.0,
			TimeScale: 1.0 / 100.0,
			MaxBreak:  4,
		},
		MaxDPR:      1,
		PixelBudget: 3840 * 2160,
	}
}

var presets = map[string]func(b *Bundle){
	DefaultPreset: func(b *Bundle) {},
	"Checkers": func(b *Bundle) {
		b.Scene.Pattern = PatternCheckers
		b.Scene.PatternScale = 6
		b.Scene.PatternIntensity = 0.25
	},
	// Plain drops every decorative term: flat scene colour, no blobs.
	"Plain": func(b *Bundle) {
		b.Scene.Pattern = PatternNone
		b.BgBlobs = nil
		b.FgBlobs = nil
		b.Post.Vignette = 0
	},
	"Ember": func(b *Bundle) {
		b.Light.Color = RGB{1, 0.7, 0.45}
		b.Material.Color = RGB{0.2, 0.08, 0.04}
		b.Material.CausticIntensity = 0.025
		b.BgBlobs = []Blob{
			{Pos: Vec2{0.2, 0.1}, Dims: Vec2{1.3, 0.9}, Color: RGB{0.95, 0.35, 0.1}, Strength: 0.7},
			{Pos: Vec2{-0.4, -0.2}, Dims: Vec2{0.8, 1.0}, Color: RGB{0.7, 0.15, 0.3}, Strength: 0.45},
		}
		b.Post.Shift = Shift{Enabled: true, RedOffset: 0.002, BlueOffset: -0.002, Distortion: 0.5, Speed: 0.5}
	},
}

// Presets lists the preset names in sorted order.
func Presets() []string {
	out := make([]string, 0, len(presets))
	for k := range presets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Preset returns Default() with the named preset applied.
func Preset(name string) (Bundle, error) {
	b := Default()
	if err := ApplyPreset(name, &b); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

// ApplyPreset patches b in place.
func ApplyPreset(name string, b *Bundle) error {
	if name == "" {
		name = DefaultPreset
	}
	fn, ok := presets[name]
	if !ok {
		return fmt.Errorf("preset not found: %s", name)
	}
	fn(b)
	b.Name = name
	return nil
}

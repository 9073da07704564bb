package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/lensfield/internal/params"
)

// DefaultPath is where the CLI looks for a config when none is given.
const DefaultPath = "lensfield.yaml"

type Size struct {
	W   int     `yaml:"w"`
	H   int     `yaml:"h"`
	DPR float64 `yaml:"dpr"`
}

type Dim struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	Z int `yaml:"z"`
}

// LED configures the SPI panel output.
type LED struct {
	Port       string  `yaml:"port,omitempty"`     // spireg name, "" for the first port
	FreqKHz    int     `yaml:"freq_khz,omitempty"` // e.g. 2500
	Brightness float64 `yaml:"brightness"`

	// current limiter
	BudgetMA float64 `yaml:"budget_ma,omitempty"` // 0 disables
	ChanMA   float64 `yaml:"chan_ma,omitempty"`
	WhiteCap float64 `yaml:"white_cap,omitempty"`
	Knee     float64 `yaml:"knee,omitempty"`

	Dim             Dim     `yaml:"dim"`
	PitchMM         float64 `yaml:"pitch_mm"`
	PanelGapMM      float64 `yaml:"panel_gap_mm"`
	XFlipEveryRow   bool    `yaml:"x_flip_every_row"`
	YFlipEveryPanel bool    `yaml:"y_flip_every_panel"`
}

// Blob overrides one decorative blob. Colours are hex strings.
type Blob struct {
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	W        float64 `yaml:"w"`
	H        float64 `yaml:"h"`
	Color    string  `yaml:"color"`
	Strength float64 `yaml:"strength"`
}

type Shift struct {
	RedOffset   float64 `yaml:"red_offset"`
	GreenOffset float64 `yaml:"green_offset"`
	BlueOffset  float64 `yaml:"blue_offset"`
	Distortion  float64 `yaml:"distortion"`
	Speed       float64 `yaml:"speed"`
}

// Overrides patch the chosen preset. Unset fields keep the preset's value.
type Overrides struct {
	SceneColor      string   `yaml:"scene_color,omitempty"`
	LightColor      string   `yaml:"light_color,omitempty"`
	MaterialColor   string   `yaml:"material_color,omitempty"`
	Pattern         string   `yaml:"pattern,omitempty"` // none | dots | checkers
	PatternScale    *float64 `yaml:"pattern_scale,omitempty"`
	RefractionIndex *float64 `yaml:"refraction_index,omitempty"`
	Caustics        *bool    `yaml:"caustics,omitempty"`
	Contrast        *float64 `yaml:"contrast,omitempty"`
	Brightness      *float64 `yaml:"brightness,omitempty"`
	ACES            *bool    `yaml:"aces,omitempty"`
	FilmGrain       *float64 `yaml:"film_grain,omitempty"`
	Vignette        *float64 `yaml:"vignette,omitempty"`
	Shift           *Shift   `yaml:"shift,omitempty"`
	BgBlobs         []Blob   `yaml:"bg_blobs,omitempty"`
	FgBlobs         []Blob   `yaml:"fg_blobs,omitempty"`
	MaxDPR          *float64 `yaml:"max_dpr,omitempty"`
	PixelBudget     *int     `yaml:"pixel_budget,omitempty"`
	LowPerf         *bool    `yaml:"low_perf,omitempty"`
	Debug           *bool    `yaml:"debug,omitempty"`
}

type Config struct {
	Output   string `yaml:"output"` // "png" | "term" | "serve" | "led"
	Preset   string `yaml:"preset"`
	Seed     int64  `yaml:"seed"`
	FPS      int    `yaml:"fps"`
	Size     Size   `yaml:"size"`
	Workers  int    `yaml:"workers,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`

	// png output
	OutDir string `yaml:"out_dir,omitempty"`
	Frames int    `yaml:"frames,omitempty"`

	// serve output
	Addr string `yaml:"addr,omitempty"`

	Sequence  string    `yaml:"sequence,omitempty"` // path to an automation timeline
	Overrides Overrides `yaml:"overrides,omitempty"`
	LED       LED       `yaml:"led,omitempty"`
}

func Default() *Config {
	return &Config{
		Output:   "png",
		Preset:   params.DefaultPreset,
		Seed:     1,
		FPS:      30,
		Size:     Size{W: 320, H: 180, DPR: 1},
		LogLevel: "info",
		OutDir:   "frames",
		Frames:   60,
		Addr:     ":8080",
		LED: LED{
			FreqKHz:    2500,
			Brightness: 0.5,
			ChanMA:     20,
			WhiteCap:   3,
			Knee:       0.9,
			Dim:        Dim{X: 16, Y: 16, Z: 1},
			PitchMM:    10,
		},
	}
}

// Load reads path over Default(), so a partial file keeps the defaults for
// everything it leaves out.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) Validate() error {
	switch c.Output {
	case "png", "term", "serve", "led":
	default:
		return fmt.Errorf("unknown output %q", c.Output)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.Size.W <= 0 || c.Size.H <= 0 || !(c.Size.DPR > 0) {
		return fmt.Errorf("invalid size %dx%d@%g", c.Size.W, c.Size.H, c.Size.DPR)
	}
	return nil
}

// Bundle resolves the preset and applies the overrides on top.
func (c *Config) Bundle() (params.Bundle, error) {
	b, err := params.Preset(c.Preset)
	if err != nil {
		return params.Bundle{}, err
	}
	if err := c.Overrides.apply(&b); err != nil {
		return params.Bundle{}, fmt.Errorf("overrides: %w", err)
	}
	return b, nil
}

func (o Overrides) apply(b *params.Bundle) error {
	colors := []struct {
		hex string
		dst *params.RGB
	}{
		{o.SceneColor, &b.Scene.Color},
		{o.LightColor, &b.Light.Color},
		{o.MaterialColor, &b.Material.Color},
	}
	for _, c := range colors {
		if c.hex == "" {
			continue
		}
		rgb, err := ParseColor(c.hex)
		if err != nil {
			return err
		}
		*c.dst = rgb
	}
	if o.Pattern != "" {
		p, err := ParsePattern(o.Pattern)
		if err != nil {
			return err
		}
		b.Scene.Pattern = p
	}
	setF(&b.Scene.PatternScale, o.PatternScale)
	setF(&b.Material.RefractionIndex, o.RefractionIndex)
	setB(&b.Scene.Caustics, o.Caustics)
	setF(&b.Post.Contrast, o.Contrast)
	setF(&b.Post.Brightness, o.Brightness)
	setB(&b.Post.ACES, o.ACES)
	setF(&b.Post.FilmGrain, o.FilmGrain)
	setF(&b.Post.Vignette, o.Vignette)
	if o.Shift != nil {
		b.Post.Shift = params.Shift{
			Enabled:     true,
			RedOffset:   o.Shift.RedOffset,
			GreenOffset: o.Shift.GreenOffset,
			BlueOffset:  o.Shift.BlueOffset,
			Distortion:  o.Shift.Distortion,
			Speed:       o.Shift.Speed,
		}
	}
	if o.BgBlobs != nil {
		blobs, err := toBlobs(o.BgBlobs)
		if err != nil {
			return fmt.Errorf("bg_blobs: %w", err)
		}
		b.BgBlobs = blobs
	}
	if o.FgBlobs != nil {
		blobs, err := toBlobs(o.FgBlobs)
		if err != nil {
			return fmt.Errorf("fg_blobs: %w", err)
		}
		b.FgBlobs = blobs
	}
	setF(&b.MaxDPR, o.MaxDPR)
	if o.PixelBudget != nil {
		b.PixelBudget = *o.PixelBudget
	}
	setB(&b.LowPerf, o.LowPerf)
	setB(&b.Debug, o.Debug)
	return nil
}

func toBlobs(in []Blob) ([]params.Blob, error) {
	out := make([]params.Blob, 0, len(in))
	for i, bl := range in {
		c, err := ParseColor(bl.Color)
		if err != nil {
			return nil, fmt.Errorf("blob %d: %w", i, err)
		}
		out = append(out, params.Blob{
			Pos:      params.Vec2{X: bl.X, Y: bl.Y},
			Dims:     params.Vec2{X: bl.W, Y: bl.H},
			Color:    c,
			Strength: bl.Strength,
		})
	}
	return out, nil
}

// ParseColor reads "#rrggbb" or "#rgb" into channel values in [0,1].
func ParseColor(hex string) (params.RGB, error) {
	h := strings.TrimSpace(hex)
	if !strings.HasPrefix(h, "#") {
		h = "#" + h
	}
	if len(h) == 4 {
		h = "#" + strings.Repeat(h[1:2], 2) + strings.Repeat(h[2:3], 2) + strings.Repeat(h[3:4], 2)
	}
	c, err := colorful.Hex(h)
	if err != nil {
		return params.RGB{}, fmt.Errorf("colour %q: %w", hex, err)
	}
	return params.RGB{R: c.R, G: c.G, B: c.B}, nil
}

// FormatColor is the inverse of ParseColor.
func FormatColor(c params.RGB) string {
	return colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped().Hex()
}

func ParsePattern(s string) (params.Pattern, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "off":
		return params.PatternNone, nil
	case "dots":
		return params.PatternDots, nil
	case "checkers", "checkerboard":
		return params.PatternCheckers, nil
	}
	return params.PatternNone, fmt.Errorf("unknown pattern %q", s)
}

func setF(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setB(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

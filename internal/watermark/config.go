// Package watermark lays out and draws single and tiled watermarks.
//
// Layout happens once against the reference (encode-space) canvas size and
// yields a Plan in normalized coordinates; drawing maps the plan onto
// whatever raster it is given, so a preview and the final export place the
// mark identically.
package watermark

import (
	"math"

	"github.com/MeKo-Tech/pressroom/internal/geometry"
)

// Type selects the watermark source.
type Type string

const (
	TypeNone   Type = "none"
	TypeText   Type = "text"
	TypeCustom Type = "custom"
)

// Repeat selects single or tiled placement.
type Repeat string

const (
	RepeatSingle Repeat = "single"
	RepeatTiled  Repeat = "tiled"
)

// Pattern arranges tiled cells.
type Pattern string

const (
	PatternGrid  Pattern = "grid"
	PatternBrick Pattern = "brick"
)

// Sizing constants in reference-canvas pixels.
const (
	SingleTextBase  = 200.0
	SingleImageBase = 400.0
	TiledTextBase   = 100.0
	TiledImageBase  = 80.0
	MinSpacing      = 20.0
	MinCells        = 8
	// GridSpan is the minimum grid extent as a multiple of each canvas
	// dimension.
	GridSpan = 4.0
)

// Config is the watermark section of the editing parameters.
type Config struct {
	Type     Type              `json:"type" yaml:"type"`
	Text     string            `json:"text" yaml:"text"`
	Opacity  float64           `json:"opacity" yaml:"opacity"`
	Position geometry.Position `json:"position" yaml:"position"`
	Scale    float64           `json:"scale" yaml:"scale"`
	Repeat   Repeat            `json:"repeat" yaml:"repeat"`
	Pattern  Pattern           `json:"pattern" yaml:"pattern"`
	SpacingH float64           `json:"spacingH" yaml:"spacingH"`
	SpacingV float64           `json:"spacingV" yaml:"spacingV"`
	Rotation float64           `json:"rotation" yaml:"rotation"`
	Density  float64           `json:"density" yaml:"density"`
	Font     string            `json:"font" yaml:"font"`
	Color    string            `json:"color" yaml:"color"`
	// ImageRef is where the custom image was loaded from. The decoded image
	// itself is owned by the editing session.
	ImageRef string `json:"customImage,omitempty" yaml:"customImage,omitempty"`
}

// DefaultConfig is a disabled watermark with sensible settings for when it
// gets switched on.
func DefaultConfig() Config {
	return Config{
		Type:     TypeNone,
		Text:     "© Pressroom",
		Opacity:  0.5,
		Position: geometry.BottomRight,
		Scale:    0.3,
		Repeat:   RepeatSingle,
		Pattern:  PatternGrid,
		SpacingH: 100,
		SpacingV: 100,
		Rotation: -30,
		Density:  1,
		Font:     "sans",
		Color:    "#ffffff",
	}
}

// Clamped returns c with every value inside its valid range.
func (c Config) Clamped() Config {
	c.Opacity = clamp(c.Opacity, 0, 1)
	c.Scale = clamp(c.Scale, 0.05, 5)
	c.SpacingH = clamp(c.SpacingH, 0, 2000)
	c.SpacingV = clamp(c.SpacingV, 0, 2000)
	c.Density = clamp(c.Density, 0.25, 4)
	if !c.Position.Valid() {
		c.Position = geometry.BottomRight
	}
	switch c.Type {
	case TypeNone, TypeText, TypeCustom:
	default:
		c.Type = TypeNone
	}
	if c.Repeat != RepeatTiled {
		c.Repeat = RepeatSingle
	}
	if c.Pattern != PatternBrick {
		c.Pattern = PatternGrid
	}
	if math.IsNaN(c.Rotation) || math.IsInf(c.Rotation, 0) {
		c.Rotation = 0
	}
	return c
}

// Enabled reports whether anything would be drawn.
func (c Config) Enabled() bool {
	switch c.Type {
	case TypeText:
		return c.Text != "" && c.Opacity > 0
	case TypeCustom:
		return c.Opacity > 0
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

package canvas

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/mazznoer/csscolorparser"
)

// ParseColor parses a CSS colour as the editor stores it: hex forms,
// rgb(a), hsl(a), hwb and named colours.
func ParseColor(s string) (color.NRGBA, error) {
	if strings.TrimSpace(s) == "" {
		return color.NRGBA{}, fmt.Errorf("empty color")
	}
	c, err := csscolorparser.Parse(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b, a := c.RGBA255()
	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

// MustColor is ParseColor with a fallback for invalid input.
func MustColor(s string, fallback color.NRGBA) color.NRGBA {
	c, err := ParseColor(s)
	if err != nil {
		return fallback
	}
	return c
}

// Hex formats c as #rrggbb, or #rrggbbaa when not opaque.
func Hex(c color.NRGBA) string {
	return csscolorparser.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
		A: float64(c.A) / 255,
	}.HexString()
}

// WithAlpha scales the alpha of c by a (0..1).
func WithAlpha(c color.NRGBA, a float64) color.NRGBA {
	c.A = clampU8(int(math.Round(float64(c.A) * math.Max(0, math.Min(1, a)))))
	return c
}

func clampU8(x int) uint8 {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return uint8(x)
}

// Package filter builds and applies the colour/tone adjustment pass of the
// compositing pipeline. Adjustments are expressed as a CSS-filter-like
// expression ("sepia(0.4) contrast(1.1) blur(2px)") so the same value can
// drive a browser preview and the raster implementation in this package.
package filter

import (
	"math"
	"strconv"
	"strings"
)

// Settings are the filter controls of an editing session.
type Settings struct {
	Preset      string  `json:"activeFilter" yaml:"activeFilter"`
	Brightness  float64 `json:"brightness" yaml:"brightness"`
	Contrast    float64 `json:"contrast" yaml:"contrast"`
	Saturation  float64 `json:"saturation" yaml:"saturation"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	Blur        float64 `json:"blur" yaml:"blur"`
}

// DefaultSettings is the neutral filter set.
func DefaultSettings() Settings {
	return Settings{Preset: PresetNone, Brightness: 1, Contrast: 1, Saturation: 1}
}

// Clamped returns s with every control inside its valid range.
func (s Settings) Clamped() Settings {
	s.Brightness = clampRange(s.Brightness, 0, 3)
	s.Contrast = clampRange(s.Contrast, 0, 3)
	s.Saturation = clampRange(s.Saturation, 0, 3)
	s.Temperature = clampRange(s.Temperature, -100, 100)
	s.Blur = clampRange(s.Blur, 0, 100)
	return s
}

// Neutral reports whether s changes no pixels.
func (s Settings) Neutral() bool {
	return s.String() == ""
}

// String is the filter expression for s.
func (s Settings) String() string {
	return BuildFilterString(s.Preset, s.Brightness, s.Contrast, s.Saturation, s.Temperature, s.Blur)
}

// BuildFilterString composes the preset's base expression with the manual
// adjustments. Terms that would have no effect are left out, so a neutral
// set yields "".
func BuildFilterString(preset string, brightness, contrast, saturation, temperature, blur float64) string {
	parts := make([]string, 0, 8)
	if base := Presets[preset]; base != "" {
		parts = append(parts, base)
	}

	if brightness != 1 {
		parts = append(parts, Term{Name: "brightness", Value: brightness}.String())
	}
	if contrast != 1 {
		parts = append(parts, Term{Name: "contrast", Value: contrast}.String())
	}
	if saturation != 1 {
		parts = append(parts, Term{Name: "saturate", Value: saturation}.String())
	}

	if temperature != 0 {
		parts = append(parts, Term{Name: "sepia", Value: math.Abs(temperature) / 100 * 0.3}.String())
		// Warm keeps the sepia tint as-is (a 0deg rotation); cool turns it
		// to the opposite hue.
		if temperature < 0 {
			parts = append(parts, Term{Name: "hue-rotate", Value: 180}.String())
		}
	}

	if blur > 0 {
		parts = append(parts, Term{Name: "blur", Value: blur}.String())
	}

	return strings.Join(parts, " ")
}

// Term is one function of a filter expression.
type Term struct {
	Name  string
	Value float64
}

// String renders the term with its CSS unit.
func (t Term) String() string {
	v := strconv.FormatFloat(math.Round(t.Value*1e4)/1e4, 'f', -1, 64)
	switch t.Name {
	case "hue-rotate":
		v += "deg"
	case "blur":
		v += "px"
	}
	return t.Name + "(" + v + ")"
}

func clampRange(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

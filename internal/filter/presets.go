package filter

import "sort"

// PresetNone is the preset without a base expression.
const PresetNone = "none"

// Presets maps preset keys to their base expressions.
var Presets = map[string]string{
	PresetNone:  "",
	"grayscale": "grayscale(1)",
	"sepia":     "sepia(0.8)",
	"vintage":   "sepia(0.4) contrast(1.1) brightness(0.9) saturate(0.8)",
	"vivid":     "saturate(1.6) contrast(1.1)",
	"warm":      "sepia(0.3) saturate(1.3) hue-rotate(-10deg)",
	"cool":      "saturate(0.9) hue-rotate(20deg) brightness(1.05)",
	"dramatic":  "contrast(1.4) saturate(1.2) brightness(0.9)",
	"fade":      "contrast(0.8) brightness(1.1) saturate(0.7)",
	"noir":      "grayscale(1) contrast(1.5) brightness(0.8)",
	"film":      "sepia(0.2) contrast(1.05) grain(0.08)",
}

// PresetNames returns the preset keys, "none" first.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for k := range Presets {
		if k != PresetNone {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return append([]string{PresetNone}, names...)
}

// Package fonts resolves font family keys to font faces backed by the Go font
// family bundled with golang.org/x/image.
package fonts

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/gofont/gosmallcapsitalic"
	"golang.org/x/image/font/opentype"
)

// DefaultFamily is used for empty or unknown family keys.
const DefaultFamily = "sans"

// Style selects a variant within a family.
type Style struct {
	Bold   bool
	Italic bool
}

// ParseWeight maps CSS-like weights ("bold", "700", "normal") to Bold.
func ParseWeight(w string) bool {
	switch strings.ToLower(strings.TrimSpace(w)) {
	case "bold", "bolder", "600", "700", "800", "900":
		return true
	}
	return false
}

// ParseStyle maps CSS-like font styles to Italic.
func ParseStyle(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "italic", "oblique":
		return true
	}
	return false
}

type variantSet struct {
	regular, bold, italic, boldItalic []byte
}

func (v variantSet) pick(st Style) []byte {
	switch {
	case st.Bold && st.Italic:
		return v.boldItalic
	case st.Bold:
		return v.bold
	case st.Italic:
		return v.italic
	}
	return v.regular
}

var families = map[string]variantSet{
	"sans":      {goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF},
	"medium":    {gomedium.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF},
	"mono":      {gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF},
	"smallcaps": {gosmallcaps.TTF, gosmallcaps.TTF, gosmallcapsitalic.TTF, gosmallcapsitalic.TTF},
}

// Common web family names resolve onto the bundled families.
var aliases = map[string]string{
	"":                "sans",
	"go":              "sans",
	"arial":           "sans",
	"helvetica":       "sans",
	"inter":           "sans",
	"roboto":          "sans",
	"sans-serif":      "sans",
	"system-ui":       "sans",
	"georgia":         "medium",
	"serif":           "medium",
	"times new roman": "medium",
	"playfair":        "medium",
	"courier":         "mono",
	"courier new":     "mono",
	"monospace":       "mono",
	"go mono":         "mono",
	"small-caps":      "smallcaps",
}

// Registry caches parsed fonts. It is safe for concurrent use; the faces it
// hands out are not, so every call returns a fresh face.
type Registry struct {
	mu     sync.Mutex
	parsed map[string]*opentype.Font
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsed: make(map[string]*opentype.Font)}
}

// Families lists the canonical family keys.
func Families() []string {
	out := make([]string, 0, len(families))
	for k := range families {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve maps a family key or alias onto a canonical family.
func Resolve(family string) string {
	key := strings.ToLower(strings.TrimSpace(family))
	if _, ok := families[key]; ok {
		return key
	}
	if canon, ok := aliases[key]; ok {
		return canon
	}
	return DefaultFamily
}

// Face returns a face for family at size pixels (72 DPI, so points equal
// pixels).
func (r *Registry) Face(family string, size float64, st Style) (font.Face, error) {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return nil, fmt.Errorf("invalid font size %v", size)
	}
	canon := Resolve(family)
	fontKey := fmt.Sprintf("%s/%t/%t", canon, st.Bold, st.Italic)

	parsed, err := r.font(fontKey, families[canon].pick(st))
	if err != nil {
		return nil, err
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face %s@%v: %w", fontKey, size, err)
	}
	return face, nil
}

func (r *Registry) font(key string, data []byte) (*opentype.Font, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.parsed[key]; ok {
		return f, nil
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", key, err)
	}
	r.parsed[key] = f
	return f, nil
}

// Package overlay draws the finishing layers on top of a watermarked
// image: the vignette and the free text overlay.
package overlay

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"github.com/MeKo-Tech/pressroom/internal/canvas"
	"github.com/MeKo-Tech/pressroom/internal/composite"
)

// VignetteInner is where darkening starts, as a fraction of the radius.
const VignetteInner = 0.3

// Vignette is radial darkening toward the canvas edges.
type Vignette struct {
	Enabled   bool    `json:"enabled" yaml:"enabled"`
	Intensity float64 `json:"intensity" yaml:"intensity"`
}

// DefaultVignette is disabled with a moderate intensity.
func DefaultVignette() Vignette {
	return Vignette{Intensity: 0.5}
}

// Clamped keeps intensity within [0,1].
func (v Vignette) Clamped() Vignette {
	v.Intensity = clamp01(v.Intensity)
	return v
}

// DrawVignette darkens dst in place with a centered radial gradient that is
// transparent up to 30% of the radius and reaches rgba(0,0,0,intensity) at
// the radius. The radius is half the canvas diagonal, so the corners reach
// full intensity.
func DrawVignette(dst *image.NRGBA, v Vignette) {
	v = v.Clamped()
	if !v.Enabled || v.Intensity == 0 {
		return
	}
	b := dst.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	cx, cy := w/2, h/2
	r := math.Hypot(w, h) / 2

	layer := canvas.NewLayer(b.Dx(), b.Dy())
	grad := gg.NewRadialGradient(cx, cy, VignetteInner*r, cx, cy, r)
	grad.AddColorStop(0, color.NRGBA{0, 0, 0, 0})
	grad.AddColorStop(1, color.NRGBA{0, 0, 0, uint8(math.Round(v.Intensity * 255))})
	layer.SetFillStyle(grad)
	layer.DrawRectangle(0, 0, w, h)
	layer.Fill()

	composite.Over(dst, canvas.ToNRGBA(layer.Image()), 1)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

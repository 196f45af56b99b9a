package geometry

import (
	"image"
	"math"
)

// Size is a pixel extent.
type Size struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// SizeOf returns the size of an image's bounds.
func SizeOf(img image.Image) Size {
	b := img.Bounds()
	return Size{Width: b.Dx(), Height: b.Dy()}
}

// Empty reports whether the size has no area.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Aspect returns width/height, or 0 for an empty size.
func (s Size) Aspect() float64 {
	if s.Empty() {
		return 0
	}
	return float64(s.Width) / float64(s.Height)
}

// Rect is a rectangle in pixel space of some canvas.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// FullRect covers the whole of size.
func FullRect(s Size) Rect {
	return Rect{Width: float64(s.Width), Height: float64(s.Height)}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Image rounds the rectangle to whole pixels.
func (r Rect) Image() image.Rectangle {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	return image.Rect(x0, y0, x0+int(math.Round(r.Width)), y0+int(math.Round(r.Height)))
}

// Clamp restricts the rectangle to lie within size. The origin is
// clamped first, then the extent is shortened to fit.
func (r Rect) Clamp(s Size) Rect {
	w, h := float64(s.Width), float64(s.Height)
	r.X = clamp(r.X, 0, w)
	r.Y = clamp(r.Y, 0, h)
	r.Width = clamp(r.Width, 0, w-r.X)
	r.Height = clamp(r.Height, 0, h-r.Y)
	return r
}

// Normalize expresses the rectangle as fractions of ref.
func (r Rect) Normalize(ref Size) NormalizedRect {
	if ref.Empty() {
		return NormalizedRect{}
	}
	w, h := float64(ref.Width), float64(ref.Height)
	return NormalizedRect{X: r.X / w, Y: r.Y / h, Width: r.Width / w, Height: r.Height / h}
}

// NormalizedRect is a rectangle expressed as fractions (0..1) of the canvas
// it is drawn on. The live preview and the final encode both consume these,
// so a placement computed once maps onto any render resolution.
type NormalizedRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Pixels maps the rectangle onto a canvas of the given size.
func (n NormalizedRect) Pixels(s Size) Rect {
	w, h := float64(s.Width), float64(s.Height)
	return Rect{X: n.X * w, Y: n.Y * h, Width: n.Width * w, Height: n.Height * h}
}

// Center returns the fractional center point.
func (n NormalizedRect) Center() (float64, float64) {
	return n.X + n.Width/2, n.Y + n.Height/2
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

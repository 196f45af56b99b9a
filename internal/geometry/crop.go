package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrEmptyInput is returned when the input image has no area.
var ErrEmptyInput = errors.New("input image has no area")

// Flip is an axis mirror applied in the same pass as rotation.
type Flip struct {
	Horizontal bool `json:"horizontal"`
	Vertical   bool `json:"vertical"`
}

// CropParams are the crop controls as stored in the editor.
type CropParams struct {
	// Area is the selected window in the rotated input's pixel space. Nil
	// until the user first interacts with the cropper.
	Area     *Rect   `json:"croppedAreaPixels,omitempty"`
	Rotation float64 `json:"rotation"`
	FlipH    bool    `json:"flipH"`
	FlipV    bool    `json:"flipV"`
}

// Geometry is the resolved transform for one crop pass.
type Geometry struct {
	// SourceRect is the window extracted from the intermediate canvas.
	SourceRect Rect
	// Rotation is in degrees, normalized to [0, 360).
	Rotation float64
	Flip     Flip
	// Canvas is the intermediate canvas: the input's rotated bounding box.
	Canvas Size
}

// Output is the size of the raster the crop pass produces.
func (g Geometry) Output() Size {
	r := g.SourceRect.Image()
	return Size{Width: r.Dx(), Height: r.Dy()}
}

// ResolveCropGeometry turns crop controls into a concrete transform against
// an input of the given natural size. A nil area resolves to the full
// bounds of the input as rotated, i.e. the whole intermediate canvas, which
// is exactly {0, 0, width, height} when there is no rotation.
func ResolveCropGeometry(input Size, p CropParams) (Geometry, error) {
	if input.Empty() {
		return Geometry{}, ErrEmptyInput
	}

	rot := NormalizeDegrees(p.Rotation)
	canvas := RotatedBounds(input, rot)

	area := FullRect(canvas)
	if p.Area != nil {
		area = p.Area.Clamp(canvas)
	}
	// Snap to whole pixels so the output size is exact.
	ir := area.Image()
	area = Rect{X: float64(ir.Min.X), Y: float64(ir.Min.Y), Width: float64(ir.Dx()), Height: float64(ir.Dy())}
	if area.Empty() {
		return Geometry{}, fmt.Errorf("crop area %+v is empty after clamping to %dx%d", p.Area, canvas.Width, canvas.Height)
	}

	return Geometry{
		SourceRect: area,
		Rotation:   rot,
		Flip:       Flip{Horizontal: p.FlipH, Vertical: p.FlipV},
		Canvas:     canvas,
	}, nil
}

// NormalizeDegrees maps any angle onto [0, 360).
func NormalizeDegrees(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}

// RotatedBounds returns the bounding box of a rectangle of size s rotated
// by deg degrees about its center. Quarter turns are exact.
func RotatedBounds(s Size, deg float64) Size {
	b := RotateRing(RectRing(0, 0, float64(s.Width), float64(s.Height)), deg, float64(s.Width)/2, float64(s.Height)/2).Bound()
	return Size{
		Width:  int(math.Round(b.Max[0] - b.Min[0])),
		Height: int(math.Round(b.Max[1] - b.Min[1])),
	}
}

// RectRing returns the closed ring of an axis-aligned rectangle.
func RectRing(x, y, w, h float64) orb.Ring {
	return orb.Ring{
		{x, y},
		{x + w, y},
		{x + w, y + h},
		{x, y + h},
		{x, y},
	}
}

// RotateRing rotates every point of r by deg degrees (clockwise in image
// space, y down) about (cx, cy).
func RotateRing(r orb.Ring, deg, cx, cy float64) orb.Ring {
	sin, cos := sinCos(deg)
	out := make(orb.Ring, len(r))
	for i, p := range r {
		dx, dy := p[0]-cx, p[1]-cy
		out[i] = orb.Point{cx + dx*cos - dy*sin, cy + dx*sin + dy*cos}
	}
	return out
}

// sinCos snaps quarter turns so axis-aligned rotations stay integral.
func sinCos(deg float64) (float64, float64) {
	switch NormalizeDegrees(deg) {
	case 0:
		return 0, 1
	case 90:
		return 1, 0
	case 180:
		return 0, -1
	case 270:
		return -1, 0
	}
	return math.Sincos(deg * math.Pi / 180)
}

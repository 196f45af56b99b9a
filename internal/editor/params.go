// Package editor holds the state of one image editing session: the
// parameter store, its undo/redo history and the decoded images the
// session owns.
package editor

import (
	"math"

	"github.com/MeKo-Tech/pressroom/internal/filter"
	"github.com/MeKo-Tech/pressroom/internal/geometry"
	"github.com/MeKo-Tech/pressroom/internal/overlay"
	"github.com/MeKo-Tech/pressroom/internal/watermark"
)

// MaxZoom bounds the cropper zoom.
const MaxZoom = 10

// Offset is the cropper pan offset in cropper space.
type Offset struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Crop holds the cropper controls.
type Crop struct {
	Offset   Offset  `json:"crop" yaml:"crop"`
	Zoom     float64 `json:"zoom" yaml:"zoom"`
	Rotation float64 `json:"rotation" yaml:"rotation"`
	// Aspect is width/height; nil means free.
	Aspect *float64 `json:"aspect" yaml:"aspect"`
	FlipH  bool     `json:"flipH" yaml:"flipH"`
	FlipV  bool     `json:"flipV" yaml:"flipV"`
	// CroppedAreaPixels is nil until the user first moves the cropper.
	CroppedAreaPixels *geometry.Rect `json:"croppedAreaPixels" yaml:"croppedAreaPixels"`
}

// Params is the full set of editing parameters.
type Params struct {
	Crop        Crop             `json:"crop" yaml:"crop"`
	Filters     filter.Settings  `json:"filters" yaml:"filters"`
	Vignette    overlay.Vignette `json:"vignette" yaml:"vignette"`
	TextOverlay overlay.Text     `json:"textOverlay" yaml:"textOverlay"`
	Watermark   watermark.Config `json:"watermark" yaml:"watermark"`
}

// DefaultParams is the state of a freshly opened editor.
func DefaultParams() Params {
	return Params{
		Crop:        Crop{Zoom: 1},
		Filters:     filter.DefaultSettings(),
		Vignette:    overlay.DefaultVignette(),
		TextOverlay: overlay.DefaultText(),
		Watermark:   watermark.DefaultConfig(),
	}
}

// Clone deep-copies p.
func (p Params) Clone() Params {
	out := p
	if p.Crop.Aspect != nil {
		a := *p.Crop.Aspect
		out.Crop.Aspect = &a
	}
	if p.Crop.CroppedAreaPixels != nil {
		r := *p.Crop.CroppedAreaPixels
		out.Crop.CroppedAreaPixels = &r
	}
	if p.TextOverlay.Point != nil {
		pt := *p.TextOverlay.Point
		out.TextOverlay.Point = &pt
	}
	return out
}

// CropParams converts the cropper state into pipeline crop parameters.
func (p Params) CropParams() geometry.CropParams {
	return geometry.CropParams{
		Area:     p.Crop.CroppedAreaPixels,
		Rotation: p.Crop.Rotation,
		FlipH:    p.Crop.FlipH,
		FlipV:    p.Crop.FlipV,
	}
}

// Normalized returns p with every value clamped into its valid range.
// input is the natural size of the current input image; when known the crop
// area is clamped into the rotated input bounds.
func (p Params) Normalized(input geometry.Size) Params {
	p = p.Clone()

	if math.IsNaN(p.Crop.Zoom) || p.Crop.Zoom < 1 {
		p.Crop.Zoom = 1
	}
	p.Crop.Zoom = math.Min(p.Crop.Zoom, MaxZoom)
	if p.Crop.Aspect != nil && (*p.Crop.Aspect <= 0 || math.IsNaN(*p.Crop.Aspect) || math.IsInf(*p.Crop.Aspect, 0)) {
		p.Crop.Aspect = nil
	}
	if p.Crop.CroppedAreaPixels != nil && !input.Empty() {
		bounds := geometry.RotatedBounds(input, p.Crop.Rotation)
		r := p.Crop.CroppedAreaPixels.Clamp(bounds)
		if r.Empty() {
			p.Crop.CroppedAreaPixels = nil
		} else {
			p.Crop.CroppedAreaPixels = &r
		}
	}

	p.Filters = p.Filters.Clamped()
	if _, ok := filter.Presets[p.Filters.Preset]; !ok {
		p.Filters.Preset = filter.PresetNone
	}
	p.Vignette = p.Vignette.Clamped()
	p.TextOverlay = p.TextOverlay.Clamped()
	p.Watermark = p.Watermark.Clamped()
	return p
}

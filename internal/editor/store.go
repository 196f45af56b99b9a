package editor

import (
	"github.com/MeKo-Tech/pressroom/internal/geometry"
	"github.com/MeKo-Tech/pressroom/internal/overlay"
	"github.com/MeKo-Tech/pressroom/internal/watermark"
)

// Store is the flat parameter bag of a session. Every write is clamped, so
// the stored values always satisfy their documented ranges.
type Store struct {
	params Params
	input  geometry.Size
}

// NewStore seeds a store with p.
func NewStore(p Params) *Store {
	s := &Store{}
	s.Replace(p)
	return s
}

// Params returns a copy of the current parameters.
func (s *Store) Params() Params {
	return s.params.Clone()
}

// SetInput records the natural size of the current input image.
func (s *Store) SetInput(size geometry.Size) {
	s.input = size
	s.params = s.params.Normalized(size)
}

// Input is the natural size of the current input image.
func (s *Store) Input() geometry.Size {
	return s.input
}

// Replace swaps in p wholesale.
func (s *Store) Replace(p Params) {
	s.params = p.Normalized(s.input)
}

// Update applies fn to a copy of the parameters and stores the clamped
// result.
func (s *Store) Update(fn func(*Params)) {
	p := s.params.Clone()
	fn(&p)
	s.params = p.Normalized(s.input)
}

// Reset restores defaults. The aspect goes back to the natural aspect of
// the input image, as on open; without a known input it is free.
func (s *Store) Reset() {
	p := DefaultParams()
	if aspect := s.input.Aspect(); aspect > 0 {
		p.Crop.Aspect = &aspect
	}
	s.Replace(p)
}

func (s *Store) SetZoom(z float64) {
	s.Update(func(p *Params) { p.Crop.Zoom = z })
}

func (s *Store) SetCropOffset(x, y float64) {
	s.Update(func(p *Params) { p.Crop.Offset = Offset{X: x, Y: y} })
}

func (s *Store) SetRotation(deg float64) {
	s.Update(func(p *Params) { p.Crop.Rotation = deg })
}

// SetAspect locks the crop to w/h; a non-positive ratio unlocks it.
func (s *Store) SetAspect(ratio float64) {
	s.Update(func(p *Params) { p.Crop.Aspect = &ratio })
}

func (s *Store) ToggleFlipH() {
	s.Update(func(p *Params) { p.Crop.FlipH = !p.Crop.FlipH })
}

func (s *Store) ToggleFlipV() {
	s.Update(func(p *Params) { p.Crop.FlipV = !p.Crop.FlipV })
}

// SetCroppedArea records the crop window reported by the cropper.
func (s *Store) SetCroppedArea(r geometry.Rect) {
	s.Update(func(p *Params) { p.Crop.CroppedAreaPixels = &r })
}

func (s *Store) SetFilterPreset(name string) {
	s.Update(func(p *Params) { p.Filters.Preset = name })
}

func (s *Store) SetBrightness(v float64) {
	s.Update(func(p *Params) { p.Filters.Brightness = v })
}

func (s *Store) SetContrast(v float64) {
	s.Update(func(p *Params) { p.Filters.Contrast = v })
}

func (s *Store) SetSaturation(v float64) {
	s.Update(func(p *Params) { p.Filters.Saturation = v })
}

func (s *Store) SetTemperature(v float64) {
	s.Update(func(p *Params) { p.Filters.Temperature = v })
}

func (s *Store) SetBlur(v float64) {
	s.Update(func(p *Params) { p.Filters.Blur = v })
}

func (s *Store) SetVignette(v overlay.Vignette) {
	s.Update(func(p *Params) { p.Vignette = v })
}

func (s *Store) SetVignetteIntensity(v float64) {
	s.Update(func(p *Params) { p.Vignette.Intensity = v })
}

func (s *Store) SetTextOverlay(t overlay.Text) {
	s.Update(func(p *Params) { p.TextOverlay = t })
}

func (s *Store) SetWatermark(c watermark.Config) {
	s.Update(func(p *Params) { p.Watermark = c })
}

func (s *Store) SetWatermarkOpacity(v float64) {
	s.Update(func(p *Params) { p.Watermark.Opacity = v })
}

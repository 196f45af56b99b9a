package watermark

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/MeKo-Tech/pressroom/internal/canvas"
	"github.com/MeKo-Tech/pressroom/internal/fonts"
	"github.com/MeKo-Tech/pressroom/internal/geometry"
)

// ErrMissingImage is returned when a custom watermark has no decoded image.
var ErrMissingImage = errors.New("custom watermark image is not loaded")

// Plan is a watermark laid out against a reference canvas. All boxes are
// fractions of that canvas.
type Plan struct {
	Type    Type
	Text    string
	Font    string
	Color   string
	Opacity float64
	// FontSize is a fraction of the reference height.
	FontSize float64
	// Items are content boxes in the unrotated frame.
	Items []geometry.NormalizedRect
	// Rotation is applied to all items about the canvas center.
	Rotation float64
	// Grid is set for tiled plans, in reference pixels.
	Grid *Grid
}

// Empty reports whether the plan draws nothing.
func (p Plan) Empty() bool {
	return len(p.Items) == 0 || p.Opacity <= 0
}

// Layout computes a plan for cfg on a reference canvas of size ref. img is
// the decoded custom image and is only consulted for TypeCustom.
func Layout(reg *fonts.Registry, ref geometry.Size, cfg Config, img image.Image) (Plan, error) {
	cfg = cfg.Clamped()
	plan := Plan{Type: cfg.Type, Text: cfg.Text, Font: cfg.Font, Color: cfg.Color, Opacity: cfg.Opacity}
	if !cfg.Enabled() || ref.Empty() {
		return plan, nil
	}
	if cfg.Type == TypeCustom && img == nil {
		return plan, ErrMissingImage
	}

	if cfg.Repeat == RepeatTiled {
		return layoutTiled(reg, ref, cfg, img, plan)
	}
	return layoutSingle(reg, ref, cfg, img, plan)
}

func layoutSingle(reg *fonts.Registry, ref geometry.Size, cfg Config, img image.Image, plan Plan) (Plan, error) {
	var cw, ch float64
	switch cfg.Type {
	case TypeText:
		size := cfg.Scale * SingleTextBase
		w, h, err := measure(reg, cfg.Font, size, cfg.Text)
		if err != nil {
			return plan, err
		}
		cw, ch = w, h
		plan.FontSize = size / float64(ref.Height)
	case TypeCustom:
		cw, ch = fitImage(img, cfg.Scale*SingleImageBase)
	}

	box := cfg.Position.Place(ref, geometry.EdgeMargin, cw, ch)
	plan.Items = []geometry.NormalizedRect{box.Normalize(ref)}
	return plan, nil
}

// layoutTiled centres one cell per grid point. Text renders at the tiled
// base size (TiledTextBase × scale), images at up to TiledImageBase × scale.
// Wide text can reach into the neighbouring cells; spacing separates them.
func layoutTiled(reg *fonts.Registry, ref geometry.Size, cfg Config, img image.Image, plan Plan) (Plan, error) {
	base := TiledTextBase
	if cfg.Type == TypeCustom {
		base = TiledImageBase
	}
	pitchX := Pitch(cfg.SpacingH, cfg.Density, base, cfg.Scale)
	pitchY := Pitch(cfg.SpacingV, cfg.Density, base, cfg.Scale)

	var cw, ch float64
	switch cfg.Type {
	case TypeText:
		size := base * cfg.Scale
		w, h, err := measure(reg, cfg.Font, size, cfg.Text)
		if err != nil {
			return plan, err
		}
		cw, ch = w, h
		plan.FontSize = size / float64(ref.Height)
	case TypeCustom:
		cw, ch = fitImage(img, base*cfg.Scale)
	}

	grid := NewGrid(ref, pitchX, pitchY, cfg.Rotation, cfg.Pattern == PatternBrick)
	cells := grid.Cells()
	plan.Items = make([]geometry.NormalizedRect, 0, len(cells))
	for _, c := range cells {
		box := geometry.Rect{X: c[0] - cw/2, Y: c[1] - ch/2, Width: cw, Height: ch}
		plan.Items = append(plan.Items, box.Normalize(ref))
	}
	plan.Rotation = cfg.Rotation
	plan.Grid = &grid
	return plan, nil
}

func measure(reg *fonts.Registry, family string, size float64, text string) (float64, float64, error) {
	face, err := reg.Face(family, size, fonts.Style{Bold: true})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load watermark font: %w", err)
	}
	w, h := canvas.TextExtent(face, text)
	return w, h, nil
}

// fitImage scales an image to maxWidth, never upscaling past its natural
// width, preserving aspect ratio.
func fitImage(img image.Image, maxWidth float64) (float64, float64) {
	b := img.Bounds()
	iw, ih := float64(b.Dx()), float64(b.Dy())
	if iw <= 0 || ih <= 0 {
		return 0, 0
	}
	w := math.Min(maxWidth, iw)
	return w, w * ih / iw
}

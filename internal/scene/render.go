package scene

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/fogleman/gg"

	"github.com/MeKo-Tech/pressroom/internal/canvas"
	"github.com/MeKo-Tech/pressroom/internal/fonts"
	"github.com/MeKo-Tech/pressroom/internal/imageio"
)

// LineHeight is the text line advance as a multiple of the font size.
const LineHeight = 1.2

var placeholder = color.NRGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}

// Renderer rasterizes templates.
type Renderer struct {
	Fonts  *fonts.Registry
	Loader imageio.Loader
	Logger *slog.Logger
}

// NewRenderer returns a renderer; a nil loader draws every image slot as a
// placeholder.
func NewRenderer(reg *fonts.Registry, loader imageio.Loader, logger *slog.Logger) *Renderer {
	if reg == nil {
		reg = fonts.NewRegistry()
	}
	return &Renderer{Fonts: reg, Loader: loader, Logger: logger}
}

// Render paints t bottom to top onto its background.
func (r *Renderer) Render(ctx context.Context, t Template) (*image.NRGBA, error) {
	meta := t.Meta.Clamped()
	dc := gg.NewContext(meta.Width, meta.Height)
	dc.SetColor(canvas.MustColor(meta.BackgroundColor, color.NRGBA{R: 255, G: 255, B: 255, A: 255}))
	dc.Clear()

	for _, e := range t.Elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch el := e.(type) {
		case *ShapeElement:
			r.drawShape(dc, el)
		case *ImageSlotElement:
			r.drawImageSlot(ctx, dc, el)
		case *TextElement:
			if err := r.drawText(dc, el); err != nil {
				return nil, fmt.Errorf("failed to draw text element %s: %w", el.ID, err)
			}
		default:
			return nil, fmt.Errorf("unsupported element %T", e)
		}
	}

	r.log().Debug("Rendered template", "slug", meta.Slug, "elements", len(t.Elements), "width", meta.Width, "height", meta.Height)
	return canvas.ToNRGBA(dc.Image()), nil
}

func (r *Renderer) drawShape(dc *gg.Context, el *ShapeElement) {
	dc.SetColor(canvas.MustColor(el.Fill, placeholder))
	roundedRect(dc, el.Frame, el.BorderRadius)
	dc.Fill()
}

func (r *Renderer) drawImageSlot(ctx context.Context, dc *gg.Context, el *ImageSlotElement) {
	img := r.loadSlot(ctx, el)
	if img == nil {
		dc.SetColor(placeholder)
		roundedRect(dc, el.Frame, el.BorderRadius)
		dc.Fill()
		return
	}

	b := img.Bounds()
	iw, ih := float64(b.Dx()), float64(b.Dy())
	scale := math.Max(el.Width/iw, el.Height/ih) * el.Scale
	rw := max(1, int(math.Round(iw*scale)))
	rh := max(1, int(math.Round(ih*scale)))
	fitted := canvas.Resize(img, rw, rh)

	dc.Push()
	roundedRect(dc, el.Frame, el.BorderRadius)
	dc.Clip()
	dc.DrawImage(fitted,
		int(math.Round(el.X+(el.Width-float64(rw))/2)),
		int(math.Round(el.Y+(el.Height-float64(rh))/2)))
	dc.ResetClip()
	dc.Pop()
}

func (r *Renderer) loadSlot(ctx context.Context, el *ImageSlotElement) image.Image {
	if el.ImageURL == "" || r.Loader == nil {
		return nil
	}
	img, err := r.Loader.Load(ctx, el.ImageURL)
	if err != nil {
		r.log().Warn("Failed to load image slot", "element", el.ID, "url", el.ImageURL, "error", err)
		return nil
	}
	if img.Bounds().Empty() {
		return nil
	}
	return img
}

func (r *Renderer) drawText(dc *gg.Context, el *TextElement) error {
	face, err := r.Fonts.Face(el.FontFamily, el.FontSize, fonts.Style{
		Bold:   fonts.ParseWeight(el.FontWeight),
		Italic: fonts.ParseStyle(el.FontStyle),
	})
	if err != nil {
		return err
	}
	defer face.Close()

	dc.SetFontFace(face)
	dc.SetColor(canvas.MustColor(el.Color, color.NRGBA{A: 255}))

	x, ax := el.X, 0.0
	switch el.Align {
	case AlignCenter:
		x, ax = el.X+el.Width/2, 0.5
	case AlignRight:
		x, ax = el.X+el.Width, 1
	}

	metrics := face.Metrics()
	ascent := float64(metrics.Ascent) / 64
	descent := float64(metrics.Descent) / 64
	lineWidth := math.Max(1, el.FontSize/15)

	for i, line := range dc.WordWrap(el.Content, el.Width) {
		baseline := el.Y + ascent + float64(i)*el.FontSize*LineHeight
		dc.DrawStringAnchored(line, x, baseline, ax, 0)

		if el.TextDecoration == DecorationNone {
			continue
		}
		w, _ := dc.MeasureString(line)
		left := x - ax*w
		y := baseline + descent/2
		if el.TextDecoration == DecorationLineThrough {
			y = baseline - ascent*0.3
		}
		dc.SetLineWidth(lineWidth)
		dc.DrawLine(left, y, left+w, y)
		dc.Stroke()
	}
	return nil
}

func roundedRect(dc *gg.Context, f Frame, radius float64) {
	radius = math.Min(radius, math.Min(f.Width, f.Height)/2)
	if radius <= 0 {
		dc.DrawRectangle(f.X, f.Y, f.Width, f.Height)
		return
	}
	dc.DrawRoundedRectangle(f.X, f.Y, f.Width, f.Height, radius)
}

func (r *Renderer) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

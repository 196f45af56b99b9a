package overlay

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/MeKo-Tech/pressroom/internal/canvas"
	"github.com/MeKo-Tech/pressroom/internal/composite"
	"github.com/MeKo-Tech/pressroom/internal/fonts"
	"github.com/MeKo-Tech/pressroom/internal/geometry"
)

// Point is an explicit anchor as fractions of the canvas.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Text is a free text caption drawn over the image.
type Text struct {
	Enabled  bool              `json:"enabled" yaml:"enabled"`
	Text     string            `json:"text" yaml:"text"`
	Font     string            `json:"font" yaml:"font"`
	Size     float64           `json:"size" yaml:"size"`
	Color    string            `json:"color" yaml:"color"`
	Position geometry.Position `json:"position" yaml:"position"`
	// Point, when set, centers the text on an explicit location instead of
	// the compass position.
	Point  *Point `json:"point,omitempty" yaml:"point,omitempty"`
	Shadow bool   `json:"shadow" yaml:"shadow"`
	Bold   bool   `json:"bold,omitempty" yaml:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty" yaml:"italic,omitempty"`
}

// DefaultText is a disabled caption.
func DefaultText() Text {
	return Text{
		Font:     fonts.DefaultFamily,
		Size:     48,
		Color:    "#ffffff",
		Position: geometry.Bottom,
		Shadow:   true,
	}
}

// Clamped keeps size and point in range.
func (t Text) Clamped() Text {
	if t.Size < 1 || math.IsNaN(t.Size) {
		t.Size = 1
	}
	t.Size = math.Min(t.Size, 2000)
	if !t.Position.Valid() {
		t.Position = geometry.Bottom
	}
	if t.Point != nil {
		p := Point{X: clamp01(t.Point.X), Y: clamp01(t.Point.Y)}
		t.Point = &p
	}
	return t
}

// TextPlan is a caption laid out against a reference canvas.
type TextPlan struct {
	Text   string
	Font   string
	Style  fonts.Style
	Color  string
	Shadow bool
	// FontSize is a fraction of the reference height.
	FontSize float64
	Box      geometry.NormalizedRect
}

// LayoutText places t on a reference canvas of size ref. The second result
// is false when nothing would be drawn.
func LayoutText(reg *fonts.Registry, ref geometry.Size, t Text) (TextPlan, bool, error) {
	t = t.Clamped()
	if !t.Enabled || strings.TrimSpace(t.Text) == "" || ref.Empty() {
		return TextPlan{}, false, nil
	}
	st := fonts.Style{Bold: t.Bold, Italic: t.Italic}
	face, err := reg.Face(t.Font, t.Size, st)
	if err != nil {
		return TextPlan{}, false, err
	}
	w, h := canvas.TextExtent(face, t.Text)

	var box geometry.Rect
	if t.Point != nil {
		box = geometry.Rect{
			X:      t.Point.X*float64(ref.Width) - w/2,
			Y:      t.Point.Y*float64(ref.Height) - h/2,
			Width:  w,
			Height: h,
		}
	} else {
		box = t.Position.Place(ref, geometry.EdgeMargin, w, h)
	}

	return TextPlan{
		Text:     t.Text,
		Font:     t.Font,
		Style:    st,
		Color:    t.Color,
		Shadow:   t.Shadow,
		FontSize: t.Size / float64(ref.Height),
		Box:      box.Normalize(ref),
	}, true, nil
}

// DrawText renders a laid-out caption onto dst in place.
func DrawText(reg *fonts.Registry, dst *image.NRGBA, p TextPlan) error {
	target := geometry.SizeOf(dst)
	size := math.Max(p.FontSize*float64(target.Height), 1)
	face, err := reg.Face(p.Font, size, p.Style)
	if err != nil {
		return err
	}

	var shadow *canvas.Shadow
	if p.Shadow {
		shadow = canvas.DefaultShadow(size)
	}
	paint := canvas.Paint{Color: canvas.MustColor(p.Color, color.NRGBA{255, 255, 255, 255})}
	sprite, off := canvas.TextSprite(face, p.Text, paint, shadow)

	box := p.Box.Pixels(target)
	layer := canvas.NewLayer(target.Width, target.Height)
	layer.Translate(box.X-float64(off.X), box.Y-float64(off.Y))
	layer.DrawImage(sprite, 0, 0)

	composite.Over(dst, canvas.ToNRGBA(layer.Image()), 1)
	return nil
}

package watermark

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"github.com/MeKo-Tech/pressroom/internal/canvas"
	"github.com/MeKo-Tech/pressroom/internal/composite"
	"github.com/MeKo-Tech/pressroom/internal/fonts"
	"github.com/MeKo-Tech/pressroom/internal/geometry"
)

// Draw renders plan onto dst in place. dst may be any resolution; the plan's
// normalized boxes are mapped onto its bounds.
func Draw(reg *fonts.Registry, dst *image.NRGBA, plan Plan, img image.Image) error {
	if plan.Empty() {
		return nil
	}
	target := geometry.SizeOf(dst)

	var sprite *image.NRGBA
	var offset image.Point
	switch plan.Type {
	case TypeText:
		size := plan.FontSize * float64(target.Height)
		face, err := reg.Face(plan.Font, math.Max(size, 1), fonts.Style{Bold: true})
		if err != nil {
			return err
		}
		sprite, offset = canvas.TextSprite(face, plan.Text, textPaint(plan.Color), canvas.DefaultShadow(size))
	case TypeCustom:
		if img == nil {
			return ErrMissingImage
		}
		box := plan.Items[0].Pixels(target)
		sprite = canvas.Resize(img, int(math.Round(box.Width)), int(math.Round(box.Height)))
	default:
		return nil
	}

	layer := canvas.NewLayer(target.Width, target.Height)
	if plan.Rotation != 0 {
		layer.RotateAbout(gg.Radians(plan.Rotation), float64(target.Width)/2, float64(target.Height)/2)
	}
	for _, item := range plan.Items {
		box := item.Pixels(target)
		layer.Push()
		layer.Translate(box.X-float64(offset.X), box.Y-float64(offset.Y))
		layer.DrawImage(sprite, 0, 0)
		layer.Pop()
	}

	composite.Over(dst, canvas.ToNRGBA(layer.Image()), plan.Opacity)
	return nil
}

// textPaint fills text with a gentle vertical gradient from the base colour
// to a slightly darker shade.
func textPaint(base string) canvas.Paint {
	top := canvas.MustColor(base, color.NRGBA{255, 255, 255, 255})
	bottom := color.NRGBA{
		R: uint8(float64(top.R) * 0.8),
		G: uint8(float64(top.G) * 0.8),
		B: uint8(float64(top.B) * 0.8),
		A: top.A,
	}
	return canvas.Paint{Stops: []color.NRGBA{top, bottom}}
}

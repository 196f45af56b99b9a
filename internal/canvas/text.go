package canvas

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
)

// Paint is either a solid colour or a top-to-bottom gradient.
type Paint struct {
	Color color.NRGBA
	// Stops, when two or more are set, paint a vertical gradient across the
	// text box instead of Color.
	Stops []color.NRGBA
}

// Shadow is a blurred drop shadow drawn under text.
type Shadow struct {
	Color   color.NRGBA
	OffsetX float64
	OffsetY float64
	Blur    float64
}

// DefaultShadow scales a soft black shadow to the font size.
func DefaultShadow(fontSize float64) *Shadow {
	return &Shadow{
		Color:   color.NRGBA{0, 0, 0, 128},
		OffsetX: fontSize * 0.03,
		OffsetY: fontSize * 0.03,
		Blur:    fontSize * 0.04,
	}
}

// TextExtent returns the advance width and ascent+descent height of s.
func TextExtent(face font.Face, s string) (float64, float64) {
	dc := gg.NewContext(1, 1)
	dc.SetFontFace(face)
	w, _ := dc.MeasureString(s)
	m := face.Metrics()
	return w, float64(m.Ascent+m.Descent) / 64
}

// TextSprite renders s into a tight transparent raster. The returned
// offset is where the text box's top-left corner sits inside the sprite;
// the rest is room for the shadow.
func TextSprite(face font.Face, s string, paint Paint, shadow *Shadow) (*image.NRGBA, image.Point) {
	tw, th := TextExtent(face, s)
	ascent := float64(face.Metrics().Ascent) / 64

	pad := 2.0
	if shadow != nil {
		pad += math.Ceil(shadow.Blur*3 + math.Max(math.Abs(shadow.OffsetX), math.Abs(shadow.OffsetY)))
	}
	w := int(math.Ceil(tw + 2*pad))
	h := int(math.Ceil(th + 2*pad))

	var dc *gg.Context
	if shadow != nil {
		sdc := NewLayer(w, h)
		sdc.SetFontFace(face)
		sdc.SetColor(shadow.Color)
		sdc.DrawString(s, pad+shadow.OffsetX, pad+ascent+shadow.OffsetY)
		blurred := Blur(sdc.Image(), shadow.Blur)
		dc = gg.NewContextForImage(blurred)
	} else {
		dc = NewLayer(w, h)
	}
	dc.SetFontFace(face)

	if len(paint.Stops) >= 2 {
		mdc := NewLayer(w, h)
		mdc.SetFontFace(face)
		mdc.SetRGB(0, 0, 0)
		mdc.DrawString(s, pad, pad+ascent)

		grad := gg.NewLinearGradient(0, pad, 0, pad+th)
		for i, c := range paint.Stops {
			grad.AddColorStop(float64(i)/float64(len(paint.Stops)-1), c)
		}
		_ = dc.SetMask(mdc.AsMask())
		dc.SetFillStyle(grad)
		dc.DrawRectangle(0, 0, float64(w), float64(h))
		dc.Fill()
		dc.ResetClip()
	} else {
		dc.SetColor(paint.Color)
		dc.DrawString(s, pad, pad+ascent)
	}

	off := int(pad)
	return ToNRGBA(dc.Image()), image.Point{X: off, Y: off}
}

// Package canvas is the drawing surface the compositor paints on: gg
// contexts for affine image draws, gradients and text, plus conversions
// between gg's premultiplied RGBA and the NRGBA rasters the pipeline passes
// between stages.
package canvas

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/gift"
	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
)

// NewLayer returns a transparent drawing context of the given size.
func NewLayer(w, h int) *gg.Context {
	return gg.NewContext(max(w, 1), max(h, 1))
}

// ToNRGBA converts img to a non-premultiplied raster with bounds starting
// at the origin. *image.NRGBA inputs already at the origin are returned
// as-is.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

// Clone returns a deep copy of img as NRGBA.
func Clone(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

// Resize scales img to w x h with Catmull-Rom resampling.
func Resize(img image.Image, w, h int) *image.NRGBA {
	w, h = max(w, 1), max(h, 1)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// FitWidth scales img to the given width preserving aspect ratio.
func FitWidth(img image.Image, w float64) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == 0 {
		return Resize(img, 1, 1)
	}
	h := w * float64(b.Dy()) / float64(b.Dx())
	return Resize(img, int(math.Round(w)), int(math.Round(h)))
}

// Blur applies a gaussian blur with the given sigma.
func Blur(img image.Image, sigma float64) *image.NRGBA {
	if sigma <= 0 {
		return ToNRGBA(img)
	}
	g := gift.New(gift.GaussianBlur(float32(sigma)))
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}

// Fill returns a w x h raster filled with c.
func Fill(w, h int, c color.Color) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, xdraw.Src)
	return dst
}

// Tint replaces the colour of every pixel with c, keeping alpha.
func Tint(img image.Image, c color.NRGBA) *image.NRGBA {
	src := ToNRGBA(img)
	dst := image.NewNRGBA(src.Rect)
	for i := 0; i < len(src.Pix); i += 4 {
		dst.Pix[i] = c.R
		dst.Pix[i+1] = c.G
		dst.Pix[i+2] = c.B
		dst.Pix[i+3] = uint8((int(src.Pix[i+3])*int(c.A) + 127) / 255)
	}
	return dst
}

package composite

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Layer is one raster stacked over the base, drawn with a uniform opacity.
type Layer struct {
	Name    string
	Image   image.Image
	Opacity float64
}

// Stack blends layers bottom-to-top over a copy of base. Every layer must
// match the base bounds; nil layers are skipped.
func Stack(base image.Image, layers ...Layer) (*image.NRGBA, error) {
	if base == nil {
		return nil, fmt.Errorf("base image is nil")
	}

	bounds := base.Bounds()
	dst := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Set(x, y, base.At(x, y))
		}
	}

	for _, layer := range layers {
		if layer.Image == nil {
			continue
		}
		if layer.Image.Bounds() != bounds {
			return nil, fmt.Errorf("layer %s bounds %v do not match base %v", layer.Name, layer.Image.Bounds(), bounds)
		}
		Over(dst, layer.Image, layer.Opacity)
	}

	return dst, nil
}

// Over blends src onto dst in place using non-premultiplied source-over,
// with src alpha scaled by opacity (clamped to [0,1]). Pixels outside the
// intersection of both bounds are left untouched.
func Over(dst *image.NRGBA, src image.Image, opacity float64) {
	opacity = math.Max(0, math.Min(1, opacity))
	if opacity == 0 {
		return
	}
	bounds := dst.Bounds().Intersect(src.Bounds())

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			s := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			if s.A == 0 {
				continue
			}

			d := dst.NRGBAAt(x, y)

			sa := float64(s.A) / 255.0 * opacity
			da := float64(d.A) / 255.0

			outA := sa + da*(1.0-sa)
			if outA == 0 {
				dst.SetNRGBA(x, y, color.NRGBA{})
				continue
			}

			blend := func(srcVal, dstVal uint8) uint8 {
				srcPremult := float64(srcVal) * sa
				dstPremult := float64(dstVal) * da
				outPremult := srcPremult + dstPremult*(1.0-sa)
				return uint8(math.Round(outPremult / outA))
			}

			dst.SetNRGBA(x, y, color.NRGBA{
				R: blend(s.R, d.R),
				G: blend(s.G, d.G),
				B: blend(s.B, d.B),
				A: uint8(math.Round(outA * 255.0)),
			})
		}
	}
}

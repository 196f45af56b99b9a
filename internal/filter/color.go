package filter

import (
	"image"
	"image/color"
	"math"
)

func nrgbaAt(img image.Image, x, y int) color.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n.NRGBAAt(x, y)
	}
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

// shift adds delta to every colour channel, keeping alpha.
func shift(c color.NRGBA, delta float64) color.NRGBA {
	add := func(v uint8) uint8 {
		return uint8(math.Max(0, math.Min(255, math.Round(float64(v)+delta))))
	}
	return color.NRGBA{R: add(c.R), G: add(c.G), B: add(c.B), A: c.A}
}

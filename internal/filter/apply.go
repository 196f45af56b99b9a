package filter

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/disintegration/gift"
)

// Apply parses expr and runs it over img. An empty expression returns a
// copy of img.
func Apply(img image.Image, expr string) (*image.NRGBA, error) {
	terms, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return ApplyTerms(img, terms, 1), nil
}

// ApplyTerms runs terms over img in order as a single pass. scale
// multiplies pixel-valued terms (blur) for renders at a resolution other
// than the output's.
func ApplyTerms(img image.Image, terms []Term, scale float64) *image.NRGBA {
	g := Compile(terms, scale)
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}

// Compile translates terms into a gift filter chain.
func Compile(terms []Term, scale float64) *gift.GIFT {
	if scale <= 0 {
		scale = 1
	}
	g := gift.New()
	for _, t := range terms {
		if f := compileTerm(t, scale); f != nil {
			g.Add(f)
		}
	}
	return g
}

func compileTerm(t Term, scale float64) gift.Filter {
	v := t.Value
	switch t.Name {
	case "brightness":
		v = math.Max(0, v)
		return gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
			k := float32(v)
			return clamp01(r * k), clamp01(g * k), clamp01(b * k), a
		})
	case "contrast":
		v = math.Max(0, v)
		return gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
			k := float32(v)
			return clamp01((r-0.5)*k + 0.5), clamp01((g-0.5)*k + 0.5), clamp01((b-0.5)*k + 0.5), a
		})
	case "saturate":
		return matrixFilter(saturateMatrix(math.Max(0, v)))
	case "grayscale":
		return matrixFilter(grayscaleMatrix(clampRange(v, 0, 1)))
	case "sepia":
		return gift.Sepia(float32(clampRange(v, 0, 1) * 100))
	case "hue-rotate":
		return matrixFilter(hueRotateMatrix(v))
	case "invert":
		v = clampRange(v, 0, 1)
		return gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
			k := float32(v)
			inv := func(c float32) float32 { return c*(1-k) + (1-c)*k }
			return inv(r), inv(g), inv(b), a
		})
	case "opacity":
		v = clampRange(v, 0, 1)
		return gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
			return r, g, b, a * float32(v)
		})
	case "blur":
		if v*scale <= 0 {
			return nil
		}
		return gift.GaussianBlur(float32(v * scale))
	case "grain":
		if v <= 0 {
			return nil
		}
		return &grainFilter{amount: clampRange(v, 0, 1), cell: math.Max(scale, 0.25)}
	}
	return nil
}

type matrix [3][3]float64

// Matrices follow the W3C Filter Effects definitions for the CSS
// shorthand filters.
func saturateMatrix(s float64) matrix {
	return matrix{
		{0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s},
		{0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s},
		{0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s},
	}
}

func grayscaleMatrix(amount float64) matrix {
	s := 1 - amount
	return matrix{
		{0.2126 + 0.7874*s, 0.7152 - 0.7152*s, 0.0722 - 0.0722*s},
		{0.2126 - 0.2126*s, 0.7152 + 0.2848*s, 0.0722 - 0.0722*s},
		{0.2126 - 0.2126*s, 0.7152 - 0.7152*s, 0.0722 + 0.9278*s},
	}
}

func hueRotateMatrix(deg float64) matrix {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	return matrix{
		{0.213 + cos*0.787 - sin*0.213, 0.715 - cos*0.715 - sin*0.715, 0.072 - cos*0.072 + sin*0.928},
		{0.213 - cos*0.213 + sin*0.143, 0.715 + cos*0.285 + sin*0.140, 0.072 - cos*0.072 - sin*0.283},
		{0.213 - cos*0.213 - sin*0.787, 0.715 - cos*0.715 + sin*0.715, 0.072 + cos*0.928 + sin*0.072},
	}
}

func matrixFilter(m matrix) gift.Filter {
	var f [3][3]float32
	for i := range m {
		for j := range m[i] {
			f[i][j] = float32(m[i][j])
		}
	}
	return gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
		return clamp01(f[0][0]*r + f[0][1]*g + f[0][2]*b),
			clamp01(f[1][0]*r + f[1][1]*g + f[1][2]*b),
			clamp01(f[2][0]*r + f[2][1]*g + f[2][2]*b),
			a
	})
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// grainSeed keeps grain deterministic so repeated saves are identical.
const grainSeed = 1337

// grainFilter adds luminance noise from a perlin field. cell is the size
// of one noise sample in pixels, so grain keeps its look at preview
// resolution.
type grainFilter struct {
	amount float64
	cell   float64
}

func (f *grainFilter) Bounds(srcBounds image.Rectangle) image.Rectangle {
	return image.Rect(0, 0, srcBounds.Dx(), srcBounds.Dy())
}

func (f *grainFilter) Draw(dst draw.Image, src image.Image, _ *gift.Options) {
	noise := perlin.NewPerlin(2.0, 2.0, 3, grainSeed)
	sb := src.Bounds()
	for y := 0; y < sb.Dy(); y++ {
		for x := 0; x < sb.Dx(); x++ {
			c := nrgbaAt(src, sb.Min.X+x, sb.Min.Y+y)
			n := noise.Noise2D(float64(x)/f.cell*0.9, float64(y)/f.cell*0.9)
			delta := n * f.amount * 255 * 2
			dst.Set(x, y, shift(c, delta))
		}
	}
}

func (f *grainFilter) String() string {
	return fmt.Sprintf("grain(%v)", f.amount)
}

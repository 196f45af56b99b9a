package canvas

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#fff", color.NRGBA{255, 255, 255, 255}},
		{"#FF000080", color.NRGBA{255, 0, 0, 128}},
		{"#336699", color.NRGBA{0x33, 0x66, 0x99, 255}},
		{"#0f08", color.NRGBA{0, 255, 0, 136}},
		{"rgb(10, 20, 30)", color.NRGBA{10, 20, 30, 255}},
		{"rgba(0,0,0,0.5)", color.NRGBA{0, 0, 0, 128}},
		{"rgba(100%, 0%, 0%, 1)", color.NRGBA{255, 0, 0, 255}},
		{"hsl(0, 0%, 100%)", color.NRGBA{255, 255, 255, 255}},
		{"transparent", color.NRGBA{}},
		{" White ", color.NRGBA{255, 255, 255, 255}},
		{"rebeccapurple", color.NRGBA{0x66, 0x33, 0x99, 255}},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if err != nil {
			t.Fatalf("ParseColor(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "#12", "rgb(1,2)", "cmyk(1,2,3,4)", "#zzzzzz"} {
		if _, err := ParseColor(bad); err == nil {
			t.Fatalf("ParseColor(%q) expected error", bad)
		}
	}
}

func TestParseColorHSLRed(t *testing.T) {
	c, err := ParseColor("hsl(0, 100%, 50%)")
	require.NoError(t, err)
	require.Equal(t, uint8(255), c.R)
	require.LessOrEqual(t, c.G, uint8(2))
	require.LessOrEqual(t, c.B, uint8(2))
}

func TestHexRoundTrip(t *testing.T) {
	for _, s := range []string{"#336699", "#33669980"} {
		c, err := ParseColor(s)
		require.NoError(t, err)
		require.Equal(t, s, Hex(c))
	}
}

func TestToNRGBAMovesOriginToZero(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 20, 30))
	src.SetNRGBA(10, 10, color.NRGBA{1, 2, 3, 255})

	out := ToNRGBA(src)
	require.Equal(t, image.Rect(0, 0, 10, 20), out.Bounds())
	require.Equal(t, color.NRGBA{1, 2, 3, 255}, out.NRGBAAt(0, 0))
}

func TestTextSpriteDrawsGlyphs(t *testing.T) {
	f, err := opentype.Parse(goregular.TTF)
	require.NoError(t, err)
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: 32, DPI: 72})
	require.NoError(t, err)

	for _, tc := range []struct {
		name   string
		paint  Paint
		shadow *Shadow
	}{
		{"solid", Paint{Color: color.NRGBA{255, 0, 0, 255}}, nil},
		{"gradient with shadow", Paint{Stops: []color.NRGBA{{255, 255, 255, 255}, {200, 200, 200, 255}}}, DefaultShadow(32)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sprite, off := TextSprite(face, "Hello", tc.paint, tc.shadow)
			tw, th := TextExtent(face, "Hello")
			require.GreaterOrEqual(t, sprite.Bounds().Dx(), int(tw))
			require.GreaterOrEqual(t, sprite.Bounds().Dy(), int(th))
			require.Greater(t, off.X, 0)

			opaque := 0
			for i := 3; i < len(sprite.Pix); i += 4 {
				if sprite.Pix[i] > 200 {
					opaque++
				}
			}
			require.Greater(t, opaque, 20, "expected glyph coverage")
		})
	}
}

func TestTintKeepsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{10, 10, 10, 100})
	out := Tint(src, color.NRGBA{0, 0, 0, 255})
	require.Equal(t, color.NRGBA{0, 0, 0, 100}, out.NRGBAAt(0, 0))
}

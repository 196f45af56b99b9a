package filter

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildFilterString(t *testing.T) {
	tests := []struct {
		name        string
		preset      string
		brightness  float64
		contrast    float64
		saturation  float64
		temperature float64
		blur        float64
		want        string
	}{
		{"neutral", "none", 1, 1, 1, 0, 0, ""},
		{"unknown preset is ignored", "does-not-exist", 1, 1, 1, 0, 0, ""},
		{"preset only", "grayscale", 1, 1, 1, 0, 0, "grayscale(1)"},
		{"manual adjustments", "none", 1.2, 0.9, 1.5, 0, 0, "brightness(1.2) contrast(0.9) saturate(1.5)"},
		{"warm temperature", "none", 1, 1, 1, 50, 0, "sepia(0.15)"},
		{"cool temperature", "none", 1, 1, 1, -100, 0, "sepia(0.3) hue-rotate(180deg)"},
		{"blur", "none", 1, 1, 1, 0, 2.5, "blur(2.5px)"},
		{"negative blur omitted", "none", 1, 1, 1, 0, -1, ""},
		{
			"everything in order", "vivid", 1.1, 1.2, 1, -20, 3,
			"saturate(1.6) contrast(1.1) brightness(1.1) contrast(1.2) sepia(0.06) hue-rotate(180deg) blur(3px)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildFilterString(tt.preset, tt.brightness, tt.contrast, tt.saturation, tt.temperature, tt.blur)
			if got != tt.want {
				t.Fatalf("BuildFilterString = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTemperatureMagnitudeIsSymmetric(t *testing.T) {
	warm, err := Parse(BuildFilterString("none", 1, 1, 1, 40, 0))
	require.NoError(t, err)
	cool, err := Parse(BuildFilterString("none", 1, 1, 1, -40, 0))
	require.NoError(t, err)

	require.Len(t, warm, 1)
	require.Len(t, cool, 2)
	require.Equal(t, warm[0], cool[0])
	require.Equal(t, Term{Name: "hue-rotate", Value: 180}, cool[1])
}

func TestDefaultSettingsAreNeutral(t *testing.T) {
	s := DefaultSettings()
	require.True(t, s.Neutral())

	s.Blur = 1
	require.False(t, s.Neutral())
}

func TestSettingsClamped(t *testing.T) {
	s := Settings{Brightness: -1, Contrast: 9, Saturation: 1, Temperature: 250, Blur: -3}.Clamped()
	require.Equal(t, 0.0, s.Brightness)
	require.Equal(t, 3.0, s.Contrast)
	require.Equal(t, 100.0, s.Temperature)
	require.Equal(t, 0.0, s.Blur)
}

func TestParse(t *testing.T) {
	terms, err := Parse("grayscale(100%) hue-rotate(0.5turn)  blur(4px) brightness(1.25)")
	require.NoError(t, err)
	require.Equal(t, []Term{
		{Name: "grayscale", Value: 1},
		{Name: "hue-rotate", Value: 180},
		{Name: "blur", Value: 4},
		{Name: "brightness", Value: 1.25},
	}, terms)

	for _, bad := range []string{"blur", "warp(1)", "blur(abc)", "brightness(1", "(1)"} {
		_, err := Parse(bad)
		require.Error(t, err, bad)
	}
}

func TestEveryPresetParses(t *testing.T) {
	for _, name := range PresetNames() {
		_, err := Parse(Presets[name])
		require.NoError(t, err, name)
	}
	require.Equal(t, PresetNone, PresetNames()[0])
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -1 && d <= 1
}

func TestApplyPerPixelTerms(t *testing.T) {
	tests := []struct {
		name string
		expr string
		in   color.NRGBA
		want color.NRGBA
	}{
		{"empty copies", "", color.NRGBA{12, 34, 56, 255}, color.NRGBA{12, 34, 56, 255}},
		{"brightness halves", "brightness(0.5)", color.NRGBA{200, 100, 50, 255}, color.NRGBA{100, 50, 25, 255}},
		{"contrast zero is mid grey", "contrast(0)", color.NRGBA{10, 240, 90, 255}, color.NRGBA{128, 128, 128, 255}},
		{"invert", "invert(1)", color.NRGBA{0, 255, 55, 255}, color.NRGBA{255, 0, 200, 255}},
		{"hue rotate keeps grey", "hue-rotate(180deg)", color.NRGBA{120, 120, 120, 255}, color.NRGBA{120, 120, 120, 255}},
		{"opacity scales alpha", "opacity(0.5)", color.NRGBA{10, 20, 30, 200}, color.NRGBA{10, 20, 30, 100}},
		{"saturate zero equals grayscale", "saturate(0)", color.NRGBA{255, 255, 255, 255}, color.NRGBA{255, 255, 255, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Apply(solid(3, 3, tt.in), tt.expr)
			require.NoError(t, err)
			got := out.NRGBAAt(1, 1)
			if !near(got.R, tt.want.R) || !near(got.G, tt.want.G) || !near(got.B, tt.want.B) || !near(got.A, tt.want.A) {
				t.Fatalf("%s: got %+v, want %+v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestApplyGrayscaleEqualisesChannels(t *testing.T) {
	out, err := Apply(solid(2, 2, color.NRGBA{200, 40, 90, 255}), "grayscale(1)")
	require.NoError(t, err)
	c := out.NRGBAAt(0, 0)
	require.True(t, near(c.R, c.G) && near(c.G, c.B), "got %+v", c)
}

func TestApplyBlurKeepsBounds(t *testing.T) {
	src := solid(20, 10, color.NRGBA{0, 0, 0, 255})
	src.SetNRGBA(10, 5, color.NRGBA{255, 255, 255, 255})

	out, err := Apply(src, "blur(2px)")
	require.NoError(t, err)
	require.Equal(t, src.Bounds(), out.Bounds())
	require.Less(t, out.NRGBAAt(10, 5).R, uint8(255))
	require.Greater(t, out.NRGBAAt(11, 5).R, uint8(0))
}

func TestGrainIsDeterministic(t *testing.T) {
	src := solid(16, 16, color.NRGBA{128, 128, 128, 255})
	a, err := Apply(src, "grain(0.2)")
	require.NoError(t, err)
	b, err := Apply(src, "grain(0.2)")
	require.NoError(t, err)
	require.Equal(t, a.Pix, b.Pix)
}

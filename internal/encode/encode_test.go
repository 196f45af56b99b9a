package encode

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveQuality(t *testing.T) {
	tests := map[string]float64{
		"low":      0.6,
		"medium":   0.8,
		"high":     0.92,
		"original": 1.0,
		"HIGH":     0.92,
		"":         0.92,
	}
	for name, want := range tests {
		got, err := ResolveQuality(name)
		require.NoError(t, err, name)
		require.Equal(t, want, got, name)
	}

	_, err := ResolveQuality("ultra")
	require.Error(t, err)

	require.Equal(t, []string{"low", "medium", "high", "original"}, QualityNames())
}

func TestJPEGQuality(t *testing.T) {
	require.Equal(t, 60, JPEGQuality(0.6))
	require.Equal(t, 92, JPEGQuality(0.92))
	require.Equal(t, 100, JPEGQuality(1))
	require.Equal(t, 1, JPEGQuality(0))
	require.Equal(t, 100, JPEGQuality(3))
}

func TestEncodeJPEG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 32, 16))
	blob, err := Encode(nil, img, 0.8)
	require.NoError(t, err)
	require.Equal(t, MimeType, blob.MimeType)
	require.Equal(t, 32, blob.Width)
	require.Equal(t, 16, blob.Height)

	decoded, err := jpeg.Decode(bytes.NewReader(blob.Data))
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestQualityAffectsSize(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 31)
	}
	low, err := Encode(nil, img, Qualities["low"])
	require.NoError(t, err)
	orig, err := Encode(nil, img, Qualities["original"])
	require.NoError(t, err)
	require.Less(t, len(low.Data), len(orig.Data))
}

type stubCodec struct {
	data []byte
	err  error
}

func (s stubCodec) Encode(image.Image, float64) ([]byte, error) { return s.data, s.err }

func TestEncodeFailuresAreEncodeErrors(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))

	_, err := Encode(stubCodec{}, img, 1)
	var ee *EncodeError
	require.True(t, errors.As(err, &ee))
	require.True(t, errors.Is(err, ErrEmptyOutput))

	boom := errors.New("boom")
	_, err = Encode(stubCodec{err: boom}, img, 1)
	require.True(t, errors.As(err, &ee))
	require.True(t, errors.Is(err, boom))

	_, err = Encode(nil, image.NewNRGBA(image.Rect(0, 0, 0, 0)), 1)
	require.True(t, errors.As(err, &ee))
}

func TestOutputName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	tests := map[string]string{
		"holiday.png":             "holiday.jpg",
		"photos/summer.2024.webp": "summer.2024.jpg",
		"C:\\pics\\cat.jpeg":      "cat.jpg",
		"noext":                   "noext.jpg",
		"":                        "edited-1700000000123.jpg",
		".png":                    "edited-1700000000123.jpg",
	}
	for in, want := range tests {
		require.Equal(t, want, OutputName(in, now), in)
	}
}

func TestFit(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 400, 200))
	require.Equal(t, img, Fit(img, 0, 0))
	require.Equal(t, img, Fit(img, 800, 800))

	out := Fit(img, 100, 0)
	require.Equal(t, image.Rect(0, 0, 100, 50), out.Bounds())

	out = Fit(img, 300, 50)
	require.Equal(t, image.Rect(0, 0, 100, 50), out.Bounds())
}

// Package encode turns a composited raster into the output blob.
package encode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"
)

const (
	// MimeType is the fixed output format.
	MimeType = "image/jpeg"
	// Extension replaces the original file extension of edited images.
	Extension = ".jpg"
)

// Quality presets offered to users.
var Qualities = map[string]float64{
	"low":      0.6,
	"medium":   0.8,
	"high":     0.92,
	"original": 1.0,
}

// DefaultQuality is used when no preset is given.
const DefaultQuality = "high"

// ErrEmptyOutput is wrapped in an EncodeError when a codec produced no bytes.
var ErrEmptyOutput = errors.New("encoder produced no data")

// EncodeError reports that the final export failed.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode image: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// ResolveQuality maps a preset name to its 0..1 quality. An empty name
// resolves to DefaultQuality.
func ResolveQuality(name string) (float64, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultQuality
	}
	q, ok := Qualities[key]
	if !ok {
		return 0, fmt.Errorf("unknown quality preset %q (want one of %s)", name, strings.Join(QualityNames(), ", "))
	}
	return q, nil
}

// QualityNames lists the presets from smallest to largest output.
func QualityNames() []string {
	names := make([]string, 0, len(Qualities))
	for k := range Qualities {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool { return Qualities[names[i]] < Qualities[names[j]] })
	return names
}

// Codec encodes an image at a 0..1 quality.
type Codec interface {
	Encode(img image.Image, quality float64) ([]byte, error)
}

// JPEG is the default codec.
type JPEG struct{}

func (JPEG) Encode(img image.Image, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JPEGQuality converts a 0..1 quality into the 1..100 jpeg scale.
func JPEGQuality(q float64) int {
	v := int(math.Round(q * 100))
	return max(1, min(100, v))
}

// Blob is an encoded image ready for upload.
type Blob struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// Encode encodes img with codec (JPEG when nil). Failures and empty
// results are reported as *EncodeError; no partial blob is returned.
func Encode(codec Codec, img image.Image, quality float64) (*Blob, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, &EncodeError{Err: errors.New("nothing to encode")}
	}
	if codec == nil {
		codec = JPEG{}
	}
	data, err := codec.Encode(img, quality)
	if err != nil {
		return nil, &EncodeError{Err: err}
	}
	if len(data) == 0 {
		return nil, &EncodeError{Err: ErrEmptyOutput}
	}
	b := img.Bounds()
	return &Blob{Data: data, MimeType: MimeType, Width: b.Dx(), Height: b.Dy()}, nil
}

// OutputName keeps the original base name and swaps in the output
// extension. Without an original name it falls back to a timestamp.
func OutputName(original string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	if base == "." || base == "/" {
		base = ""
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if strings.TrimSpace(base) == "" {
		return fmt.Sprintf("edited-%d%s", now.UnixMilli(), Extension)
	}
	return base + Extension
}

// Fit downscales img to fit within maxWidth x maxHeight, preserving aspect
// ratio. Zero limits are ignored and images are never upscaled.
func Fit(img image.Image, maxWidth, maxHeight int) image.Image {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	scale := 1.0
	if maxWidth > 0 && w > float64(maxWidth) {
		scale = math.Min(scale, float64(maxWidth)/w)
	}
	if maxHeight > 0 && h > float64(maxHeight) {
		scale = math.Min(scale, float64(maxHeight)/h)
	}
	if scale >= 1 {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, max(1, int(math.Round(w*scale))), max(1, int(math.Round(h*scale)))))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

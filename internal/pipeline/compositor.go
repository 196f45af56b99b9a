package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/MeKo-Tech/pressroom/internal/canvas"
	"github.com/MeKo-Tech/pressroom/internal/encode"
	"github.com/MeKo-Tech/pressroom/internal/filter"
	"github.com/MeKo-Tech/pressroom/internal/fonts"
	"github.com/MeKo-Tech/pressroom/internal/geometry"
	"github.com/MeKo-Tech/pressroom/internal/overlay"
	"github.com/MeKo-Tech/pressroom/internal/watermark"
)

// Stage names, in execution order.
const (
	StageCrop      = "crop"
	StageFilter    = "filter"
	StageWatermark = "watermark"
	StageVignette  = "vignette"
	StageText      = "text"
	StageEncode    = "encode"
)

// Request is everything one render needs besides the source pixels.
type Request struct {
	Crop           geometry.CropParams
	Filters        filter.Settings
	Watermark      watermark.Config
	WatermarkImage image.Image
	Vignette       overlay.Vignette
	Text           overlay.Text
}

// StageHook observes the cumulative raster after each stage.
type StageHook func(stage string, img *image.NRGBA)

// Options configure a Compositor.
type Options struct {
	Fonts  *fonts.Registry
	Codec  encode.Codec
	Logger *slog.Logger
	// MaxWidth and MaxHeight cap the encoded output; zero means no cap.
	MaxWidth  int
	MaxHeight int
	OnStage   StageHook
}

// Compositor runs the edit pipeline: crop, filter, watermark, overlays and
// encode, strictly in that order, each stage drawing on the result of the
// previous one. It keeps no state between renders.
type Compositor struct {
	fonts     *fonts.Registry
	codec     encode.Codec
	logger    *slog.Logger
	maxWidth  int
	maxHeight int
	onStage   StageHook
}

// NewCompositor prepares a compositor.
func NewCompositor(opts Options) *Compositor {
	if opts.Fonts == nil {
		opts.Fonts = fonts.NewRegistry()
	}
	if opts.Codec == nil {
		opts.Codec = encode.JPEG{}
	}
	return &Compositor{
		fonts:     opts.Fonts,
		codec:     opts.Codec,
		logger:    opts.Logger,
		maxWidth:  opts.MaxWidth,
		maxHeight: opts.MaxHeight,
		onStage:   opts.OnStage,
	}
}

// Fonts exposes the registry used for text rendering.
func (c *Compositor) Fonts() *fonts.Registry { return c.fonts }

// Crop applies a resolved geometry to src: the whole image is drawn into an
// intermediate canvas the size of its rotated bounding box (rotated about
// the canvas center, flipped in the same pass), then the crop window is
// cut from that canvas.
func (c *Compositor) Crop(src image.Image, geo geometry.Geometry) *image.NRGBA {
	in := canvas.ToNRGBA(src)

	var rotated image.Image = in
	if geo.Rotation != 0 || geo.Flip.Horizontal || geo.Flip.Vertical {
		w, h := float64(in.Rect.Dx()), float64(in.Rect.Dy())
		dc := canvas.NewLayer(geo.Canvas.Width, geo.Canvas.Height)
		dc.Translate(float64(geo.Canvas.Width)/2, float64(geo.Canvas.Height)/2)
		dc.Rotate(gg.Radians(geo.Rotation))
		sx, sy := 1.0, 1.0
		if geo.Flip.Horizontal {
			sx = -1
		}
		if geo.Flip.Vertical {
			sy = -1
		}
		dc.Scale(sx, sy)
		dc.Translate(-w/2, -h/2)
		dc.DrawImage(in, 0, 0)
		rotated = dc.Image()
	}

	r := geo.SourceRect.Image()
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Draw(dst, dst.Bounds(), rotated, r.Min.Add(rotated.Bounds().Min), xdraw.Src)
	return dst
}

// Render runs every stage except encode at full output resolution.
func (c *Compositor) Render(ctx context.Context, src image.Image, req Request) (*image.NRGBA, error) {
	return c.render(ctx, src, req, 0)
}

// Preview renders at most maxWidth pixels wide. Placement and pixel-valued
// settings are computed against the full-resolution output and scaled, so
// the preview matches the export geometry.
func (c *Compositor) Preview(ctx context.Context, src image.Image, req Request, maxWidth int) (*image.NRGBA, error) {
	return c.render(ctx, src, req, maxWidth)
}

// Save renders at full resolution, applies the output size policy and
// encodes at quality (0..1).
func (c *Compositor) Save(ctx context.Context, src image.Image, req Request, quality float64) (*encode.Blob, error) {
	out, err := c.Render(ctx, src, req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	final := encode.Fit(out, c.maxWidth, c.maxHeight)
	blob, err := encode.Encode(c.codec, final, quality)
	if err != nil {
		return nil, err
	}
	c.log().Debug("Stage complete", "stage", StageEncode, "duration", time.Since(start), "bytes", len(blob.Data))
	return blob, nil
}

func (c *Compositor) render(ctx context.Context, src image.Image, req Request, maxWidth int) (*image.NRGBA, error) {
	if src == nil {
		return nil, fmt.Errorf("no source image")
	}

	start := time.Now()
	geo, err := geometry.ResolveCropGeometry(geometry.SizeOf(src), req.Crop)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve crop geometry: %w", err)
	}
	img := c.Crop(src, geo)
	ref := geometry.SizeOf(img)
	c.stageDone(StageCrop, img, start, "width", ref.Width, "height", ref.Height, "rotation", geo.Rotation)

	scale := 1.0
	if maxWidth > 0 && ref.Width > maxWidth {
		scale = float64(maxWidth) / float64(ref.Width)
		h := max(1, int(math.Round(float64(ref.Height)*scale)))
		img = canvas.Resize(img, maxWidth, h)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = time.Now()
	expr := req.Filters.Clamped().String()
	if expr != "" {
		terms, err := filter.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse filters: %w", err)
		}
		img = filter.ApplyTerms(img, terms, scale)
	}
	c.stageDone(StageFilter, img, start, "filter", expr)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = time.Now()
	plan, err := watermark.Layout(c.fonts, ref, req.Watermark, req.WatermarkImage)
	if err != nil {
		return nil, fmt.Errorf("failed to lay out watermark: %w", err)
	}
	if err := watermark.Draw(c.fonts, img, plan, req.WatermarkImage); err != nil {
		return nil, fmt.Errorf("failed to draw watermark: %w", err)
	}
	c.stageDone(StageWatermark, img, start, "items", len(plan.Items))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = time.Now()
	overlay.DrawVignette(img, req.Vignette)
	c.stageDone(StageVignette, img, start)

	start = time.Now()
	textPlan, ok, err := overlay.LayoutText(c.fonts, ref, req.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to lay out text overlay: %w", err)
	}
	if ok {
		if err := overlay.DrawText(c.fonts, img, textPlan); err != nil {
			return nil, fmt.Errorf("failed to draw text overlay: %w", err)
		}
	}
	c.stageDone(StageText, img, start)

	return img, nil
}

func (c *Compositor) stageDone(stage string, img *image.NRGBA, start time.Time, attrs ...any) {
	c.log().Debug("Stage complete", append([]any{"stage", stage, "duration", time.Since(start)}, attrs...)...)
	if c.onStage != nil {
		c.onStage(stage, img)
	}
}

func (c *Compositor) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

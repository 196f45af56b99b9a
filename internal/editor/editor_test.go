package editor

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pressroom/internal/encode"
	"github.com/MeKo-Tech/pressroom/internal/filter"
	"github.com/MeKo-Tech/pressroom/internal/geometry"
	"github.com/MeKo-Tech/pressroom/internal/imageio"
	"github.com/MeKo-Tech/pressroom/internal/pipeline"
	"github.com/MeKo-Tech/pressroom/internal/watermark"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

type uploadCall struct {
	blob *encode.Blob
	meta UploadMeta
}

type fakeUploader struct {
	mu    sync.Mutex
	calls []uploadCall
	gate  chan struct{}
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, blob *encode.Blob, meta UploadMeta) (StoredObject, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return StoredObject{}, f.err
	}
	f.calls = append(f.calls, uploadCall{blob: blob, meta: meta})
	return StoredObject{URL: "/media/" + meta.Filename, Width: blob.Width, Height: blob.Height}, nil
}

func newSession(t *testing.T, cfg Config) (*Session, *imageio.Tracker) {
	t.Helper()
	if cfg.Tracker == nil {
		cfg.Tracker = imageio.NewTracker()
	}
	if cfg.Loader == nil {
		cfg.Loader = imageio.MapLoader{
			"photo.png": solid(400, 200, color.NRGBA{R: 200, G: 100, B: 50, A: 255}),
			"logo.png":  solid(40, 20, color.NRGBA{R: 255, A: 255}),
		}
	}
	s := NewSession(cfg)
	require.NoError(t, s.Open(context.Background(), OpenOptions{Source: "photo.png", Name: "holiday.png"}))
	return s, cfg.Tracker
}

func TestOpenSeedsAspectAndHistory(t *testing.T) {
	s, _ := newSession(t, Config{})

	p := s.Params()
	require.NotNil(t, p.Crop.Aspect)
	require.InDelta(t, 2.0, *p.Crop.Aspect, 1e-9)
	require.Equal(t, 1, s.HistoryLen())
	require.False(t, s.CanUndo())
	require.False(t, s.CanRedo())
}

func TestOpenDecodeFailureLeavesSessionClosed(t *testing.T) {
	s := NewSession(Config{Loader: imageio.MapLoader{}})
	err := s.Open(context.Background(), OpenOptions{Source: "missing.png"})
	require.True(t, imageio.IsDecodeError(err))

	_, err = s.Preview(context.Background(), 100)
	require.ErrorIs(t, err, ErrNotOpen)
}

func TestOpenFailsOnRequestedWatermark(t *testing.T) {
	tracker := imageio.NewTracker()
	s := NewSession(Config{
		Tracker: tracker,
		Loader:  imageio.MapLoader{"photo.png": solid(40, 20, color.NRGBA{A: 255})},
	})
	p := DefaultParams()
	p.Watermark.Type = watermark.TypeCustom
	p.Watermark.ImageRef = "../logo.png"

	err := s.Open(context.Background(), OpenOptions{Source: "photo.png", Initial: &p})
	require.True(t, imageio.IsDecodeError(err), "got %v", err)
	require.Equal(t, 0, tracker.Live())
	_, err = s.Preview(context.Background(), 10)
	require.ErrorIs(t, err, ErrNotOpen)
}

func TestOpenFallsBackFromSavedWatermark(t *testing.T) {
	ctx := context.Background()
	settings := &MemorySettings{}
	saved := watermark.DefaultConfig()
	saved.Type = watermark.TypeCustom
	saved.ImageRef = "gone.png"
	require.NoError(t, settings.SaveWatermark(ctx, saved))

	s, tracker := newSession(t, Config{Settings: settings})
	p := s.Params()
	require.Equal(t, watermark.TypeText, p.Watermark.Type)
	require.Equal(t, "gone.png", p.Watermark.ImageRef)
	require.Equal(t, 1, tracker.Live())

	_, err := s.Preview(ctx, 100)
	require.NoError(t, err)
}

func TestStoreClampsOutOfRangeValues(t *testing.T) {
	st := NewStore(DefaultParams())

	st.SetBrightness(5)
	st.SetContrast(-1)
	st.SetTemperature(250)
	st.SetBlur(-3)
	st.SetZoom(50)
	st.SetWatermarkOpacity(1.5)
	st.SetVignetteIntensity(-0.2)
	st.SetFilterPreset("unknown")

	p := st.Params()
	require.Equal(t, 3.0, p.Filters.Brightness)
	require.Equal(t, 0.0, p.Filters.Contrast)
	require.Equal(t, 100.0, p.Filters.Temperature)
	require.Equal(t, 0.0, p.Filters.Blur)
	require.Equal(t, float64(MaxZoom), p.Crop.Zoom)
	require.Equal(t, 1.0, p.Watermark.Opacity)
	require.Equal(t, 0.0, p.Vignette.Intensity)
	require.Equal(t, filter.PresetNone, p.Filters.Preset)

	st.SetAspect(0)
	require.Nil(t, st.Params().Crop.Aspect)
}

func TestStoreClampsCropAreaToInput(t *testing.T) {
	st := NewStore(DefaultParams())
	st.SetInput(geometry.Size{Width: 300, Height: 200})

	st.SetCroppedArea(geometry.Rect{X: 250, Y: -10, Width: 200, Height: 100})
	area := st.Params().Crop.CroppedAreaPixels
	require.NotNil(t, area)
	require.LessOrEqual(t, area.X+area.Width, 300.0)
	require.GreaterOrEqual(t, area.Y, 0.0)
}

func TestUndoRedoWithContinuousChanges(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, Config{})

	for _, v := range []float64{1.1, 1.2, 1.3, 1.4} {
		s.Change(func(st *Store) { st.SetBrightness(v) })
	}
	require.Equal(t, 1, s.HistoryLen(), "continuous changes must not record history")
	s.EndInteraction(ctx)
	require.Equal(t, 2, s.HistoryLen())

	s.Commit(ctx, func(st *Store) { st.SetFilterPreset("noir") })
	require.Equal(t, 3, s.HistoryLen())

	require.True(t, s.Undo(ctx))
	require.Equal(t, filter.PresetNone, s.Params().Filters.Preset)
	require.InDelta(t, 1.4, s.Params().Filters.Brightness, 1e-9)

	require.True(t, s.Undo(ctx))
	require.Equal(t, 1.0, s.Params().Filters.Brightness)
	require.False(t, s.Undo(ctx))

	require.True(t, s.Redo(ctx))
	require.InDelta(t, 1.4, s.Params().Filters.Brightness, 1e-9)

	s.Commit(ctx, func(st *Store) { st.SetSaturation(2) })
	require.False(t, s.CanRedo(), "a commit after undo drops the redo branch")
	require.Equal(t, 3, s.HistoryLen())
}

func TestResetIsUndoable(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, Config{})

	s.Commit(ctx, func(st *Store) {
		st.SetRotation(90)
		st.SetBlur(10)
		st.SetAspect(1)
	})
	s.Reset(ctx)
	p := s.Params()
	require.Equal(t, 0.0, p.Crop.Rotation)
	require.Equal(t, 0.0, p.Filters.Blur)
	require.NotNil(t, p.Crop.Aspect)
	require.InDelta(t, 2.0, *p.Crop.Aspect, 1e-9, "reset restores the image aspect")

	st := NewStore(DefaultParams())
	st.SetAspect(1.5)
	st.Reset()
	require.Nil(t, st.Params().Crop.Aspect)

	require.True(t, s.Undo(ctx))
	require.Equal(t, 90.0, s.Params().Crop.Rotation)
}

func TestWatermarkSettingsHydrateAndPersist(t *testing.T) {
	ctx := context.Background()
	settings := &MemorySettings{}
	saved := watermark.DefaultConfig()
	saved.Type = watermark.TypeText
	saved.Text = "Studio"
	require.NoError(t, settings.SaveWatermark(ctx, saved))

	s, _ := newSession(t, Config{Settings: settings})
	require.Equal(t, "Studio", s.Params().Watermark.Text)

	s.Commit(ctx, func(st *Store) { st.SetWatermarkOpacity(0.9) })
	got, ok, err := settings.LoadWatermark(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0.9, got.Opacity)
	require.Equal(t, "Studio", got.Text)

	// Non-watermark commits leave the stored settings alone.
	require.NoError(t, settings.SaveWatermark(ctx, saved))
	s.Commit(ctx, func(st *Store) { st.SetBlur(4) })
	got, _, _ = settings.LoadWatermark(ctx)
	require.Equal(t, saved, got)
}

func TestSetWatermarkImage(t *testing.T) {
	ctx := context.Background()
	s, tracker := newSession(t, Config{})
	live := tracker.Live()

	require.NoError(t, s.SetWatermarkImage(ctx, "logo.png"))
	require.Equal(t, watermark.TypeCustom, s.Params().Watermark.Type)
	require.Equal(t, live+1, tracker.Live())

	require.NoError(t, s.SetWatermarkImage(ctx, "logo.png"))
	require.Equal(t, live+1, tracker.Live(), "replaced watermark images are released")

	before := s.Params()
	historyLen := s.HistoryLen()
	err := s.SetWatermarkImage(ctx, "broken.png")
	require.True(t, imageio.IsDecodeError(err))
	require.Equal(t, before, s.Params())
	require.Equal(t, historyLen, s.HistoryLen())
	require.NotNil(t, s.Request().WatermarkImage)
}

func TestApplyCropReleasesUnreferencedImages(t *testing.T) {
	ctx := context.Background()
	s, tracker := newSession(t, Config{HistoryCapacity: 2})
	require.Equal(t, 1, tracker.Live())

	for i := 0; i < 5; i++ {
		s.Commit(ctx, func(st *Store) {
			st.SetCroppedArea(geometry.Rect{Width: 100, Height: 80})
		})
		require.NoError(t, s.ApplyCrop(ctx))
		// Two snapshots reach back at most one crop: the source plus the
		// current and the previous working image.
		require.Equal(t, min(i+2, 3), tracker.Live())
	}

	require.Equal(t, image.Rect(0, 0, 100, 80), s.Input().Bounds())
	p := s.Params()
	require.Nil(t, p.Crop.CroppedAreaPixels)
	require.Equal(t, 0.0, p.Crop.Rotation)

	s.Close()
	require.Equal(t, 0, tracker.Live())
}

func TestUndoApplyCropRestoresInput(t *testing.T) {
	ctx := context.Background()
	up := &fakeUploader{}
	tracker := imageio.NewTracker()
	s := NewSession(Config{Uploader: up, Tracker: tracker})
	require.NoError(t, s.Open(ctx, OpenOptions{Image: solid(1000, 1000, color.NRGBA{G: 200, A: 255}), Name: "square.png"}))

	s.Commit(ctx, func(st *Store) {
		st.SetCroppedArea(geometry.Rect{X: 100, Y: 100, Width: 800, Height: 800})
	})
	require.NoError(t, s.ApplyCrop(ctx))
	require.Equal(t, image.Rect(0, 0, 800, 800), s.Input().Bounds())

	require.True(t, s.Undo(ctx))
	require.Equal(t, image.Rect(0, 0, 1000, 1000), s.Input().Bounds())
	require.Equal(t, &geometry.Rect{X: 100, Y: 100, Width: 800, Height: 800}, s.Params().Crop.CroppedAreaPixels)

	obj, err := s.Save(ctx, SaveOptions{})
	require.NoError(t, err)
	require.Equal(t, 800, obj.Width)
	require.Equal(t, 800, obj.Height)

	require.True(t, s.Undo(ctx))
	obj, err = s.Save(ctx, SaveOptions{})
	require.NoError(t, err)
	require.Equal(t, 1000, obj.Width)
	require.Equal(t, 1000, obj.Height)

	require.True(t, s.Redo(ctx))
	require.True(t, s.Redo(ctx))
	require.Equal(t, image.Rect(0, 0, 800, 800), s.Input().Bounds())
	require.Nil(t, s.Params().Crop.CroppedAreaPixels)

	// A new edit after undoing the crop drops the cropped image for good.
	require.True(t, s.Undo(ctx))
	require.Equal(t, 2, tracker.Live())
	s.Commit(ctx, func(st *Store) { st.SetBlur(2) })
	require.Equal(t, 1, tracker.Live())
}

func TestApplyCropRotates(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, Config{})

	s.Commit(ctx, func(st *Store) { st.SetRotation(90) })
	require.NoError(t, s.ApplyCrop(ctx))
	require.Equal(t, image.Rect(0, 0, 200, 400), s.Input().Bounds())
}

func TestSaveUploadsEncodedImage(t *testing.T) {
	ctx := context.Background()
	up := &fakeUploader{}
	s, _ := newSession(t, Config{Uploader: up})

	s.Commit(ctx, func(st *Store) {
		st.SetCroppedArea(geometry.Rect{X: 0, Y: 0, Width: 200, Height: 100})
	})
	obj, err := s.Save(ctx, SaveOptions{Quality: "medium", Folder: "blog", AltText: "a beach"})
	require.NoError(t, err)
	require.Equal(t, "/media/holiday.jpg", obj.URL)
	require.Equal(t, 200, obj.Width)
	require.Equal(t, 100, obj.Height)

	require.Len(t, up.calls, 1)
	call := up.calls[0]
	require.Equal(t, encode.MimeType, call.blob.MimeType)
	require.Equal(t, UploadMeta{Filename: "holiday.jpg", Folder: "blog", AltText: "a beach"}, call.meta)
}

func TestSaveFallbackName(t *testing.T) {
	up := &fakeUploader{}
	now := time.UnixMilli(1700000000000)
	s := NewSession(Config{Uploader: up, Now: func() time.Time { return now }})
	require.NoError(t, s.Open(context.Background(), OpenOptions{Image: solid(10, 10, color.NRGBA{A: 255})}))

	obj, err := s.Save(context.Background(), SaveOptions{})
	require.NoError(t, err)
	require.Equal(t, "/media/edited-1700000000000.jpg", obj.URL)
}

func TestSaveRejectsUnknownQuality(t *testing.T) {
	up := &fakeUploader{}
	s, _ := newSession(t, Config{Uploader: up})
	_, err := s.Save(context.Background(), SaveOptions{Quality: "ultra"})
	require.Error(t, err)
	require.Empty(t, up.calls)
}

type failingCodec struct{}

func (failingCodec) Encode(image.Image, float64) ([]byte, error) {
	return nil, errors.New("encoder exploded")
}

func TestSaveEncodeFailureSkipsUpload(t *testing.T) {
	up := &fakeUploader{}
	s, _ := newSession(t, Config{
		Uploader:   up,
		Compositor: pipeline.NewCompositor(pipeline.Options{Codec: failingCodec{}}),
	})
	before := s.Params()

	_, err := s.Save(context.Background(), SaveOptions{})
	var encErr *encode.EncodeError
	require.ErrorAs(t, err, &encErr)
	require.Empty(t, up.calls)
	require.Equal(t, before, s.Params())
	require.False(t, s.Busy())
}

func TestBusyGuardRejectsReentry(t *testing.T) {
	ctx := context.Background()
	up := &fakeUploader{gate: make(chan struct{})}
	s, _ := newSession(t, Config{Uploader: up})

	done := make(chan error, 1)
	go func() {
		_, err := s.Save(ctx, SaveOptions{})
		done <- err
	}()

	require.Eventually(t, s.Busy, time.Second, time.Millisecond)

	_, err := s.Save(ctx, SaveOptions{})
	require.ErrorIs(t, err, ErrBusy)
	require.ErrorIs(t, s.ApplyCrop(ctx), ErrBusy)

	close(up.gate)
	require.NoError(t, <-done)
	require.False(t, s.Busy())
	require.Len(t, up.calls, 1)
}

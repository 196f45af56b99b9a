package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/pressroom/internal/encode"
	"github.com/MeKo-Tech/pressroom/internal/geometry"
	"github.com/MeKo-Tech/pressroom/internal/history"
	"github.com/MeKo-Tech/pressroom/internal/imageio"
	"github.com/MeKo-Tech/pressroom/internal/pipeline"
	"github.com/MeKo-Tech/pressroom/internal/watermark"
)

var (
	// ErrBusy rejects a save or crop-apply while another one is running.
	ErrBusy = errors.New("an edit operation is already in progress")
	// ErrNotOpen is returned by operations that need an opened session.
	ErrNotOpen = errors.New("session has no image open")
)

// Config wires a session to its collaborators. Only Loader is required for
// opening by reference; Uploader is required for Save.
type Config struct {
	Loader     imageio.Loader
	Settings   SettingsRepository
	Uploader   Uploader
	Compositor *pipeline.Compositor
	Tracker    *imageio.Tracker
	Logger     *slog.Logger
	// HistoryCapacity caps undo depth; zero uses the history default.
	HistoryCapacity int
	Now             func() time.Time
}

// OpenOptions select the image and initial state of a session.
type OpenOptions struct {
	// Source is a reference resolved through the configured Loader.
	Source string
	// Image, when set, is used instead of loading Source.
	Image image.Image
	// Name is the original filename used to name the output.
	Name string
	// Initial restores previously saved parameters instead of defaults.
	Initial *Params
}

// SaveOptions control the export.
type SaveOptions struct {
	Quality  string
	Filename string
	Folder   string
	AltText  string
}

// Session is one editor instance over one source image. Parameter changes
// are single-writer; Save and ApplyCrop are guarded against re-entry and
// fail fast with ErrBusy instead of queuing.
type Session struct {
	cfg Config

	mu      sync.Mutex
	store   *Store
	history *history.History[snapshot]
	source  *imageio.Handle
	working *imageio.Handle
	// workings holds every working image a snapshot may still point at.
	workings  []*imageio.Handle
	mark      *imageio.Handle
	name      string
	pending   bool
	persisted *watermark.Config

	busy atomic.Bool
}

// snapshot is one undo step: the parameters and the working image they
// were made against. Handles are shared by reference, never copied.
type snapshot struct {
	params  Params
	working *imageio.Handle
}

func (s snapshot) clone() snapshot {
	return snapshot{params: s.params.Clone(), working: s.working}
}

// NewSession creates a session; call Open before editing.
func NewSession(cfg Config) *Session {
	if cfg.Tracker == nil {
		cfg.Tracker = imageio.NewTracker()
	}
	if cfg.Compositor == nil {
		cfg.Compositor = pipeline.NewCompositor(pipeline.Options{Logger: cfg.Logger})
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	var opts []history.Option
	if cfg.HistoryCapacity > 0 {
		opts = append(opts, history.WithCapacity(cfg.HistoryCapacity))
	}
	return &Session{
		cfg:     cfg,
		store:   NewStore(DefaultParams()),
		history: history.New(snapshot.clone, opts...),
	}
}

// Open decodes the source, derives its aspect ratio, seeds the parameters
// and records the initial snapshot, in that order. A decode failure of the
// source, or of a custom watermark in opts.Initial, leaves the session
// unopened.
func (s *Session) Open(ctx context.Context, opts OpenOptions) error {
	var src *imageio.Handle
	if opts.Image != nil {
		src = s.cfg.Tracker.Track(opts.Source, opts.Image)
	} else {
		if s.cfg.Loader == nil {
			return fmt.Errorf("no image loader configured")
		}
		h, err := s.cfg.Tracker.Load(ctx, s.cfg.Loader, opts.Source)
		if err != nil {
			return err
		}
		src = h
	}

	size := geometry.SizeOf(src.Image())
	aspect := size.Aspect()

	var p Params
	if opts.Initial != nil {
		p = opts.Initial.Clone()
	} else {
		p = DefaultParams()
		p.Crop.Aspect = &aspect
		if s.cfg.Settings != nil {
			saved, ok, err := s.cfg.Settings.LoadWatermark(ctx)
			if err != nil {
				s.log().Warn("Failed to load watermark settings", "error", err)
			} else if ok {
				p.Watermark = saved
			}
		}
	}

	// A custom watermark the caller asked for must load; one restored from
	// saved settings falls back to the text watermark with a warning.
	var mark *imageio.Handle
	if p.Watermark.Type == watermark.TypeCustom && p.Watermark.ImageRef != "" && s.cfg.Loader != nil {
		h, err := s.cfg.Tracker.Load(ctx, s.cfg.Loader, p.Watermark.ImageRef)
		switch {
		case err != nil && opts.Initial != nil:
			src.Release()
			return fmt.Errorf("failed to load custom watermark: %w", err)
		case err != nil:
			s.log().Warn("Failed to load custom watermark", "ref", p.Watermark.ImageRef, "error", err)
			p.Watermark.Type = watermark.TypeText
		default:
			mark = h
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseLocked()
	s.source = src
	s.mark = mark
	s.name = opts.Name
	if s.name == "" {
		s.name = opts.Source
	}
	s.store = NewStore(p)
	s.store.SetInput(size)
	s.history.Reset(snapshot{params: s.store.Params()})
	s.pending = false
	wm := s.store.Params().Watermark
	s.persisted = &wm

	s.log().Info("Opened image", "source", opts.Source, "width", size.Width, "height", size.Height, "aspect", aspect)
	return nil
}

// Params returns the current parameters.
func (s *Session) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Params()
}

// Input returns the image the next crop or save reads from: the working
// image once a crop has been applied, the source before.
func (s *Session) Input() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputLocked()
}

func (s *Session) inputLocked() image.Image {
	if s.working != nil {
		return s.working.Image()
	}
	return s.source.Image()
}

// Change applies a continuous edit (a slider tick, a drag move) without
// recording history. Call EndInteraction when the gesture ends.
func (s *Session) Change(fn func(*Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.store)
	s.pending = true
}

// EndInteraction commits pending continuous edits as one snapshot.
func (s *Session) EndInteraction(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		s.commitLocked(ctx)
	}
}

// Commit applies a discrete edit and records a snapshot. fn may be nil to
// commit the current state.
func (s *Session) Commit(ctx context.Context, fn func(*Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		fn(s.store)
	}
	s.commitLocked(ctx)
}

func (s *Session) commitLocked(ctx context.Context) {
	s.history.Commit(snapshot{params: s.store.Params(), working: s.working})
	s.pending = false
	s.collectLocked()
	s.persistLocked(ctx)
}

// restoreLocked makes snap current, including the image its crop window
// refers to.
func (s *Session) restoreLocked(ctx context.Context, snap snapshot) {
	s.working = snap.working
	s.store.SetInput(geometry.SizeOf(s.inputLocked()))
	s.store.Replace(snap.params)
	s.pending = false
	s.persistLocked(ctx)
}

// collectLocked releases the working images that neither the session nor
// any remaining snapshot refers to, such as those of a dropped redo branch
// or of snapshots pushed out by the history capacity.
func (s *Session) collectLocked() {
	live := map[*imageio.Handle]bool{s.working: true}
	for _, snap := range s.history.Snapshots() {
		live[snap.working] = true
	}
	kept := s.workings[:0]
	for _, h := range s.workings {
		if live[h] {
			kept = append(kept, h)
			continue
		}
		h.Release()
	}
	clear(s.workings[len(kept):])
	s.workings = kept
}

// persistLocked saves the watermark settings when they changed since the
// last save.
func (s *Session) persistLocked(ctx context.Context) {
	if s.cfg.Settings == nil {
		return
	}
	wm := s.store.Params().Watermark
	if s.persisted != nil && *s.persisted == wm {
		return
	}
	if err := s.cfg.Settings.SaveWatermark(ctx, wm); err != nil {
		s.log().Warn("Failed to persist watermark settings", "error", err)
		return
	}
	s.persisted = &wm
}

// Undo steps back one snapshot. It reports false at the oldest snapshot.
func (s *Session) Undo(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.history.Undo()
	if ok {
		s.restoreLocked(ctx, snap)
	}
	return ok
}

// Redo steps forward one snapshot. It reports false at the newest snapshot.
func (s *Session) Redo(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.history.Redo()
	if ok {
		s.restoreLocked(ctx, snap)
	}
	return ok
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// HistoryLen is the number of recorded snapshots.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len()
}

// Reset restores default parameters as an undoable step.
func (s *Session) Reset(ctx context.Context) {
	s.Commit(ctx, func(st *Store) { st.Reset() })
}

// SetWatermarkImage loads a custom watermark image and switches the
// watermark to it. A decode failure leaves the session unchanged.
func (s *Session) SetWatermarkImage(ctx context.Context, ref string) error {
	if s.cfg.Loader == nil {
		return fmt.Errorf("no image loader configured")
	}
	h, err := s.cfg.Tracker.Load(ctx, s.cfg.Loader, ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mark.Release()
	s.mark = h
	s.store.Update(func(p *Params) {
		p.Watermark.Type = watermark.TypeCustom
		p.Watermark.ImageRef = ref
	})
	s.commitLocked(ctx)
	return nil
}

// ApplyCrop bakes the current crop, rotation and flip into a new working
// image and resets the crop controls, since they now describe the new
// image. The previous working image stays alive while a snapshot refers to
// it, so the step can be undone.
func (s *Session) ApplyCrop(ctx context.Context) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	s.mu.Lock()
	if s.source == nil {
		s.mu.Unlock()
		return ErrNotOpen
	}
	input := s.inputLocked()
	params := s.store.Params()
	s.mu.Unlock()

	geo, err := geometry.ResolveCropGeometry(geometry.SizeOf(input), params.CropParams())
	if err != nil {
		return fmt.Errorf("failed to apply crop: %w", err)
	}
	cropped := s.cfg.Compositor.Crop(input, geo)
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.working = s.cfg.Tracker.Track("working", cropped)
	s.workings = append(s.workings, s.working)
	size := geometry.SizeOf(cropped)
	s.store.SetInput(size)
	s.store.Update(func(p *Params) {
		aspect := p.Crop.Aspect
		p.Crop = Crop{Zoom: 1, Aspect: aspect}
	})
	s.commitLocked(ctx)

	s.log().Info("Applied crop", "width", size.Width, "height", size.Height, "live_images", s.cfg.Tracker.Live())
	return nil
}

// Request builds the pipeline request for the current parameters.
func (s *Session) Request() pipeline.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestLocked()
}

func (s *Session) requestLocked() pipeline.Request {
	p := s.store.Params()
	req := pipeline.Request{
		Crop:      p.CropParams(),
		Filters:   p.Filters,
		Watermark: p.Watermark,
		Vignette:  p.Vignette,
		Text:      p.TextOverlay,
	}
	if s.mark != nil {
		req.WatermarkImage = s.mark.Image()
	}
	return req
}

// Preview renders the current state at most maxWidth pixels wide.
func (s *Session) Preview(ctx context.Context, maxWidth int) (*image.NRGBA, error) {
	s.mu.Lock()
	if s.source == nil {
		s.mu.Unlock()
		return nil, ErrNotOpen
	}
	input := s.inputLocked()
	req := s.requestLocked()
	s.mu.Unlock()

	return s.cfg.Compositor.Preview(ctx, input, req, maxWidth)
}

// Save runs the full pipeline, encodes and uploads the result. Any failure
// aborts before the upload and leaves the session state untouched.
func (s *Session) Save(ctx context.Context, opts SaveOptions) (StoredObject, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return StoredObject{}, ErrBusy
	}
	defer s.busy.Store(false)

	if s.cfg.Uploader == nil {
		return StoredObject{}, fmt.Errorf("no uploader configured")
	}
	quality, err := encode.ResolveQuality(opts.Quality)
	if err != nil {
		return StoredObject{}, err
	}

	s.mu.Lock()
	if s.source == nil {
		s.mu.Unlock()
		return StoredObject{}, ErrNotOpen
	}
	input := s.inputLocked()
	req := s.requestLocked()
	name := opts.Filename
	if name == "" {
		name = s.name
	}
	s.mu.Unlock()

	blob, err := s.cfg.Compositor.Save(ctx, input, req, quality)
	if err != nil {
		return StoredObject{}, fmt.Errorf("failed to export image: %w", err)
	}

	meta := UploadMeta{
		Filename: encode.OutputName(name, s.cfg.Now()),
		Folder:   opts.Folder,
		AltText:  opts.AltText,
	}
	obj, err := s.cfg.Uploader.Upload(ctx, blob, meta)
	if err != nil {
		return StoredObject{}, fmt.Errorf("failed to upload image: %w", err)
	}

	s.log().Info("Saved image", "url", obj.URL, "width", obj.Width, "height", obj.Height, "bytes", len(blob.Data))
	return obj, nil
}

// Busy reports whether a save or crop-apply is in flight.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Close releases every image the session owns.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
}

func (s *Session) releaseLocked() {
	s.source.Release()
	s.mark.Release()
	for _, h := range s.workings {
		h.Release()
	}
	s.history.Clear()
	s.source, s.working, s.mark, s.workings = nil, nil, nil, nil
}

func (s *Session) log() *slog.Logger {
	if s.cfg.Logger != nil {
		return s.cfg.Logger
	}
	return slog.Default()
}

package imageio

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
)

// Tracker issues handles for decoded images and counts the ones that are
// still alive, so repeated replacements can be checked for leaks.
type Tracker struct {
	live atomic.Int64
	next atomic.Uint64
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Live is the number of handles not yet released.
func (t *Tracker) Live() int {
	return int(t.live.Load())
}

// Track wraps an already decoded image in a handle.
func (t *Tracker) Track(ref string, img image.Image) *Handle {
	t.live.Add(1)
	return &Handle{id: t.next.Add(1), ref: ref, img: img, tracker: t}
}

// Load decodes ref through loader and wraps the result.
func (t *Tracker) Load(ctx context.Context, loader Loader, ref string) (*Handle, error) {
	img, err := loader.Load(ctx, ref)
	if err != nil {
		if IsDecodeError(err) {
			return nil, err
		}
		return nil, &DecodeError{Ref: ref, Err: err}
	}
	return t.Track(ref, img), nil
}

// Handle is an owned reference to a decoded image.
type Handle struct {
	id      uint64
	ref     string
	tracker *Tracker

	mu       sync.Mutex
	img      image.Image
	released bool
}

// ID is unique per tracker.
func (h *Handle) ID() uint64 { return h.id }

// Ref is the reference the image was loaded from.
func (h *Handle) Ref() string { return h.ref }

// Image returns the decoded image, or nil after Release.
func (h *Handle) Image() image.Image {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.img
}

// Released reports whether Release has been called.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// Release drops the image. Calling it more than once is a no-op.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.released = true
	h.img = nil
	h.tracker.live.Add(-1)
}

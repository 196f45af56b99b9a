// Package history implements a linear undo/redo stack of snapshots.
package history

// DefaultCapacity bounds a history created without an explicit capacity.
const DefaultCapacity = 100

// History is an ordered list of snapshots with a cursor. Committing while
// the cursor is not at the end discards every snapshot after it.
//
// History is not safe for concurrent use; it belongs to the single writer
// that owns the edited state.
type History[T any] struct {
	snapshots []T
	cursor    int
	capacity  int
	clone     func(T) T
}

// Option configures a History.
type Option func(*options)

type options struct {
	capacity int
}

// WithCapacity caps the number of snapshots kept; the oldest are dropped
// first. A capacity below 2 disables the cap.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// New creates an empty history. clone deep-copies a snapshot on the way in
// and out so callers can never mutate stored state; nil stores values as
// given.
func New[T any](clone func(T) T, opts ...Option) *History[T] {
	o := options{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &History[T]{cursor: -1, capacity: o.capacity, clone: clone}
}

// Commit appends s after the cursor and moves the cursor onto it.
func (h *History[T]) Commit(s T) {
	h.snapshots = append(h.snapshots[:h.cursor+1], h.clone(s))
	if h.capacity >= 2 && len(h.snapshots) > h.capacity {
		drop := len(h.snapshots) - h.capacity
		var zero T
		for i := 0; i < drop; i++ {
			h.snapshots[i] = zero
		}
		h.snapshots = h.snapshots[drop:]
	}
	h.cursor = len(h.snapshots) - 1
}

// Undo moves the cursor back and returns the snapshot there. At the first
// snapshot it is a no-op and reports false.
func (h *History[T]) Undo() (T, bool) {
	if !h.CanUndo() {
		var zero T
		return zero, false
	}
	h.cursor--
	return h.clone(h.snapshots[h.cursor]), true
}

// Redo moves the cursor forward and returns the snapshot there. At the last
// snapshot it is a no-op and reports false.
func (h *History[T]) Redo() (T, bool) {
	if !h.CanRedo() {
		var zero T
		return zero, false
	}
	h.cursor++
	return h.clone(h.snapshots[h.cursor]), true
}

// Current returns the snapshot under the cursor.
func (h *History[T]) Current() (T, bool) {
	if h.cursor < 0 {
		var zero T
		return zero, false
	}
	return h.clone(h.snapshots[h.cursor]), true
}

// Reset drops every snapshot and seeds the history with s.
func (h *History[T]) Reset(s T) {
	h.Clear()
	h.Commit(s)
}

// Clear drops every snapshot.
func (h *History[T]) Clear() {
	h.snapshots = nil
	h.cursor = -1
}

func (h *History[T]) CanUndo() bool { return h.cursor > 0 }

func (h *History[T]) CanRedo() bool { return h.cursor >= 0 && h.cursor < len(h.snapshots)-1 }

// Snapshots returns every stored snapshot, oldest first, including the
// redo branch.
func (h *History[T]) Snapshots() []T {
	out := make([]T, len(h.snapshots))
	for i, v := range h.snapshots {
		out[i] = h.clone(v)
	}
	return out
}

// Len is the number of stored snapshots.
func (h *History[T]) Len() int { return len(h.snapshots) }

// Cursor is the index of the current snapshot, -1 when empty.
func (h *History[T]) Cursor() int { return h.cursor }

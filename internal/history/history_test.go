package history

import (
	"slices"
	"testing"
)

func build(n int) *History[int] {
	h := New[int](nil, WithCapacity(0))
	for i := 0; i < n; i++ {
		h.Commit(i)
	}
	return h
}

func TestCommitTruncatesAfterCursor(t *testing.T) {
	for n := 2; n <= 6; n++ {
		for k := 0; k < n-1; k++ {
			h := build(n)
			for h.Cursor() > k {
				h.Undo()
			}

			h.Commit(100)

			if h.Len() != k+2 {
				t.Fatalf("n=%d k=%d: len = %d, want %d", n, k, h.Len(), k+2)
			}
			if h.Cursor() != k+1 {
				t.Fatalf("n=%d k=%d: cursor = %d, want %d", n, k, h.Cursor(), k+1)
			}
			if cur, _ := h.Current(); cur != 100 {
				t.Fatalf("n=%d k=%d: current = %d, want 100", n, k, cur)
			}
			if h.CanRedo() {
				t.Fatalf("n=%d k=%d: redo must be impossible after commit", n, k)
			}
		}
	}
}

func TestUndoRedoBoundsAreNoOps(t *testing.T) {
	h := build(3)

	if _, ok := h.Redo(); ok {
		t.Fatal("redo at the end must be a no-op")
	}
	if h.Cursor() != 2 || h.Len() != 3 {
		t.Fatalf("redo changed state: cursor=%d len=%d", h.Cursor(), h.Len())
	}

	h.Undo()
	h.Undo()
	if _, ok := h.Undo(); ok {
		t.Fatal("undo at the start must be a no-op")
	}
	if h.Cursor() != 0 || h.Len() != 3 {
		t.Fatalf("undo changed state: cursor=%d len=%d", h.Cursor(), h.Len())
	}

	v, ok := h.Redo()
	if !ok || v != 1 {
		t.Fatalf("redo = %d, %v", v, ok)
	}
}

func TestEmptyHistory(t *testing.T) {
	h := New[string](nil)
	if _, ok := h.Undo(); ok {
		t.Fatal("undo on empty history")
	}
	if _, ok := h.Redo(); ok {
		t.Fatal("redo on empty history")
	}
	if _, ok := h.Current(); ok {
		t.Fatal("current on empty history")
	}
	if h.Cursor() != -1 {
		t.Fatalf("cursor = %d", h.Cursor())
	}
}

func TestCapacityDropsOldest(t *testing.T) {
	h := New[int](nil, WithCapacity(3))
	for i := 0; i < 5; i++ {
		h.Commit(i)
	}
	if h.Len() != 3 || h.Cursor() != 2 {
		t.Fatalf("len=%d cursor=%d", h.Len(), h.Cursor())
	}
	h.Undo()
	v, _ := h.Undo()
	if v != 2 {
		t.Fatalf("oldest kept = %d, want 2", v)
	}
}

func TestCloneIsolatesSnapshots(t *testing.T) {
	h := New(slices.Clone[[]int])
	s := []int{1, 2}
	h.Commit(s)
	s[0] = 99

	cur, _ := h.Current()
	if cur[0] != 1 {
		t.Fatalf("stored snapshot was mutated: %v", cur)
	}
	cur[1] = 42
	again, _ := h.Current()
	if again[1] != 2 {
		t.Fatalf("returned snapshot aliases storage: %v", again)
	}
}

func TestResetSeeds(t *testing.T) {
	h := build(4)
	h.Reset(7)
	if h.Len() != 1 || h.Cursor() != 0 || h.CanUndo() {
		t.Fatalf("reset: len=%d cursor=%d", h.Len(), h.Cursor())
	}
}

func TestSnapshotsListsRedoBranch(t *testing.T) {
	h := New[int](nil, WithCapacity(3))
	for i := 0; i < 5; i++ {
		h.Commit(i)
	}
	h.Undo()

	if got := h.Snapshots(); !slices.Equal(got, []int{2, 3, 4}) {
		t.Fatalf("snapshots = %v, want [2 3 4]", got)
	}

	h.Commit(9)
	if got := h.Snapshots(); !slices.Equal(got, []int{2, 3, 9}) {
		t.Fatalf("snapshots after commit = %v, want [2 3 9]", got)
	}
}

package scene

import (
	"errors"
	"fmt"
	"slices"

	"github.com/MeKo-Tech/pressroom/internal/history"
)

var (
	ErrNotFound     = errors.New("element not found")
	ErrLocked       = errors.New("element is locked")
	ErrInvalidOrder = errors.New("order must list every element exactly once")
)

// DuplicateOffset shifts duplicates away from their original.
const DuplicateOffset = 20

type snapshot struct {
	meta     Meta
	elements Elements
}

func (s snapshot) clone() snapshot {
	return snapshot{meta: s.meta, elements: s.elements.Clone()}
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces NewID.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Store) { s.newID = gen }
}

// WithHistoryCapacity caps undo depth.
func WithHistoryCapacity(n int) Option {
	return func(s *Store) { s.capacity = n }
}

// Store owns one template being designed. Every mutation except selection
// and in-progress drags records an undo snapshot. It is single-writer.
type Store struct {
	meta     Meta
	elements Elements
	selected []string
	dragging bool

	newID    IDGenerator
	capacity int
	history  *history.History[snapshot]
}

// NewStore returns a store holding a blank template.
func NewStore(opts ...Option) *Store {
	s := &Store{meta: DefaultMeta(), newID: NewID}
	for _, opt := range opts {
		opt(s)
	}
	var hopts []history.Option
	if s.capacity > 0 {
		hopts = append(hopts, history.WithCapacity(s.capacity))
	}
	s.history = history.New(snapshot.clone, hopts...)
	s.history.Reset(s.snapshot())
	return s
}

func (s *Store) snapshot() snapshot {
	return snapshot{meta: s.meta, elements: s.elements}
}

func (s *Store) commit() {
	s.dragging = false
	s.history.Commit(s.snapshot())
}

func (s *Store) restore(snap snapshot) {
	s.meta = snap.meta
	s.elements = snap.elements
	s.dragging = false
	s.selected = slices.DeleteFunc(s.selected, func(id string) bool {
		return s.elements.Index(id) < 0
	})
}

// Template returns a copy of the current template.
func (s *Store) Template() Template {
	return Template{Meta: s.meta, Elements: s.elements.Clone()}
}

// Meta returns the template metadata.
func (s *Store) Meta() Meta {
	return s.meta
}

// Elements returns a copy of the elements in paint order.
func (s *Store) Elements() Elements {
	return s.elements.Clone()
}

// Element returns a copy of the element with id.
func (s *Store) Element(id string) (Element, bool) {
	i := s.elements.Index(id)
	if i < 0 {
		return nil, false
	}
	return s.elements[i].Clone(), true
}

// SelectedIDs returns the selection.
func (s *Store) SelectedIDs() []string {
	return slices.Clone(s.selected)
}

// LoadTemplate replaces the whole store with t and starts a fresh history.
// Elements without an id, or with an id already used, get a new one.
func (s *Store) LoadTemplate(t Template) {
	s.meta = t.Meta.Clamped()
	s.elements = make(Elements, 0, len(t.Elements))
	seen := make(map[string]bool, len(t.Elements))
	for _, e := range t.Elements {
		c := e.Clone()
		Clamp(c)
		if f := c.Base(); f.ID == "" || seen[f.ID] {
			f.ID = s.newID()
		}
		seen[c.Base().ID] = true
		s.elements = append(s.elements, c)
	}
	s.selected = nil
	s.dragging = false
	s.history.Reset(s.snapshot())
}

// AddElement appends a new element of kind on top of the paint order and
// selects it.
func (s *Store) AddElement(kind Kind, initial Patch) (Element, error) {
	e, err := NewElement(kind, s.newID())
	if err != nil {
		return nil, err
	}
	initial.Apply(e)
	s.elements = append(slices.Clone(s.elements), e)
	s.selected = []string{e.Base().ID}
	s.commit()
	return e.Clone(), nil
}

// mutate applies fn to a copy of the element with id and swaps it in.
func (s *Store) mutate(id string, allowLocked bool, fn func(Element)) error {
	i := s.elements.Index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.elements[i].Base().Locked && !allowLocked {
		return fmt.Errorf("%w: %s", ErrLocked, id)
	}
	c := s.elements[i].Clone()
	fn(c)
	next := slices.Clone(s.elements)
	next[i] = c
	s.elements = next
	return nil
}

// UpdateElement applies p to the element with id.
func (s *Store) UpdateElement(id string, p Patch) error {
	if err := s.mutate(id, false, p.Apply); err != nil {
		return err
	}
	s.commit()
	return nil
}

// MoveElement repositions an element during a drag. Nothing is recorded
// until EndDrag.
func (s *Store) MoveElement(id string, x, y float64) error {
	err := s.mutate(id, false, func(e Element) {
		f := e.Base()
		f.X, f.Y = x, y
	})
	if err != nil {
		return err
	}
	s.dragging = true
	return nil
}

// EndDrag records one snapshot for the drag that just finished.
func (s *Store) EndDrag() {
	if s.dragging {
		s.commit()
	}
}

// ToggleLock flips the lock flag of the element with id.
func (s *Store) ToggleLock(id string) error {
	err := s.mutate(id, true, func(e Element) {
		f := e.Base()
		f.Locked = !f.Locked
	})
	if err != nil {
		return err
	}
	s.commit()
	return nil
}

// SelectElement makes id the single selection; an empty id clears it.
func (s *Store) SelectElement(id string) error {
	if id == "" {
		s.selected = nil
		return nil
	}
	if s.elements.Index(id) < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.selected = []string{id}
	return nil
}

// DeleteSelected removes the selected elements that are not locked and
// returns how many were removed.
func (s *Store) DeleteSelected() int {
	var kept Elements
	removed := 0
	for _, e := range s.elements {
		f := e.Base()
		if slices.Contains(s.selected, f.ID) && !f.Locked {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if removed == 0 {
		return 0
	}
	s.elements = kept
	s.selected = slices.DeleteFunc(s.selected, func(id string) bool {
		return s.elements.Index(id) < 0
	})
	s.commit()
	return removed
}

// DuplicateSelected copies each selected element, offsets the copy and
// inserts it directly above its original. The copies become the selection.
// Copies are never locked.
func (s *Store) DuplicateSelected() []Element {
	if len(s.selected) == 0 {
		return nil
	}
	next := slices.Clone(s.elements)
	var copies []Element
	var ids []string
	for _, id := range s.selected {
		i := next.Index(id)
		if i < 0 {
			continue
		}
		c := next[i].Clone()
		f := c.Base()
		f.ID = s.newID()
		f.X += DuplicateOffset
		f.Y += DuplicateOffset
		f.Locked = false
		next = slices.Insert(next, i+1, c)
		copies = append(copies, c.Clone())
		ids = append(ids, f.ID)
	}
	if len(copies) == 0 {
		return nil
	}
	s.elements = next
	s.selected = ids
	s.commit()
	return copies
}

// MoveElementUp swaps the element with its upper neighbour. It reports
// false when the element is already on top.
func (s *Store) MoveElementUp(id string) (bool, error) {
	return s.swap(id, 1)
}

// MoveElementDown swaps the element with its lower neighbour. It reports
// false when the element is already at the bottom.
func (s *Store) MoveElementDown(id string) (bool, error) {
	return s.swap(id, -1)
}

func (s *Store) swap(id string, dir int) (bool, error) {
	i := s.elements.Index(id)
	if i < 0 {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	j := i + dir
	if j < 0 || j >= len(s.elements) {
		return false, nil
	}
	next := slices.Clone(s.elements)
	next[i], next[j] = next[j], next[i]
	s.elements = next
	s.commit()
	return true, nil
}

// ReorderElements sets the paint order explicitly. order must be a
// permutation of the current ids, bottom first.
func (s *Store) ReorderElements(order []string) error {
	if len(order) != len(s.elements) {
		return ErrInvalidOrder
	}
	next := make(Elements, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		i := s.elements.Index(id)
		if i < 0 || seen[id] {
			return ErrInvalidOrder
		}
		seen[id] = true
		next = append(next, s.elements[i])
	}
	if slices.Equal(order, s.ids()) {
		return nil
	}
	s.elements = next
	s.commit()
	return nil
}

func (s *Store) ids() []string {
	out := make([]string, len(s.elements))
	for i, e := range s.elements {
		out[i] = e.Base().ID
	}
	return out
}

// UpdateMeta replaces the template metadata.
func (s *Store) UpdateMeta(m Meta) {
	s.meta = m.Clamped()
	s.commit()
}

// Undo restores the previous snapshot. It reports false when there is none.
func (s *Store) Undo() bool {
	snap, ok := s.history.Undo()
	if ok {
		s.restore(snap)
	}
	return ok
}

// Redo re-applies the next snapshot. It reports false when there is none.
func (s *Store) Redo() bool {
	snap, ok := s.history.Redo()
	if ok {
		s.restore(snap)
	}
	return ok
}

func (s *Store) CanUndo() bool { return s.history.CanUndo() }
func (s *Store) CanRedo() bool { return s.history.CanRedo() }

// HistoryLen is the number of recorded snapshots.
func (s *Store) HistoryLen() int { return s.history.Len() }

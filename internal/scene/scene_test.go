package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pressroom/internal/imageio"
)

func seqIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("el_%d", n)
	}
}

func ptr[T any](v T) *T { return &v }

func newStore(t *testing.T, kinds ...Kind) (*Store, []string) {
	t.Helper()
	s := NewStore(WithIDGenerator(seqIDs()))
	var ids []string
	for _, k := range kinds {
		e, err := s.AddElement(k, Patch{})
		require.NoError(t, err)
		ids = append(ids, e.Base().ID)
	}
	return s, ids
}

func TestAddElementAppendsOnTopAndSelects(t *testing.T) {
	s, ids := newStore(t, KindShape, KindText)

	require.Equal(t, ids, s.ids())
	require.Equal(t, []string{ids[1]}, s.SelectedIDs())

	_, err := s.AddElement("sticker", Patch{})
	require.Error(t, err)
	require.Len(t, s.Elements(), 2)
}

func TestAddElementAppliesInitialProps(t *testing.T) {
	s, _ := newStore(t)
	e, err := s.AddElement(KindText, Patch{Content: ptr("Hello"), FontSize: ptr(-4.0), X: ptr(12.0)})
	require.NoError(t, err)

	text := e.(*TextElement)
	require.Equal(t, "Hello", text.Content)
	require.Equal(t, 1.0, text.FontSize)
	require.Equal(t, 12.0, text.X)
}

func TestIDsAreUnique(t *testing.T) {
	s := NewStore()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		e, err := s.AddElement(KindShape, Patch{})
		require.NoError(t, err)
		id := e.Base().ID
		require.True(t, strings.HasPrefix(id, IDPrefix+"_"), id)
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestMoveUpDownNoOpAtBounds(t *testing.T) {
	s, ids := newStore(t, KindShape, KindText, KindImageSlot)
	history := s.HistoryLen()

	moved, err := s.MoveElementUp(ids[2])
	require.NoError(t, err)
	require.False(t, moved)
	require.Equal(t, ids, s.ids())

	moved, err = s.MoveElementDown(ids[0])
	require.NoError(t, err)
	require.False(t, moved)
	require.Equal(t, ids, s.ids())
	require.Equal(t, history, s.HistoryLen(), "no-op moves record nothing")

	moved, err = s.MoveElementUp(ids[0])
	require.NoError(t, err)
	require.True(t, moved)
	require.Equal(t, []string{ids[1], ids[0], ids[2]}, s.ids())

	moved, err = s.MoveElementDown(ids[2])
	require.NoError(t, err)
	require.True(t, moved)
	require.Equal(t, []string{ids[1], ids[2], ids[0]}, s.ids())

	_, err = s.MoveElementUp("el_missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateSelectedPlacement(t *testing.T) {
	s, ids := newStore(t, KindShape, KindText, KindShape)
	require.NoError(t, s.UpdateElement(ids[1], Patch{X: ptr(40.0), Y: ptr(50.0)}))
	require.NoError(t, s.SelectElement(ids[1]))

	copies := s.DuplicateSelected()
	require.Len(t, copies, 1)
	dup := copies[0].(*TextElement)

	require.NotEqual(t, ids[1], dup.ID)
	require.Equal(t, 60.0, dup.X)
	require.Equal(t, 70.0, dup.Y)

	order := s.ids()
	require.Equal(t, []string{ids[0], ids[1], dup.ID, ids[2]}, order, "copy sits directly above its original")
	require.Equal(t, []string{dup.ID}, s.SelectedIDs())

	orig, _ := s.Element(ids[1])
	require.Equal(t, orig.(*TextElement).Content, dup.Content)
}

func TestDuplicateNothingSelected(t *testing.T) {
	s, _ := newStore(t, KindShape)
	require.NoError(t, s.SelectElement(""))
	history := s.HistoryLen()
	require.Nil(t, s.DuplicateSelected())
	require.Equal(t, history, s.HistoryLen())
}

func TestLockedElements(t *testing.T) {
	s, ids := newStore(t, KindShape, KindText)
	require.NoError(t, s.ToggleLock(ids[0]))

	require.ErrorIs(t, s.UpdateElement(ids[0], Patch{Fill: ptr("#ff0000")}), ErrLocked)
	require.ErrorIs(t, s.MoveElement(ids[0], 1, 1), ErrLocked)

	require.NoError(t, s.SelectElement(ids[0]))
	require.Equal(t, 0, s.DeleteSelected())
	require.Len(t, s.Elements(), 2)

	copies := s.DuplicateSelected()
	require.Len(t, copies, 1)
	require.False(t, copies[0].Base().Locked)

	require.NoError(t, s.ToggleLock(ids[0]))
	require.NoError(t, s.UpdateElement(ids[0], Patch{Fill: ptr("#ff0000")}))
}

func TestDeleteSelected(t *testing.T) {
	s, ids := newStore(t, KindShape, KindText)
	require.NoError(t, s.SelectElement(ids[0]))
	require.Equal(t, 1, s.DeleteSelected())
	require.Equal(t, []string{ids[1]}, s.ids())
	require.Empty(t, s.SelectedIDs())

	require.True(t, s.Undo())
	require.Equal(t, ids, s.ids())
}

func TestReorderElements(t *testing.T) {
	s, ids := newStore(t, KindShape, KindText, KindImageSlot)

	require.ErrorIs(t, s.ReorderElements([]string{ids[0], ids[1]}), ErrInvalidOrder)
	require.ErrorIs(t, s.ReorderElements([]string{ids[0], ids[0], ids[1]}), ErrInvalidOrder)
	require.ErrorIs(t, s.ReorderElements([]string{ids[0], ids[1], "el_x"}), ErrInvalidOrder)

	want := []string{ids[2], ids[0], ids[1]}
	require.NoError(t, s.ReorderElements(want))
	require.Equal(t, want, s.ids())
}

func TestDragCommitsOnce(t *testing.T) {
	s, ids := newStore(t, KindShape)
	history := s.HistoryLen()

	for i := 1; i <= 10; i++ {
		require.NoError(t, s.MoveElement(ids[0], float64(i), float64(2*i)))
	}
	require.Equal(t, history, s.HistoryLen())
	s.EndDrag()
	require.Equal(t, history+1, s.HistoryLen())
	s.EndDrag()
	require.Equal(t, history+1, s.HistoryLen())

	e, _ := s.Element(ids[0])
	require.Equal(t, 10.0, e.Base().X)
	require.Equal(t, 20.0, e.Base().Y)

	require.True(t, s.Undo())
	e, _ = s.Element(ids[0])
	require.Equal(t, 100.0, e.Base().X)
}

func TestSelectionDoesNotRecordHistory(t *testing.T) {
	s, ids := newStore(t, KindShape, KindShape)
	history := s.HistoryLen()
	require.NoError(t, s.SelectElement(ids[0]))
	require.NoError(t, s.SelectElement(""))
	require.ErrorIs(t, s.SelectElement("nope"), ErrNotFound)
	require.Equal(t, history, s.HistoryLen())
}

func TestUndoRedoIsolation(t *testing.T) {
	s, ids := newStore(t, KindText)
	require.NoError(t, s.UpdateElement(ids[0], Patch{Content: ptr("one")}))
	require.NoError(t, s.UpdateElement(ids[0], Patch{Content: ptr("two")}))

	require.True(t, s.Undo())
	e, _ := s.Element(ids[0])
	require.Equal(t, "one", e.(*TextElement).Content)

	// Mutating a returned copy must not leak into the store.
	e.(*TextElement).Content = "mutated"
	e, _ = s.Element(ids[0])
	require.Equal(t, "one", e.(*TextElement).Content)

	require.True(t, s.Redo())
	e, _ = s.Element(ids[0])
	require.Equal(t, "two", e.(*TextElement).Content)
	require.False(t, s.Redo())
}

func TestUndoDropsStaleSelection(t *testing.T) {
	s, ids := newStore(t, KindShape, KindText)
	require.Equal(t, []string{ids[1]}, s.SelectedIDs())
	require.True(t, s.Undo())
	require.Empty(t, s.SelectedIDs())
}

func TestLoadTemplateResetsHistory(t *testing.T) {
	s, _ := newStore(t, KindShape, KindText)
	require.True(t, s.CanUndo())

	tpl := Template{
		Meta: Meta{Name: "Sale Banner", Width: 1200, Height: 628},
		Elements: Elements{
			&ShapeElement{Frame: Frame{ID: "bg", Width: 1200, Height: 628}, Fill: "#111111"},
			&TextElement{Frame: Frame{ID: "bg", Width: 500, Height: 80}, Content: "50% off"},
			&ImageSlotElement{Frame: Frame{Width: 300, Height: 300}},
		},
	}
	s.LoadTemplate(tpl)

	require.False(t, s.CanUndo())
	require.False(t, s.CanRedo())
	require.Equal(t, 1, s.HistoryLen())
	require.Empty(t, s.SelectedIDs())
	require.Equal(t, "sale-banner", s.Meta().Slug)

	got := s.ids()
	require.Len(t, got, 3)
	require.Equal(t, "bg", got[0])
	require.NotEqual(t, "bg", got[1], "duplicate ids are reassigned")
	require.NotEmpty(t, got[2])

	// The caller's template is not aliased.
	tpl.Elements[0].(*ShapeElement).Fill = "#ffffff"
	e, _ := s.Element("bg")
	require.Equal(t, "#111111", e.(*ShapeElement).Fill)
}

func TestUpdateMeta(t *testing.T) {
	s, _ := newStore(t)
	s.UpdateMeta(Meta{Name: "Story", Width: -1, Height: 99999})
	m := s.Meta()
	require.Equal(t, DefaultWidth, m.Width)
	require.Equal(t, MaxSide, m.Height)
	require.Equal(t, "story", m.Slug)
	require.True(t, s.Undo())
	require.Equal(t, DefaultMeta(), s.Meta())
}

func TestPatchIgnoresForeignFields(t *testing.T) {
	s, ids := newStore(t, KindShape)
	require.NoError(t, s.UpdateElement(ids[0], Patch{Content: ptr("ignored"), BorderRadius: ptr(-3.0), Width: ptr(0.0)}))
	e, _ := s.Element(ids[0])
	shape := e.(*ShapeElement)
	require.Equal(t, 0.0, shape.BorderRadius)
	require.Equal(t, 1.0, shape.Width)
}

func TestTemplateJSONRoundTrip(t *testing.T) {
	doc := `{
		"name": "Quote",
		"slug": "quote",
		"description": "",
		"backgroundColor": "#fafafa",
		"width": 800,
		"height": 800,
		"elements": [
			{"type": "shape", "id": "a", "x": 0, "y": 0, "width": 800, "height": 200, "locked": true, "fill": "#222", "borderRadius": 12},
			{"type": "imageSlot", "id": "b", "x": 10, "y": 10, "width": 100, "height": 100, "imageUrl": "logo.png", "sourceType": "url", "scale": 50},
			{"type": "text", "id": "c", "x": 20, "y": 300, "width": 760, "height": 100, "content": "Hi", "fontFamily": "Arial", "fontSize": 40, "fontWeight": "700", "fontStyle": "italic", "color": "#000", "align": "center", "textDecoration": "underline"}
		]
	}`
	tpl, err := DecodeTemplate([]byte(doc))
	require.NoError(t, err)
	require.Len(t, tpl.Elements, 3)

	shape := tpl.Elements[0].(*ShapeElement)
	require.True(t, shape.Locked)
	require.Equal(t, 12.0, shape.BorderRadius)

	slot := tpl.Elements[1].(*ImageSlotElement)
	require.Equal(t, float64(MaxScale), slot.Scale)

	text := tpl.Elements[2].(*TextElement)
	require.Equal(t, "sans", text.FontFamily)
	require.Equal(t, "bold", text.FontWeight)
	require.Equal(t, AlignCenter, text.Align)

	data, err := json.Marshal(tpl)
	require.NoError(t, err)
	require.Contains(t, string(data), `"type":"imageSlot"`)

	again, err := DecodeTemplate(data)
	require.NoError(t, err)
	require.Equal(t, tpl, again)
}

func TestDecodeMissingPositionIsOrigin(t *testing.T) {
	e, err := DecodeElement([]byte(`{"type":"shape","id":"s","width":50,"height":40}`))
	require.NoError(t, err)
	require.Equal(t, 0.0, e.Base().X)
	require.Equal(t, 0.0, e.Base().Y)
	require.Equal(t, 50.0, e.Base().Width)

	e, err = DecodeElement([]byte(`{"type":"text","id":"t"}`))
	require.NoError(t, err)
	text := e.(*TextElement)
	require.Equal(t, 0.0, text.X)
	require.Equal(t, 1.0, text.Width)
	require.Equal(t, 1.0, text.FontSize)
	require.Equal(t, "#000000", text.Color)
	require.Equal(t, AlignLeft, text.Align)

	e, err = DecodeElement([]byte(`{"type":"imageSlot","id":"i","x":5}`))
	require.NoError(t, err)
	slot := e.(*ImageSlotElement)
	require.Equal(t, 5.0, slot.X)
	require.Equal(t, 1.0, slot.Scale)
	require.Equal(t, SourceUpload, slot.SourceType)
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := DecodeTemplate([]byte(`{"slug":"x","elements":[{"type":"video","id":"v"}]}`))
	require.Error(t, err)
	_, err = DecodeTemplate([]byte(`{"elements":[]}`))
	require.Error(t, err)

	s := NewStore()
	_, err = s.AddElement("video", Patch{})
	require.ErrorIs(t, err, ErrUnknownKind)
	require.Empty(t, s.Elements())
	require.False(t, s.CanUndo())
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "summer-sale-2024", Slugify("  Summer Sale & 2024! "))
	require.True(t, ValidSlug("summer-sale"))
	require.False(t, ValidSlug("Summer Sale"))
	require.False(t, ValidSlug(""))
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

func TestRendererPaintOrder(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	loader := imageio.MapLoader{"red.png": solid(10, 20, red)}
	r := NewRenderer(nil, loader, nil)

	tpl := Template{
		Meta: Meta{Slug: "t", Width: 200, Height: 100, BackgroundColor: "#0000ff"},
		Elements: Elements{
			&ShapeElement{Frame: Frame{ID: "s", X: 0, Y: 0, Width: 100, Height: 100}, Fill: "#00ff00"},
			&ImageSlotElement{Frame: Frame{ID: "i", X: 50, Y: 0, Width: 50, Height: 50}, ImageURL: "red.png", Scale: 1},
			&ImageSlotElement{Frame: Frame{ID: "p", X: 150, Y: 50, Width: 40, Height: 40}, Scale: 1},
			&TextElement{Frame: Frame{ID: "t", X: 110, Y: 0, Width: 80, Height: 40}, Content: "Hi", FontFamily: "sans", FontSize: 30, Color: "#ffffff", Align: AlignLeft, TextDecoration: DecorationUnderline},
		},
	}

	img, err := r.Render(context.Background(), tpl)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 200, 100), img.Bounds())

	require.Equal(t, color.NRGBA{B: 255, A: 255}, img.NRGBAAt(195, 5), "background")
	require.Equal(t, color.NRGBA{G: 255, A: 255}, img.NRGBAAt(10, 80), "shape")
	require.Equal(t, red, img.NRGBAAt(75, 25), "cover-fitted image slot above shape")
	require.Equal(t, color.NRGBA{G: 255, A: 255}, img.NRGBAAt(75, 60), "image clipped to its slot")
	require.Equal(t, placeholder, img.NRGBAAt(170, 70), "empty slot placeholder")

	white := 0
	for y := 0; y < 40; y++ {
		for x := 110; x < 190; x++ {
			if img.NRGBAAt(x, y).R > 200 {
				white++
			}
		}
	}
	require.Greater(t, white, 20, "text painted")
}

func TestRendererCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRenderer(nil, nil, nil)
	_, err := r.Render(ctx, Template{Meta: Meta{Slug: "x", Width: 10, Height: 10}, Elements: Elements{&ShapeElement{}}})
	require.ErrorIs(t, err, context.Canceled)
}

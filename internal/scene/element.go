// Package scene is the design canvas: a flat, z-ordered list of text,
// image slot and shape elements with selection, locking and undo/redo,
// plus the template documents that persist it.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/MeKo-Tech/pressroom/internal/fonts"
)

// Kind discriminates element variants. It is the "type" field on the wire.
type Kind string

const (
	KindText      Kind = "text"
	KindImageSlot Kind = "imageSlot"
	KindShape     Kind = "shape"
)

// Kinds lists every element kind.
var Kinds = []Kind{KindText, KindImageSlot, KindShape}

// ErrUnknownKind is returned for element types outside Kinds.
var ErrUnknownKind = errors.New("unknown element type")

// Text alignment and decoration values.
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"

	DecorationNone        = "none"
	DecorationUnderline   = "underline"
	DecorationLineThrough = "line-through"
)

// Image slot source types.
const (
	SourceUpload = "upload"
	SourceURL    = "url"
	SourceMedia  = "media"
)

// Scale bounds for image slot content.
const (
	MinScale = 0.1
	MaxScale = 10
)

// Frame holds the fields every element shares. Position and size are in
// template pixels.
type Frame struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Locked bool    `json:"locked"`
}

// Element is one of *TextElement, *ImageSlotElement or *ShapeElement.
type Element interface {
	Kind() Kind
	Base() *Frame
	Clone() Element
}

type TextElement struct {
	Frame
	Content        string  `json:"content"`
	FontFamily     string  `json:"fontFamily"`
	FontSize       float64 `json:"fontSize"`
	FontWeight     string  `json:"fontWeight"`
	FontStyle      string  `json:"fontStyle"`
	Color          string  `json:"color"`
	Align          string  `json:"align"`
	TextDecoration string  `json:"textDecoration"`
}

type ImageSlotElement struct {
	Frame
	ImageURL     string  `json:"imageUrl"`
	SourceType   string  `json:"sourceType"`
	Scale        float64 `json:"scale"`
	BorderRadius float64 `json:"borderRadius"`
}

type ShapeElement struct {
	Frame
	Fill         string  `json:"fill"`
	BorderRadius float64 `json:"borderRadius"`
}

func (*TextElement) Kind() Kind      { return KindText }
func (*ImageSlotElement) Kind() Kind { return KindImageSlot }
func (*ShapeElement) Kind() Kind     { return KindShape }

func (e *TextElement) Base() *Frame      { return &e.Frame }
func (e *ImageSlotElement) Base() *Frame { return &e.Frame }
func (e *ShapeElement) Base() *Frame     { return &e.Frame }

func (e *TextElement) Clone() Element      { c := *e; return &c }
func (e *ImageSlotElement) Clone() Element { c := *e; return &c }
func (e *ShapeElement) Clone() Element     { c := *e; return &c }

// NewElement returns an element of kind with default properties.
func NewElement(kind Kind, id string) (Element, error) {
	switch kind {
	case KindText:
		return &TextElement{
			Frame:          Frame{ID: id, X: 100, Y: 100, Width: 300, Height: 60},
			Content:        "Text",
			FontFamily:     fonts.DefaultFamily,
			FontSize:       32,
			FontWeight:     "normal",
			FontStyle:      "normal",
			Color:          "#000000",
			Align:          AlignLeft,
			TextDecoration: DecorationNone,
		}, nil
	case KindImageSlot:
		return &ImageSlotElement{
			Frame:      Frame{ID: id, X: 100, Y: 100, Width: 300, Height: 200},
			SourceType: SourceUpload,
			Scale:      1,
		}, nil
	case KindShape:
		return &ShapeElement{
			Frame: Frame{ID: id, X: 100, Y: 100, Width: 200, Height: 200},
			Fill:  "#cccccc",
		}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
}

// Patch is a partial element update. Nil fields are left alone; fields that
// do not apply to the element's kind are ignored.
type Patch struct {
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`

	Content        *string  `json:"content,omitempty"`
	FontFamily     *string  `json:"fontFamily,omitempty"`
	FontSize       *float64 `json:"fontSize,omitempty"`
	FontWeight     *string  `json:"fontWeight,omitempty"`
	FontStyle      *string  `json:"fontStyle,omitempty"`
	Color          *string  `json:"color,omitempty"`
	Align          *string  `json:"align,omitempty"`
	TextDecoration *string  `json:"textDecoration,omitempty"`

	ImageURL   *string  `json:"imageUrl,omitempty"`
	SourceType *string  `json:"sourceType,omitempty"`
	Scale      *float64 `json:"scale,omitempty"`

	Fill         *string  `json:"fill,omitempty"`
	BorderRadius *float64 `json:"borderRadius,omitempty"`
}

// Apply writes the set fields of p onto e and clamps the result.
func (p Patch) Apply(e Element) {
	f := e.Base()
	setFloat(&f.X, p.X)
	setFloat(&f.Y, p.Y)
	setFloat(&f.Width, p.Width)
	setFloat(&f.Height, p.Height)

	switch el := e.(type) {
	case *TextElement:
		setString(&el.Content, p.Content)
		setString(&el.FontFamily, p.FontFamily)
		setFloat(&el.FontSize, p.FontSize)
		setString(&el.FontWeight, p.FontWeight)
		setString(&el.FontStyle, p.FontStyle)
		setString(&el.Color, p.Color)
		setString(&el.Align, p.Align)
		setString(&el.TextDecoration, p.TextDecoration)
	case *ImageSlotElement:
		setString(&el.ImageURL, p.ImageURL)
		setString(&el.SourceType, p.SourceType)
		setFloat(&el.Scale, p.Scale)
		setFloat(&el.BorderRadius, p.BorderRadius)
	case *ShapeElement:
		setString(&el.Fill, p.Fill)
		setFloat(&el.BorderRadius, p.BorderRadius)
	}
	Clamp(e)
}

func setFloat(dst *float64, v *float64) {
	if v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Clamp forces e's properties into their valid ranges.
func Clamp(e Element) {
	f := e.Base()
	f.Width = math.Max(1, f.Width)
	f.Height = math.Max(1, f.Height)

	switch el := e.(type) {
	case *TextElement:
		el.FontSize = math.Max(1, el.FontSize)
		el.FontFamily = fonts.Resolve(el.FontFamily)
		if el.Color == "" {
			el.Color = "#000000"
		}
		if fonts.ParseWeight(el.FontWeight) {
			el.FontWeight = "bold"
		} else {
			el.FontWeight = "normal"
		}
		if fonts.ParseStyle(el.FontStyle) {
			el.FontStyle = "italic"
		} else {
			el.FontStyle = "normal"
		}
		switch el.Align {
		case AlignLeft, AlignCenter, AlignRight:
		default:
			el.Align = AlignLeft
		}
		switch strings.ToLower(el.TextDecoration) {
		case DecorationUnderline:
			el.TextDecoration = DecorationUnderline
		case DecorationLineThrough:
			el.TextDecoration = DecorationLineThrough
		default:
			el.TextDecoration = DecorationNone
		}
	case *ImageSlotElement:
		if el.Scale == 0 {
			el.Scale = 1
		}
		el.Scale = math.Max(MinScale, math.Min(MaxScale, el.Scale))
		el.BorderRadius = math.Max(0, el.BorderRadius)
		if el.SourceType == "" {
			el.SourceType = SourceUpload
		}
	case *ShapeElement:
		el.BorderRadius = math.Max(0, el.BorderRadius)
	}
}

// MarshalJSON writes the element with its "type" discriminator.
func (e *TextElement) MarshalJSON() ([]byte, error) {
	type alias TextElement
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*alias
	}{KindText, (*alias)(e)})
}

func (e *ImageSlotElement) MarshalJSON() ([]byte, error) {
	type alias ImageSlotElement
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*alias
	}{KindImageSlot, (*alias)(e)})
}

func (e *ShapeElement) MarshalJSON() ([]byte, error) {
	type alias ShapeElement
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*alias
	}{KindShape, (*alias)(e)})
}

// DecodeElement reads one element, dispatching on its "type" field.
// Missing fields start from their zero value and are then clamped.
func DecodeElement(data []byte) (Element, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to read element type: %w", err)
	}

	var e Element
	switch head.Type {
	case KindText:
		e = &TextElement{}
	case KindImageSlot:
		e = &ImageSlotElement{}
	case KindShape:
		e = &ShapeElement{}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, head.Type)
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("failed to decode %s element: %w", head.Type, err)
	}
	Clamp(e)
	return e, nil
}

// Elements is a paint-ordered element list; index 0 is the bottom.
type Elements []Element

func (es *Elements) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Elements, 0, len(raw))
	for i, r := range raw {
		e, err := DecodeElement(r)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, e)
	}
	*es = out
	return nil
}

// Clone deep-copies the list.
func (es Elements) Clone() Elements {
	if es == nil {
		return nil
	}
	out := make(Elements, len(es))
	for i, e := range es {
		out[i] = e.Clone()
	}
	return out
}

// Index returns the position of id, or -1.
func (es Elements) Index(id string) int {
	for i, e := range es {
		if e.Base().ID == id {
			return i
		}
	}
	return -1
}

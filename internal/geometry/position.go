package geometry

import (
	"fmt"
	"strings"
)

// EdgeMargin is the inset from the canvas edges used for every non-center
// anchor, as a fraction of the canvas dimension.
const EdgeMargin = 0.05

// Position is a 9-point compass code.
type Position string

const (
	TopLeft     Position = "TL"
	Top         Position = "T"
	TopRight    Position = "TR"
	Left        Position = "L"
	Center      Position = "C"
	Right       Position = "R"
	BottomLeft  Position = "BL"
	Bottom      Position = "B"
	BottomRight Position = "BR"
)

// Positions lists all codes in reading order.
var Positions = []Position{TopLeft, Top, TopRight, Left, Center, Right, BottomLeft, Bottom, BottomRight}

var positionAliases = map[string]Position{
	"top-left":     TopLeft,
	"top":          Top,
	"top-right":    TopRight,
	"left":         Left,
	"center":       Center,
	"middle":       Center,
	"right":        Right,
	"bottom-left":  BottomLeft,
	"bottom":       Bottom,
	"bottom-right": BottomRight,
}

// ParsePosition accepts a compass code (any case) or its long name.
func ParsePosition(s string) (Position, error) {
	key := strings.TrimSpace(s)
	p := Position(strings.ToUpper(key))
	if p.Valid() {
		return p, nil
	}
	if alias, ok := positionAliases[strings.ToLower(strings.ReplaceAll(key, "_", "-"))]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("unknown position %q", s)
}

// Valid reports whether p is one of the nine codes.
func (p Position) Valid() bool {
	for _, c := range Positions {
		if p == c {
			return true
		}
	}
	return false
}

// Fractions returns the anchor fractions (ax, ay) for p: 0 aligns the
// content's left/top edge to the anchor, 0.5 its center and 1 its
// right/bottom edge. Unknown codes behave like Center.
func (p Position) Fractions() (float64, float64) {
	ax, ay := 0.5, 0.5
	switch p {
	case TopLeft, Left, BottomLeft:
		ax = 0
	case TopRight, Right, BottomRight:
		ax = 1
	}
	switch p {
	case TopLeft, Top, TopRight:
		ay = 0
	case BottomLeft, Bottom, BottomRight:
		ay = 1
	}
	return ax, ay
}

// Anchor returns the anchor point of p on a canvas of the given size, inset
// by margin (fraction of each dimension) on the anchored sides, together with
// the anchor fractions for aligning content to that point.
func (p Position) Anchor(s Size, margin float64) (x, y, ax, ay float64) {
	ax, ay = p.Fractions()
	w, h := float64(s.Width), float64(s.Height)
	x = margin*w + ax*(w-2*margin*w)
	y = margin*h + ay*(h-2*margin*h)
	return x, y, ax, ay
}

// Place returns the box of a content extent (cw x ch) anchored at p.
func (p Position) Place(s Size, margin, cw, ch float64) Rect {
	x, y, ax, ay := p.Anchor(s, margin)
	return Rect{X: x - ax*cw, Y: y - ay*ch, Width: cw, Height: ch}
}

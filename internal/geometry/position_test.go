package geometry

import (
	"math"
	"testing"
)

func TestPositionPlace(t *testing.T) {
	s := Size{800, 800}
	tests := []struct {
		pos  Position
		want Rect
	}{
		{TopLeft, Rect{X: 40, Y: 40, Width: 100, Height: 50}},
		{BottomRight, Rect{X: 660, Y: 710, Width: 100, Height: 50}},
		{Center, Rect{X: 350, Y: 375, Width: 100, Height: 50}},
		{Top, Rect{X: 350, Y: 40, Width: 100, Height: 50}},
		{Right, Rect{X: 660, Y: 375, Width: 100, Height: 50}},
	}
	for _, tt := range tests {
		got := tt.pos.Place(s, EdgeMargin, 100, 50)
		if math.Abs(got.X-tt.want.X) > 1e-9 || math.Abs(got.Y-tt.want.Y) > 1e-9 {
			t.Fatalf("%s: got %+v, want %+v", tt.pos, got, tt.want)
		}
	}
}

func TestParsePosition(t *testing.T) {
	tests := map[string]Position{"br": BottomRight, "TL": TopLeft, "center": Center, "bottom_left": BottomLeft}
	for in, want := range tests {
		got, err := ParsePosition(in)
		if err != nil {
			t.Fatalf("ParsePosition(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParsePosition(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParsePosition("nowhere"); err == nil {
		t.Fatal("expected error")
	}
}

func TestNormalizedRoundTrip(t *testing.T) {
	ref := Size{800, 600}
	r := Rect{X: 80, Y: 30, Width: 400, Height: 300}
	n := r.Normalize(ref)
	if n.Width != 0.5 || n.Height != 0.5 {
		t.Fatalf("normalized = %+v", n)
	}
	if got := n.Pixels(ref); got != r {
		t.Fatalf("round trip = %+v, want %+v", got, r)
	}
	half := n.Pixels(Size{400, 300})
	if half.X != 40 || half.Width != 200 {
		t.Fatalf("half-res = %+v", half)
	}
}

package watermark

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/MeKo-Tech/pressroom/internal/geometry"
)

// Grid is the unrotated lattice of tiled cells. The whole grid is rotated
// about Center when drawn.
type Grid struct {
	PitchX   float64
	PitchY   float64
	Cols     int
	Rows     int
	Origin   orb.Point
	Center   orb.Point
	Rotation float64
	Brick    bool
}

// Pitch returns the cell pitch for one axis.
func Pitch(spacing, density, base, scale float64) float64 {
	if density <= 0 {
		density = 1
	}
	return math.Max(spacing/density, MinSpacing) + base*scale
}

// NewGrid sizes a grid for a canvas so that, rotated by any angle about the
// canvas center, it still covers the whole canvas.
func NewGrid(canvas geometry.Size, pitchX, pitchY, rotation float64, brick bool) Grid {
	w, h := float64(canvas.Width), float64(canvas.Height)
	// A square span covers the canvas at every angle once it exceeds the
	// diagonal; GridSpan times the larger side always does.
	span := GridSpan * math.Max(w, h)
	span = math.Max(span, math.Hypot(w, h)+2*math.Max(pitchX, pitchY))

	cols := max(MinCells, int(math.Ceil(span/pitchX)))
	rows := max(MinCells, int(math.Ceil(span/pitchY)))
	if brick {
		// Odd rows shift by half a pitch; one more column keeps the edge filled.
		cols++
	}

	center := orb.Point{w / 2, h / 2}
	return Grid{
		PitchX:   pitchX,
		PitchY:   pitchY,
		Cols:     cols,
		Rows:     rows,
		Origin:   orb.Point{center[0] - float64(cols)*pitchX/2, center[1] - float64(rows)*pitchY/2},
		Center:   center,
		Rotation: rotation,
		Brick:    brick,
	}
}

// Bound is the grid extent in its own (unrotated) frame.
func (g Grid) Bound() orb.Bound {
	return orb.Bound{
		Min: g.Origin,
		Max: orb.Point{g.Origin[0] + float64(g.Cols)*g.PitchX, g.Origin[1] + float64(g.Rows)*g.PitchY},
	}
}

// Covers reports whether the rotated grid covers every point of the canvas,
// by rotating the canvas corners into the grid's frame.
func (g Grid) Covers(canvas geometry.Size) bool {
	b := g.Bound()
	if g.Brick {
		// The first column of odd rows starts half a pitch in.
		b.Min[0] += g.PitchX / 2
	}
	ring := geometry.RectRing(b.Min[0], b.Min[1], b.Max[0]-b.Min[0], b.Max[1]-b.Min[1])
	corners := geometry.RotateRing(
		geometry.RectRing(0, 0, float64(canvas.Width), float64(canvas.Height)),
		-g.Rotation, g.Center[0], g.Center[1],
	)
	for _, p := range corners {
		if !planar.RingContains(ring, p) {
			return false
		}
	}
	return true
}

// Cells returns the center of every cell in the grid's frame.
func (g Grid) Cells() []orb.Point {
	out := make([]orb.Point, 0, g.Cols*g.Rows)
	for r := 0; r < g.Rows; r++ {
		shift := 0.0
		if g.Brick && r%2 == 1 {
			shift = g.PitchX / 2
		}
		for c := 0; c < g.Cols; c++ {
			out = append(out, orb.Point{
				g.Origin[0] + float64(c)*g.PitchX + g.PitchX/2 + shift,
				g.Origin[1] + float64(r)*g.PitchY + g.PitchY/2,
			})
		}
	}
	return out
}

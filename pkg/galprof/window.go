package galprof

import (
	"fmt"
	"math"
)

// Point2d is a point in sky coordinates, or a pair of sky extents.
// X runs along image columns and Y along image rows.
type Point2d struct {
	X, Y float64
}

func (p Point2d) Add(o Point2d) Point2d   { return Point2d{X: p.X + o.X, Y: p.Y + o.Y} }
func (p Point2d) Sub(o Point2d) Point2d   { return Point2d{X: p.X - o.X, Y: p.Y - o.Y} }
func (p Point2d) Scale(f float64) Point2d { return Point2d{X: p.X * f, Y: p.Y * f} }
func (p Point2d) Hypot() float64          { return math.Hypot(p.X, p.Y) }
func (p Point2d) String() string          { return fmt.Sprintf("(%g, %g)", p.X, p.Y) }
func (p Point2d) Slice() []float64        { return []float64{p.X, p.Y} }

func pointFromSlice(v []float64) (Point2d, bool) {
	if len(v) != 2 {
		return Point2d{}, false
	}
	return Point2d{X: v[0], Y: v[1]}, true
}

// PixelGrid is anything with a sky origin and a pixel scale, e.g. a target image.
type PixelGrid interface {
	Origin() Point2d
	PixelScale() float64
}

// Window is an axis-aligned sky region. Origin is the corner at the smallest
// coordinates, Size its extent, and PixelScale converts it to pixel units.
type Window struct {
	Origin     Point2d
	Size       Point2d
	PixelScale float64
}

// NewWindow validates and builds a window.
func NewWindow(origin, size Point2d, pixelscale float64) (Window, error) {
	if size.X < 0 || size.Y < 0 {
		return Window{}, fmt.Errorf("size %v must be non-negative: %w", size, ErrInvalidWindow)
	}
	if pixelscale <= 0 {
		return Window{}, fmt.Errorf("pixelscale %g must be positive: %w", pixelscale, ErrInvalidWindow)
	}
	return Window{Origin: origin, Size: size, PixelScale: pixelscale}, nil
}

// WindowFromPixelBounds converts [[rowLo,rowHi],[colLo,colHi]] index bounds on
// grid into a sky window.
func WindowFromPixelBounds(bounds [2][2]float64, grid PixelGrid) (Window, error) {
	ps := grid.PixelScale()
	rowLo, rowHi := bounds[0][0], bounds[0][1]
	colLo, colHi := bounds[1][0], bounds[1][1]
	origin := grid.Origin().Add(Point2d{X: colLo, Y: rowLo}.Scale(ps))
	size := Point2d{X: colHi - colLo, Y: rowHi - rowLo}.Scale(ps)
	return NewWindow(origin, size, ps)
}

// PixelBounds is the inverse of WindowFromPixelBounds.
func (w Window) PixelBounds(grid PixelGrid) [2][2]float64 {
	ps := grid.PixelScale()
	lo := w.Origin.Sub(grid.Origin()).Scale(1 / ps)
	hi := w.End().Sub(grid.Origin()).Scale(1 / ps)
	return [2][2]float64{{lo.Y, hi.Y}, {lo.X, hi.X}}
}

// End is the corner opposite Origin.
func (w Window) End() Point2d { return w.Origin.Add(w.Size) }

// Center is the middle of the window.
func (w Window) Center() Point2d { return w.Origin.Add(w.Size.Scale(0.5)) }

// Shape is the window size in pixels, (rows, cols).
func (w Window) Shape() (rows, cols int) {
	return int(math.Round(w.Size.Y / w.PixelScale)), int(math.Round(w.Size.X / w.PixelScale))
}

// PixelArea is rows*cols.
func (w Window) PixelArea() int {
	rows, cols := w.Shape()
	return rows * cols
}

// HalfDiagonal is half of the window's sky diagonal.
func (w Window) HalfDiagonal() float64 { return w.Size.Scale(0.5).Hypot() }

// Intersect clips w to o. Disjoint windows yield a zero-size window at the
// clipped origin.
func (w Window) Intersect(o Window) Window {
	lo := Point2d{X: math.Max(w.Origin.X, o.Origin.X), Y: math.Max(w.Origin.Y, o.Origin.Y)}
	hi := Point2d{X: math.Min(w.End().X, o.End().X), Y: math.Min(w.End().Y, o.End().Y)}
	size := Point2d{X: math.Max(0, hi.X-lo.X), Y: math.Max(0, hi.Y-lo.Y)}
	return Window{Origin: lo, Size: size, PixelScale: w.PixelScale}
}

// Scaled grows or shrinks the window about its center by scale, then clips it
// to limit when one is given.
func (w Window) Scaled(scale float64, limit *Window) Window {
	scale = math.Max(scale, 0)
	size := w.Size.Scale(scale)
	out := Window{
		Origin:     w.Center().Sub(size.Scale(0.5)),
		Size:       size,
		PixelScale: w.PixelScale,
	}
	if limit != nil {
		out = out.Intersect(*limit)
	}
	return out
}

func (w Window) String() string {
	return fmt.Sprintf("Window{origin=%v, size=%v, pixelscale=%g}", w.Origin, w.Size, w.PixelScale)
}

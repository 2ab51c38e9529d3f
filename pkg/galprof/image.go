package galprof

import (
	"fmt"
	"image"
	"math"
)

// TargetImage is what a model needs from the image it is fitted to.
type TargetImage interface {
	PixelGrid
	Window() Window
	Sub(w Window) *Image
}

// Image is a row-major float64 raster placed on the sky by its origin (the
// corner of pixel (0,0)) and pixel scale. Pixel (r,c) has its center at
// origin + ((c+0.5), (r+0.5))*pixelscale.
type Image struct {
	data       []float64
	rows       int
	cols       int
	origin     Point2d
	pixelscale float64
}

// NewImage allocates a zeroed image.
func NewImage(rows, cols int, pixelscale float64, origin Point2d) *Image {
	rows, cols = max(rows, 0), max(cols, 0)
	return &Image{
		data:       make([]float64, rows*cols),
		rows:       rows,
		cols:       cols,
		origin:     origin,
		pixelscale: pixelscale,
	}
}

// NewImageFromData wraps data without copying it.
func NewImageFromData(data []float64, rows, cols int, pixelscale float64, origin Point2d) (*Image, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("image data has %d pixels, want %dx%d: %w", len(data), rows, cols, ErrShapeMismatch)
	}
	if pixelscale <= 0 {
		return nil, fmt.Errorf("pixelscale %g must be positive: %w", pixelscale, ErrInvalidWindow)
	}
	return &Image{data: data, rows: rows, cols: cols, origin: origin, pixelscale: pixelscale}, nil
}

func (img *Image) Rows() int           { return img.rows }
func (img *Image) Cols() int           { return img.cols }
func (img *Image) Origin() Point2d     { return img.origin }
func (img *Image) PixelScale() float64 { return img.pixelscale }
func (img *Image) Empty() bool         { return img.rows == 0 || img.cols == 0 }

// Data exposes the backing slice.
func (img *Image) Data() []float64 { return img.data }

func (img *Image) At(row, col int) float64 { return img.data[row*img.cols+col] }

func (img *Image) Set(row, col int, v float64) { img.data[row*img.cols+col] = v }

// Window is the sky region covered by the image.
func (img *Image) Window() Window {
	return Window{
		Origin:     img.origin,
		Size:       Point2d{X: float64(img.cols), Y: float64(img.rows)}.Scale(img.pixelscale),
		PixelScale: img.pixelscale,
	}
}

func (img *Image) Clone() *Image {
	out := *img
	out.data = cloneFloats(img.data)
	return &out
}

// Zero resets every pixel.
func (img *Image) Zero() {
	clear(img.data)
}

// IndexRect is the pixel rectangle (X = column, Y = row) of w on this image,
// clipped to the image bounds. The corner snaps to the nearest pixel corner
// and the extent is the window's rounded pixel shape, so a window always maps
// to exactly Shape() pixels before clipping.
func (img *Image) IndexRect(w Window) image.Rectangle {
	return gridRect(w, img).Intersect(image.Rect(0, 0, img.cols, img.rows))
}

// gridRect places w on grid without clipping.
func gridRect(w Window, grid PixelGrid) image.Rectangle {
	ps := grid.PixelScale()
	off := w.Origin.Sub(grid.Origin()).Scale(1 / ps)
	col, row := int(math.Round(off.X)), int(math.Round(off.Y))
	rows, cols := int(math.Round(w.Size.Y/ps)), int(math.Round(w.Size.X/ps))
	return image.Rect(col, row, col+max(cols, 0), row+max(rows, 0))
}

// Sub copies the part of the image covered by w.
func (img *Image) Sub(w Window) *Image {
	r := img.IndexRect(w)
	out := NewImage(r.Dy(), r.Dx(), img.pixelscale,
		img.origin.Add(Point2d{X: float64(r.Min.X), Y: float64(r.Min.Y)}.Scale(img.pixelscale)))
	for row := 0; row < out.rows; row++ {
		src := (r.Min.Y+row)*img.cols + r.Min.X
		copy(out.data[row*out.cols:(row+1)*out.cols], img.data[src:src+out.cols])
	}
	return out
}

// CoordToIndex converts a sky point to fractional (row, col) indexes, with
// integers at pixel centers.
func (img *Image) CoordToIndex(p Point2d) (row, col float64) {
	d := p.Sub(img.origin).Scale(1 / img.pixelscale)
	return d.Y - 0.5, d.X - 0.5
}

// IndexToCoord is the inverse of CoordToIndex.
func (img *Image) IndexToCoord(row, col float64) Point2d {
	return img.origin.Add(Point2d{X: col + 0.5, Y: row + 0.5}.Scale(img.pixelscale))
}

// CoordinateMeshgrid returns the sky coordinates of every pixel center relative
// to (x, y), row-major.
func (img *Image) CoordinateMeshgrid(x, y float64) (xs, ys []float64) {
	xs = make([]float64, len(img.data))
	ys = make([]float64, len(img.data))
	for row := 0; row < img.rows; row++ {
		cy := img.origin.Y + (float64(row)+0.5)*img.pixelscale - y
		for col := 0; col < img.cols; col++ {
			i := row*img.cols + col
			xs[i] = img.origin.X + (float64(col)+0.5)*img.pixelscale - x
			ys[i] = cy
		}
	}
	return xs, ys
}

// Subtract returns img - other, with other placed by its origin. Pixels of img
// that other does not cover are copied unchanged.
func (img *Image) Subtract(other *Image) (*Image, error) {
	out := img.Clone()
	if err := out.accumulate(other, -1); err != nil {
		return nil, err
	}
	return out, nil
}

// AddImage adds other into img where they overlap.
func (img *Image) AddImage(other *Image) error {
	return img.accumulate(other, 1)
}

func (img *Image) accumulate(other *Image, sign float64) error {
	if math.Abs(other.pixelscale-img.pixelscale) > 1e-12*img.pixelscale {
		return fmt.Errorf("pixelscale %g does not match %g: %w", other.pixelscale, img.pixelscale, ErrShapeMismatch)
	}
	off := other.origin.Sub(img.origin).Scale(1 / img.pixelscale)
	dx, dy := int(math.Round(off.X)), int(math.Round(off.Y))
	rowLo, rowHi := max(0, dy), min(img.rows, dy+other.rows)
	colLo, colHi := max(0, dx), min(img.cols, dx+other.cols)
	for row := rowLo; row < rowHi; row++ {
		dst := img.data[row*img.cols : (row+1)*img.cols]
		src := other.data[(row-dy)*other.cols : (row-dy+1)*other.cols]
		for col := colLo; col < colHi; col++ {
			dst[col] += sign * src[col-dx]
		}
	}
	return nil
}

//go:build purego || js

package galprof

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Mat is the pure Go float32 raster used for PSF convolution.
type Mat struct {
	data []float32
	rows int
	cols int
}

func NewMat() Mat { return Mat{} }

func NewMatWithSize(rows, cols int) Mat {
	return Mat{data: make([]float32, rows*cols), rows: rows, cols: cols}
}

func (m Mat) Rows() int   { return m.rows }
func (m Mat) Cols() int   { return m.cols }
func (m Mat) Empty() bool { return m.data == nil || m.rows == 0 || m.cols == 0 }

func (m *Mat) Close() {
	m.data = nil
	m.rows = 0
	m.cols = 0
}

// DataFloat32 returns the backing slice.
func (m Mat) DataFloat32() []float32 { return m.data }

// reflectIndex mirrors idx into [0, size) with the edge sample repeated,
// matching OpenCV's BORDER_REFLECT (fedcba|abcdefgh|hgfedcb).
func reflectIndex(idx, size int) int {
	for idx < 0 || idx >= size {
		if idx < 0 {
			idx = -idx - 1
		} else {
			idx = 2*size - 1 - idx
		}
	}
	return idx
}

// convolveAxis runs a 1-D kernel along one axis of a rows x cols raster.
// stride is the distance between neighbouring taps, n the axis length.
func convolveAxis(src, dst []float32, kernel []float32, lines, n, lineStride, stride int) {
	half := len(kernel) / 2
	for l := 0; l < lines; l++ {
		base := l * lineStride
		for i := 0; i < n; i++ {
			var sum float32
			for k, w := range kernel {
				sum += src[base+reflectIndex(i+k-half, n)*stride] * w
			}
			dst[base+i*stride] = sum
		}
	}
}

func sepFilter2DReflect(src Mat, dst *Mat, kernelX, kernelY Mat) {
	rows, cols := src.rows, src.cols
	if dst.rows != rows || dst.cols != cols || dst.data == nil {
		*dst = NewMatWithSize(rows, cols)
	}
	temp := make([]float32, rows*cols)
	convolveAxis(src.data, temp, kernelX.data, rows, cols, cols, 1)
	convolveAxis(temp, dst.data, kernelY.data, cols, rows, 1, cols)
}

func getGaussianKernel1D(size int, sigma float64) Mat {
	m := NewMatWithSize(size, 1)
	half := size / 2
	weights := make([]float64, size)
	for i := range weights {
		x := float64(i - half)
		weights[i] = math.Exp(-x * x / (2 * sigma * sigma))
	}
	sum := floats.Sum(weights)
	for i, w := range weights {
		m.data[i] = float32(w / sum)
	}
	return m
}

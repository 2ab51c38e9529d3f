/*
Extracted from HocusFocus plugin by George Hilios.
Original Copyright © 2021 George Hilios <ghilios+NINA@googlemail.com>
Licensed under Mozilla Public License 2.0.
Ported to Go.
*/

package galprof

import "math"

// BilinearSample samples img at fractional (row, col) with bilinear
// interpolation. ok is false outside the pixel-center hull of the image.
func BilinearSample(img *Image, row, col float64) (value float64, ok bool) {
	if img.Empty() || row < 0 || col < 0 || row > float64(img.rows-1) || col > float64(img.cols-1) {
		return 0, false
	}
	y0 := int(math.Floor(row))
	y1 := min(y0+1, img.rows-1)
	x0 := int(math.Floor(col))
	x1 := min(x0+1, img.cols-1)
	yRatio := row - float64(y0)
	xRatio := col - float64(x0)

	p00 := img.At(y0, x0)
	p01 := img.At(y0, x1)
	p10 := img.At(y1, x0)
	p11 := img.At(y1, x1)
	interpolatedX0 := p00 + xRatio*(p01-p00)
	interpolatedX1 := p10 + xRatio*(p11-p10)
	return interpolatedX0 + yRatio*(interpolatedX1-interpolatedX0), true
}

// ImageMoments are the flux-weighted centroid and second moments of an image,
// in index units.
type ImageMoments struct {
	Row, Col      float64
	Mrr, Mcc, Mrc float64
	Flux          float64
}

// ComputeMoments measures img using only positive pixels. A flux-free image
// yields its geometric center and isotropic moments.
func ComputeMoments(img *Image) ImageMoments {
	var m ImageMoments
	for r := 0; r < img.rows; r++ {
		for c := 0; c < img.cols; c++ {
			v := img.At(r, c)
			if v <= 0 || math.IsNaN(v) {
				continue
			}
			m.Flux += v
			m.Row += v * float64(r)
			m.Col += v * float64(c)
		}
	}
	if m.Flux <= 0 {
		return ImageMoments{Row: float64(img.rows-1) / 2, Col: float64(img.cols-1) / 2, Mrr: 1, Mcc: 1}
	}
	m.Row /= m.Flux
	m.Col /= m.Flux
	for r := 0; r < img.rows; r++ {
		for c := 0; c < img.cols; c++ {
			v := img.At(r, c)
			if v <= 0 || math.IsNaN(v) {
				continue
			}
			dr, dc := float64(r)-m.Row, float64(c)-m.Col
			m.Mrr += v * dr * dr
			m.Mcc += v * dc * dc
			m.Mrc += v * dr * dc
		}
	}
	m.Mrr /= m.Flux
	m.Mcc /= m.Flux
	m.Mrc /= m.Flux
	return m
}

// Ellipse converts second moments into a position angle in [0, pi), measured
// from the column axis towards the row axis, and an axis ratio in (0, 1].
func (m ImageMoments) Ellipse() (pa, q float64) {
	pa = euclideanModulus(0.5*math.Atan2(2*m.Mrc, m.Mcc-m.Mrr), math.Pi)
	mean := (m.Mcc + m.Mrr) / 2
	diff := math.Sqrt(((m.Mcc-m.Mrr)/2)*((m.Mcc-m.Mrr)/2) + m.Mrc*m.Mrc)
	major, minor := mean+diff, mean-diff
	if major <= 0 || minor <= 0 {
		return pa, 1
	}
	return pa, math.Sqrt(minor / major)
}

// ConvolveGaussian convolves img in place with a normalized Gaussian of the
// given sigma in pixels. The kernel spans +-3 sigma.
func ConvolveGaussian(img *Image, sigma float64) {
	if sigma <= 0 || img.rows < 2 || img.cols < 2 {
		return
	}
	kernelSize := 2*int(math.Ceil(3*sigma)) + 1
	kernel := getGaussianKernel1D(kernelSize, sigma)
	defer kernel.Close()

	src := NewMatWithSize(img.rows, img.cols)
	defer src.Close()
	srcData := src.DataFloat32()
	for i, v := range img.data {
		srcData[i] = float32(v)
	}
	dst := NewMat()
	defer dst.Close()
	sepFilter2DReflect(src, &dst, kernel, kernel)
	for i, v := range dst.DataFloat32()[:len(img.data)] {
		img.data[i] = float64(v)
	}
}

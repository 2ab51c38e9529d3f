package galprof

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Isophote summarizes the pixels sampled along one ellipse.
type Isophote struct {
	Radius float64
	Flux   float64
	Noise  float64
	N      int
}

// IsophoteExtractor samples an image along ellipses centred on (row, col) in
// index units. Radii are in pixels, pa is in radians from the column axis and
// q is the axis ratio. The result is aligned one-to-one with radii.
type IsophoteExtractor interface {
	Extract(img *Image, row, col, pa, q float64, radii []float64) ([]Isophote, error)
}

// EllipseSampler is the default IsophoteExtractor. Each isophote is sampled at
// max(MinSamples, 2*pi*r) evenly spaced angles with bilinear interpolation;
// its flux is the sample median and its noise half the 16-84 percentile range.
// An ellipse that misses the pixel-center hull entirely (possible in the
// corners of a window) is sampled at the nearest hull points instead.
type EllipseSampler struct {
	MinSamples int
}

// NewEllipseSampler returns a sampler with default settings.
func NewEllipseSampler() EllipseSampler {
	return EllipseSampler{MinSamples: 16}
}

func (s EllipseSampler) Extract(img *Image, row, col, pa, q float64, radii []float64) ([]Isophote, error) {
	out := make([]Isophote, len(radii))
	for i, r := range radii {
		samples := s.sample(img, row, col, pa, q, r)
		if len(samples) == 0 {
			return nil, fmt.Errorf("radius %g px around (%g, %g): %w", r, row, col, ErrEmptyIsophote)
		}
		slices.Sort(samples)
		out[i] = Isophote{
			Radius: r,
			Flux:   stat.Quantile(0.5, stat.LinInterp, samples, nil),
			Noise:  (stat.Quantile(0.84, stat.LinInterp, samples, nil) - stat.Quantile(0.16, stat.LinInterp, samples, nil)) / 2,
			N:      len(samples),
		}
	}
	return out, nil
}

func (s EllipseSampler) sample(img *Image, row, col, pa, q, r float64) []float64 {
	if r <= 0 {
		if v, ok := BilinearSample(img, row, col); ok {
			return []float64{v}
		}
		return nil
	}
	n := max(s.MinSamples, int(math.Ceil(2*math.Pi*r)))
	cosPA, sinPA := math.Cos(pa), math.Sin(pa)
	samples := make([]float64, 0, n)
	var clamped []float64
	for k := 0; k < n; k++ {
		theta := 2 * math.Pi * float64(k) / float64(n)
		ex := r * math.Cos(theta)
		ey := q * r * math.Sin(theta)
		c := col + ex*cosPA - ey*sinPA
		rr := row + ex*sinPA + ey*cosPA
		if v, ok := BilinearSample(img, rr, c); ok {
			if !math.IsNaN(v) {
				samples = append(samples, v)
			}
			continue
		}
		if len(samples) > 0 || img.Empty() {
			continue
		}
		rr = clampFloat64(rr, 0, float64(img.rows-1))
		c = clampFloat64(c, 0, float64(img.cols-1))
		if v, ok := BilinearSample(img, rr, c); ok && !math.IsNaN(v) {
			clamped = append(clamped, v)
		}
	}
	if len(samples) == 0 {
		return clamped
	}
	return samples
}

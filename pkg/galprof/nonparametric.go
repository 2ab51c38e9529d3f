package galprof

import (
	"fmt"
	"math"
	"sort"
)

// Profile is the brightness law of a model, evaluated along the radius metric
// of the model's CoordinateTransform.
type Profile interface {
	specProvider
	// RadialModel returns per-pixel flux at radii r for an image with the
	// pixel scale of sample.
	RadialModel(m *Model, r []float64, sample *Image) ([]float64, error)
	initialize(m *Model, target TargetImage) error
	computeLoss(m *Model, lossImage *Image, loss map[string][]float64) error
}

// ProfileRadii builds the radial grid for a window with the given half
// diagonal: 0 and 1, then 20% geometric steps (at least 1 apart) while the
// last radius is inside the half diagonal, with the final step dropped.
func ProfileRadii(halfDiagonal float64) []float64 {
	r := []float64{0, 1}
	for r[len(r)-1] < halfDiagonal {
		r = append(r, math.Max(1, r[len(r)-1]*1.2))
	}
	return r[:len(r)-1]
}

// NonParametric is a free-form radial profile: one intensity per radius of
// the model's grid, stored in the array parameter "I(R)".
type NonParametric struct{}

func (NonParametric) parameterSpecs() []namedSpec {
	return []namedSpec{
		{name: "I(R)", spec: ParameterSpec{Units: "flux/arcsec^2", Array: true}},
	}
}

func (NonParametric) parameterQualities() map[string]Quality {
	return map[string]Quality{
		"I(R)": {Form: "array", Loss: "radial loss", Regularize: "self", RegularizeScale: 1},
	}
}

// initialize sets I(R) from isophotes of the target unless it already has a
// value.
func (NonParametric) initialize(m *Model, target TargetImage) error {
	arr, err := m.params.Array("I(R)")
	if err != nil {
		return err
	}
	if arr.Len() > 0 {
		return nil
	}
	isos, err := m.extractIsophotes(target)
	if err != nil {
		return err
	}
	area := target.PixelScale() * target.PixelScale()
	intensity := make([]float64, len(isos))
	sigma := make([]float64, len(isos))
	for i, iso := range isos {
		intensity[i] = iso.Flux / area
		s := iso.Noise / math.Sqrt(float64(iso.N)) / area
		sigma[i] = clampFloat64(s, 1e-4*math.Abs(intensity[i]), math.Abs(intensity[i]))
	}
	if err := arr.SetValue(intensity, true); err != nil {
		return err
	}
	return arr.SetUncertainty(sigma, true)
}

func (NonParametric) RadialModel(m *Model, r []float64, sample *Image) ([]float64, error) {
	arr, err := m.params.Array("I(R)")
	if err != nil {
		return nil, err
	}
	values := arr.Value()
	if values == nil {
		return nil, fmt.Errorf("I(R) of %s: %w", m.name, ErrProfileNotReady)
	}
	if len(values) != len(m.profR) {
		return nil, fmt.Errorf("I(R) of %s has %d entries for %d radii: %w", m.name, len(values), len(m.profR), ErrShapeMismatch)
	}
	area := sample.pixelscale * sample.pixelscale
	knots := make([]float64, len(values))
	for i, v := range values {
		knots[i] = v * area
	}
	p, err := newRadialInterpolant(m.profR, knots)
	if err != nil {
		return nil, err
	}
	return predictAll(p, r), nil
}

func (NonParametric) computeLoss(m *Model, lossImage *Image, loss map[string][]float64) error {
	return m.radialLoss(lossImage, loss)
}

// extractIsophotes samples the target inside the model window at every
// radius of the grid, using the model's center, PA and q.
func (m *Model) extractIsophotes(target TargetImage) ([]Isophote, error) {
	area := target.Sub(m.window)
	if area.Empty() {
		return nil, fmt.Errorf("model %s window %v does not overlap the target: %w", m.name, m.window, ErrInvalidWindow)
	}
	center, err := m.center()
	if err != nil {
		return nil, err
	}
	pa, err := m.scalar("PA")
	if err != nil {
		return nil, err
	}
	q, err := m.scalar("q")
	if err != nil {
		return nil, err
	}
	row, col := area.CoordToIndex(center)
	radii := make([]float64, len(m.profR))
	for i, r := range m.profR {
		radii[i] = r / area.pixelscale
	}
	return m.isophotes.Extract(area, row, col, pa, q, radii)
}

// radialLoss stores the mean of the whole lossImage in radial bins around the
// model center under "radial loss". Bin edges are the first radius, the midpoints
// of the grid and 100 times the last radius.
func (m *Model) radialLoss(lossImage *Image, loss map[string][]float64) error {
	center, err := m.center()
	if err != nil {
		return err
	}
	xs, ys := lossImage.CoordinateMeshgrid(center.X, center.Y)
	values := lossImage.data
	if m.lossSpeedFactor > 1 {
		xs, ys, values = strideMesh(lossImage, xs, ys, m.lossSpeedFactor)
	}
	r, err := m.radius(xs, ys)
	if err != nil {
		return err
	}
	loss["radial loss"] = binnedMean(r, values, radialBinEdges(m.profR))
	return nil
}

func radialBinEdges(profR []float64) []float64 {
	if len(profR) == 0 {
		return nil
	}
	edges := make([]float64, 0, len(profR)+1)
	edges = append(edges, profR[0])
	for i := 1; i < len(profR); i++ {
		edges = append(edges, (profR[i-1]+profR[i])/2)
	}
	return append(edges, profR[len(profR)-1]*100)
}

// binnedMean averages values by x into bins [edges[i], edges[i+1]). A value on
// an inner edge belongs to the bin that edge opens, the same rule as scipy's
// binned_statistic, so the loss bins line up with profiles fitted there; the
// last bin also takes its upper edge. Points outside the edges are ignored and
// empty bins are NaN.
func binnedMean(x, values, edges []float64) []float64 {
	nb := len(edges) - 1
	if nb < 1 {
		return nil
	}
	sums := make([]float64, nb)
	counts := make([]int, nb)
	for i, xi := range x {
		if math.IsNaN(xi) || xi < edges[0] || xi > edges[nb] {
			continue
		}
		b := sort.Search(len(edges), func(k int) bool { return edges[k] > xi }) - 1
		if b >= nb {
			b = nb - 1
		}
		sums[b] += values[i]
		counts[b]++
	}
	out := make([]float64, nb)
	for b := range out {
		if counts[b] == 0 {
			out[b] = math.NaN()
			continue
		}
		out[b] = sums[b] / float64(counts[b])
	}
	return out
}

// strideMesh keeps every step-th row and column of a row-major mesh.
func strideMesh(img *Image, xs, ys []float64, step int) ([]float64, []float64, []float64) {
	var sx, sy, sv []float64
	for row := 0; row < img.rows; row += step {
		for col := 0; col < img.cols; col += step {
			i := row*img.cols + col
			sx = append(sx, xs[i])
			sy = append(sy, ys[i])
			sv = append(sv, img.data[i])
		}
	}
	return sx, sy, sv
}

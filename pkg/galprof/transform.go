package galprof

import (
	"fmt"
	"math"
)

// CoordinateTransform maps sky offsets from a model's center into the model's
// native frame and measures radius there. Implementations are selected per
// model type; the set is closed to this package.
type CoordinateTransform interface {
	specProvider
	Transform(m *Model, x, y []float64) (xt, yt []float64, err error)
	Radius(m *Model, x, y []float64) ([]float64, error)
	initialize(m *Model, target TargetImage) error
}

// baseModelSpecs is the first link of every spec chain.
type baseModelSpecs struct{}

func (baseModelSpecs) parameterSpecs() []namedSpec {
	return []namedSpec{
		{name: "center", spec: ParameterSpec{Units: "arcsec"}},
	}
}

func (baseModelSpecs) parameterQualities() map[string]Quality {
	return map[string]Quality{"center": {Form: "value"}}
}

// GalaxyTransform rotates by the position angle PA and measures elliptical
// radius with axis ratio q.
type GalaxyTransform struct{}

func (GalaxyTransform) parameterSpecs() []namedSpec {
	return []namedSpec{
		{name: "q", spec: ParameterSpec{Units: "b/a", Limits: &Bounds{Lo: 1e-3, Hi: 1}}},
		{name: "PA", spec: ParameterSpec{Units: "rad", Limits: &Bounds{Lo: 0, Hi: math.Pi}, Cyclic: true}},
	}
}

func (GalaxyTransform) parameterQualities() map[string]Quality {
	return map[string]Quality{
		"q":  {Form: "value"},
		"PA": {Form: "value"},
	}
}

func (GalaxyTransform) Transform(m *Model, x, y []float64) ([]float64, []float64, error) {
	pa, err := m.scalar("PA")
	if err != nil {
		return nil, nil, err
	}
	xt, yt := rotateCartesian(-pa, x, y)
	return xt, yt, nil
}

func (GalaxyTransform) Radius(m *Model, x, y []float64) ([]float64, error) {
	q, err := m.scalar("q")
	if err != nil {
		return nil, err
	}
	r := make([]float64, len(x))
	for i := range x {
		r[i] = math.Hypot(x[i], y[i]/q)
	}
	return r, nil
}

// initialize fills unset geometry from the window's image moments: the center
// from the flux-weighted centroid, PA and q from the second moments.
func (GalaxyTransform) initialize(m *Model, target TargetImage) error {
	center, err := m.params.Parameter("center")
	if err != nil {
		return err
	}
	pa, err := m.params.Parameter("PA")
	if err != nil {
		return err
	}
	q, err := m.params.Parameter("q")
	if err != nil {
		return err
	}
	if center.HasValue() && pa.HasValue() && q.HasValue() {
		return nil
	}

	area := target.Sub(m.window)
	if area.Empty() {
		return fmt.Errorf("model %s window %v does not overlap the target: %w", m.name, m.window, ErrInvalidWindow)
	}
	moments := ComputeMoments(area)
	if !center.HasValue() {
		c := area.IndexToCoord(moments.Row, moments.Col)
		if err := center.SetValue(c.Slice(), true); err != nil {
			return err
		}
	}
	estPA, estQ := moments.Ellipse()
	if !pa.HasValue() {
		if err := pa.SetValue([]float64{estPA}, true); err != nil {
			return err
		}
	}
	if !q.HasValue() {
		if err := q.SetValue([]float64{estQ}, true); err != nil {
			return err
		}
	}
	m.logger.Debug("galaxy geometry initialized", "model", m.name, "center", center.Value(), "PA", pa.Scalar(), "q", q.Scalar())
	return nil
}

// WarpTransform lets PA and q vary with radius. A point's ring is found with
// the global galaxy geometry; the point is then rotated by PA(R) and stretched
// by q(R) at that ring, and its radius is circular in the result. With
// constant PA(R) and q(R) it reduces to GalaxyTransform.
type WarpTransform struct {
	galaxy GalaxyTransform
}

func (WarpTransform) parameterSpecs() []namedSpec {
	return []namedSpec{
		{name: "q(R)", spec: ParameterSpec{Units: "b/a", Limits: &Bounds{Lo: 1e-3, Hi: 1}, Array: true}},
		{name: "PA(R)", spec: ParameterSpec{Units: "rad", Limits: &Bounds{Lo: 0, Hi: math.Pi}, Cyclic: true, Array: true}},
	}
}

func (WarpTransform) parameterQualities() map[string]Quality {
	return map[string]Quality{
		"q(R)":  {Form: "array"},
		"PA(R)": {Form: "array"},
	}
}

func (w WarpTransform) Transform(m *Model, x, y []float64) ([]float64, []float64, error) {
	gx, gy, err := w.galaxy.Transform(m, x, y)
	if err != nil {
		return nil, nil, err
	}
	ring, err := w.galaxy.Radius(m, gx, gy)
	if err != nil {
		return nil, nil, err
	}
	paArr, err := m.params.Array("PA(R)")
	if err != nil {
		return nil, nil, err
	}
	paR, err := newRadialInterpolant(m.profR, unwrapAxis(paArr.Value()))
	if err != nil {
		return nil, nil, fmt.Errorf("PA(R) of %s: %w", m.name, err)
	}
	qR, err := m.radialCurve("q(R)")
	if err != nil {
		return nil, nil, err
	}
	xt := make([]float64, len(x))
	yt := make([]float64, len(y))
	for i := range x {
		theta := -paR.Predict(ring[i])
		cos, sin := math.Cos(theta), math.Sin(theta)
		xt[i] = x[i]*cos - y[i]*sin
		yt[i] = (x[i]*sin + y[i]*cos) / qR.Predict(ring[i])
	}
	return xt, yt, nil
}

func (WarpTransform) Radius(_ *Model, x, y []float64) ([]float64, error) {
	r := make([]float64, len(x))
	for i := range x {
		r[i] = math.Hypot(x[i], y[i])
	}
	return r, nil
}

// initialize seeds PA(R) and q(R) with the global geometry on every ring.
func (w WarpTransform) initialize(m *Model, target TargetImage) error {
	if err := w.galaxy.initialize(m, target); err != nil {
		return err
	}
	for _, pair := range [][2]string{{"PA(R)", "PA"}, {"q(R)", "q"}} {
		arr, err := m.params.Array(pair[0])
		if err != nil {
			return err
		}
		if arr.Len() > 0 {
			continue
		}
		v, err := m.scalar(pair[1])
		if err != nil {
			return err
		}
		if err := arr.SetValue(repeatFloat(v, len(m.profR)), true); err != nil {
			return err
		}
	}
	return nil
}

// unwrapAxis shifts position angles by multiples of pi so neighbours differ by
// at most pi/2. An axis at PA and PA+pi is the same, and the radius metric is
// symmetric under that half turn, so the unwrapped curve can be used as is.
func unwrapAxis(pa []float64) []float64 {
	out := cloneFloats(pa)
	for i := 1; i < len(out); i++ {
		out[i] -= math.Pi * math.Round((out[i]-out[i-1])/math.Pi)
	}
	return out
}

// rotateCartesian rotates (x, y) counter-clockwise by theta.
func rotateCartesian(theta float64, x, y []float64) ([]float64, []float64) {
	cos, sin := math.Cos(theta), math.Sin(theta)
	xr := make([]float64, len(x))
	yr := make([]float64, len(y))
	for i := range x {
		xr[i] = x[i]*cos - y[i]*sin
		yr[i] = x[i]*sin + y[i]*cos
	}
	return xr, yr
}

func repeatFloat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

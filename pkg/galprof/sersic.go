package galprof

import "math"

// Sersic is the parametric profile I(R) = Ie exp(-bn ((R/Re)^(1/n) - 1)).
type Sersic struct{}

func (Sersic) parameterSpecs() []namedSpec {
	return []namedSpec{
		{name: "Ie", spec: ParameterSpec{Units: "flux/arcsec^2"}},
		{name: "Re", spec: ParameterSpec{Units: "arcsec", Limits: &Bounds{Lo: 1e-6, Hi: math.Inf(1)}}},
		{name: "n", spec: ParameterSpec{Limits: &Bounds{Lo: 0.36, Hi: 8}}},
	}
}

func (Sersic) parameterQualities() map[string]Quality {
	return map[string]Quality{
		"Ie": {Form: "value"},
		"Re": {Form: "value"},
		"n":  {Form: "value"},
	}
}

// sersicBn approximates b(n) so that Re encloses half the light.
func sersicBn(n float64) float64 {
	return 2*n - 1.0/3 + 4/(405*n) + 46/(25515*n*n)
}

func sersicBnPrime(n float64) float64 {
	return 2 - 4/(405*n*n) - 92/(25515*n*n*n)
}

// sersicCurve is the profile as a curveModel over p = (Ie, Re, n).
type sersicCurve struct{}

func (sersicCurve) value(p []float64, r float64) float64 {
	ie, re, n := p[0], p[1], p[2]
	return ie * math.Exp(-sersicBn(n)*(math.Pow(r/re, 1/n)-1))
}

func (c sersicCurve) gradient(p []float64, r float64, grad []float64) {
	ie, re, n := p[0], p[1], p[2]
	bn := sersicBn(n)
	u := r / re
	s := math.Pow(u, 1/n)
	e := math.Exp(-bn * (s - 1))
	f := ie * e

	dsdn := 0.0
	if u > 0 {
		dsdn = -s * math.Log(u) / (n * n)
	}
	grad[0] = e
	grad[1] = f * bn * s / (n * re)
	grad[2] = f * (-sersicBnPrime(n)*(s-1) - bn*dsdn)
}

// initialize fits Ie, Re and n to the isophote profile when any of them is
// unset. Values already present seed the fit and are kept.
func (Sersic) initialize(m *Model, target TargetImage) error {
	names := []string{"Ie", "Re", "n"}
	params := make([]*Parameter, len(names))
	ready := true
	for i, name := range names {
		p, err := m.params.Parameter(name)
		if err != nil {
			return err
		}
		params[i] = p
		ready = ready && p.HasValue()
	}
	if ready {
		return nil
	}

	isos, err := m.extractIsophotes(target)
	if err != nil {
		return err
	}
	area := target.PixelScale() * target.PixelScale()
	radii := cloneFloats(m.profR)
	intensity := make([]float64, len(isos))
	peak := 0.0
	for i, iso := range isos {
		intensity[i] = iso.Flux / area
		peak = math.Max(peak, math.Abs(intensity[i]))
	}

	mid := len(radii) / 2
	x0 := []float64{intensity[mid], math.Max(radii[mid], 1e-3), 2}
	for i, p := range params {
		if p.HasValue() {
			x0[i] = p.Scalar()
		}
	}
	outer := math.Max(100*radii[len(radii)-1], 1)
	lower := []float64{0, 1e-3, 0.36}
	upper := []float64{math.Max(peak*1e3, 1), outer, 8}
	scale := []float64{1, 1, 1}

	solution := x0
	if len(radii) >= len(x0) {
		solution = levenbergMarquardt(sersicCurve{}, radii, intensity, x0, lower, upper, scale, 1e-8, 200)
	}
	for i, p := range params {
		if p.HasValue() {
			continue
		}
		if err := p.SetValue([]float64{solution[i]}, true); err != nil {
			return err
		}
	}
	m.logger.Debug("sersic profile fitted", "model", m.name,
		"Ie", solution[0], "Re", solution[1], "n", solution[2],
		"r2", computeRSquared(sersicCurve{}, radii, intensity, solution))
	return nil
}

func (Sersic) RadialModel(m *Model, r []float64, sample *Image) ([]float64, error) {
	p := make([]float64, 3)
	for i, name := range []string{"Ie", "Re", "n"} {
		v, err := m.scalar(name)
		if err != nil {
			return nil, err
		}
		p[i] = v
	}
	p[0] *= sample.pixelscale * sample.pixelscale
	out := make([]float64, len(r))
	for i, ri := range r {
		out[i] = sersicCurve{}.value(p, ri)
	}
	return out, nil
}

func (Sersic) computeLoss(m *Model, lossImage *Image, loss map[string][]float64) error {
	return m.radialLoss(lossImage, loss)
}

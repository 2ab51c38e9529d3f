package galprof

import (
	"fmt"
	"log/slog"
	"maps"
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"galprof/pkg/logger"
)

// ModelParams configures a model at construction.
type ModelParams struct {
	// Window defaults to the whole target when nil.
	Window *Window
	// Parameters overrides the default parameter specs by name.
	Parameters map[string]UserSpec
	// LossSpeedFactor strides the loss mesh; 1 uses every pixel.
	LossSpeedFactor int
	// PSFSigma is the Gaussian PSF width in pixels; 0 disables convolution.
	PSFSigma float64
	// IntegrateFactor is the sub-grid size used within IntegrateRadius pixels of
	// the center; 1 disables integration.
	IntegrateFactor int
	IntegrateRadius float64
	// Locked is passed to UpdateLocked when not nil.
	Locked     any
	UserLocked bool
	Isophotes  IsophoteExtractor
	Logger     *slog.Logger
}

// NewModelParams creates a ModelParams with default values.
func NewModelParams() *ModelParams {
	return &ModelParams{
		LossSpeedFactor: 1,
		IntegrateFactor: 1,
		IntegrateRadius: 0,
		Isophotes:       NewEllipseSampler(),
	}
}

// Model is one brightness-profile component fitted to a target image. It
// composes a CoordinateTransform with a Profile and owns its parameters,
// window, model image and history.
type Model struct {
	name      string
	modelType string
	transform CoordinateTransform
	profile   Profile

	params    *ParameterSet
	qualities map[string]Quality

	target     TargetImage
	window     Window
	baseWindow *Window
	modelImage *Image
	profR      []float64

	loss      map[string][]float64
	history   History
	iteration int

	lock       lockState
	userLocked bool

	sampled    bool
	convolved  bool
	integrated bool

	lossSpeedFactor int
	psfSigma        float64
	integrateFactor int
	integrateRadius float64
	isophotes       IsophoteExtractor

	logger *slog.Logger
}

// NewModel builds a model of a registered type. When target is not nil the
// window from p (or the whole target) is applied immediately.
func NewModel(name, modelType string, target TargetImage, p *ModelParams) (*Model, error) {
	if p == nil {
		p = NewModelParams()
	}
	kind, err := lookupModelType(modelType)
	if err != nil {
		return nil, err
	}
	chain := kind.chain()
	resolved, err := buildParameterSpecs(chain, p.Parameters)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}

	m := &Model{
		name:            name,
		modelType:       modelType,
		transform:       kind.transform,
		profile:         kind.profile,
		params:          buildParameters(resolved),
		qualities:       buildParameterQualities(chain),
		iteration:       -1,
		lossSpeedFactor: max(p.LossSpeedFactor, 1),
		psfSigma:        p.PSFSigma,
		integrateFactor: max(p.IntegrateFactor, 1),
		integrateRadius: p.IntegrateRadius,
		isophotes:       p.Isophotes,
		logger:          logger.OrDefault(p.Logger),
	}
	if m.isophotes == nil {
		m.isophotes = NewEllipseSampler()
	}
	if target != nil {
		m.SetTarget(target)
		if err := m.SetWindow(p.Window); err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
	}
	if p.UserLocked {
		m.SetUserLocked(true)
	}
	if p.Locked != nil {
		if err := m.UpdateLocked(p.Locked); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Model) Name() string                     { return m.name }
func (m *Model) Type() string                     { return m.modelType }
func (m *Model) Iteration() int                   { return m.iteration }
func (m *Model) Parameters() *ParameterSet        { return m.params }
func (m *Model) Qualities() map[string]Quality    { return maps.Clone(m.qualities) }
func (m *Model) History() *History                { return &m.history }
func (m *Model) Window() Window                   { return m.window }
func (m *Model) ModelImage() *Image               { return m.modelImage }
func (m *Model) ProfileRadii() []float64          { return cloneFloats(m.profR) }
func (m *Model) Target() TargetImage              { return m.target }
func (m *Model) Loss() map[string][]float64       { return deepCopySnapshot(m.loss) }
func (m *Model) Get(key string) (Quantity, error) { return m.params.Get(key) }

// BaseWindow is the window from the first SetWindow call.
func (m *Model) BaseWindow() (Window, bool) {
	if m.baseWindow == nil {
		return Window{}, false
	}
	return *m.baseWindow, true
}

// SetTarget replaces the fitted image. The model image is reallocated for
// the current window when one is set.
func (m *Model) SetTarget(target TargetImage) {
	m.target = target
	if m.baseWindow != nil {
		m.allocModelImage()
	}
}

// SetWindow sets the working window, or the whole target when w is nil, and
// reallocates a zeroed model image of the window's pixel shape. The first call
// also fixes the base window and the radial grid.
func (m *Model) SetWindow(w *Window) error {
	if m.target == nil {
		return fmt.Errorf("model %s: %w", m.name, ErrNoTarget)
	}
	var win Window
	if w == nil {
		win = m.target.Window()
	} else {
		win = *w
	}
	if win.PixelScale == 0 {
		win.PixelScale = m.target.PixelScale()
	}
	if win.Size.X < 0 || win.Size.Y < 0 || win.PixelScale < 0 {
		return fmt.Errorf("model %s window %v: %w", m.name, win, ErrInvalidWindow)
	}

	m.window = win
	if m.baseWindow == nil {
		base := win
		m.baseWindow = &base
	}
	if m.profR == nil {
		m.profR = ProfileRadii(win.HalfDiagonal())
	}
	m.allocModelImage()
	return nil
}

// SetPixelWindow sets the window from [[rowLo,rowHi],[colLo,colHi]] index
// bounds on the target.
func (m *Model) SetPixelWindow(bounds [2][2]float64) error {
	if m.target == nil {
		return fmt.Errorf("model %s: %w", m.name, ErrNoTarget)
	}
	w, err := WindowFromPixelBounds(bounds, m.target)
	if err != nil {
		return err
	}
	return m.SetWindow(&w)
}

// ScaleWindow resizes the base window about its center, clipped to the
// target, without forgetting the base window.
func (m *Model) ScaleWindow(scale float64) error {
	if m.baseWindow == nil || m.target == nil {
		return fmt.Errorf("model %s: %w", m.name, ErrNoTarget)
	}
	limit := m.target.Window()
	w := m.baseWindow.Scaled(scale, &limit)
	return m.SetWindow(&w)
}

func (m *Model) allocModelImage() {
	ps := m.target.PixelScale()
	r := gridRect(m.window, m.target)
	origin := m.target.Origin().Add(Point2d{X: float64(r.Min.X), Y: float64(r.Min.Y)}.Scale(ps))
	m.modelImage = NewImage(r.Dy(), r.Dx(), ps, origin)
	m.sampled = false
	m.convolved = false
	m.integrated = false
}

// Initialize derives starting values for every unset parameter from target,
// or from the model's own target when target is nil.
func (m *Model) Initialize(target TargetImage) error {
	if target == nil {
		target = m.target
	}
	if target == nil {
		return fmt.Errorf("model %s: %w", m.name, ErrNoTarget)
	}
	if m.baseWindow == nil {
		if m.target == nil {
			m.SetTarget(target)
		}
		if err := m.SetWindow(nil); err != nil {
			return err
		}
	}
	if err := m.transform.initialize(m, target); err != nil {
		return fmt.Errorf("initializing %s geometry: %w", m.name, err)
	}
	if err := m.profile.initialize(m, target); err != nil {
		return fmt.Errorf("initializing %s profile: %w", m.name, err)
	}
	m.logger.Debug("model initialized", "model", m.name, "type", m.modelType, "radii", len(m.profR))
	return nil
}

// SampleModel evaluates the profile at every pixel center of the model image.
func (m *Model) SampleModel() error {
	if m.sampled {
		return nil
	}
	if m.modelImage == nil {
		return fmt.Errorf("model %s: %w", m.name, ErrNoTarget)
	}
	center, err := m.center()
	if err != nil {
		return err
	}
	xs, ys := m.modelImage.CoordinateMeshgrid(center.X, center.Y)
	r, err := m.radius(xs, ys)
	if err != nil {
		return err
	}
	values, err := m.profile.RadialModel(m, r, m.modelImage)
	if err != nil {
		return fmt.Errorf("sampling %s: %w", m.name, err)
	}
	copy(m.modelImage.data, values)
	m.sampled = true
	m.logger.Debug("model sampled", "model", m.name, "iteration", m.iteration)
	return nil
}

// ConvolvePSF blurs the model image with the model's Gaussian PSF.
func (m *Model) ConvolvePSF() error {
	if m.convolved {
		return nil
	}
	if m.modelImage == nil {
		return fmt.Errorf("model %s: %w", m.name, ErrNoTarget)
	}
	ConvolveGaussian(m.modelImage, m.psfSigma)
	m.convolved = true
	return nil
}

// IntegrateModel corrects pixels within the integration radius of the center
// for the profile's curvature: each gets the difference between its
// factor x factor sub-grid mean and its center sample added.
func (m *Model) IntegrateModel() error {
	if m.integrated {
		return nil
	}
	if m.modelImage == nil {
		return fmt.Errorf("model %s: %w", m.name, ErrNoTarget)
	}
	if m.integrateFactor > 1 && m.integrateRadius > 0 {
		if err := m.integrateCenter(); err != nil {
			return fmt.Errorf("integrating %s: %w", m.name, err)
		}
	}
	m.integrated = true
	return nil
}

func (m *Model) integrateCenter() error {
	img := m.modelImage
	center, err := m.center()
	if err != nil {
		return err
	}
	row0, col0 := img.CoordToIndex(center)
	f := m.integrateFactor
	perPixel := f*f + 1
	ps := img.pixelscale

	var pixels []int
	var xs, ys []float64
	rLo := max(0, int(math.Floor(row0-m.integrateRadius)))
	rHi := min(img.rows-1, int(math.Ceil(row0+m.integrateRadius)))
	cLo := max(0, int(math.Floor(col0-m.integrateRadius)))
	cHi := min(img.cols-1, int(math.Ceil(col0+m.integrateRadius)))
	for row := rLo; row <= rHi; row++ {
		for col := cLo; col <= cHi; col++ {
			if math.Hypot(float64(row)-row0, float64(col)-col0) > m.integrateRadius {
				continue
			}
			pixels = append(pixels, row*img.cols+col)
			cx := img.origin.X + (float64(col)+0.5)*ps - center.X
			cy := img.origin.Y + (float64(row)+0.5)*ps - center.Y
			xs = append(xs, cx)
			ys = append(ys, cy)
			for i := 0; i < f; i++ {
				dy := ((float64(i)+0.5)/float64(f) - 0.5) * ps
				for j := 0; j < f; j++ {
					dx := ((float64(j)+0.5)/float64(f) - 0.5) * ps
					xs = append(xs, cx+dx)
					ys = append(ys, cy+dy)
				}
			}
		}
	}
	if len(pixels) == 0 {
		return nil
	}
	r, err := m.radius(xs, ys)
	if err != nil {
		return err
	}
	values, err := m.profile.RadialModel(m, r, img)
	if err != nil {
		return err
	}
	for k, idx := range pixels {
		block := values[k*perPixel : (k+1)*perPixel]
		img.data[idx] += stat.Mean(block[1:], nil) - block[0]
	}
	return nil
}

// AddIntegratedModel adds the model image into dst where they overlap.
func (m *Model) AddIntegratedModel(dst *Image) error {
	if m.modelImage == nil {
		return fmt.Errorf("model %s: %w", m.name, ErrNoTarget)
	}
	return dst.AddImage(m.modelImage)
}

// ComputeLoss records this iteration's loss from data.LossImage. It is a
// no-op while the model is locked. "model loss" is the mean residual in the
// window; the profile bins the whole loss image around the model center.
func (m *Model) ComputeLoss(data *FitData) error {
	if m.Locked() {
		return nil
	}
	if data == nil || data.LossImage == nil {
		return fmt.Errorf("model %s has no loss image: %w", m.name, ErrNoTarget)
	}
	area := data.LossImage.Sub(m.window)
	loss := map[string][]float64{
		"model loss": {stat.Mean(area.data, nil)},
	}
	if err := m.profile.computeLoss(m, data.LossImage, loss); err != nil {
		return fmt.Errorf("loss for %s: %w", m.name, err)
	}
	m.loss = loss
	return nil
}

func (m *Model) center() (Point2d, error) {
	p, err := m.params.Parameter("center")
	if err != nil {
		return Point2d{}, err
	}
	c, ok := pointFromSlice(p.Value())
	if !ok {
		return Point2d{}, fmt.Errorf("center of %s: %w", m.name, ErrProfileNotReady)
	}
	return c, nil
}

func (m *Model) scalar(name string) (float64, error) {
	p, err := m.params.Parameter(name)
	if err != nil {
		return 0, err
	}
	if !p.HasValue() {
		return 0, fmt.Errorf("%s of %s: %w", name, m.name, ErrProfileNotReady)
	}
	return p.Scalar(), nil
}

// radius maps sky offsets through the transform and its radius metric.
func (m *Model) radius(x, y []float64) ([]float64, error) {
	xt, yt, err := m.transform.Transform(m, x, y)
	if err != nil {
		return nil, err
	}
	return m.transform.Radius(m, xt, yt)
}

// radialCurve interpolates the named array parameter over profR.
func (m *Model) radialCurve(name string) (interp.Predictor, error) {
	arr, err := m.params.Array(name)
	if err != nil {
		return nil, err
	}
	if arr.Len() == 0 {
		return nil, fmt.Errorf("%s of %s: %w", name, m.name, ErrProfileNotReady)
	}
	return newRadialInterpolant(m.profR, arr.Value())
}

func (m *Model) String() string {
	return fmt.Sprintf("%s (%s, %s, iteration %d)", m.name, m.modelType, m.lock, m.iteration)
}

package galprof

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"galprof/pkg/logger"
)

// ModelsState holds the models of one fit and fans every pipeline stage out
// to them, largest window first.
type ModelsState struct {
	target    TargetImage
	models    map[string]*Model
	inserted  []string
	order     []string
	iteration int

	parallelism int
	isolate     bool
	failures    map[string]error
	logger      *slog.Logger
}

// Option configures a ModelsState.
type Option func(*ModelsState)

// WithParallelism runs the per-model stages on up to n goroutines.
func WithParallelism(n int) Option {
	return func(s *ModelsState) { s.parallelism = max(n, 1) }
}

// WithErrorIsolation keeps a batch going when single models fail. Failures
// are logged and collected in Failures instead of being returned.
func WithErrorIsolation(enabled bool) Option {
	return func(s *ModelsState) { s.isolate = enabled }
}

// WithLogger sets the logger for progress and failure reports.
func WithLogger(l *slog.Logger) Option {
	return func(s *ModelsState) { s.logger = l }
}

// NewModelsState creates an empty collection fitted to target.
func NewModelsState(target TargetImage, opts ...Option) *ModelsState {
	s := &ModelsState{
		target:      target,
		models:      make(map[string]*Model),
		iteration:   -1,
		parallelism: 1,
		failures:    make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.OrDefault(s.logger)
	return s
}

// AddModel builds a model of the registered type on the collection's target
// and inserts it. A nil p.Window means the whole target.
func (s *ModelsState) AddModel(name, modelType string, p *ModelParams) (*Model, error) {
	if _, ok := s.models[name]; ok {
		return nil, fmt.Errorf("%s: %w", name, ErrDuplicateModel)
	}
	params := NewModelParams()
	if p != nil {
		params = new(ModelParams)
		*params = *p
	}
	if params.Logger == nil {
		params.Logger = s.logger
	}
	m, err := NewModel(name, modelType, s.target, params)
	if err != nil {
		return nil, err
	}
	if err := s.Add(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Add inserts an already built model and recomputes the execution order.
func (s *ModelsState) Add(m *Model) error {
	if _, ok := s.models[m.name]; ok {
		return fmt.Errorf("%s: %w", m.name, ErrDuplicateModel)
	}
	s.models[m.name] = m
	s.inserted = append(s.inserted, m.name)
	s.organize()
	return nil
}

// organize sorts by descending window pixel area, ties in insertion order.
func (s *ModelsState) organize() {
	order := slices.Clone(s.inserted)
	slices.SortStableFunc(order, func(a, b string) int {
		return s.models[b].window.PixelArea() - s.models[a].window.PixelArea()
	})
	s.order = order
}

// Names returns model names in execution order.
func (s *ModelsState) Names() []string { return slices.Clone(s.order) }

// Models returns the models in execution order.
func (s *ModelsState) Models() []*Model {
	out := make([]*Model, len(s.order))
	for i, name := range s.order {
		out[i] = s.models[name]
	}
	return out
}

// Get returns the named model.
func (s *ModelsState) Get(name string) (*Model, error) {
	m, ok := s.models[name]
	if !ok {
		return nil, fmt.Errorf("model %s: %w", name, ErrKeyNotFound)
	}
	return m, nil
}

func (s *ModelsState) Len() int       { return len(s.order) }
func (s *ModelsState) Iteration() int { return s.iteration }

// Failures returns the latest isolated error of every model that failed, by
// model name.
func (s *ModelsState) Failures() map[string]error { return maps.Clone(s.failures) }

// Initialize initializes every model from target, or the collection target
// when target is nil.
func (s *ModelsState) Initialize(target TargetImage) error {
	if target == nil {
		target = s.target
	}
	return s.fanOut("initialize", func(m *Model) error { return m.Initialize(target) })
}

func (s *ModelsState) SampleModels() error {
	return s.fanOut("sample", (*Model).SampleModel)
}

func (s *ModelsState) ConvolvePSF() error {
	return s.fanOut("convolve", (*Model).ConvolvePSF)
}

func (s *ModelsState) IntegrateModels() error {
	return s.fanOut("integrate", (*Model).IntegrateModel)
}

// AddIntegratedModels accumulates every model image into dst, sequentially.
func (s *ModelsState) AddIntegratedModels(dst *Image) error {
	for _, name := range s.order {
		if err := s.models[name].AddIntegratedModel(dst); err != nil {
			if s.isolateFailure(name, "add", err) {
				continue
			}
			return fmt.Errorf("adding model %s: %w", name, err)
		}
	}
	return nil
}

func (s *ModelsState) ComputeLoss(data *FitData) error {
	return s.fanOut("loss", func(m *Model) error { return m.ComputeLoss(data) })
}

// StepIteration advances the collection counter and steps every model.
func (s *ModelsState) StepIteration() {
	s.iteration++
	s.logger.Info("Now on iteration", "iteration", s.iteration, "models", len(s.order))
	for _, name := range s.order {
		s.models[name].StepIteration()
	}
}

// UnlockModels releases every lock except user locks.
func (s *ModelsState) UnlockModels() {
	for _, name := range s.order {
		_ = s.models[name].UpdateLocked(false)
	}
}

// SaveModels writes every model's parameter dump in execution order.
func (s *ModelsState) SaveModels(w io.Writer) error {
	for _, name := range s.order {
		if err := s.models[name].SaveModel(w); err != nil {
			return fmt.Errorf("saving model %s: %w", name, err)
		}
	}
	return nil
}

func (s *ModelsState) isolateFailure(name, stage string, err error) bool {
	if !s.isolate {
		return false
	}
	s.failures[name] = err
	s.logger.Warn("model failed, continuing", "model", name, "stage", stage, "iteration", s.iteration, "error", err)
	return true
}

// fanOut runs fn on every model in execution order. With parallelism the
// semaphore is taken before each goroutine starts, so larger windows are
// always dispatched first.
func (s *ModelsState) fanOut(stage string, fn func(*Model) error) error {
	if s.parallelism <= 1 {
		for _, name := range s.order {
			if err := fn(s.models[name]); err != nil {
				if s.isolateFailure(name, stage, err) {
					continue
				}
				return fmt.Errorf("%s model %s: %w", stage, name, err)
			}
		}
		return nil
	}

	semaphore := make(chan struct{}, s.parallelism)
	var wg sync.WaitGroup
	errs := make([]error, len(s.order))
	for i, name := range s.order {
		semaphore <- struct{}{}
		wg.Add(1)
		go func(idx int, m *Model) {
			defer wg.Done()
			defer func() { <-semaphore }()
			errs[idx] = fn(m)
		}(i, s.models[name])
	}
	wg.Wait()

	var failed []error
	for i, err := range errs {
		if err == nil {
			continue
		}
		name := s.order[i]
		if s.isolateFailure(name, stage, err) {
			continue
		}
		failed = append(failed, fmt.Errorf("%s model %s: %w", stage, name, err))
	}
	return errors.Join(failed...)
}

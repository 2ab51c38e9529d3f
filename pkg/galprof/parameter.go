package galprof

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bounds limits a parameter to the closed interval [Lo, Hi].
type Bounds struct {
	Lo float64
	Hi float64
}

// Quantity is the common surface of Parameter and ParameterArray.
type Quantity interface {
	Name() string
	Units() string
	IsFixed() bool
	SetFixed(fixed bool)
	Value() []float64
	Uncertainty() []float64
	SetValue(v []float64, overrideFixed bool) error
	SetUncertainty(u []float64, overrideFixed bool) error
	String() string
}

// Parameter is a named scalar or vector quantity with an optional uncertainty.
// A nil value means the parameter has not been initialized yet.
type Parameter struct {
	name   string
	units  string
	fixed  bool
	limits *Bounds
	cyclic bool

	value       []float64
	uncertainty []float64
}

// NewParameter builds a parameter from a resolved spec. The spec's value and
// uncertainty are installed even when the spec marks the parameter fixed.
func NewParameter(name string, spec ParameterSpec) *Parameter {
	p := &Parameter{
		name:   name,
		units:  spec.Units,
		fixed:  spec.Fixed,
		limits: spec.Limits,
		cyclic: spec.Cyclic,
	}
	installSpec(spec, p.SetValue, p.SetUncertainty)
	return p
}

func (p *Parameter) Name() string        { return p.name }
func (p *Parameter) Units() string       { return p.units }
func (p *Parameter) IsFixed() bool       { return p.fixed }
func (p *Parameter) SetFixed(fixed bool) { p.fixed = fixed }
func (p *Parameter) Limits() *Bounds     { return p.limits }
func (p *Parameter) HasValue() bool      { return p.value != nil }

// Value returns a copy of the value, or nil when unset.
func (p *Parameter) Value() []float64 { return cloneFloats(p.value) }

// Uncertainty returns a copy of the uncertainty, or nil when unset.
func (p *Parameter) Uncertainty() []float64 { return cloneFloats(p.uncertainty) }

// Scalar returns the first component, or NaN when unset.
func (p *Parameter) Scalar() float64 { return p.Component(0) }

// Component returns the i-th component, or NaN when it does not exist.
func (p *Parameter) Component(i int) float64 {
	if i < 0 || i >= len(p.value) {
		return math.NaN()
	}
	return p.value[i]
}

// SetValue replaces the value. Components are clamped into the parameter's
// limits, or wrapped for cyclic parameters. A stale uncertainty of a different
// length is dropped.
func (p *Parameter) SetValue(v []float64, overrideFixed bool) error {
	if p.fixed && !overrideFixed {
		return fmt.Errorf("setting value of %s: %w", p.name, ErrLockedParameter)
	}
	if v == nil {
		p.value = nil
		p.uncertainty = nil
		return nil
	}
	nv := make([]float64, len(v))
	for i, x := range v {
		nv[i] = p.constrain(x)
	}
	if p.uncertainty != nil && len(p.uncertainty) != len(nv) {
		p.uncertainty = nil
	}
	p.value = nv
	return nil
}

// SetUncertainty replaces the uncertainty; it must match the value's length.
func (p *Parameter) SetUncertainty(u []float64, overrideFixed bool) error {
	if p.fixed && !overrideFixed {
		return fmt.Errorf("setting uncertainty of %s: %w", p.name, ErrLockedParameter)
	}
	if u != nil && p.value != nil && len(u) != len(p.value) {
		return fmt.Errorf("uncertainty of %s has %d entries, value has %d: %w", p.name, len(u), len(p.value), ErrShapeMismatch)
	}
	p.uncertainty = cloneFloats(u)
	return nil
}

func (p *Parameter) constrain(x float64) float64 {
	if p.limits == nil {
		return x
	}
	lo, hi := p.limits.Lo, p.limits.Hi
	if p.cyclic {
		return lo + euclideanModulus(x-lo, hi-lo)
	}
	return clampFloat64(x, lo, hi)
}

// String renders the parameter as name=value±uncertainty [units].
func (p *Parameter) String() string {
	return formatQuantity(p.name, p.value, p.uncertainty, p.units)
}

// ParameterArray is an ordered collection of scalar parameters describing a
// radial profile. Elements are addressed by index or by the sub-key "<name>:<i>".
type ParameterArray struct {
	name   string
	units  string
	fixed  bool
	limits *Bounds
	cyclic bool
	items  []*Parameter
}

// NewParameterArray builds an array from a resolved spec, with the same
// shape contract as NewParameter.
func NewParameterArray(name string, spec ParameterSpec) *ParameterArray {
	a := &ParameterArray{
		name:   name,
		units:  spec.Units,
		fixed:  spec.Fixed,
		limits: spec.Limits,
		cyclic: spec.Cyclic,
	}
	installSpec(spec, a.SetValue, a.SetUncertainty)
	return a
}

func (a *ParameterArray) Name() string        { return a.name }
func (a *ParameterArray) Units() string       { return a.units }
func (a *ParameterArray) IsFixed() bool       { return a.fixed }
func (a *ParameterArray) SetFixed(fixed bool) { a.fixed = fixed }
func (a *ParameterArray) Len() int            { return len(a.items) }

// SubKey is the lookup key of the i-th element.
func (a *ParameterArray) SubKey(i int) string { return a.name + ":" + strconv.Itoa(i) }

// At returns the i-th element.
func (a *ParameterArray) At(i int) (*Parameter, error) {
	if i < 0 || i >= len(a.items) {
		return nil, fmt.Errorf("%s index %d of %d: %w", a.name, i, len(a.items), ErrKeyNotFound)
	}
	return a.items[i], nil
}

// Get resolves a sub-key such as "I(R):3".
func (a *ParameterArray) Get(key string) (*Parameter, error) {
	rest, ok := strings.CutPrefix(key, a.name+":")
	if !ok {
		return nil, fmt.Errorf("%s in %s: %w", key, a.name, ErrKeyNotFound)
	}
	i, err := strconv.Atoi(rest)
	if err != nil {
		return nil, fmt.Errorf("%s in %s: %w", key, a.name, ErrKeyNotFound)
	}
	return a.At(i)
}

// Value collects the element values, or nil when the array is empty.
func (a *ParameterArray) Value() []float64 {
	if len(a.items) == 0 {
		return nil
	}
	out := make([]float64, len(a.items))
	for i, it := range a.items {
		out[i] = it.Scalar()
	}
	return out
}

// Uncertainty collects element uncertainties, or nil if any element lacks one.
func (a *ParameterArray) Uncertainty() []float64 {
	if len(a.items) == 0 {
		return nil
	}
	out := make([]float64, len(a.items))
	for i, it := range a.items {
		if it.uncertainty == nil {
			return nil
		}
		out[i] = it.uncertainty[0]
	}
	return out
}

// SetValue installs one element per entry of v. The array is rebuilt when the
// length changes. Individually fixed elements also require overrideFixed.
func (a *ParameterArray) SetValue(v []float64, overrideFixed bool) error {
	if !overrideFixed {
		if a.fixed {
			return fmt.Errorf("setting value of %s: %w", a.name, ErrLockedParameter)
		}
		for _, it := range a.items {
			if it.fixed {
				return fmt.Errorf("setting value of %s: %w", it.name, ErrLockedParameter)
			}
		}
	}
	if len(v) != len(a.items) {
		a.items = make([]*Parameter, len(v))
		for i := range v {
			a.items[i] = &Parameter{name: a.SubKey(i), units: a.units, limits: a.limits, cyclic: a.cyclic}
		}
	}
	for i, x := range v {
		if err := a.items[i].SetValue([]float64{x}, true); err != nil {
			return err
		}
	}
	return nil
}

// SetUncertainty installs one uncertainty per element; nil clears them.
func (a *ParameterArray) SetUncertainty(u []float64, overrideFixed bool) error {
	if a.fixed && !overrideFixed {
		return fmt.Errorf("setting uncertainty of %s: %w", a.name, ErrLockedParameter)
	}
	if u == nil {
		for _, it := range a.items {
			it.uncertainty = nil
		}
		return nil
	}
	if len(u) != len(a.items) {
		return fmt.Errorf("uncertainty of %s has %d entries, array has %d: %w", a.name, len(u), len(a.items), ErrShapeMismatch)
	}
	for i, it := range a.items {
		it.uncertainty = []float64{u[i]}
	}
	return nil
}

func (a *ParameterArray) String() string {
	return formatQuantity(a.name, a.Value(), a.Uncertainty(), a.units)
}

func formatQuantity(name string, value, uncertainty []float64, units string) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('=')
	if value == nil {
		sb.WriteString("unset")
	} else {
		sb.WriteString(formatFloats(value))
	}
	if uncertainty != nil {
		sb.WriteString("±")
		sb.WriteString(formatFloats(uncertainty))
	}
	if units != "" {
		sb.WriteString(" [")
		sb.WriteString(units)
		sb.WriteByte(']')
	}
	return sb.String()
}

func formatFloats(v []float64) string {
	if len(v) == 1 {
		return strconv.FormatFloat(v[0], 'g', -1, 64)
	}
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func cloneFloats(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// installSpec sets a spec's value and uncertainty with the fixed override,
// which cannot fail. An uncertainty that does not pair with the value is left
// out; buildParameterSpecs rejects such specs before construction.
func installSpec(spec ParameterSpec, setValue, setUncertainty func([]float64, bool) error) {
	_ = setValue(spec.Value, true)
	if spec.Uncertainty != nil && len(spec.Uncertainty) == len(spec.Value) {
		_ = setUncertainty(spec.Uncertainty, true)
	}
}

func clampFloat64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func euclideanModulus(x, y float64) float64 {
	return math.Mod(math.Mod(x, y)+y, y)
}

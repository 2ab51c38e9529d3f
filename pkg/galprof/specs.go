package galprof

import (
	"fmt"
	"maps"
	"slices"
)

// ParameterSpec is the default description of one model parameter.
type ParameterSpec struct {
	Value       []float64
	Uncertainty []float64
	Fixed       bool
	Limits      *Bounds
	Cyclic      bool
	Units       string
	// Array parameters become a ParameterArray over the radial grid.
	Array bool
}

// SpecPatch is a partial spec merged field by field onto a default.
// Nil fields keep the default.
type SpecPatch struct {
	Value       []float64
	Uncertainty []float64
	Fixed       *bool
	Limits      *Bounds
	Cyclic      *bool
	Units       *string
}

// UserSpec overrides one parameter. Exactly one of Prebuilt or Patch is set:
// Prebuilt replaces the parameter wholesale, Patch is merged onto the default.
type UserSpec struct {
	Prebuilt Quantity
	Patch    *SpecPatch
}

// Quality carries fitting metadata about a parameter: which loss entry
// drives it and how it is regularized.
type Quality struct {
	Form            string
	Loss            string
	Regularize      string
	RegularizeScale float64
}

type namedSpec struct {
	name string
	spec ParameterSpec
}

// specProvider is one link of a model's spec chain. Chains are declared per
// model type, least specific first.
type specProvider interface {
	parameterSpecs() []namedSpec
	parameterQualities() map[string]Quality
}

type resolvedSpec struct {
	name     string
	spec     ParameterSpec
	prebuilt Quantity
}

// buildParameterSpecs merges the chain (later providers win on conflicts,
// first-seen order is kept) and applies user overrides.
func buildParameterSpecs(chain []specProvider, user map[string]UserSpec) ([]resolvedSpec, error) {
	var merged []resolvedSpec
	index := make(map[string]int)
	for _, provider := range chain {
		for _, ns := range provider.parameterSpecs() {
			if i, ok := index[ns.name]; ok {
				merged[i].spec = ns.spec
				continue
			}
			index[ns.name] = len(merged)
			merged = append(merged, resolvedSpec{name: ns.name, spec: ns.spec})
		}
	}

	for _, name := range slices.Sorted(maps.Keys(user)) {
		us := user[name]
		i, known := index[name]
		switch {
		case us.Prebuilt != nil && us.Patch == nil:
			if !known {
				index[name] = len(merged)
				merged = append(merged, resolvedSpec{name: name, prebuilt: us.Prebuilt})
				continue
			}
			if merged[i].spec.Array {
				if _, ok := us.Prebuilt.(*ParameterArray); !ok {
					return nil, fmt.Errorf("%s must be a parameter array: %w", name, ErrUnrecognizedParameterSpec)
				}
			}
			merged[i].prebuilt = us.Prebuilt
		case us.Patch != nil && us.Prebuilt == nil:
			if !known {
				return nil, fmt.Errorf("patch for unknown parameter %s: %w", name, ErrUnrecognizedParameterSpec)
			}
			spec := us.Patch.apply(merged[i].spec)
			if err := spec.validate(); err != nil {
				return nil, fmt.Errorf("patch for %s: %w", name, err)
			}
			merged[i].spec = spec
		default:
			return nil, fmt.Errorf("override for %s must set exactly one of prebuilt or patch: %w", name, ErrUnrecognizedParameterSpec)
		}
	}
	return merged, nil
}

// buildParameterQualities merges qualities along the chain; later providers win.
func buildParameterQualities(chain []specProvider) map[string]Quality {
	out := make(map[string]Quality)
	for _, provider := range chain {
		maps.Copy(out, provider.parameterQualities())
	}
	return out
}

// validate rejects an uncertainty that does not pair one-to-one with the
// value.
func (s ParameterSpec) validate() error {
	if s.Uncertainty != nil && len(s.Uncertainty) != len(s.Value) {
		return fmt.Errorf("%d uncertainties for %d values: %w", len(s.Uncertainty), len(s.Value), ErrUnrecognizedParameterSpec)
	}
	if s.Limits != nil && s.Limits.Hi < s.Limits.Lo {
		return fmt.Errorf("limits [%g, %g] are inverted: %w", s.Limits.Lo, s.Limits.Hi, ErrUnrecognizedParameterSpec)
	}
	return nil
}

func (p *SpecPatch) apply(s ParameterSpec) ParameterSpec {
	if p.Value != nil {
		s.Value = cloneFloats(p.Value)
	}
	if p.Uncertainty != nil {
		s.Uncertainty = cloneFloats(p.Uncertainty)
	}
	if p.Fixed != nil {
		s.Fixed = *p.Fixed
	}
	if p.Limits != nil {
		b := *p.Limits
		s.Limits = &b
	}
	if p.Cyclic != nil {
		s.Cyclic = *p.Cyclic
	}
	if p.Units != nil {
		s.Units = *p.Units
	}
	return s
}

func buildParameters(resolved []resolvedSpec) *ParameterSet {
	set := newParameterSet()
	for _, r := range resolved {
		switch {
		case r.prebuilt != nil:
			set.add(r.name, r.prebuilt)
		case r.spec.Array:
			set.add(r.name, NewParameterArray(r.name, r.spec))
		default:
			set.add(r.name, NewParameter(r.name, r.spec))
		}
	}
	return set
}

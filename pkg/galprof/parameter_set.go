package galprof

import (
	"fmt"
	"iter"
)

// ParameterSet holds a model's parameters in declaration order.
type ParameterSet struct {
	order  []string
	byName map[string]Quantity
}

func newParameterSet() *ParameterSet {
	return &ParameterSet{byName: make(map[string]Quantity)}
}

func (s *ParameterSet) add(name string, q Quantity) {
	if _, ok := s.byName[name]; !ok {
		s.order = append(s.order, name)
	}
	s.byName[name] = q
}

// Len is the number of top-level parameters.
func (s *ParameterSet) Len() int { return len(s.order) }

// Names returns the parameter names in declaration order.
func (s *ParameterSet) Names() []string {
	return append([]string(nil), s.order...)
}

// All iterates over the parameters in declaration order.
func (s *ParameterSet) All() iter.Seq2[string, Quantity] {
	return func(yield func(string, Quantity) bool) {
		for _, name := range s.order {
			if !yield(name, s.byName[name]) {
				return
			}
		}
	}
}

// Get resolves key against direct names first, then against the sub-keys of
// every parameter array.
func (s *ParameterSet) Get(key string) (Quantity, error) {
	if q, ok := s.byName[key]; ok {
		return q, nil
	}
	for _, name := range s.order {
		arr, ok := s.byName[name].(*ParameterArray)
		if !ok {
			continue
		}
		if p, err := arr.Get(key); err == nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", key, ErrKeyNotFound)
}

// Parameter returns the named scalar/vector parameter.
func (s *ParameterSet) Parameter(name string) (*Parameter, error) {
	q, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	p, ok := q.(*Parameter)
	if !ok {
		return nil, fmt.Errorf("%s is not a plain parameter: %w", name, ErrKeyNotFound)
	}
	return p, nil
}

// Array returns the named parameter array.
func (s *ParameterSet) Array(name string) (*ParameterArray, error) {
	q, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrKeyNotFound)
	}
	a, ok := q.(*ParameterArray)
	if !ok {
		return nil, fmt.Errorf("%s is not a parameter array: %w", name, ErrKeyNotFound)
	}
	return a, nil
}

// Snapshot copies every parameter value, keyed by name. Unset values are nil.
func (s *ParameterSet) Snapshot() map[string][]float64 {
	out := make(map[string][]float64, len(s.order))
	for _, name := range s.order {
		out[name] = s.byName[name].Value()
	}
	return out
}

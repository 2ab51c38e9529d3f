package checkpoint

import (
	"fmt"

	"galprof/pkg/galprof"
)

// Capture records the current parameter values and uncertainties of m.
// Unset parameters are left out.
func Capture(m *galprof.Model, runID string) Record {
	rec := Record{
		SchemaVersion: CurrentSchemaVersion,
		RunID:         runID,
		Model:         m.Name(),
		Type:          m.Type(),
		Iteration:     m.Iteration(),
		Parameters:    make(map[string][]float64),
	}
	for name, q := range m.Parameters().All() {
		v := q.Value()
		if v == nil {
			continue
		}
		rec.Parameters[name] = v
		if u := q.Uncertainty(); u != nil {
			if rec.Uncertainties == nil {
				rec.Uncertainties = make(map[string][]float64)
			}
			rec.Uncertainties[name] = u
		}
	}
	return rec
}

// Restore installs the values of rec on m, overriding fixed flags. The record
// must belong to a model of the same name and type.
func Restore(m *galprof.Model, rec Record) error {
	if rec.Model != m.Name() || rec.Type != m.Type() {
		return fmt.Errorf("checkpoint for %s (%s) does not match model %s (%s)", rec.Model, rec.Type, m.Name(), m.Type())
	}
	for name, v := range rec.Parameters {
		q, err := m.Get(name)
		if err != nil {
			return fmt.Errorf("restoring %s: %w", m.Name(), err)
		}
		if err := q.SetValue(v, true); err != nil {
			return fmt.Errorf("restoring %s of %s: %w", name, m.Name(), err)
		}
		if u, ok := rec.Uncertainties[name]; ok {
			if err := q.SetUncertainty(u, true); err != nil {
				return fmt.Errorf("restoring %s of %s: %w", name, m.Name(), err)
			}
		}
	}
	return nil
}

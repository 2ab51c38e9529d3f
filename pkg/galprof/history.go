package galprof

import (
	"iter"
	"maps"
)

// HistoryEntry is one completed iteration: the parameter values and the loss
// that was computed for them.
type HistoryEntry struct {
	Parameters map[string][]float64
	Loss       map[string][]float64
}

// History is an append-only log of HistoryEntry, oldest first.
type History struct {
	entries []HistoryEntry
}

// Add appends deep copies of params and loss.
func (h *History) Add(params, loss map[string][]float64) {
	h.entries = append(h.entries, HistoryEntry{
		Parameters: deepCopySnapshot(params),
		Loss:       deepCopySnapshot(loss),
	})
}

func (h *History) Len() int { return len(h.entries) }

// At returns a copy of the i-th entry (0 is the oldest).
func (h *History) At(i int) (HistoryEntry, bool) {
	if i < 0 || i >= len(h.entries) {
		return HistoryEntry{}, false
	}
	return h.entries[i].clone(), true
}

// Latest returns a copy of the newest entry.
func (h *History) Latest() (HistoryEntry, bool) {
	return h.At(len(h.entries) - 1)
}

// All iterates oldest to newest.
func (h *History) All() iter.Seq2[int, HistoryEntry] {
	return func(yield func(int, HistoryEntry) bool) {
		for i, e := range h.entries {
			if !yield(i, e.clone()) {
				return
			}
		}
	}
}

// Backward iterates newest to oldest.
func (h *History) Backward() iter.Seq2[int, HistoryEntry] {
	return func(yield func(int, HistoryEntry) bool) {
		for i := len(h.entries) - 1; i >= 0; i-- {
			if !yield(i, h.entries[i].clone()) {
				return
			}
		}
	}
}

func (e HistoryEntry) clone() HistoryEntry {
	return HistoryEntry{Parameters: deepCopySnapshot(e.Parameters), Loss: deepCopySnapshot(e.Loss)}
}

func deepCopySnapshot(src map[string][]float64) map[string][]float64 {
	if src == nil {
		return nil
	}
	out := maps.Clone(src)
	for k, v := range out {
		out[k] = cloneFloats(v)
	}
	return out
}

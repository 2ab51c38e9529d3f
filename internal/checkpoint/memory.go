package checkpoint

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps encoded records in a map. Records go through the codec so
// callers never share slices with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records == nil {
		s.records = make(map[string][]byte)
	}
	return nil
}

func (s *MemoryStore) SaveRecord(_ context.Context, rec Record) error {
	payload, err := EncodeRecord(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records == nil {
		return errors.New("store is not initialized")
	}
	s.records[rec.Model] = payload
	return nil
}

func (s *MemoryStore) GetRecord(_ context.Context, model string) (Record, bool, error) {
	s.mu.RLock()
	payload, ok := s.records[model]
	s.mu.RUnlock()

	if !ok {
		return Record{}, false, nil
	}
	rec, err := DecodeRecord(payload)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *MemoryStore) ListRecords(_ context.Context, runID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, payload := range s.records {
		rec, err := DecodeRecord(payload)
		if err != nil {
			return nil, err
		}
		if runID == "" || rec.RunID == runID {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b Record) int { return strings.Compare(a.Model, b.Model) })
	return out, nil
}

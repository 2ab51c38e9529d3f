package checkpoint

import "context"

// Record is the saved parameter state of one model at the end of an iteration.
type Record struct {
	SchemaVersion int                  `json:"schema_version"`
	RunID         string               `json:"run_id"`
	Model         string               `json:"model"`
	Type          string               `json:"type"`
	Iteration     int                  `json:"iteration"`
	Parameters    map[string][]float64 `json:"parameters"`
	Uncertainties map[string][]float64 `json:"uncertainties,omitempty"`
}

// Store keeps the latest record per model name.
type Store interface {
	Init(ctx context.Context) error
	SaveRecord(ctx context.Context, rec Record) error
	GetRecord(ctx context.Context, model string) (Record, bool, error)
	ListRecords(ctx context.Context, runID string) ([]Record, error)
}

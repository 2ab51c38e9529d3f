package checkpoint

import (
	"encoding/json"
	"errors"
)

const CurrentSchemaVersion = 1

var ErrVersionMismatch = errors.New("checkpoint version mismatch")

func EncodeRecord(rec Record) ([]byte, error) {
	return json.Marshal(rec)
}

func DecodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	if rec.SchemaVersion != CurrentSchemaVersion {
		return Record{}, ErrVersionMismatch
	}
	return rec, nil
}

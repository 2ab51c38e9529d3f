package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(model, runID string) Record {
	return Record{
		SchemaVersion: CurrentSchemaVersion,
		RunID:         runID,
		Model:         model,
		Type:          "nonparametric galaxy model",
		Iteration:     7,
		Parameters: map[string][]float64{
			"center": {10, 12},
			"I(R)":   {40, 20, 10},
		},
		Uncertainties: map[string][]float64{"I(R)": {1, 1, 1}},
	}
}

// exerciseStore runs the behaviour every backend shares.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))

	_, ok, err := store.GetRecord(ctx, "disk")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveRecord(ctx, sampleRecord("disk", "run-1")))
	require.NoError(t, store.SaveRecord(ctx, sampleRecord("bulge", "run-1")))
	require.NoError(t, store.SaveRecord(ctx, sampleRecord("halo", "run-2")))

	got, ok, err := store.GetRecord(ctx, "disk")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleRecord("disk", "run-1"), got)

	got.Parameters["center"][0] = 99
	again, _, err := store.GetRecord(ctx, "disk")
	require.NoError(t, err)
	assert.Equal(t, 10.0, again.Parameters["center"][0], "records are copies")

	updated := sampleRecord("disk", "run-2")
	updated.Iteration = 8
	require.NoError(t, store.SaveRecord(ctx, updated))
	got, _, err = store.GetRecord(ctx, "disk")
	require.NoError(t, err)
	assert.Equal(t, 8, got.Iteration, "latest record wins")

	run2, err := store.ListRecords(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, run2, 2)
	assert.Equal(t, "disk", run2[0].Model)
	assert.Equal(t, "halo", run2[1].Model)

	all, err := store.ListRecords(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	err := NewMemoryStore().SaveRecord(context.Background(), sampleRecord("disk", "r"))
	require.Error(t, err)
}

func TestNewStore(t *testing.T) {
	store, err := NewStore("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
	assert.NoError(t, CloseIfSupported(store))

	_, err = NewStore("redis", "")
	require.ErrorContains(t, err, "unsupported checkpoint backend")
}

func TestDecodeRecordVersion(t *testing.T) {
	rec := sampleRecord("disk", "r")
	rec.SchemaVersion = CurrentSchemaVersion + 1
	payload, err := EncodeRecord(rec)
	require.NoError(t, err)
	_, err = DecodeRecord(payload)
	require.ErrorIs(t, err, ErrVersionMismatch)

	_, err = DecodeRecord([]byte("{"))
	require.Error(t, err)
}

package lsm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nyasuto/mozlsm/internal/record"
)

func buildDiskFile(t *testing.T, cfg Config, recs []record.Record) *DiskFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "0.0.0")
	return newDiskFile(path, record.EncodeAll(recs), cfg, newMetrics(), newBlockPool(cfg.BlockSize))
}

func TestDiskFileGetFindsEveryRecord(t *testing.T) {
	cfg := testConfig()
	var recs []record.Record
	for i := int32(0); i < 20; i++ {
		recs = append(recs, record.Record{Key: i, Value: i * 10})
	}
	df := buildDiskFile(t, cfg, recs)

	for _, r := range recs {
		got, ok := df.get(r.Key)
		require.True(t, ok, "key %d", r.Key)
		require.Equal(t, r.Value, got.Value)
	}
}

func TestDiskFileGetRejectsAbsentKeys(t *testing.T) {
	cfg := testConfig()
	recs := []record.Record{{Key: 10, Value: 1}, {Key: 20, Value: 2}, {Key: 30, Value: 3}}
	df := buildDiskFile(t, cfg, recs)

	_, ok := df.get(5)
	require.False(t, ok, "below range")
	_, ok = df.get(15)
	require.False(t, ok, "between keys")
	_, ok = df.get(999)
	require.False(t, ok, "above range")
}

func TestDiskFileGetAtLastFencePointerBoundary(t *testing.T) {
	// BlockSize=32, 4 records/block: build exactly one full block plus a
	// short final block (a single record), so the trailing "last key" fence
	// entry duplicates the short block's own first-key entry. Confirm
	// lookups into that short last block still resolve correctly and that
	// the decrement-on-last-index step lands on the right block.
	cfg := testConfig()
	recs := []record.Record{
		{Key: 1, Value: 1}, {Key: 2, Value: 2}, {Key: 3, Value: 3}, {Key: 4, Value: 4},
		{Key: 5, Value: 5},
	}
	df := buildDiskFile(t, cfg, recs)
	require.Equal(t, []int32{1, 5, 5}, df.fencePointers)

	for _, r := range recs {
		got, ok := df.get(r.Key)
		require.True(t, ok, "key %d", r.Key)
		require.Equal(t, r.Value, got.Value)
	}
}

func TestDiskFileGetRejectsKeyPastLastFencePointer(t *testing.T) {
	cfg := testConfig()
	recs := []record.Record{{Key: 10, Value: 1}, {Key: 20, Value: 2}, {Key: 30, Value: 3}}
	df := buildDiskFile(t, cfg, recs)

	_, ok := df.get(31)
	require.False(t, ok, "key greater than the file's last key must short-circuit before reading a block")
}

func TestDiskFileReadAllRoundTrips(t *testing.T) {
	cfg := testConfig()
	recs := []record.Record{{Key: 1, Value: 1}, {Key: 2, Value: 2}}
	df := buildDiskFile(t, cfg, recs)
	require.Equal(t, recs, df.readAll())
}

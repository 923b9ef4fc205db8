package lsm

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nyasuto/mozlsm/internal/record"
)

func TestTreePutGetRoundTrip(t *testing.T) {
	tr := New(t.TempDir(), testConfig())
	tr.Put(1, 42)
	v, ok := tr.Get(1)
	require.True(t, ok)
	require.Equal(t, int32(42), v)

	_, ok = tr.Get(2)
	require.False(t, ok)
}

func TestTreeOverwriteAcrossFlush(t *testing.T) {
	cfg := testConfig()
	tr := New(t.TempDir(), cfg)
	cap := cfg.bufferRecordCapacity()

	tr.Put(1, 1)
	// Fill and flush the buffer several times over so key 1 lives on disk.
	for i := 0; i < cap*3; i++ {
		tr.Put(int32(100+i), int32(i))
	}
	tr.Put(1, 999)

	v, ok := tr.Get(1)
	require.True(t, ok)
	require.Equal(t, int32(999), v, "the newest write for a key must always win")
}

func TestTreeDedupOnMerge(t *testing.T) {
	cfg := testConfig()
	tr := New(t.TempDir(), cfg)
	cap := cfg.bufferRecordCapacity()

	// Two full buffer generations touching the same key force a merge that
	// must keep only the newer value.
	tr.Put(1, 1)
	for i := 0; i < cap-1; i++ {
		tr.Put(int32(1000+i), int32(i))
	}
	tr.Put(1, 2)
	for i := 0; i < cap-1; i++ {
		tr.Put(int32(2000+i), int32(i))
	}

	v, ok := tr.Get(1)
	require.True(t, ok)
	require.Equal(t, int32(2), v)
}

func TestTreeCascadingCompaction(t *testing.T) {
	cfg := testConfig()
	tr := New(t.TempDir(), cfg)
	cap := cfg.bufferRecordCapacity()

	total := cap * 40
	for i := 0; i < total; i++ {
		tr.Put(int32(i), int32(i*2))
	}

	tr.levelsMu.RLock()
	numLevels := len(tr.levels)
	tr.levelsMu.RUnlock()
	require.Greater(t, numLevels, 1, "enough writes must cascade past level 0")

	for i := 0; i < total; i += 7 {
		v, ok := tr.Get(int32(i))
		require.True(t, ok, "key %d", i)
		require.Equal(t, int32(i*2), v)
	}
}

func TestTreeBulkLoadCorrectness(t *testing.T) {
	cfg := testConfig()
	tr := New(t.TempDir(), cfg)

	var recs []record.Record
	for i := int32(0); i < 200; i++ {
		recs = append(recs, record.Record{Key: i, Value: i})
	}
	// A later duplicate in input order must win.
	recs = append(recs, record.Record{Key: 5, Value: 999})

	require.NoError(t, tr.BulkLoad(recs))

	v, ok := tr.Get(5)
	require.True(t, ok)
	require.Equal(t, int32(999), v)

	v, ok = tr.Get(199)
	require.True(t, ok)
	require.Equal(t, int32(199), v)

	_, ok = tr.Get(99999)
	require.False(t, ok)
}

func TestTreeShutdownRemovesFiles(t *testing.T) {
	cfg := testConfig()
	dir := t.TempDir()
	tr := New(dir, cfg)
	cap := cfg.bufferRecordCapacity()
	for i := 0; i < cap*3; i++ {
		tr.Put(int32(i), int32(i))
	}

	require.NoError(t, tr.Shutdown())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "every level file must be removed")

	tr.levelsMu.RLock()
	defer tr.levelsMu.RUnlock()
	require.Len(t, tr.levels, 0)
}

func TestTreeIOCountersIncrease(t *testing.T) {
	cfg := testConfig()
	tr := New(t.TempDir(), cfg)
	cap := cfg.bufferRecordCapacity()
	for i := 0; i < cap*2; i++ {
		tr.Put(int32(i), int32(i))
	}
	require.Greater(t, tr.PutIOCount(), float64(0))

	before := tr.GetIOCount()
	_, _ = tr.Get(0)
	require.Greater(t, tr.GetIOCount(), before)
}

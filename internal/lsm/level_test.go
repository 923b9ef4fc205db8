package lsm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nyasuto/mozlsm/internal/record"
)

func TestDiskLevelFlushPathBAppendsNewRun(t *testing.T) {
	cfg := testConfig()
	dir := t.TempDir()
	lvl := newEmptyDiskLevel(dir, 0, cfg, newMetrics(), newBlockPool(cfg.BlockSize))

	incoming := buildRun(t, cfg, dir, -1, 0, []record.Record{{Key: 1, Value: 1}})
	lvl.flush([]*run{incoming})

	require.Len(t, lvl.runs, 1)
	rec, ok := lvl.get(1)
	require.True(t, ok)
	require.Equal(t, int32(1), rec.Value)
}

func TestDiskLevelFlushPathAMergesIntoTailRun(t *testing.T) {
	cfg := testConfig()
	dir := t.TempDir()
	lvl := newEmptyDiskLevel(dir, 0, cfg, newMetrics(), newBlockPool(cfg.BlockSize))

	first := buildRun(t, cfg, dir, -1, 0, []record.Record{{Key: 1, Value: 1}})
	lvl.flush([]*run{first})
	require.Len(t, lvl.runs, 1)

	second := buildRun(t, cfg, dir, -1, 1, []record.Record{{Key: 1, Value: 2}, {Key: 2, Value: 2}})
	lvl.flush([]*run{second})

	// Still one run: the not-yet-full tail absorbed the second flush in place.
	require.Len(t, lvl.runs, 1)
	rec, ok := lvl.get(1)
	require.True(t, ok)
	require.Equal(t, int32(2), rec.Value, "newer flush must win on duplicate key")
	rec, ok = lvl.get(2)
	require.True(t, ok)
	require.Equal(t, int32(2), rec.Value)
}

func TestDiskLevelClearDeletesFiles(t *testing.T) {
	cfg := testConfig()
	dir := t.TempDir()
	lvl := newEmptyDiskLevel(dir, 0, cfg, newMetrics(), newBlockPool(cfg.BlockSize))
	incoming := buildRun(t, cfg, dir, -1, 0, []record.Record{{Key: 1, Value: 1}})
	lvl.flush([]*run{incoming})
	merged := filepath.Join(dir, record.Filename(0, 0, 0))
	require.FileExists(t, merged)

	lvl.clear()
	require.NoFileExists(t, merged)
	require.Len(t, lvl.runs, 0)
	require.Equal(t, int64(0), lvl.size.Load())

	_, ok := lvl.get(1)
	require.False(t, ok)
}

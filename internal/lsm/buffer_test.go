package lsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	// Small sizes so tests can exercise flush/compaction without huge
	// fixtures: 4 records per block, 2 blocks per file, 4 records per
	// buffer flush.
	cfg.BlockSize = 32
	cfg.FileSize = 64
	cfg.BufferCapacity = 32
	return cfg
}

func TestMemoryBufferPutGet(t *testing.T) {
	b := newMemoryBuffer(testConfig())
	b.put(1, 100)
	b.put(2, 200)

	v, ok := b.get(1)
	require.True(t, ok)
	require.Equal(t, int32(100), v)

	_, ok = b.get(3)
	require.False(t, ok)
}

func TestMemoryBufferOverwrite(t *testing.T) {
	b := newMemoryBuffer(testConfig())
	b.put(1, 100)
	b.put(1, 200)

	v, ok := b.get(1)
	require.True(t, ok)
	require.Equal(t, int32(200), v)
	require.Equal(t, 8, b.size())
}

func TestMemoryBufferCapacityIsConfiguredConstant(t *testing.T) {
	cfg := testConfig()
	b := newMemoryBuffer(cfg)
	require.Equal(t, cfg.BufferCapacity, b.capacity())
	b.put(1, 1)
	require.Equal(t, cfg.BufferCapacity, b.capacity(), "capacity must not track current size")
}

func TestMemoryBufferIsFull(t *testing.T) {
	cfg := testConfig()
	b := newMemoryBuffer(cfg)
	cap := cfg.bufferRecordCapacity()
	for i := 0; i < cap; i++ {
		require.False(t, b.isFull())
		b.put(int32(i), int32(i))
	}
	require.True(t, b.isFull())
}

func TestMemoryBufferMergeIsSortedAndComplete(t *testing.T) {
	b := newMemoryBuffer(testConfig())
	b.put(5, 50)
	b.put(1, 10)
	b.put(3, 30)

	merged := b.merge()
	require.Len(t, merged, 3)
	for i := 1; i < len(merged); i++ {
		require.Less(t, merged[i-1].Key, merged[i].Key)
	}
}

func TestMemoryBufferClear(t *testing.T) {
	b := newMemoryBuffer(testConfig())
	b.put(1, 1)
	b.clear()
	require.Equal(t, 0, b.size())
	require.False(t, b.isFull())
}

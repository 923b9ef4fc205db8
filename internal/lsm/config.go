package lsm

import "github.com/nyasuto/mozlsm/internal/record"

// Config bundles every sizing and policy knob the tree and its components
// need. It is threaded explicitly through every constructor; nothing in this
// package reads global or lazy-initialized configuration state.
type Config struct {
	// BlockSize is the alignment, in bytes, of fence-pointer offsets and the
	// unit of a single on-disk read.
	BlockSize int
	// FileSize is the maximum size, in bytes, of one DiskFile.
	FileSize int
	// BufferCapacity is the maximum size, in bytes, of the MemoryBuffer.
	BufferCapacity int
	// SizeRatio (T) is the per-level capacity growth factor.
	SizeRatio int
	// RunsPerLevel (K) is the number of runs a non-bottom level holds before
	// it is considered full.
	RunsPerLevel int
	// BFBitsPerEntry sizes each DiskFile's Bloom filter: bits = BFBitsPerEntry
	// * number of records in the file.
	BFBitsPerEntry int
	// FullThreshold is the fraction of a run's capacity at which it is
	// considered full. Fixed at 1.0: this implementation only supports the
	// "full" compaction strategy (see SPEC_FULL.md REDESIGN FLAGS).
	FullThreshold float64
}

// DefaultConfig mirrors original_source/src/configuration.rs's Default impl.
func DefaultConfig() Config {
	return Config{
		BlockSize:      4096,
		FileSize:       24576,
		BufferCapacity: 24576,
		SizeRatio:      4,
		RunsPerLevel:   1,
		BFBitsPerEntry: 10,
		FullThreshold:  1.0,
	}
}

// bufferRecordCapacity returns the number of records the MemoryBuffer can
// hold before it is full.
func (c Config) bufferRecordCapacity() int {
	return c.BufferCapacity / record.Size
}

// runCapacity returns the byte capacity of a single run at the given level
// (0-indexed disk level, level 0 being the shallowest disk level fed
// directly by buffer flushes): BUFFER_CAPACITY * T^(level+1) / K.
func (c Config) runCapacity(level int) int {
	cap := c.BufferCapacity
	for i := 0; i <= level; i++ {
		cap *= c.SizeRatio
	}
	return cap / c.RunsPerLevel
}

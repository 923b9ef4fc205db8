package lsm

import (
	"math"

	"github.com/bits-and-blooms/bloom/v3"
)

// newBloomFilter sizes and builds a Bloom filter for a DiskFile holding
// numRecords records, per SPEC_FULL.md §4.2: bits = bitsPerEntry *
// numRecords, with the number of hash functions chosen by the standard
// optimal-hash-count formula (matching original_source's use of the Rust
// bloom crate's sizing), clamped to a sane range. The bit array and hashing
// themselves are bits-and-blooms/bloom/v3's, not hand-rolled.
func newBloomFilter(numRecords, bitsPerEntry int) *bloom.BloomFilter {
	if numRecords <= 0 {
		numRecords = 1
	}
	bits := uint(numRecords * bitsPerEntry)
	if bits == 0 {
		bits = 1
	}
	k := int(math.Round(float64(bits) / float64(numRecords) * math.Ln2))
	if k < 1 {
		k = 1
	}
	if k > 20 {
		k = 20
	}
	return bloom.New(bits, uint(k))
}

func bloomKeyBytes(key int32) []byte {
	return []byte{
		byte(key >> 24),
		byte(key >> 16),
		byte(key >> 8),
		byte(key),
	}
}

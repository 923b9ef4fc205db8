package lsm

import (
	"os"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/nyasuto/mozlsm/internal/record"
)

// DiskFile is one sorted, immutable file on disk: its fence pointers (one
// key per BLOCK_SIZE-aligned offset, for block-precision binary search, plus
// a trailing entry for the file's last key) and its Bloom filter (for
// negative-lookup pruning) live in memory; the sorted records themselves
// live on disk.
type DiskFile struct {
	path          string
	size          int // bytes
	fencePointers []int32
	filter        *bloom.BloomFilter

	blockSize int
	blocks    *blockPool
	metrics   *metrics
}

// newDiskFile writes data (a sorted, contiguous sequence of encoded records)
// to path and builds the in-memory fence pointers and Bloom filter over it.
// Persistent I/O failure here is fatal, per SPEC_FULL.md §7.
func newDiskFile(path string, data []byte, cfg Config, m *metrics, blocks *blockPool) *DiskFile {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fatalf("diskfile: write %s: %v", path, err)
	}

	numRecords := len(data) / record.Size
	df := &DiskFile{
		path:      path,
		size:      len(data),
		filter:    newBloomFilter(numRecords, cfg.BFBitsPerEntry),
		blockSize: cfg.BlockSize,
		blocks:    blocks,
		metrics:   m,
	}
	for off := 0; off < len(data); off += cfg.BlockSize {
		df.fencePointers = append(df.fencePointers, record.KeyAt(data, off))
	}
	// Per SPEC_FULL.md §4.2, the last entry is always the file's last key,
	// appended even when it duplicates the final block-aligned entry (a
	// one-record last block). get's decrement-on-last-index step below
	// relies on this trailing entry always existing.
	if len(data) > 0 {
		df.fencePointers = append(df.fencePointers, record.KeyAt(data, len(data)-record.Size))
	}
	// The Bloom filter must reject on every key in the file, not just the
	// ones that happen to start a block.
	for off := 0; off < len(data); off += record.Size {
		df.filter.Add(bloomKeyBytes(record.KeyAt(data, off)))
	}
	return df
}

// firstKey returns the file's first record's key, used by Run to build its
// own fence pointers over its files.
func (df *DiskFile) firstKey() int32 {
	return df.fencePointers[0]
}

// get returns the record for key, if present in this file.
func (df *DiskFile) get(key int32) (record.Record, bool) {
	if !df.filter.Test(bloomKeyBytes(key)) {
		return record.Record{}, false
	}
	if len(df.fencePointers) == 0 || key > df.fencePointers[len(df.fencePointers)-1] {
		return record.Record{}, false
	}
	idx, ok := record.BinarySearchFencePointers(df.fencePointers, key)
	if !ok {
		return record.Record{}, false
	}
	// The last fence pointer anchors the file's last key rather than a
	// distinct block; the block that actually holds it was loaded by the
	// previous entry (SPEC_FULL.md §4.2, §9).
	if idx == len(df.fencePointers)-1 {
		idx--
	}

	offset := idx * df.blockSize
	readLen := df.blockSize
	if offset+readLen > df.size {
		readLen = df.size - offset
	}

	buf := df.blocks.get()
	defer df.blocks.put(buf)
	if readLen != len(buf) {
		buf = buf[:readLen]
	}

	f, err := os.Open(df.path)
	if err != nil {
		fatalf("diskfile: open %s: %v", df.path, err)
	}
	defer f.Close()
	if _, err := f.ReadAt(buf, int64(offset)); err != nil {
		fatalf("diskfile: read %s at %d: %v", df.path, offset, err)
	}
	df.metrics.incGet()

	numRecords := len(buf) / record.Size
	i := sort.Search(numRecords, func(i int) bool {
		return record.KeyAt(buf, i*record.Size) >= key
	})
	if i == numRecords || record.KeyAt(buf, i*record.Size) != key {
		return record.Record{}, false
	}
	r, err := record.Decode(buf[i*record.Size : i*record.Size+record.Size])
	if err != nil {
		fatalf("diskfile: decode %s: %v", df.path, err)
	}
	return r, true
}

// readAll loads and decodes every record in the file, in order.
func (df *DiskFile) readAll() []record.Record {
	data, err := os.ReadFile(df.path)
	if err != nil {
		fatalf("diskfile: read %s: %v", df.path, err)
	}
	recs, err := record.DecodeAll(data)
	if err != nil {
		fatalf("diskfile: corrupt file %s: %v", df.path, err)
	}
	return recs
}

func (df *DiskFile) remove() {
	if err := os.Remove(df.path); err != nil && !os.IsNotExist(err) {
		fatalf("diskfile: remove %s: %v", df.path, err)
	}
}

// numBlocks returns the number of BLOCK_SIZE-sized writes df's contents
// took, used to account PUT_IO_COUNTER.
func (df *DiskFile) numBlocks() int {
	return (df.size + df.blockSize - 1) / df.blockSize
}

package lsm

import (
	"sort"

	"github.com/nyasuto/mozlsm/internal/record"
)

// memoryBuffer is the level-0 write-absorption buffer: a plain hash map, no
// internal locking of its own. SPEC_FULL.md §5 has the Tree hold a single
// RWMutex across the buffer precisely so this type can stay simple, matching
// original_source/src/lib_in_memory/mod.rs (there too a bare struct wrapped
// in a RwLock one level up).
type memoryBuffer struct {
	cfg  Config
	data map[int32]int32
}

func newMemoryBuffer(cfg Config) *memoryBuffer {
	return &memoryBuffer{
		cfg:  cfg,
		data: make(map[int32]int32, cfg.bufferRecordCapacity()),
	}
}

func (b *memoryBuffer) put(key, value int32) {
	b.data[key] = value
}

func (b *memoryBuffer) get(key int32) (int32, bool) {
	v, ok := b.data[key]
	return v, ok
}

// size returns the buffer's current occupancy in bytes.
func (b *memoryBuffer) size() int {
	return len(b.data) * record.Size
}

// capacity returns BUFFER_CAPACITY itself (not the current size), matching
// original_source's MemoryBuffer::capacity, which returns the configured
// constant rather than any derived value.
func (b *memoryBuffer) capacity() int {
	return b.cfg.BufferCapacity
}

func (b *memoryBuffer) isFull() bool {
	return len(b.data) >= b.cfg.bufferRecordCapacity()
}

// merge returns every entry in the buffer as a key-sorted slice of records,
// ready to be written out as a DiskFile.
func (b *memoryBuffer) merge() []record.Record {
	out := make([]record.Record, 0, len(b.data))
	for k, v := range b.data {
		out = append(out, record.Record{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (b *memoryBuffer) clear() {
	b.data = make(map[int32]int32, b.cfg.bufferRecordCapacity())
}

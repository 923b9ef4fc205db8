package lsm

import (
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/nyasuto/mozlsm/internal/record"
)

// run is an ordered sequence of non-overlapping DiskFiles, together forming
// one sorted run. Files are shared by plain pointer: Go's garbage collector
// retires the in-memory DiskFile once nothing references it, so the only
// ownership concern that needs explicit handling is the on-disk file, which
// is removed exactly once through deleteFiles: by DiskLevel.flush for a
// replaced tail run, by the cascade once the run's data has been merged into
// the next level, or at Shutdown.
type run struct {
	level int
	idx   int
	dir   string

	capacity int // bytes
	size     atomic.Int64

	fileCounter atomic.Uint64
	files       []*DiskFile
	// fencePointers[i] is files[i]'s own first key, kept in lockstep with
	// files so run.get can binary-search straight to the one file that could
	// hold a key instead of probing every file in the run.
	fencePointers []int32

	cfg     Config
	metrics *metrics
	blocks  *blockPool
}

func newEmptyRun(dir string, level, idx, capacity int, cfg Config, m *metrics, blocks *blockPool) *run {
	return &run{
		level:    level,
		idx:      idx,
		dir:      dir,
		capacity: capacity,
		cfg:      cfg,
		metrics:  m,
		blocks:   blocks,
	}
}

// newRunFromBytes splits data into FILE_SIZE-sized DiskFiles and installs
// them as this run's contents, used when a level is being filled directly
// (DiskLevel.flushFromBuffer, BulkLoad) rather than through a k-way merge.
// capacity is the run's byte capacity, used by isFull.
func newRunFromBytes(dir string, level, idx, capacity int, data []byte, cfg Config, m *metrics, blocks *blockPool) *run {
	return newRunFromBytesNamed(dir, level, idx, capacity, data, cfg, m, blocks, func(fileIdx int) string {
		return record.Filename(level, idx, fileIdx)
	})
}

// newRunFromBytesNamed is newRunFromBytes with the on-disk filename left to
// nameFn.
func newRunFromBytesNamed(dir string, level, idx, capacity int, data []byte, cfg Config, m *metrics, blocks *blockPool, nameFn func(fileIdx int) string) *run {
	r := newEmptyRun(dir, level, idx, capacity, cfg, m, blocks)
	var files []*DiskFile
	for off := 0; off < len(data); off += cfg.FileSize {
		end := off + cfg.FileSize
		if end > len(data) {
			end = len(data)
		}
		fileIdx := int(r.fileCounter.Add(1) - 1)
		path := filepath.Join(dir, nameFn(fileIdx))
		files = append(files, newDiskFile(path, data[off:end], cfg, m, blocks))
	}
	r.setFiles(files)
	return r
}

// newRunFromFiles installs an already-built, already-sorted, non-overlapping
// slice of DiskFiles (typically a slice of a k-way merge's output) as a run
// in its own right, computing its fence pointers from each file's own first
// key. Used to seal one or more runs out of a single merge's output per
// SPEC_FULL.md §4.5 (the size_per_run boundary split in Path A, the
// multi-run sealing in Path B).
func newRunFromFiles(dir string, level, idx, capacity int, files []*DiskFile, cfg Config, m *metrics, blocks *blockPool) *run {
	r := newEmptyRun(dir, level, idx, capacity, cfg, m, blocks)
	r.setFiles(append([]*DiskFile(nil), files...))
	return r
}

// setFiles installs files as r's entire contents, deriving fencePointers and
// size from them. Only used at construction time; insertFile is what keeps
// the two slices in lockstep afterward.
func (r *run) setFiles(files []*DiskFile) {
	r.files = files
	r.fencePointers = make([]int32, len(files))
	var total int64
	for i, f := range files {
		r.fencePointers[i] = f.firstKey()
		total += int64(f.size)
	}
	r.size.Store(total)
}

func (r *run) isFull() bool {
	return float64(r.size.Load()) >= float64(r.capacity)*r.cfg.FullThreshold
}

// get selects the single file that could hold key via a binary search over
// the run's fence pointers (SPEC_FULL.md §4.3) rather than probing every
// file in the run; files are non-overlapping so at most one can match.
func (r *run) get(key int32) (record.Record, bool) {
	idx, ok := record.BinarySearchFencePointers(r.fencePointers, key)
	if !ok {
		return record.Record{}, false
	}
	return r.files[idx].get(key)
}

// insertFiles merges new, already mutually-sorted, non-overlapping files
// into the run, each inserted at the position its first key's binary search
// over the current fence pointers indicates (SPEC_FULL.md §4.3), keeping
// files and fencePointers in lockstep.
func (r *run) insertFiles(files []*DiskFile) {
	for _, f := range files {
		r.insertFile(f)
	}
}

func (r *run) insertFile(f *DiskFile) {
	key := f.firstKey()
	pos := sort.Search(len(r.fencePointers), func(i int) bool { return r.fencePointers[i] >= key })

	r.files = append(r.files, nil)
	copy(r.files[pos+1:], r.files[pos:])
	r.files[pos] = f

	r.fencePointers = append(r.fencePointers, 0)
	copy(r.fencePointers[pos+1:], r.fencePointers[pos:])
	r.fencePointers[pos] = key

	r.size.Add(int64(f.size))
}

// nextFileIdx reserves and returns the next file index to mint within this
// run, used by the merger to name each file it builds for its destination
// run (the scratch run of either path of DiskLevel.flush).
func (r *run) nextFileIdx() int {
	return int(r.fileCounter.Add(1) - 1)
}

// deleteFiles removes every file this run owns from disk. Callers must only
// invoke this after any replacement run/level referencing fresher data has
// already been installed.
func (r *run) deleteFiles() {
	for _, f := range r.files {
		f.remove()
	}
}

func (r *run) allRecords() []record.Record {
	var out []record.Record
	for _, f := range r.files {
		out = append(out, f.readAll()...)
	}
	return out
}

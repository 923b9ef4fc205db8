package lsm

import (
	"sync"
	"sync/atomic"

	"github.com/nyasuto/mozlsm/internal/record"
)

// diskLevel is a bounded collection of runs at a given depth. Its own run
// list is guarded by mu (a shape lock: adding/replacing runs), while size
// and capacity are lock-free atomics read far more often than they change.
type diskLevel struct {
	level int
	dir   string

	mu   sync.RWMutex
	runs []*run

	size     atomic.Int64
	capacity atomic.Int64

	runCounter atomic.Uint64

	cfg     Config
	metrics *metrics
	blocks  *blockPool
}

func newEmptyDiskLevel(dir string, level int, cfg Config, m *metrics, blocks *blockPool) *diskLevel {
	lvl := &diskLevel{level: level, dir: dir, cfg: cfg, metrics: m, blocks: blocks}
	lvl.capacity.Store(int64(cfg.RunsPerLevel) * int64(cfg.runCapacity(level)))
	return lvl
}

// isFull follows SPEC_FULL.md §3's fullness rule exactly: a level is full
// either because its run count has reached RunsPerLevel and the newest run
// is itself full, or because its run count has overshot RunsPerLevel
// outright. The second disjunct matters here: flushFromBuffer always
// appends a new run rather than merging into an existing one, so with
// RunsPerLevel == 1 a level can otherwise pick up a second run whose own
// size hasn't yet reached capacity; without this check that run would never
// be recognized as cause to cascade.
func (lvl *diskLevel) isFull() bool {
	lvl.mu.RLock()
	defer lvl.mu.RUnlock()
	n := len(lvl.runs)
	if n > lvl.cfg.RunsPerLevel {
		return true
	}
	return n == lvl.cfg.RunsPerLevel && lvl.tailIsFullLocked()
}

func (lvl *diskLevel) tailIsFullLocked() bool {
	if len(lvl.runs) == 0 {
		return false
	}
	return lvl.runs[len(lvl.runs)-1].isFull()
}

func (lvl *diskLevel) get(key int32) (record.Record, bool) {
	lvl.mu.RLock()
	defer lvl.mu.RUnlock()
	// Newest run last: scan back to front so a more recent write shadows an
	// older one living in an earlier run of the same level.
	for i := len(lvl.runs) - 1; i >= 0; i-- {
		if rec, ok := lvl.runs[i].get(key); ok {
			return rec, true
		}
	}
	return record.Record{}, false
}

// flushFromBuffer installs data (a freshly-flushed, sorted buffer's worth of
// records) directly as one or more new runs appended to the level, per
// SPEC_FULL.md §4.5's flush_from_buffer: no merge is performed; the fresh
// data becomes the level's newest run(s), which get's back-to-front scan
// lets shadow any older run already in the level. Used only to populate level 0 from Tree's buffer flush. data is sliced
// into chunks of max(runCapacity, FILE_SIZE) bytes, one run per chunk, so a
// single oversized flush can still seal more than one run in a level whose
// run capacity is smaller than a buffer's worth of data.
func (lvl *diskLevel) flushFromBuffer(data []byte, runCapacity int) {
	lvl.mu.Lock()
	defer lvl.mu.Unlock()

	chunkSize := runCapacity
	if lvl.cfg.FileSize > chunkSize {
		chunkSize = lvl.cfg.FileSize
	}

	var added int64
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		idx := int(lvl.runCounter.Add(1) - 1)
		r := newRunFromBytes(lvl.dir, lvl.level, idx, runCapacity, data[off:end], lvl.cfg, lvl.metrics, lvl.blocks)
		lvl.runs = append(lvl.runs, r)
		added += r.size.Load()
	}
	lvl.size.Add(added)
}

// flush merges incoming (runs pushed down from the level above during
// cascading compaction) into this level, following SPEC_FULL.md §4.5's
// two-path policy, each path sealing the merge output into one or more runs
// bounded by sizePerRun so that a level with RunsPerLevel > 1 actually
// accumulates multiple runs instead of collapsing everything into one:
//
//	Path A: the tail run exists, is not yet full, and sizePerRun leaves it
//	        room to grow -> merge [tail]+incoming, keep the leading slice of
//	        the output up to sizePerRun bytes as the new tail (replacing the
//	        old one; the old one's files are deleted only after the new one
//	        is installed), and seal any remainder as one additional run.
//	Path B: otherwise -> merge incoming alone and seal its output into runs
//	        of up to sizePerRun bytes each, appended to the level.
func (lvl *diskLevel) flush(incoming []*run) {
	lvl.mu.Lock()
	defer lvl.mu.Unlock()

	runCap := lvl.cfg.runCapacity(lvl.level)
	sizePerRun := runCap
	if lvl.cfg.FileSize > sizePerRun {
		sizePerRun = lvl.cfg.FileSize
	}

	var toDelete *run
	var sealed []*run

	tailFull := len(lvl.runs) == 0 || lvl.runs[len(lvl.runs)-1].isFull()
	var tailHasRoom bool
	if !tailFull {
		tailHasRoom = int64(sizePerRun) > sumRunSize(lvl.runs[len(lvl.runs)-1])
	}

	if !tailFull && tailHasRoom {
		toDelete = lvl.runs[len(lvl.runs)-1]
		idx := int(lvl.runCounter.Add(1) - 1)
		scratch := newEmptyRun(lvl.dir, lvl.level, idx, runCap, lvl.cfg, lvl.metrics, lvl.blocks)
		inputs := append([]*run{toDelete}, incoming...)
		mergeRuns(inputs, scratch, lvl.cfg, lvl.metrics, lvl.blocks)

		boundary := lastFileIndexWithin(scratch.files, sizePerRun)
		tail := newRunFromFiles(lvl.dir, lvl.level, idx, runCap, scratch.files[:boundary+1], lvl.cfg, lvl.metrics, lvl.blocks)
		lvl.runs[len(lvl.runs)-1] = tail
		sealed = append(sealed, tail)

		if boundary+1 < len(scratch.files) {
			restIdx := int(lvl.runCounter.Add(1) - 1)
			rest := newRunFromFiles(lvl.dir, lvl.level, restIdx, runCap, scratch.files[boundary+1:], lvl.cfg, lvl.metrics, lvl.blocks)
			lvl.runs = append(lvl.runs, rest)
			sealed = append(sealed, rest)
		}
	} else {
		idx := int(lvl.runCounter.Add(1) - 1)
		scratch := newEmptyRun(lvl.dir, lvl.level, idx, runCap, lvl.cfg, lvl.metrics, lvl.blocks)
		mergeRuns(incoming, scratch, lvl.cfg, lvl.metrics, lvl.blocks)

		start := 0
		var cum int64
		firstSeal := true
		for i, f := range scratch.files {
			cum += int64(f.size)
			last := i == len(scratch.files)-1
			if cum >= int64(sizePerRun) || last {
				runIdx := idx
				if !firstSeal {
					runIdx = int(lvl.runCounter.Add(1) - 1)
				}
				firstSeal = false
				r := newRunFromFiles(lvl.dir, lvl.level, runIdx, runCap, scratch.files[start:i+1], lvl.cfg, lvl.metrics, lvl.blocks)
				lvl.runs = append(lvl.runs, r)
				sealed = append(sealed, r)
				start = i + 1
				cum = 0
			}
		}
	}

	var added int64
	for _, r := range sealed {
		added += r.size.Load()
	}
	lvl.size.Add(added)
	if toDelete != nil {
		lvl.size.Add(-sumRunSize(toDelete))
		toDelete.deleteFiles()
	}
}

// lastFileIndexWithin returns the smallest index i such that the cumulative
// size of files[0..=i] reaches sizePerRun, or the last index if the whole
// slice totals less than that (SPEC_FULL.md §4.5 Path A).
func lastFileIndexWithin(files []*DiskFile, sizePerRun int) int {
	var cum int64
	for i, f := range files {
		cum += int64(f.size)
		if cum >= int64(sizePerRun) {
			return i
		}
	}
	return len(files) - 1
}

func sumRunSize(r *run) int64 {
	var total int64
	for _, f := range r.files {
		total += int64(f.size)
	}
	return total
}

// installBulkLoadRun directly installs a single pre-built run at the front of
// the level's run list, used by BulkLoad which fills a level's runs itself
// rather than through the merge-based flush path. BulkLoad walks its input
// newest first, so each call installs data older than every run already in
// this level; prepending it (together with diskLevel.get's back-to-front
// scan) keeps the newer data winning on key collision within the level.
func (lvl *diskLevel) installBulkLoadRun(r *run) {
	lvl.mu.Lock()
	defer lvl.mu.Unlock()
	lvl.runs = append([]*run{r}, lvl.runs...)
	lvl.size.Add(r.size.Load())
}

// allRuns returns a snapshot of the level's runs, oldest first, for the
// cascading compactor to read when pushing this level's contents upward.
func (lvl *diskLevel) allRuns() []*run {
	lvl.mu.RLock()
	defer lvl.mu.RUnlock()
	out := make([]*run, len(lvl.runs))
	copy(out, lvl.runs)
	return out
}

// clear empties the level and deletes every file it owned. Called once the
// level's contents have been merged upward during cascading compaction.
func (lvl *diskLevel) clear() {
	lvl.mu.Lock()
	defer lvl.mu.Unlock()
	for _, r := range lvl.runs {
		r.deleteFiles()
	}
	lvl.runs = nil
	lvl.size.Store(0)
}

func (lvl *diskLevel) deleteAllFiles() {
	lvl.mu.Lock()
	defer lvl.mu.Unlock()
	for _, r := range lvl.runs {
		r.deleteFiles()
	}
}

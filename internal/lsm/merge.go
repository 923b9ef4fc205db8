package lsm

import (
	"container/heap"
	"path/filepath"

	"github.com/nyasuto/mozlsm/internal/record"
)

// mergeSource is one input stream to the k-way merge: the ordered files of a
// single run, read and consumed file by file.
type mergeSource struct {
	runIdx int // position of this source among the sources being merged; higher means newer
	files  []*DiskFile
	fileAt int // index of the file currently loaded into recs
	recs   []record.Record
	recAt  int // index of the next unconsumed record in recs
}

func (s *mergeSource) current() (record.Record, bool) {
	if s.recAt < len(s.recs) {
		return s.recs[s.recAt], true
	}
	return record.Record{}, false
}

// advance moves the source to its next record, loading the next file (and
// counting the block-sized reads that takes against PUT_IO_COUNTER) if the
// current file has been fully consumed.
func (s *mergeSource) advance(m *metrics) {
	s.recAt++
	if s.recAt < len(s.recs) {
		return
	}
	s.fileAt++
	if s.fileAt >= len(s.files) {
		return
	}
	f := s.files[s.fileAt]
	s.recs = f.readAll()
	s.recAt = 0
	m.addPut(f.numBlocks())
}

// mergeHeap is a container/heap.Interface over the current front record of
// each active mergeSource, ordered ascending by key, ties broken in favor of
// the source with the larger runIdx ("newest wins" under the convention that
// higher run index means fresher data). This is a direct, idiom-preserving
// transliteration of original_source/src/lib_merge.rs's BinaryHeap<HeapNode>
// (there a max-heap with a flipped Ord; container/heap is a min-heap
// already, so no flip is needed here).
type mergeHeap []*mergeSource

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	ri, _ := h[i].current()
	rj, _ := h[j].current()
	if ri.Key != rj.Key {
		return ri.Key < rj.Key
	}
	return h[i].runIdx > h[j].runIdx
}
func (h mergeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)        { *h = append(*h, x.(*mergeSource)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// mergeRuns performs a k-way merge of runs (given oldest-first: runs[0] is
// the oldest, runs[len-1] the newest) and writes the result as new,
// FILE_SIZE-sized DiskFiles into dest, minting filenames via dest's own file
// counter. It returns the new files, already appended to dest.
func mergeRuns(runs []*run, dest *run, cfg Config, m *metrics, blocks *blockPool) []*DiskFile {
	h := make(mergeHeap, 0, len(runs))
	for i, r := range runs {
		if len(r.files) == 0 {
			continue
		}
		s := &mergeSource{runIdx: i, files: r.files, fileAt: -1}
		s.advance(m) // loads files[0], recAt lands on 0
		if _, ok := s.current(); ok {
			h = append(h, s)
		}
	}
	heap.Init(&h)

	var out []*DiskFile
	var buf []byte
	var lastKey int32
	haveLast := false

	flush := func() {
		if len(buf) == 0 {
			return
		}
		fileIdx := dest.nextFileIdx()
		path := filepath.Join(dest.dir, record.Filename(dest.level, dest.idx, fileIdx))
		df := newDiskFile(path, buf, cfg, m, blocks)
		m.addPut(df.numBlocks())
		out = append(out, df)
		buf = nil
	}

	for h.Len() > 0 {
		top := h[0]
		rec, _ := top.current()
		if !haveLast || rec.Key != lastKey {
			buf = record.Encode(buf, rec)
			lastKey = rec.Key
			haveLast = true
			if len(buf) >= cfg.FileSize {
				flush()
			}
		}
		top.advance(m)
		if _, ok := top.current(); ok {
			heap.Fix(&h, 0)
		} else {
			heap.Pop(&h)
		}
	}
	flush()
	dest.insertFiles(out)
	return out
}

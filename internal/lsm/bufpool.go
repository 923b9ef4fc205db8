package lsm

import "sync"

// blockPool hands out reusable BLOCK_SIZE-byte buffers for DiskFile's single-
// block reads, adapted from the teacher's internal/kvstore/memory_pool.go
// buffer-pooling pattern (there generalized over several pool kinds; here
// narrowed to the one the read path needs).
type blockPool struct {
	blockSize int
	pool      sync.Pool
}

func newBlockPool(blockSize int) *blockPool {
	bp := &blockPool{blockSize: blockSize}
	bp.pool.New = func() any {
		buf := make([]byte, blockSize)
		return &buf
	}
	return bp
}

func (bp *blockPool) get() []byte {
	return *(bp.pool.Get().(*[]byte))
}

func (bp *blockPool) put(buf []byte) {
	if cap(buf) != bp.blockSize {
		return
	}
	buf = buf[:bp.blockSize]
	bp.pool.Put(&buf)
}

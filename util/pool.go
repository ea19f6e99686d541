package util

import "sync"

// DefaultBufSize is the standard buffer size for stream reads (32 KiB).
// One endpoint read never yields more than this many bytes, so it is
// also the upper bound on a stream frame.
const DefaultBufSize = 32 * 1024

// BufPool provides reusable byte buffers for endpoint read loops,
// reducing GC pressure when the pump is moving data at full rate.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, DefaultBufSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return BufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	BufPool.Put(buf)
}

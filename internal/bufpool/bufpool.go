// Package bufpool rents and returns the scratch buffers stream adapters
// use to shuttle bytes to and from the native codec. It is a thin
// sync.Pool wrapper for same-process, same-size byte-slice reuse (see
// DESIGN.md for why this stays on sync.Pool rather than a third-party
// pooling library).
package bufpool

import "sync"

// DefaultSize is the default scratch-buffer size: 64 KiB.
const DefaultSize = 64 * 1024

var pools sync.Map // size -> *sync.Pool

func poolFor(size int) *sync.Pool {
	if p, ok := pools.Load(size); ok {
		return p.(*sync.Pool)
	}
	p := &sync.Pool{
		New: func() any {
			b := make([]byte, size)
			return &b
		},
	}
	actual, _ := pools.LoadOrStore(size, p)
	return actual.(*sync.Pool)
}

// Get rents a scratch buffer of exactly size bytes.
func Get(size int) []byte {
	if size <= 0 {
		size = DefaultSize
	}
	p := poolFor(size)
	b := p.Get().(*[]byte)
	return *b
}

// Put returns a scratch buffer rented from Get. The contents are not
// zeroed before reuse; buffers hold transient compressed/decompressed
// bytes, not secrets, so clearing them would only cost cycles.
func Put(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	size := cap(buf)
	b := buf[:size]
	poolFor(size).Put(&b)
}

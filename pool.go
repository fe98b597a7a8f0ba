package zstdstream

import "sync"

// maxPooledDecoders bounds the decoder pool's steady-state retention.
// This is a memory-bound design decision, not a correctness property —
// nothing breaks if it is tuned.
const maxPooledDecoders = 32

// DecoderPool is a process-wide, thread-safe pool of reusable *Decoder
// instances (C5). Unlike sync.Pool it enforces a hard retention cap and
// never silently evicts between a Put and the next Get, which matters
// here because a Decoder wraps a native allocation the GC does not know
// the true cost of.
type DecoderPool struct {
	mu   sync.Mutex
	free []*Decoder
	cap  int
}

// defaultPool is the package-level decoder pool used by Rent/Return.
var defaultPool = NewDecoderPool(maxPooledDecoders)

// NewDecoderPool creates a standalone pool with the given retention cap.
// Most callers should use the package-level Rent/Return instead.
func NewDecoderPool(capacity int) *DecoderPool {
	if capacity < 0 {
		capacity = 0
	}
	return &DecoderPool{cap: capacity}
}

// Rent returns a pooled Decoder if one is available, or allocates a new
// one otherwise.
func (p *DecoderPool) Rent() (*Decoder, error) {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		d := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
		return d, nil
	}
	p.mu.Unlock()
	return NewDecoder()
}

// Return resets d and either re-admits it to the pool or disposes of it
// if the pool is at capacity or the reset failed.
func (p *DecoderPool) Return(d *Decoder) {
	if d == nil {
		return
	}
	if err := d.Reset(); err != nil {
		d.Dispose()
		return
	}

	p.mu.Lock()
	if len(p.free) >= p.cap {
		p.mu.Unlock()
		d.Dispose()
		return
	}
	p.free = append(p.free, d)
	p.mu.Unlock()
}

// Rent borrows a Decoder from the process-wide pool.
func Rent() (*Decoder, error) { return defaultPool.Rent() }

// Return gives a Decoder back to the process-wide pool.
func Return(d *Decoder) { defaultPool.Return(d) }

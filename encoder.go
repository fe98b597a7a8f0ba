package zstdstream

import (
	"fmt"
	"sync"

	"github.com/dev-tony-hu/zstdstream/internal/zstdc"
)

// Encoder is the incremental compression state machine (C1). It wraps a
// single native CCtx and is not safe for concurrent use — exactly one
// Compress/Flush/Reset call may be in flight at a time; enforcing that is
// the caller's job (the Stream adapter does it via its exclusivity flag).
type Encoder struct {
	native *zstdc.CCtx
	free   sync.Once

	level  int
	prefix []byte

	configured bool
}

// EncoderOption configures an Encoder before its first Compress call.
type EncoderOption func(*Encoder) error

// WithLevel sets the compression level. Must be called before the first
// Compress of a session (i.e. before the context is "configured");
// calling it afterwards fails with KindIllegalState.
func WithLevel(level int) EncoderOption {
	return func(e *Encoder) error { return e.SetCompressionLevel(level) }
}

// WithPrefix sets a raw content prefix. See SetPrefix.
func WithPrefix(prefix []byte) EncoderOption {
	return func(e *Encoder) error { return e.SetPrefix(prefix) }
}

// NewEncoder allocates a native compression context at a default level.
func NewEncoder(opts ...EncoderOption) (*Encoder, error) {
	native, err := zstdc.NewCCtx()
	if err != nil {
		return nil, newErr("NewEncoder", KindFatal, err)
	}

	level, err := Level(QualityDefault)
	if err != nil {
		native.Free()
		return nil, err
	}

	e := &Encoder{native: native, level: level}
	for _, o := range opts {
		if err := o(e); err != nil {
			native.Free()
			return nil, err
		}
	}
	return e, nil
}

// SetCompressionLevel sets the level to be pushed into native state on
// the next Compress. Fails with KindIllegalState if the context is
// already configured for the current session.
func (e *Encoder) SetCompressionLevel(level int) error {
	if e.configured {
		return newErr("SetCompressionLevel", KindIllegalState, fmt.Errorf("context already configured"))
	}
	min, max := zstdc.MinCompressionLevel(), zstdc.MaxCompressionLevel()
	if level < min || level > max {
		return newErr("SetCompressionLevel", KindInvalidArgument, fmt.Errorf("level %d outside [%d, %d]", level, min, max))
	}
	e.level = level
	return nil
}

// SetPrefix sets (or, with an empty slice, clears) the raw content
// prefix. The bytes are copied defensively so the caller's slice does
// not need to outlive this call; the copy is released on Reset.
func (e *Encoder) SetPrefix(prefix []byte) error {
	if e.configured {
		return newErr("SetPrefix", KindIllegalState, fmt.Errorf("context already configured"))
	}
	if len(prefix) == 0 {
		e.prefix = nil
		return nil
	}
	owned := make([]byte, len(prefix))
	copy(owned, prefix)
	e.prefix = owned
	return nil
}

func (e *Encoder) ensureConfigured() error {
	if e.configured {
		return nil
	}
	if err := e.native.SetCompressionLevel(e.level); err != nil {
		return newErr("Compress", KindFatal, err)
	}
	if e.prefix != nil {
		if err := e.native.RefPrefix(e.prefix); err != nil {
			return newErr("Compress", KindFatal, err)
		}
	}
	e.configured = true
	return nil
}

// Compress feeds source into the encoder and writes compressed output
// into destination. isFinalBlock signals that no further input follows
// in this frame, so the encoder should end it. The tie-break order
// between DestinationTooSmall and NeedMoreData below is load-bearing
// and must not be reordered.
func (e *Encoder) Compress(destination []byte, source []byte, isFinalBlock bool) (status Status, consumed int, written int, err error) {
	if err := e.ensureConfigured(); err != nil {
		return Done, 0, 0, err
	}

	end := zstdc.EndContinue
	if isFinalBlock {
		end = zstdc.EndEnd
	}

	remaining, consumed, written, nativeErr := e.native.CompressStream2(destination, source, end)
	if nativeErr != nil {
		return Done, consumed, written, newErr("Compress", KindFatal, nativeErr)
	}

	switch {
	case isFinalBlock && consumed == len(source) && remaining == 0:
		status = Done
	case isFinalBlock && remaining > 0 && written == len(destination):
		status = DestinationTooSmall
	case !isFinalBlock && written == len(destination):
		status = DestinationTooSmall
	case !isFinalBlock && consumed == len(source) && written < len(destination):
		status = NeedMoreData
	default:
		status = Done
	}
	return status, consumed, written, nil
}

// Flush drains any buffered native state into destination without
// ending the current frame. It drives the native primitive with
// end-directive flush and an empty input, looping while progress
// remains and destination still has room.
func (e *Encoder) Flush(destination []byte) (status Status, written int, err error) {
	if err := e.ensureConfigured(); err != nil {
		return Done, 0, err
	}

	total := 0
	for {
		remaining, _, n, nativeErr := e.native.CompressStream2(destination[total:], nil, zstdc.EndFlush)
		if nativeErr != nil {
			return Done, total, newErr("Flush", KindFatal, nativeErr)
		}
		total += n
		if remaining == 0 {
			return Done, total, nil
		}
		if total >= len(destination) {
			return DestinationTooSmall, total, nil
		}
	}
}

// Reset ends the current session: native state is reset, the prefix is
// released, and the context returns to not-configured. The compression
// level set on this Encoder is kept and pushed again on the next Compress.
func (e *Encoder) Reset() error {
	if err := e.native.Reset(); err != nil {
		return newErr("Reset", KindFatal, err)
	}
	e.prefix = nil
	e.configured = false
	return nil
}

// Dispose frees the native handle. Safe to call more than once; only the
// first call has effect.
func (e *Encoder) Dispose() {
	e.free.Do(e.native.Free)
}

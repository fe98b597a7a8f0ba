package zstdstream

import (
	"fmt"
	"sync"

	"github.com/dev-tony-hu/zstdstream/internal/zstdc"
)

// Decoder is the incremental decompression state machine (C2). Like
// Encoder, it wraps a single native DCtx and is not safe for concurrent
// use.
type Decoder struct {
	native *zstdc.DCtx
	free   sync.Once

	maxWindowLog int
	initialized  bool
}

// DecoderOption configures a Decoder before its first Decompress call.
type DecoderOption func(*Decoder) error

// WithMaxWindowLog caps the decoder's accepted window size, bounding
// memory use on untrusted input. Accepted range is [10, 31] at this
// wrapper layer; the native codec may reject values it does not support
// with KindFatal.
func WithMaxWindowLog(log int) DecoderOption {
	return func(d *Decoder) error { return d.SetMaxWindow(log) }
}

// NewDecoder allocates a native decompression context.
func NewDecoder(opts ...DecoderOption) (*Decoder, error) {
	native, err := zstdc.NewDCtx()
	if err != nil {
		return nil, newErr("NewDecoder", KindFatal, err)
	}
	d := &Decoder{native: native}
	for _, o := range opts {
		if err := o(d); err != nil {
			native.Free()
			return nil, err
		}
	}
	return d, nil
}

// SetMaxWindow sets the maximum window log. Only accepted before
// initialization (i.e. before the first Decompress of a session) or
// immediately after Reset.
func (d *Decoder) SetMaxWindow(log int) error {
	if d.initialized {
		return newErr("SetMaxWindow", KindIllegalState, fmt.Errorf("context already initialized"))
	}
	if log < 10 || log > 31 {
		return newErr("SetMaxWindow", KindInvalidArgument, fmt.Errorf("window log %d outside [10, 31]", log))
	}
	d.maxWindowLog = log
	return nil
}

func (d *Decoder) ensureInitialized() error {
	if d.initialized {
		return nil
	}
	if d.maxWindowLog != 0 {
		if err := d.native.SetMaxWindowLog(d.maxWindowLog); err != nil {
			return newErr("Decompress", KindFatal, err)
		}
	}
	d.initialized = true
	return nil
}

// Decompress feeds compressed source into the decoder, writing decoded
// output into destination. isFinalBlock signals that no further input
// will ever arrive for this session, so a frame that fails to close is
// reported as NeedMoreData — the caller observes it as truncation, not
// a hard error.
func (d *Decoder) Decompress(destination []byte, source []byte, isFinalBlock bool) (status Status, consumed int, written int, frameFinished bool, err error) {
	if err := d.ensureInitialized(); err != nil {
		return Done, 0, 0, false, err
	}

	hint, consumed, written, nativeErr := d.native.DecompressStream(destination, source)
	if nativeErr != nil {
		return Done, consumed, written, false, newErr("Decompress", KindInvalidData, nativeErr)
	}
	frameFinished = hint == 0

	switch {
	case written == len(destination) && !frameFinished:
		status = DestinationTooSmall
	case consumed == len(source) && !frameFinished && hint > 0 && !isFinalBlock:
		status = NeedMoreData
	case isFinalBlock && !frameFinished && consumed == len(source) && hint > 0:
		status = NeedMoreData
	default:
		status = Done
	}
	return status, consumed, written, frameFinished, nil
}

// Reset ends the current session: native state is reset and the
// decoder becomes un-initialized, ready for SetMaxWindow again.
func (d *Decoder) Reset() error {
	if err := d.native.Reset(); err != nil {
		return newErr("Reset", KindFatal, err)
	}
	d.initialized = false
	return nil
}

// Dispose frees the native handle. Safe to call more than once.
func (d *Decoder) Dispose() {
	d.free.Do(d.native.Free)
}

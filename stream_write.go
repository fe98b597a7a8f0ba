package zstdstream

import (
	"context"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dev-tony-hu/zstdstream/internal/bufpool"
)

// Writer is the compress-side stream adapter. It drives an Encoder
// against an underlying io.Writer sink using a pooled scratch buffer,
// translating the tri-state Compress/Flush contract into the ordinary
// io.Writer/io.Closer shape plus a Flush/FlushFrame distinction between
// draining buffered bytes and terminating the current frame.
type Writer struct {
	guard

	sink io.Writer
	enc  *Encoder
	opts streamOptions

	scratch []byte

	// inputFingerprint runs over every byte handed to Write, purely to
	// give Close's debug log a cheap way to confirm which payload a
	// given frame sequence came from without logging the payload itself.
	inputFingerprint *xxhash.Digest

	// pendingFrameReset is set by FlushFrame once it has successfully
	// terminated a frame, and cleared by the next Write after it resets
	// the encoder. Deferring the reset this way is what keeps a
	// Close immediately following FlushFrame from emitting a spurious
	// empty trailing frame.
	pendingFrameReset bool
	// wroteSinceFlushFrame tracks whether any bytes have been fed to
	// the encoder since the last FlushFrame, making FlushFrame
	// idempotent when called twice in a row with no intervening write.
	wroteSinceFlushFrame bool

	closed bool
}

var (
	_ io.Writer = (*Writer)(nil)
	_ io.Closer = (*Writer)(nil)
)

// NewWriter wraps sink with a compress-side stream adapter driven by enc.
func NewWriter(sink io.Writer, enc *Encoder, opts ...StreamOption) (*Writer, error) {
	o := defaultStreamOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return &Writer{
		sink:             sink,
		enc:              enc,
		opts:             o,
		scratch:          bufpool.Get(o.scratchSize),
		inputFingerprint: xxhash.New(),
	}, nil
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) { return w.WriteContext(context.Background(), p) }

// WriteContext is Write with cooperative cancellation polled on entry
// and before each round-trip to the underlying sink.
func (w *Writer) WriteContext(ctx context.Context, p []byte) (int, error) {
	if err := w.enter("Write"); err != nil {
		return 0, err
	}
	defer w.exit()

	if err := checkCancel(ctx); err != nil {
		return 0, err
	}
	if w.closed {
		return 0, newErr("Write", KindIllegalState, fmt.Errorf("writer is closed"))
	}

	if err := w.beginFrameIfPending(); err != nil {
		return 0, err
	}

	total, totalWritten := 0, 0
	for len(p) > 0 {
		status, consumed, written, err := w.enc.Compress(w.scratch, p, false)
		if err != nil {
			return total, err
		}
		if written > 0 {
			if err := checkCancel(ctx); err != nil {
				return total, err
			}
			if _, werr := w.sink.Write(w.scratch[:written]); werr != nil {
				return total, newErr("Write", KindFatal, werr)
			}
		}
		if consumed > 0 {
			_, _ = w.inputFingerprint.Write(p[:consumed])
			w.wroteSinceFlushFrame = true
		}
		p = p[consumed:]
		total += consumed
		totalWritten += written

		switch status {
		case DestinationTooSmall:
			continue
		case NeedMoreData:
			if totalWritten == 0 {
				// The whole call accepted input but emitted nothing:
				// break a potential stall with one empty-input flush
				// attempt so buffered state doesn't sit untouched.
				_, flushed, ferr := w.enc.Flush(w.scratch)
				if ferr != nil {
					return total, ferr
				}
				if flushed > 0 {
					if err := checkCancel(ctx); err != nil {
						return total, err
					}
					if _, werr := w.sink.Write(w.scratch[:flushed]); werr != nil {
						return total, newErr("Write", KindFatal, werr)
					}
				}
			}
			return total, nil
		case Done:
			if len(p) == 0 {
				return total, nil
			}
			// consumed < len(p) with room left in both buffers: loop
			// again to push the remainder through.
		}
	}
	return total, nil
}

func (w *Writer) beginFrameIfPending() error {
	if !w.pendingFrameReset {
		return nil
	}
	if err := w.enc.Reset(); err != nil {
		return err
	}
	w.pendingFrameReset = false
	w.wroteSinceFlushFrame = false
	return nil
}

// Flush drains any internally buffered compressed bytes to the
// underlying sink without terminating the current frame (end-directive
// flush). Subsequent writes continue the same frame.
func (w *Writer) Flush() error { return w.FlushContext(context.Background()) }

// FlushContext is Flush with cooperative cancellation.
func (w *Writer) FlushContext(ctx context.Context) error {
	if err := w.enter("Flush"); err != nil {
		return err
	}
	defer w.exit()

	if err := checkCancel(ctx); err != nil {
		return err
	}
	if w.closed {
		return newErr("Flush", KindIllegalState, fmt.Errorf("writer is closed"))
	}
	if w.pendingFrameReset {
		// The last frame is already terminated and nothing has been
		// written since, so nothing is buffered; the reset is left to the
		// next Write.
		return nil
	}
	return w.drainFlush(ctx)
}

func (w *Writer) drainFlush(ctx context.Context) error {
	for {
		status, written, err := w.enc.Flush(w.scratch)
		if err != nil {
			return err
		}
		if written > 0 {
			if err := checkCancel(ctx); err != nil {
				return err
			}
			if _, werr := w.sink.Write(w.scratch[:written]); werr != nil {
				return newErr("Flush", KindFatal, werr)
			}
		}
		if status == Done {
			return nil
		}
	}
}

// FlushFrame terminates the current frame (end-directive end) and
// arranges for the next Write to begin a fresh one. It is idempotent:
// calling it twice with no intervening write produces the same output
// as calling it once, because wroteSinceFlushFrame gates the actual
// termination work.
func (w *Writer) FlushFrame() error { return w.FlushFrameContext(context.Background()) }

// FlushFrameContext is FlushFrame with cooperative cancellation.
func (w *Writer) FlushFrameContext(ctx context.Context) error {
	if err := w.enter("FlushFrame"); err != nil {
		return err
	}
	defer w.exit()

	if err := checkCancel(ctx); err != nil {
		return err
	}
	if w.closed {
		return newErr("FlushFrame", KindIllegalState, fmt.Errorf("writer is closed"))
	}
	if w.pendingFrameReset {
		// A FlushFrame already terminated the current (empty) frame and
		// no write has happened since: this call is a no-op.
		return nil
	}
	if !w.wroteSinceFlushFrame {
		// Nothing has been written since construction/last FlushFrame:
		// terminating now would emit an empty frame, which FlushFrame
		// must never do on repeat calls.
		return nil
	}

	if err := w.terminateFrame(ctx); err != nil {
		return err
	}
	w.pendingFrameReset = true
	return nil
}

func (w *Writer) terminateFrame(ctx context.Context) error {
	for {
		status, _, written, err := w.enc.Compress(w.scratch, nil, true)
		if err != nil {
			return err
		}
		if written > 0 {
			if err := checkCancel(ctx); err != nil {
				return err
			}
			if _, werr := w.sink.Write(w.scratch[:written]); werr != nil {
				return newErr("FlushFrame", KindFatal, werr)
			}
		}
		if status == Done {
			return nil
		}
	}
}

// Close implements io.Closer: it terminates the current frame (unless a
// FlushFrame already did and nothing has been written since, in which
// case no further terminator is emitted — this is what prevents an
// empty trailing frame), releases the scratch buffer, and — unless
// constructed WithLeaveUnderlyingOpen(true) — closes the underlying sink.
func (w *Writer) Close() error { return w.CloseContext(context.Background()) }

// CloseContext is Close with cooperative cancellation.
func (w *Writer) CloseContext(ctx context.Context) error {
	if err := w.enter("Close"); err != nil {
		return err
	}
	defer w.exit()

	if w.closed {
		return nil
	}

	var closeErr error
	if err := checkCancel(ctx); err != nil {
		closeErr = err
	} else if !w.pendingFrameReset {
		closeErr = w.terminateFrame(ctx)
	}

	w.closed = true
	w.opts.logger.Debug("writer closed", zap.Uint64("input_fingerprint", w.inputFingerprint.Sum64()))
	bufpool.Put(w.scratch)
	w.scratch = nil
	w.enc.Dispose()

	if !w.opts.leaveUnderlyingOpen {
		if sc, ok := w.sink.(io.Closer); ok {
			if err := sc.Close(); err != nil {
				w.opts.logger.Warn("failed to close underlying sink", zap.Error(err))
				closeErr = multierr.Append(closeErr, newErr("Close", KindFatal, err))
			}
		}
	}
	return closeErr
}

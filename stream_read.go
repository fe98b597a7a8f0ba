package zstdstream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/dev-tony-hu/zstdstream/internal/bufpool"
)

// Reader is the decompress-side stream adapter. It drives a Decoder
// against an underlying io.Reader source, transparently walking across
// frame boundaries within the same session: once one frame closes, the
// next Decompress call simply starts decoding the frame that follows it.
type Reader struct {
	guard

	source io.Reader
	dec    *Decoder
	opts   streamOptions

	scratch        []byte
	inStart, inEnd int
	sourceDepleted bool

	closed bool
}

var (
	_ io.Reader = (*Reader)(nil)
	_ io.Closer = (*Reader)(nil)
)

// NewReader wraps source with a decompress-side stream adapter driven by dec.
func NewReader(source io.Reader, dec *Decoder, opts ...StreamOption) (*Reader, error) {
	o := defaultStreamOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return &Reader{
		source:  source,
		dec:     dec,
		opts:    o,
		scratch: bufpool.Get(o.scratchSize),
	}, nil
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) { return r.ReadContext(context.Background(), p) }

// ReadContext is Read with cooperative cancellation polled on entry and
// before each round-trip to the underlying source.
func (r *Reader) ReadContext(ctx context.Context, p []byte) (int, error) {
	if err := r.enter("Read"); err != nil {
		return 0, err
	}
	defer r.exit()

	if err := checkCancel(ctx); err != nil {
		return 0, err
	}
	if r.closed {
		return 0, newErr("Read", KindIllegalState, fmt.Errorf("reader is closed"))
	}
	if len(p) == 0 {
		return 0, nil
	}

	total := 0
	for {
		if r.inStart >= r.inEnd && !r.sourceDepleted {
			if err := r.refill(ctx); err != nil {
				return total, err
			}
		}

		status, consumed, written, frameFinished, err := r.dec.Decompress(
			p[total:], r.scratch[r.inStart:r.inEnd], r.sourceDepleted)
		if err != nil {
			return total, err
		}
		r.inStart += consumed
		total += written

		switch status {
		case DestinationTooSmall:
			return total, nil
		case NeedMoreData:
			if r.sourceDepleted {
				// Truncated input: report a clean end-of-stream with
				// fewer bytes than expected rather than a hard error;
				// integrity checking is left to the caller.
				return total, io.EOF
			}
			continue
		case Done:
			if total > 0 {
				return total, nil
			}
			if r.sourceDepleted && r.inStart >= r.inEnd {
				return total, io.EOF
			}
			if consumed == 0 && written == 0 && !frameFinished {
				// No progress possible with what's buffered; refill or
				// stop to avoid a busy loop.
				if r.sourceDepleted {
					return total, io.EOF
				}
				continue
			}
			// frameFinished: fall through into the next concatenated
			// frame transparently.
			continue
		}
	}
}

func (r *Reader) refill(ctx context.Context) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}
	if r.inStart > 0 {
		copy(r.scratch, r.scratch[r.inStart:r.inEnd])
		r.inEnd -= r.inStart
		r.inStart = 0
	}
	n, err := r.source.Read(r.scratch[r.inEnd:])
	r.inEnd += n
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.sourceDepleted = true
			return nil
		}
		return newErr("Read", KindFatal, err)
	}
	return nil
}

// Reset resets the decoder and discards buffered input, so the next
// Read starts a fresh frame from whatever follows in the underlying
// source at this moment.
func (r *Reader) Reset() error {
	if err := r.enter("Reset"); err != nil {
		return err
	}
	defer r.exit()

	if err := r.dec.Reset(); err != nil {
		return err
	}
	r.inStart, r.inEnd = 0, 0
	r.sourceDepleted = false
	return nil
}

// Close releases the scratch buffer and disposes of the decoder. Unless
// constructed WithLeaveUnderlyingOpen(true), it also closes the
// underlying source.
func (r *Reader) Close() error {
	if err := r.enter("Close"); err != nil {
		return err
	}
	defer r.exit()

	if r.closed {
		return nil
	}
	r.closed = true

	bufpool.Put(r.scratch)
	r.scratch = nil
	r.dec.Dispose()

	if !r.opts.leaveUnderlyingOpen {
		if sc, ok := r.source.(io.Closer); ok {
			if err := sc.Close(); err != nil {
				r.opts.logger.Warn("failed to close underlying source", zap.Error(err))
				return newErr("Close", KindFatal, err)
			}
		}
	}
	return nil
}

package zstdstream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dev-tony-hu/zstdstream/internal/bufpool"
	"github.com/dev-tony-hu/zstdstream/internal/zstdc"
)

// FrameMetadata is the header-derived record that accompanies each
// frame yielded by FrameIterator.
type FrameMetadata struct {
	ContentSize  uint64
	WindowSize   uint64
	DictID       uint32
	ChecksumFlag bool
}

const initialFrameOutSize = 4096

// FrameIterator decodes a sequence of concatenated frames one at a time,
// yielding each frame's fully decoded bytes plus its header metadata.
// It reuses a single Decoder, resetting it between frames.
type FrameIterator struct {
	guard

	source io.Reader
	dec    *Decoder

	maxFrameSize int // 0 means unbounded

	in             []byte
	inStart, inEnd int
	sourceDepleted bool

	startedFirstFrame bool
	closed            bool
}

// FrameIteratorOption configures a FrameIterator at construction.
type FrameIteratorOption func(*FrameIterator)

// WithMaxFrameSize caps the decoded size of any single frame; exceeding
// it fails a Next call with KindResourceLimit. Zero (the default) means
// unbounded.
func WithMaxFrameSize(n int) FrameIteratorOption {
	return func(it *FrameIterator) { it.maxFrameSize = n }
}

// NewFrameIterator creates an iterator decoding frames from source.
func NewFrameIterator(source io.Reader, dec *Decoder, opts ...FrameIteratorOption) *FrameIterator {
	it := &FrameIterator{
		source: source,
		dec:    dec,
		in:     bufpool.Get(bufpool.DefaultSize),
	}
	for _, o := range opts {
		o(it)
	}
	return it
}

// Next decodes and returns the next frame's bytes and metadata, or
// io.EOF once the source is exhausted with no partial frame pending.
func (it *FrameIterator) Next() ([]byte, FrameMetadata, error) {
	return it.NextContext(context.Background())
}

// NextContext is Next with cooperative cancellation.
func (it *FrameIterator) NextContext(ctx context.Context) ([]byte, FrameMetadata, error) {
	if err := it.enter("Next"); err != nil {
		return nil, FrameMetadata{}, err
	}
	defer it.exit()

	if it.closed {
		return nil, FrameMetadata{}, newErr("Next", KindIllegalState, fmt.Errorf("iterator is closed"))
	}
	if err := checkCancel(ctx); err != nil {
		return nil, FrameMetadata{}, err
	}

	for {
		frame, meta, swallowed, err := it.decodeOneFrame(ctx)
		if err != nil {
			return nil, FrameMetadata{}, err
		}
		if swallowed {
			continue
		}
		return frame, meta, nil
	}
}

// decodeOneFrame decodes a single frame. swallowed is true when the
// frame was a spurious empty one that callers should not see.
func (it *FrameIterator) decodeOneFrame(ctx context.Context) (data []byte, meta FrameMetadata, swallowed bool, err error) {
	if err := checkCancel(ctx); err != nil {
		return nil, FrameMetadata{}, false, err
	}
	if it.startedFirstFrame {
		if err := it.dec.Reset(); err != nil {
			return nil, FrameMetadata{}, false, err
		}
	}
	it.startedFirstFrame = true

	out := make([]byte, 0, initialFrameOutSize)
	haveMeta := false
	consumedThisFrame := 0

	for {
		if it.inStart >= it.inEnd && !it.sourceDepleted {
			if err := it.refill(ctx); err != nil {
				return nil, FrameMetadata{}, false, err
			}
		}

		if !haveMeta && it.inEnd > it.inStart {
			if hdr, herr := zstdc.ParseFrameHeader(it.in[it.inStart:it.inEnd]); herr == nil {
				meta = FrameMetadata{
					ContentSize:  hdr.FrameContentSize,
					WindowSize:   hdr.WindowSize,
					DictID:       hdr.DictID,
					ChecksumFlag: hdr.ChecksumFlag,
				}
				haveMeta = true
			}
		}

		if len(out) == cap(out) {
			grown, err := it.grow(out)
			if err != nil {
				return nil, FrameMetadata{}, false, err
			}
			out = grown
		}

		status, consumed, written, frameFinished, derr := it.dec.Decompress(
			out[len(out):cap(out)], it.in[it.inStart:it.inEnd], it.sourceDepleted)
		if derr != nil {
			return nil, FrameMetadata{}, false, derr
		}
		out = out[:len(out)+written]
		it.inStart += consumed
		consumedThisFrame += consumed

		switch status {
		case DestinationTooSmall:
			continue
		case NeedMoreData:
			if it.sourceDepleted {
				if consumedThisFrame == 0 && len(out) == 0 {
					return nil, FrameMetadata{}, false, io.EOF
				}
				return nil, FrameMetadata{}, false, newErr("Next", KindTruncation,
					fmt.Errorf("incomplete trailing frame"))
			}
			continue
		case Done:
			if !frameFinished {
				continue
			}
			if consumedThisFrame <= 8 && len(out) == 0 {
				// Spurious empty frame: reset and fold into the next one
				// transparently rather than yielding nothing.
				if it.inStart >= it.inEnd && it.sourceDepleted {
					return nil, FrameMetadata{}, false, io.EOF
				}
				if err := it.dec.Reset(); err != nil {
					return nil, FrameMetadata{}, false, err
				}
				return nil, FrameMetadata{}, true, nil
			}
			return out, meta, false, nil
		}
	}
}

func (it *FrameIterator) grow(out []byte) ([]byte, error) {
	newCap := cap(out) * 2
	if newCap == 0 {
		newCap = initialFrameOutSize
	}
	if it.maxFrameSize > 0 && newCap > it.maxFrameSize {
		if cap(out) >= it.maxFrameSize {
			return nil, newErr("Next", KindResourceLimit,
				fmt.Errorf("frame exceeds maximum size %d", it.maxFrameSize))
		}
		newCap = it.maxFrameSize
	}
	grown := make([]byte, len(out), newCap)
	copy(grown, out)
	return grown, nil
}

func (it *FrameIterator) refill(ctx context.Context) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}
	if it.inStart > 0 {
		copy(it.in, it.in[it.inStart:it.inEnd])
		it.inEnd -= it.inStart
		it.inStart = 0
	}
	if it.inEnd == len(it.in) {
		grown := make([]byte, len(it.in)*2)
		copy(grown, it.in[:it.inEnd])
		it.in = grown
	}
	n, err := it.source.Read(it.in[it.inEnd:])
	it.inEnd += n
	if err != nil {
		if errors.Is(err, io.EOF) {
			it.sourceDepleted = true
			return nil
		}
		return newErr("Next", KindFatal, err)
	}
	return nil
}

// Reset discards any buffered input and prepares the iterator to decode
// a fresh sequence of frames from the current position of the source.
func (it *FrameIterator) Reset() error {
	if err := it.enter("Reset"); err != nil {
		return err
	}
	defer it.exit()

	if err := it.dec.Reset(); err != nil {
		return err
	}
	it.inStart, it.inEnd = 0, 0
	it.sourceDepleted = false
	it.startedFirstFrame = false
	return nil
}

// Close releases the scratch buffer and disposes of the decoder.
func (it *FrameIterator) Close() error {
	if err := it.enter("Close"); err != nil {
		return err
	}
	defer it.exit()

	if it.closed {
		return nil
	}
	it.closed = true
	bufpool.Put(it.in)
	it.in = nil
	it.dec.Dispose()
	return nil
}

package zstdstream

import (
	"context"
	"fmt"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/dev-tony-hu/zstdstream/internal/bufpool"
)

// guard implements a single-slot exclusivity flag: entry to any
// read/write/flush/dispose path attempts to move it from false to true
// via compare-and-swap and fails fast with KindIllegalState otherwise;
// exit always restores it to false.
type guard struct {
	active atomic.Bool
}

func (g *guard) enter(op string) error {
	if !g.active.CompareAndSwap(false, true) {
		return newErr(op, KindIllegalState, fmt.Errorf("concurrent operation already in progress"))
	}
	return nil
}

func (g *guard) exit() { g.active.Store(false) }

// checkCancel polls ctx without blocking, used at entry and before each
// I/O round-trip in the context-aware variants.
func checkCancel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return newErr("", KindCancelled, ctx.Err())
	default:
		return nil
	}
}

// streamOptions carries the functional-option surface shared by the
// compress-side Writer and decompress-side Reader, mirroring the
// teacher's WOption/ROption split.
type streamOptions struct {
	logger              *zap.Logger
	scratchSize         int
	leaveUnderlyingOpen bool
}

func defaultStreamOptions() streamOptions {
	return streamOptions{
		logger:      zap.NewNop(),
		scratchSize: bufpool.DefaultSize,
	}
}

// StreamOption configures a Writer or Reader at construction.
type StreamOption func(*streamOptions)

// WithLogger injects a structured logger; defaults to a no-op logger.
func WithLogger(l *zap.Logger) StreamOption {
	return func(o *streamOptions) { o.logger = l }
}

// WithScratchSize overrides the pooled scratch-buffer size (default 64 KiB).
func WithScratchSize(n int) StreamOption {
	return func(o *streamOptions) {
		if n > 0 {
			o.scratchSize = n
		}
	}
}

// WithLeaveUnderlyingOpen controls whether Close also closes the
// underlying sink/source.
func WithLeaveUnderlyingOpen(leave bool) StreamOption {
	return func(o *streamOptions) { o.leaveUnderlyingOpen = leave }
}

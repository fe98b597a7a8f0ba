package zstdstream

import (
	"errors"
	"fmt"
)

// Kind classifies a Error by the semantic categories in the design spec,
// independent of the exact message — callers that need to branch should
// use KindOf or Is rather than match strings.
type Kind int

const (
	// KindFatal covers unexpected native-codec failures with no more
	// specific classification.
	KindFatal Kind = iota
	// KindInvalidArgument covers out-of-range levels, window logs, or
	// enum values outside their closed set.
	KindInvalidArgument
	// KindIllegalState covers concurrent-entry, post-configuration
	// mutation, wrong-direction (write on a decoder, read on an
	// encoder), and use-after-Dispose misuse.
	KindIllegalState
	// KindInvalidData is decoder-only: the native codec reported a
	// decompression error, or a frame header could not be parsed where
	// one was required.
	KindInvalidData
	// KindTruncation reports that is_final_block was set but the last
	// frame never closed.
	KindTruncation
	// KindResourceLimit reports a caller-supplied resource cap (e.g.
	// max frame size in the async iterator) was exceeded.
	KindResourceLimit
	// KindCancelled reports cooperative cancellation was observed.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindIllegalState:
		return "IllegalState"
	case KindInvalidData:
		return "InvalidData"
	case KindTruncation:
		return "Truncation"
	case KindResourceLimit:
		return "ResourceLimit"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Fatal"
	}
}

// Error is the error type this module's exported operations return for
// failures; reaching the end of input is reported as a plain io.EOF
// instead. It carries a Kind so callers can branch on semantics and
// wraps the underlying cause for %w-based errors.Is/errors.As chains.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("zstdstream: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("zstdstream: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(op string, kind Kind, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf returns the Kind carried by err if it (or something it wraps)
// is an *Error, and KindFatal/false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindFatal, false
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

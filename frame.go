package zstdstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/google/btree"

	"github.com/dev-tony-hu/zstdstream/internal/zstdc"
)

// skippableMagicMask/skippableMagicBase identify the Zstandard skippable
// frame magic range 0x184D2A50-0x184D2A5F; the lower nibble is
// user-defined and carries no meaning here.
const (
	skippableMagicBase uint32 = 0x184D2A50
	skippableMagicMask uint32 = 0xFFFFFFF0
)

// FrameInfo describes one frame (ordinary or skippable) found by walking
// a compressed blob.
type FrameInfo struct {
	Offset         uint64
	CompressedSize uint64
	Type           string // "frame" or "skippable"

	// The following are zero-valued for skippable frames, which carry
	// no Zstandard frame header.
	ContentSize  uint64
	WindowSize   uint64
	DictID       uint32
	ChecksumFlag bool
}

func isSkippableMagic(b []byte) (uint32, bool) {
	if len(b) < 4 {
		return 0, false
	}
	magic := binary.LittleEndian.Uint32(b[:4])
	return magic, magic&skippableMagicMask == skippableMagicBase
}

func parseSkippableFrame(offset uint64, b []byte) (FrameInfo, error) {
	if len(b) < 8 {
		return FrameInfo{}, newErr("EnumerateFrames", KindInvalidData,
			fmt.Errorf("truncated skippable frame header at offset %d", offset))
	}
	length := binary.LittleEndian.Uint32(b[4:8])
	total := uint64(8) + uint64(length)
	if uint64(len(b)) < total {
		return FrameInfo{}, newErr("EnumerateFrames", KindInvalidData,
			fmt.Errorf("truncated skippable frame payload at offset %d", offset))
	}
	return FrameInfo{Offset: offset, CompressedSize: total, Type: "skippable"}, nil
}

func parseOrdinaryFrame(offset uint64, b []byte) (FrameInfo, error) {
	size, err := zstdc.FindFrameCompressedSize(b)
	if err != nil {
		return FrameInfo{}, newErr("EnumerateFrames", KindInvalidData, err)
	}
	hdr, err := zstdc.ParseFrameHeader(b)
	if err != nil {
		return FrameInfo{}, newErr("EnumerateFrames", KindInvalidData, err)
	}
	return FrameInfo{
		Offset:         offset,
		CompressedSize: size,
		Type:           "frame",
		ContentSize:    hdr.FrameContentSize,
		WindowSize:     hdr.WindowSize,
		DictID:         hdr.DictID,
		ChecksumFlag:   hdr.ChecksumFlag,
	}, nil
}

// EnumerateFrames walks a complete compressed blob in memory and returns
// one FrameInfo per frame (ordinary or skippable), in order.
func EnumerateFrames(blob []byte) ([]FrameInfo, error) {
	var frames []FrameInfo
	offset := uint64(0)
	for offset < uint64(len(blob)) {
		window := blob[offset:]
		var (
			info FrameInfo
			err  error
		)
		if _, skippable := isSkippableMagic(window); skippable {
			info, err = parseSkippableFrame(offset, window)
		} else {
			info, err = parseOrdinaryFrame(offset, window)
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, info)
		offset += info.CompressedSize
	}
	return frames, nil
}

// FrameEnumerator walks frames from an arbitrary io.Reader, refilling a
// growing scratch buffer as needed. Unlike EnumerateFrames it does not
// require the whole blob up front.
type FrameEnumerator struct {
	source io.Reader
	buf    []byte
	n      int
	offset uint64
	eof    bool
}

// NewFrameEnumerator creates a streaming frame walker over source.
func NewFrameEnumerator(source io.Reader) *FrameEnumerator {
	return &FrameEnumerator{source: source, buf: make([]byte, 4096)}
}

// Next returns the next frame, or io.EOF once the source is exhausted
// and no partial frame remains buffered.
func (e *FrameEnumerator) Next() (FrameInfo, error) {
	for {
		if info, consumed, ok := e.tryParse(); ok {
			e.advance(consumed)
			e.offset += uint64(consumed)
			return info, nil
		}
		if e.eof {
			if e.n == 0 {
				return FrameInfo{}, io.EOF
			}
			return FrameInfo{}, newErr("Next", KindTruncation,
				fmt.Errorf("incomplete trailing frame at offset %d", e.offset))
		}
		if err := e.refill(); err != nil {
			return FrameInfo{}, err
		}
	}
}

// tryParse attempts to parse one frame out of the bytes currently
// buffered. ok is false when more bytes are needed.
func (e *FrameEnumerator) tryParse() (info FrameInfo, consumed int, ok bool) {
	if e.n == 0 {
		return FrameInfo{}, 0, false
	}
	window := e.buf[:e.n]
	if magic, skippable := isSkippableMagic(window); skippable {
		_ = magic
		if e.n < 8 {
			return FrameInfo{}, 0, false
		}
		length := binary.LittleEndian.Uint32(window[4:8])
		total := 8 + int(length)
		if e.n < total {
			return FrameInfo{}, 0, false
		}
		return FrameInfo{Offset: e.offset, CompressedSize: uint64(total), Type: "skippable"}, total, true
	}

	size, err := zstdc.FindFrameCompressedSize(window)
	if err != nil {
		// The codec reports an error uniformly for both "too short" and
		// genuinely malformed input; treat it as "need more" and let the
		// caller's eof/zero-progress check turn it into a hard error.
		return FrameInfo{}, 0, false
	}
	if uint64(e.n) < size {
		return FrameInfo{}, 0, false
	}
	hdr, err := zstdc.ParseFrameHeader(window)
	if err != nil {
		return FrameInfo{}, 0, false
	}
	return FrameInfo{
		Offset:         e.offset,
		CompressedSize: size,
		Type:           "frame",
		ContentSize:    hdr.FrameContentSize,
		WindowSize:     hdr.WindowSize,
		DictID:         hdr.DictID,
		ChecksumFlag:   hdr.ChecksumFlag,
	}, int(size), true
}

func (e *FrameEnumerator) advance(n int) {
	copy(e.buf, e.buf[n:e.n])
	e.n -= n
}

func (e *FrameEnumerator) refill() error {
	if e.n == len(e.buf) {
		grown := make([]byte, len(e.buf)*2)
		copy(grown, e.buf[:e.n])
		e.buf = grown
	}
	read, err := e.source.Read(e.buf[e.n:])
	e.n += read
	if err != nil {
		if errors.Is(err, io.EOF) {
			e.eof = true
			return nil
		}
		return newErr("Next", KindFatal, err)
	}
	if read == 0 {
		return newErr("Next", KindFatal, fmt.Errorf("source returned zero bytes with no error"))
	}
	return nil
}

type frameEntry struct {
	offset uint64
	info   FrameInfo
}

func lessFrameEntry(a, b frameEntry) bool { return a.offset < b.offset }

// Frames is an offset-indexed view over a fully enumerated blob, backed
// by a B-tree for O(log n) containing-frame lookups.
type Frames struct {
	tree *btree.BTreeG[frameEntry]
	list []FrameInfo
}

// NewFrames enumerates blob and builds a lookup index over the result.
func NewFrames(blob []byte) (*Frames, error) {
	list, err := EnumerateFrames(blob)
	if err != nil {
		return nil, err
	}
	tree := btree.NewG(32, lessFrameEntry)
	for _, fi := range list {
		tree.ReplaceOrInsert(frameEntry{offset: fi.Offset, info: fi})
	}
	return &Frames{tree: tree, list: list}, nil
}

// All returns every frame in offset order.
func (f *Frames) All() []FrameInfo { return f.list }

// Lookup returns the frame containing the given compressed-stream
// offset, if any.
func (f *Frames) Lookup(offset uint64) (FrameInfo, bool) {
	var (
		found frameEntry
		ok    bool
	)
	f.tree.DescendLessOrEqual(frameEntry{offset: offset}, func(e frameEntry) bool {
		found, ok = e, true
		return false
	})
	if !ok || offset >= found.info.Offset+found.info.CompressedSize {
		return FrameInfo{}, false
	}
	return found.info, true
}

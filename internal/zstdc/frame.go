package zstdc

/*
#include <stdint.h>
#include <zstd.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// ContentSizeUnknown and ContentSizeError mirror the two distinguished
// sentinels ZSTD_getFrameContentSize can return alongside a real size.
const (
	ContentSizeUnknown uint64 = 0xFFFFFFFFFFFFFFFF // ZSTD_CONTENTSIZE_UNKNOWN
	ContentSizeError   uint64 = 0xFFFFFFFFFFFFFFFE // ZSTD_CONTENTSIZE_ERROR
)

// FrameHeader is the Go projection of ZSTD_frameHeader.
type FrameHeader struct {
	FrameContentSize uint64
	WindowSize       uint64
	BlockSizeMax     uint32
	FrameType        uint32 // 0 = ZSTD_frame, 1 = ZSTD_skippableFrame
	HeaderSize       uint32
	DictID           uint32
	ChecksumFlag     bool
}

// FindFrameCompressedSize returns the compressed size of the frame
// beginning at the start of src, without decompressing it. Returns an
// error if src does not hold a complete frame header/footer yet (the
// caller is expected to retry with more bytes for streaming enumeration).
func FindFrameCompressedSize(src []byte) (uint64, error) {
	if len(src) == 0 {
		return 0, fmt.Errorf("zstdc: empty input")
	}
	ret := C.ZSTD_findFrameCompressedSize(unsafe.Pointer(&src[0]), C.size_t(len(src)))
	if isError(ret) {
		return 0, fmt.Errorf("zstdc: findFrameCompressedSize: %s", errorName(ret))
	}
	return uint64(ret), nil
}

// GetFrameContentSize returns the decoded size embedded in the frame
// header, or one of ContentSizeUnknown/ContentSizeError.
func GetFrameContentSize(src []byte) (uint64, error) {
	if len(src) == 0 {
		return 0, fmt.Errorf("zstdc: empty input")
	}
	size := uint64(C.ZSTD_getFrameContentSize(unsafe.Pointer(&src[0]), C.size_t(len(src))))
	if size == ContentSizeError {
		return 0, fmt.Errorf("zstdc: getFrameContentSize: malformed frame header")
	}
	return size, nil
}

// ParseFrameHeader parses the frame header at the start of src.
func ParseFrameHeader(src []byte) (FrameHeader, error) {
	if len(src) == 0 {
		return FrameHeader{}, fmt.Errorf("zstdc: empty input")
	}
	var h C.ZSTD_frameHeader
	ret := C.ZSTD_getFrameHeader(&h, unsafe.Pointer(&src[0]), C.size_t(len(src)))
	if isError(C.size_t(ret)) {
		return FrameHeader{}, fmt.Errorf("zstdc: getFrameHeader: %s", errorName(C.size_t(ret)))
	}
	if ret > 0 {
		return FrameHeader{}, fmt.Errorf("zstdc: getFrameHeader: need %d more bytes", uint64(ret))
	}
	return FrameHeader{
		FrameContentSize: uint64(h.frameContentSize),
		WindowSize:       uint64(h.windowSize),
		BlockSizeMax:     uint32(h.blockSizeMax),
		FrameType:        uint32(h.frameType),
		HeaderSize:       uint32(h.headerSize),
		DictID:           uint32(h.dictID),
		ChecksumFlag:     h.checksumFlag != 0,
	}, nil
}

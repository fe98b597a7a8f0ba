package zstdc

/*
#cgo pkg-config: libzstd
#include <stdint.h>
#include <stdlib.h>
#include <zstd.h>
#include <zstd_errors.h>

static size_t zstdc_compress_stream2(ZSTD_CCtx* cctx,
	void* dst, size_t dst_size, size_t* dst_pos,
	const void* src, size_t src_size, size_t* src_pos,
	ZSTD_EndDirective endOp) {
	ZSTD_outBuffer out = { dst, dst_size, *dst_pos };
	ZSTD_inBuffer  in  = { src, src_size, *src_pos };
	size_t ret = ZSTD_compressStream2(cctx, &out, &in, endOp);
	*dst_pos = out.pos;
	*src_pos = in.pos;
	return ret;
}

static size_t zstdc_decompress_stream(ZSTD_DCtx* dctx,
	void* dst, size_t dst_size, size_t* dst_pos,
	const void* src, size_t src_size, size_t* src_pos) {
	ZSTD_outBuffer out = { dst, dst_size, *dst_pos };
	ZSTD_inBuffer  in  = { src, src_size, *src_pos };
	size_t ret = ZSTD_decompressStream(dctx, &out, &in);
	*dst_pos = out.pos;
	*src_pos = in.pos;
	return ret;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// EndDirective selects how ZSTD_compressStream2 should treat the call:
// keep accumulating input, flush what it has without ending the frame,
// or end the frame.
type EndDirective int

const (
	EndContinue EndDirective = C.ZSTD_e_continue
	EndFlush    EndDirective = C.ZSTD_e_flush
	EndEnd      EndDirective = C.ZSTD_e_end
)

// MinCompressionLevel and MaxCompressionLevel are the codec-reported
// bounds for the compression-level parameter.
func MinCompressionLevel() int { return int(C.ZSTD_minCLevel()) }
func MaxCompressionLevel() int { return int(C.ZSTD_maxCLevel()) }

// VersionNumber returns libzstd's encoded version (MAJOR*10000 + MINOR*100 + RELEASE).
func VersionNumber() int { return int(C.ZSTD_versionNumber()) }

// isError reports whether a size_t-shaped return value from the native
// API is in fact an error sentinel.
func isError(code C.size_t) bool { return C.ZSTD_isError(code) != 0 }

func errorName(code C.size_t) string { return C.GoString(C.ZSTD_getErrorName(code)) }

// CCtx wraps a native ZSTD_CCtx. It owns exactly one native handle and
// must be freed exactly once via Free.
type CCtx struct {
	ptr    *C.ZSTD_CCtx
	prefix []byte // retained so the pinned pointer stays alive for cgo
}

// NewCCtx allocates a native compression context.
func NewCCtx() (*CCtx, error) {
	ptr := C.ZSTD_createCCtx()
	if ptr == nil {
		return nil, fmt.Errorf("zstdc: ZSTD_createCCtx returned NULL")
	}
	return &CCtx{ptr: ptr}, nil
}

// Free releases the native handle. The handle is cleared after the first
// call, so a later call does nothing (the package-level Encoder also
// guards it with a sync.Once).
func (c *CCtx) Free() {
	if c.ptr != nil {
		C.ZSTD_freeCCtx(c.ptr)
		c.ptr = nil
	}
}

// Reset returns the context to session-only defaults, matching
// ZSTD_CCtx_reset(ctx, ZSTD_reset_session_only).
func (c *CCtx) Reset() error {
	ret := C.ZSTD_CCtx_reset(c.ptr, C.ZSTD_reset_session_only)
	if isError(ret) {
		return fmt.Errorf("zstdc: CCtx_reset: %s", errorName(ret))
	}
	c.prefix = nil
	return nil
}

// SetCompressionLevel pushes the compression-level parameter.
func (c *CCtx) SetCompressionLevel(level int) error {
	ret := C.ZSTD_CCtx_setParameter(c.ptr, C.ZSTD_c_compressionLevel, C.int(level))
	if isError(ret) {
		return fmt.Errorf("zstdc: setParameter(compressionLevel=%d): %s", level, errorName(ret))
	}
	return nil
}

// RefPrefix pins prefix and references it as the raw content prefix for
// the next frame. prefix must remain valid and unmodified until the next
// Reset; the caller is expected to have already copied it defensively.
func (c *CCtx) RefPrefix(prefix []byte) error {
	c.prefix = prefix
	var ptr unsafe.Pointer
	if len(prefix) > 0 {
		ptr = unsafe.Pointer(&prefix[0])
	}
	ret := C.ZSTD_CCtx_refPrefix(c.ptr, ptr, C.size_t(len(prefix)))
	if isError(ret) {
		return fmt.Errorf("zstdc: refPrefix: %s", errorName(ret))
	}
	return nil
}

// CompressStream2 drives one native streaming-compression step. It
// returns the number of bytes still owed to fully flush the requested
// end directive (0 once satisfied), or an error if the native call
// failed. consumed/written report the position advance within src/dst.
func (c *CCtx) CompressStream2(dst []byte, src []byte, end EndDirective) (remaining uint64, consumed int, written int, err error) {
	dstBuf := NewBuffer(dst)
	srcBuf := NewBuffer(src)

	dstPos := C.size_t(dstBuf.Pos)
	srcPos := C.size_t(srcBuf.Pos)

	var dstPtr unsafe.Pointer
	if len(dstBuf.Data) > 0 {
		dstPtr = unsafe.Pointer(&dstBuf.Data[0])
	}
	var srcPtr unsafe.Pointer
	if len(srcBuf.Data) > 0 {
		srcPtr = unsafe.Pointer(&srcBuf.Data[0])
	}

	ret := C.zstdc_compress_stream2(c.ptr,
		dstPtr, C.size_t(dstBuf.Size), &dstPos,
		srcPtr, C.size_t(srcBuf.Size), &srcPos,
		C.ZSTD_EndDirective(end))
	dstBuf.Pos = uint64(dstPos)
	srcBuf.Pos = uint64(srcPos)

	if isError(ret) {
		return 0, int(srcBuf.Pos), int(dstBuf.Pos), fmt.Errorf("zstdc: compressStream2: %s", errorName(ret))
	}
	return uint64(ret), int(srcBuf.Pos), int(dstBuf.Pos), nil
}

// DCtx wraps a native ZSTD_DCtx.
type DCtx struct {
	ptr *C.ZSTD_DCtx
}

// NewDCtx allocates a native decompression context.
func NewDCtx() (*DCtx, error) {
	ptr := C.ZSTD_createDCtx()
	if ptr == nil {
		return nil, fmt.Errorf("zstdc: ZSTD_createDCtx returned NULL")
	}
	return &DCtx{ptr: ptr}, nil
}

// Free releases the native handle. Safe to call once.
func (d *DCtx) Free() {
	if d.ptr != nil {
		C.ZSTD_freeDCtx(d.ptr)
		d.ptr = nil
	}
}

// Reset returns the context to session-only defaults.
func (d *DCtx) Reset() error {
	ret := C.ZSTD_DCtx_reset(d.ptr, C.ZSTD_reset_session_only)
	if isError(ret) {
		return fmt.Errorf("zstdc: DCtx_reset: %s", errorName(ret))
	}
	return nil
}

// SetMaxWindowLog sets the maximum accepted window log for untrusted input.
func (d *DCtx) SetMaxWindowLog(log int) error {
	ret := C.ZSTD_DCtx_setParameter(d.ptr, C.ZSTD_d_windowLogMax, C.int(log))
	if isError(ret) {
		return fmt.Errorf("zstdc: setParameter(windowLogMax=%d): %s", log, errorName(ret))
	}
	return nil
}

// DecompressStream drives one native streaming-decompression step. It
// returns 0 when the just-processed bytes completed the current frame,
// or a positive hint of further bytes expected otherwise.
func (d *DCtx) DecompressStream(dst []byte, src []byte) (hint uint64, consumed int, written int, err error) {
	dstBuf := NewBuffer(dst)
	srcBuf := NewBuffer(src)

	dstPos := C.size_t(dstBuf.Pos)
	srcPos := C.size_t(srcBuf.Pos)

	var dstPtr unsafe.Pointer
	if len(dstBuf.Data) > 0 {
		dstPtr = unsafe.Pointer(&dstBuf.Data[0])
	}
	var srcPtr unsafe.Pointer
	if len(srcBuf.Data) > 0 {
		srcPtr = unsafe.Pointer(&srcBuf.Data[0])
	}

	ret := C.zstdc_decompress_stream(d.ptr,
		dstPtr, C.size_t(dstBuf.Size), &dstPos,
		srcPtr, C.size_t(srcBuf.Size), &srcPos)
	dstBuf.Pos = uint64(dstPos)
	srcBuf.Pos = uint64(srcPos)

	if isError(ret) {
		return 0, int(srcBuf.Pos), int(dstBuf.Pos), fmt.Errorf("zstdc: decompressStream: %s", errorName(ret))
	}
	return uint64(ret), int(srcBuf.Pos), int(dstBuf.Pos), nil
}

// Package zstdc is a thin cgo binding over libzstd's advanced streaming
// API. It intentionally does no buffering, no retries, and no policy: it
// is the "native collaborator" that the rest of this module is written
// against, mirroring the shape of ZSTD_inBuffer/ZSTD_outBuffer and the
// unified ZSTD_compressStream2/ZSTD_decompressStream entry points.
package zstdc

// Buffer is the bit-exact layout libzstd expects for both ZSTD_inBuffer
// and ZSTD_outBuffer: a data pointer, the size available from that
// pointer, and a position the library advances as it consumes or
// produces bytes. Size and Pos are byte counts, not buffer capacities.
type Buffer struct {
	Data []byte
	Size uint64
	Pos  uint64
}

// NewBuffer wraps p as a zero-position descriptor over its full length.
func NewBuffer(p []byte) Buffer {
	return Buffer{Data: p, Size: uint64(len(p)), Pos: 0}
}

// Remaining reports how many bytes have not yet been consumed/produced.
func (b Buffer) Remaining() uint64 {
	if b.Pos >= b.Size {
		return 0
	}
	return b.Size - b.Pos
}

// Full reports whether the library has filled the buffer completely.
func (b Buffer) Full() bool {
	return b.Pos >= b.Size
}

package zstdstream

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWriter(t *testing.T, sink *bytes.Buffer) *Writer {
	t.Helper()
	enc, err := NewEncoder()
	require.NoError(t, err)
	w, err := NewWriter(sink, enc)
	require.NoError(t, err)
	return w
}

func decodeFull(t *testing.T, compressed []byte) []byte {
	t.Helper()
	dec, err := NewDecoder()
	require.NoError(t, err)
	defer dec.Dispose()
	return decompressAll(t, dec, compressed)
}

func TestWriterRoundTripSingleFrame(t *testing.T) {
	t.Parallel()

	var sink bytes.Buffer
	w := newTestWriter(t, &sink)

	input := []byte("hello zstd hello zstd hello zstd")
	n, err := w.Write(input)
	require.NoError(t, err)
	assert.Equal(t, len(input), n)
	require.NoError(t, w.Close())

	assert.Equal(t, input, decodeFull(t, sink.Bytes()))
}

func TestWriterChunkShapeIndependence(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("chunk shape independence payload "), 500)

	compressWithChunkSize := func(chunk int) []byte {
		var sink bytes.Buffer
		enc, err := NewEncoder()
		require.NoError(t, err)
		w, err := NewWriter(&sink, enc)
		require.NoError(t, err)
		for off := 0; off < len(payload); off += chunk {
			end := off + chunk
			if end > len(payload) {
				end = len(payload)
			}
			_, err := w.Write(payload[off:end])
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())
		return sink.Bytes()
	}

	a := compressWithChunkSize(7)
	b := compressWithChunkSize(4096)

	assert.Equal(t, payload, decodeFull(t, a))
	assert.Equal(t, payload, decodeFull(t, b))
}

func TestWriterFlushDoesNotTerminate(t *testing.T) {
	t.Parallel()

	var sink bytes.Buffer
	w := newTestWriter(t, &sink)

	_, err := w.Write([]byte("part one "))
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	_, err = w.Write([]byte("part two"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, []byte("part one part two"), decodeFull(t, sink.Bytes()))
}

func TestWriterFlushFrameTerminationAndIdempotence(t *testing.T) {
	t.Parallel()

	var sink bytes.Buffer
	w := newTestWriter(t, &sink)

	a := bytes.Repeat([]byte("A"), 4096)
	b := bytes.Repeat([]byte("B"), 4096)
	c := bytes.Repeat([]byte("C"), 4096)

	_, err := w.Write(a)
	require.NoError(t, err)
	require.NoError(t, w.FlushFrame())
	require.NoError(t, w.FlushFrame()) // idempotent: no intervening write

	_, err = w.Write(b)
	require.NoError(t, err)
	require.NoError(t, w.FlushFrame())

	_, err = w.Write(c)
	require.NoError(t, err)
	require.NoError(t, w.Close()) // implicit final FlushFrame-equivalent

	frames, err := EnumerateFrames(sink.Bytes())
	require.NoError(t, err)
	require.Len(t, frames, 3, "exactly N FlushFrame-bounded frames, no empty trailing frame")

	dec, err := NewDecoder()
	require.NoError(t, err)
	defer dec.Dispose()
	assert.Equal(t, append(append(a, b...), c...), decompressAll(t, dec, sink.Bytes()))
}

func TestWriterExclusivity(t *testing.T) {
	t.Parallel()

	var sink bytes.Buffer
	w := newTestWriter(t, &sink)
	defer w.Close()

	require.NoError(t, w.guard.enter("external"))
	_, err := w.Write([]byte("should fail"))
	require.Error(t, err)
	assert.True(t, Is(err, KindIllegalState))
	w.guard.exit()
}

func TestWriterCancellationSafety(t *testing.T) {
	t.Parallel()

	var sink bytes.Buffer
	w := newTestWriter(t, &sink)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := w.WriteContext(ctx, []byte("cancelled"))
	require.Error(t, err)
	assert.True(t, Is(err, KindCancelled))
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, sink.Len())
}

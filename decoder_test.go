package zstdstream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decompressAll(t *testing.T, dec *Decoder, src []byte) []byte {
	t.Helper()

	var out bytes.Buffer
	dst := make([]byte, 4096)
	for {
		status, consumed, written, frameFinished, err := dec.Decompress(dst, src, true)
		require.NoError(t, err)
		out.Write(dst[:written])
		src = src[consumed:]
		if status == Done && frameFinished && len(src) == 0 {
			break
		}
	}
	return out.Bytes()
}

func TestDecoderRoundTripSingleFrame(t *testing.T) {
	t.Parallel()

	input := []byte("round trip me please")
	enc, err := NewEncoder()
	require.NoError(t, err)
	defer enc.Dispose()
	compressed := compressAll(t, enc, append([]byte(nil), input...))

	dec, err := NewDecoder()
	require.NoError(t, err)
	defer dec.Dispose()

	got := decompressAll(t, dec, compressed)
	assert.Equal(t, input, got)
}

func TestDecoderSetMaxWindowRange(t *testing.T) {
	t.Parallel()

	dec, err := NewDecoder()
	require.NoError(t, err)
	defer dec.Dispose()

	require.NoError(t, dec.SetMaxWindow(20))

	err = dec.SetMaxWindow(9)
	require.Error(t, err)
	assert.True(t, Is(err, KindInvalidArgument))

	err = dec.SetMaxWindow(32)
	require.Error(t, err)
	assert.True(t, Is(err, KindInvalidArgument))
}

func TestDecoderTruncationSafety(t *testing.T) {
	t.Parallel()

	input := bytes.Repeat([]byte("truncate me "), 2000)
	enc, err := NewEncoder()
	require.NoError(t, err)
	defer enc.Dispose()
	compressed := compressAll(t, enc, append([]byte(nil), input...))

	truncated := compressed[:len(compressed)/2]

	dec, err := NewDecoder()
	require.NoError(t, err)
	defer dec.Dispose()

	dst := make([]byte, len(input))
	total := 0
	src := truncated
	for {
		status, consumed, written, _, err := dec.Decompress(dst[total:], src, true)
		require.NoError(t, err)
		total += written
		src = src[consumed:]
		if status != DestinationTooSmall {
			break
		}
	}
	assert.LessOrEqual(t, total, len(input))
	assert.Equal(t, input[:total], dst[:total])
}

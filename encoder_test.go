package zstdstream

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compressAll(t *testing.T, enc *Encoder, src []byte) []byte {
	t.Helper()

	var out bytes.Buffer
	dst := make([]byte, 4096)
	for len(src) > 0 {
		status, consumed, written, err := enc.Compress(dst, src, false)
		require.NoError(t, err)
		out.Write(dst[:written])
		src = src[consumed:]
		if status == DestinationTooSmall {
			continue
		}
	}
	for {
		status, _, written, err := enc.Compress(dst, nil, true)
		require.NoError(t, err)
		out.Write(dst[:written])
		if status == Done {
			break
		}
	}
	return out.Bytes()
}

func TestEncoderCompressSingleFrame(t *testing.T) {
	t.Parallel()

	enc, err := NewEncoder()
	require.NoError(t, err)
	defer enc.Dispose()

	input := []byte(strings.Repeat("hello zstd", 100))
	compressed := compressAll(t, enc, input)
	assert.Less(t, len(compressed), len(input))
}

func TestEncoderConfigurationLock(t *testing.T) {
	t.Parallel()

	enc, err := NewEncoder()
	require.NoError(t, err)
	defer enc.Dispose()

	dst := make([]byte, 64)
	_, _, _, err = enc.Compress(dst, []byte("x"), false)
	require.NoError(t, err)

	err = enc.SetCompressionLevel(3)
	require.Error(t, err)
	assert.True(t, Is(err, KindIllegalState))

	err = enc.SetPrefix([]byte("p"))
	require.Error(t, err)
	assert.True(t, Is(err, KindIllegalState))

	require.NoError(t, enc.Reset())
	assert.NoError(t, enc.SetCompressionLevel(3))
	assert.NoError(t, enc.SetPrefix([]byte("p")))
}

func TestEncoderRejectsOutOfRangeLevel(t *testing.T) {
	t.Parallel()

	enc, err := NewEncoder()
	require.NoError(t, err)
	defer enc.Dispose()

	err = enc.SetCompressionLevel(1 << 30)
	require.Error(t, err)
	assert.True(t, Is(err, KindInvalidArgument))
}

func TestEncoderPrefixNonRegression(t *testing.T) {
	t.Parallel()

	prefix := []byte("HEADER-1234567890-ABCDEFG")
	var payload bytes.Buffer
	payload.Write(prefix)
	for i := 0; i < 200; i++ {
		payload.WriteString("HEADER-1234-repeat-XYZ-")
	}

	withPrefix, err := NewEncoder(WithPrefix(prefix))
	require.NoError(t, err)
	defer withPrefix.Dispose()
	compressedWithPrefix := compressAll(t, withPrefix, append([]byte(nil), payload.Bytes()...))

	without, err := NewEncoder()
	require.NoError(t, err)
	defer without.Dispose()
	compressedWithoutPrefix := compressAll(t, without, append([]byte(nil), payload.Bytes()...))

	assert.LessOrEqual(t, len(compressedWithPrefix), len(compressedWithoutPrefix))
}

func TestEncoderLevelMonotonicity(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 4000)

	min, err := Level(QualityFastest)
	require.NoError(t, err)
	max, err := Level(QualityBest)
	require.NoError(t, err)

	fastEnc, err := NewEncoder(WithLevel(min))
	require.NoError(t, err)
	defer fastEnc.Dispose()
	fastSize := len(compressAll(t, fastEnc, append([]byte(nil), payload...)))

	bestEnc, err := NewEncoder(WithLevel(max))
	require.NoError(t, err)
	defer bestEnc.Dispose()
	bestSize := len(compressAll(t, bestEnc, append([]byte(nil), payload...)))

	assert.LessOrEqual(t, bestSize, fastSize)
}

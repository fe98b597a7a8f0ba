package zstdstream

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressAllThenDecompressAllRoundTrip(t *testing.T) {
	t.Parallel()

	payloads := make([][]byte, 8)
	for i := range payloads {
		payloads[i] = bytes.Repeat([]byte(fmt.Sprintf("job-%d-", i)), 1000)
	}

	dests := make([]bytes.Buffer, len(payloads))
	jobs := make([]CompressJob, len(payloads))
	for i, p := range payloads {
		jobs[i] = CompressJob{Source: p, Dest: &dests[i], Level: QualityFastest}
	}
	require.NoError(t, CompressAll(context.Background(), jobs))

	results := make([]bytes.Buffer, len(payloads))
	djobs := make([]DecompressJob, len(payloads))
	for i := range payloads {
		djobs[i] = DecompressJob{Source: dests[i].Bytes(), Dest: &results[i]}
	}
	require.NoError(t, DecompressAll(context.Background(), djobs))

	for i, p := range payloads {
		assert.Equal(t, p, results[i].Bytes())
	}
}

func TestCompressAllRejectsUnknownQuality(t *testing.T) {
	t.Parallel()

	var dest bytes.Buffer
	jobs := []CompressJob{{Source: []byte("x"), Dest: &dest, Level: Quality(999)}}
	err := CompressAll(context.Background(), jobs)
	require.Error(t, err)
	assert.True(t, Is(err, KindInvalidArgument))
}

func TestDecompressAllRejectsTruncatedJob(t *testing.T) {
	t.Parallel()

	var sink bytes.Buffer
	enc, err := NewEncoder()
	require.NoError(t, err)
	w, err := NewWriter(&sink, enc)
	require.NoError(t, err)
	_, err = w.Write(bytes.Repeat([]byte("truncated batch job "), 2000))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	truncated := sink.Bytes()[:len(sink.Bytes())/2]
	var dest bytes.Buffer
	jobs := []DecompressJob{{Source: truncated, Dest: &dest}}
	err = DecompressAll(context.Background(), jobs)
	require.Error(t, err)
	assert.True(t, Is(err, KindTruncation))
}

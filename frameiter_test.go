package zstdstream

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameIteratorYieldsEachFrame(t *testing.T) {
	t.Parallel()

	a := []byte("frame one payload")
	b := []byte("frame two payload, a bit longer")

	var sink bytes.Buffer
	enc, err := NewEncoder()
	require.NoError(t, err)
	w, err := NewWriter(&sink, enc)
	require.NoError(t, err)
	for _, chunk := range [][]byte{a, b} {
		_, err := w.Write(chunk)
		require.NoError(t, err)
		require.NoError(t, w.FlushFrame())
	}
	require.NoError(t, w.Close())

	dec, err := NewDecoder()
	require.NoError(t, err)
	it := NewFrameIterator(bytes.NewReader(sink.Bytes()), dec)
	defer it.Close()

	first, _, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, a, first)

	second, _, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, b, second)

	_, _, err = it.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameIteratorMaxFrameSize(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("z"), 1<<20)
	var sink bytes.Buffer
	enc, err := NewEncoder()
	require.NoError(t, err)
	w, err := NewWriter(&sink, enc)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	dec, err := NewDecoder()
	require.NoError(t, err)
	it := NewFrameIterator(bytes.NewReader(sink.Bytes()), dec, WithMaxFrameSize(4096))
	defer it.Close()

	_, _, err = it.Next()
	require.Error(t, err)
	assert.True(t, Is(err, KindResourceLimit))
}

func TestFrameIteratorMetadataReportsContentSize(t *testing.T) {
	t.Parallel()

	payload := []byte("metadata carrying payload")
	var sink bytes.Buffer
	enc, err := NewEncoder()
	require.NoError(t, err)
	w, err := NewWriter(&sink, enc)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	dec, err := NewDecoder()
	require.NoError(t, err)
	it := NewFrameIterator(bytes.NewReader(sink.Bytes()), dec)
	defer it.Close()

	data, meta, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	if meta.ContentSize != zstdContentSizeUnknownForTest {
		assert.Equal(t, uint64(len(payload)), meta.ContentSize)
	}
}

// zstdContentSizeUnknownForTest mirrors ZSTD_CONTENTSIZE_UNKNOWN so the
// metadata assertion above tolerates an encoder that didn't embed a
// content size (e.g. with content-size writing disabled upstream).
const zstdContentSizeUnknownForTest = 0xFFFFFFFFFFFFFFFF

func TestFrameIteratorCancellationSafety(t *testing.T) {
	t.Parallel()

	payload := []byte("cancel before iterating anything")
	var sink bytes.Buffer
	enc, err := NewEncoder()
	require.NoError(t, err)
	w, err := NewWriter(&sink, enc)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	dec, err := NewDecoder()
	require.NoError(t, err)
	it := NewFrameIterator(bytes.NewReader(sink.Bytes()), dec)
	defer it.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = it.NextContext(ctx)
	require.Error(t, err)
	assert.True(t, Is(err, KindCancelled))
}

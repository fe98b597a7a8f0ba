package zstdstream

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWrapsCauseAndKind(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("boom")
	err := newErr("Compress", KindInvalidData, cause)

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Compress")
	assert.Contains(t, err.Error(), "InvalidData")

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindInvalidData, kind)
	assert.True(t, Is(err, KindInvalidData))
	assert.False(t, Is(err, KindFatal))
}

func TestKindOfNonModuleError(t *testing.T) {
	t.Parallel()

	kind, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
	assert.Equal(t, KindFatal, kind)
}

func TestKindStringCoversAllValues(t *testing.T) {
	t.Parallel()

	kinds := []Kind{
		KindFatal, KindInvalidArgument, KindIllegalState, KindInvalidData,
		KindTruncation, KindResourceLimit, KindCancelled,
	}
	seen := map[string]bool{}
	for _, k := range kinds {
		s := k.String()
		assert.NotEmpty(t, s)
		seen[s] = true
	}
	assert.Len(t, seen, len(kinds))
}

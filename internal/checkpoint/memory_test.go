package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_DuplicateDetection(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	dup, err := s.IsDuplicate(ctx, "+1", 100)
	require.NoError(t, err)
	assert.False(t, dup)

	require.NoError(t, s.MarkProcessed(ctx, "+1", 100, 0))

	dup, err = s.IsDuplicate(ctx, "+1", 100)
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestMemoryStore_EvictsOldestWhenOverCapacity(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, s.MarkProcessed(ctx, "+1", 1, 0))
	require.NoError(t, s.MarkProcessed(ctx, "+1", 2, 0))
	require.NoError(t, s.MarkProcessed(ctx, "+1", 3, 0))

	dup, _ := s.IsDuplicate(ctx, "+1", 1)
	assert.False(t, dup, "oldest entry should have been evicted")

	dup, _ = s.IsDuplicate(ctx, "+1", 3)
	assert.True(t, dup)
}

func TestMemoryStore_DifferentSourcesIndependent(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	require.NoError(t, s.MarkProcessed(ctx, "+1", 5, 0))

	dup, _ := s.IsDuplicate(ctx, "+2", 5)
	assert.False(t, dup)
}

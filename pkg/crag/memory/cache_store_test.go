package memory

import (
	"context"
	"fmt"
	"testing"

	"crag-notes-be/pkg/crag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStoreEmptyThread(t *testing.T) {
	store := NewCacheStore(20)

	turns, err := store.LoadThreadMemory(context.Background(), "no-such-thread")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestCacheStoreBoundedFIFO(t *testing.T) {
	store := NewCacheStore(20)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		err := store.AppendThreadMemory(ctx, "thread-1", crag.MemoryTurn{
			Question:     fmt.Sprintf("q%d", i),
			Answer:       fmt.Sprintf("a%d", i),
			SubjectId:    "subject-1",
			CreatedAtIso: fmt.Sprintf("2026-01-01T00:00:%02dZ", i),
		})
		require.NoError(t, err)
	}

	turns, err := store.LoadThreadMemory(ctx, "thread-1")
	require.NoError(t, err)
	require.Len(t, turns, 20)

	// The oldest five turns were evicted; the rest are oldest-first.
	assert.Equal(t, "q5", turns[0].Question)
	assert.Equal(t, "q24", turns[19].Question)
}

func TestCacheStoreThreadsAreIndependent(t *testing.T) {
	store := NewCacheStore(20)
	ctx := context.Background()

	require.NoError(t, store.AppendThreadMemory(ctx, "thread-a", crag.MemoryTurn{Question: "qa"}))
	require.NoError(t, store.AppendThreadMemory(ctx, "thread-b", crag.MemoryTurn{Question: "qb"}))

	turnsA, err := store.LoadThreadMemory(ctx, "thread-a")
	require.NoError(t, err)
	require.Len(t, turnsA, 1)
	assert.Equal(t, "qa", turnsA[0].Question)

	turnsB, err := store.LoadThreadMemory(ctx, "thread-b")
	require.NoError(t, err)
	require.Len(t, turnsB, 1)
	assert.Equal(t, "qb", turnsB[0].Question)
}

func TestCacheStoreLoadReturnsCopy(t *testing.T) {
	store := NewCacheStore(20)
	ctx := context.Background()

	require.NoError(t, store.AppendThreadMemory(ctx, "thread-1", crag.MemoryTurn{Question: "original"}))

	turns, err := store.LoadThreadMemory(ctx, "thread-1")
	require.NoError(t, err)
	turns[0].Question = "mutated"

	reloaded, err := store.LoadThreadMemory(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "original", reloaded[0].Question)
}

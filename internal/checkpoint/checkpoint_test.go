package checkpoint_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiSchool-Admin/quran-miracles/internal/checkpoint"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

func TestCheckpoint_BeginPutFinishLifecycle(t *testing.T) {
	store := checkpoint.New(nil)
	ctx := context.Background()

	require.NoError(t, store.Begin(ctx, "sess-1", state.State{Query: "q"}))

	store.Put(ctx, "sess-1", state.State{Query: "q", IterationCount: 1})
	snap, ok := store.Get("sess-1")
	require.True(t, ok)
	assert.Equal(t, 1, snap.IterationCount)

	store.Finish(ctx, "sess-1", state.State{Query: "q", IterationCount: 2, Synthesis: "done"})
	snap, ok = store.Get("sess-1")
	require.True(t, ok)
	assert.Equal(t, "done", snap.Synthesis)
}

func TestCheckpoint_BeginRejectsSecondConcurrentRunForSameSession(t *testing.T) {
	store := checkpoint.New(nil)
	ctx := context.Background()

	require.NoError(t, store.Begin(ctx, "sess-1", state.State{}))
	err := store.Begin(ctx, "sess-1", state.State{})
	assert.Error(t, err)
}

func TestCheckpoint_BeginSucceedsAgainAfterFinish(t *testing.T) {
	store := checkpoint.New(nil)
	ctx := context.Background()

	require.NoError(t, store.Begin(ctx, "sess-1", state.State{}))
	store.Finish(ctx, "sess-1", state.State{})
	assert.NoError(t, store.Begin(ctx, "sess-1", state.State{}))
}

func TestCheckpoint_EvictsLeastRecentlyUsedBeyondCapacity(t *testing.T) {
	store := checkpoint.New(nil, checkpoint.WithCapacity(2))
	ctx := context.Background()

	require.NoError(t, store.Begin(ctx, "a", state.State{}))
	require.NoError(t, store.Begin(ctx, "b", state.State{}))
	require.NoError(t, store.Begin(ctx, "c", state.State{})) // evicts "a"

	_, ok := store.Get("a")
	assert.False(t, ok, "oldest session should have been evicted")
	_, ok = store.Get("b")
	assert.True(t, ok)
	_, ok = store.Get("c")
	assert.True(t, ok)
}

func TestCheckpoint_GetMissingSessionReturnsFalse(t *testing.T) {
	store := checkpoint.New(nil)
	_, ok := store.Get("never-began")
	assert.False(t, ok)
}

func TestCheckpoint_ClearRemovesEntry(t *testing.T) {
	store := checkpoint.New(nil)
	ctx := context.Background()
	require.NoError(t, store.Begin(ctx, "sess-1", state.State{}))

	store.Clear("sess-1")
	_, ok := store.Get("sess-1")
	assert.False(t, ok)
}

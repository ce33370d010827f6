package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_SaveAndSearch(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(KindShortTerm, 0)

	require.NoError(t, store.Save(ctx, "the invoice for acme corp was overdue", nil))
	require.NoError(t, store.Save(ctx, "weather in paris is sunny today", nil))

	results, err := store.Search(ctx, "acme invoice overdue", 5, 0.2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Content, "acme")
}

func TestInMemoryStore_ScoreThresholdExcludesIrrelevant(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(KindEntity, 0)
	require.NoError(t, store.Save(ctx, "zzz completely unrelated text", nil))

	results, err := store.Search(ctx, "acme invoice", 5, 0.9)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestInMemoryStore_CapEvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(KindShortTerm, 2)

	require.NoError(t, store.Save(ctx, "first", nil))
	require.NoError(t, store.Save(ctx, "second", nil))
	require.NoError(t, store.Save(ctx, "third", nil))

	results, err := store.Search(ctx, "first", 10, 0)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "first", r.Content)
	}
}

func TestInMemoryStore_LimitCaps(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(KindExternal, 0)
	for i := 0; i < 10; i++ {
		require.NoError(t, store.Save(ctx, "acme invoice record", nil))
	}

	results, err := store.Search(ctx, "acme invoice record", 3, 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestAsyncSaveAndSearch(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(KindShortTerm, 0)

	saveRes := <-AsyncSave(ctx, store, "acme invoice overdue", nil)
	require.NoError(t, saveRes.Err)

	searchRes := <-AsyncSearch(ctx, store, "acme invoice overdue", 5, 0.2)
	require.NoError(t, searchRes.Err)
	require.NotEmpty(t, searchRes.Results)
}

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteLongTermStore_SaveAndSearch(t *testing.T) {
	store, err := NewSQLiteLongTermStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "acme corp signed a renewal in march", map[string]any{"quality_score": 0.9}))
	require.NoError(t, store.Save(ctx, "unrelated weather note", map[string]any{"quality_score": 0.9}))

	results, err := store.Search(ctx, "acme renewal march", 5, 0.2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Content, "acme")
	assert.Equal(t, KindLongTerm, store.Kind())
}

func TestSQLiteLongTermStore_QualityScoreBiasesRanking(t *testing.T) {
	store, err := NewSQLiteLongTermStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "acme renewal record alpha", map[string]any{"quality_score": 0.2}))
	require.NoError(t, store.Save(ctx, "acme renewal record beta", map[string]any{"quality_score": 1.0}))

	results, err := store.Search(ctx, "acme renewal record", 5, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Contains(t, results[0].Content, "beta")
}

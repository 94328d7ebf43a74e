package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trader/internal/cache"
	"sentiment-trader/internal/types"
)

func seed(t *testing.T, dir string) {
	t.Helper()
	ctx := context.Background()
	c, err := cache.Open(dir)
	require.NoError(t, err)
	rec := []types.Record{{Headline: types.Headline{URL: "u", Title: "t"}, Sentiment: types.Negative}}
	require.NoError(t, c.Save(ctx, "2024-03-12_0930", "MSFT", rec))
	require.NoError(t, c.Save(ctx, "2024-03-12_0930", "AAPL", rec))
	require.NoError(t, c.Save(ctx, "2024-03-13_1600", "TSLA", rec))
	require.NoError(t, c.Close())
}

func TestMaintainCacheListsThenPurges(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir)
	windows := []string{"2024-03-12_0930", "2024-03-13_1600"}

	stale, err := maintainCache(context.Background(), dir, windows, "2024-03-13_1600")
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"2024-03-12_0930": {"AAPL", "MSFT"}}, stale)

	c, err := cache.Open(dir)
	require.NoError(t, err)
	defer c.Close()
	gone, err := c.Tickers("2024-03-12_0930")
	require.NoError(t, err)
	assert.Empty(t, gone)
	kept, err := c.Tickers("2024-03-13_1600")
	require.NoError(t, err)
	assert.Equal(t, []string{"TSLA"}, kept)
}

func TestMaintainCacheWithoutPurge(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir)

	stale, err := maintainCache(context.Background(), dir, []string{"2024-03-12_0930"}, "")
	require.NoError(t, err)
	assert.Empty(t, stale)
}

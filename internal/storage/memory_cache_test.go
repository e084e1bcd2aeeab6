package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/job-insights/internal/types"
)

func TestMemoryReportCache_GetSet(t *testing.T) {
	cache := NewMemoryReportCache(time.Minute)
	ctx := context.Background()
	weights := types.DefaultWeights()

	_, ok, err := cache.Get(ctx, "snap-1", weights)
	require.NoError(t, err)
	assert.False(t, ok)

	report := &types.Report{SnapshotID: "snap-1", Weights: weights}
	require.NoError(t, cache.Set(ctx, report))

	got, ok, err := cache.Get(ctx, "snap-1", weights)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, report, got)

	// Different weights are a different entry
	_, ok, _ = cache.Get(ctx, "snap-1", types.Weights{Success: 1})
	assert.False(t, ok)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestMemoryReportCache_Expiry(t *testing.T) {
	cache := NewMemoryReportCache(time.Minute)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &types.Report{SnapshotID: "old", Weights: types.DefaultWeights()}))
	now = now.Add(2 * time.Minute)

	_, ok, err := cache.Get(ctx, "old", types.DefaultWeights())
	require.NoError(t, err)
	assert.False(t, ok)

	// The next write sweeps the expired entry
	require.NoError(t, cache.Set(ctx, &types.Report{SnapshotID: "new", Weights: types.DefaultWeights()}))
	assert.Equal(t, 1, cache.Stats().Entries)
}

func TestMemoryReportCache_Invalidate(t *testing.T) {
	cache := NewMemoryReportCache(0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &types.Report{SnapshotID: "snap-1", Weights: types.DefaultWeights()}))
	require.NoError(t, cache.Set(ctx, &types.Report{SnapshotID: "snap-1", Weights: types.Weights{Success: 1}}))
	require.NoError(t, cache.Set(ctx, &types.Report{SnapshotID: "snap-10", Weights: types.DefaultWeights()}))

	require.NoError(t, cache.Invalidate(ctx, "snap-1"))

	_, ok, _ := cache.Get(ctx, "snap-1", types.DefaultWeights())
	assert.False(t, ok)
	_, ok, _ = cache.Get(ctx, "snap-10", types.DefaultWeights())
	assert.True(t, ok, "prefix match must not cross snapshot ids")
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Hour, nil)
	defer c.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	entry := &core.CacheEntry{
		Fingerprint: "abc123",
		Score:       8,
		Tier:        core.TierHigh,
		Confidence:  0.9,
		LastSeen:    now,
		ExpiresAt:   now.Add(time.Hour),
	}

	require.NoError(t, c.Set(ctx, entry))

	got, err := c.Get(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.Score, got.Score)
	assert.Equal(t, core.TierHigh, got.Tier)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Hour, nil)
	defer c.Close()

	got, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Hour, nil)
	defer c.Close()

	ctx := context.Background()
	entry := &core.CacheEntry{
		Fingerprint: "short-lived",
		Score:       5,
		Tier:        core.TierMedium,
		LastSeen:    time.Now().Add(-2 * time.Hour),
		ExpiresAt:   time.Now().Add(-time.Hour),
	}
	require.NoError(t, c.Set(ctx, entry))

	got, err := c.Get(ctx, "short-lived")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCacheSetExpiredEntrySkipsStore(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Hour, nil)
	defer c.Close()

	entry := &core.CacheEntry{
		Fingerprint: "stale",
		Score:       5,
		Tier:        core.TierMedium,
		LastSeen:    time.Now().Add(-2 * time.Hour),
		ExpiresAt:   time.Now().Add(-time.Minute),
	}
	require.NoError(t, c.Set(context.Background(), entry))

	// The entry must not be resurrected for the default TTL.
	assert.Equal(t, 0, c.store.ItemCount())
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Hour, nil)
	defer c.Close()

	ctx := context.Background()
	entry := &core.CacheEntry{
		Fingerprint: "gone",
		Score:       3,
		Tier:        core.TierLow,
		LastSeen:    time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, c.Set(ctx, entry))
	require.NoError(t, c.Delete(ctx, "gone"))

	got, err := c.Get(ctx, "gone")
	require.NoError(t, err)
	assert.Nil(t, got)
}

package agentlog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisSummaryCache, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() {
		client.Close()
	})

	return NewSummaryCache(client, ttl), srv
}

func TestSummaryCache_RoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	summary := Summarize("s1", []LogEntry{
		{SessionID: "s1", AgentType: "writer", MessageType: "info", Timestamp: time.Now().UTC()},
	})
	require.NoError(t, cache.Set(ctx, summary))

	got, err := cache.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, 1, got.TotalMessages)
}

func TestSummaryCache_MissIsNotAnError(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)

	got, err := cache.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSummaryCache_EntriesExpire(t *testing.T) {
	cache, srv := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, Summarize("s1", nil)))

	srv.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSummaryCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, Summarize("s1", nil)))
	require.NoError(t, cache.Invalidate(ctx, "s1"))

	got, err := cache.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSummaryCache_KeysArePrefixed(t *testing.T) {
	cache, srv := newTestCache(t, time.Minute)

	require.NoError(t, cache.Set(context.Background(), Summarize("s1", nil)))
	assert.True(t, srv.Exists("summary:s1"))
}

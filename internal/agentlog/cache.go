package agentlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"relay/internal/constants"
	"relay/pkg/metrics"
)

// SummaryCache keeps computed summaries hot so repeated reads of an active
// session skip the aggregation pass. A miss is never an error.
type SummaryCache interface {
	Get(ctx context.Context, sessionID string) (*Summary, error)
	Set(ctx context.Context, summary *Summary) error
	Invalidate(ctx context.Context, sessionID string) error
}

type RedisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSummaryCache(client *redis.Client, ttl time.Duration) *RedisSummaryCache {
	if ttl <= 0 {
		ttl = constants.DefaultSummaryCacheTTL
	}
	return &RedisSummaryCache{client: client, ttl: ttl}
}

func (c *RedisSummaryCache) Get(ctx context.Context, sessionID string) (*Summary, error) {
	raw, err := c.client.Get(ctx, cacheKey(sessionID)).Bytes()
	if err == redis.Nil {
		metrics.SummaryCacheRequestsTotal.WithLabelValues("miss").Inc()
		return nil, nil
	}
	if err != nil {
		metrics.SummaryCacheRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var summary Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		metrics.SummaryCacheRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to decode cached summary: %w", err)
	}

	metrics.SummaryCacheRequestsTotal.WithLabelValues("hit").Inc()
	return &summary, nil
}

func (c *RedisSummaryCache) Set(ctx context.Context, summary *Summary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(summary.SessionID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *RedisSummaryCache) Invalidate(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, cacheKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func cacheKey(sessionID string) string {
	return constants.CacheKeyPrefixSummary + sessionID
}

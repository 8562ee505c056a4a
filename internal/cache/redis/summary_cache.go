package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tickerScope/internal/model"
)

const summaryKey = "ticker:summary:v2"

// SummaryCache stores the latest summary as one JSON string with a TTL.
type SummaryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSummaryCache creates a SummaryCache backed by the given Client.
func NewSummaryCache(c *Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{rdb: c.rdb, ttl: ttl}
}

// Load returns the cached summary. The boolean is false on a miss.
func (sc *SummaryCache) Load(ctx context.Context) (model.Summary, bool, error) {
	data, err := sc.rdb.Get(ctx, summaryKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis: get summary: %w", err)
	}

	var summary model.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, false, fmt.Errorf("redis: unmarshal summary: %w", err)
	}
	return summary, true, nil
}

// Store writes summary under the cache key with the configured TTL.
func (sc *SummaryCache) Store(ctx context.Context, summary model.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("redis: marshal summary: %w", err)
	}
	if err := sc.rdb.Set(ctx, summaryKey, data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set summary: %w", err)
	}
	return nil
}

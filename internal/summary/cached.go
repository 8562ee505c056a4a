package summary

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"tickerScope/internal/model"
)

// Cache stores the last computed summary.
type Cache interface {
	Load(ctx context.Context) (model.Summary, bool, error)
	Store(ctx context.Context, summary model.Summary) error
}

// CachedService serves summaries from a cache and falls back to the live
// provider on a miss. Concurrent misses share one live computation.
type CachedService struct {
	next    Provider
	cache   Cache
	timeout time.Duration
	group   singleflight.Group
	logger  *zap.Logger
}

// NewCachedService wraps next with cache. The shared live computation is
// detached from any single caller and bounded by timeout when positive.
func NewCachedService(next Provider, cache Cache, timeout time.Duration, logger *zap.Logger) *CachedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedService{next: next, cache: cache, timeout: timeout, logger: logger}
}

// Summary returns the cached summary when present. Cache failures are logged
// and never fail the call; failed live computations are not cached. A caller
// whose ctx ends stops waiting without cancelling the computation for others.
func (c *CachedService) Summary(ctx context.Context) (model.Summary, error) {
	cached, ok, err := c.cache.Load(ctx)
	if err != nil {
		c.logger.Warn("summary cache load failed", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	ch := c.group.DoChan("summary", func() (interface{}, error) {
		return c.compute(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(model.Summary), nil
	}
}

func (c *CachedService) compute(ctx context.Context) (model.Summary, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	summary, err := c.next.Summary(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Store(ctx, summary); err != nil {
		c.logger.Warn("summary cache store failed", zap.Error(err))
	}
	return summary, nil
}

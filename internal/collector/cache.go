package collector

import (
	"context"
	"time"

	"github.com/LJTian/FeedHub/internal/logger"
)

// PageCache 按目标地址缓存抓到的 HTML，storage.RedisPageCache 是线上实现
type PageCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, html string, ttl time.Duration) error
}

// CachedFetcher 命中缓存时不再访问源站；缓存读写失败只记日志，不影响抓取
type CachedFetcher struct {
	Next  Fetcher
	Cache PageCache
	TTL   time.Duration
}

func NewCachedFetcher(next Fetcher, cache PageCache, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{Next: next, Cache: cache, TTL: ttl}
}

func (c *CachedFetcher) Name() string {
	return "cached-" + c.Next.Name()
}

func (c *CachedFetcher) Fetch(ctx context.Context, target string) (string, error) {
	key := c.Next.Name() + ":" + target

	html, ok, err := c.Cache.Get(ctx, key)
	switch {
	case err != nil:
		logger.Warnf("page cache get %s: %v", target, err)
	case ok:
		logger.Debugf("page cache hit: %s", target)
		return html, nil
	}

	html, err = c.Next.Fetch(ctx, target)
	if err != nil {
		return "", err
	}
	if err := c.Cache.Set(ctx, key, html, c.TTL); err != nil {
		logger.Warnf("page cache set %s: %v", target, err)
	}
	return html, nil
}

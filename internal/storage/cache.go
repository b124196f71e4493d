package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pageKeyPrefix = "feedhub:page:"

// RedisPageCache 短期缓存抓到的列表页，同一页面在 TTL 内重复运行不再访问源站
type RedisPageCache struct {
	Client *redis.Client
}

// NewRedisPageCache 连接 Redis 并 ping 一次，连不上直接返回错误由调用方决定是否放弃缓存
func NewRedisPageCache(addr string) (*RedisPageCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisPageCache{Client: rdb}, nil
}

func (c *RedisPageCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.Client.Get(ctx, pageKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *RedisPageCache) Set(ctx context.Context, key, html string, ttl time.Duration) error {
	return c.Client.Set(ctx, pageKey(key), html, ttl).Err()
}

func (c *RedisPageCache) Close() error {
	return c.Client.Close()
}

func pageKey(key string) string {
	return pageKeyPrefix + key
}

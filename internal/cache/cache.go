package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"sampsim/internal/logger"
	"sampsim/internal/metrics"
)

// 文档注释：两级结果缓存
// 背景：配置了 Redis 时读写 Redis（多实例共享），Redis 出错或未配置时退回本地 LRU；命中与未命中计入指标。
// 约束：值为已序列化的响应体；Redis 出错只记日志，不向调用方返回错误。
type Cache struct {
	rc  *redis.Client
	lru *LRU
	ttl time.Duration
}

func New(rc *redis.Client, lru *LRU, ttl time.Duration) *Cache {
	if lru == nil {
		lru = NewLRU(0, ttl)
	}
	return &Cache{rc: rc, lru: lru, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.rc != nil {
		b, err := c.rc.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			metrics.CacheHitsTotal.Inc()
			return b, true
		case errors.Is(err, redis.Nil):
			metrics.CacheMissesTotal.Inc()
			return nil, false
		default:
			logger.L().Debug("redis_get_error", "key", key, "err", err)
		}
	}
	if b, ok := c.lru.Get(key); ok {
		metrics.CacheHitsTotal.Inc()
		return b, true
	}
	metrics.CacheMissesTotal.Inc()
	return nil, false
}

func (c *Cache) Set(ctx context.Context, key string, v []byte) {
	if c.rc != nil {
		err := c.rc.Set(ctx, key, v, c.ttl).Err()
		if err == nil {
			return
		}
		logger.L().Debug("redis_set_error", "key", key, "err", err)
	}
	c.lru.Set(key, v)
}

// SampleKey：sample:<参数规范化后的 sha1>；url.Values.Encode 按键排序，参数顺序不影响键
func SampleKey(q url.Values) string {
	h := sha1.Sum([]byte(q.Encode()))
	return "sample:" + hex.EncodeToString(h[:])
}

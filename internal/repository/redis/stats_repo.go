package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatsKeyPrefix = "moderation:stats"
	StatsTTL = 15 * time.Second
)

// StatsCache 审核面板统计的短期缓存；待审队列本身不缓存
type StatsCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// key 按自然日区分，跨天后旧缓存自然失效
func statsKey(day string) string {
	return StatsKeyPrefix + ":" + day
}

// Get 未命中返回 ok=false
func (c *StatsCache) Get(ctx context.Context, day string, dst any) (bool, error) {
	raw, err := client(c.Client).Get(ctx, statsKey(day)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err = json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *StatsCache) Set(ctx context.Context, day string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = StatsTTL
	}
	return client(c.Client).Set(ctx, statsKey(day), raw, ttl).Err()
}

// Invalidate 人工审核后调用，让统计尽快反映新状态
func (c *StatsCache) Invalidate(ctx context.Context, day string) error {
	return client(c.Client).Del(ctx, statsKey(day)).Err()
}

package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"portfolio/backend/internal/ratelimit"
)

// Limiter 基于 Redis SET NX EX + INCR 的固定窗口限流，多实例部署时共享计数
type Limiter struct {
	rdb    goredis.Cmdable
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

var _ ratelimit.Limiter = (*Limiter)(nil)

// NewLimiter 创建限流器，prefix 用于区分不同端点的计数，limit <= 0 时不限流
func NewLimiter(rdb goredis.Cmdable, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow 计数并判断是否超过窗口内上限
func (l *Limiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	if l.limit <= 0 {
		return ratelimit.Decision{Allowed: true}, nil
	}
	redisKey := fmt.Sprintf("ratelimit:%s:%s", l.prefix, key)

	// 窗口开始时带过期时间创建计数，INCR 不会刷新 TTL
	pipe := l.rdb.TxPipeline()
	pipe.SetNX(ctx, redisKey, 0, l.window)
	incr := pipe.Incr(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return ratelimit.Decision{}, fmt.Errorf("rate limit pipeline: %w", err)
	}

	count := incr.Val()
	decision := ratelimit.Decision{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: l.limit - int(count),
		ResetAt:   l.now().Add(l.window),
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}

	if !decision.Allowed {
		if ttl, err := l.rdb.TTL(ctx, redisKey).Result(); err == nil && ttl > 0 {
			decision.ResetAt = l.now().Add(ttl)
		}
	}
	return decision, nil
}

package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision 单次限流判断结果
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter 按 key 计数的限流器
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// LocalLimiter 进程内令牌桶限流，未配置 Redis 时使用
type LocalLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*bucket
	maxKeys int
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter 创建每个 window 允许 limit 次请求的令牌桶限流器，limit <= 0 时不限流
func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	return &LocalLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
		maxKeys: 10000,
		now:     time.Now,
	}
}

// Allow 消耗 key 对应桶中的一个令牌
func (l *LocalLimiter) Allow(_ context.Context, key string) (Decision, error) {
	if l.limit <= 0 || l.window <= 0 {
		return Decision{Allowed: true}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.maxKeys {
			l.pruneLocked(now)
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.limit)), l.limit)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	remaining := int(b.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   allowed,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   now.Add(l.window),
	}, nil
}

// pruneLocked 清理一个窗口内未访问的 key，调用方需持有锁
func (l *LocalLimiter) pruneLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.window {
			delete(l.buckets, key)
		}
	}
}

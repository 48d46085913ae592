package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRatePerWindow is the per-client request budget per window.
const DefaultRatePerWindow = 60

// DefaultRateWindow is the fixed rate-limit window.
const DefaultRateWindow = time.Minute

// Limiter enforces a fixed-window per-key rate limit. Redis-backed when a
// client is supplied, in-memory otherwise. Fails open: a backend error
// admits the request.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

// NewLimiter builds the limiter; non-positive limit or window get defaults.
func NewLimiter(client *redis.Client, limit int, win time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultRatePerWindow
	}
	if win <= 0 {
		win = DefaultRateWindow
	}
	return &Limiter{
		client:  client,
		limit:   limit,
		window:  win,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow records one request for the key and reports whether it fits the
// current window's budget.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l.client != nil {
		return l.allowRedis(ctx, key)
	}
	return l.allowMemory(key)
}

func (l *Limiter) allowRedis(ctx context.Context, key string) bool {
	redisKey := "ratelimit:" + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		log.Printf("rate limiter unavailable, admitting request: %v", err)
		return true
	}
	if count == 1 {
		// First hit opens the window.
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			log.Printf("rate limiter expire failed: %v", err)
		}
	}
	return count <= int64(l.limit)
}

func (l *Limiter) allowMemory(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[key] = &window{start: now, count: 1}
		return true
	}
	w.count++
	return w.count <= l.limit
}

// Package cache provides the decision cache and the fixed-window rate
// limiter. Both prefer Redis when it is reachable and degrade to bounded
// in-memory storage when it is not; a cache or limiter backend failure
// never fails a request.
package cache

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a cached decision stays valid.
const DefaultTTL = 5 * time.Minute

// DefaultCapacity bounds the in-memory fallback cache.
const DefaultCapacity = 1024

// Service is the decision cache contract. Get reports a miss on any
// backend error; Set is best-effort.
type Service interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// NewRedis connects to the given address (default localhost:6379) and
// verifies the connection with a short ping.
func NewRedis(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// New returns a Redis-backed cache when client is non-nil, otherwise the
// bounded in-memory FIFO fallback.
func New(client *redis.Client, capacity int) Service {
	if client != nil {
		return &redisCache{client: client}
	}
	return NewMemory(capacity)
}

type redisCache struct {
	client *redis.Client
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("cache get failed, treating as miss: %v", err)
		}
		return nil, false
	}
	return val, true
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Printf("cache set failed: %v", err)
	}
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a bounded FIFO cache: when full, the oldest insertion is
// evicted regardless of access recency.
type Memory struct {
	mu       sync.Mutex
	items    map[string]memoryEntry
	order    []string
	capacity int

	now func() time.Time
}

// NewMemory builds the in-memory fallback cache.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{
		items:    make(map[string]memoryEntry, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

func (c *Memory) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.items, key)
		return nil, false
	}
	return entry.value, true
}

func (c *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists {
		for len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.items, oldest)
		}
		c.order = append(c.order, key)
	}
	c.items[key] = memoryEntry{value: value, expiresAt: c.now().Add(ttl)}
}

// Len reports the number of live entries, expired or not.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

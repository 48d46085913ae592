package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(testRedis(t), 0)

	key := Key("what is the weather", "general")
	c.Set(ctx, key, []byte(`{"decision":"allow"}`), time.Minute)

	got, ok := c.Get(ctx, key)
	if !ok {
		t.Fatalf("expected hit after set")
	}
	if string(got) != `{"decision":"allow"}` {
		t.Fatalf("got %q", got)
	}

	if _, ok := c.Get(ctx, Key("something else", "general")); ok {
		t.Fatalf("unexpected hit for different text")
	}
}

func TestMemoryCacheFIFOEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2)

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)
	c.Set(ctx, "c", []byte("3"), time.Minute)

	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatalf("oldest entry should be evicted first")
	}
	if _, ok := c.Get(ctx, "b"); !ok {
		t.Fatalf("second entry should survive")
	}
	if _, ok := c.Get(ctx, "c"); !ok {
		t.Fatalf("newest entry should survive")
	}
	if c.Len() != 2 {
		t.Fatalf("capacity bound violated: %d entries", c.Len())
	}
}

func TestMemoryCacheUpdateDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2)

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)
	c.Set(ctx, "a", []byte("updated"), time.Minute)

	if got, ok := c.Get(ctx, "a"); !ok || string(got) != "updated" {
		t.Fatalf("update in place failed: %q %v", got, ok)
	}
	if _, ok := c.Get(ctx, "b"); !ok {
		t.Fatalf("update must not evict")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(8)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set(ctx, "k", []byte("v"), time.Minute)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatalf("fresh entry must hit")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expired entry must miss")
	}
}

func TestKeyNormalization(t *testing.T) {
	// NFKC folds the fullwidth form onto the ASCII spelling.
	if Key("ｈｅｌｌｏ", "general") != Key("hello", "general") {
		t.Fatalf("equivalent unicode spellings must share a key")
	}
	if Key("  hello  ", "general") != Key("hello", "general") {
		t.Fatalf("surrounding whitespace must not change the key")
	}
	if Key("hello", "general") == Key("hello", "recruiter") {
		t.Fatalf("different roles must not share a key")
	}
}

func TestLimiterRedisFixedWindow(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewLimiter(client, 3, time.Minute)
	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "user-1") {
			t.Fatalf("request %d within budget was denied", i+1)
		}
	}
	if l.Allow(ctx, "user-1") {
		t.Fatalf("request over budget was admitted")
	}
	if !l.Allow(ctx, "user-2") {
		t.Fatalf("limits must be per key")
	}

	mr.FastForward(2 * time.Minute)
	if !l.Allow(ctx, "user-1") {
		t.Fatalf("new window must reset the budget")
	}
}

func TestLimiterMemoryFixedWindow(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(nil, 2, time.Minute)
	current := time.Now()
	l.now = func() time.Time { return current }

	if !l.Allow(ctx, "k") || !l.Allow(ctx, "k") {
		t.Fatalf("requests within budget were denied")
	}
	if l.Allow(ctx, "k") {
		t.Fatalf("request over budget was admitted")
	}

	current = current.Add(61 * time.Second)
	if !l.Allow(ctx, "k") {
		t.Fatalf("new window must reset the budget")
	}
}

func TestLimiterFailsOpenOnBackendError(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewLimiter(client, 1, time.Minute)
	mr.Close()

	for i := 0; i < 5; i++ {
		if !l.Allow(ctx, fmt.Sprintf("k%d", i)) {
			t.Fatalf("backend failure must admit the request")
		}
	}
}

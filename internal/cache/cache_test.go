package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func exercise(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()
	if _, ok, err := c.Get(ctx, "ds", "missing"); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, "ds", "pop", []byte("rows"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	b, ok, err := c.Get(ctx, "ds", "pop")
	if err != nil || !ok || string(b) != "rows" {
		t.Fatalf("get: %q ok=%v err=%v", b, ok, err)
	}
	if _, ok, _ := c.Get(ctx, "other", "pop"); ok {
		t.Fatalf("namespaces must not collide")
	}
	if err := c.Delete(ctx, "ds", "pop"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "ds", "pop"); ok {
		t.Fatalf("expected key deleted")
	}
}

func TestMemoryCache(t *testing.T) {
	m := NewMemory()
	exercise(t, m)

	now := time.Now()
	m.now = func() time.Time { return now }
	_ = m.Set(context.Background(), "ds", "k", []byte("v"), time.Second)
	m.now = func() time.Time { return now.Add(2 * time.Second) }
	if _, ok, _ := m.Get(context.Background(), "ds", "k"); ok {
		t.Fatalf("expected entry to expire")
	}

	// A stale key that is never read again is dropped by the next Set.
	_ = m.Set(context.Background(), "ds", "old-mtime", []byte("v"), time.Second)
	m.now = func() time.Time { return now.Add(4 * time.Second) }
	_ = m.Set(context.Background(), "ds", "new-mtime", []byte("v"), time.Second)
	m.mu.RLock()
	_, stale := m.items[fullKey("ds", "old-mtime")]
	m.mu.RUnlock()
	if stale {
		t.Fatalf("expected expired entry to be swept on set")
	}
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer c.Close()
	exercise(t, c)

	_ = c.Set(context.Background(), "ds", "ttl", []byte("v"), time.Minute)
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.Get(context.Background(), "ds", "ttl"); ok {
		t.Fatalf("expected redis entry to expire")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	if _, err := New(Options{Backend: "memory"}); err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, err := New(Options{Backend: "redis"}); err == nil {
		t.Fatalf("redis without addr should fail")
	}
	if _, err := New(Options{Backend: "memcached"}); err == nil {
		t.Fatalf("unknown backend should fail")
	}
}

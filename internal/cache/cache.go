// Package cache provides the read-through store used to avoid re-reading
// datasets and re-fetching remote series between requests.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Cache stores opaque values under a namespace and key.
type Cache interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, namespace, key string) error
}

// Options selects and configures a backend.
type Options struct {
	Backend       string // "memory" (default) or "redis"
	RedisAddr     string
	RedisPassword string
}

// New returns the backend named in opt.
func New(opt Options) (Cache, error) {
	switch strings.ToLower(strings.TrimSpace(opt.Backend)) {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		if opt.RedisAddr == "" {
			return nil, fmt.Errorf("cache backend redis requires redis_addr")
		}
		return NewRedis([]string{opt.RedisAddr}, opt.RedisPassword, false), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (use memory or redis)", opt.Backend)
	}
}

func fullKey(namespace, key string) string { return namespace + ":" + key }

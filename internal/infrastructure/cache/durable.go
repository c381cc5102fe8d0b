package cache

import (
	"context"
	"time"
)

// DurableTier is the shared second tier behind the in-process cache.
// Implementations: database rows (default) and redis.
type DurableTier interface {
	// Get returns the payload and its expiry. A zero expiry means the
	// tier could not report one.
	Get(ctx context.Context, key string) ([]byte, time.Time, bool, error)
	Set(ctx context.Context, key, cacheType string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with the prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Clear(ctx context.Context, cacheType string) error
	CleanExpired(ctx context.Context) (int64, error)
	Close() error
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/analytics/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// RedisTier implements DurableTier on Redis. Expiry is native TTL, so
// CleanExpired has nothing to reap. Keys carry the configured prefix;
// Clear scans by prefix and type segment.
type RedisTier struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisTier connects to Redis and returns a durable tier
func NewRedisTier(cfg config.RedisConfig, keyPrefix string) (*RedisTier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if keyPrefix == "" {
		keyPrefix = "analytics"
	}

	return &RedisTier{client: client, keyPrefix: keyPrefix}, nil
}

// NewRedisTierWithClient creates a tier with an existing client
func NewRedisTierWithClient(client *redis.Client, keyPrefix string) *RedisTier {
	if keyPrefix == "" {
		keyPrefix = "analytics"
	}
	return &RedisTier{client: client, keyPrefix: keyPrefix}
}

func (t *RedisTier) redisKey(key string) string {
	return t.keyPrefix + ":" + key
}

// Get returns the payload for the key if present, with the expiry
// derived from the key's remaining TTL
func (t *RedisTier) Get(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	pipe := t.client.Pipeline()
	getCmd := pipe.Get(ctx, t.redisKey(key))
	ttlCmd := pipe.PTTL(ctx, t.redisKey(key))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, time.Time{}, false, err
	}

	payload, err := getCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, err
	}

	var expiresAt time.Time
	if remaining := ttlCmd.Val(); remaining > 0 {
		expiresAt = time.Now().Add(remaining)
	}
	return payload, expiresAt, true, nil
}

// Set stores the payload under the key with a native TTL
func (t *RedisTier) Set(ctx context.Context, key, cacheType string, payload []byte, ttl time.Duration) error {
	return t.client.Set(ctx, t.redisKey(key), payload, ttl).Err()
}

// Delete removes the key
func (t *RedisTier) Delete(ctx context.Context, key string) error {
	return t.client.Del(ctx, t.redisKey(key)).Err()
}

// DeletePrefix removes every key starting with the prefix
func (t *RedisTier) DeletePrefix(ctx context.Context, prefix string) error {
	return t.deleteByPattern(ctx, t.keyPrefix+":"+prefix+"*")
}

// Clear drops all entries of the given type by prefix scan; empty type
// drops every key under the prefix
func (t *RedisTier) Clear(ctx context.Context, cacheType string) error {
	pattern := t.keyPrefix + ":"
	if cacheType != "" {
		pattern += cacheType + ":"
	}
	pattern += "*"

	if err := t.deleteByPattern(ctx, pattern); err != nil {
		return err
	}

	// Typed keys without a trailing segment (e.g. the overview key)
	// are missed by the segment pattern.
	if cacheType != "" {
		return t.client.Del(ctx, t.redisKey(cacheType)).Err()
	}
	return nil
}

func (t *RedisTier) deleteByPattern(ctx context.Context, pattern string) error {
	iter := t.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := t.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// CleanExpired is a no-op; Redis expires keys natively
func (t *RedisTier) CleanExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// Close closes the Redis client
func (t *RedisTier) Close() error {
	return t.client.Close()
}

var _ DurableTier = (*RedisTier)(nil)

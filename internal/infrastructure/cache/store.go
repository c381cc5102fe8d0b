package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Cache types group entries so they can be cleared selectively
const (
	TypeRFM             = "rfm_analysis"
	TypeCLV             = "clv_analysis"
	TypeChurn           = "churn_analysis"
	TypeSegmentOverview = "segment_overview"
	TypeTopCLV          = "top_clv"
	TypeRecommendations = "recommendations"
	TypeCrossSell       = "cross_sell"
)

// Store is the two-tier analytics cache. Values are serialized JSON;
// a miss is (false, nil), errors are reserved for the durable tier.
type Store interface {
	// Get unmarshals the cached value into dest, reporting whether the
	// key was present and unexpired.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores the value under the key with the given TTL, tagged
	// with the cache type.
	Set(ctx context.Context, key, cacheType string, value any, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// Clear drops all entries of the given type; an empty type clears
	// everything.
	Clear(ctx context.Context, cacheType string) error

	// CleanExpired removes expired durable entries, returning the count.
	CleanExpired(ctx context.Context) (int64, error)

	Stats() Stats

	Close() error
}

// Stats holds hit/miss counters per tier
type Stats struct {
	L1Hits      int64   `json:"l1_hits"`
	L1Misses    int64   `json:"l1_misses"`
	L2Hits      int64   `json:"l2_hits"`
	L2Misses    int64   `json:"l2_misses"`
	TotalHits   int64   `json:"total_hits"`
	TotalMisses int64   `json:"total_misses"`
	HitRatio    float64 `json:"hit_ratio"`
	L1Entries   int64   `json:"l1_entries"`
}

// GetOrCompute returns the cached value for the key, or runs compute
// and caches the result. The boolean reports a cache hit. Concurrent
// callers may compute the same key independently; last write wins,
// which is acceptable because computations are deterministic over the
// same ledger state.
func GetOrCompute[T any](ctx context.Context, store Store, logger *zap.Logger, key, cacheType string, ttl time.Duration, compute func(context.Context) (T, error)) (T, bool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var cached T
	hit, err := store.Get(ctx, key, &cached)
	if err == nil && hit {
		return cached, true, nil
	}

	value, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}

	// The computed value is still valid when the write-back fails.
	if err := store.Set(ctx, key, cacheType, value, ttl); err != nil {
		logger.Warn("Failed to write back cache entry", zap.String("key", key), zap.Error(err))
	}
	return value, false, nil
}

func marshalValue(value any) ([]byte, error) {
	return json.Marshal(value)
}

func unmarshalValue(payload []byte, dest any) error {
	return json.Unmarshal(payload, dest)
}

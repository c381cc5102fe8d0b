package cache

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// l1TTLCap bounds how long the fast tier may serve an entry without
// consulting the durable tier
const l1TTLCap = 5 * time.Minute

// TieredStore implements Store over a fast in-process tier and a
// shared durable tier. Reads go L1 then L2, repopulating L1 on an L2
// hit. Fast-tier failures are never authoritative; the durable tier
// decides hits and errors.
type TieredStore struct {
	l1      *MemoryTier
	l2      DurableTier
	logger  *zap.Logger
	metrics MetricsRecorder

	l1Hits   int64
	l1Misses int64
	l2Hits   int64
	l2Misses int64
}

// MetricsRecorder receives cache hit and miss events. Implemented by
// telemetry.Metrics.
type MetricsRecorder interface {
	RecordCacheHit(tier string)
	RecordCacheMiss()
}

// TieredStoreOption is a functional option for configuring the store
type TieredStoreOption func(*TieredStore)

// WithTieredLogger sets the logger for the store
func WithTieredLogger(logger *zap.Logger) TieredStoreOption {
	return func(s *TieredStore) {
		s.logger = logger
	}
}

// WithTieredMetrics wires hit/miss events into the given recorder
func WithTieredMetrics(metrics MetricsRecorder) TieredStoreOption {
	return func(s *TieredStore) {
		s.metrics = metrics
	}
}

// NewTieredStore creates a two-tier store
func NewTieredStore(l1 *MemoryTier, l2 DurableTier, opts ...TieredStoreOption) *TieredStore {
	store := &TieredStore{
		l1:     l1,
		l2:     l2,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Get retrieves a value (L1 -> L2), unmarshaling into dest
func (s *TieredStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	if payload, ok := s.l1.Get(key); ok {
		if err := unmarshalValue(payload, dest); err == nil {
			atomic.AddInt64(&s.l1Hits, 1)
			s.recordHit("l1")
			return true, nil
		}
		// Corrupt L1 entry; fall through to the durable tier.
		s.l1.Delete(key)
	}
	atomic.AddInt64(&s.l1Misses, 1)

	payload, expiresAt, ok, err := s.l2.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		atomic.AddInt64(&s.l2Misses, 1)
		s.recordMiss()
		return false, nil
	}

	if err := unmarshalValue(payload, dest); err != nil {
		// A payload that no longer decodes is treated as a miss and
		// dropped so the caller recomputes.
		s.logger.Warn("Dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = s.l2.Delete(ctx, key)
		atomic.AddInt64(&s.l2Misses, 1)
		s.recordMiss()
		return false, nil
	}

	atomic.AddInt64(&s.l2Hits, 1)
	s.recordHit("l2")
	s.repopulateL1(key, payload, expiresAt)
	return true, nil
}

// repopulateL1 refreshes the fast tier after a durable hit. The L1
// lifetime never exceeds what the durable entry has left, so L1 cannot
// serve a value past its durable expiry.
func (s *TieredStore) repopulateL1(key string, payload []byte, expiresAt time.Time) {
	ttl := l1TTLCap
	if !expiresAt.IsZero() {
		remaining := time.Until(expiresAt)
		if remaining <= 0 {
			return
		}
		if remaining < ttl {
			ttl = remaining
		}
	}
	s.l1.Set(key, "", payload, ttl)
}

func (s *TieredStore) recordHit(tier string) {
	if s.metrics != nil {
		s.metrics.RecordCacheHit(tier)
	}
}

func (s *TieredStore) recordMiss() {
	if s.metrics != nil {
		s.metrics.RecordCacheMiss()
	}
}

// Set stores the value in the durable tier and populates L1
func (s *TieredStore) Set(ctx context.Context, key, cacheType string, value any, ttl time.Duration) error {
	payload, err := marshalValue(value)
	if err != nil {
		return err
	}

	if err := s.l2.Set(ctx, key, cacheType, payload, ttl); err != nil {
		return err
	}

	l1TTL := ttl
	if l1TTL > l1TTLCap {
		l1TTL = l1TTLCap
	}
	s.l1.Set(key, cacheType, payload, l1TTL)
	return nil
}

// Delete removes the key from both tiers
func (s *TieredStore) Delete(ctx context.Context, key string) error {
	s.l1.Delete(key)
	return s.l2.Delete(ctx, key)
}

// DeletePrefix removes every key starting with the prefix from both tiers
func (s *TieredStore) DeletePrefix(ctx context.Context, prefix string) error {
	s.l1.DeletePrefix(prefix)
	return s.l2.DeletePrefix(ctx, prefix)
}

// Clear drops all entries of the given type from both tiers
func (s *TieredStore) Clear(ctx context.Context, cacheType string) error {
	s.l1.Clear(cacheType)
	return s.l2.Clear(ctx, cacheType)
}

// CleanExpired reaps expired durable entries
func (s *TieredStore) CleanExpired(ctx context.Context) (int64, error) {
	return s.l2.CleanExpired(ctx)
}

// Stats returns hit/miss counters across both tiers
func (s *TieredStore) Stats() Stats {
	l1Hits := atomic.LoadInt64(&s.l1Hits)
	l1Misses := atomic.LoadInt64(&s.l1Misses)
	l2Hits := atomic.LoadInt64(&s.l2Hits)
	l2Misses := atomic.LoadInt64(&s.l2Misses)

	totalHits := l1Hits + l2Hits
	totalMisses := l2Misses

	var hitRatio float64
	if total := totalHits + totalMisses; total > 0 {
		hitRatio = float64(totalHits) / float64(total)
	}

	return Stats{
		L1Hits:      l1Hits,
		L1Misses:    l1Misses,
		L2Hits:      l2Hits,
		L2Misses:    l2Misses,
		TotalHits:   totalHits,
		TotalMisses: totalMisses,
		HitRatio:    hitRatio,
		L1Entries:   int64(s.l1.Size()),
	}
}

// ResetStats resets the hit/miss counters
func (s *TieredStore) ResetStats() {
	atomic.StoreInt64(&s.l1Hits, 0)
	atomic.StoreInt64(&s.l1Misses, 0)
	atomic.StoreInt64(&s.l2Hits, 0)
	atomic.StoreInt64(&s.l2Misses, 0)
}

// Close releases both tiers
func (s *TieredStore) Close() error {
	var lastErr error
	if err := s.l2.Close(); err != nil {
		lastErr = err
	}
	if err := s.l1.Close(); err != nil {
		lastErr = err
	}
	return lastErr
}

var _ Store = (*TieredStore)(nil)

package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeDurableTier is an in-memory DurableTier with controllable failures
type fakeDurableTier struct {
	mu      sync.Mutex
	entries map[string]fakeDurableEntry
	getErr  error
	setErr  error
}

type fakeDurableEntry struct {
	payload   []byte
	cacheType string
	expiresAt time.Time
}

func newFakeDurableTier() *fakeDurableTier {
	return &fakeDurableTier{entries: make(map[string]fakeDurableEntry)}
}

func (f *fakeDurableTier) Get(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, time.Time{}, false, f.getErr
	}
	e, ok := f.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, time.Time{}, false, nil
	}
	return e.payload, e.expiresAt, true, nil
}

func (f *fakeDurableTier) Set(ctx context.Context, key, cacheType string, payload []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[key] = fakeDurableEntry{payload: payload, cacheType: cacheType, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (f *fakeDurableTier) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return nil
}

func (f *fakeDurableTier) DeletePrefix(ctx context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
		}
	}
	return nil
}

func (f *fakeDurableTier) Clear(ctx context.Context, cacheType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, e := range f.entries {
		if cacheType == "" || e.cacheType == cacheType {
			delete(f.entries, key)
		}
	}
	return nil
}

func (f *fakeDurableTier) CleanExpired(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	now := time.Now()
	for key, e := range f.entries {
		if now.After(e.expiresAt) {
			delete(f.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeDurableTier) Close() error { return nil }

type cachedScore struct {
	Score int `json:"score"`
}

func newTestTieredStore(t *testing.T) (*TieredStore, *fakeDurableTier) {
	l2 := newFakeDurableTier()
	store := NewTieredStore(NewMemoryTier(100, time.Minute), l2)
	t.Cleanup(func() { _ = store.Close() })
	return store, l2
}

func TestTieredStore_RoundTrip(t *testing.T) {
	store, _ := newTestTieredStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", TypeRFM, cachedScore{Score: 12}, time.Hour))

	var got cachedScore
	hit, err := store.Get(ctx, "key", &got)

	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 12, got.Score)
}

func TestTieredStore_L2HitRepopulatesL1(t *testing.T) {
	store, l2 := newTestTieredStore(t)
	ctx := context.Background()

	// Seed only the durable tier, as another instance would have.
	payload, err := marshalValue(cachedScore{Score: 7})
	require.NoError(t, err)
	require.NoError(t, l2.Set(ctx, "key", TypeCLV, payload, time.Hour))

	var got cachedScore
	hit, err := store.Get(ctx, "key", &got)
	require.NoError(t, err)
	require.True(t, hit)

	stats := store.Stats()
	assert.Equal(t, int64(1), stats.L2Hits)

	// Second read is served by the repopulated fast tier.
	hit, err = store.Get(ctx, "key", &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, int64(1), store.Stats().L1Hits)
}

func TestTieredStore_L1RepopulationHonorsDurableExpiry(t *testing.T) {
	store, l2 := newTestTieredStore(t)
	ctx := context.Background()

	// Durable entry with far less life left than the fast tier cap.
	payload, err := marshalValue(cachedScore{Score: 5})
	require.NoError(t, err)
	require.NoError(t, l2.Set(ctx, "key", TypeRFM, payload, 50*time.Millisecond))

	var got cachedScore
	hit, err := store.Get(ctx, "key", &got)
	require.NoError(t, err)
	require.True(t, hit)

	time.Sleep(80 * time.Millisecond)

	// The durable entry is gone; the repopulated fast tier must not
	// keep serving it.
	hit, err = store.Get(ctx, "key", &got)
	require.NoError(t, err)
	assert.False(t, hit, "read past durable expiry must be absent")
}

// countingRecorder is a MetricsRecorder for asserting hit/miss events
type countingRecorder struct {
	hits   map[string]int
	misses int
}

func (r *countingRecorder) RecordCacheHit(tier string) { r.hits[tier]++ }
func (r *countingRecorder) RecordCacheMiss()           { r.misses++ }

func TestTieredStore_RecordsMetrics(t *testing.T) {
	recorder := &countingRecorder{hits: make(map[string]int)}
	l2 := newFakeDurableTier()
	store := NewTieredStore(NewMemoryTier(100, time.Minute), l2, WithTieredMetrics(recorder))
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	var got cachedScore
	hit, err := store.Get(ctx, "absent", &got)
	require.NoError(t, err)
	require.False(t, hit)

	// Seed the durable tier only, so the first read is an L2 hit and
	// the second is served by the repopulated fast tier.
	payload, err := marshalValue(cachedScore{Score: 3})
	require.NoError(t, err)
	require.NoError(t, l2.Set(ctx, "key", TypeRFM, payload, time.Hour))

	_, err = store.Get(ctx, "key", &got)
	require.NoError(t, err)
	_, err = store.Get(ctx, "key", &got)
	require.NoError(t, err)

	assert.Equal(t, 1, recorder.misses)
	assert.Equal(t, 1, recorder.hits["l2"])
	assert.Equal(t, 1, recorder.hits["l1"])
}

func TestTieredStore_MissReturnsFalse(t *testing.T) {
	store, _ := newTestTieredStore(t)

	var got cachedScore
	hit, err := store.Get(context.Background(), "absent", &got)

	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(1), store.Stats().TotalMisses)
}

func TestTieredStore_DurableErrorPropagates(t *testing.T) {
	store, l2 := newTestTieredStore(t)
	l2.getErr = errors.New("connection refused")

	var got cachedScore
	_, err := store.Get(context.Background(), "key", &got)

	assert.Error(t, err)
}

func TestTieredStore_UndecodablePayloadIsAMiss(t *testing.T) {
	store, l2 := newTestTieredStore(t)
	ctx := context.Background()

	require.NoError(t, l2.Set(ctx, "key", TypeRFM, []byte("{not json"), time.Hour))

	var got cachedScore
	hit, err := store.Get(ctx, "key", &got)

	require.NoError(t, err)
	assert.False(t, hit)

	_, _, ok, _ := l2.Get(ctx, "key")
	assert.False(t, ok, "corrupt entry must be dropped")
}

func TestTieredStore_ClearByType(t *testing.T) {
	store, _ := newTestTieredStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "rfm", TypeRFM, cachedScore{Score: 1}, time.Hour))
	require.NoError(t, store.Set(ctx, "clv", TypeCLV, cachedScore{Score: 2}, time.Hour))

	require.NoError(t, store.Clear(ctx, TypeRFM))

	var got cachedScore
	hit, err := store.Get(ctx, "rfm", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	hit, err = store.Get(ctx, "clv", &got)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestGetOrCompute(t *testing.T) {
	t.Run("computes on miss then hits", func(t *testing.T) {
		store, _ := newTestTieredStore(t)
		ctx := context.Background()
		calls := 0

		compute := func(context.Context) (cachedScore, error) {
			calls++
			return cachedScore{Score: 42}, nil
		}

		value, hit, err := GetOrCompute(ctx, store, zap.NewNop(), "key", TypeChurn, time.Hour, compute)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, 42, value.Score)

		value, hit, err = GetOrCompute(ctx, store, zap.NewNop(), "key", TypeChurn, time.Hour, compute)
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, 42, value.Score)
		assert.Equal(t, 1, calls)
	})

	t.Run("compute error propagates uncached", func(t *testing.T) {
		store, _ := newTestTieredStore(t)

		_, _, err := GetOrCompute(context.Background(), store, zap.NewNop(), "key", TypeChurn, time.Hour,
			func(context.Context) (cachedScore, error) {
				return cachedScore{}, errors.New("ledger unavailable")
			})

		assert.Error(t, err)
	})

	t.Run("write-back failure is logged and swallowed", func(t *testing.T) {
		store, l2 := newTestTieredStore(t)
		l2.setErr = errors.New("disk full")

		core, logs := observer.New(zapcore.WarnLevel)

		value, hit, err := GetOrCompute(context.Background(), store, zap.New(core), "key", TypeChurn, time.Hour,
			func(context.Context) (cachedScore, error) {
				return cachedScore{Score: 9}, nil
			})

		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, 9, value.Score)
		assert.Equal(t, 1, logs.FilterMessage("Failed to write back cache entry").Len())
	})
}

func TestInvalidateCustomer(t *testing.T) {
	store, _ := newTestTieredStore(t)
	ctx := context.Background()

	customerID := uuid.New()
	otherID := uuid.New()
	require.NoError(t, store.Set(ctx, CustomerRFMKey(customerID), TypeRFM, cachedScore{Score: 1}, time.Hour))
	require.NoError(t, store.Set(ctx, CustomerCLVKey(customerID), TypeCLV, cachedScore{Score: 2}, time.Hour))
	require.NoError(t, store.Set(ctx, CustomerChurnKey(customerID), TypeChurn, cachedScore{Score: 3}, time.Hour))
	require.NoError(t, store.Set(ctx, CustomerRecommendationsKey(customerID, 10), TypeRecommendations, cachedScore{Score: 4}, time.Hour))
	require.NoError(t, store.Set(ctx, CustomerRecommendationsKey(customerID, 25), TypeRecommendations, cachedScore{Score: 5}, time.Hour))
	require.NoError(t, store.Set(ctx, CustomerRecommendationsKey(otherID, 10), TypeRecommendations, cachedScore{Score: 6}, time.Hour))

	require.NoError(t, InvalidateCustomer(ctx, store, customerID))

	var got cachedScore
	invalidated := []string{
		CustomerRFMKey(customerID),
		CustomerCLVKey(customerID),
		CustomerChurnKey(customerID),
		CustomerRecommendationsKey(customerID, 10),
		CustomerRecommendationsKey(customerID, 25),
	}
	for _, key := range invalidated {
		hit, err := store.Get(ctx, key, &got)
		require.NoError(t, err)
		assert.False(t, hit, "key %s must be invalidated", key)
	}

	// Other customers keep their recommendation entries.
	hit, err := store.Get(ctx, CustomerRecommendationsKey(otherID, 10), &got)
	require.NoError(t, err)
	assert.True(t, hit)
}

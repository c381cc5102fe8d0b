package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/analytics/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDatabaseTier(t *testing.T) *DatabaseTier {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.CacheEntryModel{}))
	return NewDatabaseTier(db)
}

func TestDatabaseTier_SetAndGet(t *testing.T) {
	tier := newDatabaseTier(t)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "rfm_analysis:abc", TypeRFM, []byte(`{"v":1}`), time.Hour))

	payload, _, hit, err := tier.Get(ctx, "rfm_analysis:abc")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.JSONEq(t, `{"v":1}`, string(payload))
}

func TestDatabaseTier_GetMissing(t *testing.T) {
	tier := newDatabaseTier(t)

	_, _, hit, err := tier.Get(context.Background(), "no-such-key")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDatabaseTier_ExpiredEntryIsMiss(t *testing.T) {
	tier := newDatabaseTier(t)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "k", TypeRFM, []byte(`1`), -time.Minute))

	_, _, hit, err := tier.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDatabaseTier_SetUpserts(t *testing.T) {
	tier := newDatabaseTier(t)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "k", TypeRFM, []byte(`1`), time.Hour))
	require.NoError(t, tier.Set(ctx, "k", TypeCLV, []byte(`2`), time.Hour))

	payload, _, hit, err := tier.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "2", string(payload))
}

func TestDatabaseTier_Delete(t *testing.T) {
	tier := newDatabaseTier(t)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "k", TypeRFM, []byte(`1`), time.Hour))
	require.NoError(t, tier.Delete(ctx, "k"))

	_, _, hit, err := tier.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDatabaseTier_GetReportsExpiry(t *testing.T) {
	tier := newDatabaseTier(t)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "k", TypeRFM, []byte(`1`), time.Hour))

	_, expiresAt, hit, err := tier.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, hit)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)
}

func TestDatabaseTier_DeletePrefix(t *testing.T) {
	tier := newDatabaseTier(t)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "recommendations:cust-1:10", TypeRecommendations, []byte(`1`), time.Hour))
	require.NoError(t, tier.Set(ctx, "recommendations:cust-1:25", TypeRecommendations, []byte(`2`), time.Hour))
	require.NoError(t, tier.Set(ctx, "recommendations:cust-2:10", TypeRecommendations, []byte(`3`), time.Hour))

	require.NoError(t, tier.DeletePrefix(ctx, "recommendations:cust-1:"))

	_, _, hit, err := tier.Get(ctx, "recommendations:cust-1:25")
	require.NoError(t, err)
	assert.False(t, hit)

	_, _, hit, err = tier.Get(ctx, "recommendations:cust-2:10")
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestDatabaseTier_ClearByType(t *testing.T) {
	tier := newDatabaseTier(t)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "a", TypeRFM, []byte(`1`), time.Hour))
	require.NoError(t, tier.Set(ctx, "b", TypeCLV, []byte(`2`), time.Hour))

	require.NoError(t, tier.Clear(ctx, TypeRFM))

	_, _, hit, err := tier.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, hit)

	_, _, hit, err = tier.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestDatabaseTier_ClearAll(t *testing.T) {
	tier := newDatabaseTier(t)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "a", TypeRFM, []byte(`1`), time.Hour))
	require.NoError(t, tier.Set(ctx, "b", TypeCLV, []byte(`2`), time.Hour))

	require.NoError(t, tier.Clear(ctx, ""))

	_, _, hit, err := tier.Get(ctx, "b")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDatabaseTier_CleanExpired(t *testing.T) {
	tier := newDatabaseTier(t)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "stale", TypeRFM, []byte(`1`), -time.Minute))
	require.NoError(t, tier.Set(ctx, "fresh", TypeRFM, []byte(`2`), time.Hour))

	removed, err := tier.CleanExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, _, hit, err := tier.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, hit)
}

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/erp/analytics/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DatabaseTier implements DurableTier on the cache_entries table.
// Expiry is checked on read; CleanExpired reaps stale rows.
type DatabaseTier struct {
	db *gorm.DB
}

// NewDatabaseTier creates a database-backed durable tier
func NewDatabaseTier(db *gorm.DB) *DatabaseTier {
	return &DatabaseTier{db: db}
}

// Get returns the payload and expiry for the key if present and unexpired
func (t *DatabaseTier) Get(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	var model models.CacheEntryModel
	if err := t.db.WithContext(ctx).First(&model, "cache_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, err
	}
	if model.Expired(time.Now()) {
		return nil, time.Time{}, false, nil
	}
	return []byte(model.Value), model.ExpiresAt, true, nil
}

// Set upserts the payload under the key
func (t *DatabaseTier) Set(ctx context.Context, key, cacheType string, payload []byte, ttl time.Duration) error {
	now := time.Now()
	model := models.CacheEntryModel{
		CacheKey:  key,
		CacheType: cacheType,
		Value:     string(payload),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}

	return t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cache_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"cache_type", "value", "expires_at", "updated_at",
			}),
		}).
		Create(&model).Error
}

// Delete removes the key
func (t *DatabaseTier) Delete(ctx context.Context, key string) error {
	return t.db.WithContext(ctx).
		Where("cache_key = ?", key).
		Delete(&models.CacheEntryModel{}).Error
}

// DeletePrefix removes every key starting with the prefix
func (t *DatabaseTier) DeletePrefix(ctx context.Context, prefix string) error {
	return t.db.WithContext(ctx).
		Where("cache_key LIKE ?", prefix+"%").
		Delete(&models.CacheEntryModel{}).Error
}

// Clear drops all entries of the given type; empty type drops everything
func (t *DatabaseTier) Clear(ctx context.Context, cacheType string) error {
	query := t.db.WithContext(ctx)
	if cacheType == "" {
		return query.Where("1 = 1").Delete(&models.CacheEntryModel{}).Error
	}
	return query.Where("cache_type = ?", cacheType).Delete(&models.CacheEntryModel{}).Error
}

// CleanExpired removes rows past their expiry, returning the count
func (t *DatabaseTier) CleanExpired(ctx context.Context) (int64, error) {
	result := t.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&models.CacheEntryModel{})
	return result.RowsAffected, result.Error
}

// Close is a no-op; the connection belongs to the database layer
func (t *DatabaseTier) Close() error {
	return nil
}

var _ DurableTier = (*DatabaseTier)(nil)

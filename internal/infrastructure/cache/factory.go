package cache

import (
	"fmt"

	"github.com/erp/analytics/internal/infrastructure/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StoreFactory builds the analytics cache from configuration
type StoreFactory struct {
	cacheConfig config.CacheConfig
	redisConfig config.RedisConfig
	db          *gorm.DB
	logger      *zap.Logger
	metrics     MetricsRecorder
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithMetrics wires cache hit/miss instruments into the created store
func WithMetrics(metrics MetricsRecorder) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.metrics = metrics
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cacheCfg config.CacheConfig, redisCfg config.RedisConfig, db *gorm.DB, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		cacheConfig: cacheCfg,
		redisConfig: redisCfg,
		db:          db,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateStore builds the two-tier store. The redis backend falls back
// to database rows when Redis is unreachable; the database backend is
// always available because it shares the primary connection.
func (f *StoreFactory) CreateStore() (Store, error) {
	l1 := NewMemoryTier(f.cacheConfig.FastMaxEntries, f.cacheConfig.CleanupInterval)

	l2, err := f.createDurableTier()
	if err != nil {
		l1.Close()
		return nil, err
	}

	return NewTieredStore(l1, l2, WithTieredLogger(f.logger), WithTieredMetrics(f.metrics)), nil
}

func (f *StoreFactory) createDurableTier() (DurableTier, error) {
	switch f.cacheConfig.Backend {
	case "redis":
		tier, err := NewRedisTier(f.redisConfig, f.cacheConfig.KeyPrefix)
		if err == nil {
			f.logger.Info("using redis cache tier")
			return tier, nil
		}
		f.logger.Warn("Redis unavailable, falling back to database cache tier", zap.Error(err))
		return NewDatabaseTier(f.db), nil
	case "database", "":
		return NewDatabaseTier(f.db), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", f.cacheConfig.Backend)
	}
}

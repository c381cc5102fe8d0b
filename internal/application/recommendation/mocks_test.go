package recommendation

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/erp/analytics/internal/domain/analytics"
	"github.com/erp/analytics/internal/domain/catalog"
	"github.com/erp/analytics/internal/domain/ledger"
	"github.com/erp/analytics/internal/domain/partner"
	"github.com/erp/analytics/internal/domain/recommendation"
	"github.com/erp/analytics/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockCustomerRepository is a mock implementation of partner.CustomerRepository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCustomerRepository) FindAllIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockCustomerRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockTransactionRepository is a mock implementation of ledger.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) FindCompletedByCustomer(ctx context.Context, customerID uuid.UUID, order ledger.SortOrder) ([]ledger.Transaction, error) {
	args := m.Called(ctx, customerID, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) CountFailedByCustomerSince(ctx context.Context, customerID uuid.UUID, since time.Time) (int64, error) {
	args := m.Called(ctx, customerID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) FindCustomerIDsByProduct(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockTransactionRepository) FindCompletedByCustomers(ctx context.Context, customerIDs []uuid.UUID) ([]ledger.Transaction, error) {
	args := m.Called(ctx, customerIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Transaction), args.Error(1)
}

// MockAnalyticsRepository is a mock implementation of analytics.Repository
type MockAnalyticsRepository struct {
	mock.Mock
}

func (m *MockAnalyticsRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*analytics.CustomerAnalytics, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.CustomerAnalytics), args.Error(1)
}

func (m *MockAnalyticsRepository) UpsertRFM(ctx context.Context, customerID uuid.UUID, result analytics.RFMResult) error {
	args := m.Called(ctx, customerID, result)
	return args.Error(0)
}

func (m *MockAnalyticsRepository) UpsertCLV(ctx context.Context, customerID uuid.UUID, result analytics.CLVResult) error {
	args := m.Called(ctx, customerID, result)
	return args.Error(0)
}

func (m *MockAnalyticsRepository) UpsertChurn(ctx context.Context, customerID uuid.UUID, result analytics.ChurnResult) error {
	args := m.Called(ctx, customerID, result)
	return args.Error(0)
}

func (m *MockAnalyticsRepository) FindHighChurnRisk(ctx context.Context, limit int) ([]analytics.CustomerAnalytics, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.CustomerAnalytics), args.Error(1)
}

func (m *MockAnalyticsRepository) FindTopByCLV(ctx context.Context, limit int) ([]analytics.CustomerAnalytics, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.CustomerAnalytics), args.Error(1)
}

func (m *MockAnalyticsRepository) FindCustomerIDsBySegment(ctx context.Context, segment analytics.Segment, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, segment, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockAnalyticsRepository) SegmentAggregates(ctx context.Context) ([]analytics.SegmentStat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.SegmentStat), args.Error(1)
}

// MockRecommendationRepository is a mock implementation of recommendation.Repository
type MockRecommendationRepository struct {
	mock.Mock
}

func (m *MockRecommendationRepository) FindFreshByCustomer(ctx context.Context, customerID uuid.UUID, generatedAfter time.Time) ([]recommendation.ProductRecommendation, error) {
	args := m.Called(ctx, customerID, generatedAfter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]recommendation.ProductRecommendation), args.Error(1)
}

func (m *MockRecommendationRepository) ReplaceForCustomer(ctx context.Context, customerID uuid.UUID, recommendations []recommendation.ProductRecommendation) error {
	args := m.Called(ctx, customerID, recommendations)
	return args.Error(0)
}

func (m *MockRecommendationRepository) DeleteByCustomer(ctx context.Context, customerID uuid.UUID) error {
	args := m.Called(ctx, customerID)
	return args.Error(0)
}

func (m *MockRecommendationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// =============================================================================
// Fake cache store
// =============================================================================

// fakeStore is an in-memory cache.Store for service tests. TTLs are
// ignored.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string][]byte)}
}

func (s *fakeStore) Get(_ context.Context, key string, dest any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(payload, dest)
}

func (s *fakeStore) Set(_ context.Context, key, _ string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = payload
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *fakeStore) Clear(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string][]byte)
	return nil
}

func (s *fakeStore) CleanExpired(_ context.Context) (int64, error) { return 0, nil }

func (s *fakeStore) Stats() cache.Stats { return cache.Stats{} }

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

package cache

import (
	"context"
	"fmt"

	"github.com/erp/analytics/internal/domain/recommendation"
	"github.com/google/uuid"
)

// Key builders. Keys embed the cache type segment so the redis tier
// can clear a whole type with a prefix scan.

// CustomerRFMKey is the per-customer RFM analysis key
func CustomerRFMKey(customerID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", TypeRFM, customerID)
}

// CustomerCLVKey is the per-customer CLV analysis key
func CustomerCLVKey(customerID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", TypeCLV, customerID)
}

// CustomerChurnKey is the per-customer churn analysis key
func CustomerChurnKey(customerID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", TypeChurn, customerID)
}

// CustomerRecommendationsKey is the per-customer recommendation list key
func CustomerRecommendationsKey(customerID uuid.UUID, limit int) string {
	return fmt.Sprintf("%s:%s:%d", TypeRecommendations, customerID, limit)
}

// CustomerRecommendationsPrefix matches every recommendation key of
// one customer, regardless of limit
func CustomerRecommendationsPrefix(customerID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:", TypeRecommendations, customerID)
}

// SegmentOverviewKey is the segment distribution overview key
func SegmentOverviewKey() string {
	return TypeSegmentOverview
}

// TopCLVKey is the top-customers-by-CLV ranking key
func TopCLVKey(limit int) string {
	return fmt.Sprintf("%s:%d", TypeTopCLV, limit)
}

// CrossSellKey is the per-product cross-sell key
func CrossSellKey(productID uuid.UUID, limit int) string {
	return fmt.Sprintf("%s:%s:%d", TypeCrossSell, productID, limit)
}

// PrefixDeleter is implemented by stores that can drop every key
// under a prefix in one call
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// InvalidateCustomer drops every per-customer entry, including
// recommendation lists at any limit. Aggregate keys (segment overview,
// top CLV rankings) are left to expire on their own TTL; they tolerate
// staleness within their window.
func InvalidateCustomer(ctx context.Context, store Store, customerID uuid.UUID) error {
	keys := []string{
		CustomerRFMKey(customerID),
		CustomerCLVKey(customerID),
		CustomerChurnKey(customerID),
	}

	var lastErr error
	for _, key := range keys {
		if err := store.Delete(ctx, key); err != nil {
			lastErr = err
		}
	}

	if pd, ok := store.(PrefixDeleter); ok {
		if err := pd.DeletePrefix(ctx, CustomerRecommendationsPrefix(customerID)); err != nil {
			lastErr = err
		}
	} else if err := store.Delete(ctx, CustomerRecommendationsKey(customerID, recommendation.DefaultLimit)); err != nil {
		lastErr = err
	}
	return lastErr
}

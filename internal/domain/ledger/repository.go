package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SortOrder controls the time ordering of ledger reads
type SortOrder string

// Sort orders
const (
	NewestFirst SortOrder = "desc"
	OldestFirst SortOrder = "asc"
)

// TransactionRepository is the read interface over the append-only ledger.
// The analytics core only consumes the ledger; writes happen in the order
// flow, which is outside this service.
type TransactionRepository interface {
	// FindCompletedByCustomer returns the customer's completed
	// transactions ordered by occurrence time.
	FindCompletedByCustomer(ctx context.Context, customerID uuid.UUID, order SortOrder) ([]Transaction, error)

	// CountFailedByCustomerSince counts failed transactions for the
	// customer with occurred_at >= since.
	CountFailedByCustomerSince(ctx context.Context, customerID uuid.UUID, since time.Time) (int64, error)

	// FindCustomerIDsByProduct returns the distinct customers that have a
	// completed purchase of the product.
	FindCustomerIDsByProduct(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error)

	// FindCompletedByCustomers returns all completed transactions for the
	// given customer set, used by the co-purchase scans.
	FindCompletedByCustomers(ctx context.Context, customerIDs []uuid.UUID) ([]Transaction, error)
}

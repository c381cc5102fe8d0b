package ledger

import (
	"time"

	"github.com/erp/analytics/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus represents the lifecycle state of a ledger entry
type TransactionStatus string

// Transaction statuses
const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusRefunded  TransactionStatus = "refunded"
)

// PaymentMethod represents how a transaction was paid
type PaymentMethod string

// Payment methods
const (
	PaymentCard     PaymentMethod = "card"
	PaymentBalance  PaymentMethod = "balance"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCash     PaymentMethod = "cash"
)

// Transaction is one entry in the append-only purchase ledger.
// Completed entries are immutable except for status transitions;
// every scorer treats the ledger as the source of truth.
type Transaction struct {
	shared.BaseEntity
	CustomerID    uuid.UUID
	ProductID     uuid.UUID
	Quantity      int
	UnitPrice     decimal.Decimal
	TotalAmount   decimal.Decimal
	Status        TransactionStatus
	PaymentMethod PaymentMethod
	OccurredAt    time.Time
}

// IsCompleted reports whether the transaction counts toward analytics
func (t *Transaction) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// NewTransaction creates a pending ledger entry
func NewTransaction(customerID, productID uuid.UUID, quantity int, unitPrice decimal.Decimal, method PaymentMethod) (*Transaction, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unit price cannot be negative")
	}
	return &Transaction{
		BaseEntity:    shared.NewBaseEntity(),
		CustomerID:    customerID,
		ProductID:     productID,
		Quantity:      quantity,
		UnitPrice:     unitPrice,
		TotalAmount:   unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		Status:        StatusPending,
		PaymentMethod: method,
		OccurredAt:    time.Now(),
	}, nil
}

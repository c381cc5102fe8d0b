package models

import (
	"time"

	"github.com/erp/analytics/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionModel is the persistence model for a ledger entry.
type TransactionModel struct {
	BaseModel
	CustomerID    uuid.UUID                `gorm:"type:uuid;not null;index:idx_tx_customer_occurred,priority:1"`
	ProductID     uuid.UUID                `gorm:"type:uuid;not null;index"`
	Quantity      int                      `gorm:"not null"`
	UnitPrice     decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	TotalAmount   decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Status        ledger.TransactionStatus `gorm:"type:varchar(20);not null;index"`
	PaymentMethod ledger.PaymentMethod     `gorm:"type:varchar(20);not null"`
	OccurredAt    time.Time                `gorm:"not null;index:idx_tx_customer_occurred,priority:2"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction entity.
func (m *TransactionModel) ToDomain() *ledger.Transaction {
	return &ledger.Transaction{
		BaseEntity:    m.BaseModel.ToDomain(),
		CustomerID:    m.CustomerID,
		ProductID:     m.ProductID,
		Quantity:      m.Quantity,
		UnitPrice:     m.UnitPrice,
		TotalAmount:   m.TotalAmount,
		Status:        m.Status,
		PaymentMethod: m.PaymentMethod,
		OccurredAt:    m.OccurredAt,
	}
}

// FromDomain populates the persistence model from a domain Transaction entity.
func (m *TransactionModel) FromDomain(t *ledger.Transaction) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.CustomerID = t.CustomerID
	m.ProductID = t.ProductID
	m.Quantity = t.Quantity
	m.UnitPrice = t.UnitPrice
	m.TotalAmount = t.TotalAmount
	m.Status = t.Status
	m.PaymentMethod = t.PaymentMethod
	m.OccurredAt = t.OccurredAt
}

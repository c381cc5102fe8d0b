package persistence

import (
	"context"
	"time"

	"github.com/erp/analytics/internal/domain/ledger"
	"github.com/erp/analytics/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTransactionRepository implements ledger.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindCompletedByCustomer returns the customer's completed transactions
// ordered by occurrence time
func (r *GormTransactionRepository) FindCompletedByCustomer(ctx context.Context, customerID uuid.UUID, order ledger.SortOrder) ([]ledger.Transaction, error) {
	var txModels []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND status = ?", customerID, ledger.StatusCompleted).
		Order("occurred_at " + string(order)).
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(txModels), nil
}

// CountFailedByCustomerSince counts failed transactions since the cutoff
func (r *GormTransactionRepository) CountFailedByCustomerSince(ctx context.Context, customerID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("customer_id = ? AND status = ? AND occurred_at >= ?", customerID, ledger.StatusFailed, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindCustomerIDsByProduct returns the distinct customers with a
// completed purchase of the product
func (r *GormTransactionRepository) FindCustomerIDsByProduct(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("product_id = ? AND status = ?", productID, ledger.StatusCompleted).
		Distinct("customer_id").
		Pluck("customer_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// FindCompletedByCustomers returns all completed transactions for the
// given customer set
func (r *GormTransactionRepository) FindCompletedByCustomers(ctx context.Context, customerIDs []uuid.UUID) ([]ledger.Transaction, error) {
	if len(customerIDs) == 0 {
		return nil, nil
	}
	var txModels []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("customer_id IN ? AND status = ?", customerIDs, ledger.StatusCompleted).
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(txModels), nil
}

func toDomainTransactions(txModels []models.TransactionModel) []ledger.Transaction {
	transactions := make([]ledger.Transaction, len(txModels))
	for i, model := range txModels {
		transactions[i] = *model.ToDomain()
	}
	return transactions
}

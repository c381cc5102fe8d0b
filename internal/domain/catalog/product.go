package catalog

import (
	"github.com/erp/analytics/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product is the read model of a catalog product. The analytics core
// needs stock state (recommendations never surface zero-stock
// products) and display attributes for recommendation payloads.
type Product struct {
	shared.BaseEntity
	SKU           string
	Name          string
	Category      string
	Price         decimal.Decimal
	StockQuantity int
}

// InStock reports whether the product can be recommended
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}

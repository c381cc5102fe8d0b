package partner

import (
	"time"

	"github.com/erp/analytics/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CustomerLevel represents the loyalty tier of a customer.
// The tier itself is derived by the loyalty subsystem; analytics only
// reads it (churn adds risk for customers at the lowest or no tier).
type CustomerLevel string

// Customer loyalty levels
const (
	LevelNone     CustomerLevel = "none"
	LevelBronze   CustomerLevel = "bronze"
	LevelSilver   CustomerLevel = "silver"
	LevelGold     CustomerLevel = "gold"
	LevelPlatinum CustomerLevel = "platinum"
)

// IsLowest reports whether the level is the bottom of the ladder
func (l CustomerLevel) IsLowest() bool {
	return l == LevelNone || l == LevelBronze || l == ""
}

// Customer is the read model of a customer as seen by the analytics
// core. TotalSpent is kept in sync by the order flow and is read-only
// here.
type Customer struct {
	shared.BaseEntity
	Code         string
	Name         string
	Level        CustomerLevel
	TotalSpent   decimal.Decimal
	RegisteredAt time.Time
}

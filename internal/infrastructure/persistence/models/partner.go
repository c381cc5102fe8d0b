package models

import (
	"time"

	"github.com/erp/analytics/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// CustomerModel is the persistence model for the Customer read model.
type CustomerModel struct {
	BaseModel
	Code         string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name         string                `gorm:"type:varchar(200);not null"`
	Level        partner.CustomerLevel `gorm:"type:varchar(20);not null;default:'none'"`
	TotalSpent   decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	RegisteredAt time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer entity.
func (m *CustomerModel) ToDomain() *partner.Customer {
	return &partner.Customer{
		BaseEntity:   m.BaseModel.ToDomain(),
		Code:         m.Code,
		Name:         m.Name,
		Level:        m.Level,
		TotalSpent:   m.TotalSpent,
		RegisteredAt: m.RegisteredAt,
	}
}

// FromDomain populates the persistence model from a domain Customer entity.
func (m *CustomerModel) FromDomain(c *partner.Customer) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Code = c.Code
	m.Name = c.Name
	m.Level = c.Level
	m.TotalSpent = c.TotalSpent
	m.RegisteredAt = c.RegisteredAt
}

package models

import (
	"time"
)

// CacheEntryModel is the persistence model for the durable cache tier.
// Values are stored as serialized JSON; the cache type column groups
// entries for selective clears.
type CacheEntryModel struct {
	CacheKey  string    `gorm:"type:varchar(255);primary_key"`
	CacheType string    `gorm:"type:varchar(50);not null;index"`
	Value     string    `gorm:"type:jsonb;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CacheEntryModel) TableName() string {
	return "cache_entries"
}

// Expired reports whether the entry is past its expiry
func (m *CacheEntryModel) Expired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}

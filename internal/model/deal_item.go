package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DealItem is one product line on a specific deal version. It references the
// version's RowKey, not the business id — items are never shared across
// versions; cloning a version copies its items row by row.
type DealItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DealRowKey uuid.UUID `gorm:"type:uuid;not null;index"`

	ProductName string          `gorm:"not null"`
	Article     string          `gorm:"type:varchar(100)"`
	Quantity    decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Unit        string          `gorm:"type:varchar(30);not null;default:'pcs'"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Position    int             `gorm:"not null;default:1"`
}

// LineAmount is quantity × unit price. Derived, never stored.
func (i DealItem) LineAmount() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// CopyTo returns a detached copy of the item bound to another version row.
func (i DealItem) CopyTo(rowKey uuid.UUID) DealItem {
	c := i
	c.ID = uuid.New()
	c.DealRowKey = rowKey
	return c
}

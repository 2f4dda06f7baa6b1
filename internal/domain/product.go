package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog's authoritative view of a sellable item.
type Product struct {
	ID          string
	Name        string
	Description string
	Image       *string
	Price       decimal.Decimal
	IsActive    bool
	IsDeleted   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p Product) Sellable() bool {
	return p.IsActive && !p.IsDeleted
}

package domain

import "github.com/shopspring/decimal"

const (
	DefaultItemName        = "Unnamed Product"
	DefaultItemDescription = "No description provided"

	// PriceScale is the number of decimal places kept for a unit price.
	PriceScale = 4
)

type LineItem struct {
	ProductID   string
	Name        string
	Image       *string
	Price       decimal.Decimal
	Quantity    int
	Description string
}

func (i LineItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Package pricing derives order totals from normalized line items.
package pricing

import (
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

var (
	// TaxRate is a flat rate applied to the subtotal.
	TaxRate = decimal.RequireFromString("0.08")
	// ShippingCharge is currently free for every order.
	ShippingCharge = decimal.Zero
)

type Totals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingCharge decimal.Decimal
	FinalAmount    decimal.Decimal
}

// Compute returns subtotal, tax, shipping and final amount, each rounded half-up
// to two decimal places. Amounts are never negative because item prices and
// quantities are validated at intake.
func Compute(items []domain.LineItem) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	subtotal = Round2(subtotal)

	tax := Round2(subtotal.Mul(TaxRate))
	shipping := Round2(ShippingCharge)

	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      tax,
		ShippingCharge: shipping,
		FinalAmount:    Round2(subtotal.Add(tax).Add(shipping)),
	}
}

// Round2 rounds half away from zero, which is half-up for the non-negative
// amounts handled here.
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// MinorUnits converts a major-unit amount into the smallest currency unit.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (t Totals) Apply(order *domain.Order) {
	order.Subtotal = t.Subtotal
	order.TaxAmount = t.TaxAmount
	order.ShippingCharge = t.ShippingCharge
	order.FinalAmount = t.FinalAmount
}

package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"storefront/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCompute_ExampleOrder(t *testing.T) {
	items := []domain.LineItem{
		{ProductID: "p1", Price: dec("100"), Quantity: 2},
		{ProductID: "p2", Price: dec("50"), Quantity: 1},
	}

	totals := Compute(items)

	assert.Equal(t, "250.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "20.00", totals.TaxAmount.StringFixed(2))
	assert.True(t, totals.ShippingCharge.IsZero())
	assert.Equal(t, "270.00", totals.FinalAmount.StringFixed(2))
}

func TestCompute_RoundsTaxHalfUp(t *testing.T) {
	// subtotal rounds first, then tax is taken from the rounded subtotal
	totals := Compute([]domain.LineItem{{Price: dec("10.5625"), Quantity: 1}})
	assert.Equal(t, "10.56", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "0.84", totals.TaxAmount.StringFixed(2))
	assert.Equal(t, "11.40", totals.FinalAmount.StringFixed(2))

	totals = Compute([]domain.LineItem{{Price: dec("3.125"), Quantity: 1}})
	assert.Equal(t, "3.13", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "0.25", totals.TaxAmount.StringFixed(2))
	assert.Equal(t, "3.38", totals.FinalAmount.StringFixed(2))

	totals = Compute([]domain.LineItem{{Price: dec("0.0625"), Quantity: 1}})
	assert.Equal(t, "0.06", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "0.00", totals.TaxAmount.StringFixed(2))
}

func TestCompute_FinalAmountInvariant(t *testing.T) {
	cases := [][]domain.LineItem{
		{{Price: dec("19.99"), Quantity: 3}},
		{{Price: dec("0.01"), Quantity: 7}, {Price: dec("1234.56"), Quantity: 2}},
		{{Price: dec("0"), Quantity: 1}},
		{{Price: dec("33.33"), Quantity: 3}, {Price: dec("66.67"), Quantity: 1}},
	}

	for _, items := range cases {
		totals := Compute(items)
		assert.True(t, totals.TaxAmount.Equal(Round2(totals.Subtotal.Mul(TaxRate))))
		assert.True(t, totals.ShippingCharge.IsZero())
		assert.True(t, totals.FinalAmount.Equal(Round2(totals.Subtotal.Add(totals.TaxAmount))))
		assert.False(t, totals.FinalAmount.IsNegative())
	}
}

func TestRound2_HalfUp(t *testing.T) {
	assert.Equal(t, "0.13", Round2(dec("0.125")).StringFixed(2))
	assert.Equal(t, "0.12", Round2(dec("0.1249")).StringFixed(2))
	assert.Equal(t, "2.68", Round2(dec("2.675")).StringFixed(2))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(27000), MinorUnits(dec("270")))
	assert.Equal(t, int64(1999), MinorUnits(dec("19.99")))
	assert.Equal(t, int64(1), MinorUnits(dec("0.005")))
	assert.Equal(t, int64(0), MinorUnits(decimal.Zero))
}

func TestTotals_Apply(t *testing.T) {
	order := &domain.Order{}
	Compute([]domain.LineItem{{Price: dec("100"), Quantity: 1}}).Apply(order)

	assert.Equal(t, "100.00", order.Subtotal.StringFixed(2))
	assert.Equal(t, "8.00", order.TaxAmount.StringFixed(2))
	assert.Equal(t, "108.00", order.FinalAmount.StringFixed(2))
}

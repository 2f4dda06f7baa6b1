package dto

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

func TestNewOrderDTO_Online(t *testing.T) {
	img := "lamp.png"
	paymentRef := "pay_P1"
	o := &domain.Order{
		OrderID: "ORD-1",
		UserID:  "user-1",
		Items: []domain.LineItem{
			{ProductID: "p-1", Name: "Lamp", Image: &img, Price: decimal.RequireFromString("499.99"), Quantity: 2, Description: "bright"},
		},
		Subtotal:       decimal.RequireFromString("999.98"),
		TaxAmount:      decimal.RequireFromString("180.00"),
		ShippingCharge: decimal.RequireFromString("50"),
		FinalAmount:    decimal.RequireFromString("1229.98"),
		PaymentMethod:  domain.PaymentMethodOnline,
		PaymentStatus:  domain.PaymentStatusPaid,
		Gateway:        &domain.GatewayRefs{OrderRef: "order_O1", PaymentRef: &paymentRef},
		OrderStatus:    domain.OrderStatusConfirmed,
	}

	got := NewOrderDTO(o)

	assert.Equal(t, "user-1", got.User)
	assert.Equal(t, 1229.98, got.FinalAmount)
	assert.Equal(t, 499.99, got.Items[0].Price)
	assert.Equal(t, 2, got.Items[0].Qty)
	require.NotNil(t, got.GatewayOrderRef)
	assert.Equal(t, "order_O1", *got.GatewayOrderRef)
	require.NotNil(t, got.GatewayPaymentRef)
	assert.Equal(t, "pay_P1", *got.GatewayPaymentRef)
	assert.Equal(t, "Online", got.PaymentMethod)
}

func TestNewOrderDTO_CashOnDelivery(t *testing.T) {
	o := &domain.Order{
		OrderID:       "ORD-2",
		PaymentMethod: domain.PaymentMethodCashOnDelivery,
		PaymentStatus: domain.PaymentStatusPending,
		OrderStatus:   domain.OrderStatusPending,
	}

	data, err := json.Marshal(NewOrderDTO(o))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Nil(t, body["gatewayOrderRef"])
	assert.Nil(t, body["gatewayPaymentRef"])
	assert.Equal(t, []any{}, body["items"])
	assert.NotContains(t, body, "notes")
}

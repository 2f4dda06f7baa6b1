package dto

import (
	"encoding/json"
	"strings"
)

// CreateOrderRequest is the body of POST /orders. Items stay raw so each entry
// can be normalized field by field.
type CreateOrderRequest struct {
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	PhoneNumber    string          `json:"phoneNumber"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	PaymentMethod  string          `json:"paymentMethod"`
	Notes          *string         `json:"notes"`
	Items          json.RawMessage `json:"items"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

// ContactPhone prefers phoneNumber and falls back to phone.
func (r CreateOrderRequest) ContactPhone() string {
	if p := strings.TrimSpace(r.PhoneNumber); p != "" {
		return p
	}
	return strings.TrimSpace(r.Phone)
}

// ConfirmPaymentRequest accepts both the neutral field names and the ones the
// gateway checkout widget hands back verbatim.
type ConfirmPaymentRequest struct {
	GatewayOrderRef   string `json:"gatewayOrderRef"`
	GatewayPaymentRef string `json:"gatewayPaymentRef"`
	Signature         string `json:"signature"`

	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

func (r ConfirmPaymentRequest) OrderRef() string {
	return firstNonEmpty(r.GatewayOrderRef, r.RazorpayOrderID)
}

func (r ConfirmPaymentRequest) PaymentRef() string {
	return firstNonEmpty(r.GatewayPaymentRef, r.RazorpayPaymentID)
}

func (r ConfirmPaymentRequest) SignatureValue() string {
	return firstNonEmpty(r.Signature, r.RazorpaySignature)
}

type UpdateOrderStatusRequest struct {
	OrderStatus string `json:"orderStatus"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

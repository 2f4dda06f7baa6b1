// Package payment integrates with the external payment gateway: creating
// gateway orders for online checkouts and verifying the signatures the gateway
// issues when a customer completes payment.
package payment

import (
	"context"
	"encoding/json"
)

// Currency is the only currency the storefront settles in.
const Currency = "INR"

// OrderRequest asks the gateway to open an order for AmountMinor units of
// Currency. Receipt carries the local order id for reconciliation.
type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// GatewayOrder is the gateway's view of an order. Raw holds the payload exactly
// as the gateway returned it so clients can drive the checkout widget.
type GatewayOrder struct {
	ID         string          `json:"id"`
	Entity     string          `json:"entity,omitempty"`
	Amount     int64           `json:"amount"`
	AmountPaid int64           `json:"amount_paid"`
	AmountDue  int64           `json:"amount_due"`
	Currency   string          `json:"currency"`
	Receipt    string          `json:"receipt"`
	Status     string          `json:"status,omitempty"`
	Attempts   int             `json:"attempts"`
	CreatedAt  int64           `json:"created_at,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// Payload returns the raw gateway payload, or a re-encoding of the known fields
// when the order was rebuilt from local state.
func (o *GatewayOrder) Payload() json.RawMessage {
	if o == nil {
		return nil
	}
	if len(o.Raw) > 0 {
		return o.Raw
	}
	data, err := json.Marshal(o)
	if err != nil {
		return nil
	}
	return data
}

type Gateway interface {
	// Configured reports whether both gateway credentials are present.
	Configured() bool
	// PublicKey is the key identifier the client-side checkout needs.
	PublicKey() string
	CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error)
}

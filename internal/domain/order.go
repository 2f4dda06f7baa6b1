package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const OrderIDPrefix = "ORD-"

type PaymentMethod string

const (
	PaymentMethodOnline         PaymentMethod = "Online"
	PaymentMethodCashOnDelivery PaymentMethod = "CashOnDelivery"
)

// ParsePaymentMethod accepts the canonical names plus the spaced
// "Cash On Delivery" label older storefront clients send.
func ParsePaymentMethod(value string) (PaymentMethod, bool) {
	switch strings.ToLower(strings.Join(strings.Fields(value), "")) {
	case "online":
		return PaymentMethodOnline, true
	case "cashondelivery", "cod":
		return PaymentMethodCashOnDelivery, true
	}
	return "", false
}

func (m PaymentMethod) InitialPaymentStatus() PaymentStatus {
	if m == PaymentMethodOnline {
		return PaymentStatusUnpaid
	}
	return PaymentStatusPending
}

type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "Unpaid"
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusConfirmed OrderStatus = "Confirmed"
	OrderStatusCompleted OrderStatus = "Completed"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted: nil,
	OrderStatusCancelled: nil,
}

func ParseOrderStatus(value string) (OrderStatus, bool) {
	status := OrderStatus(strings.TrimSpace(value))
	if _, ok := orderTransitions[status]; ok {
		return status, true
	}
	for known := range orderTransitions {
		if strings.EqualFold(string(known), string(status)) {
			return known, true
		}
	}
	return "", false
}

// CanTransitionTo reports whether an order in s may move to next. Re-applying
// the current status is allowed so repeated admin updates converge.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// SourcesFor lists every status from which target is reachable in one step,
// including target itself.
func SourcesFor(target OrderStatus) []OrderStatus {
	sources := []OrderStatus{target}
	for from, nexts := range orderTransitions {
		for _, next := range nexts {
			if next == target {
				sources = append(sources, from)
			}
		}
	}
	return sources
}

// GatewayRefs only exist on Online orders.
type GatewayRefs struct {
	OrderRef   string
	PaymentRef *string
}

type Order struct {
	OrderID        string
	UserID         string
	Name           string
	Email          string
	Phone          string
	Address        string
	Items          []LineItem
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingCharge decimal.Decimal
	FinalAmount    decimal.Decimal
	PaymentMethod  PaymentMethod
	PaymentStatus  PaymentStatus
	Gateway        *GatewayRefs
	OrderStatus    OrderStatus
	Notes          *string
	IdempotencyKey *string
	Fingerprint    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (o *Order) GatewayOrderRef() string {
	if o == nil || o.Gateway == nil {
		return ""
	}
	return o.Gateway.OrderRef
}

func (o *Order) GatewayPaymentRef() string {
	if o == nil || o.Gateway == nil || o.Gateway.PaymentRef == nil {
		return ""
	}
	return *o.Gateway.PaymentRef
}

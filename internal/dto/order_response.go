package dto

import (
	"encoding/json"
	"time"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
)

type OrderItemDTO struct {
	ProductID   string  `json:"productId"`
	Name        string  `json:"name"`
	Img         *string `json:"img"`
	Price       float64 `json:"price"`
	Qty         int     `json:"qty"`
	Description string  `json:"description"`
}

type OrderDTO struct {
	OrderID           string         `json:"orderId"`
	User              string         `json:"user"`
	Name              string         `json:"name"`
	Email             string         `json:"email"`
	PhoneNumber       string         `json:"phoneNumber"`
	Address           string         `json:"address"`
	Items             []OrderItemDTO `json:"items"`
	Subtotal          float64        `json:"subtotal"`
	TaxAmount         float64        `json:"taxAmount"`
	ShippingCharge    float64        `json:"shippingCharge"`
	FinalAmount       float64        `json:"finalAmount"`
	PaymentMethod     string         `json:"paymentMethod"`
	PaymentStatus     string         `json:"paymentStatus"`
	GatewayOrderRef   *string        `json:"gatewayOrderRef"`
	GatewayPaymentRef *string        `json:"gatewayPaymentRef"`
	OrderStatus       string         `json:"orderStatus"`
	Notes             *string        `json:"notes,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

func NewOrderDTO(o *domain.Order) OrderDTO {
	items := make([]OrderItemDTO, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemDTO{
			ProductID:   it.ProductID,
			Name:        it.Name,
			Img:         it.Image,
			Price:       it.Price.InexactFloat64(),
			Qty:         it.Quantity,
			Description: it.Description,
		}
	}

	out := OrderDTO{
		OrderID:        o.OrderID,
		User:           o.UserID,
		Name:           o.Name,
		Email:          o.Email,
		PhoneNumber:    o.Phone,
		Address:        o.Address,
		Items:          items,
		Subtotal:       o.Subtotal.InexactFloat64(),
		TaxAmount:      o.TaxAmount.InexactFloat64(),
		ShippingCharge: o.ShippingCharge.InexactFloat64(),
		FinalAmount:    o.FinalAmount.InexactFloat64(),
		PaymentMethod:  string(o.PaymentMethod),
		PaymentStatus:  string(o.PaymentStatus),
		OrderStatus:    string(o.OrderStatus),
		Notes:          o.Notes,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.Gateway != nil {
		ref := o.Gateway.OrderRef
		out.GatewayOrderRef = &ref
		out.GatewayPaymentRef = o.Gateway.PaymentRef
	}
	return out
}

func NewOrderDTOs(orders []domain.Order) []OrderDTO {
	out := make([]OrderDTO, len(orders))
	for i := range orders {
		out[i] = NewOrderDTO(&orders[i])
	}
	return out
}

type CreateOrderResponse struct {
	Success          bool            `json:"success"`
	Order            OrderDTO        `json:"order"`
	GatewayOrder     json.RawMessage `json:"gatewayOrder"`
	GatewayPublicKey *string         `json:"gatewayPublicKey"`
}

type OrderResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Order   OrderDTO `json:"order"`
}

type OrdersResponse struct {
	Success bool       `json:"success"`
	Orders  []OrderDTO `json:"orders"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Success bool                         `json:"success"`
	Message string                       `json:"message"`
	Code    string                       `json:"code"`
	TraceID string                       `json:"traceId"`
	Details []apperrors.ValidationDetail `json:"details,omitempty"`
}

package usecase

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
)

const maxIdempotencyKeyLength = 128

// intake is a create-order request after validation and normalization.
type intake struct {
	Name           string
	Email          string
	Phone          string
	Address        string
	PaymentMethod  domain.PaymentMethod
	Notes          *string
	Items          []domain.LineItem
	IdempotencyKey string
}

// normalizeRequest validates the contact fields and coerces every raw item to
// a LineItem. All problems are reported together in one ValidationError.
func normalizeRequest(req dto.CreateOrderRequest) (*intake, error) {
	var details []apperrors.ValidationDetail
	addDetail := func(field, message string) {
		details = append(details, apperrors.ValidationDetail{Field: field, Message: message})
	}

	in := &intake{
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.TrimSpace(req.Email),
		Phone:          req.ContactPhone(),
		Address:        strings.TrimSpace(req.Address),
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
	}

	if in.Name == "" {
		addDetail("name", "name is required")
	}
	if in.Email == "" {
		addDetail("email", "email is required")
	} else if !validEmail(in.Email) {
		addDetail("email", "email is not a valid address")
	}
	if in.Phone == "" {
		addDetail("phoneNumber", "phone number is required")
	}
	if in.Address == "" {
		addDetail("address", "address is required")
	}

	method, ok := domain.ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		addDetail("paymentMethod", "paymentMethod must be Online or CashOnDelivery")
	}
	in.PaymentMethod = method

	if req.Notes != nil {
		if notes := strings.TrimSpace(*req.Notes); notes != "" {
			in.Notes = &notes
		}
	}

	if len(in.IdempotencyKey) > maxIdempotencyKeyLength {
		addDetail("idempotencyKey", fmt.Sprintf("idempotency key must be at most %d characters", maxIdempotencyKeyLength))
	}

	items, itemDetails := normalizeItems(req.Items)
	details = append(details, itemDetails...)
	in.Items = items

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details...)
	}
	return in, nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func normalizeItems(raw json.RawMessage) ([]domain.LineItem, []apperrors.ValidationDetail) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, []apperrors.ValidationDetail{{Field: "items", Message: "order items are required"}}
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, []apperrors.ValidationDetail{{Field: "items", Message: "items must be a list"}}
	}
	if len(entries) == 0 {
		return nil, []apperrors.ValidationDetail{{Field: "items", Message: "order items are required"}}
	}

	var details []apperrors.ValidationDetail
	items := make([]domain.LineItem, 0, len(entries))
	for i, entry := range entries {
		item, itemDetails := normalizeItem(i, entry)
		details = append(details, itemDetails...)
		items = append(items, item)
	}
	return items, details
}

func normalizeItem(idx int, raw json.RawMessage) (domain.LineItem, []apperrors.ValidationDetail) {
	field := func(name string) string { return "items[" + strconv.Itoa(idx) + "]" + name }

	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return domain.LineItem{}, []apperrors.ValidationDetail{{Field: field(""), Message: "each item must be an object"}}
	}

	var details []apperrors.ValidationDetail
	item := domain.LineItem{
		ProductID:   firstString(fields, "productId", "_id", "id"),
		Name:        firstString(fields, "name"),
		Description: firstString(fields, "description"),
	}

	if item.Name == "" {
		item.Name = domain.DefaultItemName
	}
	if item.Description == "" {
		item.Description = domain.DefaultItemDescription
	}
	if img := firstString(fields, "img", "image"); img != "" {
		item.Image = &img
	}

	price, err := decimalField(fields["price"], decimal.Zero)
	switch {
	case err != nil:
		details = append(details, apperrors.ValidationDetail{Field: field(".price"), Message: "price must be a number"})
	case price.IsNegative():
		details = append(details, apperrors.ValidationDetail{Field: field(".price"), Message: "price must be non-negative"})
	}
	item.Price = price.Round(domain.PriceScale)

	qty, err := decimalField(fields["qty"], decimal.NewFromInt(1))
	switch {
	case err != nil:
		details = append(details, apperrors.ValidationDetail{Field: field(".qty"), Message: "qty must be a number"})
	case !qty.IsInteger() || qty.LessThan(decimal.NewFromInt(1)) || !qty.LessThanOrEqual(decimal.NewFromInt(1<<31-1)):
		details = append(details, apperrors.ValidationDetail{Field: field(".qty"), Message: "qty must be a whole number of at least 1"})
	default:
		item.Quantity = int(qty.IntPart())
	}

	return item, details
}

// firstString returns the first non-empty value among keys, rendering numbers
// as their literal text.
func firstString(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := fields[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

func decimalField(value any, fallback decimal.Decimal) (decimal.Decimal, error) {
	switch v := value.(type) {
	case nil:
		return fallback, nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return fallback, nil
		}
		return decimal.NewFromString(s)
	default:
		return decimal.Zero, fmt.Errorf("unsupported type %T", value)
	}
}

type fingerprintItem struct {
	ProductID   string  `json:"productId"`
	Name        string  `json:"name"`
	Img         *string `json:"img"`
	Price       string  `json:"price"`
	Qty         int     `json:"qty"`
	Description string  `json:"description"`
}

type fingerprintBody struct {
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Phone         string            `json:"phone"`
	Address       string            `json:"address"`
	PaymentMethod string            `json:"paymentMethod"`
	Notes         *string           `json:"notes"`
	Items         []fingerprintItem `json:"items"`
}

// fingerprint hashes the normalized request so a retried idempotency key can be
// told apart from a key reused for a different order.
func (in *intake) fingerprint() string {
	body := fingerprintBody{
		Name:          in.Name,
		Email:         strings.ToLower(in.Email),
		Phone:         in.Phone,
		Address:       in.Address,
		PaymentMethod: string(in.PaymentMethod),
		Notes:         in.Notes,
		Items:         make([]fingerprintItem, len(in.Items)),
	}
	for i, it := range in.Items {
		body.Items[i] = fingerprintItem{
			ProductID:   it.ProductID,
			Name:        it.Name,
			Img:         it.Image,
			Price:       it.Price.String(),
			Qty:         it.Quantity,
			Description: it.Description,
		}
	}

	data, _ := json.Marshal(body)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

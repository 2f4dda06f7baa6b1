package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure/mysql"
)

// ErrIdempotencyKeyTaken is returned by Insert when the owner already has an
// order under the same idempotency key.
var ErrIdempotencyKeyTaken = errors.New("idempotency key already used")

// ListFilter narrows the admin order listing. Zero values mean no filter; a
// zero Limit returns every matching order.
type ListFilter struct {
	Search string
	Status domain.OrderStatus
	Limit  int
}

type MySQLOrderRepository struct {
	db    *sql.DB
	items *MySQLOrderItemRepository
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db, items: NewMySQLOrderItemRepository(db)}
}

const orderColumns = `
	o.order_id, o.user_id, o.name, o.email, o.phone, o.address,
	o.subtotal, o.tax_amount, o.shipping_charge, o.final_amount,
	o.payment_method, o.payment_status, o.gateway_order_ref, o.gateway_payment_ref,
	o.order_status, o.notes, o.idempotency_key, o.request_fingerprint,
	o.created_at, o.updated_at`

// Insert writes the order row and its items inside tx.
func (r *MySQLOrderRepository) Insert(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	query := `
		INSERT INTO orders (
			order_id, user_id, name, email, phone, address,
			subtotal, tax_amount, shipping_charge, final_amount,
			payment_method, payment_status, gateway_order_ref, gateway_payment_ref,
			order_status, notes, idempotency_key, request_fingerprint,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var gatewayOrderRef, gatewayPaymentRef sql.NullString
	if order.Gateway != nil {
		gatewayOrderRef = sql.NullString{String: order.Gateway.OrderRef, Valid: order.Gateway.OrderRef != ""}
		gatewayPaymentRef = nullString(order.Gateway.PaymentRef)
	}

	_, err := tx.ExecContext(ctx, query,
		order.OrderID, order.UserID, order.Name, order.Email, order.Phone, order.Address,
		order.Subtotal, order.TaxAmount, order.ShippingCharge, order.FinalAmount,
		string(order.PaymentMethod), string(order.PaymentStatus), gatewayOrderRef, gatewayPaymentRef,
		string(order.OrderStatus), nullString(order.Notes), nullString(order.IdempotencyKey), nullString(order.Fingerprint),
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if mysql.IsDuplicateOf(err, mysql.OrdersIdempotencyKey) {
			return ErrIdempotencyKeyTaken
		}
		if mysql.IsDuplicateOf(err, "PRIMARY") {
			return apperrors.NewConflictError(fmt.Sprintf("order %s already exists", order.OrderID))
		}
		if _, dup := mysql.DuplicateKey(err); dup {
			return apperrors.NewConflictError("order conflicts with an existing order")
		}
		if ve, ok := exceedsStorage(err, orderField); ok {
			return ve
		}
		return fmt.Errorf("inserting order: %w", err)
	}

	for i, item := range order.Items {
		if err := r.items.Insert(ctx, tx, order.OrderID, i, item); err != nil {
			return err
		}
	}

	return nil
}

// SetGatewayOrderRef attaches the gateway's order reference inside tx.
func (r *MySQLOrderRepository) SetGatewayOrderRef(ctx context.Context, tx *sql.Tx, orderID, gatewayOrderRef string) error {
	query := `UPDATE orders SET gateway_order_ref = ? WHERE order_id = ?`

	result, err := tx.ExecContext(ctx, query, gatewayOrderRef, orderID)
	if err != nil {
		if mysql.IsDuplicateOf(err, mysql.OrdersGatewayRefKey) {
			return apperrors.NewConflictError(fmt.Sprintf("gateway order %s is already linked", gatewayOrderRef))
		}
		return fmt.Errorf("setting gateway order ref: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", orderID))
	}
	return nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.findOne(ctx, "o.order_id = ?", []any{orderID}, fmt.Sprintf("order %s not found", orderID))
}

func (r *MySQLOrderRepository) FindByGatewayOrderRef(ctx context.Context, gatewayOrderRef string) (*domain.Order, error) {
	return r.findOne(ctx, "o.gateway_order_ref = ?", []any{gatewayOrderRef}, "no order for the given gateway order reference")
}

func (r *MySQLOrderRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error) {
	return r.findOne(ctx, "o.user_id = ? AND o.idempotency_key = ?", []any{userID, key}, "no order for the given idempotency key")
}

func (r *MySQLOrderRepository) findOne(ctx context.Context, where string, args []any, notFound string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE ` + where

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(notFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying order: %w", err)
	}

	items, err := r.items.FindByOrderIDs(ctx, []string{order.OrderID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.OrderID]

	return order, nil
}

// MarkPaid settles the order linked to gatewayOrderRef. Repeating the call with
// the same arguments leaves the order in the same state.
func (r *MySQLOrderRepository) MarkPaid(ctx context.Context, gatewayOrderRef, gatewayPaymentRef string) (*domain.Order, error) {
	query := `
		UPDATE orders
		SET payment_status = ?, gateway_payment_ref = ?, updated_at = ?
		WHERE gateway_order_ref = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		string(domain.PaymentStatusPaid), gatewayPaymentRef, time.Now().UTC(), gatewayOrderRef,
	)
	if err != nil {
		return nil, fmt.Errorf("marking order paid: %w", err)
	}

	return r.FindByGatewayOrderRef(ctx, gatewayOrderRef)
}

// UpdateStatus sets order_status to target only while the current status is
// one of sources. It reports whether a row was changed; callers re-read the
// order to learn why not.
func (r *MySQLOrderRepository) UpdateStatus(ctx context.Context, orderID string, target domain.OrderStatus, sources []domain.OrderStatus) (bool, error) {
	if len(sources) == 0 {
		return false, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sources)), ",")
	query := fmt.Sprintf(`
		UPDATE orders
		SET order_status = ?, updated_at = ?
		WHERE order_id = ? AND order_status IN (%s)
	`, placeholders)

	args := []any{string(target), time.Now().UTC(), orderID}
	for _, s := range sources {
		args = append(args, string(s))
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("updating order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Delete removes the order; its items go with it through the foreign key.
func (r *MySQLOrderRepository) Delete(ctx context.Context, orderID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE order_id = ?`, orderID)
	if err != nil {
		return fmt.Errorf("deleting order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", orderID))
	}
	return nil
}

// List returns orders newest first. Search matches order id, customer name,
// email or any item name, case-insensitively.
func (r *MySQLOrderRepository) List(ctx context.Context, filter ListFilter) ([]domain.Order, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.Status != "" {
		conditions = append(conditions, "o.order_status = ?")
		args = append(args, string(filter.Status))
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		conditions = append(conditions, `(
			LOWER(o.order_id) LIKE ?
			OR LOWER(o.name) LIKE ?
			OR LOWER(o.email) LIKE ?
			OR EXISTS (
				SELECT 1 FROM order_items i
				WHERE i.order_id = o.order_id AND LOWER(i.name) LIKE ?
			)
		)`)
		args = append(args, pattern, pattern, pattern, pattern)
	}

	return r.list(ctx, conditions, args, filter.Limit)
}

func (r *MySQLOrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, []string{"o.user_id = ?"}, []any{userID}, 0)
}

func listQuery(conditions []string, limit int) string {
	query := `SELECT ` + orderColumns + ` FROM orders o`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY o.created_at DESC, o.order_id DESC`
	if limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(limit)
	}
	return query
}

func (r *MySQLOrderRepository) list(ctx context.Context, conditions []string, args []any, limit int) ([]domain.Order, error) {
	query := listQuery(conditions, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	var ids []string
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, *order)
		ids = append(ids, order.OrderID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}

	items, err := r.items.FindByOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].OrderID]
	}

	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order                              domain.Order
		paymentMethod, paymentStatus       string
		orderStatus                        string
		gatewayOrderRef, gatewayPaymentRef sql.NullString
		notes, idempotencyKey, fingerprint sql.NullString
	)

	err := row.Scan(
		&order.OrderID, &order.UserID, &order.Name, &order.Email, &order.Phone, &order.Address,
		&order.Subtotal, &order.TaxAmount, &order.ShippingCharge, &order.FinalAmount,
		&paymentMethod, &paymentStatus, &gatewayOrderRef, &gatewayPaymentRef,
		&orderStatus, &notes, &idempotencyKey, &fingerprint,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.PaymentMethod = domain.PaymentMethod(paymentMethod)
	order.PaymentStatus = domain.PaymentStatus(paymentStatus)
	order.OrderStatus = domain.OrderStatus(orderStatus)
	if gatewayOrderRef.Valid {
		order.Gateway = &domain.GatewayRefs{
			OrderRef:   gatewayOrderRef.String,
			PaymentRef: stringPtr(gatewayPaymentRef),
		}
	}
	order.Notes = stringPtr(notes)
	order.IdempotencyKey = stringPtr(idempotencyKey)
	order.Fingerprint = stringPtr(fingerprint)

	return &order, nil
}

var orderFields = map[string]string{
	"phone":           "phoneNumber",
	"subtotal":        "items",
	"tax_amount":      "items",
	"shipping_charge": "items",
	"final_amount":    "items",
	"idempotency_key": "idempotencyKey",
}

func orderField(column string) string {
	if field, ok := orderFields[column]; ok {
		return field
	}
	return column
}

func itemField(column string) string {
	switch column {
	case "product_id":
		return "items.productId"
	case "image":
		return "items.img"
	case "quantity":
		return "items.qty"
	case "":
		return "items"
	}
	return "items." + column
}

// exceedsStorage turns a value the database refused to store into a
// ValidationError naming the request field it came from.
func exceedsStorage(err error, field func(column string) string) (*apperrors.ValidationError, bool) {
	column, ok := mysql.RejectedColumn(err)
	if !ok {
		return nil, false
	}
	name := field(column)
	if name == "" {
		name = "order"
	}
	return apperrors.NewValidationError("order exceeds storage limits", apperrors.ValidationDetail{
		Field:   name,
		Message: "value is too large to store",
	}), true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

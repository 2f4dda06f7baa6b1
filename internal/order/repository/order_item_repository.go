package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"storefront/internal/domain"
)

type MySQLOrderItemRepository struct {
	db *sql.DB
}

func NewMySQLOrderItemRepository(db *sql.DB) *MySQLOrderItemRepository {
	return &MySQLOrderItemRepository{db: db}
}

// Insert stores one line item at the given position within its order.
func (r *MySQLOrderItemRepository) Insert(ctx context.Context, tx *sql.Tx, orderID string, position int, item domain.LineItem) error {
	query := `
		INSERT INTO order_items (order_id, position, product_id, name, image, price, quantity, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(ctx, query,
		orderID, position, item.ProductID, item.Name, nullString(item.Image),
		item.Price, item.Quantity, item.Description,
	)
	if err != nil {
		if ve, ok := exceedsStorage(err, itemField); ok {
			return ve
		}
		return fmt.Errorf("inserting order item %d: %w", position, err)
	}
	return nil
}

// itemLookupBatch bounds the ids bound into one IN clause.
const itemLookupBatch = 1000

// FindByOrderIDs loads the items of every listed order, keyed by order id and
// kept in their original position.
func (r *MySQLOrderItemRepository) FindByOrderIDs(ctx context.Context, orderIDs []string) (map[string][]domain.LineItem, error) {
	result := make(map[string][]domain.LineItem, len(orderIDs))
	for _, batch := range batches(orderIDs, itemLookupBatch) {
		if err := r.loadBatch(ctx, batch, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *MySQLOrderItemRepository) loadBatch(ctx context.Context, orderIDs []string, result map[string][]domain.LineItem) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(orderIDs)), ",")
	query := fmt.Sprintf(`
		SELECT order_id, product_id, name, image, price, quantity, description
		FROM order_items
		WHERE order_id IN (%s)
		ORDER BY order_id, position
	`, placeholders)

	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			item    domain.LineItem
			image   sql.NullString
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &image, &item.Price, &item.Quantity, &item.Description); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		item.Image = stringPtr(image)
		result[orderID] = append(result[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating order items: %w", err)
	}
	return nil
}

func batches(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	OrdersIdempotencyKey = "uq_orders_idempotency"
	OrdersGatewayRefKey  = "uq_orders_gateway_order_ref"
)

// Schema lists the DDL statements for the tables owned by this service, in
// dependency order.
var Schema = []struct {
	Table string
	DDL   string
}{
	{"products", `
	CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(255) NOT NULL PRIMARY KEY,
		name VARCHAR(1024) NOT NULL,
		description TEXT,
		image VARCHAR(1024) NULL,
		price DECIMAL(20,2) NOT NULL DEFAULT 0.00,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		is_deleted TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3)
	)`},
	{"orders", `
	CREATE TABLE IF NOT EXISTS orders (
		order_id VARCHAR(64) NOT NULL PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		name VARCHAR(1024) NOT NULL,
		email VARCHAR(1024) NOT NULL,
		phone VARCHAR(255) NOT NULL,
		address TEXT NOT NULL,
		subtotal DECIMAL(24,2) NOT NULL,
		tax_amount DECIMAL(24,2) NOT NULL,
		shipping_charge DECIMAL(24,2) NOT NULL,
		final_amount DECIMAL(24,2) NOT NULL,
		payment_method VARCHAR(32) NOT NULL,
		payment_status VARCHAR(16) NOT NULL,
		gateway_order_ref VARCHAR(64) NULL,
		gateway_payment_ref VARCHAR(64) NULL,
		order_status VARCHAR(16) NOT NULL DEFAULT 'Pending',
		notes TEXT NULL,
		idempotency_key VARCHAR(128) NULL,
		request_fingerprint CHAR(64) NULL,
		created_at DATETIME(3) NOT NULL,
		updated_at DATETIME(3) NOT NULL,
		UNIQUE KEY ` + OrdersGatewayRefKey + ` (gateway_order_ref),
		UNIQUE KEY ` + OrdersIdempotencyKey + ` (user_id, idempotency_key),
		INDEX idx_orders_user_created (user_id, created_at),
		INDEX idx_orders_created (created_at),
		INDEX idx_orders_status (order_status)
	)`},
	{"order_items", `
	CREATE TABLE IF NOT EXISTS order_items (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		order_id VARCHAR(64) NOT NULL,
		position INT NOT NULL,
		product_id VARCHAR(255) NOT NULL,
		name VARCHAR(1024) NOT NULL,
		image VARCHAR(1024) NULL,
		price DECIMAL(24,4) NOT NULL,
		quantity INT NOT NULL DEFAULT 1,
		description TEXT NOT NULL,
		UNIQUE KEY uq_order_items_position (order_id, position),
		INDEX idx_order_items_product (product_id),
		FOREIGN KEY (order_id) REFERENCES orders(order_id) ON DELETE CASCADE
	)`},
}

func Migrate(ctx context.Context, db *sql.DB) error {
	for _, tbl := range Schema {
		if _, err := db.ExecContext(ctx, tbl.DDL); err != nil {
			return fmt.Errorf("creating table %s: %w", tbl.Table, err)
		}
	}
	return nil
}

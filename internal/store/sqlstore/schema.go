package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"salesservice/internal/platform/database"
)

// schema is rendered per dialect: {{money}} and {{time}} become column types.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		customer_id TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		email       TEXT NOT NULL UNIQUE,
		phone       TEXT,
		created_at  {{time}} NOT NULL,
		updated_at  {{time}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id          TEXT PRIMARY KEY,
		sku                 TEXT NOT NULL UNIQUE,
		name                TEXT NOT NULL,
		unit_price          {{money}} NOT NULL,
		stock_quantity      INTEGER NOT NULL CHECK (stock_quantity >= 0),
		low_stock_threshold INTEGER NOT NULL DEFAULT 0,
		is_active           BOOLEAN NOT NULL DEFAULT TRUE,
		created_at          {{time}} NOT NULL,
		updated_at          {{time}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id     TEXT PRIMARY KEY,
		customer_id  TEXT NOT NULL REFERENCES customers(customer_id) ON DELETE RESTRICT,
		order_date   {{time}} NOT NULL,
		status       TEXT NOT NULL CHECK (status IN ('Pending', 'Completed', 'Cancelled')),
		total_amount {{money}} NOT NULL,
		created_at   {{time}} NOT NULL,
		updated_at   {{time}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		sale_id      TEXT PRIMARY KEY,
		order_id     TEXT NOT NULL REFERENCES orders(order_id) ON DELETE CASCADE,
		product_id   TEXT REFERENCES products(product_id) ON DELETE RESTRICT,
		product_name TEXT NOT NULL,
		quantity     INTEGER NOT NULL CHECK (quantity > 0),
		unit_price   {{money}} NOT NULL,
		total_price  {{money}} NOT NULL,
		created_at   {{time}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_order ON sales(order_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_product ON sales(product_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at)`,
}

func renderSchema(d database.Dialect) []string {
	r := strings.NewReplacer("{{money}}", d.MoneyType(), "{{time}}", d.TimeType())
	out := make([]string, len(schema))
	for i, stmt := range schema {
		out[i] = r.Replace(stmt)
	}
	return out
}

// Migrate creates the tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range renderSchema(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

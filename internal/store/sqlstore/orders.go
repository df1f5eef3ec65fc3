package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"salesservice/internal/domain"
	"salesservice/internal/orders"
	"salesservice/internal/platform/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	productColumns = `product_id, sku, name, unit_price, stock_quantity, low_stock_threshold, is_active, created_at, updated_at`
	orderColumns   = `order_id, customer_id, order_date, status, total_amount, created_at, updated_at`
	saleColumns    = `sale_id, order_id, product_id, product_name, quantity, unit_price, total_price, created_at`
)

type tx struct {
	q querier
	d database.Dialect
}

var _ orders.Tx = (*tx)(nil)

func (t *tx) rebind(query string) string {
	return t.d.Rebind(query)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.UnitPrice, &p.StockQuantity, &p.LowStockThreshold, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func scanSale(row rowScanner) (domain.Sale, error) {
	var (
		s         domain.Sale
		productID uuid.NullUUID
	)
	if err := row.Scan(&s.ID, &s.OrderID, &productID, &s.ProductName, &s.Quantity, &s.UnitPrice, &s.TotalPrice, &s.CreatedAt); err != nil {
		return domain.Sale{}, err
	}
	if productID.Valid {
		id := productID.UUID
		s.ProductID = &id
	}
	return s, nil
}

func (t *tx) CustomerExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int
	err := t.q.QueryRowContext(ctx, t.rebind(`SELECT COUNT(*) FROM customers WHERE customer_id = ?`), id.String()).Scan(&n)
	if err != nil {
		return false, wrapErr("look up customer", err)
	}
	return n > 0, nil
}

func (t *tx) ProductsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error) {
	out := make(map[uuid.UUID]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := `SELECT ` + productColumns + ` FROM products WHERE product_id IN (` + placeholders + `)`

	rows, err := t.q.QueryContext(ctx, t.rebind(query), args...)
	if err != nil {
		return nil, wrapErr("load products", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrapErr("scan product", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("load products", err)
	}
	return out, nil
}

func (t *tx) GetProduct(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	row := t.q.QueryRowContext(ctx, t.rebind(`SELECT `+productColumns+` FROM products WHERE product_id = ?`), id.String())
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.NewNotFoundError("product", id)
	}
	if err != nil {
		return domain.Product{}, wrapErr("get product", err)
	}
	return p, nil
}

func (t *tx) ReserveStock(ctx context.Context, productID uuid.UUID, qty int, at time.Time) error {
	res, err := t.q.ExecContext(ctx, t.rebind(`
		UPDATE products
		SET stock_quantity = stock_quantity - ?, updated_at = ?
		WHERE product_id = ? AND stock_quantity >= ?`),
		qty, timeArg(t.d, at), productID.String(), qty)
	if err != nil {
		return wrapErr("reserve stock", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("reserve stock", err)
	}
	if affected == 1 {
		return nil
	}

	p, err := t.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	return domain.NewInsufficientStockError(p.Name, p.StockQuantity, qty)
}

func (t *tx) InsertOrder(ctx context.Context, o domain.Order) error {
	_, err := t.q.ExecContext(ctx, t.rebind(`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		o.ID.String(), o.CustomerID.String(), timeArg(t.d, o.OrderDate), o.Status, o.TotalAmount,
		timeArg(t.d, o.CreatedAt), timeArg(t.d, o.UpdatedAt))
	if isForeignKeyViolation(err) {
		return domain.NewNotFoundError("customer", o.CustomerID)
	}
	return wrapErr("insert order", err)
}

func (t *tx) GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	row := t.q.QueryRowContext(ctx, t.rebind(`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`), id.String())
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.NewNotFoundError("order", id)
	}
	if err != nil {
		return domain.Order{}, wrapErr("get order", err)
	}
	return o, nil
}

func (t *tx) LockOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	row := t.q.QueryRowContext(ctx, t.rebind(`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`+t.d.ForUpdate()), id.String())
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.NewNotFoundError("order", id)
	}
	if err != nil {
		return domain.Order{}, wrapErr("lock order", err)
	}
	return o, nil
}

func (t *tx) UpdateOrderTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal, at time.Time) error {
	return t.execOne(ctx, "update order total", domain.NewNotFoundError("order", id),
		`UPDATE orders SET total_amount = ?, updated_at = ? WHERE order_id = ?`,
		total, timeArg(t.d, at), id.String())
}

func (t *tx) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, at time.Time) error {
	return t.execOne(ctx, "update order status", domain.NewNotFoundError("order", id),
		`UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ?`,
		status, timeArg(t.d, at), id.String())
}

func (t *tx) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	// Sales are deleted explicitly so the cascade does not depend on SQLite's foreign_keys pragma.
	if _, err := t.q.ExecContext(ctx, t.rebind(`DELETE FROM sales WHERE order_id = ?`), id.String()); err != nil {
		return wrapErr("delete order sales", err)
	}
	return t.execOne(ctx, "delete order", domain.NewNotFoundError("order", id),
		`DELETE FROM orders WHERE order_id = ?`, id.String())
}

func (t *tx) InsertSale(ctx context.Context, s domain.Sale) error {
	_, err := t.q.ExecContext(ctx, t.rebind(`INSERT INTO sales (`+saleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		s.ID.String(), s.OrderID.String(), nullableID(s.ProductID), s.ProductName, s.Quantity,
		s.UnitPrice, s.TotalPrice, timeArg(t.d, s.CreatedAt))
	if isForeignKeyViolation(err) {
		return domain.NewNotFoundError("order", s.OrderID)
	}
	return wrapErr("insert sale", err)
}

func (t *tx) GetSale(ctx context.Context, id uuid.UUID) (domain.Sale, error) {
	row := t.q.QueryRowContext(ctx, t.rebind(`SELECT `+saleColumns+` FROM sales WHERE sale_id = ?`), id.String())
	s, err := scanSale(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Sale{}, domain.NewNotFoundError("sale", id)
	}
	if err != nil {
		return domain.Sale{}, wrapErr("get sale", err)
	}
	return s, nil
}

func (t *tx) ListSales(ctx context.Context, orderID uuid.UUID) ([]domain.Sale, error) {
	rows, err := t.q.QueryContext(ctx,
		t.rebind(`SELECT `+saleColumns+` FROM sales WHERE order_id = ? ORDER BY created_at, sale_id`), orderID.String())
	if err != nil {
		return nil, wrapErr("list sales", err)
	}
	defer rows.Close()

	var out []domain.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, wrapErr("scan sale", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list sales", err)
	}
	return out, nil
}

func (t *tx) CountSales(ctx context.Context, orderID uuid.UUID) (int, error) {
	var n int
	err := t.q.QueryRowContext(ctx, t.rebind(`SELECT COUNT(*) FROM sales WHERE order_id = ?`), orderID.String()).Scan(&n)
	if err != nil {
		return 0, wrapErr("count sales", err)
	}
	return n, nil
}

func (t *tx) UpdateSale(ctx context.Context, s domain.Sale) error {
	return t.execOne(ctx, "update sale", domain.NewNotFoundError("sale", s.ID),
		`UPDATE sales SET quantity = ?, unit_price = ?, total_price = ? WHERE sale_id = ?`,
		s.Quantity, s.UnitPrice, s.TotalPrice, s.ID.String())
}

func (t *tx) DeleteSale(ctx context.Context, id uuid.UUID) error {
	return t.execOne(ctx, "delete sale", domain.NewNotFoundError("sale", id),
		`DELETE FROM sales WHERE sale_id = ?`, id.String())
}

// execOne runs a statement that must touch exactly one row and returns
// notFound when it touches none.
func (t *tx) execOne(ctx context.Context, op string, notFound error, query string, args ...any) error {
	res, err := t.q.ExecContext(ctx, t.rebind(query), args...)
	if err != nil {
		return wrapErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(op, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

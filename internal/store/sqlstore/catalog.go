package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"salesservice/internal/catalog"
	"salesservice/internal/domain"

	"github.com/google/uuid"
)

var _ catalog.Repository = (*Store)(nil)

const customerColumns = `customer_id, name, email, phone, created_at, updated_at`

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var (
		c     domain.Customer
		phone sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Customer{}, err
	}
	c.Phone = stringPtr(phone)
	return c, nil
}

func (s *Store) InsertCustomer(ctx context.Context, c domain.Customer) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO customers (`+customerColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
		c.ID.String(), c.Name, c.Email, nullableString(c.Phone), timeArg(s.dialect, c.CreatedAt), timeArg(s.dialect, c.UpdatedAt))
	if isUniqueViolation(err) {
		return domain.NewConflictError("customer email "+c.Email, domain.ReasonDuplicate)
	}
	return wrapErr("insert customer", err)
}

func (s *Store) UpdateCustomer(ctx context.Context, c domain.Customer) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE customers SET name = ?, email = ?, phone = ?, updated_at = ? WHERE customer_id = ?`),
		c.Name, c.Email, nullableString(c.Phone), timeArg(s.dialect, c.UpdatedAt), c.ID.String())
	if isUniqueViolation(err) {
		return domain.NewConflictError("customer email "+c.Email, domain.ReasonDuplicate)
	}
	return requireOne(res, err, "update customer", domain.NewNotFoundError("customer", c.ID))
}

func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (domain.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx, s.rebind(`SELECT `+customerColumns+` FROM customers WHERE customer_id = ?`), id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, domain.NewNotFoundError("customer", id)
	}
	if err != nil {
		return domain.Customer{}, wrapErr("get customer", err)
	}
	return c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY name, customer_id`)
	if err != nil {
		return nil, wrapErr("list customers", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, wrapErr("scan customer", err)
		}
		out = append(out, c)
	}
	return out, wrapErr("list customers", rows.Err())
}

func (s *Store) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return s.deleteUnreferenced(ctx, "customer", id,
		`SELECT COUNT(*) FROM orders WHERE customer_id = ?`,
		`DELETE FROM customers WHERE customer_id = ?`)
}

func (s *Store) InsertProduct(ctx context.Context, p domain.Product) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID.String(), p.SKU, p.Name, p.UnitPrice, p.StockQuantity, p.LowStockThreshold, p.IsActive,
		timeArg(s.dialect, p.CreatedAt), timeArg(s.dialect, p.UpdatedAt))
	if isUniqueViolation(err) {
		return domain.NewConflictError("product sku "+p.SKU, domain.ReasonDuplicate)
	}
	return wrapErr("insert product", err)
}

func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE products
		SET sku = ?, name = ?, unit_price = ?, stock_quantity = ?, low_stock_threshold = ?, is_active = ?, updated_at = ?
		WHERE product_id = ?`),
		p.SKU, p.Name, p.UnitPrice, p.StockQuantity, p.LowStockThreshold, p.IsActive, timeArg(s.dialect, p.UpdatedAt), p.ID.String())
	if isUniqueViolation(err) {
		return domain.NewConflictError("product sku "+p.SKU, domain.ReasonDuplicate)
	}
	return requireOne(res, err, "update product", domain.NewNotFoundError("product", p.ID))
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	return (&tx{q: s.db, d: s.dialect}).GetProduct(ctx, id)
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY sku`)
	if err != nil {
		return nil, wrapErr("list products", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrapErr("scan product", err)
		}
		out = append(out, p)
	}
	return out, wrapErr("list products", rows.Err())
}

func (s *Store) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.deleteUnreferenced(ctx, "product", id,
		`SELECT COUNT(*) FROM sales WHERE product_id = ?`,
		`DELETE FROM products WHERE product_id = ?`)
}

// deleteUnreferenced deletes a row only when countRefs finds no dependants.
func (s *Store) deleteUnreferenced(ctx context.Context, entity string, id uuid.UUID, countRefs, del string) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewTransientError("begin transaction", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	var refs int
	if err := sqlTx.QueryRowContext(ctx, s.rebind(countRefs), id.String()).Scan(&refs); err != nil {
		return wrapErr("delete "+entity, err)
	}
	if refs > 0 {
		return domain.NewConflictError(entity+" "+id.String(), domain.ReasonInUse)
	}

	res, err := sqlTx.ExecContext(ctx, s.rebind(del), id.String())
	if isForeignKeyViolation(err) {
		return domain.NewConflictError(entity+" "+id.String(), domain.ReasonInUse)
	}
	if err := requireOne(res, err, "delete "+entity, domain.NewNotFoundError(entity, id)); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return domain.NewTransientError("commit transaction", err)
	}
	return nil
}

func requireOne(res sql.Result, err error, op string, notFound error) error {
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

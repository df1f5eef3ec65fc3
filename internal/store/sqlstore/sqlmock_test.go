package sqlstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"salesservice/internal/domain"
	"salesservice/internal/orders"
	"salesservice/internal/platform/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"
)

// decimalArg matches a driver value holding the same decimal amount.
type decimalArg string

func (a decimalArg) Match(v driver.Value) bool {
	var got decimal.Decimal
	if err := got.Scan(v); err != nil {
		return false
	}
	return got.Equal(decimal.RequireFromString(string(a)))
}

var orderRowColumns = []string{"order_id", "customer_id", "order_date", "status", "total_amount", "created_at", "updated_at"}

func TestReserveStockUsesConditionalUpdateOnPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db, database.Postgres)
	productID := uuid.New()
	at := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET stock_quantity = stock_quantity - $1, updated_at = $2`)).
		WithArgs(3, at, productID.String(), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = store.InTx(context.Background(), func(tx orders.Tx) error {
		return tx.ReserveStock(context.Background(), productID, 3, at)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveStockReportsShortfall(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db, database.Postgres)
	productID := uuid.New()
	at := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE product_id = $1`)).
		WithArgs(productID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "sku", "name", "unit_price", "stock_quantity", "low_stock_threshold", "is_active", "created_at", "updated_at"}).
			AddRow(productID.String(), "SKU-1", "Widget", "10.00", 2, 0, true, at, at))
	mock.ExpectRollback()

	err = store.InTx(context.Background(), func(tx orders.Tx) error {
		return tx.ReserveStock(context.Background(), productID, 5, at)
	})

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 2, conflict.Available)
	assert.Equal(t, 5, conflict.Requested)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxRollsBackWhenUnitOfWorkFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db, database.SQLite)
	boom := errors.New("insert failed")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO orders`)).WillReturnError(boom)
	mock.ExpectRollback()

	err = store.InTx(context.Background(), func(tx orders.Tx) error {
		return tx.InsertOrder(context.Background(), domain.Order{
			ID:         uuid.New(),
			CustomerID: uuid.New(),
			Status:     domain.StatusPending,
		})
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, domain.IsTransient(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxBeginFailureIsTransient(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err = New(db, database.Postgres).InTx(context.Background(), func(orders.Tx) error { return nil })
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestGetOrderNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE order_id = ?`)).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}))
	mock.ExpectRollback()

	err = New(db, database.SQLite).InTx(context.Background(), func(tx orders.Tx) error {
		_, err := tx.GetOrder(context.Background(), id)
		return err
	})
	assert.True(t, domain.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRenderSchemaPerDialect(t *testing.T) {
	pg := renderSchema(database.Postgres)
	assert.Contains(t, pg[1], "unit_price          NUMERIC(18,2)")
	assert.Contains(t, pg[0], "TIMESTAMPTZ")

	lite := renderSchema(database.SQLite)
	assert.Contains(t, lite[1], "unit_price          TEXT")
	assert.Contains(t, lite[0], "DATETIME")
}

func TestAddSaleLocksOrderRowOnPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orderID := uuid.New()
	at := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	svc := orders.NewService(New(db, database.Postgres), zaptest.NewLogger(t), tracenoop.NewTracerProvider().Tracer("test"),
		orders.WithClock(func() time.Time { return at }),
	)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE order_id = $1 FOR UPDATE`)).
		WithArgs(orderID.String()).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).
			AddRow(orderID.String(), uuid.NewString(), at, "Pending", "110.00", at, at))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sales`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET total_amount = $1, updated_at = $2 WHERE order_id = $3`)).
		WithArgs(decimalArg("130.00"), at, orderID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sale, err := svc.AddSale(context.Background(), orders.AddSaleInput{
		OrderID:     orderID,
		ProductName: "Gift wrap",
		UnitPrice:   decimal.RequireFromString("10.00"),
		Quantity:    2,
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("20").Equal(sale.TotalPrice))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSaleCountsUnderOrderLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orderID, saleID := uuid.New(), uuid.New()
	at := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	svc := orders.NewService(New(db, database.Postgres), zaptest.NewLogger(t), tracenoop.NewTracerProvider().Tracer("test"),
		orders.WithClock(func() time.Time { return at }),
	)
	saleRow := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"sale_id", "order_id", "product_id", "product_name", "quantity", "unit_price", "total_price", "created_at"}).
			AddRow(saleID.String(), orderID.String(), nil, "Gift wrap", 1, "5.00", "5.00", at)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM sales WHERE sale_id = $1`)).WithArgs(saleID.String()).WillReturnRows(saleRow())
	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE order_id = $1 FOR UPDATE`)).
		WithArgs(orderID.String()).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).
			AddRow(orderID.String(), uuid.NewString(), at, "Pending", "15.00", at, at))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM sales WHERE sale_id = $1`)).WithArgs(saleID.String()).WillReturnRows(saleRow())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM sales WHERE order_id = $1`)).
		WithArgs(orderID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sales WHERE sale_id = $1`)).
		WithArgs(saleID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET total_amount = $1`)).
		WithArgs(decimalArg("10.00"), at, orderID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.DeleteSale(context.Background(), saleID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockOrderOnSQLiteHasNoLockClause(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	at := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE order_id = ?`) + `$`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).
			AddRow(id.String(), uuid.NewString(), at, "Pending", "1.00", at, at))
	mock.ExpectCommit()

	err = New(db, database.SQLite).InTx(context.Background(), func(tx orders.Tx) error {
		_, err := tx.LockOrder(context.Background(), id)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

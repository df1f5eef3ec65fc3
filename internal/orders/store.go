package orders

import (
	"context"
	"time"

	"salesservice/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store runs a unit of work atomically. If fn returns an error nothing it
// wrote is kept.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of reads and writes available inside a unit of work.
// Lookups of missing rows return a domain.NotFoundError.
type Tx interface {
	CustomerExists(ctx context.Context, id uuid.UUID) (bool, error)
	ProductsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (domain.Product, error)

	// ReserveStock decrements stock only if at least qty units remain and
	// returns an insufficient stock conflict otherwise.
	ReserveStock(ctx context.Context, productID uuid.UUID, qty int, at time.Time) error

	InsertOrder(ctx context.Context, order domain.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error)
	// LockOrder reads the order and holds its row until the unit of work
	// ends, so concurrent changes to its lines and total are serialized.
	LockOrder(ctx context.Context, id uuid.UUID) (domain.Order, error)
	UpdateOrderTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal, at time.Time) error
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, at time.Time) error
	// DeleteOrder removes the order and its sales.
	DeleteOrder(ctx context.Context, id uuid.UUID) error

	InsertSale(ctx context.Context, sale domain.Sale) error
	GetSale(ctx context.Context, id uuid.UUID) (domain.Sale, error)
	ListSales(ctx context.Context, orderID uuid.UUID) ([]domain.Sale, error)
	CountSales(ctx context.Context, orderID uuid.UUID) (int, error)
	UpdateSale(ctx context.Context, sale domain.Sale) error
	DeleteSale(ctx context.Context, id uuid.UUID) error
}

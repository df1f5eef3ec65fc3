package memstore

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"salesservice/internal/domain"
	"salesservice/internal/orders"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type state struct {
	customers map[uuid.UUID]domain.Customer
	products  map[uuid.UUID]domain.Product
	orders    map[uuid.UUID]domain.Order
	sales     map[uuid.UUID]domain.Sale
}

func (s *state) clone() *state {
	return &state{
		customers: maps.Clone(s.customers),
		products:  maps.Clone(s.products),
		orders:    maps.Clone(s.orders),
		sales:     maps.Clone(s.sales),
	}
}

// Store keeps everything in process memory. Transactions work on a copy of
// the data that replaces the original only when the unit of work succeeds.
type Store struct {
	mu   sync.Mutex
	data *state
}

var _ orders.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: &state{
		customers: make(map[uuid.UUID]domain.Customer),
		products:  make(map[uuid.UUID]domain.Product),
		orders:    make(map[uuid.UUID]domain.Order),
		sales:     make(map[uuid.UUID]domain.Sale),
	}}
}

func (s *Store) InTx(ctx context.Context, fn func(tx orders.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

type tx struct {
	st *state
}

var _ orders.Tx = (*tx)(nil)

func (t *tx) CustomerExists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := t.st.customers[id]
	return ok, nil
}

func (t *tx) ProductsByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error) {
	out := make(map[uuid.UUID]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := t.st.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (t *tx) GetProduct(_ context.Context, id uuid.UUID) (domain.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return domain.Product{}, domain.NewNotFoundError("product", id)
	}
	return p, nil
}

func (t *tx) ReserveStock(_ context.Context, productID uuid.UUID, qty int, at time.Time) error {
	p, ok := t.st.products[productID]
	if !ok {
		return domain.NewNotFoundError("product", productID)
	}
	if p.StockQuantity < qty {
		return domain.NewInsufficientStockError(p.Name, p.StockQuantity, qty)
	}
	p.StockQuantity -= qty
	p.UpdatedAt = at
	t.st.products[productID] = p
	return nil
}

func (t *tx) InsertOrder(_ context.Context, order domain.Order) error {
	if _, ok := t.st.customers[order.CustomerID]; !ok {
		return domain.NewNotFoundError("customer", order.CustomerID)
	}
	order.Sales = nil
	t.st.orders[order.ID] = order
	return nil
}

func (t *tx) GetOrder(_ context.Context, id uuid.UUID) (domain.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return domain.Order{}, domain.NewNotFoundError("order", id)
	}
	return o, nil
}

// LockOrder is GetOrder: the store mutex already serializes units of work.
func (t *tx) LockOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return t.GetOrder(ctx, id)
}

func (t *tx) UpdateOrderTotal(_ context.Context, id uuid.UUID, total decimal.Decimal, at time.Time) error {
	o, ok := t.st.orders[id]
	if !ok {
		return domain.NewNotFoundError("order", id)
	}
	o.TotalAmount = total
	o.UpdatedAt = at
	t.st.orders[id] = o
	return nil
}

func (t *tx) UpdateOrderStatus(_ context.Context, id uuid.UUID, status domain.OrderStatus, at time.Time) error {
	o, ok := t.st.orders[id]
	if !ok {
		return domain.NewNotFoundError("order", id)
	}
	o.Status = status
	o.UpdatedAt = at
	t.st.orders[id] = o
	return nil
}

func (t *tx) DeleteOrder(_ context.Context, id uuid.UUID) error {
	if _, ok := t.st.orders[id]; !ok {
		return domain.NewNotFoundError("order", id)
	}
	for saleID, sale := range t.st.sales {
		if sale.OrderID == id {
			delete(t.st.sales, saleID)
		}
	}
	delete(t.st.orders, id)
	return nil
}

func (t *tx) InsertSale(_ context.Context, sale domain.Sale) error {
	if _, ok := t.st.orders[sale.OrderID]; !ok {
		return domain.NewNotFoundError("order", sale.OrderID)
	}
	t.st.sales[sale.ID] = sale
	return nil
}

func (t *tx) GetSale(_ context.Context, id uuid.UUID) (domain.Sale, error) {
	s, ok := t.st.sales[id]
	if !ok {
		return domain.Sale{}, domain.NewNotFoundError("sale", id)
	}
	return s, nil
}

func (t *tx) ListSales(_ context.Context, orderID uuid.UUID) ([]domain.Sale, error) {
	var out []domain.Sale
	for _, s := range t.st.sales {
		if s.OrderID == orderID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (t *tx) CountSales(_ context.Context, orderID uuid.UUID) (int, error) {
	n := 0
	for _, s := range t.st.sales {
		if s.OrderID == orderID {
			n++
		}
	}
	return n, nil
}

func (t *tx) UpdateSale(_ context.Context, sale domain.Sale) error {
	if _, ok := t.st.sales[sale.ID]; !ok {
		return domain.NewNotFoundError("sale", sale.ID)
	}
	t.st.sales[sale.ID] = sale
	return nil
}

func (t *tx) DeleteSale(_ context.Context, id uuid.UUID) error {
	if _, ok := t.st.sales[id]; !ok {
		return domain.NewNotFoundError("sale", id)
	}
	delete(t.st.sales, id)
	return nil
}

// SalesReportRows joins sales created within [start, end] with their order
// and customer, ordered by customer name then order date.
func (s *Store) SalesReportRows(ctx context.Context, start, end time.Time) ([]domain.ReportDataRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type keyed struct {
		row       domain.ReportDataRow
		createdAt time.Time
	}
	var rows []keyed
	for _, sale := range s.data.sales {
		if sale.CreatedAt.Before(start) || sale.CreatedAt.After(end) {
			continue
		}
		order := s.data.orders[sale.OrderID]
		customer := s.data.customers[order.CustomerID]
		rows = append(rows, keyed{
			createdAt: sale.CreatedAt,
			row: domain.ReportDataRow{
				CustomerName:  customer.Name,
				CustomerEmail: customer.Email,
				CustomerPhone: customer.Phone,
				OrderID:       order.ID,
				OrderDate:     order.OrderDate,
				OrderTotal:    order.TotalAmount,
				OrderStatus:   order.Status,
				ProductName:   sale.ProductName,
				Quantity:      sale.Quantity,
				UnitPrice:     sale.UnitPrice,
				LineTotal:     sale.TotalPrice,
			},
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := strings.Compare(a.row.CustomerName, b.row.CustomerName); c != 0 {
			return c < 0
		}
		if !a.row.OrderDate.Equal(b.row.OrderDate) {
			return a.row.OrderDate.Before(b.row.OrderDate)
		}
		return a.createdAt.Before(b.createdAt)
	})

	out := make([]domain.ReportDataRow, len(rows))
	for i, r := range rows {
		out[i] = r.row
	}
	return out, nil
}

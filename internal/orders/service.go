package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salesservice/internal/domain"
	"salesservice/internal/platform/observability"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "salesservice/internal/orders"

// LineItem requests quantity units of a catalog product.
type LineItem struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

type CreateOrderInput struct {
	CustomerID uuid.UUID
	OrderDate  time.Time
	Status     domain.OrderStatus
	Items      []LineItem
}

// AddSaleInput adds a line to an existing order. With a ProductID the name
// and price are taken from the catalog and stock is reserved; without one
// ProductName and UnitPrice are used as given.
type AddSaleInput struct {
	OrderID     uuid.UUID
	ProductID   *uuid.UUID
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}

type UpdateSaleInput struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

// Service creates orders and edits their sales while keeping order totals
// and product stock consistent.
type Service struct {
	store   Store
	logger  observability.Logger
	tracer  observability.Tracer
	metrics *metrics
	now     func() time.Time
	newID   func() uuid.UUID
}

type Option func(*Service)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMeter(meter metric.Meter) Option {
	return func(s *Service) { s.metrics = newMetrics(meter) }
}

// NewService creates a new order service instance with explicit dependencies
func NewService(store Store, logger observability.Logger, tracer observability.Tracer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger,
		tracer: tracer,
		now:    time.Now,
		newID:  uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = newMetrics(otel.Meter(instrumentationName))
	}
	return s
}

// CreateOrder validates every line item before writing anything, then
// inserts the order with its sales and reserves stock in one transaction.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("customer.id", in.CustomerID.String()),
		attribute.Int("order.line_items", len(in.Items)),
	)

	status := in.Status
	if status == 0 {
		status = domain.StatusPending
	}
	if !status.Valid() {
		err := domain.NewInvalidArgumentError("status", "unknown order status")
		s.recordFailure(ctx, span, "create_order", err)
		return domain.Order{}, err
	}

	var order domain.Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		exists, err := tx.CustomerExists(ctx, in.CustomerID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.NewNotFoundError("customer", in.CustomerID)
		}
		if len(in.Items) == 0 {
			return domain.NewInvalidArgumentError("saleItems", "at least one sale item is required")
		}

		products, err := tx.ProductsByID(ctx, distinctProductIDs(in.Items))
		if err != nil {
			return err
		}

		now := s.now().UTC()
		order = domain.Order{
			ID:         s.newID(),
			CustomerID: in.CustomerID,
			OrderDate:  in.OrderDate.UTC(),
			Status:     status,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if in.OrderDate.IsZero() {
			order.OrderDate = now
		}

		sales, err := s.buildSales(order.ID, in.Items, products, now)
		if err != nil {
			return err
		}
		order.Sales = sales
		order.TotalAmount = domain.SumSales(sales)

		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		for _, sale := range sales {
			if err := tx.InsertSale(ctx, sale); err != nil {
				return err
			}
			if err := tx.ReserveStock(ctx, *sale.ProductID, sale.Quantity, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, span, "create_order", err)
		return domain.Order{}, err
	}

	s.metrics.ordersCreated.Add(ctx, 1)
	span.SetAttributes(
		attribute.String("order.id", order.ID.String()),
		attribute.String("order.total", order.TotalAmount.StringFixed(2)),
	)
	span.SetStatus(codes.Ok, "Order created")
	s.logger.Info("🛒 Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("customer_id", order.CustomerID.String()),
		zap.Int("sales", len(order.Sales)),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)

	return order, nil
}

// buildSales checks every item against the loaded products and snapshots
// their name and price. Repeated products draw from the same stock.
func (s *Service) buildSales(orderID uuid.UUID, items []LineItem, products map[uuid.UUID]domain.Product, now time.Time) ([]domain.Sale, error) {
	remaining := make(map[uuid.UUID]int, len(products))
	for id, p := range products {
		remaining[id] = p.StockQuantity
	}

	sales := make([]domain.Sale, 0, len(items))
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, domain.NewInvalidArgumentError(fmt.Sprintf("saleItems[%d].quantity", i), "must be greater than zero")
		}
		product, ok := products[item.ProductID]
		if !ok {
			return nil, domain.NewNotFoundError("product", item.ProductID)
		}
		if !product.IsActive {
			return nil, domain.NewConflictError(product.Name, domain.ReasonInactiveProduct)
		}
		if remaining[product.ID] < item.Quantity {
			return nil, domain.NewInsufficientStockError(product.Name, remaining[product.ID], item.Quantity)
		}
		remaining[product.ID] -= item.Quantity

		productID := product.ID
		sales = append(sales, domain.Sale{
			ID:          s.newID(),
			OrderID:     orderID,
			ProductID:   &productID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   product.UnitPrice,
			TotalPrice:  domain.LineTotal(item.Quantity, product.UnitPrice),
			CreatedAt:   now,
		})
	}
	return sales, nil
}

// AddSale appends a line to an order and raises the order total by its amount.
func (s *Service) AddSale(ctx context.Context, in AddSaleInput) (domain.Sale, error) {
	ctx, span := s.tracer.Start(ctx, "orders.add_sale")
	defer span.End()

	span.SetAttributes(attribute.String("order.id", in.OrderID.String()))

	if in.Quantity <= 0 {
		err := domain.NewInvalidArgumentError("quantity", "must be greater than zero")
		s.recordFailure(ctx, span, "add_sale", err)
		return domain.Sale{}, err
	}

	var sale domain.Sale
	err := s.store.InTx(ctx, func(tx Tx) error {
		order, err := tx.LockOrder(ctx, in.OrderID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		sale = domain.Sale{
			ID:        s.newID(),
			OrderID:   order.ID,
			Quantity:  in.Quantity,
			CreatedAt: now,
		}

		if in.ProductID != nil {
			product, err := tx.GetProduct(ctx, *in.ProductID)
			if err != nil {
				return err
			}
			if !product.IsActive {
				return domain.NewConflictError(product.Name, domain.ReasonInactiveProduct)
			}
			if product.StockQuantity < in.Quantity {
				return domain.NewInsufficientStockError(product.Name, product.StockQuantity, in.Quantity)
			}
			productID := product.ID
			sale.ProductID = &productID
			sale.ProductName = product.Name
			sale.UnitPrice = product.UnitPrice
		} else {
			name := strings.TrimSpace(in.ProductName)
			if name == "" {
				return domain.NewInvalidArgumentError("productName", "required when productId is absent")
			}
			if in.UnitPrice.IsNegative() {
				return domain.NewInvalidArgumentError("unitPrice", "must not be negative")
			}
			sale.ProductName = name
			sale.UnitPrice = in.UnitPrice
		}
		sale.TotalPrice = domain.LineTotal(sale.Quantity, sale.UnitPrice)

		if err := tx.InsertSale(ctx, sale); err != nil {
			return err
		}
		if sale.ProductID != nil {
			if err := tx.ReserveStock(ctx, *sale.ProductID, sale.Quantity, now); err != nil {
				return err
			}
		}
		return tx.UpdateOrderTotal(ctx, order.ID, order.TotalAmount.Add(sale.TotalPrice), now)
	})
	if err != nil {
		s.recordFailure(ctx, span, "add_sale", err)
		return domain.Sale{}, err
	}

	span.SetAttributes(attribute.String("sale.id", sale.ID.String()))
	span.SetStatus(codes.Ok, "Sale added")
	s.logger.Info("➕ Sale added",
		zap.String("order_id", sale.OrderID.String()),
		zap.String("sale_id", sale.ID.String()),
		zap.String("line_total", sale.TotalPrice.StringFixed(2)),
	)
	return sale, nil
}

// UpdateSale changes quantity and unit price of a line and moves the order
// total by the difference. Product stock is not adjusted.
func (s *Service) UpdateSale(ctx context.Context, saleID uuid.UUID, in UpdateSaleInput) (domain.Sale, error) {
	ctx, span := s.tracer.Start(ctx, "orders.update_sale")
	defer span.End()

	span.SetAttributes(attribute.String("sale.id", saleID.String()))

	if in.Quantity <= 0 {
		err := domain.NewInvalidArgumentError("quantity", "must be greater than zero")
		s.recordFailure(ctx, span, "update_sale", err)
		return domain.Sale{}, err
	}
	if in.UnitPrice.IsNegative() {
		err := domain.NewInvalidArgumentError("unitPrice", "must not be negative")
		s.recordFailure(ctx, span, "update_sale", err)
		return domain.Sale{}, err
	}

	var sale domain.Sale
	err := s.store.InTx(ctx, func(tx Tx) error {
		order, err := lockOrderOfSale(ctx, tx, saleID)
		if err != nil {
			return err
		}
		// Re-read under the order lock so the delta is taken against the committed line.
		sale, err = tx.GetSale(ctx, saleID)
		if err != nil {
			return err
		}

		newTotal := domain.LineTotal(in.Quantity, in.UnitPrice)
		delta := newTotal.Sub(sale.TotalPrice)

		sale.Quantity = in.Quantity
		sale.UnitPrice = in.UnitPrice
		sale.TotalPrice = newTotal
		if err := tx.UpdateSale(ctx, sale); err != nil {
			return err
		}
		return tx.UpdateOrderTotal(ctx, order.ID, order.TotalAmount.Add(delta), s.now().UTC())
	})
	if err != nil {
		s.recordFailure(ctx, span, "update_sale", err)
		return domain.Sale{}, err
	}

	span.SetStatus(codes.Ok, "Sale updated")
	s.logger.Info("✏️ Sale updated",
		zap.String("sale_id", sale.ID.String()),
		zap.Int("quantity", sale.Quantity),
		zap.String("line_total", sale.TotalPrice.StringFixed(2)),
	)
	return sale, nil
}

// DeleteSale removes a line from a pending order. The last line of an order
// cannot be removed; delete the order instead.
func (s *Service) DeleteSale(ctx context.Context, saleID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "orders.delete_sale")
	defer span.End()

	span.SetAttributes(attribute.String("sale.id", saleID.String()))

	err := s.store.InTx(ctx, func(tx Tx) error {
		order, err := lockOrderOfSale(ctx, tx, saleID)
		if err != nil {
			return err
		}
		sale, err := tx.GetSale(ctx, saleID)
		if err != nil {
			return err
		}
		if !order.Status.AllowsSaleDeletion() {
			return domain.NewConflictError("order "+order.ID.String(), domain.ReasonOrderNotPending)
		}
		count, err := tx.CountSales(ctx, order.ID)
		if err != nil {
			return err
		}
		if count <= 1 {
			return domain.NewConflictError("order "+order.ID.String(), domain.ReasonLastSale)
		}

		if err := tx.DeleteSale(ctx, sale.ID); err != nil {
			return err
		}
		return tx.UpdateOrderTotal(ctx, order.ID, order.TotalAmount.Sub(sale.TotalPrice), s.now().UTC())
	})
	if err != nil {
		s.recordFailure(ctx, span, "delete_sale", err)
		return err
	}

	span.SetStatus(codes.Ok, "Sale deleted")
	s.logger.Info("🗑️ Sale deleted", zap.String("sale_id", saleID.String()))
	return nil
}

// lockOrderOfSale locks the order that owns saleID. The sale must be read
// again after the lock is held.
func lockOrderOfSale(ctx context.Context, tx Tx, saleID uuid.UUID) (domain.Order, error) {
	sale, err := tx.GetSale(ctx, saleID)
	if err != nil {
		return domain.Order{}, err
	}
	return tx.LockOrder(ctx, sale.OrderID)
}

// DeleteOrder removes a pending or cancelled order together with its sales.
func (s *Service) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "orders.delete_order")
	defer span.End()

	span.SetAttributes(attribute.String("order.id", orderID.String()))

	err := s.store.InTx(ctx, func(tx Tx) error {
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.AllowsOrderDeletion() {
			return domain.NewConflictError("order "+order.ID.String(), domain.ReasonOrderFulfilled)
		}
		return tx.DeleteOrder(ctx, order.ID)
	})
	if err != nil {
		s.recordFailure(ctx, span, "delete_order", err)
		return err
	}

	span.SetStatus(codes.Ok, "Order deleted")
	s.logger.Info("🗑️ Order deleted", zap.String("order_id", orderID.String()))
	return nil
}

// UpdateOrderStatus moves a pending order to Completed or Cancelled.
// Setting the current status again is a no-op.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.update_status")
	defer span.End()

	span.SetAttributes(
		attribute.String("order.id", orderID.String()),
		attribute.String("order.status", status.String()),
	)

	if !status.Valid() {
		err := domain.NewInvalidArgumentError("status", "unknown order status")
		s.recordFailure(ctx, span, "update_status", err)
		return domain.Order{}, err
	}

	var order domain.Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		order, err = tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == status {
			return nil
		}
		if !order.Status.CanTransitionTo(status) {
			return domain.NewConflictError(
				fmt.Sprintf("order %s: %s to %s", order.ID, order.Status, status),
				domain.ReasonInvalidTransition,
			)
		}

		now := s.now().UTC()
		if err := tx.UpdateOrderStatus(ctx, order.ID, status, now); err != nil {
			return err
		}
		order.Status = status
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, span, "update_status", err)
		return domain.Order{}, err
	}

	span.SetStatus(codes.Ok, "Order status updated")
	s.logger.Info("🔄 Order status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("status", order.Status.String()),
	)
	return order, nil
}

// GetOrder returns the order with its sales.
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	var order domain.Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		order, err = tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		order.Sales, err = tx.ListSales(ctx, orderID)
		return err
	})
	return order, err
}

func (s *Service) GetSale(ctx context.Context, saleID uuid.UUID) (domain.Sale, error) {
	var sale domain.Sale
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		sale, err = tx.GetSale(ctx, saleID)
		return err
	})
	return sale, err
}

func (s *Service) recordFailure(ctx context.Context, span trace.Span, op string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if op == "create_order" {
		s.metrics.ordersRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", failureKind(err))))
	}

	if domain.IsPermanent(err) {
		s.logger.Warn("⚠️ Order operation rejected", zap.String("operation", op), zap.Error(err))
		return
	}
	s.logger.Error("❌ Order operation failed", zap.String("operation", op), zap.Error(err))
}

func failureKind(err error) string {
	switch {
	case domain.IsNotFound(err):
		return "not_found"
	case domain.IsConflict(err):
		return "conflict"
	case domain.IsInvalidArgument(err):
		return "invalid_argument"
	case domain.IsTransient(err):
		return "transient"
	default:
		return "internal"
	}
}

func distinctProductIDs(items []LineItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

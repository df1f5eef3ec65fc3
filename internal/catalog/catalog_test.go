package catalog_test

import (
	"context"
	"testing"

	"salesservice/internal/catalog"
	"salesservice/internal/domain"
	"salesservice/internal/orders"
	"salesservice/internal/store/memstore"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"
)

func TestCustomerValidationAndUniqueness(t *testing.T) {
	ctx := context.Background()
	svc := catalog.NewService(memstore.New(), zaptest.NewLogger(t))

	_, err := svc.CreateCustomer(ctx, catalog.CustomerInput{Name: " ", Email: "a@example.com"})
	assert.True(t, domain.IsInvalidArgument(err))

	_, err = svc.CreateCustomer(ctx, catalog.CustomerInput{Name: "Ada", Email: "not-an-email"})
	assert.True(t, domain.IsInvalidArgument(err))

	ada, err := svc.CreateCustomer(ctx, catalog.CustomerInput{Name: " Ada ", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", ada.Name)

	_, err = svc.CreateCustomer(ctx, catalog.CustomerInput{Name: "Other Ada", Email: "ada@example.com"})
	assert.True(t, domain.IsConflict(err))

	phone := "555-0100"
	updated, err := svc.UpdateCustomer(ctx, ada.ID, catalog.CustomerInput{Name: "Ada L.", Email: "ada@example.com", Phone: &phone})
	require.NoError(t, err)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, phone, *updated.Phone)

	_, err = svc.GetCustomer(ctx, uuid.New())
	assert.True(t, domain.IsNotFound(err))

	list, err := svc.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestProductCRUD(t *testing.T) {
	ctx := context.Background()
	svc := catalog.NewService(memstore.New(), zaptest.NewLogger(t))

	tests := []struct {
		name string
		in   catalog.ProductInput
	}{
		{"missing sku", catalog.ProductInput{Name: "Widget"}},
		{"missing name", catalog.ProductInput{SKU: "W-1"}},
		{"negative price", catalog.ProductInput{SKU: "W-1", Name: "Widget", UnitPrice: decimal.NewFromInt(-1)}},
		{"negative stock", catalog.ProductInput{SKU: "W-1", Name: "Widget", StockQuantity: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, tt.in)
			assert.True(t, domain.IsInvalidArgument(err), "got %v", err)
		})
	}

	p, err := svc.CreateProduct(ctx, catalog.ProductInput{
		SKU: "W-1", Name: "Widget", UnitPrice: decimal.RequireFromString("9.99"), StockQuantity: 4, LowStockThreshold: 5,
	})
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	assert.True(t, p.IsLowStock())

	inactive := false
	p, err = svc.UpdateProduct(ctx, p.ID, catalog.ProductInput{
		SKU: "W-1", Name: "Widget", UnitPrice: decimal.RequireFromString("12.00"), StockQuantity: 40, IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, p.IsActive)
	assert.False(t, p.IsLowStock())

	_, err = svc.CreateProduct(ctx, catalog.ProductInput{SKU: "W-1", Name: "Copy"})
	assert.True(t, domain.IsConflict(err))

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	_, err = svc.GetProduct(ctx, p.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestDeleteIsRestrictedWhileReferenced(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	logger := zaptest.NewLogger(t)
	svc := catalog.NewService(store, logger)
	engine := orders.NewService(store, logger, tracenoop.NewTracerProvider().Tracer("test"))

	customer, err := svc.CreateCustomer(ctx, catalog.CustomerInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	product, err := svc.CreateProduct(ctx, catalog.ProductInput{SKU: "W-1", Name: "Widget", UnitPrice: decimal.NewFromInt(5), StockQuantity: 10})
	require.NoError(t, err)

	_, err = engine.CreateOrder(ctx, orders.CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []orders.LineItem{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	var conflict *domain.ConflictError
	err = svc.DeleteCustomer(ctx, customer.ID)
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.ReasonInUse, conflict.Reason)

	err = svc.DeleteProduct(ctx, product.ID)
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.ReasonInUse, conflict.Reason)
}

package httpapi

import (
	"context"
	"net/http"

	"salesservice/internal/catalog"
	"salesservice/internal/domain"
	"salesservice/internal/orders"
	"salesservice/internal/platform/observability"
	"salesservice/internal/reports"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

type CatalogService interface {
	CreateCustomer(ctx context.Context, in catalog.CustomerInput) (domain.Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, in catalog.CustomerInput) (domain.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error

	CreateProduct(ctx context.Context, in catalog.ProductInput) (domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in catalog.ProductInput) (domain.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type OrderService interface {
	CreateOrder(ctx context.Context, in orders.CreateOrderInput) (domain.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (domain.Order, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error

	AddSale(ctx context.Context, in orders.AddSaleInput) (domain.Sale, error)
	GetSale(ctx context.Context, saleID uuid.UUID) (domain.Sale, error)
	UpdateSale(ctx context.Context, saleID uuid.UUID, in orders.UpdateSaleInput) (domain.Sale, error)
	DeleteSale(ctx context.Context, saleID uuid.UUID) error
}

type ReportRequester interface {
	RequestReport(ctx context.Context, req reports.Request) (reports.Acknowledgement, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies are the services the API exposes. RateLimiter may be nil.
type Dependencies struct {
	Catalog     CatalogService
	Orders      OrderService
	Reports     ReportRequester
	Health      HealthChecker
	Logger      observability.Logger
	RateLimiter *RateLimiter
}

type api struct {
	catalog CatalogService
	orders  OrderService
	reports ReportRequester
	health  HealthChecker
	logger  observability.Logger
}

// NewHandler builds the instrumented HTTP handler for the JSON API.
func NewHandler(deps Dependencies) http.Handler {
	a := &api{
		catalog: deps.Catalog,
		orders:  deps.Orders,
		reports: deps.Reports,
		health:  deps.Health,
		logger:  deps.Logger,
	}

	mux := http.NewServeMux()
	handleFunc := func(pattern string, handlerFunc func(http.ResponseWriter, *http.Request)) {
		handler := otelhttp.WithRouteTag(pattern, http.HandlerFunc(handlerFunc))
		mux.Handle(pattern, handler)
	}
	a.registerHandlers(handleFunc)

	var handler http.Handler = mux
	if deps.RateLimiter != nil {
		handler = deps.RateLimiter.Middleware(handler)
	}
	handler = accessLog(deps.Logger)(handler)
	handler = requestID(handler)

	return otelhttp.NewHandler(handler, "http-server",
		otelhttp.WithMeterProvider(otel.GetMeterProvider()),
		otelhttp.WithTracerProvider(otel.GetTracerProvider()),
	)
}

func (a *api) registerHandlers(handleFunc func(pattern string, handlerFunc func(http.ResponseWriter, *http.Request))) {
	handleFunc("GET /healthz", a.healthz)

	handleFunc("POST /api/customers", a.createCustomer)
	handleFunc("GET /api/customers", a.listCustomers)
	handleFunc("GET /api/customers/{id}", a.getCustomer)
	handleFunc("PUT /api/customers/{id}", a.updateCustomer)
	handleFunc("DELETE /api/customers/{id}", a.deleteCustomer)

	handleFunc("POST /api/products", a.createProduct)
	handleFunc("GET /api/products", a.listProducts)
	handleFunc("GET /api/products/{id}", a.getProduct)
	handleFunc("PUT /api/products/{id}", a.updateProduct)
	handleFunc("DELETE /api/products/{id}", a.deleteProduct)

	handleFunc("POST /api/orders", a.createOrder)
	handleFunc("GET /api/orders/{id}", a.getOrder)
	handleFunc("PUT /api/orders/{id}", a.updateOrderStatus)
	handleFunc("DELETE /api/orders/{id}", a.deleteOrder)

	handleFunc("POST /api/sales", a.addSale)
	handleFunc("GET /api/sales/{id}", a.getSale)
	handleFunc("PUT /api/sales/{id}", a.updateSale)
	handleFunc("DELETE /api/sales/{id}", a.deleteSale)

	handleFunc("POST /api/reports/generate", a.generateReport)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, domain.NewInvalidArgumentError("id", "must be a UUID")
	}
	return id, nil
}

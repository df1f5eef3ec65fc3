package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"salesservice/internal/catalog"
	"salesservice/internal/domain"
	"salesservice/internal/httpapi"
	"salesservice/internal/orders"
	"salesservice/internal/reports"
	"salesservice/internal/store/memstore"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"
)

type recordingPublisher struct {
	messages []kafkago.Message
	err      error
}

func (p *recordingPublisher) WriteMessage(_ context.Context, msg kafkago.Message) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type testAPI struct {
	handler   http.Handler
	publisher *recordingPublisher
}

func newTestAPI(t *testing.T, opts ...func(*httpapi.Dependencies)) *testAPI {
	t.Helper()
	logger := zaptest.NewLogger(t)
	tracer := tracenoop.NewTracerProvider().Tracer("test")
	store := memstore.New()
	publisher := &recordingPublisher{}

	deps := httpapi.Dependencies{
		Catalog: catalog.NewService(store, logger),
		Orders:  orders.NewService(store, logger, tracer, orders.WithMeter(metricnoop.NewMeterProvider().Meter("test"))),
		Reports: reports.NewProducer(publisher, logger, tracer),
		Health:  store,
		Logger:  logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &testAPI{handler: httpapi.NewHandler(deps), publisher: publisher}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) seed(t *testing.T, stock int) (domain.Customer, domain.Product) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/customers", map[string]any{"name": "Ada Lovelace", "email": "ada@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	customer := decode[domain.Customer](t, rec)

	rec = a.do(t, http.MethodPost, "/api/products", map[string]any{
		"sku": "SKU-1", "name": "Widget", "unitPrice": "10.00", "stockQuantity": stock,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return customer, decode[domain.Product](t, rec)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	customer, product := api.seed(t, 10)

	rec := api.do(t, http.MethodPost, "/api/orders", map[string]any{
		"customerId": customer.ID,
		"saleItems":  []map[string]any{{"productId": product.ID, "quantity": 4}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[domain.Order](t, rec)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.True(t, decimal.RequireFromString("40").Equal(order.TotalAmount))
	require.Len(t, order.Sales, 1)

	rec = api.do(t, http.MethodGet, "/api/products/"+product.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6, decode[domain.Product](t, rec).StockQuantity)
	assert.Contains(t, rec.Body.String(), `"isLowStock":false`)

	rec = api.do(t, http.MethodPost, "/api/sales", map[string]any{
		"orderId": order.ID, "productName": "Gift wrap", "unitPrice": "2.50", "quantity": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	giftWrap := decode[domain.Sale](t, rec)
	assert.Nil(t, giftWrap.ProductID)

	rec = api.do(t, http.MethodPut, "/api/sales/"+giftWrap.ID.String(), map[string]any{"quantity": 1, "unitPrice": "2.50"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/orders/"+order.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	order = decode[domain.Order](t, rec)
	assert.True(t, decimal.RequireFromString("42.50").Equal(order.TotalAmount))
	assert.Len(t, order.Sales, 2)

	rec = api.do(t, http.MethodDelete, "/api/sales/"+giftWrap.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodPut, "/api/orders/"+order.ID.String(), map[string]any{"status": "Completed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.StatusCompleted, decode[domain.Order](t, rec).Status)

	rec = api.do(t, http.MethodDelete, "/api/orders/"+order.ID.String(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/products/"+product.ID.String(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "products referenced by sales cannot be deleted")
}

func TestErrorMapping(t *testing.T) {
	api := newTestAPI(t)
	customer, product := api.seed(t, 3)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"insufficient stock", http.MethodPost, "/api/orders", map[string]any{
			"customerId": customer.ID,
			"saleItems":  []map[string]any{{"productId": product.ID, "quantity": 5}},
		}, http.StatusConflict},
		{"unknown order", http.MethodGet, "/api/orders/9b2f4c1e-0000-4000-8000-000000000000", nil, http.StatusNotFound},
		{"malformed id", http.MethodGet, "/api/sales/not-a-uuid", nil, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/customers", `{"name":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/customers", `{"nickname":"x"}`, http.StatusBadRequest},
		{"unknown status", http.MethodPost, "/api/orders", map[string]any{
			"customerId": customer.ID, "status": "Shipped",
			"saleItems": []map[string]any{{"productId": product.ID, "quantity": 1}},
		}, http.StatusBadRequest},
		{"duplicate sku", http.MethodPost, "/api/products", map[string]any{
			"sku": "SKU-1", "name": "Clone", "unitPrice": "1.00",
		}, http.StatusConflict},
		{"invalid email", http.MethodPost, "/api/customers", map[string]any{"name": "Bob", "email": "nope"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			body := decode[map[string]string](t, rec)
			assert.Equal(t, http.StatusText(tt.status), body["error"])
			assert.NotEmpty(t, body["details"])
		})
	}

	rec := api.do(t, http.MethodGet, "/api/products/"+product.ID.String(), nil)
	assert.Equal(t, 3, decode[domain.Product](t, rec).StockQuantity, "rejected order must not touch stock")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, httpapi.StatusFor(domain.NewTransientError("query", errors.New("timeout"))))
	assert.Equal(t, http.StatusInternalServerError, httpapi.StatusFor(errors.New("boom")))

	rec := httptest.NewRecorder()
	httpapi.WriteJSONError(rec, errors.New("secret driver detail"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestGenerateReport(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/reports/generate", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	ack := decode[reports.Acknowledgement](t, rec)
	assert.Equal(t, reports.StatusAccepted, ack.Status)
	require.Len(t, api.publisher.messages, 1)
	assert.Equal(t, ack.CorrelationID.String(), string(api.publisher.messages[0].Key))

	rec = api.do(t, http.MethodPost, "/api/reports/generate", map[string]any{
		"startDate": "2025-02-01T00:00:00Z", "endDate": "2025-01-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, api.publisher.messages, 1)

	api.publisher.err = errors.New("broker unavailable")
	rec = api.do(t, http.MethodPost, "/api/reports/generate", map[string]any{"requestedBy": "ops"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	down := newTestAPI(t, func(d *httpapi.Dependencies) {
		d.Health = pingerFunc(func(context.Context) error { return errors.New("connection refused") })
	})
	rec = down.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDAndRateLimit(t *testing.T) {
	api := newTestAPI(t, func(d *httpapi.Dependencies) {
		d.RateLimiter = httpapi.NewRateLimiter(0.001, 2)
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(httpapi.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(httpapi.RequestIDHeader))

	rec = api.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(httpapi.RequestIDHeader))

	rec = api.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

package httpapi

import (
	"net/http"
	"time"

	"salesservice/internal/domain"
	"salesservice/internal/orders"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type createOrderRequest struct {
	CustomerID uuid.UUID           `json:"customerId"`
	OrderDate  *time.Time          `json:"orderDate,omitempty"`
	Status     *domain.OrderStatus `json:"status,omitempty"`
	SaleItems  []orders.LineItem   `json:"saleItems"`
}

type updateOrderStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

type addSaleRequest struct {
	OrderID     uuid.UUID       `json:"orderId"`
	ProductID   *uuid.UUID      `json:"productId,omitempty"`
	ProductName string          `json:"productName,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
}

type updateSaleRequest struct {
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

func (a *api) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, err)
		return
	}

	in := orders.CreateOrderInput{
		CustomerID: req.CustomerID,
		Items:      req.SaleItems,
	}
	if req.OrderDate != nil {
		in.OrderDate = *req.OrderDate
	}
	if req.Status != nil {
		in.Status = *req.Status
	}

	order, err := a.orders.CreateOrder(r.Context(), in)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (a *api) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	order, err := a.orders.GetOrder(r.Context(), id)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (a *api) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	var req updateOrderStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, err)
		return
	}
	order, err := a.orders.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (a *api) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	if err := a.orders.DeleteOrder(r.Context(), id); err != nil {
		WriteJSONError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) addSale(w http.ResponseWriter, r *http.Request) {
	var req addSaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, err)
		return
	}
	sale, err := a.orders.AddSale(r.Context(), orders.AddSaleInput{
		OrderID:     req.OrderID,
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		UnitPrice:   req.UnitPrice,
		Quantity:    req.Quantity,
	})
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (a *api) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	sale, err := a.orders.GetSale(r.Context(), id)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *api) updateSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	var req updateSaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, err)
		return
	}
	sale, err := a.orders.UpdateSale(r.Context(), id, orders.UpdateSaleInput{
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *api) deleteSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	if err := a.orders.DeleteSale(r.Context(), id); err != nil {
		WriteJSONError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

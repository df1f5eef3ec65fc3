package httpapi

import (
	"net/http"

	"salesservice/internal/catalog"
)

const maxBodyBytes = 1 << 20

func (a *api) createCustomer(w http.ResponseWriter, r *http.Request) {
	var in catalog.CustomerInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteJSONError(w, err)
		return
	}
	customer, err := a.catalog.CreateCustomer(r.Context(), in)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (a *api) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := a.catalog.ListCustomers(r.Context())
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (a *api) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	customer, err := a.catalog.GetCustomer(r.Context(), id)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (a *api) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	var in catalog.CustomerInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteJSONError(w, err)
		return
	}
	customer, err := a.catalog.UpdateCustomer(r.Context(), id, in)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (a *api) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	if err := a.catalog.DeleteCustomer(r.Context(), id); err != nil {
		WriteJSONError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) createProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteJSONError(w, err)
		return
	}
	product, err := a.catalog.CreateProduct(r.Context(), in)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (a *api) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.catalog.ListProducts(r.Context())
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (a *api) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	product, err := a.catalog.GetProduct(r.Context(), id)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *api) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteJSONError(w, err)
		return
	}
	product, err := a.catalog.UpdateProduct(r.Context(), id, in)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *api) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	if err := a.catalog.DeleteProduct(r.Context(), id); err != nil {
		WriteJSONError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package memstore

import (
	"context"
	"sort"
	"strings"

	"salesservice/internal/catalog"
	"salesservice/internal/domain"

	"github.com/google/uuid"
)

var _ catalog.Repository = (*Store)(nil)

func (s *Store) InsertCustomer(ctx context.Context, c domain.Customer) error {
	return s.mutate(ctx, func(st *state) error {
		if err := st.emailTaken(c.Email, c.ID); err != nil {
			return err
		}
		st.customers[c.ID] = c
		return nil
	})
}

func (s *Store) UpdateCustomer(ctx context.Context, c domain.Customer) error {
	return s.mutate(ctx, func(st *state) error {
		if _, ok := st.customers[c.ID]; !ok {
			return domain.NewNotFoundError("customer", c.ID)
		}
		if err := st.emailTaken(c.Email, c.ID); err != nil {
			return err
		}
		st.customers[c.ID] = c
		return nil
	})
}

func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (domain.Customer, error) {
	var out domain.Customer
	err := s.read(ctx, func(st *state) error {
		c, ok := st.customers[id]
		if !ok {
			return domain.NewNotFoundError("customer", id)
		}
		out = c
		return nil
	})
	return out, err
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	var out []domain.Customer
	err := s.read(ctx, func(st *state) error {
		for _, c := range st.customers {
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (s *Store) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return s.mutate(ctx, func(st *state) error {
		if _, ok := st.customers[id]; !ok {
			return domain.NewNotFoundError("customer", id)
		}
		for _, o := range st.orders {
			if o.CustomerID == id {
				return domain.NewConflictError("customer "+id.String(), domain.ReasonInUse)
			}
		}
		delete(st.customers, id)
		return nil
	})
}

func (s *Store) InsertProduct(ctx context.Context, p domain.Product) error {
	return s.mutate(ctx, func(st *state) error {
		if err := st.skuTaken(p.SKU, p.ID); err != nil {
			return err
		}
		st.products[p.ID] = p
		return nil
	})
}

func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) error {
	return s.mutate(ctx, func(st *state) error {
		if _, ok := st.products[p.ID]; !ok {
			return domain.NewNotFoundError("product", p.ID)
		}
		if err := st.skuTaken(p.SKU, p.ID); err != nil {
			return err
		}
		st.products[p.ID] = p
		return nil
	})
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	var out domain.Product
	err := s.read(ctx, func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return domain.NewNotFoundError("product", id)
		}
		out = p
		return nil
	})
	return out, err
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	err := s.read(ctx, func(st *state) error {
		for _, p := range st.products {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, err
}

func (s *Store) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.mutate(ctx, func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return domain.NewNotFoundError("product", id)
		}
		for _, sale := range st.sales {
			if sale.ProductID != nil && *sale.ProductID == id {
				return domain.NewConflictError("product "+id.String(), domain.ReasonInUse)
			}
		}
		delete(st.products, id)
		return nil
	})
}

func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// mutate edits the live state directly; each callback validates before it writes.
func (s *Store) mutate(ctx context.Context, fn func(st *state) error) error {
	return s.read(ctx, fn)
}

func (st *state) emailTaken(email string, self uuid.UUID) error {
	for id, c := range st.customers {
		if id != self && strings.EqualFold(c.Email, email) {
			return domain.NewConflictError("customer email "+email, domain.ReasonDuplicate)
		}
	}
	return nil
}

func (st *state) skuTaken(sku string, self uuid.UUID) error {
	for id, p := range st.products {
		if id != self && strings.EqualFold(p.SKU, sku) {
			return domain.NewConflictError("product sku "+sku, domain.ReasonDuplicate)
		}
	}
	return nil
}

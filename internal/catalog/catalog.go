package catalog

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"salesservice/internal/domain"
	"salesservice/internal/platform/observability"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Repository persists customers and products. Duplicate emails or SKUs and
// deleting a referenced row return a domain.ConflictError.
type Repository interface {
	InsertCustomer(ctx context.Context, c domain.Customer) error
	UpdateCustomer(ctx context.Context, c domain.Customer) error
	GetCustomer(ctx context.Context, id uuid.UUID) (domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error

	InsertProduct(ctx context.Context, p domain.Product) error
	UpdateProduct(ctx context.Context, p domain.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type CustomerInput struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

type ProductInput struct {
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	StockQuantity     int             `json:"stockQuantity"`
	LowStockThreshold int             `json:"lowStockThreshold"`
	IsActive          *bool           `json:"isActive,omitempty"`
}

// Service validates catalog input before handing it to the repository.
type Service struct {
	repo   Repository
	logger observability.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger observability.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) CreateCustomer(ctx context.Context, in CustomerInput) (domain.Customer, error) {
	if err := in.validate(); err != nil {
		return domain.Customer{}, err
	}
	now := s.now().UTC()
	c := domain.Customer{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Phone:     in.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertCustomer(ctx, c); err != nil {
		return domain.Customer{}, err
	}
	s.logger.Info("Customer created", zap.String("customer_id", c.ID.String()))
	return c, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id uuid.UUID, in CustomerInput) (domain.Customer, error) {
	if err := in.validate(); err != nil {
		return domain.Customer{}, err
	}
	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Email = strings.TrimSpace(in.Email)
	c.Phone = in.Phone
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateCustomer(ctx, c); err != nil {
		return domain.Customer{}, err
	}
	return c, nil
}

func (s *Service) GetCustomer(ctx context.Context, id uuid.UUID) (domain.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Customer deleted", zap.String("customer_id", id.String()))
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (domain.Product, error) {
	if err := in.validate(); err != nil {
		return domain.Product{}, err
	}
	now := s.now().UTC()
	p := domain.Product{
		ID:        uuid.New(),
		IsActive:  true,
		CreatedAt: now,
	}
	in.apply(&p, now)
	if err := s.repo.InsertProduct(ctx, p); err != nil {
		return domain.Product{}, err
	}
	s.logger.Info("Product created", zap.String("product_id", p.ID.String()), zap.String("sku", p.SKU))
	return p, nil
}

// UpdateProduct replaces the product's fields. Existing sales keep the name
// and price they were created with.
func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (domain.Product, error) {
	if err := in.validate(); err != nil {
		return domain.Product{}, err
	}
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	in.apply(&p, s.now().UTC())
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

func (in CustomerInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.NewInvalidArgumentError("name", "is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil {
		return domain.NewInvalidArgumentError("email", "is not a valid address")
	}
	return nil
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.SKU) == "" {
		return domain.NewInvalidArgumentError("sku", "is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return domain.NewInvalidArgumentError("name", "is required")
	}
	if in.UnitPrice.IsNegative() {
		return domain.NewInvalidArgumentError("unitPrice", "must not be negative")
	}
	if in.StockQuantity < 0 {
		return domain.NewInvalidArgumentError("stockQuantity", "must not be negative")
	}
	if in.LowStockThreshold < 0 {
		return domain.NewInvalidArgumentError("lowStockThreshold", "must not be negative")
	}
	return nil
}

func (in ProductInput) apply(p *domain.Product, now time.Time) {
	p.SKU = strings.TrimSpace(in.SKU)
	p.Name = strings.TrimSpace(in.Name)
	p.UnitPrice = in.UnitPrice
	p.StockQuantity = in.StockQuantity
	p.LowStockThreshold = in.LowStockThreshold
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	p.UpdatedAt = now
}

package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer places orders. Email is unique across customers.
type Customer struct {
	ID        uuid.UUID `json:"customerId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Product is a catalog item with a stock level. SKU is unique across products.
type Product struct {
	ID                uuid.UUID       `json:"productId"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	StockQuantity     int             `json:"stockQuantity"`
	LowStockThreshold int             `json:"lowStockThreshold"`
	IsActive          bool            `json:"isActive"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// IsLowStock reports whether the stock level is at or below the threshold.
func (p Product) IsLowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}

// MarshalJSON adds the derived isLowStock flag.
func (p Product) MarshalJSON() ([]byte, error) {
	type product Product
	return json.Marshal(struct {
		product
		IsLowStock bool `json:"isLowStock"`
	}{product(p), p.IsLowStock()})
}

// Order groups sales for one customer. TotalAmount always equals the sum of
// its sales' TotalPrice.
type Order struct {
	ID          uuid.UUID       `json:"orderId"`
	CustomerID  uuid.UUID       `json:"customerId"`
	OrderDate   time.Time       `json:"orderDate"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Sales       []Sale          `json:"sales,omitempty"`
}

// Sale is one order line. ProductName and UnitPrice are copied from the
// product when the line is created and never follow later catalog edits.
type Sale struct {
	ID          uuid.UUID       `json:"saleId"`
	OrderID     uuid.UUID       `json:"orderId"`
	ProductID   *uuid.UUID      `json:"productId,omitempty"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// LineTotal is quantity × unit price.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// SumSales adds up the line totals of sales.
func SumSales(sales []Sale) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.TotalPrice)
	}
	return total
}

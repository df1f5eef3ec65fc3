package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultRequestedBy is used when a report request does not name a requester.
const DefaultRequestedBy = "System"

// ReportCommand asks the worker to build a sales report for a date range.
// Missing bounds are filled in by the worker.
type ReportCommand struct {
	CorrelationID uuid.UUID  `json:"correlationId"`
	RequestedAt   time.Time  `json:"requestedAt"`
	StartDate     *time.Time `json:"startDate,omitempty"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	RequestedBy   string     `json:"requestedBy"`
}

// ReportDataRow is one sale joined with its order and customer.
type ReportDataRow struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone *string
	OrderID       uuid.UUID
	OrderDate     time.Time
	OrderTotal    decimal.Decimal
	OrderStatus   OrderStatus
	ProductName   string
	Quantity      int
	UnitPrice     decimal.Decimal
	LineTotal     decimal.Decimal
}

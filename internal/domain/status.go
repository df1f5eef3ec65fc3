package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// OrderStatus is the lifecycle state of an order. The zero value is not a
// valid status.
type OrderStatus uint8

const (
	StatusPending OrderStatus = iota + 1
	StatusCompleted
	StatusCancelled
)

var statusNames = map[OrderStatus]string{
	StatusPending:   "Pending",
	StatusCompleted: "Completed",
	StatusCancelled: "Cancelled",
}

// ParseOrderStatus accepts the canonical names case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for status, name := range statusNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return status, nil
		}
	}
	return 0, NewInvalidArgumentError("status", fmt.Sprintf("unknown order status %q", s))
}

func (s OrderStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("OrderStatus(%d)", uint8(s))
}

func (s OrderStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// AllowsSaleDeletion is true only while the order is still open.
func (s OrderStatus) AllowsSaleDeletion() bool {
	return s == StatusPending
}

// AllowsOrderDeletion is true for orders that were never fulfilled.
func (s OrderStatus) AllowsOrderDeletion() bool {
	return s == StatusPending || s == StatusCancelled
}

// CanTransitionTo reports whether an order may move from s to next.
// Completed and Cancelled are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	return s == StatusPending
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid order status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *OrderStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseOrderStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value stores the status by name.
func (s OrderStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot store invalid order status %d", uint8(s))
	}
	return s.String(), nil
}

func (s *OrderStatus) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into OrderStatus", src)
	}
}

package domain

import (
	"errors"
	"fmt"
)

// Conflict reasons.
const (
	ReasonInactiveProduct   = "product is not active"
	ReasonInsufficientStock = "insufficient stock"
	ReasonLastSale          = "cannot delete the last sale of an order"
	ReasonOrderNotPending   = "order is not pending"
	ReasonOrderFulfilled    = "order cannot be deleted in its current status"
	ReasonInvalidTransition = "invalid status transition"
	ReasonDuplicate         = "already exists"
	ReasonInUse             = "still referenced"
)

// NotFoundError is returned when a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

func NewNotFoundError(entity string, id fmt.Stringer) error {
	return &NotFoundError{Entity: entity, ID: id.String()}
}

// ConflictError is returned when the current state forbids the operation.
// Available and Requested are set for stock shortfalls.
type ConflictError struct {
	Reason    string
	Subject   string
	Available int
	Requested int
}

func (e *ConflictError) Error() string {
	if e.Reason == ReasonInsufficientStock {
		return fmt.Sprintf("%s for %s: available %d, requested %d", e.Reason, e.Subject, e.Available, e.Requested)
	}
	if e.Subject == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Subject, e.Reason)
}

func (e *ConflictError) Is(target error) bool {
	_, ok := target.(*ConflictError)
	return ok
}

func NewConflictError(subject, reason string) error {
	return &ConflictError{Subject: subject, Reason: reason}
}

func NewInsufficientStockError(product string, available, requested int) error {
	return &ConflictError{
		Reason:    ReasonInsufficientStock,
		Subject:   product,
		Available: available,
		Requested: requested,
	}
}

// InvalidArgumentError is returned for malformed input.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool {
	_, ok := target.(*InvalidArgumentError)
	return ok
}

func NewInvalidArgumentError(field, reason string) error {
	return &InvalidArgumentError{Field: field, Reason: reason}
}

// TransientError wraps failures of infrastructure that may succeed on retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func NewTransientError(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsInvalidArgument(err error) bool {
	var target *InvalidArgumentError
	return errors.As(err, &target)
}

func IsTransient(err error) bool {
	var target *TransientError
	return errors.As(err, &target)
}

// IsPermanent reports whether err is a business rejection that will not
// change on retry.
func IsPermanent(err error) bool {
	return IsNotFound(err) || IsConflict(err) || IsInvalidArgument(err)
}

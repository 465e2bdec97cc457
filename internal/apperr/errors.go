// Package apperr holds the error kinds shared by the ledger, the order aggregate and the
// lifecycle engine. Typed errors carry the data a caller needs to explain the rejection and
// match their sentinel through errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a referenced order, product, customer or line item does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition indicates an operation not permitted in the order's current status.
var ErrInvalidTransition = errors.New("invalid order transition")

// ErrInsufficientStock indicates a reservation would take stock below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrConcurrentModification indicates a lost update was detected. Callers retry.
var ErrConcurrentModification = errors.New("concurrent modification")

// ErrNotificationDeliveryFailed indicates a notification could not be handed off or
// delivered. It is never returned by a state-changing operation.
var ErrNotificationDeliveryFailed = errors.New("notification delivery failed")

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s #%d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound is shorthand for &NotFoundError{...}.
func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InvalidTransitionError reports the attempted transition and the status that rejected it.
type InvalidTransitionError struct {
	Transition string
	Status     string
	Reason     string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s order in %s status", e.Transition, e.Status)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// InsufficientStockError reports requested versus available quantity for a product.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product #%d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Package order is the order aggregate: status, line items and the guards deciding which
// mutation is legal in which status. It never touches stock; the lifecycle engine pairs it
// with the ledger.
package order

import (
	"context"
	"time"

	"github.com/buildtall-systems/petstock/internal/apperr"
	"github.com/buildtall-systems/petstock/internal/fsm"
	"github.com/buildtall-systems/petstock/internal/ledger"
)

var (
	orderSM     = fsm.NewOrderStateMachine()
	inventorySM = fsm.NewInventoryStateMachine()
)

// Status of an order.
type Status string

const (
	StatusPending    Status = fsm.OrderStatePending
	StatusConfirmed  Status = fsm.OrderStateConfirmed
	StatusProcessing Status = fsm.OrderStateProcessing
	StatusShipped    Status = fsm.OrderStateShipped
	StatusDelivered  Status = fsm.OrderStateDelivered
	StatusCancelled  Status = fsm.OrderStateCancelled
)

// ParseStatus accepts any known status name.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, true
	default:
		return "", false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// LineItem is a quantity of a product, with the unit price captured when it was added.
type LineItem struct {
	ID             int64
	ProductID      int64
	Quantity       int
	UnitPriceCents int64
}

// SubtotalCents returns unit price × quantity.
func (li LineItem) SubtotalCents() int64 {
	return li.UnitPriceCents * int64(li.Quantity)
}

// Order exclusively owns its line items. Items keep insertion order.
type Order struct {
	ID         int64
	CustomerID int64
	Status     Status
	Items      []LineItem
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// New returns a pending order with no items.
func New(customerID int64, now time.Time) *Order {
	return &Order{
		CustomerID: customerID,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// TotalCents is always recomputed from the current items.
func (o *Order) TotalCents() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.SubtotalCents()
	}
	return total
}

// Item returns the line item with the given id.
func (o *Order) Item(itemID int64) (LineItem, bool) {
	for _, item := range o.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return LineItem{}, false
}

// StockLines returns the quantity of each product the order references.
func (o *Order) StockLines() []ledger.Line {
	lines := make([]ledger.Line, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, ledger.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return ledger.Merge(lines)
}

// AvailableOperations lists the operations legal in the current status.
func (o *Order) AvailableOperations() []string {
	return orderSM.AvailableEvents(string(o.Status))
}

// HoldsReservation reports whether stock is currently reserved for this order.
func (o *Order) HoldsReservation() bool {
	return inventorySM.CanRelease(string(o.Status))
}

// AddItem appends a line item. Product activity and stock sufficiency are checked by the
// caller, which owns the ledger.
func (o *Order) AddItem(productID int64, quantity int, unitPriceCents int64) error {
	if err := o.CheckAddable(); err != nil {
		return err
	}
	if quantity <= 0 {
		return &apperr.InvalidTransitionError{
			Transition: "add item to",
			Status:     string(o.Status),
			Reason:     "quantity must be positive",
		}
	}

	o.Items = append(o.Items, LineItem{
		ProductID:      productID,
		Quantity:       quantity,
		UnitPriceCents: unitPriceCents,
	})
	return nil
}

// RemoveItem drops the item with itemID.
func (o *Order) RemoveItem(itemID int64) error {
	if err := o.guard(fsm.OrderEventRemoveItem, "remove item from", ""); err != nil {
		return err
	}
	for i, item := range o.Items {
		if item.ID == itemID {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("line item", itemID)
}

// Confirm moves a pending order with at least one item to CONFIRMED. The caller reserves
// stock for StockLines in the same unit of work.
func (o *Order) Confirm(ctx context.Context) error {
	if err := o.guard(fsm.OrderEventConfirm, "confirm", ""); err != nil {
		return err
	}
	if len(o.Items) == 0 {
		return &apperr.InvalidTransitionError{Transition: "confirm", Status: string(o.Status), Reason: "no items"}
	}
	return o.apply(ctx, fsm.OrderEventConfirm, "confirm")
}

// Advance moves the order one step along CONFIRMED → PROCESSING → SHIPPED → DELIVERED and
// returns the previous status.
func (o *Order) Advance(ctx context.Context, target Status) (Status, error) {
	transition := "set status " + string(target) + " on"
	event := fsm.AdvanceEvent(string(o.Status), string(target))
	if event == "" {
		return "", &apperr.InvalidTransitionError{
			Transition: transition,
			Status:     string(o.Status),
			Reason:     "not the next fulfilment step",
		}
	}
	previous := o.Status
	if err := o.apply(ctx, event, transition); err != nil {
		return "", err
	}
	return previous, nil
}

// Cancel moves the order to CANCELLED and reports whether the caller must release the
// stock reserved at confirmation.
func (o *Order) Cancel(ctx context.Context) (release bool, err error) {
	release = o.HoldsReservation()
	if err := o.apply(ctx, fsm.OrderEventCancel, "cancel"); err != nil {
		return false, err
	}
	return release, nil
}

// CheckAddable returns an error unless items may be added in the current status.
func (o *Order) CheckAddable() error {
	return o.guard(fsm.OrderEventAddItem, "add item to", "")
}

// CheckDeletable returns an error unless the order is PENDING or CANCELLED.
func (o *Order) CheckDeletable() error {
	return o.guard(fsm.OrderEventDelete, "delete", "")
}

func (o *Order) guard(event, transition, reason string) error {
	if orderSM.CanTransition(string(o.Status), event) {
		return nil
	}
	return &apperr.InvalidTransitionError{Transition: transition, Status: string(o.Status), Reason: reason}
}

func (o *Order) apply(ctx context.Context, event, transition string) error {
	next, err := orderSM.Transition(ctx, string(o.Status), event)
	if err != nil {
		return &apperr.InvalidTransitionError{Transition: transition, Status: string(o.Status)}
	}
	o.Status = Status(next)
	return nil
}

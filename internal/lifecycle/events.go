package lifecycle

import (
	"time"

	"github.com/buildtall-systems/petstock/internal/ledger"
	"github.com/buildtall-systems/petstock/internal/notify"
	"github.com/buildtall-systems/petstock/internal/order"
)

func orderConfirmedEvent(o *order.Order, at time.Time) notify.Event {
	return notify.NewEvent(notify.TypeOrderConfirmed, o.ID, o.CustomerID, at, notify.OrderConfirmed{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		TotalCents:  o.TotalCents(),
		Status:      string(o.Status),
		Items:       productQuantities(o.StockLines()),
		ConfirmedAt: at,
	})
}

func statusChangedEvent(o *order.Order, previous order.Status, at time.Time) notify.Event {
	return notify.NewEvent(notify.TypeOrderStatusChanged, o.ID, o.CustomerID, at, notify.OrderStatusChanged{
		OrderID:        o.ID,
		CustomerID:     o.CustomerID,
		PreviousStatus: string(previous),
		Status:         string(o.Status),
		ChangedAt:      at,
	})
}

func stockRestoreEvent(o *order.Order, released []ledger.Line, reason string, at time.Time) notify.Event {
	return notify.NewEvent(notify.TypeStockRestore, o.ID, o.CustomerID, at, notify.StockRestore{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Items:      productQuantities(released),
		Reason:     reason,
		RestoredAt: at,
	})
}

func productQuantities(lines []ledger.Line) []notify.ProductQuantity {
	out := make([]notify.ProductQuantity, len(lines))
	for i, l := range lines {
		out[i] = notify.ProductQuantity{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return out
}

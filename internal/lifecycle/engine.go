// Package lifecycle drives orders through their state machine against the stock ledger.
//
// Every operation takes the order's in-process lock, runs load, guard, ledger changes and
// save in one transaction, and only after commit hands notifications to the Emitter.
// Emission failures are logged and never undo or fail the committed change.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/buildtall-systems/petstock/internal/apperr"
	"github.com/buildtall-systems/petstock/internal/db"
	"github.com/buildtall-systems/petstock/internal/ledger"
	"github.com/buildtall-systems/petstock/internal/notify"
	"github.com/buildtall-systems/petstock/internal/order"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// Emitter accepts notifications for asynchronous delivery.
type Emitter interface {
	Emit(ctx context.Context, ev notify.Event) error
}

// Engine executes order operations.
type Engine struct {
	db           *db.DB
	emitter      Emitter
	logger       *zap.Logger
	locks        *xsync.MapOf[int64, *sync.Mutex]
	now          func() time.Time
	cancelReason string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCancelReason sets the reason carried by StockRestore events.
func WithCancelReason(reason string) Option {
	return func(e *Engine) {
		if reason != "" {
			e.cancelReason = reason
		}
	}
}

func New(database *db.DB, emitter Emitter, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		db:           database,
		emitter:      emitter,
		logger:       logger.Named("lifecycle"),
		locks:        xsync.NewMapOf[int64, *sync.Mutex](),
		now:          time.Now,
		cancelReason: "order cancelled",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create opens a new PENDING order for an existing customer.
func (e *Engine) Create(ctx context.Context, customerID int64) (*order.Order, error) {
	o := order.New(customerID, e.now())
	err := e.db.WithTx(ctx, func(tx *db.Tx) error {
		if _, err := tx.GetCustomerByID(ctx, customerID); err != nil {
			return err
		}
		return tx.InsertOrder(ctx, o)
	})
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	e.logger.Info("order created", zap.Int64("order_id", o.ID), zap.Int64("customer_id", customerID))
	return o, nil
}

// Get loads an order without locking it.
func (e *Engine) Get(ctx context.Context, orderID int64) (*order.Order, error) {
	return e.db.GetOrder(ctx, orderID)
}

// AddItem appends quantity units of an active product at its current price. The stock
// check does not reserve anything.
func (e *Engine) AddItem(ctx context.Context, orderID, productID int64, quantity int) (*order.Order, error) {
	o, err := e.mutate(ctx, orderID, func(tx *db.Tx, o *order.Order) error {
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
		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if !product.Active {
			return &apperr.InvalidTransitionError{
				Transition: "add item to",
				Status:     string(o.Status),
				Reason:     fmt.Sprintf("product #%d is not active", productID),
			}
		}

		ok, err := ledger.New(tx).HasStock(ctx, productID, quantity)
		if err != nil {
			return err
		}
		if !ok {
			return &apperr.InsufficientStockError{ProductID: productID, Requested: quantity, Available: product.StockQuantity}
		}

		return o.AddItem(productID, quantity, product.PriceCents)
	})
	if err != nil {
		return nil, fmt.Errorf("adding item to order #%d: %w", orderID, err)
	}

	e.logger.Info("item added",
		zap.Int64("order_id", orderID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity))
	return o, nil
}

// RemoveItem drops a line item from a pending order.
func (e *Engine) RemoveItem(ctx context.Context, orderID, itemID int64) (*order.Order, error) {
	o, err := e.mutate(ctx, orderID, func(_ *db.Tx, o *order.Order) error {
		return o.RemoveItem(itemID)
	})
	if err != nil {
		return nil, fmt.Errorf("removing item from order #%d: %w", orderID, err)
	}

	e.logger.Info("item removed", zap.Int64("order_id", orderID), zap.Int64("item_id", itemID))
	return o, nil
}

// Confirm reserves stock for every line item and moves the order to CONFIRMED. Either all
// reservations succeed or none are made.
func (e *Engine) Confirm(ctx context.Context, orderID int64) (*order.Order, error) {
	o, err := e.mutate(ctx, orderID, func(tx *db.Tx, o *order.Order) error {
		if err := o.Confirm(ctx); err != nil {
			return err
		}
		return ledger.New(tx).ReserveAll(ctx, o.StockLines())
	})
	if err != nil {
		return nil, fmt.Errorf("confirming order #%d: %w", orderID, err)
	}

	e.logger.Info("order confirmed", zap.Int64("order_id", orderID), zap.Int64("total_cents", o.TotalCents()))
	e.emit(ctx, orderConfirmedEvent(o, e.now()))
	return o, nil
}

// SetStatus advances a confirmed order by one fulfilment step.
func (e *Engine) SetStatus(ctx context.Context, orderID int64, target order.Status) (*order.Order, error) {
	var previous order.Status
	o, err := e.mutate(ctx, orderID, func(_ *db.Tx, o *order.Order) error {
		var err error
		previous, err = o.Advance(ctx, target)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("setting status of order #%d: %w", orderID, err)
	}

	e.logger.Info("order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", string(previous)),
		zap.String("to", string(o.Status)))
	e.emit(ctx, statusChangedEvent(o, previous, e.now()))
	return o, nil
}

// Cancel moves the order to CANCELLED, returning reserved stock to the ledger when the order
// held a reservation. The released lines are returned; they are empty when nothing was
// reserved.
func (e *Engine) Cancel(ctx context.Context, orderID int64) (*order.Order, []ledger.Line, error) {
	var released []ledger.Line
	o, err := e.mutate(ctx, orderID, func(tx *db.Tx, o *order.Order) error {
		release, err := o.Cancel(ctx)
		if err != nil {
			return err
		}
		if !release {
			return nil
		}
		released = o.StockLines()
		return ledger.New(tx).ReleaseAll(ctx, released)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("cancelling order #%d: %w", orderID, err)
	}

	e.logger.Info("order cancelled", zap.Int64("order_id", orderID), zap.Bool("stock_released", len(released) > 0))
	if len(released) > 0 {
		e.emit(ctx, stockRestoreEvent(o, released, e.cancelReason, e.now()))
	}
	return o, released, nil
}

// Delete destroys a PENDING or CANCELLED order together with its items.
func (e *Engine) Delete(ctx context.Context, orderID int64) error {
	mu := e.lock(orderID)
	defer mu.Unlock()

	err := e.db.WithTx(ctx, func(tx *db.Tx) error {
		o, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.CheckDeletable(); err != nil {
			return err
		}
		return tx.DeleteOrder(ctx, o)
	})
	if err != nil {
		return fmt.Errorf("deleting order #%d: %w", orderID, err)
	}

	e.locks.Delete(orderID)
	e.logger.Info("order deleted", zap.Int64("order_id", orderID))
	return nil
}

// mutate loads the order under its lock, applies fn and saves the result, all in one
// transaction.
func (e *Engine) mutate(ctx context.Context, orderID int64, fn func(tx *db.Tx, o *order.Order) error) (*order.Order, error) {
	mu := e.lock(orderID)
	defer mu.Unlock()

	var saved *order.Order
	err := e.db.WithTx(ctx, func(tx *db.Tx) error {
		o, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := fn(tx, o); err != nil {
			return err
		}
		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		saved = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Terminal orders only accept delete, which re-checks status and version in its own
	// transaction, so their lock entry can go.
	if saved.Status.IsTerminal() {
		e.locks.Delete(orderID)
	}
	return saved, nil
}

// lock must be taken before the transaction begins. The database has a single
// connection, so waiting on an order lock while holding a transaction would deadlock.
func (e *Engine) lock(orderID int64) *sync.Mutex {
	mu, _ := e.locks.LoadOrCompute(orderID, func() *sync.Mutex { return &sync.Mutex{} })
	mu.Lock()
	return mu
}

func (e *Engine) emit(ctx context.Context, ev notify.Event) {
	if e.emitter == nil {
		return
	}
	if err := e.emitter.Emit(ctx, ev); err != nil {
		if !errors.Is(err, apperr.ErrNotificationDeliveryFailed) {
			err = fmt.Errorf("%w: %w", apperr.ErrNotificationDeliveryFailed, err)
		}
		e.logger.Warn("notification not emitted",
			zap.String("event_type", string(ev.Type)),
			zap.Int64("order_id", ev.OrderID),
			zap.Error(err))
	}
}

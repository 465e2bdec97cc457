package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/buildtall-systems/petstock/internal/apperr"
	"github.com/buildtall-systems/petstock/internal/fsm"
	"github.com/sethvargo/go-retry"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Publisher hands an envelope to a transport.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// Stats counts dispatcher outcomes.
type Stats struct {
	Delivered uint64
	Failed    uint64
	Dropped   uint64
}

// Dispatcher queues events and delivers them from a pool of workers. Emit never blocks:
// when the queue is full or the dispatcher is not running the event is dropped and the
// caller gets an error wrapping apperr.ErrNotificationDeliveryFailed.
type Dispatcher struct {
	pub    Publisher
	logger *zap.Logger
	opts   options

	state *fsm.DispatcherFSM
	mu    sync.RWMutex
	queue chan Event
	wg    conc.WaitGroup

	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

type options struct {
	producer   string
	queueSize  int
	workers    int
	maxRetries uint64
	retryBase  time.Duration
}

// Option configures a Dispatcher.
type Option func(*options)

// WithProducer sets the producer name written into every envelope.
func WithProducer(name string) Option {
	return func(o *options) {
		if name != "" {
			o.producer = name
		}
	}
}

// WithQueueSize bounds the number of undelivered events held in memory.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithWorkers sets the number of concurrent publishers.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithRetry sets how many times a failed publish is retried and the first backoff.
func WithRetry(maxRetries uint64, base time.Duration) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
		if base > 0 {
			o.retryBase = base
		}
	}
}

func NewDispatcher(pub Publisher, logger *zap.Logger, opts ...Option) *Dispatcher {
	o := options{
		producer:   "petstock",
		queueSize:  256,
		workers:    2,
		maxRetries: 3,
		retryBase:  100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Dispatcher{
		pub:    pub,
		logger: logger.Named("notify"),
		opts:   o,
		state:  fsm.NewDispatcherFSM(),
		queue:  make(chan Event, o.queueSize),
	}
	d.state.OnEnter(fsm.DispatcherStateRunning, func() {
		d.logger.Info("dispatcher running", zap.Int("workers", o.workers), zap.Int("queue_size", o.queueSize))
	})
	d.state.OnEnter(fsm.DispatcherStateStopped, func() {
		d.logger.Info("dispatcher stopped")
	})
	return d
}

// Start launches the workers. ctx bounds publishing, including retries.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.state.Event(ctx, fsm.DispatcherEventStart); err != nil {
		return fmt.Errorf("starting dispatcher: %w", err)
	}

	for i := 0; i < d.opts.workers; i++ {
		d.wg.Go(func() {
			for ev := range d.queue {
				d.deliver(ctx, ev)
			}
		})
	}
	return nil
}

// Emit enqueues ev for delivery without waiting.
func (d *Dispatcher) Emit(_ context.Context, ev Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.state.Is(fsm.DispatcherStateRunning) {
		d.dropped.Add(1)
		return fmt.Errorf("%w: dispatcher %s", apperr.ErrNotificationDeliveryFailed, d.state.Current())
	}

	select {
	case d.queue <- ev:
		return nil
	default:
		d.dropped.Add(1)
		return fmt.Errorf("%w: queue full, dropped %s for order #%d",
			apperr.ErrNotificationDeliveryFailed, ev.Type, ev.OrderID)
	}
}

// Close stops accepting events, waits for queued ones to be delivered and closes the
// publisher.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if err := d.state.Event(context.Background(), fsm.DispatcherEventDrain); err != nil {
		d.mu.Unlock()
		return fmt.Errorf("closing dispatcher: %w", err)
	}
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	_ = d.state.Event(context.Background(), fsm.DispatcherEventStopped)

	return d.pub.Close()
}

// Stats returns a snapshot of delivery counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	log := d.logger.With(
		zap.String("event_id", ev.ID),
		zap.String("event_type", string(ev.Type)),
		zap.Int64("order_id", ev.OrderID),
	)

	env, err := ev.Envelope(d.opts.producer)
	if err != nil {
		d.failed.Add(1)
		log.Error("notification not encodable", zap.Error(err))
		return
	}

	backoff := retry.WithMaxRetries(d.opts.maxRetries, retry.NewExponential(d.opts.retryBase))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := d.pub.Publish(ctx, env); err != nil {
			log.Debug("publish attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		d.failed.Add(1)
		log.Warn("notification delivery failed",
			zap.Int("attempts", attempt),
			zap.Error(errors.Join(apperr.ErrNotificationDeliveryFailed, err)))
		return
	}

	d.delivered.Add(1)
	log.Debug("notification delivered", zap.Int("attempts", attempt))
}

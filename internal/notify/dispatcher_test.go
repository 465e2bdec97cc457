package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/buildtall-systems/petstock/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakePublisher struct {
	mu        sync.Mutex
	failFirst int
	calls     int
	got       []Envelope
	closed    bool
	block     chan struct{}
}

func (f *fakePublisher) Publish(_ context.Context, env Envelope) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failFirst {
		return errors.New("broker unavailable")
	}
	f.got = append(f.got, env)
	return nil
}

func (f *fakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePublisher) delivered() []Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Envelope(nil), f.got...)
}

func confirmedEvent(orderID int64) Event {
	return NewEvent(TypeOrderConfirmed, orderID, 1, time.Now(), OrderConfirmed{
		OrderID:    orderID,
		CustomerID: 1,
		TotalCents: 1500,
		Status:     "CONFIRMED",
		Items:      []ProductQuantity{{ProductID: 2, Quantity: 3}},
	})
}

func TestDispatcherDeliversQueuedEventsOnClose(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub, zap.NewNop(), WithWorkers(3), WithProducer("test"))
	require.NoError(t, d.Start(context.Background()))

	for i := int64(1); i <= 20; i++ {
		require.NoError(t, d.Emit(context.Background(), confirmedEvent(i)))
	}
	require.NoError(t, d.Close())

	got := pub.delivered()
	assert.Len(t, got, 20)
	assert.True(t, pub.closed)
	assert.Equal(t, "test", got[0].Producer)
	assert.Equal(t, Stats{Delivered: 20}, d.Stats())
}

func TestDispatcherRetriesTransientFailures(t *testing.T) {
	pub := &fakePublisher{failFirst: 2}
	d := NewDispatcher(pub, zap.NewNop(), WithWorkers(1), WithRetry(3, time.Millisecond))
	require.NoError(t, d.Start(context.Background()))

	require.NoError(t, d.Emit(context.Background(), confirmedEvent(1)))
	require.NoError(t, d.Close())

	assert.Len(t, pub.delivered(), 1)
	assert.Equal(t, 3, pub.calls)
	assert.Equal(t, uint64(1), d.Stats().Delivered)
}

func TestDispatcherLogsExhaustedRetries(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	pub := &fakePublisher{failFirst: 100}
	d := NewDispatcher(pub, zap.New(core), WithWorkers(1), WithRetry(2, time.Millisecond))
	require.NoError(t, d.Start(context.Background()))

	require.NoError(t, d.Emit(context.Background(), confirmedEvent(9)))
	require.NoError(t, d.Close())

	assert.Equal(t, 3, pub.calls)
	assert.Equal(t, Stats{Failed: 1}, d.Stats())

	entries := logs.FilterMessage("notification delivery failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(9), entries[0].ContextMap()["order_id"])
}

func TestDispatcherEmitWhenNotRunning(t *testing.T) {
	d := NewDispatcher(&fakePublisher{}, zap.NewNop())

	err := d.Emit(context.Background(), confirmedEvent(1))
	assert.ErrorIs(t, err, apperr.ErrNotificationDeliveryFailed)

	require.NoError(t, d.Start(context.Background()))
	require.NoError(t, d.Close())

	err = d.Emit(context.Background(), confirmedEvent(2))
	assert.ErrorIs(t, err, apperr.ErrNotificationDeliveryFailed)
	assert.Equal(t, uint64(2), d.Stats().Dropped)
}

func TestDispatcherEmitNeverBlocksWhenFull(t *testing.T) {
	pub := &fakePublisher{block: make(chan struct{})}
	d := NewDispatcher(pub, zap.NewNop(), WithWorkers(1), WithQueueSize(1))
	require.NoError(t, d.Start(context.Background()))

	var dropped int
	for i := int64(1); i <= 10; i++ {
		if err := d.Emit(context.Background(), confirmedEvent(i)); err != nil {
			assert.ErrorIs(t, err, apperr.ErrNotificationDeliveryFailed)
			dropped++
		}
	}
	// One event is held by the blocked worker and one sits in the queue.
	assert.GreaterOrEqual(t, dropped, 8)

	close(pub.block)
	require.NoError(t, d.Close())

	stats := d.Stats()
	assert.Equal(t, uint64(dropped), stats.Dropped)
	assert.Equal(t, uint64(10-dropped), stats.Delivered)
}

func TestDispatcherLifecycle(t *testing.T) {
	d := NewDispatcher(&fakePublisher{}, zap.NewNop())
	require.NoError(t, d.Start(context.Background()))
	assert.Error(t, d.Start(context.Background()), "second start")
	require.NoError(t, d.Close())
	assert.Error(t, d.Close(), "second close")
}

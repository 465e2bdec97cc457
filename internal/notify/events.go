// Package notify carries order and stock notifications from the lifecycle engine to an
// at-least-once transport. Emission is fire-and-forget: the committed state that triggered
// an event never depends on its delivery.
package notify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Type names an event.
type Type string

const (
	TypeOrderConfirmed     Type = "OrderConfirmed"
	TypeOrderStatusChanged Type = "OrderStatusChanged"
	TypeStockRestore       Type = "StockRestore"
)

// EnvelopeVersion is bumped on incompatible payload changes.
const EnvelopeVersion = 1

// Event is a fully formed notification. Payload is one of the payload types below.
type Event struct {
	ID         string
	Type       Type
	OrderID    int64
	CustomerID int64
	OccurredAt time.Time
	Payload    any
}

// NewEvent stamps an event with a fresh id.
func NewEvent(typ Type, orderID, customerID int64, at time.Time, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OrderID:    orderID,
		CustomerID: customerID,
		OccurredAt: at,
		Payload:    payload,
	}
}

// ProductQuantity is a product and a quantity of it.
type ProductQuantity struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type OrderConfirmed struct {
	OrderID     int64             `json:"order_id"`
	CustomerID  int64             `json:"customer_id"`
	TotalCents  int64             `json:"total_cents"`
	Status      string            `json:"status"`
	Items       []ProductQuantity `json:"items"`
	ConfirmedAt time.Time         `json:"confirmed_at"`
}

type OrderStatusChanged struct {
	OrderID        int64     `json:"order_id"`
	CustomerID     int64     `json:"customer_id"`
	PreviousStatus string    `json:"previous_status"`
	Status         string    `json:"status"`
	ChangedAt      time.Time `json:"changed_at"`
}

type StockRestore struct {
	OrderID    int64             `json:"order_id"`
	CustomerID int64             `json:"customer_id"`
	Items      []ProductQuantity `json:"items"`
	Reason     string            `json:"reason"`
	RestoredAt time.Time         `json:"restored_at"`
}

// Envelope is the transport representation of an Event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     Type            `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"`
	Payload       json.RawMessage `json:"payload"`
}

// Envelope encodes the payload and wraps it. The correlation id is the order id.
func (e Event) Envelope(producer string) (Envelope, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s payload: %w", e.Type, err)
	}
	return Envelope{
		EventID:       e.ID,
		EventType:     e.Type,
		EventVersion:  EnvelopeVersion,
		OccurredAt:    e.OccurredAt.UTC(),
		Producer:      producer,
		CorrelationID: strconv.FormatInt(e.OrderID, 10),
		Payload:       payload,
	}, nil
}

// Marshal returns the JSON form of the envelope.
func (env Envelope) Marshal() ([]byte, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}
	return b, nil
}

// PartitionKey keeps every event of one order on the same partition, preserving order.
func (env Envelope) PartitionKey() []byte {
	return []byte(env.CorrelationID)
}

// DecodePayload decodes an envelope payload into T.
func DecodePayload[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}

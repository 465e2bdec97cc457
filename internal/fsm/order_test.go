package fsm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/looplab/fsm"
)

func TestOrderStateMachine_ValidTransitions(t *testing.T) {
	tests := []struct {
		name         string
		currentState string
		event        string
		wantState    string
	}{
		{"pending to confirmed via confirm", OrderStatePending, OrderEventConfirm, OrderStateConfirmed},
		{"confirmed to processing via process", OrderStateConfirmed, OrderEventProcess, OrderStateProcessing},
		{"processing to shipped via ship", OrderStateProcessing, OrderEventShip, OrderStateShipped},
		{"shipped to delivered via deliver", OrderStateShipped, OrderEventDeliver, OrderStateDelivered},
		{"pending to cancelled", OrderStatePending, OrderEventCancel, OrderStateCancelled},
		{"confirmed to cancelled", OrderStateConfirmed, OrderEventCancel, OrderStateCancelled},
		{"processing to cancelled", OrderStateProcessing, OrderEventCancel, OrderStateCancelled},
		{"shipped to cancelled", OrderStateShipped, OrderEventCancel, OrderStateCancelled},
		{"pending add item stays pending", OrderStatePending, OrderEventAddItem, OrderStatePending},
		{"pending remove item stays pending", OrderStatePending, OrderEventRemoveItem, OrderStatePending},
		{"pending delete", OrderStatePending, OrderEventDelete, OrderStateDeleted},
		{"cancelled delete", OrderStateCancelled, OrderEventDelete, OrderStateDeleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			osm := NewOrderStateMachine()
			ctx := context.Background()

			newState, err := osm.Transition(ctx, tt.currentState, tt.event)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if newState != tt.wantState {
				t.Errorf("got state %q, want %q", newState, tt.wantState)
			}
		})
	}
}

func TestOrderStateMachine_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name         string
		currentState string
		event        string
	}{
		{"pending cannot process directly", OrderStatePending, OrderEventProcess},
		{"pending cannot ship directly", OrderStatePending, OrderEventShip},
		{"pending cannot deliver directly", OrderStatePending, OrderEventDeliver},
		{"confirmed cannot add items", OrderStateConfirmed, OrderEventAddItem},
		{"confirmed cannot remove items", OrderStateConfirmed, OrderEventRemoveItem},
		{"confirmed cannot confirm again", OrderStateConfirmed, OrderEventConfirm},
		{"confirmed cannot be deleted", OrderStateConfirmed, OrderEventDelete},
		{"confirmed cannot skip to shipped", OrderStateConfirmed, OrderEventShip},
		{"shipped cannot be deleted", OrderStateShipped, OrderEventDelete},
		{"delivered is terminal - cannot cancel", OrderStateDelivered, OrderEventCancel},
		{"delivered is terminal - cannot delete", OrderStateDelivered, OrderEventDelete},
		{"delivered is terminal - cannot deliver again", OrderStateDelivered, OrderEventDeliver},
		{"cancelled is terminal - cannot cancel again", OrderStateCancelled, OrderEventCancel},
		{"cancelled is terminal - cannot confirm", OrderStateCancelled, OrderEventConfirm},
		{"cancelled is terminal - cannot add items", OrderStateCancelled, OrderEventAddItem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			osm := NewOrderStateMachine()
			ctx := context.Background()

			_, err := osm.Transition(ctx, tt.currentState, tt.event)
			if err == nil {
				t.Errorf("expected error for invalid transition %s + %s", tt.currentState, tt.event)
			}

			var invalidErr fsm.InvalidEventError
			if !errors.As(err, &invalidErr) {
				t.Errorf("expected InvalidEventError, got %T: %v", err, err)
			}
		})
	}
}

func TestOrderStateMachine_AvailableEvents(t *testing.T) {
	osm := NewOrderStateMachine()

	tests := []struct {
		currentState string
		wantEvents   []string
	}{
		{OrderStatePending, []string{OrderEventAddItem, OrderEventRemoveItem, OrderEventConfirm, OrderEventCancel, OrderEventDelete}},
		{OrderStateConfirmed, []string{OrderEventProcess, OrderEventCancel}},
		{OrderStateProcessing, []string{OrderEventShip, OrderEventCancel}},
		{OrderStateShipped, []string{OrderEventDeliver, OrderEventCancel}},
		{OrderStateDelivered, []string{}},
		{OrderStateCancelled, []string{OrderEventDelete}},
	}

	for _, tt := range tests {
		t.Run(tt.currentState, func(t *testing.T) {
			got := osm.AvailableEvents(tt.currentState)

			if len(got) != len(tt.wantEvents) {
				t.Errorf("got %d events %v, want %d", len(got), got, len(tt.wantEvents))
				return
			}

			gotSet := make(map[string]bool)
			for _, e := range got {
				gotSet[e] = true
			}

			for _, want := range tt.wantEvents {
				if !gotSet[want] {
					t.Errorf("missing expected event %q in %v", want, got)
				}
			}
		})
	}
}

func TestAdvanceEvent(t *testing.T) {
	tests := []struct {
		from, to string
		want     string
	}{
		{OrderStateConfirmed, OrderStateProcessing, OrderEventProcess},
		{OrderStateProcessing, OrderStateShipped, OrderEventShip},
		{OrderStateShipped, OrderStateDelivered, OrderEventDeliver},
		{OrderStatePending, OrderStateConfirmed, ""},
		{OrderStatePending, OrderStateShipped, ""},
		{OrderStateConfirmed, OrderStateDelivered, ""},
		{OrderStateConfirmed, OrderStateCancelled, ""},
		{OrderStateDelivered, OrderStateShipped, ""},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_"+tt.to, func(t *testing.T) {
			if got := AdvanceEvent(tt.from, tt.to); got != tt.want {
				t.Errorf("AdvanceEvent(%s, %s) = %q, want %q", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestOrderStateMachine_ConcurrentAccess(t *testing.T) {
	osm := NewOrderStateMachine()
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			osm.CanTransition(OrderStatePending, OrderEventConfirm)
			osm.CanTransition(OrderStateShipped, OrderEventDeliver)
			osm.AvailableEvents(OrderStatePending)

			_, _ = osm.Transition(ctx, OrderStatePending, OrderEventConfirm)
			_, _ = osm.Transition(ctx, OrderStatePending, OrderEventAddItem)
		}()
	}

	wg.Wait()
}

func TestOrderStateMachine_UnknownEvent(t *testing.T) {
	osm := NewOrderStateMachine()
	ctx := context.Background()

	_, err := osm.Transition(ctx, OrderStatePending, "unknown_event")
	if err == nil {
		t.Error("expected error for unknown event")
	}

	var unknownErr fsm.UnknownEventError
	if !errors.As(err, &unknownErr) {
		t.Errorf("expected UnknownEventError, got %T: %v", err, err)
	}
}

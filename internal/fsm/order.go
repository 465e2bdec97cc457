package fsm

import (
	"context"
	"errors"
	"sync"

	"github.com/looplab/fsm"
)

// OrderStateMachine validates order operations against the order status table.
// Item edits are self-transitions on PENDING so that every legal operation, not only
// status changes, is answered by the same table.
type OrderStateMachine struct {
	fsm *fsm.FSM
	mu  sync.Mutex
}

func NewOrderStateMachine() *OrderStateMachine {
	osm := &OrderStateMachine{}
	osm.fsm = fsm.NewFSM(
		OrderStatePending,
		fsm.Events{
			{Name: OrderEventAddItem, Src: []string{OrderStatePending}, Dst: OrderStatePending},
			{Name: OrderEventRemoveItem, Src: []string{OrderStatePending}, Dst: OrderStatePending},
			{Name: OrderEventConfirm, Src: []string{OrderStatePending}, Dst: OrderStateConfirmed},
			{Name: OrderEventProcess, Src: []string{OrderStateConfirmed}, Dst: OrderStateProcessing},
			{Name: OrderEventShip, Src: []string{OrderStateProcessing}, Dst: OrderStateShipped},
			{Name: OrderEventDeliver, Src: []string{OrderStateShipped}, Dst: OrderStateDelivered},
			{
				Name: OrderEventCancel,
				Src:  []string{OrderStatePending, OrderStateConfirmed, OrderStateProcessing, OrderStateShipped},
				Dst:  OrderStateCancelled,
			},
			{Name: OrderEventDelete, Src: []string{OrderStatePending, OrderStateCancelled}, Dst: OrderStateDeleted},
		},
		fsm.Callbacks{},
	)
	return osm
}

func (osm *OrderStateMachine) CanTransition(currentState, event string) bool {
	osm.mu.Lock()
	defer osm.mu.Unlock()
	osm.fsm.SetState(currentState)
	return osm.fsm.Can(event)
}

// Transition returns the state reached by applying event to currentState.
func (osm *OrderStateMachine) Transition(ctx context.Context, currentState, event string) (string, error) {
	osm.mu.Lock()
	defer osm.mu.Unlock()
	osm.fsm.SetState(currentState)
	if err := osm.fsm.Event(ctx, event); err != nil {
		var noTransition fsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return currentState, nil
		}
		return "", err
	}
	return osm.fsm.Current(), nil
}

func (osm *OrderStateMachine) AvailableEvents(currentState string) []string {
	osm.mu.Lock()
	defer osm.mu.Unlock()
	osm.fsm.SetState(currentState)
	return osm.fsm.AvailableTransitions()
}

// AdvanceEvent returns the event that moves an order one step along the fulfilment path
// from -> to, or "" when to is not the next step.
func AdvanceEvent(from, to string) string {
	transitions := map[string]map[string]string{
		OrderStateConfirmed:  {OrderStateProcessing: OrderEventProcess},
		OrderStateProcessing: {OrderStateShipped: OrderEventShip},
		OrderStateShipped:    {OrderStateDelivered: OrderEventDeliver},
	}
	if events, ok := transitions[from]; ok {
		return events[to]
	}
	return ""
}

package fsm

import (
	"sync"

	"github.com/looplab/fsm"
)

// InventoryStateMachine answers what an order's status means for the stock it references:
// nothing held yet, held by a reservation, or consumed by delivery.
type InventoryStateMachine struct {
	fsm *fsm.FSM
	mu  sync.Mutex
}

func NewInventoryStateMachine() *InventoryStateMachine {
	ism := &InventoryStateMachine{}
	ism.fsm = fsm.NewFSM(
		InventoryStateAvailable,
		fsm.Events{
			{Name: InventoryEventReserve, Src: []string{InventoryStateAvailable}, Dst: InventoryStateReserved},
			{Name: InventoryEventConsume, Src: []string{InventoryStateReserved}, Dst: InventoryStateConsumed},
			{Name: InventoryEventRelease, Src: []string{InventoryStateReserved}, Dst: InventoryStateAvailable},
		},
		fsm.Callbacks{},
	)
	return ism
}

func (ism *InventoryStateMachine) CanOperation(orderState, operation string) bool {
	inventoryState := ism.orderStateToInventoryState(orderState)
	ism.mu.Lock()
	defer ism.mu.Unlock()
	ism.fsm.SetState(inventoryState)
	return ism.fsm.Can(operation)
}

// CanReserve reports whether an order in orderState may take a reservation.
func (ism *InventoryStateMachine) CanReserve(orderState string) bool {
	return ism.CanOperation(orderState, InventoryEventReserve)
}

// CanRelease reports whether an order in orderState holds stock that cancellation returns.
func (ism *InventoryStateMachine) CanRelease(orderState string) bool {
	return ism.CanOperation(orderState, InventoryEventRelease)
}

func (ism *InventoryStateMachine) CanConsume(orderState string) bool {
	return ism.CanOperation(orderState, InventoryEventConsume)
}

func (ism *InventoryStateMachine) orderStateToInventoryState(orderState string) string {
	switch orderState {
	case OrderStateConfirmed, OrderStateProcessing, OrderStateShipped:
		return InventoryStateReserved
	case OrderStateDelivered:
		return InventoryStateConsumed
	case OrderStatePending, OrderStateCancelled:
		return InventoryStateAvailable
	default:
		return InventoryStateAvailable
	}
}

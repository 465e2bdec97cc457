package fsm

// Order statuses. DELETED is a sink used only to express which statuses permit deletion.
const (
	OrderStatePending    = "PENDING"
	OrderStateConfirmed  = "CONFIRMED"
	OrderStateProcessing = "PROCESSING"
	OrderStateShipped    = "SHIPPED"
	OrderStateDelivered  = "DELIVERED"
	OrderStateCancelled  = "CANCELLED"
	OrderStateDeleted    = "DELETED"
)

const (
	OrderEventAddItem    = "add_item"
	OrderEventRemoveItem = "remove_item"
	OrderEventConfirm    = "confirm"
	OrderEventProcess    = "process"
	OrderEventShip       = "ship"
	OrderEventDeliver    = "deliver"
	OrderEventCancel     = "cancel"
	OrderEventDelete     = "delete"
)

const (
	InventoryStateAvailable = "available"
	InventoryStateReserved  = "reserved"
	InventoryStateConsumed  = "consumed"
)

const (
	InventoryEventReserve = "reserve"
	InventoryEventConsume = "consume"
	InventoryEventRelease = "release"
)

const (
	DispatcherStateIdle     = "idle"
	DispatcherStateRunning  = "running"
	DispatcherStateDraining = "draining"
	DispatcherStateStopped  = "stopped"
)

const (
	DispatcherEventStart   = "start"
	DispatcherEventDrain   = "drain"
	DispatcherEventStopped = "stopped"
)

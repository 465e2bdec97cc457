package fsm

import (
	"context"
	"sync"

	"github.com/looplab/fsm"
)

// DispatcherFSM tracks the lifecycle of a notification dispatcher:
// idle -> running -> draining -> stopped.
type DispatcherFSM struct {
	fsm     *fsm.FSM
	mu      sync.Mutex
	onEnter map[string]func()
}

func NewDispatcherFSM() *DispatcherFSM {
	d := &DispatcherFSM{
		onEnter: make(map[string]func()),
	}
	d.fsm = fsm.NewFSM(
		DispatcherStateIdle,
		fsm.Events{
			{Name: DispatcherEventStart, Src: []string{DispatcherStateIdle}, Dst: DispatcherStateRunning},
			{Name: DispatcherEventDrain, Src: []string{DispatcherStateIdle, DispatcherStateRunning}, Dst: DispatcherStateDraining},
			{Name: DispatcherEventStopped, Src: []string{DispatcherStateDraining}, Dst: DispatcherStateStopped},
		},
		fsm.Callbacks{
			// Called with d.mu held by Event.
			"enter_state": func(_ context.Context, e *fsm.Event) {
				if fn, ok := d.onEnter[e.Dst]; ok {
					fn()
				}
			},
		},
	)
	return d
}

func (d *DispatcherFSM) Current() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fsm.Current()
}

func (d *DispatcherFSM) Event(ctx context.Context, event string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fsm.Event(ctx, event)
}

func (d *DispatcherFSM) Can(event string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fsm.Can(event)
}

// Is reports whether the dispatcher is currently in state.
func (d *DispatcherFSM) Is(state string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fsm.Is(state)
}

// OnEnter registers fn to run when state is entered. fn must not call back into d.
func (d *DispatcherFSM) OnEnter(state string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onEnter[state] = fn
}

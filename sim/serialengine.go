package sim

import (
	"log"
	"sync"
)

// A SerialEngine runs all events on a single goroutine, in time order.
type SerialEngine struct {
	HookableBase

	nowLock sync.RWMutex
	now     VTimeInSec

	primary   EventQueue
	secondary EventQueue

	pauseLock sync.Mutex
	paused    bool
	stateLock sync.Mutex

	runLock sync.Mutex

	endHandlers []SimulationEndHandler
}

// NewSerialEngine creates a SerialEngine.
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{
		primary:   NewEventQueue(),
		secondary: NewInsertionQueue(),
	}
}

// Schedule registers an event to happen in the future. Secondary events
// scheduled at a time run after all primary events at the same time.
func (e *SerialEngine) Schedule(evt Event) {
	if evt.Time() < e.CurrentTime() {
		log.Panicf("scheduling %T at %.10f, which is in the past",
			evt, evt.Time())
	}

	if evt.IsSecondary() {
		e.secondary.Push(evt)
		return
	}

	e.primary.Push(evt)
}

// Run triggers the scheduled events until no event is left.
func (e *SerialEngine) Run() error {
	e.runLock.Lock()
	defer e.runLock.Unlock()

	for e.step() {
	}

	return nil
}

// step triggers the next event. It returns false when both queues are empty.
func (e *SerialEngine) step() bool {
	if e.primary.Len() == 0 && e.secondary.Len() == 0 {
		return false
	}

	e.pauseLock.Lock()
	defer e.pauseLock.Unlock()

	evt := e.popNextEvent()
	e.advanceTo(evt.Time())

	ctx := HookCtx{
		Domain: e,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	e.InvokeHook(ctx)

	_ = evt.Handler().Handle(evt)

	ctx.Pos = HookPosAfterEvent
	e.InvokeHook(ctx)

	return true
}

// popNextEvent takes the earliest pending event. When a primary and a
// secondary event carry the same time, the primary event wins.
func (e *SerialEngine) popNextEvent() Event {
	if e.primary.Len() == 0 {
		return e.secondary.Pop()
	}

	if e.secondary.Len() == 0 {
		return e.primary.Pop()
	}

	if e.primary.Peek().Time() <= e.secondary.Peek().Time() {
		return e.primary.Pop()
	}

	return e.secondary.Pop()
}

func (e *SerialEngine) advanceTo(t VTimeInSec) {
	if t < e.CurrentTime() {
		log.Panicf("event at %.10f is earlier than the current time %.10f",
			t, e.CurrentTime())
	}

	e.nowLock.Lock()
	e.now = t
	e.nowLock.Unlock()
}

// Pause stops the engine from triggering more events until Continue is
// called. The event being triggered still completes.
func (e *SerialEngine) Pause() {
	e.stateLock.Lock()
	defer e.stateLock.Unlock()

	if e.paused {
		return
	}

	e.pauseLock.Lock()
	e.paused = true
}

// Continue resumes a paused engine.
func (e *SerialEngine) Continue() {
	e.stateLock.Lock()
	defer e.stateLock.Unlock()

	if !e.paused {
		return
	}

	e.pauseLock.Unlock()
	e.paused = false
}

// CurrentTime returns the time of the event being triggered.
func (e *SerialEngine) CurrentTime() VTimeInSec {
	e.nowLock.RLock()
	t := e.now
	e.nowLock.RUnlock()

	return t
}

// RegisterSimulationEndHandler registers a handler to be called after the
// simulation ends.
func (e *SerialEngine) RegisterSimulationEndHandler(
	handler SimulationEndHandler,
) {
	e.endHandlers = append(e.endHandlers, handler)
}

// Finished calls every registered simulation-end handler.
func (e *SerialEngine) Finished() {
	now := e.CurrentTime()
	for _, h := range e.endHandlers {
		h.Handle(now)
	}
}

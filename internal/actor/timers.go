package actor

import "coreruntime/internal/core"

const timerTopic = "internal.timer"

type timeEvent struct {
	name string
	ts   core.UnixNanos
}

// FireTimer publishes a named timer tick for this actor to observe. In a
// full deployment this is driven by a shared scheduler; tests call it
// directly.
func (a *DataActor) FireTimer(name string) {
	a.bus.Publish(timerTopic, timeEvent{name: name, ts: a.clock.Now()})
}

// HandleTimeEvent is the actor's time-event handler. Time events are
// always delivered regardless of lifecycle state, per the handler-dispatch
// contract.
func (a *DataActor) HandleTimeEvent(name string, ts core.UnixNanos) {
	a.dispatch("time_event", true, func() error {
		return a.handlers.OnTimeEvent(name, ts)
	})
}

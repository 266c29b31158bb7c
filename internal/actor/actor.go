package actor

import (
	"fmt"
	"log/slog"
	"sync"

	"coreruntime/internal/bus"
	"coreruntime/internal/cache"
	"coreruntime/internal/core"
)

// DataEngineEndpoint is the bus endpoint subscribe/unsubscribe/request
// commands are sent to for upstream adapter fan-out.
const DataEngineEndpoint = "command.data_engine"

// SubscribeCommand asks the data-engine endpoint to start forwarding a
// topic's upstream data.
type SubscribeCommand struct {
	Topic      string
	InstrumentID core.InstrumentID
}

// UnsubscribeCommand asks the data-engine endpoint to stop forwarding a
// topic's upstream data.
type UnsubscribeCommand struct {
	Topic      string
	InstrumentID core.InstrumentID
}

// ShutdownSystemCommand is the one cross-subsystem command the actor
// originates itself, sent on bus.SystemShutdownEndpoint.
type ShutdownSystemCommand struct {
	Reason string
}

// DataActor is a lifecycle-managed component that owns a registry of topic
// subscriptions, dispatches incoming bus messages to user-overridable
// handlers, and issues market-data requests correlated by id.
type DataActor struct {
	mu    sync.Mutex
	state State

	id       core.StrategyID
	traderID core.TraderID
	clock    Clock
	cache    *cache.Cache
	bus      *bus.MessageBus
	sb       *bus.Switchboard
	handlers Handlers
	logger   *slog.Logger

	subscribed map[string]bool
}

// New constructs a DataActor in the PreInitialized state. id is this
// actor's own strategy id, used by the order-fill dispatch skip rule.
func New(id core.StrategyID, handlers Handlers, logger *slog.Logger) *DataActor {
	return &DataActor{
		state:      StatePreInitialized,
		id:         id,
		handlers:   handlers,
		logger:     logger,
		sb:         bus.NewSwitchboard(),
		subscribed: make(map[string]bool),
	}
}

// State returns the actor's current lifecycle state.
func (a *DataActor) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *DataActor) transition(t trigger) error {
	next, err := nextState(a.state, t)
	if err != nil {
		return err
	}
	a.logger.Debug("actor state transition", "from", a.state, "to", next)
	a.state = next
	return nil
}

// Register validates and stores the actor's collaborators and installs the
// default time-event callback. Must be called before any other operation.
func (a *DataActor) Register(traderID core.TraderID, clock Clock, c *cache.Cache, b *bus.MessageBus, sb *bus.Switchboard) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if traderID == "" || clock == nil || c == nil || b == nil || sb == nil {
		return fmt.Errorf("register requires a trader id, clock, cache and bus: %w", core.ErrInvalidInput)
	}
	if err := a.transition(triggerRegister); err != nil {
		return err
	}
	a.traderID = traderID
	a.clock = clock
	a.cache = c
	a.bus = b
	a.sb = sb
	b.Subscribe(timerTopic, func(msg any) {
		if evt, ok := msg.(timeEvent); ok {
			a.HandleTimeEvent(evt.name, evt.ts)
		}
	})
	return nil
}

func (a *DataActor) checkRegistered() error {
	if a.cache == nil || a.bus == nil {
		return fmt.Errorf("actor %s: %w", a.id, core.ErrNotRegistered)
	}
	return nil
}

// Start transitions the actor to Running.
func (a *DataActor) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkRegistered(); err != nil {
		return err
	}
	return a.transition(triggerStart)
}

// Stop transitions the actor to Stopped. Pending handler invocations that
// fire after this point see non-Running state and short-circuit.
func (a *DataActor) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transition(triggerStop)
}

// Resume transitions a Stopped actor back to Running.
func (a *DataActor) Resume() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transition(triggerResume)
}

// Degrade transitions a Running actor to Degraded.
func (a *DataActor) Degrade() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transition(triggerDegrade)
}

// Fault transitions the actor to Faulted.
func (a *DataActor) Fault() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transition(triggerFault)
}

// Dispose transitions the actor to the terminal Disposed state, legal from
// any non-terminal state.
func (a *DataActor) Dispose() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transition(triggerDispose)
}

// ShutdownSystem sends a ShutdownSystemCommand through the fixed
// command.system.shutdown endpoint. It is the only cross-subsystem command
// the actor originates.
func (a *DataActor) ShutdownSystem(reason string) error {
	if err := a.checkRegistered(); err != nil {
		return err
	}
	a.bus.Send(bus.SystemShutdownEndpoint, ShutdownSystemCommand{Reason: reason})
	return nil
}

// dispatch implements the handle_* contract: log at debug, skip (except
// for time events) when not Running, call the hook and swallow any error.
func (a *DataActor) dispatch(kind string, isTimeEvent bool, hook func() error) {
	a.mu.Lock()
	state := a.state
	a.mu.Unlock()

	a.logger.Debug("actor received event", "kind", kind)
	if state != StateRunning && !isTimeEvent {
		a.logger.Warn("received when not running, skipping", "kind", kind, "state", state)
		return
	}
	if err := hook(); err != nil {
		a.logger.Error("handler returned an error", "kind", kind, "error", err)
	}
}

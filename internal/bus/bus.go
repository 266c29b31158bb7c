// Package bus implements topic-addressed publish/subscribe with
// request/response correlation, and the switchboard that derives topic
// names from structured entity ids.
package bus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handler receives a published or response message. It must return
// quickly; long-running work belongs on an adapter goroutine.
type Handler func(message any)

// MessageBus is a process-wide pub/sub hub plus a correlation-id request/
// response table. Topic delivery preserves subscription order; the bus
// itself never times out a pending correlation entry — callers own their
// deadlines.
type MessageBus struct {
	mu          sync.RWMutex
	logger      *slog.Logger
	subscribers map[string][]Handler
	pending     map[uuid.UUID]Handler
	closed      bool
}

// New constructs an empty MessageBus.
func New(logger *slog.Logger) *MessageBus {
	return &MessageBus{
		logger:      logger,
		subscribers: make(map[string][]Handler),
		pending:     make(map[uuid.UUID]Handler),
	}
}

// Subscribe registers handler for topic, appended after any existing
// handlers so dispatch order matches subscription order.
func (b *MessageBus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], handler)
}

// UnsubscribeAll removes every handler registered on topic. Go func values
// are not comparable, so the bus has no per-handler unsubscribe;
// internal/actor unsubscribes through this call.
func (b *MessageBus) UnsubscribeAll(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, topic)
}

// Publish dispatches message to every handler subscribed to topic, in
// subscription order.
func (b *MessageBus) Publish(topic string, message any) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[topic]...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(message)
	}
}

// HasSubscribers reports whether topic currently has at least one handler.
func (b *MessageBus) HasSubscribers(topic string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic]) > 0
}

// NewCorrelationID generates a fresh request correlation id and registers
// handler against it. The entry is removed the first time Respond is
// called with this id.
func (b *MessageBus) NewCorrelationID(handler Handler) uuid.UUID {
	id := uuid.New()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[id] = handler
	return id
}

// Respond dispatches message to the handler registered under id and
// removes the entry. Returns false if no handler was registered (e.g. a
// duplicate or late response).
func (b *MessageBus) Respond(id uuid.UUID, message any) bool {
	b.mu.Lock()
	handler, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()
	if !ok {
		return false
	}
	handler(message)
	return true
}

// Send is a point-to-point send to a fixed endpoint name, modeled as a
// regular topic publish — endpoints and topics share the same namespace in
// this bus, distinguished only by naming convention (e.g.
// "command.system.shutdown").
func (b *MessageBus) Send(endpoint string, message any) {
	b.Publish(endpoint, message)
}

// Close marks the bus closed. Idempotent.
func (b *MessageBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.logger.Info("message bus closed", "pending_correlations", len(b.pending))
	return nil
}

// FixedEndpoint formats a dotted command endpoint name, e.g.
// FixedEndpoint("system", "shutdown") -> "command.system.shutdown".
func FixedEndpoint(parts ...string) string {
	s := "command"
	for _, p := range parts {
		s = fmt.Sprintf("%s.%s", s, p)
	}
	return s
}

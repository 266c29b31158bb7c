package actor

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"coreruntime/internal/bus"
	"coreruntime/internal/cache"
	"coreruntime/internal/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedClock struct{ ts core.UnixNanos }

func (c fixedClock) Now() core.UnixNanos { return c.ts }

type recordingHandlers struct {
	DefaultHandlers
	bars   int
	fills  []OrderFillEvent
	events []string
}

func (h *recordingHandlers) OnBar(cache.Bar) error {
	h.bars++
	return nil
}

func (h *recordingHandlers) OnOrderFilled(f OrderFillEvent) error {
	h.fills = append(h.fills, f)
	return nil
}

func (h *recordingHandlers) OnTimeEvent(name string, _ core.UnixNanos) error {
	h.events = append(h.events, name)
	return nil
}

func newTestActor(t *testing.T, h Handlers) (*DataActor, *bus.MessageBus) {
	t.Helper()
	a := New("strategy-1", h, testLogger())
	c := cache.New(cache.Config{}, testLogger(), nil)
	b := bus.New(testLogger())
	sb := bus.NewSwitchboard()
	if err := a.Register("trader-1", fixedClock{ts: 1000}, c, b, sb); err != nil {
		t.Fatalf("register: %v", err)
	}
	return a, b
}

func TestActorStateMachineLegalTransitions(t *testing.T) {
	h := &recordingHandlers{}
	a, _ := newTestActor(t, h)

	if got := a.State(); got != StateReady {
		t.Fatalf("after register: got %v, want Ready", got)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := a.State(); got != StateRunning {
		t.Fatalf("after start: got %v, want Running", got)
	}
	if err := a.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := a.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := a.Degrade(); err != nil {
		t.Fatalf("degrade: %v", err)
	}
	if err := a.Fault(); err != nil {
		t.Fatalf("fault: %v", err)
	}
	if err := a.Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	if got := a.State(); got != StateDisposed {
		t.Fatalf("after dispose: got %v, want Disposed", got)
	}
}

func TestActorStateMachineRejectsIllegalTransition(t *testing.T) {
	h := &recordingHandlers{}
	a, _ := newTestActor(t, h)

	err := a.Resume()
	if !errors.Is(err, core.ErrInvalidStateTransition) {
		t.Fatalf("resume from Ready: got %v, want ErrInvalidStateTransition", err)
	}
}

func TestActorDispatchSkipsWhenNotRunning(t *testing.T) {
	h := &recordingHandlers{}
	a, b := newTestActor(t, h)

	if err := a.SubscribeBars(core.BarType("AUD-USD-1-MINUTE"), "AUD-USD"); err != nil {
		t.Fatalf("subscribe bars: %v", err)
	}
	b.Publish(bus.NewSwitchboard().BarsTopic(core.BarType("AUD-USD-1-MINUTE")), cache.Bar{BarType: core.BarType("AUD-USD-1-MINUTE")})
	if h.bars != 0 {
		t.Fatalf("bar dispatched while not running: got %d, want 0", h.bars)
	}

	if err := a.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	b.Publish(bus.NewSwitchboard().BarsTopic(core.BarType("AUD-USD-1-MINUTE")), cache.Bar{BarType: core.BarType("AUD-USD-1-MINUTE")})
	if h.bars != 1 {
		t.Fatalf("bar not dispatched while running: got %d, want 1", h.bars)
	}
}

func TestActorTimeEventsDispatchRegardlessOfState(t *testing.T) {
	h := &recordingHandlers{}
	a, _ := newTestActor(t, h)

	a.FireTimer("tick")
	if len(h.events) != 1 || h.events[0] != "tick" {
		t.Fatalf("time event not dispatched while Ready: got %v", h.events)
	}
}

func TestActorDuplicateSubscribeIsNoOp(t *testing.T) {
	h := &recordingHandlers{}
	a, _ := newTestActor(t, h)

	if err := a.SubscribeQuoteTicks("AUD-USD"); err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	if err := a.SubscribeQuoteTicks("AUD-USD"); err != nil {
		t.Fatalf("duplicate subscribe should be a no-op, not an error: %v", err)
	}
}

func TestActorUnsubscribeWhenNotSubscribedIsNoOp(t *testing.T) {
	h := &recordingHandlers{}
	a, _ := newTestActor(t, h)

	if err := a.UnsubscribeQuoteTicks("AUD-USD"); err != nil {
		t.Fatalf("unsubscribe when not subscribed should be a no-op, not an error: %v", err)
	}
}

// TestActorOrderFillsSkipsOwnStrategy supplements the dispatch contract: a
// fill event whose strategy id equals the actor's own id is never delivered
// to OnOrderFilled.
func TestActorOrderFillsSkipsOwnStrategy(t *testing.T) {
	h := &recordingHandlers{}
	a, b := newTestActor(t, h)
	if err := a.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := a.SubscribeOrderFills("AUD-USD"); err != nil {
		t.Fatalf("subscribe order fills: %v", err)
	}

	topic := bus.NewSwitchboard().OrderFillsTopic("AUD-USD")
	b.Publish(topic, OrderFillEvent{StrategyID: "strategy-1", InstrumentID: "AUD-USD"})
	if len(h.fills) != 0 {
		t.Fatalf("fill from own strategy should be skipped: got %d", len(h.fills))
	}

	b.Publish(topic, OrderFillEvent{StrategyID: "strategy-2", InstrumentID: "AUD-USD"})
	if len(h.fills) != 1 {
		t.Fatalf("fill from another strategy should dispatch: got %d", len(h.fills))
	}
}

func TestActorRequestValidatesTimeRange(t *testing.T) {
	h := &recordingHandlers{}
	a, _ := newTestActor(t, h)

	future := core.UnixNanos(5000)
	err := a.RequestBars(core.BarType("AUD-USD-1-MINUTE"), "AUD-USD", &future, nil, 10)
	if !errors.Is(err, core.ErrInvalidTimeRange) {
		t.Fatalf("request with start after now: got %v, want ErrInvalidTimeRange", err)
	}

	start := core.UnixNanos(500)
	end := core.UnixNanos(100)
	err = a.RequestBars(core.BarType("AUD-USD-1-MINUTE"), "AUD-USD", &start, &end, 10)
	if !errors.Is(err, core.ErrInvalidTimeRange) {
		t.Fatalf("request with start >= end: got %v, want ErrInvalidTimeRange", err)
	}

	valid := core.UnixNanos(100)
	if err := a.RequestBars(core.BarType("AUD-USD-1-MINUTE"), "AUD-USD", &valid, nil, 10); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
}

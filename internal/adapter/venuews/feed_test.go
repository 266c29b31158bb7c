package venuews

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"coreruntime/internal/bus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 10}))
}

type envelope struct {
	Op   string              `json:"op"`
	Args []map[string]string `json:"args"`
}

// wsTestServer accepts exactly one connection at a time, records every
// subscribe envelope it receives, and can be told to drop the connection to
// force the feed into reconnect.
type wsTestServer struct {
	mu       sync.Mutex
	received []envelope
	conns    chan *websocket.Conn
	upgrader websocket.Upgrader
}

func newWSTestServer() *wsTestServer {
	return &wsTestServer{conns: make(chan *websocket.Conn, 8)}
}

func (s *wsTestServer) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.conns <- conn
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		s.mu.Lock()
		s.received = append(s.received, env)
		s.mu.Unlock()
	}
}

func (s *wsTestServer) subscribeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, env := range s.received {
		if env.Op == "subscribe" {
			n++
		}
	}
	return n
}

func TestFeedReconnectResubscribesAllChannels(t *testing.T) {
	srv := newWSTestServer()
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	feed := New(url, nil, nil, nil, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		feed.Run(ctx)
		close(done)
	}()

	var first *websocket.Conn
	select {
	case first = <-srv.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first connection")
	}
	_ = first

	if err := feed.Subscribe(ChannelArg{Channel: "tickers", InstID: "BTC-USD"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := feed.Subscribe(ChannelArg{Channel: "books", InstFamily: "BTC"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := feed.Subscribe(ChannelArg{Channel: "instruments", InstType: "SPOT"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	waitForSubscribeCount(t, srv, 3)

	// Force a disconnect; the feed must reconnect and re-issue all three
	// tracked subscriptions (by instType, by instFamily, by instId)
	// without the caller doing anything.
	first.Close()

	var second *websocket.Conn
	select {
	case second = <-srv.conns:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reconnection")
	}
	_ = second

	// The reconnect resubscribe is a single "subscribe" envelope bundling
	// every tracked channel, so the count only needs to grow by one.
	waitForSubscribeCount(t, srv, 4)

	srv.mu.Lock()
	var lastResubscribe envelope
	for _, env := range srv.received {
		if env.Op == "subscribe" {
			lastResubscribe = env
		}
	}
	srv.mu.Unlock()

	if len(lastResubscribe.Args) != 3 {
		t.Fatalf("resubscribe envelope carried %d channels, want 3", len(lastResubscribe.Args))
	}

	cancel()
	<-done
}

func waitForSubscribeCount(t *testing.T, srv *wsTestServer, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if srv.subscribeCount() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("subscribe count never reached %d, got %d", want, srv.subscribeCount())
}

func TestChannelArgToArgsOmitsEmptyFields(t *testing.T) {
	arg := ChannelArg{Channel: "tickers", InstID: "BTC-USD"}
	m := arg.toArgs()
	if _, ok := m["instType"]; ok {
		t.Error("instType should be omitted when empty")
	}
	if _, ok := m["instFamily"]; ok {
		t.Error("instFamily should be omitted when empty")
	}
	if m["instId"] != "BTC-USD" {
		t.Errorf("instId = %q, want BTC-USD", m["instId"])
	}
}

func TestDispatchRoutesOrderOpResponseToPendingChannel(t *testing.T) {
	feed := New("ws://unused", nil, nil, nil, testLogger())
	id := feed.NewCorrelationID()

	ch := make(chan orderOpResponse, 1)
	feed.pendingMu.Lock()
	feed.pending[id] = pendingOrderOp{kind: OrderOpSend, instID: "BTC-USD", ch: ch}
	feed.pendingMu.Unlock()

	raw, _ := json.Marshal(map[string]any{
		"op":   "order",
		"id":   id.String(),
		"code": "0",
		"msg":  "",
	})
	feed.dispatch(raw)

	select {
	case resp := <-ch:
		if resp.Code != "0" {
			t.Errorf("Code = %q, want 0", resp.Code)
		}
	default:
		t.Fatal("expected response to be delivered to pending channel")
	}
}

func TestDispatchPublishesOrderRejectedEventOnNonZeroCode(t *testing.T) {
	b := bus.New(testLogger())
	feed := New("ws://unused", nil, b, nil, testLogger())
	id := feed.NewCorrelationID()

	received := make(chan OrderRejectedEvent, 1)
	b.Subscribe(bus.Switchboard{}.OrderRejectsTopic("BTC-USD"), func(msg any) {
		received <- msg.(OrderRejectedEvent)
	})

	ch := make(chan orderOpResponse, 1)
	feed.pendingMu.Lock()
	feed.pending[id] = pendingOrderOp{kind: OrderOpCancel, instID: "BTC-USD", ch: ch}
	feed.pendingMu.Unlock()

	raw, _ := json.Marshal(map[string]any{
		"op":   "order",
		"id":   id.String(),
		"code": "51008",
		"msg":  "insufficient balance",
	})
	feed.dispatch(raw)

	select {
	case evt := <-received:
		if evt.Kind != OrderOpCancel {
			t.Errorf("Kind = %v, want OrderOpCancel", evt.Kind)
		}
		if evt.Code != "51008" {
			t.Errorf("Code = %q, want 51008", evt.Code)
		}
	case <-time.After(time.Second):
		t.Fatal("expected OrderRejectedEvent to be published")
	}
}

func TestDispatchRoutesMarketDataToHandler(t *testing.T) {
	var gotChannel string
	var gotRaw json.RawMessage
	feed := New("ws://unused", nil, nil, func(channel string, raw json.RawMessage) {
		gotChannel = channel
		gotRaw = raw
	}, testLogger())

	raw, _ := json.Marshal(map[string]any{
		"arg":  map[string]string{"channel": "tickers"},
		"data": []map[string]string{{"instId": "BTC-USD"}},
	})
	feed.dispatch(raw)

	if gotChannel != "tickers" {
		t.Errorf("channel = %q, want tickers", gotChannel)
	}
	if len(gotRaw) == 0 {
		t.Error("expected non-empty data payload")
	}
}

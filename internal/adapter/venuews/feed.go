// Package venuews implements a venue-neutral WebSocket feed: an
// {op, args}-envelope subscribe/unsubscribe protocol, reconnect with
// re-subscription of every tracked channel, and a pending-request map for
// correlating order-op acknowledgements delivered out of band.
package venuews

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"coreruntime/internal/bus"
	"coreruntime/internal/core"
)

// OrderOpKind distinguishes which order operation an async ack belongs to,
// so a rejection can be translated into the right event type.
type OrderOpKind int

const (
	OrderOpSend OrderOpKind = iota
	OrderOpCancel
	OrderOpAmend
)

// OrderRejectedEvent is published when a venue order-op ack carries a
// non-zero code, keyed by whichever operation it was and the instrument the
// caller registered the correlation id under.
type OrderRejectedEvent struct {
	Kind         OrderOpKind
	InstrumentID core.InstrumentID
	Code         string
	Msg          string
}

const (
	pingInterval     = 25 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

// ChannelArg identifies one subscription channel, keyed by whichever of
// InstType/InstFamily/InstID the venue's channel expects.
type ChannelArg struct {
	Channel    string
	InstType   string
	InstFamily string
	InstID     string
}

func (c ChannelArg) key() string {
	return fmt.Sprintf("%s|%s|%s|%s", c.Channel, c.InstType, c.InstFamily, c.InstID)
}

func (c ChannelArg) toArgs() map[string]string {
	m := map[string]string{"channel": c.Channel}
	if c.InstType != "" {
		m["instType"] = c.InstType
	}
	if c.InstFamily != "" {
		m["instFamily"] = c.InstFamily
	}
	if c.InstID != "" {
		m["instId"] = c.InstID
	}
	return m
}

// LoginSigner produces the {op: login, args: [...]} payload for
// authenticated feeds. Left nil for a public feed.
type LoginSigner interface {
	LoginPayload() (map[string]any, error)
}

// MessageHandler receives one decoded incoming frame's raw payload, keyed
// by the venue's "arg"/"channel" routing fields.
type MessageHandler func(channel string, raw json.RawMessage)

// Feed manages one WebSocket connection with auto-reconnect and
// re-subscription. It tracks subscriptions in three tables — by inst_type,
// by inst_family, by inst_id — matching the venue wire contract's
// resubscription granularity.
type Feed struct {
	url    string
	logger *slog.Logger
	login  LoginSigner
	onMsg  MessageHandler
	bus    *bus.MessageBus

	connMu sync.Mutex
	conn   *websocket.Conn

	subMu      sync.RWMutex
	byInstType map[string]ChannelArg
	byFamily   map[string]ChannelArg
	byInstID   map[string]ChannelArg

	pendingMu sync.Mutex
	pending   map[uuid.UUID]pendingOrderOp
}

type pendingOrderOp struct {
	kind   OrderOpKind
	instID core.InstrumentID
	ch     chan orderOpResponse
}

type orderOpResponse struct {
	ID   string          `json:"id"`
	Op   string          `json:"op"`
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// New constructs a Feed. login is nil for a public (unauthenticated) feed.
func New(url string, login LoginSigner, b *bus.MessageBus, onMsg MessageHandler, logger *slog.Logger) *Feed {
	return &Feed{
		url:        url,
		logger:     logger,
		login:      login,
		onMsg:      onMsg,
		bus:        b,
		byInstType: make(map[string]ChannelArg),
		byFamily:   make(map[string]ChannelArg),
		byInstID:   make(map[string]ChannelArg),
		pending:    make(map[uuid.UUID]pendingOrderOp),
	}
}

// Run connects and maintains the connection with exponential backoff
// reconnection (1s doubling to a 30s cap). Blocks until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("websocket disconnected, reconnecting", "error", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

// Subscribe adds a channel to the appropriate tracking table and sends a
// subscribe envelope if connected.
func (f *Feed) Subscribe(arg ChannelArg) error {
	f.subMu.Lock()
	f.trackLocked(arg)
	f.subMu.Unlock()
	return f.send(map[string]any{"op": "subscribe", "args": []map[string]string{arg.toArgs()}})
}

// Unsubscribe removes a channel from tracking and sends an unsubscribe
// envelope if connected.
func (f *Feed) Unsubscribe(arg ChannelArg) error {
	f.subMu.Lock()
	delete(f.byInstType, arg.key())
	delete(f.byFamily, arg.key())
	delete(f.byInstID, arg.key())
	f.subMu.Unlock()
	return f.send(map[string]any{"op": "unsubscribe", "args": []map[string]string{arg.toArgs()}})
}

func (f *Feed) trackLocked(arg ChannelArg) {
	switch {
	case arg.InstID != "":
		f.byInstID[arg.key()] = arg
	case arg.InstFamily != "":
		f.byFamily[arg.key()] = arg
	case arg.InstType != "":
		f.byInstType[arg.key()] = arg
	}
}

// NewCorrelationID generates a fresh id for an order-op request awaiting an
// async WS acknowledgement.
func (f *Feed) NewCorrelationID() uuid.UUID { return uuid.New() }

// AwaitOrderOp blocks until the ack for id arrives or ctx is cancelled. A
// non-success ack is also published to the instrument's order-rejects bus
// topic as an OrderRejectedEvent before returning here.
func (f *Feed) AwaitOrderOp(ctx context.Context, id uuid.UUID, kind OrderOpKind, instID core.InstrumentID) (bool, string, error) {
	ch := make(chan orderOpResponse, 1)
	f.pendingMu.Lock()
	f.pending[id] = pendingOrderOp{kind: kind, instID: instID, ch: ch}
	f.pendingMu.Unlock()
	defer func() {
		f.pendingMu.Lock()
		delete(f.pending, id)
		f.pendingMu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return false, "", ctx.Err()
	case resp := <-ch:
		return resp.Code == "0", resp.Msg, nil
	}
}

func (f *Feed) Close() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

func (f *Feed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	if f.login != nil {
		payload, err := f.login.LoginPayload()
		if err != nil {
			return fmt.Errorf("build login payload: %w", err)
		}
		if err := f.writeJSON(payload); err != nil {
			return fmt.Errorf("send login: %w", err)
		}
	}

	if err := f.resubscribeAll(); err != nil {
		return fmt.Errorf("resubscribe: %w", err)
	}
	f.logger.Info("websocket connected", "url", f.url)

	pingCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f.dispatch(msg)
	}
}

// resubscribeAll re-issues every subscription stored in the three tracking
// tables, in inst_type, inst_family, inst_id order. This is the reconnect
// guarantee: the feed's caller never has to re-subscribe manually.
func (f *Feed) resubscribeAll() error {
	f.subMu.RLock()
	var args []ChannelArg
	for _, a := range f.byInstType {
		args = append(args, a)
	}
	for _, a := range f.byFamily {
		args = append(args, a)
	}
	for _, a := range f.byInstID {
		args = append(args, a)
	}
	f.subMu.RUnlock()
	if len(args) == 0 {
		return nil
	}
	channelArgs := make([]map[string]string, len(args))
	for i, a := range args {
		channelArgs[i] = a.toArgs()
	}
	return f.send(map[string]any{"op": "subscribe", "args": channelArgs})
}

func (f *Feed) dispatch(data []byte) {
	var envelope struct {
		Arg struct {
			Channel string `json:"channel"`
		} `json:"arg"`
		Op   string          `json:"op"`
		ID   string          `json:"id"`
		Code string          `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		f.logger.Debug("ignoring non-json ws message", "data", string(data))
		return
	}

	if envelope.Op != "" && envelope.ID != "" {
		id, err := uuid.Parse(envelope.ID)
		if err == nil {
			f.pendingMu.Lock()
			op, ok := f.pending[id]
			f.pendingMu.Unlock()
			if ok {
				if envelope.Code != "0" && f.bus != nil {
					topic := bus.Switchboard{}.OrderRejectsTopic(op.instID)
					f.bus.Publish(topic, OrderRejectedEvent{
						Kind: op.kind, InstrumentID: op.instID, Code: envelope.Code, Msg: envelope.Msg,
					})
				}
				op.ch <- orderOpResponse{ID: envelope.ID, Op: envelope.Op, Code: envelope.Code, Msg: envelope.Msg, Data: envelope.Data}
				return
			}
		}
	}

	if envelope.Arg.Channel != "" && f.onMsg != nil {
		f.onMsg(envelope.Arg.Channel, envelope.Data)
	}
}

func (f *Feed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.writeRaw(websocket.TextMessage, []byte("ping")); err != nil {
				f.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (f *Feed) writeJSON(v any) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteJSON(v)
}

func (f *Feed) writeRaw(msgType int, data []byte) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteMessage(msgType, data)
}

func (f *Feed) send(v any) error {
	f.connMu.Lock()
	connected := f.conn != nil
	f.connMu.Unlock()
	if !connected {
		return nil
	}
	return f.writeJSON(v)
}

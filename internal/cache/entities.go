// Package cache is the in-memory store of all live trading state: orders,
// positions, instruments, accounts and market data, plus the 28 derived
// indices that make that state queryable by venue, strategy, or status.
package cache

import (
	"coreruntime/internal/core"
	"coreruntime/internal/position"
)

// OrderStatus is the lifecycle status of an Order.
type OrderStatus int

const (
	OrderStatusInitialized OrderStatus = iota
	OrderStatusSubmitted
	OrderStatusAccepted
	OrderStatusPendingCancel
	OrderStatusFilled
	OrderStatusCanceled
	OrderStatusRejected
	OrderStatusExpired
)

// IsInflight reports whether the order has been submitted but the venue
// has not yet reported a terminal or accepted state.
func (s OrderStatus) IsInflight() bool {
	return s == OrderStatusSubmitted
}

// IsOpen reports whether the order is accepted and still live at the
// venue.
func (s OrderStatus) IsOpen() bool {
	return s == OrderStatusAccepted || s == OrderStatusPendingCancel
}

// IsClosed reports whether the order has reached a terminal state.
func (s OrderStatus) IsClosed() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// Order is the cache's record of a client order and its current venue
// status.
type Order struct {
	TraderID        core.TraderID
	StrategyID      core.StrategyID
	InstrumentID    core.InstrumentID
	ClientOrderID   core.ClientOrderID
	VenueOrderID    *core.VenueOrderID
	Venue           core.Venue
	Side            core.OrderSide
	Quantity        core.Quantity
	Price           core.Price
	Status          OrderStatus
	EmulationTrigger string
	ExecAlgorithmID *core.ExecAlgorithmID
	ExecSpawnID     *core.ExecSpawnID
	ClientID        *core.ClientID
}

// IsEmulated reports whether this order carries an emulation trigger.
func (o Order) IsEmulated() bool { return o.EmulationTrigger != "" }

// OrderList groups a set of client order ids submitted together (e.g. a
// bracket or batch).
type OrderList struct {
	ID             string
	InstrumentID   core.InstrumentID
	ClientOrderIDs []core.ClientOrderID
}

// Account is the cache's record of a venue account's balances.
type Account struct {
	ID       core.AccountID
	Venue    core.Venue
	Balances map[core.Currency]float64
}

// Synthetic describes a synthetic instrument composed from other
// instruments. Held opaquely by the cache; composition rules live in
// strategy code.
type Synthetic struct {
	ID         core.InstrumentID
	Components []core.InstrumentID
}

// QuoteTick is a top-of-book quote snapshot.
type QuoteTick struct {
	InstrumentID core.InstrumentID
	BidPrice     core.Price
	AskPrice     core.Price
	BidSize      core.Quantity
	AskSize      core.Quantity
	TsEvent      core.UnixNanos
}

// TradeTick is a single executed trade observed on the venue's tape.
type TradeTick struct {
	InstrumentID core.InstrumentID
	Price        core.Price
	Size         core.Quantity
	AggressorSide core.OrderSide
	TradeID      string
	TsEvent      core.UnixNanos
}

// Bar is one OHLCV aggregation over a BarType.
type Bar struct {
	BarType core.BarType
	Open    core.Price
	High    core.Price
	Low     core.Price
	Close   core.Price
	Volume  core.Quantity
	TsEvent core.UnixNanos
}

// OrderBookSnapshot is the latest known state of an instrument's order
// book, stored opaquely by the cache (bid/ask ladders are adapter- and
// strategy-specific).
type OrderBookSnapshot struct {
	InstrumentID core.InstrumentID
	Bids         []BookLevel
	Asks         []BookLevel
	TsEvent      core.UnixNanos
}

// BookLevel is one price/size level of an order book ladder.
type BookLevel struct {
	Price core.Price
	Size  core.Quantity
}

// PositionEntry wraps a *position.Position with the OMS type it was
// opened under, for cache bookkeeping (the cache never interprets OMS
// semantics itself).
type PositionEntry struct {
	Position *position.Position
	OmsType  string
}

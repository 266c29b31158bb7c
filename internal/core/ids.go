// Package core defines the numeric and identifier primitives shared by
// every other package in this module: strongly-typed ids, fixed-precision
// price/quantity/money scalars, and the sentinel error taxonomy.
package core

import "fmt"

// TraderID identifies the trader on whose behalf orders and positions exist.
type TraderID string

// StrategyID identifies the strategy component that originated an order.
type StrategyID string

// AccountID identifies a venue account.
type AccountID string

// ClientOrderID is the client-assigned identifier for an order, unique per
// trader.
type ClientOrderID string

// VenueOrderID is the identifier a venue assigns once it accepts an order.
type VenueOrderID string

// InstrumentID identifies a tradable instrument, e.g. "BTC-USD.OKX".
type InstrumentID string

// PositionID identifies a position aggregate.
type PositionID string

// ClientID identifies the execution client that submitted an order, when
// more than one client is multiplexed behind a single trader.
type ClientID string

// ExecAlgorithmID identifies an execution-algorithm parent order.
type ExecAlgorithmID string

// ExecSpawnID identifies a child order spawned by an execution algorithm.
type ExecSpawnID string

// Venue identifies the execution venue an order, position, or account is
// scoped to.
type Venue string

// BarType identifies an aggregation of an instrument's trades into bars,
// e.g. "BTC-USD.OKX-1-MINUTE-LAST-EXTERNAL".
type BarType string

// Currency is an ISO-4217-style currency code, used as the key for
// commission and balance maps.
type Currency string

func newNonEmptyID[T ~string](kind string, v string) (T, error) {
	if v == "" {
		return T(""), fmt.Errorf("%s: %w", kind, ErrInvalidInput)
	}
	return T(v), nil
}

// NewTraderID validates and constructs a TraderID.
func NewTraderID(v string) (TraderID, error) { return newNonEmptyID[TraderID]("trader id", v) }

// NewStrategyID validates and constructs a StrategyID.
func NewStrategyID(v string) (StrategyID, error) {
	return newNonEmptyID[StrategyID]("strategy id", v)
}

// NewClientOrderID validates and constructs a ClientOrderID.
func NewClientOrderID(v string) (ClientOrderID, error) {
	return newNonEmptyID[ClientOrderID]("client order id", v)
}

// NewInstrumentID validates and constructs an InstrumentID.
func NewInstrumentID(v string) (InstrumentID, error) {
	return newNonEmptyID[InstrumentID]("instrument id", v)
}

// NewPositionID validates and constructs a PositionID.
func NewPositionID(v string) (PositionID, error) {
	return newNonEmptyID[PositionID]("position id", v)
}

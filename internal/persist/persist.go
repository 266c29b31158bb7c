// Package persist defines the cache-persistence adapter contract shared by
// every concrete backend (Redis-style, SQL-style). The cache itself only
// depends on the narrower cache.MirrorAdapter subset; the full Adapter here
// is what cmd/coreruntime wires up and what drives cold-start LoadAll.
package persist

import (
	"coreruntime/internal/cache"
	"coreruntime/internal/core"
	"coreruntime/internal/position"
)

// CacheSnapshot is the full cold-start load: every entity an adapter has
// durably stored, keyed the way the in-memory cache wants to ingest it.
type CacheSnapshot struct {
	Currencies  []core.Currency
	Instruments []core.Instrument
	Synthetics  []cache.Synthetic
	Accounts    []cache.Account
	Orders      []cache.Order
	Positions   []*position.Position
}

// Adapter is the full persistence-adapter capability set (§6.1). Market
// data Add* operations MAY return core.ErrUnsupported on backends that only
// hold entity state. Every write is idempotent: re-issuing the same add for
// the same primary key is a no-op.
type Adapter interface {
	Close() error
	Flush() error
	LoadAll() (*CacheSnapshot, error)

	LoadCurrency(core.Currency) (core.Currency, error)
	LoadInstrument(core.InstrumentID) (core.Instrument, error)
	LoadSynthetic(core.InstrumentID) (cache.Synthetic, error)
	LoadAccount(core.AccountID) (cache.Account, error)
	LoadOrder(core.ClientOrderID) (cache.Order, error)
	LoadPosition(core.PositionID) (*position.Position, error)

	AddCurrency(core.Currency) error
	AddInstrument(core.Instrument) error
	AddSynthetic(cache.Synthetic) error
	AddAccount(cache.Account) error
	AddOrder(cache.Order) error
	AddPosition(*position.Position) error

	UpdateOrder(cache.Order) error
	UpdatePosition(*position.Position) error
	UpdateAccount(cache.Account) error

	DeleteOrder(core.ClientOrderID) error
	DeletePosition(core.PositionID) error
	DeleteAccountEvent(core.AccountID, string) error

	AddOrderBook(cache.OrderBookSnapshot) error
	AddQuote(cache.QuoteTick) error
	AddTrade(cache.TradeTick) error
	AddBar(cache.Bar) error
	AddSignal(name string, value any, ts core.UnixNanos) error
	AddCustomData(dataType string, payload []byte, ts core.UnixNanos) error

	SnapshotOrderState(cache.Order) error
	SnapshotPositionState(*position.Position) error

	Heartbeat(instanceID string, ts core.UnixNanos) error
	IndexVenueOrderID(venueOrderID core.VenueOrderID, clientOrderID core.ClientOrderID) error
	IndexOrderPosition(clientOrderID core.ClientOrderID, positionID core.PositionID) error
}

var _ Adapter = (*nopAdapter)(nil)

// nopAdapter satisfies Adapter with every write a no-op, every single-entity
// load an ErrNotFound and LoadAll an empty snapshot; useful as a default
// when no durable backend is configured.
type nopAdapter struct{}

// NewNop returns an Adapter that persists nothing. Used when the trader
// config omits a persistence backend entirely.
func NewNop() Adapter { return nopAdapter{} }

func (nopAdapter) Close() error { return nil }
func (nopAdapter) Flush() error { return nil }
func (nopAdapter) LoadAll() (*CacheSnapshot, error) { return &CacheSnapshot{}, nil }

func (nopAdapter) LoadCurrency(core.Currency) (core.Currency, error) { return "", core.ErrNotFound }
func (nopAdapter) LoadInstrument(core.InstrumentID) (core.Instrument, error) {
	return core.Instrument{}, core.ErrNotFound
}
func (nopAdapter) LoadSynthetic(core.InstrumentID) (cache.Synthetic, error) {
	return cache.Synthetic{}, core.ErrNotFound
}
func (nopAdapter) LoadAccount(core.AccountID) (cache.Account, error) {
	return cache.Account{}, core.ErrNotFound
}
func (nopAdapter) LoadOrder(core.ClientOrderID) (cache.Order, error) {
	return cache.Order{}, core.ErrNotFound
}
func (nopAdapter) LoadPosition(core.PositionID) (*position.Position, error) {
	return nil, core.ErrNotFound
}

func (nopAdapter) AddCurrency(core.Currency) error     { return nil }
func (nopAdapter) AddInstrument(core.Instrument) error { return nil }
func (nopAdapter) AddSynthetic(cache.Synthetic) error  { return nil }
func (nopAdapter) AddAccount(cache.Account) error      { return nil }
func (nopAdapter) AddOrder(cache.Order) error          { return nil }
func (nopAdapter) AddPosition(*position.Position) error { return nil }

func (nopAdapter) UpdateOrder(cache.Order) error        { return nil }
func (nopAdapter) UpdatePosition(*position.Position) error { return nil }
func (nopAdapter) UpdateAccount(cache.Account) error    { return nil }

func (nopAdapter) DeleteOrder(core.ClientOrderID) error          { return nil }
func (nopAdapter) DeletePosition(core.PositionID) error          { return nil }
func (nopAdapter) DeleteAccountEvent(core.AccountID, string) error { return nil }

func (nopAdapter) AddOrderBook(cache.OrderBookSnapshot) error { return nil }
func (nopAdapter) AddQuote(cache.QuoteTick) error             { return nil }
func (nopAdapter) AddTrade(cache.TradeTick) error             { return nil }
func (nopAdapter) AddBar(cache.Bar) error                     { return nil }
func (nopAdapter) AddSignal(string, any, core.UnixNanos) error        { return nil }
func (nopAdapter) AddCustomData(string, []byte, core.UnixNanos) error { return nil }

func (nopAdapter) SnapshotOrderState(cache.Order) error            { return nil }
func (nopAdapter) SnapshotPositionState(*position.Position) error { return nil }

func (nopAdapter) Heartbeat(string, core.UnixNanos) error { return nil }
func (nopAdapter) IndexVenueOrderID(core.VenueOrderID, core.ClientOrderID) error { return nil }
func (nopAdapter) IndexOrderPosition(core.ClientOrderID, core.PositionID) error  { return nil }

package actor

import (
	"coreruntime/internal/cache"
	"coreruntime/internal/core"
)

// Handlers is the set of user-overridable hooks the actor dispatches
// incoming data and historical responses to. Embed DefaultHandlers in a
// concrete strategy type and override only the hooks it cares about; every
// hook defaults to a no-op.
type Handlers interface {
	OnData(data any) error
	OnInstrument(inst core.Instrument) error
	OnOrderBookDeltas(book cache.OrderBookSnapshot) error
	OnOrderBook(book cache.OrderBookSnapshot) error
	OnQuoteTick(q cache.QuoteTick) error
	OnTradeTick(t cache.TradeTick) error
	OnBar(b cache.Bar) error
	OnMarkPriceUpdate(id core.InstrumentID, price core.Price) error
	OnIndexPriceUpdate(id core.InstrumentID, price core.Price) error
	OnFundingRateUpdate(id core.InstrumentID, rate float64) error
	OnInstrumentStatus(id core.InstrumentID, status string) error
	OnInstrumentClose(id core.InstrumentID) error
	OnOrderFilled(fill OrderFillEvent) error
	OnHistoricalData(data any) error
	OnHistoricalInstruments(insts []core.Instrument) error
	OnHistoricalBars(bars []cache.Bar) error
	OnHistoricalQuoteTicks(ticks []cache.QuoteTick) error
	OnHistoricalTradeTicks(ticks []cache.TradeTick) error
	OnTimeEvent(name string, ts core.UnixNanos) error
}

// OrderFillEvent is the typed payload dispatched to OnOrderFilled.
type OrderFillEvent struct {
	StrategyID    core.StrategyID
	InstrumentID  core.InstrumentID
	ClientOrderID core.ClientOrderID
	TradeID       string
}

// DefaultHandlers implements Handlers with a no-op for every hook. Embed it
// in a concrete type and override selectively.
type DefaultHandlers struct{}

func (DefaultHandlers) OnData(any) error                                  { return nil }
func (DefaultHandlers) OnInstrument(core.Instrument) error                { return nil }
func (DefaultHandlers) OnOrderBookDeltas(cache.OrderBookSnapshot) error    { return nil }
func (DefaultHandlers) OnOrderBook(cache.OrderBookSnapshot) error         { return nil }
func (DefaultHandlers) OnQuoteTick(cache.QuoteTick) error                  { return nil }
func (DefaultHandlers) OnTradeTick(cache.TradeTick) error                  { return nil }
func (DefaultHandlers) OnBar(cache.Bar) error                              { return nil }
func (DefaultHandlers) OnMarkPriceUpdate(core.InstrumentID, core.Price) error  { return nil }
func (DefaultHandlers) OnIndexPriceUpdate(core.InstrumentID, core.Price) error { return nil }
func (DefaultHandlers) OnFundingRateUpdate(core.InstrumentID, float64) error   { return nil }
func (DefaultHandlers) OnInstrumentStatus(core.InstrumentID, string) error     { return nil }
func (DefaultHandlers) OnInstrumentClose(core.InstrumentID) error              { return nil }
func (DefaultHandlers) OnOrderFilled(OrderFillEvent) error                     { return nil }
func (DefaultHandlers) OnHistoricalData(any) error                             { return nil }
func (DefaultHandlers) OnHistoricalInstruments([]core.Instrument) error        { return nil }
func (DefaultHandlers) OnHistoricalBars([]cache.Bar) error                     { return nil }
func (DefaultHandlers) OnHistoricalQuoteTicks([]cache.QuoteTick) error         { return nil }
func (DefaultHandlers) OnHistoricalTradeTicks([]cache.TradeTick) error         { return nil }
func (DefaultHandlers) OnTimeEvent(string, core.UnixNanos) error               { return nil }

var _ Handlers = DefaultHandlers{}

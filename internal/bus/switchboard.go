package bus

import (
	"fmt"

	"coreruntime/internal/core"
)

// Switchboard derives deterministic bus topic names from structured entity
// ids. It has no mutable state: every method is a pure string-formatting
// function, kept on a type only so it can be swapped in tests.
type Switchboard struct{}

// NewSwitchboard constructs a Switchboard.
func NewSwitchboard() *Switchboard { return &Switchboard{} }

// QuotesTopic returns the topic for top-of-book quotes on an instrument.
func (Switchboard) QuotesTopic(id core.InstrumentID) string {
	return fmt.Sprintf("data.quotes.%s", id)
}

// TradesTopic returns the topic for executed trades on an instrument.
func (Switchboard) TradesTopic(id core.InstrumentID) string {
	return fmt.Sprintf("data.trades.%s", id)
}

// BarsTopic returns the topic for bars of a given bar type.
func (Switchboard) BarsTopic(bt core.BarType) string {
	return fmt.Sprintf("data.bars.%s", bt)
}

// BookDeltasTopic returns the topic for order-book delta updates.
func (Switchboard) BookDeltasTopic(id core.InstrumentID) string {
	return fmt.Sprintf("data.book.deltas.%s", id)
}

// BookSnapshotsTopic returns the topic for interval order-book snapshots.
func (Switchboard) BookSnapshotsTopic(id core.InstrumentID) string {
	return fmt.Sprintf("data.book.snapshots.%s", id)
}

// InstrumentsTopic returns the topic for instrument definitions published
// by a venue.
func (Switchboard) InstrumentsTopic(venue core.Venue) string {
	return fmt.Sprintf("data.instruments.%s", venue)
}

// InstrumentStatusTopic returns the topic for instrument trading-status
// changes.
func (Switchboard) InstrumentStatusTopic(id core.InstrumentID) string {
	return fmt.Sprintf("data.instrument.status.%s", id)
}

// InstrumentCloseTopic returns the topic for instrument close events
// (expiry, delisting).
func (Switchboard) InstrumentCloseTopic(id core.InstrumentID) string {
	return fmt.Sprintf("data.instrument.close.%s", id)
}

// MarkPricesTopic returns the topic for mark-price updates.
func (Switchboard) MarkPricesTopic(id core.InstrumentID) string {
	return fmt.Sprintf("data.mark_prices.%s", id)
}

// IndexPricesTopic returns the topic for index-price updates.
func (Switchboard) IndexPricesTopic(id core.InstrumentID) string {
	return fmt.Sprintf("data.index_prices.%s", id)
}

// FundingRatesTopic returns the topic for funding-rate updates.
func (Switchboard) FundingRatesTopic(id core.InstrumentID) string {
	return fmt.Sprintf("data.funding_rates.%s", id)
}

// OrderFillsTopic returns the topic for fill events on an instrument.
func (Switchboard) OrderFillsTopic(id core.InstrumentID) string {
	return fmt.Sprintf("events.order.fills.%s", id)
}

// OrderRejectsTopic returns the topic for order submit/cancel/amend
// rejection events on an instrument.
func (Switchboard) OrderRejectsTopic(id core.InstrumentID) string {
	return fmt.Sprintf("events.order.rejects.%s", id)
}

// CustomDataTopic returns the topic for a custom data-type name, for
// client-less pure-topic subscriptions.
func (Switchboard) CustomDataTopic(dataType string) string {
	return fmt.Sprintf("data.custom.%s", dataType)
}

// DeFi extension topics: block/pool/swap/liquidity/fee-collect/flash
// events, keyed by chain and (where applicable) pool address.

// BlockTopic returns the topic for new blocks on a chain.
func (Switchboard) BlockTopic(chain string) string { return fmt.Sprintf("defi.block.%s", chain) }

// PoolTopic returns the topic for pool state changes.
func (Switchboard) PoolTopic(chain, pool string) string {
	return fmt.Sprintf("defi.pool.%s.%s", chain, pool)
}

// PoolSwapTopic returns the topic for swap events on a pool.
func (Switchboard) PoolSwapTopic(chain, pool string) string {
	return fmt.Sprintf("defi.pool.swap.%s.%s", chain, pool)
}

// PoolLiquidityTopic returns the topic for liquidity-change events on a pool.
func (Switchboard) PoolLiquidityTopic(chain, pool string) string {
	return fmt.Sprintf("defi.pool.liquidity.%s.%s", chain, pool)
}

// PoolFeeCollectTopic returns the topic for fee-collection events on a pool.
func (Switchboard) PoolFeeCollectTopic(chain, pool string) string {
	return fmt.Sprintf("defi.pool.fee_collect.%s.%s", chain, pool)
}

// PoolFlashTopic returns the topic for flash-loan events on a pool.
func (Switchboard) PoolFlashTopic(chain, pool string) string {
	return fmt.Sprintf("defi.pool.flash.%s.%s", chain, pool)
}

// SystemShutdownEndpoint is the fixed endpoint the actor sends
// ShutdownSystem commands through.
const SystemShutdownEndpoint = "command.system.shutdown"

package actor

import (
	"coreruntime/internal/cache"
	"coreruntime/internal/core"
)

// subscribeTopic is the shared subscribe_* implementation: checks
// registration, registers a handler that dispatches to hook, and sends a
// SubscribeCommand for upstream adapter fan-out. Duplicate subscribe to an
// already-subscribed topic is a logged warning and no-op.
func (a *DataActor) subscribeTopic(topic string, instrumentID core.InstrumentID, handler func(any)) error {
	if err := a.checkRegistered(); err != nil {
		return err
	}
	a.mu.Lock()
	if a.subscribed[topic] {
		a.mu.Unlock()
		a.logger.Warn("duplicate subscribe, ignoring", "topic", topic)
		return nil
	}
	a.subscribed[topic] = true
	a.mu.Unlock()

	a.bus.Subscribe(topic, handler)
	a.bus.Send(DataEngineEndpoint, SubscribeCommand{Topic: topic, InstrumentID: instrumentID})
	return nil
}

// unsubscribeTopic is the shared unsubscribe_* implementation. Unsubscribe
// when not subscribed is a logged warning and no-op.
func (a *DataActor) unsubscribeTopic(topic string, instrumentID core.InstrumentID) error {
	if err := a.checkRegistered(); err != nil {
		return err
	}
	a.mu.Lock()
	if !a.subscribed[topic] {
		a.mu.Unlock()
		a.logger.Warn("unsubscribe when not subscribed, ignoring", "topic", topic)
		return nil
	}
	delete(a.subscribed, topic)
	a.mu.Unlock()

	a.bus.UnsubscribeAll(topic)
	a.bus.Send(DataEngineEndpoint, UnsubscribeCommand{Topic: topic, InstrumentID: instrumentID})
	return nil
}

// SubscribeQuoteTicks subscribes to top-of-book quotes for an instrument.
func (a *DataActor) SubscribeQuoteTicks(id core.InstrumentID) error {
	return a.subscribeTopic(a.sb.QuotesTopic(id), id, func(msg any) {
		q, ok := msg.(cache.QuoteTick)
		if !ok {
			return
		}
		a.dispatch("quote_tick", false, func() error { return a.handlers.OnQuoteTick(q) })
	})
}

// UnsubscribeQuoteTicks unsubscribes from quotes for an instrument.
func (a *DataActor) UnsubscribeQuoteTicks(id core.InstrumentID) error {
	return a.unsubscribeTopic(a.sb.QuotesTopic(id), id)
}

// SubscribeTradeTicks subscribes to executed trades for an instrument.
func (a *DataActor) SubscribeTradeTicks(id core.InstrumentID) error {
	return a.subscribeTopic(a.sb.TradesTopic(id), id, func(msg any) {
		tr, ok := msg.(cache.TradeTick)
		if !ok {
			return
		}
		a.dispatch("trade_tick", false, func() error { return a.handlers.OnTradeTick(tr) })
	})
}

// UnsubscribeTradeTicks unsubscribes from trades for an instrument.
func (a *DataActor) UnsubscribeTradeTicks(id core.InstrumentID) error {
	return a.unsubscribeTopic(a.sb.TradesTopic(id), id)
}

// SubscribeBars subscribes to bars of a given bar type.
func (a *DataActor) SubscribeBars(bt core.BarType, id core.InstrumentID) error {
	return a.subscribeTopic(a.sb.BarsTopic(bt), id, func(msg any) {
		b, ok := msg.(cache.Bar)
		if !ok {
			return
		}
		a.dispatch("bar", false, func() error { return a.handlers.OnBar(b) })
	})
}

// UnsubscribeBars unsubscribes from bars of a given bar type.
func (a *DataActor) UnsubscribeBars(bt core.BarType, id core.InstrumentID) error {
	return a.unsubscribeTopic(a.sb.BarsTopic(bt), id)
}

// SubscribeInstrument subscribes to definition updates for one instrument.
func (a *DataActor) SubscribeInstrument(id core.InstrumentID) error {
	return a.subscribeTopic(a.sb.InstrumentsTopic(core.Venue(id)), id, func(msg any) {
		inst, ok := msg.(core.Instrument)
		if !ok {
			return
		}
		a.dispatch("instrument", false, func() error { return a.handlers.OnInstrument(inst) })
	})
}

// UnsubscribeInstrument unsubscribes from definition updates for one
// instrument.
func (a *DataActor) UnsubscribeInstrument(id core.InstrumentID) error {
	return a.unsubscribeTopic(a.sb.InstrumentsTopic(core.Venue(id)), id)
}

// SubscribeInstruments subscribes to every instrument definition update
// published by venue.
func (a *DataActor) SubscribeInstruments(venue core.Venue) error {
	return a.subscribeTopic(a.sb.InstrumentsTopic(venue), "", func(msg any) {
		inst, ok := msg.(core.Instrument)
		if !ok {
			return
		}
		a.dispatch("instruments", false, func() error { return a.handlers.OnInstrument(inst) })
	})
}

// UnsubscribeInstruments unsubscribes from a venue's instrument definition
// updates.
func (a *DataActor) UnsubscribeInstruments(venue core.Venue) error {
	return a.unsubscribeTopic(a.sb.InstrumentsTopic(venue), "")
}

// SubscribeOrderBookDeltas subscribes to incremental order-book updates.
func (a *DataActor) SubscribeOrderBookDeltas(id core.InstrumentID) error {
	return a.subscribeTopic(a.sb.BookDeltasTopic(id), id, func(msg any) {
		b, ok := msg.(cache.OrderBookSnapshot)
		if !ok {
			return
		}
		a.dispatch("book_deltas", false, func() error { return a.handlers.OnOrderBookDeltas(b) })
	})
}

// UnsubscribeOrderBookDeltas unsubscribes from incremental order-book
// updates.
func (a *DataActor) UnsubscribeOrderBookDeltas(id core.InstrumentID) error {
	return a.unsubscribeTopic(a.sb.BookDeltasTopic(id), id)
}

// SubscribeOrderBookAtInterval subscribes to periodic full order-book
// snapshots. The interval itself is an adapter concern; this call only
// establishes the subscription.
func (a *DataActor) SubscribeOrderBookAtInterval(id core.InstrumentID) error {
	return a.subscribeTopic(a.sb.BookSnapshotsTopic(id), id, func(msg any) {
		b, ok := msg.(cache.OrderBookSnapshot)
		if !ok {
			return
		}
		a.dispatch("book_snapshot", false, func() error { return a.handlers.OnOrderBook(b) })
	})
}

// UnsubscribeOrderBookAtInterval unsubscribes from periodic order-book
// snapshots.
func (a *DataActor) UnsubscribeOrderBookAtInterval(id core.InstrumentID) error {
	return a.unsubscribeTopic(a.sb.BookSnapshotsTopic(id), id)
}

// SubscribeMarkPrices subscribes to mark-price updates.
func (a *DataActor) SubscribeMarkPrices(id core.InstrumentID) error {
	return a.subscribeTopic(a.sb.MarkPricesTopic(id), id, func(msg any) {
		p, ok := msg.(core.Price)
		if !ok {
			return
		}
		a.dispatch("mark_price", false, func() error { return a.handlers.OnMarkPriceUpdate(id, p) })
	})
}

// UnsubscribeMarkPrices unsubscribes from mark-price updates.
func (a *DataActor) UnsubscribeMarkPrices(id core.InstrumentID) error {
	return a.unsubscribeTopic(a.sb.MarkPricesTopic(id), id)
}

// SubscribeIndexPrices subscribes to index-price updates.
func (a *DataActor) SubscribeIndexPrices(id core.InstrumentID) error {
	return a.subscribeTopic(a.sb.IndexPricesTopic(id), id, func(msg any) {
		p, ok := msg.(core.Price)
		if !ok {
			return
		}
		a.dispatch("index_price", false, func() error { return a.handlers.OnIndexPriceUpdate(id, p) })
	})
}

// UnsubscribeIndexPrices unsubscribes from index-price updates.
func (a *DataActor) UnsubscribeIndexPrices(id core.InstrumentID) error {
	return a.unsubscribeTopic(a.sb.IndexPricesTopic(id), id)
}

// SubscribeFundingRates subscribes to funding-rate updates.
func (a *DataActor) SubscribeFundingRates(id core.InstrumentID) error {
	return a.subscribeTopic(a.sb.FundingRatesTopic(id), id, func(msg any) {
		r, ok := msg.(float64)
		if !ok {
			return
		}
		a.dispatch("funding_rate", false, func() error { return a.handlers.OnFundingRateUpdate(id, r) })
	})
}

// UnsubscribeFundingRates unsubscribes from funding-rate updates.
func (a *DataActor) UnsubscribeFundingRates(id core.InstrumentID) error {
	return a.unsubscribeTopic(a.sb.FundingRatesTopic(id), id)
}

// SubscribeInstrumentStatus subscribes to trading-status changes.
func (a *DataActor) SubscribeInstrumentStatus(id core.InstrumentID) error {
	return a.subscribeTopic(a.sb.InstrumentStatusTopic(id), id, func(msg any) {
		s, ok := msg.(string)
		if !ok {
			return
		}
		a.dispatch("instrument_status", false, func() error { return a.handlers.OnInstrumentStatus(id, s) })
	})
}

// UnsubscribeInstrumentStatus unsubscribes from trading-status changes.
func (a *DataActor) UnsubscribeInstrumentStatus(id core.InstrumentID) error {
	return a.unsubscribeTopic(a.sb.InstrumentStatusTopic(id), id)
}

// SubscribeInstrumentClose subscribes to instrument close events (expiry,
// delisting).
func (a *DataActor) SubscribeInstrumentClose(id core.InstrumentID) error {
	return a.subscribeTopic(a.sb.InstrumentCloseTopic(id), id, func(any) {
		a.dispatch("instrument_close", false, func() error { return a.handlers.OnInstrumentClose(id) })
	})
}

// UnsubscribeInstrumentClose unsubscribes from instrument close events.
func (a *DataActor) UnsubscribeInstrumentClose(id core.InstrumentID) error {
	return a.unsubscribeTopic(a.sb.InstrumentCloseTopic(id), id)
}

// SubscribeOrderFills subscribes to fill events for an instrument. Per the
// special dispatch rule, a fill whose strategy id equals this actor's own
// id is never delivered to OnOrderFilled (it was already handled via the
// strategy's own path).
func (a *DataActor) SubscribeOrderFills(id core.InstrumentID) error {
	return a.subscribeTopic(a.sb.OrderFillsTopic(id), id, func(msg any) {
		f, ok := msg.(OrderFillEvent)
		if !ok {
			return
		}
		if f.StrategyID == a.id {
			return
		}
		a.dispatch("order_filled", false, func() error { return a.handlers.OnOrderFilled(f) })
	})
}

// UnsubscribeOrderFills unsubscribes from fill events for an instrument.
func (a *DataActor) UnsubscribeOrderFills(id core.InstrumentID) error {
	return a.unsubscribeTopic(a.sb.OrderFillsTopic(id), id)
}

// SubscribeBlock subscribes to new-block events on a chain.
func (a *DataActor) SubscribeBlock(chain string) error {
	return a.subscribeTopic(a.sb.BlockTopic(chain), "", func(msg any) {
		a.dispatch("block", false, func() error { return a.handlers.OnData(msg) })
	})
}

// UnsubscribeBlock unsubscribes from new-block events on a chain.
func (a *DataActor) UnsubscribeBlock(chain string) error {
	return a.unsubscribeTopic(a.sb.BlockTopic(chain), "")
}

// SubscribePool subscribes to pool state-change events.
func (a *DataActor) SubscribePool(chain, pool string) error {
	return a.subscribeTopic(a.sb.PoolTopic(chain, pool), "", func(msg any) {
		a.dispatch("pool", false, func() error { return a.handlers.OnData(msg) })
	})
}

// UnsubscribePool unsubscribes from pool state-change events.
func (a *DataActor) UnsubscribePool(chain, pool string) error {
	return a.unsubscribeTopic(a.sb.PoolTopic(chain, pool), "")
}

// SubscribePoolSwap subscribes to swap events on a pool.
func (a *DataActor) SubscribePoolSwap(chain, pool string) error {
	return a.subscribeTopic(a.sb.PoolSwapTopic(chain, pool), "", func(msg any) {
		a.dispatch("pool_swap", false, func() error { return a.handlers.OnData(msg) })
	})
}

// UnsubscribePoolSwap unsubscribes from swap events on a pool.
func (a *DataActor) UnsubscribePoolSwap(chain, pool string) error {
	return a.unsubscribeTopic(a.sb.PoolSwapTopic(chain, pool), "")
}

// SubscribePoolLiquidity subscribes to liquidity-change events on a pool.
func (a *DataActor) SubscribePoolLiquidity(chain, pool string) error {
	return a.subscribeTopic(a.sb.PoolLiquidityTopic(chain, pool), "", func(msg any) {
		a.dispatch("pool_liquidity", false, func() error { return a.handlers.OnData(msg) })
	})
}

// UnsubscribePoolLiquidity unsubscribes from liquidity-change events on a pool.
func (a *DataActor) UnsubscribePoolLiquidity(chain, pool string) error {
	return a.unsubscribeTopic(a.sb.PoolLiquidityTopic(chain, pool), "")
}

// SubscribePoolFeeCollect subscribes to fee-collection events on a pool.
func (a *DataActor) SubscribePoolFeeCollect(chain, pool string) error {
	return a.subscribeTopic(a.sb.PoolFeeCollectTopic(chain, pool), "", func(msg any) {
		a.dispatch("pool_fee_collect", false, func() error { return a.handlers.OnData(msg) })
	})
}

// UnsubscribePoolFeeCollect unsubscribes from fee-collection events on a pool.
func (a *DataActor) UnsubscribePoolFeeCollect(chain, pool string) error {
	return a.unsubscribeTopic(a.sb.PoolFeeCollectTopic(chain, pool), "")
}

// SubscribePoolFlash subscribes to flash-loan events on a pool.
func (a *DataActor) SubscribePoolFlash(chain, pool string) error {
	return a.subscribeTopic(a.sb.PoolFlashTopic(chain, pool), "", func(msg any) {
		a.dispatch("pool_flash", false, func() error { return a.handlers.OnData(msg) })
	})
}

// UnsubscribePoolFlash unsubscribes from flash-loan events on a pool.
func (a *DataActor) UnsubscribePoolFlash(chain, pool string) error {
	return a.unsubscribeTopic(a.sb.PoolFlashTopic(chain, pool), "")
}

// SubscribeData subscribes to a custom data-type topic. Like every other
// subscribe path it requires Register first: the topic handler is installed
// on the bus supplied there, so before Register it fails with
// ErrNotRegistered. Subscribing without a registered bus is not supported.
func (a *DataActor) SubscribeData(dataType string) error {
	return a.subscribeTopic(a.sb.CustomDataTopic(dataType), "", func(msg any) {
		a.dispatch("data", false, func() error { return a.handlers.OnData(msg) })
	})
}

// UnsubscribeData unsubscribes from a custom data-type topic.
func (a *DataActor) UnsubscribeData(dataType string) error {
	return a.unsubscribeTopic(a.sb.CustomDataTopic(dataType), "")
}

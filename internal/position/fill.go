// Package position implements the Position aggregate: it applies a
// chronological stream of fill events and maintains signed quantity,
// volume-weighted open/close prices, realized PnL, commissions by
// currency, and lifecycle timestamps.
package position

import "coreruntime/internal/core"

// Fill is one execution event against an order, the sole input to the
// Position aggregate.
type Fill struct {
	TraderID      core.TraderID
	StrategyID    core.StrategyID
	InstrumentID  core.InstrumentID
	ClientOrderID core.ClientOrderID
	VenueOrderID  core.VenueOrderID
	PositionID    core.PositionID
	TradeID       string
	Side          core.OrderSide // must be Buy or Sell
	LastQty       float64
	LastPx        float64
	Commission    *core.Money
	TsEvent       core.UnixNanos
	TsInit        core.UnixNanos
}

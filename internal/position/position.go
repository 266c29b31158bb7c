package position

import (
	"fmt"
	"math"

	"coreruntime/internal/core"
)

// Position accumulates fills for one instrument into a signed-quantity
// aggregate with volume-weighted open/close prices and realized PnL. A
// Position is created from a first fill and mutated thereafter only by
// further fills or PurgeEventsForOrder.
type Position struct {
	ID           core.PositionID
	TraderID     core.TraderID
	StrategyID   core.StrategyID
	InstrumentID core.InstrumentID
	AccountID    core.AccountID

	instrument core.Instrument

	OpeningOrderID core.ClientOrderID
	ClosingOrderID *core.ClientOrderID
	EntrySide      core.OrderSide
	Side           core.PositionSide

	SignedQty float64
	PeakQty   float64

	TsOpened   core.UnixNanos
	TsLast     core.UnixNanos
	TsClosed   *core.UnixNanos
	DurationNs int64

	AvgPxOpen      float64
	AvgPxClose     *float64
	RealizedReturn float64
	RealizedPnl    *core.Money

	Commissions map[core.Currency]core.Money

	BuyQty  float64
	SellQty float64

	events  []Fill
	tradeID map[string]struct{}
}

// New creates a Position from an instrument descriptor and a first fill.
// The fill's instrument id must match and its side must be Buy or Sell.
func New(instrument core.Instrument, first Fill) (*Position, error) {
	if first.InstrumentID != instrument.ID {
		return nil, fmt.Errorf("fill instrument %q != position instrument %q: %w",
			first.InstrumentID, instrument.ID, core.ErrInvalidInput)
	}
	if first.Side != core.OrderSideBuy && first.Side != core.OrderSideSell {
		return nil, fmt.Errorf("fill side must be buy or sell: %w", core.ErrInvalidInput)
	}
	p := &Position{
		TraderID:     first.TraderID,
		StrategyID:   first.StrategyID,
		InstrumentID: instrument.ID,
		instrument:   instrument,
		EntrySide:    first.Side,
		Side:         core.PositionSideFlat,
		Commissions:  make(map[core.Currency]core.Money),
		tradeID:      make(map[string]struct{}),
	}
	if err := p.Apply(first); err != nil {
		return nil, err
	}
	return p, nil
}

// IsOpen reports whether the position currently holds nonzero quantity.
func (p *Position) IsOpen() bool { return p.Side != core.PositionSideFlat }

// IsClosed reports whether the position is flat. The empty-shell state
// (all fills purged) also reports IsClosed() == true.
func (p *Position) IsClosed() bool { return p.Side == core.PositionSideFlat }

// Quantity returns the absolute size of the position.
func (p *Position) Quantity() core.Quantity {
	return instrumentQty(p.instrument, math.Abs(p.SignedQty))
}

// TradeIDs returns the ordered list of trade ids applied to this position.
func (p *Position) TradeIDs() []string {
	ids := make([]string, 0, len(p.events))
	for _, e := range p.events {
		ids = append(ids, e.TradeID)
	}
	return ids
}

// ClientOrderIDs returns the distinct client order ids that have
// contributed fills to this position.
func (p *Position) ClientOrderIDs() []core.ClientOrderID {
	seen := make(map[core.ClientOrderID]struct{})
	var out []core.ClientOrderID
	for _, e := range p.events {
		if _, ok := seen[e.ClientOrderID]; ok {
			continue
		}
		seen[e.ClientOrderID] = struct{}{}
		out = append(out, e.ClientOrderID)
	}
	return out
}

// Apply updates the position's state with a new fill. Applying a fill to
// a Flat position (including a fresh or fully-purged one) re-opens it.
func (p *Position) Apply(f Fill) error {
	if f.Side != core.OrderSideBuy && f.Side != core.OrderSideSell {
		return fmt.Errorf("fill side must be buy or sell: %w", core.ErrInvalidInput)
	}
	if _, ok := p.tradeID[f.TradeID]; ok {
		return fmt.Errorf("trade id %q already applied: %w", f.TradeID, core.ErrDuplicateTradeID)
	}
	if len(p.events) > 0 && f.TsEvent < p.TsOpened {
		return fmt.Errorf("fill ts_event %d < position ts_opened %d: %w",
			f.TsEvent, p.TsOpened, core.ErrStaleFill)
	}

	if p.Side == core.PositionSideFlat {
		p.resetForReopen(f)
	}

	p.events = append(p.events, f)
	p.tradeID[f.TradeID] = struct{}{}

	if f.Commission != nil {
		ccy := f.Commission.Currency()
		prior := p.accumulatedCommission(ccy, f.Commission.Precision())
		p.Commissions[ccy] = prior.Add(*f.Commission)
		if ccy == p.instrument.SettlementCurrency {
			p.realizedPnlAdd(-f.Commission.AsFloat64())
		}
	}

	preSignedQty := p.SignedQty
	var err error
	switch f.Side {
	case core.OrderSideBuy:
		err = p.handleBuy(f, preSignedQty)
	case core.OrderSideSell:
		err = p.handleSell(f, preSignedQty)
	}
	if err != nil {
		return err
	}

	p.PeakQty = math.Max(p.PeakQty, math.Abs(p.SignedQty))

	switch {
	case p.SignedQty > 0:
		p.Side = core.PositionSideLong
		p.EntrySide = core.OrderSideBuy
	case p.SignedQty < 0:
		p.Side = core.PositionSideShort
		p.EntrySide = core.OrderSideSell
	default:
		p.Side = core.PositionSideFlat
	}

	if p.Side == core.PositionSideFlat {
		closingID := f.ClientOrderID
		p.ClosingOrderID = &closingID
		ts := f.TsEvent
		p.TsClosed = &ts
		p.DurationNs = f.TsEvent.Sub(p.TsOpened)
	}

	p.TsLast = f.TsEvent
	return nil
}

func (p *Position) resetForReopen(f Fill) {
	p.events = nil
	p.tradeID = make(map[string]struct{})
	p.BuyQty = 0
	p.SellQty = 0
	p.Commissions = make(map[core.Currency]core.Money)
	p.ClosingOrderID = nil
	p.PeakQty = 0
	p.TsClosed = nil
	p.DurationNs = 0
	p.AvgPxClose = nil
	p.RealizedReturn = 0
	p.RealizedPnl = nil

	p.OpeningOrderID = f.ClientOrderID
	p.EntrySide = f.Side
	p.TsOpened = f.TsEvent
	p.AvgPxOpen = f.LastPx
	p.SignedQty = 0
}

func (p *Position) accumulatedCommission(ccy core.Currency, precision uint8) core.Money {
	if m, ok := p.Commissions[ccy]; ok {
		return m
	}
	return core.NewMoney(0, ccy, precision)
}

func (p *Position) realizedPnlAdd(delta float64) {
	ccy := p.instrument.SettlementCurrency
	if p.RealizedPnl == nil {
		p.RealizedPnl = new(core.Money)
		*p.RealizedPnl = core.NewMoney(0, ccy, 2)
	}
	updated := core.NewMoney(p.RealizedPnl.AsFloat64()+delta, ccy, 2)
	p.RealizedPnl = &updated
}

// handleBuy applies a buy fill. preSignedQty is the signed quantity before
// this fill is incorporated.
func (p *Position) handleBuy(f Fill, preSignedQty float64) error {
	if preSignedQty >= 0 {
		avg, err := calculateAvgPx(preSignedQty, p.AvgPxOpen, f.LastQty, f.LastPx)
		if err != nil {
			return err
		}
		p.AvgPxOpen = avg
	} else {
		avgClose, err := calculateAvgPx(p.BuyQty, avgPxCloseOrZero(p.AvgPxClose), f.LastQty, f.LastPx)
		if err != nil {
			return err
		}
		p.AvgPxClose = &avgClose

		closedQty := math.Min(f.LastQty, math.Abs(preSignedQty))
		pnl, err := calculatePnlRaw(p.instrument, p.EntrySide, p.AvgPxOpen, f.LastPx, closedQty)
		if err != nil {
			return err
		}
		p.realizedPnlAdd(pnl)

		points, err := calculatePoints(p.instrument, p.EntrySide, p.AvgPxOpen, avgClose)
		if err != nil {
			return err
		}
		p.RealizedReturn = points / p.AvgPxOpen
	}
	p.SignedQty += f.LastQty
	p.BuyQty += f.LastQty
	return nil
}

// handleSell mirrors handleBuy.
func (p *Position) handleSell(f Fill, preSignedQty float64) error {
	if preSignedQty <= 0 {
		avg, err := calculateAvgPx(-preSignedQty, p.AvgPxOpen, f.LastQty, f.LastPx)
		if err != nil {
			return err
		}
		p.AvgPxOpen = avg
	} else {
		avgClose, err := calculateAvgPx(p.SellQty, avgPxCloseOrZero(p.AvgPxClose), f.LastQty, f.LastPx)
		if err != nil {
			return err
		}
		p.AvgPxClose = &avgClose

		closedQty := math.Min(f.LastQty, math.Abs(preSignedQty))
		pnl, err := calculatePnlRaw(p.instrument, p.EntrySide, p.AvgPxOpen, f.LastPx, closedQty)
		if err != nil {
			return err
		}
		p.realizedPnlAdd(pnl)

		points, err := calculatePoints(p.instrument, p.EntrySide, p.AvgPxOpen, avgClose)
		if err != nil {
			return err
		}
		p.RealizedReturn = points / p.AvgPxOpen
	}
	p.SignedQty -= f.LastQty
	p.SellQty += f.LastQty
	return nil
}

func avgPxCloseOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// PurgeEventsForOrder removes every fill originating from clientOrderID and
// recomputes the position from the remaining chronological sequence. If no
// fills remain, the position becomes an empty shell (see becomeEmptyShell).
func (p *Position) PurgeEventsForOrder(clientOrderID core.ClientOrderID) error {
	remaining := make([]Fill, 0, len(p.events))
	for _, e := range p.events {
		if e.ClientOrderID != clientOrderID {
			remaining = append(remaining, e)
		}
	}

	instrument := p.instrument
	accountID := p.AccountID
	positionID := p.ID
	traderID := p.TraderID
	strategyID := p.StrategyID

	*p = Position{
		ID:           positionID,
		TraderID:     traderID,
		StrategyID:   strategyID,
		InstrumentID: instrument.ID,
		AccountID:    accountID,
		instrument:   instrument,
		Side:         core.PositionSideFlat,
		Commissions:  make(map[core.Currency]core.Money),
		tradeID:      make(map[string]struct{}),
	}

	if len(remaining) == 0 {
		p.becomeEmptyShell()
		return nil
	}

	first := remaining[0]
	p.TraderID = first.TraderID
	p.StrategyID = first.StrategyID
	reconstructed, err := New(instrument, first)
	if err != nil {
		return err
	}
	reconstructed.ID = positionID
	reconstructed.AccountID = accountID
	for _, f := range remaining[1:] {
		if err := reconstructed.Apply(f); err != nil {
			return err
		}
	}
	*p = *reconstructed
	return nil
}

// becomeEmptyShell sets the post-total-purge state described in the
// package's design notes: closed, all quantities zero, ts_closed present
// but zero. This is deliberately distinct from "never closed" (nil
// ts_closed) and is preserved exactly as specified rather than normalized
// away.
func (p *Position) becomeEmptyShell() {
	var zero core.UnixNanos
	p.TsOpened = 0
	p.TsLast = 0
	p.TsClosed = &zero
	p.DurationNs = 0
	p.Side = core.PositionSideFlat
	p.SignedQty = 0
	p.PeakQty = 0
	p.AvgPxOpen = 0
	p.AvgPxClose = nil
	p.RealizedReturn = 0
	p.RealizedPnl = nil
	p.Commissions = make(map[core.Currency]core.Money)
	p.BuyQty = 0
	p.SellQty = 0
	p.events = nil
	p.tradeID = make(map[string]struct{})
}

// UnrealizedPnl returns the mark-to-market PnL at lastPrice. Zero when
// Flat.
func (p *Position) UnrealizedPnl(lastPrice float64) (core.Money, error) {
	ccy := p.instrument.SettlementCurrency
	if p.Side == core.PositionSideFlat {
		return core.NewMoney(0, ccy, 2), nil
	}
	pnl, err := calculatePnlRaw(p.instrument, p.EntrySide, p.AvgPxOpen, lastPrice, math.Abs(p.SignedQty))
	if err != nil {
		return core.Money{}, err
	}
	return core.NewMoney(pnl, ccy, 2), nil
}

// TotalPnl returns realized plus unrealized PnL at lastPrice.
func (p *Position) TotalPnl(lastPrice float64) (core.Money, error) {
	ccy := p.instrument.SettlementCurrency
	realized := 0.0
	if p.RealizedPnl != nil {
		realized = p.RealizedPnl.AsFloat64()
	}
	unrealized, err := p.UnrealizedPnl(lastPrice)
	if err != nil {
		return core.Money{}, err
	}
	return core.NewMoney(realized+unrealized.AsFloat64(), ccy, 2), nil
}

// CommissionsList returns one Money per currency in which commission has
// accumulated, in no particular order.
func (p *Position) CommissionsList() []core.Money {
	out := make([]core.Money, 0, len(p.Commissions))
	for _, m := range p.Commissions {
		out = append(out, m)
	}
	return out
}

// NotionalValue returns the notional value of the position at lastPrice,
// inverse-aware.
func (p *Position) NotionalValue(lastPrice float64) core.Money {
	qty := math.Abs(p.SignedQty)
	ccy := p.instrument.QuoteCurrency
	if p.instrument.IsInverse {
		ccy = p.instrument.BaseCurrency
		if lastPrice == 0 {
			return core.NewMoney(0, ccy, 2)
		}
		return core.NewMoney(qty*p.instrument.Multiplier/lastPrice, ccy, 2)
	}
	return core.NewMoney(qty*lastPrice*p.instrument.Multiplier, ccy, 2)
}

func instrumentQty(instrument core.Instrument, v float64) core.Quantity {
	return core.NewQuantity(v, instrument.SizePrecision)
}

// calculateAvgPx computes the quantity-weighted average of a prior average
// price over qty and a new fill of lastQty at lastPx.
func calculateAvgPx(qty, priorAvg, lastQty, lastPx float64) (float64, error) {
	if qty == 0 && lastQty == 0 {
		return 0, fmt.Errorf("both qty and last_qty are zero: %w", core.ErrZeroQuantity)
	}
	if lastQty == 0 {
		return 0, fmt.Errorf("last_qty is zero: %w", core.ErrZeroFillQuantity)
	}
	total := qty + lastQty
	if total <= 0 {
		return 0, fmt.Errorf("total quantity %v is not strictly positive: %w", total, core.ErrNegativeTotalQuantity)
	}
	return (qty*priorAvg + lastQty*lastPx) / total, nil
}

// calculatePoints returns the linear or inverse points between openPx and
// closePx for the given entry side.
func calculatePoints(instrument core.Instrument, entrySide core.OrderSide, openPx, closePx float64) (float64, error) {
	if instrument.IsInverse {
		return calculatePointsInverse(entrySide, openPx, closePx)
	}
	if entrySide == core.OrderSideBuy {
		return closePx - openPx, nil
	}
	return openPx - closePx, nil
}

// calculatePointsInverse computes 1/open - 1/close for a long entry, or the
// mirror image for a short entry.
func calculatePointsInverse(entrySide core.OrderSide, openPx, closePx float64) (float64, error) {
	if math.Abs(openPx) < 1e-15 || math.Abs(closePx) < 1e-15 {
		return 0, fmt.Errorf("open=%v close=%v: %w", openPx, closePx, core.ErrDegeneratePrice)
	}
	if entrySide == core.OrderSideBuy {
		return 1/openPx - 1/closePx, nil
	}
	return 1/closePx - 1/openPx, nil
}

// calculatePnlRaw returns the realized PnL contribution of closing qty at
// closePx against an open price of openPx, in the instrument's settlement
// currency.
func calculatePnlRaw(instrument core.Instrument, entrySide core.OrderSide, openPx, closePx, qty float64) (float64, error) {
	points, err := calculatePoints(instrument, entrySide, openPx, closePx)
	if err != nil {
		return 0, err
	}
	return points * qty * instrument.Multiplier, nil
}

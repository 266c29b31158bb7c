package position

import (
	"math"
	"testing"

	"coreruntime/internal/core"
)

func audUsd() core.Instrument {
	return core.Instrument{
		ID:                 "AUD-USD",
		PricePrecision:     5,
		SizePrecision:      0,
		Multiplier:         1,
		IsInverse:          false,
		BaseCurrency:       "AUD",
		QuoteCurrency:      "USD",
		SettlementCurrency: "USD",
	}
}

func money(v float64, ccy core.Currency) *core.Money {
	m := core.NewMoney(v, ccy, 2)
	return &m
}

func almostEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestPositionS1BuyThenSellRoundTrip(t *testing.T) {
	inst := audUsd()
	buy := Fill{
		InstrumentID: inst.ID, TradeID: "T1", Side: core.OrderSideBuy,
		LastQty: 150000, LastPx: 1.00001, Commission: money(2, "USD"), TsEvent: 1_000_000_000,
	}
	p, err := New(inst, buy)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sell := Fill{
		InstrumentID: inst.ID, TradeID: "T2", Side: core.OrderSideSell,
		LastQty: 150000, LastPx: 1.00011, Commission: money(0, "USD"), TsEvent: 2_000_000_000,
	}
	if err := p.Apply(sell); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if p.Side != core.PositionSideFlat {
		t.Errorf("side = %v, want Flat", p.Side)
	}
	if q := p.Quantity().AsFloat64(); q != 0 {
		t.Errorf("quantity = %v, want 0", q)
	}
	if p.TsClosed == nil || *p.TsClosed != 2_000_000_000 {
		t.Errorf("ts_closed = %v, want 2000000000", p.TsClosed)
	}
	if p.DurationNs != 1_000_000_000 {
		t.Errorf("duration = %v, want 1000000000", p.DurationNs)
	}
	if !almostEqual(p.AvgPxOpen, 1.00001, 1e-9) {
		t.Errorf("avg_px_open = %v, want 1.00001", p.AvgPxOpen)
	}
	if p.AvgPxClose == nil || !almostEqual(*p.AvgPxClose, 1.00011, 1e-9) {
		t.Errorf("avg_px_close = %v, want 1.00011", p.AvgPxClose)
	}
	if !almostEqual(p.RealizedReturn, 9.9999000001e-5, 1e-9) {
		t.Errorf("realized_return = %v, want 9.9999000001e-5", p.RealizedReturn)
	}
	if p.RealizedPnl == nil || !almostEqual(p.RealizedPnl.AsFloat64(), 13, 1e-6) {
		t.Errorf("realized_pnl = %v, want 13", p.RealizedPnl)
	}
	total, err := p.TotalPnl(1.0005)
	if err != nil {
		t.Fatalf("TotalPnl: %v", err)
	}
	if !almostEqual(total.AsFloat64(), 13, 1e-6) {
		t.Errorf("total_pnl = %v, want 13", total.AsFloat64())
	}
	commissions := p.CommissionsList()
	if len(commissions) != 1 || !almostEqual(commissions[0].AsFloat64(), 2, 1e-6) {
		t.Errorf("commissions = %v, want [2 USD]", commissions)
	}
}

func TestPositionS2ShortPartialCoverFlip(t *testing.T) {
	inst := audUsd()
	open := Fill{
		InstrumentID: inst.ID, TradeID: "T1", Side: core.OrderSideSell,
		LastQty: 100000, LastPx: 1.00000, Commission: money(2, "USD"), TsEvent: 1,
	}
	p, err := New(inst, open)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fills := []Fill{
		{InstrumentID: inst.ID, TradeID: "T2", Side: core.OrderSideBuy, LastQty: 50000, LastPx: 1.00001, Commission: money(2, "USD"), TsEvent: 2},
		{InstrumentID: inst.ID, TradeID: "T3", Side: core.OrderSideBuy, LastQty: 50000, LastPx: 1.00003, Commission: money(2, "USD"), TsEvent: 3},
	}
	for _, f := range fills {
		if err := p.Apply(f); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}

	if p.Side != core.PositionSideFlat {
		t.Errorf("side = %v, want Flat", p.Side)
	}
	if !almostEqual(p.AvgPxOpen, 1.00000, 1e-9) {
		t.Errorf("avg_px_open = %v, want 1.00000", p.AvgPxOpen)
	}
	if p.AvgPxClose == nil || !almostEqual(*p.AvgPxClose, 1.00002, 1e-9) {
		t.Errorf("avg_px_close = %v, want 1.00002", p.AvgPxClose)
	}
	if p.RealizedPnl == nil || !almostEqual(p.RealizedPnl.AsFloat64(), -8, 1e-6) {
		t.Errorf("realized_pnl = %v, want -8", p.RealizedPnl)
	}
	total := 0.0
	for _, m := range p.CommissionsList() {
		total += m.AsFloat64()
	}
	if !almostEqual(total, 6, 1e-6) {
		t.Errorf("commissions total = %v, want 6", total)
	}
}

func TestPositionFlipThroughZeroClampsRealizedPnlAndUpdatesEntrySide(t *testing.T) {
	inst := audUsd()
	open := Fill{
		InstrumentID: inst.ID, TradeID: "T1", Side: core.OrderSideSell,
		LastQty: 100, LastPx: 1.00000, TsEvent: 1,
	}
	p, err := New(inst, open)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Single fill larger than the open short: closes all 100 short and
	// opens 50 long in the same Apply call.
	flip := Fill{InstrumentID: inst.ID, TradeID: "T2", Side: core.OrderSideBuy, LastQty: 150, LastPx: 1.00010, TsEvent: 2}
	if err := p.Apply(flip); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if p.Side != core.PositionSideLong {
		t.Errorf("side = %v, want Long", p.Side)
	}
	if p.SignedQty != 50 {
		t.Errorf("signed_qty = %v, want 50", p.SignedQty)
	}
	if p.EntrySide != core.OrderSideBuy {
		t.Errorf("entry_side = %v, want Buy (recomputed from post-fill sign)", p.EntrySide)
	}
	// Only the 100 units that actually closed the short should be priced
	// into realized PnL, not the full 150-unit fill.
	wantPnl := -0.00010 * 100
	if p.RealizedPnl == nil || !almostEqual(p.RealizedPnl.AsFloat64(), wantPnl, 1e-9) {
		t.Errorf("realized_pnl = %v, want %v", p.RealizedPnl, wantPnl)
	}

	// A subsequent sell must now be priced against the new long entry
	// side, not the stale short entry side from before the flip.
	closeLong := Fill{InstrumentID: inst.ID, TradeID: "T3", Side: core.OrderSideSell, LastQty: 50, LastPx: 1.00020, TsEvent: 3}
	if err := p.Apply(closeLong); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if p.Side != core.PositionSideFlat {
		t.Errorf("side = %v, want Flat", p.Side)
	}
}

func TestPositionS3Purge(t *testing.T) {
	inst := audUsd()
	f1 := Fill{InstrumentID: inst.ID, ClientOrderID: "O-1", TradeID: "T1", Side: core.OrderSideBuy, LastQty: 100, LastPx: 1, TsEvent: 1}
	f2 := Fill{InstrumentID: inst.ID, ClientOrderID: "O-2", TradeID: "T2", Side: core.OrderSideBuy, LastQty: 50, LastPx: 1.1, TsEvent: 2}

	p, err := New(inst, f1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Apply(f2); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if err := p.PurgeEventsForOrder("O-1"); err != nil {
		t.Fatalf("PurgeEventsForOrder: %v", err)
	}
	if len(p.TradeIDs()) != 1 || p.TradeIDs()[0] != "T2" {
		t.Errorf("trade ids = %v, want [T2]", p.TradeIDs())
	}
	if p.SignedQty != 50 {
		t.Errorf("signed_qty = %v, want 50", p.SignedQty)
	}

	if err := p.PurgeEventsForOrder("O-2"); err != nil {
		t.Fatalf("PurgeEventsForOrder: %v", err)
	}
	if !p.IsClosed() {
		t.Error("expected IsClosed() == true for empty shell")
	}
	if p.TsClosed == nil || *p.TsClosed != 0 {
		t.Errorf("ts_closed = %v, want present-and-zero", p.TsClosed)
	}
	if p.TsOpened != 0 || p.TsLast != 0 {
		t.Errorf("ts_opened/ts_last = %v/%v, want 0/0", p.TsOpened, p.TsLast)
	}
	if len(p.TradeIDs()) != 0 {
		t.Errorf("expected no trade ids after full purge, got %v", p.TradeIDs())
	}
}

func TestPositionDuplicateTradeID(t *testing.T) {
	inst := audUsd()
	f1 := Fill{InstrumentID: inst.ID, TradeID: "T1", Side: core.OrderSideBuy, LastQty: 1, LastPx: 1, TsEvent: 1}
	p, err := New(inst, f1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Apply(f1); err == nil {
		t.Error("expected DuplicateTradeId error on repeat trade id")
	}
}

func TestPositionStaleFill(t *testing.T) {
	inst := audUsd()
	f1 := Fill{InstrumentID: inst.ID, TradeID: "T1", Side: core.OrderSideBuy, LastQty: 1, LastPx: 1, TsEvent: 100}
	p, err := New(inst, f1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stale := Fill{InstrumentID: inst.ID, TradeID: "T2", Side: core.OrderSideBuy, LastQty: 1, LastPx: 1, TsEvent: 50}
	if err := p.Apply(stale); err == nil {
		t.Error("expected StaleFill error")
	}
}

func TestPositionS9InversePnl(t *testing.T) {
	inst := core.Instrument{
		ID: "BTC-USD-PERP", PricePrecision: 1, SizePrecision: 4, Multiplier: 100,
		IsInverse: true, BaseCurrency: "BTC", QuoteCurrency: "USD", SettlementCurrency: "BTC",
	}
	open := Fill{InstrumentID: inst.ID, TradeID: "T1", Side: core.OrderSideBuy, LastQty: 1000, LastPx: 20000, TsEvent: 1}
	p, err := New(inst, open)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	close := Fill{InstrumentID: inst.ID, TradeID: "T2", Side: core.OrderSideSell, LastQty: 1000, LastPx: 25000, TsEvent: 2}
	if err := p.Apply(close); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	wantPoints := 1.0/20000 - 1.0/25000
	wantPnl := wantPoints * 1000 * 100
	if p.RealizedPnl == nil || !almostEqual(p.RealizedPnl.AsFloat64(), wantPnl, 1e-6) {
		t.Errorf("realized_pnl = %v, want %v", p.RealizedPnl, wantPnl)
	}
	if p.RealizedPnl.Currency() != "BTC" {
		t.Errorf("realized pnl currency = %v, want BTC (inverse settlement)", p.RealizedPnl.Currency())
	}
}

package cache

import (
	"io"
	"log/slog"
	"testing"

	"coreruntime/internal/core"
	"coreruntime/internal/position"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func venuePtr(v core.Venue) *core.Venue             { return &v }
func strategyPtr(s core.StrategyID) *core.StrategyID { return &s }

func TestCacheS4AddThenQuery(t *testing.T) {
	c := New(Config{}, testLogger(), nil)
	order := Order{
		InstrumentID:  "BTC-USD",
		ClientOrderID: "C-1",
		StrategyID:    "S-1",
		Venue:         "V-1",
		Status:        OrderStatusInitialized,
	}
	if err := c.AddOrder(order, nil, nil, false); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}

	f := OrderFilter{Venue: venuePtr("V-1"), StrategyID: strategyPtr("S-1")}
	ids := c.ClientOrderIDs(f)
	if len(ids) != 1 || ids[0] != "C-1" {
		t.Fatalf("ClientOrderIDs = %v, want [C-1]", ids)
	}
	if n := c.OrdersOpenCount(f); n != 0 {
		t.Errorf("OrdersOpenCount = %d, want 0", n)
	}
	if n := c.OrdersTotalCount(f); n != 1 {
		t.Errorf("OrdersTotalCount = %d, want 1", n)
	}

	venueID := core.VenueOrderID("VO-1")
	order.VenueOrderID = &venueID
	order.Status = OrderStatusAccepted
	if err := c.UpdateOrder(order); err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}
	if n := c.OrdersOpenCount(f); n != 1 {
		t.Errorf("OrdersOpenCount after accept = %d, want 1", n)
	}
	if got, ok := c.ClientOrderID(venueID); !ok || got != "C-1" {
		t.Errorf("ClientOrderID(%v) = %v, %v; want C-1, true", venueID, got, ok)
	}
	if got, ok := c.VenueOrderID("C-1"); !ok || got != venueID {
		t.Errorf("VenueOrderID(C-1) = %v, %v; want %v, true", got, ok, venueID)
	}
}

func TestCacheS7IntegrityOnDeletion(t *testing.T) {
	c := New(Config{}, testLogger(), nil)
	order := Order{InstrumentID: "BTC-USD", ClientOrderID: "C-1", StrategyID: "S-1", Venue: "V-1"}
	if err := c.AddOrder(order, nil, nil, false); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}
	if err := c.DeleteOrder("C-1"); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
	if _, ok := c.Order("C-1"); ok {
		t.Error("expected order to be gone after delete")
	}
	ids := c.ClientOrderIDs(OrderFilter{Venue: venuePtr("V-1")})
	if len(ids) != 0 {
		t.Errorf("expected no ids after delete, got %v", ids)
	}
	if !c.CheckIntegrity() {
		t.Error("expected CheckIntegrity() == true after clean delete")
	}
}

func TestCacheS8BoundedDequeEviction(t *testing.T) {
	c := New(Config{QuoteCapacity: 3}, testLogger(), nil)
	for i := 0; i < 5; i++ {
		q := QuoteTick{InstrumentID: "BTC-USD", TsEvent: core.UnixNanos(i)}
		if err := c.AddQuote(q); err != nil {
			t.Fatalf("AddQuote: %v", err)
		}
	}
	latest, ok := c.QuoteTick("BTC-USD")
	if !ok {
		t.Fatal("expected a quote tick")
	}
	if latest.TsEvent != 4 {
		t.Errorf("latest quote ts = %v, want 4 (most recent)", latest.TsEvent)
	}
}

func TestCacheVenuePositionsIndexedFromOpeningOrder(t *testing.T) {
	c := New(Config{}, testLogger(), nil)
	order := Order{
		InstrumentID:  "BTC-USD",
		ClientOrderID: "C-1",
		StrategyID:    "S-1",
		Venue:         "V-1",
		Status:        OrderStatusInitialized,
	}
	if err := c.AddOrder(order, nil, nil, false); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}

	inst := core.Instrument{ID: "BTC-USD", PricePrecision: 1, SizePrecision: 4, Multiplier: 1, BaseCurrency: "BTC", QuoteCurrency: "USD", SettlementCurrency: "USD"}
	fill := position.Fill{
		InstrumentID: "BTC-USD", ClientOrderID: "C-1", StrategyID: "S-1",
		TradeID: "T1", Side: core.OrderSideBuy, LastQty: 1, LastPx: 20000, TsEvent: 1,
	}
	p, err := position.New(inst, fill)
	if err != nil {
		t.Fatalf("position.New: %v", err)
	}
	p.ID = "P-1"

	if err := c.AddPosition(p, "hedging"); err != nil {
		t.Fatalf("AddPosition: %v", err)
	}

	f := PositionFilter{Venue: venuePtr("V-1")}
	ids := c.PositionIDs(f)
	if len(ids) != 1 || ids[0] != "P-1" {
		t.Fatalf("PositionIDs(venue filter) = %v, want [P-1]", ids)
	}

	// BuildIndex must reconstruct the same venue linkage from scratch.
	c.BuildIndex()
	ids = c.PositionIDs(f)
	if len(ids) != 1 || ids[0] != "P-1" {
		t.Fatalf("PositionIDs(venue filter) after BuildIndex = %v, want [P-1]", ids)
	}

	if err := c.DeletePosition("P-1"); err != nil {
		t.Fatalf("DeletePosition: %v", err)
	}
	if ids := c.PositionIDs(f); len(ids) != 0 {
		t.Errorf("PositionIDs(venue filter) after delete = %v, want none", ids)
	}
}

func TestCacheDuplicateOrderRejected(t *testing.T) {
	c := New(Config{}, testLogger(), nil)
	order := Order{InstrumentID: "BTC-USD", ClientOrderID: "C-1"}
	if err := c.AddOrder(order, nil, nil, false); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}
	if err := c.AddOrder(order, nil, nil, false); err == nil {
		t.Error("expected Duplicate error on re-add without replaceExisting")
	}
	if err := c.AddOrder(order, nil, nil, true); err != nil {
		t.Errorf("replaceExisting add should succeed: %v", err)
	}
}

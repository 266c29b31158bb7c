package core

import "testing"

func TestNewPriceRoundsToPrecision(t *testing.T) {
	p := NewPrice(1.000015, 5)
	if got := p.AsFloat64(); got != 1.00002 && got != 1.00001 {
		t.Errorf("unexpected rounded price: %v", got)
	}
	if p.Precision() != 5 {
		t.Errorf("precision = %d, want 5", p.Precision())
	}
}

func TestQuantityIsAlwaysNonNegative(t *testing.T) {
	q := NewQuantity(-150000, 0)
	if q.AsFloat64() != 150000 {
		t.Errorf("AsFloat64() = %v, want 150000", q.AsFloat64())
	}
}

func TestMoneyAdd(t *testing.T) {
	a := NewMoney(2, "USD", 2)
	b := NewMoney(3.5, "USD", 2)
	sum := a.Add(b)
	if sum.AsFloat64() != 5.5 {
		t.Errorf("sum = %v, want 5.5", sum.AsFloat64())
	}
	if sum.Currency() != "USD" {
		t.Errorf("currency = %v, want USD", sum.Currency())
	}
}

func TestPriceIsDegenerate(t *testing.T) {
	if !NewPrice(0, 8).IsDegenerate() {
		t.Error("zero price should be degenerate")
	}
	if NewPrice(1.0, 8).IsDegenerate() {
		t.Error("1.0 should not be degenerate")
	}
}

func TestNewTraderIDRejectsEmpty(t *testing.T) {
	if _, err := NewTraderID(""); err == nil {
		t.Error("expected error for empty trader id")
	}
	if _, err := NewTraderID("TRADER-001"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

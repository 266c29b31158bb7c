package venuehttp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"coreruntime/internal/core"
	"coreruntime/internal/pagination"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 10}))
}

func TestCandleRowToBarParsesFields(t *testing.T) {
	row := candleRow{"1700000000000", "1.1", "1.2", "1.0", "1.15", "42.5"}
	bar, err := row.toBar(core.BarType("BTC-USD-1-MINUTE"))
	if err != nil {
		t.Fatalf("toBar: %v", err)
	}
	if bar.BarType != core.BarType("BTC-USD-1-MINUTE") {
		t.Errorf("BarType = %v", bar.BarType)
	}
	if bar.TsEvent != core.UnixNanos(1700000000000)*core.UnixNanos(1e6) {
		t.Errorf("TsEvent = %v", bar.TsEvent)
	}
}

func TestCandleRowToBarRejectsShortRow(t *testing.T) {
	row := candleRow{"1", "2", "3"}
	if _, err := row.toBar(core.BarType("X")); err == nil {
		t.Error("expected error for short candle row")
	}
}

func TestBarFetcherSelectsHistoryPath(t *testing.T) {
	var gotPath string
	var gotParams map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotParams = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]candleRow{})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, nil, testLogger())
	fetcher := client.NewBarFetcher(core.InstrumentID("BTC-USD"), "1m")

	start := core.UnixNanos(0)
	cursor := pagination.Cursor{Mode: pagination.CursorForward, After: &start}
	_, err := fetcher.FetchPage(context.Background(), pagination.EndpointHistory, cursor, 100)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	if gotPath != "/market/history-candles" {
		t.Errorf("path = %q, want history endpoint", gotPath)
	}
	if gotParams.Get("after") != "0" {
		t.Errorf("after param = %q, want 0", gotParams.Get("after"))
	}
	if gotParams.Get("limit") != "100" {
		t.Errorf("limit param = %q, want 100", gotParams.Get("limit"))
	}
}

func TestBarFetcherSelectsRegularPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]candleRow{})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, nil, testLogger())
	fetcher := client.NewBarFetcher(core.InstrumentID("BTC-USD"), "1m")

	_, err := fetcher.FetchPage(context.Background(), pagination.EndpointRegular, pagination.Cursor{Mode: pagination.CursorNone}, 300)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if gotPath != "/market/candles" {
		t.Errorf("path = %q, want regular endpoint", gotPath)
	}
}

func TestDoOrderOpRequiresCredentials(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://unused"}, NewHMACSigner(Credentials{}), testLogger())
	_, err := client.SendOrder(context.Background(), OrderRequest{})
	if err == nil {
		t.Fatal("expected error when credentials are absent")
	}
}

package pagination

import (
	"context"
	"testing"
	"time"

	"coreruntime/internal/cache"
	"coreruntime/internal/core"
)

type recordedCall struct {
	endpoint Endpoint
	cursor   Cursor
	limit    int
}

// fakeForwardFetcher simulates a venue that returns pages in descending
// (newest-first) API order for forward pagination, consistent with the
// reverse-each-page-before-concatenation rule.
type fakeForwardFetcher struct {
	calls []recordedCall
}

func (f *fakeForwardFetcher) FetchPage(_ context.Context, e Endpoint, c Cursor, limit int) ([]cache.Bar, error) {
	f.calls = append(f.calls, recordedCall{endpoint: e, cursor: c, limit: limit})
	base := core.UnixNanos(0)
	if c.After != nil {
		base = *c.After
	}
	page := make([]cache.Bar, limit)
	for i := 0; i < limit; i++ {
		page[i] = cache.Bar{TsEvent: base + core.UnixNanos(limit-i)}
	}
	return page, nil
}

// fakeBackwardFetcher simulates a venue that returns pages in descending
// (newest-first) API order for backward pagination, kept as-is per the
// ordering rule.
type fakeBackwardFetcher struct {
	calls []recordedCall
}

func (f *fakeBackwardFetcher) FetchPage(_ context.Context, e Endpoint, c Cursor, limit int) ([]cache.Bar, error) {
	f.calls = append(f.calls, recordedCall{endpoint: e, cursor: c, limit: limit})
	base := core.UnixNanos(1_000_000)
	if c.Before != nil {
		base = *c.Before
	}
	page := make([]cache.Bar, limit)
	for i := 0; i < limit; i++ {
		page[i] = cache.Bar{TsEvent: base - core.UnixNanos(i+1)}
	}
	return page, nil
}

func recordingSleeper() (Sleeper, *int) {
	count := 0
	return func(d time.Duration) {
		count++
		if d < 50*time.Millisecond {
			panic("inter-page sleep below 50ms floor")
		}
	}, &count
}

// TestPaginationS5ForwardHistoryEndpoint covers S5: request bars with
// start=now-150d, end=None, limit=400.
func TestPaginationS5ForwardHistoryEndpoint(t *testing.T) {
	now := core.UnixNanos(int64(200*24*time.Hour) / int64(time.Nanosecond))
	start := now - core.UnixNanos(int64(150*24*time.Hour)/int64(time.Nanosecond))

	fetcher := &fakeForwardFetcher{}
	sleep, sleeps := recordingSleeper()

	bars, err := Paginate(context.Background(), fetcher, func(b cache.Bar) core.UnixNanos { return b.TsEvent }, now, sleep, Request{
		Start: &start, Limit: 400,
	})
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if len(bars) > 400 {
		t.Fatalf("len(bars) = %d, want <= 400", len(bars))
	}
	if len(fetcher.calls) == 0 {
		t.Fatal("expected at least one page fetch")
	}
	if fetcher.calls[0].endpoint != EndpointHistory {
		t.Fatalf("endpoint = %v, want history", fetcher.calls[0].endpoint)
	}
	if fetcher.calls[0].limit != 100 {
		t.Fatalf("first page limit = %d, want 100 (history cap)", fetcher.calls[0].limit)
	}
	if fetcher.calls[0].cursor.Mode != CursorForward {
		t.Fatalf("cursor mode = %v, want forward", fetcher.calls[0].cursor.Mode)
	}
	for i := 1; i < len(bars); i++ {
		if bars[i].TsEvent <= bars[i-1].TsEvent {
			t.Fatalf("bars not strictly ordered oldest->newest at index %d", i)
		}
	}
	if *sleeps != len(fetcher.calls)-1 {
		t.Fatalf("sleeps = %d, want %d (one less than page count)", *sleeps, len(fetcher.calls)-1)
	}
}

// TestPaginationS6BackwardWithoutBounds covers S6: request bars with no
// start/end and limit=500 against the regular endpoint.
func TestPaginationS6BackwardWithoutBounds(t *testing.T) {
	now := core.UnixNanos(1_000_000)
	fetcher := &fakeBackwardFetcher{}
	sleep, _ := recordingSleeper()

	bars, err := Paginate(context.Background(), fetcher, func(b cache.Bar) core.UnixNanos { return b.TsEvent }, now, sleep, Request{
		Limit: 500,
	})
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if len(bars) != 500 {
		t.Fatalf("len(bars) = %d, want 500", len(bars))
	}
	if len(fetcher.calls) != 2 {
		t.Fatalf("page count = %d, want 2", len(fetcher.calls))
	}
	if fetcher.calls[0].endpoint != EndpointRegular {
		t.Fatalf("endpoint = %v, want regular", fetcher.calls[0].endpoint)
	}
	if fetcher.calls[0].limit != 300 {
		t.Fatalf("first page limit = %d, want 300 (regular cap)", fetcher.calls[0].limit)
	}
	if fetcher.calls[0].cursor.Mode != CursorBackward || fetcher.calls[0].cursor.Before == nil {
		t.Fatalf("first page cursor = %+v, want backward with before=now", fetcher.calls[0].cursor)
	}
	if fetcher.calls[1].limit != 200 {
		t.Fatalf("second page limit = %d, want 200", fetcher.calls[1].limit)
	}
	for i := 1; i < len(bars); i++ {
		if bars[i].TsEvent <= bars[i-1].TsEvent {
			t.Fatalf("bars not strictly ordered oldest->newest at index %d", i)
		}
	}
}

func TestPaginationRejectsInvertedTimeRange(t *testing.T) {
	fetcher := &fakeForwardFetcher{}
	start := core.UnixNanos(500)
	end := core.UnixNanos(100)
	_, err := Paginate(context.Background(), fetcher, func(b cache.Bar) core.UnixNanos { return b.TsEvent }, core.UnixNanos(1000), nil, Request{
		Start: &start, End: &end,
	})
	if err == nil {
		t.Fatal("expected ErrInvalidTimeRange")
	}
}

func TestRequestBarsRejectsInternalSource(t *testing.T) {
	fetcher := &fakeForwardFetcher{}
	spec := core.BarSpecification{
		InstrumentID: "AUD-USD",
		Step:         1,
		Aggregation:  core.AggregationMinute,
		PriceType:    "last",
		Source:       core.AggregationSourceInternal,
	}
	_, err := RequestBars(context.Background(), fetcher, spec, nil, nil, 10, core.UnixNanos(1000), nil)
	if err == nil {
		t.Fatal("expected ErrInvalidAggregationSource for an internal bar source")
	}
}

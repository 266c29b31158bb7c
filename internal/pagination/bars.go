package pagination

import (
	"context"
	"fmt"

	"coreruntime/internal/cache"
	"coreruntime/internal/core"
)

// RequestBars is the canonical request_bars operation of §4.6: validates
// the bar specification and time range, then drives a complete paginated
// fetch through fetcher, returning bars ordered oldest to newest.
func RequestBars(
	ctx context.Context,
	fetcher PageFetcher[cache.Bar],
	spec core.BarSpecification,
	start, end *core.UnixNanos,
	limit int,
	now core.UnixNanos,
	sleep Sleeper,
) ([]cache.Bar, error) {
	if spec.Source != core.AggregationSourceExternal {
		return nil, fmt.Errorf("bar spec for %s: %w", spec.InstrumentID, core.ErrInvalidAggregationSource)
	}
	if _, err := spec.BarType(); err != nil {
		return nil, err
	}
	return Paginate(ctx, fetcher, func(b cache.Bar) core.UnixNanos { return b.TsEvent }, now, sleep, Request{
		Start: start, End: end, Limit: limit,
	})
}

// RequestQuoteTicks is the quote-tick analogue of RequestBars, sharing the
// same cursor/ordering/termination core with per-kind field mapping.
func RequestQuoteTicks(
	ctx context.Context,
	fetcher PageFetcher[cache.QuoteTick],
	start, end *core.UnixNanos,
	limit int,
	now core.UnixNanos,
	sleep Sleeper,
) ([]cache.QuoteTick, error) {
	return Paginate(ctx, fetcher, func(q cache.QuoteTick) core.UnixNanos { return q.TsEvent }, now, sleep, Request{
		Start: start, End: end, Limit: limit,
	})
}

// RequestTradeTicks is the trade-tick analogue of RequestBars.
func RequestTradeTicks(
	ctx context.Context,
	fetcher PageFetcher[cache.TradeTick],
	start, end *core.UnixNanos,
	limit int,
	now core.UnixNanos,
	sleep Sleeper,
) ([]cache.TradeTick, error) {
	return Paginate(ctx, fetcher, func(t cache.TradeTick) core.UnixNanos { return t.TsEvent }, now, sleep, Request{
		Start: start, End: end, Limit: limit,
	})
}

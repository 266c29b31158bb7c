// Package pagination implements the market-data request pagination core:
// endpoint selection by request-window age, cursor-mode selection, per-page
// limits, page ordering, and termination, shared by request_bars and the
// structurally identical quote/trade history requests.
package pagination

import (
	"context"
	"time"

	"coreruntime/internal/core"
)

// historyWindow is the age threshold (§4.6 point 4) past which the history
// endpoint, rather than the regular endpoint, is used.
const historyWindow = 100 * 24 * time.Hour

// Endpoint selects which upstream route a page is fetched from, which in
// turn determines the per-page cap.
type Endpoint int

const (
	EndpointRegular Endpoint = iota
	EndpointHistory
)

// Cap returns the maximum number of items a single page of this endpoint
// may return.
func (e Endpoint) Cap() int {
	if e == EndpointHistory {
		return 100
	}
	return 300
}

func (e Endpoint) String() string {
	if e == EndpointHistory {
		return "history"
	}
	return "regular"
}

// SelectEndpoint implements §4.6 point 4: the history endpoint is used only
// when start is present and more than 100 days old relative to now.
func SelectEndpoint(start *core.UnixNanos, now core.UnixNanos) Endpoint {
	if start == nil {
		return EndpointRegular
	}
	age := time.Duration(now-*start) * time.Nanosecond
	if age > historyWindow {
		return EndpointHistory
	}
	return EndpointRegular
}

// CursorMode is the pagination strategy chosen for a request, per §4.6
// point 5.
type CursorMode int

const (
	CursorNone CursorMode = iota
	CursorForward
	CursorBackward
)

// Cursor carries the current position of a paginated request. Exactly one
// of After/Before is meaningful, selected by Mode.
type Cursor struct {
	Mode   CursorMode
	After  *core.UnixNanos
	Before *core.UnixNanos
}

// SelectCursor implements §4.6 point 5's four cases.
func SelectCursor(start, end *core.UnixNanos, limit int, pageCap int, now core.UnixNanos) Cursor {
	switch {
	case start != nil:
		return Cursor{Mode: CursorForward, After: start}
	case end != nil:
		return Cursor{Mode: CursorBackward, Before: end}
	case limit > pageCap:
		n := now
		return Cursor{Mode: CursorBackward, Before: &n}
	default:
		return Cursor{Mode: CursorNone}
	}
}

// Request is the validated set of pagination parameters shared by every
// time-ranged request kind (bars, quotes, trades).
type Request struct {
	Start *core.UnixNanos
	End   *core.UnixNanos
	Limit int
}

// ValidateTimeRange enforces §4.6 point 2: if both bounds are set,
// start < end.
func ValidateTimeRange(start, end *core.UnixNanos) error {
	if start != nil && end != nil && *start >= *end {
		return core.ErrInvalidTimeRange
	}
	return nil
}

// PageFetcher is the transport seam a paginated request is driven through.
// It has no knowledge of cursor mode or ordering; it only executes one page
// fetch and hands back items in whatever order the upstream API returned
// them.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, endpoint Endpoint, cursor Cursor, limit int) ([]T, error)
}

// Sleeper abstracts the rate-limit delay between pages so tests can run
// without real wall-clock waits.
type Sleeper func(time.Duration)

// RealSleeper sleeps for the requested duration using time.Sleep.
func RealSleeper(d time.Duration) { time.Sleep(d) }

const interPageDelay = 50 * time.Millisecond

// Paginate drives a complete paginated request to completion: selects the
// endpoint and cursor mode, fetches successive pages respecting the
// effective per-page limit, orders and concatenates results, and applies
// the termination rules of §4.6 point 8. tsOf extracts the event timestamp
// from an item of type T, used for window-coverage termination and cursor
// advancement.
func Paginate[T any](ctx context.Context, fetcher PageFetcher[T], tsOf func(T) core.UnixNanos, now core.UnixNanos, sleep Sleeper, req Request) ([]T, error) {
	if err := ValidateTimeRange(req.Start, req.End); err != nil {
		return nil, err
	}
	if sleep == nil {
		sleep = RealSleeper
	}

	endpoint := SelectEndpoint(req.Start, now)
	pageCap := endpoint.Cap()
	cursor := SelectCursor(req.Start, req.End, req.Limit, pageCap, now)

	var result []T
	first := true
	for {
		if !first {
			sleep(interPageDelay)
		}
		first = false

		remaining := pageCap
		if req.Limit > 0 {
			remaining = req.Limit - len(result)
			if remaining <= 0 {
				break
			}
			if remaining > pageCap {
				remaining = pageCap
			}
		}

		page, err := fetcher.FetchPage(ctx, endpoint, cursor, remaining)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		ordered := make([]T, len(page))
		copy(ordered, page)
		switch cursor.Mode {
		case CursorForward, CursorNone:
			reverseSlice(ordered)
		case CursorBackward:
			// keep API order
		}
		result = append(result, ordered...)

		if req.Limit > 0 && len(result) >= req.Limit {
			break
		}
		if windowCovered(result, tsOf, req.Start, req.End) {
			break
		}
		if cursor.Mode == CursorNone {
			break
		}

		switch cursor.Mode {
		case CursorForward:
			last := tsOf(ordered[len(ordered)-1])
			cursor.After = &last
		case CursorBackward:
			oldest := tsOf(page[0])
			for _, item := range page {
				if t := tsOf(item); t < oldest {
					oldest = t
				}
			}
			cursor.Before = &oldest
		}
	}

	if cursor.Mode == CursorBackward {
		reverseSlice(result)
	}
	return result, nil
}

func windowCovered[T any](items []T, tsOf func(T) core.UnixNanos, start, end *core.UnixNanos) bool {
	if len(items) == 0 || (start == nil && end == nil) {
		return false
	}
	minTs, maxTs := tsOf(items[0]), tsOf(items[0])
	for _, item := range items[1:] {
		if t := tsOf(item); t < minTs {
			minTs = t
		} else if t > maxTs {
			maxTs = t
		}
	}
	if start != nil && minTs > *start {
		return false
	}
	if end != nil && maxTs < *end {
		return false
	}
	return true
}

func reverseSlice[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

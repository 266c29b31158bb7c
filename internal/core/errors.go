package core

import "errors"

// Sentinel errors for the taxonomy shared by the cache, position, actor,
// and bus packages. Call sites wrap these with fmt.Errorf("...: %w", ErrX)
// so errors.Is keeps working through the wrapping.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrDuplicate              = errors.New("duplicate")
	ErrNotFound               = errors.New("not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNotRegistered          = errors.New("not registered")
	ErrAuthenticationFailure  = errors.New("authentication failure")
	ErrRateLimited            = errors.New("rate limited")
	ErrTransport              = errors.New("transport error")
	ErrUnsupported            = errors.New("unsupported")
	ErrIntegrity              = errors.New("integrity violation")

	// Arithmetic family, raised by the position aggregate.
	ErrDuplicateTradeID      = errors.New("duplicate trade id")
	ErrStaleFill             = errors.New("stale fill")
	ErrZeroQuantity          = errors.New("zero quantity")
	ErrZeroFillQuantity      = errors.New("zero fill quantity")
	ErrNegativeTotalQuantity = errors.New("negative total quantity")
	ErrDegeneratePrice       = errors.New("degenerate price")

	// Pagination family.
	ErrInvalidTimeRange         = errors.New("invalid time range")
	ErrInvalidAggregationSource = errors.New("invalid aggregation source")
	ErrUnsupportedAggregation   = errors.New("unsupported aggregation")

	// Cache family.
	ErrVenueOrderIDMismatch = errors.New("venue order id mismatch")
)

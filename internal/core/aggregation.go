package core

import "fmt"

// Aggregation identifies the time unit a bar specification aggregates over.
type Aggregation int

const (
	AggregationSecond Aggregation = iota
	AggregationMinute
	AggregationHour
	AggregationDay
	AggregationWeek
	AggregationMonth
)

// AggregationSource distinguishes bars built by this runtime (Internal) from
// bars sourced verbatim from a venue (External). Only External bar
// specifications may be paginated (see BarType below).
type AggregationSource int

const (
	AggregationSourceInternal AggregationSource = iota
	AggregationSourceExternal
)

// BarSpecification describes one bar-type's shape: the instrument it
// aggregates, the step count and unit, and whether it is sourced externally.
// PriceType is a free-form venue price-type tag (e.g. "last", "mid", "bid").
type BarSpecification struct {
	InstrumentID InstrumentID
	Step         int
	Aggregation  Aggregation
	PriceType    string
	Source       AggregationSource
}

// barTypeUnit maps an Aggregation to the single-letter unit code used in
// the canonical bar-type string, per the request_bars aggregation mapping.
func barTypeUnit(a Aggregation) (string, error) {
	switch a {
	case AggregationSecond:
		return "s", nil
	case AggregationMinute:
		return "m", nil
	case AggregationHour:
		return "H", nil
	case AggregationDay:
		return "D", nil
	case AggregationWeek:
		return "W", nil
	case AggregationMonth:
		return "M", nil
	default:
		return "", fmt.Errorf("aggregation %d: %w", a, ErrUnsupportedAggregation)
	}
}

// BarType derives the canonical "<instrument>-<step><unit>-<price_type>-<source>"
// bar-type id for this specification, failing with ErrUnsupportedAggregation
// for any aggregation outside Second/Minute/Hour/Day/Week/Month.
func (s BarSpecification) BarType() (BarType, error) {
	unit, err := barTypeUnit(s.Aggregation)
	if err != nil {
		return "", err
	}
	src := "EXTERNAL"
	if s.Source == AggregationSourceInternal {
		src = "INTERNAL"
	}
	return BarType(fmt.Sprintf("%s-%d%s-%s-%s", s.InstrumentID, s.Step, unit, s.PriceType, src)), nil
}

package actor

import (
	"fmt"

	"github.com/google/uuid"

	"coreruntime/internal/cache"
	"coreruntime/internal/core"
)

// RequestCommand asks the data-engine endpoint to fetch a historical range
// and deliver the result back through Respond, keyed by CorrelationID.
type RequestCommand struct {
	Kind          string
	InstrumentID  core.InstrumentID
	BarType       core.BarType
	Start         *core.UnixNanos
	End           *core.UnixNanos
	Limit         int
	CorrelationID uuid.UUID
}

// validateTimeRange enforces start <= now, end <= now, and start < end when
// both are present.
func (a *DataActor) validateTimeRange(start, end *core.UnixNanos) error {
	now := a.clock.Now()
	if start != nil && *start > now {
		return fmt.Errorf("request start %d is after now %d: %w", *start, now, core.ErrInvalidTimeRange)
	}
	if end != nil && *end > now {
		return fmt.Errorf("request end %d is after now %d: %w", *end, now, core.ErrInvalidTimeRange)
	}
	if start != nil && end != nil && *start >= *end {
		return fmt.Errorf("request start %d is not before end %d: %w", *start, *end, core.ErrInvalidTimeRange)
	}
	return nil
}

// RequestBars issues a historical bar request for bt between start and end
// (either bound may be nil), invoking OnHistoricalBars when the response
// arrives.
func (a *DataActor) RequestBars(bt core.BarType, id core.InstrumentID, start, end *core.UnixNanos, limit int) error {
	if err := a.checkRegistered(); err != nil {
		return err
	}
	if err := a.validateTimeRange(start, end); err != nil {
		return err
	}
	corrID := a.bus.NewCorrelationID(func(msg any) {
		bars, ok := msg.([]cache.Bar)
		if !ok {
			return
		}
		a.dispatch("historical_bars", false, func() error { return a.handlers.OnHistoricalBars(bars) })
	})
	a.bus.Send(DataEngineEndpoint, RequestCommand{
		Kind: "bars", InstrumentID: id, BarType: bt,
		Start: start, End: end, Limit: limit, CorrelationID: corrID,
	})
	return nil
}

// RequestQuoteTicks issues a historical quote-tick request.
func (a *DataActor) RequestQuoteTicks(id core.InstrumentID, start, end *core.UnixNanos, limit int) error {
	if err := a.checkRegistered(); err != nil {
		return err
	}
	if err := a.validateTimeRange(start, end); err != nil {
		return err
	}
	corrID := a.bus.NewCorrelationID(func(msg any) {
		ticks, ok := msg.([]cache.QuoteTick)
		if !ok {
			return
		}
		a.dispatch("historical_quote_ticks", false, func() error { return a.handlers.OnHistoricalQuoteTicks(ticks) })
	})
	a.bus.Send(DataEngineEndpoint, RequestCommand{
		Kind: "quote_ticks", InstrumentID: id,
		Start: start, End: end, Limit: limit, CorrelationID: corrID,
	})
	return nil
}

// RequestTradeTicks issues a historical trade-tick request.
func (a *DataActor) RequestTradeTicks(id core.InstrumentID, start, end *core.UnixNanos, limit int) error {
	if err := a.checkRegistered(); err != nil {
		return err
	}
	if err := a.validateTimeRange(start, end); err != nil {
		return err
	}
	corrID := a.bus.NewCorrelationID(func(msg any) {
		ticks, ok := msg.([]cache.TradeTick)
		if !ok {
			return
		}
		a.dispatch("historical_trade_ticks", false, func() error { return a.handlers.OnHistoricalTradeTicks(ticks) })
	})
	a.bus.Send(DataEngineEndpoint, RequestCommand{
		Kind: "trade_ticks", InstrumentID: id,
		Start: start, End: end, Limit: limit, CorrelationID: corrID,
	})
	return nil
}

// RequestInstrument issues a one-shot request for an instrument definition.
func (a *DataActor) RequestInstrument(id core.InstrumentID) error {
	if err := a.checkRegistered(); err != nil {
		return err
	}
	corrID := a.bus.NewCorrelationID(func(msg any) {
		insts, ok := msg.([]core.Instrument)
		if !ok {
			return
		}
		a.dispatch("historical_instruments", false, func() error { return a.handlers.OnHistoricalInstruments(insts) })
	})
	a.bus.Send(DataEngineEndpoint, RequestCommand{Kind: "instrument", InstrumentID: id, CorrelationID: corrID})
	return nil
}

// RequestInstruments issues a one-shot request for every instrument
// definition known to venue.
func (a *DataActor) RequestInstruments(venue core.Venue) error {
	if err := a.checkRegistered(); err != nil {
		return err
	}
	corrID := a.bus.NewCorrelationID(func(msg any) {
		insts, ok := msg.([]core.Instrument)
		if !ok {
			return
		}
		a.dispatch("historical_instruments", false, func() error { return a.handlers.OnHistoricalInstruments(insts) })
	})
	a.bus.Send(DataEngineEndpoint, RequestCommand{Kind: "instruments", InstrumentID: core.InstrumentID(venue), CorrelationID: corrID})
	return nil
}

// RequestData issues a one-shot request for a custom data-type range.
func (a *DataActor) RequestData(dataType string, start, end *core.UnixNanos, limit int) error {
	if err := a.checkRegistered(); err != nil {
		return err
	}
	if err := a.validateTimeRange(start, end); err != nil {
		return err
	}
	corrID := a.bus.NewCorrelationID(func(msg any) {
		a.dispatch("historical_data", false, func() error { return a.handlers.OnHistoricalData(msg) })
	})
	a.bus.Send(DataEngineEndpoint, RequestCommand{
		Kind: "data:" + dataType, Start: start, End: end, Limit: limit, CorrelationID: corrID,
	})
	return nil
}

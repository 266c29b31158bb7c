package cache

import (
	"fmt"
	"log/slog"
	"sync"

	"coreruntime/internal/core"
	"coreruntime/internal/position"
)

// MirrorAdapter is the subset of the persistence-adapter capability set
// (§6.1) that the cache itself drives on every mutation when write-through
// mirroring is configured. A full adapter (Redis-style, SQL-style) trivially
// satisfies this interface; the cache never imports a concrete adapter
// package, only this narrow contract.
type MirrorAdapter interface {
	AddOrder(Order) error
	UpdateOrder(Order) error
	AddPosition(*position.Position) error
	UpdatePosition(*position.Position) error
	DeleteOrder(core.ClientOrderID) error
	DeletePosition(core.PositionID) error
	AddQuote(QuoteTick) error
	AddTrade(TradeTick) error
	AddBar(Bar) error
}

// Config controls the bounded capacities of the market-data deques. Zero
// values fall back to sensible defaults.
type Config struct {
	QuoteCapacity int
	TradeCapacity int
	BarCapacity   int
}

func (c Config) withDefaults() Config {
	if c.QuoteCapacity <= 0 {
		c.QuoteCapacity = 1000
	}
	if c.TradeCapacity <= 0 {
		c.TradeCapacity = 1000
	}
	if c.BarCapacity <= 0 {
		c.BarCapacity = 1000
	}
	return c
}

// Cache is the in-memory store of all live trading state plus its 28
// derived indices. Safe for concurrent use: a single RWMutex guards both
// the entity stores and the index, per the permitted reader-writer-guard
// design noted for telemetry/snapshot callers.
type Cache struct {
	mu     sync.RWMutex
	cfg    Config
	logger *slog.Logger
	ix     *index
	mirror MirrorAdapter

	general           map[string][]byte
	currencies        map[core.Currency]struct{}
	instruments       map[core.InstrumentID]core.Instrument
	synthetics        map[core.InstrumentID]Synthetic
	accounts          map[core.AccountID]Account
	orders            map[core.ClientOrderID]Order
	orderLists        map[string]OrderList
	positions         map[core.PositionID]*position.Position
	positionOms       map[core.PositionID]string
	positionSnapshots map[core.PositionID][]byte

	quotes map[core.InstrumentID]*boundedDeque[QuoteTick]
	trades map[core.InstrumentID]*boundedDeque[TradeTick]
	bars   map[core.BarType]*boundedDeque[Bar]
	books  map[core.InstrumentID]OrderBookSnapshot
}

// New constructs an empty Cache. logger must not be nil; mirror may be nil
// to disable write-through persistence.
func New(cfg Config, logger *slog.Logger, mirror MirrorAdapter) *Cache {
	c := &Cache{
		cfg:    cfg.withDefaults(),
		logger: logger,
		mirror: mirror,
	}
	c.resetLocked()
	return c
}

func (c *Cache) resetLocked() {
	c.ix = newIndex()
	c.general = make(map[string][]byte)
	c.currencies = make(map[core.Currency]struct{})
	c.instruments = make(map[core.InstrumentID]core.Instrument)
	c.synthetics = make(map[core.InstrumentID]Synthetic)
	c.accounts = make(map[core.AccountID]Account)
	c.orders = make(map[core.ClientOrderID]Order)
	c.orderLists = make(map[string]OrderList)
	c.positions = make(map[core.PositionID]*position.Position)
	c.positionOms = make(map[core.PositionID]string)
	c.positionSnapshots = make(map[core.PositionID][]byte)
	c.quotes = make(map[core.InstrumentID]*boundedDeque[QuoteTick])
	c.trades = make(map[core.InstrumentID]*boundedDeque[TradeTick])
	c.bars = make(map[core.BarType]*boundedDeque[Bar])
	c.books = make(map[core.InstrumentID]OrderBookSnapshot)
}

// Reset clears all entity stores and the index; configuration (capacities,
// mirror adapter) is preserved.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// AddCurrency registers a currency code. Idempotent.
func (c *Cache) AddCurrency(code core.Currency) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currencies[code] = struct{}{}
}

// AddInstrument registers an instrument descriptor. Idempotent.
func (c *Cache) AddInstrument(inst core.Instrument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instruments[inst.ID] = inst
}

// Instrument returns the instrument registered under id, if any.
func (c *Cache) Instrument(id core.InstrumentID) (core.Instrument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inst, ok := c.instruments[id]
	return inst, ok
}

// AddSynthetic registers a synthetic instrument. Idempotent.
func (c *Cache) AddSynthetic(s Synthetic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.synthetics[s.ID] = s
}

// AddAccount registers or replaces an account record. Idempotent.
func (c *Cache) AddAccount(a Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[a.ID] = a
	c.ix.venueAccount[a.Venue] = a.ID
}

// Account returns the account registered under id, if any.
func (c *Cache) Account(id core.AccountID) (Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.accounts[id]
	return a, ok
}

// AddOrder inserts a new order into the store and updates every relevant
// index. Fails with ErrDuplicate when the client order id already exists
// and replaceExisting is false.
func (c *Cache) AddOrder(order Order, positionID *core.PositionID, clientID *core.ClientID, replaceExisting bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if order.ClientOrderID == "" {
		return fmt.Errorf("client order id is required: %w", core.ErrInvalidInput)
	}
	if _, exists := c.orders[order.ClientOrderID]; exists && !replaceExisting {
		return fmt.Errorf("client order id %q: %w", order.ClientOrderID, core.ErrDuplicate)
	}

	c.orders[order.ClientOrderID] = order
	c.ix.orders.add(order.ClientOrderID)
	c.updateStatusSetsLocked(order)

	if order.Venue != "" {
		c.ix.venueOrders.add(order.Venue, order.ClientOrderID)
	}
	c.ix.instrumentOrders.add(order.InstrumentID, order.ClientOrderID)
	if order.StrategyID != "" {
		c.ix.strategyOrders.add(order.StrategyID, order.ClientOrderID)
		c.ix.orderStrategy[order.ClientOrderID] = order.StrategyID
		c.ix.strategies[order.StrategyID] = struct{}{}
	}
	if order.ExecAlgorithmID != nil {
		c.ix.execAlgorithmOrders.add(*order.ExecAlgorithmID, order.ClientOrderID)
		c.ix.execAlgorithms[*order.ExecAlgorithmID] = struct{}{}
	}
	if order.ExecSpawnID != nil {
		c.ix.execSpawnOrders.add(*order.ExecSpawnID, order.ClientOrderID)
	}
	if positionID != nil {
		c.ix.orderPosition[order.ClientOrderID] = *positionID
		c.ix.positionOrders.add(*positionID, order.ClientOrderID)
	}
	if clientID != nil {
		c.ix.orderClient[order.ClientOrderID] = *clientID
	}

	if c.mirror != nil {
		if err := c.mirror.AddOrder(order); err != nil {
			return err
		}
	}
	return nil
}

// UpdateOrder reconciles the index sets with the order's current status.
func (c *Cache) UpdateOrder(order Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.orders[order.ClientOrderID]; !exists {
		return fmt.Errorf("client order id %q: %w", order.ClientOrderID, core.ErrNotFound)
	}
	c.orders[order.ClientOrderID] = order
	c.updateStatusSetsLocked(order)

	if order.VenueOrderID != nil {
		if existing, ok := c.ix.clientOrderIDs[order.ClientOrderID]; ok && existing != *order.VenueOrderID {
			return fmt.Errorf("venue order id changed for %q: %w", order.ClientOrderID, core.ErrVenueOrderIDMismatch)
		}
		c.ix.clientOrderIDs[order.ClientOrderID] = *order.VenueOrderID
		c.ix.venueOrderIDs[*order.VenueOrderID] = order.ClientOrderID
	}

	if order.Status.IsClosed() {
		c.ix.ordersPendingCancel.remove(order.ClientOrderID)
	}

	if c.mirror != nil {
		if err := c.mirror.UpdateOrder(order); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) updateStatusSetsLocked(order Order) {
	id := order.ClientOrderID
	c.ix.ordersInflight.remove(id)
	c.ix.ordersOpen.remove(id)
	c.ix.ordersClosed.remove(id)

	switch {
	case order.Status.IsInflight():
		c.ix.ordersInflight.add(id)
	case order.Status.IsOpen():
		c.ix.ordersOpen.add(id)
	case order.Status.IsClosed():
		c.ix.ordersClosed.add(id)
	}

	if order.Status == OrderStatusPendingCancel {
		c.ix.ordersPendingCancel.add(id)
	}

	if order.IsEmulated() {
		c.ix.ordersEmulated.add(id)
	} else {
		c.ix.ordersEmulated.remove(id)
	}
}

// AddPosition inserts a new position into the store and updates the
// relevant index collections, linking the opening order by id.
func (c *Cache) AddPosition(p *position.Position, omsType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.ID == "" {
		return fmt.Errorf("position id is required: %w", core.ErrInvalidInput)
	}
	c.positions[p.ID] = p
	c.positionOms[p.ID] = omsType
	c.ix.positions.add(p.ID)
	if p.IsOpen() {
		c.ix.positionsOpen.add(p.ID)
	} else {
		c.ix.positionsClosed.add(p.ID)
	}
	c.ix.instrumentPositions.add(p.InstrumentID, p.ID)
	if p.StrategyID != "" {
		c.ix.strategyPositions.add(p.StrategyID, p.ID)
		c.ix.positionStrategy[p.ID] = p.StrategyID
	}
	if p.OpeningOrderID != "" {
		c.ix.orderPosition[p.OpeningOrderID] = p.ID
		c.ix.positionOrders.add(p.ID, p.OpeningOrderID)
		if openingOrder, ok := c.orders[p.OpeningOrderID]; ok && openingOrder.Venue != "" {
			c.ix.venuePositions.add(openingOrder.Venue, p.ID)
		}
	}

	if c.mirror != nil {
		if err := c.mirror.AddPosition(p); err != nil {
			return err
		}
	}
	return nil
}

// UpdatePosition moves a position between the open/closed index sets based
// on its current state.
func (c *Cache) UpdatePosition(p *position.Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.positions[p.ID]; !exists {
		return fmt.Errorf("position id %q: %w", p.ID, core.ErrNotFound)
	}
	c.positions[p.ID] = p
	if p.IsOpen() {
		c.ix.positionsOpen.add(p.ID)
		c.ix.positionsClosed.remove(p.ID)
	} else {
		c.ix.positionsClosed.add(p.ID)
		c.ix.positionsOpen.remove(p.ID)
	}

	if c.mirror != nil {
		if err := c.mirror.UpdatePosition(p); err != nil {
			return err
		}
	}
	return nil
}

// DeleteOrder removes an order from the entity store and from every index
// set/map that can contain it.
func (c *Cache) DeleteOrder(id core.ClientOrderID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	order, exists := c.orders[id]
	if !exists {
		return fmt.Errorf("client order id %q: %w", id, core.ErrNotFound)
	}
	delete(c.orders, id)

	c.ix.orders.remove(id)
	c.ix.ordersOpen.remove(id)
	c.ix.ordersClosed.remove(id)
	c.ix.ordersEmulated.remove(id)
	c.ix.ordersInflight.remove(id)
	c.ix.ordersPendingCancel.remove(id)
	delete(c.ix.orderPosition, id)
	delete(c.ix.orderStrategy, id)
	delete(c.ix.orderClient, id)
	if venueID, ok := c.ix.clientOrderIDs[id]; ok {
		delete(c.ix.clientOrderIDs, id)
		delete(c.ix.venueOrderIDs, venueID)
	}
	if order.Venue != "" {
		c.ix.venueOrders.remove(order.Venue, id)
	}
	c.ix.instrumentOrders.remove(order.InstrumentID, id)
	if order.StrategyID != "" {
		c.ix.strategyOrders.remove(order.StrategyID, id)
	}
	if order.ExecAlgorithmID != nil {
		c.ix.execAlgorithmOrders.remove(*order.ExecAlgorithmID, id)
	}
	if order.ExecSpawnID != nil {
		c.ix.execSpawnOrders.remove(*order.ExecSpawnID, id)
	}
	for posID, set := range c.ix.positionOrders {
		set.remove(id)
		if len(set) == 0 {
			delete(c.ix.positionOrders, posID)
		}
	}

	if c.mirror != nil {
		if err := c.mirror.DeleteOrder(id); err != nil {
			return err
		}
	}
	return nil
}

// DeletePosition removes a position from the entity store and from every
// index set/map that can contain it.
func (c *Cache) DeletePosition(id core.PositionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.positions[id]; !exists {
		return fmt.Errorf("position id %q: %w", id, core.ErrNotFound)
	}
	delete(c.positions, id)
	delete(c.positionOms, id)
	delete(c.positionSnapshots, id)

	c.ix.positions.remove(id)
	c.ix.positionsOpen.remove(id)
	c.ix.positionsClosed.remove(id)
	delete(c.ix.positionStrategy, id)
	delete(c.ix.positionOrders, id)
	for venue, set := range c.ix.venuePositions {
		delete(set, id)
		if len(set) == 0 {
			delete(c.ix.venuePositions, venue)
		}
	}
	for inst, set := range c.ix.instrumentPositions {
		delete(set, id)
		if len(set) == 0 {
			delete(c.ix.instrumentPositions, inst)
		}
	}
	for strat, set := range c.ix.strategyPositions {
		delete(set, id)
		if len(set) == 0 {
			delete(c.ix.strategyPositions, strat)
		}
	}

	if c.mirror != nil {
		if err := c.mirror.DeletePosition(id); err != nil {
			return err
		}
	}
	return nil
}

// AddQuote pushes a quote tick onto its instrument's bounded deque,
// evicting the oldest entry if at capacity.
func (c *Cache) AddQuote(q QuoteTick) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.quotes[q.InstrumentID]
	if !ok {
		d = newBoundedDeque[QuoteTick](c.cfg.QuoteCapacity)
		c.quotes[q.InstrumentID] = d
	}
	d.pushFront(q)
	if c.mirror != nil {
		return c.mirror.AddQuote(q)
	}
	return nil
}

// AddTrade pushes a trade tick onto its instrument's bounded deque.
func (c *Cache) AddTrade(t TradeTick) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.trades[t.InstrumentID]
	if !ok {
		d = newBoundedDeque[TradeTick](c.cfg.TradeCapacity)
		c.trades[t.InstrumentID] = d
	}
	d.pushFront(t)
	if c.mirror != nil {
		return c.mirror.AddTrade(t)
	}
	return nil
}

// AddBar pushes a bar onto its bar-type's bounded deque.
func (c *Cache) AddBar(b Bar) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.bars[b.BarType]
	if !ok {
		d = newBoundedDeque[Bar](c.cfg.BarCapacity)
		c.bars[b.BarType] = d
	}
	d.pushFront(b)
	if c.mirror != nil {
		return c.mirror.AddBar(b)
	}
	return nil
}

// AddOrderBook stores the latest book snapshot indexed by instrument id.
func (c *Cache) AddOrderBook(book OrderBookSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books[book.InstrumentID] = book
}

// QuoteTick returns the most recent quote for an instrument, if any.
func (c *Cache) QuoteTick(id core.InstrumentID) (QuoteTick, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.quotes[id]
	if !ok {
		return QuoteTick{}, false
	}
	return d.front()
}

// TradeTick returns the most recent trade for an instrument, if any.
func (c *Cache) TradeTick(id core.InstrumentID) (TradeTick, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.trades[id]
	if !ok {
		return TradeTick{}, false
	}
	return d.front()
}

// Bar returns the most recent bar for a bar type, if any.
func (c *Cache) Bar(bt core.BarType) (Bar, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.bars[bt]
	if !ok {
		return Bar{}, false
	}
	return d.front()
}

// OrderBook returns the latest order book snapshot for an instrument.
func (c *Cache) OrderBook(id core.InstrumentID) (OrderBookSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.books[id]
	return b, ok
}

// Order returns the order registered under id, if any.
func (c *Cache) Order(id core.ClientOrderID) (Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.orders[id]
	return o, ok
}

// Position returns the position registered under id, if any.
func (c *Cache) Position(id core.PositionID) (*position.Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.positions[id]
	return p, ok
}

// BuildIndex clears and rebuilds every index from the entity stores.
func (c *Cache) BuildIndex() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ix.reset()
	for id, order := range c.orders {
		c.ix.orders.add(id)
		c.updateStatusSetsLocked(order)
		if order.Venue != "" {
			c.ix.venueOrders.add(order.Venue, id)
		}
		c.ix.instrumentOrders.add(order.InstrumentID, id)
		if order.StrategyID != "" {
			c.ix.strategyOrders.add(order.StrategyID, id)
			c.ix.orderStrategy[id] = order.StrategyID
			c.ix.strategies[order.StrategyID] = struct{}{}
		}
		if order.ExecAlgorithmID != nil {
			c.ix.execAlgorithmOrders.add(*order.ExecAlgorithmID, id)
			c.ix.execAlgorithms[*order.ExecAlgorithmID] = struct{}{}
		}
		if order.ExecSpawnID != nil {
			c.ix.execSpawnOrders.add(*order.ExecSpawnID, id)
		}
		if order.VenueOrderID != nil {
			c.ix.clientOrderIDs[id] = *order.VenueOrderID
			c.ix.venueOrderIDs[*order.VenueOrderID] = id
		}
	}
	for id, p := range c.positions {
		c.ix.positions.add(id)
		if p.IsOpen() {
			c.ix.positionsOpen.add(id)
		} else {
			c.ix.positionsClosed.add(id)
		}
		c.ix.instrumentPositions.add(p.InstrumentID, id)
		if p.StrategyID != "" {
			c.ix.strategyPositions.add(p.StrategyID, id)
			c.ix.positionStrategy[id] = p.StrategyID
		}
		for _, coid := range p.ClientOrderIDs() {
			c.ix.orderPosition[coid] = id
			c.ix.positionOrders.add(id, coid)
		}
		if openingOrder, ok := c.orders[p.OpeningOrderID]; ok && openingOrder.Venue != "" {
			c.ix.venuePositions.add(openingOrder.Venue, id)
		}
	}
	for _, a := range c.accounts {
		c.ix.venueAccount[a.Venue] = a.ID
	}
}

// CheckResiduals reports whether any open order or open position remains.
func (c *Cache) CheckResiduals() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ix.ordersOpen) > 0 || len(c.ix.positionsOpen) > 0
}

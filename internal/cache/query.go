package cache

import "coreruntime/internal/core"

// OrderFilter narrows a client-order-id query. A nil field means "no
// narrowing" on that dimension; a non-nil field that maps to no entries
// yields an empty result, never an error.
type OrderFilter struct {
	Venue      *core.Venue
	InstrumentID *core.InstrumentID
	StrategyID *core.StrategyID
	Side       *core.OrderSide
}

func (c *Cache) filteredOrderIDs(base idSet, f OrderFilter) []core.ClientOrderID {
	sets := []idSet{base}
	if f.Venue != nil {
		sets = append(sets, c.ix.venueOrders[*f.Venue])
	}
	if f.InstrumentID != nil {
		sets = append(sets, c.ix.instrumentOrders[*f.InstrumentID])
	}
	if f.StrategyID != nil {
		sets = append(sets, c.ix.strategyOrders[*f.StrategyID])
	}
	result := intersect(sets...)
	ids := result.toSlice()
	if f.Side == nil {
		return ids
	}
	filtered := make([]core.ClientOrderID, 0, len(ids))
	for _, id := range ids {
		if order, ok := c.orders[id]; ok && order.Side == *f.Side {
			filtered = append(filtered, id)
		}
	}
	return filtered
}

// ClientOrderIDs returns every client order id matching the filter.
func (c *Cache) ClientOrderIDs(f OrderFilter) []core.ClientOrderID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filteredOrderIDs(c.ix.orders, f)
}

// ClientOrderIDsOpen returns open client order ids matching the filter.
func (c *Cache) ClientOrderIDsOpen(f OrderFilter) []core.ClientOrderID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filteredOrderIDs(c.ix.ordersOpen, f)
}

// ClientOrderIDsClosed returns closed client order ids matching the filter.
func (c *Cache) ClientOrderIDsClosed(f OrderFilter) []core.ClientOrderID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filteredOrderIDs(c.ix.ordersClosed, f)
}

// ClientOrderIDsEmulated returns emulated client order ids matching the filter.
func (c *Cache) ClientOrderIDsEmulated(f OrderFilter) []core.ClientOrderID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filteredOrderIDs(c.ix.ordersEmulated, f)
}

// ClientOrderIDsInflight returns inflight client order ids matching the filter.
func (c *Cache) ClientOrderIDsInflight(f OrderFilter) []core.ClientOrderID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filteredOrderIDs(c.ix.ordersInflight, f)
}

// OrdersOpenCount returns the number of open orders matching the filter.
func (c *Cache) OrdersOpenCount(f OrderFilter) int { return len(c.ClientOrderIDsOpen(f)) }

// OrdersTotalCount returns the total number of orders matching the filter.
func (c *Cache) OrdersTotalCount(f OrderFilter) int { return len(c.ClientOrderIDs(f)) }

// VenueOrderID returns the venue order id mapped to a client order id.
func (c *Cache) VenueOrderID(id core.ClientOrderID) (core.VenueOrderID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.ix.clientOrderIDs[id]
	return v, ok
}

// ClientOrderID returns the client order id mapped to a venue order id.
func (c *Cache) ClientOrderID(id core.VenueOrderID) (core.ClientOrderID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.ix.venueOrderIDs[id]
	return v, ok
}

// PositionFilter narrows a position-id query, same "no narrowing on nil"
// semantics as OrderFilter.
type PositionFilter struct {
	Venue        *core.Venue
	InstrumentID *core.InstrumentID
	StrategyID   *core.StrategyID
}

func (c *Cache) filteredPositionIDs(base positionIDSet, f PositionFilter) []core.PositionID {
	result := make(positionIDSet, len(base))
	for id := range base {
		result.add(id)
	}
	narrow := func(allowed positionIDSet) {
		if allowed == nil {
			for id := range result {
				result.remove(id)
			}
			return
		}
		for id := range result {
			if _, ok := allowed[id]; !ok {
				result.remove(id)
			}
		}
	}
	if f.Venue != nil {
		narrow(c.ix.venuePositions[*f.Venue])
	}
	if f.InstrumentID != nil {
		narrow(c.ix.instrumentPositions[*f.InstrumentID])
	}
	if f.StrategyID != nil {
		narrow(c.ix.strategyPositions[*f.StrategyID])
	}
	out := make([]core.PositionID, 0, len(result))
	for id := range result {
		out = append(out, id)
	}
	return out
}

// PositionIDs returns every position id matching the filter.
func (c *Cache) PositionIDs(f PositionFilter) []core.PositionID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filteredPositionIDs(c.ix.positions, f)
}

// PositionIDsOpen returns open position ids matching the filter.
func (c *Cache) PositionIDsOpen(f PositionFilter) []core.PositionID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filteredPositionIDs(c.ix.positionsOpen, f)
}

// PositionIDsClosed returns closed position ids matching the filter.
func (c *Cache) PositionIDsClosed(f PositionFilter) []core.PositionID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filteredPositionIDs(c.ix.positionsClosed, f)
}

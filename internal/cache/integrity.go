package cache

// CheckIntegrity checks the cache's invariants without mutating state: the
// orders set against the order store (both ways), that no order sits in
// more than one of the inflight/open/closed sets, that every order_position
// entry is mirrored in position_orders, the positions set against the
// position store (both ways), and that each position is in exactly the one
// of positions_open/positions_closed matching its state. The venue,
// instrument, strategy and exec-algorithm indexes and the remaining maps
// are not checked. Each violation is logged and the overall result is
// false if any were found.
func (c *Cache) CheckIntegrity() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ok := true
	report := func(msg string, args ...any) {
		ok = false
		c.logger.Warn("cache integrity violation: "+msg, args...)
	}

	for id := range c.orders {
		if !c.ix.orders.contains(id) {
			report("order missing from orders set", "client_order_id", id)
		}
	}
	for id := range c.ix.orders {
		if _, exists := c.orders[id]; !exists {
			report("orders set references unknown order", "client_order_id", id)
		}
	}

	statusSets := []idSet{c.ix.ordersInflight, c.ix.ordersOpen, c.ix.ordersClosed}
	seen := make(map[string]int)
	for i, s := range statusSets {
		for id := range s {
			seen[string(id)] |= 1 << i
		}
	}
	for id, mask := range seen {
		if mask&(mask-1) != 0 {
			report("order present in more than one status set", "client_order_id", id)
		}
	}

	for id, posID := range c.ix.orderPosition {
		set, ok := c.ix.positionOrders[posID]
		if !ok || !set.contains(id) {
			report("order_position entry not mirrored in position_orders", "client_order_id", id, "position_id", posID)
		}
	}

	for id := range c.positions {
		if !c.ix.positions.contains(id) {
			report("position missing from positions set", "position_id", id)
		}
	}
	for id := range c.ix.positions {
		if _, exists := c.positions[id]; !exists {
			report("positions set references unknown position", "position_id", id)
		}
	}
	for id, p := range c.positions {
		isOpen := c.ix.positionsOpen.contains(id)
		isClosed := c.ix.positionsClosed.contains(id)
		if p.IsOpen() && !isOpen {
			report("open position missing from positions_open", "position_id", id)
		}
		if p.IsClosed() && !isClosed {
			report("closed position missing from positions_closed", "position_id", id)
		}
		if isOpen == isClosed {
			report("position present in both or neither of positions_open/closed", "position_id", id)
		}
	}

	return ok
}

package cache

import "coreruntime/internal/core"

// idSet is an insertion-unordered set of client order ids, used for the six
// order-id index sets and as the value sets of the order multimaps.
type idSet map[core.ClientOrderID]struct{}

func (s idSet) add(id core.ClientOrderID)      { s[id] = struct{}{} }
func (s idSet) remove(id core.ClientOrderID)   { delete(s, id) }
func (s idSet) contains(id core.ClientOrderID) bool { _, ok := s[id]; return ok }

func (s idSet) toSlice() []core.ClientOrderID {
	out := make([]core.ClientOrderID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

func intersect(sets ...idSet) idSet {
	if len(sets) == 0 {
		return nil
	}
	for _, s := range sets {
		if s == nil {
			return make(idSet)
		}
	}
	result := make(idSet, len(sets[0]))
	for id := range sets[0] {
		result.add(id)
	}
	for _, s := range sets[1:] {
		for id := range result {
			if !s.contains(id) {
				result.remove(id)
			}
		}
	}
	return result
}

// positionIDSet is a set of position ids, used for the positions/open/closed
// index sets.
type positionIDSet map[core.PositionID]struct{}

func (s positionIDSet) add(id core.PositionID)    { s[id] = struct{}{} }
func (s positionIDSet) remove(id core.PositionID) { delete(s, id) }
func (s positionIDSet) contains(id core.PositionID) bool {
	_, ok := s[id]
	return ok
}

// multimapOrders maps a single key (venue, instrument, strategy, ...) to a
// set of client order ids.
type multimapOrders[K comparable] map[K]idSet

func (m multimapOrders[K]) add(key K, id core.ClientOrderID) {
	s, ok := m[key]
	if !ok {
		s = make(idSet)
		m[key] = s
	}
	s.add(id)
}

func (m multimapOrders[K]) remove(key K, id core.ClientOrderID) {
	if s, ok := m[key]; ok {
		s.remove(id)
		if len(s) == 0 {
			delete(m, key)
		}
	}
}

// multimapPositions maps a single key to a set of position ids.
type multimapPositions[K comparable] map[K]positionIDSet

func (m multimapPositions[K]) add(key K, id core.PositionID) {
	s, ok := m[key]
	if !ok {
		s = make(positionIDSet)
		m[key] = s
	}
	s.add(id)
}

// index holds the 28 derived collections described by the cache contract:
// 7 maps, 9 multimaps, and 12 sets.
type index struct {
	// Maps (7).
	venueAccount     map[core.Venue]core.AccountID
	venueOrderIDs    map[core.VenueOrderID]core.ClientOrderID
	clientOrderIDs   map[core.ClientOrderID]core.VenueOrderID
	orderPosition    map[core.ClientOrderID]core.PositionID
	orderStrategy    map[core.ClientOrderID]core.StrategyID
	orderClient      map[core.ClientOrderID]core.ClientID
	positionStrategy map[core.PositionID]core.StrategyID

	// Multimaps (9).
	venueOrders         multimapOrders[core.Venue]
	venuePositions      multimapPositions[core.Venue]
	positionOrders      multimapOrders[core.PositionID]
	instrumentOrders    multimapOrders[core.InstrumentID]
	instrumentPositions multimapPositions[core.InstrumentID]
	strategyOrders      multimapOrders[core.StrategyID]
	strategyPositions   multimapPositions[core.StrategyID]
	execAlgorithmOrders multimapOrders[core.ExecAlgorithmID]
	execSpawnOrders     multimapOrders[core.ExecSpawnID]

	// Sets (12).
	orders              idSet
	ordersOpen          idSet
	ordersClosed        idSet
	ordersEmulated      idSet
	ordersInflight      idSet
	ordersPendingCancel idSet
	positions           positionIDSet
	positionsOpen       positionIDSet
	positionsClosed     positionIDSet
	actors              map[string]struct{}
	strategies          map[core.StrategyID]struct{}
	execAlgorithms      map[core.ExecAlgorithmID]struct{}
}

func newIndex() *index {
	return &index{
		venueAccount:     make(map[core.Venue]core.AccountID),
		venueOrderIDs:    make(map[core.VenueOrderID]core.ClientOrderID),
		clientOrderIDs:   make(map[core.ClientOrderID]core.VenueOrderID),
		orderPosition:    make(map[core.ClientOrderID]core.PositionID),
		orderStrategy:    make(map[core.ClientOrderID]core.StrategyID),
		orderClient:      make(map[core.ClientOrderID]core.ClientID),
		positionStrategy: make(map[core.PositionID]core.StrategyID),

		venueOrders:         make(multimapOrders[core.Venue]),
		venuePositions:      make(multimapPositions[core.Venue]),
		positionOrders:      make(multimapOrders[core.PositionID]),
		instrumentOrders:    make(multimapOrders[core.InstrumentID]),
		instrumentPositions: make(multimapPositions[core.InstrumentID]),
		strategyOrders:      make(multimapOrders[core.StrategyID]),
		strategyPositions:   make(multimapPositions[core.StrategyID]),
		execAlgorithmOrders: make(multimapOrders[core.ExecAlgorithmID]),
		execSpawnOrders:     make(multimapOrders[core.ExecSpawnID]),

		orders:              make(idSet),
		ordersOpen:          make(idSet),
		ordersClosed:        make(idSet),
		ordersEmulated:      make(idSet),
		ordersInflight:      make(idSet),
		ordersPendingCancel: make(idSet),
		positions:           make(positionIDSet),
		positionsOpen:       make(positionIDSet),
		positionsClosed:     make(positionIDSet),
		actors:              make(map[string]struct{}),
		strategies:          make(map[core.StrategyID]struct{}),
		execAlgorithms:      make(map[core.ExecAlgorithmID]struct{}),
	}
}

func (ix *index) reset() { *ix = *newIndex() }

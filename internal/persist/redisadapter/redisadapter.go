// Package redisadapter persists cache entities to Redis, bit-exact on the
// key scheme of the original implementation's Redis cache so operators
// migrating from it can read an existing dataset:
// "trader-<trader_id>[:<instance_id>]:<collection>:<id>", with index keys
// under "index:*". Collections map one-to-one to entity kinds; indexes come
// in three shapes (SET, HASH, append-only LIST).
package redisadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"coreruntime/internal/cache"
	"coreruntime/internal/core"
	"coreruntime/internal/persist"
	"coreruntime/internal/position"
)

// Config identifies the trader/instance scope this adapter's keys are
// namespaced under, plus the Redis connection.
type Config struct {
	Addr       string
	Password   string
	DB         int
	TraderID   string
	InstanceID string // optional; appended to the key scope when non-empty
}

// Adapter implements persist.Adapter against a single Redis database.
type Adapter struct {
	rdb *redis.Client
	cfg Config
	ctx context.Context
}

// New constructs an Adapter and verifies connectivity with a PING.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Adapter{rdb: rdb, cfg: cfg, ctx: ctx}, nil
}

var _ persist.Adapter = (*Adapter)(nil)

func (a *Adapter) scope() string {
	if a.cfg.InstanceID != "" {
		return fmt.Sprintf("trader-%s:%s", a.cfg.TraderID, a.cfg.InstanceID)
	}
	return fmt.Sprintf("trader-%s", a.cfg.TraderID)
}

func (a *Adapter) key(collection, id string) string {
	return fmt.Sprintf("%s:%s:%s", a.scope(), collection, id)
}

func (a *Adapter) indexKey(name string) string {
	return fmt.Sprintf("index:%s:%s", a.scope(), name)
}

func (a *Adapter) Close() error { return a.rdb.Close() }

// Flush removes every key under this adapter's trader/instance scope.
func (a *Adapter) Flush() error {
	iter := a.rdb.Scan(a.ctx, 0, a.scope()+":*", 0).Iterator()
	pipe := a.rdb.Pipeline()
	n := 0
	for iter.Next(a.ctx) {
		pipe.Del(a.ctx, iter.Val())
		n++
		if n >= 500 {
			if _, err := pipe.Exec(a.ctx); err != nil {
				return fmt.Errorf("flush: %w", err)
			}
			pipe = a.rdb.Pipeline()
			n = 0
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("flush scan: %w", err)
	}
	if n > 0 {
		if _, err := pipe.Exec(a.ctx); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}
	return nil
}

func setJSON[T any](a *Adapter, collection, id string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s %s: %w", collection, id, err)
	}
	return a.rdb.Set(a.ctx, a.key(collection, id), data, 0).Err()
}

func getJSON[T any](a *Adapter, collection, id string) (T, error) {
	var v T
	data, err := a.rdb.Get(a.ctx, a.key(collection, id)).Bytes()
	if err == redis.Nil {
		return v, core.ErrNotFound
	}
	if err != nil {
		return v, fmt.Errorf("get %s %s: %w", collection, id, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("unmarshal %s %s: %w", collection, id, err)
	}
	return v, nil
}

func (a *Adapter) LoadCurrency(c core.Currency) (core.Currency, error) {
	if a.rdb.SIsMember(a.ctx, a.indexKey("currencies"), string(c)).Val() {
		return c, nil
	}
	return "", core.ErrNotFound
}
func (a *Adapter) LoadInstrument(id core.InstrumentID) (core.Instrument, error) {
	return getJSON[core.Instrument](a, "instruments", string(id))
}
func (a *Adapter) LoadSynthetic(id core.InstrumentID) (cache.Synthetic, error) {
	return getJSON[cache.Synthetic](a, "synthetics", string(id))
}
func (a *Adapter) LoadAccount(id core.AccountID) (cache.Account, error) {
	return getJSON[cache.Account](a, "accounts", string(id))
}
func (a *Adapter) LoadOrder(id core.ClientOrderID) (cache.Order, error) {
	return getJSON[cache.Order](a, "orders", string(id))
}
func (a *Adapter) LoadPosition(id core.PositionID) (*position.Position, error) {
	p, err := getJSON[*position.Position](a, "positions", string(id))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// LoadAll performs a cold-start load of every entity collection. Market
// data and event streams are not replayed into the snapshot; the cache
// rebuilds those from live feeds.
func (a *Adapter) LoadAll() (*persist.CacheSnapshot, error) {
	snap := &persist.CacheSnapshot{}

	currencies, err := a.rdb.SMembers(a.ctx, a.indexKey("currencies")).Result()
	if err != nil {
		return nil, fmt.Errorf("load currencies: %w", err)
	}
	for _, c := range currencies {
		snap.Currencies = append(snap.Currencies, core.Currency(c))
	}

	loadAll := func(indexName string, dst func([]byte) error) error {
		ids, err := a.rdb.SMembers(a.ctx, a.indexKey(indexName)).Result()
		if err != nil {
			return err
		}
		collection := indexName
		for _, id := range ids {
			data, err := a.rdb.Get(a.ctx, a.key(collection, id)).Bytes()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return err
			}
			if err := dst(data); err != nil {
				return err
			}
		}
		return nil
	}

	if err := loadAll("instruments", func(data []byte) error {
		var inst core.Instrument
		if err := json.Unmarshal(data, &inst); err != nil {
			return err
		}
		snap.Instruments = append(snap.Instruments, inst)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load instruments: %w", err)
	}

	if err := loadAll("synthetics", func(data []byte) error {
		var s cache.Synthetic
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		snap.Synthetics = append(snap.Synthetics, s)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load synthetics: %w", err)
	}

	if err := loadAll("accounts", func(data []byte) error {
		var acc cache.Account
		if err := json.Unmarshal(data, &acc); err != nil {
			return err
		}
		snap.Accounts = append(snap.Accounts, acc)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	if err := loadAll("orders", func(data []byte) error {
		var o cache.Order
		if err := json.Unmarshal(data, &o); err != nil {
			return err
		}
		snap.Orders = append(snap.Orders, o)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	if err := loadAll("positions", func(data []byte) error {
		var p position.Position
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		snap.Positions = append(snap.Positions, &p)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}

	return snap, nil
}

// AddCurrency inserts the currency code into the currencies SET index.
func (a *Adapter) AddCurrency(c core.Currency) error {
	return a.rdb.SAdd(a.ctx, a.indexKey("currencies"), string(c)).Err()
}

func (a *Adapter) AddInstrument(inst core.Instrument) error {
	if err := setJSON(a, "instruments", string(inst.ID), inst); err != nil {
		return err
	}
	return a.rdb.SAdd(a.ctx, a.indexKey("instruments"), string(inst.ID)).Err()
}

func (a *Adapter) AddSynthetic(s cache.Synthetic) error {
	if err := setJSON(a, "synthetics", string(s.ID), s); err != nil {
		return err
	}
	return a.rdb.SAdd(a.ctx, a.indexKey("synthetics"), string(s.ID)).Err()
}

func (a *Adapter) AddAccount(acc cache.Account) error {
	if err := setJSON(a, "accounts", string(acc.ID), acc); err != nil {
		return err
	}
	return a.rdb.SAdd(a.ctx, a.indexKey("accounts"), string(acc.ID)).Err()
}

// AddOrder inserts the order and fans it out to the by-instrument and
// by-strategy HASH indexes, matching the original cache's order indexing.
func (a *Adapter) AddOrder(o cache.Order) error {
	pipe := a.rdb.TxPipeline()
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	pipe.Set(a.ctx, a.key("orders", string(o.ClientOrderID)), data, 0)
	pipe.SAdd(a.ctx, a.indexKey("orders"), string(o.ClientOrderID))
	pipe.HSet(a.ctx, a.indexKey("orders_by_instrument"), string(o.ClientOrderID), string(o.InstrumentID))
	pipe.HSet(a.ctx, a.indexKey("orders_by_strategy"), string(o.ClientOrderID), string(o.StrategyID))
	pipe.RPush(a.ctx, a.indexKey("order_events:"+string(o.ClientOrderID)), data)
	_, err = pipe.Exec(a.ctx)
	if err != nil {
		return fmt.Errorf("add order: %w", err)
	}
	return nil
}

func (a *Adapter) AddPosition(p *position.Position) error {
	pipe := a.rdb.TxPipeline()
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}
	pipe.Set(a.ctx, a.key("positions", string(p.ID)), data, 0)
	pipe.SAdd(a.ctx, a.indexKey("positions"), string(p.ID))
	pipe.HSet(a.ctx, a.indexKey("positions_by_instrument"), string(p.ID), string(p.InstrumentID))
	pipe.RPush(a.ctx, a.indexKey("position_events:"+string(p.ID)), data)
	_, err = pipe.Exec(a.ctx)
	if err != nil {
		return fmt.Errorf("add position: %w", err)
	}
	return nil
}

// UpdateOrder insert-or-replaces the order's current-state key; it does
// not touch the append-only order_events LIST.
func (a *Adapter) UpdateOrder(o cache.Order) error {
	return setJSON(a, "orders", string(o.ClientOrderID), o)
}

func (a *Adapter) UpdatePosition(p *position.Position) error {
	return setJSON(a, "positions", string(p.ID), p)
}

func (a *Adapter) UpdateAccount(acc cache.Account) error {
	return setJSON(a, "accounts", string(acc.ID), acc)
}

// DeleteOrder fans out to every SET/HASH index within a single pipelined
// transaction.
func (a *Adapter) DeleteOrder(id core.ClientOrderID) error {
	var venueOrderID *core.VenueOrderID
	if o, err := getJSON[cache.Order](a, "orders", string(id)); err == nil {
		venueOrderID = o.VenueOrderID
	}
	pipe := a.rdb.TxPipeline()
	pipe.Del(a.ctx, a.key("orders", string(id)))
	pipe.SRem(a.ctx, a.indexKey("orders"), string(id))
	pipe.HDel(a.ctx, a.indexKey("orders_by_instrument"), string(id))
	pipe.HDel(a.ctx, a.indexKey("orders_by_strategy"), string(id))
	pipe.HDel(a.ctx, a.indexKey("order_positions"), string(id))
	if venueOrderID != nil {
		pipe.HDel(a.ctx, a.indexKey("venue_order_ids"), string(*venueOrderID))
	}
	pipe.Del(a.ctx, a.indexKey("order_events:"+string(id)))
	_, err := pipe.Exec(a.ctx)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func (a *Adapter) DeletePosition(id core.PositionID) error {
	pipe := a.rdb.TxPipeline()
	pipe.Del(a.ctx, a.key("positions", string(id)))
	pipe.SRem(a.ctx, a.indexKey("positions"), string(id))
	pipe.HDel(a.ctx, a.indexKey("positions_by_instrument"), string(id))
	pipe.Del(a.ctx, a.indexKey("position_events:"+string(id)))
	_, err := pipe.Exec(a.ctx)
	if err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	return nil
}

func (a *Adapter) DeleteAccountEvent(id core.AccountID, eventID string) error {
	return a.rdb.LRem(a.ctx, a.indexKey("account_events:"+string(id)), 1, eventID).Err()
}

func (a *Adapter) AddOrderBook(book cache.OrderBookSnapshot) error {
	return setJSON(a, "books", string(book.InstrumentID), book)
}

func (a *Adapter) AddQuote(q cache.QuoteTick) error {
	return a.rdb.RPush(a.ctx, a.key("quotes", string(q.InstrumentID)), mustJSON(q)).Err()
}

func (a *Adapter) AddTrade(t cache.TradeTick) error {
	return a.rdb.RPush(a.ctx, a.key("trades", string(t.InstrumentID)), mustJSON(t)).Err()
}

func (a *Adapter) AddBar(b cache.Bar) error {
	return a.rdb.RPush(a.ctx, a.key("bars", string(b.BarType)), mustJSON(b)).Err()
}

func (a *Adapter) AddSignal(name string, value any, ts core.UnixNanos) error {
	return a.rdb.RPush(a.ctx, a.key("signals", name), mustJSON(struct {
		Value any
		Ts    core.UnixNanos
	}{value, ts})).Err()
}

func (a *Adapter) AddCustomData(dataType string, payload []byte, ts core.UnixNanos) error {
	return a.rdb.RPush(a.ctx, a.key("custom", dataType), mustJSON(struct {
		Payload []byte
		Ts      core.UnixNanos
	}{payload, ts})).Err()
}

func (a *Adapter) SnapshotOrderState(o cache.Order) error {
	return setJSON(a, "order_snapshots", string(o.ClientOrderID), o)
}

func (a *Adapter) SnapshotPositionState(p *position.Position) error {
	return setJSON(a, "position_snapshots", string(p.ID), p)
}

func (a *Adapter) Heartbeat(instanceID string, ts core.UnixNanos) error {
	return a.rdb.Set(a.ctx, fmt.Sprintf("index:%s:heartbeat:%s", a.scope(), instanceID),
		fmt.Sprintf("%d", ts), 30*time.Second).Err()
}

func (a *Adapter) IndexVenueOrderID(venueOrderID core.VenueOrderID, clientOrderID core.ClientOrderID) error {
	return a.rdb.HSet(a.ctx, a.indexKey("venue_order_ids"), string(venueOrderID), string(clientOrderID)).Err()
}

func (a *Adapter) IndexOrderPosition(clientOrderID core.ClientOrderID, positionID core.PositionID) error {
	return a.rdb.HSet(a.ctx, a.indexKey("order_positions"), string(clientOrderID), string(positionID)).Err()
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Every argument passed through mustJSON is a plain value type
		// from cache/core with no cyclic or unmarshalable fields.
		panic(fmt.Sprintf("redisadapter: marshal %T: %v", v, err))
	}
	return data
}

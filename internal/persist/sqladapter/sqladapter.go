// Package sqladapter persists cache entities to Postgres via gorm, and
// additionally exposes the DeFi extension tables (block/pool/token and
// per-pool event streams) partitioned by chain id, grounded on
// original_source's sqlx-based Postgres adapter.
package sqladapter

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"coreruntime/internal/cache"
	"coreruntime/internal/core"
	"coreruntime/internal/persist"
	"coreruntime/internal/position"
)

// Config is the Postgres DSN and migration switch.
type Config struct {
	DSN         string
	AutoMigrate bool
}

// Adapter implements persist.Adapter against Postgres, plus the DeFi
// extension's chain/pool tables.
type Adapter struct {
	db *gorm.DB
}

// New opens the database and, if cfg.AutoMigrate, creates every table and
// the get_last_continuous_block() stored function this adapter depends on.
func New(cfg Config) (*Adapter, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a := &Adapter{db: db}
	if cfg.AutoMigrate {
		if err := a.migrate(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

var _ persist.Adapter = (*Adapter)(nil)

func (a *Adapter) migrate() error {
	if err := a.db.AutoMigrate(
		&currencyModel{}, &instrumentModel{}, &syntheticModel{}, &accountModel{},
		&orderModel{}, &positionModel{}, &heartbeatModel{},
		&venueOrderIndexModel{}, &orderPositionIndexModel{},
		&blockModel{}, &tokenModel{}, &poolModel{},
		&poolSwapEventModel{}, &poolLiquidityEventModel{}, &poolCollectEventModel{},
		&poolFlashEventModel{}, &poolSnapshotModel{}, &poolPositionModel{}, &poolTickModel{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return a.createLastContinuousBlockFunction()
}

// createLastContinuousBlockFunction installs the Postgres function the
// original adapter's block-consistency query relies on: the largest block
// number N such that every block in [0, N] for that chain is present.
func (a *Adapter) createLastContinuousBlockFunction() error {
	return a.db.Exec(`
		CREATE OR REPLACE FUNCTION get_last_continuous_block(p_chain_id int)
		RETURNS bigint AS $$
			SELECT COALESCE(MIN(b.number), -1)
			FROM block b
			WHERE b.chain_id = p_chain_id
			  AND NOT EXISTS (
			    SELECT 1 FROM block b2
			    WHERE b2.chain_id = p_chain_id AND b2.number = b.number + 1
			  )
			  AND EXISTS (SELECT 1 FROM block b0 WHERE b0.chain_id = p_chain_id AND b0.number = 0)
		$$ LANGUAGE sql STABLE;
	`).Error
}

func (a *Adapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Flush truncates every entity table this adapter owns.
func (a *Adapter) Flush() error {
	tables := []string{
		"currency", "instrument", "synthetic", "account", "trading_order",
		"trading_position", "heartbeat", "index_venue_order_id", "index_order_position",
	}
	for _, t := range tables {
		if err := a.db.Exec(fmt.Sprintf("TRUNCATE TABLE %s", t)).Error; err != nil {
			return fmt.Errorf("truncate %s: %w", t, err)
		}
	}
	return nil
}

func (a *Adapter) LoadAll() (*persist.CacheSnapshot, error) {
	snap := &persist.CacheSnapshot{}

	var currencies []currencyModel
	if err := a.db.Find(&currencies).Error; err != nil {
		return nil, fmt.Errorf("load currencies: %w", err)
	}
	for _, c := range currencies {
		snap.Currencies = append(snap.Currencies, core.Currency(c.Code))
	}

	var instruments []instrumentModel
	if err := a.db.Find(&instruments).Error; err != nil {
		return nil, fmt.Errorf("load instruments: %w", err)
	}
	for _, m := range instruments {
		snap.Instruments = append(snap.Instruments, instrumentFromModel(m))
	}

	var synthetics []syntheticModel
	if err := a.db.Find(&synthetics).Error; err != nil {
		return nil, fmt.Errorf("load synthetics: %w", err)
	}
	for _, m := range synthetics {
		snap.Synthetics = append(snap.Synthetics, syntheticFromModel(m))
	}

	var accounts []accountModel
	if err := a.db.Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	for _, m := range accounts {
		acc, err := accountFromModel(m)
		if err != nil {
			return nil, err
		}
		snap.Accounts = append(snap.Accounts, acc)
	}

	var orders []orderModel
	if err := a.db.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	for _, m := range orders {
		snap.Orders = append(snap.Orders, orderFromModel(m))
	}

	var positions []positionModel
	if err := a.db.Find(&positions).Error; err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	for _, m := range positions {
		snap.Positions = append(snap.Positions, positionFromModel(m))
	}

	return snap, nil
}

func (a *Adapter) LoadCurrency(c core.Currency) (core.Currency, error) {
	var m currencyModel
	if err := a.db.First(&m, "code = ?", string(c)).Error; err != nil {
		return "", translateNotFound(err)
	}
	return core.Currency(m.Code), nil
}

func (a *Adapter) LoadInstrument(id core.InstrumentID) (core.Instrument, error) {
	var m instrumentModel
	if err := a.db.First(&m, "id = ?", string(id)).Error; err != nil {
		return core.Instrument{}, translateNotFound(err)
	}
	return instrumentFromModel(m), nil
}

func (a *Adapter) LoadSynthetic(id core.InstrumentID) (cache.Synthetic, error) {
	var m syntheticModel
	if err := a.db.First(&m, "id = ?", string(id)).Error; err != nil {
		return cache.Synthetic{}, translateNotFound(err)
	}
	return syntheticFromModel(m), nil
}

func (a *Adapter) LoadAccount(id core.AccountID) (cache.Account, error) {
	var m accountModel
	if err := a.db.First(&m, "id = ?", string(id)).Error; err != nil {
		return cache.Account{}, translateNotFound(err)
	}
	return accountFromModel(m)
}

func (a *Adapter) LoadOrder(id core.ClientOrderID) (cache.Order, error) {
	var m orderModel
	if err := a.db.First(&m, "client_order_id = ?", string(id)).Error; err != nil {
		return cache.Order{}, translateNotFound(err)
	}
	return orderFromModel(m), nil
}

func (a *Adapter) LoadPosition(id core.PositionID) (*position.Position, error) {
	var m positionModel
	if err := a.db.First(&m, "id = ?", string(id)).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return positionFromModel(m), nil
}

func (a *Adapter) AddCurrency(c core.Currency) error {
	return a.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&currencyModel{Code: string(c)}).Error
}

func (a *Adapter) AddInstrument(inst core.Instrument) error {
	m := instrumentToModel(inst)
	return a.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
}

func (a *Adapter) AddSynthetic(s cache.Synthetic) error {
	m := syntheticToModel(s)
	return a.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
}

func (a *Adapter) AddAccount(acc cache.Account) error {
	m, err := accountToModel(acc)
	if err != nil {
		return err
	}
	return a.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
}

func (a *Adapter) AddOrder(o cache.Order) error {
	m := orderToModel(o)
	return a.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
}

func (a *Adapter) AddPosition(p *position.Position) error {
	m := positionToModel(p)
	return a.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
}

func (a *Adapter) UpdateOrder(o cache.Order) error {
	m := orderToModel(o)
	return a.db.Model(&orderModel{}).Where("client_order_id = ?", m.ClientOrderID).Updates(&m).Error
}

func (a *Adapter) UpdatePosition(p *position.Position) error {
	m := positionToModel(p)
	return a.db.Model(&positionModel{}).Where("id = ?", m.ID).Updates(&m).Error
}

func (a *Adapter) UpdateAccount(acc cache.Account) error {
	m, err := accountToModel(acc)
	if err != nil {
		return err
	}
	return a.db.Model(&accountModel{}).Where("id = ?", m.ID).Updates(&m).Error
}

func (a *Adapter) DeleteOrder(id core.ClientOrderID) error {
	return a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&orderModel{}, "client_order_id = ?", string(id)).Error; err != nil {
			return err
		}
		return tx.Delete(&orderPositionIndexModel{}, "client_order_id = ?", string(id)).Error
	})
}

func (a *Adapter) DeletePosition(id core.PositionID) error {
	return a.db.Delete(&positionModel{}, "id = ?", string(id)).Error
}

func (a *Adapter) DeleteAccountEvent(core.AccountID, string) error {
	return core.ErrUnsupported
}

func (a *Adapter) AddOrderBook(cache.OrderBookSnapshot) error { return core.ErrUnsupported }
func (a *Adapter) AddQuote(cache.QuoteTick) error             { return core.ErrUnsupported }
func (a *Adapter) AddTrade(cache.TradeTick) error             { return core.ErrUnsupported }
func (a *Adapter) AddBar(cache.Bar) error                     { return core.ErrUnsupported }
func (a *Adapter) AddSignal(string, any, core.UnixNanos) error        { return core.ErrUnsupported }
func (a *Adapter) AddCustomData(string, []byte, core.UnixNanos) error { return core.ErrUnsupported }

func (a *Adapter) SnapshotOrderState(o cache.Order) error {
	return a.AddOrder(o)
}

func (a *Adapter) SnapshotPositionState(p *position.Position) error {
	return a.AddPosition(p)
}

func (a *Adapter) Heartbeat(instanceID string, ts core.UnixNanos) error {
	m := heartbeatModel{InstanceID: instanceID, Ts: int64(ts)}
	return a.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
}

func (a *Adapter) IndexVenueOrderID(venueOrderID core.VenueOrderID, clientOrderID core.ClientOrderID) error {
	m := venueOrderIndexModel{VenueOrderID: string(venueOrderID), ClientOrderID: string(clientOrderID)}
	return a.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
}

func (a *Adapter) IndexOrderPosition(clientOrderID core.ClientOrderID, positionID core.PositionID) error {
	m := orderPositionIndexModel{ClientOrderID: string(clientOrderID), PositionID: string(positionID)}
	return a.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
}

// AddBlocksBatch bulk-inserts blocks for chainID using a single
// INSERT ... ON CONFLICT DO NOTHING, gorm's equivalent of the original
// adapter's UNNEST-based batch insert.
func (a *Adapter) AddBlocksBatch(chainID uint32, blocks []Block) error {
	if len(blocks) == 0 {
		return nil
	}
	models := make([]blockModel, len(blocks))
	for i, b := range blocks {
		models[i] = blockModel{ChainID: chainID, Number: b.Number, Hash: b.Hash, Timestamp: b.Timestamp}
	}
	return a.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(models, 500).Error
}

// Block is the minimal block record the DeFi extension batches in.
type Block struct {
	Number    uint64
	Hash      string
	Timestamp int64
}

// GetLastContinuousBlock returns the largest block number N such that every
// block in [0, N] for chainID is present, via the installed stored
// function. It also returns 0 when block 0 itself is absent.
func (a *Adapter) GetLastContinuousBlock(chainID uint32) (uint64, error) {
	var n int64
	if err := a.db.Raw("SELECT get_last_continuous_block(?)", chainID).Scan(&n).Error; err != nil {
		return 0, fmt.Errorf("get_last_continuous_block: %w", err)
	}
	if n < 0 {
		return 0, nil
	}
	return uint64(n), nil
}

func translateNotFound(err error) error {
	if err == gorm.ErrRecordNotFound {
		return core.ErrNotFound
	}
	return err
}

func instrumentToModel(inst core.Instrument) instrumentModel {
	return instrumentModel{
		ID: string(inst.ID), PricePrecision: inst.PricePrecision, SizePrecision: inst.SizePrecision,
		Multiplier: inst.Multiplier, IsInverse: inst.IsInverse,
		BaseCurrency: string(inst.BaseCurrency), QuoteCurrency: string(inst.QuoteCurrency),
		SettlementCurrency: string(inst.SettlementCurrency),
	}
}

func instrumentFromModel(m instrumentModel) core.Instrument {
	return core.Instrument{
		ID: core.InstrumentID(m.ID), PricePrecision: m.PricePrecision, SizePrecision: m.SizePrecision,
		Multiplier: m.Multiplier, IsInverse: m.IsInverse,
		BaseCurrency: core.Currency(m.BaseCurrency), QuoteCurrency: core.Currency(m.QuoteCurrency),
		SettlementCurrency: core.Currency(m.SettlementCurrency),
	}
}

func syntheticToModel(s cache.Synthetic) syntheticModel {
	ids := make([]string, len(s.Components))
	for i, c := range s.Components {
		ids[i] = string(c)
	}
	return syntheticModel{ID: string(s.ID), Components: strings.Join(ids, ",")}
}

func syntheticFromModel(m syntheticModel) cache.Synthetic {
	var components []core.InstrumentID
	if m.Components != "" {
		for _, c := range strings.Split(m.Components, ",") {
			components = append(components, core.InstrumentID(c))
		}
	}
	return cache.Synthetic{ID: core.InstrumentID(m.ID), Components: components}
}

func accountToModel(acc cache.Account) (accountModel, error) {
	data, err := json.Marshal(acc.Balances)
	if err != nil {
		return accountModel{}, fmt.Errorf("marshal account balances: %w", err)
	}
	return accountModel{ID: string(acc.ID), Venue: string(acc.Venue), Balances: string(data)}, nil
}

func accountFromModel(m accountModel) (cache.Account, error) {
	balances := make(map[core.Currency]float64)
	if m.Balances != "" {
		if err := json.Unmarshal([]byte(m.Balances), &balances); err != nil {
			return cache.Account{}, fmt.Errorf("unmarshal account balances: %w", err)
		}
	}
	return cache.Account{ID: core.AccountID(m.ID), Venue: core.Venue(m.Venue), Balances: balances}, nil
}

func orderToModel(o cache.Order) orderModel {
	var venueOrderID string
	if o.VenueOrderID != nil {
		venueOrderID = string(*o.VenueOrderID)
	}
	return orderModel{
		ClientOrderID: string(o.ClientOrderID), TraderID: string(o.TraderID), StrategyID: string(o.StrategyID),
		InstrumentID: string(o.InstrumentID), VenueOrderID: venueOrderID, Venue: string(o.Venue),
		Side: int(o.Side), Quantity: o.Quantity.AsFloat64(), Price: o.Price.AsFloat64(),
		Status: int(o.Status), EmulationTrigger: o.EmulationTrigger,
	}
}

func orderFromModel(m orderModel) cache.Order {
	o := cache.Order{
		ClientOrderID: core.ClientOrderID(m.ClientOrderID), TraderID: core.TraderID(m.TraderID),
		StrategyID: core.StrategyID(m.StrategyID), InstrumentID: core.InstrumentID(m.InstrumentID),
		Venue: core.Venue(m.Venue), Side: core.OrderSide(m.Side),
		Quantity: core.NewQuantity(m.Quantity, 8), Price: core.NewPrice(m.Price, 8),
		Status: cache.OrderStatus(m.Status), EmulationTrigger: m.EmulationTrigger,
	}
	if m.VenueOrderID != "" {
		id := core.VenueOrderID(m.VenueOrderID)
		o.VenueOrderID = &id
	}
	return o
}

func positionToModel(p *position.Position) positionModel {
	return positionModel{
		ID: string(p.ID), TraderID: string(p.TraderID), StrategyID: string(p.StrategyID),
		InstrumentID: string(p.InstrumentID), AccountID: string(p.AccountID),
		OpeningOrderID: string(p.OpeningOrderID), EntrySide: int(p.EntrySide), Side: int(p.Side),
		SignedQty: p.SignedQty, PeakQty: p.PeakQty, TsOpened: int64(p.TsOpened), TsLast: int64(p.TsLast),
		AvgPxOpen: p.AvgPxOpen, RealizedReturn: p.RealizedReturn,
	}
}

func positionFromModel(m positionModel) *position.Position {
	return &position.Position{
		ID: core.PositionID(m.ID), TraderID: core.TraderID(m.TraderID), StrategyID: core.StrategyID(m.StrategyID),
		InstrumentID: core.InstrumentID(m.InstrumentID), AccountID: core.AccountID(m.AccountID),
		OpeningOrderID: core.ClientOrderID(m.OpeningOrderID), EntrySide: core.OrderSide(m.EntrySide),
		Side: core.PositionSide(m.Side), SignedQty: m.SignedQty, PeakQty: m.PeakQty,
		TsOpened: core.UnixNanos(m.TsOpened), TsLast: core.UnixNanos(m.TsLast),
		AvgPxOpen: m.AvgPxOpen, RealizedReturn: m.RealizedReturn,
	}
}

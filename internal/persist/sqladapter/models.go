package sqladapter

import "time"

// Entity-state models back persist.Adapter's core trading-state surface.

type instrumentModel struct {
	ID                 string `gorm:"primaryKey"`
	PricePrecision     uint8
	SizePrecision      uint8
	Multiplier         float64
	IsInverse          bool
	BaseCurrency       string
	QuoteCurrency      string
	SettlementCurrency string
}

func (instrumentModel) TableName() string { return "instrument" }

type currencyModel struct {
	Code string `gorm:"primaryKey"`
}

func (currencyModel) TableName() string { return "currency" }

type syntheticModel struct {
	ID         string `gorm:"primaryKey"`
	Components string // comma-joined InstrumentIDs
}

func (syntheticModel) TableName() string { return "synthetic" }

type accountModel struct {
	ID       string `gorm:"primaryKey"`
	Venue    string
	Balances string // JSON-encoded map[Currency]float64
}

func (accountModel) TableName() string { return "account" }

type orderModel struct {
	ClientOrderID    string `gorm:"primaryKey"`
	TraderID         string
	StrategyID       string
	InstrumentID     string `gorm:"index"`
	VenueOrderID     string
	Venue            string
	Side             int
	Quantity         float64
	Price            float64
	Status           int
	EmulationTrigger string
	UpdatedAt        time.Time
}

func (orderModel) TableName() string { return "trading_order" }

type positionModel struct {
	ID             string `gorm:"primaryKey"`
	TraderID       string
	StrategyID     string
	InstrumentID   string `gorm:"index"`
	AccountID      string
	OpeningOrderID string
	EntrySide      int
	Side           int
	SignedQty      float64
	PeakQty        float64
	TsOpened       int64
	TsLast         int64
	AvgPxOpen      float64
	RealizedReturn float64
	UpdatedAt      time.Time
}

func (positionModel) TableName() string { return "trading_position" }

type heartbeatModel struct {
	InstanceID string `gorm:"primaryKey"`
	Ts         int64
}

func (heartbeatModel) TableName() string { return "heartbeat" }

type venueOrderIndexModel struct {
	VenueOrderID  string `gorm:"primaryKey"`
	ClientOrderID string
}

func (venueOrderIndexModel) TableName() string { return "index_venue_order_id" }

type orderPositionIndexModel struct {
	ClientOrderID string `gorm:"primaryKey"`
	PositionID    string
}

func (orderPositionIndexModel) TableName() string { return "index_order_position" }

// DeFi extension models (§6.3): chain/pool state partitioned by chain id,
// grounded on original_source's block/pool/*_event table set.

type blockModel struct {
	ChainID   uint32 `gorm:"primaryKey"`
	Number    uint64 `gorm:"primaryKey"`
	Hash      string
	Timestamp int64
}

func (blockModel) TableName() string { return "block" }

type tokenModel struct {
	ChainID  uint32 `gorm:"primaryKey"`
	Address  string `gorm:"primaryKey"`
	Symbol   string
	Decimals uint8
}

func (tokenModel) TableName() string { return "token" }

type poolModel struct {
	ChainID uint32 `gorm:"primaryKey"`
	Address string `gorm:"primaryKey"`
	Token0  string
	Token1  string
	Fee     uint32
}

func (poolModel) TableName() string { return "pool" }

type poolSwapEventModel struct {
	ChainID         uint32 `gorm:"primaryKey"`
	TransactionHash string `gorm:"primaryKey"`
	LogIndex        uint32 `gorm:"primaryKey"`
	Pool            string
	Block           uint64
	TxIdx           uint32
	Sender          string
	Amount0         string
	Amount1         string
}

func (poolSwapEventModel) TableName() string { return "pool_swap_event" }

type poolLiquidityEventModel struct {
	ChainID         uint32 `gorm:"primaryKey"`
	TransactionHash string `gorm:"primaryKey"`
	LogIndex        uint32 `gorm:"primaryKey"`
	Pool            string
	Block           uint64
	TxIdx           uint32
	Liquidity       string
	TickLower       int32
	TickUpper       int32
}

func (poolLiquidityEventModel) TableName() string { return "pool_liquidity_event" }

type poolCollectEventModel struct {
	ChainID         uint32 `gorm:"primaryKey"`
	TransactionHash string `gorm:"primaryKey"`
	LogIndex        uint32 `gorm:"primaryKey"`
	Pool            string
	Block           uint64
	TxIdx           uint32
	Amount0         string
	Amount1         string
}

func (poolCollectEventModel) TableName() string { return "pool_collect_event" }

type poolFlashEventModel struct {
	ChainID         uint32 `gorm:"primaryKey"`
	TransactionHash string `gorm:"primaryKey"`
	LogIndex        uint32 `gorm:"primaryKey"`
	Pool            string
	Block           uint64
	TxIdx           uint32
	Amount0         string
	Amount1         string
}

func (poolFlashEventModel) TableName() string { return "pool_flash_event" }

type poolSnapshotModel struct {
	ChainID uint32 `gorm:"primaryKey"`
	Pool    string `gorm:"primaryKey"`
	Block   uint64 `gorm:"primaryKey"`
	TxIdx   uint32 `gorm:"primaryKey"`
	LogIdx  uint32 `gorm:"primaryKey"`
	Data    string
}

func (poolSnapshotModel) TableName() string { return "pool_snapshot" }

type poolPositionModel struct {
	ChainID uint32 `gorm:"primaryKey"`
	Pool    string `gorm:"primaryKey"`
	Owner   string `gorm:"primaryKey"`
	TickLower int32 `gorm:"primaryKey"`
	TickUpper int32 `gorm:"primaryKey"`
	Liquidity string
}

func (poolPositionModel) TableName() string { return "pool_position" }

type poolTickModel struct {
	ChainID uint32 `gorm:"primaryKey"`
	Pool    string `gorm:"primaryKey"`
	Tick    int32  `gorm:"primaryKey"`
	Liquidity string
}

func (poolTickModel) TableName() string { return "pool_tick" }

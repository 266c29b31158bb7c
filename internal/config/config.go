// Package config defines all configuration for the core trading runtime.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via CORERUNTIME_* and per-venue env vars.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Trader      TraderConfig             `mapstructure:"trader"`
	Cache       CacheConfig              `mapstructure:"cache"`
	Bus         BusConfig                `mapstructure:"bus"`
	Adapters    map[string]AdapterConfig `mapstructure:"adapters"`
	Persistence PersistenceConfig        `mapstructure:"persistence"`
	Logging     LoggingConfig            `mapstructure:"logging"`
}

// TraderConfig identifies the trader/instance this runtime runs under.
// Used to scope persistence keys (see internal/persist/redisadapter).
type TraderConfig struct {
	TraderID   string `mapstructure:"trader_id"`
	InstanceID string `mapstructure:"instance_id"`
}

// CacheConfig mirrors internal/cache.Config's per-deque capacities.
type CacheConfig struct {
	QuoteCapacity int `mapstructure:"quote_capacity"`
	TradeCapacity int `mapstructure:"trade_capacity"`
	BarCapacity   int `mapstructure:"bar_capacity"`
}

// BusConfig reserves room for future message-bus tuning; the bus itself
// takes no constructor parameters today beyond a logger.
type BusConfig struct{}

// AdapterConfig describes one venue adapter: its REST/WS endpoints and the
// env var names holding its credentials. Credentials are never read from
// the YAML file directly, only from the named env vars, so config files
// can be committed without leaking secrets.
type AdapterConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	WSURL            string `mapstructure:"ws_url"`
	APIKeyEnv        string `mapstructure:"api_key_env"`
	APISecretEnv     string `mapstructure:"api_secret_env"`
	APIPassphraseEnv string `mapstructure:"api_passphrase_env"`
}

// Credentials resolves the adapter's API key/secret/passphrase from the
// environment, using the env var names configured for this venue, falling
// back to the conventional <VENUE>_API_KEY/<VENUE>_API_SECRET/
// <VENUE>_API_PASSPHRASE names when a specific env var name isn't set.
func (a AdapterConfig) Credentials(venue string) (apiKey, secret, passphrase string) {
	upper := strings.ToUpper(venue)
	keyEnv := a.APIKeyEnv
	if keyEnv == "" {
		keyEnv = upper + "_API_KEY"
	}
	secretEnv := a.APISecretEnv
	if secretEnv == "" {
		secretEnv = upper + "_API_SECRET"
	}
	passEnv := a.APIPassphraseEnv
	if passEnv == "" {
		passEnv = upper + "_API_PASSPHRASE"
	}
	return os.Getenv(keyEnv), os.Getenv(secretEnv), os.Getenv(passEnv)
}

// PersistenceConfig selects and configures the durable-state backend.
// Backend is one of "none", "redis", "postgres"; exactly one of the
// corresponding sub-configs is consulted.
type PersistenceConfig struct {
	Backend  string         `mapstructure:"backend"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PostgresConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive persistence fields use CORERUNTIME_* env vars; per-adapter
// credentials are resolved lazily via AdapterConfig.Credentials.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("CORERUNTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if dsn := os.Getenv("CORERUNTIME_POSTGRES_DSN"); dsn != "" {
		cfg.Persistence.Postgres.DSN = dsn
	}
	if addr := os.Getenv("CORERUNTIME_REDIS_ADDR"); addr != "" {
		cfg.Persistence.Redis.Addr = addr
	}
	if pw := os.Getenv("CORERUNTIME_REDIS_PASSWORD"); pw != "" {
		cfg.Persistence.Redis.Password = pw
	}

	return &cfg, nil
}

// ConfigPath resolves the config file path from CORERUNTIME_CONFIG,
// defaulting to configs/config.yaml.
func ConfigPath() string {
	if p := os.Getenv("CORERUNTIME_CONFIG"); p != "" {
		return p
	}
	return "configs/config.yaml"
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Trader.TraderID == "" {
		return fmt.Errorf("trader.trader_id is required")
	}
	if len(c.Adapters) == 0 {
		return fmt.Errorf("at least one entry in adapters is required")
	}
	for venue, a := range c.Adapters {
		if a.BaseURL == "" {
			return fmt.Errorf("adapters.%s.base_url is required", venue)
		}
		if a.WSURL == "" {
			return fmt.Errorf("adapters.%s.ws_url is required", venue)
		}
	}
	switch c.Persistence.Backend {
	case "", "none":
	case "redis":
		if c.Persistence.Redis.Addr == "" {
			return fmt.Errorf("persistence.redis.addr is required when persistence.backend is redis")
		}
	case "postgres":
		if c.Persistence.Postgres.DSN == "" {
			return fmt.Errorf("persistence.postgres.dsn is required when persistence.backend is postgres")
		}
	default:
		return fmt.Errorf("persistence.backend must be one of: none, redis, postgres")
	}
	return nil
}

package config

import "testing"

func validConfig() *Config {
	return &Config{
		Trader: TraderConfig{TraderID: "T-001"},
		Adapters: map[string]AdapterConfig{
			"okx": {BaseURL: "https://okx.example", WSURL: "wss://okx.example/ws"},
		},
	}
}

func TestValidateRequiresTraderID(t *testing.T) {
	cfg := validConfig()
	cfg.Trader.TraderID = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for missing trader_id")
	}
}

func TestValidateRequiresAtLeastOneAdapter(t *testing.T) {
	cfg := validConfig()
	cfg.Adapters = nil
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for no adapters")
	}
}

func TestValidateRequiresAdapterURLs(t *testing.T) {
	cfg := validConfig()
	cfg.Adapters["okx"] = AdapterConfig{BaseURL: "https://okx.example"}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for missing ws_url")
	}
}

func TestValidateAcceptsNoPersistenceBackend(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidateRequiresRedisAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Persistence.Backend = "redis"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for missing redis.addr")
	}
}

func TestValidateRequiresPostgresDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Persistence.Backend = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for missing postgres.dsn")
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Persistence.Backend = "mongo"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for unknown backend")
	}
}

func TestAdapterConfigCredentialsFallsBackToVenueName(t *testing.T) {
	t.Setenv("OKX_API_KEY", "key-1")
	t.Setenv("OKX_API_SECRET", "secret-1")
	t.Setenv("OKX_API_PASSPHRASE", "pass-1")

	a := AdapterConfig{}
	key, secret, pass := a.Credentials("okx")
	if key != "key-1" || secret != "secret-1" || pass != "pass-1" {
		t.Errorf("Credentials() = (%q,%q,%q), want (key-1,secret-1,pass-1)", key, secret, pass)
	}
}

func TestAdapterConfigCredentialsUsesExplicitEnvNames(t *testing.T) {
	t.Setenv("CUSTOM_KEY_VAR", "key-2")
	a := AdapterConfig{APIKeyEnv: "CUSTOM_KEY_VAR"}
	key, _, _ := a.Credentials("okx")
	if key != "key-2" {
		t.Errorf("Credentials() key = %q, want key-2", key)
	}
}

func TestConfigPathDefaultsWhenUnset(t *testing.T) {
	t.Setenv("CORERUNTIME_CONFIG", "")
	if got, want := ConfigPath(), "configs/config.yaml"; got != want {
		t.Errorf("ConfigPath() = %q, want %q", got, want)
	}
}

func TestConfigPathHonorsEnvVar(t *testing.T) {
	t.Setenv("CORERUNTIME_CONFIG", "/etc/coreruntime/config.yaml")
	if got, want := ConfigPath(), "/etc/coreruntime/config.yaml"; got != want {
		t.Errorf("ConfigPath() = %q, want %q", got, want)
	}
}

// Core trading runtime — a venue-neutral market-data and order-routing
// core that wires a set of REST/WebSocket venue adapters to a shared
// in-memory cache, a synchronous message bus, and a durable persistence
// backend.
//
// Architecture:
//
//	main.go                    — entry point: loads config, wires components, waits for SIGINT/SIGTERM
//	internal/core              — shared value types (ids, instruments, prices/quantities, errors)
//	internal/position          — position aggregate: fills in, signed qty/avg price/realized return out
//	internal/cache             — bounded in-memory mirror of trading state, optional write-through persistence
//	internal/bus               — synchronous pub/sub message bus, topic derivation via Switchboard
//	internal/actor             — lifecycle-managed subscription/dispatch actor sitting on the bus
//	internal/pagination        — generic cursor-driven page-fetch loop used by venue history backfills
//	internal/adapter/venuehttp — venue-neutral REST client: rate-limited, HMAC-authenticated
//	internal/adapter/venuews   — venue-neutral WebSocket feed: reconnect/resubscribe, order-op acks
//	internal/persist           — durable-state adapter contract plus Redis/SQL backends
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"coreruntime/internal/actor"
	"coreruntime/internal/adapter/venuehttp"
	"coreruntime/internal/adapter/venuews"
	"coreruntime/internal/bus"
	"coreruntime/internal/cache"
	"coreruntime/internal/config"
	"coreruntime/internal/core"
	"coreruntime/internal/persist"
	"coreruntime/internal/persist/redisadapter"
	"coreruntime/internal/persist/sqladapter"
)

func main() {
	cfgPath := config.ConfigPath()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mirror, closeMirror, err := newPersistAdapter(ctx, *cfg, logger)
	if err != nil {
		logger.Error("failed to init persistence backend", "error", err)
		os.Exit(1)
	}
	defer closeMirror()

	cacheCfg := cache.Config{
		QuoteCapacity: cfg.Cache.QuoteCapacity,
		TradeCapacity: cfg.Cache.TradeCapacity,
		BarCapacity:   cfg.Cache.BarCapacity,
	}
	c := cache.New(cacheCfg, logger, mirror)

	b := bus.New(logger)
	sb := &bus.Switchboard{}

	dataActor := actor.New(core.StrategyID("core-runtime"), actor.DefaultHandlers{}, logger)
	if err := dataActor.Register(core.TraderID(cfg.Trader.TraderID), actor.SystemClock{}, c, b, sb); err != nil {
		logger.Error("failed to register data actor", "error", err)
		os.Exit(1)
	}

	httpClients := make(map[string]*venuehttp.Client, len(cfg.Adapters))
	feeds := make(map[string]*venuews.Feed, len(cfg.Adapters))

	for venue, ac := range cfg.Adapters {
		apiKey, secret, passphrase := ac.Credentials(venue)
		signer := venuehttp.NewHMACSigner(venuehttp.Credentials{
			APIKey: apiKey, APISecret: secret, Passphrase: passphrase,
		})

		httpClients[venue] = venuehttp.NewClient(venuehttp.Config{BaseURL: ac.BaseURL}, signer, logger)

		onMsg := func(channel string, raw json.RawMessage) {
			logger.Debug("market data received", "venue", venue, "channel", channel)
		}
		feed := venuews.New(ac.WSURL, signer, b, onMsg, logger)
		feeds[venue] = feed

		go func(venue string, feed *venuews.Feed) {
			if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("venue feed stopped", "venue", venue, "error", err)
			}
		}(venue, feed)
	}

	if err := dataActor.Start(); err != nil {
		logger.Error("failed to start data actor", "error", err)
		os.Exit(1)
	}

	logger.Info("core runtime started",
		"trader_id", cfg.Trader.TraderID,
		"venues", len(cfg.Adapters),
		"persistence", cfg.Persistence.Backend,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	cancel()
	for venue, feed := range feeds {
		if err := feed.Close(); err != nil {
			logger.Warn("error closing venue feed", "venue", venue, "error", err)
		}
	}
	if err := dataActor.Stop(); err != nil {
		logger.Warn("error stopping data actor", "error", err)
	}
}

// newPersistAdapter constructs the configured persistence backend, or the
// no-op adapter when persistence is disabled. The returned closer is always
// safe to defer, even for the no-op case.
func newPersistAdapter(ctx context.Context, cfg config.Config, logger *slog.Logger) (cache.MirrorAdapter, func(), error) {
	switch cfg.Persistence.Backend {
	case "", "none":
		nop := persist.NewNop()
		return nop, func() {}, nil
	case "redis":
		a, err := redisadapter.New(ctx, redisadapter.Config{
			Addr:       cfg.Persistence.Redis.Addr,
			Password:   cfg.Persistence.Redis.Password,
			DB:         cfg.Persistence.Redis.DB,
			TraderID:   cfg.Trader.TraderID,
			InstanceID: cfg.Trader.InstanceID,
		})
		if err != nil {
			return nil, nil, err
		}
		return a, func() {
			if err := a.Close(); err != nil {
				logger.Warn("error closing redis adapter", "error", err)
			}
		}, nil
	case "postgres":
		a, err := sqladapter.New(sqladapter.Config{
			DSN:         cfg.Persistence.Postgres.DSN,
			AutoMigrate: cfg.Persistence.Postgres.AutoMigrate,
		})
		if err != nil {
			return nil, nil, err
		}
		return a, func() {
			if err := a.Close(); err != nil {
				logger.Warn("error closing sql adapter", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown persistence backend %q", cfg.Persistence.Backend)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/spotdesk/internal/cache/redis"
	"github.com/alanyoungcy/spotdesk/internal/config"
	"github.com/alanyoungcy/spotdesk/internal/domain"
	"github.com/alanyoungcy/spotdesk/internal/ledger"
	"github.com/alanyoungcy/spotdesk/internal/notify"
	"github.com/alanyoungcy/spotdesk/internal/oracle"
	"github.com/alanyoungcy/spotdesk/internal/service"
	"github.com/alanyoungcy/spotdesk/internal/store/memory"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Authoritative in-process state.
	Ledger *ledger.Ledger
	Store  *memory.PositionStore
	Engine *service.ExecutionService

	// Price plumbing.
	Oracle domain.PriceOracle

	// Redis-backed collaborators; nil when Redis is not configured.
	Redis       *redis.Client
	PriceCache  domain.PriceCache
	SignalBus   domain.SignalBus
	RateLimiter domain.RateLimiter

	// Notifications; nil drops everything.
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis (optional; an empty addr runs everything in-process) ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Redis = redisClient
		deps.PriceCache = redis.NewPriceCache(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// --- Price oracle ---
	switch cfg.Oracle.Provider {
	case "static":
		deps.Oracle = oracle.NewStatic(cfg.Oracle.StaticPrices)
	default:
		var upstream domain.PriceOracle = oracle.NewBinanceClient(cfg.Oracle.BaseURL)
		if deps.PriceCache != nil && cfg.Oracle.CacheMaxAge.Duration > 0 {
			upstream = oracle.NewCached(upstream, deps.PriceCache, cfg.Oracle.CacheMaxAge.Duration, logger)
		}
		deps.Oracle = upstream
	}

	// --- Notifications ---
	if cfg.Notify.Enabled {
		var senders []notify.Sender
		if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
			senders = append(senders, notify.NewTelegramSender(
				cfg.Notify.TelegramToken,
				cfg.Notify.TelegramChatID,
			))
		}
		if cfg.Notify.DiscordWebhookURL != "" {
			senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
		}
		deps.Notifier = notify.New(senders, cfg.Notify.Events, logger)
	}

	// --- Ledger, store, engine ---
	deps.Ledger = ledger.New(cfg.Balance.Initial, cfg.Balance.Currency)
	deps.Store = memory.NewPositionStore()
	deps.Engine = service.NewExecutionService(
		deps.Store,
		deps.Ledger,
		deps.Oracle,
		deps.SignalBus,
		deps.Notifier,
		logger,
	)

	return deps, cleanup, nil
}

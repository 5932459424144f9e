package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/spotdesk/internal/domain"
	"github.com/alanyoungcy/spotdesk/internal/feed"
	"github.com/alanyoungcy/spotdesk/internal/server"
	"github.com/alanyoungcy/spotdesk/internal/server/handler"
	"github.com/alanyoungcy/spotdesk/internal/server/ws"
	"github.com/alanyoungcy/spotdesk/internal/service"
)

// shutdownTimeout bounds the graceful HTTP drain on exit.
const shutdownTimeout = 10 * time.Second

// ServeMode runs the full stack: price feed, stop monitor, websocket hub and
// the HTTP API server. It blocks until the context is cancelled or a
// long-lived part fails.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startFeed(ctx, g, deps)
	a.startMonitor(ctx, g, deps)

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, hub)
	}

	return g.Wait()
}

// MonitorMode runs headless: the price feed and the stop monitor only. Open
// positions are still protected, but no API surface is exposed.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startFeed(ctx, g, deps)
	a.startMonitor(ctx, g, deps)

	return g.Wait()
}

// startFeed launches the Binance websocket feed when enabled. Each tick is
// written to the price cache (keeping the cached oracle warm) and published
// on the prices channel.
func (a *App) startFeed(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Feed.Enabled || a.cfg.Oracle.Provider != "binance" {
		return
	}

	onPrice := func(ctx context.Context, symbol string, price float64, ts time.Time) {
		if deps.PriceCache != nil {
			if err := deps.PriceCache.SetPrice(ctx, symbol, price, ts); err != nil {
				a.logger.DebugContext(ctx, "feed: price cache write failed",
					slog.String("symbol", symbol),
					slog.String("error", err.Error()),
				)
			}
		}
		if deps.SignalBus != nil {
			payload, _ := json.Marshal(map[string]any{
				"event":  "price",
				"symbol": symbol,
				"price":  price,
				"ts":     ts.UTC().Format(time.RFC3339Nano),
			})
			if err := deps.SignalBus.Publish(ctx, domain.ChannelPrices, payload); err != nil {
				a.logger.DebugContext(ctx, "feed: price publish failed",
					slog.String("symbol", symbol),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	wsFeed := feed.NewBinanceFeed(a.cfg.Oracle.WsURL, a.cfg.Feed.Symbols, onPrice, a.logger)
	g.Go(func() error {
		defer wsFeed.Close()
		return wsFeed.Run(ctx)
	})
}

// startMonitor launches the protective-stop monitor when enabled.
func (a *App) startMonitor(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Monitor.Enabled {
		return
	}

	monitor := service.NewStopMonitor(deps.Engine, deps.Oracle, a.cfg.Monitor.Interval.Duration, a.logger)
	g.Go(func() error {
		return monitor.Run(ctx)
	})
}

// startHTTPServer builds and launches the HTTP API server plus a goroutine
// that drains it gracefully once the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, hub *ws.Hub) {
	// A typed nil must not reach the Pinger interface.
	var pinger handler.Pinger
	if deps.Redis != nil {
		pinger = deps.Redis
	}

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(deps.Store.Len, pinger, a.logger),
		Positions: handler.NewPositionHandler(deps.Engine, a.logger),
	}

	cfg := server.Config{
		Port:        a.cfg.Server.Port,
		APIKey:      a.cfg.Server.APIKey,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}
	if a.cfg.Server.RateLimitEnabled && deps.RateLimiter != nil {
		cfg.RateLimiter = deps.RateLimiter
		cfg.RateLimit = a.cfg.Server.RateLimit
		cfg.RateLimitWindow = a.cfg.Server.RateLimitWindow.Duration
	}

	srv := server.New(cfg, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

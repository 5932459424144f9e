package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/spotdesk/internal/domain"
)

// Cached serves prices from the shared price cache and falls back to the
// upstream oracle when the cached entry is missing or older than maxAge.
// Successful upstream reads are written back best-effort. A stale entry is
// never served when the upstream fails: stop decisions must not act on old
// prices, so the error surfaces instead.
type Cached struct {
	upstream domain.PriceOracle
	cache    domain.PriceCache
	maxAge   time.Duration
	logger   *slog.Logger
}

var _ domain.PriceOracle = (*Cached)(nil)

// NewCached wraps upstream behind cache. Entries older than maxAge are
// treated as misses.
func NewCached(upstream domain.PriceOracle, cache domain.PriceCache, maxAge time.Duration, logger *slog.Logger) *Cached {
	return &Cached{
		upstream: upstream,
		cache:    cache,
		maxAge:   maxAge,
		logger:   logger,
	}
}

// CurrentPrice returns the cached price when fresh, otherwise asks the
// upstream oracle.
func (c *Cached) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	price, ts, err := c.cache.GetPrice(ctx, symbol)
	if err == nil && price > 0 && time.Since(ts) <= c.maxAge {
		return price, nil
	}
	if err != nil {
		c.logger.DebugContext(ctx, "oracle: price cache read failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
	}

	price, err = c.upstream.CurrentPrice(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("oracle: upstream price for %s: %w", symbol, err)
	}

	if cacheErr := c.cache.SetPrice(ctx, symbol, price, time.Now()); cacheErr != nil {
		c.logger.DebugContext(ctx, "oracle: price cache write failed",
			slog.String("symbol", symbol),
			slog.String("error", cacheErr.Error()),
		)
	}

	return price, nil
}

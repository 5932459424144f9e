package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spotdesk/internal/domain"
)

type cacheEntry struct {
	price float64
	ts    time.Time
}

// fakePriceCache is an in-memory stand-in for the Redis price cache.
type fakePriceCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	failGet bool
}

func newFakePriceCache() *fakePriceCache {
	return &fakePriceCache{entries: make(map[string]cacheEntry)}
}

func (f *fakePriceCache) SetPrice(_ context.Context, symbol string, price float64, ts time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[symbol] = cacheEntry{price: price, ts: ts}
	return nil
}

func (f *fakePriceCache) GetPrice(_ context.Context, symbol string) (float64, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return 0, time.Time{}, errors.New("redis down")
	}
	e, ok := f.entries[symbol]
	if !ok {
		return 0, time.Time{}, fmt.Errorf("price for %q: %w", symbol, domain.ErrNotFound)
	}
	return e.price, e.ts, nil
}

func (f *fakePriceCache) GetPrices(_ context.Context, symbols []string) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		if e, ok := f.entries[s]; ok {
			out[s] = e.price
		}
	}
	return out, nil
}

// countingOracle records how often the upstream is consulted.
type countingOracle struct {
	price float64
	err   error
	calls int
}

func (c *countingOracle) CurrentPrice(context.Context, string) (float64, error) {
	c.calls++
	if c.err != nil {
		return 0, c.err
	}
	return c.price, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestCachedServesFreshEntry(t *testing.T) {
	cache := newFakePriceCache()
	require.NoError(t, cache.SetPrice(context.Background(), "BTC/USDT", 50000, time.Now()))

	upstream := &countingOracle{price: 99999}
	c := NewCached(upstream, cache, 5*time.Second, testLogger())

	price, err := c.CurrentPrice(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.InDelta(t, 50000, price, 1e-9)
	assert.Zero(t, upstream.calls)
}

func TestCachedFallsBackWhenStale(t *testing.T) {
	cache := newFakePriceCache()
	require.NoError(t, cache.SetPrice(context.Background(), "BTC/USDT", 50000, time.Now().Add(-time.Minute)))

	upstream := &countingOracle{price: 51000}
	c := NewCached(upstream, cache, 5*time.Second, testLogger())

	price, err := c.CurrentPrice(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.InDelta(t, 51000, price, 1e-9)
	assert.Equal(t, 1, upstream.calls)

	// The fresh read was written back.
	cached, _, err := cache.GetPrice(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.InDelta(t, 51000, cached, 1e-9)
}

func TestCachedMissSurfacesUpstreamError(t *testing.T) {
	cache := newFakePriceCache()
	upstream := &countingOracle{err: fmt.Errorf("symbol %q: %w", "NOPE/USDT", domain.ErrInvalidSymbol)}
	c := NewCached(upstream, cache, 5*time.Second, testLogger())

	_, err := c.CurrentPrice(context.Background(), "NOPE/USDT")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidSymbol)
}

func TestCachedStaleNeverServedOnUpstreamFailure(t *testing.T) {
	cache := newFakePriceCache()
	require.NoError(t, cache.SetPrice(context.Background(), "BTC/USDT", 50000, time.Now().Add(-time.Minute)))

	upstream := &countingOracle{err: errors.New("venue unreachable")}
	c := NewCached(upstream, cache, 5*time.Second, testLogger())

	_, err := c.CurrentPrice(context.Background(), "BTC/USDT")
	assert.Error(t, err)
}

func TestCachedSurvivesCacheFailure(t *testing.T) {
	cache := newFakePriceCache()
	cache.failGet = true

	upstream := &countingOracle{price: 50000}
	c := NewCached(upstream, cache, 5*time.Second, testLogger())

	price, err := c.CurrentPrice(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.InDelta(t, 50000, price, 1e-9)
	assert.Equal(t, 1, upstream.calls)
}

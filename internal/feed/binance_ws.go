// Package feed streams live prices from the Binance websocket API into the
// process, keeping the price cache warm so engine and monitor reads rarely
// fall back to REST.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// reconnectDelay is the pause between reconnect attempts after a dropped
// connection.
const reconnectDelay = 2 * time.Second

// PriceHandler is called for every price update the feed decodes.
type PriceHandler func(ctx context.Context, symbol string, price float64, ts time.Time)

// BinanceFeed connects to the Binance combined miniTicker stream for a fixed
// set of symbols and invokes the handler on each tick. It reconnects with a
// delay on disconnect and stops when the context is cancelled.
type BinanceFeed struct {
	wsURL     string
	symbols   []string          // canonical "BASE/QUOTE" forms
	venueToID map[string]string // "BTCUSDT" -> "BTC/USDT"
	onPrice   PriceHandler
	logger    *slog.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// NewBinanceFeed creates a feed for the given symbols in "BASE/QUOTE" form.
// wsURL is the stream root, e.g. "wss://stream.binance.com:9443".
func NewBinanceFeed(wsURL string, symbols []string, onPrice PriceHandler, logger *slog.Logger) *BinanceFeed {
	venueToID := make(map[string]string, len(symbols))
	for _, s := range symbols {
		venueToID[venueSymbol(s)] = s
	}
	return &BinanceFeed{
		wsURL:     strings.TrimRight(wsURL, "/"),
		symbols:   symbols,
		venueToID: venueToID,
		onPrice:   onPrice,
		logger:    logger.With(slog.String("component", "binance_feed")),
		done:      make(chan struct{}),
	}
}

// Run connects and pumps price updates until ctx is cancelled. Reconnects
// with a delay on disconnect.
func (f *BinanceFeed) Run(ctx context.Context) error {
	if len(f.symbols) == 0 {
		f.logger.InfoContext(ctx, "no symbols to stream, exiting")
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.WarnContext(ctx, "binance ws disconnected, reconnecting",
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

// combinedFrame is the envelope of the Binance combined stream.
type combinedFrame struct {
	Stream string     `json:"stream"`
	Data   miniTicker `json:"data"`
}

// miniTicker is the subset of the 24h miniTicker payload the feed reads.
type miniTicker struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"` // milliseconds
	Symbol    string `json:"s"`
	Close     string `json:"c"` // last price
}

// runConnection dials the combined stream and pumps messages until the
// connection breaks or ctx is cancelled.
func (f *BinanceFeed) runConnection(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, f.streamURL(), nil)
	cancel()
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", f.wsURL, err)
	}
	defer conn.Close()

	f.logger.InfoContext(ctx, "binance ws connected",
		slog.Int("symbols", len(f.symbols)),
	)

	// Unblock the read loop when the context is cancelled.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-f.done:
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			select {
			case <-f.done:
				return nil
			default:
			}
			return fmt.Errorf("feed: read: %w", err)
		}

		var frame combinedFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			f.logger.DebugContext(ctx, "undecodable frame skipped",
				slog.String("error", err.Error()),
			)
			continue
		}
		f.handleTicker(ctx, frame.Data)
	}
}

// handleTicker decodes one miniTicker and forwards it to the handler.
func (f *BinanceFeed) handleTicker(ctx context.Context, t miniTicker) {
	symbol, ok := f.venueToID[strings.ToUpper(t.Symbol)]
	if !ok || t.Close == "" {
		return
	}
	price, err := strconv.ParseFloat(t.Close, 64)
	if err != nil || price <= 0 {
		return
	}

	ts := time.UnixMilli(t.EventTime)
	if t.EventTime == 0 {
		ts = time.Now()
	}
	if f.onPrice != nil {
		f.onPrice(ctx, symbol, price, ts)
	}
}

// streamURL builds the combined stream endpoint, e.g.
// wss://stream.binance.com:9443/stream?streams=btcusdt@miniTicker/ethusdt@miniTicker
func (f *BinanceFeed) streamURL() string {
	streams := make([]string, 0, len(f.symbols))
	for _, s := range f.symbols {
		streams = append(streams, strings.ToLower(venueSymbol(s))+"@miniTicker")
	}
	return f.wsURL + "/stream?streams=" + strings.Join(streams, "/")
}

// venueSymbol converts "BTC/USDT" to Binance's "BTCUSDT".
func venueSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

// Close stops the feed.
func (f *BinanceFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

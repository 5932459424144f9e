// Package oracle provides the current-price sources behind
// domain.PriceOracle: a Binance REST client, a cache-backed wrapper, and a
// static table for paper trading and tests.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/spotdesk/internal/domain"
)

// BinanceClient fetches spot ticker prices from the Binance REST API.
type BinanceClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ domain.PriceOracle = (*BinanceClient)(nil)

// NewBinanceClient creates a client for the given API root, e.g.
// "https://api.binance.com".
func NewBinanceClient(baseURL string) *BinanceClient {
	return &BinanceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// tickerResponse is the /api/v3/ticker/price payload.
type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// CurrentPrice returns the last traded price for a "BASE/QUOTE" symbol.
// Binance rejects unknown symbols with HTTP 400, which surfaces as
// domain.ErrInvalidSymbol.
func (c *BinanceClient) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", VenueSymbol(symbol))
	endpoint := c.baseURL + "/api/v3/ticker/price?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("oracle/binance: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("oracle/binance: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return 0, fmt.Errorf("oracle/binance: read response: %w", err)
	}

	if resp.StatusCode == http.StatusBadRequest {
		return 0, fmt.Errorf("oracle/binance: symbol %q: %w", symbol, domain.ErrInvalidSymbol)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("oracle/binance: unexpected status %d: %s", resp.StatusCode, snippet(body))
	}

	var ticker tickerResponse
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, fmt.Errorf("oracle/binance: decode ticker: %w", err)
	}

	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("oracle/binance: parse price %q: %w", ticker.Price, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("oracle/binance: non-positive price %v for %s", price, symbol)
	}

	return price, nil
}

// VenueSymbol converts the canonical "BTC/USDT" form to Binance's "BTCUSDT".
func VenueSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

// snippet truncates a response body for error messages.
func snippet(body []byte) string {
	const max = 256
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}

package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spotdesk/internal/domain"
)

func TestBinanceCurrentPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"50123.45000000"}`))
	}))
	defer srv.Close()

	c := NewBinanceClient(srv.URL)

	price, err := c.CurrentPrice(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.InDelta(t, 50123.45, price, 1e-9)
}

func TestBinanceInvalidSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	c := NewBinanceClient(srv.URL)

	_, err := c.CurrentPrice(context.Background(), "NOPE/USDT")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidSymbol)
}

func TestBinanceUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewBinanceClient(srv.URL)

	_, err := c.CurrentPrice(context.Background(), "BTC/USDT")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidSymbol)
}

func TestBinanceBadPricePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"not-a-number"}`))
	}))
	defer srv.Close()

	c := NewBinanceClient(srv.URL)

	_, err := c.CurrentPrice(context.Background(), "BTC/USDT")
	assert.Error(t, err)
}

func TestVenueSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", VenueSymbol("BTC/USDT"))
	assert.Equal(t, "ETHUSDT", VenueSymbol("eth/usdt"))
}

package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/alanyoungcy/spotdesk/internal/domain"
)

// Static serves prices from a fixed in-memory table. It backs the "static"
// provider for paper trading without network access, and it is the price
// source of choice in tests. Prices can be moved at runtime with SetPrice.
type Static struct {
	mu     sync.RWMutex
	prices map[string]float64
}

var _ domain.PriceOracle = (*Static)(nil)

// NewStatic creates a static oracle seeded with the given symbol -> price
// table.
func NewStatic(prices map[string]float64) *Static {
	table := make(map[string]float64, len(prices))
	for symbol, price := range prices {
		table[symbol] = price
	}
	return &Static{prices: table}
}

// CurrentPrice returns the table price for symbol. Symbols not in the table
// are invalid.
func (s *Static) CurrentPrice(_ context.Context, symbol string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("oracle/static: symbol %q: %w", symbol, domain.ErrInvalidSymbol)
	}
	return price, nil
}

// SetPrice inserts or moves a price.
func (s *Static) SetPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices[symbol] = price
}

// Remove drops a symbol from the table, simulating an unavailable price.
func (s *Static) Remove(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.prices, symbol)
}

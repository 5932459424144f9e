package domain

import "context"

// PriceOracle is the single source of current prices for the engine and the
// stop monitor. Implementations return ErrInvalidSymbol (possibly wrapped)
// for symbols the venue does not know, and any other error when a price
// cannot be produced right now. A price is never invented: callers must
// treat an error as "do not act".
type PriceOracle interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

package domain

import (
	"math"
	"regexp"
)

// symbolPattern matches "BASE/QUOTE" with exactly one slash and no
// whitespace, e.g. "BTC/USDT".
var symbolPattern = regexp.MustCompile(`^[^/\s]+/[^/\s]+$`)

// OpenPositionRequest is the raw open command as received from a client.
type OpenPositionRequest struct {
	Symbol              string   `json:"symbol"`
	Side                string   `json:"side"`
	Amount              float64  `json:"amount"`
	StopLossPercent     *float64 `json:"stop_loss_percent,omitempty"`
	TrailingStopPercent *float64 `json:"trailing_stop_percent,omitempty"`
}

// OpenOrder is the typed, validated form of an open request.
type OpenOrder struct {
	Symbol              string
	Side                Side
	Amount              float64
	StopLossPercent     *float64
	TrailingStopPercent *float64
}

// Validate checks the request shape and returns the typed order, or a
// *SchemaError describing the first offending field. It is pure: no I/O, no
// clock, no randomness.
func (r OpenPositionRequest) Validate() (OpenOrder, error) {
	if !symbolPattern.MatchString(r.Symbol) {
		return OpenOrder{}, NewSchemaError("symbol", `must have the form "BASE/QUOTE"`)
	}
	side, ok := ParseSide(r.Side)
	if !ok {
		return OpenOrder{}, NewSchemaError("side", `must be "long" or "short"`)
	}
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
		return OpenOrder{}, NewSchemaError("amount", "must be a finite number")
	}
	if r.Amount <= 0 {
		return OpenOrder{}, NewSchemaError("amount", "must be greater than zero")
	}
	if r.StopLossPercent != nil {
		if err := ValidateStopPercent("stop_loss_percent", *r.StopLossPercent); err != nil {
			return OpenOrder{}, err
		}
	}
	if r.TrailingStopPercent != nil {
		if err := ValidateStopPercent("trailing_stop_percent", *r.TrailingStopPercent); err != nil {
			return OpenOrder{}, err
		}
	}
	return OpenOrder{
		Symbol:              r.Symbol,
		Side:                side,
		Amount:              r.Amount,
		StopLossPercent:     cloneFloat(r.StopLossPercent),
		TrailingStopPercent: cloneFloat(r.TrailingStopPercent),
	}, nil
}

// ValidateStopPercent checks a protective stop distance, which must sit
// strictly inside (0, 100).
func ValidateStopPercent(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NewSchemaError(field, "must be a finite number")
	}
	if v <= 0 || v >= 100 {
		return NewSchemaError(field, "must be greater than 0 and less than 100")
	}
	return nil
}

// cloneFloat detaches an optional value from its source so stored positions
// never alias request memory.
func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

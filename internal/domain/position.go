package domain

import "time"

// Side is the direction of a position: long profits when the price rises,
// short profits when it falls.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ParseSide validates a raw side string.
func ParseSide(s string) (Side, bool) {
	switch Side(s) {
	case SideLong, SideShort:
		return Side(s), true
	}
	return "", false
}

// PositionStatus tracks whether a position is open or closed.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// CloseReason records what triggered a close.
type CloseReason string

const (
	CloseReasonManual       CloseReason = "manual"
	CloseReasonStopLoss     CloseReason = "stop_loss"
	CloseReasonTrailingStop CloseReason = "trailing_stop"
)

// Position represents a leveraged spot position held in memory. Amount is in
// base units of the symbol; all monetary fields are in the quote currency.
type Position struct {
	ID                  string         `json:"id"`
	Symbol              string         `json:"symbol"` // "BASE/QUOTE", e.g. "BTC/USDT"
	Side                Side           `json:"side"`
	Amount              float64        `json:"amount"`
	EntryPrice          float64        `json:"entry_price"`
	StopLossPercent     *float64       `json:"stop_loss_percent,omitempty"`
	StopLoss            float64        `json:"stop_loss,omitempty"` // derived threshold, 0 when unset
	TrailingStopPercent *float64       `json:"trailing_stop_percent,omitempty"`
	TrailingStop        float64        `json:"trailing_stop,omitempty"` // ratchets in the position's favor
	Status              PositionStatus `json:"status"`
	OpenedAt            time.Time      `json:"opened_at"`
	ClosedAt            *time.Time     `json:"closed_at,omitempty"`
	ExitPrice           *float64       `json:"exit_price,omitempty"`
	CloseReason         CloseReason    `json:"close_reason,omitempty"` // empty while open
}

// Notional returns the quote value reserved for the position.
func (p Position) Notional() float64 {
	return p.Amount * p.EntryPrice
}

// UnrealizedPnL returns the profit in quote currency at the given price.
func (p Position) UnrealizedPnL(price float64) float64 {
	if p.Side == SideShort {
		return (p.EntryPrice - price) * p.Amount
	}
	return (price - p.EntryPrice) * p.Amount
}

// PnLPercent returns the profit at the given price relative to the entry
// notional, in percent.
func (p Position) PnLPercent(price float64) float64 {
	notional := p.Notional()
	if notional == 0 {
		return 0
	}
	return p.UnrealizedPnL(price) / notional * 100
}

// StopPrice derives a protective threshold the given percent away from
// basis: below it for longs, above it for shorts.
func StopPrice(side Side, basis, percent float64) float64 {
	if side == SideShort {
		return basis * (1 + percent/100)
	}
	return basis * (1 - percent/100)
}

// RatchetedTrailing recomputes the trailing threshold from the current price
// and reports whether it tightened. The threshold only ever moves in the
// position's favor: up for longs, down for shorts.
func (p Position) RatchetedTrailing(price float64) (float64, bool) {
	if p.TrailingStopPercent == nil {
		return p.TrailingStop, false
	}
	candidate := StopPrice(p.Side, price, *p.TrailingStopPercent)
	if p.Side == SideShort {
		if candidate < p.TrailingStop {
			return candidate, true
		}
		return p.TrailingStop, false
	}
	if candidate > p.TrailingStop {
		return candidate, true
	}
	return p.TrailingStop, false
}

// StopTriggered reports whether the price has crossed a protective
// threshold. Crossing the threshold exactly triggers. Stop-loss wins when
// both thresholds are crossed on the same tick.
func (p Position) StopTriggered(price float64) (CloseReason, bool) {
	if p.StopLossPercent != nil && thresholdCrossed(p.Side, price, p.StopLoss) {
		return CloseReasonStopLoss, true
	}
	if p.TrailingStopPercent != nil && thresholdCrossed(p.Side, price, p.TrailingStop) {
		return CloseReasonTrailingStop, true
	}
	return "", false
}

func thresholdCrossed(side Side, price, threshold float64) bool {
	if side == SideShort {
		return price >= threshold
	}
	return price <= threshold
}

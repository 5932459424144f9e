package domain

// TradeResult is the settlement record returned by a close: the final
// position snapshot plus the realized outcome.
type TradeResult struct {
	Position   Position `json:"position"`
	Profit     float64  `json:"profit"`
	PnLPercent float64  `json:"pnl_percent"`
}

// PositionDetail annotates an open position with its live valuation. When no
// current price is available the entry price is used and the P&L fields are
// zero.
type PositionDetail struct {
	Position      Position `json:"position"`
	CurrentPrice  float64  `json:"current_price"`
	Value         float64  `json:"value"`
	UnrealizedPnL float64  `json:"unrealized_pnl"`
	PnLPercent    float64  `json:"pnl_percent"`
}

// PositionsView is the open-positions read model served by the API. The
// total percent is relative to the summed entry notionals.
type PositionsView struct {
	Positions       []PositionDetail `json:"positions"`
	Count           int              `json:"count"`
	TotalValue      float64          `json:"total_value"`
	UnrealizedPnL   float64          `json:"unrealized_pnl"`
	TotalPnLPercent float64          `json:"total_pnl_percent"`
}

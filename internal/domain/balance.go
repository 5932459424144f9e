package domain

// Balance is a point-in-time snapshot of the ledger.
type Balance struct {
	Available   float64 `json:"available"`
	Currency    string  `json:"currency"`
	RealizedPnL float64 `json:"realized_pnl"`
	Initial     float64 `json:"initial"`
}

// BalanceView is the balance read model served by the API: the ledger
// snapshot combined with the live value of open positions. Percent is
// relative to the initial balance.
type BalanceView struct {
	Available       float64 `json:"available_balance"`
	Currency        string  `json:"currency"`
	PositionsValue  float64 `json:"positions_value"`
	TotalValue      float64 `json:"total_value"`
	RealizedPnL     float64 `json:"realized_pnl"`
	UnrealizedPnL   float64 `json:"unrealized_pnl"`
	TotalPnL        float64 `json:"total_pnl"`
	TotalPnLPercent float64 `json:"total_pnl_percent"`
	OpenPositions   int     `json:"open_positions"`
}

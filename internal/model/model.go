package model

import (
	"github.com/shopspring/decimal"
)

type Wallet struct {
	AccountID string          `json:"account_id"`
	Cash      decimal.Decimal `json:"cash_usd"`
}

type Position struct {
	AccountID string          `json:"account_id"`
	EventID   string          `json:"event_id"`
	EventName string          `json:"event_name"`
	Quantity  int64           `json:"qty"`
	TotalCost decimal.Decimal `json:"total_cost_usd"`
	MinPrice  decimal.Decimal `json:"min_price_usd"`
	MaxPrice  decimal.Decimal `json:"max_price_usd"`
}

// AvgCost is the average cost per held unit, zero when the position is empty.
func (p Position) AvgCost() decimal.Decimal {
	if p.Quantity <= 0 {
		return decimal.Zero
	}
	return p.TotalCost.DivRound(decimal.NewFromInt(p.Quantity), 2)
}

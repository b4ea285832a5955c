package trading

import (
	"github.com/shopspring/decimal"

	"lv-tickettrader/internal/model"
)

// avgCostScale matches the scale the sell path uses when re-deriving the
// average cost per unit. Storage precision for money stays at 2.
const avgCostScale = 6

// ApplyBuy folds a buy of qty units at price into existing, or opens a new
// position when existing is nil. The event name is first-write-wins.
func ApplyBuy(existing *model.Position, accountID, eventID, eventName string, qty int64, price decimal.Decimal) model.Position {
	cost := price.Mul(decimal.NewFromInt(qty))
	if existing == nil {
		return model.Position{
			AccountID: accountID,
			EventID:   eventID,
			EventName: eventName,
			Quantity:  qty,
			TotalCost: cost,
			MinPrice:  price,
			MaxPrice:  price,
		}
	}
	next := *existing
	next.Quantity += qty
	next.TotalCost = next.TotalCost.Add(cost)
	if price.LessThan(next.MinPrice) {
		next.MinPrice = price
	}
	if price.GreaterThan(next.MaxPrice) {
		next.MaxPrice = price
	}
	return next
}

// ApplySell reduces existing by qty units. The caller guarantees
// qty <= existing.Quantity. The remaining cost basis is re-derived from the
// average cost per unit rather than subtracting the sold tranche's original
// cost, so realized gain/loss on the sold units is not tracked. The second
// return is true when the position is fully liquidated and its row must go.
func ApplySell(existing model.Position, qty int64) (model.Position, bool) {
	remaining := existing.Quantity - qty
	if remaining == 0 {
		return model.Position{}, true
	}
	avg := existing.TotalCost.DivRound(decimal.NewFromInt(existing.Quantity), avgCostScale)
	next := existing
	next.Quantity = remaining
	next.TotalCost = avg.Mul(decimal.NewFromInt(remaining))
	return next, false
}

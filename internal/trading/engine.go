package trading

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lv-tickettrader/internal/model"
	"lv-tickettrader/internal/types"
)

// moneyScale is the stored precision of cash balances and cost totals.
const moneyScale = 2

// Engine executes trades against a LedgerStore. It performs no internal
// threading; conflicting trades are serialized by the store's row locks,
// wallet first, then position, always in that order.
type Engine struct {
	store LedgerStore
}

func NewEngine(store LedgerStore) *Engine {
	return &Engine{store: store}
}

type ExecuteRequest struct {
	AccountID string
	Side      types.Side
	EventID   string
	EventName string
	Quantity  int64
	Price     decimal.Decimal
}

type TradeResult struct {
	Ref         string          `json:"ref"`
	AccountID   string          `json:"account_id"`
	EventID     string          `json:"event_id"`
	Side        types.Side      `json:"side"`
	Quantity    int64           `json:"qty"`
	Price       decimal.Decimal `json:"price_usd"`
	CashBalance decimal.Decimal `json:"cash_usd"`
	PositionQty int64           `json:"position_qty"`
}

// Execute runs one trade in a single transaction: validate, lock the wallet
// row, lock the position row, apply the aggregation, write both rows, commit.
// Validation failures return before any lock is taken; every path that
// acquires a lock releases it through Commit or the deferred Rollback.
func (e *Engine) Execute(ctx context.Context, req ExecuteRequest) (TradeResult, error) {
	if req.Quantity <= 0 {
		return TradeResult{}, ErrInvalidQuantity
	}
	if req.Price.IsNegative() {
		return TradeResult{}, ErrInvalidPrice
	}
	if !req.Side.Valid() {
		return TradeResult{}, fmt.Errorf("invalid side %q", req.Side)
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return TradeResult{}, storageErr("begin", err)
	}
	defer tx.Rollback(ctx)

	wallet, ok, err := tx.LockWallet(ctx, req.AccountID)
	if err != nil {
		return TradeResult{}, storageErr("lock wallet", err)
	}
	if !ok {
		return TradeResult{}, ErrWalletNotFound
	}

	tradeValue := req.Price.Mul(decimal.NewFromInt(req.Quantity))

	var newCash decimal.Decimal
	var positionQty int64

	switch req.Side {
	case types.SideBuy:
		if wallet.Cash.LessThan(tradeValue) {
			return TradeResult{}, ErrInsufficientFunds
		}
		pos, found, err := tx.LockPosition(ctx, req.AccountID, req.EventID)
		if err != nil {
			return TradeResult{}, storageErr("lock position", err)
		}
		var next model.Position
		if found {
			next = ApplyBuy(&pos, req.AccountID, req.EventID, req.EventName, req.Quantity, req.Price)
		} else {
			next = ApplyBuy(nil, req.AccountID, req.EventID, req.EventName, req.Quantity, req.Price)
		}
		next.TotalCost = next.TotalCost.Round(moneyScale)
		if err := tx.UpsertPosition(ctx, next); err != nil {
			return TradeResult{}, storageErr("write position", err)
		}
		newCash = wallet.Cash.Sub(tradeValue).Round(moneyScale)
		positionQty = next.Quantity

	case types.SideSell:
		pos, found, err := tx.LockPosition(ctx, req.AccountID, req.EventID)
		if err != nil {
			return TradeResult{}, storageErr("lock position", err)
		}
		if !found {
			return TradeResult{}, ErrNoPosition
		}
		if req.Quantity > pos.Quantity {
			return TradeResult{}, ErrInsufficientHoldings
		}
		next, closed := ApplySell(pos, req.Quantity)
		if closed {
			if err := tx.DeletePosition(ctx, req.AccountID, req.EventID); err != nil {
				return TradeResult{}, storageErr("delete position", err)
			}
		} else {
			next.TotalCost = next.TotalCost.Round(moneyScale)
			if err := tx.UpsertPosition(ctx, next); err != nil {
				return TradeResult{}, storageErr("write position", err)
			}
			positionQty = next.Quantity
		}
		newCash = wallet.Cash.Add(tradeValue).Round(moneyScale)
	}

	if err := tx.UpdateWallet(ctx, req.AccountID, newCash); err != nil {
		return TradeResult{}, storageErr("write wallet", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return TradeResult{}, storageErr("commit", err)
	}

	return TradeResult{
		Ref:         uuid.NewString(),
		AccountID:   req.AccountID,
		EventID:     req.EventID,
		Side:        req.Side,
		Quantity:    req.Quantity,
		Price:       req.Price,
		CashBalance: newCash,
		PositionQty: positionQty,
	}, nil
}

// CashBalance is a pass-through read outside any trade transaction.
func (e *Engine) CashBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return e.store.CashBalance(ctx, accountID)
}

// ListPositions is a pass-through read outside any trade transaction.
func (e *Engine) ListPositions(ctx context.Context, accountID string) ([]model.Position, error) {
	return e.store.Positions(ctx, accountID)
}

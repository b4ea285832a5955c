package trading

import (
	"context"

	"github.com/shopspring/decimal"

	"lv-tickettrader/internal/model"
)

// LedgerStore is the system of record for wallets and positions. Row locks
// are exclusive and transaction scoped: a locked row stays locked until the
// transaction commits or rolls back. Any ACID datastore or a keyed in-memory
// store with per-account mutexes can satisfy the contract.
type LedgerStore interface {
	Begin(ctx context.Context) (LedgerTx, error)

	// CashBalance returns ErrWalletNotFound when no wallet row exists.
	CashBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	Positions(ctx context.Context, accountID string) ([]model.Position, error)
}

// LedgerTx is one atomic unit of work. Rollback after Commit is a no-op so
// callers can defer it unconditionally.
type LedgerTx interface {
	LockWallet(ctx context.Context, accountID string) (model.Wallet, bool, error)
	LockPosition(ctx context.Context, accountID, eventID string) (model.Position, bool, error)
	UpdateWallet(ctx context.Context, accountID string, cash decimal.Decimal) error
	UpsertPosition(ctx context.Context, pos model.Position) error
	DeletePosition(ctx context.Context, accountID, eventID string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

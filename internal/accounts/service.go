package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"lv-tickettrader/internal/trading"
)

// ErrProvisioning marks wallet-provisioning failures so callers can tell
// them apart from trade errors; they are never folded into a trade result.
var ErrProvisioning = errors.New("provisioning failed")

// Both provisioners satisfy trading.Provisioner: EnsureWallet is idempotent,
// an existing wallet is left untouched, so the first-provided starting cash
// wins.

type PGProvisioner struct {
	pool *pgxpool.Pool
}

func NewPGProvisioner(pool *pgxpool.Pool) *PGProvisioner {
	return &PGProvisioner{pool: pool}
}

func (p *PGProvisioner) EnsureWallet(ctx context.Context, accountID string, startingCash decimal.Decimal) error {
	if startingCash.IsNegative() {
		return fmt.Errorf("%w: negative starting cash", ErrProvisioning)
	}
	_, err := p.pool.Exec(ctx,
		"insert into wallet (account_id, cash_usd) values ($1, $2) on conflict (account_id) do nothing",
		accountID, startingCash.Round(2))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvisioning, err)
	}
	return nil
}

type MemProvisioner struct {
	store *trading.MemStore
}

func NewMemProvisioner(store *trading.MemStore) *MemProvisioner {
	return &MemProvisioner{store: store}
}

func (p *MemProvisioner) EnsureWallet(ctx context.Context, accountID string, startingCash decimal.Decimal) error {
	if startingCash.IsNegative() {
		return fmt.Errorf("%w: negative starting cash", ErrProvisioning)
	}
	p.store.EnsureWallet(accountID, startingCash.Round(2))
	return nil
}

package trading

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"lv-tickettrader/internal/model"
)

// PGStore backs the ledger with Postgres. Row locks are SELECT ... FOR UPDATE
// inside a serializable transaction, so two trades on the same wallet block
// on each other and trades on different accounts run in parallel.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Begin(ctx context.Context) (LedgerTx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

func (s *PGStore) CashBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var cash decimal.Decimal
	err := s.pool.QueryRow(ctx, "select cash_usd from wallet where account_id = $1", accountID).Scan(&cash)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrWalletNotFound
	}
	return cash, err
}

func (s *PGStore) Positions(ctx context.Context, accountID string) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx, "select account_id, event_id, event_name, qty, total_cost_usd, min_price_usd, max_price_usd from positions where account_id = $1 order by event_id", accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Position
	for rows.Next() {
		var p model.Position
		if err := rows.Scan(&p.AccountID, &p.EventID, &p.EventName, &p.Quantity, &p.TotalCost, &p.MinPrice, &p.MaxPrice); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockWallet(ctx context.Context, accountID string) (model.Wallet, bool, error) {
	w := model.Wallet{AccountID: accountID}
	err := t.tx.QueryRow(ctx, "select cash_usd from wallet where account_id = $1 for update", accountID).Scan(&w.Cash)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Wallet{}, false, nil
	}
	if err != nil {
		return model.Wallet{}, false, err
	}
	return w, true, nil
}

func (t *pgTx) LockPosition(ctx context.Context, accountID, eventID string) (model.Position, bool, error) {
	p := model.Position{AccountID: accountID, EventID: eventID}
	err := t.tx.QueryRow(ctx, "select event_name, qty, total_cost_usd, min_price_usd, max_price_usd from positions where account_id = $1 and event_id = $2 for update", accountID, eventID).
		Scan(&p.EventName, &p.Quantity, &p.TotalCost, &p.MinPrice, &p.MaxPrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Position{}, false, nil
	}
	if err != nil {
		return model.Position{}, false, err
	}
	return p, true, nil
}

func (t *pgTx) UpdateWallet(ctx context.Context, accountID string, cash decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, "update wallet set cash_usd = $2 where account_id = $1", accountID, cash)
	return err
}

// event_name is deliberately left out of the conflict update: the name a
// position was opened with wins.
func (t *pgTx) UpsertPosition(ctx context.Context, pos model.Position) error {
	_, err := t.tx.Exec(ctx, `
		insert into positions (account_id, event_id, event_name, qty, total_cost_usd, min_price_usd, max_price_usd)
		values ($1, $2, $3, $4, $5, $6, $7)
		on conflict (account_id, event_id) do update set
			qty = excluded.qty,
			total_cost_usd = excluded.total_cost_usd,
			min_price_usd = excluded.min_price_usd,
			max_price_usd = excluded.max_price_usd
	`, pos.AccountID, pos.EventID, pos.EventName, pos.Quantity, pos.TotalCost, pos.MinPrice, pos.MaxPrice)
	return err
}

func (t *pgTx) DeletePosition(ctx context.Context, accountID, eventID string) error {
	_, err := t.tx.Exec(ctx, "delete from positions where account_id = $1 and event_id = $2", accountID, eventID)
	return err
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

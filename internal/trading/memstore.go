package trading

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"lv-tickettrader/internal/model"
)

// MemStore is a keyed in-memory ledger. One mutex per account stands in for
// the wallet row lock: it is taken by LockWallet and held until the
// transaction ends, which serializes all trades on one account while leaving
// other accounts fully parallel. Writes are staged in the transaction and
// applied on Commit, never earlier, so a rolled-back trade leaves no trace.
type MemStore struct {
	mu        sync.Mutex
	wallets   map[string]model.Wallet
	positions map[string]map[string]model.Position
	locks     map[string]*sync.Mutex
}

func NewMemStore() *MemStore {
	return &MemStore{
		wallets:   make(map[string]model.Wallet),
		positions: make(map[string]map[string]model.Position),
		locks:     make(map[string]*sync.Mutex),
	}
}

func (s *MemStore) accountLock(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[accountID] = l
	}
	return l
}

// EnsureWallet creates the wallet row if absent; an existing wallet is left
// untouched, so the first-provided starting cash wins.
func (s *MemStore) EnsureWallet(accountID string, startingCash decimal.Decimal) {
	l := s.accountLock(accountID)
	l.Lock()
	defer l.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[accountID]; !ok {
		s.wallets[accountID] = model.Wallet{AccountID: accountID, Cash: startingCash}
	}
}

func (s *MemStore) Begin(ctx context.Context) (LedgerTx, error) {
	return &memTx{store: s, posWrites: make(map[string]*model.Position)}, nil
}

func (s *MemStore) CashBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[accountID]
	if !ok {
		return decimal.Zero, ErrWalletNotFound
	}
	return w.Cash, nil
}

func (s *MemStore) Positions(ctx context.Context, accountID string) ([]model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Position
	for _, p := range s.positions[accountID] {
		out = append(out, p)
	}
	return out, nil
}

type memTx struct {
	store       *MemStore
	lock        *sync.Mutex
	accountID   string
	walletWrite *model.Wallet
	posWrites   map[string]*model.Position // eventID -> new row, nil means delete
	done        bool
}

func (t *memTx) LockWallet(ctx context.Context, accountID string) (model.Wallet, bool, error) {
	if t.lock == nil {
		l := t.store.accountLock(accountID)
		l.Lock()
		t.lock = l
		t.accountID = accountID
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	w, ok := t.store.wallets[accountID]
	if !ok {
		return model.Wallet{}, false, nil
	}
	return w, true, nil
}

// LockPosition relies on the wallet lock already held for the account; the
// engine always locks the wallet first, so no second mutex is needed.
func (t *memTx) LockPosition(ctx context.Context, accountID, eventID string) (model.Position, bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	p, ok := t.store.positions[accountID][eventID]
	if !ok {
		return model.Position{}, false, nil
	}
	return p, true, nil
}

func (t *memTx) UpdateWallet(ctx context.Context, accountID string, cash decimal.Decimal) error {
	t.walletWrite = &model.Wallet{AccountID: accountID, Cash: cash}
	return nil
}

func (t *memTx) UpsertPosition(ctx context.Context, pos model.Position) error {
	p := pos
	t.posWrites[pos.EventID] = &p
	return nil
}

func (t *memTx) DeletePosition(ctx context.Context, accountID, eventID string) error {
	t.posWrites[eventID] = nil
	return nil
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.store.mu.Lock()
	if t.walletWrite != nil {
		t.store.wallets[t.walletWrite.AccountID] = *t.walletWrite
	}
	for eventID, p := range t.posWrites {
		if p == nil {
			delete(t.store.positions[t.accountID], eventID)
			continue
		}
		byEvent, ok := t.store.positions[p.AccountID]
		if !ok {
			byEvent = make(map[string]model.Position)
			t.store.positions[p.AccountID] = byEvent
		}
		byEvent[eventID] = *p
	}
	t.store.mu.Unlock()
	t.finish()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.walletWrite = nil
	t.posWrites = nil
	t.finish()
	return nil
}

func (t *memTx) finish() {
	t.done = true
	if t.lock != nil {
		t.lock.Unlock()
		t.lock = nil
	}
}

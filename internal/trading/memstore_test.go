package trading

import (
	"context"
	"errors"
	"testing"

	"lv-tickettrader/internal/model"
)

func TestMemStoreStagedWritesApplyOnCommitOnly(t *testing.T) {
	store := NewMemStore()
	store.EnsureWallet("a1", dec("100.00"))
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, ok, err := tx.LockWallet(ctx, "a1"); err != nil || !ok {
		t.Fatalf("LockWallet: ok=%v err=%v", ok, err)
	}
	if err := tx.UpdateWallet(ctx, "a1", dec("40.00")); err != nil {
		t.Fatalf("UpdateWallet: %v", err)
	}
	if err := tx.UpsertPosition(ctx, model.Position{AccountID: "a1", EventID: "E1", Quantity: 1, TotalCost: dec("60.00"), MinPrice: dec("60.00"), MaxPrice: dec("60.00")}); err != nil {
		t.Fatalf("UpsertPosition: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	cash, err := store.CashBalance(ctx, "a1")
	if err != nil || !cash.Equal(dec("40.00")) {
		t.Fatalf("cash got=%s err=%v", cash, err)
	}
	positions, _ := store.Positions(ctx, "a1")
	if len(positions) != 1 || positions[0].Quantity != 1 {
		t.Fatalf("positions got=%+v", positions)
	}
}

func TestMemStoreRollbackDiscardsWrites(t *testing.T) {
	store := NewMemStore()
	store.EnsureWallet("a1", dec("100.00"))
	ctx := context.Background()

	tx, _ := store.Begin(ctx)
	if _, _, err := tx.LockWallet(ctx, "a1"); err != nil {
		t.Fatalf("LockWallet: %v", err)
	}
	_ = tx.UpdateWallet(ctx, "a1", dec("0.00"))
	_ = tx.UpsertPosition(ctx, model.Position{AccountID: "a1", EventID: "E1", Quantity: 9})
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	cash, _ := store.CashBalance(ctx, "a1")
	if !cash.Equal(dec("100.00")) {
		t.Fatalf("rollback leaked wallet write: %s", cash)
	}
	positions, _ := store.Positions(ctx, "a1")
	if len(positions) != 0 {
		t.Fatalf("rollback leaked position write: %+v", positions)
	}

	// second trade on the same account must not deadlock
	tx2, _ := store.Begin(ctx)
	if _, ok, err := tx2.LockWallet(ctx, "a1"); err != nil || !ok {
		t.Fatalf("relock after rollback: ok=%v err=%v", ok, err)
	}
	_ = tx2.Rollback(ctx)
}

func TestMemStoreRollbackAfterCommitIsNoop(t *testing.T) {
	store := NewMemStore()
	store.EnsureWallet("a1", dec("100.00"))
	ctx := context.Background()

	tx, _ := store.Begin(ctx)
	_, _, _ = tx.LockWallet(ctx, "a1")
	_ = tx.UpdateWallet(ctx, "a1", dec("70.00"))
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback after Commit: %v", err)
	}
	cash, _ := store.CashBalance(ctx, "a1")
	if !cash.Equal(dec("70.00")) {
		t.Fatalf("rollback after commit undid the write: %s", cash)
	}
}

func TestMemStoreCashBalanceUnknownAccount(t *testing.T) {
	store := NewMemStore()
	_, err := store.CashBalance(context.Background(), "ghost")
	if !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("got err=%v want=%v", err, ErrWalletNotFound)
	}
}

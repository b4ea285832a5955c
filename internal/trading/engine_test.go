package trading

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"lv-tickettrader/internal/model"
	"lv-tickettrader/internal/types"
)

func newTestEngine(t *testing.T, accountID, cash string) (*Engine, *MemStore) {
	t.Helper()
	store := NewMemStore()
	store.EnsureWallet(accountID, dec(cash))
	return NewEngine(store), store
}

func buy(eventID string, qty int64, price string) ExecuteRequest {
	return ExecuteRequest{AccountID: "a1", Side: types.SideBuy, EventID: eventID, EventName: eventID, Quantity: qty, Price: dec(price)}
}

func sell(eventID string, qty int64, price string) ExecuteRequest {
	return ExecuteRequest{AccountID: "a1", Side: types.SideSell, EventID: eventID, EventName: eventID, Quantity: qty, Price: dec(price)}
}

func mustCash(t *testing.T, e *Engine, accountID, want string) {
	t.Helper()
	cash, err := e.CashBalance(context.Background(), accountID)
	if err != nil {
		t.Fatalf("CashBalance: %v", err)
	}
	if !cash.Equal(dec(want)) {
		t.Fatalf("cash got=%s want=%s", cash, want)
	}
}

func onlyPosition(t *testing.T, e *Engine, accountID string) model.Position {
	t.Helper()
	positions, err := e.ListPositions(context.Background(), accountID)
	if err != nil {
		t.Fatalf("ListPositions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("positions got=%d want=1", len(positions))
	}
	return positions[0]
}

func TestExecuteBuySellScenario(t *testing.T) {
	e, _ := newTestEngine(t, "a1", "2000.00")
	ctx := context.Background()

	res, err := e.Execute(ctx, buy("E1", 5, "100.00"))
	if err != nil {
		t.Fatalf("buy 5@100: %v", err)
	}
	if !res.CashBalance.Equal(dec("1500.00")) || res.PositionQty != 5 {
		t.Fatalf("buy 5@100 result: cash=%s qty=%d", res.CashBalance, res.PositionQty)
	}
	if res.Ref == "" {
		t.Fatal("trade ref must be set")
	}
	p := onlyPosition(t, e, "a1")
	if p.Quantity != 5 || !p.TotalCost.Equal(dec("500.00")) {
		t.Fatalf("position after first buy: %+v", p)
	}

	res, err = e.Execute(ctx, buy("E1", 3, "120.00"))
	if err != nil {
		t.Fatalf("buy 3@120: %v", err)
	}
	if !res.CashBalance.Equal(dec("1140.00")) || res.PositionQty != 8 {
		t.Fatalf("buy 3@120 result: cash=%s qty=%d", res.CashBalance, res.PositionQty)
	}
	p = onlyPosition(t, e, "a1")
	if !p.TotalCost.Equal(dec("860.00")) || !p.MinPrice.Equal(dec("100.00")) || !p.MaxPrice.Equal(dec("120.00")) {
		t.Fatalf("position after second buy: %+v", p)
	}

	res, err = e.Execute(ctx, sell("E1", 8, "150.00"))
	if err != nil {
		t.Fatalf("sell 8@150: %v", err)
	}
	if !res.CashBalance.Equal(dec("2340.00")) || res.PositionQty != 0 {
		t.Fatalf("sell 8@150 result: cash=%s qty=%d", res.CashBalance, res.PositionQty)
	}
	positions, err := e.ListPositions(ctx, "a1")
	if err != nil {
		t.Fatalf("ListPositions: %v", err)
	}
	if len(positions) != 0 {
		t.Fatalf("full liquidation must delete the position, got %+v", positions)
	}
	mustCash(t, e, "a1", "2340.00")
}

func TestExecuteValidation(t *testing.T) {
	e, _ := newTestEngine(t, "a1", "2000.00")
	ctx := context.Background()

	tests := []struct {
		name string
		req  ExecuteRequest
		want error
	}{
		{name: "zero quantity", req: buy("E1", 0, "10.00"), want: ErrInvalidQuantity},
		{name: "negative quantity", req: buy("E1", -2, "10.00"), want: ErrInvalidQuantity},
		{name: "negative price", req: buy("E1", 1, "-1.00"), want: ErrInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Execute(ctx, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got err=%v want=%v", err, tt.want)
			}
		})
	}
	// no mutation happened
	mustCash(t, e, "a1", "2000.00")
}

func TestExecuteZeroPriceIsAccepted(t *testing.T) {
	e, _ := newTestEngine(t, "a1", "100.00")
	res, err := e.Execute(context.Background(), buy("E1", 4, "0"))
	if err != nil {
		t.Fatalf("free buy: %v", err)
	}
	if !res.CashBalance.Equal(dec("100.00")) || res.PositionQty != 4 {
		t.Fatalf("free buy result: cash=%s qty=%d", res.CashBalance, res.PositionQty)
	}
}

func TestExecuteWalletNotFound(t *testing.T) {
	e := NewEngine(NewMemStore())
	_, err := e.Execute(context.Background(), buy("E1", 1, "10.00"))
	if !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("got err=%v want=%v", err, ErrWalletNotFound)
	}
}

func TestExecuteInsufficientFunds(t *testing.T) {
	e, _ := newTestEngine(t, "a1", "50.00")
	_, err := e.Execute(context.Background(), buy("E1", 1, "100.00"))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("got err=%v want=%v", err, ErrInsufficientFunds)
	}
	mustCash(t, e, "a1", "50.00")
	positions, _ := e.ListPositions(context.Background(), "a1")
	if len(positions) != 0 {
		t.Fatalf("rejected buy must not create a position: %+v", positions)
	}
}

func TestExecuteSellWithoutPosition(t *testing.T) {
	e, _ := newTestEngine(t, "a1", "100.00")
	_, err := e.Execute(context.Background(), sell("E1", 1, "10.00"))
	if !errors.Is(err, ErrNoPosition) {
		t.Fatalf("got err=%v want=%v", err, ErrNoPosition)
	}
	mustCash(t, e, "a1", "100.00")
}

func TestExecuteOversell(t *testing.T) {
	e, _ := newTestEngine(t, "a1", "100.00")
	ctx := context.Background()
	if _, err := e.Execute(ctx, buy("E1", 2, "10.00")); err != nil {
		t.Fatalf("setup buy: %v", err)
	}
	_, err := e.Execute(ctx, sell("E1", 3, "10.00"))
	if !errors.Is(err, ErrInsufficientHoldings) {
		t.Fatalf("got err=%v want=%v", err, ErrInsufficientHoldings)
	}
	p := onlyPosition(t, e, "a1")
	if p.Quantity != 2 {
		t.Fatalf("rejected sell changed quantity: %d", p.Quantity)
	}
	mustCash(t, e, "a1", "80.00")
}

func TestExecuteConcurrentBuysNoLostUpdate(t *testing.T) {
	e, _ := newTestEngine(t, "a1", "1000.00")

	quantities := []int64{3, 4}
	var wg sync.WaitGroup
	errs := make([]error, len(quantities))
	for i, q := range quantities {
		wg.Add(1)
		go func(i int, q int64) {
			defer wg.Done()
			_, errs[i] = e.Execute(context.Background(), buy("E1", q, "10.00"))
		}(i, q)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent buy %d: %v", i, err)
		}
	}

	p := onlyPosition(t, e, "a1")
	if p.Quantity != 7 {
		t.Fatalf("lost update: qty got=%d want=7", p.Quantity)
	}
	if !p.TotalCost.Equal(dec("70.00")) {
		t.Fatalf("lost update: total cost got=%s want=70.00", p.TotalCost)
	}
	mustCash(t, e, "a1", "930.00")
}

func TestExecuteConcurrentTradesDifferentAccounts(t *testing.T) {
	store := NewMemStore()
	e := NewEngine(store)
	const n = 8
	for i := 0; i < n; i++ {
		store.EnsureWallet(fmt.Sprintf("acct-%d", i), dec("500.00"))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			accountID := fmt.Sprintf("acct-%d", i)
			for j := 0; j < 10; j++ {
				_, err := e.Execute(context.Background(), ExecuteRequest{
					AccountID: accountID, Side: types.SideBuy,
					EventID: "E1", EventName: "E1", Quantity: 1, Price: dec("5.00"),
				})
				if err != nil {
					t.Errorf("%s buy %d: %v", accountID, j, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		accountID := fmt.Sprintf("acct-%d", i)
		cash, err := e.CashBalance(context.Background(), accountID)
		if err != nil {
			t.Fatalf("CashBalance %s: %v", accountID, err)
		}
		if !cash.Equal(dec("450.00")) {
			t.Fatalf("%s cash got=%s want=450.00", accountID, cash)
		}
	}
}

// Cash and cost basis move in lockstep: a buy debits exactly what the
// position absorbs, so cash + total cost is invariant across any buy-only
// sequence, and every accepted trade keeps cash non-negative.
func TestExecuteConservation(t *testing.T) {
	e, _ := newTestEngine(t, "a1", "10000.00")
	ctx := context.Background()
	initial := dec("10000.00")

	rng := rand.New(rand.NewSource(42))
	events := []string{"E1", "E2", "E3"}
	var sells, buys decimal.Decimal

	for i := 0; i < 200; i++ {
		eventID := events[rng.Intn(len(events))]
		qty := int64(rng.Intn(5) + 1)
		price := decimal.NewFromInt(int64(rng.Intn(2000)+1)).Div(decimal.NewFromInt(100)) // 0.01 .. 20.00
		value := price.Mul(decimal.NewFromInt(qty))

		var req ExecuteRequest
		if rng.Intn(2) == 0 {
			req = ExecuteRequest{AccountID: "a1", Side: types.SideBuy, EventID: eventID, EventName: eventID, Quantity: qty, Price: price}
		} else {
			req = ExecuteRequest{AccountID: "a1", Side: types.SideSell, EventID: eventID, EventName: eventID, Quantity: qty, Price: price}
		}
		_, err := e.Execute(ctx, req)
		switch {
		case err == nil:
			if req.Side == types.SideBuy {
				buys = buys.Add(value)
			} else {
				sells = sells.Add(value)
			}
		case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrNoPosition), errors.Is(err, ErrInsufficientHoldings):
			// rejected trades must leave no trace; the final balance check
			// below would catch any partial write
		default:
			t.Fatalf("trade %d: %v", i, err)
		}

		cash, err := e.CashBalance(ctx, "a1")
		if err != nil {
			t.Fatalf("CashBalance: %v", err)
		}
		if cash.IsNegative() {
			t.Fatalf("cash went negative after trade %d: %s", i, cash)
		}
	}

	cash, err := e.CashBalance(ctx, "a1")
	if err != nil {
		t.Fatalf("CashBalance: %v", err)
	}
	want := initial.Sub(buys).Add(sells)
	if !cash.Equal(want) {
		t.Fatalf("cash drifted: got=%s want=%s (buys=%s sells=%s)", cash, want, buys, sells)
	}
}

// failingStore wraps MemStore and fails one named operation, proving that a
// storage failure after locks are held rolls everything back.
type failingStore struct {
	*MemStore
	failOp string
}

type failingTx struct {
	LedgerTx
	failOp string
}

func (s *failingStore) Begin(ctx context.Context) (LedgerTx, error) {
	if s.failOp == "begin" {
		return nil, errors.New("injected")
	}
	tx, err := s.MemStore.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{LedgerTx: tx, failOp: s.failOp}, nil
}

func (t *failingTx) UpsertPosition(ctx context.Context, pos model.Position) error {
	if t.failOp == "upsert" {
		return errors.New("injected")
	}
	return t.LedgerTx.UpsertPosition(ctx, pos)
}

func (t *failingTx) UpdateWallet(ctx context.Context, accountID string, cash decimal.Decimal) error {
	if t.failOp == "wallet" {
		return errors.New("injected")
	}
	return t.LedgerTx.UpdateWallet(ctx, accountID, cash)
}

func TestExecuteStorageFailureRollsBack(t *testing.T) {
	for _, failOp := range []string{"begin", "upsert", "wallet"} {
		t.Run(failOp, func(t *testing.T) {
			mem := NewMemStore()
			mem.EnsureWallet("a1", dec("100.00"))
			e := NewEngine(&failingStore{MemStore: mem, failOp: failOp})

			_, err := e.Execute(context.Background(), buy("E1", 1, "10.00"))
			if !errors.Is(err, ErrStorage) {
				t.Fatalf("got err=%v want ErrStorage", err)
			}

			cash, err := mem.CashBalance(context.Background(), "a1")
			if err != nil {
				t.Fatalf("CashBalance: %v", err)
			}
			if !cash.Equal(dec("100.00")) {
				t.Fatalf("cash mutated on failed trade: %s", cash)
			}
			positions, _ := mem.Positions(context.Background(), "a1")
			if len(positions) != 0 {
				t.Fatalf("position written on failed trade: %+v", positions)
			}
		})
	}
}

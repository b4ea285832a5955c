package trading

import (
	"errors"
	"fmt"
)

// Terminal business errors are returned verbatim and must never be retried;
// ErrStorage is the only transient kind and is eligible for caller retry.
var (
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidPrice         = errors.New("price must be a non-negative amount")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrInsufficientFunds    = errors.New("insufficient cash")
	ErrNoPosition           = errors.New("no position to sell")
	ErrInsufficientHoldings = errors.New("sell qty exceeds position")
	ErrStorage              = errors.New("storage failure")
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

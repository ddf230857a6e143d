package shop

import (
	"errors"
	"fmt"
)

// Sentinel errors callers can branch on with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrOutOfStock = errors.New("out of stock")
	ErrEmptyCart  = errors.New("cart is empty")
	ErrNotInCart  = errors.New("product not in cart")
	ErrCancelled  = errors.New("checkout cancelled")
)

// ValidationError covers malformed input: empty required fields,
// non-positive quantities and the like.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientStockError reports the product whose requested quantity
// exceeds what is currently available.
type InsufficientStockError struct {
	ProductID int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// StockWouldGoNegativeError guards the decrement at the storage
// boundary. Unreachable when validation ran under the same row locks,
// but still checked.
type StockWouldGoNegativeError struct {
	ProductID int64
	Stock     int
	Amount    int
}

func (e *StockWouldGoNegativeError) Error() string {
	return fmt.Sprintf("stock would go negative for product %d: stock %d, decrement %d",
		e.ProductID, e.Stock, e.Amount)
}

// StorageError wraps transaction/commit failures from the store.
// The whole operation has been rolled back; the caller may retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

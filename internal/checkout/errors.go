package checkout

import (
	"errors"
	"fmt"
)

// ErrTransactionStart is returned when the store cannot open a transaction.
var ErrTransactionStart = errors.New("could not start transaction")

// ErrCommitFailed is returned when the final commit fails after every line
// succeeded.
var ErrCommitFailed = errors.New("checkout failed on commit")

// InvalidRequestError reports malformed input, detected before any store
// access.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid checkout request: %s", e.Reason)
}

// CropNotFoundError reports a line referencing a crop that did not exist at
// lock time.
type CropNotFoundError struct {
	CropID int64
}

func (e *CropNotFoundError) Error() string {
	return fmt.Sprintf("crop %d not found", e.CropID)
}

// InsufficientStockError reports a line whose requested quantity exceeds the
// locked available quantity.
type InsufficientStockError struct {
	CropID    int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for crop %d: available %d, requested %d",
		e.CropID, e.Available, e.Requested)
}

// StoreError wraps any other failure from a read, write, or lock call inside
// the transaction.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("checkout store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

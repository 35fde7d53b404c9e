package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when an operation names an unknown record.
	ErrNotFound = errors.New("not found")

	// ErrUnknownBeneficiary is returned when a distribution names an unknown beneficiary.
	ErrUnknownBeneficiary = errors.New("unknown beneficiary")

	// ErrInsufficientStock matches every *InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError reports the first distribution line that cannot be served.
type InsufficientStockError struct {
	ItemID    string
	ItemName  string
	Requested decimal.Decimal
	Available decimal.Decimal
	Missing   bool
}

func (e *InsufficientStockError) Error() string {
	if e.Missing {
		return fmt.Sprintf("insufficient stock for %q: item does not exist", e.ItemName)
	}
	return fmt.Sprintf("insufficient stock for %q: have %s, need %s", e.ItemName, e.Available, e.Requested)
}

// Is makes errors.Is(err, ErrInsufficientStock) succeed.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

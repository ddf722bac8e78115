package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrProductUnavailable = errors.New("product unavailable")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrNotFound           = errors.New("product not found")
)

// InsufficientStockError reports a debit that would take quantity-on-hand
// below zero, or a debit against a hidden product. Remaining is the number
// of units still sellable.
type InsufficientStockError struct {
	ProductID string
	Remaining int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d remaining", e.ProductID, e.Remaining)
}

type Product struct {
	ID          string
	VendorID    string
	Name        string
	Description string
	PriceCents  int64
	Quantity    int
	Images      []string
	Available   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Sufficiency is the outcome of a stock admission check. A negative outcome
// is an expected result, not an error; Available lets the caller report how
// many units are still on hand.
type Sufficiency struct {
	OK        bool
	Available int
}

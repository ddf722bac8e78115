package domain

import (
	"errors"
	"time"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusCancelled OrderStatus = "cancelled"
	StatusCompleted OrderStatus = "completed"
)

var (
	ErrMissingOrderID        = errors.New("processor order id is required")
	ErrInvalidCart           = errors.New("cart is empty or malformed")
	ErrTotalMismatch         = errors.New("declared total does not match line items")
	ErrAmountMismatch        = errors.New("captured amount does not match cart total")
	ErrPaymentNotCompleted   = errors.New("payment not completed")
	ErrDuplicateTransaction  = errors.New("transaction already captured")
	ErrCaptureInProgress     = errors.New("capture already in progress")
	ErrNotFound              = errors.New("order not found")
)

// TotalEpsilonCents is the tolerance for comparing money amounts: one cent,
// i.e. 0.01 of a currency unit. Differences beyond it are rejected.
const TotalEpsilonCents = 1

type CartItem struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Cart struct {
	VendorID           string     `json:"vendor_id"`
	Items              []CartItem `json:"items"`
	DeclaredTotalCents int64      `json:"declared_total_cents"`
}

// ItemsTotalCents is the server-side total; client-declared figures are never
// trusted for financial decisions.
func (c Cart) ItemsTotalCents() int64 {
	var total int64
	for _, it := range c.Items {
		total += int64(it.Quantity) * it.UnitPriceCents
	}
	return total
}

func (c Cart) Validate() error {
	if c.VendorID == "" || len(c.Items) == 0 {
		return ErrInvalidCart
	}
	for _, it := range c.Items {
		if it.ProductID == "" || it.Quantity <= 0 || it.UnitPriceCents < 0 {
			return ErrInvalidCart
		}
	}
	return nil
}

// AmountsMatch compares two money amounts in cents within TotalEpsilonCents.
func AmountsMatch(a, b int64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= TotalEpsilonCents
}

type Order struct {
	ID            string
	UserID        string
	VendorID      string
	TotalCents    int64
	Status        OrderStatus
	PaymentMethod string
	TransactionID string
	Items         []CartItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

package application

import (
	"context"

	"github.com/PixelCodeeee/arroyo-seco-backend/internal/checkout/domain"
)

type OrderRepository interface {
	// CreatePaid records the order and debits every line item's stock in one
	// transaction. A transaction id already present on a committed order
	// yields domain.ErrDuplicateTransaction; an insufficient line item yields
	// the inventory error and nothing is committed.
	CreatePaid(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, id string) (domain.Order, error)
}

// CaptureResult is what the processor reports for a captured order. Only its
// figures are trusted for the amount check.
type CaptureResult struct {
	Status        string
	TransactionID string
	AmountCents   int64
	Currency      string
	PayerEmail    string
}

// ProcessorOrder is the processor's read-only view of an order.
type ProcessorOrder struct {
	ID     string
	Status string
	Raw    []byte
}

// PaymentProcessor is the external payment collaborator: create an order for
// approval, capture it after approval, and look one up.
type PaymentProcessor interface {
	CreateOrder(ctx context.Context, totalCents int64, items []domain.CartItem) (string, error)
	CaptureOrder(ctx context.Context, processorOrderID string) (CaptureResult, error)
	GetOrder(ctx context.Context, processorOrderID string) (ProcessorOrder, error)
}

// CaptureGuard fends off concurrent duplicate captures before the processor
// is even called. The database unique constraint remains the authority.
type CaptureGuard interface {
	Seen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

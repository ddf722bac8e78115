package application

import (
	"context"

	"github.com/PixelCodeeee/arroyo-seco-backend/internal/inventory/domain"
)

type StockRepository interface {
	// DebitStock atomically decrements quantity-on-hand and returns the new
	// quantity. The read and the write run in one transaction holding a row
	// lock on the product.
	DebitStock(ctx context.Context, productID string, qty int) (int, error)
	// CreditStock atomically increments quantity-on-hand (restock or
	// reversal) and returns the new quantity. No upper bound.
	CreditStock(ctx context.Context, productID string, qty int) (int, error)
	// CheckStock reports sufficiency without placing a hold.
	CheckStock(ctx context.Context, productID string, qty int) (domain.Sufficiency, error)
	SetAvailability(ctx context.Context, productID string, available bool) error
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

package application

import (
	"context"
	"log/slog"

	"github.com/PixelCodeeee/arroyo-seco-backend/internal/inventory/domain"
)

type Service struct {
	log  *slog.Logger
	repo StockRepository
}

func NewService(log *slog.Logger, repo StockRepository) *Service {
	return &Service{log: log, repo: repo}
}

// CheckStock answers whether qty units of a product can be sold right now.
// It places no hold; stock may be gone by the time a capture arrives.
func (s *Service) CheckStock(ctx context.Context, productID string, qty int) (domain.Sufficiency, error) {
	if qty <= 0 {
		return domain.Sufficiency{}, domain.ErrInvalidQuantity
	}
	return s.repo.CheckStock(ctx, productID, qty)
}

func (s *Service) Debit(ctx context.Context, productID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	remaining, err := s.repo.DebitStock(ctx, productID, qty)
	if err != nil {
		return 0, err
	}
	s.log.Info("stock debited", "product_id", productID, "qty", qty, "remaining", remaining)
	return remaining, nil
}

func (s *Service) Credit(ctx context.Context, productID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	quantity, err := s.repo.CreditStock(ctx, productID, qty)
	if err != nil {
		return 0, err
	}
	s.log.Info("stock credited", "product_id", productID, "qty", qty, "quantity", quantity)
	return quantity, nil
}

// SetAvailability hides or re-lists a product. Hidden products are excluded
// from admission checks regardless of quantity; rows are never deleted.
func (s *Service) SetAvailability(ctx context.Context, productID string, available bool) error {
	return s.repo.SetAvailability(ctx, productID, available)
}

func (s *Service) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	return s.repo.GetProduct(ctx, productID)
}

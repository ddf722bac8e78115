package application

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/PixelCodeeee/arroyo-seco-backend/internal/checkout/domain"
	"github.com/PixelCodeeee/arroyo-seco-backend/pkg/idempotency"
)

const statusCompleted = "COMPLETED"

// Service coordinates the two-phase checkout: Initiate creates an order at
// the processor without touching local state; Capture turns a completed
// external payment into a durable order plus stock debit, at most once per
// external transaction id.
type Service struct {
	log       *slog.Logger
	repo      OrderRepository
	processor PaymentProcessor
	guard     CaptureGuard
}

func NewService(log *slog.Logger, repo OrderRepository, processor PaymentProcessor, guard CaptureGuard) *Service {
	return &Service{log: log, repo: repo, processor: processor, guard: guard}
}

// Initiate validates the cart, recomputes its total server-side, and asks the
// processor to create an order. Nothing is reserved between here and Capture;
// stock may be gone by the time the payment completes.
func (s *Service) Initiate(ctx context.Context, cart domain.Cart) (string, error) {
	if err := cart.Validate(); err != nil {
		return "", err
	}
	total := cart.ItemsTotalCents()
	if !domain.AmountsMatch(total, cart.DeclaredTotalCents) {
		return "", domain.ErrTotalMismatch
	}

	processorOrderID, err := s.processor.CreateOrder(ctx, total, cart.Items)
	if err != nil {
		return "", err
	}
	s.log.Info("checkout initiated", "processor_order_id", processorOrderID, "total_cents", total)
	return processorOrderID, nil
}

// Capture verifies the processor's capture, then in one transaction debits
// every line item and records the order as paid. The payment is already
// captured at the processor when a stock debit fails here; that gap is
// surfaced as a conflict for external reconciliation, not retried.
func (s *Service) Capture(ctx context.Context, processorOrderID, userID string, cart domain.Cart) (domain.Order, error) {
	if strings.TrimSpace(processorOrderID) == "" {
		return domain.Order{}, domain.ErrMissingOrderID
	}
	if err := cart.Validate(); err != nil {
		return domain.Order{}, err
	}

	if s.guard != nil {
		key := idempotency.CaptureKey(processorOrderID)
		seen, err := s.guard.Seen(ctx, key)
		if err != nil {
			s.log.Warn("capture guard unavailable, relying on unique constraint", "err", err)
		} else if seen {
			return domain.Order{}, domain.ErrCaptureInProgress
		} else {
			defer func() {
				_ = s.guard.Release(ctx, key)
			}()
		}
	}

	capture, err := s.processor.CaptureOrder(ctx, processorOrderID)
	if err != nil {
		return domain.Order{}, err
	}
	if capture.Status != statusCompleted {
		s.log.Warn("capture not completed", "processor_order_id", processorOrderID, "status", capture.Status)
		return domain.Order{}, domain.ErrPaymentNotCompleted
	}
	if !domain.AmountsMatch(capture.AmountCents, cart.ItemsTotalCents()) {
		s.log.Warn("captured amount mismatch", "processor_order_id", processorOrderID,
			"captured_cents", capture.AmountCents, "cart_cents", cart.ItemsTotalCents())
		return domain.Order{}, domain.ErrAmountMismatch
	}

	order := domain.Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		VendorID:      cart.VendorID,
		TotalCents:    capture.AmountCents,
		Status:        domain.StatusPaid,
		PaymentMethod: "paypal",
		TransactionID: capture.TransactionID,
		Items:         cart.Items,
	}
	if err := s.repo.CreatePaid(ctx, order); err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order captured", "order_id", order.ID, "transaction_id", order.TransactionID,
		"total_cents", order.TotalCents)
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetProcessorOrder(ctx context.Context, processorOrderID string) (ProcessorOrder, error) {
	if strings.TrimSpace(processorOrderID) == "" {
		return ProcessorOrder{}, domain.ErrMissingOrderID
	}
	return s.processor.GetOrder(ctx, processorOrderID)
}

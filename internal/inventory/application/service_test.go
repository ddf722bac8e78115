package application

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PixelCodeeee/arroyo-seco-backend/internal/inventory/domain"
)

// fakeStock holds products behind a mutex, standing in for the row lock the
// real repository takes on debits and credits.
type fakeStock struct {
	mu       sync.Mutex
	products map[string]domain.Product
}

func newFakeStock() *fakeStock {
	return &fakeStock{products: map[string]domain.Product{}}
}

func (f *fakeStock) DebitStock(_ context.Context, productID string, qty int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok || !p.Available {
		return 0, &domain.InsufficientStockError{ProductID: productID, Remaining: 0}
	}
	if p.Quantity < qty {
		return 0, &domain.InsufficientStockError{ProductID: productID, Remaining: p.Quantity}
	}
	p.Quantity -= qty
	f.products[productID] = p
	return p.Quantity, nil
}

func (f *fakeStock) CreditStock(_ context.Context, productID string, qty int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	p.Quantity += qty
	f.products[productID] = p
	return p.Quantity, nil
}

func (f *fakeStock) CheckStock(_ context.Context, productID string, qty int) (domain.Sufficiency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return domain.Sufficiency{}, domain.ErrNotFound
	}
	if !p.Available {
		return domain.Sufficiency{}, domain.ErrProductUnavailable
	}
	return domain.Sufficiency{OK: p.Quantity >= qty, Available: p.Quantity}, nil
}

func (f *fakeStock) SetAvailability(_ context.Context, productID string, available bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	p.Available = available
	f.products[productID] = p
	return nil
}

func (f *fakeStock) GetProduct(_ context.Context, productID string) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func newTestService(qty int) (*Service, *fakeStock) {
	repo := newFakeStock()
	repo.products["prod-1"] = domain.Product{ID: "prod-1", Name: "salsa macha", Quantity: qty, Available: true}
	return NewService(slog.New(slog.DiscardHandler), repo), repo
}

func TestCheckStock(t *testing.T) {
	svc, _ := newTestService(3)
	ctx := context.Background()

	suf, err := svc.CheckStock(ctx, "prod-1", 2)
	require.NoError(t, err)
	assert.True(t, suf.OK)
	assert.Equal(t, 3, suf.Available)

	suf, err = svc.CheckStock(ctx, "prod-1", 4)
	require.NoError(t, err)
	assert.False(t, suf.OK)
	assert.Equal(t, 3, suf.Available)

	_, err = svc.CheckStock(ctx, "prod-1", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestCheckStock_Hidden(t *testing.T) {
	svc, repo := newTestService(3)
	require.NoError(t, repo.SetAvailability(context.Background(), "prod-1", false))

	_, err := svc.CheckStock(context.Background(), "prod-1", 1)
	assert.ErrorIs(t, err, domain.ErrProductUnavailable)
}

func TestDebit(t *testing.T) {
	svc, _ := newTestService(3)
	ctx := context.Background()

	remaining, err := svc.Debit(ctx, "prod-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	_, err = svc.Debit(ctx, "prod-1", 2)
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Remaining)

	_, err = svc.Debit(ctx, "prod-1", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestDebit_HiddenProduct(t *testing.T) {
	svc, _ := newTestService(3)
	ctx := context.Background()
	require.NoError(t, svc.SetAvailability(ctx, "prod-1", false))

	_, err := svc.Debit(ctx, "prod-1", 1)
	var stockErr *domain.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
}

func TestCredit(t *testing.T) {
	svc, _ := newTestService(1)
	ctx := context.Background()

	quantity, err := svc.Credit(ctx, "prod-1", 4)
	require.NoError(t, err)
	assert.Equal(t, 5, quantity)

	_, err = svc.Credit(ctx, "prod-1", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.Credit(ctx, "ghost", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Racing debits must never drive quantity below zero.
func TestDebit_Concurrent(t *testing.T) {
	svc, repo := newTestService(10)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Debit(ctx, "prod-1", 1)
		}()
	}
	wg.Wait()

	p, err := repo.GetProduct(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Quantity)
}

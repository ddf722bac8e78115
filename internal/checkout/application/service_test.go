package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PixelCodeeee/arroyo-seco-backend/internal/checkout/domain"
	inventorydomain "github.com/PixelCodeeee/arroyo-seco-backend/internal/inventory/domain"
)

type fakeProcessor struct {
	createCalls  atomic.Int32
	captureCalls atomic.Int32
	createErr    error
	captureErr   error
	status       string
	amountCents  int64
}

func (f *fakeProcessor) CreateOrder(_ context.Context, _ int64, _ []domain.CartItem) (string, error) {
	f.createCalls.Add(1)
	if f.createErr != nil {
		return "", f.createErr
	}
	return "PP-ORDER-1", nil
}

func (f *fakeProcessor) CaptureOrder(_ context.Context, processorOrderID string) (CaptureResult, error) {
	f.captureCalls.Add(1)
	if f.captureErr != nil {
		return CaptureResult{}, f.captureErr
	}
	return CaptureResult{
		Status:        f.status,
		TransactionID: "TX-" + processorOrderID,
		AmountCents:   f.amountCents,
		Currency:      "MXN",
	}, nil
}

func (f *fakeProcessor) GetOrder(_ context.Context, processorOrderID string) (ProcessorOrder, error) {
	return ProcessorOrder{ID: processorOrderID, Status: f.status}, nil
}

// fakeOrderRepo models CreatePaid's all-or-nothing transaction: the duplicate
// check, the stock debits, and the order write happen under one mutex and a
// failed debit leaves nothing behind.
type fakeOrderRepo struct {
	mu     sync.Mutex
	stock  map[string]int
	orders map[string]domain.Order // keyed by transaction id
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{stock: map[string]int{}, orders: map[string]domain.Order{}}
}

func (f *fakeOrderRepo) CreatePaid(_ context.Context, o domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[o.TransactionID]; ok {
		return domain.ErrDuplicateTransaction
	}
	for _, it := range o.Items {
		if f.stock[it.ProductID] < it.Quantity {
			return &inventorydomain.InsufficientStockError{ProductID: it.ProductID, Remaining: f.stock[it.ProductID]}
		}
	}
	for _, it := range o.Items {
		f.stock[it.ProductID] -= it.Quantity
	}
	f.orders[o.TransactionID] = o
	return nil
}

func (f *fakeOrderRepo) Get(_ context.Context, id string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrNotFound
}

type fakeGuard struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeGuard() *fakeGuard { return &fakeGuard{held: map[string]bool{}} }

func (f *fakeGuard) Seen(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return true, nil
	}
	f.held[key] = true
	return false, nil
}

func (f *fakeGuard) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	return nil
}

func testCart(qty int, unitCents int64) domain.Cart {
	return domain.Cart{
		VendorID:           "vendor-1",
		Items:              []domain.CartItem{{ProductID: "prod-1", Name: "salsa macha", Quantity: qty, UnitPriceCents: unitCents}},
		DeclaredTotalCents: int64(qty) * unitCents,
	}
}

func TestInitiate(t *testing.T) {
	proc := &fakeProcessor{}
	svc := NewService(slog.New(slog.DiscardHandler), newFakeOrderRepo(), proc, nil)

	id, err := svc.Initiate(context.Background(), testCart(2, 2500))
	require.NoError(t, err)
	assert.Equal(t, "PP-ORDER-1", id)
	assert.Equal(t, int32(1), proc.createCalls.Load())
}

// A declared total of 100.00 against 99.50 of line items never reaches the
// processor.
func TestInitiate_TotalMismatch(t *testing.T) {
	proc := &fakeProcessor{}
	svc := NewService(slog.New(slog.DiscardHandler), newFakeOrderRepo(), proc, nil)

	cart := testCart(2, 4975) // items total 99.50
	cart.DeclaredTotalCents = 10000
	_, err := svc.Initiate(context.Background(), cart)
	assert.ErrorIs(t, err, domain.ErrTotalMismatch)
	assert.Equal(t, int32(0), proc.createCalls.Load())
}

func TestInitiate_InvalidCart(t *testing.T) {
	proc := &fakeProcessor{}
	svc := NewService(slog.New(slog.DiscardHandler), newFakeOrderRepo(), proc, nil)

	_, err := svc.Initiate(context.Background(), domain.Cart{VendorID: "vendor-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCart)
}

func TestCapture(t *testing.T) {
	proc := &fakeProcessor{status: "COMPLETED", amountCents: 5000}
	repo := newFakeOrderRepo()
	repo.stock["prod-1"] = 3
	svc := NewService(slog.New(slog.DiscardHandler), repo, proc, newFakeGuard())

	order, err := svc.Capture(context.Background(), "PP-ORDER-1", "user-1", testCart(2, 2500))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, order.Status)
	assert.Equal(t, "TX-PP-ORDER-1", order.TransactionID)
	assert.Equal(t, int64(5000), order.TotalCents)
	assert.Equal(t, 1, repo.stock["prod-1"])

	got, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestCapture_MissingOrderID(t *testing.T) {
	svc := NewService(slog.New(slog.DiscardHandler), newFakeOrderRepo(), &fakeProcessor{}, nil)
	_, err := svc.Capture(context.Background(), "  ", "user-1", testCart(1, 100))
	assert.ErrorIs(t, err, domain.ErrMissingOrderID)
}

func TestCapture_PaymentNotCompleted(t *testing.T) {
	proc := &fakeProcessor{status: "PENDING", amountCents: 5000}
	repo := newFakeOrderRepo()
	repo.stock["prod-1"] = 3
	svc := NewService(slog.New(slog.DiscardHandler), repo, proc, nil)

	_, err := svc.Capture(context.Background(), "PP-ORDER-1", "user-1", testCart(2, 2500))
	assert.ErrorIs(t, err, domain.ErrPaymentNotCompleted)
	assert.Empty(t, repo.orders)
	assert.Equal(t, 3, repo.stock["prod-1"])
}

// A 50.00 cart captured as 55.00 at the processor stores no order.
func TestCapture_AmountMismatch(t *testing.T) {
	proc := &fakeProcessor{status: "COMPLETED", amountCents: 5500}
	repo := newFakeOrderRepo()
	repo.stock["prod-1"] = 3
	svc := NewService(slog.New(slog.DiscardHandler), repo, proc, nil)

	_, err := svc.Capture(context.Background(), "PP-ORDER-1", "user-1", testCart(2, 2500))
	assert.ErrorIs(t, err, domain.ErrAmountMismatch)
	assert.Empty(t, repo.orders)
	assert.Equal(t, 3, repo.stock["prod-1"])
}

func TestCapture_DuplicateTransaction(t *testing.T) {
	proc := &fakeProcessor{status: "COMPLETED", amountCents: 5000}
	repo := newFakeOrderRepo()
	repo.stock["prod-1"] = 10
	svc := NewService(slog.New(slog.DiscardHandler), repo, proc, newFakeGuard())

	_, err := svc.Capture(context.Background(), "PP-ORDER-1", "user-1", testCart(2, 2500))
	require.NoError(t, err)

	// The guard key was released when the first capture finished, so the
	// replay reaches the repository and trips the duplicate check there.
	_, err = svc.Capture(context.Background(), "PP-ORDER-1", "user-1", testCart(2, 2500))
	assert.ErrorIs(t, err, domain.ErrDuplicateTransaction)
	assert.Len(t, repo.orders, 1)
	assert.Equal(t, 8, repo.stock["prod-1"])
}

func TestCapture_GuardBlocksConcurrentReplay(t *testing.T) {
	proc := &fakeProcessor{status: "COMPLETED", amountCents: 5000}
	repo := newFakeOrderRepo()
	repo.stock["prod-1"] = 10
	guard := newFakeGuard()
	svc := NewService(slog.New(slog.DiscardHandler), repo, proc, guard)

	seen, err := guard.Seen(context.Background(), "capture:PP-ORDER-1")
	require.NoError(t, err)
	require.False(t, seen)

	_, err = svc.Capture(context.Background(), "PP-ORDER-1", "user-1", testCart(2, 2500))
	assert.ErrorIs(t, err, domain.ErrCaptureInProgress)
	assert.Equal(t, int32(0), proc.captureCalls.Load())
}

func TestCapture_GuardFailureFallsThrough(t *testing.T) {
	proc := &fakeProcessor{status: "COMPLETED", amountCents: 5000}
	repo := newFakeOrderRepo()
	repo.stock["prod-1"] = 3
	svc := NewService(slog.New(slog.DiscardHandler), repo, proc, failingGuard{})

	_, err := svc.Capture(context.Background(), "PP-ORDER-1", "user-1", testCart(2, 2500))
	require.NoError(t, err)
	assert.Len(t, repo.orders, 1)
}

type failingGuard struct{}

func (failingGuard) Seen(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func (failingGuard) Release(context.Context, string) error { return nil }

func TestCapture_InsufficientStock(t *testing.T) {
	proc := &fakeProcessor{status: "COMPLETED", amountCents: 5000}
	repo := newFakeOrderRepo()
	repo.stock["prod-1"] = 1
	svc := NewService(slog.New(slog.DiscardHandler), repo, proc, nil)

	_, err := svc.Capture(context.Background(), "PP-ORDER-1", "user-1", testCart(2, 2500))
	var stockErr *inventorydomain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Remaining)
	assert.Empty(t, repo.orders)
	assert.Equal(t, 1, repo.stock["prod-1"])
}

// Two captures race for 3 units with 2 requested each: exactly one wins and
// one unit is left.
func TestCapture_ConcurrentStockContention(t *testing.T) {
	proc := &fakeProcessor{status: "COMPLETED", amountCents: 5000}
	repo := newFakeOrderRepo()
	repo.stock["prod-1"] = 3
	svc := NewService(slog.New(slog.DiscardHandler), repo, proc, newFakeGuard())

	results := make(chan error, 2)
	for _, id := range []string{"PP-ORDER-1", "PP-ORDER-2"} {
		go func(id string) {
			_, err := svc.Capture(context.Background(), id, "user-1", testCart(2, 2500))
			results <- err
		}(id)
	}

	var failures int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			var stockErr *inventorydomain.InsufficientStockError
			require.ErrorAs(t, err, &stockErr)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Len(t, repo.orders, 1)
	assert.Equal(t, 1, repo.stock["prod-1"])
}

func TestGetProcessorOrder(t *testing.T) {
	proc := &fakeProcessor{status: "CREATED"}
	svc := NewService(slog.New(slog.DiscardHandler), newFakeOrderRepo(), proc, nil)

	po, err := svc.GetProcessorOrder(context.Background(), "PP-ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, "CREATED", po.Status)

	_, err = svc.GetProcessorOrder(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrMissingOrderID)
}

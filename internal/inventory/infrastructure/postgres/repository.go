package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PixelCodeeee/arroyo-seco-backend/internal/inventory/domain"
	"github.com/PixelCodeeee/arroyo-seco-backend/internal/storage"
	"github.com/PixelCodeeee/arroyo-seco-backend/pkg/tracing"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// DebitStockTx runs the locked read-check-decrement inside the caller's
// transaction. Exported so the checkout repository can debit line items in
// the same transaction that records the order.
func DebitStockTx(ctx context.Context, tx pgx.Tx, productID string, qty int) (int, error) {
	var quantity int
	var available bool
	err := tx.QueryRow(ctx, `SELECT quantity, available FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&quantity, &available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, &domain.InsufficientStockError{ProductID: productID}
	}
	if err != nil {
		return 0, err
	}
	if !available {
		return 0, &domain.InsufficientStockError{ProductID: productID}
	}
	if quantity < qty {
		return 0, &domain.InsufficientStockError{ProductID: productID, Remaining: quantity}
	}

	_, err = tx.Exec(ctx, `UPDATE products SET quantity = quantity - $2, updated_at = now() WHERE id=$1`, productID, qty)
	if err != nil {
		return 0, err
	}
	return quantity - qty, nil
}

func (r *Repository) DebitStock(ctx context.Context, productID string, qty int) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	remaining, err := DebitStockTx(ctx, tx, productID, qty)
	if err != nil {
		return 0, err
	}

	payload, err := json.Marshal(domain.StockAdjusted{ProductID: productID, Delta: -qty, Quantity: remaining})
	if err != nil {
		return 0, err
	}
	if err := storage.AppendOutbox(ctx, tx, "product", productID, "StockAdjusted", payload, nil, tracing.TraceparentFromContext(ctx)); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return remaining, nil
}

func (r *Repository) CreditStock(ctx context.Context, productID string, qty int) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var quantity int
	err = tx.QueryRow(ctx, `UPDATE products SET quantity = quantity + $2, updated_at = now() WHERE id=$1 RETURNING quantity`, productID, qty).
		Scan(&quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	payload, err := json.Marshal(domain.StockAdjusted{ProductID: productID, Delta: qty, Quantity: quantity})
	if err != nil {
		return 0, err
	}
	if err := storage.AppendOutbox(ctx, tx, "product", productID, "StockAdjusted", payload, nil, tracing.TraceparentFromContext(ctx)); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return quantity, nil
}

func (r *Repository) CheckStock(ctx context.Context, productID string, qty int) (domain.Sufficiency, error) {
	var quantity int
	err := r.pool.QueryRow(ctx, `SELECT quantity FROM products WHERE id=$1 AND available`, productID).Scan(&quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Sufficiency{}, domain.ErrProductUnavailable
	}
	if err != nil {
		return domain.Sufficiency{}, err
	}
	return domain.Sufficiency{OK: quantity >= qty, Available: quantity}, nil
}

func (r *Repository) SetAvailability(ctx context.Context, productID string, available bool) error {
	ct, err := r.pool.Exec(ctx, `UPDATE products SET available=$2, updated_at = now() WHERE id=$1`, productID, available)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx, `SELECT id, vendor_id, name, COALESCE(description, ''), price_cents, quantity, images, available, created_at, updated_at
		FROM products WHERE id=$1`, productID).
		Scan(&p.ID, &p.VendorID, &p.Name, &p.Description, &p.PriceCents, &p.Quantity, &p.Images, &p.Available, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PixelCodeeee/arroyo-seco-backend/internal/checkout/domain"
	inventorypg "github.com/PixelCodeeee/arroyo-seco-backend/internal/inventory/infrastructure/postgres"
	"github.com/PixelCodeeee/arroyo-seco-backend/internal/storage"
	"github.com/PixelCodeeee/arroyo-seco-backend/pkg/tracing"
)

const uniqueViolation = "23505"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// CreatePaid is the capture transaction: order row first so a duplicate
// transaction id aborts before any stock row is locked, then one locked
// debit per line item, then items and the outbox event. Any failure rolls
// the whole thing back.
func (r *Repository) CreatePaid(ctx context.Context, o domain.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO orders (id, user_id, vendor_id, total_cents, status, payment_method, transaction_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.ID, o.UserID, o.VendorID, o.TotalCents, o.Status, o.PaymentMethod, o.TransactionID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateTransaction
		}
		return err
	}

	for _, item := range o.Items {
		if _, err := inventorypg.DebitStockTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, product_id, quantity, price_cents) VALUES ($1,$2,$3,$4)`,
			o.ID, item.ProductID, item.Quantity, item.UnitPriceCents)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	payload, err := json.Marshal(domain.OrderPaid{
		OrderID:       o.ID,
		UserID:        o.UserID,
		VendorID:      o.VendorID,
		TotalCents:    o.TotalCents,
		TransactionID: o.TransactionID,
		Items:         o.Items,
	})
	if err != nil {
		return err
	}
	if err := storage.AppendOutbox(ctx, tx, "order", o.ID, "OrderPaid", payload, nil, tracing.TraceparentFromContext(ctx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, vendor_id, total_cents, status, COALESCE(payment_method,''), COALESCE(transaction_id,''), created_at, updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.UserID, &o.VendorID, &o.TotalCents, &o.Status, &o.PaymentMethod, &o.TransactionID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT oi.product_id, p.name, oi.quantity, oi.price_cents
		FROM order_items oi JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id=$1`, id)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.UnitPriceCents); err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

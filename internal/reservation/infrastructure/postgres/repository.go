package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PixelCodeeee/arroyo-seco-backend/internal/reservation/domain"
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

// Reserved seats are summed from current rows on every admission; pending
// and confirmed hold seats, cancelled and completed do not.
const reservedSeatsQuery = `SELECT COALESCE(SUM(party_size), 0) FROM reservations
	WHERE service_id=$1 AND date=$2::date AND slot=$3 AND status IN ('pending', 'confirmed')`

const lockServiceQuery = `SELECT capacity FROM services WHERE id=$1 AND available FOR UPDATE`

func (r *Repository) CreateAdmitted(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Reservation{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// The service row lock serializes concurrent admissions for the same
	// service; summing current rows inside the same transaction makes the
	// remaining-capacity figure authoritative, not a cached counter.
	var capacity int
	err = tx.QueryRow(ctx, lockServiceQuery, res.ServiceID).Scan(&capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, domain.ErrServiceUnavailable
	}
	if err != nil {
		return domain.Reservation{}, err
	}

	var reserved int
	if err := tx.QueryRow(ctx, reservedSeatsQuery, res.ServiceID, res.Date, res.Slot).Scan(&reserved); err != nil {
		return domain.Reservation{}, err
	}
	remaining := capacity - reserved
	if remaining < 0 {
		remaining = 0
	}
	if remaining < res.PartySize {
		return domain.Reservation{}, &domain.CapacityError{Remaining: remaining}
	}

	err = tx.QueryRow(ctx, `INSERT INTO reservations (id, user_id, service_id, date, slot, party_size, status, notes)
		VALUES ($1,$2,$3,$4::date,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		res.ID, res.UserID, res.ServiceID, res.Date, res.Slot, res.PartySize, res.Status, res.Notes).
		Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return domain.Reservation{}, err
	}

	payload, err := json.Marshal(domain.ReservationCreated{
		ReservationID: res.ID,
		ServiceID:     res.ServiceID,
		Date:          res.Date,
		Slot:          res.Slot,
		PartySize:     res.PartySize,
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := storage.AppendOutbox(ctx, tx, "reservation", res.ID, "ReservationCreated", payload, nil, tracing.TraceparentFromContext(ctx)); err != nil {
		return domain.Reservation{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Reservation{}, err
	}
	return res, nil
}

func (r *Repository) UpdateAdmitted(ctx context.Context, id string, upd domain.Update) (domain.Reservation, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Reservation{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var cur domain.Reservation
	err = tx.QueryRow(ctx, `SELECT id, user_id, service_id, to_char(date, 'YYYY-MM-DD'), slot, party_size, status, COALESCE(notes,''), created_at, updated_at
		FROM reservations WHERE id=$1 FOR UPDATE`, id).
		Scan(&cur.ID, &cur.UserID, &cur.ServiceID, &cur.Date, &cur.Slot, &cur.PartySize, &cur.Status, &cur.Notes, &cur.CreatedAt, &cur.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Reservation{}, err
	}

	if upd.Date != nil {
		cur.Date = *upd.Date
	}
	if upd.Slot != nil {
		cur.Slot = *upd.Slot
	}
	if upd.PartySize != nil {
		cur.PartySize = *upd.PartySize
	}
	if upd.Notes != nil {
		cur.Notes = *upd.Notes
	}
	if err := cur.Validate(); err != nil {
		return domain.Reservation{}, err
	}

	// Re-admit against the other reservations at the target key; the record
	// being updated is excluded so its own seats do not count against it.
	var capacity int
	err = tx.QueryRow(ctx, lockServiceQuery, cur.ServiceID).Scan(&capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, domain.ErrServiceUnavailable
	}
	if err != nil {
		return domain.Reservation{}, err
	}

	var reserved int
	err = tx.QueryRow(ctx, reservedSeatsQuery+` AND id <> $4`, cur.ServiceID, cur.Date, cur.Slot, cur.ID).Scan(&reserved)
	if err != nil {
		return domain.Reservation{}, err
	}
	remaining := capacity - reserved
	if remaining < 0 {
		remaining = 0
	}
	if !cur.Status.Released() && remaining < cur.PartySize {
		return domain.Reservation{}, &domain.CapacityError{Remaining: remaining}
	}

	err = tx.QueryRow(ctx, `UPDATE reservations SET date=$2::date, slot=$3, party_size=$4, notes=$5, updated_at=now()
		WHERE id=$1 RETURNING updated_at`,
		cur.ID, cur.Date, cur.Slot, cur.PartySize, cur.Notes).
		Scan(&cur.UpdatedAt)
	if err != nil {
		return domain.Reservation{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Reservation{}, err
	}
	return cur, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, next domain.Status) (domain.Reservation, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Reservation{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var current domain.Status
	err = tx.QueryRow(ctx, `SELECT status FROM reservations WHERE id=$1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := domain.Transition(current, next); err != nil {
		return domain.Reservation{}, err
	}

	var res domain.Reservation
	err = tx.QueryRow(ctx, `UPDATE reservations SET status=$2, updated_at=now() WHERE id=$1
		RETURNING id, user_id, service_id, to_char(date, 'YYYY-MM-DD'), slot, party_size, status, COALESCE(notes,''), created_at, updated_at`,
		id, next).
		Scan(&res.ID, &res.UserID, &res.ServiceID, &res.Date, &res.Slot, &res.PartySize, &res.Status, &res.Notes, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return domain.Reservation{}, err
	}

	payload, err := json.Marshal(domain.ReservationStatusChanged{ReservationID: id, From: current, To: next})
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := storage.AppendOutbox(ctx, tx, "reservation", id, "ReservationStatusChanged", payload, nil, tracing.TraceparentFromContext(ctx)); err != nil {
		return domain.Reservation{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Reservation{}, err
	}
	return res, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var serviceID string
	var partySize int
	err = tx.QueryRow(ctx, `DELETE FROM reservations WHERE id=$1 RETURNING service_id, party_size`, id).
		Scan(&serviceID, &partySize)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}

	payload, err := json.Marshal(domain.ReservationDeleted{ReservationID: id, ServiceID: serviceID, PartySize: partySize})
	if err != nil {
		return err
	}
	if err := storage.AppendOutbox(ctx, tx, "reservation", id, "ReservationDeleted", payload, nil, tracing.TraceparentFromContext(ctx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) CheckSeats(ctx context.Context, serviceID, date, slot string, partySize int) (domain.Admission, error) {
	var capacity int
	err := r.pool.QueryRow(ctx, `SELECT capacity FROM services WHERE id=$1 AND available`, serviceID).Scan(&capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Admission{}, domain.ErrServiceUnavailable
	}
	if err != nil {
		return domain.Admission{}, err
	}

	var reserved int
	if err := r.pool.QueryRow(ctx, reservedSeatsQuery, serviceID, date, slot).Scan(&reserved); err != nil {
		return domain.Admission{}, err
	}
	remaining := capacity - reserved
	if remaining < 0 {
		remaining = 0
	}
	return domain.Admission{OK: remaining >= partySize, Remaining: remaining}, nil
}

const detailsQuery = `SELECT r.id, r.user_id, r.service_id, to_char(r.date, 'YYYY-MM-DD'), r.slot, r.party_size, r.status, COALESCE(r.notes,''), r.created_at, r.updated_at,
		u.name, u.email, s.name, s.capacity, v.business_name, COALESCE(v.address,'')
	FROM reservations r
	JOIN users u ON u.id = r.user_id
	JOIN services s ON s.id = r.service_id
	JOIN vendors v ON v.id = s.vendor_id`

func scanDetails(row pgx.Row) (domain.Details, error) {
	var d domain.Details
	err := row.Scan(&d.ID, &d.UserID, &d.ServiceID, &d.Date, &d.Slot, &d.PartySize, &d.Status, &d.Notes, &d.CreatedAt, &d.UpdatedAt,
		&d.UserName, &d.UserEmail, &d.ServiceName, &d.Capacity, &d.VendorName, &d.VendorAddress)
	return d, err
}

func (r *Repository) queryDetails(ctx context.Context, suffix string, args ...any) ([]domain.Details, error) {
	rows, err := r.pool.Query(ctx, detailsQuery+suffix, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Details
	for rows.Next() {
		d, err := scanDetails(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Details, error) {
	d, err := scanDetails(r.pool.QueryRow(ctx, detailsQuery+` WHERE r.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Details{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Details{}, err
	}
	return d, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Details, error) {
	return r.queryDetails(ctx, ` ORDER BY r.date DESC, r.slot DESC`)
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Details, error) {
	return r.queryDetails(ctx, ` WHERE r.user_id=$1 ORDER BY r.date DESC, r.slot DESC`, userID)
}

func (r *Repository) ListByService(ctx context.Context, serviceID string) ([]domain.Details, error) {
	return r.queryDetails(ctx, ` WHERE r.service_id=$1 ORDER BY r.date DESC, r.slot DESC`, serviceID)
}

func (r *Repository) ListByDate(ctx context.Context, date string) ([]domain.Details, error) {
	return r.queryDetails(ctx, ` WHERE r.date=$1::date ORDER BY r.slot ASC`, date)
}

func (r *Repository) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Details, error) {
	return r.queryDetails(ctx, ` WHERE r.status=$1 ORDER BY r.date DESC, r.slot DESC`, status)
}

func (r *Repository) ListUpcoming(ctx context.Context, days int) ([]domain.Details, error) {
	return r.queryDetails(ctx, ` WHERE r.date BETWEEN CURRENT_DATE AND CURRENT_DATE + $1::int
		AND r.status IN ('pending', 'confirmed')
		ORDER BY r.date ASC, r.slot ASC`, days)
}

func (r *Repository) Stats(ctx context.Context) (domain.Stats, error) {
	var s domain.Stats
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status='pending'),
			COUNT(*) FILTER (WHERE status='confirmed'),
			COUNT(*) FILTER (WHERE status='cancelled'),
			COUNT(*) FILTER (WHERE status='completed')
		FROM reservations`).
		Scan(&s.Total, &s.Pending, &s.Confirmed, &s.Cancelled, &s.Completed)
	return s, err
}

func (r *Repository) UserExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *Repository) ServiceExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM services WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

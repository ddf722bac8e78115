package application

import (
	"context"

	"github.com/PixelCodeeee/arroyo-seco-backend/internal/reservation/domain"
)

// Repository is the reservation store. Admission-then-write methods run the
// availability read and the mutation inside one transaction that locks the
// service row, so concurrent admissions for the same key serialize.
type Repository interface {
	// CreateAdmitted inserts the reservation if the party fits the remaining
	// capacity at (service, date, slot); otherwise *domain.CapacityError.
	CreateAdmitted(ctx context.Context, r domain.Reservation) (domain.Reservation, error)
	// UpdateAdmitted applies the update, re-checking capacity against the
	// other reservations at the target key (the record itself is excluded).
	UpdateAdmitted(ctx context.Context, id string, upd domain.Update) (domain.Reservation, error)
	// UpdateStatus enforces the transition table before writing.
	UpdateStatus(ctx context.Context, id string, next domain.Status) (domain.Reservation, error)
	Delete(ctx context.Context, id string) error

	// CheckSeats is the read-only admission probe; it takes no locks.
	CheckSeats(ctx context.Context, serviceID, date, slot string, partySize int) (domain.Admission, error)

	Get(ctx context.Context, id string) (domain.Details, error)
	List(ctx context.Context) ([]domain.Details, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Details, error)
	ListByService(ctx context.Context, serviceID string) ([]domain.Details, error)
	ListByDate(ctx context.Context, date string) ([]domain.Details, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.Details, error)
	ListUpcoming(ctx context.Context, days int) ([]domain.Details, error)
	Stats(ctx context.Context) (domain.Stats, error)

	UserExists(ctx context.Context, id string) (bool, error)
	ServiceExists(ctx context.Context, id string) (bool, error)
}

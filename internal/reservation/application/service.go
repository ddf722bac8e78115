package application

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/PixelCodeeee/arroyo-seco-backend/internal/reservation/domain"
)

type Service struct {
	log  *slog.Logger
	repo Repository
}

func NewService(log *slog.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo}
}

// Create validates the request, verifies the referenced user and service
// exist, and hands the admission-then-insert to the repository, which runs
// both under the service row lock.
func (s *Service) Create(ctx context.Context, r domain.Reservation) (domain.Reservation, error) {
	r.ID = uuid.NewString()
	r.Status = domain.StatusPending
	if err := r.Validate(); err != nil {
		return domain.Reservation{}, err
	}

	ok, err := s.repo.UserExists(ctx, r.UserID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !ok {
		return domain.Reservation{}, domain.ErrUserNotFound
	}
	ok, err = s.repo.ServiceExists(ctx, r.ServiceID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !ok {
		return domain.Reservation{}, domain.ErrServiceNotFound
	}

	created, err := s.repo.CreateAdmitted(ctx, r)
	if err != nil {
		return domain.Reservation{}, err
	}
	s.log.Info("reservation created", "reservation_id", created.ID, "service_id", created.ServiceID,
		"date", created.Date, "slot", created.Slot, "party_size", created.PartySize)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, upd domain.Update) (domain.Reservation, error) {
	if upd.PartySize != nil && *upd.PartySize < 1 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}
	updated, err := s.repo.UpdateAdmitted(ctx, id, upd)
	if err != nil {
		return domain.Reservation{}, err
	}
	s.log.Info("reservation updated", "reservation_id", id)
	return updated, nil
}

// ChangeStatus moves the reservation along its lifecycle. Entering cancelled
// or completed releases the held seats implicitly: the reserved-seat sum
// filters on status, so no ledger write is needed.
func (s *Service) ChangeStatus(ctx context.Context, id string, next domain.Status) (domain.Reservation, error) {
	if !domain.ValidStatus(next) {
		return domain.Reservation{}, domain.ErrInvalidStatus
	}
	updated, err := s.repo.UpdateStatus(ctx, id, next)
	if err != nil {
		return domain.Reservation{}, err
	}
	s.log.Info("reservation status changed", "reservation_id", id, "status", next)
	return updated, nil
}

// Delete removes the record outright. Unlike products there is no soft
// delete; the freed seats become available to the next admission check.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("reservation deleted", "reservation_id", id)
	return nil
}

// CheckSeats answers "does a party of this size fit at this slot" without
// reserving anything.
func (s *Service) CheckSeats(ctx context.Context, serviceID, date, slot string, partySize int) (domain.Admission, error) {
	if partySize <= 0 {
		return domain.Admission{}, domain.ErrInvalidQuantity
	}
	return s.repo.CheckSeats(ctx, serviceID, date, slot, partySize)
}

func (s *Service) Get(ctx context.Context, id string) (domain.Details, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.Details, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Details, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListByService(ctx context.Context, serviceID string) ([]domain.Details, error) {
	return s.repo.ListByService(ctx, serviceID)
}

func (s *Service) ListByDate(ctx context.Context, date string) ([]domain.Details, error) {
	return s.repo.ListByDate(ctx, date)
}

func (s *Service) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Details, error) {
	if !domain.ValidStatus(status) {
		return nil, domain.ErrInvalidStatus
	}
	return s.repo.ListByStatus(ctx, status)
}

func (s *Service) ListUpcoming(ctx context.Context, days int) ([]domain.Details, error) {
	if days <= 0 {
		days = 7
	}
	return s.repo.ListUpcoming(ctx, days)
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	return s.repo.Stats(ctx)
}

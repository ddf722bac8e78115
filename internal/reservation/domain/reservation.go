package domain

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

var (
	ErrNotFound           = errors.New("reservation not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrServiceNotFound    = errors.New("service not found")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrInvalidQuantity    = errors.New("party size must be positive")
	ErrInvalidStatus      = errors.New("invalid reservation status")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrMissingFields      = errors.New("missing required fields")
)

// CapacityError is the negative admission outcome for a write: the requested
// party does not fit. Remaining tells the caller how many seats are left.
type CapacityError struct {
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded: %d seats remaining", e.Remaining)
}

// transitions is the full lifecycle: pending -> confirmed|cancelled,
// confirmed -> cancelled|completed. Cancelled and completed are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
	StatusCancelled: {},
	StatusCompleted: {},
}

func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// Transition reports whether moving from current to next is legal.
func Transition(current, next Status) error {
	if !ValidStatus(next) {
		return ErrInvalidStatus
	}
	for _, allowed := range transitions[current] {
		if next == allowed {
			return nil
		}
	}
	return ErrInvalidTransition
}

// Released reports whether the status no longer holds seats: cancelled and
// completed reservations are excluded from the reserved-seat sum.
func (s Status) Released() bool {
	return s == StatusCancelled || s == StatusCompleted
}

type Reservation struct {
	ID        string
	UserID    string
	ServiceID string
	Date      string // 2006-01-02
	Slot      string // 15:04
	PartySize int
	Status    Status
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r Reservation) Validate() error {
	if r.UserID == "" || r.ServiceID == "" || r.Date == "" || r.Slot == "" {
		return ErrMissingFields
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return fmt.Errorf("%w: bad date %q", ErrMissingFields, r.Date)
	}
	if _, err := time.Parse("15:04", r.Slot); err != nil {
		return fmt.Errorf("%w: bad slot %q", ErrMissingFields, r.Slot)
	}
	if r.PartySize < 1 {
		return ErrInvalidQuantity
	}
	return nil
}

// Update carries the mutable reservation fields; nil means unchanged.
// Status changes go through their own operation, not here.
type Update struct {
	Date      *string
	Slot      *string
	PartySize *int
	Notes     *string
}

// Admission is the outcome of a seat availability check. A negative outcome
// is an expected business result, not an error.
type Admission struct {
	OK        bool
	Remaining int
}

// Details is a reservation joined with the descriptive fields the read
// surface returns alongside it.
type Details struct {
	Reservation
	UserName      string
	UserEmail     string
	ServiceName   string
	Capacity      int
	VendorName    string
	VendorAddress string
}

// Stats are aggregate status counts over all reservations.
type Stats struct {
	Total     int
	Pending   int
	Confirmed int
	Cancelled int
	Completed int
}

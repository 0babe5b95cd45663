package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
)

// EventRepository is the event catalog as seen by the capacity gate. The
// attendee counter is only ever changed through the conditional
// increment/decrement pair.
type EventRepository interface {
	GetByID(ctx context.Context, eventID uuid.UUID) (*domain.Event, error)
	// IncrementAttendees adds one attendee iff the event still has capacity.
	// It returns domain.ErrCapacityExceeded or domain.ErrEventNotFound when
	// nothing was changed.
	IncrementAttendees(ctx context.Context, eventID uuid.UUID) error
	// DecrementAttendees removes one attendee, never going below zero. The
	// boolean is false when the counter was already at zero.
	DecrementAttendees(ctx context.Context, eventID uuid.UUID) (bool, error)
}

type ReservationRepository interface {
	// Create inserts r, returning domain.ErrDuplicateReservation if the user
	// already holds an active reservation for the event.
	Create(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Reservation, error)
	FindActive(ctx context.Context, userID, eventID uuid.UUID) (*domain.Reservation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Reservation, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.Reservation, error)

	// Cancel moves a non-cancelled reservation to cancelled. A reservation
	// that was already paid is flagged for compensation in the same update.
	Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Reservation, error)
	// RestoreCancelled reverts a cancellation whose slot could not be
	// released. The restored status follows the stored payment status and a
	// compensation flag raised by cancelling a paid reservation is cleared.
	RestoreCancelled(ctx context.Context, id uuid.UUID, at time.Time) error

	// SetPaymentIntent stores intentID iff no intent was stored yet and
	// returns the reservation as persisted afterwards. An intent id already
	// stored on another reservation yields domain.ErrIntentAlreadyLinked.
	SetPaymentIntent(ctx context.Context, id uuid.UUID, intentID string, at time.Time) (*domain.Reservation, error)

	// MarkPaymentSucceeded promotes a pending, non-cancelled reservation to
	// paid/confirmed.
	MarkPaymentSucceeded(ctx context.Context, intentID string, at time.Time) (*domain.Reservation, error)
	// MarkPaymentFailed moves a pending payment to failed.
	MarkPaymentFailed(ctx context.Context, intentID string, at time.Time) (*domain.Reservation, error)
	// MarkPaidAfterCancel records a capture that arrived after cancellation
	// and flags the reservation for compensation.
	MarkPaidAfterCancel(ctx context.Context, intentID string, at time.Time) (*domain.Reservation, error)
	// MarkCapturedAfterFailure flags a failed payment whose intent was
	// captured anyway. The payment status stays failed.
	MarkCapturedAfterFailure(ctx context.Context, intentID string, at time.Time) (*domain.Reservation, error)
	// MarkRefunded settles a required compensation.
	MarkRefunded(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Reservation, error)

	// ListPendingPayments returns reservations with an open intent created
	// before olderThan.
	ListPendingPayments(ctx context.Context, olderThan time.Time, limit int) ([]domain.Reservation, error)
}

package domain

import "errors"

var (
	// Lookup errors
	ErrEventNotFound       = errors.New("event not found")
	ErrReservationNotFound = errors.New("reservation not found")

	// Authorization errors
	ErrForbidden       = errors.New("reservation does not belong to requester")
	ErrUnauthenticated = errors.New("authentication required")

	// Capacity errors
	ErrCapacityExceeded     = errors.New("event is full")
	ErrDuplicateReservation = errors.New("user already holds a reservation for this event")
	ErrAlreadyCancelled     = errors.New("reservation already cancelled")

	// Payment errors
	ErrPaymentNotRequired      = errors.New("payment not required for this reservation")
	ErrPaymentNotSucceeded     = errors.New("payment not successful")
	ErrPaymentAlreadySettled   = errors.New("payment already settled")
	ErrCompensationNotRequired = errors.New("reservation has no pending compensation")
	ErrWebhookVerification     = errors.New("webhook signature verification failed")
	ErrGateway                 = errors.New("payment gateway unavailable")

	// Validation errors
	ErrValidation      = errors.New("validation failed")
	ErrInvalidEventID  = errors.New("invalid event id")
	ErrInvalidID       = errors.New("invalid reservation id")
	ErrNotesTooLong    = errors.New("notes must be at most 500 characters")
	ErrMissingIntentID = errors.New("payment intent id is required")
	ErrInvalidOutcome  = errors.New("unknown payment outcome")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrReservationNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidEventID) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrNotesTooLong) ||
		errors.Is(err, ErrMissingIntentID) ||
		errors.Is(err, ErrInvalidOutcome)
}

// IsRejection reports errors that reject a request because of the current
// state of the event or reservation.
func IsRejection(err error) bool {
	return errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrDuplicateReservation) ||
		errors.Is(err, ErrAlreadyCancelled) ||
		errors.Is(err, ErrPaymentNotRequired) ||
		errors.Is(err, ErrPaymentNotSucceeded) ||
		errors.Is(err, ErrPaymentAlreadySettled) ||
		errors.Is(err, ErrCompensationNotRequired)
}

// ErrIntentAlreadyLinked means a payment intent id is already stored on
// another reservation.
var ErrIntentAlreadyLinked = errors.New("payment intent already linked to another reservation")

// ErrStateConflict is returned by conditional ledger updates whose guard no
// longer matched the stored row.
var ErrStateConflict = errors.New("reservation state changed concurrently")

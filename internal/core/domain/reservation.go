package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MaxNotesLength = 500

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentNotRequired PaymentStatus = "not_required"
	PaymentPending     PaymentStatus = "pending"
	PaymentPaid        PaymentStatus = "paid"
	PaymentFailed      PaymentStatus = "failed"
)

// IsTerminal reports whether the payment status can no longer change.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentPaid || s == PaymentFailed
}

// CompensationStatus tracks money that was captured for a reservation whose
// slot has already been released.
type CompensationStatus string

const (
	CompensationNone     CompensationStatus = "none"
	CompensationRequired CompensationStatus = "required"
	CompensationRefunded CompensationStatus = "refunded"
)

type Reservation struct {
	ID              uuid.UUID          `json:"id"`
	UserID          uuid.UUID          `json:"user_id"`
	EventID         uuid.UUID          `json:"event_id"`
	Status          ReservationStatus  `json:"status"`
	PaymentStatus   PaymentStatus      `json:"payment_status"`
	PaymentIntentID *string            `json:"payment_intent_id,omitempty"`
	Amount          int64              `json:"amount"`
	Currency        string             `json:"currency"`
	Notes           string             `json:"notes,omitempty"`
	Compensation    CompensationStatus `json:"compensation"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	CancelledAt     *time.Time         `json:"cancelled_at,omitempty"`
}

// NewReservation builds the ledger entry for a slot granted at event. Paid
// events start pending until the gateway reports a terminal outcome.
func NewReservation(event *Event, userID uuid.UUID, notes string, now time.Time) *Reservation {
	r := &Reservation{
		ID:           uuid.New(),
		UserID:       userID,
		EventID:      event.ID,
		Amount:       event.Price,
		Currency:     event.Currency,
		Notes:        notes,
		Compensation: CompensationNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if event.RequiresPayment() {
		r.Status = ReservationPending
		r.PaymentStatus = PaymentPending
	} else {
		r.Status = ReservationConfirmed
		r.PaymentStatus = PaymentNotRequired
	}

	return r
}

func (r *Reservation) IsActive() bool {
	return r.Status != ReservationCancelled
}

func (r *Reservation) IsOwnedBy(userID uuid.UUID) bool {
	return r.UserID == userID
}

func (r *Reservation) HasIntent() bool {
	return r.PaymentIntentID != nil && *r.PaymentIntentID != ""
}

// NormalizeNotes trims surrounding whitespace and enforces the length limit.
func NormalizeNotes(notes string) (string, error) {
	notes = strings.TrimSpace(notes)
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return "", ErrNotesTooLong
	}

	return notes, nil
}

// PaymentOutcome is a terminal result reported by the payment gateway.
type PaymentOutcome string

const (
	OutcomeSucceeded PaymentOutcome = "succeeded"
	OutcomeFailed    PaymentOutcome = "failed"
)

func (o PaymentOutcome) Valid() bool {
	return o == OutcomeSucceeded || o == OutcomeFailed
}

// CompensationEvent is published when captured money has to be returned, and
// again once the refund went through.
type CompensationEvent struct {
	Type            string    `json:"type"`
	ReservationID   uuid.UUID `json:"reservation_id"`
	EventID         uuid.UUID `json:"event_id"`
	UserID          uuid.UUID `json:"user_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	Reason          string    `json:"reason"`
	OccurredAt      time.Time `json:"occurred_at"`
}

const (
	CompensationEventRequired = "reservation.compensation_required"
	CompensationEventRefunded = "reservation.refunded"
)

func NewCompensationEvent(kind string, r *Reservation, reason string, now time.Time) *CompensationEvent {
	e := &CompensationEvent{
		Type:          kind,
		ReservationID: r.ID,
		EventID:       r.EventID,
		UserID:        r.UserID,
		Amount:        r.Amount,
		Currency:      r.Currency,
		Reason:        reason,
		OccurredAt:    now,
	}
	if r.PaymentIntentID != nil {
		e.PaymentIntentID = *r.PaymentIntentID
	}

	return e
}

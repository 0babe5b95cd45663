package domain

import (
	"github.com/google/uuid"
)

type Event struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	MaxAttendees     int       `json:"max_attendees"`
	CurrentAttendees int       `json:"current_attendees"`
	Price            int64     `json:"price"`
	Currency         string    `json:"currency"`
	IsPaid           bool      `json:"is_paid"`
}

func (e *Event) HasCapacity() bool {
	return e.CurrentAttendees < e.MaxAttendees
}

func (e *Event) AvailableSlots() int {
	if e.CurrentAttendees >= e.MaxAttendees {
		return 0
	}

	return e.MaxAttendees - e.CurrentAttendees
}

// RequiresPayment reports whether a reservation at this event must be settled
// through the payment gateway.
func (e *Event) RequiresPayment() bool {
	return e.IsPaid && e.Price > 0
}

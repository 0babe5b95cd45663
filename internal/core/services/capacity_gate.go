package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"github.com/srgjo27/scalable_rsvp/internal/core/ports"
	"github.com/srgjo27/scalable_rsvp/internal/platform/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SlotToken is proof that one unit of an event's capacity was taken.
type SlotToken struct {
	EventID   uuid.UUID
	UserID    uuid.UUID
	GrantedAt time.Time
}

// CapacityGate is the only writer of an event's attendee counter.
type CapacityGate struct {
	events       ports.EventRepository
	reservations ports.ReservationRepository
	log          *zap.Logger
}

func NewCapacityGate(events ports.EventRepository, reservations ports.ReservationRepository, log *zap.Logger) *CapacityGate {
	return &CapacityGate{
		events:       events,
		reservations: reservations,
		log:          log,
	}
}

// TryReserve takes one slot of eventID for userID. The duplicate lookup is a
// fast path only; the ledger's uniqueness constraint has the final word.
func (g *CapacityGate) TryReserve(ctx context.Context, eventID, userID uuid.UUID) (token *SlotToken, err error) {
	ctx, span := telemetry.StartSpan(ctx, "capacity_gate.try_reserve",
		attribute.String("event_id", eventID.String()),
		attribute.String("user_id", userID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	existing, err := g.reservations.FindActive(ctx, userID, eventID)
	switch {
	case err == nil && existing != nil:
		return nil, domain.ErrDuplicateReservation
	case err != nil && !errors.Is(err, domain.ErrReservationNotFound):
		return nil, fmt.Errorf("failed to check existing reservation: %w", err)
	}

	if err := g.events.IncrementAttendees(ctx, eventID); err != nil {
		return nil, err
	}

	return &SlotToken{
		EventID:   eventID,
		UserID:    userID,
		GrantedAt: time.Now().UTC(),
	}, nil
}

// Release returns one slot of eventID. Hitting the zero floor means some
// slot was released twice, so it is logged loudly but not reported.
func (g *CapacityGate) Release(ctx context.Context, eventID uuid.UUID) error {
	released, err := g.events.DecrementAttendees(ctx, eventID)
	if err != nil {
		return err
	}

	if !released {
		g.log.Error("attendee counter already at zero on release",
			zap.String("event_id", eventID.String()))
	}

	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"github.com/srgjo27/scalable_rsvp/internal/core/ports"
	"github.com/srgjo27/scalable_rsvp/internal/platform/retry"
	"go.uber.org/zap"
)

// ReservationService is the reservation ledger. Every ledger write that
// follows a capacity change is paired with a compensating change when the
// write does not go through.
type ReservationService struct {
	events       ports.EventRepository
	reservations ports.ReservationRepository
	gate         *CapacityGate
	gateway      ports.PaymentGateway
	compensation *CompensationService
	retry        retry.Config
	log          *zap.Logger
	now          func() time.Time
}

func NewReservationService(
	events ports.EventRepository,
	reservations ports.ReservationRepository,
	gate *CapacityGate,
	gateway ports.PaymentGateway,
	compensation *CompensationService,
	retryCfg retry.Config,
	log *zap.Logger,
) *ReservationService {
	return &ReservationService{
		events:       events,
		reservations: reservations,
		gate:         gate,
		gateway:      gateway,
		compensation: compensation,
		retry:        retryCfg,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *ReservationService) Create(ctx context.Context, eventID, userID uuid.UUID, notes string) (*domain.Reservation, error) {
	notes, err := domain.NormalizeNotes(notes)
	if err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	token, err := s.gate.TryReserve(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}

	res := domain.NewReservation(event, userID, notes, s.now())

	if err := s.reservations.Create(ctx, res); err != nil {
		if relErr := s.releaseSlot(ctx, token.EventID); relErr != nil {
			s.log.Error("failed to roll back slot after ledger write failure",
				zap.String("event_id", eventID.String()),
				zap.String("user_id", userID.String()),
				zap.Error(relErr))
		}

		if errors.Is(err, domain.ErrDuplicateReservation) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	s.log.Info("reservation created",
		zap.String("reservation_id", res.ID.String()),
		zap.String("event_id", eventID.String()),
		zap.String("user_id", userID.String()),
		zap.String("status", string(res.Status)),
		zap.String("payment_status", string(res.PaymentStatus)))

	return res, nil
}

func (s *ReservationService) Get(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

func (s *ReservationService) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Reservation, error) {
	return s.reservations.ListByUser(ctx, userID)
}

func (s *ReservationService) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.Reservation, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	return s.reservations.ListByEvent(ctx, eventID)
}

// Availability is the public view of an event's counters.
type Availability struct {
	EventID          uuid.UUID `json:"event_id"`
	MaxAttendees     int       `json:"max_attendees"`
	CurrentAttendees int       `json:"current_attendees"`
	Available        int       `json:"available"`
	IsPaid           bool      `json:"is_paid"`
	Price            int64     `json:"price"`
	Currency         string    `json:"currency"`
}

func (s *ReservationService) Availability(ctx context.Context, eventID uuid.UUID) (*Availability, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	return &Availability{
		EventID:          event.ID,
		MaxAttendees:     event.MaxAttendees,
		CurrentAttendees: event.CurrentAttendees,
		Available:        event.AvailableSlots(),
		IsPaid:           event.RequiresPayment(),
		Price:            event.Price,
		Currency:         event.Currency,
	}, nil
}

// Cancel releases the requester's reservation and its slot. Exactly one
// caller wins the ledger transition, so the slot is released at most once.
func (s *ReservationService) Cancel(ctx context.Context, id, requesterID uuid.UUID) (*domain.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !res.IsOwnedBy(requesterID) {
		return nil, domain.ErrForbidden
	}

	if !res.IsActive() {
		return nil, domain.ErrAlreadyCancelled
	}

	cancelled, err := s.reservations.Cancel(ctx, id, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.releaseSlot(ctx, cancelled.EventID); err != nil {
		if restoreErr := s.reservations.RestoreCancelled(context.WithoutCancel(ctx), id, s.now()); restoreErr != nil {
			s.log.Error("cancelled reservation still holds its slot",
				zap.String("reservation_id", id.String()),
				zap.String("event_id", cancelled.EventID.String()),
				zap.Error(restoreErr))

			return nil, fmt.Errorf("failed to release slot: %w", errors.Join(err, restoreErr))
		}

		return nil, fmt.Errorf("failed to release slot: %w", err)
	}

	s.log.Info("reservation cancelled",
		zap.String("reservation_id", id.String()),
		zap.String("event_id", cancelled.EventID.String()),
		zap.String("payment_status", string(cancelled.PaymentStatus)))

	switch {
	case cancelled.PaymentStatus == domain.PaymentPaid && cancelled.Compensation == domain.CompensationRequired:
		s.compensation.Flag(ctx, cancelled, "reservation cancelled after payment")
	case cancelled.PaymentStatus == domain.PaymentPending && cancelled.HasIntent():
		s.abandonIntent(ctx, *cancelled.PaymentIntentID)
	}

	return cancelled, nil
}

// releaseSlot survives the caller going away: a granted slot that is not
// backed by a ledger entry must always be handed back.
func (s *ReservationService) releaseSlot(ctx context.Context, eventID uuid.UUID) error {
	return retry.Do(context.WithoutCancel(ctx), s.retry, func(ctx context.Context) error {
		err := s.gate.Release(ctx, eventID)
		if errors.Is(err, domain.ErrEventNotFound) {
			return retry.Permanent(err)
		}
		return err
	})
}

// abandonIntent cancels an open intent so that it cannot be captured after
// the reservation is gone. A capture that still slips through is caught by
// the reconciler's compensation path.
func (s *ReservationService) abandonIntent(ctx context.Context, intentID string) {
	cfg := s.retry
	cfg.MaxRetries = 0

	err := callGateway(ctx, cfg, func(ctx context.Context) error {
		return s.gateway.CancelIntent(ctx, intentID)
	})
	if err != nil {
		s.log.Warn("failed to cancel payment intent of cancelled reservation",
			zap.String("payment_intent_id", intentID),
			zap.Error(err))
	}
}

package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"github.com/srgjo27/scalable_rsvp/internal/core/ports"
	"github.com/srgjo27/scalable_rsvp/internal/platform/retry"
	"go.uber.org/zap"
)

// CompensationService handles money captured for a reservation whose slot
// is no longer held: it announces the case and settles it with a refund.
type CompensationService struct {
	reservations ports.ReservationRepository
	gateway      ports.PaymentGateway
	publisher    ports.CompensationPublisher
	retry        retry.Config
	log          *zap.Logger
	now          func() time.Time
}

func NewCompensationService(
	reservations ports.ReservationRepository,
	gateway ports.PaymentGateway,
	publisher ports.CompensationPublisher,
	retryCfg retry.Config,
	log *zap.Logger,
) *CompensationService {
	return &CompensationService{
		reservations: reservations,
		gateway:      gateway,
		publisher:    publisher,
		retry:        retryCfg,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Flag announces that res needs a refund. The ledger already carries the
// flag, so a publish failure is logged and not returned.
func (s *CompensationService) Flag(ctx context.Context, res *domain.Reservation, reason string) {
	event := domain.NewCompensationEvent(domain.CompensationEventRequired, res, reason, s.now())

	s.log.Warn("reservation requires compensation",
		zap.String("reservation_id", res.ID.String()),
		zap.String("payment_intent_id", event.PaymentIntentID),
		zap.Int64("amount", res.Amount),
		zap.String("reason", reason))

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Error("failed to publish compensation event",
			zap.String("reservation_id", res.ID.String()),
			zap.Error(err))
	}
}

// Refund returns the captured amount of a flagged reservation.
func (s *CompensationService) Refund(ctx context.Context, reservationID uuid.UUID) (*domain.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if res.Compensation != domain.CompensationRequired || !res.HasIntent() {
		return nil, domain.ErrCompensationNotRequired
	}

	intentID := *res.PaymentIntentID
	err = callGateway(ctx, s.retry, func(ctx context.Context) error {
		return s.gateway.Refund(ctx, intentID, res.Amount)
	})
	if err != nil {
		return nil, err
	}

	refunded, err := s.reservations.MarkRefunded(ctx, reservationID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrStateConflict) {
			// a concurrent refund settled it first
			return s.reservations.GetByID(ctx, reservationID)
		}

		return nil, err
	}

	s.log.Info("compensation refunded",
		zap.String("reservation_id", refunded.ID.String()),
		zap.String("payment_intent_id", intentID),
		zap.Int64("amount", refunded.Amount))

	event := domain.NewCompensationEvent(domain.CompensationEventRefunded, refunded, "refund issued", s.now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Error("failed to publish refund event",
			zap.String("reservation_id", refunded.ID.String()),
			zap.Error(err))
	}

	return refunded, nil
}

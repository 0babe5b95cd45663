package services

import (
	"context"
	"errors"
	"time"

	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"github.com/srgjo27/scalable_rsvp/internal/core/ports"
	"github.com/srgjo27/scalable_rsvp/internal/platform/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// maxTransitionAttempts bounds how often a conditional transition is retried
// after the stored row changed underneath it.
const maxTransitionAttempts = 3

// Reconciler applies terminal gateway outcomes to the ledger. It is keyed by
// payment intent id because that is the only identifier every delivery path
// shares. Applying an outcome any number of times, in any order, converges
// to the first terminal outcome that was stored.
type Reconciler struct {
	reservations ports.ReservationRepository
	compensation *CompensationService
	log          *zap.Logger
	now          func() time.Time
}

func NewReconciler(reservations ports.ReservationRepository, compensation *CompensationService, log *zap.Logger) *Reconciler {
	return &Reconciler{
		reservations: reservations,
		compensation: compensation,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ApplyOutcome returns the reservation as stored after the outcome was
// applied. An intent that matches no reservation is logged and dropped: the
// result is nil with a nil error.
func (r *Reconciler) ApplyOutcome(ctx context.Context, intentID string, outcome domain.PaymentOutcome) (res *domain.Reservation, err error) {
	if intentID == "" {
		return nil, domain.ErrMissingIntentID
	}
	if !outcome.Valid() {
		return nil, domain.ErrInvalidOutcome
	}

	ctx, span := telemetry.StartSpan(ctx, "reconciler.apply_outcome",
		attribute.String("payment_intent_id", intentID),
		attribute.String("outcome", string(outcome)))
	defer func() { telemetry.EndSpan(span, err) }()

	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		res, err = r.transition(ctx, intentID, outcome)
		if err == nil {
			r.log.Info("payment outcome applied",
				zap.String("payment_intent_id", intentID),
				zap.String("reservation_id", res.ID.String()),
				zap.String("outcome", string(outcome)),
				zap.String("payment_status", string(res.PaymentStatus)))
			return res, nil
		}
		if !errors.Is(err, domain.ErrStateConflict) {
			return nil, err
		}

		current, err := r.reservations.GetByPaymentIntentID(ctx, intentID)
		if err != nil {
			if errors.Is(err, domain.ErrReservationNotFound) {
				r.log.Warn("payment outcome for unknown intent dropped",
					zap.String("payment_intent_id", intentID),
					zap.String("outcome", string(outcome)))
				return nil, nil
			}
			return nil, err
		}

		if outcome == domain.OutcomeSucceeded && current.PaymentStatus == domain.PaymentFailed {
			return r.captureAfterFailure(ctx, current)
		}

		if current.PaymentStatus.IsTerminal() || current.PaymentStatus == domain.PaymentNotRequired {
			r.log.Debug("payment outcome already settled",
				zap.String("payment_intent_id", intentID),
				zap.String("reservation_id", current.ID.String()),
				zap.String("outcome", string(outcome)),
				zap.String("payment_status", string(current.PaymentStatus)))
			return current, nil
		}

		if outcome == domain.OutcomeSucceeded && !current.IsActive() {
			paid, err := r.reservations.MarkPaidAfterCancel(ctx, intentID, r.now())
			if err == nil {
				r.compensation.Flag(ctx, paid, "payment captured after cancellation")
				return paid, nil
			}
			if !errors.Is(err, domain.ErrStateConflict) {
				return nil, err
			}
		}
	}

	return nil, domain.ErrStateConflict
}

// captureAfterFailure keeps the stored failure but flags the captured funds
// for refund. Only the first capture raises the flag.
func (r *Reconciler) captureAfterFailure(ctx context.Context, current *domain.Reservation) (*domain.Reservation, error) {
	if current.Compensation != domain.CompensationNone || current.PaymentIntentID == nil {
		return current, nil
	}

	flagged, err := r.reservations.MarkCapturedAfterFailure(ctx, *current.PaymentIntentID, r.now())
	if err != nil {
		if errors.Is(err, domain.ErrStateConflict) {
			return r.reservations.GetByPaymentIntentID(ctx, *current.PaymentIntentID)
		}
		return nil, err
	}

	r.compensation.Flag(ctx, flagged, "payment captured after failure")
	return flagged, nil
}

func (r *Reconciler) transition(ctx context.Context, intentID string, outcome domain.PaymentOutcome) (*domain.Reservation, error) {
	if outcome == domain.OutcomeSucceeded {
		return r.reservations.MarkPaymentSucceeded(ctx, intentID, r.now())
	}

	return r.reservations.MarkPaymentFailed(ctx, intentID, r.now())
}

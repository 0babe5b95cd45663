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

const (
	MetadataReservationID = "reservation_id"
	MetadataEventID       = "event_id"
	MetadataUserID        = "user_id"
)

// IntentSession is what a client needs to complete a payment.
type IntentSession struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientToken     string `json:"client_secret"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// PaymentService bridges reservations to the payment gateway.
type PaymentService struct {
	events       ports.EventRepository
	reservations ports.ReservationRepository
	gateway      ports.PaymentGateway
	reconciler   *Reconciler
	retry        retry.Config
	log          *zap.Logger
	now          func() time.Time
}

func NewPaymentService(
	events ports.EventRepository,
	reservations ports.ReservationRepository,
	gateway ports.PaymentGateway,
	reconciler *Reconciler,
	retryCfg retry.Config,
	log *zap.Logger,
) *PaymentService {
	return &PaymentService{
		events:       events,
		reservations: reservations,
		gateway:      gateway,
		reconciler:   reconciler,
		retry:        retryCfg,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// OpenIntent creates the gateway intent for a paid reservation. It is
// idempotent by reservation: later calls return the intent that was stored
// first.
func (s *PaymentService) OpenIntent(ctx context.Context, reservationID, requesterID uuid.UUID) (*IntentSession, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if !res.IsOwnedBy(requesterID) {
		return nil, domain.ErrForbidden
	}

	event, err := s.events.GetByID(ctx, res.EventID)
	if err != nil {
		return nil, err
	}

	if !event.IsPaid || res.Amount <= 0 || res.PaymentStatus == domain.PaymentNotRequired {
		return nil, domain.ErrPaymentNotRequired
	}

	if !res.IsActive() {
		return nil, domain.ErrAlreadyCancelled
	}

	if res.PaymentStatus.IsTerminal() {
		return nil, domain.ErrPaymentAlreadySettled
	}

	if res.HasIntent() {
		return s.existingSession(ctx, *res.PaymentIntentID)
	}

	req := ports.IntentRequest{
		Amount:      res.Amount,
		Currency:    res.Currency,
		Description: "Reservation " + res.ID.String(),
		Metadata: map[string]string{
			MetadataReservationID: res.ID.String(),
			MetadataEventID:       res.EventID.String(),
			MetadataUserID:        res.UserID.String(),
		},
		IdempotencyKey: "reservation:" + res.ID.String(),
	}

	var intent *ports.Intent
	err = callGateway(ctx, s.retry, func(ctx context.Context) error {
		var err error
		intent, err = s.gateway.CreateIntent(ctx, req)
		return err
	})
	if err != nil {
		s.log.Error("failed to create payment intent",
			zap.String("reservation_id", res.ID.String()),
			zap.Error(err))
		return nil, err
	}

	stored, err := s.reservations.SetPaymentIntent(ctx, res.ID, intent.ID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrIntentAlreadyLinked) {
			// the intent is owned by another reservation and must stay open
			s.log.Error("gateway returned an intent linked to another reservation",
				zap.String("reservation_id", res.ID.String()),
				zap.String("payment_intent_id", intent.ID))
		}
		return nil, err
	}

	if stored.PaymentIntentID == nil || *stored.PaymentIntentID != intent.ID {
		// a concurrent call stored its intent first
		s.log.Info("discarding duplicate payment intent",
			zap.String("reservation_id", res.ID.String()),
			zap.String("payment_intent_id", intent.ID))
		if err := s.gateway.CancelIntent(ctx, intent.ID); err != nil {
			s.log.Warn("failed to cancel duplicate payment intent",
				zap.String("payment_intent_id", intent.ID),
				zap.Error(err))
		}

		if !stored.HasIntent() {
			return nil, domain.ErrStateConflict
		}
		return s.existingSession(ctx, *stored.PaymentIntentID)
	}

	s.log.Info("payment intent opened",
		zap.String("reservation_id", res.ID.String()),
		zap.String("payment_intent_id", intent.ID),
		zap.Int64("amount", res.Amount))

	return &IntentSession{
		PaymentIntentID: intent.ID,
		ClientToken:     intent.ClientToken,
		Amount:          res.Amount,
		Currency:        res.Currency,
	}, nil
}

// ConfirmFromClient settles a payment the client reports as complete. The
// gateway, not the client, decides whether it succeeded.
func (s *PaymentService) ConfirmFromClient(ctx context.Context, intentID string, requesterID uuid.UUID) (*domain.Reservation, error) {
	if intentID == "" {
		return nil, domain.ErrMissingIntentID
	}

	res, err := s.reservations.GetByPaymentIntentID(ctx, intentID)
	if err != nil {
		return nil, err
	}

	if !res.IsOwnedBy(requesterID) {
		return nil, domain.ErrForbidden
	}

	intent, err := s.retrieveIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	switch intent.Status {
	case ports.IntentSucceeded:
		updated, err := s.reconciler.ApplyOutcome(ctx, intentID, domain.OutcomeSucceeded)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, domain.ErrReservationNotFound
		}
		return updated, nil
	case ports.IntentFailed:
		if _, err := s.reconciler.ApplyOutcome(ctx, intentID, domain.OutcomeFailed); err != nil {
			s.log.Warn("failed to record failed payment",
				zap.String("payment_intent_id", intentID),
				zap.Error(err))
		}
	}

	return nil, domain.ErrPaymentNotSucceeded
}

// RefreshOutcome re-reads an intent from the gateway and applies its status
// when terminal. It reports whether an outcome was applied.
func (s *PaymentService) RefreshOutcome(ctx context.Context, intentID string) (bool, error) {
	intent, err := s.retrieveIntent(ctx, intentID)
	if err != nil {
		return false, err
	}

	var outcome domain.PaymentOutcome
	switch intent.Status {
	case ports.IntentSucceeded:
		outcome = domain.OutcomeSucceeded
	case ports.IntentFailed:
		outcome = domain.OutcomeFailed
	default:
		return false, nil
	}

	if _, err := s.reconciler.ApplyOutcome(ctx, intentID, outcome); err != nil {
		return false, err
	}

	return true, nil
}

func (s *PaymentService) existingSession(ctx context.Context, intentID string) (*IntentSession, error) {
	intent, err := s.retrieveIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	return &IntentSession{
		PaymentIntentID: intent.ID,
		ClientToken:     intent.ClientToken,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
	}, nil
}

func (s *PaymentService) retrieveIntent(ctx context.Context, intentID string) (*ports.Intent, error) {
	var intent *ports.Intent
	err := callGateway(ctx, s.retry, func(ctx context.Context) error {
		var err error
		intent, err = s.gateway.RetrieveIntent(ctx, intentID)
		return err
	})
	if err != nil {
		s.log.Error("failed to retrieve payment intent",
			zap.String("payment_intent_id", intentID),
			zap.Error(err))
		return nil, err
	}

	return intent, nil
}
